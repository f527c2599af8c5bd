package catalog_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aniketwaliyan/tap-fastly/internal/catalog"
)

func TestDiscover(t *testing.T) {
	cat, err := catalog.Discover()
	require.NoError(t, err)
	require.Len(t, cat.Streams, 2)

	bills, stats := cat.Streams[0], cat.Streams[1]
	require.Equal(t, "bills", bills.Stream)
	require.Equal(t, "bills", bills.TapStreamID)
	require.Equal(t, []string{"invoice_id"}, bills.KeyProperties)
	require.Equal(t, "stats", stats.Stream)
	require.Equal(t, []string{"service_id", "start_time"}, stats.KeyProperties)

	var schema map[string]any
	require.NoError(t, json.Unmarshal(stats.Schema, &schema))
	props := schema["properties"].(map[string]any)
	require.Contains(t, props, "service_name")
	require.Contains(t, props, "service_created_at")

	require.Empty(t, cat.Selected())
}

func TestDiscover_OutputShape(t *testing.T) {
	cat, err := catalog.Discover()
	require.NoError(t, err)
	data, err := json.Marshal(cat)
	require.NoError(t, err)

	var out struct {
		Streams []map[string]json.RawMessage `json:"streams"`
	}
	require.NoError(t, json.Unmarshal(data, &out))
	for _, s := range out.Streams {
		for _, field := range []string{"stream", "tap_stream_id", "schema", "metadata", "key_properties"} {
			require.Contains(t, s, field)
		}
	}
}

func TestSelected_RootBreadcrumbOnly(t *testing.T) {
	raw := `{"streams":[
		{"stream":"bills","tap_stream_id":"bills","schema":{},"key_properties":["invoice_id"],
		 "metadata":[{"breadcrumb":[],"metadata":{"selected":true}}]},
		{"stream":"stats","tap_stream_id":"stats","schema":{},"key_properties":["service_id","start_time"],
		 "metadata":[{"breadcrumb":["properties","requests"],"metadata":{"selected":true}},
		             {"breadcrumb":[],"metadata":{"selected":false}}]}
	]}`
	path := filepath.Join(t.TempDir(), "catalog.json")
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	cat, err := catalog.Load(path)
	require.NoError(t, err)

	selected := cat.Selected()
	require.Len(t, selected, 1)
	require.Equal(t, "bills", selected[0].TapStreamID)
}

func TestSelected_NonBooleanIsNotSelected(t *testing.T) {
	cat := &catalog.Catalog{Streams: []catalog.Entry{{
		TapStreamID: "bills",
		Metadata:    []catalog.Metadata{{Breadcrumb: []string{}, Metadata: map[string]any{"selected": "true"}}},
	}}}
	require.Empty(t, cat.Selected())
}

func TestSelectAll(t *testing.T) {
	cat, err := catalog.Discover()
	require.NoError(t, err)
	cat.Streams = append(cat.Streams, catalog.Entry{TapStreamID: "bare"})

	cat.SelectAll()
	require.Len(t, cat.Selected(), 3)
}

func TestSelectAll_NullRootMetadata(t *testing.T) {
	raw := `{"streams":[
		{"stream":"bills","tap_stream_id":"bills","schema":{},"key_properties":["invoice_id"],
		 "metadata":[{"breadcrumb":[],"metadata":null}]}
	]}`
	path := filepath.Join(t.TempDir(), "catalog.json")
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	cat, err := catalog.Load(path)
	require.NoError(t, err)
	require.Empty(t, cat.Selected())

	require.NotPanics(t, cat.SelectAll)
	selected := cat.Selected()
	require.Len(t, selected, 1)
	require.Len(t, selected[0].Metadata, 1)
	require.Equal(t, map[string]any{"selected": true}, selected[0].RootMetadata())
}

func TestLoad_Errors(t *testing.T) {
	_, err := catalog.Load(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o644))
	_, err = catalog.Load(path)
	require.Error(t, err)
}
