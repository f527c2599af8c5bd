package state_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aniketwaliyan/tap-fastly/internal/state"
)

func TestParseTimestamp(t *testing.T) {
	want := time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)
	for _, in := range []string{
		"2024-03-15T10:30:00Z",
		"2024-03-15T12:30:00+02:00",
		"2024-03-15T10:30:00",
		"2024-03-15 10:30:00 UTC",
		"2024-03-15 10:30:00",
	} {
		got, err := state.ParseTimestamp(in)
		require.NoError(t, err, in)
		require.True(t, want.Equal(got), in)
	}

	day, err := state.ParseTimestamp("2024-03-15")
	require.NoError(t, err)
	require.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), day)

	_, err = state.ParseTimestamp("last tuesday")
	require.Error(t, err)
}

func TestNew_SeedsBillsStart(t *testing.T) {
	s := state.New("2024-01-01T00:00:00Z")
	v, ok := s.Stream("bills").Get("start_time")
	require.True(t, ok)
	require.Equal(t, "2024-01-01T00:00:00Z", v)

	_, ok = s.Stream("stats").Get("from")
	require.False(t, ok)
}

func TestMerge_CallerWins(t *testing.T) {
	s := state.New("2024-01-01T00:00:00Z")
	s.Merge(&state.Document{Bookmarks: map[string]map[string]string{
		"bills": {"start_time": "2024-05-01T00:00:00Z"},
		"stats": {"from": "2024-05-02 00:00:00 UTC"},
	}})

	doc := s.Snapshot()
	require.Equal(t, "2024-05-01T00:00:00Z", doc.Bookmarks["bills"]["start_time"])
	require.Equal(t, "2024-05-02 00:00:00 UTC", doc.Bookmarks["stats"]["from"])
}

func TestAdvance_Monotonic(t *testing.T) {
	s := state.New("2024-02-01T00:00:00Z")
	b := s.Stream("bills")

	require.False(t, b.Advance("start_time", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
	require.False(t, b.Advance("start_time", time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)))
	v, _ := b.Get("start_time")
	require.Equal(t, "2024-02-01T00:00:00Z", v)

	require.True(t, b.Advance("start_time", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)))
	v, _ = b.Get("start_time")
	require.Equal(t, "2024-03-01T00:00:00Z", v)
}

func TestAdvance_ComparesLegacyFormat(t *testing.T) {
	s := state.New("")
	s.Merge(&state.Document{Bookmarks: map[string]map[string]string{
		"stats": {"from": "2024-05-02 00:00:00 UTC"},
	}})
	b := s.Stream("stats")
	require.False(t, b.Advance("from", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)))
	require.True(t, b.Advance("from", time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC)))
}

func TestStreamHandlesAreDisjoint(t *testing.T) {
	s := state.New("2024-01-01T00:00:00Z")
	s.Stream("stats").Advance("from", time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))

	v, _ := s.Stream("bills").Get("start_time")
	require.Equal(t, "2024-01-01T00:00:00Z", v)
	_, ok := s.Stream("bills").Get("from")
	require.False(t, ok)
}

func TestSnapshot_IsCopy(t *testing.T) {
	s := state.New("2024-01-01T00:00:00Z")
	doc := s.Snapshot()
	doc.Bookmarks["bills"]["start_time"] = "mutated"

	v, _ := s.Stream("bills").Get("start_time")
	require.Equal(t, "2024-01-01T00:00:00Z", v)
}

func TestBookmarkTime_Invalid(t *testing.T) {
	s := state.New("not a date")
	_, ok, err := s.Stream("bills").Time("start_time")
	require.True(t, ok)
	require.Error(t, err)
}

func TestMarshalJSON(t *testing.T) {
	s := state.New("2024-01-01T00:00:00Z")
	data, err := json.Marshal(s)
	require.NoError(t, err)
	require.JSONEq(t, `{"bookmarks":{"bills":{"start_time":"2024-01-01T00:00:00Z"}}}`, string(data))
}

func TestFileStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.json")
	store := state.NewFileStore(path)

	doc, err := store.Load(ctx)
	require.NoError(t, err)
	require.Nil(t, doc)

	want := state.Document{Bookmarks: map[string]map[string]string{
		"bills": {"start_time": "2024-02-01T00:00:00Z"},
	}}
	require.NoError(t, store.Save(ctx, want))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, want, *got)
}

func TestReadFile_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o644))
	_, err := state.ReadFile(path)
	require.Error(t, err)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	store, err := state.Open(ctx, state.Options{})
	require.NoError(t, err)
	require.IsType(t, state.NopStore{}, store)

	store, err = state.Open(ctx, state.Options{Backend: "file", Path: filepath.Join(t.TempDir(), "s.json")})
	require.NoError(t, err)
	require.IsType(t, &state.FileStore{}, store)

	_, err = state.Open(ctx, state.Options{Backend: "file"})
	require.Error(t, err)

	_, err = state.Open(ctx, state.Options{Backend: "postgres"})
	require.Error(t, err)

	_, err = state.Open(ctx, state.Options{Backend: "etcd"})
	require.Error(t, err)
}
