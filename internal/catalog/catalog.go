// Package catalog describes the streams the tap can extract and which of
// them a caller selected.
package catalog

import (
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// Metadata annotates the part of a stream named by Breadcrumb. An empty
// breadcrumb refers to the whole stream.
type Metadata struct {
	Breadcrumb []string       `json:"breadcrumb"`
	Metadata   map[string]any `json:"metadata"`
}

// Entry is one stream in the catalog.
type Entry struct {
	Stream        string          `json:"stream"`
	TapStreamID   string          `json:"tap_stream_id"`
	Schema        json.RawMessage `json:"schema"`
	Metadata      []Metadata      `json:"metadata"`
	KeyProperties []string        `json:"key_properties"`
}

// Catalog is the discovery output and the selection input.
type Catalog struct {
	Streams []Entry `json:"streams"`
}

type definition struct {
	Streams []struct {
		Schema   json.RawMessage `json:"schema"`
		Metadata []Metadata      `json:"metadata"`
	} `json:"streams"`
}

// Discover builds the catalog from the embedded stream definitions, one
// entry per definition file, ordered by stream name.
func Discover() (*Catalog, error) {
	files, err := schemaFS.ReadDir("schemas")
	if err != nil {
		return nil, fmt.Errorf("failed to list stream definitions: %w", err)
	}

	cat := &Catalog{}
	for _, f := range files {
		name := strings.TrimSuffix(f.Name(), ".json")
		data, err := schemaFS.ReadFile(path.Join("schemas", f.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read stream definition %s: %w", name, err)
		}
		entry, err := entryFromDefinition(name, data)
		if err != nil {
			return nil, err
		}
		cat.Streams = append(cat.Streams, entry)
	}
	return cat, nil
}

func entryFromDefinition(name string, data []byte) (Entry, error) {
	var def definition
	if err := json.Unmarshal(data, &def); err != nil {
		return Entry{}, fmt.Errorf("failed to parse stream definition %s: %w", name, err)
	}
	if len(def.Streams) == 0 || len(def.Streams[0].Metadata) == 0 {
		return Entry{}, fmt.Errorf("stream definition %s has no stream metadata", name)
	}
	s := def.Streams[0]
	return Entry{
		Stream:        name,
		TapStreamID:   name,
		Schema:        s.Schema,
		Metadata:      s.Metadata,
		KeyProperties: stringList(s.Metadata[0].Metadata["table-key-properties"]),
	}, nil
}

func stringList(v any) []string {
	items, _ := v.([]any)
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Load reads a caller-supplied catalog file.
func Load(filePath string) (*Catalog, error) {
	data, err := os.ReadFile(filepath.Clean(filePath))
	if err != nil {
		return nil, fmt.Errorf("error reading catalog file: %w", err)
	}
	var cat Catalog
	if err := json.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("error parsing catalog: %w", err)
	}
	return &cat, nil
}

// RootMetadata returns the metadata attached to the empty breadcrumb.
func (e Entry) RootMetadata() map[string]any {
	if i := e.rootIndex(); i >= 0 {
		return e.Metadata[i].Metadata
	}
	return nil
}

func (e Entry) rootIndex() int {
	for i, m := range e.Metadata {
		if len(m.Breadcrumb) == 0 {
			return i
		}
	}
	return -1
}

// IsSelected reports whether the root metadata carries selected: true.
func (e Entry) IsSelected() bool {
	selected, _ := e.RootMetadata()["selected"].(bool)
	return selected
}

// Selected returns the selected entries in catalog order.
func (c *Catalog) Selected() []Entry {
	var out []Entry
	for _, e := range c.Streams {
		if e.IsSelected() {
			out = append(out, e)
		}
	}
	return out
}

// SelectAll marks every stream selected at its root breadcrumb.
func (c *Catalog) SelectAll() {
	for i := range c.Streams {
		e := &c.Streams[i]
		j := e.rootIndex()
		if j < 0 {
			e.Metadata = append(e.Metadata, Metadata{Breadcrumb: []string{}})
			j = len(e.Metadata) - 1
		}
		if e.Metadata[j].Metadata == nil {
			e.Metadata[j].Metadata = map[string]any{}
		}
		e.Metadata[j].Metadata["selected"] = true
	}
}
