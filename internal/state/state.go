// Package state holds the tap's bookmark state and the stores that persist it
// between runs.
package state

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// Document is the wire form of the state: {"bookmarks": {stream: {key: value}}}.
type Document struct {
	Bookmarks map[string]map[string]string `json:"bookmarks"`
}

// State is the in-memory bookmark state shared by all stream tasks. Tasks
// write through the handle returned by Stream, so each one only touches its
// own sub-key.
type State struct {
	mu        sync.RWMutex
	bookmarks map[string]map[string]string
}

// New returns the initial state for a run: the bills bookmark starts at the
// configured start date.
func New(startDate string) *State {
	s := &State{bookmarks: map[string]map[string]string{}}
	if startDate != "" {
		s.bookmarks["bills"] = map[string]string{"start_time": startDate}
	}
	return s
}

// Merge copies every bookmark in doc over the current values.
func (s *State) Merge(doc *Document) {
	if doc == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for stream, keys := range doc.Bookmarks {
		if s.bookmarks[stream] == nil {
			s.bookmarks[stream] = map[string]string{}
		}
		for k, v := range keys {
			s.bookmarks[stream][k] = v
		}
	}
}

// Snapshot returns a deep copy of the current state.
func (s *State) Snapshot() Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc := Document{Bookmarks: make(map[string]map[string]string, len(s.bookmarks))}
	for stream, keys := range s.bookmarks {
		cp := make(map[string]string, len(keys))
		for k, v := range keys {
			cp[k] = v
		}
		doc.Bookmarks[stream] = cp
	}
	return doc
}

// MarshalJSON encodes the current snapshot.
func (s *State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Snapshot())
}

// Stream returns the bookmark handle for one stream.
func (s *State) Stream(name string) *Bookmarks {
	return &Bookmarks{state: s, stream: name}
}

// Bookmarks reads and advances the bookmarks of a single stream.
type Bookmarks struct {
	state  *State
	stream string
}

// Get returns the raw bookmark value for key.
func (b *Bookmarks) Get(key string) (string, bool) {
	b.state.mu.RLock()
	defer b.state.mu.RUnlock()
	v, ok := b.state.bookmarks[b.stream][key]
	return v, ok
}

// Time returns the bookmark for key parsed as a timestamp.
func (b *Bookmarks) Time(key string) (time.Time, bool, error) {
	raw, ok := b.Get(key)
	if !ok {
		return time.Time{}, false, nil
	}
	t, err := ParseTimestamp(raw)
	if err != nil {
		return time.Time{}, true, fmt.Errorf("bookmark %s.%s: %w", b.stream, key, err)
	}
	return t, true, nil
}

// Advance moves the bookmark for key to t. It reports false and leaves the
// bookmark alone when t is not later than the stored value.
func (b *Bookmarks) Advance(key string, t time.Time) bool {
	b.state.mu.Lock()
	defer b.state.mu.Unlock()
	keys := b.state.bookmarks[b.stream]
	if keys == nil {
		keys = map[string]string{}
		b.state.bookmarks[b.stream] = keys
	}
	if raw, ok := keys[key]; ok {
		if cur, err := ParseTimestamp(raw); err == nil && !t.After(cur) {
			return false
		}
	}
	keys[key] = FormatTimestamp(t)
	return true
}
