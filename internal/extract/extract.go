// Package extract is the sync engine: it pulls each selected stream from the
// Fastly API, writes records to the sink and advances the stream's bookmark
// as units of work complete.
package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aniketwaliyan/tap-fastly/internal/catalog"
	"github.com/aniketwaliyan/tap-fastly/internal/fastly"
	"github.com/aniketwaliyan/tap-fastly/internal/singer"
	"github.com/aniketwaliyan/tap-fastly/internal/state"
)

// ErrUnknownStream is returned for a selected stream the tap has no sync for.
var ErrUnknownStream = errors.New("unknown stream")

// StreamKind enumerates the streams the tap knows how to sync.
type StreamKind int

const (
	Bills StreamKind = iota + 1
	Stats
)

var streamNames = map[StreamKind]string{
	Bills: "bills",
	Stats: "stats",
}

func (k StreamKind) String() string {
	if name, ok := streamNames[k]; ok {
		return name
	}
	return fmt.Sprintf("StreamKind(%d)", int(k))
}

// KeyProperties returns the key properties declared in the stream's SCHEMA message.
func (k StreamKind) KeyProperties() []string {
	switch k {
	case Bills:
		return []string{"invoice_id"}
	case Stats:
		return []string{"service_id", "start_time"}
	}
	return nil
}

// ParseStreamKind maps a tap_stream_id to its kind.
func ParseStreamKind(name string) (StreamKind, error) {
	for k, n := range streamNames {
		if n == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownStream, name)
}

// Client is the part of the Fastly client the sync engine uses.
type Client interface {
	Bill(ctx context.Context, at time.Time) fastly.Bill
	Stats(ctx context.Context, from, to time.Time) *fastly.StatsResult
	Service(ctx context.Context, id string) *fastly.Service
}

// Options configures a Syncer.
type Options struct {
	// StartDate is used for streams that have no bookmark yet.
	StartDate time.Time
	// Now defaults to time.Now.
	Now    func() time.Time
	Logger *slog.Logger
}

type syncFunc func(ctx context.Context, schema json.RawMessage) error

// Syncer runs stream syncs. One Syncer is shared by all stream tasks of a run.
type Syncer struct {
	client    Client
	state     *state.State
	store     state.Store
	sink      singer.Sink
	startDate time.Time
	now       func() time.Time
	logger    *slog.Logger

	persistMu sync.Mutex
	syncs     map[StreamKind]syncFunc
}

func NewSyncer(client Client, st *state.State, store state.Store, sink singer.Sink, opts Options) *Syncer {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if store == nil {
		store = state.NopStore{}
	}
	s := &Syncer{
		client:    client,
		state:     st,
		store:     store,
		sink:      sink,
		startDate: opts.StartDate.UTC(),
		now:       opts.Now,
		logger:    opts.Logger,
	}
	s.syncs = map[StreamKind]syncFunc{
		Bills: s.syncBills,
		Stats: s.syncStats,
	}
	return s
}

// Sync runs the sync for one catalog entry.
func (s *Syncer) Sync(ctx context.Context, entry catalog.Entry) error {
	kind, err := ParseStreamKind(entry.TapStreamID)
	if err != nil {
		return err
	}
	if err := s.syncs[kind](ctx, entry.Schema); err != nil {
		return fmt.Errorf("sync %s: %w", kind, err)
	}
	return nil
}

func (s *Syncer) writeSchema(ctx context.Context, kind StreamKind, schema json.RawMessage) error {
	return s.sink.Write(ctx, singer.SchemaMessage(kind.String(), schema, kind.KeyProperties()))
}

func (s *Syncer) writeRecord(ctx context.Context, kind StreamKind, rec singer.Record) error {
	return s.sink.Write(ctx, singer.RecordMessage(kind.String(), rec, s.now()))
}

// advance moves a bookmark forward and, when it moved, writes the full state
// to the sink and the store. Holding persistMu keeps snapshots in order
// across stream tasks.
func (s *Syncer) advance(ctx context.Context, kind StreamKind, key string, t time.Time) error {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	if !s.state.Stream(kind.String()).Advance(key, t) {
		return nil
	}
	doc := s.state.Snapshot()
	if err := s.sink.Write(ctx, singer.StateMessage(doc)); err != nil {
		return err
	}
	if err := s.store.Save(ctx, doc); err != nil {
		return fmt.Errorf("failed to persist state: %w", err)
	}
	return nil
}
