package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/aniketwaliyan/tap-fastly/internal/catalog"
	"github.com/aniketwaliyan/tap-fastly/internal/state"
)

// WriteCatalog writes the discovered catalog as indented JSON.
func WriteCatalog(w io.Writer) error {
	cat, err := catalog.Discover()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(cat, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode catalog: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// ResolveCatalog loads the caller's catalog, or discovers one when path is
// empty. selectAll marks every stream selected.
func ResolveCatalog(path string, selectAll bool) (*catalog.Catalog, error) {
	var (
		cat *catalog.Catalog
		err error
	)
	if path != "" {
		cat, err = catalog.Load(path)
	} else {
		cat, err = catalog.Discover()
	}
	if err != nil {
		return nil, err
	}
	if selectAll {
		cat.SelectAll()
	}
	return cat, nil
}

// InitState builds the run's starting state: the configured start date, then
// whatever the store saved last, then the caller's override.
func InitState(ctx context.Context, startDate string, store state.Store, override *state.Document) (*state.State, error) {
	st := state.New(startDate)
	saved, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load saved state: %w", err)
	}
	st.Merge(saved)
	st.Merge(override)
	return st, nil
}
