package state

import "context"

// NopStore is used when no state backend is configured; state then only
// reaches the output as STATE messages.
type NopStore struct{}

func (NopStore) Load(ctx context.Context) (*Document, error) { return nil, nil }

func (NopStore) Save(ctx context.Context, doc Document) error { return nil }

func (NopStore) Close() error { return nil }
