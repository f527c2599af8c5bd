package state

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Store persists state snapshots between runs.
type Store interface {
	// Load returns the last saved state, or nil when nothing has been saved.
	Load(ctx context.Context) (*Document, error)
	Save(ctx context.Context, doc Document) error
	Close() error
}

// Options selects and configures a Store.
type Options struct {
	Backend string // none, file, postgres, sqlserver, redis
	Path    string
	DSN     string
	Addr    string
	Key     string
	Table   string
	TapID   string
}

// Open builds the store named by opts.Backend.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Backend {
	case "", "none":
		return NopStore{}, nil
	case "file":
		if opts.Path == "" {
			return nil, fmt.Errorf("file state backend requires a path")
		}
		return NewFileStore(opts.Path), nil
	case "postgres", "sqlserver":
		return NewSQLStore(ctx, opts.Backend, opts.DSN, opts.Table, opts.TapID)
	case "redis":
		return NewRedisStore(ctx, opts.Addr, opts.Key)
	default:
		return nil, fmt.Errorf("unsupported state backend %q", opts.Backend)
	}
}

// Decode parses a state document.
func Decode(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("error parsing state: %w", err)
	}
	return &doc, nil
}

// ReadFile reads a state document from path.
func ReadFile(path string) (*Document, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("error reading state file: %w", err)
	}
	return Decode(data)
}

// FileStore keeps the state as a JSON file, replaced atomically on save.
type FileStore struct {
	mu   sync.Mutex
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (f *FileStore) Load(ctx context.Context) (*Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := os.Stat(f.path); os.IsNotExist(err) {
		return nil, nil
	}
	return ReadFile(f.path)
}

func (f *FileStore) Save(ctx context.Context, doc Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".state-*")
	if err != nil {
		return fmt.Errorf("failed to create temp state file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), f.path)
}

func (f *FileStore) Close() error { return nil }
