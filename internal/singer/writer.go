package singer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
)

// Writer writes messages as JSON lines, one message per line.
type Writer struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{enc: json.NewEncoder(w)}
}

func (w *Writer) Write(ctx context.Context, msg Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.enc.Encode(msg); err != nil {
		return fmt.Errorf("failed to write %s message: %w", msg.Type, err)
	}
	return nil
}

// Close is a no-op; the caller owns the underlying writer.
func (w *Writer) Close() error { return nil }
