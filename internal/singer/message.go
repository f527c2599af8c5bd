// Package singer models the tap's output messages and the sinks that carry
// them downstream.
package singer

import (
	"context"
	"encoding/json"
	"time"
)

// MessageType tags each output line.
type MessageType string

const (
	TypeSchema MessageType = "SCHEMA"
	TypeRecord MessageType = "RECORD"
	TypeState  MessageType = "STATE"
)

// Record is one emitted row.
type Record map[string]any

// Message is a single output message. Fields not used by a type are omitted.
type Message struct {
	Type          MessageType     `json:"type"`
	Stream        string          `json:"stream,omitempty"`
	Record        Record          `json:"record,omitempty"`
	TimeExtracted *time.Time      `json:"time_extracted,omitempty"`
	Schema        json.RawMessage `json:"schema,omitempty"`
	KeyProperties []string        `json:"key_properties,omitempty"`
	Value         any             `json:"value,omitempty"`
}

// Sink receives messages in emission order. Implementations must be safe for
// concurrent use by several stream tasks.
type Sink interface {
	Write(ctx context.Context, msg Message) error
	Close() error
}

func SchemaMessage(stream string, schema json.RawMessage, keys []string) Message {
	return Message{Type: TypeSchema, Stream: stream, Schema: schema, KeyProperties: keys}
}

func RecordMessage(stream string, rec Record, extracted time.Time) Message {
	t := extracted.UTC()
	return Message{Type: TypeRecord, Stream: stream, Record: rec, TimeExtracted: &t}
}

func StateMessage(value any) Message {
	return Message{Type: TypeState, Value: value}
}
