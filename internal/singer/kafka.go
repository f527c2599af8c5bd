package singer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaSink publishes each message to a topic, keyed by stream name so a
// stream's messages stay in one partition and keep their order. STATE
// messages use the key "state".
type KafkaSink struct {
	writer *kafka.Writer
}

func NewKafkaSink(brokers []string, topic string) (*KafkaSink, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka sink requires at least one broker")
	}
	if topic == "" {
		return nil, fmt.Errorf("kafka sink requires a topic")
	}
	return &KafkaSink{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			BatchTimeout: 10 * time.Millisecond,
		},
	}, nil
}

func (k *KafkaSink) Write(ctx context.Context, msg Message) error {
	value, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode %s message: %w", msg.Type, err)
	}
	if err := k.writer.WriteMessages(ctx, kafka.Message{Key: []byte(messageKey(msg)), Value: value}); err != nil {
		return fmt.Errorf("failed to publish %s message: %w", msg.Type, err)
	}
	return nil
}

func (k *KafkaSink) Close() error {
	return k.writer.Close()
}

func messageKey(msg Message) string {
	if msg.Stream == "" {
		return "state"
	}
	return msg.Stream
}
