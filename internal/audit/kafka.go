package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaSink implements Sink using segmentio/kafka-go.
type KafkaSink struct {
	writer *kafka.Writer
}

// NewKafkaSink creates a sink that writes audit events to the given topic.
// Returns nil when brokers or topic are empty (sink disabled).
// Call Close when shutting down.
func NewKafkaSink(brokers []string, topic string) *KafkaSink {
	if len(brokers) == 0 || topic == "" {
		return nil
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 50 * time.Millisecond,
	}
	return &KafkaSink{writer: writer}
}

// Emit serializes the event as JSON and writes it to the Kafka topic, keyed by
// user id so one user's events stay ordered within a partition.
// Uses the given context with a short timeout so slow Kafka does not block callers indefinitely.
func (s *KafkaSink) Emit(ctx context.Context, e Event) error {
	if s == nil || s.writer == nil {
		return nil
	}
	payload, err := json.Marshal(e)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.writer.WriteMessages(writeCtx, kafka.Message{
		Key:   []byte(e.UserID),
		Value: payload,
	})
}

// Close flushes and closes the underlying writer.
func (s *KafkaSink) Close() error {
	if s == nil || s.writer == nil {
		return nil
	}
	return s.writer.Close()
}
