package audit

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"
)

type captureSink struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (s *captureSink) Emit(ctx context.Context, e Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, e)
	return nil
}

func (s *captureSink) wait(t *testing.T, n int) []Event {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		s.mu.Lock()
		got := len(s.events)
		s.mu.Unlock()
		if got >= n {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.events) < n {
		t.Fatalf("sink received %d events, want %d", len(s.events), n)
	}
	return append([]Event(nil), s.events...)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLogger_Record_FillsIDAndTime(t *testing.T) {
	sink := &captureSink{}
	l := NewLogger(discardLogger(), sink)

	l.Record(context.Background(), Event{Action: ActionTokenPairCreated, UserID: "u1"})

	events := sink.wait(t, 1)
	e := events[0]
	if e.ID == "" {
		t.Error("Record should assign an event ID")
	}
	if e.CreatedAt.IsZero() {
		t.Error("Record should assign CreatedAt")
	}
	if e.Action != ActionTokenPairCreated || e.UserID != "u1" {
		t.Errorf("event = %+v, want action/user preserved", e)
	}
}

func TestLogger_Record_NilSink(t *testing.T) {
	l := NewLogger(discardLogger(), nil)
	// Must not panic or block.
	l.Record(context.Background(), Event{Action: ActionAccessRejected, Reason: ReasonInvalidToken})
}

func TestLogger_Record_SinkErrorDoesNotPropagate(t *testing.T) {
	sink := &captureSink{err: errors.New("kafka down")}
	l := NewLogger(discardLogger(), sink)
	// Record never returns an error; a failing sink only logs.
	l.Record(context.Background(), Event{Action: ActionTokenRefreshed, UserID: "u1"})
}

func TestNewKafkaSink_DisabledWhenUnconfigured(t *testing.T) {
	if s := NewKafkaSink(nil, "topic"); s != nil {
		t.Error("NewKafkaSink with no brokers should return nil")
	}
	if s := NewKafkaSink([]string{"localhost:9092"}, ""); s != nil {
		t.Error("NewKafkaSink with no topic should return nil")
	}
	var s *KafkaSink
	if err := s.Emit(context.Background(), Event{}); err != nil {
		t.Errorf("nil KafkaSink Emit: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("nil KafkaSink Close: %v", err)
	}
}
