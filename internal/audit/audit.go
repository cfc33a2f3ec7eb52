// Package audit records structured security events for the session engine.
// Recording is best-effort and never blocks or fails the request that
// triggered it; detailed rejection reasons live only here, never in the
// engine's public results.
package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Actions recorded by the engine.
const (
	ActionTokenPairCreated       = "token_pair_created"
	ActionTokenRefreshed         = "token_refreshed"
	ActionAccessRejected         = "access_rejected"
	ActionRefreshRejected        = "refresh_rejected"
	ActionTokenBlacklisted       = "token_blacklisted"
	ActionSessionInvalidated     = "session_invalidated"
	ActionSessionEvicted         = "session_evicted"
	ActionAllSessionsInvalidated = "all_sessions_invalidated"
)

// Rejection reasons. Audit-only detail; callers of the engine see a single
// collapsed unauthorized result.
const (
	ReasonInvalidToken        = "invalid_token"
	ReasonExpiredToken        = "expired_token"
	ReasonBlacklisted         = "blacklisted"
	ReasonSessionInactive     = "session_inactive"
	ReasonFingerprintMismatch = "fingerprint_mismatch"
	ReasonVersionMismatch     = "version_mismatch"
	ReasonHashMismatch        = "hash_mismatch"
	ReasonUserInactive        = "user_inactive"
)

// Event is one audit record.
type Event struct {
	ID        string    `json:"id"`
	Action    string    `json:"action"`
	UserID    string    `json:"user_id,omitempty"`
	SessionID string    `json:"session_id,omitempty"`
	IP        string    `json:"ip,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	Metadata  string    `json:"metadata,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Recorder accepts audit events. Implementations must be best-effort: a
// Record call never blocks the caller's request and never returns an error.
type Recorder interface {
	Record(ctx context.Context, e Event)
}

// Sink delivers events to an external system (e.g. Kafka). Best-effort;
// callers log and ignore errors.
type Sink interface {
	Emit(ctx context.Context, e Event) error
}

// Logger implements Recorder: every event goes to the structured log, and to
// the optional sink asynchronously.
type Logger struct {
	log  *slog.Logger
	sink Sink
}

// NewLogger returns a Recorder writing to log and, when sink is non-nil,
// fanning out to it off the request path.
func NewLogger(log *slog.Logger, sink Sink) *Logger {
	if log == nil {
		log = slog.Default()
	}
	return &Logger{log: log, sink: sink}
}

// Record writes one audit event. The sink write happens in a goroutine with
// its own timeout so request cancellation does not abort an in-flight emit.
func (l *Logger) Record(ctx context.Context, e Event) {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	l.log.LogAttrs(ctx, slog.LevelInfo, "audit",
		slog.String("audit_id", e.ID),
		slog.String("action", e.Action),
		slog.String("user_id", e.UserID),
		slog.String("session_id", e.SessionID),
		slog.String("ip", e.IP),
		slog.String("reason", e.Reason),
		slog.String("metadata", e.Metadata),
	)

	emitAsync(l.sink, e, l.log)
}

// emitTimeout is the max time allowed for a single async sink emit.
const emitTimeout = 5 * time.Second

// emitAsync runs sink.Emit in a goroutine with a short timeout so the caller
// is never blocked. Errors are logged and dropped.
func emitAsync(sink Sink, e Event, log *slog.Logger) {
	if sink == nil {
		return
	}
	go func() {
		emitCtx, cancel := context.WithTimeout(context.Background(), emitTimeout)
		defer cancel()
		if err := sink.Emit(emitCtx, e); err != nil {
			log.Warn("audit: async emit failed", "action", e.Action, "error", err)
		}
	}()
}

// Nop is a Recorder that discards all events. For tests and callers that
// opt out of auditing.
type Nop struct{}

// Record discards the event.
func (Nop) Record(ctx context.Context, e Event) {}
