package repository

import (
	"context"
	"time"

	"session-security-engine/internal/session/domain"
)

// Repository defines persistence for sessions.
type Repository interface {
	// Get returns the session for (userID, sessionID), or nil if not found.
	Get(ctx context.Context, userID, sessionID string) (*domain.Session, error)
	// ListActiveByUser returns all active, unexpired sessions for the user.
	ListActiveByUser(ctx context.Context, userID string) ([]*domain.Session, error)
	Create(ctx context.Context, s *domain.Session) error
	// Invalidate marks the session inactive. Idempotent; missing sessions are a no-op.
	Invalidate(ctx context.Context, userID, sessionID string) error
	UpdateLastActivity(ctx context.Context, userID, sessionID string, at time.Time) error
}
