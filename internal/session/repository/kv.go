package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"session-security-engine/internal/kv"
	"session-security-engine/internal/session/domain"
)

// KVRepository persists sessions in a TTL key-value store under
// session:<userID>:<sessionID>. The retention TTL bounds a session's physical
// lifetime; rewrites preserve the original expiry by recomputing the remaining
// TTL from CreatedAt.
type KVRepository struct {
	store     kv.Store
	retention time.Duration
}

// NewKVRepository returns a session repository over the given store with the
// given physical retention (normally the refresh token lifetime).
func NewKVRepository(store kv.Store, retention time.Duration) *KVRepository {
	return &KVRepository{store: store, retention: retention}
}

func sessionKey(userID, sessionID string) string {
	return "session:" + userID + ":" + sessionID
}

// Get returns the session for (userID, sessionID), or nil if not found.
// It returns an error only for store failures, not for missing keys.
func (r *KVRepository) Get(ctx context.Context, userID, sessionID string) (*domain.Session, error) {
	raw, err := r.store.Get(ctx, sessionKey(userID, sessionID))
	if errors.Is(err, kv.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var s domain.Session
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", sessionID, err)
	}
	return &s, nil
}

// ListActiveByUser returns all active, unexpired sessions for the user.
// Records that fail to decode are skipped rather than failing the listing.
func (r *KVRepository) ListActiveByUser(ctx context.Context, userID string) ([]*domain.Session, error) {
	keys, err := r.store.Keys(ctx, "session:"+userID+":*")
	if err != nil {
		return nil, err
	}
	var out []*domain.Session
	for _, key := range keys {
		raw, err := r.store.Get(ctx, key)
		if errors.Is(err, kv.ErrNotFound) {
			continue // expired between Keys and Get
		}
		if err != nil {
			return nil, err
		}
		var s domain.Session
		if err := json.Unmarshal([]byte(raw), &s); err != nil {
			continue
		}
		if s.IsActive {
			out = append(out, &s)
		}
	}
	return out, nil
}

// Create persists the session with the full retention TTL.
func (r *KVRepository) Create(ctx context.Context, s *domain.Session) error {
	return r.write(ctx, s, r.retention)
}

// Invalidate marks the session inactive, preserving its physical expiry.
// Idempotent; a missing session is a no-op.
func (r *KVRepository) Invalidate(ctx context.Context, userID, sessionID string) error {
	s, err := r.Get(ctx, userID, sessionID)
	if err != nil {
		return err
	}
	if s == nil || !s.IsActive {
		return nil
	}
	s.IsActive = false
	return r.rewrite(ctx, s)
}

// UpdateLastActivity advances the session's activity timestamp, preserving
// its physical expiry. A missing session is a no-op.
func (r *KVRepository) UpdateLastActivity(ctx context.Context, userID, sessionID string, at time.Time) error {
	s, err := r.Get(ctx, userID, sessionID)
	if err != nil {
		return err
	}
	if s == nil {
		return nil
	}
	s.LastActivity = at
	return r.rewrite(ctx, s)
}

// rewrite stores the session with the TTL remaining from its original
// creation, so updates never extend the retention window. Sessions past
// retention are dropped instead of rewritten.
func (r *KVRepository) rewrite(ctx context.Context, s *domain.Session) error {
	remaining := r.retention - time.Now().UTC().Sub(s.CreatedAt)
	if remaining <= 0 {
		return r.store.Delete(ctx, sessionKey(s.UserID, s.ID))
	}
	return r.write(ctx, s, remaining)
}

func (r *KVRepository) write(ctx context.Context, s *domain.Session, ttl time.Duration) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", s.ID, err)
	}
	return r.store.Set(ctx, sessionKey(s.UserID, s.ID), string(raw), ttl)
}
