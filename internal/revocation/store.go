// Package revocation persists the engine's negative state: blacklisted token
// ids, the hash of each session's currently valid refresh token, and per-user
// token version counters.
package revocation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"session-security-engine/internal/kv"
)

// BlacklistTTL bounds how long a blacklisted jti is remembered. 24h safely
// covers the longest remaining lifetime of either token type plus clock skew;
// after that the token's own exp claim rejects it.
const BlacklistTTL = 24 * time.Hour

// Store records revocation state in a TTL key-value store.
type Store struct {
	store      kv.Store
	refreshTTL time.Duration
}

// NewStore returns a revocation store. refreshTTL is the refresh token
// lifetime and bounds how long hash records live.
func NewStore(store kv.Store, refreshTTL time.Duration) *Store {
	return &Store{store: store, refreshTTL: refreshTTL}
}

func blacklistKey(jti string) string { return "blacklist:" + jti }

func refreshKey(userID, sessionID string) string { return "refresh:" + userID + ":" + sessionID }

func versionKey(userID string) string { return "tokenversion:" + userID }

// Blacklist records jti as revoked. Idempotent.
func (s *Store) Blacklist(ctx context.Context, jti string) error {
	if jti == "" {
		return nil
	}
	return s.store.Set(ctx, blacklistKey(jti), "1", BlacklistTTL)
}

// IsBlacklisted reports whether jti has been revoked.
func (s *Store) IsBlacklisted(ctx context.Context, jti string) (bool, error) {
	return s.store.Exists(ctx, blacklistKey(jti))
}

// SetRefreshHash stores hash as the single valid refresh token hash for
// (userID, sessionID), replacing any previous record.
func (s *Store) SetRefreshHash(ctx context.Context, userID, sessionID, hash string) error {
	return s.store.Set(ctx, refreshKey(userID, sessionID), hash, s.refreshTTL)
}

// GetRefreshHash returns the stored refresh token hash for (userID, sessionID),
// or "" if no record exists. An absent record means no refresh token is
// currently valid for the session.
func (s *Store) GetRefreshHash(ctx context.Context, userID, sessionID string) (string, error) {
	hash, err := s.store.Get(ctx, refreshKey(userID, sessionID))
	if errors.Is(err, kv.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return hash, nil
}

// DeleteRefreshHash removes the refresh token hash record. Idempotent.
func (s *Store) DeleteRefreshHash(ctx context.Context, userID, sessionID string) error {
	return s.store.Delete(ctx, refreshKey(userID, sessionID))
}

// TokenVersion returns the user's current token version, defaulting to 1 when
// no counter exists.
func (s *Store) TokenVersion(ctx context.Context, userID string) (int64, error) {
	raw, err := s.store.Get(ctx, versionKey(userID))
	if errors.Is(err, kv.ErrNotFound) {
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("decode token version for %s: %w", userID, err)
	}
	return v, nil
}

// BumpTokenVersion increments the user's token version, invalidating every
// refresh token issued under the previous version. The counter is stored
// without expiry; it is one small key per user and must outlive any refresh
// token issued after the bump.
func (s *Store) BumpTokenVersion(ctx context.Context, userID string) (int64, error) {
	v, err := s.TokenVersion(ctx, userID)
	if err != nil {
		return 0, err
	}
	v++
	if err := s.store.Set(ctx, versionKey(userID), strconv.FormatInt(v, 10), 0); err != nil {
		return 0, err
	}
	return v, nil
}
