// Package kv defines the TTL key-value store contract the engine persists
// through, with in-memory and Redis implementations. All session and
// revocation state is expressed over these five operations.
package kv

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when the key is missing or expired.
// Any other error from a Store means the backend itself failed.
var ErrNotFound = errors.New("kv: key not found")

// Store is a key-value store with per-key expiry, safe for concurrent use
// across process instances. The store, not its callers, is the
// synchronization point; implementations must make each operation atomic.
type Store interface {
	// Set writes value under key. ttl <= 0 stores the key without expiry.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Get returns the value for key, or ErrNotFound when missing or expired.
	Get(ctx context.Context, key string) (string, error)
	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
	// Keys returns all keys matching a glob pattern (e.g. "session:u1:*").
	Keys(ctx context.Context, pattern string) ([]string, error)
	// Exists reports whether key is present and unexpired.
	Exists(ctx context.Context, key string) (bool, error)
}
