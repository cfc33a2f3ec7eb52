package security

import "time"

// NewTestTokenCodec returns a TokenCodec with fixed test secrets and the given TTLs.
// For unit tests only. Callers must not use in production.
func NewTestTokenCodec(accessTTL, refreshTTL time.Duration) *TokenCodec {
	return NewTokenCodec(
		[]byte("test-access-secret"),
		[]byte("test-refresh-secret"),
		"test-issuer",
		"test-access",
		"test-refresh",
		accessTTL,
		refreshTTL,
	)
}
