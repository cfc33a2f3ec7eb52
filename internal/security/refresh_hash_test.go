package security

import (
	"testing"
)

func TestHashRefreshToken_Consistent(t *testing.T) {
	token := "test-refresh-token-123"
	hash1 := HashRefreshToken(token)
	hash2 := HashRefreshToken(token)

	if hash1 != hash2 {
		t.Errorf("HashRefreshToken not consistent: hash1 = %q, hash2 = %q", hash1, hash2)
	}
	if len(hash1) != 64 {
		t.Errorf("hash length = %d, want 64 (SHA-256 hex)", len(hash1))
	}
}

func TestHashRefreshToken_DifferentTokens(t *testing.T) {
	hash1 := HashRefreshToken("token-1")
	hash2 := HashRefreshToken("token-2")

	if hash1 == hash2 {
		t.Error("HashRefreshToken produced same hash for different tokens")
	}
}

func TestRefreshTokenHashEqual(t *testing.T) {
	token := "refresh-token"
	stored := HashRefreshToken(token)

	if !RefreshTokenHashEqual(token, stored) {
		t.Error("RefreshTokenHashEqual should match for same token")
	}
	if RefreshTokenHashEqual("other-token", stored) {
		t.Error("RefreshTokenHashEqual should not match for different token")
	}
	if RefreshTokenHashEqual(token, "") {
		t.Error("RefreshTokenHashEqual should not match empty stored hash")
	}
}
