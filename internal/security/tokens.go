package security

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken is returned when a token is malformed, mis-signed, or carries the wrong issuer/audience.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken is returned when a token is past its exp claim but otherwise well-formed.
	ErrExpiredToken = errors.New("expired token")
)

// AccessClaims holds JWT claims for the access token.
type AccessClaims struct {
	jwt.RegisteredClaims
	Email       string `json:"email"`
	Role        string `json:"role"`
	SessionID   string `json:"session_id"`
	Fingerprint string `json:"fingerprint"`
}

// RefreshClaims holds JWT claims for the refresh token (includes jti for rotation
// and the per-user token version for global invalidation).
type RefreshClaims struct {
	jwt.RegisteredClaims
	SessionID    string `json:"session_id"`
	TokenVersion int64  `json:"token_version"`
}

// TokenCodec issues and validates HS256 access and refresh tokens.
// Access and refresh tokens use distinct secrets and audiences so one kind can
// never be replayed as the other.
type TokenCodec struct {
	accessSecret    []byte
	refreshSecret   []byte
	issuer          string
	accessAudience  string
	refreshAudience string
	accessTTL       time.Duration
	refreshTTL      time.Duration
}

// NewTokenCodec returns a TokenCodec signing with the given secrets.
// issuer and the audiences are set on claims and validated on verification.
func NewTokenCodec(accessSecret, refreshSecret []byte, issuer, accessAudience, refreshAudience string, accessTTL, refreshTTL time.Duration) *TokenCodec {
	return &TokenCodec{
		accessSecret:    accessSecret,
		refreshSecret:   refreshSecret,
		issuer:          issuer,
		accessAudience:  accessAudience,
		refreshAudience: refreshAudience,
		accessTTL:       accessTTL,
		refreshTTL:      refreshTTL,
	}
}

// AccessTTL returns the configured access token lifetime.
func (c *TokenCodec) AccessTTL() time.Duration { return c.accessTTL }

// RefreshTTL returns the configured refresh token lifetime.
func (c *TokenCodec) RefreshTTL() time.Duration { return c.refreshTTL }

// IssueAccess issues a short-lived access JWT bound to the given session and
// device fingerprint. Returns the token string, its jti, and expiration time.
func (c *TokenCodec) IssueAccess(userID, email, role, sessionID, fingerprint string) (token string, jti string, expiresAt time.Time, err error) {
	jti, err = generateJTI()
	if err != nil {
		return "", "", time.Time{}, err
	}
	now := time.Now().UTC()
	expiresAt = now.Add(c.accessTTL)
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   userID,
			Issuer:    c.issuer,
			Audience:  jwt.ClaimStrings{c.accessAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Email:       email,
		Role:        role,
		SessionID:   sessionID,
		Fingerprint: fingerprint,
	}
	token, err = c.sign(claims, c.accessSecret)
	return token, jti, expiresAt, err
}

// IssueRefresh issues a long-lived refresh JWT carrying the session id and the
// user's current token version. Returns the token, its jti, and expiration time.
// Caller must store the token's hash as the rotation record.
func (c *TokenCodec) IssueRefresh(userID, sessionID string, tokenVersion int64) (token, jti string, expiresAt time.Time, err error) {
	jti, err = generateJTI()
	if err != nil {
		return "", "", time.Time{}, err
	}
	now := time.Now().UTC()
	expiresAt = now.Add(c.refreshTTL)
	claims := RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   userID,
			Issuer:    c.issuer,
			Audience:  jwt.ClaimStrings{c.refreshAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		SessionID:    sessionID,
		TokenVersion: tokenVersion,
	}
	token, err = c.sign(claims, c.refreshSecret)
	return token, jti, expiresAt, err
}

func (c *TokenCodec) sign(claims jwt.Claims, secret []byte) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(secret)
}

// ValidateAccess parses and validates the access token (signature, exp, iss, aud).
// Returns ErrExpiredToken for expired-but-authentic tokens, ErrInvalidToken otherwise.
func (c *TokenCodec) ValidateAccess(tokenString string) (*AccessClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AccessClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return c.accessSecret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*AccessClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if err := c.checkIssuerAudience(&claims.RegisteredClaims, c.accessAudience); err != nil {
		return nil, err
	}
	return claims, nil
}

// ValidateRefresh parses and validates the refresh token (signature, exp, iss, aud).
// Returns ErrExpiredToken for expired-but-authentic tokens, ErrInvalidToken otherwise.
func (c *TokenCodec) ValidateRefresh(tokenString string) (*RefreshClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &RefreshClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return c.refreshSecret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*RefreshClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if err := c.checkIssuerAudience(&claims.RegisteredClaims, c.refreshAudience); err != nil {
		return nil, err
	}
	return claims, nil
}

func (c *TokenCodec) checkIssuerAudience(rc *jwt.RegisteredClaims, audience string) error {
	if rc.Issuer != c.issuer {
		return ErrInvalidToken
	}
	for _, a := range rc.Audience {
		if a == audience {
			return nil
		}
	}
	return ErrInvalidToken
}

// PeekJTI extracts the jti claim without verifying the signature. Used for the
// blacklist pre-check before paying for verification. Never trust any other
// field from an unverified parse.
func (c *TokenCodec) PeekJTI(tokenString string) (string, error) {
	parser := jwt.NewParser()
	token, _, err := parser.ParseUnverified(tokenString, &jwt.RegisteredClaims{})
	if err != nil {
		return "", ErrInvalidToken
	}
	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.ID == "" {
		return "", ErrInvalidToken
	}
	return claims.ID, nil
}

func generateJTI() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
