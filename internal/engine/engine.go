// Package engine implements the session security engine: it issues, validates,
// rotates, and revokes token pairs, binds each pair to a device and session,
// and enforces the per-user session limit. All mutable state lives in the
// backing key-value store; the engine itself is stateless.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"session-security-engine/internal/audit"
	"session-security-engine/internal/revocation"
	"session-security-engine/internal/security"
	"session-security-engine/internal/session/domain"
	sessionrepo "session-security-engine/internal/session/repository"
)

// Sentinel errors; callers map them to HTTP statuses.
var (
	// ErrUnauthorized is the single collapsed rejection for every validation
	// failure. Callers never learn why a token failed; the reason is audited.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrStoreUnavailable wraps backing store failures so callers can answer
	// 503 instead of treating an outage as a bad credential.
	ErrStoreUnavailable = errors.New("session store unavailable")
)

// DefaultMaxSessions is the per-user active session cap when none is configured.
const DefaultMaxSessions = 5

// TokenPair is the pair of credentials returned to a caller.
type TokenPair struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token"`
	ExpiresIn        int64  `json:"expires_in"`
	RefreshExpiresIn int64  `json:"refresh_expires_in"`
}

// DirectoryUser is the subset of the external user directory consulted during refresh.
type DirectoryUser struct {
	Email    string
	Role     string
	IsActive bool
}

// UserDirectory is the external user lookup collaborator.
type UserDirectory interface {
	// GetUserByID returns the user, or nil if not found. Errors are
	// infrastructure failures only.
	GetUserByID(ctx context.Context, userID string) (*DirectoryUser, error)
}

// Engine composes the token codec, fingerprinter, session and revocation
// stores, and the user directory into the credential lifecycle operations.
type Engine struct {
	sessions     sessionrepo.Repository
	revocations  *revocation.Store
	codec        *security.TokenCodec
	fingerprints *security.Fingerprinter
	users        UserDirectory
	recorder     audit.Recorder
	maxSessions  int
	log          *slog.Logger
}

// New returns an Engine with the given dependencies. maxSessions <= 0 falls
// back to DefaultMaxSessions; a nil recorder disables auditing.
func New(
	sessions sessionrepo.Repository,
	revocations *revocation.Store,
	codec *security.TokenCodec,
	fingerprints *security.Fingerprinter,
	users UserDirectory,
	recorder audit.Recorder,
	maxSessions int,
	log *slog.Logger,
) *Engine {
	if maxSessions <= 0 {
		maxSessions = DefaultMaxSessions
	}
	if recorder == nil {
		recorder = audit.Nop{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		sessions:     sessions,
		revocations:  revocations,
		codec:        codec,
		fingerprints: fingerprints,
		users:        users,
		recorder:     recorder,
		maxSessions:  maxSessions,
		log:          log,
	}
}

// CreateTokenPair creates a new session for the user and returns a fresh
// access/refresh pair bound to the device fingerprint. An over-limit user has
// their least-recently-active session evicted first; login is never blocked
// by the limit.
func (e *Engine) CreateTokenPair(ctx context.Context, userID, email, role, ip, userAgent string) (*TokenPair, error) {
	if err := e.enforceSessionLimit(ctx, userID, ip); err != nil {
		return nil, err
	}

	sessionID := uuid.New().String()
	fingerprint := e.fingerprints.Fingerprint(userAgent, ip)

	version, err := e.revocations.TokenVersion(ctx, userID)
	if err != nil {
		return nil, storeErr(err)
	}

	accessToken, _, _, err := e.codec.IssueAccess(userID, email, role, sessionID, fingerprint)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	refreshToken, _, _, err := e.codec.IssueRefresh(userID, sessionID, version)
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}

	now := time.Now().UTC()
	sess := &domain.Session{
		ID:                sessionID,
		UserID:            userID,
		DeviceFingerprint: fingerprint,
		IPAddress:         ip,
		UserAgent:         userAgent,
		CreatedAt:         now,
		LastActivity:      now,
		IsActive:          true,
	}
	if err := e.sessions.Create(ctx, sess); err != nil {
		return nil, storeErr(err)
	}
	if err := e.revocations.SetRefreshHash(ctx, userID, sessionID, security.HashRefreshToken(refreshToken)); err != nil {
		return nil, storeErr(err)
	}

	e.recorder.Record(ctx, audit.Event{
		Action:    audit.ActionTokenPairCreated,
		UserID:    userID,
		SessionID: sessionID,
		IP:        ip,
	})

	return e.pair(accessToken, refreshToken), nil
}

// ValidateAccessToken verifies the access token and the liveness of its
// session, and recomputes the device fingerprint. On fingerprint mismatch the
// session is force-invalidated as a security event. On success the session's
// LastActivity advances and the verified claims are returned.
func (e *Engine) ValidateAccessToken(ctx context.Context, token, ip, userAgent string) (*security.AccessClaims, error) {
	jti, err := e.codec.PeekJTI(token)
	if err != nil {
		return nil, e.rejectAccess(ctx, "", "", ip, audit.ReasonInvalidToken)
	}

	blacklisted, err := e.revocations.IsBlacklisted(ctx, jti)
	if err != nil {
		return nil, storeErr(err)
	}
	if blacklisted {
		return nil, e.rejectAccess(ctx, "", "", ip, audit.ReasonBlacklisted)
	}

	claims, err := e.codec.ValidateAccess(token)
	if err != nil {
		reason := audit.ReasonInvalidToken
		if errors.Is(err, security.ErrExpiredToken) {
			reason = audit.ReasonExpiredToken
		}
		return nil, e.rejectAccess(ctx, "", "", ip, reason)
	}

	sess, err := e.sessions.Get(ctx, claims.Subject, claims.SessionID)
	if err != nil {
		return nil, storeErr(err)
	}
	if sess == nil || !sess.IsActive {
		return nil, e.rejectAccess(ctx, claims.Subject, claims.SessionID, ip, audit.ReasonSessionInactive)
	}

	if e.fingerprints.Fingerprint(userAgent, ip) != claims.Fingerprint {
		// Token presented from a different device or network: kill the session.
		if err := e.forceInvalidate(ctx, claims.Subject, claims.SessionID); err != nil {
			return nil, err
		}
		return nil, e.rejectAccess(ctx, claims.Subject, claims.SessionID, ip, audit.ReasonFingerprintMismatch)
	}

	// Best-effort; a failed activity write never fails an otherwise valid request.
	if err := e.sessions.UpdateLastActivity(ctx, claims.Subject, claims.SessionID, time.Now().UTC()); err != nil {
		e.log.Warn("update last activity failed", "session_id", claims.SessionID, "error", err)
	}

	return claims, nil
}

// RefreshTokens exchanges a valid refresh token for a brand-new pair. Each
// refresh token is single-use: the stored hash record is the single source of
// truth, so a concurrent or replayed exchange loses the hash comparison and is
// rejected. The session is reused; only the token pair and hash record rotate.
func (e *Engine) RefreshTokens(ctx context.Context, refreshToken, ip, userAgent string) (*TokenPair, error) {
	claims, err := e.codec.ValidateRefresh(refreshToken)
	if err != nil {
		reason := audit.ReasonInvalidToken
		if errors.Is(err, security.ErrExpiredToken) {
			reason = audit.ReasonExpiredToken
		}
		return nil, e.rejectRefresh(ctx, "", "", ip, reason)
	}
	userID, sessionID := claims.Subject, claims.SessionID

	storedHash, err := e.revocations.GetRefreshHash(ctx, userID, sessionID)
	if err != nil {
		return nil, storeErr(err)
	}
	if storedHash == "" || !security.RefreshTokenHashEqual(refreshToken, storedHash) {
		// Already rotated, substituted, or expired out of the store. The
		// presented token's jti is blacklisted so it cannot race anything else.
		if err := e.revocations.Blacklist(ctx, claims.ID); err != nil {
			return nil, storeErr(err)
		}
		return nil, e.rejectRefresh(ctx, userID, sessionID, ip, audit.ReasonHashMismatch)
	}

	version, err := e.revocations.TokenVersion(ctx, userID)
	if err != nil {
		return nil, storeErr(err)
	}
	if claims.TokenVersion != version {
		return nil, e.rejectRefresh(ctx, userID, sessionID, ip, audit.ReasonVersionMismatch)
	}

	sess, err := e.sessions.Get(ctx, userID, sessionID)
	if err != nil {
		return nil, storeErr(err)
	}
	if sess == nil || !sess.IsActive {
		return nil, e.rejectRefresh(ctx, userID, sessionID, ip, audit.ReasonSessionInactive)
	}

	// Retire the old token even though the hash record already defeats replay.
	if err := e.revocations.Blacklist(ctx, claims.ID); err != nil {
		return nil, storeErr(err)
	}

	// Re-read role and email so directory changes take effect on rotation.
	user, err := e.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("user directory lookup: %w", err)
	}
	if user == nil || !user.IsActive {
		return nil, e.rejectRefresh(ctx, userID, sessionID, ip, audit.ReasonUserInactive)
	}

	fingerprint := e.fingerprints.Fingerprint(userAgent, ip)
	accessToken, _, _, err := e.codec.IssueAccess(userID, user.Email, user.Role, sessionID, fingerprint)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	newRefresh, _, _, err := e.codec.IssueRefresh(userID, sessionID, version)
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}

	if err := e.revocations.SetRefreshHash(ctx, userID, sessionID, security.HashRefreshToken(newRefresh)); err != nil {
		return nil, storeErr(err)
	}
	if err := e.sessions.UpdateLastActivity(ctx, userID, sessionID, time.Now().UTC()); err != nil {
		e.log.Warn("update last activity failed", "session_id", sessionID, "error", err)
	}

	e.recorder.Record(ctx, audit.Event{
		Action:    audit.ActionTokenRefreshed,
		UserID:    userID,
		SessionID: sessionID,
		IP:        ip,
	})

	return e.pair(accessToken, newRefresh), nil
}

// BlacklistToken records jti as revoked. Idempotent.
func (e *Engine) BlacklistToken(ctx context.Context, jti string) error {
	if err := e.revocations.Blacklist(ctx, jti); err != nil {
		return storeErr(err)
	}
	e.recorder.Record(ctx, audit.Event{
		Action:   audit.ActionTokenBlacklisted,
		Metadata: "jti=" + jti,
	})
	return nil
}

// InvalidateSession marks the session inactive and removes its refresh-token
// hash record. Idempotent.
func (e *Engine) InvalidateSession(ctx context.Context, userID, sessionID string) error {
	if err := e.forceInvalidate(ctx, userID, sessionID); err != nil {
		return err
	}
	e.recorder.Record(ctx, audit.Event{
		Action:    audit.ActionSessionInvalidated,
		UserID:    userID,
		SessionID: sessionID,
	})
	return nil
}

// InvalidateAllUserSessions invalidates every session for the user and bumps
// the token version counter, which rejects every outstanding refresh token for
// the user in one step. Access tokens die independently through the session
// liveness check.
func (e *Engine) InvalidateAllUserSessions(ctx context.Context, userID string) error {
	sessions, err := e.sessions.ListActiveByUser(ctx, userID)
	if err != nil {
		return storeErr(err)
	}
	for _, s := range sessions {
		if err := e.forceInvalidate(ctx, userID, s.ID); err != nil {
			return err
		}
	}
	if _, err := e.revocations.BumpTokenVersion(ctx, userID); err != nil {
		return storeErr(err)
	}
	e.recorder.Record(ctx, audit.Event{
		Action:   audit.ActionAllSessionsInvalidated,
		UserID:   userID,
		Metadata: fmt.Sprintf("sessions=%d", len(sessions)),
	})
	return nil
}

// enforceSessionLimit evicts least-recently-active sessions until the user is
// below the cap. Soft LRU eviction, never an error for the caller logging in.
func (e *Engine) enforceSessionLimit(ctx context.Context, userID, ip string) error {
	active, err := e.sessions.ListActiveByUser(ctx, userID)
	if err != nil {
		return storeErr(err)
	}
	if len(active) < e.maxSessions {
		return nil
	}
	sort.Slice(active, func(i, j int) bool {
		return active[i].LastActivity.Before(active[j].LastActivity)
	})
	evict := len(active) - e.maxSessions + 1
	for _, s := range active[:evict] {
		if err := e.forceInvalidate(ctx, userID, s.ID); err != nil {
			return err
		}
		e.recorder.Record(ctx, audit.Event{
			Action:    audit.ActionSessionEvicted,
			UserID:    userID,
			SessionID: s.ID,
			IP:        ip,
		})
	}
	return nil
}

// forceInvalidate flips the session inactive and deletes its hash record so
// neither the access path nor the refresh path will accept it again.
func (e *Engine) forceInvalidate(ctx context.Context, userID, sessionID string) error {
	if err := e.sessions.Invalidate(ctx, userID, sessionID); err != nil {
		return storeErr(err)
	}
	if err := e.revocations.DeleteRefreshHash(ctx, userID, sessionID); err != nil {
		return storeErr(err)
	}
	return nil
}

func (e *Engine) rejectAccess(ctx context.Context, userID, sessionID, ip, reason string) error {
	e.recorder.Record(ctx, audit.Event{
		Action:    audit.ActionAccessRejected,
		UserID:    userID,
		SessionID: sessionID,
		IP:        ip,
		Reason:    reason,
	})
	return ErrUnauthorized
}

func (e *Engine) rejectRefresh(ctx context.Context, userID, sessionID, ip, reason string) error {
	e.recorder.Record(ctx, audit.Event{
		Action:    audit.ActionRefreshRejected,
		UserID:    userID,
		SessionID: sessionID,
		IP:        ip,
		Reason:    reason,
	})
	return ErrUnauthorized
}

func (e *Engine) pair(accessToken, refreshToken string) *TokenPair {
	return &TokenPair{
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		ExpiresIn:        int64(e.codec.AccessTTL().Seconds()),
		RefreshExpiresIn: int64(e.codec.RefreshTTL().Seconds()),
	}
}

func storeErr(err error) error {
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}
