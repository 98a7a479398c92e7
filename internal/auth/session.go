// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Session token configuration.
const (
	SessionTokenBytes = 32             // 32 bytes = 256 bits = 64 hex chars
	DefaultSessionTTL = 24 * time.Hour // standard session lifetime
)

// ClientMeta captures optional client metadata attached to sessions and
// audit entries. Empty fields mean the caller did not supply them.
type ClientMeta struct {
	IPAddress string
	UserAgent string
}

// Session represents an authenticated login. The plaintext token is held
// by the client only; the store keeps its SHA-256 hash. A session is
// usable while Active and before ExpiresAt; both expiry and invalidation
// are terminal.
type Session struct {
	ID        ulid.ULID
	AccountID ulid.ULID
	TokenHash string
	ExpiresAt time.Time
	Active    bool
	IPAddress string
	UserAgent string
	Timestamps
}

// NewSession creates a validated Session. Client metadata is optional.
func NewSession(accountID ulid.ULID, tokenHash string, meta ClientMeta, expiresAt time.Time) (*Session, error) {
	if accountID.Compare(ulid.ULID{}) == 0 {
		return nil, oops.Code("SESSION_INVALID_ACCOUNT").Errorf("account ID cannot be zero")
	}
	if tokenHash == "" {
		return nil, oops.Code("SESSION_INVALID_HASH").Errorf("token hash cannot be empty")
	}
	if expiresAt.IsZero() {
		return nil, oops.Code("SESSION_INVALID_EXPIRY").Errorf("expiry time cannot be zero")
	}

	return &Session{
		ID:         ulid.Make(),
		AccountID:  accountID,
		TokenHash:  tokenHash,
		ExpiresAt:  expiresAt,
		Active:     true,
		IPAddress:  meta.IPAddress,
		UserAgent:  meta.UserAgent,
		Timestamps: NewTimestamps(),
	}, nil
}

// IsUsableAt reports whether the session authenticates at the given time.
// The expiry instant itself is not usable.
func (s *Session) IsUsableAt(t time.Time) bool {
	return s.Active && t.Before(s.ExpiresAt)
}

// GenerateSessionToken creates a secure random token and its hash.
// Returns (plaintext_token, sha256_hash, error). The plaintext goes to
// the client; only the hash is stored.
func GenerateSessionToken() (token, hash string, err error) {
	buf := make([]byte, SessionTokenBytes)
	if _, err = rand.Read(buf); err != nil {
		return "", "", oops.Code("SESSION_TOKEN_GENERATE_FAILED").
			With("operation", "crypto/rand.Read").
			With("requested_bytes", SessionTokenBytes).
			Wrap(err)
	}

	token = hex.EncodeToString(buf)
	hash = HashSessionToken(token)
	return token, hash, nil
}

// HashSessionToken computes the SHA-256 hash of a session token. Stored
// tokens are hashed so a leaked sessions table cannot be replayed.
func HashSessionToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// SessionRepository manages session persistence.
type SessionRepository interface {
	// Create stores a new session. Returns ErrTokenCollision if the token
	// hash already exists.
	Create(ctx context.Context, session *Session) error

	// GetValidByTokenHash retrieves a session by token hash only if it is
	// active and unexpired. Expired or invalidated sessions are reported as
	// ErrNotFound, indistinguishable from never having existed.
	GetValidByTokenHash(ctx context.Context, tokenHash string) (*Session, error)

	// Invalidate marks the session inactive. Returns false when the token
	// is unknown or the session was already inactive.
	Invalidate(ctx context.Context, tokenHash string) (bool, error)

	// Refresh extends a currently-valid session's expiry to now+ttl and
	// returns the updated session. A lapsed or invalidated session cannot
	// be refreshed back to life; ErrNotFound is returned instead.
	Refresh(ctx context.Context, tokenHash string, ttl time.Duration) (*Session, error)

	// SweepExpired marks every expired-but-still-active session inactive
	// and returns the count. Idempotent and safe to run concurrently with
	// lookups.
	SweepExpired(ctx context.Context) (int64, error)

	// ListByAccount returns all sessions for an account, newest first.
	ListByAccount(ctx context.Context, accountID ulid.ULID) ([]*Session, error)

	// InvalidateByAccount marks all of an account's active sessions
	// inactive and returns the count.
	InvalidateByAccount(ctx context.Context, accountID ulid.ULID) (int64, error)
}
