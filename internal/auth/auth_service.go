// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// tokenCollisionRetries bounds how often login retries with a fresh token
// after a stored-hash collision. One retry would already be astronomically
// unlikely to be needed.
const tokenCollisionRetries = 3

// AuthService coordinates login, logout, refresh and session resolution.
// It talks to accounts only through AccountService and shares no state
// with it beyond the account store.
type AuthService struct {
	accounts *AccountService
	sessions SessionRepository
	audit    AuditRepository
	tx       Transactor
	ttl      time.Duration
	logger   *slog.Logger
}

// NewAuthService creates an AuthService. A non-positive ttl selects
// DefaultSessionTTL.
func NewAuthService(accounts *AccountService, sessions SessionRepository, audit AuditRepository, tx Transactor, ttl time.Duration) (*AuthService, error) {
	if accounts == nil {
		return nil, oops.Code("SERVICE_NIL_DEPENDENCY").Errorf("account service is required")
	}
	if sessions == nil {
		return nil, oops.Code("SERVICE_NIL_DEPENDENCY").Errorf("sessions repository is required")
	}
	if audit == nil {
		return nil, oops.Code("SERVICE_NIL_DEPENDENCY").Errorf("audit repository is required")
	}
	if tx == nil {
		return nil, oops.Code("SERVICE_NIL_DEPENDENCY").Errorf("transactor is required")
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &AuthService{
		accounts: accounts,
		sessions: sessions,
		audit:    audit,
		tx:       tx,
		ttl:      ttl,
		logger:   slog.Default(),
	}, nil
}

// SetLogger replaces the service logger. Intended for wiring at startup.
func (s *AuthService) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// SessionTTL returns the configured session lifetime.
func (s *AuthService) SessionTTL() time.Duration {
	return s.ttl
}

// Login authenticates the credentials and creates a session. Returns the
// session and the plaintext token; the token is never persisted. Failed
// attempts are audited as login_failed with no actor id, and the
// attempted email is kept out of the audit detail.
func (s *AuthService) Login(ctx context.Context, email, password string, meta ClientMeta) (*Session, string, error) {
	account, err := s.accounts.Authenticate(ctx, email, password)
	if err != nil {
		if errors.Is(err, ErrUnauthorized) {
			loginAttempts.WithLabelValues("failure").Inc()
			s.recordBestEffort(ctx, NewAuditEntry(ActionLoginFailed).WithClientMeta(meta))
		}
		return nil, "", err
	}

	var (
		session *Session
		token   string
	)
	backoff := retry.WithMaxRetries(tokenCollisionRetries, retry.NewConstant(time.Millisecond))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		plaintext, hash, err := GenerateSessionToken()
		if err != nil {
			return err
		}
		candidate, err := NewSession(account.ID, hash, meta, time.Now().UTC().Add(s.ttl))
		if err != nil {
			return err
		}

		err = s.tx.InTransaction(ctx, func(ctx context.Context) error {
			if err := s.sessions.Create(ctx, candidate); err != nil {
				return err
			}
			entry := NewAuditEntry(ActionUserLogin).
				WithActor(account.ID).
				WithResource(ResourceSession, candidate.ID.String()).
				WithClientMeta(meta)
			return s.audit.Record(ctx, entry)
		})
		if errors.Is(err, ErrTokenCollision) {
			return retry.RetryableError(err)
		}
		if err != nil {
			return err
		}

		session, token = candidate, plaintext
		return nil
	})
	if err != nil {
		return nil, "", oops.Code("AUTH_SESSION_CREATE_FAILED").
			With("account_id", account.ID.String()).
			Wrap(err)
	}

	loginAttempts.WithLabelValues("success").Inc()
	return session, token, nil
}

// CurrentUser resolves a session token to its account. Invalid, expired,
// and unknown tokens are indistinguishable: all yield ErrUnauthorized.
// Sessions belonging to a deactivated account no longer resolve.
func (s *AuthService) CurrentUser(ctx context.Context, token string) (*Account, error) {
	session, err := s.resolve(ctx, token)
	if err != nil {
		return nil, err
	}

	account, err := s.accounts.Get(ctx, session.AccountID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code("SESSION_INVALID").Wrap(ErrUnauthorized)
		}
		return nil, err
	}
	if !account.Active {
		return nil, oops.Code("SESSION_INVALID").Wrap(ErrUnauthorized)
	}
	return account, nil
}

// Logout invalidates the session behind the token. Returns whether a
// session was invalidated. An unknown or lapsed token returns false and
// leaves no audit trace since there is nothing to attribute.
func (s *AuthService) Logout(ctx context.Context, token string) (bool, error) {
	session, err := s.resolve(ctx, token)
	if err != nil {
		if errors.Is(err, ErrUnauthorized) {
			return false, nil
		}
		return false, err
	}

	var invalidated bool
	err = s.tx.InTransaction(ctx, func(ctx context.Context) error {
		entry := NewAuditEntry(ActionUserLogout).
			WithActor(session.AccountID).
			WithResource(ResourceSession, session.ID.String())
		if err := s.audit.Record(ctx, entry); err != nil {
			return err
		}
		invalidated, err = s.sessions.Invalidate(ctx, session.TokenHash)
		return err
	})
	if err != nil {
		return false, oops.Code("AUTH_LOGOUT_FAILED").
			With("session_id", session.ID.String()).
			Wrap(err)
	}
	return invalidated, nil
}

// Refresh extends a valid session's expiry by the configured TTL from
// now. No audit entry is written on either path: refreshes are frequent
// and low-signal, and recording them would flood the log. The token is
// not rotated, so the client keeps using the same one.
func (s *AuthService) Refresh(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, oops.Code("SESSION_TOKEN_EMPTY").Wrap(ErrUnauthorized)
	}

	session, err := s.sessions.Refresh(ctx, HashSessionToken(token), s.ttl)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code("SESSION_INVALID").Wrap(ErrUnauthorized)
		}
		return nil, oops.Code("SESSION_REFRESH_FAILED").Wrap(err)
	}
	return session, nil
}

// RevokeSessions invalidates every active session of an account, for
// explicit revocation (compromised credentials, deactivation cleanup).
func (s *AuthService) RevokeSessions(ctx context.Context, accountID ulid.ULID) (int64, error) {
	count, err := s.sessions.InvalidateByAccount(ctx, accountID)
	if err != nil {
		return 0, oops.Code("SESSION_REVOKE_FAILED").
			With("account_id", accountID.String()).
			Wrap(err)
	}
	return count, nil
}

// resolve maps a plaintext token to its live session.
func (s *AuthService) resolve(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, oops.Code("SESSION_TOKEN_EMPTY").Wrap(ErrUnauthorized)
	}

	session, err := s.sessions.GetValidByTokenHash(ctx, HashSessionToken(token))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code("SESSION_INVALID").Wrap(ErrUnauthorized)
		}
		return nil, oops.Code("SESSION_RESOLVE_FAILED").Wrap(err)
	}
	return session, nil
}

// recordBestEffort writes an audit entry outside any transaction. There
// is no primary mutation to protect, so a write failure is logged and
// counted but does not change the caller's outcome.
func (s *AuthService) recordBestEffort(ctx context.Context, entry *AuditEntry) {
	if err := s.audit.Record(ctx, entry); err != nil {
		auditWriteFailures.Inc()
		s.logger.Error("audit write failed",
			"action", entry.Action,
			"error", err)
	}
}
