// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/gatehouse/gatehouse/internal/auth"
)

const sessionColumns = `id, account_id, token_hash, expires_at, is_active,
	ip_address, user_agent, created_at, updated_at`

// SessionRepository persists sessions in PostgreSQL. Token hashes are
// stored, never raw tokens.
type SessionRepository struct {
	db DB

	// now is swappable for expiry tests.
	now func() time.Time
}

// NewSessionRepository creates a SessionRepository backed by the given pool.
func NewSessionRepository(db DB) *SessionRepository {
	return &SessionRepository{db: db, now: time.Now}
}

var _ auth.SessionRepository = (*SessionRepository)(nil)

// Create inserts a new session. A duplicate token hash maps to
// auth.ErrTokenCollision so callers can regenerate and retry.
func (r *SessionRepository) Create(ctx context.Context, session *auth.Session) error {
	errCtx := oops.Code("DB_QUERY_FAILED").
		With("operation", "create session").
		With("session_id", session.ID.String())

	_, err := querierFrom(ctx, r.db).Exec(ctx, `
		INSERT INTO sessions (id, account_id, token_hash, expires_at, is_active,
			ip_address, user_agent, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		session.ID.String(), session.AccountID.String(), session.TokenHash,
		session.ExpiresAt, session.Active,
		session.IPAddress, session.UserAgent,
		session.CreatedAt, session.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "sessions_token_hash_key") {
			return oops.Code("SESSION_TOKEN_COLLISION").
				With("operation", "create session").
				Wrap(auth.ErrTokenCollision)
		}
		return errCtx.Wrap(err)
	}
	return nil
}

// GetValidByTokenHash retrieves a session only if it is active and not yet
// expired. Anything else is auth.ErrNotFound.
func (r *SessionRepository) GetValidByTokenHash(ctx context.Context, tokenHash string) (*auth.Session, error) {
	row := querierFrom(ctx, r.db).QueryRow(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions
		WHERE token_hash = $1 AND is_active AND expires_at > $2`,
		tokenHash, r.now().UTC(),
	)
	return scanSession(row, "get valid session")
}

// Invalidate marks the session inactive, reporting whether a live session
// was actually invalidated.
func (r *SessionRepository) Invalidate(ctx context.Context, tokenHash string) (bool, error) {
	tag, err := querierFrom(ctx, r.db).Exec(ctx, `
		UPDATE sessions
		SET is_active = FALSE, updated_at = NOW()
		WHERE token_hash = $1 AND is_active`,
		tokenHash,
	)
	if err != nil {
		return false, oops.Code("DB_QUERY_FAILED").
			With("operation", "invalidate session").
			Wrap(err)
	}
	return tag.RowsAffected() > 0, nil
}

// Refresh extends a currently-valid session's expiry to now+ttl. The WHERE
// clause repeats the validity check so a lapsed session cannot be revived.
func (r *SessionRepository) Refresh(ctx context.Context, tokenHash string, ttl time.Duration) (*auth.Session, error) {
	now := r.now().UTC()
	row := querierFrom(ctx, r.db).QueryRow(ctx, `
		UPDATE sessions
		SET expires_at = $2, updated_at = $3
		WHERE token_hash = $1 AND is_active AND expires_at > $3
		RETURNING `+sessionColumns,
		tokenHash, now.Add(ttl), now,
	)
	return scanSession(row, "refresh session")
}

// SweepExpired marks every expired-but-still-active session inactive and
// returns the count.
func (r *SessionRepository) SweepExpired(ctx context.Context) (int64, error) {
	tag, err := querierFrom(ctx, r.db).Exec(ctx, `
		UPDATE sessions
		SET is_active = FALSE, updated_at = NOW()
		WHERE is_active AND expires_at <= $1`,
		r.now().UTC(),
	)
	if err != nil {
		return 0, oops.Code("DB_QUERY_FAILED").
			With("operation", "sweep expired sessions").
			Wrap(err)
	}
	return tag.RowsAffected(), nil
}

// ListByAccount returns all of an account's sessions, newest first.
func (r *SessionRepository) ListByAccount(ctx context.Context, accountID ulid.ULID) ([]*auth.Session, error) {
	rows, err := querierFrom(ctx, r.db).Query(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions
		WHERE account_id = $1
		ORDER BY created_at DESC, id DESC`,
		accountID.String(),
	)
	if err != nil {
		return nil, oops.Code("DB_QUERY_FAILED").
			With("operation", "list sessions by account").
			Wrap(err)
	}
	defer rows.Close()

	var sessions []*auth.Session
	for rows.Next() {
		session, err := scanSession(rows, "list sessions by account")
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("DB_QUERY_FAILED").
			With("operation", "list sessions by account").
			Wrap(err)
	}
	return sessions, nil
}

// InvalidateByAccount marks all of an account's active sessions inactive
// and returns the count.
func (r *SessionRepository) InvalidateByAccount(ctx context.Context, accountID ulid.ULID) (int64, error) {
	tag, err := querierFrom(ctx, r.db).Exec(ctx, `
		UPDATE sessions
		SET is_active = FALSE, updated_at = NOW()
		WHERE account_id = $1 AND is_active`,
		accountID.String(),
	)
	if err != nil {
		return 0, oops.Code("DB_QUERY_FAILED").
			With("operation", "invalidate sessions by account").
			With("account_id", accountID.String()).
			Wrap(err)
	}
	return tag.RowsAffected(), nil
}

func scanSession(row pgx.Row, operation string) (*auth.Session, error) {
	var (
		session      auth.Session
		idStr        string
		accountIDStr string
	)
	err := row.Scan(
		&idStr, &accountIDStr, &session.TokenHash, &session.ExpiresAt, &session.Active,
		&session.IPAddress, &session.UserAgent,
		&session.CreatedAt, &session.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, oops.Code("SESSION_NOT_FOUND").
				With("operation", operation).
				Wrap(auth.ErrNotFound)
		}
		return nil, oops.Code("DB_QUERY_FAILED").
			With("operation", operation).
			Wrap(err)
	}

	if session.ID, err = ulid.Parse(idStr); err != nil {
		return nil, oops.Code("DB_SCAN_FAILED").
			With("operation", operation).
			With("id", idStr).
			Wrap(err)
	}
	if session.AccountID, err = ulid.Parse(accountIDStr); err != nil {
		return nil, oops.Code("DB_SCAN_FAILED").
			With("operation", operation).
			With("account_id", accountIDStr).
			Wrap(err)
	}
	return &session, nil
}
