// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/gatehouse/gatehouse/internal/auth"
)

const accountColumns = `id, email, full_name, password_hash, is_active, is_superuser,
	phone, avatar_url, bio, created_at, updated_at`

// AccountRepository persists accounts in PostgreSQL.
type AccountRepository struct {
	db DB
}

// NewAccountRepository creates an AccountRepository backed by the given pool.
func NewAccountRepository(db DB) *AccountRepository {
	return &AccountRepository{db: db}
}

var _ auth.AccountRepository = (*AccountRepository)(nil)

// Create inserts a new account. A duplicate email maps to
// auth.ErrDuplicateEmail.
func (r *AccountRepository) Create(ctx context.Context, account *auth.Account) error {
	errCtx := oops.Code("DB_QUERY_FAILED").
		With("operation", "create account").
		With("account_id", account.ID.String())

	_, err := querierFrom(ctx, r.db).Exec(ctx, `
		INSERT INTO accounts (id, email, full_name, password_hash, is_active, is_superuser,
			phone, avatar_url, bio, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		account.ID.String(), account.Email, account.FullName, account.PasswordHash,
		account.Active, account.Superuser,
		account.Phone, account.AvatarURL, account.Bio,
		account.CreatedAt, account.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "") {
			return oops.Code("ACCOUNT_DUPLICATE_EMAIL").
				With("operation", "create account").
				Wrap(auth.ErrDuplicateEmail)
		}
		return errCtx.Wrap(err)
	}
	return nil
}

// GetByID retrieves an account by ID, returning auth.ErrNotFound when
// absent.
func (r *AccountRepository) GetByID(ctx context.Context, id ulid.ULID) (*auth.Account, error) {
	row := querierFrom(ctx, r.db).QueryRow(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE id = $1`,
		id.String(),
	)
	return scanAccount(row, "get account by id")
}

// GetByEmail retrieves an account by normalized email, returning
// auth.ErrNotFound when absent.
func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*auth.Account, error) {
	row := querierFrom(ctx, r.db).QueryRow(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE LOWER(email) = LOWER($1)`,
		email,
	)
	return scanAccount(row, "get account by email")
}

// ListActive returns active accounts ordered by creation time.
func (r *AccountRepository) ListActive(ctx context.Context, offset, limit int) ([]*auth.Account, error) {
	rows, err := querierFrom(ctx, r.db).Query(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE is_active
		ORDER BY created_at, id
		OFFSET $1 LIMIT $2`,
		offset, limit,
	)
	if err != nil {
		return nil, oops.Code("DB_QUERY_FAILED").
			With("operation", "list active accounts").
			Wrap(err)
	}
	defer rows.Close()
	return collectAccounts(rows, "list active accounts")
}

// Search returns accounts whose email or full name contains the query,
// case-insensitively. Deactivated accounts are included; callers that
// want only active ones use ListActive.
func (r *AccountRepository) Search(ctx context.Context, query string, offset, limit int) ([]*auth.Account, error) {
	rows, err := querierFrom(ctx, r.db).Query(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE email ILIKE '%' || $1 || '%' OR full_name ILIKE '%' || $1 || '%'
		ORDER BY created_at, id
		OFFSET $2 LIMIT $3`,
		query, offset, limit,
	)
	if err != nil {
		return nil, oops.Code("DB_QUERY_FAILED").
			With("operation", "search accounts").
			Wrap(err)
	}
	defer rows.Close()
	return collectAccounts(rows, "search accounts")
}

// Update persists profile changes. A conflicting email maps to
// auth.ErrDuplicateEmail; a missing account maps to auth.ErrNotFound.
func (r *AccountRepository) Update(ctx context.Context, account *auth.Account) error {
	errCtx := oops.Code("DB_QUERY_FAILED").
		With("operation", "update account").
		With("account_id", account.ID.String())

	tag, err := querierFrom(ctx, r.db).Exec(ctx, `
		UPDATE accounts
		SET email = $2, full_name = $3, password_hash = $4,
			phone = $5, avatar_url = $6, bio = $7, updated_at = $8
		WHERE id = $1`,
		account.ID.String(), account.Email, account.FullName, account.PasswordHash,
		account.Phone, account.AvatarURL, account.Bio, account.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "") {
			return oops.Code("ACCOUNT_DUPLICATE_EMAIL").
				With("operation", "update account").
				Wrap(auth.ErrDuplicateEmail)
		}
		return errCtx.Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return errCtx.Wrap(auth.ErrNotFound)
	}
	return nil
}

// Deactivate marks the account inactive, returning auth.ErrNotFound when
// no row matched. Deactivating an already-inactive account is a no-op
// success.
func (r *AccountRepository) Deactivate(ctx context.Context, id ulid.ULID) error {
	errCtx := oops.Code("DB_QUERY_FAILED").
		With("operation", "deactivate account").
		With("account_id", id.String())

	tag, err := querierFrom(ctx, r.db).Exec(ctx, `
		UPDATE accounts
		SET is_active = FALSE, updated_at = NOW()
		WHERE id = $1`,
		id.String(),
	)
	if err != nil {
		return errCtx.Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return errCtx.Wrap(auth.ErrNotFound)
	}
	return nil
}

func scanAccount(row pgx.Row, operation string) (*auth.Account, error) {
	var (
		account auth.Account
		idStr   string
	)
	err := row.Scan(
		&idStr, &account.Email, &account.FullName, &account.PasswordHash,
		&account.Active, &account.Superuser,
		&account.Phone, &account.AvatarURL, &account.Bio,
		&account.CreatedAt, &account.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, oops.Code("ACCOUNT_NOT_FOUND").
				With("operation", operation).
				Wrap(auth.ErrNotFound)
		}
		return nil, oops.Code("DB_QUERY_FAILED").
			With("operation", operation).
			Wrap(err)
	}

	account.ID, err = ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("DB_SCAN_FAILED").
			With("operation", operation).
			With("id", idStr).
			Wrap(err)
	}
	return &account, nil
}

func collectAccounts(rows pgx.Rows, operation string) ([]*auth.Account, error) {
	var accounts []*auth.Account
	for rows.Next() {
		account, err := scanAccount(rows, operation)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("DB_QUERY_FAILED").
			With("operation", operation).
			Wrap(err)
	}
	return accounts, nil
}
