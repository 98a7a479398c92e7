// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Transactor runs a function inside a storage transaction. Repositories
// called from fn share the transaction; if fn returns an error every
// write is rolled back.
type Transactor interface {
	InTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// dummyPasswordHash is verified when a looked-up account does not exist,
// so response time does not reveal whether the email is registered.
// This is NOT a real credential - it can never match any password.
//
//nolint:gosec // G101: intentionally fake hash for timing attack prevention, not a credential.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// AccountService coordinates account lifecycle operations. Every
// state-changing operation writes its audit entry in the same transaction
// as the mutation.
type AccountService struct {
	accounts AccountRepository
	audit    AuditRepository
	hasher   PasswordHasher
	tx       Transactor
	logger   *slog.Logger
}

// NewAccountService creates an AccountService.
func NewAccountService(accounts AccountRepository, audit AuditRepository, hasher PasswordHasher, tx Transactor) (*AccountService, error) {
	if accounts == nil {
		return nil, oops.Code("SERVICE_NIL_DEPENDENCY").Errorf("accounts repository is required")
	}
	if audit == nil {
		return nil, oops.Code("SERVICE_NIL_DEPENDENCY").Errorf("audit repository is required")
	}
	if hasher == nil {
		return nil, oops.Code("SERVICE_NIL_DEPENDENCY").Errorf("password hasher is required")
	}
	if tx == nil {
		return nil, oops.Code("SERVICE_NIL_DEPENDENCY").Errorf("transactor is required")
	}
	return &AccountService{
		accounts: accounts,
		audit:    audit,
		hasher:   hasher,
		tx:       tx,
		logger:   slog.Default(),
	}, nil
}

// SetLogger replaces the service logger. Intended for wiring at startup.
func (s *AccountService) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// Register creates a new account from a plaintext password. Returns
// ErrDuplicateEmail (wrapped) when the email is taken and ErrValidation
// for malformed input.
func (s *AccountService) Register(ctx context.Context, email, fullName, password string) (*Account, error) {
	if err := ValidatePassword(password); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, oops.Code("ACCOUNT_REGISTER_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	account, err := NewAccount(email, fullName, hash)
	if err != nil {
		return nil, err
	}

	err = s.tx.InTransaction(ctx, func(ctx context.Context) error {
		if err := s.accounts.Create(ctx, account); err != nil {
			return err
		}
		entry := NewAuditEntry(ActionAccountCreated).
			WithActor(account.ID).
			WithResource(ResourceAccount, account.ID.String()).
			WithDetail(fmt.Sprintf("account %s created", account.Email))
		return s.audit.Record(ctx, entry)
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			return nil, oops.Code("ACCOUNT_DUPLICATE_EMAIL").
				With("email", account.Email).
				Wrap(err)
		}
		return nil, oops.Code("ACCOUNT_REGISTER_FAILED").
			With("operation", "create account").
			Wrap(err)
	}

	return account, nil
}

// Authenticate verifies an email/password pair. A missing account, a
// deactivated account, and a wrong password all yield the same
// ErrUnauthorized; password verification runs in every case so timing
// does not separate them.
func (s *AccountService) Authenticate(ctx context.Context, email, password string) (*Account, error) {
	email = NormalizeEmail(email)

	account, lookupErr := s.accounts.GetByEmail(ctx, email)

	targetHash := dummyPasswordHash
	exists := false
	if lookupErr != nil {
		if !errors.Is(lookupErr, ErrNotFound) {
			return nil, oops.Code("AUTH_LOOKUP_FAILED").
				With("operation", "get account by email").
				Wrap(lookupErr)
		}
	} else {
		targetHash = account.PasswordHash
		exists = true
	}

	valid := s.hasher.Verify(password, targetHash)

	if !exists || !valid || !account.Active {
		return nil, oops.Code("AUTH_INVALID_CREDENTIALS").Wrap(ErrUnauthorized)
	}

	// Transparent hash upgrade for accounts still on a legacy algorithm.
	// Login succeeds even if the rewrite fails.
	if s.hasher.NeedsUpgrade(account.PasswordHash) {
		if newHash, hashErr := s.hasher.Hash(password); hashErr == nil {
			account.PasswordHash = newHash
			account.Touch()
			if updateErr := s.accounts.Update(ctx, account); updateErr != nil {
				s.logger.Warn("password hash upgrade failed",
					"account_id", account.ID.String(),
					"error", updateErr)
			}
		}
	}

	return account, nil
}

// Get retrieves an account by ID, active or not.
func (s *AccountService) Get(ctx context.Context, id ulid.ULID) (*Account, error) {
	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, oops.Code("ACCOUNT_GET_FAILED").With("id", id.String()).Wrap(err)
	}
	return account, nil
}

// List returns active accounts in id order. Reads are not audited.
func (s *AccountService) List(ctx context.Context, offset, limit int) ([]*Account, error) {
	return s.accounts.ListActive(ctx, offset, limit)
}

// Search returns accounts matching the query by name or email.
func (s *AccountService) Search(ctx context.Context, query string, offset, limit int) ([]*Account, error) {
	return s.accounts.Search(ctx, query, offset, limit)
}

// UpdateProfile applies a partial update. The audit entry names the
// changed fields but never their values.
func (s *AccountService) UpdateProfile(ctx context.Context, id ulid.ULID, upd AccountUpdate) (*Account, error) {
	changed := upd.ChangedFields()
	if len(changed) == 0 {
		return s.Get(ctx, id)
	}
	if err := upd.Validate(); err != nil {
		return nil, err
	}

	account, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	upd.Apply(account)

	err = s.tx.InTransaction(ctx, func(ctx context.Context) error {
		if err := s.accounts.Update(ctx, account); err != nil {
			return err
		}
		entry := NewAuditEntry(ActionAccountUpdated).
			WithActor(account.ID).
			WithResource(ResourceAccount, account.ID.String()).
			WithDetail("updated fields: " + strings.Join(changed, ", "))
		return s.audit.Record(ctx, entry)
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrDuplicateEmail) {
			return nil, err
		}
		return nil, oops.Code("ACCOUNT_UPDATE_FAILED").
			With("id", id.String()).
			Wrap(err)
	}

	return account, nil
}

// Deactivate soft-deletes an account. The row remains addressable by id;
// authentication is refused from the next attempt on. Idempotent for
// accounts that exist.
func (s *AccountService) Deactivate(ctx context.Context, id ulid.ULID) error {
	err := s.tx.InTransaction(ctx, func(ctx context.Context) error {
		if err := s.accounts.Deactivate(ctx, id); err != nil {
			return err
		}
		entry := NewAuditEntry(ActionAccountDeactivated).
			WithActor(id).
			WithResource(ResourceAccount, id.String())
		return s.audit.Record(ctx, entry)
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return oops.Code("ACCOUNT_DEACTIVATE_FAILED").
			With("id", id.String()).
			Wrap(err)
	}
	return nil
}
