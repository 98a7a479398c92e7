// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import (
	"context"
	"regexp"
	"strings"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Field length constraints.
const (
	MaxEmailLength    = 255
	MaxFullNameLength = 255
	MinPasswordLength = 8
)

// emailRegex is a deliberately loose shape check; real validation happens
// when mail is delivered. It rejects the obviously broken.
var emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Account represents a user account. "Deletion" is a soft deactivation:
// rows are never removed, so audit history stays addressable by id.
type Account struct {
	ID           ulid.ULID
	Email        string
	FullName     string
	PasswordHash string
	Active       bool
	Superuser    bool
	Phone        *string
	AvatarURL    *string
	Bio          *string
	Timestamps
}

// NewAccount creates a validated Account with a normalized email. The
// caller supplies an already-hashed password.
func NewAccount(email, fullName, passwordHash string) (*Account, error) {
	email = NormalizeEmail(email)
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := ValidateFullName(fullName); err != nil {
		return nil, err
	}
	if passwordHash == "" {
		return nil, oops.Code("ACCOUNT_EMPTY_HASH").Wrapf(ErrValidation, "password hash cannot be empty")
	}

	return &Account{
		ID:           ulid.Make(),
		Email:        email,
		FullName:     strings.TrimSpace(fullName),
		PasswordHash: passwordHash,
		Active:       true,
		Timestamps:   NewTimestamps(),
	}, nil
}

// NormalizeEmail lowercases and trims an email address. Uniqueness and
// lookups compare normalized forms.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail validates an already-normalized email address.
func ValidateEmail(email string) error {
	if email == "" {
		return oops.Code("ACCOUNT_INVALID_EMAIL").
			Wrapf(ErrValidation, "email cannot be empty")
	}
	if len(email) > MaxEmailLength {
		return oops.Code("ACCOUNT_INVALID_EMAIL").
			With("max", MaxEmailLength).
			Wrapf(ErrValidation, "email must be at most %d characters", MaxEmailLength)
	}
	if !emailRegex.MatchString(email) {
		return oops.Code("ACCOUNT_INVALID_EMAIL").
			Wrapf(ErrValidation, "email is not a valid address")
	}
	return nil
}

// ValidateFullName validates a display name.
func ValidateFullName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return oops.Code("ACCOUNT_INVALID_NAME").
			Wrapf(ErrValidation, "full name cannot be empty")
	}
	if len(name) > MaxFullNameLength {
		return oops.Code("ACCOUNT_INVALID_NAME").
			With("max", MaxFullNameLength).
			Wrapf(ErrValidation, "full name must be at most %d characters", MaxFullNameLength)
	}
	return nil
}

// ValidatePassword checks the plaintext password policy before hashing.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return oops.Code("ACCOUNT_WEAK_PASSWORD").
			With("min", MinPasswordLength).
			Wrapf(ErrValidation, "password must be at least %d characters", MinPasswordLength)
	}
	return nil
}

// AccountUpdate carries a partial profile update. Nil fields are left
// untouched.
type AccountUpdate struct {
	Email     *string
	FullName  *string
	Phone     *string
	AvatarURL *string
	Bio       *string
}

// ChangedFields lists the names of fields the update supplies, in a fixed
// order. Audit entries record these names but never the values.
func (u AccountUpdate) ChangedFields() []string {
	var fields []string
	if u.Email != nil {
		fields = append(fields, "email")
	}
	if u.FullName != nil {
		fields = append(fields, "full_name")
	}
	if u.Phone != nil {
		fields = append(fields, "phone")
	}
	if u.AvatarURL != nil {
		fields = append(fields, "avatar_url")
	}
	if u.Bio != nil {
		fields = append(fields, "bio")
	}
	return fields
}

// Validate normalizes and validates the supplied fields.
func (u *AccountUpdate) Validate() error {
	if u.Email != nil {
		normalized := NormalizeEmail(*u.Email)
		if err := ValidateEmail(normalized); err != nil {
			return err
		}
		u.Email = &normalized
	}
	if u.FullName != nil {
		if err := ValidateFullName(*u.FullName); err != nil {
			return err
		}
	}
	return nil
}

// Apply copies the supplied fields onto the account and refreshes the
// update timestamp.
func (u AccountUpdate) Apply(a *Account) {
	if u.Email != nil {
		a.Email = *u.Email
	}
	if u.FullName != nil {
		a.FullName = strings.TrimSpace(*u.FullName)
	}
	if u.Phone != nil {
		a.Phone = u.Phone
	}
	if u.AvatarURL != nil {
		a.AvatarURL = u.AvatarURL
	}
	if u.Bio != nil {
		a.Bio = u.Bio
	}
	a.Touch()
}

// AccountRepository manages account persistence.
type AccountRepository interface {
	// Create stores a new account. Returns ErrDuplicateEmail if the email
	// is already registered, enforced by a storage-level uniqueness
	// constraint so concurrent registrations cannot both succeed.
	Create(ctx context.Context, account *Account) error

	// GetByID retrieves an account by ID, active or not.
	GetByID(ctx context.Context, id ulid.ULID) (*Account, error)

	// GetByEmail retrieves an account by email (case-insensitive).
	GetByEmail(ctx context.Context, email string) (*Account, error)

	// ListActive returns active accounts in id order.
	ListActive(ctx context.Context, offset, limit int) ([]*Account, error)

	// Search returns accounts whose full name or email contains the query,
	// case-insensitively, in id order.
	Search(ctx context.Context, query string, offset, limit int) ([]*Account, error)

	// Update stores the full account row. Returns ErrNotFound if the id is
	// absent and ErrDuplicateEmail on an email collision.
	Update(ctx context.Context, account *Account) error

	// Deactivate sets the active flag to false. Idempotent: deactivating an
	// already-inactive account succeeds. Returns ErrNotFound only when the
	// id does not exist.
	Deactivate(ctx context.Context, id ulid.ULID) error
}
