// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import "errors"

// Sentinel errors for the failure kinds callers are expected to switch on
// with errors.Is. Storage faults that match none of these propagate as
// wrapped persistence errors and are not retried inside the core.
var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateEmail is returned when a registration or profile update
	// collides with an existing account email (case-insensitive).
	ErrDuplicateEmail = errors.New("email already registered")

	// ErrUnauthorized is returned for failed credential checks and for
	// invalid, expired, or missing session tokens. The cause is deliberately
	// not distinguishable so callers cannot enumerate accounts.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrValidation is returned for malformed input caught before it
	// reaches storage.
	ErrValidation = errors.New("validation failed")

	// ErrTokenCollision is returned when a freshly generated session token
	// hash collides with a stored one. Callers retry with a new token.
	ErrTokenCollision = errors.New("session token collision")
)
