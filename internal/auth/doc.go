// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

// Package auth implements the account and session authentication core.
//
// # Domain Types
//
// Domain types (Account, Session, AuditEntry) should be created using
// their constructors:
//   - NewAccount - creates an Account with a validated, normalized email
//   - NewSession - creates a Session bound to an account and expiry
//
// Direct struct initialization bypasses validation and may create invalid
// state. Repository implementations receive pre-validated types from
// these constructors.
//
// # Services
//
// Service types coordinate domain operations:
//   - AccountService - registration, credential checks, profile lifecycle
//   - AuthService - login, logout, refresh, session resolution
//   - SystemService - settings and expired-session sweeping
//
// Services are created with New*Service constructors that validate
// dependencies. State-changing operations write their audit entry inside
// the same transaction as the primary mutation.
package auth
