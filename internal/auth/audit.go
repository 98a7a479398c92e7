// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
)

// Audit action tags.
const (
	ActionAccountCreated     = "account_created"
	ActionAccountUpdated     = "account_updated"
	ActionAccountDeactivated = "account_deactivated"
	ActionUserLogin          = "user_login"
	ActionUserLogout         = "user_logout"
	ActionLoginFailed        = "login_failed"
	ActionConfigUpdated      = "config_updated"
	ActionSessionsSwept      = "sessions_swept"
)

// Audit resource types.
const (
	ResourceAccount = "account"
	ResourceSession = "session"
	ResourceConfig  = "config"
)

// AuditEntry is an append-only record of a security-relevant action.
// ActorID is nil for failed or anonymous attempts. Entries are never
// updated or deleted by normal operation.
type AuditEntry struct {
	ID           ulid.ULID
	ActorID      *ulid.ULID
	Action       string
	ResourceType *string
	ResourceID   *string
	Detail       *string
	IPAddress    string
	UserAgent    string
	CreatedAt    time.Time
}

// NewAuditEntry creates an entry for the given action. Optional fields
// are set with the With* methods.
func NewAuditEntry(action string) *AuditEntry {
	return &AuditEntry{
		ID:        ulid.Make(),
		Action:    action,
		CreatedAt: time.Now().UTC(),
	}
}

// WithActor sets the acting account.
func (e *AuditEntry) WithActor(id ulid.ULID) *AuditEntry {
	e.ActorID = &id
	return e
}

// WithResource sets the affected resource.
func (e *AuditEntry) WithResource(resourceType, resourceID string) *AuditEntry {
	e.ResourceType = &resourceType
	e.ResourceID = &resourceID
	return e
}

// WithDetail sets the free-text detail. Values of mutated fields must
// never be placed here; field names and counts are fine.
func (e *AuditEntry) WithDetail(detail string) *AuditEntry {
	e.Detail = &detail
	return e
}

// WithClientMeta attaches client metadata.
func (e *AuditEntry) WithClientMeta(meta ClientMeta) *AuditEntry {
	e.IPAddress = meta.IPAddress
	e.UserAgent = meta.UserAgent
	return e
}

// AuditRepository manages the append-only audit log.
type AuditRepository interface {
	// Record appends an entry. There is no update or delete.
	Record(ctx context.Context, entry *AuditEntry) error

	// ListByActor returns entries for an actor, newest first.
	ListByActor(ctx context.Context, actorID ulid.ULID, offset, limit int) ([]*AuditEntry, error)

	// ListRecent returns entries created at or after since, newest first.
	ListRecent(ctx context.Context, since time.Time, offset, limit int) ([]*AuditEntry, error)
}
