// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/gatehouse/gatehouse/internal/auth"
)

const auditColumns = `id, actor_id, action, resource_type, resource_id,
	detail, ip_address, user_agent, created_at`

// AuditRepository persists audit entries in PostgreSQL. The table is
// append-only; no update or delete statements exist here.
type AuditRepository struct {
	db DB
}

// NewAuditRepository creates an AuditRepository backed by the given pool.
func NewAuditRepository(db DB) *AuditRepository {
	return &AuditRepository{db: db}
}

var _ auth.AuditRepository = (*AuditRepository)(nil)

// Record appends an entry.
func (r *AuditRepository) Record(ctx context.Context, entry *auth.AuditEntry) error {
	_, err := querierFrom(ctx, r.db).Exec(ctx, `
		INSERT INTO audit_log (id, actor_id, action, resource_type, resource_id,
			detail, ip_address, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		entry.ID.String(), ulidToStringPtr(entry.ActorID), entry.Action,
		entry.ResourceType, entry.ResourceID, entry.Detail,
		entry.IPAddress, entry.UserAgent, entry.CreatedAt,
	)
	if err != nil {
		return oops.Code("DB_QUERY_FAILED").
			With("operation", "record audit entry").
			With("action", entry.Action).
			Wrap(err)
	}
	return nil
}

// ListByActor returns entries for an actor, newest first.
func (r *AuditRepository) ListByActor(ctx context.Context, actorID ulid.ULID, offset, limit int) ([]*auth.AuditEntry, error) {
	rows, err := querierFrom(ctx, r.db).Query(ctx, `
		SELECT `+auditColumns+`
		FROM audit_log
		WHERE actor_id = $1
		ORDER BY created_at DESC, id DESC
		OFFSET $2 LIMIT $3`,
		actorID.String(), offset, limit,
	)
	if err != nil {
		return nil, oops.Code("DB_QUERY_FAILED").
			With("operation", "list audit entries by actor").
			Wrap(err)
	}
	defer rows.Close()
	return collectAuditEntries(rows, "list audit entries by actor")
}

// ListRecent returns entries created at or after since, newest first.
func (r *AuditRepository) ListRecent(ctx context.Context, since time.Time, offset, limit int) ([]*auth.AuditEntry, error) {
	rows, err := querierFrom(ctx, r.db).Query(ctx, `
		SELECT `+auditColumns+`
		FROM audit_log
		WHERE created_at >= $1
		ORDER BY created_at DESC, id DESC
		OFFSET $2 LIMIT $3`,
		since, offset, limit,
	)
	if err != nil {
		return nil, oops.Code("DB_QUERY_FAILED").
			With("operation", "list recent audit entries").
			Wrap(err)
	}
	defer rows.Close()
	return collectAuditEntries(rows, "list recent audit entries")
}

func scanAuditEntry(row pgx.Row, operation string) (*auth.AuditEntry, error) {
	var (
		entry      auth.AuditEntry
		idStr      string
		actorIDStr *string
	)
	err := row.Scan(
		&idStr, &actorIDStr, &entry.Action, &entry.ResourceType, &entry.ResourceID,
		&entry.Detail, &entry.IPAddress, &entry.UserAgent, &entry.CreatedAt,
	)
	if err != nil {
		return nil, oops.Code("DB_QUERY_FAILED").
			With("operation", operation).
			Wrap(err)
	}

	if entry.ID, err = ulid.Parse(idStr); err != nil {
		return nil, oops.Code("DB_SCAN_FAILED").
			With("operation", operation).
			With("id", idStr).
			Wrap(err)
	}
	if entry.ActorID, err = parseOptionalULID(actorIDStr, "actor_id"); err != nil {
		return nil, err
	}
	return &entry, nil
}

func collectAuditEntries(rows pgx.Rows, operation string) ([]*auth.AuditEntry, error) {
	var entries []*auth.AuditEntry
	for rows.Next() {
		entry, err := scanAuditEntry(rows, operation)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("DB_QUERY_FAILED").
			With("operation", operation).
			Wrap(err)
	}
	return entries, nil
}
