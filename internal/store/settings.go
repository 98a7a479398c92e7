// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"

	"github.com/gatehouse/gatehouse/internal/auth"
)

// PostgresSettingsRepository implements auth.SettingsRepository using
// PostgreSQL.
type PostgresSettingsRepository struct {
	pool poolIface
}

// NewPostgresSettingsRepository creates a new PostgreSQL settings repository.
func NewPostgresSettingsRepository(pool poolIface) *PostgresSettingsRepository {
	return &PostgresSettingsRepository{pool: pool}
}

var _ auth.SettingsRepository = (*PostgresSettingsRepository)(nil)

// Get returns the value for a key, or auth.ErrNotFound.
func (r *PostgresSettingsRepository) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := r.pool.QueryRow(ctx, `SELECT value FROM settings WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", oops.Code("SETTING_NOT_FOUND").
			With("operation", "get setting").
			With("key", key).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return "", oops.With("operation", "get setting").With("key", key).Wrap(err)
	}
	return value, nil
}

// Set creates or replaces a key. An empty description keeps the existing one.
func (r *PostgresSettingsRepository) Set(ctx context.Context, key, value, description string) error {
	var descArg any = description
	if description == "" {
		descArg = nil
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO settings (key, value, description, updated_at)
		 VALUES ($1, $2, $3, NOW())
		 ON CONFLICT (key) DO UPDATE
		 SET value = $2,
		     description = COALESCE($3, settings.description),
		     updated_at = NOW()`,
		key, value, descArg)
	if err != nil {
		return oops.With("operation", "set setting").With("key", key).Wrap(err)
	}
	return nil
}

// All returns every key with its value.
func (r *PostgresSettingsRepository) All(ctx context.Context) (map[string]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		return nil, oops.With("operation", "list settings").Wrap(err)
	}
	defer rows.Close()

	settings := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, oops.With("operation", "scan setting row").Wrap(err)
		}
		settings[key] = value
	}

	if err := rows.Err(); err != nil {
		return nil, oops.With("operation", "iterate settings").Wrap(err)
	}

	return settings, nil
}
