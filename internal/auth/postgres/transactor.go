// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package postgres

import (
	"context"

	"github.com/samber/oops"

	"github.com/gatehouse/gatehouse/internal/auth"
)

// Transactor runs functions inside a database transaction. The open
// transaction travels on the context, so repository calls inside fn
// automatically join it.
type Transactor struct {
	db DB
}

// NewTransactor creates a Transactor over the given pool.
func NewTransactor(db DB) *Transactor {
	return &Transactor{db: db}
}

var _ auth.Transactor = (*Transactor)(nil)

// InTransaction begins a transaction, runs fn with it attached to the
// context, and commits. Any error from fn rolls the transaction back and
// is returned unchanged.
func (t *Transactor) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	tx, err := t.db.Begin(ctx)
	if err != nil {
		return oops.Code("TX_BEGIN_FAILED").Wrap(err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return oops.Code("TX_COMMIT_FAILED").Wrap(err)
	}
	return nil
}
