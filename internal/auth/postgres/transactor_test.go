// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatehouse/gatehouse/internal/auth"
)

func testEntry() *auth.AuditEntry {
	return auth.NewAuditEntry(auth.ActionUserLogin)
}

func TestTransactor_InTransaction(t *testing.T) {
	ctx := context.Background()

	t.Run("commits when fn succeeds", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO audit_log`).
			WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
				pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
				pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectCommit()

		tx := NewTransactor(mock)
		repo := NewAuditRepository(mock)

		// The repository call inside fn must join the open transaction;
		// pgxmock rejects it otherwise because the Exec is expected
		// between Begin and Commit.
		err = tx.InTransaction(ctx, func(ctx context.Context) error {
			return repo.Record(ctx, testEntry())
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back when fn fails", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectBegin()
		mock.ExpectRollback()

		tx := NewTransactor(mock)
		boom := errors.New("boom")

		err = tx.InTransaction(ctx, func(context.Context) error { return boom })
		assert.ErrorIs(t, err, boom)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("begin failure is reported", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectBegin().WillReturnError(errors.New("no connections"))

		tx := NewTransactor(mock)
		err = tx.InTransaction(ctx, func(context.Context) error {
			t.Fatal("fn must not run when begin fails")
			return nil
		})
		require.Error(t, err)
	})

	t.Run("commit failure is reported", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectBegin()
		mock.ExpectCommit().WillReturnError(errors.New("deadlock"))
		mock.ExpectRollback()

		tx := NewTransactor(mock)
		err = tx.InTransaction(ctx, func(context.Context) error { return nil })
		require.Error(t, err)
	})
}

func TestQuerierFrom(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	t.Run("falls back to the pool without a transaction", func(t *testing.T) {
		q := querierFrom(context.Background(), mock)
		assert.Equal(t, mock, q)
	})
}
