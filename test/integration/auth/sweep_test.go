// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

//go:build integration

package auth_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/gatehouse/gatehouse/internal/auth"
)

var _ = Describe("SystemService", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
		cleanupTables(ctx, env.pool)
	})

	Describe("Settings", func() {
		It("round-trips a setting and audits the key only", func() {
			err := env.System.SetSetting(ctx, "session.max_per_account", "10", "cap on concurrent sessions")
			Expect(err).NotTo(HaveOccurred())

			value, err := env.System.GetSetting(ctx, "session.max_per_account")
			Expect(err).NotTo(HaveOccurred())
			Expect(value).To(Equal("10"))

			var detail string
			qerr := env.pool.QueryRow(ctx,
				"SELECT detail FROM audit_log WHERE action = $1", auth.ActionConfigUpdated).Scan(&detail)
			Expect(qerr).NotTo(HaveOccurred())
			Expect(detail).To(ContainSubstring("session.max_per_account"))
			Expect(detail).NotTo(ContainSubstring("10"), "audit detail must not record setting values")
		})

		It("overwrites on repeated set and keeps the old description when omitted", func() {
			Expect(env.System.SetSetting(ctx, "maintenance", "off", "maintenance mode switch")).To(Succeed())
			Expect(env.System.SetSetting(ctx, "maintenance", "on", "")).To(Succeed())

			value, err := env.System.GetSetting(ctx, "maintenance")
			Expect(err).NotTo(HaveOccurred())
			Expect(value).To(Equal("on"))

			var description string
			qerr := env.pool.QueryRow(ctx,
				"SELECT description FROM settings WHERE key = $1", "maintenance").Scan(&description)
			Expect(qerr).NotTo(HaveOccurred())
			Expect(description).To(Equal("maintenance mode switch"))
		})

		It("returns ErrNotFound for an unknown key", func() {
			_, err := env.System.GetSetting(ctx, "no.such.key")
			Expect(errors.Is(err, auth.ErrNotFound)).To(BeTrue())
		})
	})

	Describe("SweepExpiredSessions", func() {
		It("invalidates only expired sessions and audits the sweep", func() {
			_, err := env.Accounts.Register(ctx, "walt@example.com", "Walt", testPassword)
			Expect(err).NotTo(HaveOccurred())

			expired, _, err := env.Auth.Login(ctx, "walt@example.com", testPassword, auth.ClientMeta{})
			Expect(err).NotTo(HaveOccurred())
			_, liveToken, err := env.Auth.Login(ctx, "walt@example.com", testPassword, auth.ClientMeta{})
			Expect(err).NotTo(HaveOccurred())

			_, err = env.pool.Exec(ctx,
				"UPDATE sessions SET expires_at = $1 WHERE token_hash = $2",
				time.Now().UTC().Add(-time.Hour), expired.TokenHash)
			Expect(err).NotTo(HaveOccurred())

			swept, err := env.System.SweepExpiredSessions(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(swept).To(Equal(int64(1)))

			_, err = env.Auth.CurrentUser(ctx, liveToken)
			Expect(err).NotTo(HaveOccurred(), "live session must survive the sweep")

			n := countRows(ctx, env.pool,
				"SELECT COUNT(*) FROM audit_log WHERE action = $1", auth.ActionSessionsSwept)
			Expect(n).To(Equal(1))
		})

		It("does not audit a sweep that found nothing", func() {
			swept, err := env.System.SweepExpiredSessions(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(swept).To(BeZero())

			n := countRows(ctx, env.pool,
				"SELECT COUNT(*) FROM audit_log WHERE action = $1", auth.ActionSessionsSwept)
			Expect(n).To(BeZero())
		})

		It("leaves swept sessions in place for the audit trail", func() {
			_, err := env.Accounts.Register(ctx, "xena@example.com", "Xena", testPassword)
			Expect(err).NotTo(HaveOccurred())
			session, _, err := env.Auth.Login(ctx, "xena@example.com", testPassword, auth.ClientMeta{})
			Expect(err).NotTo(HaveOccurred())

			_, err = env.pool.Exec(ctx,
				"UPDATE sessions SET expires_at = $1 WHERE token_hash = $2",
				time.Now().UTC().Add(-time.Hour), session.TokenHash)
			Expect(err).NotTo(HaveOccurred())

			_, err = env.System.SweepExpiredSessions(ctx)
			Expect(err).NotTo(HaveOccurred())

			var active bool
			qerr := env.pool.QueryRow(ctx,
				"SELECT is_active FROM sessions WHERE token_hash = $1", session.TokenHash).Scan(&active)
			Expect(qerr).NotTo(HaveOccurred(), "swept sessions are marked inactive, not deleted")
			Expect(active).To(BeFalse())
		})
	})
})
