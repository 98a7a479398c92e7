// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

//go:build integration

package auth_test

import (
	"context"
	"errors"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/gatehouse/gatehouse/internal/auth"
)

const testPassword = "correct horse battery staple"

var _ = Describe("AccountService", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
		cleanupTables(ctx, env.pool)
	})

	Describe("Register", func() {
		It("persists the account and writes an audit entry", func() {
			account, err := env.Accounts.Register(ctx, "alice@example.com", "Alice", testPassword)
			Expect(err).NotTo(HaveOccurred())
			Expect(account.Email).To(Equal("alice@example.com"))
			Expect(account.Active).To(BeTrue())
			Expect(account.PasswordHash).To(HavePrefix("$argon2id$"))

			got, err := env.Accounts.Get(ctx, account.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.FullName).To(Equal("Alice"))

			n := countRows(ctx, env.pool,
				"SELECT COUNT(*) FROM audit_log WHERE action = $1 AND actor_id = $2",
				auth.ActionAccountCreated, account.ID.String())
			Expect(n).To(Equal(1))
		})

		It("normalizes email case before storing", func() {
			account, err := env.Accounts.Register(ctx, "  Bob@Example.COM ", "Bob", testPassword)
			Expect(err).NotTo(HaveOccurred())
			Expect(account.Email).To(Equal("bob@example.com"))
		})

		It("rejects a duplicate email regardless of case", func() {
			_, err := env.Accounts.Register(ctx, "carol@example.com", "Carol", testPassword)
			Expect(err).NotTo(HaveOccurred())

			_, err = env.Accounts.Register(ctx, "CAROL@example.com", "Imposter", testPassword)
			Expect(err).To(HaveOccurred())
			Expect(errors.Is(err, auth.ErrDuplicateEmail)).To(BeTrue())
		})

		It("admits exactly one of several concurrent registrations for the same email", func() {
			const attempts = 8
			errs := make(chan error, attempts)

			var wg sync.WaitGroup
			for i := 0; i < attempts; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					defer GinkgoRecover()
					_, err := env.Accounts.Register(ctx, "race@example.com", "Racer", testPassword)
					errs <- err
				}()
			}
			wg.Wait()
			close(errs)

			succeeded := 0
			for err := range errs {
				if err == nil {
					succeeded++
					continue
				}
				Expect(errors.Is(err, auth.ErrDuplicateEmail)).To(BeTrue(), "losers must see ErrDuplicateEmail, got: %v", err)
			}
			Expect(succeeded).To(Equal(1))

			n := countRows(ctx, env.pool, "SELECT COUNT(*) FROM accounts WHERE email = $1", "race@example.com")
			Expect(n).To(Equal(1))
		})

		It("leaves no account row when registration fails", func() {
			_, err := env.Accounts.Register(ctx, "not-an-email", "Nobody", testPassword)
			Expect(err).To(HaveOccurred())

			n := countRows(ctx, env.pool, "SELECT COUNT(*) FROM accounts")
			Expect(n).To(BeZero())
		})
	})

	Describe("Authenticate", func() {
		It("accepts the correct password", func() {
			registered, err := env.Accounts.Register(ctx, "dave@example.com", "Dave", testPassword)
			Expect(err).NotTo(HaveOccurred())

			account, err := env.Accounts.Authenticate(ctx, "dave@example.com", testPassword)
			Expect(err).NotTo(HaveOccurred())
			Expect(account.ID).To(Equal(registered.ID))
		})

		It("rejects a wrong password", func() {
			_, err := env.Accounts.Register(ctx, "erin@example.com", "Erin", testPassword)
			Expect(err).NotTo(HaveOccurred())

			_, err = env.Accounts.Authenticate(ctx, "erin@example.com", "wrong password entirely")
			Expect(errors.Is(err, auth.ErrUnauthorized)).To(BeTrue())
		})

		It("rejects an unknown email identically to a bad password", func() {
			_, err := env.Accounts.Authenticate(ctx, "ghost@example.com", testPassword)
			Expect(errors.Is(err, auth.ErrUnauthorized)).To(BeTrue())
		})

		It("rejects a deactivated account", func() {
			account, err := env.Accounts.Register(ctx, "frank@example.com", "Frank", testPassword)
			Expect(err).NotTo(HaveOccurred())
			Expect(env.Accounts.Deactivate(ctx, account.ID)).To(Succeed())

			_, err = env.Accounts.Authenticate(ctx, "frank@example.com", testPassword)
			Expect(errors.Is(err, auth.ErrUnauthorized)).To(BeTrue())
		})
	})

	Describe("UpdateProfile", func() {
		It("changes fields and audits their names only", func() {
			account, err := env.Accounts.Register(ctx, "grace@example.com", "Grace", testPassword)
			Expect(err).NotTo(HaveOccurred())

			newName := "Grace Hopper"
			updated, err := env.Accounts.UpdateProfile(ctx, account.ID, auth.AccountUpdate{FullName: &newName})
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.FullName).To(Equal("Grace Hopper"))

			var detail string
			err = env.pool.QueryRow(ctx,
				"SELECT detail FROM audit_log WHERE action = $1", auth.ActionAccountUpdated).Scan(&detail)
			Expect(err).NotTo(HaveOccurred())
			Expect(detail).To(ContainSubstring("full_name"))
			Expect(detail).NotTo(ContainSubstring("Hopper"), "audit detail must not contain field values")
		})

		It("refuses an email already taken by another account", func() {
			_, err := env.Accounts.Register(ctx, "heidi@example.com", "Heidi", testPassword)
			Expect(err).NotTo(HaveOccurred())
			account, err := env.Accounts.Register(ctx, "ivan@example.com", "Ivan", testPassword)
			Expect(err).NotTo(HaveOccurred())

			taken := "heidi@example.com"
			_, err = env.Accounts.UpdateProfile(ctx, account.ID, auth.AccountUpdate{Email: &taken})
			Expect(errors.Is(err, auth.ErrDuplicateEmail)).To(BeTrue())
		})
	})

	Describe("Deactivate", func() {
		It("keeps the row addressable by id", func() {
			account, err := env.Accounts.Register(ctx, "judy@example.com", "Judy", testPassword)
			Expect(err).NotTo(HaveOccurred())
			Expect(env.Accounts.Deactivate(ctx, account.ID)).To(Succeed())

			got, err := env.Accounts.Get(ctx, account.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Active).To(BeFalse())
		})

		It("removes the account from active listings", func() {
			account, err := env.Accounts.Register(ctx, "kim@example.com", "Kim", testPassword)
			Expect(err).NotTo(HaveOccurred())
			Expect(env.Accounts.Deactivate(ctx, account.ID)).To(Succeed())

			listed, err := env.Accounts.List(ctx, 0, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(listed).To(BeEmpty())
		})
	})

	Describe("Search", func() {
		It("matches by name and email fragments", func() {
			_, err := env.Accounts.Register(ctx, "laura.smith@example.com", "Laura Smith", testPassword)
			Expect(err).NotTo(HaveOccurred())
			_, err = env.Accounts.Register(ctx, "mike@example.com", "Mike Jones", testPassword)
			Expect(err).NotTo(HaveOccurred())

			byName, err := env.Accounts.Search(ctx, "smith", 0, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(byName).To(HaveLen(1))
			Expect(byName[0].Email).To(Equal("laura.smith@example.com"))

			byEmail, err := env.Accounts.Search(ctx, "mike@", 0, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(byEmail).To(HaveLen(1))
		})

		It("still finds deactivated accounts", func() {
			account, err := env.Accounts.Register(ctx, "nadia@example.com", "Nadia", testPassword)
			Expect(err).NotTo(HaveOccurred())
			Expect(env.Accounts.Deactivate(ctx, account.ID)).To(Succeed())

			found, err := env.Accounts.Search(ctx, "nadia", 0, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(HaveLen(1))
			Expect(found[0].Active).To(BeFalse())
		})
	})
})

var _ = Describe("AuthService", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
		cleanupTables(ctx, env.pool)
	})

	registerAndLogin := func(email string) (*auth.Session, string) {
		GinkgoHelper()
		_, err := env.Accounts.Register(ctx, email, "Login User", testPassword)
		Expect(err).NotTo(HaveOccurred())
		session, token, err := env.Auth.Login(ctx, email, testPassword, auth.ClientMeta{IPAddress: "203.0.113.7"})
		Expect(err).NotTo(HaveOccurred())
		return session, token
	}

	Describe("Login", func() {
		It("stores only the token hash, never the plaintext", func() {
			session, token := registerAndLogin("nina@example.com")
			Expect(token).To(HaveLen(64))
			Expect(session.TokenHash).To(Equal(auth.HashSessionToken(token)))

			n := countRows(ctx, env.pool, "SELECT COUNT(*) FROM sessions WHERE token_hash = $1", token)
			Expect(n).To(BeZero(), "plaintext token must not appear in storage")
			n = countRows(ctx, env.pool, "SELECT COUNT(*) FROM sessions WHERE token_hash = $1", session.TokenHash)
			Expect(n).To(Equal(1))
		})

		It("audits the login with actor and client metadata", func() {
			session, _ := registerAndLogin("oscar@example.com")

			var ip string
			err := env.pool.QueryRow(ctx,
				"SELECT ip_address FROM audit_log WHERE action = $1 AND resource_id = $2",
				auth.ActionUserLogin, session.ID.String()).Scan(&ip)
			Expect(err).NotTo(HaveOccurred())
			Expect(ip).To(Equal("203.0.113.7"))
		})

		It("audits a failed login with no actor and no email", func() {
			_, _, err := env.Auth.Login(ctx, "stranger@example.com", "whatever password", auth.ClientMeta{IPAddress: "198.51.100.9"})
			Expect(errors.Is(err, auth.ErrUnauthorized)).To(BeTrue())

			var actorID *string
			var detail *string
			qerr := env.pool.QueryRow(ctx,
				"SELECT actor_id, detail FROM audit_log WHERE action = $1",
				auth.ActionLoginFailed).Scan(&actorID, &detail)
			Expect(qerr).NotTo(HaveOccurred())
			Expect(actorID).To(BeNil(), "failed logins carry no actor")
			Expect(detail).To(BeNil(), "failed logins must not record the attempted email")
		})

		It("records one audit entry per failed attempt", func() {
			for i := 0; i < 2; i++ {
				_, _, err := env.Auth.Login(ctx, "stranger@example.com", "whatever password", auth.ClientMeta{})
				Expect(errors.Is(err, auth.ErrUnauthorized)).To(BeTrue())
			}

			n := countRows(ctx, env.pool,
				"SELECT COUNT(*) FROM audit_log WHERE action = $1 AND actor_id IS NULL",
				auth.ActionLoginFailed)
			Expect(n).To(Equal(2))
		})
	})

	Describe("CurrentUser", func() {
		It("resolves a live token to its account", func() {
			_, token := registerAndLogin("peggy@example.com")

			account, err := env.Auth.CurrentUser(ctx, token)
			Expect(err).NotTo(HaveOccurred())
			Expect(account.Email).To(Equal("peggy@example.com"))
		})

		It("rejects a token once the account is deactivated", func() {
			_, token := registerAndLogin("quinn@example.com")
			account, err := env.Auth.CurrentUser(ctx, token)
			Expect(err).NotTo(HaveOccurred())

			Expect(env.Accounts.Deactivate(ctx, account.ID)).To(Succeed())

			_, err = env.Auth.CurrentUser(ctx, token)
			Expect(errors.Is(err, auth.ErrUnauthorized)).To(BeTrue())
		})

		It("rejects an unknown token", func() {
			_, err := env.Auth.CurrentUser(ctx, "deadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeef")
			Expect(errors.Is(err, auth.ErrUnauthorized)).To(BeTrue())
		})
	})

	Describe("Refresh", func() {
		It("extends the expiry without rotating the token", func() {
			session, token := registerAndLogin("rita@example.com")

			refreshed, err := env.Auth.Refresh(ctx, token)
			Expect(err).NotTo(HaveOccurred())
			Expect(refreshed.TokenHash).To(Equal(session.TokenHash))
			Expect(refreshed.ExpiresAt).To(BeTemporally(">=", session.ExpiresAt))

			_, err = env.Auth.CurrentUser(ctx, token)
			Expect(err).NotTo(HaveOccurred())
		})

		It("refuses a token whose session has lapsed", func() {
			session, token := registerAndLogin("sam@example.com")

			_, err := env.pool.Exec(ctx,
				"UPDATE sessions SET expires_at = $1 WHERE token_hash = $2",
				time.Now().UTC().Add(-time.Minute), session.TokenHash)
			Expect(err).NotTo(HaveOccurred())

			_, err = env.Auth.Refresh(ctx, token)
			Expect(errors.Is(err, auth.ErrUnauthorized)).To(BeTrue())
		})
	})

	Describe("Logout", func() {
		It("invalidates the session and audits it", func() {
			session, token := registerAndLogin("tina@example.com")

			invalidated, err := env.Auth.Logout(ctx, token)
			Expect(err).NotTo(HaveOccurred())
			Expect(invalidated).To(BeTrue())

			_, err = env.Auth.CurrentUser(ctx, token)
			Expect(errors.Is(err, auth.ErrUnauthorized)).To(BeTrue())

			n := countRows(ctx, env.pool,
				"SELECT COUNT(*) FROM audit_log WHERE action = $1 AND resource_id = $2",
				auth.ActionUserLogout, session.ID.String())
			Expect(n).To(Equal(1))
		})

		It("reports false for a second logout of the same token", func() {
			_, token := registerAndLogin("uma@example.com")

			first, err := env.Auth.Logout(ctx, token)
			Expect(err).NotTo(HaveOccurred())
			Expect(first).To(BeTrue())

			second, err := env.Auth.Logout(ctx, token)
			Expect(err).NotTo(HaveOccurred())
			Expect(second).To(BeFalse())
		})
	})

	Describe("RevokeSessions", func() {
		It("kills every active session of the account", func() {
			_, err := env.Accounts.Register(ctx, "vera@example.com", "Vera", testPassword)
			Expect(err).NotTo(HaveOccurred())

			_, token1, err := env.Auth.Login(ctx, "vera@example.com", testPassword, auth.ClientMeta{})
			Expect(err).NotTo(HaveOccurred())
			session2, token2, err := env.Auth.Login(ctx, "vera@example.com", testPassword, auth.ClientMeta{})
			Expect(err).NotTo(HaveOccurred())

			count, err := env.Auth.RevokeSessions(ctx, session2.AccountID)
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(int64(2)))

			_, err = env.Auth.CurrentUser(ctx, token1)
			Expect(errors.Is(err, auth.ErrUnauthorized)).To(BeTrue())
			_, err = env.Auth.CurrentUser(ctx, token2)
			Expect(errors.Is(err, auth.ErrUnauthorized)).To(BeTrue())
		})
	})
})
