// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package main

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/gatehouse/gatehouse/internal/auth"
	authpg "github.com/gatehouse/gatehouse/internal/auth/postgres"
	"github.com/gatehouse/gatehouse/internal/store"
)

const defaultSeedTimeout = 30 * time.Second

// seedConfig holds flags for the seed subcommand.
type seedConfig struct {
	email    string
	password string
	fullName string
	timeout  time.Duration
}

// NewSeedCmd creates the seed subcommand.
func NewSeedCmd() *cobra.Command {
	cfg := &seedConfig{}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create the initial superuser account",
		Long: `Creates the initial superuser account. This command is
idempotent: if the account already exists it is left untouched.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd, args, cfg)
		},
	}

	cmd.Flags().StringVar(&cfg.email, "email", "", "superuser email (required)")
	cmd.Flags().StringVar(&cfg.password, "password", "", "superuser password (required)")
	cmd.Flags().StringVar(&cfg.fullName, "full-name", "Administrator", "superuser display name")
	cmd.Flags().DurationVar(&cfg.timeout, "timeout", defaultSeedTimeout, "timeout for database operations")
	_ = cmd.MarkFlagRequired("email")    //nolint:errcheck // flag is registered above
	_ = cmd.MarkFlagRequired("password") //nolint:errcheck // flag is registered above

	return cmd
}

func runSeed(cmd *cobra.Command, _ []string, cfg *seedConfig) error {
	conf, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if conf.Database.URL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("database URL is required (--database-url, config file, or DATABASE_URL)")
	}

	if err := auth.ValidatePassword(cfg.password); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.timeout)
	defer cancel()

	cmd.Println("Connecting to database...")
	pool, err := store.Connect(ctx, conf.Database.URL)
	if err != nil {
		return err
	}
	defer pool.Close()

	hasher := auth.NewArgon2idHasher()
	passwordHash, err := hasher.Hash(cfg.password)
	if err != nil {
		return err
	}

	account, err := auth.NewAccount(cfg.email, cfg.fullName, passwordHash)
	if err != nil {
		return err
	}
	account.Superuser = true

	accounts := authpg.NewAccountRepository(pool)
	if err := accounts.Create(ctx, account); err != nil {
		if errors.Is(err, auth.ErrDuplicateEmail) {
			cmd.Println("Superuser already exists, skipping seed")
			slog.Info("superuser already seeded", "email", account.Email)
			return nil
		}
		return oops.Code("SEED_FAILED").With("operation", "create superuser").Wrap(err)
	}

	audit := authpg.NewAuditRepository(pool)
	entry := auth.NewAuditEntry(auth.ActionAccountCreated).
		WithActor(account.ID).
		WithResource(auth.ResourceAccount, account.ID.String()).
		WithDetail("seeded superuser " + account.Email)
	if err := audit.Record(ctx, entry); err != nil {
		slog.Warn("could not record seed audit entry", "error", err)
	}

	cmd.Printf("Created superuser %s\n", account.Email)
	slog.Info("created superuser", "id", account.ID, "email", account.Email)
	return nil
}
