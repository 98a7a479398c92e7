// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package main

import (
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/gatehouse/gatehouse/internal/auth"
	authpg "github.com/gatehouse/gatehouse/internal/auth/postgres"
	"github.com/gatehouse/gatehouse/internal/store"
)

// sweepConfig holds flags for the sweep subcommand.
type sweepConfig struct {
	once bool
}

// NewSweepCmd creates the sweep subcommand.
func NewSweepCmd() *cobra.Command {
	cfg := &sweepConfig{}

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Invalidate expired sessions",
		Long: `Marks expired sessions inactive. By default runs continuously
on the configured interval until interrupted; with --once, sweeps a
single time and exits.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSweep(cmd, args, cfg)
		},
	}

	cmd.Flags().BoolVar(&cfg.once, "once", false, "sweep once and exit")

	return cmd
}

func runSweep(cmd *cobra.Command, _ []string, cfg *sweepConfig) error {
	conf, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if conf.Database.URL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("database URL is required (--database-url, config file, or DATABASE_URL)")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := store.Connect(ctx, conf.Database.URL)
	if err != nil {
		return err
	}
	defer pool.Close()

	sessions := authpg.NewSessionRepository(pool)
	audit := authpg.NewAuditRepository(pool)
	settings := store.NewPostgresSettingsRepository(pool)

	system, err := auth.NewSystemService(settings, sessions, audit)
	if err != nil {
		return err
	}

	worker := auth.NewSweepWorker(system, conf.Session.SweepInterval)

	if cfg.once {
		return worker.RunOnce(ctx)
	}

	slog.Info("starting session sweeper", "interval", conf.Session.SweepInterval)
	worker.Start(ctx)
	<-ctx.Done()
	worker.Stop()
	slog.Info("session sweeper stopped")
	return nil
}
