// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package main

import (
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/gatehouse/gatehouse/internal/store"
)

// migrateConfig holds flags for the migrate subcommand.
type migrateConfig struct {
	down        bool
	steps       int
	showVersion bool
	force       int
}

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd() *cobra.Command {
	cfg := &migrateConfig{}

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database schema migrations",
		Long: `Apply pending database migrations. With --down, roll all
migrations back; with --steps, apply a fixed number of migrations
(negative to roll back); with --force, set the schema version without
running migrations to recover from a dirty state.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd, args, cfg)
		},
	}

	cmd.Flags().BoolVar(&cfg.down, "down", false, "roll back all migrations (destructive)")
	cmd.Flags().IntVar(&cfg.steps, "steps", 0, "apply n migrations; negative rolls back")
	cmd.Flags().BoolVar(&cfg.showVersion, "version", false, "print the current schema version")
	cmd.Flags().IntVar(&cfg.force, "force", -1, "set the schema version without migrating")

	return cmd
}

func runMigrate(cmd *cobra.Command, _ []string, cfg *migrateConfig) error {
	conf, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if conf.Database.URL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("database URL is required (--database-url, config file, or DATABASE_URL)")
	}

	migrator, err := store.NewMigrator(conf.Database.URL)
	if err != nil {
		return err
	}
	defer migrator.Close() //nolint:errcheck // close error is not actionable here

	switch {
	case cfg.showVersion:
		version, dirty, err := migrator.Version()
		if err != nil {
			return err
		}
		name, err := store.MigrationName(version)
		if err != nil {
			return err
		}
		if name == "" {
			cmd.Printf("schema version: %d (dirty: %v)\n", version, dirty)
		} else {
			cmd.Printf("schema version: %d (%s, dirty: %v)\n", version, name, dirty)
		}
		return nil

	case cfg.force >= 0:
		if err := migrator.Force(cfg.force); err != nil {
			return err
		}
		cmd.Printf("forced schema version to %d\n", cfg.force)
		return nil

	case cfg.steps != 0:
		if err := migrator.Steps(cfg.steps); err != nil {
			return err
		}
		cmd.Printf("applied %d migration step(s)\n", cfg.steps)
		return nil

	case cfg.down:
		if err := migrator.Down(); err != nil {
			return err
		}
		cmd.Println("rolled back all migrations")
		return nil

	default:
		if err := migrator.Up(); err != nil {
			return err
		}
		cmd.Println("migrations completed successfully")
		return nil
	}
}
