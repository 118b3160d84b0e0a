/*
 * Copyright 2025 Muhammad Imran Rafique
 * SPDX-License-Identifier: Apache-2.0
 */
package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pressly/goose/v3"
	"github.com/urfave/cli/v3"

	"github.com/muhammadimranrafique/copy-app/db"
)

// migrationsSourceDir is where `migrate create` writes new files. They are
// embedded into the binary on the next build.
var migrationsSourceDir = filepath.Join("db", db.MigrationsDir)

var CmdMigrate = &cli.Command{
	Name:  "migrate",
	Usage: "Manage the session store schema",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "database-url",
			Sources: cli.EnvVars("DATABASE_URL"),
			Usage:   "PostgreSQL connection string of the session store",
		},
	},
	Commands: []*cli.Command{
		{
			Name:   "up",
			Usage:  "Apply pending session migrations",
			Action: withMigrations(migrateUp),
		},
		{
			Name:   "down",
			Usage:  "Roll back the last session migration",
			Action: withMigrations(migrateDown),
		},
		{
			Name:   "status",
			Usage:  "List session migrations and whether they are applied",
			Action: withMigrations(migrateStatus),
		},
		{
			Name:   "version",
			Usage:  "Print the applied session schema version",
			Action: withMigrations(migrateVersion),
		},
		{
			Name:      "create",
			Usage:     "Add an empty SQL migration to the source tree",
			ArgsUsage: "<name>",
			Action:    migrateCreate,
		},
	},
}

type migrationAction func(ctx context.Context, sqlDB *sql.DB) error

// withMigrations opens the session database named by --database-url for the
// length of one subcommand.
func withMigrations(action migrationAction) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		databaseURL := cmd.String("database-url")
		if databaseURL == "" {
			return errDatabaseURLRequired
		}

		sqlDB, err := db.OpenMigrations(ctx, databaseURL)
		if err != nil {
			return err
		}
		defer func() {
			if err := sqlDB.Close(); err != nil {
				cliLogger.Warn("Failed to close migration connection", "error", err)
			}
		}()

		return action(ctx, sqlDB)
	}
}

func migrateUp(ctx context.Context, sqlDB *sql.DB) error {
	if err := goose.UpContext(ctx, sqlDB, db.MigrationsDir); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return migrateVersion(ctx, sqlDB)
}

func migrateDown(ctx context.Context, sqlDB *sql.DB) error {
	if err := goose.DownContext(ctx, sqlDB, db.MigrationsDir); err != nil {
		return fmt.Errorf("failed to roll back migration: %w", err)
	}
	cliLogger.Warn("Rolled back one migration; signed-in sessions may be lost")
	return migrateVersion(ctx, sqlDB)
}

func migrateStatus(ctx context.Context, sqlDB *sql.DB) error {
	if err := goose.StatusContext(ctx, sqlDB, db.MigrationsDir); err != nil {
		return fmt.Errorf("failed to get migration status: %w", err)
	}
	return nil
}

func migrateVersion(ctx context.Context, sqlDB *sql.DB) error {
	version, err := goose.GetDBVersionContext(ctx, sqlDB)
	if err != nil {
		return fmt.Errorf("failed to get database version: %w", err)
	}
	cliLogger.Info("Session schema version", "version", version)
	return nil
}

func migrateCreate(_ context.Context, cmd *cli.Command) error {
	name := cmd.Args().First()
	if name == "" {
		return errMigrationNameRequired
	}

	if err := os.MkdirAll(migrationsSourceDir, 0o755); err != nil {
		return fmt.Errorf("failed to create migrations directory: %w", err)
	}
	if err := goose.Create(nil, migrationsSourceDir, name, "sql"); err != nil {
		return fmt.Errorf("failed to create migration: %w", err)
	}

	cliLogger.Info("Created migration; rebuild to embed it", "dir", migrationsSourceDir, "name", name)
	return nil
}
