/*
 * Copyright 2025 Muhammad Imran Rafique
 * SPDX-License-Identifier: Apache-2.0
 */
package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Session traffic is one short read and at most one write per request, so a
// handful of connections is plenty and idle ones are released quickly.
const (
	maxSessionConns    = 4
	connMaxIdleTime    = 5 * time.Minute
	connMaxLifetime    = time.Hour
	healthCheckPeriod  = time.Minute
	duplicateDatabase  = "42P04"
	bootstrapDatabase  = "postgres"
	connectPingTimeout = 10 * time.Second
)

var (
	pool *pgxpool.Pool
	// dsn is the URL the pool was opened with; migrations reuse it.
	dsn string
)

// Init opens the session store pool for databaseURL, creating the database
// first when the server allows it.
func Init(ctx context.Context, databaseURL string) error {
	config, err := poolConfig(databaseURL)
	if err != nil {
		return err
	}

	if err := ensureDatabaseExists(ctx, databaseURL); err != nil {
		return fmt.Errorf("failed to ensure database exists: %w", err)
	}

	p, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return fmt.Errorf("failed to create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, connectPingTimeout)
	defer cancel()
	if err := p.Ping(pingCtx); err != nil {
		p.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	pool = p
	dsn = databaseURL
	logger.Info("Session database connected", "database", config.ConnConfig.Database, "max_conns", config.MaxConns)
	return nil
}

// poolConfig parses databaseURL and sizes the pool for session storage. A
// pool_max_conns given in the URL wins.
func poolConfig(databaseURL string) (*pgxpool.Config, error) {
	if databaseURL == "" {
		return nil, ErrDatabaseURLNotSet
	}

	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}
	if config.ConnConfig.Database == "" {
		return nil, ErrDatabaseNameNotSpecified
	}

	if !strings.Contains(databaseURL, "pool_max_conns") {
		config.MaxConns = maxSessionConns
	}
	config.MinConns = 0
	config.MaxConnIdleTime = connMaxIdleTime
	config.MaxConnLifetime = connMaxLifetime
	config.HealthCheckPeriod = healthCheckPeriod

	return config, nil
}

// GetPool returns the session store pool, nil before Init.
func GetPool() *pgxpool.Pool {
	return pool
}

// Close releases the pool.
func Close() {
	if pool != nil {
		pool.Close()
		pool = nil
	}
}

// ensureDatabaseExists creates the session database on first start. A role
// without CREATEDB is fine as long as the database is already there.
func ensureDatabaseExists(ctx context.Context, databaseURL string) error {
	config, err := pgx.ParseConfig(databaseURL)
	if err != nil {
		return fmt.Errorf("failed to parse database URL: %w", err)
	}

	name := config.Database
	if name == "" {
		return ErrDatabaseNameNotSpecified
	}
	config.Database = bootstrapDatabase

	conn, err := pgx.ConnectConfig(ctx, config)
	if err != nil {
		// Managed servers often refuse the bootstrap database; let the pool
		// connect directly and report the real problem.
		logger.Debug("Skipping database bootstrap", "error", err)
		return nil
	}
	defer func() {
		if err := conn.Close(ctx); err != nil {
			logger.Warn("Failed to close bootstrap database connection", "error", err)
		}
	}()

	var exists bool
	if err := conn.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1)", name).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check if database exists: %w", err)
	}
	if exists {
		return nil
	}

	if _, err := conn.Exec(ctx, "CREATE DATABASE "+pgx.Identifier{name}.Sanitize()); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == duplicateDatabase {
			return nil
		}
		return fmt.Errorf("failed to create database: %w", err)
	}

	logger.Info("Created session database", "database", name)
	return nil
}
