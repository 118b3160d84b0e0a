/*
 * Copyright 2025 Muhammad Imran Rafique
 * SPDX-License-Identifier: Apache-2.0
 */
package db

import "errors"

var (
	ErrDatabaseURLNotSet                = errors.New("database URL is not set")
	ErrDatabaseNameNotSpecified         = errors.New("database name not specified in database URL")
	ErrDatabaseConnectionNotInitialized = errors.New("database connection not initialized")
	errInvalidSessionConfig             = errors.New("invalid PostgresSessionConfig")
)
