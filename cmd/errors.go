/*
 * Copyright 2025 Muhammad Imran Rafique
 * SPDX-License-Identifier: Apache-2.0
 */
package cmd

import "errors"

var (
	errDatabaseURLRequired   = errors.New("database-url is required (set via --database-url or DATABASE_URL env var)")
	errMigrationNameRequired = errors.New("migration name is required")
	errCSRFSecretRequired    = errors.New("CSRF_SECRET is required outside --dev")
	errAPIBaseURLRequired    = errors.New("api-base-url is required (set via --api-base-url or API_BASE_URL env var)")
	errCredentialsRequired   = errors.New("email and password are required (set via flags or COPYAPP_EMAIL/COPYAPP_PASSWORD)")
	errLeaderRequired        = errors.New("leader ID is required")
)
