/*
 * Copyright 2025 Muhammad Imran Rafique
 * SPDX-License-Identifier: Apache-2.0
 */
package utils

import "errors"

var (
	errInvalidUUIDFormat = errors.New("invalid UUID format")
	errInvalidPhone      = errors.New("phone number is not valid")
	errEmptyPhone        = errors.New("phone number is empty")
)
