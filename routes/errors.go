/*
 * Copyright 2025 Muhammad Imran Rafique
 * SPDX-License-Identifier: Apache-2.0
 */
package routes

import "errors"

var (
	errMissingDate        = errors.New("missing date")
	errInvalidDate        = errors.New("invalid date")
	errSessionUserMissing = errors.New("session user missing")
	errInvalidQuantity    = errors.New("quantity must be a whole number")
	errStreamUnsupported  = errors.New("response writer does not support streaming")
	errTokenUnreadable    = errors.New("access token is not a readable JWT")
)
