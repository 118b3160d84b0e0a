/*
 * Copyright 2025 Muhammad Imran Rafique
 * SPDX-License-Identifier: Apache-2.0
 */
package query

import "errors"

var (
	ErrPanic        = errors.New("query producer panicked")
	ErrTypeMismatch = errors.New("cached value has a different type")
	ErrNoProducer   = errors.New("query has no producer")
)
