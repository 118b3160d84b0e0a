/*
 * Copyright 2025 Muhammad Imran Rafique
 * SPDX-License-Identifier: Apache-2.0
 */
package db

import "github.com/muhammadimranrafique/copy-app/logging"

var logger = logging.Logger(logging.SourceDB)
