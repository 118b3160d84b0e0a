/*
 * Copyright 2025 Muhammad Imran Rafique
 * SPDX-License-Identifier: Apache-2.0
 */
package cmd

import "github.com/muhammadimranrafique/copy-app/logging"

var appLogger = logging.Logger(logging.SourceApp)
var cliLogger = logging.Logger(logging.SourceCLI)
var requestStdLogger = logging.StdLogger(logging.SourceWebRequest)
