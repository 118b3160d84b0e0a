// SPDX-FileCopyrightText: 2025 Muhammad Imran Rafique
// SPDX-License-Identifier: Apache-2.0

package db

import (
	"context"
	"net/http"
	"testing"

	"github.com/flamego/session"
)

func testContext() context.Context {
	return context.Background()
}

// requireDatabase skips tests that need Postgres when DATABASE_URL is unset.
func requireDatabase(t *testing.T) {
	t.Helper()
	if testSchemaName == "" || pool == nil {
		t.Skip("DATABASE_URL not set")
	}
}

func newTestSession(id string, values map[string]interface{}) session.Session {
	noopWriter := func(_ http.ResponseWriter, _ *http.Request, _ string) {}
	sess := session.NewBaseSession(id, session.GobEncoder, noopWriter)
	for key, value := range values {
		sess.Set(key, value)
	}
	return sess
}
