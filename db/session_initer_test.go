// SPDX-FileCopyrightText: 2025 Muhammad Imran Rafique
// SPDX-License-Identifier: Apache-2.0

package db

import (
	"errors"
	"testing"
	"time"

	"github.com/flamego/session"
)

func TestPostgresSessionIniterDefaults(t *testing.T) {
	t.Parallel()

	initer := PostgresSessionIniter()
	store, err := initer(testContext())
	if err != nil {
		t.Fatalf("PostgresSessionIniter failed: %v", err)
	}

	pgStore, ok := store.(*PostgresSessionStore)
	if !ok {
		t.Fatalf("expected PostgresSessionStore")
	}
	if pgStore.config.TableName != "flamego_sessions" {
		t.Fatalf("expected default table name, got %q", pgStore.config.TableName)
	}
	if pgStore.config.Lifetime != 7*24*time.Hour {
		t.Fatalf("expected default lifetime, got %v", pgStore.config.Lifetime)
	}
	if pgStore.encoder == nil || pgStore.decoder == nil {
		t.Fatalf("expected encoder and decoder to be set")
	}
}

func TestPostgresSessionIniterKeepsConfig(t *testing.T) {
	t.Parallel()

	initer := PostgresSessionIniter()
	store, err := initer(testContext(), PostgresSessionConfig{Lifetime: time.Hour, TableName: "browser_sessions"})
	if err != nil {
		t.Fatalf("PostgresSessionIniter failed: %v", err)
	}

	pgStore := store.(*PostgresSessionStore)
	if pgStore.config.Lifetime != time.Hour {
		t.Fatalf("expected lifetime to be kept, got %v", pgStore.config.Lifetime)
	}
	if pgStore.config.TableName != "browser_sessions" {
		t.Fatalf("expected table name to be kept, got %q", pgStore.config.TableName)
	}
}

func TestPostgresSessionIniterInvalidConfig(t *testing.T) {
	t.Parallel()

	initer := PostgresSessionIniter()
	_, err := initer(testContext(), "invalid")
	if !errors.Is(err, errInvalidSessionConfig) {
		t.Fatalf("expected invalid config error, got %v", err)
	}
}

func TestStringValue(t *testing.T) {
	t.Parallel()

	data := session.Data{"device_label": "Linux / Firefox", "device_ip": "", "other": 42}

	tests := []struct {
		key  string
		want string
	}{
		{key: "device_label", want: "Linux / Firefox"},
		{key: "device_ip", want: "fallback"},
		{key: "other", want: "fallback"},
		{key: "missing", want: "fallback"},
	}

	for _, tt := range tests {
		if got := stringValue(data, tt.key, "fallback"); got != tt.want {
			t.Fatalf("stringValue(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestListSignedInWithoutPool(t *testing.T) {
	if pool != nil {
		t.Skip("database pool is initialized")
	}

	store := &PostgresSessionStore{config: PostgresSessionConfig{TableName: "flamego_sessions"}, decoder: session.GobDecoder}
	if _, err := store.ListSignedIn(testContext(), ""); !errors.Is(err, ErrDatabaseConnectionNotInitialized) {
		t.Fatalf("expected connection error, got %v", err)
	}
}
