// SPDX-FileCopyrightText: 2025 Muhammad Imran Rafique
// SPDX-License-Identifier: Apache-2.0

package db

import (
	"testing"
	"time"
)

const (
	userOneJSON = `{"id":"user-1","email":"one@example.com","full_name":"User One","role":"admin"}`
	userTwoJSON = `{"id":"user-2","email":"two@example.com","full_name":"","role":"staff"}`
)

func TestPostgresSessionStoreLifecycle(t *testing.T) {
	resetDatabase(t)
	ctx := testContext()

	store, err := PostgresSessionIniter()(ctx, PostgresSessionConfig{Lifetime: time.Hour})
	if err != nil {
		t.Fatalf("PostgresSessionIniter failed: %v", err)
	}
	pgStore := store.(*PostgresSessionStore)

	sess1 := newTestSession("sess1", map[string]interface{}{
		"authenticated":  true,
		"access_token":   "token-1",
		"current_user":   userOneJSON,
		"device_label":   "Linux / Firefox",
		"device_ip":      "127.0.0.1",
		"currencyCode":   "PKR",
		"currencySymbol": "Rs",
	})
	if err := pgStore.Save(ctx, sess1); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if !pgStore.Exist(ctx, "sess1") {
		t.Fatalf("expected session to exist")
	}

	readSess, err := pgStore.Read(ctx, "sess1")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if readSess.Get("access_token") != "token-1" {
		t.Fatalf("expected access token to round trip")
	}
	if readSess.Get("currencyCode") != "PKR" {
		t.Fatalf("expected currency preference to round trip")
	}

	if err := pgStore.Touch(ctx, "sess1"); err != nil {
		t.Fatalf("Touch failed: %v", err)
	}

	missing, err := pgStore.Read(ctx, "unknown")
	if err != nil {
		t.Fatalf("Read of unknown session failed: %v", err)
	}
	if missing.Get("authenticated") != nil {
		t.Fatalf("expected a fresh session for an unknown ID")
	}

	if err := pgStore.Destroy(ctx, "sess1"); err != nil {
		t.Fatalf("Destroy failed: %v", err)
	}
	if pgStore.Exist(ctx, "sess1") {
		t.Fatalf("expected session to be removed")
	}
}

func TestPostgresSessionStoreSignedInDevices(t *testing.T) {
	resetDatabase(t)
	ctx := testContext()

	store, err := PostgresSessionIniter()(ctx, PostgresSessionConfig{Lifetime: time.Hour})
	if err != nil {
		t.Fatalf("PostgresSessionIniter failed: %v", err)
	}
	pgStore := store.(*PostgresSessionStore)

	fixtures := []struct {
		id     string
		values map[string]interface{}
	}{
		{id: "laptop", values: map[string]interface{}{"authenticated": true, "current_user": userOneJSON, "device_label": "Linux / Firefox"}},
		{id: "phone", values: map[string]interface{}{"authenticated": true, "current_user": userOneJSON}},
		{id: "other-user", values: map[string]interface{}{"authenticated": true, "current_user": userTwoJSON}},
		{id: "anonymous", values: map[string]interface{}{"currencyCode": "USD"}},
	}
	for _, fixture := range fixtures {
		if err := pgStore.Save(ctx, newTestSession(fixture.id, fixture.values)); err != nil {
			t.Fatalf("Save %s failed: %v", fixture.id, err)
		}
	}

	all, err := pgStore.ListSignedIn(ctx, "")
	if err != nil {
		t.Fatalf("ListSignedIn failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 authenticated sessions, got %d", len(all))
	}

	mine, err := pgStore.ListSignedIn(ctx, "user-1")
	if err != nil {
		t.Fatalf("ListSignedIn failed: %v", err)
	}
	if len(mine) != 2 {
		t.Fatalf("expected 2 sessions for user-1, got %d", len(mine))
	}
	for _, sess := range mine {
		if sess.UserName != "User One" {
			t.Fatalf("expected user name from session user, got %q", sess.UserName)
		}
		if sess.ID == "phone" && sess.DeviceLabel != "Unknown device" {
			t.Fatalf("expected default device label, got %q", sess.DeviceLabel)
		}
	}

	others, err := pgStore.ListSignedIn(ctx, "user-2")
	if err != nil {
		t.Fatalf("ListSignedIn failed: %v", err)
	}
	if len(others) != 1 || others[0].UserName != "two@example.com" {
		t.Fatalf("expected email fallback for user-2, got %+v", others)
	}

	removed, err := pgStore.SignOutOthers(ctx, "laptop", "user-1")
	if err != nil {
		t.Fatalf("SignOutOthers failed: %v", err)
	}
	if len(removed) != 1 || removed[0] != "phone" {
		t.Fatalf("expected only phone to be removed, got %v", removed)
	}
	if !pgStore.Exist(ctx, "laptop") || !pgStore.Exist(ctx, "other-user") {
		t.Fatalf("expected current and other-user sessions to survive")
	}

	if err := pgStore.GC(ctx); err != nil {
		t.Fatalf("GC failed: %v", err)
	}
}
