/*
 * Copyright 2025 Muhammad Imran Rafique
 * SPDX-License-Identifier: Apache-2.0
 */
package routes

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/flamego/session"
	"github.com/golang-jwt/jwt/v5"

	"github.com/muhammadimranrafique/copy-app/api"
	"github.com/muhammadimranrafique/copy-app/currency"
)

// Session keys. The currency and welcome keys are shared by every tab of a
// browser because they live in the one server-side session.
const (
	sessionKeyAuthenticated  = "authenticated"
	sessionKeyToken          = "access_token"
	sessionKeyUser           = "current_user"
	sessionKeyTokenExpiresAt = "token_expires_at"
	sessionKeyCurrencySymbol = "currencySymbol"
	sessionKeyCurrencyCode   = "currencyCode"
	sessionKeyWelcomeSeen    = "hasSeenWelcome"
)

func sessionToken(s session.Session) string {
	authenticated, _ := s.Get(sessionKeyAuthenticated).(bool)
	if !authenticated {
		return ""
	}
	token, _ := s.Get(sessionKeyToken).(string)
	return token
}

// sessionUser decodes the cached user. It is stored as JSON so the session
// encoder never needs to know about api.User.
func sessionUser(s session.Session) (*api.User, error) {
	raw, ok := s.Get(sessionKeyUser).(string)
	if !ok || raw == "" {
		return nil, errSessionUserMissing
	}

	var user api.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return nil, fmt.Errorf("decode session user: %w", err)
	}
	return &user, nil
}

func setAuthenticatedSession(s session.Session, token string, user *api.User) error {
	encoded, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode session user: %w", err)
	}

	s.Set(sessionKeyAuthenticated, true)
	s.Set(sessionKeyToken, token)
	s.Set(sessionKeyUser, string(encoded))
	if expiresAt, err := tokenExpiry(token); err == nil {
		s.Set(sessionKeyTokenExpiresAt, expiresAt.Unix())
	} else {
		s.Delete(sessionKeyTokenExpiresAt)
	}
	return nil
}

// clearAuthenticatedSession forgets the credentials but keeps the currency
// preference, which belongs to the browser rather than the user.
func clearAuthenticatedSession(s session.Session) {
	s.Delete(sessionKeyAuthenticated)
	s.Delete(sessionKeyToken)
	s.Delete(sessionKeyUser)
	s.Delete(sessionKeyTokenExpiresAt)
	s.Delete(sessionKeyWelcomeSeen)
}

// sessionExpired reports whether the token's exp claim has passed. Tokens
// without a readable exp never expire locally; the backend still decides.
func sessionExpired(s session.Session, now time.Time) bool {
	expiresAt, ok := s.Get(sessionKeyTokenExpiresAt).(int64)
	if !ok || expiresAt == 0 {
		return false
	}
	return !now.Before(time.Unix(expiresAt, 0))
}

// tokenExpiry reads the exp claim without verifying the signature. The
// backend owns the signing key; this only lets the session end on time.
func tokenExpiry(token string) (time.Time, error) {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %w", errTokenUnreadable, err)
	}

	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %w", errTokenUnreadable, err)
	}
	if exp == nil {
		return time.Time{}, errTokenUnreadable
	}
	return exp.Time, nil
}

func sessionCurrency(s session.Session) currency.Preference {
	code, _ := s.Get(sessionKeyCurrencyCode).(string)
	symbol, _ := s.Get(sessionKeyCurrencySymbol).(string)
	return currency.NewPreference(code, symbol)
}

func setSessionCurrency(s session.Session, pref currency.Preference) {
	s.Set(sessionKeyCurrencyCode, pref.Code)
	s.Set(sessionKeyCurrencySymbol, pref.Symbol)
}

func sessionFormatter(s session.Session) *currency.Formatter {
	return currency.New(sessionCurrency(s))
}
