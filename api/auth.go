/*
 * Copyright 2025 Muhammad Imran Rafique
 * SPDX-License-Identifier: Apache-2.0
 */
package api

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

// LoginResult is the outcome of a successful login.
type LoginResult struct {
	Token     string
	TokenType string
	User      *User
}

// Login exchanges credentials for a bearer token. A 401 here means bad
// credentials and never triggers the session-expired hook.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	form := url.Values{}
	form.Set("username", strings.TrimSpace(email))
	form.Set("password", password)

	raw, err := c.do(ctx, request{method: http.MethodPost, path: "/auth/login", form: form, anonymous: true})
	if err != nil {
		return nil, err
	}
	o, err := decodeObject(raw)
	if err != nil {
		return nil, decodeErr("/auth/login", err)
	}

	result := &LoginResult{
		Token:     o.str("access_token", "accessToken", "token"),
		TokenType: o.str("token_type", "tokenType"),
	}
	if result.Token == "" {
		return nil, ErrMissingToken
	}
	if result.TokenType == "" {
		result.TokenType = "bearer"
	}
	if o.has("user") {
		user := toUser(o.child("user"))
		result.User = &user
	}
	return result, nil
}

// Me returns the user the client's token belongs to.
func (c *Client) Me(ctx context.Context) (*User, error) {
	raw, err := c.do(ctx, request{method: http.MethodGet, path: "/auth/me"})
	if err != nil {
		return nil, err
	}
	user, err := mapOne(raw, toUser)
	return user, decodeErr("/auth/me", err)
}
