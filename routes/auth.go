/*
 * Copyright 2025 Muhammad Imran Rafique
 * SPDX-License-Identifier: Apache-2.0
 */
package routes

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/flamego/flamego"
	"github.com/flamego/session"
	"github.com/flamego/template"

	"github.com/muhammadimranrafique/copy-app/api"
	"github.com/muhammadimranrafique/copy-app/utils"
)

type loginForm struct {
	Email    string `form:"email" validate:"required,email"`
	Password string `form:"password" validate:"required"`
}

// LoginForm renders the login page
func LoginForm(c flamego.Context, s session.Session, t template.Template, data template.Data) {
	if authenticated, _ := s.Get(sessionKeyAuthenticated).(bool); authenticated {
		c.Redirect("/", http.StatusSeeOther)
		return
	}

	data["HeaderOnly"] = true
	data["Next"] = sanitizeNextPath(c.Query("next"))
	t.HTML(http.StatusOK, "login")
}

// Login exchanges the submitted credentials for a backend token, confirms it
// with /auth/me and starts an authenticated session.
func Login(c flamego.Context, s session.Session, b *Backend, broker *Broker) {
	if err := c.Request().ParseForm(); err != nil {
		SetErrorFlash(s, "Failed to parse form")
		c.Redirect("/login", http.StatusSeeOther)
		return
	}

	form := loginForm{
		Email:    strings.TrimSpace(c.Request().Form.Get("email")),
		Password: c.Request().Form.Get("password"),
	}
	next := sanitizeNextPath(c.Request().Form.Get("next"))
	back := "/login"
	if next != "/" {
		back += "?next=" + url.QueryEscape(next)
	}

	if err := utils.ValidateStruct(form); err != nil {
		SetErrorFlash(s, utils.FirstValidationMessage(err))
		c.Redirect(back, http.StatusSeeOther)
		return
	}

	ctx := c.Request().Context()
	result, err := b.API.Login(ctx, form.Email, form.Password)
	if err != nil {
		logAccessDenied(c, s, "login_failed", http.StatusSeeOther, back, "error", err)
		SetErrorFlash(s, loginErrorMessage(err))
		c.Redirect(back, http.StatusSeeOther)
		return
	}

	if expiresAt, err := tokenExpiry(result.Token); err == nil && !time.Now().Before(expiresAt) {
		SetErrorFlash(s, "Login failed: the server issued an expired token")
		c.Redirect(back, http.StatusSeeOther)
		return
	}

	user, err := b.API.WithSession(result.Token, nil).Me(ctx)
	if err == nil && user == nil {
		user = result.User
	}
	if err != nil || user == nil {
		if err == nil {
			err = errSessionUserMissing
		}
		logger.Error("Failed to verify new session", "error", err)
		SetErrorFlash(s, loginErrorMessage(err))
		c.Redirect(back, http.StatusSeeOther)
		return
	}

	previousID := s.ID()
	if err := s.RegenerateID(c.ResponseWriter(), c.Request().Request); err != nil {
		logger.Warn("Failed to rotate session ID on login", "error", err)
	}

	if err := setAuthenticatedSession(s, result.Token, user); err != nil {
		logger.Error("Failed to store session user", "error", err)
		SetErrorFlash(s, "Login failed")
		c.Redirect(back, http.StatusSeeOther)
		return
	}

	logger.Info("User logged in", "user_id", user.ID, "email", user.Email)
	broker.Publish(previousID, Event{Type: EventLogin})
	if s.ID() != previousID {
		broker.Publish(s.ID(), Event{Type: EventLogin})
	}

	c.Redirect(next, http.StatusSeeOther)
}

// loginErrorMessage prefers the backend's own wording for rejected
// credentials; the session-expired text would be wrong on the login page.
func loginErrorMessage(err error) string {
	var apiErr *api.APIError
	if api.IsUnauthorized(err) && errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	if errors.Is(err, api.ErrMissingToken) {
		return "Login failed: " + err.Error()
	}
	return apiErrorMessage(err, "Login failed")
}

// Logout handles logout request
func Logout(c flamego.Context, s session.Session, b *Backend, broker *Broker) {
	if user, err := sessionUser(s); err == nil {
		logger.Info("User logged out", "user_id", user.ID)
	}

	clearAuthenticatedSession(s)
	b.invalidate()
	broker.Publish(s.ID(), Event{Type: EventLogout})
	c.Redirect("/login", http.StatusSeeOther)
}

// RequireAuth is a middleware that checks if user is authenticated. It also
// ends sessions whose token has expired and refreshes a missing user record
// from /auth/me.
func RequireAuth(c flamego.Context, s session.Session, b *Backend) {
	if !b.Authenticated() {
		logAccessDenied(c, s, "unauthenticated", http.StatusSeeOther, "/login")
		c.Redirect(loginRedirect(c), http.StatusSeeOther)
		return
	}

	if sessionExpired(s, time.Now()) {
		logAccessDenied(c, s, "token_expired", http.StatusSeeOther, "/login")
		b.expire(s)
		SetErrorFlash(s, "Session expired. Please log in again.")
		c.Redirect("/login", http.StatusSeeOther)
		return
	}

	if _, err := sessionUser(s); err != nil {
		user, err := b.API.Me(c.Request().Context())
		switch {
		case api.IsUnauthorized(err):
			SetErrorFlash(s, apiErrorMessage(err, "Session expired"))
			c.Redirect("/login", http.StatusSeeOther)
			return
		case err != nil:
			logger.Warn("Failed to refresh session user", "error", err)
		case user != nil:
			if err := setAuthenticatedSession(s, b.API.Token(), user); err != nil {
				logger.Warn("Failed to store refreshed session user", "error", err)
			}
		}
	}

	c.Next()
}

func loginRedirect(c flamego.Context) string {
	if c.Request().Method != http.MethodGet {
		return "/login"
	}
	next := c.Request().URL.RequestURI()
	if next == "" || next == "/" {
		return "/login"
	}
	return "/login?next=" + url.QueryEscape(next)
}

func sanitizeNextPath(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "/"
	}
	if !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") {
		return "/"
	}
	if strings.Contains(raw, "://") || strings.ContainsAny(raw, "\r\n\\") {
		return "/"
	}
	if strings.HasPrefix(raw, "/login") || strings.HasPrefix(raw, "/logout") || strings.HasPrefix(raw, "/events") {
		return "/"
	}
	return raw
}
