/*
 * Copyright 2025 Muhammad Imran Rafique
 * SPDX-License-Identifier: Apache-2.0
 */
package routes

import (
	"errors"
	"net/http"

	"github.com/flamego/flamego"
	"github.com/flamego/session"
	"github.com/flamego/template"

	"github.com/muhammadimranrafique/copy-app/api"
)

// apiErrorMessage turns a backend failure into a message for the user.
// fallback is used when the backend gave no usable detail.
func apiErrorMessage(err error, fallback string) string {
	switch api.KindOf(err) {
	case api.KindUnauthorized:
		return "Session expired. Please log in again."
	case api.KindForbidden:
		return "You do not have permission to do that"
	case api.KindNotFound:
		return "That record was already deleted or is missing"
	case api.KindServer:
		return "Server error, please try again later"
	case api.KindNetwork:
		return "Network issue, check your connection"
	}

	var apiErr *api.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

// redirectOnAPIError handles a failed mutation. A 401 always wins and sends
// the browser to the login page; anything else flashes and redirects to back.
func redirectOnAPIError(c flamego.Context, s session.Session, b *Backend, err error, fallback, back string) {
	if api.IsUnauthorized(err) {
		b.expire(s)
		SetErrorFlash(s, apiErrorMessage(err, fallback))
		c.Redirect("/login", http.StatusSeeOther)
		return
	}

	logger.Error(fallback, "error", err, "status", api.KindOf(err).String())
	SetErrorFlash(s, apiErrorMessage(err, fallback))
	c.Redirect(back, http.StatusSeeOther)
}

// loadFailed records a failed page load in data. It returns true when the
// session is gone and the caller must stop rendering.
func loadFailed(c flamego.Context, s session.Session, b *Backend, data template.Data, err error, fallback string) bool {
	if err == nil {
		return false
	}
	if api.IsUnauthorized(err) {
		b.expire(s)
		SetErrorFlash(s, apiErrorMessage(err, fallback))
		c.Redirect("/login", http.StatusSeeOther)
		return true
	}

	logger.Error(fallback, "error", err, "status", api.KindOf(err).String())
	if data["Error"] == nil {
		data["Error"] = apiErrorMessage(err, fallback)
	}
	return false
}
