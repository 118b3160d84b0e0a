/*
 * Copyright 2025 Muhammad Imran Rafique
 * SPDX-License-Identifier: Apache-2.0
 */
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
)

var (
	ErrBaseURLRequired  = errors.New("api base URL is required")
	ErrIDRequired       = errors.New("id is required")
	ErrMissingToken     = errors.New("login response did not include an access token")
	ErrInvalidJSON      = errors.New("invalid JSON response from server")
	ErrSessionExpired   = errors.New("session expired, please log in again")
	errUnexpectedObject = errors.New("expected a JSON object")
	errUnexpectedList   = errors.New("expected a JSON array")
)

// Kind classifies an error for presentation and retry decisions.
type Kind int

const (
	KindOther Kind = iota
	KindNetwork
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindServer
	KindClient
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindServer:
		return "server"
	case KindClient:
		return "client"
	default:
		return "other"
	}
}

// APIError is returned for every failed backend call. Status is zero when no
// response was received at all.
type APIError struct {
	Status  int
	Message string
	Data    json.RawMessage
	Err     error
}

func (e *APIError) Error() string {
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// Network reports whether the request never got a response.
func (e *APIError) Network() bool {
	return e.Status == 0
}

// Kind classifies the error by HTTP status.
func (e *APIError) Kind() Kind {
	switch {
	case e.Status == 0:
		return KindNetwork
	case e.Status == http.StatusUnauthorized:
		return KindUnauthorized
	case e.Status == http.StatusForbidden:
		return KindForbidden
	case e.Status == http.StatusNotFound:
		return KindNotFound
	case e.Status >= 500:
		return KindServer
	case e.Status >= 400:
		return KindClient
	default:
		return KindOther
	}
}

// KindOf returns the Kind of err, or KindOther when err is not an *APIError.
func KindOf(err error) Kind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind()
	}
	return KindOther
}

// IsUnauthorized reports whether err came from an HTTP 401.
func IsUnauthorized(err error) bool {
	return KindOf(err) == KindUnauthorized
}

// IsNotFound reports whether err came from an HTTP 404.
func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}

// IsRetryable reports whether a failed call may be retried. 401, 403 and 404
// fail fast so the 401 logout path is never delayed; cancelled contexts are
// never retried.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	switch KindOf(err) {
	case KindUnauthorized, KindForbidden, KindNotFound:
		return false
	default:
		return true
	}
}
