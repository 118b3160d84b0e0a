/*
 * Copyright 2025 Muhammad Imran Rafique
 * SPDX-License-Identifier: Apache-2.0
 */
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/muhammadimranrafique/copy-app/logging"
)

const (
	// DefaultBaseURL is used when no API_BASE_URL is configured.
	DefaultBaseURL = "http://127.0.0.1:8080/api/v1"
	DefaultTimeout = 30 * time.Second
	maxErrorBody   = 1 << 20

	sessionExpiredMessage = "Session expired. Please log in again."
)

var tracer = otel.Tracer("github.com/muhammadimranrafique/copy-app/api")

// Config holds the backend connection settings.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client talks to the REST backend. A Client without a token is only useful
// for Login; use WithSession to get one bound to a user.
type Client struct {
	baseURL        string
	http           *http.Client
	token          string
	onUnauthorized func()
}

// New builds a Client from cfg.
func New(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, ErrBaseURLRequired
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("invalid api base URL %q: %w", base, err)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{baseURL: base, http: httpClient}, nil
}

// WithSession returns a copy of c that sends token as a bearer credential and
// calls onUnauthorized whenever the backend answers 401.
func (c *Client) WithSession(token string, onUnauthorized func()) *Client {
	clone := *c
	clone.token = token
	clone.onUnauthorized = onUnauthorized
	return &clone
}

// Token returns the bearer token the client was bound to.
func (c *Client) Token() string {
	return c.token
}

// BaseURL returns the configured backend base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

type request struct {
	method string
	path   string
	query  url.Values
	body   any
	form   url.Values
	// anonymous requests carry no token and report 401 as a plain error.
	anonymous bool
}

func (c *Client) newRequest(ctx context.Context, r request) (*http.Request, error) {
	target := c.baseURL + r.path
	if len(r.query) > 0 {
		target += "?" + r.query.Encode()
	}

	var body io.Reader
	contentType := ""
	switch {
	case r.form != nil:
		body = strings.NewReader(r.form.Encode())
		contentType = "application/x-www-form-urlencoded"
	case r.body != nil:
		payload, err := json.Marshal(r.body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(payload)
		contentType = "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, r.method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))
	if !r.anonymous && c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

// send performs r and returns the response for a 2xx status. Every other
// outcome is converted into an *APIError here and nowhere else.
func (c *Client) send(ctx context.Context, r request) (*http.Response, trace.Span, error) {
	ctx, span := tracer.Start(ctx, r.method+" "+r.path,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", r.method),
			attribute.String("url.path", r.path),
		))

	req, err := c.newRequest(ctx, r)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.End()
		return nil, nil, err
	}

	logger := logging.Logger(logging.SourceAPI)
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		logger.Warn("Backend request failed", "method", r.method, "path", r.path, "duration", time.Since(start), "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "network error")
		span.End()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, nil, &APIError{Message: "Request cancelled", Err: ctxErr}
		}
		return nil, nil, &APIError{Message: "Network error: " + err.Error(), Err: err}
	}

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	logger.Debug("Backend request", "method", r.method, "path", r.path, "status", resp.StatusCode,
		"duration", time.Since(start), "request_id", req.Header.Get("X-Request-ID"))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, span, nil
	}

	defer resp.Body.Close()
	apiErr := c.errorFromResponse(resp, r.anonymous)
	span.SetStatus(codes.Error, apiErr.Message)
	span.End()
	return nil, nil, apiErr
}

func (c *Client) errorFromResponse(resp *http.Response, anonymous bool) *APIError {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	apiErr := &APIError{Status: resp.StatusCode}

	if resp.StatusCode == http.StatusUnauthorized && !anonymous {
		if c.onUnauthorized != nil {
			c.onUnauthorized()
		}
		apiErr.Message = sessionExpiredMessage
		apiErr.Err = ErrSessionExpired
		return apiErr
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && json.Valid(trimmed) {
		apiErr.Data = json.RawMessage(trimmed)
		if o, err := decodeObject(trimmed); err == nil {
			apiErr.Message = errorDetail(o)
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = fmt.Sprintf("Server error: %s", statusText(resp))
	}
	return apiErr
}

func statusText(resp *http.Response) string {
	if resp.Status != "" {
		return resp.Status
	}
	return fmt.Sprintf("%d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
}

// do performs r and returns the raw JSON body. A 204 or an empty body yields
// nil with no error.
func (c *Client) do(ctx context.Context, r request) (json.RawMessage, error) {
	resp, span, err := c.send(ctx, r)
	if err != nil {
		return nil, err
	}
	defer span.End()
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		span.RecordError(err)
		return nil, &APIError{Status: resp.StatusCode, Message: "Network error: " + err.Error(), Err: err}
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}
	if !json.Valid(data) {
		span.SetStatus(codes.Error, "invalid json")
		return nil, &APIError{Status: resp.StatusCode, Message: ErrInvalidJSON.Error(), Err: ErrInvalidJSON}
	}
	return json.RawMessage(data), nil
}

// download performs r and hands the body to the caller unread.
func (c *Client) download(ctx context.Context, r request, fallbackName string) (*Download, error) {
	resp, span, err := c.send(ctx, r)
	if err != nil {
		return nil, err
	}
	span.End()

	filename := fallbackName
	if disposition := resp.Header.Get("Content-Disposition"); disposition != "" {
		if _, params, err := mime.ParseMediaType(disposition); err == nil && params["filename"] != "" {
			filename = params["filename"]
		}
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	return &Download{Body: resp.Body, ContentType: contentType, Filename: filename}, nil
}

func pathID(prefix, id string, suffix ...string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", ErrIDRequired
	}
	p := prefix + url.PathEscape(id)
	for _, s := range suffix {
		p += s
	}
	return p, nil
}

// decodeErr tags a decoding failure with the endpoint that produced it.
func decodeErr(path string, err error) error {
	if err == nil {
		return nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return err
	}
	return &APIError{Status: http.StatusOK, Message: fmt.Sprintf("unexpected response from %s", path), Err: err}
}
