/*
 * Copyright 2025 Muhammad Imran Rafique
 * SPDX-License-Identifier: Apache-2.0
 */
package query

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/singleflight"

	"github.com/muhammadimranrafique/copy-app/logging"
)

const (
	DefaultStaleTime  = 5 * time.Minute
	DefaultGCTime     = 30 * time.Minute
	DefaultMaxEntries = 1024
	DefaultRetryCount = 3
	DefaultBaseDelay  = time.Second
	DefaultMaxDelay   = 30 * time.Second

	// NoRetry disables retries for one observer.
	NoRetry = -1

	keySeparator = "\x1f"
)

// Config tunes a Client. Zero values fall back to the defaults above.
type Config struct {
	// StaleTime is how long a cached value is served without refetching.
	StaleTime time.Duration
	// GCTime is how long a value stays in memory after it was stored.
	GCTime     time.Duration
	MaxEntries int
	RetryCount int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	// Retryable decides whether a failed call is worth another attempt.
	Retryable func(error) bool
}

func (cfg Config) withDefaults() Config {
	if cfg.StaleTime <= 0 {
		cfg.StaleTime = DefaultStaleTime
	}
	if cfg.GCTime <= 0 {
		cfg.GCTime = DefaultGCTime
	}
	if cfg.GCTime < cfg.StaleTime {
		cfg.GCTime = cfg.StaleTime
	}
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = DefaultMaxEntries
	}
	if cfg.RetryCount == 0 {
		cfg.RetryCount = DefaultRetryCount
	}
	if cfg.RetryCount < 0 {
		cfg.RetryCount = 0
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = DefaultBaseDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = DefaultMaxDelay
	}
	if cfg.Retryable == nil {
		cfg.Retryable = func(err error) bool { return err != nil }
	}
	return cfg
}

// Key identifies a cached query. Keys are compared part by part, so
// Key{"u1", "orders"} is a prefix of Key{"u1", "orders", "o7"}.
type Key []string

func (k Key) String() string {
	return strings.Join(k, keySeparator)
}

type entry struct {
	value     any
	fetchedAt time.Time
}

// Client caches query results for the whole process. It is safe for
// concurrent use.
type Client struct {
	cfg    Config
	cache  *expirable.LRU[string, entry]
	group  singleflight.Group
	epoch  atomic.Uint64
	logger *log.Logger
	now    func() time.Time
}

// NewClient creates a Client.
func NewClient(cfg Config) *Client {
	cfg = cfg.withDefaults()
	return &Client{
		cfg:    cfg,
		cache:  expirable.NewLRU[string, entry](cfg.MaxEntries, nil, cfg.GCTime),
		logger: logging.Logger(logging.SourceQuery),
		now:    time.Now,
	}
}

// Config returns the effective configuration.
func (c *Client) Config() Config {
	return c.cfg
}

// Invalidate drops every cached key that starts with prefix. An empty prefix
// drops everything.
func (c *Client) Invalidate(prefix ...string) int {
	c.epoch.Add(1)
	if len(prefix) == 0 {
		n := c.cache.Len()
		c.cache.Purge()
		return n
	}

	want := Key(prefix).String()
	removed := 0
	for _, k := range c.cache.Keys() {
		if k == want || strings.HasPrefix(k, want+keySeparator) {
			if c.cache.Remove(k) {
				removed++
			}
		}
	}
	if removed > 0 {
		c.logger.Debug("Invalidated queries", "prefix", strings.Join(prefix, "/"), "count", removed)
	}
	return removed
}

// Purge drops every cached value.
func (c *Client) Purge() {
	c.Invalidate()
}

// Len reports how many values are cached.
func (c *Client) Len() int {
	return c.cache.Len()
}

// Peek returns a cached value regardless of freshness.
func (c *Client) Peek(key Key) (any, time.Time, bool) {
	e, ok := c.cache.Get(key.String())
	if !ok {
		return nil, time.Time{}, false
	}
	return e.value, e.fetchedAt, true
}

type call struct {
	key       Key
	fn        func(context.Context) (any, error)
	force     bool
	staleTime time.Duration
	retries   int
	retryable func(error) bool
}

type result struct {
	value     any
	fetchedAt time.Time
}

// fetch serves call from the cache when fresh, and otherwise runs it once
// for all concurrent callers. On failure the last cached value, if any, is
// returned alongside the error.
func (c *Client) fetch(ctx context.Context, cl call) (any, time.Time, error) {
	k := cl.key.String()
	if cl.staleTime <= 0 {
		cl.staleTime = c.cfg.StaleTime
	}

	cached, hasCached := c.cache.Get(k)
	if !cl.force && hasCached && c.now().Sub(cached.fetchedAt) < cl.staleTime {
		return cached.value, cached.fetchedAt, nil
	}

	flightKey := k
	if cl.force {
		flightKey = "refetch" + keySeparator + k
	}

	ch := c.group.DoChan(flightKey, func() (any, error) {
		return c.run(context.WithoutCancel(ctx), k, cl)
	})

	select {
	case <-ctx.Done():
		return nil, time.Time{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			if hasCached {
				return cached.value, cached.fetchedAt, res.Err
			}
			return nil, time.Time{}, res.Err
		}
		r := res.Val.(result)
		return r.value, r.fetchedAt, nil
	}
}

func (c *Client) run(ctx context.Context, k string, cl call) (result, error) {
	retryable := cl.retryable
	if retryable == nil {
		retryable = c.cfg.Retryable
	}
	retries := cl.retries
	switch {
	case retries == 0:
		retries = c.cfg.RetryCount
	case retries < 0:
		retries = 0
	}

	epoch := c.epoch.Load()
	backoff := retry.WithMaxRetries(uint64(retries),
		retry.WithCappedDuration(c.cfg.MaxDelay, retry.NewExponential(c.cfg.BaseDelay)))

	attempt := 0
	var value any
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		v, err := safeCall(ctx, cl.fn)
		if err != nil {
			if retryable(err) && attempt <= retries {
				c.logger.Warn("Query failed, retrying", "key", strings.Join(cl.key, "/"), "attempt", attempt, "error", err)
				return retry.RetryableError(err)
			}
			return err
		}
		value = v
		return nil
	})
	if err != nil {
		c.logger.Debug("Query failed", "key", strings.Join(cl.key, "/"), "attempts", attempt, "error", err)
		return result{}, err
	}

	r := result{value: value, fetchedAt: c.now()}
	// An invalidation during the call means the value may already be stale.
	if c.epoch.Load() == epoch {
		c.cache.Add(k, entry{value: r.value, fetchedAt: r.fetchedAt})
	}
	return r, nil
}

func safeCall(ctx context.Context, fn func(context.Context) (any, error)) (v any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()
	return fn(ctx)
}

// IsPanic reports whether err came from a recovered producer panic.
func IsPanic(err error) bool {
	return errors.Is(err, ErrPanic)
}
