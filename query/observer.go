/*
 * Copyright 2025 Muhammad Imran Rafique
 * SPDX-License-Identifier: Apache-2.0
 */
package query

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Producer loads the value for one query.
type Producer[T any] func(ctx context.Context) (T, error)

// Options control a single Observer. The zero value is ready, enabled and
// uses the Client's defaults.
type Options[T any] struct {
	// IsReady gates the producer, typically on the session being
	// authenticated. A nil IsReady is always ready.
	IsReady func() bool
	// Disabled turns the observer off regardless of IsReady.
	Disabled  bool
	OnSuccess func(T)
	OnError   func(error)
	// RetryCount overrides the Client's retry budget. Use NoRetry to fail on
	// the first error.
	RetryCount int
	StaleTime  time.Duration
	Retryable  func(error) bool
}

// State is a snapshot of an Observer.
type State[T any] struct {
	Data      T
	HasData   bool
	Loading   bool
	Err       error
	UpdatedAt time.Time
}

// Observer tracks one query for one consumer, usually a page render. Only the
// most recent call on an Observer may update its state.
type Observer[T any] struct {
	client *Client
	opts   Options[T]

	mu       sync.Mutex
	key      Key
	producer Producer[T]
	state    State[T]
	gen      uint64
	closed   bool
}

// NewObserver binds producer to key on client.
func NewObserver[T any](client *Client, key Key, producer Producer[T], opts Options[T]) *Observer[T] {
	return &Observer[T]{
		client:   client,
		opts:     opts,
		key:      append(Key(nil), key...),
		producer: producer,
	}
}

// Fetch returns the cached value when fresh, and otherwise loads it.
func (o *Observer[T]) Fetch(ctx context.Context) State[T] {
	return o.load(ctx, false)
}

// Refetch loads the value even when a fresh one is cached and replaces the
// cached copy on success.
func (o *Observer[T]) Refetch(ctx context.Context) State[T] {
	return o.load(ctx, true)
}

// SetProducer rebinds the observer to a new key. Loads still in flight for
// the previous key are discarded.
func (o *Observer[T]) SetProducer(key Key, producer Producer[T]) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.key = append(Key(nil), key...)
	o.producer = producer
	o.gen++
	o.state = State[T]{}
}

// State returns the current snapshot without loading.
func (o *Observer[T]) State() State[T] {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Close stops the observer. Nothing is written to its state afterwards.
func (o *Observer[T]) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closed = true
	o.gen++
	o.state.Loading = false
}

func (o *Observer[T]) ready() bool {
	if o.opts.Disabled {
		return false
	}
	return o.opts.IsReady == nil || o.opts.IsReady()
}

func (o *Observer[T]) load(ctx context.Context, force bool) State[T] {
	o.mu.Lock()
	if o.closed {
		s := o.state
		o.mu.Unlock()
		return s
	}
	if !o.ready() {
		o.gen++
		o.state = State[T]{}
		s := o.state
		o.mu.Unlock()
		return s
	}
	if o.producer == nil {
		o.state = State[T]{Err: ErrNoProducer}
		s := o.state
		o.mu.Unlock()
		return s
	}
	o.gen++
	gen := o.gen
	key := o.key
	producer := o.producer
	o.state.Loading = true
	o.mu.Unlock()

	value, fetchedAt, err := o.client.fetch(ctx, call{
		key:   key,
		force: force,
		fn: func(ctx context.Context) (any, error) {
			return producer(ctx)
		},
		staleTime: o.opts.StaleTime,
		retries:   o.opts.RetryCount,
		retryable: o.opts.Retryable,
	})

	var data T
	hasData := false
	if value != nil {
		typed, ok := value.(T)
		if !ok {
			err = fmt.Errorf("%w: key %v holds %T", ErrTypeMismatch, key, value)
		} else {
			data, hasData = typed, true
		}
	}

	o.mu.Lock()
	if o.closed || gen != o.gen {
		s := o.state
		o.mu.Unlock()
		return s
	}
	o.state.Loading = false
	o.state.Err = err
	if hasData {
		o.state.Data = data
		o.state.HasData = true
		o.state.UpdatedAt = fetchedAt
	}
	s := o.state
	o.mu.Unlock()

	if err != nil {
		if o.opts.OnError != nil {
			o.opts.OnError(err)
		}
	} else if o.opts.OnSuccess != nil {
		o.opts.OnSuccess(s.Data)
	}
	return s
}

// Get is a one-shot Fetch for callers that do not keep an Observer around.
func Get[T any](ctx context.Context, client *Client, key Key, producer Producer[T], opts Options[T]) State[T] {
	o := NewObserver(client, key, producer, opts)
	defer o.Close()
	return o.Fetch(ctx)
}
