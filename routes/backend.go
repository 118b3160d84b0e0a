/*
 * Copyright 2025 Muhammad Imran Rafique
 * SPDX-License-Identifier: Apache-2.0
 */
package routes

import (
	"context"
	"encoding/hex"
	"sync"

	"github.com/flamego/flamego"
	"github.com/flamego/session"
	"golang.org/x/crypto/blake2b"

	"github.com/muhammadimranrafique/copy-app/api"
	"github.com/muhammadimranrafique/copy-app/query"
)

// Services are the process-wide dependencies shared by every request.
type Services struct {
	API    *api.Client
	Query  *query.Client
	Events *Broker
}

// Backend is Services bound to one request's session. Handlers receive it
// through injection.
type Backend struct {
	API *api.Client

	query     *query.Client
	events    *Broker
	scope     string
	sessionID string
	expired   sync.Once
}

// BindBackend maps a session-bound *Backend into every request. A 401 from
// any backend call made through it clears the session.
func BindBackend(svc *Services) flamego.Handler {
	return func(c flamego.Context, s session.Session) {
		c.Map(svc.bind(s))
		c.Next()
	}
}

func (svc *Services) bind(s session.Session) *Backend {
	token := sessionToken(s)
	b := &Backend{
		query:     svc.Query,
		events:    svc.Events,
		scope:     cacheScope(token),
		sessionID: s.ID(),
	}
	b.API = svc.API.WithSession(token, func() { b.expire(s) })
	return b
}

// Authenticated reports whether the request carries a token.
func (b *Backend) Authenticated() bool {
	return b.API.Token() != ""
}

func (b *Backend) expire(s session.Session) {
	b.expired.Do(func() {
		logger.Info("Backend rejected session token", "session", shortID(b.sessionID))
		clearAuthenticatedSession(s)
		b.query.Invalidate(b.scope)
		b.events.Publish(b.sessionID, Event{Type: EventLogout})
	})
}

// publish notifies the other tabs of this session.
func (b *Backend) publish(t EventType) {
	b.events.Publish(b.sessionID, Event{Type: t})
}

// cacheScope namespaces cached queries per token so two users never see each
// other's data. The token itself is never used as a key.
func cacheScope(token string) string {
	if token == "" {
		return "anonymous"
	}
	sum := blake2b.Sum256([]byte(token))
	return hex.EncodeToString(sum[:16])
}

func (b *Backend) key(parts ...string) query.Key {
	return append(query.Key{b.scope}, parts...)
}

// invalidate drops this user's cached queries under parts.
func (b *Backend) invalidate(parts ...string) {
	b.query.Invalidate(b.key(parts...)...)
}

// load runs producer through the shared query cache under this user's scope.
// Nothing is fetched for an unauthenticated session.
func load[T any](ctx context.Context, b *Backend, producer query.Producer[T], key ...string) query.State[T] {
	return query.Get(ctx, b.query, b.key(key...), producer, query.Options[T]{
		IsReady: b.Authenticated,
	})
}

// refetch is load that ignores a fresh cached value.
func refetch[T any](ctx context.Context, b *Backend, producer query.Producer[T], key ...string) query.State[T] {
	o := query.NewObserver(b.query, b.key(key...), producer, query.Options[T]{
		IsReady: b.Authenticated,
	})
	defer o.Close()
	return o.Refetch(ctx)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
