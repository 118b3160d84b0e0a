/*
 * Copyright 2025 Muhammad Imran Rafique
 * SPDX-License-Identifier: Apache-2.0
 */
package routes

import (
	"net/http"
	"sync"
	"time"

	"github.com/flamego/flamego"
	"github.com/flamego/session"
	"github.com/google/uuid"
)

// EventType names a session-wide change other tabs must react to.
type EventType string

const (
	EventLogin    EventType = "login"
	EventLogout   EventType = "logout"
	EventCurrency EventType = "currency"
	EventSettings EventType = "settings"
)

const (
	eventBuffer       = 8
	eventKeepAlive    = 25 * time.Second
	eventRetryMillis  = "5000"
	eventStreamHeader = "text/event-stream"
)

// Event is delivered to every open tab of one browser session.
type Event struct {
	Type EventType
}

// Broker fans session events out to the SSE streams of that session. It is
// safe for concurrent use.
type Broker struct {
	mu   sync.Mutex
	subs map[string]map[string]chan Event
}

// NewBroker creates an empty Broker.
func NewBroker() *Broker {
	return &Broker{subs: make(map[string]map[string]chan Event)}
}

// Subscribe registers a listener for sessionID. The returned cancel function
// must be called once the listener is gone.
func (b *Broker) Subscribe(sessionID string) (<-chan Event, func()) {
	id := uuid.NewString()
	ch := make(chan Event, eventBuffer)

	b.mu.Lock()
	if b.subs[sessionID] == nil {
		b.subs[sessionID] = make(map[string]chan Event)
	}
	b.subs[sessionID][id] = ch
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs[sessionID], id)
			if len(b.subs[sessionID]) == 0 {
				delete(b.subs, sessionID)
			}
		})
	}
}

// Publish delivers e to every listener of sessionID. A listener whose buffer
// is full misses the event rather than blocking the publisher.
func (b *Broker) Publish(sessionID string, e Event) int {
	if b == nil || sessionID == "" {
		return 0
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	delivered := 0
	for _, ch := range b.subs[sessionID] {
		select {
		case ch <- e:
			delivered++
		default:
		}
	}
	return delivered
}

// Listeners reports how many streams are open for sessionID.
func (b *Broker) Listeners(sessionID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[sessionID])
}

// Events streams session events to one tab as server-sent events. The page
// script reloads on currency and settings events and goes to /login on
// logout.
func Events(c flamego.Context, s session.Session, broker *Broker) {
	w := c.ResponseWriter()
	flusher, ok := w.(http.Flusher)
	if !ok {
		logger.Error("Cannot open event stream", "error", errStreamUnsupported)
		http.Error(w, errStreamUnsupported.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", eventStreamHeader)
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	events, cancel := broker.Subscribe(s.ID())
	defer cancel()

	_, _ = w.Write([]byte("retry: " + eventRetryMillis + "\n\n"))
	flusher.Flush()

	ticker := time.NewTicker(eventKeepAlive)
	defer ticker.Stop()

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.Write([]byte(": keep-alive\n\n")); err != nil {
				return
			}
			flusher.Flush()
		case e := <-events:
			if _, err := w.Write([]byte("event: " + string(e.Type) + "\ndata: " + string(e.Type) + "\n\n")); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
