/*
 * Copyright 2025 Muhammad Imran Rafique
 * SPDX-License-Identifier: Apache-2.0
 */
package db

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/flamego/session"
	"github.com/jackc/pgx/v5"
)

// PostgresSessionConfig contains options for the PostgreSQL session store
type PostgresSessionConfig struct {
	// Lifetime is the duration to have no access to a session before being recycled.
	// Default is 7 days, the same as the backend's access tokens.
	Lifetime time.Duration
	// TableName is the name of the session table. Default is "flamego_sessions".
	TableName string
	// Encoder is the encoder to encode session data. Default is session.GobEncoder.
	Encoder session.Encoder
	// Decoder is the decoder to decode session data. Default is session.GobDecoder.
	Decoder session.Decoder
}

// PostgresSessionStore implements session.Store interface for PostgreSQL
type PostgresSessionStore struct {
	config  PostgresSessionConfig
	encoder session.Encoder
	decoder session.Decoder
}

// PostgresSessionIniter returns the Initer for the PostgreSQL session store
func PostgresSessionIniter() session.Initer {
	return func(ctx context.Context, args ...interface{}) (session.Store, error) {
		var config PostgresSessionConfig
		if len(args) > 0 {
			var ok bool
			config, ok = args[0].(PostgresSessionConfig)
			if !ok {
				return nil, errInvalidSessionConfig
			}
		}

		// Set defaults
		if config.Lifetime == 0 {
			config.Lifetime = 7 * 24 * time.Hour
		}
		if config.TableName == "" {
			config.TableName = "flamego_sessions"
		}
		if config.Encoder == nil {
			config.Encoder = session.GobEncoder
		}
		if config.Decoder == nil {
			config.Decoder = session.GobDecoder
		}

		store := &PostgresSessionStore{
			config:  config,
			encoder: config.Encoder,
			decoder: config.Decoder,
		}

		return store, nil
	}
}

// Exist returns true if the session with given ID exists and hasn't expired
func (s *PostgresSessionStore) Exist(ctx context.Context, sid string) bool {
	var exists bool
	err := pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM `+s.config.TableName+` WHERE id = $1 AND expires_at > NOW())`,
		sid,
	).Scan(&exists)
	return err == nil && exists
}

// Read returns the session with given ID. If a session with the ID does not exist,
// a new session with the same ID is created and returned.
func (s *PostgresSessionStore) Read(ctx context.Context, sid string) (session.Session, error) {
	var data []byte
	err := pool.QueryRow(ctx,
		`SELECT data FROM `+s.config.TableName+` WHERE id = $1 AND expires_at > NOW()`,
		sid,
	).Scan(&data)

	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	// The session middleware writes the cookie itself.
	idWriter := func(w http.ResponseWriter, r *http.Request, newSid string) {}

	// If session doesn't exist, create a new one
	if errors.Is(err, pgx.ErrNoRows) || len(data) == 0 {
		return session.NewBaseSession(sid, s.encoder, idWriter), nil
	}

	// Decode session data
	sessionData, err := s.decoder(data)
	if err != nil {
		// If we can't decode, create a new session
		return session.NewBaseSession(sid, s.encoder, idWriter), nil
	}

	return session.NewBaseSessionWithData(sid, s.encoder, idWriter, sessionData), nil
}

// Destroy deletes session with given ID from the session store completely
func (s *PostgresSessionStore) Destroy(ctx context.Context, sid string) error {
	_, err := pool.Exec(ctx,
		`DELETE FROM `+s.config.TableName+` WHERE id = $1`,
		sid,
	)
	return err
}

// Touch updates the expiry time of the session with given ID
func (s *PostgresSessionStore) Touch(ctx context.Context, sid string) error {
	expiresAt := time.Now().Add(s.config.Lifetime)
	_, err := pool.Exec(ctx,
		`UPDATE `+s.config.TableName+` SET expires_at = $1 WHERE id = $2`,
		expiresAt,
		sid,
	)
	return err
}

// Save persists session data to the session store
func (s *PostgresSessionStore) Save(ctx context.Context, sess session.Session) error {
	// Encode session data
	data, err := sess.Encode()
	if err != nil {
		return err
	}

	expiresAt := time.Now().Add(s.config.Lifetime)

	// Use UPSERT (INSERT ... ON CONFLICT UPDATE)
	_, err = pool.Exec(ctx,
		`INSERT INTO `+s.config.TableName+` (id, data, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
			data = EXCLUDED.data,
			expires_at = EXCLUDED.expires_at`,
		sess.ID(),
		data,
		expiresAt,
	)

	return err
}

// SignedInSession is one authenticated browser session, decoded for the
// signed-in devices panel.
type SignedInSession struct {
	ID          string
	ExpiresAt   time.Time
	DeviceLabel string
	DeviceIP    string
	UserID      string
	UserName    string
}

// sessionUser mirrors the fields of the cached user record the web layer
// stores as JSON under "current_user".
type sessionUser struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

// GC performs a garbage collection operation on the session store
func (s *PostgresSessionStore) GC(ctx context.Context) error {
	_, err := pool.Exec(ctx,
		`DELETE FROM `+s.config.TableName+` WHERE expires_at < NOW()`,
	)
	return err
}

// ListSignedIn returns the unexpired authenticated sessions of a user,
// newest expiry first. An empty userID lists every user's sessions.
func (s *PostgresSessionStore) ListSignedIn(ctx context.Context, userID string) ([]SignedInSession, error) {
	if pool == nil {
		return nil, ErrDatabaseConnectionNotInitialized
	}

	rows, err := pool.Query(ctx,
		`SELECT id, data, expires_at FROM `+s.config.TableName+` WHERE expires_at > NOW() ORDER BY expires_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []SignedInSession
	for rows.Next() {
		var id string
		var data []byte
		var expiresAt time.Time

		if err := rows.Scan(&id, &data, &expiresAt); err != nil {
			return nil, err
		}

		sessionData, err := s.decoder(data)
		if err != nil {
			logger.Debug("Skipping undecodable session", "session_id", id, "error", err)
			continue
		}

		if authenticated, _ := sessionData["authenticated"].(bool); !authenticated {
			continue
		}

		entry := SignedInSession{
			ID:          id,
			ExpiresAt:   expiresAt,
			DeviceLabel: stringValue(sessionData, "device_label", "Unknown device"),
			DeviceIP:    stringValue(sessionData, "device_ip", "Unknown IP"),
		}

		if raw, ok := sessionData["current_user"].(string); ok && raw != "" {
			var user sessionUser
			if err := json.Unmarshal([]byte(raw), &user); err == nil {
				entry.UserID = user.ID
				entry.UserName = user.FullName
				if entry.UserName == "" {
					entry.UserName = user.Email
				}
			}
		}

		if userID != "" && entry.UserID != "" && entry.UserID != userID {
			continue
		}

		sessions = append(sessions, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return sessions, nil
}

// SignOutOthers deletes every authenticated session of the user except the
// current one and returns the IDs it removed.
func (s *PostgresSessionStore) SignOutOthers(ctx context.Context, currentID string, userID string) ([]string, error) {
	sessions, err := s.ListSignedIn(ctx, userID)
	if err != nil {
		return nil, err
	}

	var removed []string
	for _, sess := range sessions {
		if sess.ID == currentID {
			continue
		}
		if err := s.Destroy(ctx, sess.ID); err != nil {
			return removed, err
		}
		removed = append(removed, sess.ID)
	}

	if len(removed) > 0 {
		logger.Info("Signed out other sessions", "user_id", userID, "count", len(removed))
	}

	return removed, nil
}

func stringValue(data session.Data, key string, fallback string) string {
	if str, ok := data[key].(string); ok && str != "" {
		return str
	}
	return fallback
}
