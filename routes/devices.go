/*
 * Copyright 2025 Muhammad Imran Rafique
 * SPDX-License-Identifier: Apache-2.0
 */
package routes

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/flamego/flamego"
	"github.com/flamego/session"

	"github.com/muhammadimranrafique/copy-app/db"
)

const (
	sessionKeyDeviceLabel = "device_label"
	sessionKeyDeviceIP    = "device_ip"
)

// deviceStore is implemented by session stores that can enumerate the
// signed-in browsers. The memory store cannot, so the panel is hidden.
type deviceStore interface {
	ListSignedIn(ctx context.Context, userID string) ([]db.SignedInSession, error)
	SignOutOthers(ctx context.Context, currentID string, userID string) ([]string, error)
}

// DeviceInfo is one row of the signed-in devices panel.
type DeviceInfo struct {
	Device    string
	IP        string
	ExpiresIn string
	IsCurrent bool
}

// SessionMetadataMiddleware captures and stores device and IP info in the session
func SessionMetadataMiddleware() flamego.Handler {
	return func(c flamego.Context, s session.Session) {
		deviceLabel := parseUserAgent(c.Request().Header.Get("User-Agent"))
		if val, ok := s.Get(sessionKeyDeviceLabel).(string); !ok || val != deviceLabel {
			s.Set(sessionKeyDeviceLabel, deviceLabel)
		}

		ip := getClientIP(c.Request())
		if val, ok := s.Get(sessionKeyDeviceIP).(string); !ok || val != ip {
			s.Set(sessionKeyDeviceIP, ip)
		}

		c.Next()
	}
}

// parseUserAgent creates a simple device label from User-Agent string
func parseUserAgent(ua string) string {
	if ua == "" {
		return "Unknown device"
	}

	ua = strings.ToLower(ua)
	os := "Unknown OS"
	browser := "Unknown browser"

	switch {
	case strings.Contains(ua, "android"):
		os = "Android"
	case strings.Contains(ua, "iphone"), strings.Contains(ua, "ipad"):
		os = "iOS"
	case strings.Contains(ua, "windows"):
		os = "Windows"
	case strings.Contains(ua, "macintosh"), strings.Contains(ua, "mac os"):
		os = "macOS"
	case strings.Contains(ua, "linux"):
		os = "Linux"
	}

	switch {
	case strings.Contains(ua, "edg/"):
		browser = "Edge"
	case strings.Contains(ua, "chrome"):
		browser = "Chrome"
	case strings.Contains(ua, "firefox"):
		browser = "Firefox"
	case strings.Contains(ua, "safari"):
		browser = "Safari"
	}

	return os + " / " + browser
}

// getClientIP extracts the real client IP address
func getClientIP(r *flamego.Request) string {
	if xff := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// formatDuration creates a human-readable duration like "in 5d 10h"
func formatDuration(d time.Duration) string {
	if d < 0 {
		return "expired"
	}

	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60

	switch {
	case days > 0 && hours > 0:
		return fmt.Sprintf("in %dd %dh", days, hours)
	case days > 0:
		return fmt.Sprintf("in %dd", days)
	case hours > 0 && minutes > 0:
		return fmt.Sprintf("in %dh %dm", hours, minutes)
	case hours > 0:
		return fmt.Sprintf("in %dh", hours)
	default:
		return fmt.Sprintf("in %dm", minutes)
	}
}

// signedInDevices lists the user's browsers for the settings page. The
// boolean is false when the store cannot list sessions.
func signedInDevices(ctx context.Context, store session.Store, s session.Session) ([]DeviceInfo, bool) {
	devices, ok := store.(deviceStore)
	if !ok {
		return nil, false
	}

	user, err := sessionUser(s)
	if err != nil {
		return nil, false
	}

	sessions, err := devices.ListSignedIn(ctx, user.ID)
	if err != nil {
		logger.Warn("Failed to list signed-in devices", "user_id", user.ID, "error", err)
		return nil, false
	}

	now := time.Now()
	infos := make([]DeviceInfo, 0, len(sessions))
	for _, sess := range sessions {
		infos = append(infos, DeviceInfo{
			Device:    sess.DeviceLabel,
			IP:        sess.DeviceIP,
			ExpiresIn: formatDuration(sess.ExpiresAt.Sub(now)),
			IsCurrent: sess.ID == s.ID(),
		})
	}
	return infos, true
}

// SignOutOtherDevices ends every other browser session of the current user.
// Tabs still open in those browsers are sent to the login page.
func SignOutOtherDevices(c flamego.Context, s session.Session, store session.Store, broker *Broker) {
	devices, ok := store.(deviceStore)
	if !ok {
		SetErrorFlash(s, "Signed-in devices are only tracked with database sessions")
		c.Redirect("/settings", http.StatusSeeOther)
		return
	}

	user, err := sessionUser(s)
	if err != nil {
		SetErrorFlash(s, "Unable to resolve current user")
		c.Redirect("/settings", http.StatusSeeOther)
		return
	}

	removed, err := devices.SignOutOthers(c.Request().Context(), s.ID(), user.ID)
	if err != nil {
		logger.Error("Failed to sign out other devices", "user_id", user.ID, "error", err)
		SetErrorFlash(s, "Failed to sign out other devices")
		c.Redirect("/settings", http.StatusSeeOther)
		return
	}

	for _, id := range removed {
		broker.Publish(id, Event{Type: EventLogout})
	}

	if len(removed) == 0 {
		SetInfoFlash(s, "No other devices are signed in")
	} else {
		SetSuccessFlash(s, fmt.Sprintf("Signed out %d other device(s)", len(removed)))
	}
	c.Redirect("/settings", http.StatusSeeOther)
}
