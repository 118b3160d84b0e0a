/*
 * Copyright 2025 Muhammad Imran Rafique
 * SPDX-License-Identifier: Apache-2.0
 */
package routes

import (
	"net/http"

	"github.com/flamego/flamego"
	"github.com/flamego/session"
	"github.com/flamego/template"

	"github.com/muhammadimranrafique/copy-app/currency"
)

// Dashboard renders the business overview. The welcome notice is shown on
// the first dashboard visit of a session only.
func Dashboard(c flamego.Context, s session.Session, b *Backend, money *currency.Formatter, t template.Template, data template.Data) {
	ctx := c.Request().Context()

	if seen, _ := s.Get(sessionKeyWelcomeSeen).(bool); !seen {
		data["ShowWelcome"] = true
		s.Set(sessionKeyWelcomeSeen, true)
	}

	state := b.dashboard(ctx)
	if c.Query("refresh") != "" {
		state = refetch(ctx, b, b.API.DashboardStats, keyDashboard)
	}
	if loadFailed(c, s, b, data, state.Err, "Failed to load dashboard data") {
		return
	}

	if stats := state.Data; stats != nil {
		data["Stats"] = stats
		data["UpdatedAt"] = state.UpdatedAt

		chart, err := renderDashboardChart(stats, money.Preference())
		if err != nil {
			logger.Error("Error rendering dashboard chart", "error", err)
		} else {
			data["TotalsChart"] = chart
		}
	}

	data["IsDashboard"] = true
	data["Breadcrumbs"] = []BreadcrumbItem{
		{Name: "Dashboard", URL: "/", IsCurrent: true},
	}

	t.HTML(http.StatusOK, "dashboard")
}
