/*
 * Copyright 2025 Muhammad Imran Rafique
 * SPDX-License-Identifier: Apache-2.0
 */
package routes

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"github.com/flamego/flamego"
	"github.com/flamego/session"
	"github.com/flamego/template"

	"github.com/muhammadimranrafique/copy-app/api"
	"github.com/muhammadimranrafique/copy-app/currency"
	"github.com/muhammadimranrafique/copy-app/ledger"
)

// cachedLedger reads ledger inputs through the query cache.
type cachedLedger struct {
	b *Backend
}

func (l cachedLedger) LeaderLedger(ctx context.Context, id string) (*api.LedgerResponse, error) {
	state := l.b.ledgerAggregate(ctx, id)
	return state.Data, state.Err
}

func (l cachedLedger) GetLeader(ctx context.Context, id string) (*api.Leader, error) {
	state := l.b.leader(ctx, id)
	return state.Data, state.Err
}

func (l cachedLedger) LeaderOrders(ctx context.Context, id string) ([]api.Order, error) {
	state := l.b.leaderOrders(ctx, id)
	return state.Data, state.Err
}

func (l cachedLedger) ListPayments(ctx context.Context, f api.PaymentFilter) ([]api.Payment, error) {
	state := l.b.payments(ctx, f)
	return state.Data, state.Err
}

// LedgerPage shows the balance picture of the leader picked in the leader
// query parameter.
func LedgerPage(c flamego.Context, s session.Session, b *Backend, money *currency.Formatter, t template.Template, data template.Data) {
	ctx := c.Request().Context()

	leaders := b.leaders(ctx)
	if loadFailed(c, s, b, data, leaders.Err, "Failed to load leaders") {
		return
	}
	data["Leaders"] = leaders.Data
	data["IsLedger"] = true
	data["Breadcrumbs"] = []BreadcrumbItem{
		{Name: "Ledger", URL: "/ledger", IsCurrent: true},
	}

	leaderID, ok := optionalID(c.Query("leader"))
	if !ok {
		SetErrorFlash(s, "Invalid leader ID")
		c.Redirect("/ledger", http.StatusSeeOther)
		return
	}
	data["LeaderID"] = leaderID
	if leaderID == "" {
		t.HTML(http.StatusOK, "ledger")
		return
	}

	if c.Query("refresh") != "" {
		b.invalidate(keyLedger, leaderID)
		b.invalidate(keyOrders, "leader", leaderID)
		b.invalidate(keyPayments, "list", leaderID)
	}

	view, err := ledger.Load(ctx, cachedLedger{b: b}, leaderID)
	if loadFailed(c, s, b, data, err, "Failed to load ledger") {
		return
	}
	if err == nil {
		data["View"] = view
		data["Statement"] = view.Statement()

		chart, err := renderLedgerChart(view, money.Preference())
		if err != nil {
			logger.Error("Error rendering ledger chart", "leader_id", leaderID, "error", err)
		} else if chart != "" {
			data["LedgerChart"] = chart
		}

		data["Breadcrumbs"] = []BreadcrumbItem{
			{Name: "Ledger", URL: "/ledger", IsCurrent: false},
			{Name: view.Leader.Name, URL: "", IsCurrent: true},
		}
	}

	t.HTML(http.StatusOK, "ledger")
}

// LedgerExport downloads the leader's ledger as an XLSX workbook.
func LedgerExport(c flamego.Context, s session.Session, b *Backend) {
	leaderID, ok := optionalID(c.Query("leader"))
	if !ok || leaderID == "" {
		SetErrorFlash(s, "Please select a leader")
		c.Redirect("/ledger", http.StatusSeeOther)
		return
	}

	view, err := ledger.Load(c.Request().Context(), cachedLedger{b: b}, leaderID)
	if err != nil {
		redirectOnAPIError(c, s, b, err, "Failed to load ledger", "/ledger?leader="+leaderID)
		return
	}

	var buf bytes.Buffer
	if err := ledger.WriteXLSX(&buf, view); err != nil {
		logger.Error("Error writing ledger workbook", "leader_id", leaderID, "error", err)
		SetErrorFlash(s, "Failed to export ledger")
		c.Redirect("/ledger?leader="+leaderID, http.StatusSeeOther)
		return
	}

	writeAttachment(c, ledger.XLSXContentType, ledger.Filename(view, time.Now()), buf.Bytes())
}
