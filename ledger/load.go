/*
 * Copyright 2025 Muhammad Imran Rafique
 * SPDX-License-Identifier: Apache-2.0
 */
package ledger

import (
	"context"
	"fmt"
	"net/http"

	"github.com/muhammadimranrafique/copy-app/api"
)

// Source is the part of the backend a ledger is built from.
type Source interface {
	LeaderLedger(ctx context.Context, id string) (*api.LedgerResponse, error)
	GetLeader(ctx context.Context, id string) (*api.Leader, error)
	LeaderOrders(ctx context.Context, id string) ([]api.Order, error)
	ListPayments(ctx context.Context, f api.PaymentFilter) ([]api.Payment, error)
}

// Load builds the view for one leader. The backend aggregate is preferred;
// when it is unavailable the view is computed from the leader's orders and
// payments. Unauthorized errors are returned as is so callers can end the
// session.
func Load(ctx context.Context, src Source, leaderID string) (View, error) {
	resp, err := src.LeaderLedger(ctx, leaderID)
	if err == nil && resp != nil {
		if resp.Leader.ID == "" {
			resp.Leader.ID = leaderID
		}
		return FromAggregate(*resp), nil
	}
	if api.IsUnauthorized(err) {
		return View{}, err
	}

	leader, err := src.GetLeader(ctx, leaderID)
	if err != nil {
		return View{}, fmt.Errorf("failed to load leader: %w", err)
	}
	if leader == nil {
		return View{}, fmt.Errorf("failed to load leader: %w", &api.APIError{Status: http.StatusNotFound, Message: "Leader not found"})
	}
	orders, err := src.LeaderOrders(ctx, leaderID)
	if err != nil {
		return View{}, fmt.Errorf("failed to load orders: %w", err)
	}
	payments, err := src.ListPayments(ctx, api.PaymentFilter{LeaderID: leaderID})
	if err != nil {
		return View{}, fmt.Errorf("failed to load payments: %w", err)
	}

	mine := payments[:0:0]
	for _, p := range payments {
		if p.LeaderID == "" || p.LeaderID == leaderID {
			mine = append(mine, p)
		}
	}
	return Compute(*leader, orders, mine), nil
}
