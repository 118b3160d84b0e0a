/*
 * Copyright 2025 Muhammad Imran Rafique
 * SPDX-License-Identifier: Apache-2.0
 */
package routes

import (
	"context"

	"github.com/muhammadimranrafique/copy-app/api"
	"github.com/muhammadimranrafique/copy-app/query"
)

// Query key roots. Every key is prefixed with the user's cache scope.
const (
	keyLeaders   = "leaders"
	keyOrders    = "orders"
	keyPayments  = "payments"
	keyProducts  = "products"
	keyExpenses  = "expenses"
	keyDashboard = "dashboard"
	keySettings  = "settings"
	keyLedger    = "ledger"
)

func (b *Backend) leaders(ctx context.Context) query.State[[]api.Leader] {
	return load(ctx, b, b.API.ListLeaders, keyLeaders)
}

func (b *Backend) leader(ctx context.Context, id string) query.State[*api.Leader] {
	return load(ctx, b, func(ctx context.Context) (*api.Leader, error) {
		return b.API.GetLeader(ctx, id)
	}, keyLeaders, id)
}

func (b *Backend) leaderOrders(ctx context.Context, id string) query.State[[]api.Order] {
	return load(ctx, b, func(ctx context.Context) ([]api.Order, error) {
		return b.API.LeaderOrders(ctx, id)
	}, keyOrders, "leader", id)
}

func (b *Backend) orders(ctx context.Context, f api.OrderFilter) query.State[[]api.Order] {
	return load(ctx, b, func(ctx context.Context) ([]api.Order, error) {
		return b.API.ListOrders(ctx, f)
	}, keyOrders, "list", f.LeaderID, string(f.Status))
}

func (b *Backend) order(ctx context.Context, id string) query.State[*api.Order] {
	return load(ctx, b, func(ctx context.Context) (*api.Order, error) {
		return b.API.GetOrder(ctx, id)
	}, keyOrders, "one", id)
}

func (b *Backend) payments(ctx context.Context, f api.PaymentFilter) query.State[[]api.Payment] {
	return load(ctx, b, func(ctx context.Context) ([]api.Payment, error) {
		return b.API.ListPayments(ctx, f)
	}, keyPayments, "list", f.LeaderID, f.OrderID)
}

func (b *Backend) payment(ctx context.Context, id string) query.State[*api.Payment] {
	return load(ctx, b, func(ctx context.Context) (*api.Payment, error) {
		return b.API.GetPayment(ctx, id)
	}, keyPayments, "one", id)
}

func (b *Backend) products(ctx context.Context) query.State[[]api.Product] {
	return load(ctx, b, b.API.ListProducts, keyProducts)
}

func (b *Backend) expenses(ctx context.Context, f api.ExpenseFilter) query.State[[]api.Expense] {
	return load(ctx, b, func(ctx context.Context) ([]api.Expense, error) {
		return b.API.ListExpenses(ctx, f)
	}, keyExpenses, string(f.Category), dateInput(f.From), dateInput(f.To))
}

func (b *Backend) dashboard(ctx context.Context) query.State[*api.DashboardStats] {
	return load(ctx, b, b.API.DashboardStats, keyDashboard)
}

func (b *Backend) settings(ctx context.Context) query.State[*api.Settings] {
	return load(ctx, b, b.API.GetSettings, keySettings)
}

func (b *Backend) ledgerAggregate(ctx context.Context, leaderID string) query.State[*api.LedgerResponse] {
	return load(ctx, b, func(ctx context.Context) (*api.LedgerResponse, error) {
		return b.API.LeaderLedger(ctx, leaderID)
	}, keyLedger, leaderID)
}

// invalidateMoney drops everything derived from orders and payments.
func (b *Backend) invalidateMoney() {
	b.invalidate(keyOrders)
	b.invalidate(keyPayments)
	b.invalidate(keyLedger)
	b.invalidate(keyDashboard)
}
