/*
 * Copyright 2025 Muhammad Imran Rafique
 * SPDX-License-Identifier: Apache-2.0
 */
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

// LeaderInput is the body for creating or updating a leader.
type LeaderInput struct {
	Name           string
	Type           LeaderType
	Contact        string
	Address        string
	OpeningBalance decimal.Decimal
}

func (in LeaderInput) payload() map[string]any {
	return map[string]any{
		"name":            in.Name,
		"type":            string(in.Type),
		"contact":         in.Contact,
		"address":         in.Address,
		"opening_balance": number(in.OpeningBalance),
	}
}

// ListLeaders returns every leader.
func (c *Client) ListLeaders(ctx context.Context) ([]Leader, error) {
	raw, err := c.do(ctx, request{method: http.MethodGet, path: "/leaders/"})
	if err != nil {
		return nil, err
	}
	leaders, err := mapList(raw, toLeader, "leaders", "clients")
	return leaders, decodeErr("/leaders/", err)
}

// GetLeader returns one leader.
func (c *Client) GetLeader(ctx context.Context, id string) (*Leader, error) {
	path, err := pathID("/leaders/", id)
	if err != nil {
		return nil, err
	}
	raw, err := c.do(ctx, request{method: http.MethodGet, path: path})
	if err != nil {
		return nil, err
	}
	leader, err := mapOne(raw, toLeader)
	return leader, decodeErr(path, err)
}

// CreateLeader creates a leader and returns it as stored by the backend.
func (c *Client) CreateLeader(ctx context.Context, in LeaderInput) (*Leader, error) {
	raw, err := c.do(ctx, request{method: http.MethodPost, path: "/leaders/", body: in.payload()})
	if err != nil {
		return nil, err
	}
	leader, err := mapOne(raw, toLeader)
	return leader, decodeErr("/leaders/", err)
}

// UpdateLeader replaces a leader's details.
func (c *Client) UpdateLeader(ctx context.Context, id string, in LeaderInput) (*Leader, error) {
	path, err := pathID("/leaders/", id)
	if err != nil {
		return nil, err
	}
	raw, err := c.do(ctx, request{method: http.MethodPut, path: path, body: in.payload()})
	if err != nil {
		return nil, err
	}
	leader, err := mapOne(raw, toLeader)
	return leader, decodeErr(path, err)
}

// DeleteLeader removes a leader.
func (c *Client) DeleteLeader(ctx context.Context, id string) error {
	path, err := pathID("/leaders/", id)
	if err != nil {
		return err
	}
	_, err = c.do(ctx, request{method: http.MethodDelete, path: path})
	return err
}

// LeaderOrders returns the orders placed by one leader.
func (c *Client) LeaderOrders(ctx context.Context, id string) ([]Order, error) {
	path, err := pathID("/leaders/", id, "/orders")
	if err != nil {
		return nil, err
	}
	raw, err := c.do(ctx, request{method: http.MethodGet, path: path})
	if err != nil {
		return nil, err
	}
	orders, err := mapList(raw, toOrder, "orders")
	return orders, decodeErr(path, err)
}

// LeaderLedger returns the backend's ledger aggregate for one leader.
func (c *Client) LeaderLedger(ctx context.Context, id string) (*LedgerResponse, error) {
	path, err := pathID("/leaders/", id, "/ledger")
	if err != nil {
		return nil, err
	}
	raw, err := c.do(ctx, request{method: http.MethodGet, path: path})
	if err != nil {
		return nil, err
	}
	ledger, err := mapOne(raw, toLedger)
	return ledger, decodeErr(path, err)
}

// ExportLeaderPayments streams the backend's CSV export of a leader's payments.
func (c *Client) ExportLeaderPayments(ctx context.Context, id string) (*Download, error) {
	path, err := pathID("/leaders/", id, "/payments/export")
	if err != nil {
		return nil, err
	}
	return c.download(ctx, request{method: http.MethodGet, path: path}, "payments-"+id+".csv")
}

// number renders money as a JSON number with two decimals.
func number(d decimal.Decimal) json.Number {
	return json.Number(d.StringFixed(2))
}

// date renders a calendar day, or nil so the backend applies its default.
func date(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.Format("2006-01-02")
}
