/*
 * Copyright 2025 Muhammad Imran Rafique
 * SPDX-License-Identifier: Apache-2.0
 */
package api

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentInput is the body for recording or editing a payment.
type PaymentInput struct {
	Amount          decimal.Decimal
	Method          PaymentMethod
	LeaderID        string
	OrderID         string
	PaymentDate     time.Time
	ReferenceNumber string
}

func (in PaymentInput) payload() map[string]any {
	body := map[string]any{
		"amount":   number(in.Amount),
		"method":   string(in.Method),
		"leaderId": in.LeaderID,
	}
	if in.OrderID != "" {
		body["orderId"] = in.OrderID
	}
	if d := date(in.PaymentDate); d != nil {
		body["paymentDate"] = d
	}
	if in.ReferenceNumber != "" {
		body["referenceNumber"] = in.ReferenceNumber
	}
	return body
}

// PaymentFilter narrows ListPayments. Zero values match everything.
type PaymentFilter struct {
	LeaderID string
	OrderID  string
}

func (f PaymentFilter) query() url.Values {
	q := url.Values{}
	if f.LeaderID != "" {
		q.Set("leader_id", f.LeaderID)
	}
	if f.OrderID != "" {
		q.Set("order_id", f.OrderID)
	}
	return q
}

// matchesLeader applies a leader filter to a listed row. A row without a
// leader ID is kept: the backend already scoped the query, and only some
// versions echo the leader back.
func matchesLeader(filter, leaderID string) bool {
	return filter == "" || leaderID == "" || leaderID == filter
}

// ListPayments returns payments matching f.
func (c *Client) ListPayments(ctx context.Context, f PaymentFilter) ([]Payment, error) {
	raw, err := c.do(ctx, request{method: http.MethodGet, path: "/payments/", query: f.query()})
	if err != nil {
		return nil, err
	}
	payments, err := mapList(raw, toPayment, "payments")
	if err != nil {
		return nil, decodeErr("/payments/", err)
	}
	// Older backends ignore the query string.
	filtered := payments[:0]
	for _, p := range payments {
		if !matchesLeader(f.LeaderID, p.LeaderID) {
			continue
		}
		if f.OrderID != "" && p.OrderID != f.OrderID {
			continue
		}
		filtered = append(filtered, p)
	}
	return filtered, nil
}

// GetPayment returns one payment.
func (c *Client) GetPayment(ctx context.Context, id string) (*Payment, error) {
	path, err := pathID("/payments/", id)
	if err != nil {
		return nil, err
	}
	raw, err := c.do(ctx, request{method: http.MethodGet, path: path})
	if err != nil {
		return nil, err
	}
	payment, err := mapOne(raw, toPayment)
	return payment, decodeErr(path, err)
}

// CreatePayment records a payment.
func (c *Client) CreatePayment(ctx context.Context, in PaymentInput) (*Payment, error) {
	raw, err := c.do(ctx, request{method: http.MethodPost, path: "/payments/", body: in.payload()})
	if err != nil {
		return nil, err
	}
	payment, err := mapOne(raw, toPayment)
	return payment, decodeErr("/payments/", err)
}

// UpdatePayment edits a payment.
func (c *Client) UpdatePayment(ctx context.Context, id string, in PaymentInput) (*Payment, error) {
	path, err := pathID("/payments/", id)
	if err != nil {
		return nil, err
	}
	raw, err := c.do(ctx, request{method: http.MethodPut, path: path, body: in.payload()})
	if err != nil {
		return nil, err
	}
	payment, err := mapOne(raw, toPayment)
	return payment, decodeErr(path, err)
}

// DeletePayment removes a payment.
func (c *Client) DeletePayment(ctx context.Context, id string) error {
	path, err := pathID("/payments/", id)
	if err != nil {
		return err
	}
	_, err = c.do(ctx, request{method: http.MethodDelete, path: path})
	return err
}

// PaymentReceipt streams the receipt PDF for a payment.
func (c *Client) PaymentReceipt(ctx context.Context, id string) (*Download, error) {
	path, err := pathID("/payments/", id, "/receipt")
	if err != nil {
		return nil, err
	}
	return c.download(ctx, request{method: http.MethodPost, path: path}, "receipt-"+id+".pdf")
}
