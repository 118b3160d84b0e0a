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

// OrderInput is the body for creating or updating an order.
type OrderInput struct {
	OrderNumber string
	LeaderID    string
	OrderDate   time.Time
	TotalAmount decimal.Decimal
	Status      OrderStatus
	Category    string
	Pages       int
	Paper       string
	Details     string
	Items       []OrderItem
}

func (in OrderInput) payload() map[string]any {
	body := map[string]any{
		"leaderId":    in.LeaderID,
		"totalAmount": number(in.TotalAmount),
		"status":      string(in.Status),
	}
	if in.OrderNumber != "" {
		body["orderNumber"] = in.OrderNumber
	}
	if d := date(in.OrderDate); d != nil {
		body["orderDate"] = d
	}
	if in.Category != "" {
		body["category"] = in.Category
	}
	if in.Pages > 0 {
		body["pages"] = in.Pages
	}
	if in.Paper != "" {
		body["paper"] = in.Paper
	}
	if in.Details != "" {
		body["details"] = in.Details
	}
	if len(in.Items) > 0 {
		items := make([]map[string]any, 0, len(in.Items))
		for _, item := range in.Items {
			items = append(items, map[string]any{
				"productId": item.ProductID,
				"quantity":  item.Quantity,
				"unitPrice": number(item.UnitPrice),
			})
		}
		body["items"] = items
	}
	return body
}

// OrderFilter narrows ListOrders. Zero values match everything.
type OrderFilter struct {
	LeaderID string
	Status   OrderStatus
}

func (f OrderFilter) query() url.Values {
	q := url.Values{}
	if f.LeaderID != "" {
		q.Set("leader_id", f.LeaderID)
	}
	if f.Status != "" {
		q.Set("status", string(f.Status))
	}
	return q
}

// ListOrders returns orders matching f.
func (c *Client) ListOrders(ctx context.Context, f OrderFilter) ([]Order, error) {
	raw, err := c.do(ctx, request{method: http.MethodGet, path: "/orders/", query: f.query()})
	if err != nil {
		return nil, err
	}
	orders, err := mapList(raw, toOrder, "orders")
	if err != nil {
		return nil, decodeErr("/orders/", err)
	}
	// Older backends ignore the query string.
	filtered := orders[:0]
	for _, o := range orders {
		if !matchesLeader(f.LeaderID, o.LeaderID) {
			continue
		}
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		filtered = append(filtered, o)
	}
	return filtered, nil
}

// GetOrder returns one order.
func (c *Client) GetOrder(ctx context.Context, id string) (*Order, error) {
	path, err := pathID("/orders/", id)
	if err != nil {
		return nil, err
	}
	raw, err := c.do(ctx, request{method: http.MethodGet, path: path})
	if err != nil {
		return nil, err
	}
	order, err := mapOne(raw, toOrder)
	return order, decodeErr(path, err)
}

// CreateOrder creates an order.
func (c *Client) CreateOrder(ctx context.Context, in OrderInput) (*Order, error) {
	raw, err := c.do(ctx, request{method: http.MethodPost, path: "/orders/", body: in.payload()})
	if err != nil {
		return nil, err
	}
	order, err := mapOne(raw, toOrder)
	return order, decodeErr("/orders/", err)
}

// UpdateOrder replaces an order's details.
func (c *Client) UpdateOrder(ctx context.Context, id string, in OrderInput) (*Order, error) {
	path, err := pathID("/orders/", id)
	if err != nil {
		return nil, err
	}
	raw, err := c.do(ctx, request{method: http.MethodPut, path: path, body: in.payload()})
	if err != nil {
		return nil, err
	}
	order, err := mapOne(raw, toOrder)
	return order, decodeErr(path, err)
}

// DeleteOrder removes an order. The backend cascades to its payments.
func (c *Client) DeleteOrder(ctx context.Context, id string) error {
	path, err := pathID("/orders/", id)
	if err != nil {
		return err
	}
	_, err = c.do(ctx, request{method: http.MethodDelete, path: path})
	return err
}

// OrderPaymentSummary reports the payments that deleting the order would
// remove.
func (c *Client) OrderPaymentSummary(ctx context.Context, id string) (*PaymentSummary, error) {
	path, err := pathID("/orders/", id, "/payment-summary")
	if err != nil {
		return nil, err
	}
	raw, err := c.do(ctx, request{method: http.MethodGet, path: path})
	if err != nil {
		return nil, err
	}
	summary, err := mapOne(raw, toPaymentSummary)
	if err != nil {
		return nil, decodeErr(path, err)
	}
	if summary == nil {
		summary = &PaymentSummary{}
	}
	if summary.OrderID == "" {
		summary.OrderID = id
	}
	return summary, nil
}

// OrderInvoice streams the invoice PDF for an order.
func (c *Client) OrderInvoice(ctx context.Context, id string) (*Download, error) {
	path, err := pathID("/orders/", id, "/invoice")
	if err != nil {
		return nil, err
	}
	return c.download(ctx, request{method: http.MethodPost, path: path}, "invoice-"+id+".pdf")
}
