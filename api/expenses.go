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

// ExpenseInput is the body for recording or editing an expense.
type ExpenseInput struct {
	Category        ExpenseCategory
	Amount          decimal.Decimal
	Description     string
	ExpenseDate     time.Time
	PaymentMethod   string
	ReferenceNumber string
	OrderCategory   string
}

func (in ExpenseInput) payload() map[string]any {
	method := in.PaymentMethod
	if method == "" {
		method = string(MethodCash)
	}
	body := map[string]any{
		"category":      string(in.Category),
		"amount":        number(in.Amount),
		"description":   in.Description,
		"paymentMethod": method,
	}
	if d := date(in.ExpenseDate); d != nil {
		body["expenseDate"] = d
	}
	if in.ReferenceNumber != "" {
		body["referenceNumber"] = in.ReferenceNumber
	}
	if in.OrderCategory != "" {
		body["orderCategory"] = in.OrderCategory
	}
	return body
}

// ExpenseFilter narrows ListExpenses. From and To are inclusive calendar days.
type ExpenseFilter struct {
	Category ExpenseCategory
	From     time.Time
	To       time.Time
}

func (f ExpenseFilter) query() url.Values {
	q := url.Values{}
	if f.Category != "" {
		q.Set("category", string(f.Category))
	}
	if !f.From.IsZero() {
		q.Set("start_date", f.From.Format("2006-01-02"))
	}
	if !f.To.IsZero() {
		q.Set("end_date", f.To.Format("2006-01-02"))
	}
	return q
}

// Match reports whether e passes the filter.
func (f ExpenseFilter) Match(e Expense) bool {
	if f.Category != "" && e.Category != f.Category {
		return false
	}
	day := e.ExpenseDate.Truncate(24 * time.Hour)
	if !f.From.IsZero() && day.Before(f.From.Truncate(24*time.Hour)) {
		return false
	}
	if !f.To.IsZero() && day.After(f.To.Truncate(24*time.Hour)) {
		return false
	}
	return true
}

// ListExpenses returns expenses matching f.
func (c *Client) ListExpenses(ctx context.Context, f ExpenseFilter) ([]Expense, error) {
	raw, err := c.do(ctx, request{method: http.MethodGet, path: "/expenses/", query: f.query()})
	if err != nil {
		return nil, err
	}
	expenses, err := mapList(raw, toExpense, "expenses")
	if err != nil {
		return nil, decodeErr("/expenses/", err)
	}
	filtered := expenses[:0]
	for _, e := range expenses {
		if f.Match(e) {
			filtered = append(filtered, e)
		}
	}
	return filtered, nil
}

// CreateExpense records an expense.
func (c *Client) CreateExpense(ctx context.Context, in ExpenseInput) (*Expense, error) {
	raw, err := c.do(ctx, request{method: http.MethodPost, path: "/expenses/", body: in.payload()})
	if err != nil {
		return nil, err
	}
	expense, err := mapOne(raw, toExpense)
	return expense, decodeErr("/expenses/", err)
}

// UpdateExpense edits an expense.
func (c *Client) UpdateExpense(ctx context.Context, id string, in ExpenseInput) (*Expense, error) {
	path, err := pathID("/expenses/", id)
	if err != nil {
		return nil, err
	}
	raw, err := c.do(ctx, request{method: http.MethodPut, path: path, body: in.payload()})
	if err != nil {
		return nil, err
	}
	expense, err := mapOne(raw, toExpense)
	return expense, decodeErr(path, err)
}

// DeleteExpense removes an expense.
func (c *Client) DeleteExpense(ctx context.Context, id string) error {
	path, err := pathID("/expenses/", id)
	if err != nil {
		return err
	}
	_, err = c.do(ctx, request{method: http.MethodDelete, path: path})
	return err
}
