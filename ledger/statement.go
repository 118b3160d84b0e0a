/*
 * Copyright 2025 Muhammad Imran Rafique
 * SPDX-License-Identifier: Apache-2.0
 */
package ledger

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// LineKind distinguishes statement lines.
type LineKind string

const (
	LineOpening LineKind = "opening"
	LineOrder   LineKind = "order"
	LinePayment LineKind = "payment"
)

// Line is one row of a running-balance statement. Debits raise what the
// leader owes, credits lower it.
type Line struct {
	Date        time.Time
	Kind        LineKind
	Description string
	Reference   string
	Debit       decimal.Decimal
	Credit      decimal.Decimal
	Balance     decimal.Decimal
}

// Statement flattens the view into chronological lines starting from the
// opening balance. On a given day orders come before the payments against
// them.
func (v View) Statement() []Line {
	type event struct {
		line  Line
		order int
	}
	var events []event

	for _, e := range v.Orders {
		events = append(events, event{order: 0, line: Line{
			Date:        e.Order.OrderDate,
			Kind:        LineOrder,
			Description: fmt.Sprintf("Order %s", e.Order.OrderNumber),
			Reference:   e.Order.OrderNumber,
			Debit:       e.Order.TotalAmount,
		}})
		for _, p := range e.Payments {
			events = append(events, event{order: 1, line: Line{
				Date:        p.PaymentDate,
				Kind:        LinePayment,
				Description: fmt.Sprintf("Payment (%s) for order %s", p.Method, e.Order.OrderNumber),
				Reference:   p.ReferenceNumber,
				Credit:      p.Amount,
			}})
		}
	}
	for _, p := range v.UnallocatedPayments {
		events = append(events, event{order: 1, line: Line{
			Date:        p.PaymentDate,
			Kind:        LinePayment,
			Description: fmt.Sprintf("Payment (%s), unallocated", p.Method),
			Reference:   p.ReferenceNumber,
			Credit:      p.Amount,
		}})
	}

	sort.SliceStable(events, func(i, j int) bool {
		di, dj := day(events[i].line.Date), day(events[j].line.Date)
		if !di.Equal(dj) {
			return di.Before(dj)
		}
		return events[i].order < events[j].order
	})

	lines := make([]Line, 0, len(events)+1)
	balance := v.OpeningBalance
	lines = append(lines, Line{
		Kind:        LineOpening,
		Description: "Opening balance",
		Balance:     balance,
	})
	for _, ev := range events {
		balance = balance.Add(ev.line.Debit).Sub(ev.line.Credit)
		ev.line.Balance = balance
		lines = append(lines, ev.line)
	}
	return lines
}

func day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
