/*
 * Copyright 2025 Muhammad Imran Rafique
 * SPDX-License-Identifier: Apache-2.0
 */
package ledger

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/muhammadimranrafique/copy-app/api"
)

// Entry is one order in a ledger together with the payments attributed to it.
type Entry struct {
	Order      api.Order
	Payments   []api.Payment
	PaidAmount decimal.Decimal
	// Balance is clamped at zero for display.
	Balance decimal.Decimal
	Status  api.OrderStatus
}

// Overpaid reports whether the attached payments exceed the order total.
// Validators prevent this, but data written by other clients may still show
// it.
func (e Entry) Overpaid() bool {
	return e.PaidAmount.GreaterThan(e.Order.TotalAmount)
}

// Summary holds the ledger totals. TotalOutstanding never includes the
// opening balance; NetOutstanding does, and also nets off unallocated
// payments.
type Summary struct {
	TotalOrders      int
	TotalOrderAmount decimal.Decimal
	TotalPaid        decimal.Decimal
	TotalOutstanding decimal.Decimal
	UnallocatedTotal decimal.Decimal
	NetOutstanding   decimal.Decimal
}

// View is the derived financial picture of one leader.
type View struct {
	Leader              api.Leader
	OpeningBalance      decimal.Decimal
	Orders              []Entry
	UnallocatedPayments []api.Payment
	Summary             Summary
}

// Compute derives a ledger from a leader's orders and payments. Each payment
// lands in exactly one place: on the order it names, or in the unallocated
// bucket when it names none or an order that is not in orders.
func Compute(leader api.Leader, orders []api.Order, payments []api.Payment) View {
	view := View{
		Leader:         leader,
		OpeningBalance: leader.OpeningBalance,
		Orders:         make([]Entry, 0, len(orders)),
	}

	index := make(map[string]int, len(orders))
	for _, o := range orders {
		o.Payments = nil
		if o.ID != "" {
			if _, dup := index[o.ID]; dup {
				continue
			}
			index[o.ID] = len(view.Orders)
		}
		view.Orders = append(view.Orders, Entry{Order: o})
	}

	for _, p := range payments {
		i, ok := index[p.OrderID]
		if p.OrderID == "" || !ok {
			view.UnallocatedPayments = append(view.UnallocatedPayments, p)
			continue
		}
		view.Orders[i].Payments = append(view.Orders[i].Payments, p)
	}

	for i := range view.Orders {
		entry := &view.Orders[i]
		sortPayments(entry.Payments)

		paid := decimal.Zero
		for _, p := range entry.Payments {
			paid = paid.Add(p.Amount)
		}
		entry.PaidAmount = paid
		entry.Balance = clampZero(entry.Order.TotalAmount.Sub(paid))
		entry.Status = Status(entry.Order.Status, entry.Order.TotalAmount, paid)
		entry.Order.PaidAmount = paid
		entry.Order.Balance = entry.Balance
		entry.Order.Status = entry.Status

		view.Summary.TotalOrderAmount = view.Summary.TotalOrderAmount.Add(entry.Order.TotalAmount)
		view.Summary.TotalPaid = view.Summary.TotalPaid.Add(paid)
		view.Summary.TotalOutstanding = view.Summary.TotalOutstanding.Add(entry.Balance)
	}
	sortPayments(view.UnallocatedPayments)

	for _, p := range view.UnallocatedPayments {
		view.Summary.UnallocatedTotal = view.Summary.UnallocatedTotal.Add(p.Amount)
	}
	view.Summary.TotalOrders = len(view.Orders)
	view.Summary.NetOutstanding = view.OpeningBalance.
		Add(view.Summary.TotalOutstanding).
		Sub(view.Summary.UnallocatedTotal)

	return view
}

// FromAggregate converts the backend's ledger aggregate into a View using the
// same rules as Compute, so both sources always agree.
func FromAggregate(resp api.LedgerResponse) View {
	orders := make([]api.Order, 0, len(resp.Orders))
	var payments []api.Payment
	for _, o := range resp.Orders {
		for _, p := range o.Payments {
			if p.OrderID == "" {
				p.OrderID = o.ID
			}
			payments = append(payments, p)
		}
		orders = append(orders, o)
	}
	payments = append(payments, resp.UnallocatedPayments...)
	return Compute(resp.Leader, orders, payments)
}

// Status returns the backend status when there is one, and otherwise derives
// one from the amounts.
func Status(backend api.OrderStatus, total, paid decimal.Decimal) api.OrderStatus {
	if backend != "" {
		return backend
	}
	switch {
	case paid.IsPositive() && !total.Sub(paid).IsPositive():
		return api.OrderPaid
	case paid.IsPositive():
		return api.OrderPartiallyPaid
	case total.IsPositive():
		return api.OrderPending
	default:
		return api.OrderPaid
	}
}

// Find returns the entry for orderID.
func (v View) Find(orderID string) (Entry, bool) {
	for _, e := range v.Orders {
		if e.Order.ID == orderID {
			return e, true
		}
	}
	return Entry{}, false
}

// AllPayments returns every payment in the view, attached ones first.
func (v View) AllPayments() []api.Payment {
	var out []api.Payment
	for _, e := range v.Orders {
		out = append(out, e.Payments...)
	}
	return append(out, v.UnallocatedPayments...)
}

// sortPayments orders by payment date, keeping input order for ties.
func sortPayments(payments []api.Payment) {
	sort.SliceStable(payments, func(i, j int) bool {
		return payments[i].PaymentDate.Before(payments[j].PaymentDate)
	})
}

func clampZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
