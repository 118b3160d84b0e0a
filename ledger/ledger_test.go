// SPDX-FileCopyrightText: 2025 Muhammad Imran Rafique
// SPDX-License-Identifier: Apache-2.0

package ledger

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/muhammadimranrafique/copy-app/api"
)

func dec(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func onDay(n int) time.Time {
	return time.Date(2025, 1, n, 9, 0, 0, 0, time.UTC)
}

func TestComputeFullyPaidOrder(t *testing.T) {
	t.Parallel()

	leader := api.Leader{ID: "l1", Name: "City School", OpeningBalance: dec(5000)}
	orders := []api.Order{{ID: "o1", OrderNumber: "ORD-1", LeaderID: "l1", TotalAmount: dec(15000), OrderDate: onDay(1)}}
	payments := []api.Payment{
		{ID: "p2", OrderID: "o1", Amount: dec(9000), PaymentDate: onDay(5)},
		{ID: "p1", OrderID: "o1", Amount: dec(6000), PaymentDate: onDay(3)},
	}

	view := Compute(leader, orders, payments)
	entry := view.Orders[0]

	if !entry.PaidAmount.Equal(dec(15000)) || !entry.Balance.IsZero() {
		t.Fatalf("expected paid 15000 balance 0, got %s / %s", entry.PaidAmount, entry.Balance)
	}
	if entry.Status != api.OrderPaid {
		t.Fatalf("expected Paid, got %q", entry.Status)
	}
	if entry.Payments[0].ID != "p1" || entry.Payments[1].ID != "p2" {
		t.Fatalf("payments not sorted by date: %+v", entry.Payments)
	}
	if !view.Summary.TotalOutstanding.IsZero() {
		t.Fatalf("opening balance must not leak into total outstanding, got %s", view.Summary.TotalOutstanding)
	}
	if !view.Summary.NetOutstanding.Equal(dec(5000)) {
		t.Fatalf("expected net outstanding 5000, got %s", view.Summary.NetOutstanding)
	}
}

func TestComputePartitionsPayments(t *testing.T) {
	t.Parallel()

	orders := []api.Order{
		{ID: "o1", TotalAmount: dec(1000)},
		{ID: "o2", TotalAmount: dec(2000)},
	}
	payments := []api.Payment{
		{ID: "a", OrderID: "o1", Amount: dec(300)},
		{ID: "b", OrderID: "o2", Amount: dec(500)},
		{ID: "c", Amount: dec(250)},
		{ID: "d", OrderID: "missing", Amount: dec(125)},
		{ID: "e", OrderID: "o1", Amount: dec(200)},
	}

	view := Compute(api.Leader{ID: "l1"}, orders, payments)

	attached := decimal.Zero
	for _, p := range payments {
		if p.OrderID == "o1" || p.OrderID == "o2" {
			attached = attached.Add(p.Amount)
		}
	}
	if !view.Summary.TotalPaid.Equal(attached) {
		t.Fatalf("paid total %s does not match attached payments %s", view.Summary.TotalPaid, attached)
	}

	seen := map[string]int{}
	for _, p := range view.AllPayments() {
		seen[p.ID]++
	}
	if len(seen) != len(payments) {
		t.Fatalf("expected every payment exactly once, got %v", seen)
	}
	for id, n := range seen {
		if n != 1 {
			t.Fatalf("payment %s counted %d times", id, n)
		}
	}

	if len(view.UnallocatedPayments) != 2 || !view.Summary.UnallocatedTotal.Equal(dec(375)) {
		t.Fatalf("unexpected unallocated bucket %+v", view.UnallocatedPayments)
	}
}

func TestComputeUnallocatedPaymentOnly(t *testing.T) {
	t.Parallel()

	orders := []api.Order{{ID: "o1", TotalAmount: dec(1000)}}
	payments := []api.Payment{{ID: "p1", LeaderID: "l1", Amount: dec(400)}}

	view := Compute(api.Leader{ID: "l1"}, orders, payments)

	if !view.Orders[0].PaidAmount.IsZero() || len(view.Orders[0].Payments) != 0 {
		t.Fatalf("unallocated payment must not attach to an order: %+v", view.Orders[0])
	}
	if len(view.UnallocatedPayments) != 1 || view.UnallocatedPayments[0].ID != "p1" {
		t.Fatalf("expected p1 in unallocated payments, got %+v", view.UnallocatedPayments)
	}
	if view.Orders[0].Status != api.OrderPending {
		t.Fatalf("expected Pending, got %q", view.Orders[0].Status)
	}
}

func TestComputeAfterPaymentDeletion(t *testing.T) {
	t.Parallel()

	orders := []api.Order{{ID: "o1", TotalAmount: dec(2000)}}
	before := []api.Payment{
		{ID: "p1", OrderID: "o1", Amount: dec(1000), PaymentDate: onDay(1)},
		{ID: "p2", OrderID: "o1", Amount: dec(500), PaymentDate: onDay(2)},
	}

	view := Compute(api.Leader{}, orders, before)
	if !view.Orders[0].PaidAmount.Equal(dec(1500)) {
		t.Fatalf("expected paid 1500, got %s", view.Orders[0].PaidAmount)
	}

	after := Compute(api.Leader{}, orders, before[:1])
	if !after.Orders[0].PaidAmount.Equal(dec(1000)) || !after.Orders[0].Balance.Equal(dec(1000)) {
		t.Fatalf("expected paid 1000 balance 1000, got %s / %s", after.Orders[0].PaidAmount, after.Orders[0].Balance)
	}
	if after.Orders[0].Status != api.OrderPartiallyPaid {
		t.Fatalf("expected Partially Paid, got %q", after.Orders[0].Status)
	}
}

func TestComputeClampsBalanceAndKeepsTies(t *testing.T) {
	t.Parallel()

	orders := []api.Order{{ID: "o1", TotalAmount: dec(100), Status: api.OrderDelivered}}
	payments := []api.Payment{
		{ID: "first", OrderID: "o1", Amount: dec(80), PaymentDate: onDay(2)},
		{ID: "second", OrderID: "o1", Amount: dec(50), PaymentDate: onDay(2)},
	}

	view := Compute(api.Leader{}, orders, payments)
	entry := view.Orders[0]

	if !entry.Balance.IsZero() || !entry.Overpaid() {
		t.Fatalf("expected clamped balance on overpaid order, got %s", entry.Balance)
	}
	if entry.Status != api.OrderDelivered {
		t.Fatalf("backend status must win, got %q", entry.Status)
	}
	if entry.Payments[0].ID != "first" || entry.Payments[1].ID != "second" {
		t.Fatalf("ties must keep input order: %+v", entry.Payments)
	}
}

func TestStatusFallback(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		backend api.OrderStatus
		total   int64
		paid    int64
		want    api.OrderStatus
	}{
		{name: "unpaid", total: 1000, paid: 0, want: api.OrderPending},
		{name: "partial", total: 1000, paid: 1, want: api.OrderPartiallyPaid},
		{name: "settled", total: 1000, paid: 1000, want: api.OrderPaid},
		{name: "backend wins", backend: api.OrderInProduction, total: 1000, paid: 1000, want: api.OrderInProduction},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Status(tt.backend, dec(tt.total), dec(tt.paid)); got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestFromAggregateMatchesCompute(t *testing.T) {
	t.Parallel()

	leader := api.Leader{ID: "l1", OpeningBalance: dec(5000)}
	resp := api.LedgerResponse{
		Leader: leader,
		// Backend summary values are ignored in favour of recomputation.
		Summary: api.LedgerSummary{TotalOutstanding: dec(99999)},
		Orders: []api.Order{{
			ID: "o1", TotalAmount: dec(15000), Balance: dec(15000),
			Payments: []api.Payment{{ID: "p1", Amount: dec(6000)}, {ID: "p2", Amount: dec(9000)}},
		}},
		UnallocatedPayments: []api.Payment{{ID: "p3", Amount: dec(500)}},
	}

	view := FromAggregate(resp)
	if !view.Orders[0].PaidAmount.Equal(dec(15000)) || !view.Summary.TotalOutstanding.IsZero() {
		t.Fatalf("unexpected aggregate view %+v", view.Summary)
	}
	if !view.Summary.NetOutstanding.Equal(dec(4500)) {
		t.Fatalf("expected net outstanding 4500, got %s", view.Summary.NetOutstanding)
	}
	if len(view.UnallocatedPayments) != 1 {
		t.Fatalf("expected one unallocated payment, got %d", len(view.UnallocatedPayments))
	}
}

func TestValidatePaymentOverpayment(t *testing.T) {
	t.Parallel()

	order := &api.Order{ID: "o1", OrderNumber: "ORD-9", TotalAmount: dec(1000)}

	err := ValidatePayment(dec(400), order, dec(700), decimal.Zero)
	var overpay *OverpaymentError
	if !errors.As(err, &overpay) {
		t.Fatalf("expected OverpaymentError, got %v", err)
	}
	if excess, ok := Excess(err); !ok || !excess.Equal(dec(100)) {
		t.Fatalf("expected excess 100, got %s", excess)
	}
	if !bytes.Contains([]byte(err.Error()), []byte("100.00")) {
		t.Fatalf("message must state the excess: %q", err.Error())
	}

	if err := ValidatePayment(dec(300), order, dec(700), decimal.Zero); err != nil {
		t.Fatalf("exact settlement should pass, got %v", err)
	}
	// Editing the 700 payment down to 650 frees room.
	if err := ValidatePayment(dec(650), order, dec(700), dec(700)); err != nil {
		t.Fatalf("edit within total should pass, got %v", err)
	}
	if err := ValidatePayment(dec(0), order, decimal.Zero, decimal.Zero); !errors.Is(err, ErrAmountRequired) {
		t.Fatalf("expected ErrAmountRequired, got %v", err)
	}
	if err := ValidatePayment(dec(99999), nil, decimal.Zero, decimal.Zero); err != nil {
		t.Fatalf("unallocated payments have no ceiling, got %v", err)
	}
}

func TestValidateOrderTotal(t *testing.T) {
	t.Parallel()

	if err := ValidateOrderTotal(dec(900), dec(1000)); !errors.Is(err, ErrBelowPaid) {
		t.Fatalf("expected ErrBelowPaid, got %v", err)
	}
	if err := ValidateOrderTotal(dec(1000), dec(1000)); err != nil {
		t.Fatalf("total equal to paid should pass, got %v", err)
	}
	if err := ValidateOrderTotal(decimal.Zero, decimal.Zero); !errors.Is(err, ErrTotalRequired) {
		t.Fatalf("expected ErrTotalRequired, got %v", err)
	}
}

func TestStatementRunningBalance(t *testing.T) {
	t.Parallel()

	view := Compute(api.Leader{OpeningBalance: dec(5000)},
		[]api.Order{{ID: "o1", OrderNumber: "ORD-1", TotalAmount: dec(15000), OrderDate: onDay(1)}},
		[]api.Payment{
			{ID: "p1", OrderID: "o1", Amount: dec(6000), PaymentDate: onDay(1)},
			{ID: "p2", OrderID: "o1", Amount: dec(9000), PaymentDate: onDay(4)},
			{ID: "p3", Amount: dec(1000), PaymentDate: onDay(6)},
		})

	lines := view.Statement()
	if len(lines) != 5 {
		t.Fatalf("expected 5 lines, got %d", len(lines))
	}
	if lines[1].Kind != LineOrder {
		t.Fatalf("order must precede same-day payment, got %q", lines[1].Kind)
	}
	want := []int64{5000, 20000, 14000, 5000, 4000}
	for i, w := range want {
		if !lines[i].Balance.Equal(dec(w)) {
			t.Fatalf("line %d: expected balance %d, got %s", i, w, lines[i].Balance)
		}
	}
	if !lines[len(lines)-1].Balance.Equal(view.Summary.NetOutstanding) {
		t.Fatalf("closing balance must equal net outstanding")
	}
}

func TestWriteXLSX(t *testing.T) {
	t.Parallel()

	view := Compute(api.Leader{Name: "City School", OpeningBalance: dec(5000)},
		[]api.Order{{ID: "o1", OrderNumber: "ORD-1", TotalAmount: dec(15000), OrderDate: onDay(1)}},
		[]api.Payment{{ID: "p1", OrderID: "o1", Amount: dec(6000), PaymentDate: onDay(2), Method: api.MethodCash}})

	var buf bytes.Buffer
	if err := WriteXLSX(&buf, view); err != nil {
		t.Fatalf("WriteXLSX failed: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader failed: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) != 4 || sheets[0] != "Summary" {
		t.Fatalf("unexpected sheets %v", sheets)
	}
	if v, _ := f.GetCellValue("Orders", "A2"); v != "ORD-1" {
		t.Fatalf("expected order number in Orders!A2, got %q", v)
	}
	if v, _ := f.GetCellValue("Summary", "B2"); v != "City School" {
		t.Fatalf("expected leader name in Summary!B2, got %q", v)
	}

	if name := Filename(view, onDay(9)); name != "ledger_city-school_20250109.xlsx" {
		t.Fatalf("unexpected filename %q", name)
	}
}
