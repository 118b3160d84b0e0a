// SPDX-FileCopyrightText: 2025 Muhammad Imran Rafique
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/shopspring/decimal"
)

func TestToOrderAcceptsBothCasings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{name: "snake", body: `{"id":"o1","order_number":"ORD-1","client_id":"l1","total_amount":5000,"paid_amount":"1500.50","order_date":"2025-02-01T10:00:00","status":"PARTIALLY_PAID"}`},
		{name: "camel", body: `{"id":"o1","orderNumber":"ORD-1","leaderId":"l1","totalAmount":"5000","paidAmount":1500.5,"orderDate":"2025-02-01T10:00:00Z","status":"Partially Paid"}`},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			o, err := decodeObject(json.RawMessage(tt.body))
			if err != nil {
				t.Fatalf("decodeObject failed: %v", err)
			}
			order := toOrder(o)
			if order.OrderNumber != "ORD-1" || order.LeaderID != "l1" {
				t.Fatalf("unexpected identity fields %+v", order)
			}
			if !order.TotalAmount.Equal(decimal.NewFromInt(5000)) {
				t.Fatalf("unexpected total %s", order.TotalAmount)
			}
			if !order.Balance.Equal(decimal.RequireFromString("3499.5")) {
				t.Fatalf("expected recomputed balance 3499.5, got %s", order.Balance)
			}
			if order.Status != OrderPartiallyPaid {
				t.Fatalf("unexpected status %q", order.Status)
			}
			if order.OrderDate.Year() != 2025 || order.OrderDate.Month() != time.February {
				t.Fatalf("unexpected date %v", order.OrderDate)
			}
		})
	}
}

func TestToOrderDefaults(t *testing.T) {
	t.Parallel()

	o, err := decodeObject(json.RawMessage(`{"id":"o2","total_amount":100,"balance":40,"order_date":"not a date"}`))
	if err != nil {
		t.Fatalf("decodeObject failed: %v", err)
	}
	order := toOrder(o)
	if order.OrderNumber != "N/A" {
		t.Fatalf("expected N/A order number, got %q", order.OrderNumber)
	}
	if !order.OrderDate.IsZero() {
		t.Fatalf("expected zero date for unparseable input, got %v", order.OrderDate)
	}
	if !order.Balance.Equal(decimal.NewFromInt(40)) {
		t.Fatalf("backend balance should win when present, got %s", order.Balance)
	}
}

func TestDecodeListEnvelopes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
		want int
	}{
		{name: "bare array", body: `[{"id":"a"},{"id":"b"}]`, want: 2},
		{name: "items envelope", body: `{"items":[{"id":"a"}],"total":1}`, want: 1},
		{name: "named envelope", body: `{"leaders":[{"id":"a"},{"id":"b"},{"id":"c"}]}`, want: 3},
		{name: "null", body: `null`, want: 0},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			leaders, err := mapList(json.RawMessage(tt.body), toLeader, "leaders")
			if err != nil {
				t.Fatalf("mapList failed: %v", err)
			}
			if len(leaders) != tt.want {
				t.Fatalf("expected %d leaders, got %d", tt.want, len(leaders))
			}
		})
	}

	if _, err := decodeList(json.RawMessage(`"nope"`)); !errors.Is(err, errUnexpectedList) {
		t.Fatalf("expected errUnexpectedList, got %v", err)
	}
}

func TestToLedger(t *testing.T) {
	t.Parallel()

	body := `{
		"client": {"id":"l1","name":"City School","type":"School","opening_balance":"250"},
		"summary": {"total_orders":1,"total_order_amount":15000,"total_paid":15000,"total_outstanding":0},
		"orders": [{"id":"o1","order_number":"ORD-7","total_amount":15000,"paid_amount":15000,"balance":0,"status":"Paid",
			"payments":[{"id":"p1","amount":6000,"mode":"Cash","payment_date":"2025-01-02"},{"id":"p2","amount":9000,"mode":"BANK_TRANSFER","payment_date":"2025-01-09"}]}],
		"unallocated_payments": [{"id":"p3","amount":500,"mode":"UPI","payment_date":"2025-01-10"}]
	}`
	o, err := decodeObject(json.RawMessage(body))
	if err != nil {
		t.Fatalf("decodeObject failed: %v", err)
	}
	ledger := toLedger(o)

	if ledger.Leader.Name != "City School" || !ledger.Leader.OpeningBalance.Equal(decimal.NewFromInt(250)) {
		t.Fatalf("unexpected leader %+v", ledger.Leader)
	}
	if len(ledger.Orders) != 1 || len(ledger.Orders[0].Payments) != 2 {
		t.Fatalf("unexpected orders %+v", ledger.Orders)
	}
	second := ledger.Orders[0].Payments[1]
	if second.Method != MethodBankTransfer || second.OrderID != "o1" || second.LeaderID != "l1" {
		t.Fatalf("nested payment not linked: %+v", second)
	}
	if len(ledger.UnallocatedPayments) != 1 || ledger.UnallocatedPayments[0].Allocated() {
		t.Fatalf("unexpected unallocated payments %+v", ledger.UnallocatedPayments)
	}
	if ledger.Summary.TotalOrders != 1 || !ledger.Summary.TotalPaid.Equal(decimal.NewFromInt(15000)) {
		t.Fatalf("unexpected summary %+v", ledger.Summary)
	}
}

func TestErrorDetail(t *testing.T) {
	t.Parallel()

	o, _ := decodeObject(json.RawMessage(`{"detail":[{"loc":["body","amount"],"msg":"bad"},{"msg":"worse"}]}`))
	if got := errorDetail(o); got != "amount: bad; worse" {
		t.Fatalf("unexpected detail %q", got)
	}
}

func TestMoneyLogsMalformedAmount(t *testing.T) {
	var buf bytes.Buffer
	previous := wireLogger
	wireLogger = log.NewWithOptions(&buf, log.Options{Level: log.DebugLevel, Formatter: log.LogfmtFormatter})
	t.Cleanup(func() { wireLogger = previous })

	o, err := decodeObject(json.RawMessage(`{"amount":"12abc","paid_amount":"1,500.25"}`))
	if err != nil {
		t.Fatalf("failed to decode object: %v", err)
	}

	if got := o.money("paidAmount", "paid_amount"); !got.Equal(decimal.RequireFromString("1500.25")) {
		t.Fatalf("expected 1500.25, got %s", got)
	}
	if buf.Len() != 0 {
		t.Fatalf("expected no log for a valid amount, got %q", buf.String())
	}

	if got := o.money("amount"); !got.IsZero() {
		t.Fatalf("expected zero for malformed amount, got %s", got)
	}
	out := buf.String()
	if !strings.Contains(out, "Malformed amount") || !strings.Contains(out, "12abc") {
		t.Fatalf("expected malformed amount to be logged, got %q", out)
	}
}
