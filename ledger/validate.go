/*
 * Copyright 2025 Muhammad Imran Rafique
 * SPDX-License-Identifier: Apache-2.0
 */
package ledger

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/muhammadimranrafique/copy-app/api"
)

var (
	ErrAmountRequired = errors.New("amount must be greater than zero")
	ErrTotalRequired  = errors.New("order total must be greater than zero")
	ErrBelowPaid      = errors.New("new total would violate paid amount")
)

// OverpaymentError rejects a payment that would push an order's paid amount
// past its total.
type OverpaymentError struct {
	OrderNumber string
	Total       decimal.Decimal
	Paid        decimal.Decimal
	Excess      decimal.Decimal
}

func (e *OverpaymentError) Error() string {
	return fmt.Sprintf("payment exceeds the outstanding balance of order %s by %s (total %s, already paid %s)",
		e.OrderNumber, e.Excess.StringFixed(2), e.Total.StringFixed(2), e.Paid.StringFixed(2))
}

// ValidateOrderTotal checks a new or edited order total. paid is what has
// already been received against the order; pass zero for new orders.
func ValidateOrderTotal(total, paid decimal.Decimal) error {
	if !total.IsPositive() {
		return ErrTotalRequired
	}
	if total.LessThan(paid) {
		return fmt.Errorf("%w: total %s is below the %s already paid", ErrBelowPaid, total.StringFixed(2), paid.StringFixed(2))
	}
	return nil
}

// ValidatePayment checks a payment before it is sent to the backend. order
// is nil for unallocated payments. existingPaid is the order's current paid
// amount and previousAmount is the payment's old amount when editing, zero
// when creating.
func ValidatePayment(amount decimal.Decimal, order *api.Order, existingPaid, previousAmount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrAmountRequired
	}
	if order == nil {
		return nil
	}

	paid := existingPaid.Sub(previousAmount).Add(amount)
	if paid.GreaterThan(order.TotalAmount) {
		return &OverpaymentError{
			OrderNumber: order.OrderNumber,
			Total:       order.TotalAmount,
			Paid:        existingPaid.Sub(previousAmount),
			Excess:      paid.Sub(order.TotalAmount),
		}
	}
	return nil
}

// Excess extracts the overpayment amount from err.
func Excess(err error) (decimal.Decimal, bool) {
	var overpay *OverpaymentError
	if errors.As(err, &overpay) {
		return overpay.Excess, true
	}
	return decimal.Zero, false
}
