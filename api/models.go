/*
 * Copyright 2025 Muhammad Imran Rafique
 * SPDX-License-Identifier: Apache-2.0
 */
package api

import (
	"io"
	"time"

	"github.com/shopspring/decimal"
)

// LeaderType is the kind of client account.
type LeaderType string

const (
	LeaderSchool LeaderType = "School"
	LeaderDealer LeaderType = "Dealer"
)

// OrderStatus is the production/payment state of an order.
type OrderStatus string

const (
	OrderPending       OrderStatus = "Pending"
	OrderInProduction  OrderStatus = "In Production"
	OrderDelivered     OrderStatus = "Delivered"
	OrderPartiallyPaid OrderStatus = "Partially Paid"
	OrderPaid          OrderStatus = "Paid"
)

// OrderStatuses lists every status in display order.
var OrderStatuses = []OrderStatus{OrderPending, OrderInProduction, OrderDelivered, OrderPartiallyPaid, OrderPaid}

// PaymentMethod is how a payment was made.
type PaymentMethod string

const (
	MethodCash         PaymentMethod = "Cash"
	MethodBankTransfer PaymentMethod = "Bank Transfer"
	MethodCheque       PaymentMethod = "Cheque"
	MethodUPI          PaymentMethod = "UPI"
)

// PaymentMethods lists every accepted payment method.
var PaymentMethods = []PaymentMethod{MethodCash, MethodBankTransfer, MethodCheque, MethodUPI}

// ExpenseCategory is one of the fixed expense buckets.
type ExpenseCategory string

const (
	ExpenseMaterial  ExpenseCategory = "MATERIAL"
	ExpenseStaff     ExpenseCategory = "STAFF"
	ExpenseUtilities ExpenseCategory = "UTILITIES"
	ExpensePrinting  ExpenseCategory = "PRINTING"
	ExpensePrinting1 ExpenseCategory = "PRINTING_1"
	ExpensePrinting2 ExpenseCategory = "PRINTING_2"
	ExpensePrinting3 ExpenseCategory = "PRINTING_3"
	ExpensePaper     ExpenseCategory = "PAPER"
	ExpensePaper1    ExpenseCategory = "PAPER_1"
	ExpensePaper2    ExpenseCategory = "PAPER_2"
	ExpensePaper3    ExpenseCategory = "PAPER_3"
	ExpenseDelivery  ExpenseCategory = "DELIVERY"
	ExpenseMisc      ExpenseCategory = "MISC"
)

// ExpenseCategories lists every expense category in display order.
var ExpenseCategories = []ExpenseCategory{
	ExpenseMaterial, ExpenseStaff, ExpenseUtilities,
	ExpensePrinting, ExpensePrinting1, ExpensePrinting2, ExpensePrinting3,
	ExpensePaper, ExpensePaper1, ExpensePaper2, ExpensePaper3,
	ExpenseDelivery, ExpenseMisc,
}

// User is the authenticated account as reported by the backend.
type User struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
}

// IsAdmin reports whether the user has the admin role.
func (u User) IsAdmin() bool {
	return u.Role == "admin"
}

// DisplayName returns the best human-readable name for the user.
func (u User) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Email
}

// Leader is a client account: a school or a dealer.
type Leader struct {
	ID             string
	Name           string
	Type           LeaderType
	Contact        string
	Address        string
	OpeningBalance decimal.Decimal
	CreatedAt      time.Time
}

// OrderItem is a single line of an order.
type OrderItem struct {
	ID          string
	ProductID   string
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
}

// LineTotal is quantity times unit price.
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Order is a customer order.
type Order struct {
	ID          string
	OrderNumber string
	LeaderID    string
	LeaderName  string
	OrderDate   time.Time
	TotalAmount decimal.Decimal
	PaidAmount  decimal.Decimal
	Balance     decimal.Decimal
	Status      OrderStatus
	Category    string
	Pages       int
	Paper       string
	Details     string
	Items       []OrderItem
	// Payments is only populated by the ledger aggregate endpoint.
	Payments  []Payment
	CreatedAt time.Time
}

// Payment is money received from a leader, optionally against one order.
type Payment struct {
	ID              string
	Amount          decimal.Decimal
	Method          PaymentMethod
	Status          string
	PaymentDate     time.Time
	CreatedAt       time.Time
	LeaderID        string
	LeaderName      string
	OrderID         string
	ReferenceNumber string
}

// Allocated reports whether the payment is tied to an order.
func (p Payment) Allocated() bool {
	return p.OrderID != ""
}

// Product is a catalogue item.
type Product struct {
	ID            string
	Name          string
	Category      string
	CostPrice     decimal.Decimal
	SalePrice     decimal.Decimal
	StockQuantity int
	Unit          string
	IsActive      bool
	CreatedAt     time.Time
}

// Expense is money spent by the shop.
type Expense struct {
	ID              string
	Category        ExpenseCategory
	Amount          decimal.Decimal
	Description     string
	ExpenseDate     time.Time
	PaymentMethod   string
	ReferenceNumber string
	OrderCategory   string
	CreatedAt       time.Time
}

// DashboardStats is the aggregate returned by /dashboard/stats.
type DashboardStats struct {
	TotalOrders    int
	TotalRevenue   decimal.Decimal
	TotalPayments  decimal.Decimal
	TotalExpenses  decimal.Decimal
	NetProfit      decimal.Decimal
	PendingOrders  int
	RecentOrders   []Order
	RecentPayments []Payment
}

// Settings are the shop-wide preferences stored by the backend.
type Settings struct {
	ID             string
	CompanyName    string
	CompanyEmail   string
	CompanyPhone   string
	CompanyAddress string
	CurrencyCode   string
	CurrencySymbol string
	Timezone       string
	DateFormat     string
	UpdatedAt      time.Time
}

// PaymentSummary describes the payments that would be removed with an order.
type PaymentSummary struct {
	OrderID      string
	OrderNumber  string
	PaymentCount int
	TotalPaid    decimal.Decimal
}

// LedgerSummary is the summary block of the backend ledger aggregate.
type LedgerSummary struct {
	TotalOrders      int
	TotalOrderAmount decimal.Decimal
	TotalPaid        decimal.Decimal
	TotalOutstanding decimal.Decimal
}

// LedgerResponse is the backend's /leaders/{id}/ledger aggregate. Orders carry
// their payments in Order.Payments.
type LedgerResponse struct {
	Leader              Leader
	Summary             LedgerSummary
	Orders              []Order
	UnallocatedPayments []Payment
}

// Download is a binary response streamed from the backend. Callers must close
// Body.
type Download struct {
	Body        io.ReadCloser
	ContentType string
	Filename    string
}
