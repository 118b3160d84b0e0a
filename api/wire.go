/*
 * Copyright 2025 Muhammad Imran Rafique
 * SPDX-License-Identifier: Apache-2.0
 */
package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/muhammadimranrafique/copy-app/logging"
)

// object is a decoded JSON object whose fields may arrive in snake_case or
// camelCase. Every backend payload passes through it exactly once before it
// becomes one of the canonical types in models.go.
type object map[string]json.RawMessage

var wireLogger = logging.Logger(logging.SourceAPI)

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func decodeObject(raw json.RawMessage) (object, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return object{}, nil
	}
	if trimmed[0] != '{' {
		return nil, errUnexpectedObject
	}
	var o object
	if err := json.Unmarshal(trimmed, &o); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	return o, nil
}

// decodeList accepts a bare array or an envelope with items/data/<name> keys.
func decodeList(raw json.RawMessage, envelopeKeys ...string) ([]object, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	if trimmed[0] == '{' {
		o, err := decodeObject(trimmed)
		if err != nil {
			return nil, err
		}
		keys := append([]string{"items", "data"}, envelopeKeys...)
		inner, ok := o.raw(keys...)
		if !ok {
			return nil, errUnexpectedList
		}
		return decodeList(inner)
	}
	if trimmed[0] != '[' {
		return nil, errUnexpectedList
	}
	var items []json.RawMessage
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	out := make([]object, 0, len(items))
	for _, item := range items {
		o, err := decodeObject(item)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}

// raw returns the first present, non-null value among keys.
func (o object) raw(keys ...string) (json.RawMessage, bool) {
	for _, key := range keys {
		v, ok := o[key]
		if !ok {
			continue
		}
		if bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			continue
		}
		return v, true
	}
	return nil, false
}

func (o object) has(keys ...string) bool {
	_, ok := o.raw(keys...)
	return ok
}

func (o object) str(keys ...string) string {
	v, ok := o.raw(keys...)
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return strings.TrimSpace(s)
	}
	// Numbers and booleans are rendered as their literal text.
	return strings.Trim(string(bytes.TrimSpace(v)), `"`)
}

func (o object) money(keys ...string) decimal.Decimal {
	v, ok := o.raw(keys...)
	if !ok {
		return decimal.Zero
	}
	text := strings.Trim(string(bytes.TrimSpace(v)), `"`)
	d, err := decimal.NewFromString(strings.ReplaceAll(text, ",", ""))
	if err != nil {
		wireLogger.Debug("Malformed amount read as zero", "keys", keys, "value", text)
		return decimal.Zero
	}
	return d
}

func (o object) integer(keys ...string) int {
	v, ok := o.raw(keys...)
	if !ok {
		return 0
	}
	text := strings.Trim(string(bytes.TrimSpace(v)), `"`)
	if n, err := strconv.Atoi(text); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(text, 64); err == nil {
		return int(f)
	}
	return 0
}

func (o object) boolean(def bool, keys ...string) bool {
	v, ok := o.raw(keys...)
	if !ok {
		return def
	}
	var b bool
	if err := json.Unmarshal(v, &b); err != nil {
		return def
	}
	return b
}

func (o object) timestamp(keys ...string) time.Time {
	s := o.str(keys...)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func (o object) child(keys ...string) object {
	v, ok := o.raw(keys...)
	if !ok {
		return object{}
	}
	child, err := decodeObject(v)
	if err != nil {
		return object{}
	}
	return child
}

func (o object) children(keys ...string) []object {
	v, ok := o.raw(keys...)
	if !ok {
		return nil
	}
	list, err := decodeList(v)
	if err != nil {
		return nil
	}
	return list
}

func toLeader(o object) Leader {
	return Leader{
		ID:             o.str("id"),
		Name:           o.str("name"),
		Type:           LeaderType(o.str("type")),
		Contact:        o.str("contact"),
		Address:        o.str("address"),
		OpeningBalance: o.money("openingBalance", "opening_balance"),
		CreatedAt:      o.timestamp("createdAt", "created_at"),
	}
}

func toOrderItem(o object) OrderItem {
	return OrderItem{
		ID:          o.str("id"),
		ProductID:   o.str("productId", "product_id"),
		ProductName: o.str("productName", "product_name", "name"),
		Quantity:    o.integer("quantity", "qty"),
		UnitPrice:   o.money("unitPrice", "unit_price", "price"),
	}
}

func toOrder(o object) Order {
	order := Order{
		ID:          o.str("id"),
		OrderNumber: o.str("orderNumber", "order_number"),
		LeaderID:    o.str("leaderId", "leader_id", "clientId", "client_id"),
		LeaderName:  o.str("leaderName", "leader_name", "clientName", "client_name"),
		OrderDate:   o.timestamp("orderDate", "order_date"),
		TotalAmount: o.money("totalAmount", "total_amount"),
		PaidAmount:  o.money("paidAmount", "paid_amount"),
		Status:      OrderStatus(normalizeStatus(o.str("status"))),
		Category:    o.str("category", "orderCategory", "order_category"),
		Pages:       o.integer("pages"),
		Paper:       o.str("paper", "paperType", "paper_type"),
		Details:     o.str("details", "description"),
		CreatedAt:   o.timestamp("createdAt", "created_at"),
	}
	if order.OrderNumber == "" {
		order.OrderNumber = "N/A"
	}
	if order.LeaderName == "" {
		order.LeaderName = o.child("leader", "client").str("name")
	}
	if o.has("balance") {
		order.Balance = o.money("balance")
	} else {
		order.Balance = order.TotalAmount.Sub(order.PaidAmount)
	}
	for _, item := range o.children("items", "orderItems", "order_items") {
		order.Items = append(order.Items, toOrderItem(item))
	}
	for _, p := range o.children("payments") {
		payment := toPayment(p)
		if payment.OrderID == "" {
			payment.OrderID = order.ID
		}
		if payment.LeaderID == "" {
			payment.LeaderID = order.LeaderID
		}
		order.Payments = append(order.Payments, payment)
	}
	return order
}

// normalizeStatus maps enum-style spellings (PARTIALLY_PAID) to display values.
func normalizeStatus(raw string) string {
	switch strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(raw), " ", "_")) {
	case "":
		return ""
	case "PENDING":
		return string(OrderPending)
	case "IN_PRODUCTION":
		return string(OrderInProduction)
	case "DELIVERED":
		return string(OrderDelivered)
	case "PARTIALLY_PAID", "PARTIAL":
		return string(OrderPartiallyPaid)
	case "PAID":
		return string(OrderPaid)
	default:
		return raw
	}
}

func normalizeMethod(raw string) PaymentMethod {
	switch strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(raw), " ", "_")) {
	case "CASH":
		return MethodCash
	case "BANK_TRANSFER":
		return MethodBankTransfer
	case "CHEQUE", "CHECK":
		return MethodCheque
	case "UPI":
		return MethodUPI
	default:
		return PaymentMethod(raw)
	}
}

func toPayment(o object) Payment {
	p := Payment{
		ID:              o.str("id"),
		Amount:          o.money("amount"),
		Method:          normalizeMethod(o.str("method", "mode", "paymentMethod", "payment_method")),
		Status:          o.str("status"),
		PaymentDate:     o.timestamp("paymentDate", "payment_date"),
		CreatedAt:       o.timestamp("createdAt", "created_at"),
		LeaderID:        o.str("leaderId", "leader_id", "clientId", "client_id"),
		LeaderName:      o.str("leaderName", "leader_name", "clientName", "client_name"),
		OrderID:         o.str("orderId", "order_id"),
		ReferenceNumber: o.str("referenceNumber", "reference_number"),
	}
	if p.LeaderName == "" {
		p.LeaderName = o.child("client", "leader").str("name")
	}
	return p
}

func toProduct(o object) Product {
	return Product{
		ID:            o.str("id"),
		Name:          o.str("productName", "product_name", "name"),
		Category:      o.str("category"),
		CostPrice:     o.money("costPrice", "cost_price"),
		SalePrice:     o.money("salePrice", "sale_price"),
		StockQuantity: o.integer("stockQuantity", "stock_quantity"),
		Unit:          o.str("unit"),
		IsActive:      o.boolean(true, "isActive", "is_active"),
		CreatedAt:     o.timestamp("createdAt", "created_at"),
	}
}

func toExpense(o object) Expense {
	return Expense{
		ID:              o.str("id"),
		Category:        ExpenseCategory(strings.ToUpper(o.str("category"))),
		Amount:          o.money("amount"),
		Description:     o.str("description"),
		ExpenseDate:     o.timestamp("expenseDate", "expense_date"),
		PaymentMethod:   o.str("paymentMethod", "payment_method"),
		ReferenceNumber: o.str("referenceNumber", "reference_number"),
		OrderCategory:   o.str("orderCategory", "order_category"),
		CreatedAt:       o.timestamp("createdAt", "created_at"),
	}
}

func toSettings(o object) Settings {
	return Settings{
		ID:             o.str("id"),
		CompanyName:    o.str("companyName", "company_name"),
		CompanyEmail:   o.str("companyEmail", "company_email"),
		CompanyPhone:   o.str("companyPhone", "company_phone"),
		CompanyAddress: o.str("companyAddress", "company_address"),
		CurrencyCode:   o.str("currencyCode", "currency_code"),
		CurrencySymbol: o.str("currencySymbol", "currency_symbol"),
		Timezone:       o.str("timezone"),
		DateFormat:     o.str("dateFormat", "date_format"),
		UpdatedAt:      o.timestamp("updatedAt", "updated_at"),
	}
}

func toDashboardStats(o object) DashboardStats {
	stats := DashboardStats{
		TotalOrders:   o.integer("totalOrders", "total_orders"),
		TotalRevenue:  o.money("totalRevenue", "total_revenue"),
		TotalPayments: o.money("totalPayments", "total_payments"),
		TotalExpenses: o.money("totalExpenses", "total_expenses"),
		PendingOrders: o.integer("pendingOrders", "pending_orders"),
	}
	if o.has("netProfit", "net_profit") {
		stats.NetProfit = o.money("netProfit", "net_profit")
	} else {
		stats.NetProfit = stats.TotalRevenue.Sub(stats.TotalExpenses)
	}
	for _, item := range o.children("recentOrders", "recent_orders") {
		stats.RecentOrders = append(stats.RecentOrders, toOrder(item))
	}
	for _, item := range o.children("recentPayments", "recent_payments") {
		stats.RecentPayments = append(stats.RecentPayments, toPayment(item))
	}
	return stats
}

func toPaymentSummary(o object) PaymentSummary {
	return PaymentSummary{
		OrderID:      o.str("orderId", "order_id"),
		OrderNumber:  o.str("orderNumber", "order_number"),
		PaymentCount: o.integer("paymentCount", "payment_count", "count"),
		TotalPaid:    o.money("totalPaid", "total_paid", "total", "totalAmount", "total_amount"),
	}
}

func toUser(o object) User {
	return User{
		ID:       o.str("id"),
		Email:    o.str("email", "username"),
		FullName: o.str("fullName", "full_name", "name"),
		Role:     o.str("role"),
	}
}

func toLedger(o object) LedgerResponse {
	summary := o.child("summary")
	resp := LedgerResponse{
		Leader: toLeader(o.child("client", "leader")),
		Summary: LedgerSummary{
			TotalOrders:      summary.integer("totalOrders", "total_orders"),
			TotalOrderAmount: summary.money("totalOrderAmount", "total_order_amount"),
			TotalPaid:        summary.money("totalPaid", "total_paid"),
			TotalOutstanding: summary.money("totalOutstanding", "total_outstanding"),
		},
	}
	for _, item := range o.children("orders") {
		order := toOrder(item)
		if order.LeaderID == "" {
			order.LeaderID = resp.Leader.ID
		}
		resp.Orders = append(resp.Orders, order)
	}
	for _, item := range o.children("unallocatedPayments", "unallocated_payments") {
		payment := toPayment(item)
		if payment.LeaderID == "" {
			payment.LeaderID = resp.Leader.ID
		}
		resp.UnallocatedPayments = append(resp.UnallocatedPayments, payment)
	}
	return resp
}

func mapList[T any](raw json.RawMessage, convert func(object) T, envelopeKeys ...string) ([]T, error) {
	objects, err := decodeList(raw, envelopeKeys...)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(objects))
	for _, o := range objects {
		out = append(out, convert(o))
	}
	return out, nil
}

func mapOne[T any](raw json.RawMessage, convert func(object) T) (*T, error) {
	if raw == nil {
		return nil, nil
	}
	o, err := decodeObject(raw)
	if err != nil {
		return nil, err
	}
	v := convert(o)
	return &v, nil
}

// errorDetail extracts a human message from an error body. FastAPI sends
// detail as a string or as a list of validation problems.
func errorDetail(o object) string {
	if v, ok := o.raw("detail"); ok {
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			return s
		}
		var problems []struct {
			Loc []any  `json:"loc"`
			Msg string `json:"msg"`
		}
		if err := json.Unmarshal(v, &problems); err == nil && len(problems) > 0 {
			parts := make([]string, 0, len(problems))
			for _, p := range problems {
				if len(p.Loc) > 0 {
					parts = append(parts, fmt.Sprintf("%v: %s", p.Loc[len(p.Loc)-1], p.Msg))
				} else {
					parts = append(parts, p.Msg)
				}
			}
			return strings.Join(parts, "; ")
		}
	}
	return o.str("message", "error")
}
