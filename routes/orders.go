/*
 * Copyright 2025 Muhammad Imran Rafique
 * SPDX-License-Identifier: Apache-2.0
 */
package routes

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/flamego/flamego"
	"github.com/flamego/session"
	"github.com/flamego/template"
	"github.com/shopspring/decimal"

	"github.com/muhammadimranrafique/copy-app/api"
	"github.com/muhammadimranrafique/copy-app/currency"
	"github.com/muhammadimranrafique/copy-app/ledger"
	"github.com/muhammadimranrafique/copy-app/utils"
)

// newOrderItemRows is how many blank item rows the new order form offers.
const newOrderItemRows = 3

type orderForm struct {
	OrderNumber string `form:"order_number" validate:"required,max=50"`
	LeaderID    string `form:"leader_id" validate:"required,uuid"`
	Status      string `form:"status" validate:"required,orderstatus"`
	Category    string `form:"category" validate:"max=100"`
	Paper       string `form:"paper" validate:"max=100"`
	Details     string `form:"details" validate:"max=2000"`
}

// orderSubmission is a parsed order form plus the optional first payment
// taken when the order is created.
type orderSubmission struct {
	Input          api.OrderInput
	InitialPayment decimal.Decimal
	PaymentMethod  api.PaymentMethod
}

// Orders lists orders with leader and status filters and an add form.
func Orders(c flamego.Context, s session.Session, b *Backend, t template.Template, data template.Data) {
	ctx := c.Request().Context()

	filter := api.OrderFilter{Status: api.OrderStatus(strings.TrimSpace(c.Query("status")))}
	if leaderID, ok := optionalID(c.Query("leader")); ok {
		filter.LeaderID = leaderID
	}

	orders := b.orders(ctx, filter)
	if loadFailed(c, s, b, data, orders.Err, "Failed to load orders") {
		return
	}
	leaders := b.leaders(ctx)
	if loadFailed(c, s, b, data, leaders.Err, "Failed to load leaders") {
		return
	}
	products := b.products(ctx)
	if loadFailed(c, s, b, data, products.Err, "Failed to load products") {
		return
	}

	data["Orders"] = orders.Data
	data["Leaders"] = leaders.Data
	data["Products"] = products.Data
	data["LeaderFilter"] = filter.LeaderID
	data["StatusOptions"] = stringOptions(api.OrderStatuses, filter.Status)
	data["FormStatusOptions"] = stringOptions(api.OrderStatuses, api.OrderPending)
	data["MethodOptions"] = stringOptions(api.PaymentMethods, api.MethodCash)
	data["Today"] = dateInput(time.Now())
	data["ItemRows"] = make([]struct{}, newOrderItemRows)
	data["IsOrders"] = true
	data["Breadcrumbs"] = []BreadcrumbItem{
		{Name: "Orders", URL: "/orders", IsCurrent: true},
	}

	t.HTML(http.StatusOK, "orders")
}

// parseOrderForm reads and validates the order form. Line items come as
// parallel item_product_id, item_quantity and item_unit_price fields; when
// the total is left empty it is the sum of the lines.
func parseOrderForm(form url.Values, money *currency.Formatter) (orderSubmission, string) {
	input := orderForm{
		OrderNumber: strings.TrimSpace(form.Get("order_number")),
		LeaderID:    strings.TrimSpace(form.Get("leader_id")),
		Status:      strings.TrimSpace(form.Get("status")),
		Category:    strings.TrimSpace(form.Get("category")),
		Paper:       strings.TrimSpace(form.Get("paper")),
		Details:     strings.TrimSpace(form.Get("details")),
	}
	if input.Status == "" {
		input.Status = string(api.OrderPending)
	}
	if input.LeaderID == "" {
		return orderSubmission{}, "Please select a leader"
	}
	if err := utils.ValidateStruct(input); err != nil {
		return orderSubmission{}, utils.FirstValidationMessage(err)
	}

	orderDate, err := parseFormDate(form.Get("order_date"), false)
	if err != nil {
		return orderSubmission{}, "Invalid order date"
	}
	pages, err := parseQuantity(form.Get("pages"))
	if err != nil {
		return orderSubmission{}, "Pages must be a whole number"
	}

	items, err := parseOrderItems(form, money)
	if err != nil {
		return orderSubmission{}, err.Error()
	}

	total, err := parseMoney(money, form.Get("total_amount"))
	if err != nil {
		return orderSubmission{}, "Total amount must be a number"
	}
	if total.IsZero() && len(items) > 0 {
		for _, item := range items {
			total = total.Add(item.LineTotal())
		}
	}

	initial, err := parseMoney(money, form.Get("initial_payment"))
	if err != nil || initial.IsNegative() {
		return orderSubmission{}, "Initial payment must be a positive number"
	}
	method := api.PaymentMethod(strings.TrimSpace(form.Get("payment_method")))
	if method == "" {
		method = api.MethodCash
	}

	return orderSubmission{
		Input: api.OrderInput{
			OrderNumber: input.OrderNumber,
			LeaderID:    input.LeaderID,
			OrderDate:   orderDate,
			TotalAmount: total,
			Status:      api.OrderStatus(input.Status),
			Category:    input.Category,
			Pages:       pages,
			Paper:       input.Paper,
			Details:     input.Details,
			Items:       items,
		},
		InitialPayment: initial,
		PaymentMethod:  method,
	}, ""
}

func parseOrderItems(form url.Values, money *currency.Formatter) ([]api.OrderItem, error) {
	productIDs := form["item_product_id"]
	quantities := form["item_quantity"]
	prices := form["item_unit_price"]

	items := make([]api.OrderItem, 0, len(productIDs))
	for i, productID := range productIDs {
		productID = strings.TrimSpace(productID)
		if productID == "" {
			continue
		}
		if _, ok := optionalID(productID); !ok {
			return nil, errors.New("Invalid product")
		}

		quantity := 0
		if i < len(quantities) {
			q, err := parseQuantity(quantities[i])
			if err != nil {
				return nil, err
			}
			quantity = q
		}
		if quantity == 0 {
			return nil, errInvalidQuantity
		}

		price := decimal.Zero
		if i < len(prices) {
			p, err := parseMoney(money, prices[i])
			if err != nil || p.IsNegative() {
				return nil, errors.New("Unit price must be a positive number")
			}
			price = p
		}

		items = append(items, api.OrderItem{ProductID: productID, Quantity: quantity, UnitPrice: price})
	}
	return items, nil
}

// CreateOrder adds an order and, when requested, records the first payment
// against it.
func CreateOrder(c flamego.Context, s session.Session, b *Backend, money *currency.Formatter) {
	if err := c.Request().ParseForm(); err != nil {
		SetErrorFlash(s, "Failed to parse form")
		c.Redirect("/orders", http.StatusSeeOther)
		return
	}

	sub, problem := parseOrderForm(c.Request().Form, money)
	if problem != "" {
		SetErrorFlash(s, problem)
		c.Redirect("/orders", http.StatusSeeOther)
		return
	}
	if err := ledger.ValidateOrderTotal(sub.Input.TotalAmount, decimal.Zero); err != nil {
		SetErrorFlash(s, orderValidationMessage(err))
		c.Redirect("/orders", http.StatusSeeOther)
		return
	}

	var initialOrder *api.Order
	if sub.InitialPayment.IsPositive() {
		initialOrder = &api.Order{OrderNumber: sub.Input.OrderNumber, TotalAmount: sub.Input.TotalAmount}
		if err := ledger.ValidatePayment(sub.InitialPayment, initialOrder, decimal.Zero, decimal.Zero); err != nil {
			SetErrorFlash(s, paymentValidationMessage(err, money))
			c.Redirect("/orders", http.StatusSeeOther)
			return
		}
	}

	ctx := c.Request().Context()
	order, err := b.API.CreateOrder(ctx, sub.Input)
	if err != nil {
		redirectOnAPIError(c, s, b, err, "Failed to create order", "/orders")
		return
	}
	b.invalidateMoney()
	b.invalidate(keyLeaders)

	if initialOrder != nil && order != nil && order.ID != "" {
		_, err := b.API.CreatePayment(ctx, api.PaymentInput{
			Amount:      sub.InitialPayment,
			Method:      sub.PaymentMethod,
			LeaderID:    sub.Input.LeaderID,
			OrderID:     order.ID,
			PaymentDate: sub.Input.OrderDate,
		})
		if err != nil {
			redirectOnAPIError(c, s, b, err, "Order created, but the initial payment failed", "/orders")
			return
		}
		b.invalidateMoney()
	}

	SetSuccessFlash(s, "Order created successfully")
	c.Redirect("/orders", http.StatusSeeOther)
}

// EditOrderForm renders the edit page for one order.
func EditOrderForm(c flamego.Context, s session.Session, b *Backend, t template.Template, data template.Data) {
	id, ok := routeID(c, "id")
	if !ok {
		SetErrorFlash(s, "Invalid order ID")
		c.Redirect("/orders", http.StatusSeeOther)
		return
	}
	ctx := c.Request().Context()

	state := refetch(ctx, b, func(ctx context.Context) (*api.Order, error) {
		return b.API.GetOrder(ctx, id)
	}, keyOrders, "one", id)
	if state.Err != nil || state.Data == nil {
		redirectOnAPIError(c, s, b, notFoundIfNil(state.Err, "Order not found"), "Failed to load order", "/orders")
		return
	}
	leaders := b.leaders(ctx)
	if loadFailed(c, s, b, data, leaders.Err, "Failed to load leaders") {
		return
	}
	products := b.products(ctx)
	if loadFailed(c, s, b, data, products.Err, "Failed to load products") {
		return
	}

	order := state.Data
	data["Order"] = order
	data["OrderDate"] = dateInput(order.OrderDate)
	data["Leaders"] = leaders.Data
	data["Products"] = products.Data
	data["StatusOptions"] = stringOptions(api.OrderStatuses, order.Status)
	data["IsOrders"] = true
	data["Breadcrumbs"] = []BreadcrumbItem{
		{Name: "Orders", URL: "/orders", IsCurrent: false},
		{Name: order.OrderNumber, URL: "", IsCurrent: false},
		{Name: "Edit", URL: "", IsCurrent: true},
	}

	t.HTML(http.StatusOK, "order_edit")
}

// UpdateOrder saves an edited order. The new total may not drop below what
// has already been paid.
func UpdateOrder(c flamego.Context, s session.Session, b *Backend, money *currency.Formatter) {
	id, ok := routeID(c, "id")
	if !ok {
		SetErrorFlash(s, "Invalid order ID")
		c.Redirect("/orders", http.StatusSeeOther)
		return
	}
	back := "/orders/" + id + "/edit"

	if err := c.Request().ParseForm(); err != nil {
		SetErrorFlash(s, "Failed to parse form")
		c.Redirect(back, http.StatusSeeOther)
		return
	}
	sub, problem := parseOrderForm(c.Request().Form, money)
	if problem != "" {
		SetErrorFlash(s, problem)
		c.Redirect(back, http.StatusSeeOther)
		return
	}

	ctx := c.Request().Context()
	current, err := b.API.GetOrder(ctx, id)
	if err != nil || current == nil {
		redirectOnAPIError(c, s, b, notFoundIfNil(err, "Order not found"), "Failed to load order", "/orders")
		return
	}

	paid, err := paidAgainst(ctx, b, current)
	if err != nil {
		redirectOnAPIError(c, s, b, err, "Failed to load payments for order", back)
		return
	}
	if err := ledger.ValidateOrderTotal(sub.Input.TotalAmount, paid); err != nil {
		SetErrorFlash(s, orderValidationMessage(err))
		c.Redirect(back, http.StatusSeeOther)
		return
	}

	if _, err := b.API.UpdateOrder(ctx, id, sub.Input); err != nil {
		redirectOnAPIError(c, s, b, err, "Failed to update order", back)
		return
	}

	b.invalidateMoney()
	SetSuccessFlash(s, "Order updated successfully")
	c.Redirect("/orders", http.StatusSeeOther)
}

// DeleteOrderConfirm shows what deleting an order would take with it.
func DeleteOrderConfirm(c flamego.Context, s session.Session, b *Backend, t template.Template, data template.Data) {
	id, ok := routeID(c, "id")
	if !ok {
		SetErrorFlash(s, "Invalid order ID")
		c.Redirect("/orders", http.StatusSeeOther)
		return
	}
	ctx := c.Request().Context()

	order, err := b.API.GetOrder(ctx, id)
	if err != nil || order == nil {
		redirectOnAPIError(c, s, b, notFoundIfNil(err, "Order not found"), "Failed to load order", "/orders")
		return
	}
	summary, err := b.API.OrderPaymentSummary(ctx, id)
	if err != nil {
		redirectOnAPIError(c, s, b, err, "Failed to load payment summary", "/orders")
		return
	}

	data["Order"] = order
	data["Summary"] = summary
	data["IsOrders"] = true
	data["Breadcrumbs"] = []BreadcrumbItem{
		{Name: "Orders", URL: "/orders", IsCurrent: false},
		{Name: order.OrderNumber, URL: "", IsCurrent: false},
		{Name: "Delete", URL: "", IsCurrent: true},
	}

	t.HTML(http.StatusOK, "order_delete")
}

// DeleteOrder removes an order once the confirmation page was submitted.
func DeleteOrder(c flamego.Context, s session.Session, b *Backend) {
	id, ok := routeID(c, "id")
	if !ok {
		SetErrorFlash(s, "Invalid order ID")
		c.Redirect("/orders", http.StatusSeeOther)
		return
	}

	if err := c.Request().ParseForm(); err != nil || c.Request().Form.Get("confirm") != "delete" {
		SetWarningFlash(s, "Review the payments that will be removed before deleting")
		c.Redirect("/orders/"+id+"/delete", http.StatusSeeOther)
		return
	}

	if err := b.API.DeleteOrder(c.Request().Context(), id); err != nil {
		redirectOnAPIError(c, s, b, err, "Failed to delete order", "/orders")
		return
	}

	b.invalidateMoney()
	b.invalidate(keyLeaders)
	SetSuccessFlash(s, "Order deleted")
	c.Redirect("/orders", http.StatusSeeOther)
}

// OrderInvoice downloads the backend-generated invoice PDF.
func OrderInvoice(c flamego.Context, s session.Session, b *Backend) {
	id, ok := routeID(c, "id")
	if !ok {
		SetErrorFlash(s, "Invalid order ID")
		c.Redirect("/orders", http.StatusSeeOther)
		return
	}

	dl, err := b.API.OrderInvoice(c.Request().Context(), id)
	if err != nil {
		redirectOnAPIError(c, s, b, err, "Failed to generate invoice", "/orders")
		return
	}
	serveDownload(c, dl)
}

func orderValidationMessage(err error) string {
	switch {
	case errors.Is(err, ledger.ErrTotalRequired):
		return "Total amount must be greater than 0"
	case errors.Is(err, ledger.ErrBelowPaid):
		return "New total would violate paid amount: " + strings.TrimPrefix(err.Error(), ledger.ErrBelowPaid.Error()+": ")
	default:
		return err.Error()
	}
}

func notFoundIfNil(err error, message string) error {
	if err != nil {
		return err
	}
	return &api.APIError{Status: http.StatusNotFound, Message: message}
}
