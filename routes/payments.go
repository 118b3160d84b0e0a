/*
 * Copyright 2025 Muhammad Imran Rafique
 * SPDX-License-Identifier: Apache-2.0
 */
package routes

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/flamego/flamego"
	"github.com/flamego/session"
	"github.com/flamego/template"
	"github.com/shopspring/decimal"
	"github.com/skip2/go-qrcode"

	"github.com/muhammadimranrafique/copy-app/api"
	"github.com/muhammadimranrafique/copy-app/currency"
	"github.com/muhammadimranrafique/copy-app/ledger"
	"github.com/muhammadimranrafique/copy-app/utils"
)

type paymentForm struct {
	LeaderID        string `form:"leader_id" validate:"required,uuid"`
	OrderID         string `form:"order_id" validate:"omitempty,uuid"`
	Method          string `form:"method" validate:"required,paymentmethod"`
	ReferenceNumber string `form:"reference_number" validate:"max=100"`
}

// Payments lists recorded payments with an add form. The leader and order
// query parameters narrow the list.
func Payments(c flamego.Context, s session.Session, b *Backend, t template.Template, data template.Data) {
	ctx := c.Request().Context()

	filter := api.PaymentFilter{}
	if leaderID, ok := optionalID(c.Query("leader")); ok {
		filter.LeaderID = leaderID
	}
	if orderID, ok := optionalID(c.Query("order")); ok {
		filter.OrderID = orderID
	}

	payments := b.payments(ctx, filter)
	if loadFailed(c, s, b, data, payments.Err, "Failed to load payments") {
		return
	}
	leaders := b.leaders(ctx)
	if loadFailed(c, s, b, data, leaders.Err, "Failed to load leaders") {
		return
	}
	orders := b.orders(ctx, api.OrderFilter{LeaderID: filter.LeaderID})
	if loadFailed(c, s, b, data, orders.Err, "Failed to load orders") {
		return
	}

	data["Payments"] = payments.Data
	data["Leaders"] = leaders.Data
	data["Orders"] = orders.Data
	data["LeaderFilter"] = filter.LeaderID
	data["OrderFilter"] = filter.OrderID
	data["MethodOptions"] = stringOptions(api.PaymentMethods, api.MethodCash)
	data["Today"] = dateInput(time.Now())
	data["IsPayments"] = true
	data["Breadcrumbs"] = []BreadcrumbItem{
		{Name: "Payments", URL: "/payments", IsCurrent: true},
	}

	t.HTML(http.StatusOK, "payments")
}

func parsePaymentForm(form url.Values, money *currency.Formatter) (api.PaymentInput, string) {
	input := paymentForm{
		LeaderID:        strings.TrimSpace(form.Get("leader_id")),
		OrderID:         strings.TrimSpace(form.Get("order_id")),
		Method:          strings.TrimSpace(form.Get("method")),
		ReferenceNumber: strings.TrimSpace(form.Get("reference_number")),
	}
	if input.Method == "" {
		input.Method = string(api.MethodCash)
	}
	if input.LeaderID == "" {
		return api.PaymentInput{}, "Please select a leader"
	}
	if err := utils.ValidateStruct(input); err != nil {
		return api.PaymentInput{}, utils.FirstValidationMessage(err)
	}

	amount, err := parseMoney(money, form.Get("amount"))
	if err != nil {
		return api.PaymentInput{}, "Amount must be a number"
	}
	paymentDate, err := parseFormDate(form.Get("payment_date"), false)
	if err != nil {
		return api.PaymentInput{}, "Invalid payment date"
	}

	return api.PaymentInput{
		Amount:          amount,
		Method:          api.PaymentMethod(input.Method),
		LeaderID:        input.LeaderID,
		OrderID:         input.OrderID,
		PaymentDate:     paymentDate,
		ReferenceNumber: input.ReferenceNumber,
	}, ""
}

// paidAgainst sums the payments currently attached to order. It reads the
// backend directly so validation never runs on cached figures.
func paidAgainst(ctx context.Context, b *Backend, order *api.Order) (decimal.Decimal, error) {
	payments, err := b.API.ListPayments(ctx, api.PaymentFilter{OrderID: order.ID})
	if err != nil {
		return decimal.Zero, err
	}

	paid := decimal.Zero
	for _, p := range payments {
		if p.OrderID == order.ID {
			paid = paid.Add(p.Amount)
		}
	}
	return paid, nil
}

// checkPayment validates a payment against its order. previous is the
// amount already counted on that order for the payment being edited.
func checkPayment(ctx context.Context, b *Backend, money *currency.Formatter, input api.PaymentInput, previous decimal.Decimal) (string, error) {
	if input.OrderID == "" {
		if err := ledger.ValidatePayment(input.Amount, nil, decimal.Zero, decimal.Zero); err != nil {
			return paymentValidationMessage(err, money), nil
		}
		return "", nil
	}

	order, err := b.API.GetOrder(ctx, input.OrderID)
	if err != nil {
		return "", err
	}
	if order == nil {
		return "", notFoundIfNil(nil, "Order not found")
	}
	if order.LeaderID != "" && order.LeaderID != input.LeaderID {
		return "Selected order does not belong to this leader", nil
	}

	paid, err := paidAgainst(ctx, b, order)
	if err != nil {
		return "", err
	}
	if err := ledger.ValidatePayment(input.Amount, order, paid, previous); err != nil {
		return paymentValidationMessage(err, money), nil
	}
	return "", nil
}

func paymentValidationMessage(err error, money *currency.Formatter) string {
	if excess, ok := ledger.Excess(err); ok {
		var overpay *ledger.OverpaymentError
		errors.As(err, &overpay)
		return fmt.Sprintf("Payment exceeds the outstanding balance of order %s by %s",
			overpay.OrderNumber, money.Format(excess))
	}
	if errors.Is(err, ledger.ErrAmountRequired) {
		return "Amount must be greater than 0"
	}
	return err.Error()
}

// CreatePayment records a payment, optionally against one of the leader's
// orders.
func CreatePayment(c flamego.Context, s session.Session, b *Backend, money *currency.Formatter) {
	if err := c.Request().ParseForm(); err != nil {
		SetErrorFlash(s, "Failed to parse form")
		c.Redirect("/payments", http.StatusSeeOther)
		return
	}
	back := "/payments"
	if next := c.Request().Form.Get("next"); next != "" {
		back = sanitizeNextPath(next)
	}

	input, problem := parsePaymentForm(c.Request().Form, money)
	if problem != "" {
		SetErrorFlash(s, problem)
		c.Redirect(back, http.StatusSeeOther)
		return
	}

	ctx := c.Request().Context()
	problem, err := checkPayment(ctx, b, money, input, decimal.Zero)
	if err != nil {
		redirectOnAPIError(c, s, b, err, "Failed to record payment", back)
		return
	}
	if problem != "" {
		SetErrorFlash(s, problem)
		c.Redirect(back, http.StatusSeeOther)
		return
	}

	if _, err := b.API.CreatePayment(ctx, input); err != nil {
		redirectOnAPIError(c, s, b, err, "Failed to record payment", back)
		return
	}

	b.invalidateMoney()
	SetSuccessFlash(s, "Payment recorded successfully")
	c.Redirect(back, http.StatusSeeOther)
}

// EditPaymentForm renders the edit page for one payment.
func EditPaymentForm(c flamego.Context, s session.Session, b *Backend, t template.Template, data template.Data) {
	id, ok := routeID(c, "id")
	if !ok {
		SetErrorFlash(s, "Invalid payment ID")
		c.Redirect("/payments", http.StatusSeeOther)
		return
	}
	ctx := c.Request().Context()

	state := refetch(ctx, b, func(ctx context.Context) (*api.Payment, error) {
		return b.API.GetPayment(ctx, id)
	}, keyPayments, "one", id)
	if state.Err != nil || state.Data == nil {
		redirectOnAPIError(c, s, b, notFoundIfNil(state.Err, "Payment not found"), "Failed to load payment", "/payments")
		return
	}
	payment := state.Data

	leaders := b.leaders(ctx)
	if loadFailed(c, s, b, data, leaders.Err, "Failed to load leaders") {
		return
	}
	orders := b.orders(ctx, api.OrderFilter{LeaderID: payment.LeaderID})
	if loadFailed(c, s, b, data, orders.Err, "Failed to load orders") {
		return
	}

	data["Payment"] = payment
	data["PaymentDate"] = dateInput(payment.PaymentDate)
	data["Leaders"] = leaders.Data
	data["Orders"] = orders.Data
	data["MethodOptions"] = stringOptions(api.PaymentMethods, payment.Method)
	data["IsPayments"] = true
	data["Breadcrumbs"] = []BreadcrumbItem{
		{Name: "Payments", URL: "/payments", IsCurrent: false},
		{Name: "Edit", URL: "", IsCurrent: true},
	}

	t.HTML(http.StatusOK, "payment_edit")
}

// UpdatePayment saves an edited payment. The old amount only counts against
// the order when the payment stays on the same order.
func UpdatePayment(c flamego.Context, s session.Session, b *Backend, money *currency.Formatter) {
	id, ok := routeID(c, "id")
	if !ok {
		SetErrorFlash(s, "Invalid payment ID")
		c.Redirect("/payments", http.StatusSeeOther)
		return
	}
	back := "/payments/" + id + "/edit"

	if err := c.Request().ParseForm(); err != nil {
		SetErrorFlash(s, "Failed to parse form")
		c.Redirect(back, http.StatusSeeOther)
		return
	}
	input, problem := parsePaymentForm(c.Request().Form, money)
	if problem != "" {
		SetErrorFlash(s, problem)
		c.Redirect(back, http.StatusSeeOther)
		return
	}

	ctx := c.Request().Context()
	current, err := b.API.GetPayment(ctx, id)
	if err != nil || current == nil {
		redirectOnAPIError(c, s, b, notFoundIfNil(err, "Payment not found"), "Failed to load payment", "/payments")
		return
	}

	previous := decimal.Zero
	if current.OrderID != "" && current.OrderID == input.OrderID {
		previous = current.Amount
	}

	problem, err = checkPayment(ctx, b, money, input, previous)
	if err != nil {
		redirectOnAPIError(c, s, b, err, "Failed to update payment", back)
		return
	}
	if problem != "" {
		SetErrorFlash(s, problem)
		c.Redirect(back, http.StatusSeeOther)
		return
	}

	if _, err := b.API.UpdatePayment(ctx, id, input); err != nil {
		redirectOnAPIError(c, s, b, err, "Failed to update payment", back)
		return
	}

	b.invalidateMoney()
	SetSuccessFlash(s, "Payment updated successfully")
	c.Redirect("/payments", http.StatusSeeOther)
}

// DeletePayment removes a payment.
func DeletePayment(c flamego.Context, s session.Session, b *Backend) {
	id, ok := routeID(c, "id")
	if !ok {
		SetErrorFlash(s, "Invalid payment ID")
		c.Redirect("/payments", http.StatusSeeOther)
		return
	}

	if err := b.API.DeletePayment(c.Request().Context(), id); err != nil {
		redirectOnAPIError(c, s, b, err, "Failed to delete payment", "/payments")
		return
	}

	b.invalidateMoney()
	SetSuccessFlash(s, "Payment deleted")
	c.Redirect("/payments", http.StatusSeeOther)
}

// PaymentReceiptPage renders a printable receipt with a QR code carrying
// the receipt details.
func PaymentReceiptPage(c flamego.Context, s session.Session, b *Backend, money *currency.Formatter, t template.Template, data template.Data) {
	id, ok := routeID(c, "id")
	if !ok {
		SetErrorFlash(s, "Invalid payment ID")
		c.Redirect("/payments", http.StatusSeeOther)
		return
	}
	ctx := c.Request().Context()

	state := b.payment(ctx, id)
	if state.Err != nil || state.Data == nil {
		redirectOnAPIError(c, s, b, notFoundIfNil(state.Err, "Payment not found"), "Failed to load payment", "/payments")
		return
	}
	payment := state.Data

	settings := b.settings(ctx)
	if settings.Err != nil && api.IsUnauthorized(settings.Err) {
		redirectOnAPIError(c, s, b, settings.Err, "Failed to load settings", "/payments")
		return
	}
	if settings.Data != nil {
		data["Company"] = settings.Data
	}

	if payment.OrderID != "" {
		order := b.order(ctx, payment.OrderID)
		if order.Err == nil && order.Data != nil {
			data["Order"] = order.Data
		}
	}

	qr, err := generateQRCodeBase64(receiptText(payment, money))
	if err != nil {
		logger.Error("Error generating receipt QR code", "payment_id", id, "error", err)
	} else {
		data["QRCode"] = "data:image/png;base64," + qr
	}

	data["Payment"] = payment
	data["HeaderOnly"] = true
	data["IsPayments"] = true
	data["Breadcrumbs"] = []BreadcrumbItem{
		{Name: "Payments", URL: "/payments", IsCurrent: false},
		{Name: "Receipt", URL: "", IsCurrent: true},
	}

	t.HTML(http.StatusOK, "payment_receipt")
}

// PaymentReceiptPDF downloads the backend-generated receipt.
func PaymentReceiptPDF(c flamego.Context, s session.Session, b *Backend) {
	id, ok := routeID(c, "id")
	if !ok {
		SetErrorFlash(s, "Invalid payment ID")
		c.Redirect("/payments", http.StatusSeeOther)
		return
	}

	dl, err := b.API.PaymentReceipt(c.Request().Context(), id)
	if err != nil {
		redirectOnAPIError(c, s, b, err, "Failed to generate receipt", "/payments/"+id+"/receipt")
		return
	}
	serveDownload(c, dl)
}

func receiptText(p *api.Payment, money *currency.Formatter) string {
	lines := []string{
		"Receipt " + p.ID,
		"Received from: " + p.LeaderName,
		"Amount: " + money.Format(p.Amount),
		"Method: " + string(p.Method),
		"Date: " + dateInput(p.PaymentDate),
	}
	if p.ReferenceNumber != "" {
		lines = append(lines, "Reference: "+p.ReferenceNumber)
	}
	return strings.Join(lines, "\n")
}

func generateQRCodeBase64(value string) (string, error) {
	png, err := qrcode.Encode(value, qrcode.Medium, 256)
	if err != nil {
		return "", fmt.Errorf("failed to generate qr code: %w", err)
	}

	return base64.StdEncoding.EncodeToString(png), nil
}
