/*
 * Copyright 2025 Muhammad Imran Rafique
 * SPDX-License-Identifier: Apache-2.0
 */
package routes

import (
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
	"github.com/muhammadimranrafique/copy-app/utils"
)

type expenseForm struct {
	Category        string `form:"category" validate:"required,expensecategory"`
	Description     string `form:"description" validate:"required,max=500"`
	PaymentMethod   string `form:"payment_method" validate:"omitempty,paymentmethod"`
	ReferenceNumber string `form:"reference_number" validate:"max=100"`
	OrderCategory   string `form:"order_category" validate:"max=100"`
}

func expenseFilterFromQuery(c flamego.Context) (api.ExpenseFilter, string) {
	filter := api.ExpenseFilter{Category: api.ExpenseCategory(strings.TrimSpace(c.Query("category")))}

	from, err := parseOptionalDate(c.Query("from"))
	if err != nil {
		return api.ExpenseFilter{}, "Invalid start date"
	}
	to, err := parseOptionalDate(c.Query("to"))
	if err != nil {
		return api.ExpenseFilter{}, "Invalid end date"
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return api.ExpenseFilter{}, "End date is before start date"
	}

	filter.From = from
	filter.To = to
	return filter, ""
}

// Expenses lists expenses by category and date range with an add form.
func Expenses(c flamego.Context, s session.Session, b *Backend, t template.Template, data template.Data) {
	filter, problem := expenseFilterFromQuery(c)
	if problem != "" {
		SetErrorFlash(s, problem)
		c.Redirect("/expenses", http.StatusSeeOther)
		return
	}

	state := b.expenses(c.Request().Context(), filter)
	if loadFailed(c, s, b, data, state.Err, "Failed to load expenses") {
		return
	}

	total := decimal.Zero
	for _, e := range state.Data {
		total = total.Add(e.Amount)
	}

	data["Expenses"] = state.Data
	data["ExpenseTotal"] = total
	data["CategoryFilter"] = string(filter.Category)
	data["FromFilter"] = dateInput(filter.From)
	data["ToFilter"] = dateInput(filter.To)
	data["CategoryOptions"] = stringOptions(api.ExpenseCategories, filter.Category)
	data["FormCategoryOptions"] = stringOptions(api.ExpenseCategories, api.ExpenseMaterial)
	data["MethodOptions"] = stringOptions(api.PaymentMethods, api.MethodCash)
	data["Today"] = dateInput(time.Now())
	data["IsExpenses"] = true
	data["Breadcrumbs"] = []BreadcrumbItem{
		{Name: "Expenses", URL: "/expenses", IsCurrent: true},
	}

	t.HTML(http.StatusOK, "expenses")
}

func parseExpenseForm(form url.Values, money *currency.Formatter) (api.ExpenseInput, string) {
	input := expenseForm{
		Category:        strings.TrimSpace(form.Get("category")),
		Description:     strings.TrimSpace(form.Get("description")),
		PaymentMethod:   strings.TrimSpace(form.Get("payment_method")),
		ReferenceNumber: strings.TrimSpace(form.Get("reference_number")),
		OrderCategory:   strings.TrimSpace(form.Get("order_category")),
	}
	if err := utils.ValidateStruct(input); err != nil {
		return api.ExpenseInput{}, utils.FirstValidationMessage(err)
	}

	amount, err := parseMoney(money, form.Get("amount"))
	if err != nil {
		return api.ExpenseInput{}, "Amount must be a number"
	}
	if !amount.IsPositive() {
		return api.ExpenseInput{}, "Amount must be greater than 0"
	}
	expenseDate, err := parseFormDate(form.Get("expense_date"), false)
	if err != nil {
		return api.ExpenseInput{}, "Invalid expense date"
	}

	return api.ExpenseInput{
		Category:        api.ExpenseCategory(input.Category),
		Amount:          amount,
		Description:     input.Description,
		ExpenseDate:     expenseDate,
		PaymentMethod:   input.PaymentMethod,
		ReferenceNumber: input.ReferenceNumber,
		OrderCategory:   input.OrderCategory,
	}, ""
}

// CreateExpense records an expense.
func CreateExpense(c flamego.Context, s session.Session, b *Backend, money *currency.Formatter) {
	if err := c.Request().ParseForm(); err != nil {
		SetErrorFlash(s, "Failed to parse form")
		c.Redirect("/expenses", http.StatusSeeOther)
		return
	}

	input, problem := parseExpenseForm(c.Request().Form, money)
	if problem != "" {
		SetErrorFlash(s, problem)
		c.Redirect("/expenses", http.StatusSeeOther)
		return
	}

	if _, err := b.API.CreateExpense(c.Request().Context(), input); err != nil {
		redirectOnAPIError(c, s, b, err, "Failed to record expense", "/expenses")
		return
	}

	b.invalidate(keyExpenses)
	b.invalidate(keyDashboard)
	SetSuccessFlash(s, "Expense recorded successfully")
	c.Redirect("/expenses", http.StatusSeeOther)
}

// EditExpenseForm renders the edit page for one expense. The backend has no
// single-expense read, so it is looked up in the full list.
func EditExpenseForm(c flamego.Context, s session.Session, b *Backend, t template.Template, data template.Data) {
	id, ok := routeID(c, "id")
	if !ok {
		SetErrorFlash(s, "Invalid expense ID")
		c.Redirect("/expenses", http.StatusSeeOther)
		return
	}

	state := b.expenses(c.Request().Context(), api.ExpenseFilter{})
	if state.Err != nil {
		redirectOnAPIError(c, s, b, state.Err, "Failed to load expense", "/expenses")
		return
	}

	var expense *api.Expense
	for i := range state.Data {
		if state.Data[i].ID == id {
			expense = &state.Data[i]
			break
		}
	}
	if expense == nil {
		redirectOnAPIError(c, s, b, notFoundIfNil(nil, "Expense not found"), "Failed to load expense", "/expenses")
		return
	}

	data["Expense"] = expense
	data["ExpenseDate"] = dateInput(expense.ExpenseDate)
	data["CategoryOptions"] = stringOptions(api.ExpenseCategories, expense.Category)
	data["MethodOptions"] = stringOptions(api.PaymentMethods, api.PaymentMethod(expense.PaymentMethod))
	data["IsExpenses"] = true
	data["Breadcrumbs"] = []BreadcrumbItem{
		{Name: "Expenses", URL: "/expenses", IsCurrent: false},
		{Name: "Edit", URL: "", IsCurrent: true},
	}

	t.HTML(http.StatusOK, "expense_edit")
}

// UpdateExpense saves an edited expense.
func UpdateExpense(c flamego.Context, s session.Session, b *Backend, money *currency.Formatter) {
	id, ok := routeID(c, "id")
	if !ok {
		SetErrorFlash(s, "Invalid expense ID")
		c.Redirect("/expenses", http.StatusSeeOther)
		return
	}
	back := "/expenses/" + id + "/edit"

	if err := c.Request().ParseForm(); err != nil {
		SetErrorFlash(s, "Failed to parse form")
		c.Redirect(back, http.StatusSeeOther)
		return
	}
	input, problem := parseExpenseForm(c.Request().Form, money)
	if problem != "" {
		SetErrorFlash(s, problem)
		c.Redirect(back, http.StatusSeeOther)
		return
	}

	if _, err := b.API.UpdateExpense(c.Request().Context(), id, input); err != nil {
		redirectOnAPIError(c, s, b, err, "Failed to update expense", back)
		return
	}

	b.invalidate(keyExpenses)
	b.invalidate(keyDashboard)
	SetSuccessFlash(s, "Expense updated successfully")
	c.Redirect("/expenses", http.StatusSeeOther)
}

// DeleteExpense removes an expense.
func DeleteExpense(c flamego.Context, s session.Session, b *Backend) {
	id, ok := routeID(c, "id")
	if !ok {
		SetErrorFlash(s, "Invalid expense ID")
		c.Redirect("/expenses", http.StatusSeeOther)
		return
	}

	if err := b.API.DeleteExpense(c.Request().Context(), id); err != nil {
		redirectOnAPIError(c, s, b, err, "Failed to delete expense", "/expenses")
		return
	}

	b.invalidate(keyExpenses)
	b.invalidate(keyDashboard)
	SetSuccessFlash(s, "Expense deleted")
	c.Redirect("/expenses", http.StatusSeeOther)
}
