/*
 * Copyright 2025 Muhammad Imran Rafique
 * SPDX-License-Identifier: Apache-2.0
 */
package routes

import (
	"net/http"
	"strings"

	"github.com/flamego/flamego"
	"github.com/flamego/session"
	"github.com/flamego/template"

	"github.com/muhammadimranrafique/copy-app/api"
	"github.com/muhammadimranrafique/copy-app/currency"
	"github.com/muhammadimranrafique/copy-app/utils"
)

type settingsForm struct {
	CompanyName    string `form:"company_name" validate:"max=200"`
	CompanyEmail   string `form:"company_email" validate:"omitempty,email"`
	CompanyPhone   string `form:"company_phone" validate:"omitempty,phone"`
	CompanyAddress string `form:"company_address" validate:"max=500"`
	CurrencyCode   string `form:"currency_code" validate:"required,len=3,alpha"`
	CurrencySymbol string `form:"currency_symbol" validate:"max=8"`
}

// Settings shows the company details, the currency preference and, with
// database sessions, the signed-in devices.
func Settings(c flamego.Context, s session.Session, store session.Store, b *Backend, money *currency.Formatter, t template.Template, data template.Data) {
	state := b.settings(c.Request().Context())
	if loadFailed(c, s, b, data, state.Err, "Failed to load settings") {
		return
	}

	pref := money.Preference()
	data["Settings"] = state.Data
	data["CurrencyOptions"] = currencyOptions(pref.Code)
	data["CurrencySymbol"] = pref.Symbol
	if devices, ok := signedInDevices(c.Request().Context(), store, s); ok {
		data["Devices"] = devices
		data["DevicesTracked"] = true
	}
	data["IsSettings"] = true
	data["Breadcrumbs"] = []BreadcrumbItem{
		{Name: "Settings", URL: "/settings", IsCurrent: true},
	}

	t.HTML(http.StatusOK, "settings")
}

// UpdateSettings saves the company details and currency. The currency is
// also kept in the session and every other tab of the session reloads.
func UpdateSettings(c flamego.Context, s session.Session, b *Backend, money *currency.Formatter) {
	if err := c.Request().ParseForm(); err != nil {
		SetErrorFlash(s, "Failed to parse form")
		c.Redirect("/settings", http.StatusSeeOther)
		return
	}
	form := c.Request().Form

	input := settingsForm{
		CompanyName:    strings.TrimSpace(form.Get("company_name")),
		CompanyEmail:   strings.TrimSpace(form.Get("company_email")),
		CompanyPhone:   strings.TrimSpace(form.Get("company_phone")),
		CompanyAddress: strings.TrimSpace(form.Get("company_address")),
		CurrencyCode:   strings.ToUpper(strings.TrimSpace(form.Get("currency_code"))),
		CurrencySymbol: strings.TrimSpace(form.Get("currency_symbol")),
	}
	if input.CurrencyCode == "" {
		input.CurrencyCode = money.Preference().Code
	}
	if err := utils.ValidateStruct(input); err != nil {
		SetErrorFlash(s, utils.FirstValidationMessage(err))
		c.Redirect("/settings", http.StatusSeeOther)
		return
	}

	pref := currency.NewPreference(input.CurrencyCode, input.CurrencySymbol)
	phone := input.CompanyPhone
	if phone != "" {
		phone = utils.FormatPhone(phone, utils.DefaultRegion)
	}

	_, err := b.API.UpdateSettings(c.Request().Context(), api.SettingsInput{
		CompanyName:    input.CompanyName,
		CompanyEmail:   input.CompanyEmail,
		CompanyPhone:   phone,
		CompanyAddress: input.CompanyAddress,
		CurrencyCode:   pref.Code,
		CurrencySymbol: pref.Symbol,
	})
	if err != nil {
		redirectOnAPIError(c, s, b, err, "Failed to save settings", "/settings")
		return
	}
	b.invalidate(keySettings)

	if pref != money.Preference() {
		setSessionCurrency(s, pref)
		b.publish(EventCurrency)
	} else {
		b.publish(EventSettings)
	}

	SetSuccessFlash(s, "Settings saved")
	c.Redirect("/settings", http.StatusSeeOther)
}

// NotFound sends unknown paths back to the dashboard.
func NotFound(c flamego.Context) {
	c.Redirect("/", http.StatusSeeOther)
}
