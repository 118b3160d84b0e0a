/*
 * Copyright 2025 Muhammad Imran Rafique
 * SPDX-License-Identifier: Apache-2.0
 */
package api

import (
	"context"
	"net/http"
)

// SettingsInput is the body for updating shop settings. Empty fields are left
// unchanged by the backend.
type SettingsInput struct {
	CompanyName    string
	CompanyEmail   string
	CompanyPhone   string
	CompanyAddress string
	CurrencyCode   string
	CurrencySymbol string
	Timezone       string
	DateFormat     string
}

func (in SettingsInput) payload() map[string]any {
	body := map[string]any{}
	set := func(key, value string) {
		if value != "" {
			body[key] = value
		}
	}
	set("company_name", in.CompanyName)
	set("company_email", in.CompanyEmail)
	set("company_phone", in.CompanyPhone)
	set("company_address", in.CompanyAddress)
	set("currency_code", in.CurrencyCode)
	set("currency_symbol", in.CurrencySymbol)
	set("timezone", in.Timezone)
	set("date_format", in.DateFormat)
	return body
}

// GetSettings returns the shop settings.
func (c *Client) GetSettings(ctx context.Context) (*Settings, error) {
	raw, err := c.do(ctx, request{method: http.MethodGet, path: "/settings/"})
	if err != nil {
		return nil, err
	}
	settings, err := mapOne(raw, toSettings)
	if err != nil {
		return nil, decodeErr("/settings/", err)
	}
	if settings == nil {
		settings = &Settings{}
	}
	return settings, nil
}

// UpdateSettings stores new shop settings.
func (c *Client) UpdateSettings(ctx context.Context, in SettingsInput) (*Settings, error) {
	raw, err := c.do(ctx, request{method: http.MethodPut, path: "/settings/", body: in.payload()})
	if err != nil {
		return nil, err
	}
	settings, err := mapOne(raw, toSettings)
	return settings, decodeErr("/settings/", err)
}
