/*
 * Copyright 2025 Muhammad Imran Rafique
 * SPDX-License-Identifier: Apache-2.0
 */
package cmd

import (
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/muhammadimranrafique/copy-app/currency"
)

var allowedDataImagePrefixes = []string{
	"data:image/png;base64,",
	"data:image/jpeg;base64,",
	"data:image/gif;base64,",
	"data:image/webp;base64,",
}

func templateFuncMaps() []template.FuncMap {
	return []template.FuncMap{
		{
			"safeImageURL": safeImageURL,
			"date":         formatDate,
			"dateTime":     formatDateTime,
			"amountInput":  amountInput,
			"statusClass":  statusClass,
			"isNegative":   func(d decimal.Decimal) bool { return d.IsNegative() },
			"isPositive":   func(d decimal.Decimal) bool { return d.IsPositive() },
			"inc":          func(i int) int { return i + 1 },
		},
	}
}

// safeImageURL allows embedded raster images and plain http(s) URLs in img
// tags. Anything else renders as an empty src.
func safeImageURL(raw string) template.URL {
	value := strings.TrimSpace(raw)
	if value == "" {
		return ""
	}

	lower := strings.ToLower(value)
	for _, prefix := range allowedDataImagePrefixes {
		if strings.HasPrefix(lower, prefix) {
			return template.URL(value) //nolint:gosec // restricted to raster data URLs
		}
	}

	if strings.HasPrefix(lower, "https://") || strings.HasPrefix(lower, "http://") {
		return template.URL(value) //nolint:gosec // plain web URL
	}

	return ""
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("02 Jan 2006")
}

func formatDateTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("02 Jan 2006 15:04")
}

// amountInput renders an amount for a form input, without grouping or
// symbol, in the form currency.Formatter.Parse reads back.
func amountInput(d decimal.Decimal) string {
	return currency.Input(d)
}

// statusClass turns an order or payment status into a CSS modifier, e.g.
// "Partially Paid" becomes "status-partially-paid".
func statusClass(status any) string {
	s := strings.ToLower(strings.TrimSpace(fmt.Sprint(status)))
	if s == "" {
		return "status-unknown"
	}
	return "status-" + strings.Join(strings.Fields(s), "-")
}
