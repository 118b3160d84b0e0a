/*
 * Copyright 2025 Muhammad Imran Rafique
 * SPDX-License-Identifier: Apache-2.0
 */
package routes

import (
	"strconv"
	"strings"
	"time"

	"github.com/flamego/flamego"
	"github.com/shopspring/decimal"

	"github.com/muhammadimranrafique/copy-app/currency"
	"github.com/muhammadimranrafique/copy-app/utils"
)

const formDateLayout = "2006-01-02"

// BreadcrumbItem represents a single breadcrumb navigation item
type BreadcrumbItem struct {
	Name      string
	URL       string
	IsCurrent bool
}

type selectOption struct {
	Value    string
	Label    string
	Selected bool
}

func stringOptions[T ~string](values []T, selected T) []selectOption {
	options := make([]selectOption, 0, len(values))
	for _, v := range values {
		options = append(options, selectOption{Value: string(v), Label: string(v), Selected: v == selected})
	}
	return options
}

// routeID returns the {name} path parameter when it is a canonical UUID.
func routeID(c flamego.Context, name string) (string, bool) {
	id := strings.TrimSpace(c.Param(name))
	if err := utils.ValidateUUID(id); err != nil {
		return "", false
	}
	return id, true
}

// optionalID accepts an empty value or a canonical UUID.
func optionalID(value string) (string, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", true
	}
	if err := utils.ValidateUUID(value); err != nil {
		return "", false
	}
	return value, true
}

// parseFormDate reads a yyyy-mm-dd form value. An empty value yields today
// when required is false.
func parseFormDate(value string, required bool) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		if required {
			return time.Time{}, errMissingDate
		}
		now := time.Now()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local), nil
	}

	if parsed, err := time.ParseInLocation(formDateLayout, trimmed, time.Local); err == nil {
		return parsed, nil
	}
	if parsed, err := time.ParseInLocation("2006-01-02T15:04", trimmed, time.Local); err == nil {
		return parsed, nil
	}
	return time.Time{}, errInvalidDate
}

// parseOptionalDate is parseFormDate that allows an empty value.
func parseOptionalDate(value string) (time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return time.Time{}, nil
	}
	return parseFormDate(value, true)
}

// parseMoney reads an amount typed in the user's currency format. An empty
// value is zero.
func parseMoney(money *currency.Formatter, value string) (decimal.Decimal, error) {
	if strings.TrimSpace(value) == "" {
		return decimal.Zero, nil
	}
	return money.Parse(value)
}

func parseQuantity(value string) (int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return 0, errInvalidQuantity
	}
	return n, nil
}

func dateInput(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(formDateLayout)
}
