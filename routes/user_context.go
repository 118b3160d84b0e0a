/*
 * Copyright 2025 Muhammad Imran Rafique
 * SPDX-License-Identifier: Apache-2.0
 */
package routes

import (
	"github.com/flamego/flamego"
	"github.com/flamego/session"
	"github.com/flamego/template"

	"github.com/muhammadimranrafique/copy-app/currency"
)

// UserContextInjector loads session user metadata and the currency formatter
// into templates.
func UserContextInjector() flamego.Handler {
	return func(c flamego.Context, s session.Session, data template.Data) {
		money := sessionFormatter(s)
		c.Map(money)
		data["Money"] = money
		data["Currency"] = money.Preference()

		authenticated, _ := s.Get(sessionKeyAuthenticated).(bool)
		data["IsAuthenticated"] = authenticated
		if !authenticated {
			return
		}

		user, err := sessionUser(s)
		if err != nil {
			return
		}
		data["CurrentUser"] = user
		data["IsAdmin"] = user.IsAdmin()
	}
}

// currencyOptions lists the selectable currencies for forms.
func currencyOptions(selected string) []map[string]interface{} {
	codes := currency.Codes()
	options := make([]map[string]interface{}, 0, len(codes))
	for _, code := range codes {
		options = append(options, map[string]interface{}{
			"Code":     code,
			"Symbol":   currency.Symbols[code],
			"Selected": code == selected,
		})
	}
	return options
}
