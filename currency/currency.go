/*
 * Copyright 2025 Muhammad Imran Rafique
 * SPDX-License-Identifier: Apache-2.0
 */
package currency

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	DefaultCode   = "PKR"
	DefaultSymbol = "Rs"

	// Places is the number of decimals money is shown and parsed with.
	Places = 2
)

var (
	ErrEmptyAmount   = errors.New("amount is empty")
	ErrInvalidAmount = errors.New("amount is not a number")
)

// Symbols maps the currencies offered in settings to their display symbols.
var Symbols = map[string]string{
	"PKR": "Rs",
	"INR": "₹",
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"AED": "AED",
	"SAR": "SAR",
}

var locales = map[string]language.Tag{
	"PKR": language.MustParse("en-PK"),
	"INR": language.MustParse("en-IN"),
	"USD": language.AmericanEnglish,
	"EUR": language.German,
	"GBP": language.BritishEnglish,
	"AED": language.MustParse("en-AE"),
	"SAR": language.MustParse("en-SA"),
}

// Codes returns the supported currency codes in alphabetical order.
func Codes() []string {
	codes := make([]string, 0, len(Symbols))
	for code := range Symbols {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Locale returns the formatting locale for a currency code. Unknown codes
// format as en-US.
func Locale(code string) language.Tag {
	if tag, ok := locales[strings.ToUpper(strings.TrimSpace(code))]; ok {
		return tag
	}
	return language.AmericanEnglish
}

// Preference is the user's chosen currency.
type Preference struct {
	Code   string
	Symbol string
}

// Default is the preference used before the user picks one.
var Default = Preference{Code: DefaultCode, Symbol: DefaultSymbol}

// NewPreference normalizes a code and symbol pair. An empty code falls back
// to the default and an empty symbol to the code's usual symbol.
func NewPreference(code, symbol string) Preference {
	code = strings.ToUpper(strings.TrimSpace(code))
	symbol = strings.TrimSpace(symbol)
	if code == "" {
		code = DefaultCode
	}
	if symbol == "" {
		if s, ok := Symbols[code]; ok {
			symbol = s
		} else {
			symbol = code
		}
	}
	return Preference{Code: code, Symbol: symbol}
}

// Formatter renders and parses amounts for one preference. It is safe for
// concurrent use.
type Formatter struct {
	pref    Preference
	printer *message.Printer
	decimal string
	group   string
}

// New builds a Formatter for pref.
func New(pref Preference) *Formatter {
	pref = NewPreference(pref.Code, pref.Symbol)
	printer := message.NewPrinter(Locale(pref.Code))
	f := &Formatter{pref: pref, printer: printer}

	// Learn the separators from the printer itself rather than a table.
	f.decimal = separator(printer.Sprintf("%.1f", 1.5))
	f.group = separator(printer.Sprintf("%d", 1000000))
	if f.decimal == "" {
		f.decimal = "."
	}
	return f
}

// Preference returns the formatter's preference.
func (f *Formatter) Preference() Preference {
	return f.pref
}

// Format renders amount as symbol followed by the grouped amount with two
// decimals.
func (f *Formatter) Format(amount decimal.Decimal) string {
	amount = amount.Round(Places)
	sign := ""
	if amount.IsNegative() {
		sign = "-"
		amount = amount.Abs()
	}
	return sign + f.pref.Symbol + f.Number(amount)
}

// Number renders amount without a symbol.
func (f *Formatter) Number(amount decimal.Decimal) string {
	amount = amount.Round(Places)
	whole := amount.Truncate(0)
	frac := amount.Sub(whole).Abs().Shift(Places).IntPart()

	text := f.printer.Sprintf("%d", whole.IntPart())
	if amount.IsNegative() && whole.IsZero() {
		text = "-" + text
	}
	return fmt.Sprintf("%s%s%0*d", text, f.decimal, Places, frac)
}

// Parse reads an amount typed by a user, produced by Format or produced by
// Input. It accepts an optional symbol or code, the locale's grouping and
// decimal separators, and a leading minus sign. Where the locale groups with
// dots, "1.500" is fifteen hundred while "1500.00" and "12.5" keep the dot as
// the decimal point.
func (f *Formatter) Parse(text string) (decimal.Decimal, error) {
	s := strings.TrimSpace(text)
	for _, affix := range []string{f.pref.Symbol, f.pref.Code} {
		if affix == "" {
			continue
		}
		s = strings.ReplaceAll(s, affix, "")
	}
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	if s == "" {
		return decimal.Zero, ErrEmptyAmount
	}

	if !f.machineForm(s) {
		if f.group != "" && f.group != f.decimal {
			s = strings.ReplaceAll(s, f.group, "")
		}
		if f.decimal != "." {
			s = strings.ReplaceAll(s, f.decimal, ".")
		}
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, text)
	}
	return d.Round(Places), nil
}

// Input renders amount the way form inputs carry it: a plain dot decimal with
// two places and no grouping. Parse accepts it for every locale.
func Input(amount decimal.Decimal) string {
	return amount.StringFixed(Places)
}

// machineForm reports whether s is a dot-decimal number such as 1500.00 in a
// locale that groups with dots. A single dot followed by other than three
// digits cannot be grouping, so it is the decimal point.
func (f *Formatter) machineForm(s string) bool {
	if f.group != "." || strings.Contains(s, f.decimal) || strings.Count(s, ".") != 1 {
		return false
	}
	frac := s[strings.Index(s, ".")+1:]
	return len(frac) != 3
}

// separator returns the first run of non-digit characters in s.
func separator(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			if b.Len() > 0 {
				break
			}
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
