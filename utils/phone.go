/*
 * Copyright 2025 Muhammad Imran Rafique
 * SPDX-License-Identifier: Apache-2.0
 */
package utils

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ttacon/libphonenumber"
)

// DefaultRegion is used for numbers typed without a country code.
const DefaultRegion = "PK"

var nonDigitRegex = regexp.MustCompile(`[^\d]`)

// NormalizePhone strips everything but digits, for comparison.
func NormalizePhone(phone string) string {
	return nonDigitRegex.ReplaceAllString(phone, "")
}

// ValidatePhone checks that phone is a dialable number in region.
func ValidatePhone(phone, region string) error {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return errEmptyPhone
	}
	if region == "" {
		region = DefaultRegion
	}
	p, err := libphonenumber.Parse(phone, region)
	if err != nil {
		return fmt.Errorf("%w: %v", errInvalidPhone, err)
	}
	if !libphonenumber.IsValidNumber(p) {
		return errInvalidPhone
	}
	return nil
}

// FormatPhone returns phone in international format, or the trimmed input
// when it cannot be parsed.
func FormatPhone(phone, region string) string {
	phone = strings.TrimSpace(phone)
	if region == "" {
		region = DefaultRegion
	}
	p, err := libphonenumber.Parse(phone, region)
	if err != nil || !libphonenumber.IsValidNumber(p) {
		return phone
	}
	return libphonenumber.Format(p, libphonenumber.INTERNATIONAL)
}

// E164 returns phone in E.164 form for tel: links and vCards.
func E164(phone, region string) (string, error) {
	if err := ValidatePhone(phone, region); err != nil {
		return "", err
	}
	if region == "" {
		region = DefaultRegion
	}
	p, err := libphonenumber.Parse(strings.TrimSpace(phone), region)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errInvalidPhone, err)
	}
	return libphonenumber.Format(p, libphonenumber.E164), nil
}

// PhoneMatches reports whether two numbers refer to the same line, allowing
// for a missing or different country prefix.
func PhoneMatches(phone1, phone2 string) bool {
	n1 := NormalizePhone(phone1)
	n2 := NormalizePhone(phone2)

	if n1 == "" || n2 == "" {
		return false
	}
	if n1 == n2 {
		return true
	}

	// Local numbers drop the trunk zero: 03001234567 vs 923001234567.
	n1 = strings.TrimLeft(n1, "0")
	n2 = strings.TrimLeft(n2, "0")

	minLen := len(n1)
	if len(n2) < minLen {
		minLen = len(n2)
	}
	// Require at least 7 digits so short fragments don't match.
	if minLen >= 7 {
		return strings.HasSuffix(n1, n2) || strings.HasSuffix(n2, n1)
	}
	return false
}
