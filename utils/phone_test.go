// SPDX-FileCopyrightText: 2025 Muhammad Imran Rafique
// SPDX-License-Identifier: Apache-2.0

package utils

import (
	"errors"
	"testing"
)

func TestNormalizePhone(t *testing.T) {
	t.Parallel()

	if got := NormalizePhone("+92 (300) 123-4567"); got != "923001234567" {
		t.Fatalf("NormalizePhone returned %q", got)
	}
	if got := NormalizePhone("abc"); got != "" {
		t.Fatalf("expected empty normalized phone, got %q", got)
	}
}

func TestValidatePhone(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		phone   string
		wantErr error
	}{
		{name: "local mobile", phone: "0300 1234567"},
		{name: "international", phone: "+92 300 1234567"},
		{name: "foreign number", phone: "+1 650-253-0000"},
		{name: "empty", phone: "  ", wantErr: errEmptyPhone},
		{name: "too short", phone: "12", wantErr: errInvalidPhone},
		{name: "letters", phone: "call me", wantErr: errInvalidPhone},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := ValidatePhone(tt.phone, "")
			if tt.wantErr == nil && err != nil {
				t.Fatalf("ValidatePhone(%q) failed: %v", tt.phone, err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("ValidatePhone(%q) = %v, want %v", tt.phone, err, tt.wantErr)
			}
		})
	}
}

func TestE164AndFormat(t *testing.T) {
	t.Parallel()

	got, err := E164("0300-1234567", "PK")
	if err != nil || got != "+923001234567" {
		t.Fatalf("E164 returned %q, %v", got, err)
	}
	if got := FormatPhone("not a number", ""); got != "not a number" {
		t.Fatalf("FormatPhone should pass through unparseable input, got %q", got)
	}
}

func TestPhoneMatches(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a    string
		b    string
		want bool
	}{
		{name: "exact match", a: "+92 300-1234567", b: "923001234567", want: true},
		{name: "trunk zero against country code", a: "03001234567", b: "+923001234567", want: true},
		{name: "different numbers", a: "03001234567", b: "442079460958", want: false},
		{name: "too short suffix not allowed", a: "123456", b: "00123456", want: false},
		{name: "empty first", a: "", b: "123", want: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := PhoneMatches(tt.a, tt.b); got != tt.want {
				t.Fatalf("PhoneMatches(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}
