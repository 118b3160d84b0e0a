// SPDX-FileCopyrightText: 2025 Muhammad Imran Rafique
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"html/template"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/flamego/flamego"
	"github.com/shopspring/decimal"

	"github.com/muhammadimranrafique/copy-app/currency"
)

func TestSafeImageURLDataImageRendersWithoutTemplateSentinel(t *testing.T) {
	t.Parallel()

	tpl, err := template.New("photo").Funcs(template.FuncMap{
		"safeImageURL": safeImageURL,
	}).Parse(`<img src="{{ safeImageURL .Photo }}">`)
	if err != nil {
		t.Fatalf("failed to parse template: %v", err)
	}

	var rendered strings.Builder

	if err := tpl.Execute(&rendered, map[string]string{"Photo": "data:image/png;base64,aGVsbG8="}); err != nil {
		t.Fatalf("failed to execute template: %v", err)
	}

	out := rendered.String()
	if strings.Contains(out, "#ZgotmplZ") {
		t.Fatalf("expected rendered html without template sentinel, got %q", out)
	}

	if !strings.Contains(out, `src="data:image/png;base64,aGVsbG8="`) {
		t.Fatalf("expected rendered html to contain data image URL, got %q", out)
	}
}

func TestSafeImageURLRejectsUnsafeScheme(t *testing.T) {
	t.Parallel()

	if got := safeImageURL("javascript:alert(1)"); got != "" {
		t.Fatalf("expected unsafe image URL to be rejected, got %q", got)
	}
}

func TestSafeImageURLRejectsUnsupportedDataImageType(t *testing.T) {
	t.Parallel()

	if got := safeImageURL("data:image/svg+xml;base64,PHN2Zz48L3N2Zz4="); got != "" {
		t.Fatalf("expected unsupported data image URL to be rejected, got %q", got)
	}
}

func TestSafeImageURLAllowsWebURL(t *testing.T) {
	t.Parallel()

	if got := safeImageURL(" https://example.com/logo.png "); got != "https://example.com/logo.png" {
		t.Fatalf("expected trimmed web URL, got %q", got)
	}
	if got := safeImageURL(""); got != "" {
		t.Fatalf("expected empty URL for empty input, got %q", got)
	}
}

func TestStatusClass(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   any
		want string
	}{
		{"Paid", "status-paid"},
		{"Partially Paid", "status-partially-paid"},
		{"  pending ", "status-pending"},
		{"", "status-unknown"},
	}

	for _, tt := range tests {
		if got := statusClass(tt.in); got != tt.want {
			t.Errorf("statusClass(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatDate(t *testing.T) {
	t.Parallel()

	if got := formatDate(time.Time{}); got != "-" {
		t.Fatalf("expected dash for zero date, got %q", got)
	}

	d := time.Date(2025, time.March, 7, 14, 30, 0, 0, time.UTC)
	if got := formatDate(d); got != "07 Mar 2025" {
		t.Fatalf("unexpected date %q", got)
	}
	if got := formatDateTime(d); got != "07 Mar 2025 14:30" {
		t.Fatalf("unexpected date time %q", got)
	}
}

func TestAmountInput(t *testing.T) {
	t.Parallel()

	if got := amountInput(decimal.RequireFromString("1500.5")); got != "1500.50" {
		t.Fatalf("expected 1500.50, got %q", got)
	}

	// An unchanged edit form must save the same amount in every currency.
	amount := decimal.RequireFromString("1500")
	for _, code := range currency.Codes() {
		f := currency.New(currency.NewPreference(code, ""))
		got, err := f.Parse(amountInput(amount))
		if err != nil || !got.Equal(amount) {
			t.Fatalf("%s: expected %s back from %q, got %s, %v", code, amount, amountInput(amount), got, err)
		}
	}
}

func newTestServer(t *testing.T) *flamego.Flame {
	t.Helper()

	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	t.Cleanup(backend.Close)

	f, err := newServer(serverConfig{
		APIBaseURL:      backend.URL,
		APITimeout:      5 * time.Second,
		QueryStaleTime:  time.Minute,
		QueryRetryCount: -1,
		CSRFSecret:      "test-secret",
	})
	if err != nil {
		t.Fatalf("failed to build server: %v", err)
	}
	return f
}

func TestServerRedirectsUnauthenticatedToLogin(t *testing.T) {
	t.Parallel()

	f := newTestServer(t)

	tests := []struct {
		path string
		want string
	}{
		{"/", "/login"},
		{"/orders", "/login?next=" + url.QueryEscape("/orders")},
		{"/ledger?leader=abc", "/login?next=" + url.QueryEscape("/ledger?leader=abc")},
	}

	for _, tt := range tests {
		rec := httptest.NewRecorder()
		f.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

		if rec.Code != http.StatusSeeOther {
			t.Fatalf("%s: expected status %d, got %d", tt.path, http.StatusSeeOther, rec.Code)
		}
		if got := rec.Header().Get("Location"); got != tt.want {
			t.Fatalf("%s: expected redirect to %q, got %q", tt.path, tt.want, got)
		}
	}
}

func TestServerUnknownPathRedirectsHome(t *testing.T) {
	t.Parallel()

	f := newTestServer(t)

	rec := httptest.NewRecorder()
	f.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/does-not-exist", nil))

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected status %d, got %d", http.StatusSeeOther, rec.Code)
	}
	if got := rec.Header().Get("Location"); got != "/" {
		t.Fatalf("expected redirect to /, got %q", got)
	}
}

func TestServerRendersLoginWithCSRFToken(t *testing.T) {
	t.Parallel()

	f := newTestServer(t)

	rec := httptest.NewRecorder()
	f.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/login?next=%2Fpayments", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `name="_csrf"`) {
		t.Fatalf("expected CSRF field in login form, got %q", body)
	}
	if !strings.Contains(body, `value="/payments"`) {
		t.Fatalf("expected next path in login form, got %q", body)
	}
	if rec.Header().Get("Cache-Control") == "" {
		t.Fatal("expected no-cache headers on login page")
	}
}

func TestServerRejectsLoginWithoutCSRFToken(t *testing.T) {
	t.Parallel()

	f := newTestServer(t)

	form := url.Values{"email": {"owner@example.com"}, "password": {"secret"}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	f.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}
}

func TestServerServesStaticAssets(t *testing.T) {
	t.Parallel()

	f := newTestServer(t)

	for _, path := range []string{"/static/app.css", "/static/app.js"} {
		rec := httptest.NewRecorder()
		f.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected status %d, got %d", path, http.StatusOK, rec.Code)
		}
	}
}
