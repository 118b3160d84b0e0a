// SPDX-FileCopyrightText: 2025 Muhammad Imran Rafique
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := New(Config{BaseURL: server.URL + "/api/v1/"})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return client
}

func TestNewRequiresBaseURL(t *testing.T) {
	t.Parallel()

	if _, err := New(Config{}); !errors.Is(err, ErrBaseURLRequired) {
		t.Fatalf("expected ErrBaseURLRequired, got %v", err)
	}
	client, err := New(Config{BaseURL: "http://example.test/api/v1///"})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if client.BaseURL() != "http://example.test/api/v1" {
		t.Fatalf("expected trailing slashes trimmed, got %q", client.BaseURL())
	}
}

func TestUnauthorizedClearsSession(t *testing.T) {
	t.Parallel()

	paths := []string{"/leaders/", "/orders/", "/payments/", "/dashboard/stats", "/settings/"}
	for _, path := range paths {
		path := path
		t.Run(path, func(t *testing.T) {
			t.Parallel()

			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if r.Header.Get("Authorization") != "Bearer stale-token" {
					t.Errorf("missing bearer header on %s", r.URL.Path)
				}
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = io.WriteString(w, `{"detail":"Could not validate credentials"}`)
			})

			var cleared atomic.Int32
			session := client.WithSession("stale-token", func() { cleared.Add(1) })

			var err error
			switch path {
			case "/leaders/":
				_, err = session.ListLeaders(context.Background())
			case "/orders/":
				_, err = session.ListOrders(context.Background(), OrderFilter{})
			case "/payments/":
				_, err = session.ListPayments(context.Background(), PaymentFilter{})
			case "/dashboard/stats":
				_, err = session.DashboardStats(context.Background())
			case "/settings/":
				_, err = session.GetSettings(context.Background())
			}

			if !IsUnauthorized(err) {
				t.Fatalf("expected unauthorized error, got %v", err)
			}
			if !errors.Is(err, ErrSessionExpired) {
				t.Fatalf("expected ErrSessionExpired in chain, got %v", err)
			}
			if cleared.Load() != 1 {
				t.Fatalf("expected unauthorized hook to run once, ran %d times", cleared.Load())
			}
		})
	}
}

func TestLoginUnauthorizedUsesDetail(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"detail":"Incorrect email or password"}`)
	})

	_, err := client.Login(context.Background(), "a@example.com", "wrong")
	if err == nil || err.Error() != "Incorrect email or password" {
		t.Fatalf("expected backend detail, got %v", err)
	}
	if errors.Is(err, ErrSessionExpired) {
		t.Fatalf("login failure must not be reported as an expired session")
	}
}

func TestLoginSendsForm(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/auth/login" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm failed: %v", err)
		}
		if r.PostForm.Get("username") != "owner@example.com" || r.PostForm.Get("password") != "secret" {
			t.Errorf("unexpected form %v", r.PostForm)
		}
		if r.Header.Get("Authorization") != "" {
			t.Errorf("login must not carry a bearer token")
		}
		_, _ = io.WriteString(w, `{"access_token":"tok","token_type":"bearer","user":{"id":"u1","email":"owner@example.com","full_name":"Owner","role":"admin"}}`)
	})

	result, err := client.Login(context.Background(), " owner@example.com ", "secret")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if result.Token != "tok" || result.User == nil || result.User.FullName != "Owner" || !result.User.IsAdmin() {
		t.Fatalf("unexpected login result %+v", result)
	}
}

func TestLoginWithoutToken(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"token_type":"bearer"}`)
	})
	if _, err := client.Login(context.Background(), "a", "b"); !errors.Is(err, ErrMissingToken) {
		t.Fatalf("expected ErrMissingToken, got %v", err)
	}
}

func TestErrorMessages(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		status  int
		body    string
		message string
		kind    Kind
	}{
		{name: "detail string", status: 400, body: `{"detail":"Leader not found"}`, message: "Leader not found", kind: KindClient},
		{name: "message field", status: 403, body: `{"message":"Not allowed"}`, message: "Not allowed", kind: KindForbidden},
		{name: "validation list", status: 422, body: `{"detail":[{"loc":["body","amount"],"msg":"must be positive"}]}`, message: "amount: must be positive", kind: KindClient},
		{name: "non json", status: 502, body: `<html>bad gateway</html>`, message: "Server error: 502 Bad Gateway", kind: KindServer},
		{name: "not found", status: 404, body: ``, message: "Server error: 404 Not Found", kind: KindNotFound},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}).WithSession("tok", nil)

			_, err := client.GetLeader(context.Background(), "l1")
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected *APIError, got %T %v", err, err)
			}
			if apiErr.Message != tt.message {
				t.Fatalf("expected message %q, got %q", tt.message, apiErr.Message)
			}
			if apiErr.Kind() != tt.kind {
				t.Fatalf("expected kind %s, got %s", tt.kind, apiErr.Kind())
			}
		})
	}
}

func TestNetworkError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.NotFoundHandler())
	base := server.URL
	server.Close()

	client, err := New(Config{BaseURL: base})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	_, err = client.ListProducts(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if !apiErr.Network() || apiErr.Status != 0 {
		t.Fatalf("expected network error, got status %d", apiErr.Status)
	}
	if !strings.HasPrefix(apiErr.Message, "Network error: ") {
		t.Fatalf("unexpected message %q", apiErr.Message)
	}
	if !IsRetryable(err) {
		t.Fatalf("network errors should be retryable")
	}
}

func TestNoContentReturnsNil(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || r.URL.Path != "/api/v1/payments/p1" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		w.WriteHeader(http.StatusNoContent)
	})

	if err := client.DeletePayment(context.Background(), "p1"); err != nil {
		t.Fatalf("DeletePayment failed: %v", err)
	}

	leader, err := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}).GetLeader(context.Background(), "l1")
	if err != nil || leader != nil {
		t.Fatalf("expected nil, nil for 204, got %v, %v", leader, err)
	}
}

func TestRequestIDAndIDValidation(t *testing.T) {
	t.Parallel()

	var seen atomic.Value
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		seen.Store(r.Header.Get("X-Request-ID"))
		_, _ = io.WriteString(w, `[]`)
	})

	if _, err := client.ListLeaders(context.Background()); err != nil {
		t.Fatalf("ListLeaders failed: %v", err)
	}
	if id, _ := seen.Load().(string); len(id) != 36 {
		t.Fatalf("expected uuid request id, got %q", id)
	}
	if _, err := client.GetOrder(context.Background(), "  "); !errors.Is(err, ErrIDRequired) {
		t.Fatalf("expected ErrIDRequired, got %v", err)
	}
}

func TestCreatePaymentPayload(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		for _, want := range []string{`"amount":1500.00`, `"method":"Cash"`, `"leaderId":"l1"`, `"orderId":"o1"`} {
			if !strings.Contains(string(body), want) {
				t.Errorf("payload %s missing %s", body, want)
			}
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id":"p1","amount":"1500","mode":"CASH","client_id":"l1","order_id":"o1","payment_date":"2025-03-01T00:00:00"}`)
	})

	payment, err := client.CreatePayment(context.Background(), PaymentInput{
		Amount:   decimal.NewFromInt(1500),
		Method:   MethodCash,
		LeaderID: "l1",
		OrderID:  "o1",
	})
	if err != nil {
		t.Fatalf("CreatePayment failed: %v", err)
	}
	if !payment.Amount.Equal(decimal.NewFromInt(1500)) || payment.Method != MethodCash || !payment.Allocated() {
		t.Fatalf("unexpected payment %+v", payment)
	}
}

func TestListFiltersKeepRowsWithoutLeader(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("leader_id"); got != "l1" {
			t.Errorf("expected leader_id query l1, got %q", got)
		}
		switch r.URL.Path {
		case "/api/v1/payments/":
			_, _ = io.WriteString(w, `[
				{"id":"p1","amount":"100","client_id":"l1"},
				{"id":"p2","amount":"200"},
				{"id":"p3","amount":"300","client_id":"l2"}
			]`)
		case "/api/v1/orders/":
			_, _ = io.WriteString(w, `[
				{"id":"o1","order_number":"A-1","total_amount":"100","client_id":"l1"},
				{"id":"o2","order_number":"A-2","total_amount":"200"},
				{"id":"o3","order_number":"A-3","total_amount":"300","client_id":"l2"}
			]`)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	payments, err := client.ListPayments(context.Background(), PaymentFilter{LeaderID: "l1"})
	if err != nil {
		t.Fatalf("ListPayments failed: %v", err)
	}
	orders, err := client.ListOrders(context.Background(), OrderFilter{LeaderID: "l1"})
	if err != nil {
		t.Fatalf("ListOrders failed: %v", err)
	}

	if len(payments) != 2 || payments[0].ID != "p1" || payments[1].ID != "p2" {
		t.Fatalf("expected p1 and p2, got %+v", payments)
	}
	if len(orders) != 2 || orders[0].ID != "o1" || orders[1].ID != "o2" {
		t.Fatalf("expected o1 and o2, got %+v", orders)
	}
}

func TestDownloadUsesDisposition(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename="receipt-0007.pdf"`)
		_, _ = io.WriteString(w, "%PDF-1.4")
	})

	download, err := client.PaymentReceipt(context.Background(), "p1")
	if err != nil {
		t.Fatalf("PaymentReceipt failed: %v", err)
	}
	defer download.Body.Close()

	body, _ := io.ReadAll(download.Body)
	if string(body) != "%PDF-1.4" || download.Filename != "receipt-0007.pdf" || download.ContentType != "application/pdf" {
		t.Fatalf("unexpected download %q %q %q", body, download.Filename, download.ContentType)
	}
}
