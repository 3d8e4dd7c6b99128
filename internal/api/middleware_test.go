// LoanDesk - Vehicle Financing Origination Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loandesk

package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/loandesk/internal/metrics"
)

func TestCorrelate(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/status", "")
	if rec.Header().Get("X-Request-Id") == "" {
		t.Error("expected generated request id header")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	req.Header.Set("X-Request-Id", "dash-123")
	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-Id"); got != "dash-123" {
		t.Errorf("request id = %q, want dash-123", got)
	}
}

func TestNoStoreHeaders(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/v1/unread", "")

	want := map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Cache-Control":          "no-store",
		"Referrer-Policy":        "no-referrer",
	}
	for k, v := range want {
		if got := rec.Header().Get(k); got != v {
			t.Errorf("%s = %q, want %q", k, got, v)
		}
	}
}

func TestCORS(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/credentials", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPut)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("allow origin = %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("unexpected allow origin %q", got)
	}
}

func TestRateLimit(t *testing.T) {
	env := newTestEnv(t)
	limits := DefaultLimits()
	limits.Requests = 1
	router := NewRouter(env.handler, limits).SetupChi()

	first := httptest.NewRecorder()
	router.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))
	checkStatus(t, first, http.StatusOK)

	second := httptest.NewRecorder()
	router.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))
	checkStatus(t, second, http.StatusTooManyRequests)
	checkErrorCode(t, second, "TOO_MANY_REQUESTS")
}

func TestInstrument(t *testing.T) {
	env := newTestEnv(t)

	counter := metrics.APIRequestsTotal.WithLabelValues(http.MethodPost, "/api/v1/rooms/{roomID}/read", "200")
	before := testutil.ToFloat64(counter)

	env.do(t, http.MethodPost, "/api/v1/rooms/a/read", "")
	env.do(t, http.MethodPost, "/api/v1/rooms/b/read", "")

	if got := testutil.ToFloat64(counter) - before; got != 2 {
		t.Errorf("requests counted under route pattern = %v, want 2", got)
	}

	rec := env.do(t, http.MethodGet, "/metrics", "")
	checkStatus(t, rec, http.StatusOK)
	if !strings.Contains(rec.Body.String(), "loandesk_api_requests_total") {
		t.Error("metrics output missing loandesk_api_requests_total")
	}
}
