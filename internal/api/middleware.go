// LoanDesk - Vehicle Financing Origination Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loandesk

package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/tomtom215/loandesk/internal/logging"
	"github.com/tomtom215/loandesk/internal/metrics"
)

// Limits configures the cross-cutting middleware of the local API.
type Limits struct {
	// Origins are the dashboard origins allowed by CORS.
	Origins []string

	// Requests per Window per client IP. Zero disables rate limiting.
	Requests int
	Window   time.Duration
}

// DefaultLimits allows the dev dashboard at 120 requests a minute.
func DefaultLimits() Limits {
	return Limits{
		Origins:  []string{"http://localhost:3000"},
		Requests: 120,
		Window:   time.Minute,
	}
}

type middleware func(http.Handler) http.Handler

func passThrough(next http.Handler) http.Handler { return next }

func (l Limits) cors() middleware {
	return cors.Handler(cors.Options{
		AllowedOrigins: l.Origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", chimiddleware.RequestIDHeader},
		ExposedHeaders: []string{chimiddleware.RequestIDHeader},
		MaxAge:         int((24 * time.Hour).Seconds()),
	})
}

func (l Limits) rateLimit() middleware {
	if l.Requests <= 0 {
		return passThrough
	}
	window := l.Window
	if window <= 0 {
		window = time.Minute
	}
	return httprate.Limit(l.Requests, window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
			respondError(w, http.StatusTooManyRequests, "TOO_MANY_REQUESTS", "Rate limit exceeded", nil)
		}),
	)
}

// correlate assigns each request an ID, echoes it in the response and
// makes it the correlation ID of every log line written for the request.
func correlate(next http.Handler) http.Handler {
	return chimiddleware.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := chimiddleware.GetReqID(r.Context())
		w.Header().Set(chimiddleware.RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(logging.ContextWithCorrelationID(r.Context(), id)))
	}))
}

func noStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Cache-Control", "no-store")
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(w, r)
	})
}

// instrument records request metrics labeled by chi route pattern, so room
// IDs in the path never create new series.
func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		metrics.TrackActiveRequest(true)
		defer metrics.TrackActiveRequest(false)

		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		metrics.RecordAPIRequest(r.Method, route, strconv.Itoa(status), time.Since(start))
	})
}
