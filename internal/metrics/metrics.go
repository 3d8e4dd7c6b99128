// LoanDesk - Vehicle Financing Origination Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loandesk

package metrics

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Hub Connection Metrics
	HubConnectionState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "loandesk_hub_connection_state",
			Help: "Hub connection state (0=disconnected, 1=connecting, 2=connected, 3=reconnecting, 4=closed_with_error)",
		},
		[]string{"hub"},
	)

	HubConnectAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loandesk_hub_connect_attempts_total",
			Help: "Total number of hub connection attempts",
		},
		[]string{"hub", "result"}, // result: "success", "failure"
	)

	HubReconnects = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loandesk_hub_reconnects_total",
			Help: "Total number of successful automatic reconnects",
		},
		[]string{"hub"},
	)

	HubTransportSelected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loandesk_hub_transport_selected_total",
			Help: "Transport chosen for each established hub session",
		},
		[]string{"hub", "transport"},
	)

	HubMessagesReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loandesk_hub_messages_received_total",
			Help: "Total number of hub protocol messages received",
		},
		[]string{"hub", "type"}, // type: "invocation", "ping", "close", "other"
	)

	// Dispatch Metrics
	DispatchDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loandesk_dispatch_deliveries_total",
			Help: "Total number of payloads delivered to subscribers",
		},
		[]string{"registry"},
	)

	DispatchHandlerPanics = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loandesk_dispatch_handler_panics_total",
			Help: "Total number of recovered subscriber panics",
		},
		[]string{"registry"},
	)

	// Notification Metrics
	NotificationsReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loandesk_notifications_received_total",
			Help: "Total number of notifications received",
		},
		[]string{"source", "type"}, // source: "push", "reconcile"
	)

	NotificationsUnclassified = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "loandesk_notifications_unclassified_total",
			Help: "Total number of hub payloads that matched no known shape",
		},
	)

	NotificationToasts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "loandesk_notification_toasts_total",
			Help: "Total number of toast alerts raised",
		},
	)

	// Chat Store Metrics
	StoreRooms = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "loandesk_store_rooms",
			Help: "Current number of chat rooms held in the store",
		},
	)

	StoreMessages = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "loandesk_store_messages",
			Help: "Current number of chat messages held in the store",
		},
	)

	StoreUnreadTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "loandesk_store_unread_total",
			Help: "Current total unread chat message count",
		},
	)

	StorePersistDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "loandesk_store_persist_duration_seconds",
			Help:    "Duration of chat store snapshot persistence",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
	)

	StorePersistErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "loandesk_store_persist_errors_total",
			Help: "Total number of failed chat store snapshot writes",
		},
	)

	// Poller Metrics
	PollerRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loandesk_poller_runs_total",
			Help: "Total number of REST reconciliation runs",
		},
		[]string{"poller", "result"},
	)

	PollerItemsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loandesk_poller_items_dropped_total",
			Help: "Polled list items dropped because they could not be decoded",
		},
		[]string{"kind"},
	)

	PollerDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "loandesk_poller_duration_seconds",
			Help:    "Duration of REST reconciliation runs",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"poller"},
	)

	PollerLastSuccess = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "loandesk_poller_last_success_timestamp",
			Help: "Unix timestamp of the last successful reconciliation run",
		},
		[]string{"poller"},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loandesk_api_requests_total",
			Help: "Total number of local API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "loandesk_api_request_duration_seconds",
			Help:    "Local API request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "loandesk_api_active_requests",
			Help: "Current number of active local API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loandesk_api_rate_limit_hits_total",
			Help: "Total number of rate-limited API requests",
		},
		[]string{"endpoint"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_consecutive_failures",
			Help: "Current number of consecutive failures",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Live Events Metrics
	LiveEventsClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "loandesk_live_events_clients",
			Help: "Dashboard clients connected to the live-events socket",
		},
	)

	LiveEventsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loandesk_live_events_dropped_total",
			Help: "Live events not delivered",
		},
		[]string{"reason"}, // reason: "queue_full", "slow_client"
	)
)

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordHubAttempt records the outcome of one connection attempt.
func RecordHubAttempt(hub, transport string, err error) {
	if err != nil {
		HubConnectAttempts.WithLabelValues(hub, "failure").Inc()
		return
	}
	HubConnectAttempts.WithLabelValues(hub, "success").Inc()
	if transport != "" {
		HubTransportSelected.WithLabelValues(hub, transport).Inc()
	}
}

// RecordPoll records a reconciliation run.
func RecordPoll(poller string, duration time.Duration, err error) {
	PollerDuration.WithLabelValues(poller).Observe(duration.Seconds())
	if err != nil {
		PollerRuns.WithLabelValues(poller, ErrorType(err)).Inc()
		return
	}
	PollerRuns.WithLabelValues(poller, "success").Inc()
	PollerLastSuccess.WithLabelValues(poller).Set(float64(time.Now().Unix()))
}

// RecordPersist records a snapshot write.
func RecordPersist(duration time.Duration, err error) {
	StorePersistDuration.Observe(duration.Seconds())
	if err != nil {
		StorePersistErrors.Inc()
	}
}

// UpdateStoreGauges publishes the chat store's current size.
func UpdateStoreGauges(rooms, messages, unread int) {
	StoreRooms.Set(float64(rooms))
	StoreMessages.Set(float64(messages))
	StoreUnreadTotal.Set(float64(unread))
}

// ErrorType buckets an error into a low-cardinality label value.
func ErrorType(err error) string {
	if err == nil {
		return "none"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "circuit breaker"):
		return "circuit_open"
	case strings.Contains(msg, "status 401"), strings.Contains(msg, "status 403"):
		return "unauthorized"
	case strings.Contains(msg, "connection refused"), strings.Contains(msg, "no such host"):
		return "connection"
	case strings.Contains(msg, "decode"), strings.Contains(msg, "unmarshal"):
		return "decode"
	default:
		return "other"
	}
}
