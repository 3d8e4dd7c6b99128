// LoanDesk - Vehicle Financing Origination Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loandesk

/*
Package metrics exposes Prometheus instrumentation for the LoanDesk realtime agent.

The package provides metrics for:
  - Hub connection state, attempts, reconnects and chosen transport
  - Subscriber dispatch and recovered handler panics
  - Notification intake and toast alerts
  - Chat store size and snapshot persistence
  - REST reconciliation pollers
  - Local API latency and rate limiting
  - Circuit breaker state transitions

Metrics are registered with the default registry through promauto and are
served at /metrics by the local API:

	curl http://localhost:8741/metrics
*/
package metrics
