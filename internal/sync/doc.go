// LoanDesk - Vehicle Financing Origination Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loandesk

/*
Package sync implements the REST poll path.

The hubs deliver changes as they happen; the poll path independently fetches
authoritative snapshots so that anything missed while disconnected, or
changed on another device, still reaches the local state.

Key Components:

  - APIClient: the REST surface (list notifications, list room messages,
    send message)
  - RESTClient: net/http implementation, bearer token from hub.Credentials
    evaluated per request
  - CircuitBreakerClient: sony/gobreaker wrapper with Prometheus state
    metrics; caller-side errors (401/404, canceled, no credential) do not
    trip the breaker
  - Poller: interval polling of notifications (15s) and watched rooms (10s),
    plus throttled on-demand Refresh for window-focus refetches

Merging:

Polled messages go through store.Store.AddMessages, which deduplicates by
id against anything the hubs already delivered, so push followed by poll
never double counts unread messages. Polled notifications go through
notify.Center.Reconcile, where the server's read state wins and no toast is
raised.

Usage Example:

	rest, err := sync.NewRESTClient(sync.RESTConfig{BaseURL: cfg.API.BaseURL}, tokens)
	if err != nil {
	    return err
	}
	client := sync.NewCircuitBreakerClient(rest, sync.CircuitBreakerConfig{})
	poller := sync.NewPoller(client, chatStore, center, sync.DefaultPollerConfig())
	go poller.Serve(ctx)
*/
package sync
