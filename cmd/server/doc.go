// LoanDesk - Vehicle Financing Origination Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loandesk

/*
Package main is the entry point for the LoanDesk realtime agent.

The agent holds the dashboard user's bearer credential, keeps the
notification and chat hub connections alive, reconciles pushed events with
REST polls into a local store persisted in BadgerDB and serves the result to
the dashboard UI over a local HTTP API.

# Application Architecture

	RootSupervisor ("loandesk")
	├── TransportSupervisor ("transport-layer")
	│   ├── notifications hub (/notification-hub)
	│   └── chat hub (/chat-hub)
	├── SyncSupervisor ("sync-layer")
	│   ├── REST poller
	│   └── store persister
	└── APISupervisor ("api-layer")
	    └── local API server

Component initialization order:

 1. Configuration: koanf v2 (defaults, config.yaml, environment)
 2. Logging: zerolog
 3. Credentials: token holder with JWT expiry check
 4. Store: restored from BadgerDB
 5. Notification center and event router
 6. Hub managers, one per hub path, with per-hub retry policies
 7. REST client behind a circuit breaker, poller, messenger
 8. Local API router
 9. Supervisor tree

On SIGINT or SIGTERM the tree stops every service; the persister writes the
store one last time before BadgerDB is closed.

# Configuration

See package internal/config. The only required setting is API_BASE_URL.
ACCESS_TOKEN may supply an initial credential; otherwise the hubs wait for
PUT /api/v1/credentials.
*/
package main
