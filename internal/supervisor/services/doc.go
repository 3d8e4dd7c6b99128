// LoanDesk - Vehicle Financing Origination Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loandesk

/*
Package services provides suture.Service wrappers for LoanDesk components.

Each wrapper translates a component lifecycle into suture's Serve pattern:

	type Service interface {
	    Serve(ctx context.Context) error
	}

# Available Services

HubService:
  - Starts a hub.Manager when a credential is held
  - Stops the manager on shutdown
  - Leaves reconnection to the manager's retry policy

PollerService:
  - Runs the REST poller loop
  - Reports an unexpected exit so suture restarts the poller

PersistService:
  - Saves the chat store snapshot whenever its revision changed
  - Performs a final save on shutdown

LiveEventsService:
  - Runs the live-events hub that fans events out to dashboards
  - Closes every dashboard connection on shutdown

HTTPServerService:
  - Runs the local API server with graceful shutdown

Every wrapper implements fmt.Stringer so suture events name the service.
*/
package services
