// LoanDesk - Vehicle Financing Origination Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loandesk

/*
Package supervisor provides process supervision for LoanDesk using suture v4.

The tree groups the agent's long-running services into three layers so a
failure in one layer restarts only that layer:

	RootSupervisor ("loandesk")
	├── TransportSupervisor ("transport-layer")
	│   ├── HubService (notification-hub)
	│   └── HubService (chat-hub)
	├── SyncSupervisor ("sync-layer")
	│   ├── PollerService
	│   └── PersistService
	└── APISupervisor ("api-layer")
	    ├── LiveEventsService
	    └── HTTPServerService

Hub reconnection is owned by each hub.Manager and its retry policy; the
HubService only starts and stops the manager, so suture restarts never
compete with the retry schedule.

# Usage Example

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
	    FailureThreshold: cfg.Supervisor.FailureThreshold,
	    ShutdownTimeout:  cfg.Supervisor.ShutdownTimeout,
	})
	if err != nil {
	    return err
	}
	tree.AddTransportService(services.NewHubService(notifications, creds, tokens.Present))
	tree.AddSyncService(services.NewPollerService(poller))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))

	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
	    logging.Error().Err(err).Msg("Supervisor tree stopped")
	}

Logging goes through sutureslog, which takes an *slog.Logger. Pass
logging.NewSlogLogger() to route supervisor events through zerolog.
*/
package supervisor
