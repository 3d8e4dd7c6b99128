// LoanDesk - Vehicle Financing Origination Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loandesk

/*
Package hub maintains persistent connections to the LoanDesk server's
realtime hubs (/notification-hub and /chat-hub).

A Manager owns one logical connection and runs its state machine:

	Disconnected -> Connecting -> Connected
	                    |             |
	                    v             v
	             Reconnecting <-------+
	                    |
	                    v
	            ClosedWithError

Start is idempotent while a connection is being established or is live;
concurrent callers share the single in-flight attempt. Stop cancels pending
retry timers and tears the transport down; a generation counter guarantees
that an attempt superseded by Stop cannot resurrect the connection when it
completes late.

The HubConnector implements the negotiation protocol. It POSTs to
{base}{path}/negotiate, then tries the offered transports in order
(WebSockets, ServerSentEvents, LongPolling). Falling back to the next
transport is part of one connection attempt. Once a transport is open the
JSON hub handshake is exchanged and the session is handed to the Manager,
which reads record-separated hub messages, answers keep-alives and fans
invocations out to subscribers.

Bearer credentials are re-evaluated for every negotiation attempt through
the Credentials interface, so a refreshed token is picked up by the next
reconnect.

Example:

	connector := hub.NewHubConnector(hub.ConnectorConfig{
	    BaseURL: "https://api.loandesk.example",
	    Path:    "/chat-hub",
	})
	mgr := hub.NewManager("chat", connector, retry.ChatPolicy())
	defer mgr.Close()

	mgr.OnInvocation(func(inv hub.Invocation) { ... })
	if err := mgr.Start(ctx, hub.StaticToken(token)); err != nil {
	    return err
	}
*/
package hub
