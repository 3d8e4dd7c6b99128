// LoanDesk - Vehicle Financing Origination Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loandesk

/*
Package websocket pushes live events to dashboard browsers.

The notification center and the hub router raise events in-process. This
package forwards them to every browser connected to the local API's
live-events socket, so a dashboard can show toasts and refresh views
without polling.

	notify.Center ─┐
	               ├─► Hub ─► Client ─► browser
	notify.Router ─┘

Each Client runs a read pump and a write pump. Browsers only send pings;
the read pump answers them and detects disconnects. The write pump also
sends protocol pings every pingPeriod.

Message types:

  - toast: a newly surfaced notification (models.Notification)
  - badge: the unread notification count ({"unread": n})
  - invalidate: a cached query to refetch (notify.Invalidation)
  - chat_message: a chat message delivered by a hub (models.ChatMessage)
  - pong: reply to a client ping

Broadcasts never block the publisher. When the hub's queue is full the
message is dropped, and a client whose buffer is full is disconnected.
Either way the dashboard recovers by reconnecting and refetching.

Usage:

	hub := websocket.NewHub()
	detach := hub.Subscribe(center, router)
	defer detach()
	tree.AddAPIService(services.NewLiveEventsService(hub))
*/
package websocket
