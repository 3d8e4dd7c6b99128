// LoanDesk - Vehicle Financing Origination Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loandesk

/*
Package notify is the consumer side of the realtime pipeline.

Router subscribes to hub invocations, classifies every payload and routes it:

	ReceiveMessage      ─┐               ┌─ Chat          → store.Store.AddMessage
	                     ├─ classify ────┼─ StatusChange  → Center.Push (+ invalidation)
	ReceiveNotification ─┘               ├─ System        → Center.Push
	                                     └─ Unknown       → logged, counted, dropped

Center keeps the id-deduplicated notification list and the unread badge. The
push path (Push) raises toasts for new unread notifications; the poll path
(Reconcile) treats the server list as authoritative for read state and never
toasts. Toasts, badge changes and query invalidations are fanned out through
dispatch registries so the local API and tests can observe them.

Messenger is the send-message path: it validates the request, posts it with
a client-generated idempotency key and records the echoed message as read.

Example:

	center := notify.NewCenter(notify.CenterConfig{})
	router := notify.NewRouter(chatStore, center, notify.RouterConfig{})
	defer router.Attach(notificationHub)()
	defer router.Attach(chatHub)()
*/
package notify
