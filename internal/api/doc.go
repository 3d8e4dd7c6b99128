// LoanDesk - Vehicle Financing Origination Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loandesk

/*
Package api provides the local HTTP API of the LoanDesk realtime agent.

The dashboard UI reads connection state, unread counters, chat rooms and
notifications from this API and uses it to log in and out, send messages and
trigger a refetch when its window regains focus.

# Routes

	GET    /api/v1/status                    both hub statuses and unread totals
	PUT    /api/v1/credentials               set bearer token, restart both hubs
	DELETE /api/v1/credentials               clear token, stop both hubs
	POST   /api/v1/hubs/{name}/reconnect     manual reconnect
	GET    /api/v1/rooms/{roomID}/messages   room messages, oldest first
	POST   /api/v1/rooms/{roomID}/messages   send a message
	POST   /api/v1/rooms/{roomID}/read       mark a room as read
	DELETE /api/v1/rooms/{roomID}            clear a room
	GET    /api/v1/unread                    per-room and total unread
	GET    /api/v1/notifications             notification list and badge
	POST   /api/v1/notifications/read        mark all notifications read
	POST   /api/v1/refresh                   focus-triggered refetch
	GET    /api/v1/events/ws                 live events WebSocket
	GET    /metrics                          Prometheus metrics

Every /api/v1 response uses the models.APIResponse envelope, except the
live-events socket, which streams websocket.Message frames after the upgrade.

# Middleware

Global: request ID with correlation logging, Recoverer, CORS (go-chi/cors).
/api/v1: rate limiting (go-chi/httprate), security headers, Prometheus
request metrics.
*/
package api
