// LoanDesk - Vehicle Financing Origination Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loandesk

package models

import (
	"time"
)

// APIResponse is the envelope returned by every local HTTP endpoint.
//
// Status is "success" (see Data) or "error" (see Error).
//
// Example:
//
//	{
//	  "status": "success",
//	  "data": {"total_unread": 3},
//	  "metadata": {"timestamp": "2026-03-01T12:00:00Z"}
//	}
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata carries response timing information.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
}

// APIError is a structured error payload.
//
// Common codes:
//   - VALIDATION_ERROR: invalid input
//   - NOT_FOUND: unknown room or hub
//   - UPSTREAM_ERROR: the LoanDesk server rejected or failed a call
//   - SERVICE_UNAVAILABLE: circuit breaker open or hub not connected
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// HubStatus describes one realtime hub connection.
type HubStatus struct {
	Name         string    `json:"name"`
	State        string    `json:"state"`
	ConnectionID string    `json:"connection_id,omitempty"`
	Transport    string    `json:"transport,omitempty"`
	RetryCount   int       `json:"retry_count"`
	LastError    string    `json:"last_error,omitempty"`
	Since        time.Time `json:"since"`
}

// StatusResponse is returned by GET /api/v1/status.
type StatusResponse struct {
	Hubs                []HubStatus `json:"hubs"`
	TotalUnread         int         `json:"total_unread"`
	NotificationsUnread int         `json:"notifications_unread"`
	Credentials         bool        `json:"credentials"`
}

// UnreadResponse is returned by GET /api/v1/unread.
type UnreadResponse struct {
	Total  int            `json:"total"`
	ByRoom map[string]int `json:"by_room"`
}

// CredentialsRequest is the body of PUT /api/v1/credentials.
type CredentialsRequest struct {
	AccessToken string `json:"access_token" validate:"required,min=10"`
}
