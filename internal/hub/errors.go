// LoanDesk - Vehicle Financing Origination Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loandesk

package hub

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingCredential is returned when no bearer token is available.
	ErrMissingCredential = errors.New("hub: missing access credential")

	// ErrCredentialExpired is returned when the bearer token has expired.
	ErrCredentialExpired = errors.New("hub: access credential expired")

	// ErrUnauthorized is returned when the server rejects the bearer token.
	ErrUnauthorized = errors.New("hub: unauthorized")

	// ErrMissingEndpoint is returned when no hub base URL is configured.
	ErrMissingEndpoint = errors.New("hub: missing endpoint")

	// ErrStopped is returned to Start callers whose attempt was cancelled by Stop.
	ErrStopped = errors.New("hub: connection stopped")

	// ErrRetriesExhausted wraps the last error once the retry policy gives up.
	ErrRetriesExhausted = errors.New("hub: retries exhausted")

	// ErrNoTransport is returned when every offered transport failed to open.
	ErrNoTransport = errors.New("hub: no transport could be established")

	// ErrServerTimeout is returned when the server stays silent past the timeout.
	ErrServerTimeout = errors.New("hub: server timeout elapsed without receiving a message")
)

// HandshakeError is returned when the server rejects the hub handshake.
type HandshakeError struct {
	Message string
}

func (e *HandshakeError) Error() string {
	return fmt.Sprintf("hub: handshake rejected: %s", e.Message)
}

// CloseError reports a server-initiated Close message carrying an error.
type CloseError struct {
	Message        string
	AllowReconnect bool
}

func (e *CloseError) Error() string {
	return fmt.Sprintf("hub: server closed connection: %s", e.Message)
}

// isPermanent reports whether err must not enter the retry policy.
func isPermanent(err error) bool {
	if errors.Is(err, ErrMissingCredential) ||
		errors.Is(err, ErrCredentialExpired) ||
		errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrMissingEndpoint) {
		return true
	}
	var closeErr *CloseError
	if errors.As(err, &closeErr) {
		return !closeErr.AllowReconnect
	}
	return false
}
