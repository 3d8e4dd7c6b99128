// LoanDesk - Vehicle Financing Origination Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loandesk

package hub

import (
	"time"

	"github.com/goccy/go-json"
)

// State is a connection state.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateClosedWithError
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateClosedWithError:
		return "closed_with_error"
	default:
		return "unknown"
	}
}

// active reports whether a connection attempt or session is in progress.
func (s State) active() bool {
	return s == StateConnecting || s == StateConnected || s == StateReconnecting
}

// EventKind identifies a lifecycle transition.
type EventKind string

const (
	EventConnecting   EventKind = "connecting"
	EventConnected    EventKind = "connected"
	EventReconnecting EventKind = "reconnecting"
	EventReconnected  EventKind = "reconnected"
	EventClosed       EventKind = "closed"
)

// LifecycleEvent is published on every state transition.
type LifecycleEvent struct {
	Hub          string
	Kind         EventKind
	State        State
	ConnectionID string
	Transport    TransportType
	Attempt      int
	Delay        time.Duration
	Err          error
}

// Invocation is a server-to-client method call.
type Invocation struct {
	Hub       string
	Target    string
	Arguments []json.RawMessage
}

// Status is a point-in-time view of a Manager.
type Status struct {
	Name         string
	State        State
	ConnectionID string
	Transport    TransportType
	RetryCount   int
	LastError    error
	Since        time.Time
}
