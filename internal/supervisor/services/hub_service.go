// LoanDesk - Vehicle Financing Origination Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loandesk

package services

import (
	"context"
	"errors"
	"time"

	"github.com/tomtom215/loandesk/internal/hub"
	"github.com/tomtom215/loandesk/internal/logging"
)

// HubManager is the lifecycle of a hub.Manager.
type HubManager interface {
	Name() string
	Start(ctx context.Context, creds hub.Credentials) error
	Stop()
}

// DefaultHubStartWait bounds how long Serve waits for the first connection
// before it stops waiting and lets the manager keep retrying on its own.
const DefaultHubStartWait = 30 * time.Second

// HubService runs one hub connection under supervision.
//
// It adapts the manager's Start/Stop lifecycle to suture's Serve pattern:
//  1. Starts the manager when a credential is present
//  2. Waits for context cancellation
//  3. Stops the manager
//
// Start errors are logged, not returned. The manager owns reconnection
// through its retry policy and a permanent failure (missing or expired
// credential) is resolved by a new login, not by a supervisor restart.
type HubService struct {
	manager   HubManager
	creds     hub.Credentials
	present   func() bool
	startWait time.Duration
}

// NewHubService creates the service. present reports whether a credential
// is held; nil means always start.
func NewHubService(manager HubManager, creds hub.Credentials, present func() bool) *HubService {
	return &HubService{
		manager:   manager,
		creds:     creds,
		present:   present,
		startWait: DefaultHubStartWait,
	}
}

// Serve implements suture.Service.
func (s *HubService) Serve(ctx context.Context) error {
	if s.present == nil || s.present() {
		startCtx, cancel := context.WithTimeout(ctx, s.startWait)
		err := s.manager.Start(startCtx, s.creds)
		cancel()
		switch {
		case err == nil:
		case errors.Is(err, context.DeadlineExceeded):
			logging.Info().Str("hub", s.manager.Name()).Msg("Hub still connecting; continuing in background")
		case errors.Is(err, context.Canceled):
		default:
			logging.Warn().Err(err).Str("hub", s.manager.Name()).Msg("Hub connection did not start")
		}
	} else {
		logging.Info().Str("hub", s.manager.Name()).Msg("No credential set; hub waits for login")
	}

	<-ctx.Done()
	s.manager.Stop()
	return ctx.Err()
}

// String names the service in suture events.
func (s *HubService) String() string {
	return s.manager.Name()
}
