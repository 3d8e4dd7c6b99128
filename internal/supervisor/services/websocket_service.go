// LoanDesk - Vehicle Financing Origination Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loandesk

package services

import "context"

// ContextHub matches *websocket.Hub's RunWithContext method.
type ContextHub interface {
	RunWithContext(ctx context.Context) error
}

// LiveEventsService runs the live-events hub under supervision. The hub
// closes its clients when ctx is canceled, so a restart leaves no
// orphaned connections.
type LiveEventsService struct {
	hub  ContextHub
	name string
}

// NewLiveEventsService wraps hub.
func NewLiveEventsService(hub ContextHub) *LiveEventsService {
	return &LiveEventsService{hub: hub, name: "live-events"}
}

// Serve implements suture.Service.
func (s *LiveEventsService) Serve(ctx context.Context) error {
	return s.hub.RunWithContext(ctx)
}

// String implements fmt.Stringer for suture logs.
func (s *LiveEventsService) String() string {
	return s.name
}
