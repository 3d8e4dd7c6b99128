// LoanDesk - Vehicle Financing Origination Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loandesk

package services

import (
	"context"
	"errors"
	"fmt"
)

// Runner is a component with a blocking, context-bound loop such as
// *sync.Poller.
type Runner interface {
	Serve(ctx context.Context) error
}

// PollerService runs the REST poller under supervision.
type PollerService struct {
	poller Runner
	name   string
}

// NewPollerService wraps poller.
func NewPollerService(poller Runner) *PollerService {
	return &PollerService{poller: poller, name: "rest-poller"}
}

// Serve implements suture.Service. An unexpected return from the poller is
// reported so suture restarts it.
func (s *PollerService) Serve(ctx context.Context) error {
	err := s.poller.Serve(ctx)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err == nil || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s exited unexpectedly", s.name)
	}
	return fmt.Errorf("%s failed: %w", s.name, err)
}

// String names the service in suture events.
func (s *PollerService) String() string {
	return s.name
}
