// LoanDesk - Vehicle Financing Origination Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loandesk

package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"
)

type runnerFunc func(ctx context.Context) error

func (f runnerFunc) Serve(ctx context.Context) error { return f(ctx) }

func TestPollerServiceInterface(t *testing.T) {
	var _ suture.Service = (*PollerService)(nil)
}

func TestPollerService(t *testing.T) {
	t.Run("returns context error on shutdown", func(t *testing.T) {
		svc := NewPollerService(runnerFunc(func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		}))

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		if err := svc.Serve(ctx); !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected context.DeadlineExceeded, got %v", err)
		}
	})

	t.Run("wraps poller failure", func(t *testing.T) {
		boom := errors.New("boom")
		svc := NewPollerService(runnerFunc(func(context.Context) error { return boom }))

		err := svc.Serve(context.Background())
		if !errors.Is(err, boom) {
			t.Errorf("expected wrapped boom, got %v", err)
		}
	})

	t.Run("reports unexpected exit", func(t *testing.T) {
		svc := NewPollerService(runnerFunc(func(context.Context) error { return nil }))

		err := svc.Serve(context.Background())
		if err == nil || !strings.Contains(err.Error(), "exited unexpectedly") {
			t.Errorf("expected unexpected exit error, got %v", err)
		}
	})

	t.Run("string", func(t *testing.T) {
		if got := NewPollerService(nil).String(); got != "rest-poller" {
			t.Errorf("expected 'rest-poller', got %q", got)
		}
	})
}
