// LoanDesk - Vehicle Financing Origination Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loandesk

package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/loandesk/internal/hub"
)

// mockHubManager simulates hub.Manager for testing.
type mockHubManager struct {
	started    atomic.Int32
	stopped    atomic.Int32
	startError error
	startBlock bool
}

func (m *mockHubManager) Name() string { return "chat" }

func (m *mockHubManager) Start(ctx context.Context, creds hub.Credentials) error {
	m.started.Add(1)
	if m.startBlock {
		<-ctx.Done()
		return ctx.Err()
	}
	return m.startError
}

func (m *mockHubManager) Stop() {
	m.stopped.Add(1)
}

func TestHubServiceInterface(t *testing.T) {
	var _ suture.Service = (*HubService)(nil)
}

func TestHubService(t *testing.T) {
	t.Run("starts and stops manager", func(t *testing.T) {
		mgr := &mockHubManager{}
		svc := NewHubService(mgr, hub.StaticToken("token"), nil)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() {
			done <- svc.Serve(ctx)
		}()

		for i := 0; i < 50 && mgr.started.Load() == 0; i++ {
			time.Sleep(10 * time.Millisecond)
		}
		cancel()

		select {
		case err := <-done:
			if !errors.Is(err, context.Canceled) {
				t.Errorf("expected context.Canceled, got %v", err)
			}
		case <-time.After(time.Second):
			t.Fatal("service did not stop in time")
		}
		if mgr.started.Load() != 1 {
			t.Errorf("expected 1 Start call, got %d", mgr.started.Load())
		}
		if mgr.stopped.Load() != 1 {
			t.Errorf("expected 1 Stop call, got %d", mgr.stopped.Load())
		}
	})

	t.Run("waits for login without credential", func(t *testing.T) {
		mgr := &mockHubManager{}
		tokens := hub.NewTokenHolder("")
		svc := NewHubService(mgr, tokens, tokens.Present)

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		_ = svc.Serve(ctx)
		if mgr.started.Load() != 0 {
			t.Errorf("expected no Start call, got %d", mgr.started.Load())
		}
		if mgr.stopped.Load() != 1 {
			t.Errorf("expected Stop on shutdown, got %d", mgr.stopped.Load())
		}
	})

	t.Run("start error does not end Serve", func(t *testing.T) {
		mgr := &mockHubManager{startError: hub.ErrCredentialExpired}
		svc := NewHubService(mgr, hub.StaticToken("token"), nil)

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		start := time.Now()
		err := svc.Serve(ctx)
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected context.DeadlineExceeded, got %v", err)
		}
		if time.Since(start) < 40*time.Millisecond {
			t.Error("Serve returned before the context ended")
		}
	})

	t.Run("slow connect continues in background", func(t *testing.T) {
		mgr := &mockHubManager{startBlock: true}
		svc := NewHubService(mgr, hub.StaticToken("token"), nil)
		svc.startWait = 20 * time.Millisecond

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() {
			done <- svc.Serve(ctx)
		}()

		time.Sleep(60 * time.Millisecond)
		select {
		case err := <-done:
			t.Fatalf("Serve returned early: %v", err)
		default:
		}
		cancel()
		<-done
	})
}

func TestHubService_String(t *testing.T) {
	svc := NewHubService(&mockHubManager{}, nil, nil)
	if svc.String() != "chat" {
		t.Errorf("expected 'chat', got %q", svc.String())
	}
}
