// LoanDesk - Vehicle Financing Origination Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loandesk

package supervisor

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// runTree starts tree in the background and stops it at test cleanup.
func runTree(t *testing.T, tree *SupervisorTree) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)
	t.Cleanup(func() {
		cancel()
		select {
		case <-errCh:
		case <-time.After(5 * time.Second):
			t.Error("supervisor tree did not stop")
		}
	})
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestNewSupervisorTree_Defaults(t *testing.T) {
	tree, err := NewSupervisorTree(quietLogger(), TreeConfig{FailureBackoff: time.Second})
	if err != nil {
		t.Fatalf("NewSupervisorTree: %v", err)
	}
	if tree.Root() == nil {
		t.Fatal("root supervisor is nil")
	}

	want := DefaultTreeConfig()
	want.FailureBackoff = time.Second
	if tree.config != want {
		t.Errorf("config = %+v, want %+v", tree.config, want)
	}
}

func TestDefaultTreeConfig(t *testing.T) {
	cfg := DefaultTreeConfig()
	if cfg.FailureThreshold != 5 || cfg.FailureDecay != 30 {
		t.Errorf("threshold/decay = %v/%v", cfg.FailureThreshold, cfg.FailureDecay)
	}
	if cfg.FailureBackoff != 15*time.Second || cfg.ShutdownTimeout != 10*time.Second {
		t.Errorf("backoff/timeout = %v/%v", cfg.FailureBackoff, cfg.ShutdownTimeout)
	}
}

func TestSupervisorTree_StartsEveryLayer(t *testing.T) {
	tree, err := NewSupervisorTree(quietLogger(), TreeConfig{ShutdownTimeout: time.Second})
	if err != nil {
		t.Fatalf("NewSupervisorTree: %v", err)
	}

	hub := newFakeService("notification-hub")
	poller := newFakeService("poller")
	api := newFakeService("local-api")
	tree.AddTransportService(hub)
	tree.AddSyncService(poller)
	tree.AddAPIService(api)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)

	for _, svc := range []*fakeService{hub, poller, api} {
		svc := svc
		eventually(t, svc.name+" start", func() bool { return svc.StartCount() == 1 })
	}

	cancel()
	select {
	case <-errCh:
	case <-time.After(5 * time.Second):
		t.Fatal("tree did not stop")
	}

	for _, svc := range []*fakeService{hub, poller, api} {
		if svc.StopCount() != 1 {
			t.Errorf("%s stopped %d times, want 1", svc.name, svc.StopCount())
		}
	}
	if report, err := tree.UnstoppedServiceReport(); err != nil || len(report) != 0 {
		t.Errorf("unstopped services = %v (%v)", report, err)
	}
}

func TestSupervisorTree_SyncFailureIsIsolated(t *testing.T) {
	tree, err := NewSupervisorTree(quietLogger(), TreeConfig{
		FailureThreshold: 10,
		FailureBackoff:   10 * time.Millisecond,
		ShutdownTimeout:  time.Second,
	})
	if err != nil {
		t.Fatalf("NewSupervisorTree: %v", err)
	}

	hub := newFakeService("chat-hub")
	poller := newFakeService("poller")
	poller.failFirst(2)
	tree.AddTransportService(hub)
	tree.AddSyncService(poller)
	runTree(t, tree)

	eventually(t, "poller recovery", func() bool { return poller.StartCount() >= 3 })
	if got := hub.StartCount(); got != 1 {
		t.Errorf("hub restarted: started %d times, want 1", got)
	}
}

func TestSupervisorTree_RemoveSyncService(t *testing.T) {
	tree, err := NewSupervisorTree(quietLogger(), TreeConfig{ShutdownTimeout: time.Second})
	if err != nil {
		t.Fatalf("NewSupervisorTree: %v", err)
	}

	persist := newFakeService("persist")
	token := tree.AddSyncService(persist)
	runTree(t, tree)

	eventually(t, "persist start", func() bool { return persist.StartCount() == 1 })
	if err := tree.RemoveSyncService(token); err != nil {
		t.Fatalf("RemoveSyncService: %v", err)
	}
	eventually(t, "persist stop", func() bool { return persist.StopCount() == 1 })
}
