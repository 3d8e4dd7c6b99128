// LoanDesk - Vehicle Financing Origination Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loandesk

package supervisor

import (
	"context"
	"errors"
	"sync/atomic"
)

// fakeService stands in for a hub, poller or API service. It fails the
// first failures calls to Serve, then blocks until its context ends.
type fakeService struct {
	name     string
	failures atomic.Int32
	starts   atomic.Int32
	stops    atomic.Int32
}

func newFakeService(name string) *fakeService {
	return &fakeService{name: name}
}

func (f *fakeService) Serve(ctx context.Context) error {
	f.starts.Add(1)
	defer f.stops.Add(1)

	if f.failures.Add(-1) >= 0 {
		return errors.New("simulated failure")
	}
	<-ctx.Done()
	return ctx.Err()
}

// failFirst makes the next n calls to Serve fail.
func (f *fakeService) failFirst(n int) {
	f.failures.Store(int32(n))
}

func (f *fakeService) StartCount() int32 { return f.starts.Load() }

func (f *fakeService) StopCount() int32 { return f.stops.Load() }

func (f *fakeService) String() string { return f.name }
