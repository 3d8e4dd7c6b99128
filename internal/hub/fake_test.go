// LoanDesk - Vehicle Financing Origination Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loandesk

package hub

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

var errSessionClosed = errors.New("fake session closed")

// fakeSession is an in-memory Session driven by the test.
type fakeSession struct {
	id        string
	transport TransportType

	frames chan []byte
	fail   chan error
	closed chan struct{}

	closeOnce sync.Once
	mu        sync.Mutex
	sent      [][]byte
}

func newFakeSession(id string) *fakeSession {
	return &fakeSession{
		id:        id,
		transport: TransportWebSockets,
		frames:    make(chan []byte, 16),
		fail:      make(chan error, 1),
		closed:    make(chan struct{}),
	}
}

func (s *fakeSession) ConnectionID() string     { return s.id }
func (s *fakeSession) Transport() TransportType { return s.transport }

func (s *fakeSession) Receive() ([]byte, error) {
	select {
	case f := <-s.frames:
		return f, nil
	case err := <-s.fail:
		return nil, err
	case <-s.closed:
		return nil, errSessionClosed
	}
}

func (s *fakeSession) Send(_ context.Context, data []byte) error {
	select {
	case <-s.closed:
		return errSessionClosed
	default:
	}
	s.mu.Lock()
	s.sent = append(s.sent, bytes.Clone(data))
	s.mu.Unlock()
	return nil
}

func (s *fakeSession) Close() error {
	s.closeOnce.Do(func() { close(s.closed) })
	return nil
}

func (s *fakeSession) isClosed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}

func (s *fakeSession) sentCount(match []byte) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, d := range s.sent {
		if bytes.Equal(d, match) {
			n++
		}
	}
	return n
}

// fakeConnector hands out sessions or errors according to next.
type fakeConnector struct {
	calls atomic.Int32

	// release, when set, blocks Connect until closed.
	release chan struct{}
	// ignoreCtx makes a blocked Connect ignore cancellation, simulating a
	// late-arriving success.
	ignoreCtx bool

	mu       sync.Mutex
	tokens   []string
	next     func(call int) (Session, error)
	sessions []*fakeSession
}

func (c *fakeConnector) Connect(ctx context.Context, token string) (Session, error) {
	n := int(c.calls.Add(1))

	c.mu.Lock()
	c.tokens = append(c.tokens, token)
	next := c.next
	c.mu.Unlock()

	if c.release != nil {
		if c.ignoreCtx {
			<-c.release
		} else {
			select {
			case <-c.release:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	sess, err := next(n)
	if fs, ok := sess.(*fakeSession); ok {
		c.mu.Lock()
		c.sessions = append(c.sessions, fs)
		c.mu.Unlock()
	}
	return sess, err
}

func (c *fakeConnector) session(i int) *fakeSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i >= len(c.sessions) {
		return nil
	}
	return c.sessions[i]
}

func alwaysSucceed(call int) (Session, error) {
	return newFakeSession(fmt.Sprintf("conn-%d", call)), nil
}

func alwaysFail(err error) func(int) (Session, error) {
	return func(int) (Session, error) { return nil, err }
}

// eventRecorder collects lifecycle events.
type eventRecorder struct {
	mu     sync.Mutex
	events []LifecycleEvent
}

func (r *eventRecorder) record(ev LifecycleEvent) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *eventRecorder) kinds() []EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventKind, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Kind
	}
	return out
}

func (r *eventRecorder) last(kind EventKind) (LifecycleEvent, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].Kind == kind {
			return r.events[i], true
		}
	}
	return LifecycleEvent{}, false
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func checkState(t *testing.T, m *Manager, want State) {
	t.Helper()
	if got := m.State(); got != want {
		t.Errorf("State() = %v, want %v", got, want)
	}
}

func mustRecord(t *testing.T, v any) []byte {
	t.Helper()
	rec, err := EncodeRecord(v)
	if err != nil {
		t.Fatalf("EncodeRecord() error = %v", err)
	}
	return rec
}
