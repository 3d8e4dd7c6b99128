// LoanDesk - Vehicle Financing Origination Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loandesk

package hub

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/loandesk/internal/retry"
)

// fastPolicy retries three times without waiting.
func fastPolicy() retry.Policy {
	return retry.Policy{MaxRetryCount: 3, Schedule: []time.Duration{0}}
}

func TestManager_StartRequiresCredential(t *testing.T) {
	conn := &fakeConnector{next: alwaysSucceed}
	m := NewManager("test", conn, fastPolicy())
	defer m.Close()

	if err := m.Start(context.Background(), nil); !errors.Is(err, ErrMissingCredential) {
		t.Errorf("Start(nil) error = %v, want ErrMissingCredential", err)
	}
	checkState(t, m, StateDisconnected)

	rec := &eventRecorder{}
	m.OnLifecycle(rec.record)

	for _, creds := range []Credentials{
		StaticToken("   "),
		NewTokenHolder(""),
		NewJWTCredentials(NewTokenHolder(""), 0),
	} {
		if err := m.Start(context.Background(), creds); !errors.Is(err, ErrMissingCredential) {
			t.Errorf("Start(%T) error = %v, want ErrMissingCredential", creds, err)
		}
		checkState(t, m, StateDisconnected)
	}
	if n := conn.calls.Load(); n != 0 {
		t.Errorf("connector called %d times, want 0", n)
	}
	if kinds := rec.kinds(); len(kinds) != 0 {
		t.Errorf("events = %v, want none before a token is set", kinds)
	}
}

func TestManager_BlankTokenFuncFailsAttempt(t *testing.T) {
	conn := &fakeConnector{next: alwaysSucceed}
	m := NewManager("test", conn, fastPolicy())
	defer m.Close()

	blank := TokenFunc(func(context.Context) (string, error) { return "", nil })
	if err := m.Start(context.Background(), blank); !errors.Is(err, ErrMissingCredential) {
		t.Errorf("Start() error = %v, want ErrMissingCredential", err)
	}
	if n := conn.calls.Load(); n != 0 {
		t.Errorf("connector called %d times, want 0", n)
	}
	checkState(t, m, StateClosedWithError)
}

func TestManager_StartRequiresEndpoint(t *testing.T) {
	m := NewManager("test", NewHubConnector(ConnectorConfig{Path: "/chat-hub"}), fastPolicy())
	defer m.Close()

	err := m.Start(context.Background(), StaticToken("token"))
	if !errors.Is(err, ErrMissingEndpoint) {
		t.Errorf("Start() error = %v, want ErrMissingEndpoint", err)
	}
	checkState(t, m, StateDisconnected)
}

func TestManager_StartConnects(t *testing.T) {
	conn := &fakeConnector{next: alwaysSucceed}
	m := NewManager("test", conn, fastPolicy())
	defer m.Close()

	rec := &eventRecorder{}
	m.OnLifecycle(rec.record)

	if err := m.Start(context.Background(), StaticToken("secret")); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	checkState(t, m, StateConnected)

	st := m.Status()
	if st.ConnectionID != "conn-1" || st.Transport != TransportWebSockets || st.RetryCount != 0 {
		t.Errorf("Status() = %+v", st)
	}
	if conn.tokens[0] != "secret" {
		t.Errorf("connector received token %q", conn.tokens[0])
	}
	kinds := rec.kinds()
	if len(kinds) != 2 || kinds[0] != EventConnecting || kinds[1] != EventConnected {
		t.Errorf("events = %v, want [connecting connected]", kinds)
	}

	// Start while connected is a no-op.
	if err := m.Start(context.Background(), StaticToken("secret")); err != nil {
		t.Errorf("second Start() error = %v", err)
	}
	if n := conn.calls.Load(); n != 1 {
		t.Errorf("connector called %d times, want 1", n)
	}
}

func TestManager_ConcurrentStartSharesAttempt(t *testing.T) {
	conn := &fakeConnector{next: alwaysSucceed, release: make(chan struct{})}
	m := NewManager("test", conn, fastPolicy())
	defer m.Close()

	var wg sync.WaitGroup
	errs := make([]error, 5)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = m.Start(context.Background(), StaticToken("secret"))
		}(i)
	}

	waitFor(t, "first attempt", func() bool { return conn.calls.Load() == 1 })
	time.Sleep(20 * time.Millisecond)
	close(conn.release)
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("Start() #%d error = %v", i, err)
		}
	}
	if n := conn.calls.Load(); n != 1 {
		t.Errorf("connector called %d times, want exactly 1", n)
	}
	checkState(t, m, StateConnected)
}

func TestManager_RetryBoundAndManualRestart(t *testing.T) {
	dialErr := errors.New("dial tcp: connection refused")
	conn := &fakeConnector{next: alwaysFail(dialErr)}
	m := NewManager("test", conn, fastPolicy())
	defer m.Close()

	rec := &eventRecorder{}
	m.OnLifecycle(rec.record)

	err := m.Start(context.Background(), StaticToken("secret"))
	if !errors.Is(err, ErrRetriesExhausted) {
		t.Fatalf("Start() error = %v, want ErrRetriesExhausted", err)
	}
	if !errors.Is(err, dialErr) {
		t.Errorf("Start() error = %v, want it to wrap the last failure", err)
	}
	checkState(t, m, StateClosedWithError)

	// 1 initial attempt + 3 retries, then nothing more.
	if n := conn.calls.Load(); n != 4 {
		t.Errorf("connector called %d times, want 4", n)
	}
	time.Sleep(50 * time.Millisecond)
	if n := conn.calls.Load(); n != 4 {
		t.Errorf("connector called %d times after exhaustion, want 4", n)
	}
	if st := m.Status(); !errors.Is(st.LastError, dialErr) {
		t.Errorf("Status().LastError = %v", st.LastError)
	}
	if ev, ok := rec.last(EventReconnecting); !ok || ev.Attempt != 3 {
		t.Errorf("last reconnecting event = %+v", ev)
	}
	if ev, ok := rec.last(EventClosed); !ok || !errors.Is(ev.Err, ErrRetriesExhausted) {
		t.Errorf("closed event = %+v", ev)
	}

	// A manual Start resets the counter and tries again.
	conn.mu.Lock()
	conn.next = alwaysSucceed
	conn.mu.Unlock()

	if err := m.Start(context.Background(), StaticToken("secret")); err != nil {
		t.Fatalf("manual Start() error = %v", err)
	}
	if n := conn.calls.Load(); n != 5 {
		t.Errorf("connector called %d times, want 5", n)
	}
	if st := m.Status(); st.RetryCount != 0 || st.State != StateConnected {
		t.Errorf("Status() after manual restart = %+v", st)
	}
}

func TestManager_PermanentErrorIsNotRetried(t *testing.T) {
	conn := &fakeConnector{next: alwaysFail(ErrUnauthorized)}
	m := NewManager("test", conn, fastPolicy())
	defer m.Close()

	err := m.Start(context.Background(), StaticToken("secret"))
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("Start() error = %v, want ErrUnauthorized", err)
	}
	if errors.Is(err, ErrRetriesExhausted) {
		t.Error("permanent errors must not go through the retry policy")
	}
	if n := conn.calls.Load(); n != 1 {
		t.Errorf("connector called %d times, want 1", n)
	}
	checkState(t, m, StateClosedWithError)
}

func TestManager_ReconnectAfterSessionLoss(t *testing.T) {
	conn := &fakeConnector{next: alwaysSucceed}
	m := NewManager("test", conn, fastPolicy())
	defer m.Close()

	rec := &eventRecorder{}
	m.OnLifecycle(rec.record)

	if err := m.Start(context.Background(), StaticToken("secret")); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	conn.session(0).fail <- errors.New("connection reset by peer")

	waitFor(t, "reconnected event", func() bool {
		_, ok := rec.last(EventReconnected)
		return ok
	})

	ev, _ := rec.last(EventReconnected)
	if ev.ConnectionID != "conn-2" {
		t.Errorf("reconnected ConnectionID = %q, want conn-2", ev.ConnectionID)
	}
	if rc, ok := rec.last(EventReconnecting); !ok || rc.Err == nil || rc.Attempt != 1 {
		t.Errorf("reconnecting event = %+v", rc)
	}
	if st := m.Status(); st.RetryCount != 0 || st.ConnectionID != "conn-2" {
		t.Errorf("Status() = %+v, want retry count reset", st)
	}
	if !conn.session(0).isClosed() {
		t.Error("lost session should be closed")
	}
}

func TestManager_StopMidConnectDiscardsLateSuccess(t *testing.T) {
	conn := &fakeConnector{next: alwaysSucceed, release: make(chan struct{}), ignoreCtx: true}
	m := NewManager("test", conn, fastPolicy())

	rec := &eventRecorder{}
	m.OnLifecycle(rec.record)

	startErr := make(chan error, 1)
	go func() { startErr <- m.Start(context.Background(), StaticToken("secret")) }()

	waitFor(t, "attempt in flight", func() bool { return conn.calls.Load() == 1 })
	m.Stop()

	if err := <-startErr; !errors.Is(err, ErrStopped) {
		t.Errorf("Start() error = %v, want ErrStopped", err)
	}

	close(conn.release)
	m.Close()

	checkState(t, m, StateDisconnected)
	if s := conn.session(0); s == nil || !s.isClosed() {
		t.Error("late session must be closed")
	}
	if _, ok := rec.last(EventConnected); ok {
		t.Error("late success must not emit a connected event")
	}
}

func TestManager_StopCancelsPendingRetry(t *testing.T) {
	conn := &fakeConnector{next: alwaysFail(errors.New("negotiate: status 503"))}
	m := NewManager("test", conn, retry.Policy{MaxRetryCount: 3, RetryInterval: time.Hour})
	defer m.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := m.Start(ctx, StaticToken("secret")); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Start() error = %v, want caller deadline", err)
	}
	checkState(t, m, StateReconnecting)

	m.Stop()
	checkState(t, m, StateDisconnected)
	time.Sleep(20 * time.Millisecond)
	if n := conn.calls.Load(); n != 1 {
		t.Errorf("connector called %d times, want 1", n)
	}

	// Stop is safe to repeat.
	m.Stop()
	checkState(t, m, StateDisconnected)
}

func TestManager_StartDuringReconnectWaits(t *testing.T) {
	var mu sync.Mutex
	fail := true
	conn := &fakeConnector{next: func(n int) (Session, error) {
		mu.Lock()
		defer mu.Unlock()
		if fail {
			return nil, errors.New("unreachable")
		}
		return alwaysSucceed(n)
	}}
	m := NewManager("test", conn, retry.Policy{MaxRetryCount: 3, Schedule: []time.Duration{30 * time.Millisecond}})
	defer m.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	_ = m.Start(ctx, StaticToken("secret"))
	cancel()

	mu.Lock()
	fail = false
	mu.Unlock()

	if err := m.Start(context.Background(), StaticToken("secret")); err != nil {
		t.Fatalf("Start() during reconnect error = %v", err)
	}
	checkState(t, m, StateConnected)
	if n := conn.calls.Load(); n != 2 {
		t.Errorf("connector called %d times, want 2", n)
	}
}

func TestManager_DispatchesInvocations(t *testing.T) {
	conn := &fakeConnector{next: alwaysSucceed}
	m := NewManager("chat", conn, fastPolicy())
	defer m.Close()

	got := make(chan Invocation, 1)
	m.OnInvocation(func(inv Invocation) { got <- inv })

	if err := m.Start(context.Background(), StaticToken("secret")); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	rec := mustRecord(t, Message{
		Type:      MessageInvocation,
		Target:    "ReceiveMessage",
		Arguments: []json.RawMessage{json.RawMessage(`{"id":"m1","content":"hi"}`)},
	})
	sess := conn.session(0)
	sess.frames <- mustRecord(t, Message{Type: MessagePing})
	sess.frames <- []byte("not json\x1e")
	sess.frames <- rec[:10]
	sess.frames <- rec[10:]

	select {
	case inv := <-got:
		if inv.Hub != "chat" || inv.Target != "ReceiveMessage" || len(inv.Arguments) != 1 {
			t.Errorf("invocation = %+v", inv)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("invocation not delivered")
	}
	checkState(t, m, StateConnected)
}

func TestManager_ServerCloseWithError(t *testing.T) {
	conn := &fakeConnector{next: alwaysSucceed}
	m := NewManager("test", conn, fastPolicy())
	defer m.Close()

	if err := m.Start(context.Background(), StaticToken("secret")); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	conn.session(0).frames <- mustRecord(t, Message{Type: MessageClose, Error: "token revoked"})

	waitFor(t, "closed with error", func() bool { return m.State() == StateClosedWithError })

	var closeErr *CloseError
	if !errors.As(m.Status().LastError, &closeErr) || closeErr.Message != "token revoked" {
		t.Errorf("LastError = %v", m.Status().LastError)
	}
	if n := conn.calls.Load(); n != 1 {
		t.Errorf("connector called %d times, want 1", n)
	}
}

func TestManager_ServerCloseAllowingReconnect(t *testing.T) {
	conn := &fakeConnector{next: alwaysSucceed}
	m := NewManager("test", conn, fastPolicy())
	defer m.Close()

	if err := m.Start(context.Background(), StaticToken("secret")); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	conn.session(0).frames <- mustRecord(t, Message{Type: MessageClose, Error: "server restarting", AllowReconnect: true})

	waitFor(t, "reconnect", func() bool { return conn.calls.Load() == 2 && m.State() == StateConnected })
}

func TestManager_CleanServerClose(t *testing.T) {
	conn := &fakeConnector{next: alwaysSucceed}
	m := NewManager("test", conn, fastPolicy())
	defer m.Close()

	rec := &eventRecorder{}
	m.OnLifecycle(rec.record)

	if err := m.Start(context.Background(), StaticToken("secret")); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	conn.session(0).frames <- mustRecord(t, Message{Type: MessageClose})

	waitFor(t, "disconnected", func() bool { return m.State() == StateDisconnected })
	if ev, ok := rec.last(EventClosed); !ok || ev.Err != nil {
		t.Errorf("closed event = %+v", ev)
	}
	time.Sleep(20 * time.Millisecond)
	if n := conn.calls.Load(); n != 1 {
		t.Errorf("connector called %d times, want 1", n)
	}
}

func TestManager_ServerTimeoutTriggersReconnect(t *testing.T) {
	conn := &fakeConnector{next: alwaysSucceed}
	m := NewManager("test", conn, fastPolicy(), WithServerTimeout(40*time.Millisecond), WithKeepAliveInterval(time.Hour))
	defer m.Close()

	if err := m.Start(context.Background(), StaticToken("secret")); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitFor(t, "reconnect after silence", func() bool { return conn.calls.Load() >= 2 })
	if !conn.session(0).isClosed() {
		t.Error("silent session should be closed")
	}
}

func TestManager_SendsKeepAlive(t *testing.T) {
	conn := &fakeConnector{next: alwaysSucceed}
	m := NewManager("test", conn, fastPolicy(), WithKeepAliveInterval(10*time.Millisecond))
	defer m.Close()

	if err := m.Start(context.Background(), StaticToken("secret")); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	ping := PingRecord()
	waitFor(t, "keep-alive ping", func() bool { return conn.session(0).sentCount(ping) >= 2 })
}

func TestManager_CredentialsEvaluatedPerAttempt(t *testing.T) {
	calls := 0
	conn := &fakeConnector{next: func(n int) (Session, error) {
		if n == 1 {
			return nil, errors.New("first attempt fails")
		}
		return alwaysSucceed(n)
	}}
	m := NewManager("test", conn, fastPolicy())
	defer m.Close()

	creds := TokenFunc(func(context.Context) (string, error) {
		calls++
		return "token-" + string(rune('0'+calls)), nil
	})
	if err := m.Start(context.Background(), creds); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if len(conn.tokens) != 2 || conn.tokens[0] != "token-1" || conn.tokens[1] != "token-2" {
		t.Errorf("tokens = %v, want a fresh token per attempt", conn.tokens)
	}
}

func TestManager_CloseDisposes(t *testing.T) {
	conn := &fakeConnector{next: alwaysSucceed}
	m := NewManager("test", conn, fastPolicy())

	if err := m.Start(context.Background(), StaticToken("secret")); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	m.Close()

	checkState(t, m, StateDisconnected)
	if err := m.Start(context.Background(), StaticToken("secret")); !errors.Is(err, ErrStopped) {
		t.Errorf("Start() after Close error = %v, want ErrStopped", err)
	}
	if !conn.session(0).isClosed() {
		t.Error("session should be closed by Close")
	}
}

func TestState_String(t *testing.T) {
	for s, want := range map[State]string{
		StateDisconnected:    "disconnected",
		StateConnecting:      "connecting",
		StateConnected:       "connected",
		StateReconnecting:    "reconnecting",
		StateClosedWithError: "closed_with_error",
		State(42):            "unknown",
	} {
		if got := s.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", s, got, want)
		}
	}
}
