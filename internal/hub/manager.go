// LoanDesk - Vehicle Financing Origination Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loandesk

package hub

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/tomtom215/loandesk/internal/dispatch"
	"github.com/tomtom215/loandesk/internal/logging"
	"github.com/tomtom215/loandesk/internal/metrics"
	"github.com/tomtom215/loandesk/internal/retry"
)

// Default timing values.
const (
	DefaultNegotiateTimeout  = 10 * time.Second
	DefaultKeepAliveInterval = 15 * time.Second
	DefaultServerTimeout     = 30 * time.Second
)

// Option configures a Manager.
type Option func(*Manager)

// WithNegotiateTimeout bounds each connection attempt, handshake included.
func WithNegotiateTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.negotiateTimeout = d
		}
	}
}

// WithKeepAliveInterval sets how often a ping is sent on a live session.
func WithKeepAliveInterval(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.keepAlive = d
		}
	}
}

// WithServerTimeout sets how long the session may stay silent before it is
// treated as lost.
func WithServerTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.serverTimeout = d
		}
	}
}

// startCall is the shared result of one Start operation.
type startCall struct {
	done chan struct{}
	once sync.Once
	err  error
}

func newStartCall() *startCall {
	return &startCall{done: make(chan struct{})}
}

func (c *startCall) finish(err error) {
	if c == nil {
		return
	}
	c.once.Do(func() {
		c.err = err
		close(c.done)
	})
}

// Manager owns one logical hub connection: the notification hub or the chat
// hub. It drives the state machine
//
//	Disconnected -> Connecting -> Connected -> Reconnecting -> Connected
//	                                        \-> ClosedWithError
//
// and guarantees at most one live session at a time. Concurrent Start calls
// share the in-flight attempt. A lost session is retried on the configured
// retry.Policy until it is exhausted or a permanent error (rejected or
// expired credential, missing endpoint) ends the connection.
//
// Every attempt re-evaluates the Credentials, so a token refreshed at login
// is picked up by the next reconnect without restarting the manager.
//
// Consumers subscribe rather than poll:
//   - OnLifecycle receives connecting, connected, reconnecting and closed events
//   - OnInvocation receives every server-to-client method call
//
// Usage:
//
//	mgr := hub.NewManager("notifications", hub.NewHubConnector(cfg), policy)
//	detach := router.Attach(mgr)
//	defer detach()
//
//	if err := mgr.Start(ctx, tokens); err != nil {
//	    logging.Warn().Err(err).Msg("Notification hub unavailable")
//	}
//	defer mgr.Close()
type Manager struct {
	name      string
	connector Connector
	policy    retry.Policy

	negotiateTimeout time.Duration
	keepAlive        time.Duration
	serverTimeout    time.Duration

	lifecycle   *dispatch.Registry[LifecycleEvent]
	invocations *dispatch.Registry[Invocation]

	mu         sync.Mutex
	state      State
	since      time.Time
	connID     string
	transport  TransportType
	retryCount int
	lastErr    error
	gen        uint64
	call       *startCall
	cancel     context.CancelFunc
	session    Session
	disposed   bool

	wg sync.WaitGroup
}

// NewManager creates a disconnected Manager.
func NewManager(name string, connector Connector, policy retry.Policy, opts ...Option) *Manager {
	m := &Manager{
		name:             name,
		connector:        connector,
		policy:           policy,
		negotiateTimeout: DefaultNegotiateTimeout,
		keepAlive:        DefaultKeepAliveInterval,
		serverTimeout:    DefaultServerTimeout,
		lifecycle:        dispatch.NewRegistry[LifecycleEvent]("hub_lifecycle_" + name),
		invocations:      dispatch.NewRegistry[Invocation]("hub_invocations_" + name),
		state:            StateDisconnected,
		since:            time.Now(),
	}
	for _, opt := range opts {
		opt(m)
	}
	metrics.HubConnectionState.WithLabelValues(name).Set(float64(StateDisconnected))
	return m
}

// Name returns the manager's label.
func (m *Manager) Name() string {
	return m.name
}

// OnLifecycle subscribes to state transitions.
func (m *Manager) OnLifecycle(fn func(LifecycleEvent)) (unsubscribe func()) {
	return m.lifecycle.Subscribe(fn)
}

// OnInvocation subscribes to server-to-client invocations.
func (m *Manager) OnInvocation(fn func(Invocation)) (unsubscribe func()) {
	return m.invocations.Subscribe(fn)
}

// State returns the current state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Status returns a snapshot of the connection.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Status{
		Name:         m.name,
		State:        m.state,
		ConnectionID: m.connID,
		Transport:    m.transport,
		RetryCount:   m.retryCount,
		LastError:    m.lastErr,
		Since:        m.since,
	}
}

// Start connects using creds. While a connection is being established or is
// live, Start does not begin another one: callers wait for the in-flight
// attempt and receive its result. From Disconnected or ClosedWithError it
// resets the retry counter and begins a new connection.
//
// Credentials that can report an absent token (StaticToken, TokenHolder,
// JWTCredentials over either) are rejected up front, leaving the state and
// lifecycle untouched.
//
// ctx bounds only how long the caller waits. The connection itself keeps
// running until Stop or Close.
func (m *Manager) Start(ctx context.Context, creds Credentials) error {
	if creds == nil || !credentialPresent(creds) {
		return ErrMissingCredential
	}
	if v, ok := m.connector.(interface{ Validate() error }); ok {
		if err := v.Validate(); err != nil {
			return err
		}
	}

	m.mu.Lock()
	if m.disposed {
		m.mu.Unlock()
		return ErrStopped
	}
	switch m.state {
	case StateConnected:
		m.mu.Unlock()
		return nil
	case StateConnecting, StateReconnecting:
		call := m.call
		m.mu.Unlock()
		return m.wait(ctx, call)
	}

	m.gen++
	gen := m.gen
	m.retryCount = 0
	m.lastErr = nil
	call := newStartCall()
	m.call = call
	runCtx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.setStateLocked(StateConnecting)
	m.wg.Add(1)
	m.mu.Unlock()

	logging.Info().Str("hub", m.name).Msg("Starting hub connection")
	m.lifecycle.Dispatch(LifecycleEvent{Hub: m.name, Kind: EventConnecting, State: StateConnecting})

	go m.run(runCtx, gen, creds)

	return m.wait(ctx, call)
}

func (m *Manager) wait(ctx context.Context, call *startCall) error {
	if call == nil {
		return nil
	}
	select {
	case <-call.done:
		return call.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop tears the connection down and cancels any pending retry. It is safe to
// call when already stopped and from lifecycle or invocation handlers; it
// does not wait for background goroutines (see Close).
func (m *Manager) Stop() {
	m.mu.Lock()
	prev := m.state
	if m.cancel == nil && !prev.active() {
		if prev == StateClosedWithError {
			m.setStateLocked(StateDisconnected)
		}
		m.mu.Unlock()
		return
	}

	m.gen++
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	sess := m.session
	m.session = nil
	call := m.call
	m.call = nil
	m.connID = ""
	m.transport = ""
	m.setStateLocked(StateDisconnected)
	m.mu.Unlock()

	if sess != nil {
		_ = sess.Close()
	}
	if prev.active() {
		logging.Info().Str("hub", m.name).Str("previous_state", prev.String()).Msg("Hub connection stopped")
		m.lifecycle.Dispatch(LifecycleEvent{Hub: m.name, Kind: EventClosed, State: StateDisconnected})
	}
	call.finish(ErrStopped)
}

// Close stops the connection, waits for background goroutines and drops all
// subscriptions. The Manager cannot be started again. Close must not be
// called from a lifecycle or invocation handler.
func (m *Manager) Close() {
	m.mu.Lock()
	m.disposed = true
	m.mu.Unlock()

	m.Stop()
	m.wg.Wait()
	m.lifecycle.Clear()
	m.invocations.Clear()
}

func (m *Manager) setStateLocked(s State) {
	if m.state != s {
		m.since = time.Now()
	}
	m.state = s
	metrics.HubConnectionState.WithLabelValues(m.name).Set(float64(s))
}

// current reports whether gen still identifies the live run. Callers hold m.mu.
func (m *Manager) currentLocked(gen uint64) bool {
	return m.gen == gen
}

// run drives connection attempts, live sessions and retries for one Start.
func (m *Manager) run(ctx context.Context, gen uint64, creds Credentials) {
	defer m.wg.Done()

	bo := m.policy.NewBackOff()
	reconnecting := false

	for {
		sess, err := m.attempt(ctx, creds)
		if ctx.Err() != nil {
			if sess != nil {
				_ = sess.Close()
			}
			return
		}

		if err == nil {
			if !m.markConnected(gen, sess, reconnecting) {
				_ = sess.Close()
				return
			}
			bo.Reset()

			err = m.serve(ctx, sess)
			_ = sess.Close()

			m.mu.Lock()
			if !m.currentLocked(gen) || ctx.Err() != nil {
				m.mu.Unlock()
				return
			}
			m.session = nil
			m.mu.Unlock()

			if err == nil {
				m.finishClean(gen)
				return
			}
			logging.Warn().Str("hub", m.name).Err(err).Msg("Hub connection lost")
		} else {
			logging.Warn().Str("hub", m.name).Err(err).Msg("Hub connection attempt failed")
		}

		if isPermanent(err) {
			m.fail(gen, err)
			return
		}

		delay := bo.NextBackOff()
		if delay == backoff.Stop {
			m.fail(gen, fmt.Errorf("%w: %w", ErrRetriesExhausted, err))
			return
		}

		if !m.markReconnecting(gen, bo.Attempt(), delay, err) {
			return
		}
		reconnecting = true

		if !sleepContext(ctx, delay) {
			return
		}
	}
}

// attempt fetches the credential and connects within the negotiate timeout.
func (m *Manager) attempt(ctx context.Context, creds Credentials) (Session, error) {
	token, err := creds.Token(ctx)
	if err != nil {
		metrics.RecordHubAttempt(m.name, "", err)
		return nil, err
	}
	if token == "" {
		metrics.RecordHubAttempt(m.name, "", ErrMissingCredential)
		return nil, ErrMissingCredential
	}

	actx, cancel := context.WithTimeout(ctx, m.negotiateTimeout)
	defer cancel()

	sess, err := m.connector.Connect(actx, token)
	if err != nil {
		metrics.RecordHubAttempt(m.name, "", err)
		return nil, err
	}
	metrics.RecordHubAttempt(m.name, string(sess.Transport()), nil)
	return sess, nil
}

func (m *Manager) markConnected(gen uint64, sess Session, reconnecting bool) bool {
	m.mu.Lock()
	if !m.currentLocked(gen) {
		m.mu.Unlock()
		return false
	}
	m.session = sess
	m.connID = sess.ConnectionID()
	m.transport = sess.Transport()
	m.retryCount = 0
	m.lastErr = nil
	call := m.call
	m.call = nil
	m.setStateLocked(StateConnected)
	m.mu.Unlock()

	kind := EventConnected
	if reconnecting {
		kind = EventReconnected
		metrics.HubReconnects.WithLabelValues(m.name).Inc()
	}
	logging.Info().
		Str("hub", m.name).
		Str("connection_id", sess.ConnectionID()).
		Str("transport", string(sess.Transport())).
		Bool("reconnected", reconnecting).
		Msg("Hub connected")
	m.lifecycle.Dispatch(LifecycleEvent{
		Hub:          m.name,
		Kind:         kind,
		State:        StateConnected,
		ConnectionID: sess.ConnectionID(),
		Transport:    sess.Transport(),
	})
	call.finish(nil)
	return true
}

func (m *Manager) markReconnecting(gen uint64, attempt int, delay time.Duration, cause error) bool {
	m.mu.Lock()
	if !m.currentLocked(gen) {
		m.mu.Unlock()
		return false
	}
	m.retryCount = attempt
	m.lastErr = cause
	m.connID = ""
	m.transport = ""
	if m.call == nil {
		m.call = newStartCall()
	}
	m.setStateLocked(StateReconnecting)
	m.mu.Unlock()

	logging.Info().
		Str("hub", m.name).
		Int("attempt", attempt).
		Int("max_retries", m.policy.MaxRetryCount).
		Dur("delay", delay).
		Err(cause).
		Msg("Scheduling hub reconnect")
	m.lifecycle.Dispatch(LifecycleEvent{
		Hub:     m.name,
		Kind:    EventReconnecting,
		State:   StateReconnecting,
		Attempt: attempt,
		Delay:   delay,
		Err:     cause,
	})
	return true
}

// fail leaves the connection in ClosedWithError. No automatic attempt follows.
func (m *Manager) fail(gen uint64, err error) {
	m.mu.Lock()
	if !m.currentLocked(gen) {
		m.mu.Unlock()
		return
	}
	m.lastErr = err
	m.connID = ""
	m.transport = ""
	m.session = nil
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	call := m.call
	m.call = nil
	m.setStateLocked(StateClosedWithError)
	m.mu.Unlock()

	logging.Error().Str("hub", m.name).Err(err).Msg("Hub connection closed with error")
	m.lifecycle.Dispatch(LifecycleEvent{Hub: m.name, Kind: EventClosed, State: StateClosedWithError, Err: err})
	call.finish(err)
}

// finishClean handles a server-initiated close without error.
func (m *Manager) finishClean(gen uint64) {
	m.mu.Lock()
	if !m.currentLocked(gen) {
		m.mu.Unlock()
		return
	}
	m.connID = ""
	m.transport = ""
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.setStateLocked(StateDisconnected)
	m.mu.Unlock()

	logging.Info().Str("hub", m.name).Msg("Hub closed by server")
	m.lifecycle.Dispatch(LifecycleEvent{Hub: m.name, Kind: EventClosed, State: StateDisconnected})
}

// serve reads the session until it ends. It returns nil for a clean close
// (server Close without error, or end of stream) or when ctx is cancelled.
func (m *Manager) serve(ctx context.Context, sess Session) error {
	frames := make(chan receiveResult, 1)
	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			data, err := sess.Receive()
			select {
			case frames <- receiveResult{data: data, err: err}:
			case <-done:
				return
			}
			if err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(m.keepAlive)
	defer ping.Stop()
	idle := time.NewTimer(m.serverTimeout)
	defer idle.Stop()

	var reader RecordReader
	for {
		select {
		case <-ctx.Done():
			return nil

		case <-ping.C:
			sctx, cancel := context.WithTimeout(ctx, m.keepAlive)
			err := sess.Send(sctx, PingRecord())
			cancel()
			if err != nil && ctx.Err() == nil {
				return fmt.Errorf("hub: send keep-alive: %w", err)
			}

		case <-idle.C:
			return ErrServerTimeout

		case f := <-frames:
			if f.err != nil {
				if errors.Is(f.err, io.EOF) {
					return nil
				}
				return fmt.Errorf("hub: receive: %w", f.err)
			}
			if !idle.Stop() {
				select {
				case <-idle.C:
				default:
				}
			}
			idle.Reset(m.serverTimeout)

			records, err := reader.Feed(f.data)
			if err != nil {
				logging.Warn().Str("hub", m.name).Err(err).Msg("Discarding oversized hub record")
			}
			for _, rec := range records {
				closed, err := m.handleRecord(rec)
				if closed {
					return err
				}
			}
		}
	}
}

// handleRecord processes one hub message. closed reports that the server
// closed the session, with err set when it closed with an error.
func (m *Manager) handleRecord(rec []byte) (closed bool, err error) {
	msg, err := DecodeMessage(rec)
	if err != nil {
		logging.Warn().Str("hub", m.name).Err(err).Int("bytes", len(rec)).Msg("Dropping malformed hub message")
		return false, nil
	}
	metrics.HubMessagesReceived.WithLabelValues(m.name, msg.Type.String()).Inc()

	switch msg.Type {
	case MessageInvocation:
		m.invocations.Dispatch(Invocation{Hub: m.name, Target: msg.Target, Arguments: msg.Arguments})
	case MessageClose:
		if msg.Error != "" {
			return true, &CloseError{Message: msg.Error, AllowReconnect: msg.AllowReconnect}
		}
		return true, nil
	case MessagePing:
	default:
		logging.Debug().Str("hub", m.name).Int("type", int(msg.Type)).Msg("Ignoring unsupported hub message")
	}
	return false, nil
}

func sleepContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
