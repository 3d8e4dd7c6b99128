// LoanDesk - Vehicle Financing Origination Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loandesk

package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	gosync "sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/loandesk/internal/hub"
	"github.com/tomtom215/loandesk/internal/models"
	"github.com/tomtom215/loandesk/internal/notify"
	"github.com/tomtom215/loandesk/internal/store"
	ws "github.com/tomtom215/loandesk/internal/websocket"
)

// fakeHub records lifecycle calls and reports a fixed state.
type fakeHub struct {
	mu       gosync.Mutex
	name     string
	state    hub.State
	startErr error
	calls    []string
	lastCred hub.Credentials
}

func newFakeHub(name string) *fakeHub {
	return &fakeHub{name: name, state: hub.StateDisconnected}
}

func (f *fakeHub) Name() string { return f.name }

func (f *fakeHub) Start(ctx context.Context, creds hub.Credentials) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "start")
	f.lastCred = creds
	if f.startErr != nil {
		f.state = hub.StateClosedWithError
		return f.startErr
	}
	f.state = hub.StateConnected
	return nil
}

func (f *fakeHub) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "stop")
	f.state = hub.StateDisconnected
}

func (f *fakeHub) Status() hub.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return hub.Status{Name: f.name, State: f.state, Transport: hub.TransportWebSockets}
}

func (f *fakeHub) callLog() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return strings.Join(f.calls, ",")
}

// fakePoller records watched rooms and refresh requests.
type fakePoller struct {
	mu        gosync.Mutex
	watched   map[string]bool
	refreshes int
	allow     bool
}

func newFakePoller() *fakePoller {
	return &fakePoller{watched: make(map[string]bool), allow: true}
}

func (p *fakePoller) Refresh() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.refreshes++
	return p.allow
}

func (p *fakePoller) Watch(roomID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.watched[roomID] = true
}

func (p *fakePoller) Unwatch(roomID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.watched, roomID)
}

func (p *fakePoller) isWatched(roomID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.watched[roomID]
}

// fakeMessageSender stands in for the REST client behind notify.Messenger.
type fakeMessageSender struct {
	err  error
	last models.SendMessageRequest
}

func (f *fakeMessageSender) SendMessage(ctx context.Context, req models.SendMessageRequest) (models.ChatMessage, error) {
	f.last = req
	if f.err != nil {
		return models.ChatMessage{}, f.err
	}
	return models.ChatMessage{
		ID:             "srv-" + req.ClientID[:8],
		ConversationID: req.ConversationID,
		SenderID:       "staff-1",
		ReceiverID:     req.ReceiverID,
		Content:        req.Content,
		SentAt:         time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}, nil
}

type testEnv struct {
	handler *Handler
	router  http.Handler
	store   *store.Store
	center  *notify.Center
	poller  *fakePoller
	sender  *fakeMessageSender
	tokens  *hub.TokenHolder
	hubs    []*fakeHub
	live    *ws.Hub
}

const testOrigin = "http://localhost:3000"

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		store:  store.New(),
		center: notify.NewCenter(notify.CenterConfig{}),
		poller: newFakePoller(),
		sender: &fakeMessageSender{},
		tokens: hub.NewTokenHolder(""),
		hubs:   []*fakeHub{newFakeHub("notifications"), newFakeHub("chat")},
		live:   ws.NewHub(),
	}
	env.handler = NewHandler(Deps{
		Hubs:        []HubController{env.hubs[0], env.hubs[1]},
		Store:       env.store,
		Center:      env.center,
		Poller:      env.poller,
		Messenger:   notify.NewMessenger(env.sender, env.store),
		Tokens:      env.tokens,
		Credentials: env.tokens,
		StartWait:   time.Second,

		Live:           env.live,
		AllowedOrigins: []string{testOrigin},
	})
	env.router = NewRouter(env.handler, Limits{Origins: []string{testOrigin}}).SetupChi()
	return env
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

type envelope[T any] struct {
	Status string           `json:"status"`
	Data   T                `json:"data"`
	Error  *models.APIError `json:"error"`
}

func decodeEnvelope[T any](t *testing.T, rec *httptest.ResponseRecorder) envelope[T] {
	t.Helper()
	var env envelope[T]
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return env
}

func checkStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d; body = %s", rec.Code, want, rec.Body.String())
	}
}

func checkErrorCode(t *testing.T, rec *httptest.ResponseRecorder, want string) {
	t.Helper()
	env := decodeEnvelope[json.RawMessage](t, rec)
	if env.Status != "error" || env.Error == nil {
		t.Fatalf("expected error envelope, got %s", rec.Body.String())
	}
	if env.Error.Code != want {
		t.Errorf("error code = %q, want %q", env.Error.Code, want)
	}
}

func chatMsg(id, room string, read bool, at time.Time) models.ChatMessage {
	return models.ChatMessage{
		ID:             id,
		ConversationID: room,
		SenderID:       "dealer-7",
		ReceiverID:     "staff-1",
		Content:        "message " + id,
		SentAt:         at,
		IsRead:         read,
	}
}

var errBoom = errors.New("boom")
