// LoanDesk - Vehicle Financing Origination Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loandesk

package api

import (
	"context"
	"time"

	"github.com/tomtom215/loandesk/internal/hub"
	"github.com/tomtom215/loandesk/internal/models"
	"github.com/tomtom215/loandesk/internal/notify"
	"github.com/tomtom215/loandesk/internal/store"
	ws "github.com/tomtom215/loandesk/internal/websocket"
)

// HubController is the part of *hub.Manager the API drives.
type HubController interface {
	Name() string
	Start(ctx context.Context, creds hub.Credentials) error
	Stop()
	Status() hub.Status
}

// TokenStore holds the bearer credential. *hub.TokenHolder satisfies it.
type TokenStore interface {
	Set(token string)
	Clear()
	Present() bool
}

// Refresher triggers poll-path refetches. *sync.Poller satisfies it.
type Refresher interface {
	Refresh() bool
	Watch(roomID string)
	Unwatch(roomID string)
}

// Sender posts chat messages. *notify.Messenger satisfies it.
type Sender interface {
	Send(ctx context.Context, req models.SendMessageRequest) (models.ChatMessage, error)
}

// DefaultHubStartWait bounds how long a login request waits for the hubs.
const DefaultHubStartWait = 10 * time.Second

// Deps are the collaborators of Handler. Credentials is what the hubs read
// the token through; it usually wraps Tokens.
type Deps struct {
	Hubs        []HubController
	Store       *store.Store
	Center      *notify.Center
	Poller      Refresher
	Messenger   Sender
	Tokens      TokenStore
	Credentials hub.Credentials
	StartWait   time.Duration

	// Live serves the live-events socket. Nil disables the route.
	Live *ws.Hub
	// AllowedOrigins are the browser origins accepted on the live-events
	// socket. "*" accepts any origin.
	AllowedOrigins []string
}

// Handler serves the local API.
type Handler struct {
	hubs      []HubController
	store     *store.Store
	center    *notify.Center
	poller    Refresher
	messenger Sender
	tokens    TokenStore
	creds     hub.Credentials
	startWait time.Duration
	live      *ws.Hub
	origins   []string
}

// NewHandler creates a Handler from deps.
func NewHandler(deps Deps) *Handler {
	wait := deps.StartWait
	if wait <= 0 {
		wait = DefaultHubStartWait
	}
	return &Handler{
		hubs:      deps.Hubs,
		store:     deps.Store,
		center:    deps.Center,
		poller:    deps.Poller,
		messenger: deps.Messenger,
		tokens:    deps.Tokens,
		creds:     deps.Credentials,
		startWait: wait,
		live:      deps.Live,
		origins:   deps.AllowedOrigins,
	}
}

func (h *Handler) findHub(name string) HubController {
	for _, c := range h.hubs {
		if c.Name() == name {
			return c
		}
	}
	return nil
}

func (h *Handler) hubStatuses() []models.HubStatus {
	out := make([]models.HubStatus, 0, len(h.hubs))
	for _, c := range h.hubs {
		out = append(out, hubStatus(c.Status()))
	}
	return out
}

func hubStatus(s hub.Status) models.HubStatus {
	hs := models.HubStatus{
		Name:         s.Name,
		State:        s.State.String(),
		ConnectionID: s.ConnectionID,
		Transport:    string(s.Transport),
		RetryCount:   s.RetryCount,
		Since:        s.Since,
	}
	if s.LastError != nil {
		hs.LastError = s.LastError.Error()
	}
	return hs
}
