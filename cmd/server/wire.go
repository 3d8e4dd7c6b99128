// LoanDesk - Vehicle Financing Origination Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loandesk

package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/tomtom215/loandesk/internal/api"
	"github.com/tomtom215/loandesk/internal/config"
	"github.com/tomtom215/loandesk/internal/hub"
	"github.com/tomtom215/loandesk/internal/logging"
	"github.com/tomtom215/loandesk/internal/models"
	"github.com/tomtom215/loandesk/internal/notify"
	"github.com/tomtom215/loandesk/internal/retry"
	"github.com/tomtom215/loandesk/internal/store"
	"github.com/tomtom215/loandesk/internal/supervisor"
	"github.com/tomtom215/loandesk/internal/supervisor/services"
	"github.com/tomtom215/loandesk/internal/sync"
	"github.com/tomtom215/loandesk/internal/websocket"
)

// Hub names used in logs, metrics and the reconnect route.
const (
	notificationsHub = "notifications"
	chatHub          = "chat"
)

// app holds the constructed components.
type app struct {
	cfg       *config.Config
	tree      *supervisor.SupervisorTree
	persister store.Persister
	server    *http.Server
	managers  []*hub.Manager
	handler   http.Handler
	detach    []func()
}

// buildApp constructs every component from cfg and wires them together.
// Nothing runs until the tree is served.
func buildApp(cfg *config.Config) (*app, error) {
	tokens := hub.NewTokenHolder(cfg.Hub.AccessToken)
	creds := hub.NewJWTCredentials(tokens, cfg.Hub.TokenLeeway)

	chatStore := store.New(store.WithMaxMessagesPerRoom(cfg.Store.MaxMessagesPerRoom))
	persister, err := store.OpenBadger(store.BadgerOptions{
		Path:      cfg.Store.Path,
		Namespace: cfg.Store.Namespace,
		InMemory:  cfg.Store.InMemory,
	})
	if err != nil {
		return nil, err
	}
	if err := store.Restore(context.Background(), chatStore, persister); err != nil {
		logging.Warn().Err(err).Msg("Could not restore chat store; starting empty")
	}
	logging.Info().
		Int("rooms", len(chatStore.Rooms())).
		Int("unread", chatStore.TotalUnread()).
		Msg("Chat store ready")

	center := notify.NewCenter(notify.CenterConfig{
		MaxNotifications: cfg.Notifications.MaxItems,
		ToastTTL:         cfg.Notifications.ToastTTL,
	})
	router := notify.NewRouter(chatStore, center, notify.RouterConfig{Targets: cfg.Hub.Targets})

	a := &app{cfg: cfg, persister: persister}
	a.detach = append(a.detach,
		center.OnToast(func(n models.Notification) {
			logging.Info().Str("notification_id", n.ID).Str("type", string(n.Type)).Str("title", n.Title).Msg("New notification")
		}),
		center.OnInvalidate(func(inv notify.Invalidation) {
			logging.Debug().Str("query", inv.Query).Str("entity_id", inv.EntityID).Msg("Query invalidated")
		}),
		router.OnChatMessage(func(msg models.ChatMessage) {
			logging.Debug().Str("room", msg.RoomID()).Str("message_id", msg.ID).Msg("Chat message received")
		}),
	)

	a.managers = []*hub.Manager{
		newManager(cfg, notificationsHub, cfg.Hub.NotificationPath, cfg.Retry.Notifications),
		newManager(cfg, chatHub, cfg.Hub.ChatPath, cfg.Retry.Chat),
	}
	for _, m := range a.managers {
		a.detach = append(a.detach, router.Attach(m))
	}

	live := websocket.NewHub()
	a.detach = append(a.detach, live.Subscribe(center, router))

	rest, err := sync.NewRESTClient(sync.RESTConfig{
		BaseURL:           cfg.API.BaseURL,
		NotificationsPath: cfg.API.NotificationsPath,
		ConversationsPath: cfg.API.ConversationsPath,
		SendMessagePath:   cfg.API.SendMessagePath,
		Timeout:           cfg.API.Timeout,
	}, creds)
	if err != nil {
		_ = persister.Close()
		return nil, err
	}
	client := sync.NewCircuitBreakerClient(rest, sync.CircuitBreakerConfig{
		MinRequests:  cfg.API.BreakerMinRequests,
		FailureRatio: cfg.API.BreakerFailureRatio,
		Timeout:      cfg.API.BreakerTimeout,
	})
	poller := sync.NewPoller(client, chatStore, center, sync.PollerConfig{
		NotificationsInterval: cfg.Poll.NotificationsInterval,
		MessagesInterval:      cfg.Poll.MessagesInterval,
		RefreshInterval:       cfg.Poll.RefreshInterval,
		RefreshBurst:          cfg.Poll.RefreshBurst,
		RequestTimeout:        cfg.API.Timeout,
	})
	messenger := notify.NewMessenger(client, chatStore)

	hubs := make([]api.HubController, 0, len(a.managers))
	for _, m := range a.managers {
		hubs = append(hubs, m)
	}
	handler := api.NewHandler(api.Deps{
		Hubs:        hubs,
		Store:       chatStore,
		Center:      center,
		Poller:      poller,
		Messenger:   messenger,
		Tokens:      tokens,
		Credentials: creds,

		Live:           live,
		AllowedOrigins: cfg.Server.CORSOrigins,
	})
	limits := api.Limits{
		Origins:  cfg.Server.CORSOrigins,
		Requests: cfg.Server.RateLimitReqs,
		Window:   cfg.Server.RateLimitWindow,
	}
	if cfg.Server.RateLimitDisabled {
		limits.Requests = 0
	}
	a.handler = api.NewRouter(handler, limits).SetupChi()

	a.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       60 * time.Second,
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		FailureThreshold: cfg.Supervisor.FailureThreshold,
		FailureDecay:     cfg.Supervisor.FailureDecay,
		FailureBackoff:   cfg.Supervisor.FailureBackoff,
		ShutdownTimeout:  cfg.Supervisor.ShutdownTimeout,
	})
	if err != nil {
		_ = persister.Close()
		return nil, fmt.Errorf("create supervisor tree: %w", err)
	}
	for _, m := range a.managers {
		tree.AddTransportService(services.NewHubService(m, creds, tokens.Present))
	}
	tree.AddSyncService(services.NewPollerService(poller))
	tree.AddSyncService(services.NewPersistService(chatStore, persister, cfg.Store.PersistInterval))
	tree.AddAPIService(services.NewLiveEventsService(live))
	tree.AddAPIService(services.NewHTTPServerService(a.server, cfg.Supervisor.ShutdownTimeout))
	a.tree = tree

	return a, nil
}

func newManager(cfg *config.Config, name, path string, policy retry.Policy) *hub.Manager {
	return hub.NewManager(name, hub.NewHubConnector(cfg.ConnectorConfig(path)), policy,
		hub.WithNegotiateTimeout(cfg.Hub.NegotiateTimeout),
		hub.WithKeepAliveInterval(cfg.Hub.KeepAliveInterval),
		hub.WithServerTimeout(cfg.Hub.ServerTimeout),
	)
}

// close releases the managers and the database. Call it after the tree
// has stopped so the persister's final save has run.
func (a *app) close() {
	for _, detach := range a.detach {
		detach()
	}
	for _, m := range a.managers {
		m.Close()
	}
	if err := a.persister.Close(); err != nil {
		logging.Error().Err(err).Msg("Error closing chat store database")
	}
}
