// LoanDesk - Vehicle Financing Origination Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loandesk

package notify

import (
	"strings"

	"github.com/goccy/go-json"

	"github.com/tomtom215/loandesk/internal/classify"
	"github.com/tomtom215/loandesk/internal/dispatch"
	"github.com/tomtom215/loandesk/internal/hub"
	"github.com/tomtom215/loandesk/internal/logging"
	"github.com/tomtom215/loandesk/internal/metrics"
	"github.com/tomtom215/loandesk/internal/models"
	"github.com/tomtom215/loandesk/internal/store"
)

// Default hub method names carrying unified events.
const (
	DefaultNotificationTarget = "ReceiveNotification"
	DefaultChatTarget         = "ReceiveMessage"
)

// InvocationSource is implemented by hub.Manager.
type InvocationSource interface {
	OnInvocation(fn func(hub.Invocation)) (unsubscribe func())
}

// RouterConfig names the hub targets the router listens to.
type RouterConfig struct {
	Targets []string
}

// Router classifies hub payloads and routes them to the store or the center.
//
// Only invocations whose target is in RouterConfig.Targets are considered.
// Each argument is classified on its own: chat messages go to the store, and
// those the store had not seen also go to OnChatMessage subscribers; notifications go to the Center, and
// unclassifiable payloads are logged, counted and dropped without affecting
// the rest of the invocation.
//
// One Router serves both hubs, so a chat message pushed through the
// notification hub still lands in the right room.
//
// Usage:
//
//	router := notify.NewRouter(chatStore, center, notify.RouterConfig{})
//	detachNotifications := router.Attach(notificationHub)
//	detachChat := router.Attach(chatHub)
type Router struct {
	store   *store.Store
	center  *Center
	targets map[string]bool
	chat    *dispatch.Registry[models.ChatMessage]
}

// NewRouter creates a router. Target matching is case-insensitive.
func NewRouter(s *store.Store, c *Center, cfg RouterConfig) *Router {
	targets := cfg.Targets
	if len(targets) == 0 {
		targets = []string{DefaultNotificationTarget, DefaultChatTarget}
	}
	r := &Router{
		store:   s,
		center:  c,
		targets: make(map[string]bool, len(targets)),
		chat:    dispatch.NewRegistry[models.ChatMessage]("chat"),
	}
	for _, t := range targets {
		r.targets[strings.ToLower(t)] = true
	}
	return r
}

// Attach subscribes the router to src and returns the unsubscribe function.
func (r *Router) Attach(src InvocationSource) (detach func()) {
	return src.OnInvocation(r.Handle)
}

// OnChatMessage subscribes to chat messages newly added to the store.
func (r *Router) OnChatMessage(fn func(models.ChatMessage)) (unsubscribe func()) {
	return r.chat.Subscribe(fn)
}

// Handle routes every argument of a matching invocation.
func (r *Router) Handle(inv hub.Invocation) {
	if !r.targets[strings.ToLower(inv.Target)] {
		logging.Debug().Str("hub", inv.Hub).Str("target", inv.Target).Msg("Ignoring hub invocation for unknown target")
		return
	}
	for _, arg := range inv.Arguments {
		r.Route(inv.Hub, arg)
	}
}

// Route classifies one payload and delivers it. It returns the kind it was
// classified as.
func (r *Router) Route(source string, raw []byte) classify.Kind {
	kind := classify.Classify(raw)
	switch kind {
	case classify.Chat:
		var msg models.ChatMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			logging.Warn().Str("hub", source).Err(err).Msg("Failed to decode chat message")
			return classify.Unknown
		}
		if r.store.AddMessage(msg) {
			r.chat.Dispatch(msg)
		}
	case classify.StatusChange, classify.System:
		var n models.Notification
		if err := json.Unmarshal(raw, &n); err != nil {
			logging.Warn().Str("hub", source).Err(err).Msg("Failed to decode notification")
			return classify.Unknown
		}
		r.center.Push(n)
	default:
		metrics.NotificationsUnclassified.Inc()
		logging.Warn().Str("hub", source).Int("bytes", len(raw)).Msg("Dropping unclassified hub payload")
	}
	return kind
}
