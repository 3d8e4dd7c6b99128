// LoanDesk - Vehicle Financing Origination Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loandesk

package websocket

import (
	"context"
	"sort"
	"sync"

	"github.com/goccy/go-json"

	"github.com/tomtom215/loandesk/internal/logging"
	"github.com/tomtom215/loandesk/internal/metrics"
	"github.com/tomtom215/loandesk/internal/models"
	"github.com/tomtom215/loandesk/internal/notify"
)

// ShutdownReason identifies why the hub stopped.
type ShutdownReason string

const (
	// ShutdownReasonContextCanceled is the normal shutdown path.
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"

	// ShutdownReasonContextDeadline means the parent context timed out.
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// Message types sent to dashboard clients.
const (
	MessageTypeToast       = "toast"
	MessageTypeBadge       = "badge"
	MessageTypeInvalidate  = "invalidate"
	MessageTypeChatMessage = "chat_message"
	MessageTypePing        = "ping"
	MessageTypePong        = "pong"
)

// Message is one frame on the live-events socket.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// BadgeData carries the unread notification count.
type BadgeData struct {
	Unread int `json:"unread"`
}

// Hub fans live events out to every connected dashboard client.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan Message
	Register   chan *Client
	Unregister chan *Client
	mu         sync.RWMutex
}

// NewHub creates a Hub. Call RunWithContext to start it.
func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan Message, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
	}
}

// RunWithContext processes registrations and broadcasts until ctx is done,
// then closes every client and returns ctx.Err().
//
// Shutdown is checked first, then client lifecycle events, then broadcasts,
// so a client registered before a broadcast always receives it.
func (h *Hub) RunWithContext(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()
		default:
		}

		select {
		case client := <-h.Register:
			h.addClient(client)
			continue
		case client := <-h.Unregister:
			h.removeClient(client)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()
		case client := <-h.Register:
			h.addClient(client)
		case client := <-h.Unregister:
			h.removeClient(client)
		case message := <-h.broadcast:
			h.broadcastToClients(message)
		}
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	total := len(h.clients)
	h.mu.Unlock()
	metrics.LiveEventsClients.Inc()
	logging.Info().Int("total_clients", total).Msg("Live events client connected")
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
		metrics.LiveEventsClients.Dec()
	}
	total := len(h.clients)
	h.mu.Unlock()
	logging.Info().Int("total_clients", total).Msg("Live events client disconnected")
}

func (h *Hub) logGracefulShutdown(ctx context.Context) {
	count := h.GetClientCount()
	h.closeAllClients()

	logging.Info().
		Str("component", "live-events").
		Str("reason", string(getShutdownReason(ctx))).
		Int("clients_closed", count).
		Msg("Live events hub stopped")
}

func getShutdownReason(ctx context.Context) ShutdownReason {
	if ctx.Err() == context.DeadlineExceeded {
		return ShutdownReasonContextDeadline
	}
	return ShutdownReasonContextCanceled
}

// sortedClients returns clients in registration order. Caller holds h.mu.
func (h *Hub) sortedClients() []*Client {
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})
	return clients
}

// broadcastToClients delivers message to every client. A client whose send
// buffer is full is dropped; the dashboard reconnects and refetches.
func (h *Hub) broadcastToClients(message Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var slow []*Client
	for _, client := range h.sortedClients() {
		select {
		case client.send <- message:
		default:
			slow = append(slow, client)
		}
	}
	for _, client := range slow {
		close(client.send)
		delete(h.clients, client)
		metrics.LiveEventsClients.Dec()
	}
	if len(slow) > 0 {
		metrics.LiveEventsDropped.WithLabelValues("slow_client").Add(float64(len(slow)))
		logging.Warn().Int("dropped", len(slow)).Msg("Dropped slow live events clients")
	}
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, client := range h.sortedClients() {
		close(client.send)
		delete(h.clients, client)
		metrics.LiveEventsClients.Dec()
	}
}

// GetClientCount returns the number of connected clients.
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// BroadcastJSON queues a message for all clients. It never blocks; when the
// queue is full the message is dropped.
func (h *Hub) BroadcastJSON(messageType string, data interface{}) {
	select {
	case h.broadcast <- Message{Type: messageType, Data: data}:
	default:
		metrics.LiveEventsDropped.WithLabelValues("queue_full").Inc()
		logging.Warn().Str("message_type", messageType).Msg("Broadcast channel full, dropping live event")
	}
}

// BroadcastToast announces a newly surfaced notification.
func (h *Hub) BroadcastToast(n models.Notification) {
	h.BroadcastJSON(MessageTypeToast, n)
}

// BroadcastBadge publishes the unread notification count.
func (h *Hub) BroadcastBadge(unread int) {
	h.BroadcastJSON(MessageTypeBadge, BadgeData{Unread: unread})
}

// BroadcastInvalidation tells dashboards to refetch a cached query.
func (h *Hub) BroadcastInvalidation(inv notify.Invalidation) {
	h.BroadcastJSON(MessageTypeInvalidate, inv)
}

// BroadcastChatMessage forwards a chat message delivered by a hub.
func (h *Hub) BroadcastChatMessage(msg models.ChatMessage) {
	h.BroadcastJSON(MessageTypeChatMessage, msg)
}

// EventSource is the part of *notify.Center the hub listens to.
type EventSource interface {
	OnToast(fn func(models.Notification)) (unsubscribe func())
	OnBadge(fn func(int)) (unsubscribe func())
	OnInvalidate(fn func(notify.Invalidation)) (unsubscribe func())
}

// ChatSource is the part of *notify.Router the hub listens to.
type ChatSource interface {
	OnChatMessage(fn func(models.ChatMessage)) (unsubscribe func())
}

// Subscribe forwards events from events and chat to the hub's clients.
// Either source may be nil. The returned func removes every subscription.
func (h *Hub) Subscribe(events EventSource, chat ChatSource) (detach func()) {
	var unsubs []func()
	if events != nil {
		unsubs = append(unsubs,
			events.OnToast(h.BroadcastToast),
			events.OnBadge(h.BroadcastBadge),
			events.OnInvalidate(h.BroadcastInvalidation),
		)
	}
	if chat != nil {
		unsubs = append(unsubs, chat.OnChatMessage(h.BroadcastChatMessage))
	}
	return func() {
		for _, unsub := range unsubs {
			unsub()
		}
	}
}

// MarshalMessage encodes msg as JSON.
func MarshalMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}
