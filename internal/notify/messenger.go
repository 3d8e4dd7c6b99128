// LoanDesk - Vehicle Financing Origination Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loandesk

package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/loandesk/internal/logging"
	"github.com/tomtom215/loandesk/internal/models"
	"github.com/tomtom215/loandesk/internal/store"
	"github.com/tomtom215/loandesk/internal/validation"
)

// MessageSender posts chat messages to the REST API.
type MessageSender interface {
	SendMessage(ctx context.Context, req models.SendMessageRequest) (models.ChatMessage, error)
}

// Messenger is the send-message path.
type Messenger struct {
	sender MessageSender
	store  *store.Store
	now    func() time.Time
}

// NewMessenger creates a Messenger posting through sender and recording
// echoes in s.
func NewMessenger(sender MessageSender, s *store.Store) *Messenger {
	return &Messenger{sender: sender, store: s, now: time.Now}
}

// Send validates req, posts it and inserts the echoed message into the store
// marked read. A missing ClientID is filled with a fresh uuid so retried
// posts are idempotent on the server.
//
// When the echo carries no server id the message is stored as a pending
// placeholder keyed by the ClientID. The store swaps it for the server's
// copy once a poll or push delivers that copy.
//
// Validation failures are returned as *validation.RequestValidationError.
func (m *Messenger) Send(ctx context.Context, req models.SendMessageRequest) (models.ChatMessage, error) {
	req.Content = strings.TrimSpace(req.Content)
	if req.ClientID == "" {
		req.ClientID = uuid.NewString()
	}
	if verr := validation.ValidateStruct(req); verr != nil {
		return models.ChatMessage{}, verr
	}

	echo, err := m.sender.SendMessage(ctx, req)
	if err != nil {
		return models.ChatMessage{}, fmt.Errorf("send message to %s: %w", req.ConversationID, err)
	}

	if echo.ClientID == "" {
		echo.ClientID = req.ClientID
	}
	if echo.ID == "" {
		echo.ID = req.ClientID
		echo.Pending = true
	}
	if echo.ConversationID == "" {
		echo.ConversationID = req.ConversationID
	}
	if echo.ReceiverID == "" {
		echo.ReceiverID = req.ReceiverID
	}
	if echo.Content == "" {
		echo.Content = req.Content
	}
	if echo.SentAt.IsZero() {
		echo.SentAt = m.now().UTC()
	}
	// own messages never count as unread
	echo.IsRead = true

	if !m.store.AddMessage(echo) {
		logging.Debug().Str("room", echo.ConversationID).Str("message_id", echo.ID).Msg("Sent message already in store")
	}
	return echo, nil
}
