// LoanDesk - Vehicle Financing Origination Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loandesk

package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// ParticipantType identifies which parties share a conversation about a loan request.
type ParticipantType string

const (
	// ParticipantsClientDealership is the room between the applicant and the dealership.
	ParticipantsClientDealership ParticipantType = "client_dealership"

	// ParticipantsDealershipStaff is the room between the dealership and the financing staff.
	ParticipantsDealershipStaff ParticipantType = "dealership_staff"
)

// RoomKey derives the conversation key for an entity (loan request) and a participant pairing.
func RoomKey(entityID string, participants ParticipantType) string {
	return fmt.Sprintf("%s:%s", strings.TrimSpace(entityID), participants)
}

// ChatMessage is a single message in a conversation.
type ChatMessage struct {
	ID             string    `json:"id"`
	Content        string    `json:"content"`
	ConversationID string    `json:"conversationId"`
	SenderID       string    `json:"senderId"`
	SenderName     string    `json:"senderName,omitempty"`
	ReceiverID     string    `json:"receiverId"`
	ReceiverName   string    `json:"receiverName,omitempty"`
	SentAt         time.Time `json:"sentAt"`
	IsRead         bool      `json:"isRead"`

	// ClientID is the clientMessageId the sender attached, when known.
	ClientID string `json:"clientMessageId,omitempty"`

	// Pending marks a locally sent message the server has not yet returned
	// with its own id. Its ID is the ClientID until then.
	Pending bool `json:"pending,omitempty"`
}

// RoomID returns the key of the room the message belongs to.
func (m *ChatMessage) RoomID() string {
	return m.ConversationID
}

// chatMessageWire accepts every field spelling the server uses.
type chatMessageWire struct {
	ID             any    `json:"id"`
	Content        string `json:"content"`
	ConversationID any    `json:"conversationId"`
	SenderID       any    `json:"senderId"`
	SenderUserID   any    `json:"senderUserId"`
	SenderName     string `json:"senderName"`
	ReceiverID     any    `json:"receiverId"`
	ReceiverUserID any    `json:"receiverUserId"`
	ReceiverName   string `json:"receiverName"`
	SentAt         string `json:"sentAt"`
	CreatedAt      string `json:"createdAt"`
	IsRead         bool   `json:"isRead"`
	ClientID       string `json:"clientMessageId"`
	Pending        bool   `json:"pending"`
}

// UnmarshalJSON decodes a chat message from any of the server's spellings.
func (m *ChatMessage) UnmarshalJSON(data []byte) error {
	var w chatMessageWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	stamp := w.SentAt
	if stamp == "" {
		stamp = w.CreatedAt
	}
	sentAt, err := ParseTimestamp(stamp)
	if err != nil {
		return fmt.Errorf("chat message %v: %w", w.ID, err)
	}

	*m = ChatMessage{
		ID:             idString(w.ID),
		Content:        w.Content,
		ConversationID: idString(w.ConversationID),
		SenderID:       firstNonEmpty(idString(w.SenderID), idString(w.SenderUserID)),
		SenderName:     w.SenderName,
		ReceiverID:     firstNonEmpty(idString(w.ReceiverID), idString(w.ReceiverUserID)),
		ReceiverName:   w.ReceiverName,
		SentAt:         sentAt,
		IsRead:         w.IsRead,
		ClientID:       w.ClientID,
		Pending:        w.Pending,
	}
	return nil
}

// SendMessageRequest is the body of the send-message REST call.
type SendMessageRequest struct {
	ConversationID string `json:"conversationId" validate:"required,max=200"`
	ReceiverID     string `json:"receiverId" validate:"required,max=100"`
	Content        string `json:"content" validate:"required,max=4000"`
	ClientID       string `json:"clientMessageId,omitempty" validate:"omitempty,uuid"`
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
