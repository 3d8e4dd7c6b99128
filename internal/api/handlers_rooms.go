// LoanDesk - Vehicle Financing Origination Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loandesk

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/loandesk/internal/models"
	"github.com/tomtom215/loandesk/internal/validation"
)

// RoomMessagesResponse is returned by GET /api/v1/rooms/{roomID}/messages.
type RoomMessagesResponse struct {
	RoomID   string               `json:"room_id"`
	Unread   int                  `json:"unread"`
	Messages []models.ChatMessage `json:"messages"`
}

// RoomActionResponse reports whether a room operation changed anything.
type RoomActionResponse struct {
	RoomID  string `json:"room_id"`
	Changed bool   `json:"changed"`
}

// sendMessageBody is the body of POST /api/v1/rooms/{roomID}/messages. The
// conversation comes from the path.
type sendMessageBody struct {
	ReceiverID string `json:"receiverId"`
	Content    string `json:"content"`
	ClientID   string `json:"clientMessageId,omitempty"`
}

// roomParam returns the validated {roomID} path parameter. On failure the
// response is already written.
func roomParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	roomID := chi.URLParam(r, "roomID")
	if verr := validation.ValidateVar("roomID", roomID, "notblank,max=200"); verr != nil {
		respondValidationError(w, verr)
		return "", false
	}
	return roomID, true
}

// RoomMessages returns a room's messages oldest first. Reading a room also
// adds it to the poller's watched set.
func (h *Handler) RoomMessages(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	roomID, ok := roomParam(w, r)
	if !ok {
		return
	}

	h.poller.Watch(roomID)
	msgs := h.store.Messages(roomID)
	if msgs == nil {
		msgs = []models.ChatMessage{}
	}
	respondOK(w, start, RoomMessagesResponse{
		RoomID:   roomID,
		Unread:   h.store.UnreadCount(roomID),
		Messages: msgs,
	})
}

// SendRoomMessage posts a chat message to the room.
func (h *Handler) SendRoomMessage(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	roomID, ok := roomParam(w, r)
	if !ok {
		return
	}

	var body sendMessageBody
	if err := decodeJSON(r, &body); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body", err)
		return
	}

	msg, err := h.messenger.Send(r.Context(), models.SendMessageRequest{
		ConversationID: roomID,
		ReceiverID:     body.ReceiverID,
		Content:        body.Content,
		ClientID:       body.ClientID,
	})
	if err != nil {
		respondUpstreamError(w, err)
		return
	}
	h.poller.Watch(roomID)

	respondJSON(w, http.StatusCreated, &models.APIResponse{
		Status: "success",
		Data:   msg,
		Metadata: models.Metadata{
			Timestamp:   time.Now(),
			QueryTimeMS: time.Since(start).Milliseconds(),
		},
	})
}

// MarkRoomRead zeroes the room's unread counter. Read state is local: the
// server is not told.
func (h *Handler) MarkRoomRead(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	roomID, ok := roomParam(w, r)
	if !ok {
		return
	}
	respondOK(w, start, RoomActionResponse{
		RoomID:  roomID,
		Changed: h.store.MarkRoomAsRead(roomID),
	})
}

// ClearRoom drops the room's messages and stops polling it.
func (h *Handler) ClearRoom(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	roomID, ok := roomParam(w, r)
	if !ok {
		return
	}
	h.poller.Unwatch(roomID)
	respondOK(w, start, RoomActionResponse{
		RoomID:  roomID,
		Changed: h.store.ClearRoom(roomID),
	})
}
