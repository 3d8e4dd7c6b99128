// LoanDesk - Vehicle Financing Origination Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loandesk

package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/loandesk/internal/logging"
	ws "github.com/tomtom215/loandesk/internal/websocket"
)

// LiveEvents upgrades to the live-events socket. The first frame is the
// current badge count; toasts, invalidations and chat messages follow as
// they happen.
func (h *Handler) LiveEvents(w http.ResponseWriter, r *http.Request) {
	if h.live == nil {
		respondError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Live events are not enabled", nil)
		return
	}

	upgrader := h.getUpgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		logging.Ctx(r.Context()).Warn().Err(err).Msg("Live events upgrade failed")
		return
	}

	client := ws.NewClient(h.live, conn)
	client.Enqueue(ws.Message{Type: ws.MessageTypeBadge, Data: ws.BadgeData{Unread: h.center.Unread()}})

	timer := time.NewTimer(liveRegisterTimeout)
	defer timer.Stop()
	select {
	case h.live.Register <- client:
		client.Start()
	case <-timer.C:
		logging.Ctx(r.Context()).Warn().Msg("Live events hub not running; closing connection")
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "live events unavailable"),
			time.Now().Add(time.Second))
		_ = conn.Close()
	}
}

// liveRegisterTimeout bounds the wait for the hub loop to accept a client.
const liveRegisterTimeout = 5 * time.Second

func (h *Handler) getUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		CheckOrigin:      h.checkWebSocketOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
}

// checkWebSocketOrigin accepts browser origins from the allow list. A
// missing Origin header is rejected since browsers always send one.
func (h *Handler) checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		logging.Warn().Msg("Live events connection rejected: missing Origin header")
		return false
	}
	for _, allowed := range h.origins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	logging.Warn().Str("origin", sanitizeLogValue(origin)).Msg("Live events connection rejected from unauthorized origin")
	return false
}
