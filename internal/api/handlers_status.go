// LoanDesk - Vehicle Financing Origination Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loandesk

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/loandesk/internal/models"
)

// Status returns both hub statuses and the unread totals.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	respondOK(w, start, models.StatusResponse{
		Hubs:                h.hubStatuses(),
		TotalUnread:         h.store.TotalUnread(),
		NotificationsUnread: h.center.Unread(),
		Credentials:         h.tokens.Present(),
	})
}

// Unread returns per-room and total unread counts.
func (h *Handler) Unread(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	respondOK(w, start, models.UnreadResponse{
		Total:  h.store.TotalUnread(),
		ByRoom: h.store.UnreadByRoom(),
	})
}
