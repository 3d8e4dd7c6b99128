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

// NotificationsResponse is returned by GET /api/v1/notifications.
type NotificationsResponse struct {
	Unread        int                   `json:"unread"`
	Notifications []models.Notification `json:"notifications"`
}

// MarkReadResponse reports how many notifications changed.
type MarkReadResponse struct {
	Marked int `json:"marked"`
}

// RefreshResponse reports whether a refetch was scheduled or throttled.
type RefreshResponse struct {
	Scheduled bool `json:"scheduled"`
}

// Notifications returns the notification list, newest first, and the badge.
func (h *Handler) Notifications(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	list := h.center.Notifications()
	if list == nil {
		list = []models.Notification{}
	}
	respondOK(w, start, NotificationsResponse{
		Unread:        h.center.Unread(),
		Notifications: list,
	})
}

// MarkNotificationsRead marks every notification read locally.
func (h *Handler) MarkNotificationsRead(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	respondOK(w, start, MarkReadResponse{Marked: h.center.MarkAllRead()})
}

// Refresh is the window-focus refetch. It is throttled by the poller; a
// throttled call still answers 202 with scheduled=false.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	scheduled := h.poller.Refresh()
	respondJSON(w, http.StatusAccepted, &models.APIResponse{
		Status:   "success",
		Data:     RefreshResponse{Scheduled: scheduled},
		Metadata: models.Metadata{Timestamp: time.Now()},
	})
}
