// LoanDesk - Vehicle Financing Origination Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loandesk

package api

import (
	"context"
	"errors"
	"net/http"
	gosync "sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/loandesk/internal/hub"
	"github.com/tomtom215/loandesk/internal/logging"
	"github.com/tomtom215/loandesk/internal/models"
	"github.com/tomtom215/loandesk/internal/validation"
)

// SetCredentials stores a new bearer token and restarts both hubs with it.
// The request waits for the hubs up to the start wait; hubs still
// connecting keep going in the background.
func (h *Handler) SetCredentials(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req models.CredentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body", err)
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		respondValidationError(w, verr)
		return
	}

	h.tokens.Set(req.AccessToken)
	logging.Ctx(r.Context()).Info().Int("hubs", len(h.hubs)).Msg("Access credential set; restarting hubs")

	errs := h.restartHubs(r.Context(), h.hubs...)
	if rejected(errs) {
		respondUpstreamError(w, errors.Join(errs...))
		return
	}
	h.poller.Refresh()

	respondOK(w, start, models.StatusResponse{
		Hubs:                h.hubStatuses(),
		TotalUnread:         h.store.TotalUnread(),
		NotificationsUnread: h.center.Unread(),
		Credentials:         h.tokens.Present(),
	})
}

// ClearCredentials is logout: the token is dropped and both hubs stop.
// With ?clear=true the local chat store and notification list are emptied.
func (h *Handler) ClearCredentials(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	h.tokens.Clear()
	for _, c := range h.hubs {
		c.Stop()
	}
	if r.URL.Query().Get("clear") == "true" {
		h.store.ClearAll()
		h.center.Clear()
	}
	logging.Ctx(r.Context()).Info().Msg("Access credential cleared; hubs stopped")

	respondOK(w, start, models.StatusResponse{
		Hubs:                h.hubStatuses(),
		TotalUnread:         h.store.TotalUnread(),
		NotificationsUnread: h.center.Unread(),
		Credentials:         false,
	})
}

// ReconnectHub restarts one hub, typically after its retries were exhausted.
func (h *Handler) ReconnectHub(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	name := chi.URLParam(r, "name")
	c := h.findHub(name)
	if c == nil {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Unknown hub: "+sanitizeLogValue(name), nil)
		return
	}
	if !h.tokens.Present() {
		respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "No access credential; log in first", nil)
		return
	}

	errs := h.restartHubs(r.Context(), c)
	if rejected(errs) {
		respondUpstreamError(w, errs[0])
		return
	}
	respondOK(w, start, hubStatus(c.Status()))
}

// restartHubs stops and starts each hub concurrently. The returned slice
// holds only real failures: a hub still connecting when the wait ends is
// not one.
func (h *Handler) restartHubs(ctx context.Context, hubs ...HubController) []error {
	ctx, cancel := context.WithTimeout(ctx, h.startWait)
	defer cancel()

	var (
		mu   gosync.Mutex
		errs []error
		wg   gosync.WaitGroup
	)
	for _, c := range hubs {
		wg.Add(1)
		go func(c HubController) {
			defer wg.Done()
			c.Stop()
			err := c.Start(ctx, h.creds)
			if err == nil || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
				return
			}
			logging.Ctx(ctx).Warn().Err(err).Str("hub", c.Name()).Msg("Hub did not start")
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
		}(c)
	}
	wg.Wait()
	return errs
}

// rejected reports whether any hub failed permanently because of the
// credential or its retries ran out.
func rejected(errs []error) bool {
	for _, err := range errs {
		if errors.Is(err, hub.ErrCredentialExpired) ||
			errors.Is(err, hub.ErrMissingCredential) ||
			errors.Is(err, hub.ErrUnauthorized) ||
			errors.Is(err, hub.ErrRetriesExhausted) {
			return true
		}
	}
	return false
}
