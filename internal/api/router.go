// LoanDesk - Vehicle Financing Origination Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loandesk

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router wires the Handler into a chi router.
type Router struct {
	handler  *Handler
	limits   Limits
	gatherer prometheus.Gatherer
}

// NewRouter creates a Router applying limits to every API route.
func NewRouter(handler *Handler, limits Limits) *Router {
	return &Router{
		handler:  handler,
		limits:   limits,
		gatherer: prometheus.DefaultGatherer,
	}
}

// SetupChi builds the HTTP handler.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	r.Use(correlate, chimiddleware.Recoverer, router.limits.cors())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(router.limits.rateLimit(), noStore, instrument)

		r.Get("/status", router.handler.Status)
		r.Get("/unread", router.handler.Unread)

		r.Put("/credentials", router.handler.SetCredentials)
		r.Delete("/credentials", router.handler.ClearCredentials)
		r.Post("/hubs/{name}/reconnect", router.handler.ReconnectHub)

		r.Route("/rooms/{roomID}", func(r chi.Router) {
			r.Get("/messages", router.handler.RoomMessages)
			r.Post("/messages", router.handler.SendRoomMessage)
			r.Post("/read", router.handler.MarkRoomRead)
			r.Delete("/", router.handler.ClearRoom)
		})

		r.Get("/notifications", router.handler.Notifications)
		r.Post("/notifications/read", router.handler.MarkNotificationsRead)
		r.Post("/refresh", router.handler.Refresh)

		r.Get("/events/ws", router.handler.LiveEvents)
	})

	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(router.gatherer, promhttp.HandlerOpts{}))

	return r
}
