// LoanDesk - Vehicle Financing Origination Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loandesk

// Package dispatch provides an in-process publish/subscribe registry used to
// fan hub events, store changes and UI side effects out to subscribers.
//
// Subscription ids come from a strictly monotonic counter, so two callbacks
// registered in the same instant never collide. Each callback runs in
// isolation: a panicking subscriber is recovered, logged and counted, and the
// remaining subscribers still receive the event.
package dispatch

import (
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/tomtom215/loandesk/internal/logging"
	"github.com/tomtom215/loandesk/internal/metrics"
)

// Handler receives dispatched events.
type Handler[T any] func(T)

// Registry fans events of type T out to subscribed handlers.
// The zero value is not usable; call NewRegistry.
type Registry[T any] struct {
	name   string
	nextID atomic.Uint64

	mu       sync.RWMutex
	handlers map[uint64]Handler[T]
}

// NewRegistry creates an empty registry. The name labels log lines and metrics.
func NewRegistry[T any](name string) *Registry[T] {
	return &Registry[T]{
		name:     name,
		handlers: make(map[uint64]Handler[T]),
	}
}

// Name returns the registry's label.
func (r *Registry[T]) Name() string {
	return r.name
}

// Subscribe registers fn and returns a function that removes exactly this
// subscription. The returned function is safe to call more than once.
func (r *Registry[T]) Subscribe(fn Handler[T]) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}
	id := r.nextID.Add(1)

	r.mu.Lock()
	r.handlers[id] = fn
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.handlers, id)
			r.mu.Unlock()
		})
	}
}

// Dispatch invokes every registered handler with ev and returns the number of
// handlers that completed without panicking.
//
// Handlers run on the caller's goroutine, outside the registry lock, in
// subscription order. A handler removed while the dispatch is in progress is
// not invoked after its removal.
func (r *Registry[T]) Dispatch(ev T) int {
	r.mu.RLock()
	ids := make([]uint64, 0, len(r.handlers))
	for id := range r.handlers {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	slices.Sort(ids)

	delivered := 0
	for _, id := range ids {
		r.mu.RLock()
		fn, ok := r.handlers[id]
		r.mu.RUnlock()
		if !ok {
			continue
		}
		if r.invoke(id, fn, ev) {
			delivered++
		}
	}

	if delivered > 0 {
		metrics.DispatchDeliveries.WithLabelValues(r.name).Add(float64(delivered))
	}
	return delivered
}

func (r *Registry[T]) invoke(id uint64, fn Handler[T], ev T) (ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			ok = false
			metrics.DispatchHandlerPanics.WithLabelValues(r.name).Inc()
			logging.Error().
				Str("registry", r.name).
				Uint64("subscription_id", id).
				Str("panic", fmt.Sprint(rec)).
				Msg("Subscriber panicked during dispatch")
		}
	}()
	fn(ev)
	return true
}

// Len returns the number of active subscriptions.
func (r *Registry[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handlers)
}

// Clear removes every subscription. Unsubscribe functions handed out earlier
// become no-ops.
func (r *Registry[T]) Clear() {
	r.mu.Lock()
	clear(r.handlers)
	r.mu.Unlock()
}
