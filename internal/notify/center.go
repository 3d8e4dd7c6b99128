// LoanDesk - Vehicle Financing Origination Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loandesk

package notify

import (
	"slices"
	"sync"
	"time"

	"github.com/tomtom215/loandesk/internal/cache"
	"github.com/tomtom215/loandesk/internal/dispatch"
	"github.com/tomtom215/loandesk/internal/logging"
	"github.com/tomtom215/loandesk/internal/metrics"
	"github.com/tomtom215/loandesk/internal/models"
)

// LoanRequestsQuery is the query key invalidated by status-change notifications.
const LoanRequestsQuery = "loan-requests"

const (
	DefaultMaxNotifications = 200
	DefaultToastTTL         = 24 * time.Hour
)

// Invalidation asks cached views of Query to refetch. EntityID narrows the
// invalidation to one loan request when known.
type Invalidation struct {
	Query    string `json:"query"`
	EntityID string `json:"entityId,omitempty"`
}

// CenterConfig configures a Center. Zero values take defaults.
type CenterConfig struct {
	MaxNotifications int
	ToastTTL         time.Duration
}

// Center holds the notification list and unread badge.
type Center struct {
	mu     sync.RWMutex
	items  []models.Notification // newest first
	byID   map[string]int
	unread int
	limit  int

	toasted *cache.SeenSet

	toasts        *dispatch.Registry[models.Notification]
	badge         *dispatch.Registry[int]
	invalidations *dispatch.Registry[Invalidation]
}

// NewCenter creates an empty notification center.
func NewCenter(cfg CenterConfig) *Center {
	if cfg.MaxNotifications <= 0 {
		cfg.MaxNotifications = DefaultMaxNotifications
	}
	if cfg.ToastTTL <= 0 {
		cfg.ToastTTL = DefaultToastTTL
	}
	return &Center{
		byID:          make(map[string]int),
		limit:         cfg.MaxNotifications,
		toasted:       cache.NewSeenSet(cfg.MaxNotifications*4, cfg.ToastTTL),
		toasts:        dispatch.NewRegistry[models.Notification]("toasts"),
		badge:         dispatch.NewRegistry[int]("badge"),
		invalidations: dispatch.NewRegistry[Invalidation]("invalidations"),
	}
}

// OnToast subscribes to toast alerts.
func (c *Center) OnToast(fn func(models.Notification)) (unsubscribe func()) {
	return c.toasts.Subscribe(fn)
}

// OnBadge subscribes to unread badge changes. The argument is the new count.
func (c *Center) OnBadge(fn func(int)) (unsubscribe func()) {
	return c.badge.Subscribe(fn)
}

// OnInvalidate subscribes to query invalidations.
func (c *Center) OnInvalidate(fn func(Invalidation)) (unsubscribe func()) {
	return c.invalidations.Subscribe(fn)
}

// Push records a notification delivered over the hub. It returns false when
// the id is missing or already known. A new unread notification raises a
// toast once per id; a status change also invalidates the loan-requests query.
func (c *Center) Push(n models.Notification) bool {
	if n.ID == "" {
		logging.Warn().Str("title", n.Title).Msg("Dropping notification without id")
		return false
	}

	c.mu.Lock()
	if _, ok := c.byID[n.ID]; ok {
		c.mu.Unlock()
		return false
	}
	prevUnread := c.unread
	c.insertLocked(n)
	unread := c.unread
	c.mu.Unlock()

	metrics.NotificationsReceived.WithLabelValues("push", string(n.Type)).Inc()

	if !n.IsRead && !c.toasted.MarkSeen(n.ID) {
		metrics.NotificationToasts.Inc()
		c.toasts.Dispatch(n)
	}
	if n.Type == models.NotificationStatusChanged {
		c.invalidations.Dispatch(Invalidation{Query: LoanRequestsQuery, EntityID: n.RelatedEntityID})
	}
	if unread != prevUnread {
		c.badge.Dispatch(unread)
	}
	return true
}

// Reconcile merges a server notification list. Known ids take the server's
// copy, including its read state and timestamp; unknown ids are added
// without a toast. It returns the number
// of notifications added.
func (c *Center) Reconcile(list []models.Notification) int {
	added := 0

	c.mu.Lock()
	prevUnread := c.unread
	for _, n := range list {
		if n.ID == "" {
			continue
		}
		if i, ok := c.byID[n.ID]; ok {
			if c.items[i].CreatedAt.Equal(n.CreatedAt) {
				c.items[i] = n
				continue
			}
			// the server's timestamp moves it; re-insert to stay newest first
			c.items = slices.Delete(c.items, i, i+1)
			c.insertLocked(n)
			continue
		}
		c.insertLocked(n)
		added++
	}
	c.recountLocked()
	unread := c.unread
	c.mu.Unlock()

	for _, n := range list {
		if n.ID != "" {
			// a later push of the same id must not toast
			c.toasted.MarkSeen(n.ID)
			metrics.NotificationsReceived.WithLabelValues("reconcile", string(n.Type)).Inc()
		}
	}
	if unread != prevUnread {
		c.badge.Dispatch(unread)
	}
	return added
}

// MarkAllRead marks every notification read locally and returns how many
// changed.
func (c *Center) MarkAllRead() int {
	c.mu.Lock()
	changed := 0
	for i := range c.items {
		if !c.items[i].IsRead {
			c.items[i].IsRead = true
			changed++
		}
	}
	c.unread = 0
	c.mu.Unlock()

	if changed > 0 {
		c.badge.Dispatch(0)
	}
	return changed
}

// Notifications returns a copy of the list, newest first.
func (c *Center) Notifications() []models.Notification {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.items)
}

// Unread returns the badge count.
func (c *Center) Unread() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.unread
}

// Len returns the number of notifications held.
func (c *Center) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Clear drops every notification and toast record.
func (c *Center) Clear() {
	c.mu.Lock()
	changed := c.unread != 0
	c.items = nil
	c.byID = make(map[string]int)
	c.unread = 0
	c.mu.Unlock()

	c.toasted.Clear()
	if changed {
		c.badge.Dispatch(0)
	}
}

// insertLocked places n by CreatedAt (newest first), trims to the limit and
// rebuilds the index.
func (c *Center) insertLocked(n models.Notification) {
	i, _ := slices.BinarySearchFunc(c.items, n, func(a, b models.Notification) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	c.items = slices.Insert(c.items, i, n)
	if len(c.items) > c.limit {
		c.items = c.items[:c.limit]
	}
	c.recountLocked()
}

func (c *Center) recountLocked() {
	clear(c.byID)
	c.unread = 0
	for i, n := range c.items {
		c.byID[n.ID] = i
		if !n.IsRead {
			c.unread++
		}
	}
}
