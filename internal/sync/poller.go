// LoanDesk - Vehicle Financing Origination Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loandesk

package sync

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/tomtom215/loandesk/internal/hub"
	"github.com/tomtom215/loandesk/internal/logging"
	"github.com/tomtom215/loandesk/internal/metrics"
	"github.com/tomtom215/loandesk/internal/notify"
	"github.com/tomtom215/loandesk/internal/store"
)

// Poller label values.
const (
	pollerNotifications = "notifications"
	pollerMessages      = "messages"
)

// PollerConfig configures the REST poll path. Zero values take defaults.
type PollerConfig struct {
	NotificationsInterval time.Duration
	MessagesInterval      time.Duration
	// RefreshInterval is the minimum spacing of Refresh-triggered refetches.
	RefreshInterval time.Duration
	RefreshBurst    int
	RequestTimeout  time.Duration
}

// DefaultPollerConfig returns the default intervals.
func DefaultPollerConfig() PollerConfig {
	return PollerConfig{
		NotificationsInterval: 15 * time.Second,
		MessagesInterval:      10 * time.Second,
		RefreshInterval:       2 * time.Second,
		RefreshBurst:          1,
		RequestTimeout:        DefaultRequestTimeout,
	}
}

func (c PollerConfig) withDefaults() PollerConfig {
	d := DefaultPollerConfig()
	if c.NotificationsInterval <= 0 {
		c.NotificationsInterval = d.NotificationsInterval
	}
	if c.MessagesInterval <= 0 {
		c.MessagesInterval = d.MessagesInterval
	}
	if c.RefreshInterval <= 0 {
		c.RefreshInterval = d.RefreshInterval
	}
	if c.RefreshBurst <= 0 {
		c.RefreshBurst = d.RefreshBurst
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = d.RequestTimeout
	}
	return c
}

// Poller fetches authoritative REST snapshots on an interval and on demand
// and merges them into the store and the notification center.
//
// Hub pushes are fast but lossy across reconnects; the poller is the
// correction path. Two tickers run independently:
//   - notifications: the full list is reconciled into the Center, so read
//     state set elsewhere wins and anything missed while offline appears
//     without a toast
//   - messages: every room in the store, plus rooms registered with Watch,
//     is fetched and merged with Store.AddMessages
//
// Refresh triggers both immediately, at most once per RefreshInterval. A
// missing credential skips the run quietly, since the user is logged out.
// Other failures are logged and counted and the next tick tries again; a
// failing room never stops the others.
//
// Usage:
//
//	poller := sync.NewPoller(client, chatStore, center, sync.PollerConfig{
//	    NotificationsInterval: 30 * time.Second,
//	})
//	poller.Watch("LR-17:dealership_staff")
//	tree.AddSyncService(services.NewPollerService(poller))
type Poller struct {
	client APIClient
	store  *store.Store
	center *notify.Center
	config PollerConfig

	limiter *rate.Limiter
	refresh chan struct{}

	mu      sync.RWMutex
	watched map[string]struct{}
}

// NewPoller creates a poller.
func NewPoller(client APIClient, s *store.Store, c *notify.Center, cfg PollerConfig) *Poller {
	cfg = cfg.withDefaults()
	return &Poller{
		client:  client,
		store:   s,
		center:  c,
		config:  cfg,
		limiter: rate.NewLimiter(rate.Every(cfg.RefreshInterval), cfg.RefreshBurst),
		refresh: make(chan struct{}, 1),
		watched: make(map[string]struct{}),
	}
}

// Watch adds a room to every message poll, even before it holds messages.
func (p *Poller) Watch(roomID string) {
	if roomID == "" {
		return
	}
	p.mu.Lock()
	p.watched[roomID] = struct{}{}
	p.mu.Unlock()
}

// Unwatch removes an explicitly watched room. Rooms present in the store
// are still polled.
func (p *Poller) Unwatch(roomID string) {
	p.mu.Lock()
	delete(p.watched, roomID)
	p.mu.Unlock()
}

// Rooms returns the rooms the next message poll will fetch, sorted.
func (p *Poller) Rooms() []string {
	rooms := p.store.Rooms()
	p.mu.RLock()
	for id := range p.watched {
		if !slices.Contains(rooms, id) {
			rooms = append(rooms, id)
		}
	}
	p.mu.RUnlock()
	slices.Sort(rooms)
	return rooms
}

// Refresh requests an immediate refetch, the window-focus equivalent. It
// returns false when throttled.
func (p *Poller) Refresh() bool {
	if !p.limiter.Allow() {
		logging.Debug().Msg("Refresh throttled")
		return false
	}
	select {
	case p.refresh <- struct{}{}:
	default:
		// a refresh is already pending
	}
	return true
}

// Serve runs the poll loops until ctx is done.
func (p *Poller) Serve(ctx context.Context) error {
	logging.Info().
		Dur("notifications_interval", p.config.NotificationsInterval).
		Dur("messages_interval", p.config.MessagesInterval).
		Msg("Starting REST poller")

	p.runOnce(ctx)

	notifTicker := time.NewTicker(p.config.NotificationsInterval)
	defer notifTicker.Stop()
	msgTicker := time.NewTicker(p.config.MessagesInterval)
	defer msgTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Info().Msg("REST poller stopped")
			return ctx.Err()
		case <-notifTicker.C:
			p.logPollError(pollerNotifications, p.PollNotifications(ctx))
		case <-msgTicker.C:
			p.logPollError(pollerMessages, p.PollMessages(ctx))
		case <-p.refresh:
			p.runOnce(ctx)
		}
	}
}

func (p *Poller) runOnce(ctx context.Context) {
	p.logPollError(pollerNotifications, p.PollNotifications(ctx))
	p.logPollError(pollerMessages, p.PollMessages(ctx))
}

// PollNotifications fetches the notification list and reconciles it.
func (p *Poller) PollNotifications(ctx context.Context) error {
	start := time.Now()
	reqCtx, cancel := context.WithTimeout(ctx, p.config.RequestTimeout)
	defer cancel()

	list, err := p.client.ListNotifications(reqCtx)
	if skippable(err) {
		return err
	}
	metrics.RecordPoll(pollerNotifications, time.Since(start), err)
	if err != nil {
		return fmt.Errorf("list notifications: %w", err)
	}

	added := p.center.Reconcile(list)
	logging.Debug().Int("fetched", len(list)).Int("added", added).Msg("Notifications reconciled")
	return nil
}

// PollMessages fetches every polled room and merges the results. Errors
// from individual rooms are joined; one failing room does not stop the rest.
func (p *Poller) PollMessages(ctx context.Context) error {
	rooms := p.Rooms()
	if len(rooms) == 0 {
		return nil
	}

	start := time.Now()
	var errs []error
	for _, roomID := range rooms {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		reqCtx, cancel := context.WithTimeout(ctx, p.config.RequestTimeout)
		msgs, err := p.client.ListRoomMessages(reqCtx, roomID)
		cancel()
		if err != nil {
			if skippable(err) {
				return err
			}
			errs = append(errs, fmt.Errorf("room %s: %w", roomID, err))
			continue
		}
		if added := p.store.AddMessages(roomID, msgs); added > 0 {
			logging.Debug().Str("room", roomID).Int("added", added).Msg("Merged polled messages")
		}
	}

	err := errors.Join(errs...)
	metrics.RecordPoll(pollerMessages, time.Since(start), err)
	return err
}

// skippable reports errors that mean "nothing to poll yet" rather than a
// failed poll.
func skippable(err error) bool {
	return errors.Is(err, hub.ErrMissingCredential)
}

func (p *Poller) logPollError(poller string, err error) {
	switch {
	case err == nil:
	case skippable(err):
		logging.Debug().Str("poller", poller).Msg("Skipping poll without credential")
	case errors.Is(err, context.Canceled):
	default:
		logging.Warn().Str("poller", poller).Err(err).Msg("Poll failed")
	}
}
