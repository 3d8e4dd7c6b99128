// LoanDesk - Vehicle Financing Origination Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loandesk

package store

import (
	"slices"
	"time"

	"github.com/tomtom215/loandesk/internal/logging"
	"github.com/tomtom215/loandesk/internal/models"
)

// SnapshotVersion is bumped when the persisted layout changes.
const SnapshotVersion = 1

// Snapshot is the persisted form of the store.
type Snapshot struct {
	Version           int                             `json:"version"`
	SavedAt           time.Time                       `json:"savedAt"`
	MessagesByRoom    map[string][]models.ChatMessage `json:"messagesByRoom"`
	UnreadCountByRoom map[string]int                  `json:"unreadCountByRoom"`
	TotalUnreadCount  int                             `json:"totalUnreadCount"`
}

// Snapshot captures the current state with each room truncated to its most
// recent messages. In-memory state is not truncated.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		Version:           SnapshotVersion,
		SavedAt:           time.Now().UTC(),
		MessagesByRoom:    make(map[string][]models.ChatMessage, len(s.rooms)),
		UnreadCountByRoom: make(map[string]int, len(s.rooms)),
		TotalUnreadCount:  s.total,
	}
	for id, r := range s.rooms {
		msgs := r.messages
		if len(msgs) > s.maxPerRoom {
			msgs = msgs[len(msgs)-s.maxPerRoom:]
		}
		snap.MessagesByRoom[id] = slices.Clone(msgs)
		snap.UnreadCountByRoom[id] = r.unread
	}
	return snap
}

// Init replaces the store's state with snap. Messages are deduplicated and
// re-sorted, negative counters are clamped to zero and the aggregate is
// recomputed from the per-room counters rather than trusted.
func (s *Store) Init(snap Snapshot) {
	rooms := make(map[string]*room, len(snap.MessagesByRoom))

	for id, msgs := range snap.MessagesByRoom {
		if id == "" {
			continue
		}
		r := newRoom()
		for _, msg := range msgs {
			if msg.ID == "" {
				continue
			}
			if _, dup := r.ids[msg.ID]; dup {
				continue
			}
			if msg.ConversationID == "" {
				msg.ConversationID = id
			}
			r.ids[msg.ID] = struct{}{}
			r.messages = append(r.messages, msg)
		}
		r.sort()
		rooms[id] = r
	}
	for id, n := range snap.UnreadCountByRoom {
		if id == "" || n <= 0 {
			continue
		}
		r, ok := rooms[id]
		if !ok {
			r = newRoom()
			rooms[id] = r
		}
		r.unread = n
	}

	s.mu.Lock()
	s.rooms = rooms
	change := s.commitLocked(ChangeInitialized, "", 0)
	s.mu.Unlock()

	if change.TotalUnread != snap.TotalUnreadCount {
		logging.Warn().
			Int("persisted_total", snap.TotalUnreadCount).
			Int("recomputed_total", change.TotalUnread).
			Msg("Persisted unread total disagreed with room counters; using recomputed value")
	}

	s.changes.Dispatch(change)
}
