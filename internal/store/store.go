// LoanDesk - Vehicle Financing Origination Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loandesk

// Package store is the client-side chat state: messages grouped by room,
// per-room unread counters and the global unread aggregate.
//
// Messages arrive through two paths, hub push and REST poll, and frequently
// both deliver the same message. Every ingestion operation is idempotent by
// message id, so feeding the same data twice never duplicates a message or
// double-counts it as unread.
//
// A message sent from this client whose server echo carried no id is kept
// as a pending placeholder under its client id. The first server copy that
// matches it, by clientMessageId or else by receiver and content, replaces
// the placeholder instead of sitting next to it, and stays read.
//
// Invariants after every operation:
//   - the total unread count equals the sum of the per-room counts
//   - messages within a room are ordered by SentAt ascending
//   - a message id appears at most once per room
package store

import (
	"slices"
	"sort"
	"sync"

	"github.com/tomtom215/loandesk/internal/dispatch"
	"github.com/tomtom215/loandesk/internal/logging"
	"github.com/tomtom215/loandesk/internal/metrics"
	"github.com/tomtom215/loandesk/internal/models"
)

// DefaultMaxMessagesPerRoom bounds how many messages per room are persisted.
const DefaultMaxMessagesPerRoom = 50

// ChangeKind identifies the operation that produced a Change.
type ChangeKind string

const (
	ChangeMessageAdded  ChangeKind = "message_added"
	ChangeMessagesMerge ChangeKind = "messages_merged"
	ChangeRoomRead      ChangeKind = "room_read"
	ChangeRoomCleared   ChangeKind = "room_cleared"
	ChangeAllCleared    ChangeKind = "all_cleared"
	ChangeInitialized   ChangeKind = "initialized"
)

// Change is published after every mutation that altered state.
type Change struct {
	Kind        ChangeKind
	RoomID      string
	Added       int
	RoomUnread  int
	TotalUnread int
}

type room struct {
	messages []models.ChatMessage
	ids      map[string]struct{}
	unread   int
}

func newRoom() *room {
	return &room{ids: make(map[string]struct{})}
}

// Store holds chat state for one client session.
//
// Writers are the hub router (AddMessage, one pushed message at a time) and
// the REST poller (AddMessages, a room's authoritative list). Both may carry
// the same message; the id index per room makes the second copy a no-op.
// Readers are the local API and the persistence service, which snapshots
// the store whenever Revision has moved.
//
// Subscribers registered with OnChange are called after the lock is
// released, so a handler may read the store again.
//
// Usage:
//
//	s := store.New(store.WithMaxMessagesPerRoom(100))
//	unsubscribe := s.OnChange(func(c store.Change) {
//	    logging.Debug().Str("room", c.RoomID).Int("unread", c.TotalUnread).Msg(string(c.Kind))
//	})
//	defer unsubscribe()
//
// Store is safe for concurrent use.
type Store struct {
	mu         sync.RWMutex
	rooms      map[string]*room
	total      int
	revision   uint64
	maxPerRoom int

	changes *dispatch.Registry[Change]
}

// Option configures a Store.
type Option func(*Store)

// WithMaxMessagesPerRoom overrides the persisted per-room cap.
func WithMaxMessagesPerRoom(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxPerRoom = n
		}
	}
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		rooms:      make(map[string]*room),
		maxPerRoom: DefaultMaxMessagesPerRoom,
		changes:    dispatch.NewRegistry[Change]("store_changes"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OnChange subscribes to state changes.
func (s *Store) OnChange(fn func(Change)) (unsubscribe func()) {
	return s.changes.Subscribe(fn)
}

// AddMessage inserts msg into the room named by its ConversationID.
// It returns false when the message was already present or has no room.
func (s *Store) AddMessage(msg models.ChatMessage) bool {
	roomID := msg.RoomID()
	if roomID == "" || msg.ID == "" {
		logging.Warn().
			Str("message_id", msg.ID).
			Str("room_id", roomID).
			Msg("Dropping chat message without id or conversation")
		return false
	}

	s.mu.Lock()
	r := s.roomLocked(roomID)
	if _, dup := r.ids[msg.ID]; dup || (msg.Pending && r.confirmed(msg.ID)) {
		s.mu.Unlock()
		return false
	}
	if r.claimPending(msg) {
		msg.IsRead = true
	}
	r.insertSorted(msg)
	if !msg.IsRead {
		r.unread++
	}
	change := s.commitLocked(ChangeMessageAdded, roomID, 1)
	s.mu.Unlock()

	s.changes.Dispatch(change)
	return true
}

// AddMessages merges a batch into roomID. Messages already present, or
// repeated within the batch, are skipped. Only newly inserted unread messages
// raise the room's unread count. It returns the number inserted; a server
// copy that replaces a pending placeholder is not counted.
func (s *Store) AddMessages(roomID string, msgs []models.ChatMessage) int {
	if roomID == "" || len(msgs) == 0 {
		return 0
	}

	s.mu.Lock()
	r := s.roomLocked(roomID)
	added, replaced := 0, 0
	for _, msg := range msgs {
		if msg.ID == "" {
			continue
		}
		if _, dup := r.ids[msg.ID]; dup {
			continue
		}
		if msg.ConversationID == "" {
			msg.ConversationID = roomID
		}
		if r.claimPending(msg) {
			msg.IsRead = true
			replaced++
		} else {
			added++
		}
		r.ids[msg.ID] = struct{}{}
		r.messages = append(r.messages, msg)
		if !msg.IsRead {
			r.unread++
		}
	}
	if added+replaced == 0 {
		if len(r.messages) == 0 && r.unread == 0 {
			delete(s.rooms, roomID)
		}
		s.mu.Unlock()
		return 0
	}
	r.sort()
	change := s.commitLocked(ChangeMessagesMerge, roomID, added)
	s.mu.Unlock()

	s.changes.Dispatch(change)
	return added
}

// MarkRoomAsRead marks every stored message in roomID as read and zeroes its
// counter. It is a no-op, returning false, when the room has nothing unread.
func (s *Store) MarkRoomAsRead(roomID string) bool {
	s.mu.Lock()
	r, ok := s.rooms[roomID]
	if !ok || r.unread == 0 {
		s.mu.Unlock()
		return false
	}
	for i := range r.messages {
		r.messages[i].IsRead = true
	}
	r.unread = 0
	change := s.commitLocked(ChangeRoomRead, roomID, 0)
	s.mu.Unlock()

	s.changes.Dispatch(change)
	return true
}

// ClearRoom removes a room's messages and unread counter.
func (s *Store) ClearRoom(roomID string) bool {
	s.mu.Lock()
	if _, ok := s.rooms[roomID]; !ok {
		s.mu.Unlock()
		return false
	}
	delete(s.rooms, roomID)
	change := s.commitLocked(ChangeRoomCleared, roomID, 0)
	s.mu.Unlock()

	s.changes.Dispatch(change)
	return true
}

// ClearAll removes every room.
func (s *Store) ClearAll() {
	s.mu.Lock()
	clear(s.rooms)
	change := s.commitLocked(ChangeAllCleared, "", 0)
	s.mu.Unlock()

	s.changes.Dispatch(change)
}

// Messages returns a copy of roomID's messages in ascending send order.
func (s *Store) Messages(roomID string) []models.ChatMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rooms[roomID]
	if !ok {
		return nil
	}
	return slices.Clone(r.messages)
}

// UnreadCount returns roomID's unread counter.
func (s *Store) UnreadCount(roomID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if r, ok := s.rooms[roomID]; ok {
		return r.unread
	}
	return 0
}

// TotalUnread returns the global unread aggregate.
func (s *Store) TotalUnread() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.total
}

// UnreadByRoom returns a copy of the non-zero per-room counters.
func (s *Store) UnreadByRoom() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]int, len(s.rooms))
	for id, r := range s.rooms {
		if r.unread > 0 {
			out[id] = r.unread
		}
	}
	return out
}

// Rooms returns the ids of every known room, sorted.
func (s *Store) Rooms() []string {
	s.mu.RLock()
	ids := make([]string, 0, len(s.rooms))
	for id := range s.rooms {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

// Revision increases on every mutation. Persistence uses it to skip
// unchanged snapshots.
func (s *Store) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision
}

func (s *Store) roomLocked(roomID string) *room {
	r, ok := s.rooms[roomID]
	if !ok {
		r = newRoom()
		s.rooms[roomID] = r
	}
	return r
}

// commitLocked recomputes the aggregate, bumps the revision and builds the
// change event. Callers hold s.mu.
func (s *Store) commitLocked(kind ChangeKind, roomID string, added int) Change {
	total, messages := 0, 0
	for _, r := range s.rooms {
		total += r.unread
		messages += len(r.messages)
	}
	s.total = total
	s.revision++
	metrics.UpdateStoreGauges(len(s.rooms), messages, total)

	change := Change{Kind: kind, RoomID: roomID, Added: added, TotalUnread: total}
	if r, ok := s.rooms[roomID]; ok {
		change.RoomUnread = r.unread
	}
	return change
}

// insertSorted places msg after every message with SentAt <= msg.SentAt.
func (r *room) insertSorted(msg models.ChatMessage) {
	idx := sort.Search(len(r.messages), func(i int) bool {
		return r.messages[i].SentAt.After(msg.SentAt)
	})
	r.messages = slices.Insert(r.messages, idx, msg)
	r.ids[msg.ID] = struct{}{}
}

// claimPending removes the pending placeholder msg confirms and reports
// whether there was one. With a client id only an exact match counts;
// without one the oldest placeholder to the same receiver with the same
// content is taken.
func (r *room) claimPending(msg models.ChatMessage) bool {
	if msg.Pending {
		return false
	}
	idx := slices.IndexFunc(r.messages, func(m models.ChatMessage) bool {
		if !m.Pending {
			return false
		}
		if msg.ClientID != "" {
			return m.ID == msg.ClientID
		}
		return m.Content == msg.Content && (msg.ReceiverID == "" || m.ReceiverID == msg.ReceiverID)
	})
	if idx < 0 {
		return false
	}
	delete(r.ids, r.messages[idx].ID)
	r.messages = slices.Delete(r.messages, idx, idx+1)
	return true
}

// confirmed reports whether a server copy carrying clientID is already
// stored, so a late placeholder for it would be a duplicate.
func (r *room) confirmed(clientID string) bool {
	return slices.ContainsFunc(r.messages, func(m models.ChatMessage) bool {
		return !m.Pending && m.ClientID == clientID
	})
}

func (r *room) sort() {
	slices.SortStableFunc(r.messages, func(a, b models.ChatMessage) int {
		return a.SentAt.Compare(b.SentAt)
	})
}
