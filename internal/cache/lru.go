// LoanDesk - Vehicle Financing Origination Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loandesk

package cache

import (
	"sync"
	"time"
)

type seenEntry struct {
	key       string
	prev      *seenEntry
	next      *seenEntry
	expiresAt time.Time
}

// SeenSet is a thread-safe LRU set of keys with a TTL.
//
// Lookups and inserts are O(1). When the set is full the least recently
// touched key is evicted. Expired keys are dropped lazily on access or by
// CleanupExpired.
type SeenSet struct {
	mu sync.Mutex

	capacity int
	ttl      time.Duration
	now      func() time.Time

	items map[string]*seenEntry
	// head.next is the most recently used, tail.prev the least.
	head *seenEntry
	tail *seenEntry

	hits   int64
	misses int64
}

// NewSeenSet creates a set holding at most capacity keys for ttl each.
func NewSeenSet(capacity int, ttl time.Duration) *SeenSet {
	if capacity <= 0 {
		capacity = 1000
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	s := &SeenSet{
		capacity: capacity,
		ttl:      ttl,
		now:      time.Now,
		items:    make(map[string]*seenEntry, capacity),
		head:     &seenEntry{},
		tail:     &seenEntry{},
	}
	s.head.next = s.tail
	s.tail.prev = s.head
	return s
}

// MarkSeen records key and reports whether it was already present and live.
// A repeated key has its TTL refreshed.
func (s *SeenSet) MarkSeen(key string) (alreadySeen bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if e, ok := s.items[key]; ok {
		live := !now.After(e.expiresAt)
		e.expiresAt = now.Add(s.ttl)
		s.unlink(e)
		s.pushFront(e)
		if live {
			s.hits++
			return true
		}
		s.misses++
		return false
	}

	e := &seenEntry{key: key, expiresAt: now.Add(s.ttl)}
	s.pushFront(e)
	s.items[key] = e
	for len(s.items) > s.capacity {
		s.remove(s.tail.prev)
	}
	s.misses++
	return false
}

// Seen reports whether key is present and live without touching its order.
func (s *SeenSet) Seen(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.items[key]
	return ok && !s.now().After(e.expiresAt)
}

// Forget removes key.
func (s *SeenSet) Forget(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.items[key]; ok {
		s.remove(e)
		return true
	}
	return false
}

// Len returns the number of keys held, expired or not.
func (s *SeenSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Clear drops every key.
func (s *SeenSet) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make(map[string]*seenEntry, s.capacity)
	s.head.next = s.tail
	s.tail.prev = s.head
}

// CleanupExpired removes expired keys and returns how many were removed.
func (s *SeenSet) CleanupExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for e := s.tail.prev; e != s.head; {
		prev := e.prev
		if now.After(e.expiresAt) {
			s.remove(e)
			removed++
		}
		e = prev
	}
	return removed
}

// Stats returns hit/miss counters and the current size.
func (s *SeenSet) Stats() (hits, misses int64, size int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits, s.misses, len(s.items)
}

func (s *SeenSet) pushFront(e *seenEntry) {
	e.prev = s.head
	e.next = s.head.next
	s.head.next.prev = e
	s.head.next = e
}

func (s *SeenSet) unlink(e *seenEntry) {
	e.prev.next = e.next
	e.next.prev = e.prev
}

func (s *SeenSet) remove(e *seenEntry) {
	if e == s.head || e == s.tail {
		return
	}
	s.unlink(e)
	delete(s.items, e.key)
}
