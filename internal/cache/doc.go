// LoanDesk - Vehicle Financing Origination Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loandesk

/*
Package cache provides the bounded, expiring seen-set used to suppress
repeated side effects for ids that were already handled.

The notification center marks each notification id it raises a toast for.
Hub redeliveries after a reconnect and REST reconciliation then find the id
already seen and stay quiet.

# SeenSet

  - Thread-safe (sync.Mutex; every lookup also updates recency)
  - Capacity bound with least-recently-used eviction
  - Per-key TTL, checked lazily on access
  - CleanupExpired for periodic sweeps
  - Hit and miss counters via Stats

Example:

	seen := cache.NewSeenSet(1000, 24*time.Hour)
	if !seen.MarkSeen(n.ID) {
	    showToast(n)
	}
*/
package cache
