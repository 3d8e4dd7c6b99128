// LoanDesk - Vehicle Financing Origination Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loandesk

// Package retry holds the bounded reconnection policy shared by the hub
// connections.
//
// A Policy has two modes:
//   - manual: the n-th retry waits RetryInterval*n
//   - scheduled: the n-th retry waits Schedule[n-1], clamped to the last entry
//
// Both modes stop after MaxRetryCount retries. A Policy is immutable; the
// attempt counter lives in the BackOff returned by NewBackOff so each
// connection tracks its own progress.
package retry

import (
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Default values for the notification and chat connections.
const (
	DefaultMaxRetryCount = 3
	DefaultRetryInterval = 5 * time.Second
)

// DefaultChatSchedule is the scheduled-mode delay table for the chat hub.
var DefaultChatSchedule = []time.Duration{
	0,
	2 * time.Second,
	5 * time.Second,
	10 * time.Second,
	20 * time.Second,
	30 * time.Second,
}

// Policy describes when and how often a failed connection is retried.
type Policy struct {
	MaxRetryCount int             `koanf:"max_retry_count"`
	RetryInterval time.Duration   `koanf:"retry_interval"`
	Schedule      []time.Duration `koanf:"schedule"`
}

// NotificationPolicy returns the manual-mode default.
func NotificationPolicy() Policy {
	return Policy{
		MaxRetryCount: DefaultMaxRetryCount,
		RetryInterval: DefaultRetryInterval,
	}
}

// ChatPolicy returns the scheduled-mode default.
func ChatPolicy() Policy {
	return Policy{
		MaxRetryCount: DefaultMaxRetryCount,
		RetryInterval: DefaultRetryInterval,
		Schedule:      append([]time.Duration(nil), DefaultChatSchedule...),
	}
}

// Validate checks the policy parameters.
func (p Policy) Validate() error {
	if p.MaxRetryCount < 0 {
		return fmt.Errorf("max_retry_count must be >= 0, got %d", p.MaxRetryCount)
	}
	if len(p.Schedule) == 0 && p.RetryInterval <= 0 && p.MaxRetryCount > 0 {
		return errors.New("retry_interval must be positive when no schedule is configured")
	}
	for i, d := range p.Schedule {
		if d < 0 {
			return fmt.Errorf("schedule[%d] must be >= 0, got %s", i, d)
		}
	}
	return nil
}

// Scheduled reports whether the policy uses the delay table.
func (p Policy) Scheduled() bool {
	return len(p.Schedule) > 0
}

// Delay returns the wait before the given 1-based retry attempt. ok is false
// once attempt exceeds MaxRetryCount, meaning no further retry is allowed.
func (p Policy) Delay(attempt int) (delay time.Duration, ok bool) {
	if attempt < 1 || attempt > p.MaxRetryCount {
		return 0, false
	}
	if p.Scheduled() {
		idx := attempt - 1
		if idx >= len(p.Schedule) {
			idx = len(p.Schedule) - 1
		}
		return p.Schedule[idx], true
	}
	return p.RetryInterval * time.Duration(attempt), true
}

// NewBackOff returns a fresh attempt counter driven by the policy.
func (p Policy) NewBackOff() *BackOff {
	return &BackOff{policy: p}
}

// BackOff adapts a Policy to backoff.BackOff. It is not safe for concurrent use.
type BackOff struct {
	policy  Policy
	attempt int
}

var _ backoff.BackOff = (*BackOff)(nil)

// NextBackOff advances the attempt counter and returns the delay, or
// backoff.Stop once the policy is exhausted.
func (b *BackOff) NextBackOff() time.Duration {
	if b.attempt > b.policy.MaxRetryCount {
		return backoff.Stop
	}
	b.attempt++
	delay, ok := b.policy.Delay(b.attempt)
	if !ok {
		return backoff.Stop
	}
	return delay
}

// Reset zeroes the attempt counter. Called after a successful connection.
func (b *BackOff) Reset() {
	b.attempt = 0
}

// Attempt returns the number of retries handed out since the last Reset.
// Once exhausted it reports MaxRetryCount.
func (b *BackOff) Attempt() int {
	if b.attempt > b.policy.MaxRetryCount {
		return b.policy.MaxRetryCount
	}
	return b.attempt
}
