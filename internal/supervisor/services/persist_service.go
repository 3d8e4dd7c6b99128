// LoanDesk - Vehicle Financing Origination Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loandesk

package services

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/loandesk/internal/logging"
	"github.com/tomtom215/loandesk/internal/metrics"
	"github.com/tomtom215/loandesk/internal/store"
)

// SnapshotSource is the part of *store.Store the persister reads.
type SnapshotSource interface {
	Snapshot() store.Snapshot
	Revision() uint64
}

// SnapshotSaver writes snapshots. store.Persister satisfies it.
type SnapshotSaver interface {
	Save(ctx context.Context, snap store.Snapshot) error
}

const (
	// DefaultPersistInterval is how often the store is checked for changes.
	DefaultPersistInterval = 30 * time.Second

	// DefaultPersistTimeout bounds a single save, including the final one.
	DefaultPersistTimeout = 10 * time.Second
)

// PersistService saves the chat store periodically while it changes and
// once more on shutdown.
type PersistService struct {
	source   SnapshotSource
	saver    SnapshotSaver
	interval time.Duration
	timeout  time.Duration

	// Accessed only from Serve; suture never runs two Serve calls of the
	// same service at once.
	savedRevision uint64
}

// NewPersistService creates the service. The store's current revision is
// treated as already saved, so a freshly restored store is not rewritten.
func NewPersistService(source SnapshotSource, saver SnapshotSaver, interval time.Duration) *PersistService {
	if interval <= 0 {
		interval = DefaultPersistInterval
	}
	return &PersistService{
		source:        source,
		saver:         saver,
		interval:      interval,
		timeout:       DefaultPersistTimeout,
		savedRevision: source.Revision(),
	}
}

// Serve implements suture.Service.
func (s *PersistService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.saveIfChanged(ctx); err != nil {
				logging.Warn().Err(err).Msg("Failed to persist chat store")
			}
		case <-ctx.Done():
			// ctx is canceled; the final save gets its own deadline.
			finalCtx, cancel := context.WithTimeout(context.Background(), s.timeout)
			err := s.saveIfChanged(finalCtx)
			cancel()
			if err != nil {
				logging.Error().Err(err).Msg("Failed to persist chat store on shutdown")
			}
			return ctx.Err()
		}
	}
}

func (s *PersistService) saveIfChanged(ctx context.Context) error {
	rev := s.source.Revision()
	if rev == s.savedRevision {
		return nil
	}

	saveCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	err := s.saver.Save(saveCtx, s.source.Snapshot())
	metrics.RecordPersist(time.Since(start), err)
	if err != nil {
		return fmt.Errorf("save snapshot at revision %d: %w", rev, err)
	}
	s.savedRevision = rev
	logging.Debug().Uint64("revision", rev).Msg("Chat store persisted")
	return nil
}

// String names the service in suture events.
func (s *PersistService) String() string {
	return "store-persister"
}
