// LoanDesk - Vehicle Financing Origination Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loandesk

package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
)

// ErrNoSnapshot is returned by Load when nothing has been persisted yet.
var ErrNoSnapshot = errors.New("no persisted snapshot")

const snapshotKeySuffix = ":chat-store"

// Persister reads and writes store snapshots.
type Persister interface {
	Load(ctx context.Context) (Snapshot, error)
	Save(ctx context.Context, snap Snapshot) error
	Close() error
}

// BadgerOptions configures a BadgerPersister.
type BadgerOptions struct {
	Path      string
	Namespace string
	InMemory  bool
}

// BadgerPersister stores the snapshot as JSON in BadgerDB under
// "{namespace}:chat-store".
type BadgerPersister struct {
	db  *badger.DB
	key []byte
}

// OpenBadger opens (or creates) the database described by opts.
func OpenBadger(opts BadgerOptions) (*BadgerPersister, error) {
	namespace := strings.TrimSpace(opts.Namespace)
	if namespace == "" {
		return nil, errors.New("store namespace is required")
	}

	var bopts badger.Options
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if opts.Path == "" {
			return nil, errors.New("store path is required unless in_memory is set")
		}
		bopts = badger.DefaultOptions(opts.Path)
	}
	bopts.Logger = nil // Suppress BadgerDB logs

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("open badger db for chat store: %w", err)
	}
	return NewBadgerPersister(db, namespace), nil
}

// NewBadgerPersister wraps an already open database.
func NewBadgerPersister(db *badger.DB, namespace string) *BadgerPersister {
	return &BadgerPersister{
		db:  db,
		key: []byte(namespace + snapshotKeySuffix),
	}
}

// Key returns the storage key used for the snapshot.
func (p *BadgerPersister) Key() string {
	return string(p.key)
}

// Load reads the persisted snapshot.
func (p *BadgerPersister) Load(ctx context.Context) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}

	var snap Snapshot
	err := p.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(p.key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNoSnapshot
		}
		if err != nil {
			return fmt.Errorf("get snapshot: %w", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &snap)
		})
	})
	if err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// Save writes snap, replacing any previous snapshot.
func (p *BadgerPersister) Save(ctx context.Context, snap Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	return p.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(p.key, data); err != nil {
			return fmt.Errorf("set snapshot: %w", err)
		}
		return nil
	})
}

// Close closes the underlying database.
func (p *BadgerPersister) Close() error {
	return p.db.Close()
}

// MemoryPersister keeps the snapshot in process memory.
type MemoryPersister struct {
	mu   sync.Mutex
	data []byte
}

// NewMemoryPersister creates an empty MemoryPersister.
func NewMemoryPersister() *MemoryPersister {
	return &MemoryPersister{}
}

// Load returns the last saved snapshot.
func (p *MemoryPersister) Load(ctx context.Context) (Snapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.data == nil {
		return Snapshot{}, ErrNoSnapshot
	}
	var snap Snapshot
	if err := json.Unmarshal(p.data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return snap, nil
}

// Save stores an encoded copy of snap.
func (p *MemoryPersister) Save(ctx context.Context, snap Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	p.mu.Lock()
	p.data = data
	p.mu.Unlock()
	return nil
}

// Close is a no-op.
func (p *MemoryPersister) Close() error { return nil }

// Restore loads the persisted snapshot into s. A missing snapshot leaves s
// empty and is not an error.
func Restore(ctx context.Context, s *Store, p Persister) error {
	snap, err := p.Load(ctx)
	if errors.Is(err, ErrNoSnapshot) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load chat store: %w", err)
	}
	s.Init(snap)
	return nil
}
