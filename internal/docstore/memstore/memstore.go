// Package memstore is an in-process docstore.Store. Every document carries
// a version; a transaction records the versions it read and its commit
// fails with docstore.ErrConflict if any of them moved, after which the
// body is re-run.
package memstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hunyoung529/onepick/internal/docstore"
)

type entry struct {
	exists     bool
	data       docstore.Data
	version    uint64
	updateTime time.Time
}

// Store keeps documents in memory. The zero value is not usable; call New.
type Store struct {
	mu          sync.Mutex
	docs        map[docstore.Path]*entry
	clock       uint64
	listeners   map[docstore.Path]map[*listener]struct{}
	now         func() time.Time
	maxAttempts int
	closed      bool

	// commitHook runs inside commit before validation; tests use it to
	// interleave a competing write.
	commitHook func()
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now as the commit clock.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithMaxAttempts sets how many times a conflicting transaction is tried.
func WithMaxAttempts(n int) Option {
	return func(s *Store) { s.maxAttempts = n }
}

// New returns an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		docs:        make(map[docstore.Path]*entry),
		listeners:   make(map[docstore.Path]map[*listener]struct{}),
		now:         time.Now,
		maxAttempts: docstore.DefaultMaxAttempts,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Store) snapshotLocked(p docstore.Path) (*docstore.Snapshot, uint64) {
	e, ok := s.docs[p]
	if !ok || !e.exists {
		var v uint64
		if ok {
			v = e.version
		}
		return &docstore.Snapshot{Path: p}, v
	}
	return &docstore.Snapshot{
		Path:       p,
		Exists:     true,
		Data:       e.data.Clone(),
		UpdateTime: e.updateTime,
	}, e.version
}

// Get implements docstore.Store.
func (s *Store) Get(ctx context.Context, p docstore.Path) (*docstore.Snapshot, error) {
	if err := p.ValidateDocument(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, docstore.ErrClosed
	}
	snap, _ := s.snapshotLocked(p)
	return snap, nil
}

// Set implements docstore.Store as a single-write transaction.
func (s *Store) Set(ctx context.Context, p docstore.Path, data docstore.Data, opts ...docstore.SetOption) error {
	return s.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		return tx.Set(p, data, opts...)
	})
}

// Delete implements docstore.Store.
func (s *Store) Delete(ctx context.Context, p docstore.Path) error {
	return s.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		return tx.Delete(p)
	})
}

// Query implements docstore.Store.
func (s *Store) Query(ctx context.Context, q docstore.Query) ([]*docstore.Snapshot, error) {
	if err := q.Collection.ValidateCollection(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, docstore.ErrClosed
	}
	var docs []*docstore.Snapshot
	for p, e := range s.docs {
		if !e.exists || p.Parent() != q.Collection {
			continue
		}
		snap, _ := s.snapshotLocked(p)
		docs = append(docs, snap)
	}
	return q.Apply(docs), nil
}

// RunTransaction implements docstore.Store.
func (s *Store) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx docstore.Tx) error) error {
	return docstore.RunWithRetry(ctx, s.maxAttempts, func(ctx context.Context) error {
		t := &tx{store: s, reads: make(map[docstore.Path]uint64)}
		if err := fn(ctx, t); err != nil {
			return err
		}
		return s.commit(t)
	})
}

// Close stops every listener. Later calls fail with docstore.ErrClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	s.closed = true
	var all []*listener
	for _, ls := range s.listeners {
		for l := range ls {
			all = append(all, l)
		}
	}
	s.mu.Unlock()
	for _, l := range all {
		l.Stop()
	}
	return nil
}

type write struct {
	path   docstore.Path
	data   docstore.Data
	merge  bool
	delete bool
}

func (s *Store) commit(t *tx) error {
	s.mu.Lock()
	if s.commitHook != nil {
		hook := s.commitHook
		s.commitHook = nil
		s.mu.Unlock()
		hook()
		s.mu.Lock()
	}
	if s.closed {
		s.mu.Unlock()
		return docstore.ErrClosed
	}

	for p, v := range t.reads {
		var cur uint64
		if e, ok := s.docs[p]; ok {
			cur = e.version
		}
		if cur != v {
			s.mu.Unlock()
			return docstore.ErrConflict
		}
	}

	now := s.now().UTC()
	changed := make(map[docstore.Path]struct{}, len(t.writes))
	for _, w := range t.writes {
		s.clock++
		e, ok := s.docs[w.path]
		if !ok {
			e = &entry{}
			s.docs[w.path] = e
		}
		if w.delete {
			e.exists = false
			e.data = nil
		} else {
			var existing docstore.Data
			if e.exists {
				existing = e.data
			}
			e.data = docstore.Apply(existing, w.data, w.merge, now)
			e.exists = true
			e.updateTime = now
		}
		e.version = s.clock
		changed[w.path] = struct{}{}
	}

	var notify []*listener
	for p := range changed {
		for l := range s.listeners[p] {
			notify = append(notify, l)
		}
	}
	s.mu.Unlock()

	for _, l := range notify {
		l.signal()
	}
	return nil
}

type tx struct {
	store  *Store
	reads  map[docstore.Path]uint64
	writes []write
}

func (t *tx) Get(p docstore.Path) (*docstore.Snapshot, error) {
	if len(t.writes) > 0 {
		return nil, docstore.ErrReadAfterWrite
	}
	if err := p.ValidateDocument(); err != nil {
		return nil, err
	}
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	snap, v := t.store.snapshotLocked(p)
	if prev, ok := t.reads[p]; ok && prev != v {
		return nil, docstore.ErrConflict
	}
	t.reads[p] = v
	return snap, nil
}

func (t *tx) Set(p docstore.Path, data docstore.Data, opts ...docstore.SetOption) error {
	if err := p.ValidateDocument(); err != nil {
		return err
	}
	norm, err := docstore.Normalize(data)
	if err != nil {
		return fmt.Errorf("memstore: set %s: %w", p, err)
	}
	t.writes = append(t.writes, write{path: p, data: norm, merge: docstore.IsMerge(opts)})
	return nil
}

func (t *tx) Delete(p docstore.Path) error {
	if err := p.ValidateDocument(); err != nil {
		return err
	}
	t.writes = append(t.writes, write{path: p, delete: true})
	return nil
}
