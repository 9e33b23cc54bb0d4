package memstore

import (
	"context"
	"sync"

	"github.com/hunyoung529/onepick/internal/docstore"
)

// listener coalesces change signals: Next always returns the latest state,
// so a slow reader skips intermediate versions rather than blocking writers.
type listener struct {
	store    *Store
	path     docstore.Path
	ctx      context.Context
	notify   chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	started  bool
}

// Listen implements docstore.Store.
func (s *Store) Listen(ctx context.Context, p docstore.Path) (docstore.Iterator, error) {
	if err := p.ValidateDocument(); err != nil {
		return nil, err
	}
	l := &listener{
		store:  s,
		path:   p,
		ctx:    ctx,
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, docstore.ErrClosed
	}
	if s.listeners[p] == nil {
		s.listeners[p] = make(map[*listener]struct{})
	}
	s.listeners[p][l] = struct{}{}
	return l, nil
}

func (l *listener) signal() {
	select {
	case l.notify <- struct{}{}:
	default:
	}
}

func (l *listener) Next() (*docstore.Snapshot, error) {
	select {
	case <-l.done:
		return nil, docstore.ErrDone
	case <-l.ctx.Done():
		l.Stop()
		return nil, docstore.ErrDone
	default:
	}

	if l.started {
		select {
		case <-l.notify:
		case <-l.done:
			return nil, docstore.ErrDone
		case <-l.ctx.Done():
			l.Stop()
			return nil, docstore.ErrDone
		}
	}
	l.started = true

	l.store.mu.Lock()
	snap, _ := l.store.snapshotLocked(l.path)
	l.store.mu.Unlock()
	return snap, nil
}

func (l *listener) Stop() {
	l.stopOnce.Do(func() {
		close(l.done)
		l.store.mu.Lock()
		delete(l.store.listeners[l.path], l)
		if len(l.store.listeners[l.path]) == 0 {
			delete(l.store.listeners, l.path)
		}
		l.store.mu.Unlock()
	})
}
