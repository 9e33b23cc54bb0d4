package services

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/hunyoung529/onepick/internal/docstore"
)

// Subscription is a live listener on one document. Callbacks run serially
// on a single goroutine and must not call Unsubscribe themselves.
type Subscription struct {
	it docstore.Iterator

	mu      sync.Mutex // held across each callback
	stopped bool

	once    sync.Once
	done    chan struct{}
	err     error
}

// subscribe delivers the current state before returning, then pumps
// every later state into onChange until Unsubscribe.
func subscribe[T any](it docstore.Iterator, decode func(*docstore.Snapshot) T, onChange func(T), logger *slog.Logger) (*Subscription, error) {
	snap, err := it.Next()
	if err != nil {
		it.Stop()
		return nil, err
	}
	onChange(decode(snap))

	sub := &Subscription{it: it, done: make(chan struct{})}
	go func() {
		defer close(sub.done)
		for {
			snap, err := it.Next()
			if err != nil {
				if !errors.Is(err, docstore.ErrDone) {
					sub.err = err
					logger.Warn("subscription ended", "error", err)
				}
				return
			}
			if !sub.deliver(func() { onChange(decode(snap)) }) {
				return
			}
		}
	}()
	return sub, nil
}

func (s *Subscription) deliver(fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false
	}
	fn()
	return true
}

// Unsubscribe stops delivery and releases the listener. A callback already
// running finishes first; none starts after Unsubscribe returns. It is safe
// to call more than once.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.mu.Lock()
		s.stopped = true
		s.mu.Unlock()
		s.it.Stop()
	})
}

// Done is closed when the subscription stops delivering.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Err returns the error that ended the subscription, if any. Valid after
// Done is closed.
func (s *Subscription) Err() error {
	<-s.done
	return s.err
}
