package redisstore

import (
	"context"
	"sync"

	"github.com/hunyoung529/onepick/internal/docstore"
	"github.com/redis/go-redis/v9"
)

type listener struct {
	store   *Store
	path    docstore.Path
	ps      *redis.PubSub
	ch      <-chan *redis.Message
	ctx     context.Context
	cancel  context.CancelFunc
	once    sync.Once
	started bool
}

// Listen implements docstore.Store. The subscription is confirmed before
// the first read so no write between the two is missed.
func (s *Store) Listen(ctx context.Context, p docstore.Path) (docstore.Iterator, error) {
	if err := p.ValidateDocument(); err != nil {
		return nil, err
	}
	ps := s.client.Subscribe(ctx, s.channel(p))
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, unavailable("subscribe "+string(p), err)
	}
	lctx, cancel := context.WithCancel(ctx)
	return &listener{
		store:  s,
		path:   p,
		ps:     ps,
		ch:     ps.Channel(),
		ctx:    lctx,
		cancel: cancel,
	}, nil
}

func (l *listener) Next() (*docstore.Snapshot, error) {
	if l.ctx.Err() != nil {
		l.Stop()
		return nil, docstore.ErrDone
	}
	if l.started {
		select {
		case _, ok := <-l.ch:
			if !ok {
				return nil, docstore.ErrDone
			}
			l.drain()
		case <-l.ctx.Done():
			l.Stop()
			return nil, docstore.ErrDone
		}
	}
	l.started = true

	snap, err := l.store.read(l.ctx, l.store.client, l.path)
	if err != nil && l.ctx.Err() != nil {
		return nil, docstore.ErrDone
	}
	return snap, err
}

// drain drops queued notifications; the read that follows sees them all.
func (l *listener) drain() {
	for {
		select {
		case _, ok := <-l.ch:
			if !ok {
				return
			}
		default:
			return
		}
	}
}

func (l *listener) Stop() {
	l.once.Do(func() {
		l.cancel()
		l.ps.Close()
	})
}
