package redisstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/hunyoung529/onepick/internal/docstore"
	"github.com/redis/go-redis/v9"
)

type write struct {
	path   docstore.Path
	data   docstore.Data
	merge  bool
	delete bool
}

type tx struct {
	store  *Store
	rtx    *redis.Tx
	ctx    context.Context
	reads  map[docstore.Path]*docstore.Snapshot
	writes []write
}

// RunTransaction implements docstore.Store.
func (s *Store) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx docstore.Tx) error) error {
	return docstore.RunWithRetry(ctx, s.maxAttempts, func(ctx context.Context) error {
		var bodyErr error
		err := s.client.Watch(ctx, func(rtx *redis.Tx) error {
			t := &tx{
				store: s,
				rtx:   rtx,
				ctx:   ctx,
				reads: make(map[docstore.Path]*docstore.Snapshot),
			}
			if err := fn(ctx, t); err != nil {
				bodyErr = err
				return err
			}
			return s.commit(ctx, t)
		})
		switch {
		case bodyErr != nil:
			return bodyErr
		case errors.Is(err, redis.TxFailedErr):
			return docstore.ErrConflict
		}
		return err
	})
}

func (t *tx) Get(p docstore.Path) (*docstore.Snapshot, error) {
	if len(t.writes) > 0 {
		return nil, docstore.ErrReadAfterWrite
	}
	if err := p.ValidateDocument(); err != nil {
		return nil, err
	}
	if snap, ok := t.reads[p]; ok {
		return cloneSnapshot(snap), nil
	}
	if err := t.rtx.Watch(t.ctx, t.store.docKey(p)).Err(); err != nil {
		return nil, unavailable("watch "+string(p), err)
	}
	snap, err := t.store.read(t.ctx, t.rtx, p)
	if err != nil {
		return nil, err
	}
	t.reads[p] = snap
	return cloneSnapshot(snap), nil
}

func (t *tx) Set(p docstore.Path, data docstore.Data, opts ...docstore.SetOption) error {
	if err := p.ValidateDocument(); err != nil {
		return err
	}
	norm, err := docstore.Normalize(data)
	if err != nil {
		return fmt.Errorf("redisstore: set %s: %w", p, err)
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

func cloneSnapshot(s *docstore.Snapshot) *docstore.Snapshot {
	c := *s
	c.Data = s.Data.Clone()
	return &c
}

// commit folds the buffered writes into final document states and applies
// them in one MULTI/EXEC. EXEC fails with redis.TxFailedErr if any watched
// key changed since it was read.
func (s *Store) commit(ctx context.Context, t *tx) error {
	if len(t.writes) == 0 {
		// Still EXEC so a read-only transaction observes a consistent set.
		_, err := t.rtx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Ping(ctx)
			return nil
		})
		if err != nil && !errors.Is(err, redis.TxFailedErr) {
			return unavailable("commit", err)
		}
		return err
	}

	// A merge onto a document this transaction never read still needs its
	// current fields, and those must be watched like any other read.
	for _, w := range t.writes {
		if !w.merge {
			continue
		}
		if _, ok := t.reads[w.path]; ok {
			continue
		}
		if err := t.rtx.Watch(ctx, s.docKey(w.path)).Err(); err != nil {
			return unavailable("watch "+string(w.path), err)
		}
		snap, err := s.read(ctx, t.rtx, w.path)
		if err != nil {
			return err
		}
		t.reads[w.path] = snap
	}

	now, err := t.rtx.Time(ctx).Result()
	if err != nil {
		return unavailable("time", err)
	}
	now = now.UTC()

	type final struct {
		path docstore.Path
		data docstore.Data
	}
	state := make(map[docstore.Path]*final)
	var order []docstore.Path
	for _, w := range t.writes {
		f, ok := state[w.path]
		if !ok {
			f = &final{path: w.path}
			if snap := t.reads[w.path]; snap != nil && snap.Exists {
				f.data = snap.Data
			}
			state[w.path] = f
			order = append(order, w.path)
		}
		if w.delete {
			f.data = nil
			continue
		}
		f.data = docstore.Apply(f.data, w.data, w.merge, now)
	}

	encoded := make(map[docstore.Path][]byte, len(order))
	for _, p := range order {
		if f := state[p]; f.data != nil {
			b, err := docstore.EncodeDocument(f.data, now)
			if err != nil {
				return err
			}
			encoded[p] = b
		}
	}

	_, err = t.rtx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, p := range order {
			if b, ok := encoded[p]; ok {
				pipe.Set(ctx, s.docKey(p), b, 0)
				pipe.SAdd(ctx, s.colKey(p.Parent()), p.ID())
			} else {
				pipe.Del(ctx, s.docKey(p))
				pipe.SRem(ctx, s.colKey(p.Parent()), p.ID())
			}
			pipe.Publish(ctx, s.channel(p), "changed")
		}
		return nil
	})
	if err != nil && !errors.Is(err, redis.TxFailedErr) {
		return unavailable("commit", err)
	}
	return err
}
