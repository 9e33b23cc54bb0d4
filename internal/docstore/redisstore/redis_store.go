// Package redisstore implements docstore.Store on Redis. Transactions WATCH
// every key they read and commit with MULTI/EXEC, so a concurrent write to
// any read document aborts the EXEC and the body is run again. Commit times
// come from the Redis TIME command rather than the caller's clock.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hunyoung529/onepick/internal/docstore"
	"github.com/redis/go-redis/v9"
)

// Store is a Redis-backed document store.
//
// Key layout, under the configured prefix:
//
//	doc:<path>   JSON document (docstore.EncodeDocument)
//	col:<path>   set of document ids in the collection
//	chg:<path>   pub/sub channel announcing writes to the document
type Store struct {
	client      *redis.Client
	prefix      string
	maxAttempts int
}

// Option configures a Store.
type Option func(*Store)

// WithPrefix namespaces every key.
func WithPrefix(prefix string) Option {
	return func(s *Store) { s.prefix = prefix }
}

// WithMaxAttempts sets how many times a conflicting transaction is tried.
func WithMaxAttempts(n int) Option {
	return func(s *Store) { s.maxAttempts = n }
}

// New connects to redisURL and pings the server.
func New(ctx context.Context, redisURL string, opts ...Option) (*Store, error) {
	ropts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(ropts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return NewWithClient(client, opts...), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *redis.Client, opts ...Option) *Store {
	s := &Store{
		client:      client,
		prefix:      "onepick:",
		maxAttempts: docstore.DefaultMaxAttempts,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Store) docKey(p docstore.Path) string {
	return s.prefix + "doc:" + string(p)
}

func (s *Store) colKey(p docstore.Path) string {
	return s.prefix + "col:" + string(p)
}

func (s *Store) channel(p docstore.Path) string {
	return s.prefix + "chg:" + string(p)
}

func unavailable(op string, err error) error {
	return fmt.Errorf("redisstore: %s: %w: %w", op, docstore.ErrUnavailable, err)
}

func (s *Store) decode(p docstore.Path, raw string) (*docstore.Snapshot, error) {
	data, updated, err := docstore.DecodeDocument([]byte(raw))
	if err != nil {
		return nil, fmt.Errorf("redisstore: %s: %w", p, err)
	}
	return &docstore.Snapshot{Path: p, Exists: true, Data: data, UpdateTime: updated}, nil
}

// getter is satisfied by both *redis.Client and *redis.Tx.
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (s *Store) read(ctx context.Context, c getter, p docstore.Path) (*docstore.Snapshot, error) {
	raw, err := c.Get(ctx, s.docKey(p)).Result()
	if errors.Is(err, redis.Nil) {
		return &docstore.Snapshot{Path: p}, nil
	}
	if err != nil {
		return nil, unavailable("get "+string(p), err)
	}
	return s.decode(p, raw)
}

// Get implements docstore.Store.
func (s *Store) Get(ctx context.Context, p docstore.Path) (*docstore.Snapshot, error) {
	if err := p.ValidateDocument(); err != nil {
		return nil, err
	}
	return s.read(ctx, s.client, p)
}

// Set implements docstore.Store. Merges need the current document, so a
// plain Set is a one-write transaction.
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

// Query implements docstore.Store. Filtering and ordering happen client side.
func (s *Store) Query(ctx context.Context, q docstore.Query) ([]*docstore.Snapshot, error) {
	if err := q.Collection.ValidateCollection(); err != nil {
		return nil, err
	}
	ids, err := s.client.SMembers(ctx, s.colKey(q.Collection)).Result()
	if err != nil {
		return nil, unavailable("list "+string(q.Collection), err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	paths := make([]docstore.Path, len(ids))
	for i, id := range ids {
		paths[i] = q.Collection.Child(id)
		keys[i] = s.docKey(paths[i])
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, unavailable("mget "+string(q.Collection), err)
	}

	docs := make([]*docstore.Snapshot, 0, len(vals))
	for i, v := range vals {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		snap, err := s.decode(paths[i], raw)
		if err != nil {
			return nil, err
		}
		docs = append(docs, snap)
	}
	return q.Apply(docs), nil
}

// Close closes the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
