// Package firestorestore adapts Cloud Firestore to docstore.Store. Firestore
// transactions already validate their read set and retry on contention, so
// this package mostly translates values and errors.
package firestorestore

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/hunyoung529/onepick/internal/docstore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type Store struct {
	client      *firestore.Client
	maxAttempts int
}

// Option configures a Store.
type Option func(*Store)

// WithMaxAttempts is passed to RunTransaction as firestore.MaxAttempts.
func WithMaxAttempts(n int) Option {
	return func(s *Store) { s.maxAttempts = n }
}

func New(client *firestore.Client, opts ...Option) *Store {
	s := &Store{client: client, maxAttempts: docstore.DefaultMaxAttempts}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Store) doc(p docstore.Path) (*firestore.DocumentRef, error) {
	if err := p.ValidateDocument(); err != nil {
		return nil, err
	}
	ref := s.client.Doc(string(p))
	if ref == nil {
		return nil, fmt.Errorf("%w: %q", docstore.ErrInvalidPath, string(p))
	}
	return ref, nil
}

// classify marks transient gRPC failures as docstore.ErrUnavailable.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	switch status.Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded, codes.Aborted, codes.ResourceExhausted:
		return fmt.Errorf("firestore: %s: %w: %w", op, docstore.ErrUnavailable, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("firestore: %s: %w: %w", op, docstore.ErrUnavailable, err)
	}
	return fmt.Errorf("firestore: %s: %w", op, err)
}

func toSnapshot(p docstore.Path, doc *firestore.DocumentSnapshot) *docstore.Snapshot {
	if doc == nil || !doc.Exists() {
		return &docstore.Snapshot{Path: p}
	}
	return &docstore.Snapshot{
		Path:       p,
		Exists:     true,
		Data:       fromFirestore(doc.Data()),
		UpdateTime: doc.UpdateTime,
	}
}

// fromFirestore converts []interface{} lists to []string; other values
// already match docstore types.
func fromFirestore(m map[string]interface{}) docstore.Data {
	out := make(docstore.Data, len(m))
	for k, v := range m {
		if l, ok := v.([]interface{}); ok {
			strs := make([]string, 0, len(l))
			for _, e := range l {
				if s, ok := e.(string); ok {
					strs = append(strs, s)
				}
			}
			v = strs
		}
		out[k] = v
	}
	return out
}

func toFirestore(d docstore.Data) (map[string]interface{}, error) {
	norm, err := docstore.Normalize(d)
	if err != nil {
		return nil, err
	}
	out := make(map[string]interface{}, len(norm))
	for k, v := range norm {
		if v == docstore.ServerTimestamp {
			v = firestore.ServerTimestamp
		}
		out[k] = v
	}
	return out, nil
}

func setOptions(opts []docstore.SetOption) []firestore.SetOption {
	if docstore.IsMerge(opts) {
		return []firestore.SetOption{firestore.MergeAll}
	}
	return nil
}

// Get implements docstore.Store.
func (s *Store) Get(ctx context.Context, p docstore.Path) (*docstore.Snapshot, error) {
	ref, err := s.doc(p)
	if err != nil {
		return nil, err
	}
	doc, err := ref.Get(ctx)
	if status.Code(err) == codes.NotFound {
		return &docstore.Snapshot{Path: p}, nil
	}
	if err != nil {
		return nil, classify("get "+string(p), err)
	}
	return toSnapshot(p, doc), nil
}

// Set implements docstore.Store.
func (s *Store) Set(ctx context.Context, p docstore.Path, data docstore.Data, opts ...docstore.SetOption) error {
	ref, err := s.doc(p)
	if err != nil {
		return err
	}
	fd, err := toFirestore(data)
	if err != nil {
		return err
	}
	_, err = ref.Set(ctx, fd, setOptions(opts)...)
	return classify("set "+string(p), err)
}

// Delete implements docstore.Store.
func (s *Store) Delete(ctx context.Context, p docstore.Path) error {
	ref, err := s.doc(p)
	if err != nil {
		return err
	}
	_, err = ref.Delete(ctx)
	return classify("delete "+string(p), err)
}

// Query implements docstore.Store.
func (s *Store) Query(ctx context.Context, q docstore.Query) ([]*docstore.Snapshot, error) {
	if err := q.Collection.ValidateCollection(); err != nil {
		return nil, err
	}
	col := s.client.Collection(string(q.Collection))
	if col == nil {
		return nil, fmt.Errorf("%w: %q", docstore.ErrInvalidPath, string(q.Collection))
	}

	fq := col.Query
	for _, f := range q.Filters {
		fq = fq.Where(f.Field, "==", f.Value)
	}
	dir := firestore.Asc
	if q.Desc {
		dir = firestore.Desc
	}
	if q.OrderBy != "" {
		fq = fq.OrderBy(q.OrderBy, dir)
	} else if q.Desc || len(q.Filters) == 0 {
		fq = fq.OrderBy(firestore.DocumentID, dir)
	}
	if q.Limit > 0 {
		fq = fq.Limit(q.Limit)
	}

	iter := fq.Documents(ctx)
	defer iter.Stop()

	var out []*docstore.Snapshot
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, classify("query "+string(q.Collection), err)
		}
		out = append(out, toSnapshot(q.Collection.Child(doc.Ref.ID), doc))
	}
	return out, nil
}

// RunTransaction implements docstore.Store.
func (s *Store) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx docstore.Tx) error) error {
	var bodyErr error
	err := s.client.RunTransaction(ctx, func(ctx context.Context, t *firestore.Transaction) error {
		bodyErr = fn(ctx, &tx{store: s, t: t})
		return bodyErr
	}, firestore.MaxAttempts(s.maxAttempts))
	if bodyErr != nil {
		return bodyErr
	}
	return classify("transaction", err)
}

// Close closes the client.
func (s *Store) Close() error {
	return s.client.Close()
}

type tx struct {
	store *Store
	t     *firestore.Transaction
	wrote bool
}

func (t *tx) Get(p docstore.Path) (*docstore.Snapshot, error) {
	if t.wrote {
		return nil, docstore.ErrReadAfterWrite
	}
	ref, err := t.store.doc(p)
	if err != nil {
		return nil, err
	}
	doc, err := t.t.Get(ref)
	if status.Code(err) == codes.NotFound {
		return &docstore.Snapshot{Path: p}, nil
	}
	if err != nil {
		return nil, classify("tx get "+string(p), err)
	}
	return toSnapshot(p, doc), nil
}

func (t *tx) Set(p docstore.Path, data docstore.Data, opts ...docstore.SetOption) error {
	ref, err := t.store.doc(p)
	if err != nil {
		return err
	}
	fd, err := toFirestore(data)
	if err != nil {
		return err
	}
	t.wrote = true
	return t.t.Set(ref, fd, setOptions(opts)...)
}

func (t *tx) Delete(p docstore.Path) error {
	ref, err := t.store.doc(p)
	if err != nil {
		return err
	}
	t.wrote = true
	return t.t.Delete(ref)
}
