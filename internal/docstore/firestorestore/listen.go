package firestorestore

import (
	"context"
	"errors"

	"cloud.google.com/go/firestore"
	"github.com/hunyoung529/onepick/internal/docstore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type listener struct {
	path docstore.Path
	it   *firestore.DocumentSnapshotIterator
}

// Listen implements docstore.Store on top of DocumentRef.Snapshots.
func (s *Store) Listen(ctx context.Context, p docstore.Path) (docstore.Iterator, error) {
	ref, err := s.doc(p)
	if err != nil {
		return nil, err
	}
	return &listener{path: p, it: ref.Snapshots(ctx)}, nil
}

func (l *listener) Next() (*docstore.Snapshot, error) {
	doc, err := l.it.Next()
	if err == iterator.Done || status.Code(err) == codes.Canceled || errors.Is(err, context.Canceled) {
		return nil, docstore.ErrDone
	}
	if err != nil {
		return nil, classify("listen "+string(l.path), err)
	}
	return toSnapshot(l.path, doc), nil
}

func (l *listener) Stop() {
	l.it.Stop()
}
