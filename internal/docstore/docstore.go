// Package docstore defines the document store contract shared by every
// backend: hierarchical collections of documents holding typed fields,
// point reads and writes, and optimistic transactions that are re-run by
// the backend whenever a document they read changes before commit.
package docstore

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrUnavailable marks transient backend failures. Callers may retry the
	// whole operation because transactions are all-or-nothing.
	ErrUnavailable = errors.New("docstore: unavailable")
	// ErrConflict is returned by a backend commit when the read set changed.
	// RunWithRetry consumes it; it never escapes RunTransaction.
	ErrConflict = errors.New("docstore: transaction conflict")
	// ErrReadAfterWrite is returned when a transaction reads after writing.
	ErrReadAfterWrite = errors.New("docstore: transaction reads must precede writes")
	// ErrInvalidPath is returned for malformed document or collection paths.
	ErrInvalidPath = errors.New("docstore: invalid path")
	// ErrDone is returned by Iterator.Next once the iterator is stopped.
	ErrDone = errors.New("docstore: iterator done")
	// ErrClosed is returned by operations on a closed store.
	ErrClosed = errors.New("docstore: store closed")
)

// Snapshot is the state of one document at a point in time. A snapshot of
// a missing document has Exists set to false and a nil Data.
type Snapshot struct {
	Path       Path
	Exists     bool
	Data       Data
	UpdateTime time.Time
}

// ID returns the document id.
func (s *Snapshot) ID() string {
	return s.Path.ID()
}

// SetOption changes how Set applies data to an existing document.
type SetOption struct {
	merge bool
}

// MergeAll overwrites only the fields present in the written data and keeps
// every other field of the existing document.
var MergeAll = SetOption{merge: true}

// IsMerge reports whether opts request merge semantics.
func IsMerge(opts []SetOption) bool {
	for _, o := range opts {
		if o.merge {
			return true
		}
	}
	return false
}

// Store is a document store client. Implementations are safe for
// concurrent use.
type Store interface {
	Get(ctx context.Context, p Path) (*Snapshot, error)
	Set(ctx context.Context, p Path, data Data, opts ...SetOption) error
	Delete(ctx context.Context, p Path) error
	Query(ctx context.Context, q Query) ([]*Snapshot, error)

	// RunTransaction runs fn inside an optimistic transaction. fn may be
	// called several times and must not have side effects outside tx. An
	// error returned by fn aborts the transaction and is returned as is.
	RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	// Listen returns an iterator over the states of one document. The first
	// call to Next returns the current state.
	Listen(ctx context.Context, p Path) (Iterator, error)

	Close() error
}

// Tx is the handle passed to a transaction body. All reads must happen
// before the first write.
type Tx interface {
	Get(p Path) (*Snapshot, error)
	Set(p Path, data Data, opts ...SetOption) error
	Delete(p Path) error
}

// Iterator yields successive snapshots of a document.
type Iterator interface {
	// Next blocks until the next snapshot is available. It returns ErrDone
	// after Stop is called or the listen context ends.
	Next() (*Snapshot, error)
	Stop()
}
