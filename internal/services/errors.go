package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/hunyoung529/onepick/internal/docstore"
)

var (
	// ErrInvalidInput means local validation failed. The store was not touched.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNicknameTaken means the nickname is claimed by another user.
	ErrNicknameTaken = errors.New("nickname is already taken")
	// ErrSelfVoteForbidden means a user tried to vote on their own comment.
	ErrSelfVoteForbidden = errors.New("cannot vote on your own comment")
	// ErrPermissionDenied means the caller does not own the comment.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrNotFound means the target document does not exist.
	ErrNotFound = errors.New("not found")
	// ErrStoreUnavailable means the store failed transiently or the
	// transaction kept conflicting. The whole operation may be retried.
	ErrStoreUnavailable = errors.New("store unavailable")
)

func invalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// storeError wraps an error coming out of the store with the operation name.
// Domain sentinels returned by a transaction body pass through unchanged.
func storeError(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, docstore.ErrUnavailable),
		errors.Is(err, docstore.ErrClosed),
		errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
	case errors.Is(err, docstore.ErrInvalidPath):
		return fmt.Errorf("%s: %w: %w", op, ErrInvalidInput, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
