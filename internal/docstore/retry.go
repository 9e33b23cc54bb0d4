package docstore

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"
)

// DefaultMaxAttempts matches the Firestore client default.
const DefaultMaxAttempts = 5

// RunWithRetry calls attempt until it returns something other than
// ErrConflict, or maxAttempts is reached. Exhausted retries surface as
// ErrUnavailable.
func RunWithRetry(ctx context.Context, maxAttempts int, attempt func(ctx context.Context) error) error {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	backoff := time.Millisecond
	for i := 1; ; i++ {
		err := attempt(ctx)
		if !errors.Is(err, ErrConflict) {
			return err
		}
		if i >= maxAttempts {
			return fmt.Errorf("%w: transaction contention after %d attempts", ErrUnavailable, i)
		}

		wait := backoff + time.Duration(rand.Int63n(int64(backoff)))
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %w", ErrUnavailable, ctx.Err())
		case <-time.After(wait):
		}
		if backoff < 100*time.Millisecond {
			backoff *= 2
		}
	}
}
