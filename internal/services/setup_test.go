package services

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/hunyoung529/onepick/internal/docstore"
	"github.com/hunyoung529/onepick/internal/docstore/memstore"
	"github.com/hunyoung529/onepick/internal/docstore/redisstore"
	"github.com/hunyoung529/onepick/internal/models"
)

// backends runs a test against every store that can run in-process.
var backends = map[string]func(t *testing.T) docstore.Store{
	"memory": func(t *testing.T) docstore.Store {
		return memstore.New(memstore.WithMaxAttempts(100))
	},
	"redis": func(t *testing.T) docstore.Store {
		mr := miniredis.RunT(t)
		store, err := redisstore.New(context.Background(), "redis://"+mr.Addr(), redisstore.WithMaxAttempts(100))
		if err != nil {
			t.Fatalf("failed to create redis store: %v", err)
		}
		t.Cleanup(func() { store.Close() })
		return store
	},
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// syncBuffer collects log output written from several goroutines.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func identity(uid string) models.Identity {
	email := uid + "@example.com"
	return models.Identity{
		UID:          uid,
		Email:        &email,
		ProviderData: []models.ProviderInfo{{ProviderID: "google.com"}},
	}
}
