package config

import (
	"context"
	"fmt"
	"log/slog"

	firebase "firebase.google.com/go"
	"github.com/hunyoung529/onepick/internal/docstore"
	"github.com/hunyoung529/onepick/internal/docstore/firestorestore"
	"github.com/hunyoung529/onepick/internal/docstore/memstore"
	"github.com/hunyoung529/onepick/internal/docstore/redisstore"
)

// OpenStore connects the document store selected by cfg.StoreBackend. app
// is only used by the firestore backend.
func OpenStore(ctx context.Context, cfg Config, app *firebase.App, logger *slog.Logger) (docstore.Store, error) {
	switch cfg.StoreBackend {
	case BackendFirestore:
		if app == nil {
			return nil, fmt.Errorf("firestore backend needs a firebase app")
		}
		client, err := app.Firestore(ctx)
		if err != nil {
			return nil, fmt.Errorf("initialize firestore: %w", err)
		}
		logger.Info("firestore client initialized")
		return firestorestore.New(client, firestorestore.WithMaxAttempts(cfg.TxMaxAttempts)), nil

	case BackendRedis:
		store, err := redisstore.New(ctx, cfg.RedisURL, redisstore.WithMaxAttempts(cfg.TxMaxAttempts))
		if err != nil {
			return nil, err
		}
		logger.Info("redis store connected")
		return store, nil

	case BackendMemory:
		logger.Warn("using in-memory store; data is lost on restart")
		return memstore.New(memstore.WithMaxAttempts(cfg.TxMaxAttempts)), nil
	}
	return nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
}
