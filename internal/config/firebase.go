package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	firebase "firebase.google.com/go"
	"google.golang.org/api/option"
)

// NewFirebaseApp initializes the Firebase Admin SDK. Without a credentials
// file it only proceeds against the Firestore emulator.
func NewFirebaseApp(ctx context.Context, cfg Config, logger *slog.Logger) (*firebase.App, error) {
	var opts []option.ClientOption
	if _, err := os.Stat(cfg.FirebaseCredentials); err == nil {
		opts = append(opts, option.WithCredentialsFile(cfg.FirebaseCredentials))
	} else if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		logger.Warn("firebase credentials not found; download a service account key", "path", cfg.FirebaseCredentials)
		return nil, fmt.Errorf("firebase credentials: %w", err)
	}

	var fbConfig *firebase.Config
	if cfg.FirebaseProjectID != "" {
		fbConfig = &firebase.Config{ProjectID: cfg.FirebaseProjectID}
	}

	app, err := firebase.NewApp(ctx, fbConfig, opts...)
	if err != nil {
		return nil, fmt.Errorf("initialize firebase app: %w", err)
	}
	logger.Info("firebase app initialized")
	return app, nil
}
