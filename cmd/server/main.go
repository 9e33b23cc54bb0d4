package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hunyoung529/onepick/internal/config"
	"github.com/hunyoung529/onepick/internal/handlers"
	"github.com/hunyoung529/onepick/internal/middleware"
	"github.com/hunyoung529/onepick/internal/services"
	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	envErr := godotenv.Load()

	cfg := config.Load()
	logger := config.NewLogger(cfg, os.Stderr)
	slog.SetDefault(logger)
	if envErr != nil {
		logger.Info("no .env file found, using system environment variables")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Firebase verifies ID tokens for every backend
	app, err := config.NewFirebaseApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize firebase", "error", err)
		os.Exit(1)
	}
	authClient, err := app.Auth(ctx)
	if err != nil {
		logger.Error("failed to initialize firebase auth", "error", err)
		os.Exit(1)
	}

	store, err := config.OpenStore(ctx, cfg, app, logger)
	if err != nil {
		logger.Error("failed to open store", "backend", cfg.StoreBackend, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	// Initialize Gin router
	router := gin.Default()
	router.Use(middleware.CORS(cfg.CORSOrigin), middleware.RequestID())

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "onepick API is running",
			"backend": cfg.StoreBackend,
		})
	})

	handlers.RegisterRoutes(router, handlers.Services{
		Profiles:  services.NewProfileService(store, logger),
		Votes:     services.NewVoteService(store, logger),
		Comments:  services.NewCommentService(store, logger),
		Favorites: services.NewFavoriteService(store, logger),
		Rankings:  services.NewRankingService(store, cfg.RankingCacheSize, cfg.RankingCacheTTL, logger),
	}, authClient)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown failed", "error", err)
		}
	}()

	// Start server
	logger.Info("server starting", "port", cfg.Port, "backend", cfg.StoreBackend)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("failed to start server", "error", err)
		os.Exit(1)
	}
}
