package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Store backends selectable with STORE_BACKEND.
const (
	BackendFirestore = "firestore"
	BackendRedis     = "redis"
	BackendMemory    = "memory"
)

type Config struct {
	Port                string
	StoreBackend        string
	FirebaseCredentials string
	FirebaseProjectID   string
	RedisURL            string
	TxMaxAttempts       int
	RankingCacheSize    int
	RankingCacheTTL     time.Duration
	CORSOrigin          string
	LogLevel            string
	LogFormat           string
}

func Load() Config {
	return Config{
		Port:                getenv("PORT", "8080"),
		StoreBackend:        strings.ToLower(getenv("STORE_BACKEND", BackendFirestore)),
		FirebaseCredentials: getenv("FIREBASE_CREDENTIALS_PATH", "./serviceAccountKey.json"),
		FirebaseProjectID:   getenv("FIREBASE_PROJECT_ID", ""),
		RedisURL:            getenv("REDIS_URL", "redis://localhost:6379/0"),
		TxMaxAttempts:       getenvInt("TX_MAX_ATTEMPTS", 5),
		RankingCacheSize:    getenvInt("RANKING_CACHE_SIZE", 256),
		RankingCacheTTL:     time.Duration(getenvInt("RANKING_CACHE_TTL_SECONDS", 300)) * time.Second,
		CORSOrigin:          getenv("CORS_ORIGIN", "*"),
		LogLevel:            getenv("LOG_LEVEL", "info"),
		LogFormat:           getenv("LOG_FORMAT", "text"),
	}
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}
