// Package config loads configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all server configuration.
type Config struct {
	// Server
	ListenAddr  string
	MetricsAddr string
	TrustProxy  bool

	// TLS (optional; if both set, server uses HTTPS)
	TLSCertFile string
	TLSKeyFile  string

	// Logging
	LogLevel  string
	LogFormat string

	// Auth
	JWTSecret string
	TokenTTL  time.Duration

	// Sessions idle longer than this are evicted.
	SessionTTL time.Duration

	// Remote execution
	PistonURL      string
	ExecuteTimeout time.Duration

	// Summarization
	GeminiAPIKey     string
	GeminiModel      string
	GeminiURL        string
	SummarizeChars   int
	SummarizeLimit   int
	SummarizeWindow  time.Duration
	SummarizeTimeout time.Duration

	// Snippets and notes ("sqlite" or "postgres", default: "sqlite")
	NotesBackend string
	SQLitePath   string
	DatabaseURL  string

	// Snapshot storage backend ("local" or "s3", default: "local")
	StorageBackend   string
	LocalStoragePath string

	// S3 storage
	S3Endpoint  string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string
	S3Region    string
}

// Load reads configuration from environment variables with defaults.
func Load() (*Config, error) {
	cfg := &Config{
		ListenAddr:       envOr("LISTEN_ADDR", ":8080"),
		MetricsAddr:      envOr("METRICS_ADDR", ":9090"),
		TrustProxy:       envBool("TRUST_PROXY", false),
		TLSCertFile:      envOr("TLS_CERT_FILE", ""),
		TLSKeyFile:       envOr("TLS_KEY_FILE", ""),
		LogLevel:         envOr("LOG_LEVEL", "info"),
		LogFormat:        envOr("LOG_FORMAT", "json"),
		JWTSecret:        envOr("JWT_SECRET", ""),
		TokenTTL:         envDuration("TOKEN_TTL", 24*time.Hour),
		SessionTTL:       envDuration("SESSION_TTL", 2*time.Hour),
		PistonURL:        envOr("PISTON_URL", "https://emkc.org/api/v2/piston/execute"),
		ExecuteTimeout:   envDuration("EXECUTE_TIMEOUT", 30*time.Second),
		GeminiAPIKey:     envOr("GEMINI_API_KEY", ""),
		GeminiModel:      envOr("GEMINI_MODEL", "gemini-1.5-flash"),
		GeminiURL:        envOr("GEMINI_URL", "https://generativelanguage.googleapis.com/v1beta"),
		SummarizeChars:   envInt("SUMMARIZE_MAX_CHARS", 5000),
		SummarizeLimit:   envInt("SUMMARIZE_LIMIT", 3),
		SummarizeWindow:  envDuration("SUMMARIZE_WINDOW", 5*time.Minute),
		SummarizeTimeout: envDuration("SUMMARIZE_TIMEOUT", 30*time.Second),
		NotesBackend:     envOr("NOTES_BACKEND", "sqlite"),
		SQLitePath:       envOr("SQLITE_PATH", "/data/codenest.db"),
		DatabaseURL:      envOr("DATABASE_URL", ""),
		StorageBackend:   envOr("STORAGE_BACKEND", "local"),
		LocalStoragePath: envOr("LOCAL_STORAGE_PATH", "/data/snapshots"),
		S3Endpoint:       envOr("S3_ENDPOINT", ""),
		S3Bucket:         envOr("S3_BUCKET", "codenest"),
		S3AccessKey:      envOr("S3_ACCESS_KEY", ""),
		S3SecretKey:      envOr("S3_SECRET_KEY", ""),
		S3Region:         envOr("S3_REGION", "us-east-1"),
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	switch cfg.NotesBackend {
	case "sqlite":
	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required when NOTES_BACKEND=postgres")
		}
	default:
		return nil, fmt.Errorf("unknown NOTES_BACKEND %q", cfg.NotesBackend)
	}
	switch cfg.StorageBackend {
	case "local", "s3":
	default:
		return nil, fmt.Errorf("unknown STORAGE_BACKEND %q", cfg.StorageBackend)
	}
	if cfg.SummarizeLimit <= 0 || cfg.SummarizeWindow <= 0 {
		return nil, fmt.Errorf("SUMMARIZE_LIMIT and SUMMARIZE_WINDOW must be positive")
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
