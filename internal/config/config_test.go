package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ListenAddr != ":8080" {
		t.Errorf("ListenAddr = %q", cfg.ListenAddr)
	}
	if cfg.SummarizeLimit != 3 || cfg.SummarizeWindow != 5*time.Minute {
		t.Errorf("summarize quota = %d per %v, want 3 per 5m", cfg.SummarizeLimit, cfg.SummarizeWindow)
	}
	if cfg.SummarizeChars != 5000 {
		t.Errorf("SummarizeChars = %d, want 5000", cfg.SummarizeChars)
	}
	if cfg.NotesBackend != "sqlite" || cfg.StorageBackend != "local" {
		t.Errorf("backends = %s/%s", cfg.NotesBackend, cfg.StorageBackend)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("SESSION_TTL", "15m")
	t.Setenv("TRUST_PROXY", "true")
	t.Setenv("SUMMARIZE_LIMIT", "10")
	t.Setenv("EXECUTE_TIMEOUT", "not-a-duration")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SessionTTL != 15*time.Minute {
		t.Errorf("SessionTTL = %v", cfg.SessionTTL)
	}
	if !cfg.TrustProxy {
		t.Error("TrustProxy not set")
	}
	if cfg.SummarizeLimit != 10 {
		t.Errorf("SummarizeLimit = %d", cfg.SummarizeLimit)
	}
	if cfg.ExecuteTimeout != 30*time.Second {
		t.Errorf("malformed duration should fall back, got %v", cfg.ExecuteTimeout)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"missing secret", map[string]string{"JWT_SECRET": ""}, "JWT_SECRET"},
		{"postgres without url", map[string]string{"NOTES_BACKEND": "postgres"}, "DATABASE_URL"},
		{"unknown notes backend", map[string]string{"NOTES_BACKEND": "mongo"}, "NOTES_BACKEND"},
		{"unknown storage", map[string]string{"STORAGE_BACKEND": "smb"}, "STORAGE_BACKEND"},
		{"zero limit", map[string]string{"SUMMARIZE_LIMIT": "0"}, "SUMMARIZE_LIMIT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", "s3cret")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want mention of %s", err, tt.want)
			}
		})
	}
}
