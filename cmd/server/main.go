package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/codenest/codenest/internal/api"
	"github.com/codenest/codenest/internal/auth"
	"github.com/codenest/codenest/internal/config"
	"github.com/codenest/codenest/internal/events"
	"github.com/codenest/codenest/internal/execute"
	"github.com/codenest/codenest/internal/logging"
	"github.com/codenest/codenest/internal/metrics"
	"github.com/codenest/codenest/internal/notes"
	"github.com/codenest/codenest/internal/quota"
	"github.com/codenest/codenest/internal/snapshot"
	s3storage "github.com/codenest/codenest/internal/storage/s3"
	"github.com/codenest/codenest/internal/summarize"
	"github.com/codenest/codenest/internal/workspace"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("configuration error: " + err.Error())
	}

	if err := logging.Init(logging.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	}); err != nil {
		panic("logging init error: " + err.Error())
	}
	defer logging.Sync()

	logging.Info("CodeNest server starting...",
		zap.String("listen", cfg.ListenAddr),
		zap.String("metrics", cfg.MetricsAddr))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logging.Info("opening notes store...", zap.String("backend", cfg.NotesBackend))
	noteStore, err := notes.Open(cfg.NotesBackend, cfg.SQLitePath, cfg.DatabaseURL)
	if err != nil {
		logging.Fatal("notes store init failed", zap.Error(err))
	}
	defer noteStore.Close()

	backend, err := snapshot.OpenBackend(ctx, snapshot.BackendConfig{
		Backend:   cfg.StorageBackend,
		LocalPath: cfg.LocalStoragePath,
		S3: s3storage.BackendConfig{
			Endpoint:  cfg.S3Endpoint,
			Bucket:    cfg.S3Bucket,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Region:    cfg.S3Region,
		},
	})
	if err != nil {
		logging.Fatal("snapshot storage init failed", zap.Error(err))
	}
	defer backend.Close()
	logging.Info("snapshot storage initialized", zap.String("backend", backend.Type()))

	if cfg.GeminiAPIKey == "" {
		logging.Warn("GEMINI_API_KEY not set; summarization requests will fail")
	}

	sessions := workspace.NewManager()
	limiter := quota.NewWindowLimiter(cfg.SummarizeLimit, cfg.SummarizeWindow)
	broadcaster := events.NewBroadcaster()

	srv := api.NewServer(api.Deps{
		Auth:     auth.New(cfg.JWTSecret, cfg.TokenTTL),
		Sessions: sessions,
		Executor: execute.NewClient(cfg.PistonURL, cfg.ExecuteTimeout),
		Summarizer: summarize.NewClient(summarize.Config{
			BaseURL:  cfg.GeminiURL,
			Model:    cfg.GeminiModel,
			APIKey:   cfg.GeminiAPIKey,
			MaxChars: cfg.SummarizeChars,
			Timeout:  cfg.SummarizeTimeout,
		}),
		Notes:       notes.NewService(noteStore),
		Snapshots:   snapshot.NewStore(backend),
		Broadcaster: broadcaster,
		Limiter:     limiter,
		TrustProxy:  cfg.TrustProxy,
	})

	metricsServer := &http.Server{
		Addr:    cfg.MetricsAddr,
		Handler: metrics.Handler(),
	}
	go func() {
		logging.Info("metrics server listening", zap.String("addr", cfg.MetricsAddr))
		if err := metricsServer.ListenAndServe(); err != http.ErrServerClosed {
			logging.Error("metrics server error", zap.Error(err))
		}
	}()

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	useTLS := cfg.TLSCertFile != "" && cfg.TLSKeyFile != ""
	if useTLS {
		httpServer.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS13,
		}
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logging.Info("shutting down...")
		cancel()

		shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
		defer done()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			// SSE and WebSocket streams keep connections busy.
			httpServer.Close()
		}
		metricsServer.Close()
	}()

	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				noteStore.UpdateConnectionMetrics()
				metrics.SetActiveSessions(sessions.Len())
			}
		}
	}()

	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				limiter.Cleanup(cfg.SummarizeWindow)
				if n := sessions.Cleanup(cfg.SessionTTL); n > 0 {
					metrics.RecordSessionsEvicted(n)
					metrics.SetActiveSessions(sessions.Len())
					logging.Info("evicted idle sessions", zap.Int("count", n))
				}
			}
		}
	}()

	if useTLS {
		logging.Info("server listening (TLS 1.3)",
			zap.String("addr", cfg.ListenAddr),
			zap.String("cert", cfg.TLSCertFile))
		if err := httpServer.ListenAndServeTLS(cfg.TLSCertFile, cfg.TLSKeyFile); err != http.ErrServerClosed {
			logging.Fatal("server error", zap.Error(err))
		}
	} else {
		logging.Info("server listening (HTTP)", zap.String("addr", cfg.ListenAddr))
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			logging.Fatal("server error", zap.Error(err))
		}
	}
}
