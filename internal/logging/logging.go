// Package logging provides structured logging with zap.
package logging

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type contextKey string

const (
	loggerKey  contextKey = "logger"
	requestKey contextKey = "request"
)

var globalLogger atomic.Pointer[zap.Logger]

// Config holds logging configuration.
type Config struct {
	Level      string // debug, info, warn, error
	Format     string // json, console
	OutputPath string // stdout, stderr, or file path
}

// Init initializes the global logger.
func Init(cfg Config) error {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var config zap.Config
	if cfg.Format == "console" {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		config = zap.NewProductionConfig()
		config.EncoderConfig.TimeKey = "ts"
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	config.Level = zap.NewAtomicLevelAt(level)
	if cfg.OutputPath != "" {
		config.OutputPaths = []string{cfg.OutputPath}
		config.ErrorOutputPaths = []string{cfg.OutputPath}
	}

	logger, err := config.Build(
		zap.AddCallerSkip(1),
		zap.AddStacktrace(zapcore.ErrorLevel),
	)
	if err != nil {
		return err
	}

	globalLogger.Store(logger.With(zap.String("service", "codenest")))
	return nil
}

// Sync flushes any buffered log entries.
func Sync() error {
	if l := globalLogger.Load(); l != nil {
		return l.Sync()
	}
	return nil
}

// L returns the global logger. Before Init it falls back to a production
// logger.
func L() *zap.Logger {
	if l := globalLogger.Load(); l != nil {
		return l
	}
	l, _ := zap.NewProduction(zap.AddCallerSkip(1))
	globalLogger.CompareAndSwap(nil, l)
	return globalLogger.Load()
}

// WithContext returns the request-scoped logger, or the global logger.
func WithContext(ctx context.Context) *zap.Logger {
	if logger, ok := ctx.Value(loggerKey).(*zap.Logger); ok {
		return logger
	}
	return L()
}

// WithSession tags the request logger with a workspace session. The
// session also shows up on the middleware's completion line.
func WithSession(ctx context.Context, id string) context.Context {
	if info, ok := ctx.Value(requestKey).(*requestInfo); ok {
		info.session.Store(&id)
	}
	return context.WithValue(ctx, loggerKey, WithContext(ctx).With(Session(id)))
}

func Debug(msg string, fields ...zap.Field) { L().Debug(msg, fields...) }
func Info(msg string, fields ...zap.Field)  { L().Info(msg, fields...) }
func Warn(msg string, fields ...zap.Field)  { L().Warn(msg, fields...) }
func Error(msg string, fields ...zap.Field) { L().Error(msg, fields...) }
func Fatal(msg string, fields ...zap.Field) { L().Fatal(msg, fields...) }

var requestIDCounter atomic.Uint64

func newRequestID() string {
	return fmt.Sprintf("%s-%06x", time.Now().Format("20060102150405"), requestIDCounter.Add(1))
}

// requestInfo is filled in by inner handlers while the request runs.
type requestInfo struct {
	session atomic.Pointer[string]
}

// responseWriter captures status and size. Flush, Hijack and Unwrap keep
// SSE and WebSocket handlers working behind the middleware.
type responseWriter struct {
	http.ResponseWriter
	status int
	size   int64
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.size += int64(n)
	return n, err
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("logging: response writer does not support hijacking")
	}
	return h.Hijack()
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// quiet reports paths polled often enough that their completion lines
// belong at debug level.
func quiet(path string) bool {
	return path == "/health" || strings.HasSuffix(path, "/events")
}

// Middleware assigns a request ID, exposes it as X-Request-ID and logs one
// line per completed request. Server errors log at error level, client
// errors at warn.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = newRequestID()
		}
		w.Header().Set("X-Request-ID", requestID)

		info := &requestInfo{}
		logger := L().With(zap.String("request_id", requestID))
		ctx := context.WithValue(r.Context(), loggerKey, logger)
		ctx = context.WithValue(ctx, requestKey, info)

		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r.WithContext(ctx))

		fields := []zap.Field{
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rw.status),
			zap.Int64("size", rw.size),
			zap.Duration("duration", time.Since(start)),
		}
		if s := info.session.Load(); s != nil {
			fields = append(fields, Session(*s))
		}

		switch {
		case rw.status >= 500:
			logger.Error("request completed", fields...)
		case rw.status >= 400:
			logger.Warn("request completed", fields...)
		case quiet(r.URL.Path):
			logger.Debug("request completed", fields...)
		default:
			logger.Info("request completed", fields...)
		}
	})
}

// Field helpers for common fields.
func String(key, val string) zap.Field { return zap.String(key, val) }

func Err(err error) zap.Field { return zap.Error(err) }

func Duration(key string, val time.Duration) zap.Field { return zap.Duration(key, val) }

// Session tags a log entry with a workspace session id.
func Session(id string) zap.Field {
	return zap.String("session", id)
}
