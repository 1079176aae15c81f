// Package auth issues and validates the signed session tokens that bind a
// client to its workspace.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/codenest/codenest/internal/logging"
	"github.com/codenest/codenest/internal/metrics"
	"github.com/codenest/codenest/pkg/protocol"
)

type contextKey string

const (
	claimsContextKey contextKey = "claims"

	// Issuer is stamped on every token this package signs.
	Issuer = "codenest"

	// DefaultTTL is used when New is given a non-positive lifetime.
	DefaultTTL = 24 * time.Hour
)

// ErrMissingSession is returned for a token that verifies but carries no session id.
var ErrMissingSession = errors.New("token has no session id")

// Claims holds JWT token claims.
type Claims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// Auth handles JWT authentication.
type Auth struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// New creates a new Auth handler.
func New(secret string, ttl time.Duration) *Auth {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Auth{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// TTL returns the lifetime of issued tokens.
func (a *Auth) TTL() time.Duration {
	return a.ttl
}

// IssueToken signs a token for the given session.
func (a *Auth) IssueToken(sessionID string) (string, time.Time, error) {
	if sessionID == "" {
		return "", time.Time{}, ErrMissingSession
	}
	now := a.now()
	claims := &Claims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sessionID,
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    Issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenStr, err := token.SignedString(a.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return tokenStr, claims.ExpiresAt.Time, nil
}

// Validate parses and verifies a token string.
func (a *Auth) Validate(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	}, jwt.WithIssuer(Issuer), jwt.WithTimeFunc(a.now))

	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	if claims.SessionID == "" {
		return nil, ErrMissingSession
	}
	return claims, nil
}

// Middleware returns HTTP middleware that validates JWT tokens.
func (a *Auth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenStr := extractToken(r)
		if tokenStr == "" {
			metrics.RecordAuthAttempt(false)
			sendAuthError(w, http.StatusUnauthorized, "missing authentication token")
			return
		}

		claims, err := a.Validate(tokenStr)
		if err != nil {
			metrics.RecordAuthAttempt(false)
			sendAuthError(w, http.StatusUnauthorized, "invalid token: "+err.Error())
			return
		}

		metrics.RecordAuthAttempt(true)
		ctx := logging.WithSession(WithClaims(r.Context(), claims), claims.SessionID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetClaims extracts claims from the request context.
func GetClaims(ctx context.Context) *Claims {
	claims, _ := ctx.Value(claimsContextKey).(*Claims)
	return claims
}

// SessionID returns the session bound to the request, or "".
func SessionID(ctx context.Context) string {
	if c := GetClaims(ctx); c != nil {
		return c.SessionID
	}
	return ""
}

// WithClaims injects claims into a context.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey, claims)
}

func extractToken(r *http.Request) string {
	// Bearer token from Authorization header
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	// Browsers cannot set headers on EventSource or WebSocket handshakes.
	return r.URL.Query().Get("token")
}

func sendAuthError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(protocol.ErrorResponse{
		Error: message,
		Code:  code,
	})
}
