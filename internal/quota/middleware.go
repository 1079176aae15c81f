package quota

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"

	"github.com/codenest/codenest/internal/metrics"
	"github.com/codenest/codenest/pkg/protocol"
)

// TooManyRequestsMessage is the fixed body text of a rejected request.
const TooManyRequestsMessage = "Too many requests. Please try again later."

// KeyFunc derives the rate-limit key of a request.
type KeyFunc func(r *http.Request) string

// ClientIP keys requests by client address. With trustProxy set, the first
// X-Forwarded-For entry (or X-Real-IP) wins over the socket address.
func ClientIP(trustProxy bool) KeyFunc {
	return func(r *http.Request) string {
		if trustProxy {
			if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
				first, _, _ := strings.Cut(fwd, ",")
				if ip := strings.TrimSpace(first); ip != "" {
					return ip
				}
			}
			if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
				return ip
			}
		}
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			return r.RemoteAddr
		}
		return host
	}
}

// RateLimitMiddleware rejects requests over the limiter's budget with 429.
// No Retry-After header is sent.
func RateLimitMiddleware(limiter *WindowLimiter, key KeyFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow(key(r)) {
				metrics.RecordRateLimitHit()
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				json.NewEncoder(w).Encode(protocol.ErrorResponse{
					Error: TooManyRequestsMessage,
					Code:  http.StatusTooManyRequests,
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
