// Package quota limits how often a client may call expensive endpoints.
package quota

import (
	"sync"
	"time"
)

// WindowLimiter allows at most limit requests per key in a fixed window.
// A key's window starts at its first request and is reset lazily by the
// first request seen after it expires.
type WindowLimiter struct {
	mu      sync.Mutex
	windows map[string]*window
	limit   int
	period  time.Duration
	now     func() time.Time
}

type window struct {
	count int
	start time.Time
}

// NewWindowLimiter creates a limiter. limit <= 0 disables limiting.
func NewWindowLimiter(limit int, period time.Duration) *WindowLimiter {
	return &WindowLimiter{
		windows: make(map[string]*window),
		limit:   limit,
		period:  period,
		now:     time.Now,
	}
}

// Allow records a request for key and reports whether it is within the
// limit. Rejected requests do not extend or reset the window.
func (l *WindowLimiter) Allow(key string) bool {
	if l.limit <= 0 {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[key]
	if !ok || now.Sub(w.start) >= l.period {
		l.windows[key] = &window{count: 1, start: now}
		return true
	}
	if w.count >= l.limit {
		return false
	}
	w.count++
	return true
}

// Remaining returns how many requests key may still make in its window.
func (l *WindowLimiter) Remaining(key string) int {
	if l.limit <= 0 {
		return -1
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok || l.now().Sub(w.start) >= l.period {
		return l.limit
	}
	return l.limit - w.count
}

// Cleanup drops windows that expired more than maxAge ago.
func (l *WindowLimiter) Cleanup(maxAge time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-(l.period + maxAge))
	for key, w := range l.windows {
		if w.start.Before(cutoff) {
			delete(l.windows, key)
		}
	}
}
