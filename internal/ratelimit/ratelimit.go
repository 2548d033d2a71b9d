// Package ratelimit implements the fixed-window admission counter applied to
// plan creation. It is intentionally coarse: one window start and count per
// client key, no sliding window, no shared state across processes. The goal
// is to blunt accidental request storms from a single origin, not fairness.
package ratelimit

import (
	"sync"
	"time"
)

// Defaults applied when a limiter is configured with non-positive values.
const (
	DefaultMax    = 30
	DefaultWindow = 60 * time.Second
)

type window struct {
	count int
	start time.Time
}

// Limiter counts requests per key within a fixed window.
// It is safe for concurrent use.
type Limiter struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	windows map[string]*window
	now     func() time.Time
}

// New creates a Limiter allowing max requests per window length per key.
// Non-positive values fall back to the permissive defaults.
func New(max int, windowLen time.Duration) *Limiter {
	if max <= 0 {
		max = DefaultMax
	}
	if windowLen <= 0 {
		windowLen = DefaultWindow
	}
	return &Limiter{
		max:     max,
		window:  windowLen,
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

// Allow records a request for key and reports whether it is admitted.
// When the elapsed time since the window start meets or exceeds the window
// length, the window resets with this request as its first.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[key]
	if !ok || now.Sub(w.start) >= l.window {
		l.windows[key] = &window{count: 1, start: now}
		return true
	}

	if w.count >= l.max {
		return false
	}
	w.count++
	return true
}

// Reset drops all tracked windows.
func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.windows = make(map[string]*window)
}

// SetNow overrides the clock. Test helper.
func (l *Limiter) SetNow(now func() time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
}
