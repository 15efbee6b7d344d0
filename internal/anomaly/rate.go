package anomaly

import (
	"sync"
	"time"
)

const (
	DefaultRateLimit  = 10
	DefaultRateWindow = time.Second
)

type rateWindow struct {
	count int
	start time.Time
}

// RateLimiter counts frames per source MAC in fixed windows. A window
// restarts once more than Window has elapsed since it opened.
type RateLimiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	now     func() time.Time
	windows map[string]*rateWindow
}

// RateOption customizes a RateLimiter.
type RateOption func(*RateLimiter)

// WithClock replaces time.Now, mainly for tests and capture replay.
func WithClock(now func() time.Time) RateOption {
	return func(r *RateLimiter) {
		if now != nil {
			r.now = now
		}
	}
}

func NewRateLimiter(limit int, window time.Duration, opts ...RateOption) *RateLimiter {
	if limit <= 0 {
		limit = DefaultRateLimit
	}
	if window <= 0 {
		window = DefaultRateWindow
	}
	r := &RateLimiter{
		limit:   limit,
		window:  window,
		now:     time.Now,
		windows: make(map[string]*rateWindow),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Check counts one frame from src and returns Block once the count within
// the current window exceeds the limit.
func (r *RateLimiter) Check(src string) Decision {
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	w, ok := r.windows[src]
	if !ok {
		w = &rateWindow{start: now}
		r.windows[src] = w
	}
	if now.Sub(w.start) > r.window {
		w.count = 0
		w.start = now
	}
	w.count++
	if w.count > r.limit {
		return Block
	}
	return Allow
}

// Tracked returns the number of sources with a window.
func (r *RateLimiter) Tracked() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.windows)
}
