package handlers

import (
	"strings"
	"sync"
	"time"
)

type rateLimiter interface {
	Allow(key string) bool
}

// slidingWindowLimiter tracks request timestamps per client and admits a
// request only when fewer than limit requests landed inside the window.
// Stale clients are dropped lazily whenever their key is touched.
type slidingWindowLimiter struct {
	limit  int
	window time.Duration
	clock  func() time.Time

	mu      sync.Mutex
	history map[string][]time.Time
}

func newSlidingWindowLimiter(limit int, window time.Duration, clock func() time.Time) rateLimiter {
	if limit <= 0 || window <= 0 {
		return nil
	}
	if clock == nil {
		clock = time.Now
	}
	return &slidingWindowLimiter{
		limit:   limit,
		window:  window,
		clock:   clock,
		history: make(map[string][]time.Time),
	}
}

func (l *slidingWindowLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	key = strings.TrimSpace(key)
	if key == "" {
		key = "anonymous"
	}
	now := l.clock()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	recent := l.history[key][:0]
	for _, stamp := range l.history[key] {
		if stamp.After(cutoff) {
			recent = append(recent, stamp)
		}
	}
	if len(recent) >= l.limit {
		l.history[key] = recent
		return false
	}
	l.history[key] = append(recent, now)
	l.sweepLocked(cutoff, key)
	return true
}

// sweepLocked drops clients whose newest request predates the cutoff so the
// map does not grow with one-off callers.
func (l *slidingWindowLimiter) sweepLocked(cutoff time.Time, keep string) {
	for key, stamps := range l.history {
		if key == keep {
			continue
		}
		if len(stamps) == 0 || !stamps[len(stamps)-1].After(cutoff) {
			delete(l.history, key)
		}
	}
}
