// Package ratelimit provides per-key sliding window rate limiting for the
// public endpoints. A memory-backed limiter serves single-instance
// deployments; a Redis-backed variant keeps counts consistent across
// replicas.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter answers whether a request identified by key may proceed. Keys are
// caller-defined; the HTTP layer uses the client IP and falls back to
// "unknown" when no address can be determined, so unattributable traffic
// shares one bucket instead of bypassing the limit.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// SlidingWindowLimiter is an in-memory sliding window limiter. Each key keeps
// the timestamps of its recent requests; a request is allowed when fewer than
// max timestamps fall inside the trailing window.
type SlidingWindowLimiter struct {
	mu     sync.Mutex
	hits   map[string][]time.Time
	max    int
	window time.Duration
	now    func() time.Time
}

// NewSlidingWindowLimiter creates a limiter allowing max requests per window
// per key
func NewSlidingWindowLimiter(max int, window time.Duration) *SlidingWindowLimiter {
	l := &SlidingWindowLimiter{
		hits:   make(map[string][]time.Time),
		max:    max,
		window: window,
		now:    time.Now,
	}
	go l.cleanupLoop()
	return l
}

// newSlidingWindowLimiterWithClock is the test constructor with an injected clock
func newSlidingWindowLimiterWithClock(max int, window time.Duration, now func() time.Time) *SlidingWindowLimiter {
	return &SlidingWindowLimiter{
		hits:   make(map[string][]time.Time),
		max:    max,
		window: window,
		now:    now,
	}
}

// Allow records the request and reports whether it is within the limit.
// Rejected requests are not recorded, so a client hammering the endpoint is
// unblocked as soon as its allowed requests age out of the window.
func (l *SlidingWindowLimiter) Allow(ctx context.Context, key string) (bool, error) {
	now := l.now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	recent := pruneBefore(l.hits[key], cutoff)
	if len(recent) >= l.max {
		l.hits[key] = recent
		return false, nil
	}

	l.hits[key] = append(recent, now)
	return true, nil
}

// pruneBefore drops timestamps at or before the cutoff, keeping order
func pruneBefore(ts []time.Time, cutoff time.Time) []time.Time {
	idx := 0
	for idx < len(ts) && !ts[idx].After(cutoff) {
		idx++
	}
	if idx == 0 {
		return ts
	}
	return append(ts[:0:0], ts[idx:]...)
}

// cleanupLoop periodically evicts keys with no recent activity so the map
// does not grow with one entry per client ever seen
func (l *SlidingWindowLimiter) cleanupLoop() {
	ticker := time.NewTicker(l.window)
	defer ticker.Stop()
	for range ticker.C {
		cutoff := l.now().Add(-l.window)
		l.mu.Lock()
		for key, ts := range l.hits {
			recent := pruneBefore(ts, cutoff)
			if len(recent) == 0 {
				delete(l.hits, key)
			} else {
				l.hits[key] = recent
			}
		}
		l.mu.Unlock()
	}
}
