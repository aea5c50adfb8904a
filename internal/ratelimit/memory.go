package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryLimiter keeps accepted timestamps per key. Keys idle for longer than
// the window are swept on a later call.
type MemoryLimiter struct {
	mu        sync.Mutex
	cfg       Config
	hits      map[string][]time.Time
	now       func() time.Time
	lastSweep time.Time
}

type MemoryOption func(*MemoryLimiter)

func WithClock(clock func() time.Time) MemoryOption {
	return func(l *MemoryLimiter) {
		if clock != nil {
			l.now = clock
		}
	}
}

func NewMemoryLimiter(cfg Config, opts ...MemoryOption) *MemoryLimiter {
	l := &MemoryLimiter{
		cfg:  cfg.normalized(),
		hits: make(map[string][]time.Time),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (Decision, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.cfg.Window)
	l.sweep(now, cutoff)

	window := trim(l.hits[key], cutoff)
	if len(window) >= l.cfg.Max {
		l.hits[key] = window
		return Decision{
			Allowed:    false,
			Remaining:  0,
			RetryAfter: window[0].Add(l.cfg.Window).Sub(now),
		}, nil
	}
	window = append(window, now)
	l.hits[key] = window
	return Decision{Allowed: true, Remaining: l.cfg.Max - len(window)}, nil
}

func (l *MemoryLimiter) sweep(now, cutoff time.Time) {
	if now.Sub(l.lastSweep) < l.cfg.Window {
		return
	}
	l.lastSweep = now
	for key, hits := range l.hits {
		if len(hits) == 0 || !hits[len(hits)-1].After(cutoff) {
			delete(l.hits, key)
		}
	}
}

// Keys reports how many keys are tracked.
func (l *MemoryLimiter) Keys() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.hits)
}

func trim(hits []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(hits) && !hits[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return hits
	}
	return append(hits[:0:0], hits[i:]...)
}
