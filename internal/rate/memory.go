package rate

import (
	"context"
	"sync"
	"time"
)

// MemoryLimiter is the in-process counterpart of RedisLimiter. Windows
// are aligned the same way so behavior matches across backends.
type MemoryLimiter struct {
	mu     sync.Mutex
	hits   map[string]*windowCount
	max    int64
	window time.Duration
}

type windowCount struct {
	start time.Time
	n     int64
}

func NewMemoryLimiter(max int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		hits:   make(map[string]*windowCount),
		max:    int64(max),
		window: window,
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (Result, error) {
	now := time.Now().UTC()
	winStart := now.Truncate(l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	wc, ok := l.hits[key]
	if !ok || wc.start.Before(winStart) {
		wc = &windowCount{start: winStart}
		l.hits[key] = wc
	}
	wc.n++

	// Drop stale entries opportunistically so the map stays bounded.
	if len(l.hits) > 4096 {
		for k, v := range l.hits {
			if v.start.Before(winStart) {
				delete(l.hits, k)
			}
		}
	}

	remaining := l.max - wc.n
	if remaining < 0 {
		remaining = 0
	}
	left := wc.start.Add(l.window).Sub(now)

	res := Result{
		Allowed:     wc.n <= l.max,
		Remaining:   remaining,
		CurrentHits: wc.n,
		WindowTTL:   left,
	}
	if !res.Allowed {
		res.RetryAfter = left
	}
	return res, nil
}
