package http

import (
	"sync"
	"time"
)

// Mutating endpoints share a fixed per-IP budget; reads are never limited.
const (
	writeBudget    = 60
	limiterWindow  = time.Minute
	limiterStale   = 10 * time.Minute
	evictionPeriod = 5 * time.Minute
)

// rateLimiter counts mutating requests per client IP over a fixed window.
type rateLimiter struct {
	mu      sync.Mutex
	windows map[string]*writeWindow
	done    chan struct{}
	once    sync.Once
}

type writeWindow struct {
	startedAt time.Time
	count     int
}

func newRateLimiter() *rateLimiter {
	rl := &rateLimiter{
		windows: make(map[string]*writeWindow),
		done:    make(chan struct{}),
	}
	go rl.evictLoop()
	return rl
}

func (rl *rateLimiter) evictLoop() {
	ticker := time.NewTicker(evictionPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.evictIdle()
		case <-rl.done:
			return
		}
	}
}

// evictIdle drops windows for clients that stopped writing.
func (rl *rateLimiter) evictIdle() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-limiterStale)
	for ip, w := range rl.windows {
		if w.startedAt.Before(cutoff) {
			delete(rl.windows, ip)
		}
	}
}

// allow consumes one slot from the client's current window. A window older
// than limiterWindow is replaced rather than refilled.
func (rl *rateLimiter) allow(clientIP string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	w, ok := rl.windows[clientIP]
	if !ok || now.Sub(w.startedAt) >= limiterWindow {
		rl.windows[clientIP] = &writeWindow{startedAt: now, count: 1}
		return true
	}

	w.count++
	return w.count <= writeBudget
}

// stop ends the eviction goroutine. Idempotent.
func (rl *rateLimiter) stop() {
	rl.once.Do(func() { close(rl.done) })
}
