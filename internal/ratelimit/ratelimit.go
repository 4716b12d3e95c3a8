// Package ratelimit provides a token-bucket rate limiter keyed by client,
// used to throttle inbound API requests per IP address.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Keys are client IPs, so the map grows with distinct callers. Entries idle
// longer than staleAfter are evicted by a background sweep.
const (
	sweepInterval = 5 * time.Minute
	staleAfter    = 10 * time.Minute
)

// client pairs a limiter with its last use so idle entries can be evicted.
type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// KeyedRateLimiter manages an independent token bucket per key.
type KeyedRateLimiter struct {
	mu      sync.Mutex
	clients map[string]*client
	limit   rate.Limit
	burst   int

	done     chan struct{}
	stopOnce sync.Once
}

// New creates a keyed rate limiter allowing rps requests per second per key
// with the given burst, and starts the eviction sweep.
func New(rps float64, burst int) *KeyedRateLimiter {
	krl := &KeyedRateLimiter{
		clients: make(map[string]*client),
		limit:   rate.Limit(rps),
		burst:   burst,
		done:    make(chan struct{}),
	}

	go krl.sweep()

	return krl
}

// Allow reports whether a request for the given key should be admitted.
// Never blocks.
func (krl *KeyedRateLimiter) Allow(key string) bool {
	krl.mu.Lock()
	defer krl.mu.Unlock()

	c, ok := krl.clients[key]
	if !ok {
		c = &client{limiter: rate.NewLimiter(krl.limit, krl.burst)}
		krl.clients[key] = c
	}
	c.lastSeen = time.Now()

	return c.limiter.Allow()
}

// Len returns the number of tracked keys.
func (krl *KeyedRateLimiter) Len() int {
	krl.mu.Lock()
	defer krl.mu.Unlock()
	return len(krl.clients)
}

// Stop shuts down the eviction sweep.
func (krl *KeyedRateLimiter) Stop() {
	krl.stopOnce.Do(func() {
		close(krl.done)
	})
}

func (krl *KeyedRateLimiter) sweep() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-krl.done:
			return
		case <-ticker.C:
			krl.evictStale(time.Now())
		}
	}
}

// evictStale drops entries idle longer than staleAfter. A dropped key that
// returns later simply starts with a fresh full bucket.
func (krl *KeyedRateLimiter) evictStale(now time.Time) {
	krl.mu.Lock()
	defer krl.mu.Unlock()

	for key, c := range krl.clients {
		if now.Sub(c.lastSeen) > staleAfter {
			delete(krl.clients, key)
		}
	}
}
