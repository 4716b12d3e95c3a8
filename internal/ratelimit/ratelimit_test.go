package ratelimit

import (
	"testing"
	"time"
)

func TestKeyedRateLimiter_Allow(t *testing.T) {
	tests := []struct {
		name     string
		rps      float64
		burst    int
		calls    int
		wantPass int
	}{
		{
			name:     "burst admits initial requests",
			rps:      1,
			burst:    3,
			calls:    3,
			wantPass: 3,
		},
		{
			name:     "exceeding burst is rejected",
			rps:      1,
			burst:    2,
			calls:    5,
			wantPass: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rl := New(tt.rps, tt.burst)
			defer rl.Stop()

			passed := 0
			for i := 0; i < tt.calls; i++ {
				if rl.Allow("192.0.2.1") {
					passed++
				}
			}

			if passed != tt.wantPass {
				t.Errorf("Allow() passed %d, want %d", passed, tt.wantPass)
			}
		})
	}
}

func TestKeyedRateLimiter_IndependentKeys(t *testing.T) {
	rl := New(1, 1)
	defer rl.Stop()

	// One client exhausting its bucket must not affect another.
	rl.Allow("192.0.2.1")
	if rl.Allow("192.0.2.1") {
		t.Error("first client should be exhausted")
	}
	if !rl.Allow("192.0.2.2") {
		t.Error("second client should still be admitted")
	}
}

func TestKeyedRateLimiter_EvictStale(t *testing.T) {
	rl := New(1, 1)
	defer rl.Stop()

	rl.Allow("192.0.2.1")
	rl.Allow("192.0.2.2")
	if got := rl.Len(); got != 2 {
		t.Fatalf("Len() = %d, want 2", got)
	}

	// Sweeping well past the idle window drops both entries.
	rl.evictStale(time.Now().Add(staleAfter + time.Minute))
	if got := rl.Len(); got != 0 {
		t.Errorf("Len() after eviction = %d, want 0", got)
	}

	// An evicted client comes back with a full bucket.
	if !rl.Allow("192.0.2.1") {
		t.Error("returning client should be admitted with a fresh bucket")
	}
}

func TestKeyedRateLimiter_EvictStaleKeepsRecent(t *testing.T) {
	rl := New(1, 1)
	defer rl.Stop()

	rl.Allow("192.0.2.1")
	rl.evictStale(time.Now())

	if got := rl.Len(); got != 1 {
		t.Errorf("Len() = %d, want 1: recently seen clients must survive the sweep", got)
	}
}

func TestKeyedRateLimiter_StopIsIdempotent(t *testing.T) {
	rl := New(1, 1)
	rl.Stop()
	rl.Stop()
}
