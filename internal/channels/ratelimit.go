package channels

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// maxTrackedKeys caps the number of tracked limiter keys so a flood of
// distinct channels cannot exhaust memory.
const maxTrackedKeys = 4096

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ChannelRateLimiter is a token bucket per key (a chat channel ID).
// Safe for concurrent use.
type ChannelRateLimiter struct {
	mu      sync.Mutex
	every   rate.Limit
	burst   int
	idle    time.Duration
	entries map[string]*limiterEntry
}

// NewChannelRateLimiter allows perMinute events per key, with the given burst.
// perMinute <= 0 disables limiting.
func NewChannelRateLimiter(perMinute, burst int) *ChannelRateLimiter {
	limit := rate.Inf
	if perMinute > 0 {
		limit = rate.Limit(float64(perMinute) / 60)
	}
	return &ChannelRateLimiter{
		every:   limit,
		burst:   max(burst, 1),
		idle:    10 * time.Minute,
		entries: make(map[string]*limiterEntry),
	}
}

// Allow reports whether an event for key may proceed now.
func (r *ChannelRateLimiter) Allow(key string) bool {
	return r.allowAt(key, time.Now())
}

func (r *ChannelRateLimiter) allowAt(key string, now time.Time) bool {
	if r.every == rate.Inf {
		return true
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.entries) >= maxTrackedKeys {
		for k, e := range r.entries {
			if now.Sub(e.lastSeen) >= r.idle {
				delete(r.entries, k)
			}
		}
		// Hard eviction if still at cap (arbitrary order via map iteration)
		for len(r.entries) >= maxTrackedKeys {
			for k := range r.entries {
				delete(r.entries, k)
				break
			}
		}
	}

	e, ok := r.entries[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(r.every, r.burst)}
		r.entries[key] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1)
}

func (r *ChannelRateLimiter) tracked() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
