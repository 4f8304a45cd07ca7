package api

import (
	"sync"
	"sync/atomic"
	"time"

	"rentbook/internal/config"

	"golang.org/x/time/rate"
)

const (
	limiterIdleTTL       = 10 * time.Minute
	limiterSweepInterval = time.Minute
)

// rateLimiter keeps one token bucket per client key. Both surfaces share the type;
// REST keys by user, gRPC by API key or peer address.
// Buckets idle for longer than idleTTL are dropped; by then they have refilled,
// so a fresh bucket behaves the same.
type rateLimiter struct {
	limiters  sync.Map // key -> *limiterEntry
	rps       float64
	burst     int
	idleTTL   time.Duration
	lastSweep atomic.Int64
	now       func() time.Time
}

type limiterEntry struct {
	lim      *rate.Limiter
	lastSeen atomic.Int64
}

func newRateLimiter(cfg config.APIRateLimitConfig) *rateLimiter {
	burst := cfg.Burst
	if burst <= 0 {
		burst = 5
	}
	l := &rateLimiter{rps: cfg.RPS, burst: burst, idleTTL: limiterIdleTTL, now: time.Now}
	if l.rps > 0 {
		if refill := time.Duration(float64(burst) / l.rps * float64(time.Second)); refill > l.idleTTL {
			l.idleTTL = refill
		}
	}
	return l
}

func (l *rateLimiter) enabled() bool {
	return l != nil && l.rps > 0
}

// allow reports whether key may proceed. A disabled limiter allows everything.
func (l *rateLimiter) allow(key string) bool {
	if !l.enabled() {
		return true
	}
	now := l.now()
	l.maybeSweep(now)

	e := l.getEntry(key)
	e.lastSeen.Store(now.UnixNano())
	return e.lim.AllowN(now, 1)
}

func (l *rateLimiter) getEntry(key string) *limiterEntry {
	if v, ok := l.limiters.Load(key); ok {
		return v.(*limiterEntry)
	}
	e := &limiterEntry{lim: rate.NewLimiter(rate.Limit(l.rps), l.burst)}
	actual, _ := l.limiters.LoadOrStore(key, e)
	return actual.(*limiterEntry)
}

// maybeSweep evicts idle buckets at most once per sweep interval.
func (l *rateLimiter) maybeSweep(now time.Time) {
	last := l.lastSweep.Load()
	if now.UnixNano()-last < int64(limiterSweepInterval) {
		return
	}
	if !l.lastSweep.CompareAndSwap(last, now.UnixNano()) {
		return
	}

	cutoff := now.Add(-l.idleTTL).UnixNano()
	l.limiters.Range(func(k, v any) bool {
		if v.(*limiterEntry).lastSeen.Load() < cutoff {
			l.limiters.Delete(k)
		}
		return true
	})
}
