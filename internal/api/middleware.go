package api

import (
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/ess007/beathealth-outreach/internal/api/respond"
)

// --------------------------------------------------------------------------
// Request timing middleware
// --------------------------------------------------------------------------

// TimingMiddleware adds X-Process-Time header to all responses.
func TimingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		elapsed := time.Since(start)
		w.Header().Set("X-Process-Time", fmt.Sprintf("%.2fms", float64(elapsed.Microseconds())/1000.0))
	})
}

// --------------------------------------------------------------------------
// Caller rate limiting (token bucket per service credential)
// --------------------------------------------------------------------------

// The trigger surface is called by schedulers and ops tooling, not browsers,
// so the limiter keys on the authenticated service subject (set by
// ServiceAuthMiddleware) and only falls back to the client IP on routes
// without a credential. A batch run is expensive; one runaway scheduler must
// not be able to stack them.

const (
	limiterSweepEvery = 5 * time.Minute
	limiterIdleAfter  = 15 * time.Minute
)

type callerEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type callerLimiter struct {
	mu        sync.Mutex
	entries   map[string]*callerEntry
	rate      rate.Limit
	burst     int
	lastSweep time.Time
	now       func() time.Time
}

func newCallerLimiter(requestsPerWindow int, window time.Duration) *callerLimiter {
	rps := float64(requestsPerWindow) / window.Seconds()
	burst := requestsPerWindow / 2
	if burst < 1 {
		burst = 1
	}
	return &callerLimiter{
		entries: make(map[string]*callerEntry),
		rate:    rate.Limit(rps),
		burst:   burst,
		now:     time.Now,
	}
}

// allow checks the caller's bucket, creating it on first sight. Idle
// callers are swept so one-off ops credentials do not accumulate forever.
func (l *callerLimiter) allow(caller string) bool {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) >= limiterSweepEvery {
		l.sweepLocked(now)
		l.lastSweep = now
	}

	e, ok := l.entries[caller]
	if !ok {
		e = &callerEntry{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.entries[caller] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1)
}

func (l *callerLimiter) sweepLocked(now time.Time) {
	for caller, e := range l.entries {
		if now.Sub(e.lastSeen) >= limiterIdleAfter {
			delete(l.entries, caller)
		}
	}
}

// callerKey identifies the requester: the service subject when the request
// passed ServiceAuthMiddleware, otherwise the client IP.
func callerKey(r *http.Request) string {
	if sub := CallerSubject(r.Context()); sub != "" {
		return "svc:" + sub
	}
	ip, _, _ := net.SplitHostPort(r.RemoteAddr)
	if ip == "" {
		ip = r.RemoteAddr
	}
	return "ip:" + ip
}

// RateLimitMiddleware returns middleware that rate-limits per caller
// credential (falling back to client IP).
func RateLimitMiddleware(requestsPerWindow int, window time.Duration) func(http.Handler) http.Handler {
	limiter := newCallerLimiter(requestsPerWindow, window)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.allow(callerKey(r)) {
				w.Header().Set("Retry-After", "60")
				respond.WriteError(w, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
