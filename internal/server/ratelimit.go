package server

import (
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/me/madrasa/pkg/model"
)

// rateLimiter is a fixed-window per-key counter. Good enough for slowing
// down credential guessing on the auth endpoints.
type rateLimiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	buckets map[string]*rateBucket
	now     func() time.Time
}

type rateBucket struct {
	count       int
	windowStart time.Time
}

func newRateLimiter(limit int, window time.Duration) *rateLimiter {
	return &rateLimiter{
		limit:   limit,
		window:  window,
		buckets: make(map[string]*rateBucket),
		now:     time.Now,
	}
}

// allow counts a request against the key's current window. When the budget
// is exhausted it reports how long until the window resets.
func (l *rateLimiter) allow(key string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b := l.buckets[key]
	if b == nil || now.Sub(b.windowStart) >= l.window {
		if len(l.buckets) > 4096 {
			l.sweep(now)
		}
		b = &rateBucket{windowStart: now}
		l.buckets[key] = b
	}

	b.count++
	if b.count > l.limit {
		return false, b.windowStart.Add(l.window).Sub(now)
	}
	return true, 0
}

// sweep drops stale buckets. Caller holds the lock.
func (l *rateLimiter) sweep(now time.Time) {
	for key, b := range l.buckets {
		if now.Sub(b.windowStart) >= l.window {
			delete(l.buckets, key)
		}
	}
}

// rateLimit applies the per-IP limiter. RealIP middleware has already
// resolved the client address.
func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter == nil {
			next.ServeHTTP(w, r)
			return
		}

		ip := r.RemoteAddr
		if host, _, err := net.SplitHostPort(ip); err == nil {
			ip = host
		}

		ok, retryAfter := s.limiter.allow(ip)
		if !ok {
			secs := int(retryAfter.Seconds())
			if secs < 1 {
				secs = 1
			}
			w.Header().Set("Retry-After", fmt.Sprintf("%d", secs))
			respondError(w, http.StatusTooManyRequests, model.ErrRateLimited,
				"Too many requests, please try again later")
			return
		}
		next.ServeHTTP(w, r)
	})
}
