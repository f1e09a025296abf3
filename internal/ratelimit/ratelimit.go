// package ratelimit provides a per-client token-bucket limiter for the gate
// and queue endpoints, which face kiosk hardware that can wedge into retry
// loops.
package ratelimit

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/time/rate"
)

// KeyFunc derives the limiter key for a request.
type KeyFunc func(r *http.Request) string

// DefaultKeyFunc keys by client IP, preferring the first X-Forwarded-For hop
// when trustXFF is set.
func DefaultKeyFunc(trustXFF bool) KeyFunc {
	return func(r *http.Request) string {
		if trustXFF {
			if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
				if ip := strings.TrimSpace(strings.Split(xff, ",")[0]); ip != "" {
					return ip
				}
			}
		}
		host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
		if err == nil && host != "" {
			return host
		}
		if r.RemoteAddr != "" {
			return r.RemoteAddr
		}
		return "unknown"
	}
}

// Limiter keeps one token bucket per client key.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*rate.Limiter
	rps     rate.Limit
	burst   int
}

func New(rps float64, burst int) *Limiter {
	if rps <= 0 {
		rps = 10
	}
	if burst <= 0 {
		burst = int(rps)
	}
	return &Limiter{
		buckets: map[string]*rate.Limiter{},
		rps:     rate.Limit(rps),
		burst:   burst,
	}
}

func (l *Limiter) bucket(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.buckets[key]
	if !ok {
		b = rate.NewLimiter(l.rps, l.burst)
		l.buckets[key] = b
	}
	return b
}

// Allow reports whether one request for the key may proceed now.
func (l *Limiter) Allow(key string) bool {
	return l.bucket(key).Allow()
}

// Middleware rejects over-limit requests with 429 and a Retry-After hint.
func (l *Limiter) Middleware(keyFn KeyFunc) func(next http.Handler) http.Handler {
	if keyFn == nil {
		keyFn = DefaultKeyFunc(false)
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Allow(keyFn(r)) {
				w.Header().Set("Retry-After", strconv.Itoa(1))
				http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
