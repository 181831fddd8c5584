package api

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RateLimiterConfig holds rate limiter configuration.
type RateLimiterConfig struct {
	RequestsPerMinute int
	BurstSize         int
}

// tokenBucket holds up to capacity tokens and refills at rate tokens per
// second.
type tokenBucket struct {
	mu       sync.Mutex
	tokens   float64
	capacity float64
	rate     float64
	last     time.Time
}

func newTokenBucket(capacity, rate float64, now time.Time) *tokenBucket {
	return &tokenBucket{tokens: capacity, capacity: capacity, rate: rate, last: now}
}

// take spends one token if available. It returns the tokens left and the
// time at which the bucket will be full again.
func (b *tokenBucket) take(now time.Time) (ok bool, left int, full time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if elapsed := now.Sub(b.last).Seconds(); elapsed > 0 {
		b.tokens = min(b.capacity, b.tokens+elapsed*b.rate)
	}
	b.last = now

	if b.tokens >= 1 {
		b.tokens--
		ok = true
	}
	full = now
	if b.tokens < b.capacity && b.rate > 0 {
		full = now.Add(time.Duration((b.capacity - b.tokens) / b.rate * float64(time.Second)))
	}
	return ok, int(b.tokens), full
}

func (b *tokenBucket) lastUsed() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.last
}

// RateLimiter keeps one bucket per client IP. Buckets idle for longer
// than idleTTL are dropped by a background sweep.
type RateLimiter struct {
	config  RateLimiterConfig
	idleTTL time.Duration
	now     func() time.Time

	mu      sync.Mutex
	buckets map[string]*tokenBucket

	done      chan struct{}
	closeOnce sync.Once
}

// NewRateLimiter creates a rate limiter and starts its sweep. Call Close
// to stop it.
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	rl := &RateLimiter{
		config:  config,
		idleTTL: 5 * time.Minute,
		now:     time.Now,
		buckets: make(map[string]*tokenBucket),
		done:    make(chan struct{}),
	}
	go rl.sweepEvery(time.Minute)
	return rl
}

// Close stops the sweep.
func (rl *RateLimiter) Close() {
	rl.closeOnce.Do(func() { close(rl.done) })
}

func (rl *RateLimiter) bucket(ip string) *tokenBucket {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	b, ok := rl.buckets[ip]
	if !ok {
		b = newTokenBucket(float64(rl.config.BurstSize), float64(rl.config.RequestsPerMinute)/60, rl.now())
		rl.buckets[ip] = b
	}
	return b
}

func (rl *RateLimiter) sweepEvery(d time.Duration) {
	t := time.NewTicker(d)
	defer t.Stop()
	for {
		select {
		case <-rl.done:
			return
		case <-t.C:
			rl.sweep(rl.now())
		}
	}
}

func (rl *RateLimiter) sweep(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for ip, b := range rl.buckets {
		if now.Sub(b.lastUsed()) > rl.idleTTL {
			delete(rl.buckets, ip)
		}
	}
}

// Allow spends one token from ip's bucket.
func (rl *RateLimiter) Allow(ip string) bool {
	ok, _, _ := rl.bucket(ip).take(rl.now())
	return ok
}

// Middleware rejects requests over the limit with 429 and reports the
// limit in X-RateLimit-* headers.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		now := rl.now()
		ok, left, full := rl.bucket(clientIP(r)).take(now)

		h := w.Header()
		h.Set("X-RateLimit-Limit", strconv.Itoa(rl.config.RequestsPerMinute))
		h.Set("X-RateLimit-Remaining", strconv.Itoa(left))
		h.Set("X-RateLimit-Reset", strconv.FormatInt(full.Unix(), 10))

		if !ok {
			// One token is back after 1/rate seconds.
			wait := 1
			if rl.config.RequestsPerMinute > 0 {
				wait = max(1, 60/rl.config.RequestsPerMinute)
			}
			h.Set("Retry-After", strconv.Itoa(wait))
			respondError(w, http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED",
				"Rate limit exceeded. Try again in "+strconv.Itoa(wait)+" seconds.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP prefers the first valid X-Forwarded-For entry, then X-Real-IP,
// then the connection address.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); net.ParseIP(ip) != nil {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); net.ParseIP(ip) != nil {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if net.ParseIP(host) != nil {
		return host
	}
	return "unknown"
}
