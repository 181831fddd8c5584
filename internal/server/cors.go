// Package server provides shared middleware for the HTTP API.
package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/qurani-maai/quranchat/internal/logging"
)

// SlowRequestThreshold is the default duration above which Timing warns.
const SlowRequestThreshold = 500 * time.Millisecond

var (
	corsMethods = strings.Join([]string{http.MethodGet, http.MethodPost, http.MethodOptions}, ", ")
	corsHeaders = "Content-Type, Authorization, X-API-Key, " + logging.RequestIDHeader
	corsExpose  = logging.RequestIDHeader + ", X-RateLimit-Limit, X-RateLimit-Remaining, X-RateLimit-Reset, Retry-After"
)

// CORS answers cross-origin requests. With no origins every origin is
// allowed without credentials. Otherwise only the listed origins get CORS
// headers, and a preflight from any other origin is refused.
func CORS(origins []string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			h := w.Header()

			switch {
			case len(allowed) == 0:
				h.Set("Access-Control-Allow-Origin", "*")
			case allowed[origin]:
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Access-Control-Allow-Credentials", "true")
				h.Add("Vary", "Origin")
			default:
				if r.Method == http.MethodOptions {
					w.WriteHeader(http.StatusForbidden)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			h.Set("Access-Control-Allow-Methods", corsMethods)
			h.Set("Access-Control-Allow-Headers", corsHeaders)
			h.Set("Access-Control-Expose-Headers", corsExpose)
			if r.Method == http.MethodOptions {
				h.Set("Access-Control-Max-Age", "600")
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Timing logs each request's duration, at warn level above threshold.
func Timing(threshold time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			d := time.Since(start)
			log := logging.DebugContext
			msg := "request timing"
			if d > threshold {
				log, msg = logging.WarnContext, "slow request"
			}
			log(r.Context(), msg, "method", r.Method, "path", r.URL.Path, "duration_ms", d.Milliseconds())
		})
	}
}
