// Pulsewire - Real-Time Event Ingestion and Analytics Fan-Out
// Copyright 2026 BiopticBug
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BiopticBug/pulsewire

package httpapi

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/BiopticBug/pulsewire/internal/auth"
	"github.com/BiopticBug/pulsewire/internal/logging"
)

// chiMiddleware adapts the existing func(http.HandlerFunc) http.HandlerFunc
// middleware shape (internal/middleware) to Chi's func(http.Handler) http.Handler.
func chiMiddleware(mw func(http.HandlerFunc) http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return mw(next.ServeHTTP)
	}
}

// corsMiddleware builds the go-chi/cors handler for the configured origin
// allow-list. An empty list permits any origin, mirroring the streaming
// endpoint's open-by-default behavior when no origin list is configured.
func corsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	origins := allowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: false,
		MaxAge:           300,
	})
}

// sourceLimiters lazily creates and caches one token-bucket limiter per
// source IP, the actual requests-per-second enforcement backing the coarse
// rate limit on the ingest route. httprate.LimitByIP partitions and windows
// requests by source; the token bucket smooths bursts within that window
// rather than letting a source spend its whole per-second budget in one
// instant.
type sourceLimiters struct {
	mu        sync.Mutex
	perSecond int
	byIP      map[string]*rate.Limiter
}

func newSourceLimiters(requestsPerSecond int) *sourceLimiters {
	return &sourceLimiters{perSecond: requestsPerSecond, byIP: make(map[string]*rate.Limiter)}
}

func (s *sourceLimiters) allow(ip string) bool {
	s.mu.Lock()
	limiter, ok := s.byIP[ip]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(s.perSecond), s.perSecond)
		s.byIP[ip] = limiter
	}
	s.mu.Unlock()
	return limiter.Allow()
}

func tokenBucketPerSource(requestsPerSecond int) func(http.Handler) http.Handler {
	limiters := newSourceLimiters(requestsPerSecond)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				ip = r.RemoteAddr
			}
			if !limiters.allow(ip) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "rate limit exceeded"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ingestRateLimit caps POST /ingest at requestsPerSecond per source IP: an
// httprate per-IP window backed by a golang.org/x/time/rate token bucket.
func ingestRateLimit(requestsPerSecond int) func(http.Handler) http.Handler {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 20
	}
	byIP := httprate.LimitByIP(requestsPerSecond, time.Second)
	tokenBucket := tokenBucketPerSource(requestsPerSecond)
	return func(next http.Handler) http.Handler {
		return byIP(tokenBucket(next))
	}
}

// authenticate gates a handler behind a valid bearer credential, responding
// 401 JSON for a missing or invalid one.
func authenticate(verifier *auth.Verifier) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			identity := verifier.Verify(auth.CredentialFromRequest(r))
			if !identity.Valid() {
				logging.Debug().Str("path", r.URL.Path).Msg("request rejected: invalid or missing credential")
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
				return
			}
			next(w, r)
		}
	}
}
