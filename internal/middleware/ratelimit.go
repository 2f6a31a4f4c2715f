package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/time/rate"
)

type teamLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// TeamRateLimiter throttles mutating API calls per team. Reads pass through. A mutation whose path
// names no team (the calendar drop, keyed by its session token) is limited per client address.
type TeamRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*teamLimiter
	rps      rate.Limit
	burst    int
	now      func() time.Time

	// OnReject is called for every throttled request, if set.
	OnReject func(key string)
}

func NewTeamRateLimiter(rps float64, burst int) *TeamRateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &TeamRateLimiter{
		limiters: map[string]*teamLimiter{},
		rps:      rate.Limit(rps),
		burst:    burst,
		now:      time.Now,
	}
}

// Middleware returns an HTTP middleware that answers 429 once a team's bucket is empty.
func (tl *TeamRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if tl.shouldSkip(r) {
			next.ServeHTTP(w, r)
			return
		}
		key := extractTeamID(r)
		if key == "" {
			key = "addr:" + clientHost(r.RemoteAddr)
		}
		if !tl.allow(key) {
			if tl.OnReject != nil {
				tl.OnReject(key)
			}
			w.Header().Set("Retry-After", "1")
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (tl *TeamRateLimiter) allow(key string) bool {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	now := tl.now()
	l := tl.limiters[key]
	if l == nil {
		l = &teamLimiter{limiter: rate.NewLimiter(tl.rps, tl.burst)}
		tl.limiters[key] = l
	}
	l.lastSeen = now
	return l.limiter.AllowN(now, 1)
}

// Prune forgets teams idle since before cutoff and reports how many were dropped.
func (tl *TeamRateLimiter) Prune(cutoff time.Time) int {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	n := 0
	for id, l := range tl.limiters {
		if l.lastSeen.Before(cutoff) {
			delete(tl.limiters, id)
			n++
		}
	}
	return n
}

// shouldSkip returns true for reads and for routes that are never throttled.
func (tl *TeamRateLimiter) shouldSkip(r *http.Request) bool {
	switch r.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	skipPaths := []string{
		"/health",
		"/metrics",
		"/api/events",
	}
	for _, path := range skipPaths {
		if strings.HasPrefix(r.URL.Path, path) {
			return true
		}
	}
	return false
}

func clientHost(remoteAddr string) string {
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		return host
	}
	return remoteAddr
}

// extractTeamID prefers the mux var and falls back to the segment after "team" in the path.
func extractTeamID(r *http.Request) string {
	if id := strings.TrimSpace(mux.Vars(r)["teamId"]); id != "" {
		return id
	}
	parts := strings.Split(r.URL.Path, "/")
	for i, part := range parts {
		if part == "team" && i+1 < len(parts) {
			return strings.TrimSpace(parts[i+1])
		}
	}
	return ""
}
