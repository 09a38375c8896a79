package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// IdleLimiterTTL: per-IP limiters unused this long are dropped by Cleanup
const IdleLimiterTTL = 1 * time.Hour

// ipLimiterEntry: tracks a rate limiter and its last use time
type ipLimiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPRateLimit: limits how often one address may open a connection
type IPRateLimit struct {
	limiters map[string]*ipLimiterEntry
	every    time.Duration
	burst    int
	now      func() time.Time
	mu       sync.Mutex
}

// NewIPRateLimit: one connection per `every`, bursting to `burst`
func NewIPRateLimit(every time.Duration, burst int) *IPRateLimit {
	return &IPRateLimit{
		limiters: make(map[string]*ipLimiterEntry),
		every:    every,
		burst:    burst,
		now:      time.Now,
	}
}

// Allow: checks if an IP is allowed to connect now
func (iprl *IPRateLimit) Allow(ip string) bool {
	iprl.mu.Lock()
	defer iprl.mu.Unlock()

	now := iprl.now()
	entry, exists := iprl.limiters[ip]
	if !exists {
		entry = &ipLimiterEntry{limiter: rate.NewLimiter(rate.Every(iprl.every), iprl.burst)}
		iprl.limiters[ip] = entry
	}
	entry.lastSeen = now

	return entry.limiter.AllowN(now, 1)
}

// Cleanup: removes limiters that haven't been used recently
func (iprl *IPRateLimit) Cleanup() {
	iprl.mu.Lock()
	defer iprl.mu.Unlock()

	now := iprl.now()
	for ip, entry := range iprl.limiters {
		if now.Sub(entry.lastSeen) > IdleLimiterTTL {
			delete(iprl.limiters, ip)
		}
	}
}

// Len returns the number of tracked addresses
func (iprl *IPRateLimit) Len() int {
	iprl.mu.Lock()
	defer iprl.mu.Unlock()
	return len(iprl.limiters)
}

// Middleware rejects requests from addresses over their connect rate
func (iprl *IPRateLimit) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !iprl.Allow(ClientIP(r)) {
			http.Error(w, "Too many connections", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ClientIP: RemoteAddr only, which the client cannot spoof
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
