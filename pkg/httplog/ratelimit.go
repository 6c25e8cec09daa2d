package httplog

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/JailtonJunior94/lexlog/pkg/events"
)

// idleLimiterTTL is how long a client's limiter survives without requests.
const idleLimiterTTL = 10 * time.Minute

// RateLimiter allows each client IP rps requests per second with the given
// burst. Rejected requests get 429 and a security.rateLimit event.
type RateLimiter struct {
	emitter *events.Emitter
	limit   rate.Limit
	burst   int
	now     func() time.Time

	mu        sync.Mutex
	clients   map[string]*client
	lastSweep time.Time
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewRateLimiter(emitter *events.Emitter, rps float64, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		emitter: emitter,
		limit:   rate.Limit(rps),
		burst:   burst,
		now:     time.Now,
		clients: make(map[string]*client),
	}
}

// RateLimit is shorthand for NewRateLimiter(emitter, rps, burst).Handler.
func RateLimit(emitter *events.Emitter, rps float64, burst int) func(http.Handler) http.Handler {
	return NewRateLimiter(emitter, rps, burst).Handler
}

func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := ClientIP(r)
		if !rl.allow(ip) {
			rl.emitter.RateLimit(r.Context(), ip, r.URL.Path)
			w.Header().Set("Retry-After", "1")
			WriteProblem(w, r, http.StatusTooManyRequests, "Rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Clients returns the number of tracked client IPs.
func (rl *RateLimiter) Clients() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}

func (rl *RateLimiter) allow(ip string) bool {
	now := rl.now()

	rl.mu.Lock()
	c, ok := rl.clients[ip]
	if !ok {
		c = &client{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.clients[ip] = c
	}
	c.lastSeen = now
	if now.Sub(rl.lastSweep) > idleLimiterTTL {
		rl.sweep(now)
	}
	rl.mu.Unlock()

	return c.limiter.AllowN(now, 1)
}

// sweep drops limiters idle for longer than idleLimiterTTL. Callers hold mu.
func (rl *RateLimiter) sweep(now time.Time) {
	for ip, c := range rl.clients {
		if now.Sub(c.lastSeen) > idleLimiterTTL {
			delete(rl.clients, ip)
		}
	}
	rl.lastSweep = now
}
