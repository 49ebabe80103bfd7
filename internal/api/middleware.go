package api

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// requestLogger logs one line per request. Long-lived stream requests are
// logged when they end.
func requestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		ev := logger.Debug()
		switch {
		case status >= http.StatusInternalServerError:
			ev = logger.Error()
		case status >= http.StatusBadRequest:
			ev = logger.Warn()
		}
		if len(c.Errors) > 0 {
			ev = ev.Str("errors", c.Errors.String())
		}
		ev.Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", status).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	}
}

// corsMiddleware admits browser requests from allowed. "*" admits any origin.
// Requests carrying a foreign Origin header are rejected with 403.
func corsMiddleware(allowed []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{
			"Content-Type",
			"Upgrade",
			"Connection",
			"Sec-WebSocket-Key",
			"Sec-WebSocket-Version",
			"Sec-WebSocket-Extensions",
			"Sec-WebSocket-Protocol",
		},
		MaxAge: 12 * time.Hour,
	}
	if originAllowed(allowed, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = allowed
	}
	return cors.New(cfg)
}

func originAllowed(allowed []string, origin string) bool {
	for _, a := range allowed {
		if a == "*" || strings.EqualFold(a, origin) {
			return true
		}
	}
	return false
}

// RateLimit bounds requests per client IP on the write endpoints that create
// state (rooms, feedback). A zero PerSecond disables limiting.
type RateLimit struct {
	PerSecond float64
	Burst     int
}

const (
	limiterIdle       = 10 * time.Minute
	limiterSweepAfter = 1024
)

// clientLimiter hands out one token bucket per client IP. Buckets idle for
// limiterIdle are dropped once the table grows past limiterSweepAfter.
type clientLimiter struct {
	limit RateLimit
	now   func() time.Time

	mu      sync.Mutex
	clients map[string]*clientBucket
}

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newClientLimiter(limit RateLimit) *clientLimiter {
	if limit.Burst <= 0 {
		limit.Burst = 1
	}
	return &clientLimiter{
		limit:   limit,
		now:     time.Now,
		clients: make(map[string]*clientBucket),
	}
}

func (l *clientLimiter) allow(ip string) bool {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.clients) >= limiterSweepAfter {
		for k, b := range l.clients {
			if now.Sub(b.lastSeen) > limiterIdle {
				delete(l.clients, k)
			}
		}
	}
	b, ok := l.clients[ip]
	if !ok {
		b = &clientBucket{limiter: rate.NewLimiter(rate.Limit(l.limit.PerSecond), l.limit.Burst)}
		l.clients[ip] = b
	}
	b.lastSeen = now
	return b.limiter.AllowN(now, 1)
}

// rateLimited rejects a client with 429 once its bucket is empty.
func rateLimited(limit RateLimit) gin.HandlerFunc {
	if limit.PerSecond <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	l := newClientLimiter(limit)
	return func(c *gin.Context) {
		if !l.allow(c.ClientIP()) {
			c.Header("Retry-After", "1")
			abortError(c, http.StatusTooManyRequests, "Too many requests, slow down")
			return
		}
		c.Next()
	}
}
