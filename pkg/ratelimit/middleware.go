package ratelimit

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"firehose/pkg/errors"
	"firehose/pkg/metrics"
)

type RateLimitConfig struct {
	RPS             float64
	Burst           int
	CleanupInterval time.Duration
	MaxAge          time.Duration
}

func DefaultConfig() RateLimitConfig {
	return RateLimitConfig{
		RPS:             1.0,
		Burst:           5,
		CleanupInterval: 5 * time.Minute,
		MaxAge:          10 * time.Minute,
	}
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// clients keeps one token bucket per client address.
type clients struct {
	mu     sync.Mutex
	byAddr map[string]*client
	limit  rate.Limit
	burst  int
}

func newClients(cfg RateLimitConfig) *clients {
	return &clients{
		byAddr: make(map[string]*client),
		limit:  rate.Limit(cfg.RPS),
		burst:  cfg.Burst,
	}
}

// allow reports whether addr may open another session at now, and how many
// tokens it has left.
func (c *clients) allow(addr string, now time.Time) (bool, int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cl, ok := c.byAddr[addr]
	if !ok {
		cl = &client{limiter: rate.NewLimiter(c.limit, c.burst)}
		c.byAddr[addr] = cl
	}
	cl.lastSeen = now

	allowed := cl.limiter.AllowN(now, 1)
	remaining := int(cl.limiter.TokensAt(now))
	if remaining < 0 {
		remaining = 0
	}
	return allowed, remaining
}

// sweep forgets clients idle for longer than maxAge.
func (c *clients) sweep(now time.Time, maxAge time.Duration) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for addr, cl := range c.byAddr {
		if now.Sub(cl.lastSeen) > maxAge {
			delete(c.byAddr, addr)
			removed++
		}
	}
	return removed
}

// RateLimitMiddleware limits how quickly a client address may open relay
// sessions. The janitor that evicts idle clients stops when ctx is done.
func RateLimitMiddleware(ctx context.Context, config RateLimitConfig) gin.HandlerFunc {
	known := newClients(config)

	if config.CleanupInterval > 0 {
		go func() {
			ticker := time.NewTicker(config.CleanupInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case now := <-ticker.C:
					known.sweep(now, config.MaxAge)
				}
			}
		}()
	}

	limitHeader := strconv.FormatFloat(config.RPS, 'f', -1, 64)

	return func(c *gin.Context) {
		addr := c.ClientIP()
		if addr == "" {
			addr = c.RemoteIP()
		}

		allowed, remaining := known.allow(addr, time.Now())
		c.Header("X-RateLimit-Limit", limitHeader)
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if !allowed {
			metrics.RateLimitRequestsTotal.WithLabelValues("limited").Inc()
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(errors.ErrRateLimited.Status, errors.ToErrorResponse(errors.ErrRateLimited))
			return
		}

		metrics.RateLimitRequestsTotal.WithLabelValues("allowed").Inc()
		c.Next()
	}
}
