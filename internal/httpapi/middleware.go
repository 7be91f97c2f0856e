// internal/httpapi/middleware.go
package httpapi

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"pricelens/internal/common/logger"
)

func requestLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := map[string]interface{}{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"route":      c.FullPath(),
			"status":     status,
			"bytes":      c.Writer.Size(),
			"durationMs": time.Since(start).Milliseconds(),
			"ip":         c.ClientIP(),
		}
		if status >= http.StatusInternalServerError {
			log.Warn("request", fields)
			return
		}
		log.Debug("request", fields)
	}
}

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// limiterStore keeps one token bucket per client IP. Idle buckets are
// swept at most once a minute from the request path.
type limiterStore struct {
	mu        sync.Mutex
	limiters  map[string]*ipLimiter
	r         rate.Limit
	b         int
	idle      time.Duration
	lastSweep time.Time
	now       func() time.Time
}

func newLimiterStore(rps float64, burst int) *limiterStore {
	if burst < 1 {
		burst = 1
	}
	return &limiterStore{
		limiters: make(map[string]*ipLimiter),
		r:        rate.Limit(rps),
		b:        burst,
		idle:     3 * time.Minute,
		now:      time.Now,
	}
}

func (s *limiterStore) get(ip string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.Sub(s.lastSweep) > time.Minute {
		for k, v := range s.limiters {
			if now.Sub(v.lastSeen) > s.idle {
				delete(s.limiters, k)
			}
		}
		s.lastSweep = now
	}

	if v, ok := s.limiters[ip]; ok {
		v.lastSeen = now
		return v.limiter
	}
	l := rate.NewLimiter(s.r, s.b)
	s.limiters[ip] = &ipLimiter{limiter: l, lastSeen: now}
	return l
}

// rateLimit answers 429 once a client IP exceeds rps with the given burst.
func rateLimit(rps float64, burst int) gin.HandlerFunc {
	store := newLimiterStore(rps, burst)
	return func(c *gin.Context) {
		if !store.get(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apiResponse{
				Message:         "Too many requests",
				Error:           true,
				Code:            "RATE_LIMITED",
				Retryable:       true,
				RequestedEntity: c.Request.Method + " " + c.FullPath(),
			})
			return
		}
		c.Next()
	}
}
