package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RateLimit limits requests per user (or client IP before auth) to
// perMinute. With Redis the budget is shared by all instances; without it
// each instance keeps its own token buckets.
func RateLimit(rdb *redis.Client, perMinute int, log *zap.Logger) gin.HandlerFunc {
	if perMinute <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	if log == nil {
		log = zap.NewNop()
	}
	if rdb != nil {
		return redisRateLimit(redis_rate.NewLimiter(rdb), perMinute, log)
	}
	return localRateLimit(perMinute)
}

func rateKey(c *gin.Context) string {
	if id := UserID(c); id != "" {
		return "user:" + id
	}
	return "ip:" + c.ClientIP()
}

func redisRateLimit(limiter *redis_rate.Limiter, perMinute int, log *zap.Logger) gin.HandlerFunc {
	limit := redis_rate.PerMinute(perMinute)
	return func(c *gin.Context) {
		res, err := limiter.Allow(c.Request.Context(), "pricewatch:rate:"+rateKey(c), limit)
		if err != nil {
			// fail open: a Redis outage must not take the API down
			log.Warn("rate limiter unavailable", zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(perMinute))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		if res.Allowed == 0 {
			c.Header("Retry-After", strconv.Itoa(int(res.RetryAfter.Seconds())+1))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			return
		}
		c.Next()
	}
}

// limiterIdle is how long a bucket goes unused before it is dropped. A
// bucket idle that long has refilled completely, so nothing is lost.
const limiterIdle = time.Minute

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// limiterSet holds one token bucket per key and evicts idle ones
type limiterSet struct {
	mu        sync.Mutex
	every     rate.Limit
	burst     int
	entries   map[string]*limiterEntry
	lastSweep time.Time
}

func newLimiterSet(perMinute int) *limiterSet {
	return &limiterSet{
		every:   rate.Every(time.Minute / time.Duration(perMinute)),
		burst:   perMinute,
		entries: make(map[string]*limiterEntry),
	}
}

func (s *limiterSet) allow(key string, now time.Time) bool {
	s.mu.Lock()
	if now.Sub(s.lastSweep) >= limiterIdle {
		s.sweep(now)
	}
	e, ok := s.entries[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(s.every, s.burst)}
		s.entries[key] = e
	}
	e.lastSeen = now
	s.mu.Unlock()

	return e.limiter.AllowN(now, 1)
}

// sweep drops buckets idle for limiterIdle or longer. Callers hold mu.
func (s *limiterSet) sweep(now time.Time) {
	for key, e := range s.entries {
		if now.Sub(e.lastSeen) >= limiterIdle {
			delete(s.entries, key)
		}
	}
	s.lastSweep = now
}

func (s *limiterSet) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func localRateLimit(perMinute int) gin.HandlerFunc {
	limiters := newLimiterSet(perMinute)

	return func(c *gin.Context) {
		if !limiters.allow(rateKey(c), time.Now()) {
			c.Header("Retry-After", "60")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			return
		}
		c.Next()
	}
}
