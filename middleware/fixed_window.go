package middleware

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/classboard/classboard/utils"
)

// FixedWindowLimiter counts requests per client IP in fixed time windows.
// It guards the authentication routes, where a burst-friendly token bucket
// is too permissive. Counters live in Redis so the limit holds across
// instances; an in-memory map takes over when Redis is unreachable.
type FixedWindowLimiter struct {
	Limit  int
	Window time.Duration
	Prefix string

	now     func() time.Time // test hook
	noRedis bool             // test hook: force the in-memory path

	mu       sync.Mutex
	counters map[string]int
}

// NewFixedWindowLimiter builds a limiter allowing limit requests per window.
func NewFixedWindowLimiter(limit int, window time.Duration) *FixedWindowLimiter {
	if limit < 1 {
		limit = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	// Window indexing works in whole seconds; anything shorter would divide
	// by zero.
	if window < time.Second {
		window = time.Second
	}
	return &FixedWindowLimiter{
		Limit:    limit,
		Window:   window,
		Prefix:   "ratelimit:auth:",
		now:      time.Now,
		counters: map[string]int{},
	}
}

// Allow records one request for the key and reports whether it fits the
// current window.
func (l *FixedWindowLimiter) Allow(key string) bool {
	window := l.now().Unix() / int64(l.Window/time.Second)
	windowKey := l.Prefix + key + ":" + strconv.FormatInt(window, 10)

	if !l.noRedis {
		if rc := utils.GetRedis(); rc != nil {
			if allowed, ok := l.allowRedis(rc, windowKey); ok {
				return allowed
			}
		}
	}
	return l.allowLocal(windowKey)
}

func (l *FixedWindowLimiter) allowRedis(rc *redis.Client, key string) (allowed, ok bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	n, err := rc.Incr(ctx, key).Result()
	if err != nil {
		return false, false
	}
	if n == 1 {
		_ = rc.Expire(ctx, key, l.Window).Err()
	}
	return n <= int64(l.Limit), true
}

func (l *FixedWindowLimiter) allowLocal(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	// Stale windows accumulate slowly (one key per IP per window); prune
	// opportunistically when the map grows.
	if len(l.counters) > 4096 {
		l.counters = map[string]int{}
	}
	l.counters[key]++
	return l.counters[key] <= l.Limit
}

// Middleware adapts the limiter to gin, keyed by client IP.
func (l *FixedWindowLimiter) Middleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if !l.Allow(ctx.ClientIP()) {
			utils.Error(ctx, 429, 42902, "too many attempts, try again later")
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}
