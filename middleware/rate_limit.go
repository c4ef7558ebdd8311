package middleware

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/classboard/classboard/config"
	"github.com/classboard/classboard/utils"
)

type bucketEntry struct {
	limiter *rate.Limiter
	expires time.Time
}

var (
	buckets   = map[string]*bucketEntry{}
	bucketsMu sync.Mutex
)

// RateLimitMiddleware applies a per-IP token bucket to general API traffic.
func RateLimitMiddleware() gin.HandlerFunc {
	cfg := config.Get()
	perMinute := cfg.RateLimitPerMinute
	if perMinute < 1 {
		perMinute = 1
	}
	r := rate.Every(time.Minute / time.Duration(perMinute))
	burst := perMinute / 2
	if burst < 1 {
		burst = 1
	}

	return func(ctx *gin.Context) {
		if !takeToken(ctx.ClientIP(), r, burst) {
			utils.Error(ctx, 429, 42901, "rate limit exceeded")
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}

func takeToken(key string, limit rate.Limit, burst int) bool {
	bucketsMu.Lock()
	defer bucketsMu.Unlock()

	now := time.Now()
	for k, e := range buckets {
		if now.After(e.expires) {
			delete(buckets, k)
		}
	}

	e, ok := buckets[key]
	if !ok {
		e = &bucketEntry{limiter: rate.NewLimiter(limit, burst)}
		buckets[key] = e
	}
	e.expires = now.Add(5 * time.Minute)
	return e.limiter.Allow()
}
