package middleware

import (
	"context"
	"fmt"
	"log"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RateLimit lets one request per window through for each caller and action.
// Callers are keyed by user id when authenticated, by client IP otherwise.
// A nil client disables the limit, and so does a Redis failure.
func RateLimit(rdb *redis.Client, action string, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rdb == nil || window <= 0 {
			c.Next()
			return
		}

		key := rateLimitKey(callerKey(c), action)
		allowed, err := checkAndSetRateLimit(c.Request.Context(), rdb, key, window)
		if err != nil {
			log.Printf("rate limit check for %s failed: %v", key, err)
			c.Next()
			return
		}

		if !allowed {
			ttl, err := rdb.TTL(c.Request.Context(), key).Result()
			if err != nil || ttl < 0 {
				ttl = window
			}
			seconds := int(math.Ceil(ttl.Seconds()))
			c.Header("Retry-After", strconv.Itoa(seconds))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "too many requests, please slow down",
				"retry_after": seconds,
			})
			return
		}

		c.Next()
	}
}

func checkAndSetRateLimit(ctx context.Context, rdb *redis.Client, key string, window time.Duration) (bool, error) {
	wasSet, err := rdb.SetNX(ctx, key, "locked", window).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check rate limit in redis: %w", err)
	}
	return wasSet, nil
}

func callerKey(c *gin.Context) string {
	if value, ok := c.Get("user_id"); ok {
		if id, ok := value.(uint); ok && id != 0 {
			return "user:" + strconv.FormatUint(uint64(id), 10)
		}
	}
	return "ip:" + c.ClientIP()
}

func rateLimitKey(caller, action string) string {
	return fmt.Sprintf("rate_limit:%s:%s", caller, action)
}
