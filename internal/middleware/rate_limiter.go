package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/burnoutcheck/backend/internal/apperr"
	"github.com/burnoutcheck/backend/internal/config"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RateLimiter allows cfg.RateLimitRequests per client IP and window. The
// first request of a window sets the key's expiry.
func RateLimiter(redisClient *redis.Client, cfg *config.Config, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		// If Redis is not available, bypass the rate limiter
		if redisClient == nil {
			c.Next()
			return
		}
		ctx := c.Request.Context()

		key := fmt.Sprintf("rate_limit:%s", c.ClientIP())

		count, err := redisClient.Incr(ctx, key).Result()
		if err != nil {
			logger.Warn("rate limiter unavailable", zap.Error(err))
			c.Next()
			return
		}
		if count == 1 {
			if err := redisClient.Expire(ctx, key, cfg.RateLimitDuration).Err(); err != nil {
				logger.Warn("rate limiter failed to set expiry", zap.String("key", key), zap.Error(err))
			}
		}

		remaining := int64(cfg.RateLimitRequests) - count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", cfg.RateLimitRequests))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))

		if count > int64(cfg.RateLimitRequests) {
			ttl, _ := redisClient.TTL(ctx, key).Result()
			if ttl < 0 {
				ttl = cfg.RateLimitDuration
			}
			c.Header("X-RateLimit-Reset", fmt.Sprintf("%d", time.Now().Add(ttl).Unix()))
			c.Header("Retry-After", fmt.Sprintf("%d", int(ttl.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success":     false,
				"error":       apperr.KindRateLimited.String(),
				"message":     "Too many requests",
				"retry_after": ttl.Seconds(),
			})
			return
		}

		c.Next()
	}
}
