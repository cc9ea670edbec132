package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/petlens/core/internal/pkg/response"
	"github.com/petlens/core/internal/pkg/token"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const rateLimitWindow = 60 * time.Second

// RateLimit enforces a fixed 60-second window per principal. A request is
// counted once, under the principal observed at check time: "user:{id}" when
// the access cookie verifies, otherwise "ip:{addr}". Counter-store failure
// fails open.
func RateLimit(rdb *redis.Client, log *zap.Logger, limit int, verifier *token.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal := resolvePrincipal(c, verifier)
		if principal == "" {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		key := fmt.Sprintf("rate:gw:%s", principal)

		count, err := rdb.Incr(ctx, key).Result()
		if err != nil {
			log.Warn("rate limiter unavailable, failing open", zap.Error(err))
			c.Next()
			return
		}
		if count == 1 {
			if err := rdb.Expire(ctx, key, rateLimitWindow).Err(); err != nil {
				log.Warn("rate limit window not armed", zap.String("key", key), zap.Error(err))
			}
		}

		if count > int64(limit) {
			retryAfter := int(rateLimitWindow / time.Second)
			ttl, ttlErr := rdb.TTL(ctx, key).Result()
			switch {
			case ttlErr == nil && ttl > 0:
				retryAfter = int(ttl.Round(time.Second) / time.Second)
				if retryAfter < 1 {
					retryAfter = 1
				}
			case ttlErr == nil && ttl == -1:
				// A counter without expiry would block its principal forever.
				// Re-arm the window so a lost EXPIRE self-heals.
				if err := rdb.Expire(ctx, key, rateLimitWindow).Err(); err != nil {
					log.Warn("rate limit window not armed", zap.String("key", key), zap.Error(err))
				}
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			response.FailDetails(c, http.StatusTooManyRequests,
				response.CodeRateLimitExceeded, "rate limit exceeded",
				map[string]interface{}{
					"retry_after": retryAfter,
					"limit":       limit,
				})
			return
		}

		remaining := int64(limit) - count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
		c.Next()
	}
}

func resolvePrincipal(c *gin.Context, verifier *token.Verifier) string {
	if verifier != nil {
		if raw, err := c.Cookie(CookieAccessToken); err == nil && raw != "" {
			if claims, err := verifier.VerifyAccess(raw); err == nil {
				return "user:" + claims.UserID
			}
		}
	}
	if ip := c.ClientIP(); ip != "" {
		return "ip:" + ip
	}
	return ""
}
