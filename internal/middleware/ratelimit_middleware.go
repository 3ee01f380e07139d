package middleware

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/redis"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/services"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/transport/httpdto"
)

type limitFunc func(ctx context.Context, key string) (*redis.RateLimitResult, error)

// AuthRateLimitMiddleware limits login and registration attempts per client IP.
func AuthRateLimitMiddleware(limiter *redis.RateLimiter) gin.HandlerFunc {
	if limiter == nil {
		return passThrough
	}
	return limitBy(limiter.AllowAuth, func(c *gin.Context) (string, bool) {
		return c.ClientIP(), true
	}, "rate limit exceeded")
}

// PairingRateLimitMiddleware limits pairing redemption attempts per client IP.
func PairingRateLimitMiddleware(limiter *redis.RateLimiter) gin.HandlerFunc {
	if limiter == nil {
		return passThrough
	}
	return limitBy(limiter.AllowPairing, func(c *gin.Context) (string, bool) {
		return c.ClientIP(), true
	}, "pairing rate limit exceeded")
}

// MessageRateLimitMiddleware limits message sends per user. It must run
// after AuthMiddleware.
func MessageRateLimitMiddleware(limiter *redis.RateLimiter) gin.HandlerFunc {
	if limiter == nil {
		return passThrough
	}
	return limitBy(limiter.AllowMessage, func(c *gin.Context) (string, bool) {
		userID, ok := services.UserIDFromContext(c.Request.Context())
		if !ok {
			return "", false
		}
		return userID.String(), true
	}, "message rate limit exceeded")
}

func limitBy(allow limitFunc, key func(*gin.Context) (string, bool), message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		k, ok := key(c)
		if !ok {
			c.Next()
			return
		}

		result, err := allow(c.Request.Context(), k)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, httpdto.NewErrorResponse("rate limit error", "INTERNAL_ERROR"))
			return
		}

		setRateLimitHeaders(c, result)

		if !result.Allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, httpdto.NewErrorResponse(message, "RATE_LIMITED"))
			return
		}

		c.Next()
	}
}

func passThrough(c *gin.Context) {
	c.Next()
}

// setRateLimitHeaders sets standard rate limit response headers
func setRateLimitHeaders(c *gin.Context, result *redis.RateLimitResult) {
	c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	c.Header("X-RateLimit-Reset", strconv.FormatInt(int64(result.ResetIn.Seconds()), 10))
}
