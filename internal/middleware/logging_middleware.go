package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/pkg/logger"
)

// quietPaths are polled by load balancers and not logged.
var quietPaths = map[string]struct{}{
	"/ping":   {},
	"/health": {},
}

// LoggingMiddleware writes one line per request with the request, user and
// device ids of the context. Server errors log at error level.
func LoggingMiddleware(l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		if _, ok := quietPaths[c.Request.URL.Path]; ok {
			return
		}
		log := l
		if log == nil {
			log = logger.GetGlobalLogger()
		}
		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("route", c.FullPath()),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
		}
		if code, ok := c.Get(errorCodeKey); ok {
			fields = append(fields, zap.Any("code", code))
		}

		zl := log.WithContext(c.Request.Context())
		switch {
		case status >= 500:
			zl.Error("request", fields...)
		case status >= 400:
			zl.Warn("request", fields...)
		default:
			zl.Info("request", fields...)
		}
	}
}
