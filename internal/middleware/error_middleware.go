package middleware

import (
	"go.uber.org/zap"

	"github.com/gin-gonic/gin"

	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/services"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/transport/httpdto"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/pkg/logger"
)

const errorCodeKey = "error_code"

// ErrorHandler renders the last error attached with c.Error using the shared
// error code table. Handlers attach the error and return without writing.
func ErrorHandler(l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		status := services.HTTPStatus(err)
		if l != nil && status >= 500 {
			l.WithContext(c.Request.Context()).Error("request failed",
				zap.String("path", c.FullPath()), zap.Error(err))
		}
		code := services.ErrorCode(err)
		c.Set(errorCodeKey, code)
		c.JSON(status, httpdto.NewErrorResponse(services.PublicMessage(err), code))
	}
}
