package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/services"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/transport/httpdto"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/pkg/logger"
)

// Authenticator resolves a bearer token to an active device.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (services.Principal, error)
}

func AuthMiddleware(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, err := auth.Authenticate(c.Request.Context(), ExtractBearer(c.GetHeader("Authorization")))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
			return
		}

		ctx := services.WithPrincipal(c.Request.Context(), principal)
		ctx = context.WithValue(ctx, logger.UserIdKey, principal.UserID.String())
		ctx = context.WithValue(ctx, logger.DeviceIdKey, principal.DeviceID.String())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// ExtractBearer returns the token of an "Authorization: Bearer <token>" value.
func ExtractBearer(value string) string {
	parts := strings.SplitN(value, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
