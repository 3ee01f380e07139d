package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/services"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/transport/httpdto"
	pumpkin_errors "github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/pkg/errors"
)

// respondError hands err to the error middleware, which maps it to a status
// and code.
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

func invalidRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, httpdto.NewErrorResponse(msg, "VALIDATION_ERROR"))
}

func principal(c *gin.Context) (services.Principal, bool) {
	p, ok := services.PrincipalFromContext(c.Request.Context())
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
	}
	return p, ok
}

func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		invalidRequest(c, fmt.Sprintf("invalid %s", name))
		return uuid.Nil, false
	}
	return id, true
}

func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	return page, limit
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func credentialsDTO(creds services.Credentials) httpdto.Credentials {
	return httpdto.Credentials{
		AccessToken: creds.AccessToken,
		TokenType:   creds.TokenType,
		ExpiresIn:   creds.ExpiresIn,
		ExpiresAt:   formatTime(creds.ExpiresAt),
	}
}

func optionalUUID(value string) (uuid.UUID, error) {
	if value == "" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid id %q", pumpkin_errors.ErrInvalidInput, value)
	}
	return id, nil
}
