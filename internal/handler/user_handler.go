package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/registry"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/services"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/transport/httpdto"
)

type UserHandler struct {
	auth     *services.AuthService
	registry registry.Registry
}

func NewUserHandler(auth *services.AuthService, reg registry.Registry) *UserHandler {
	return &UserHandler{auth: auth, registry: reg}
}

func (h *UserHandler) Me(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	u, err := h.auth.GetUser(c.Request.Context(), p.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FromUser(u, true)))
}

func (h *UserHandler) GetByID(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	u, err := h.auth.GetUser(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FromUser(u, false)))
}

// Lookup resolves ?username= to a user.
func (h *UserHandler) Lookup(c *gin.Context) {
	username := c.Query("username")
	if username == "" {
		invalidRequest(c, "username is required")
		return
	}
	u, err := h.auth.GetUserByUsername(c.Request.Context(), username)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FromUser(u, false)))
}

func (h *UserHandler) Presence(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	dto := httpdto.Presence{UserID: id.String()}
	if h.registry != nil {
		conn, online, err := h.registry.Lookup(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		if online {
			dto.Online = true
			dto.DeviceID = conn.DeviceID.String()
			dto.ConnectedAt = formatTime(conn.ConnectedAt)
		}
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(dto))
}
