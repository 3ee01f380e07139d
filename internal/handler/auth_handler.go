package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/domain/device"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/services"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/transport/httpdto"
)

type AuthHandler struct {
	service *services.AuthService
}

func NewAuthHandler(service *services.AuthService) *AuthHandler {
	return &AuthHandler{service: service}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req httpdto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, "invalid request")
		return
	}

	u, err := h.service.Register(c.Request.Context(), services.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, httpdto.NewSuccessResponse(httpdto.FromUser(u, true)))
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req httpdto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, "invalid request")
		return
	}
	deviceID, err := optionalUUID(req.DeviceID)
	if err != nil {
		respondError(c, err)
		return
	}

	res, err := h.service.Login(c.Request.Context(), services.LoginInput{
		Identity:    req.Identity,
		Password:    req.Password,
		DeviceID:    deviceID,
		DeviceClass: device.Class(req.DeviceClass),
		PublicKey:   req.PublicKey,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	user := httpdto.FromUser(res.User, true)
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.AuthResponse{
		User:        &user,
		UserID:      res.User.ID.String(),
		Device:      httpdto.FromDevice(res.Device),
		Credentials: credentialsDTO(res.Credentials),
	}))
}
