package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/domain/device"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/services"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/transport/httpdto"
)

type PairingHandler struct {
	service *services.PairingService
}

func NewPairingHandler(service *services.PairingService) *PairingHandler {
	return &PairingHandler{service: service}
}

func (h *PairingHandler) Issue(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	issued, err := h.service.Issue(c.Request.Context(), p.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, httpdto.NewSuccessResponse(httpdto.IssuePairingTokenResponse{
		Token:     issued.Token,
		ExpiresAt: formatTime(issued.ExpiresAt),
		QRPayload: issued.QRPayload,
	}))
}

// Redeem is unauthenticated: the token itself proves the user's consent.
func (h *PairingHandler) Redeem(c *gin.Context) {
	var req httpdto.RedeemPairingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, "invalid request")
		return
	}
	res, err := h.service.Redeem(c.Request.Context(), req.Token, device.Class(req.DeviceClass), req.PublicKey)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, httpdto.NewSuccessResponse(httpdto.AuthResponse{
		UserID:      res.UserID.String(),
		Device:      httpdto.FromDevice(res.Device),
		Credentials: credentialsDTO(res.Credentials),
	}))
}

func (h *PairingHandler) Invalidate(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	n, err := h.service.Invalidate(c.Request.Context(), p.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.InvalidatePairingResponse{Invalidated: n}))
}
