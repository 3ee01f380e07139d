package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/services"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/transport/httpdto"
)

type MessageHandler struct {
	service *services.MessageService
}

func NewMessageHandler(service *services.MessageService) *MessageHandler {
	return &MessageHandler{service: service}
}

func (h *MessageHandler) Send(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	convID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req httpdto.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, "invalid request")
		return
	}
	senderDeviceID, err := optionalUUID(req.SenderDeviceID)
	if err != nil {
		respondError(c, err)
		return
	}
	envelopes, err := httpdto.ToEnvelopes(req.Envelopes)
	if err != nil {
		invalidRequest(c, err.Error())
		return
	}

	msg, err := h.service.Send(c.Request.Context(), p, services.SendInput{
		ConversationID: convID,
		SenderDeviceID: senderDeviceID,
		Envelopes:      envelopes,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, httpdto.NewSuccessResponse(httpdto.FromMessage(msg)))
}

// List returns the history visible to ?device_id (default: the caller's
// device), oldest first.
func (h *MessageHandler) List(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	convID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	deviceID, err := optionalUUID(c.Query("device_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	page, limit := pageParams(c)

	items, total, err := h.service.List(c.Request.Context(), p, convID, deviceID, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewPage(httpdto.FromMessages(items), total, page, limit))
}
