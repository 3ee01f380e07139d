package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/services"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/storage"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/transport/httpdto"
)

type BackupHandler struct {
	service *services.BackupStorageService
}

func NewBackupHandler(service *services.BackupStorageService) *BackupHandler {
	return &BackupHandler{service: service}
}

func (h *BackupHandler) UploadURL(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req httpdto.BackupUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, "invalid request")
		return
	}
	key, presigned, err := h.service.PresignUpload(c.Request.Context(), p.UserID, req.FileName, req.FileSize)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(backupURL(key, presigned)))
}

func (h *BackupHandler) DownloadURL(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	key := c.Query("key")
	presigned, err := h.service.PresignDownload(c.Request.Context(), p.UserID, key)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(backupURL(key, presigned)))
}

func backupURL(key string, p storage.PresignedRequest) httpdto.BackupURLResponse {
	return httpdto.BackupURLResponse{
		URL:       p.URL,
		Key:       key,
		Method:    p.Method,
		Headers:   p.Headers,
		ExpiresAt: formatTime(p.ExpiresAt),
	}
}
