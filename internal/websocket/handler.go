package websocket

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/domain/message"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/middleware"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/redis"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/registry"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/services"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/transport/httpdto"
	pumpkin_errors "github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/pkg/errors"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type MessageSender interface {
	Send(ctx context.Context, actor services.Principal, in services.SendInput) (message.Message, error)
}

type DeviceToucher interface {
	Touch(ctx context.Context, deviceID uuid.UUID)
}

// Handler upgrades authenticated requests and owns the per-connection
// dependencies shared by all clients.
type Handler struct {
	hub      *Hub
	auth     middleware.Authenticator
	messages MessageSender
	devices  DeviceToucher
	registry registry.Registry
	limiter  *redis.RateLimiter
	log      *WebSocketLogger
}

func NewHandler(hub *Hub, auth middleware.Authenticator, messages MessageSender, devices DeviceToucher, reg registry.Registry, limiter *redis.RateLimiter, log *WebSocketLogger) *Handler {
	if reg == nil {
		reg = registry.NewMemory()
	}
	if log == nil {
		log = NewWebSocketLogger(nil)
	}
	return &Handler{
		hub:      hub,
		auth:     auth,
		messages: messages,
		devices:  devices,
		registry: reg,
		limiter:  limiter,
		log:      log,
	}
}

// Handle authenticates before upgrading. Bad credentials or an inactive
// device get a plain 401.
func (h *Handler) Handle(c *gin.Context) {
	token := extractToken(c)
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, httpdto.NewErrorResponse("missing token", "UNAUTHORIZED"))
		return
	}
	p, err := h.auth.Authenticate(c.Request.Context(), token)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	rc := registry.Connection{
		UserID:      p.UserID,
		DeviceID:    p.DeviceID,
		ClientID:    uuid.NewString(),
		ConnectedAt: time.Now(),
	}
	// Register before the handshake completes so a newer connection always
	// wins the registry.
	ctx, cancel := context.WithTimeout(c.Request.Context(), writeWait)
	defer cancel()
	if err := h.registry.Add(ctx, rc); err != nil {
		h.log.Warn("registry add failed", rc.UserID, rc.ClientID, zap.Error(err))
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error("websocket upgrade failed", p.UserID, rc.ClientID, err)
		_ = h.registry.Remove(ctx, rc.UserID, rc.ClientID)
		return
	}

	client := newClient(h, conn, rc)
	h.hub.Register(client)
	if h.devices != nil {
		h.devices.Touch(ctx, client.deviceID)
	}
	h.log.Info("connected", client.userID, client.clientID, zap.String("device_id", client.deviceID.String()))

	go client.writePump()
	go client.readPump()
}

func (h *Handler) refresh(c *Client) {
	ctx, cancel := context.WithTimeout(context.Background(), writeWait)
	defer cancel()
	if err := h.registry.Refresh(ctx, c.connection()); err != nil {
		h.log.Warn("registry refresh failed", c.userID, c.clientID, zap.Error(err))
	}
}

func (h *Handler) forget(c *Client) {
	ctx, cancel := context.WithTimeout(context.Background(), writeWait)
	defer cancel()
	if err := h.registry.Remove(ctx, c.userID, c.clientID); err != nil {
		h.log.Warn("registry remove failed", c.userID, c.clientID, zap.Error(err))
	}
	h.log.Info("disconnected", c.userID, c.clientID, zap.Duration("connected_for", time.Since(c.connectedAt)))
}

// allowMessage applies the same per-user budget as the REST send route.
func (h *Handler) allowMessage(ctx context.Context, userID uuid.UUID) error {
	if h.limiter == nil {
		return nil
	}
	result, err := h.limiter.AllowMessage(ctx, userID.String())
	if err != nil {
		return err
	}
	if !result.Allowed {
		return pumpkin_errors.ErrRateLimited
	}
	return nil
}

func extractToken(c *gin.Context) string {
	if token := c.Query("token"); token != "" {
		return token
	}
	return middleware.ExtractBearer(c.GetHeader("Authorization"))
}
