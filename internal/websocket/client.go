package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/domain/message"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/registry"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/services"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/transport/httpdto"
	pumpkin_errors "github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/pkg/errors"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512 * 1024
	sendBuffer     = 256
	requestTimeout = 10 * time.Second
)

// Client is one websocket connection of one device.
type Client struct {
	handler     *Handler
	conn        *websocket.Conn
	send        chan []byte
	userID      uuid.UUID
	deviceID    uuid.UUID
	clientID    string
	connectedAt time.Time
}

func newClient(h *Handler, conn *websocket.Conn, rc registry.Connection) *Client {
	return &Client{
		handler:     h,
		conn:        conn,
		send:        make(chan []byte, sendBuffer),
		userID:      rc.UserID,
		deviceID:    rc.DeviceID,
		clientID:    rc.ClientID,
		connectedAt: rc.ConnectedAt,
	}
}

func (c *Client) principal() services.Principal {
	return services.Principal{UserID: c.userID, DeviceID: c.deviceID}
}

func (c *Client) connection() registry.Connection {
	return registry.Connection{
		UserID:      c.userID,
		DeviceID:    c.deviceID,
		ClientID:    c.clientID,
		ConnectedAt: c.connectedAt,
	}
}

// requestContext carries the connection identity for service logs.
func (c *Client) requestContext() (context.Context, context.CancelFunc) {
	ctx := services.WithPrincipal(context.Background(), c.principal())
	ctx = context.WithValue(ctx, logger.UserIdKey, c.userID.String())
	ctx = context.WithValue(ctx, logger.DeviceIdKey, c.deviceID.String())
	return context.WithTimeout(ctx, requestTimeout)
}

func (c *Client) trySend(payload []byte) bool {
	select {
	case c.send <- payload:
		return true
	default:
		c.handler.log.Warn("send buffer full, frame dropped", c.userID, c.clientID)
		return false
	}
}

// reply queues a frame produced by the read loop. It waits up to writeWait
// for room in the buffer.
func (c *Client) reply(frame httpdto.ServerFrame) {
	payload, err := json.Marshal(frame)
	if err != nil {
		c.handler.log.Error("encode frame failed", c.userID, c.clientID, err)
		return
	}
	timer := time.NewTimer(writeWait)
	defer timer.Stop()
	select {
	case c.send <- payload:
	case <-timer.C:
		c.handler.log.Warn("reply dropped", c.userID, c.clientID, zap.String("frame", frame.Type))
	}
}

func (c *Client) readPump() {
	defer func() {
		c.handler.hub.Unregister(c)
		c.handler.forget(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		c.handler.refresh(c)
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.handler.log.Error("websocket unexpected close", c.userID, c.clientID, err)
			}
			return
		}
		c.handleFrame(data)
	}
}

func (c *Client) handleFrame(data []byte) {
	var frame httpdto.ClientFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		c.reply(httpdto.NewErrorFrame("malformed frame", services.ErrorCode(pumpkin_errors.ErrInvalidInput)))
		return
	}

	switch frame.Type {
	case httpdto.FramePing:
		c.reply(httpdto.ServerFrame{Type: httpdto.FramePong, RequestID: frame.RequestID, Success: true})
	case httpdto.FrameSendMessage:
		c.handleSendMessage(frame)
	default:
		c.handler.log.Warn("unknown frame type", c.userID, c.clientID, zap.String("frame", frame.Type))
		c.reply(httpdto.NewErrorFrame("unknown frame type", services.ErrorCode(pumpkin_errors.ErrInvalidInput)))
	}
}

func (c *Client) handleSendMessage(frame httpdto.ClientFrame) {
	ctx, cancel := c.requestContext()
	defer cancel()

	msg, err := c.sendMessage(ctx, frame)
	if err != nil {
		if services.HTTPStatus(err) >= 500 {
			c.handler.log.Error("send_message failed", c.userID, c.clientID, err)
		}
		c.reply(httpdto.NewAckErrorFrame(frame.RequestID, services.PublicMessage(err), services.ErrorCode(err)))
		return
	}
	c.reply(httpdto.NewAckFrame(frame.RequestID, httpdto.FromMessage(msg)))
}

func (c *Client) sendMessage(ctx context.Context, frame httpdto.ClientFrame) (message.Message, error) {
	if err := c.handler.allowMessage(ctx, c.userID); err != nil {
		return message.Message{}, err
	}
	convID, err := uuid.Parse(frame.ConversationID)
	if err != nil {
		return message.Message{}, fmt.Errorf("%w: invalid conversation_id", pumpkin_errors.ErrInvalidInput)
	}
	var senderDeviceID uuid.UUID
	if frame.SenderDeviceID != "" {
		senderDeviceID, err = uuid.Parse(frame.SenderDeviceID)
		if err != nil {
			return message.Message{}, fmt.Errorf("%w: invalid sender_device_id", pumpkin_errors.ErrInvalidInput)
		}
	}
	envelopes, err := httpdto.ToEnvelopes(frame.Envelopes)
	if err != nil {
		return message.Message{}, fmt.Errorf("%w: %v", pumpkin_errors.ErrInvalidInput, err)
	}
	return c.handler.messages.Send(ctx, c.principal(), services.SendInput{
		ConversationID: convID,
		SenderDeviceID: senderDeviceID,
		Envelopes:      envelopes,
	})
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
