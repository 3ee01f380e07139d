package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/domain/message"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/transport/httpdto"
)

const (
	writeWait   = 10 * time.Second
	frameBuffer = 64
)

var ErrRealtimeClosed = errors.New("realtime connection closed")

// Realtime is an open websocket session of one device. Frames pushed by the
// server arrive on Frames until the connection ends; Err then reports why.
type Realtime struct {
	conn   *websocket.Conn
	frames chan httpdto.ServerFrame

	writeMu sync.Mutex

	closeOnce sync.Once
	done      chan struct{}
	mu        sync.Mutex
	err       error
}

// Connect opens the websocket with the client's access token.
func (c *Client) Connect(ctx context.Context) (*Realtime, error) {
	target, err := c.realtimeURL()
	if err != nil {
		return nil, err
	}
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, target, nil)
	if err != nil {
		if resp != nil {
			return nil, &APIError{Method: http.MethodGet, URL: "/v1/ws", Status: resp.StatusCode}
		}
		return nil, fmt.Errorf("dial realtime: %w", err)
	}

	rt := &Realtime{
		conn:   conn,
		frames: make(chan httpdto.ServerFrame, frameBuffer),
		done:   make(chan struct{}),
	}
	go rt.readLoop()
	return rt, nil
}

func (c *Client) realtimeURL() (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	switch strings.ToLower(u.Scheme) {
	case "https":
		u.Scheme = "wss"
	case "http", "":
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/v1/ws"
	u.RawQuery = url.Values{"token": {c.token}}.Encode()
	return u.String(), nil
}

func (r *Realtime) Frames() <-chan httpdto.ServerFrame { return r.frames }

func (r *Realtime) Done() <-chan struct{} { return r.done }

// Err returns the reason the read loop ended, or nil while it runs.
func (r *Realtime) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

func (r *Realtime) readLoop() {
	defer close(r.frames)
	for {
		_, data, err := r.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				err = ErrRealtimeClosed
			}
			r.finish(err)
			return
		}
		var frame httpdto.ServerFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			continue
		}
		select {
		case r.frames <- frame:
		case <-r.done:
			return
		}
	}
}

func (r *Realtime) finish(err error) {
	r.mu.Lock()
	if r.err == nil {
		r.err = err
	}
	r.mu.Unlock()
	r.closeOnce.Do(func() { close(r.done) })
}

func (r *Realtime) Send(frame httpdto.ClientFrame) error {
	select {
	case <-r.done:
		return ErrRealtimeClosed
	default:
	}
	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	_ = r.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return r.conn.WriteJSON(frame)
}

// SendMessage queues a send_message frame and returns its request id. The
// server answers with a message_ack carrying the same id.
func (r *Realtime) SendMessage(conversationID uuid.UUID, envelopes []message.Envelope) (string, error) {
	requestID := uuid.NewString()
	err := r.Send(httpdto.ClientFrame{
		Type:           httpdto.FrameSendMessage,
		RequestID:      requestID,
		ConversationID: conversationID.String(),
		Envelopes:      httpdto.FromEnvelopes(envelopes),
	})
	return requestID, err
}

func (r *Realtime) Ping() error {
	return r.Send(httpdto.ClientFrame{Type: httpdto.FramePing})
}

func (r *Realtime) Close() error {
	r.writeMu.Lock()
	_ = r.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
	r.writeMu.Unlock()
	r.finish(ErrRealtimeClosed)
	return r.conn.Close()
}
