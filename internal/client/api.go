package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/google/uuid"

	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/domain/conversation"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/domain/device"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/domain/message"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/transport/httpdto"
)

func (c *Client) Register(ctx context.Context, username, email, password string) (httpdto.User, error) {
	var out httpdto.User
	err := c.do(ctx, http.MethodPost, "/v1/auth/register", nil, httpdto.RegisterRequest{
		Username: username,
		Email:    email,
		Password: password,
	}, &out)
	return out, err
}

// Login exchanges a password for credentials bound to a device and keeps
// the access token for later calls.
func (c *Client) Login(ctx context.Context, req httpdto.LoginRequest) (httpdto.AuthResponse, error) {
	var out httpdto.AuthResponse
	if err := c.do(ctx, http.MethodPost, "/v1/auth/login", nil, req, &out); err != nil {
		return out, err
	}
	c.token = out.Credentials.AccessToken
	return out, nil
}

func (c *Client) Me(ctx context.Context) (httpdto.User, error) {
	var out httpdto.User
	err := c.do(ctx, http.MethodGet, "/v1/users/me", nil, nil, &out)
	return out, err
}

func (c *Client) GetUser(ctx context.Context, userID uuid.UUID) (httpdto.User, error) {
	var out httpdto.User
	err := c.do(ctx, http.MethodGet, "/v1/users/"+userID.String(), nil, nil, &out)
	return out, err
}

func (c *Client) LookupUser(ctx context.Context, username string) (httpdto.User, error) {
	var out httpdto.User
	err := c.do(ctx, http.MethodGet, "/v1/users/lookup", url.Values{"username": {username}}, nil, &out)
	return out, err
}

func (c *Client) Presence(ctx context.Context, userID uuid.UUID) (httpdto.Presence, error) {
	var out httpdto.Presence
	err := c.do(ctx, http.MethodGet, "/v1/users/"+userID.String()+"/presence", nil, nil, &out)
	return out, err
}

func (c *Client) RegisterDevice(ctx context.Context, class device.Class, publicKey string) (device.Device, error) {
	var out httpdto.Device
	if err := c.do(ctx, http.MethodPost, "/v1/devices", nil, httpdto.RegisterDeviceRequest{
		DeviceClass: string(class),
		PublicKey:   publicKey,
	}, &out); err != nil {
		return device.Device{}, err
	}
	return httpdto.ToDevice(out)
}

// ListDevices returns the caller's active devices.
func (c *Client) ListDevices(ctx context.Context) ([]device.Device, error) {
	var out []httpdto.Device
	if err := c.do(ctx, http.MethodGet, "/v1/devices", nil, nil, &out); err != nil {
		return nil, err
	}
	return httpdto.ToDevices(out)
}

// ListUserDevices returns the active devices of any user.
func (c *Client) ListUserDevices(ctx context.Context, userID uuid.UUID) ([]device.Device, error) {
	var out []httpdto.Device
	if err := c.do(ctx, http.MethodGet, "/v1/users/"+userID.String()+"/devices", nil, nil, &out); err != nil {
		return nil, err
	}
	return httpdto.ToDevices(out)
}

func (c *Client) GetDevice(ctx context.Context, deviceID uuid.UUID) (device.Device, error) {
	var out httpdto.Device
	if err := c.do(ctx, http.MethodGet, "/v1/devices/"+deviceID.String(), nil, nil, &out); err != nil {
		return device.Device{}, err
	}
	return httpdto.ToDevice(out)
}

func (c *Client) DeactivateDevice(ctx context.Context, deviceID uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, "/v1/devices/"+deviceID.String(), nil, nil, nil)
}

func (c *Client) RevokeDevice(ctx context.Context, deviceID uuid.UUID) error {
	return c.do(ctx, http.MethodPost, "/v1/devices/"+deviceID.String()+"/revoke", nil, nil, nil)
}

func (c *Client) ReactivateDevice(ctx context.Context, deviceID uuid.UUID) (device.Device, error) {
	var out httpdto.Device
	if err := c.do(ctx, http.MethodPost, "/v1/devices/"+deviceID.String()+"/reactivate", nil, nil, &out); err != nil {
		return device.Device{}, err
	}
	return httpdto.ToDevice(out)
}

func (c *Client) CreateConversation(ctx context.Context, peerID uuid.UUID) (conversation.Conversation, error) {
	var out httpdto.Conversation
	if err := c.do(ctx, http.MethodPost, "/v1/conversations", nil, httpdto.CreateConversationRequest{
		ParticipantID: peerID.String(),
	}, &out); err != nil {
		return conversation.Conversation{}, err
	}
	return httpdto.ToConversation(out)
}

func (c *Client) GetConversation(ctx context.Context, id uuid.UUID) (conversation.Conversation, error) {
	var out httpdto.Conversation
	if err := c.do(ctx, http.MethodGet, "/v1/conversations/"+id.String(), nil, nil, &out); err != nil {
		return conversation.Conversation{}, err
	}
	return httpdto.ToConversation(out)
}

func (c *Client) ListConversations(ctx context.Context, page, limit int) ([]conversation.Conversation, int64, error) {
	var out httpdto.ListResponse[httpdto.Conversation]
	if err := c.do(ctx, http.MethodGet, "/v1/conversations", pageQuery(page, limit), nil, &out); err != nil {
		return nil, 0, err
	}
	convs := make([]conversation.Conversation, 0, len(out.Items))
	for _, dto := range out.Items {
		conv, err := httpdto.ToConversation(dto)
		if err != nil {
			return nil, 0, err
		}
		convs = append(convs, conv)
	}
	return convs, out.Total, nil
}

func (c *Client) SendMessage(ctx context.Context, conversationID uuid.UUID, envelopes []message.Envelope) (message.Message, error) {
	var out httpdto.Message
	if err := c.do(ctx, http.MethodPost, "/v1/conversations/"+conversationID.String()+"/messages", nil, httpdto.SendMessageRequest{
		Envelopes: httpdto.FromEnvelopes(envelopes),
	}, &out); err != nil {
		return message.Message{}, err
	}
	return httpdto.ToMessage(out)
}

// ListMessages returns one page of the history visible to deviceID, or to
// the caller's own device when deviceID is nil.
func (c *Client) ListMessages(ctx context.Context, conversationID, deviceID uuid.UUID, page, limit int) ([]message.Message, int64, error) {
	query := pageQuery(page, limit)
	if deviceID != uuid.Nil {
		query.Set("device_id", deviceID.String())
	}
	var out httpdto.ListResponse[httpdto.Message]
	if err := c.do(ctx, http.MethodGet, "/v1/conversations/"+conversationID.String()+"/messages", query, nil, &out); err != nil {
		return nil, 0, err
	}
	msgs := make([]message.Message, 0, len(out.Items))
	for _, dto := range out.Items {
		m, err := httpdto.ToMessage(dto)
		if err != nil {
			return nil, 0, err
		}
		msgs = append(msgs, m)
	}
	return msgs, out.Total, nil
}

func (c *Client) IssuePairingToken(ctx context.Context) (httpdto.IssuePairingTokenResponse, error) {
	var out httpdto.IssuePairingTokenResponse
	err := c.do(ctx, http.MethodPost, "/v1/pairing/tokens", nil, nil, &out)
	return out, err
}

// RedeemPairingToken registers a new device with a token or QR payload and
// keeps the returned access token.
func (c *Client) RedeemPairingToken(ctx context.Context, token string, class device.Class, publicKey string) (httpdto.AuthResponse, error) {
	var out httpdto.AuthResponse
	if err := c.do(ctx, http.MethodPost, "/v1/pairing/redeem", nil, httpdto.RedeemPairingRequest{
		Token:       token,
		DeviceClass: string(class),
		PublicKey:   publicKey,
	}, &out); err != nil {
		return out, err
	}
	c.token = out.Credentials.AccessToken
	return out, nil
}

func (c *Client) InvalidatePairingTokens(ctx context.Context) (int64, error) {
	var out httpdto.InvalidatePairingResponse
	err := c.do(ctx, http.MethodDelete, "/v1/pairing/tokens", nil, nil, &out)
	return out.Invalidated, err
}

func (c *Client) BackupUploadURL(ctx context.Context, fileName string, size int64) (httpdto.BackupURLResponse, error) {
	var out httpdto.BackupURLResponse
	err := c.do(ctx, http.MethodPost, "/v1/backups/upload-url", nil, httpdto.BackupUploadRequest{
		FileName: fileName,
		FileSize: size,
	}, &out)
	return out, err
}

func (c *Client) BackupDownloadURL(ctx context.Context, key string) (httpdto.BackupURLResponse, error) {
	var out httpdto.BackupURLResponse
	err := c.do(ctx, http.MethodGet, "/v1/backups/download-url", url.Values{"key": {key}}, nil, &out)
	return out, err
}

// UploadBackup sends body to a presigned upload URL.
func (c *Client) UploadBackup(ctx context.Context, target httpdto.BackupURLResponse, body []byte) error {
	resp, err := c.presigned(ctx, target, bytes.NewReader(body), int64(len(body)))
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// DownloadBackup fetches a presigned download URL. The caller closes the body.
func (c *Client) DownloadBackup(ctx context.Context, target httpdto.BackupURLResponse) (io.ReadCloser, error) {
	resp, err := c.presigned(ctx, target, nil, 0)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func (c *Client) presigned(ctx context.Context, target httpdto.BackupURLResponse, body io.Reader, size int64) (*http.Response, error) {
	method := target.Method
	if method == "" {
		method = http.MethodGet
	}
	req, err := http.NewRequestWithContext(ctx, method, target.URL, body)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.ContentLength = size
	}
	for k, v := range target.Headers {
		req.Header.Set(k, v)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, fmt.Errorf("%s presigned url: %s", method, resp.Status)
	}
	return resp, nil
}

func pageQuery(page, limit int) url.Values {
	q := url.Values{}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	return q
}
