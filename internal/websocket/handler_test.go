package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	gorilla "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/config"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/crypto"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/domain/device"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/domain/user"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/events"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/proxy"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/registry"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/repository/memory"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/services"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/transport/httpdto"
)

var (
	keyOnce sync.Once
	keyPair crypto.KeyPair
	keyErr  error
)

func publicKey(t *testing.T) string {
	t.Helper()
	keyOnce.Do(func() {
		keyPair, keyErr = crypto.NewRSAOAEP().GenerateKeyPair()
	})
	require.NoError(t, keyErr)
	return keyPair.PublicKey
}

type testServer struct {
	url      string
	repos    memory.Repositories
	auth     *services.AuthService
	devices  *services.DeviceService
	convs    *services.ConversationService
	registry *registry.Memory
	hub      *Hub
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{JWTSecret: "ws-secret", JWTExpiryMin: 60, MaxActiveDevices: device.DefaultMaxActive}
	repos := memory.NewStore().Repositories()
	broker := events.NewLocalBroker()
	access := proxy.NewAccessControl(repos.Conversations)

	devices := services.NewDeviceService(repos.Devices, cfg, nil)
	auth := services.NewAuthService(repos.Users, devices, cfg, nil)
	convs := services.NewConversationService(repos.Conversations, repos.Users, access, nil)
	messages := services.NewMessageService(repos.Messages, devices, access, services.NewEventPublisher(broker, nil), nil)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	hub := NewHub()
	go hub.Run(ctx)
	log := NewWebSocketLogger(nil)
	require.NoError(t, NewEventBridge(broker, hub, log).Run(ctx))

	reg := registry.NewMemory()
	h := NewHandler(hub, auth, messages, devices, reg, nil, log)

	r := gin.New()
	r.GET("/v1/ws", h.Handle)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return &testServer{
		url:      "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/ws",
		repos:    repos,
		auth:     auth,
		devices:  devices,
		convs:    convs,
		registry: reg,
		hub:      hub,
	}
}

type session struct {
	user   uuid.UUID
	device device.Device
	token  string
}

func (s *testServer) newSession(t *testing.T, name string) session {
	t.Helper()
	u := user.User{ID: uuid.New(), Username: name, Email: name + "@example.com", PasswordHash: "x", CreatedAt: time.Now()}
	require.NoError(t, s.repos.Users.Create(context.Background(), &u))
	return s.addDevice(t, u.ID)
}

func (s *testServer) addDevice(t *testing.T, userID uuid.UUID) session {
	t.Helper()
	d, err := s.devices.Register(context.Background(), userID, device.ClassWeb, publicKey(t))
	require.NoError(t, err)
	creds, err := s.auth.IssueCredentials(userID, d.ID)
	require.NoError(t, err)
	return session{user: userID, device: d, token: creds.AccessToken}
}

func (s *testServer) dial(t *testing.T, token string) *gorilla.Conn {
	t.Helper()
	conn, resp, err := gorilla.DefaultDialer.Dial(s.url+"?token="+token, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readUntil reads frames until one of the wanted type arrives.
func readUntil(t *testing.T, conn *gorilla.Conn, frameType string) httpdto.ServerFrame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		var frame httpdto.ServerFrame
		require.NoError(t, conn.ReadJSON(&frame))
		if frame.Type == frameType {
			return frame
		}
	}
}

func waitForRoom(t *testing.T, hub *Hub, userID uuid.UUID, size int) {
	t.Helper()
	require.Eventually(t, func() bool { return hub.RoomSize(userID) == size }, 2*time.Second, 10*time.Millisecond)
}

func TestHandshakeRejectsBadCredentials(t *testing.T) {
	s := newTestServer(t)
	alice := s.newSession(t, "alice")

	_, resp, err := gorilla.DefaultDialer.Dial(s.url+"?token=garbage", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = gorilla.DefaultDialer.Dial(s.url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	require.NoError(t, s.devices.Deactivate(context.Background(), alice.device.ID, alice.user))
	_, resp, err = gorilla.DefaultDialer.Dial(s.url+"?token="+alice.token, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHandshakeAcceptsBearerHeader(t *testing.T) {
	s := newTestServer(t)
	alice := s.newSession(t, "alice")

	header := http.Header{}
	header.Set("Authorization", "Bearer "+alice.token)
	conn, _, err := gorilla.DefaultDialer.Dial(s.url, header)
	require.NoError(t, err)
	defer conn.Close()

	waitForRoom(t, s.hub, alice.user, 1)
}

func TestPingPong(t *testing.T) {
	s := newTestServer(t)
	alice := s.newSession(t, "alice")
	conn := s.dial(t, alice.token)

	require.NoError(t, conn.WriteJSON(httpdto.ClientFrame{Type: httpdto.FramePing, RequestID: "p1"}))
	frame := readUntil(t, conn, httpdto.FramePong)
	assert.Equal(t, "p1", frame.RequestID)
}

func TestSendMessageAcksAndDelivers(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	alice := s.newSession(t, "alice")
	aliceLaptop := s.addDevice(t, alice.user)
	bob := s.newSession(t, "bob")

	conv, _, err := s.convs.CreateOrGet(ctx, alice.user, bob.user)
	require.NoError(t, err)

	aliceConn := s.dial(t, alice.token)
	laptopConn := s.dial(t, aliceLaptop.token)
	bobConn := s.dial(t, bob.token)
	waitForRoom(t, s.hub, alice.user, 2)
	waitForRoom(t, s.hub, bob.user, 1)

	require.NoError(t, aliceConn.WriteJSON(httpdto.ClientFrame{
		Type:           httpdto.FrameSendMessage,
		RequestID:      "r1",
		ConversationID: conv.ID.String(),
		Envelopes: []httpdto.Envelope{
			{DeviceID: aliceLaptop.device.ID.String(), Ciphertext: "for-laptop"},
			{DeviceID: bob.device.ID.String(), Ciphertext: "for-bob"},
		},
	}))

	ack := readUntil(t, aliceConn, httpdto.FrameMessageAck)
	require.True(t, ack.Success, ack.Error)
	assert.Equal(t, "r1", ack.RequestID)
	require.NotNil(t, ack.Message)

	bobFrame := readUntil(t, bobConn, httpdto.FrameNewMessage)
	require.NotNil(t, bobFrame.Message)
	assert.Equal(t, ack.Message.ID, bobFrame.Message.ID)
	require.Len(t, bobFrame.Message.Envelopes, 1)
	assert.Equal(t, "for-bob", bobFrame.Message.Envelopes[0].Ciphertext)

	laptopFrame := readUntil(t, laptopConn, httpdto.FrameNewMessage)
	require.Len(t, laptopFrame.Message.Envelopes, 1)
	assert.Equal(t, "for-laptop", laptopFrame.Message.Envelopes[0].Ciphertext)
}

func TestSendMessageRejectsInvalidFrame(t *testing.T) {
	s := newTestServer(t)
	alice := s.newSession(t, "alice")
	conn := s.dial(t, alice.token)

	require.NoError(t, conn.WriteJSON(httpdto.ClientFrame{
		Type:           httpdto.FrameSendMessage,
		RequestID:      "bad",
		ConversationID: "not-a-uuid",
	}))
	ack := readUntil(t, conn, httpdto.FrameMessageAck)
	assert.False(t, ack.Success)
	assert.Equal(t, "bad", ack.RequestID)
	assert.Equal(t, "VALIDATION_ERROR", ack.Code)

	require.NoError(t, conn.WriteMessage(gorilla.TextMessage, []byte("{not json")))
	errFrame := readUntil(t, conn, httpdto.FrameError)
	assert.Equal(t, "VALIDATION_ERROR", errFrame.Code)
}

func TestRegistryTracksLatestConnection(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	alice := s.newSession(t, "alice")
	laptop := s.addDevice(t, alice.user)

	first := s.dial(t, alice.token)
	waitForRoom(t, s.hub, alice.user, 1)
	s.dial(t, laptop.token)
	waitForRoom(t, s.hub, alice.user, 2)

	require.Eventually(t, func() bool {
		conn, ok, err := s.registry.Lookup(ctx, alice.user)
		return err == nil && ok && conn.DeviceID == laptop.device.ID
	}, 2*time.Second, 10*time.Millisecond)

	// Closing the older connection must not evict the newer one.
	require.NoError(t, first.Close())
	waitForRoom(t, s.hub, alice.user, 1)
	conn, ok, err := s.registry.Lookup(ctx, alice.user)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, laptop.device.ID, conn.DeviceID)
}
