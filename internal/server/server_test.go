package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/config"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/crypto"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/events"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/registry"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/repository/memory"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/transport/httpdto"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/pkg/logger"
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

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Code    string          `json:"code"`
}

type apiTester struct {
	t      *testing.T
	server *httptest.Server
}

func newAPITester(t *testing.T) *apiTester {
	t.Helper()
	cfg := &config.Config{
		AppMode:          TestMode,
		JWTSecret:        "server-secret",
		JWTExpiryMin:     60,
		MaxActiveDevices: 5,
	}
	app, err := Assemble(cfg, logger.NewNop(), Backends{
		Repos:    memory.NewStore().Repositories(),
		Broker:   events.NewLocalBroker(),
		Registry: registry.NewMemory(),
	})
	require.NoError(t, err)

	srv := httptest.NewServer(app.Server.Engine())
	t.Cleanup(srv.Close)
	return &apiTester{t: t, server: srv}
}

func (a *apiTester) do(method, path, token string, body any, out any) (int, envelope) {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, a.server.URL+path, &buf)
	require.NoError(a.t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(a.t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(a.t, json.NewDecoder(resp.Body).Decode(&env))
	if out != nil && env.Success {
		require.NoError(a.t, json.Unmarshal(env.Data, out))
	}
	return resp.StatusCode, env
}

// signup registers a user and logs in with a new web device.
func (a *apiTester) signup(username string) httpdto.AuthResponse {
	a.t.Helper()
	status, env := a.do(http.MethodPost, "/v1/auth/register", "", httpdto.RegisterRequest{
		Username: username,
		Email:    username + "@example.com",
		Password: "correct horse",
	}, nil)
	require.Equal(a.t, http.StatusCreated, status, env.Error)

	var res httpdto.AuthResponse
	status, env = a.do(http.MethodPost, "/v1/auth/login", "", httpdto.LoginRequest{
		Identity:    username,
		Password:    "correct horse",
		DeviceClass: "web",
		PublicKey:   publicKey(a.t),
	}, &res)
	require.Equal(a.t, http.StatusOK, status, env.Error)
	return res
}

func TestPingAndHealth(t *testing.T) {
	api := newAPITester(t)

	status, env := api.do(http.MethodGet, "/ping", "", nil, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, env.Success)

	status, _ = api.do(http.MethodGet, "/health", "", nil, nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestProtectedRoutesRequireCredentials(t *testing.T) {
	api := newAPITester(t)

	for _, path := range []string{"/v1/devices", "/v1/conversations", "/v1/users/me"} {
		status, env := api.do(http.MethodGet, path, "", nil, nil)
		assert.Equal(t, http.StatusUnauthorized, status, path)
		assert.Equal(t, "UNAUTHORIZED", env.Code, path)
	}

	status, _ := api.do(http.MethodGet, "/v1/devices", "not-a-token", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestDeviceCapOverREST(t *testing.T) {
	api := newAPITester(t)
	alice := api.signup("alice")
	token := alice.Credentials.AccessToken

	for i := 0; i < 4; i++ {
		status, env := api.do(http.MethodPost, "/v1/devices", token, httpdto.RegisterDeviceRequest{
			DeviceClass: "android",
			PublicKey:   publicKey(t),
		}, nil)
		require.Equal(t, http.StatusCreated, status, env.Error)
	}

	status, env := api.do(http.MethodPost, "/v1/devices", token, httpdto.RegisterDeviceRequest{
		DeviceClass: "ios",
		PublicKey:   publicKey(t),
	}, nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "DEVICE_LIMIT_EXCEEDED", env.Code)

	var devices []httpdto.Device
	status, _ = api.do(http.MethodGet, "/v1/devices", token, nil, &devices)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, devices, 5)

	// Freeing a slot makes room again.
	victim := devices[0].ID
	if victim == alice.Device.ID {
		victim = devices[1].ID
	}
	status, _ = api.do(http.MethodDelete, "/v1/devices/"+victim, token, nil, nil)
	require.Equal(t, http.StatusOK, status)
	status, env = api.do(http.MethodPost, "/v1/devices", token, httpdto.RegisterDeviceRequest{
		DeviceClass: "ios",
		PublicKey:   publicKey(t),
	}, nil)
	assert.Equal(t, http.StatusCreated, status, env.Error)
}

func TestPairingOverREST(t *testing.T) {
	api := newAPITester(t)
	alice := api.signup("alice")
	token := alice.Credentials.AccessToken

	var issued httpdto.IssuePairingTokenResponse
	status, env := api.do(http.MethodPost, "/v1/pairing/tokens", token, nil, &issued)
	require.Equal(t, http.StatusCreated, status, env.Error)
	require.NotEmpty(t, issued.QRPayload)

	var redeemed httpdto.AuthResponse
	status, env = api.do(http.MethodPost, "/v1/pairing/redeem", "", httpdto.RedeemPairingRequest{
		Token:       issued.QRPayload,
		DeviceClass: "ios",
		PublicKey:   publicKey(t),
	}, &redeemed)
	require.Equal(t, http.StatusCreated, status, env.Error)
	assert.Equal(t, alice.UserID, redeemed.UserID)
	assert.NotEqual(t, alice.Device.ID, redeemed.Device.ID)

	status, env = api.do(http.MethodPost, "/v1/pairing/redeem", "", httpdto.RedeemPairingRequest{
		Token:       issued.Token,
		DeviceClass: "web",
		PublicKey:   publicKey(t),
	}, nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "TOKEN_ALREADY_USED", env.Code)

	// The paired device holds working credentials of its own.
	var devices []httpdto.Device
	status, _ = api.do(http.MethodGet, "/v1/devices", redeemed.Credentials.AccessToken, nil, &devices)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, devices, 2)
}

func TestConversationAndMessagesOverREST(t *testing.T) {
	api := newAPITester(t)
	alice := api.signup("alice")
	bob := api.signup("bob")

	var conv httpdto.Conversation
	status, env := api.do(http.MethodPost, "/v1/conversations", alice.Credentials.AccessToken,
		httpdto.CreateConversationRequest{ParticipantID: bob.UserID}, &conv)
	require.Equal(t, http.StatusCreated, status, env.Error)

	status, _ = api.do(http.MethodPost, "/v1/conversations", bob.Credentials.AccessToken,
		httpdto.CreateConversationRequest{ParticipantID: alice.UserID}, nil)
	assert.Equal(t, http.StatusOK, status)

	var sent httpdto.Message
	status, env = api.do(http.MethodPost, "/v1/conversations/"+conv.ID+"/messages", alice.Credentials.AccessToken,
		httpdto.SendMessageRequest{Envelopes: []httpdto.Envelope{
			{DeviceID: alice.Device.ID, Ciphertext: "for-alice"},
			{DeviceID: bob.Device.ID, Ciphertext: "for-bob"},
		}}, &sent)
	require.Equal(t, http.StatusCreated, status, env.Error)
	assert.Equal(t, alice.Device.ID, sent.SenderDeviceID)

	var page httpdto.ListResponse[httpdto.Message]
	status, env = api.do(http.MethodGet, "/v1/conversations/"+conv.ID+"/messages", bob.Credentials.AccessToken, nil, &page)
	require.Equal(t, http.StatusOK, status, env.Error)
	require.Len(t, page.Items, 1)
	require.Len(t, page.Items[0].Envelopes, 1)
	assert.Equal(t, "for-bob", page.Items[0].Envelopes[0].Ciphertext)

	mallory := api.signup("mallory")
	status, env = api.do(http.MethodGet, "/v1/conversations/"+conv.ID+"/messages", mallory.Credentials.AccessToken, nil, nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", env.Code)
}

func TestPresenceAndBackupsWithoutStorage(t *testing.T) {
	api := newAPITester(t)
	alice := api.signup("alice")
	bob := api.signup("bob")

	var presence httpdto.Presence
	status, _ := api.do(http.MethodGet, "/v1/users/"+bob.UserID+"/presence", alice.Credentials.AccessToken, nil, &presence)
	require.Equal(t, http.StatusOK, status)
	assert.False(t, presence.Online)

	status, env := api.do(http.MethodPost, "/v1/backups/upload-url", alice.Credentials.AccessToken,
		httpdto.BackupUploadRequest{FileName: "backup.json", FileSize: 1024}, nil)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "SERVICE_UNAVAILABLE", env.Code)
}
