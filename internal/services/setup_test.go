package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/config"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/crypto"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/domain/device"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/domain/user"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/events"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/proxy"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/repository/memory"
)

var (
	keyOnce sync.Once
	keyPair crypto.KeyPair
	keyErr  error
)

// testPublicKey returns one valid key shared by every test device.
func testPublicKey(t *testing.T) string {
	t.Helper()
	keyOnce.Do(func() {
		keyPair, keyErr = crypto.NewRSAOAEP().GenerateKeyPair()
	})
	require.NoError(t, keyErr)
	return keyPair.PublicKey
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fixture struct {
	repos         memory.Repositories
	clock         *testClock
	broker        *events.LocalBroker
	devices       *DeviceService
	auth          *AuthService
	pairing       *PairingService
	conversations *ConversationService
	messages      *MessageService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := &config.Config{
		JWTSecret:          "test-secret",
		JWTExpiryMin:       60,
		MaxActiveDevices:   device.DefaultMaxActive,
		PairingTokenTTLMin: 5,
	}
	repos := memory.NewStore().Repositories()
	clock := newTestClock()
	broker := events.NewLocalBroker()
	access := proxy.NewAccessControl(repos.Conversations)

	f := &fixture{repos: repos, clock: clock, broker: broker}
	f.devices = NewDeviceService(repos.Devices, cfg, nil)
	f.devices.now = clock.Now
	f.auth = NewAuthService(repos.Users, f.devices, cfg, nil)
	f.auth.now = clock.Now
	f.pairing = NewPairingService(repos.Pairing, f.devices, f.auth, cfg, nil)
	f.pairing.now = clock.Now
	f.conversations = NewConversationService(repos.Conversations, repos.Users, access, nil)
	f.conversations.now = clock.Now
	f.messages = NewMessageService(repos.Messages, f.devices, access, NewEventPublisher(broker, nil), nil)
	f.messages.now = clock.Now
	return f
}

func (f *fixture) user(t *testing.T, name string) user.User {
	t.Helper()
	u := user.User{
		ID:           uuid.New(),
		Username:     name,
		Email:        name + "@example.com",
		PasswordHash: "x",
		CreatedAt:    f.clock.Now(),
	}
	require.NoError(t, f.repos.Users.Create(context.Background(), &u))
	return u
}

func (f *fixture) device(t *testing.T, userID uuid.UUID) device.Device {
	t.Helper()
	d, err := f.devices.Register(context.Background(), userID, device.ClassWeb, testPublicKey(t))
	require.NoError(t, err)
	return d
}
