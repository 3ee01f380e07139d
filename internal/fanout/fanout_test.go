package fanout

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/crypto"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/domain/device"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/domain/message"
	pumpkin_errors "github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/pkg/errors"
)

type testDevice struct {
	device.Device
	privateKey string
}

var (
	keysOnce sync.Once
	keys     []crypto.KeyPair
	keysErr  error
)

func testKeys(t *testing.T) []crypto.KeyPair {
	t.Helper()
	keysOnce.Do(func() {
		p := crypto.NewRSAOAEP()
		for i := 0; i < 3; i++ {
			kp, err := p.GenerateKeyPair()
			if err != nil {
				keysErr = err
				return
			}
			keys = append(keys, kp)
		}
	})
	require.NoError(t, keysErr)
	return keys
}

func newDevice(t *testing.T, userID uuid.UUID, kp crypto.KeyPair) testDevice {
	t.Helper()
	return testDevice{
		Device: device.Device{
			ID:        uuid.New(),
			UserID:    userID,
			Class:     device.ClassWeb,
			PublicKey: kp.PublicKey,
			IsActive:  true,
		},
		privateKey: kp.PrivateKey,
	}
}

func TestPrepareOutgoingTwoDevicesToOne(t *testing.T) {
	kps := testKeys(t)
	enc := NewEncoder(crypto.NewRSAOAEP(), nil)

	alice, bob := uuid.New(), uuid.New()
	a1 := newDevice(t, alice, kps[0])
	a2 := newDevice(t, alice, kps[1])
	b1 := newDevice(t, bob, kps[2])

	envs, report, err := enc.PrepareOutgoing(context.Background(), []byte("hi"), a1.ID,
		[]device.Device{a1.Device, a2.Device}, []device.Device{b1.Device})
	require.NoError(t, err)
	require.Len(t, envs, 2)
	assert.False(t, report.Partial())
	assert.NoError(t, report.Err())

	assert.ElementsMatch(t, []uuid.UUID{a2.ID, b1.ID}, message.DeviceIDs(envs))
	_, ok := message.Find(envs, a1.ID)
	assert.False(t, ok, "composing device must not be a target")

	for _, d := range []testDevice{a2, b1} {
		res := enc.DecodeForDevice(envs, d.ID, d.privateKey)
		require.Equal(t, StatusDecrypted, res.Status)
		assert.Equal(t, "hi", res.Plaintext)
	}

	res := enc.DecodeForDevice(envs, a1.ID, a1.privateKey)
	assert.Equal(t, StatusNotForDevice, res.Status)
	assert.Equal(t, PlaceholderNotForDevice, res.Text())
}

func TestEncodeForDevicesRoundTripKeepsOrder(t *testing.T) {
	kps := testKeys(t)
	enc := NewEncoder(crypto.NewHybrid(), nil)
	user := uuid.New()

	devs := []testDevice{newDevice(t, user, kps[0]), newDevice(t, user, kps[1]), newDevice(t, user, kps[2])}
	targets := []device.Device{devs[0].Device, devs[1].Device, devs[2].Device}

	envs, _, err := enc.EncodeForDevices(context.Background(), []byte("pumpkin spice"), targets)
	require.NoError(t, err)
	require.Equal(t, device.IDs(targets), message.DeviceIDs(envs))

	for _, d := range devs {
		res := enc.DecodeForDevice(envs, d.ID, d.privateKey)
		require.Equal(t, StatusDecrypted, res.Status)
		assert.Equal(t, "pumpkin spice", res.Text())
	}
}

func TestEncodeForDevicesSkipsBrokenKey(t *testing.T) {
	kps := testKeys(t)
	enc := NewEncoder(crypto.NewRSAOAEP(), nil)
	user := uuid.New()

	good := newDevice(t, user, kps[0])
	broken := newDevice(t, user, kps[1])
	broken.PublicKey = "not-a-key"

	envs, report, err := enc.EncodeForDevices(context.Background(), []byte("x"),
		[]device.Device{broken.Device, good.Device})
	require.NoError(t, err)
	require.Len(t, envs, 1)
	assert.Equal(t, good.ID, envs[0].DeviceID)

	assert.True(t, report.Partial())
	assert.ErrorIs(t, report.Err(), pumpkin_errors.ErrPartialEncryption)
	require.Len(t, report.Skipped, 1)
	assert.Equal(t, broken.ID, report.Skipped[0].DeviceID)
}

func TestEncodeForDevicesNoneEncrypted(t *testing.T) {
	enc := NewEncoder(crypto.NewRSAOAEP(), nil)

	_, _, err := enc.EncodeForDevices(context.Background(), []byte("x"), nil)
	assert.ErrorIs(t, err, pumpkin_errors.ErrNoDevicesEncrypted)

	bad := device.Device{ID: uuid.New(), PublicKey: "bad", IsActive: true}
	_, report, err := enc.EncodeForDevices(context.Background(), []byte("x"), []device.Device{bad})
	assert.ErrorIs(t, err, pumpkin_errors.ErrNoDevicesEncrypted)
	assert.False(t, report.Partial())
}

func TestEncodeForDevicesCollapsesDuplicates(t *testing.T) {
	kps := testKeys(t)
	enc := NewEncoder(crypto.NewRSAOAEP(), nil)
	d := newDevice(t, uuid.New(), kps[0])

	envs, _, err := enc.EncodeForDevices(context.Background(), []byte("x"),
		[]device.Device{d.Device, d.Device})
	require.NoError(t, err)
	assert.Len(t, envs, 1)
	assert.False(t, message.HasDuplicateDevice(envs))
}

func TestEncodeForDevicesExcludesDeactivated(t *testing.T) {
	kps := testKeys(t)
	enc := NewEncoder(crypto.NewRSAOAEP(), nil)
	user := uuid.New()

	active := newDevice(t, user, kps[0])
	removed := newDevice(t, user, kps[1])
	removed.IsActive = false

	envs, report, err := enc.EncodeForDevices(context.Background(), []byte("x"),
		[]device.Device{active.Device, removed.Device})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{active.ID}, message.DeviceIDs(envs))
	require.Len(t, report.Skipped, 1)
	assert.ErrorIs(t, report.Skipped[0].Err, pumpkin_errors.ErrDeviceInactive)
}

func TestDecodeForDeviceWrongKey(t *testing.T) {
	kps := testKeys(t)
	enc := NewEncoder(crypto.NewRSAOAEP(), nil)
	d := newDevice(t, uuid.New(), kps[0])

	envs, _, err := enc.EncodeForDevices(context.Background(), []byte("secret"), []device.Device{d.Device})
	require.NoError(t, err)

	res := enc.DecodeForDevice(envs, d.ID, kps[1].PrivateKey)
	assert.Equal(t, StatusDecryptFailed, res.Status)
	assert.Equal(t, PlaceholderDecryptFailed, res.Text())
	assert.NotEqual(t, "secret", res.Plaintext)
	assert.ErrorIs(t, res.Err, pumpkin_errors.ErrDecryptFailure)
}

func TestEncodeForDevicesCancelledContext(t *testing.T) {
	kps := testKeys(t)
	enc := NewEncoder(crypto.NewRSAOAEP(), nil)
	d := newDevice(t, uuid.New(), kps[0])

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := enc.EncodeForDevices(ctx, []byte("x"), []device.Device{d.Device})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDevicesOnDifferentProvidersReadEachOther(t *testing.T) {
	kps := testKeys(t)
	hybrid := NewEncoder(crypto.NewHybrid(), nil)
	direct := NewEncoder(crypto.NewRSAOAEP(), nil)

	alice, bob := uuid.New(), uuid.New()
	a1 := newDevice(t, alice, kps[0])
	b1 := newDevice(t, bob, kps[1])
	long := []byte(strings.Repeat("long message ", 40))

	for _, tc := range []struct {
		name      string
		sender    *Encoder
		reader    *Encoder
		plaintext []byte
		to        testDevice
	}{
		{"hybrid to direct", hybrid, direct, []byte("hi"), b1},
		{"direct to hybrid", direct, hybrid, []byte("hi"), a1},
		{"direct over the oaep limit", direct, direct, long, b1},
	} {
		t.Run(tc.name, func(t *testing.T) {
			envs, _, err := tc.sender.EncodeForDevices(context.Background(), tc.plaintext, []device.Device{tc.to.Device})
			require.NoError(t, err)
			require.Len(t, envs, 1)

			res := tc.reader.DecodeForDevice(envs, tc.to.ID, tc.to.privateKey)
			assert.Equal(t, StatusDecrypted, res.Status)
			assert.Equal(t, string(tc.plaintext), res.Plaintext)
		})
	}
}
