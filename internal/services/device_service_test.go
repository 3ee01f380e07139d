package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/domain/device"
	pumpkin_errors "github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/pkg/errors"
)

func TestDeviceRegisterEnforcesCap(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")

	var registered []device.Device
	for i := 0; i < device.DefaultMaxActive; i++ {
		registered = append(registered, f.device(t, alice.ID))
	}

	_, err := f.devices.Register(ctx, alice.ID, device.ClassIOS, testPublicKey(t))
	require.ErrorIs(t, err, pumpkin_errors.ErrDeviceLimitExceeded)

	require.NoError(t, f.devices.Deactivate(ctx, registered[0].ID, alice.ID))
	sixth, err := f.devices.Register(ctx, alice.ID, device.ClassAndroid, testPublicKey(t))
	require.NoError(t, err)
	assert.True(t, sixth.IsActive)

	_, err = f.devices.Reactivate(ctx, registered[0].ID, alice.ID)
	require.ErrorIs(t, err, pumpkin_errors.ErrDeviceLimitExceeded)

	active, err := f.devices.ListActive(ctx, alice.ID)
	require.NoError(t, err)
	assert.Len(t, active, device.DefaultMaxActive)
}

func TestDeviceRegisterConcurrentRespectsCap(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice")
	key := testPublicKey(t)

	const attempts = 12
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		ok      int
		limited int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.devices.Register(context.Background(), alice.ID, device.ClassWeb, key)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, pumpkin_errors.ErrDeviceLimitExceeded):
				limited++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, device.DefaultMaxActive, ok)
	assert.Equal(t, attempts-device.DefaultMaxActive, limited)
}

func TestDeviceDeactivateIsIdempotentAndScoped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")
	d := f.device(t, alice.ID)

	require.NoError(t, f.devices.Deactivate(ctx, d.ID, alice.ID))
	require.NoError(t, f.devices.Deactivate(ctx, d.ID, alice.ID))

	err := f.devices.Deactivate(ctx, d.ID, bob.ID)
	require.ErrorIs(t, err, pumpkin_errors.ErrNotFound)

	err = f.devices.Deactivate(ctx, uuid.New(), alice.ID)
	require.ErrorIs(t, err, pumpkin_errors.ErrNotFound)

	stored, err := f.devices.Get(ctx, d.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsActive)
	assert.Equal(t, testPublicKey(t), stored.PublicKey)
}

func TestDeviceReactivate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")
	d := f.device(t, alice.ID)

	require.NoError(t, f.devices.Deactivate(ctx, d.ID, alice.ID))
	reactivated, err := f.devices.Reactivate(ctx, d.ID, alice.ID)
	require.NoError(t, err)
	assert.True(t, reactivated.IsActive)
	assert.Equal(t, d.ID, reactivated.ID)

	again, err := f.devices.Reactivate(ctx, d.ID, alice.ID)
	require.NoError(t, err)
	assert.True(t, again.IsActive)
}

func TestDeviceRevokedCannotReactivate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")
	d := f.device(t, alice.ID)

	require.NoError(t, f.devices.Revoke(ctx, d.ID, alice.ID))
	_, err := f.devices.Reactivate(ctx, d.ID, alice.ID)
	require.ErrorIs(t, err, pumpkin_errors.ErrDeviceRevoked)
}

func TestDeviceRegisterValidatesInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")

	tests := []struct {
		name  string
		class device.Class
		key   string
	}{
		{"unknown class", device.Class("toaster"), testPublicKey(t)},
		{"empty key", device.ClassWeb, ""},
		{"garbage key", device.ClassWeb, "bm90LWEta2V5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.devices.Register(ctx, alice.ID, tt.class, tt.key)
			require.ErrorIs(t, err, pumpkin_errors.ErrInvalidInput)
		})
	}

	count, err := f.repos.Devices.CountActiveDevices(ctx, alice.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestDeviceRequireActive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")
	d := f.device(t, alice.ID)

	_, err := f.devices.RequireActive(ctx, d.ID, alice.ID)
	require.NoError(t, err)

	_, err = f.devices.RequireActive(ctx, d.ID, bob.ID)
	require.ErrorIs(t, err, pumpkin_errors.ErrUnauthorized)

	require.NoError(t, f.devices.Deactivate(ctx, d.ID, alice.ID))
	_, err = f.devices.RequireActive(ctx, d.ID, alice.ID)
	require.ErrorIs(t, err, pumpkin_errors.ErrUnauthorized)
}
