package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/domain/device"
	pumpkin_errors "github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/pkg/errors"
)

func TestPairingIssueAndRedeem(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")

	issued, err := f.pairing.Issue(ctx, alice.ID)
	require.NoError(t, err)
	assert.Len(t, issued.Token, 64)
	assert.Equal(t, f.clock.Now().Add(5*time.Minute), issued.ExpiresAt)
	assert.Equal(t, "pumpkin://pair?token="+issued.Token, issued.QRPayload)

	res, err := f.pairing.Redeem(ctx, issued.QRPayload, device.ClassIOS, testPublicKey(t))
	require.NoError(t, err)
	assert.Equal(t, alice.ID, res.UserID)
	assert.Equal(t, alice.ID, res.Device.UserID)
	assert.Equal(t, device.ClassIOS, res.Device.Class)
	assert.True(t, res.Device.IsActive)
	require.NotEmpty(t, res.Credentials.AccessToken)

	p, err := f.auth.Authenticate(ctx, res.Credentials.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, p.UserID)
	assert.Equal(t, res.Device.ID, p.DeviceID)

	_, err = f.pairing.Redeem(ctx, issued.Token, device.ClassWeb, testPublicKey(t))
	require.ErrorIs(t, err, pumpkin_errors.ErrTokenAlreadyUsed)
}

func TestPairingTokenIsStoredHashed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")

	issued, err := f.pairing.Issue(ctx, alice.ID)
	require.NoError(t, err)

	_, err = f.repos.Pairing.Consume(ctx, issued.Token, f.clock.Now())
	require.ErrorIs(t, err, pumpkin_errors.ErrNotFound)

	_, err = f.repos.Pairing.Consume(ctx, HashToken(issued.Token), f.clock.Now())
	require.NoError(t, err)
}

func TestPairingConcurrentRedeemHasOneWinner(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice")
	issued, err := f.pairing.Issue(context.Background(), alice.ID)
	require.NoError(t, err)
	key := testPublicKey(t)

	const redeemers = 10
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners int
		losers  int
	)
	for i := 0; i < redeemers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.pairing.Redeem(context.Background(), issued.Token, device.ClassAndroid, key)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				winners++
			case errors.Is(err, pumpkin_errors.ErrTokenAlreadyUsed), errors.Is(err, pumpkin_errors.ErrConflict):
				losers++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, winners)
	assert.Equal(t, redeemers-1, losers)

	active, err := f.devices.ListActive(context.Background(), alice.ID)
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestPairingExpiredToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")

	issued, err := f.pairing.Issue(ctx, alice.ID)
	require.NoError(t, err)

	f.clock.Advance(5 * time.Minute)
	_, err = f.pairing.Redeem(ctx, issued.Token, device.ClassWeb, testPublicKey(t))
	require.ErrorIs(t, err, pumpkin_errors.ErrTokenExpired)

	active, err := f.devices.ListActive(ctx, alice.ID)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestPairingIssueSupersedesEarlierTokens(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")

	first, err := f.pairing.Issue(ctx, alice.ID)
	require.NoError(t, err)
	second, err := f.pairing.Issue(ctx, alice.ID)
	require.NoError(t, err)
	assert.NotEqual(t, first.Token, second.Token)

	_, err = f.pairing.Redeem(ctx, first.Token, device.ClassWeb, testPublicKey(t))
	require.ErrorIs(t, err, pumpkin_errors.ErrTokenInvalidated)

	_, err = f.pairing.Redeem(ctx, second.Token, device.ClassWeb, testPublicKey(t))
	require.NoError(t, err)
}

func TestPairingInvalidate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")

	issued, err := f.pairing.Issue(ctx, alice.ID)
	require.NoError(t, err)

	n, err := f.pairing.Invalidate(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = f.pairing.Redeem(ctx, issued.Token, device.ClassWeb, testPublicKey(t))
	require.ErrorIs(t, err, pumpkin_errors.ErrTokenInvalidated)
}

func TestPairingUnknownToken(t *testing.T) {
	f := newFixture(t)
	_, err := f.pairing.Redeem(context.Background(), "deadbeef", device.ClassWeb, testPublicKey(t))
	require.ErrorIs(t, err, pumpkin_errors.ErrNotFound)
}

func TestPairingRedeemReleasesTokenWhenDeviceCapReached(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")

	var first device.Device
	for i := 0; i < device.DefaultMaxActive; i++ {
		d := f.device(t, alice.ID)
		if i == 0 {
			first = d
		}
	}

	issued, err := f.pairing.Issue(ctx, alice.ID)
	require.NoError(t, err)

	_, err = f.pairing.Redeem(ctx, issued.Token, device.ClassWeb, testPublicKey(t))
	require.ErrorIs(t, err, pumpkin_errors.ErrDeviceLimitExceeded)

	require.NoError(t, f.devices.Deactivate(ctx, first.ID, alice.ID))
	res, err := f.pairing.Redeem(ctx, issued.Token, device.ClassWeb, testPublicKey(t))
	require.NoError(t, err)
	assert.Equal(t, alice.ID, res.UserID)
}

func TestPairingInvalidInputDoesNotConsumeToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")

	issued, err := f.pairing.Issue(ctx, alice.ID)
	require.NoError(t, err)

	_, err = f.pairing.Redeem(ctx, issued.Token, device.Class("fridge"), testPublicKey(t))
	require.ErrorIs(t, err, pumpkin_errors.ErrInvalidInput)
	_, err = f.pairing.Redeem(ctx, issued.Token, device.ClassWeb, "not-a-key")
	require.ErrorIs(t, err, pumpkin_errors.ErrInvalidInput)

	_, err = f.pairing.Redeem(ctx, issued.Token, device.ClassWeb, testPublicKey(t))
	require.NoError(t, err)
}

func TestPairingPurgeExpired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")

	_, err := f.pairing.Issue(ctx, alice.ID)
	require.NoError(t, err)
	_, err = f.pairing.Issue(ctx, bob.ID)
	require.NoError(t, err)

	n, err := f.pairing.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	f.clock.Advance(6 * time.Minute)
	n, err = f.pairing.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestTokenFromPayload(t *testing.T) {
	assert.Equal(t, "abc", TokenFromPayload("abc"))
	assert.Equal(t, "abc", TokenFromPayload(" pumpkin://pair?token=abc "))
	assert.Equal(t, "", TokenFromPayload("pumpkin://pair"))
}

type failingIssuer struct{}

func (failingIssuer) IssueCredentials(uuid.UUID, uuid.UUID) (Credentials, error) {
	return Credentials{}, errors.New("signing key unavailable")
}

func TestPairingRedeemRollsBackWhenCredentialsFail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")
	f.device(t, alice.ID)

	issued, err := f.pairing.Issue(ctx, alice.ID)
	require.NoError(t, err)

	f.pairing.issuer = failingIssuer{}
	_, err = f.pairing.Redeem(ctx, issued.Token, device.ClassIOS, testPublicKey(t))
	require.Error(t, err)

	active, err := f.devices.ListActive(ctx, alice.ID)
	require.NoError(t, err)
	assert.Len(t, active, 1, "the uncredentialed device must not hold a slot")

	f.pairing.issuer = f.auth
	res, err := f.pairing.Redeem(ctx, issued.Token, device.ClassIOS, testPublicKey(t))
	require.NoError(t, err)
	assert.NotEmpty(t, res.Credentials.AccessToken)

	active, err = f.devices.ListActive(ctx, alice.ID)
	require.NoError(t, err)
	assert.Len(t, active, 2)
}
