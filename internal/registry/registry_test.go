package registry

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLastConnectionWins(t *testing.T) {
	ctx := context.Background()
	r := NewMemory()
	user := uuid.New()

	first := Connection{UserID: user, DeviceID: uuid.New(), ClientID: "a", ConnectedAt: time.Now()}
	second := Connection{UserID: user, DeviceID: uuid.New(), ClientID: "b", ConnectedAt: time.Now()}
	require.NoError(t, r.Add(ctx, first))
	require.NoError(t, r.Add(ctx, second))

	got, ok, err := r.Lookup(ctx, user)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "b", got.ClientID)

	// The older connection going away must not evict the newer one.
	require.NoError(t, r.Remove(ctx, user, "a"))
	online, err := IsOnline(ctx, r, user)
	require.NoError(t, err)
	assert.True(t, online)

	require.NoError(t, r.Remove(ctx, user, "b"))
	online, err = IsOnline(ctx, r, user)
	require.NoError(t, err)
	assert.False(t, online)
}
