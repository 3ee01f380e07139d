package events

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalBrokerRoutesByPattern(t *testing.T) {
	b := NewLocalBroker()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var got []string
	require.NoError(t, b.Subscribe(ctx, UserChannelPattern, func(_ context.Context, channel string, ev Event) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, channel)
	}))

	alice, bob := uuid.New(), uuid.New()
	require.NoError(t, b.Publish(ctx, Event{Type: EventMessageNew, UserID: alice, Data: json.RawMessage(`{}`)}))
	require.NoError(t, b.Publish(ctx, Event{Type: EventMessageNew, UserID: bob, Data: json.RawMessage(`{}`)}))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{UserChannel(alice), UserChannel(bob)}, got)
}

func TestLocalBrokerSingleUserPattern(t *testing.T) {
	b := NewLocalBroker()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	alice := uuid.New()
	count := 0
	require.NoError(t, b.Subscribe(ctx, UserChannel(alice), func(context.Context, string, Event) { count++ }))

	require.NoError(t, b.Publish(ctx, Event{UserID: uuid.New()}))
	require.NoError(t, b.Publish(ctx, Event{UserID: alice}))
	assert.Equal(t, 1, count)
}

func TestLocalBrokerUnsubscribesOnCancel(t *testing.T) {
	b := NewLocalBroker()
	ctx, cancel := context.WithCancel(context.Background())

	var mu sync.Mutex
	count := 0
	require.NoError(t, b.Subscribe(ctx, UserChannelPattern, func(context.Context, string, Event) {
		mu.Lock()
		count++
		mu.Unlock()
	}))
	cancel()

	require.Eventually(t, func() bool {
		b.mu.RLock()
		defer b.mu.RUnlock()
		return len(b.subs) == 0
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, b.Publish(context.Background(), Event{UserID: uuid.New()}))
	mu.Lock()
	defer mu.Unlock()
	assert.Zero(t, count)
}

func TestUserChannelRoundTrip(t *testing.T) {
	id := uuid.New()
	parsed, err := UserIDFromChannel(UserChannel(id))
	require.NoError(t, err)
	assert.Equal(t, id, parsed)

	_, err = UserIDFromChannel("channel:conversation:x")
	assert.Error(t, err)
}
