package localstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/domain/conversation"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/domain/message"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenPath(filepath.Join(t.TempDir(), "local.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func TestOpenIsIdempotent(t *testing.T) {
	dir := t.TempDir()

	first, path, err := Open(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, DefaultDBFileName), path)
	require.NoError(t, first.CachePlaintext(context.Background(), uuid.New(), "hello"))
	require.NoError(t, first.Close())
	require.NoError(t, first.Close())

	second, _, err := Open(dir)
	require.NoError(t, err)
	defer second.Close()

	n, err := second.CacheSize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestDecryptionCacheRetention(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	c := &clock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	store.now = c.Now

	old, fresh := uuid.New(), uuid.New()
	require.NoError(t, store.CachePlaintext(ctx, old, "old"))
	c.now = c.now.Add(6 * 24 * time.Hour)
	require.NoError(t, store.CachePlaintext(ctx, fresh, "fresh"))

	c.now = c.now.Add(2 * 24 * time.Hour)

	// Expired entries read as misses before any sweep runs.
	_, ok, err := store.CachedPlaintext(ctx, old)
	require.NoError(t, err)
	assert.False(t, ok)

	got, ok, err := store.CachedPlaintext(ctx, fresh)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "fresh", got)

	n, err := store.SweepCache(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	size, err := store.CacheSize(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, size)
}

func TestCacheMissIsNotAbsence(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	m := message.Message{
		ID:             uuid.New(),
		ConversationID: uuid.New(),
		SenderID:       uuid.New(),
		SenderDeviceID: uuid.New(),
		CreatedAt:      time.Now(),
	}
	require.NoError(t, store.RecordMessage(ctx, m))

	_, ok, err := store.Plaintext(ctx, m.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	exists, err := store.HasMessage(ctx, m.ID)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestComposedPlaintextOutlivesCache(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	c := &clock{now: time.Now()}
	store.now = c.Now

	m := message.Message{
		ID:             uuid.New(),
		ConversationID: uuid.New(),
		SenderID:       uuid.New(),
		SenderDeviceID: uuid.New(),
		CreatedAt:      c.now,
	}
	require.NoError(t, store.SaveComposed(ctx, m, "my own words"))

	c.now = c.now.Add(30 * 24 * time.Hour)
	_, err := store.SweepCache(ctx)
	require.NoError(t, err)

	got, ok, err := store.Plaintext(ctx, m.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "my own words", got)

	msgs, err := store.Messages(ctx, m.ConversationID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.True(t, msgs[0].Composed)
}

func TestSaveConversationKeepsLastMessageMonotonic(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	conv := conversation.Conversation{
		ID:            uuid.New(),
		Participants:  [2]uuid.UUID{uuid.New(), uuid.New()},
		CreatedAt:     base,
		LastMessageAt: base.Add(time.Hour),
	}
	require.NoError(t, store.SaveConversation(ctx, conv))

	stale := conv
	stale.LastMessageAt = base.Add(time.Minute)
	require.NoError(t, store.SaveConversation(ctx, stale))

	got, ok, err := store.Conversation(ctx, conv.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, got.LastMessageAt.Equal(base.Add(time.Hour)))
	assert.False(t, got.Imported)
	assert.Equal(t, []uuid.UUID{conv.Participants[0], conv.Participants[1]}, got.Participants)
}

func TestImportNeverOverwrites(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	convID := uuid.New()
	created, err := store.ImportConversation(ctx, Conversation{ID: convID, Participants: []uuid.UUID{uuid.New(), uuid.New()}})
	require.NoError(t, err)
	assert.True(t, created)

	created, err = store.ImportConversation(ctx, Conversation{ID: convID})
	require.NoError(t, err)
	assert.False(t, created)

	msg := ImportedMessage{
		ID:             uuid.New(),
		ConversationID: convID,
		SenderID:       uuid.New(),
		SenderUsername: "alice",
		Content:        "original",
		Timestamp:      time.Now(),
		IsOwn:          true,
	}
	inserted, err := store.ImportMessage(ctx, msg)
	require.NoError(t, err)
	assert.True(t, inserted)

	msg.Content = "tampered"
	inserted, err = store.ImportMessage(ctx, msg)
	require.NoError(t, err)
	assert.False(t, inserted)

	// A message already in the regular set is not imported either.
	local := message.Message{ID: uuid.New(), ConversationID: convID, SenderID: uuid.New(), SenderDeviceID: uuid.New(), CreatedAt: time.Now()}
	require.NoError(t, store.RecordMessage(ctx, local))
	inserted, err = store.ImportMessage(ctx, ImportedMessage{ID: local.ID, ConversationID: convID, SenderID: local.SenderID, Content: "dup", Timestamp: time.Now()})
	require.NoError(t, err)
	assert.False(t, inserted)

	got, err := store.ImportedMessages(ctx, convID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "original", got[0].Content)
	assert.True(t, got[0].IsOwn)
}

func TestRunCacheSweeperStopsWithContext(t *testing.T) {
	store := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		RunCacheSweeper(ctx, store, 10*time.Millisecond, nil)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
