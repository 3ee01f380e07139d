package backup

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/crypto"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/domain/conversation"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/domain/message"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/fanout"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/localstore"
	pumpkin_errors "github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/pkg/errors"
)

var (
	keysOnce sync.Once
	keys     [2]crypto.KeyPair
	keysErr  error
)

func testKeys(t *testing.T) (crypto.KeyPair, crypto.KeyPair) {
	t.Helper()
	keysOnce.Do(func() {
		p := crypto.NewHybrid()
		for i := range keys {
			if keys[i], keysErr = p.GenerateKeyPair(); keysErr != nil {
				return
			}
		}
	})
	require.NoError(t, keysErr)
	return keys[0], keys[1]
}

func openStore(t *testing.T) *localstore.Store {
	t.Helper()
	store, err := localstore.OpenPath(filepath.Join(t.TempDir(), "local.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

type fakeSource struct {
	convs    []conversation.Conversation
	messages map[uuid.UUID][]message.Message
}

func (f *fakeSource) Conversations(context.Context) ([]conversation.Conversation, error) {
	return f.convs, nil
}

func (f *fakeSource) Messages(_ context.Context, id uuid.UUID) ([]message.Message, error) {
	return f.messages[id], nil
}

type fakeDirectory map[uuid.UUID]string

func (d fakeDirectory) Username(_ context.Context, id uuid.UUID) (string, error) {
	name, ok := d[id]
	if !ok {
		return "", errors.New("no such user")
	}
	return name, nil
}

type scenario struct {
	alice, bob         uuid.UUID
	aliceDev, bobDev   uuid.UUID
	aliceKey, bobKey   crypto.KeyPair
	conv               conversation.Conversation
	received, composed uuid.UUID
	garbled, foreign   uuid.UUID
	source             *fakeSource
}

// newScenario builds a conversation seen from alice's device: one message
// from bob encrypted for it, one composed on it, one encrypted with the
// wrong key and one without an envelope for it.
func newScenario(t *testing.T) *scenario {
	t.Helper()
	aliceKey, bobKey := testKeys(t)
	p := crypto.NewHybrid()

	s := &scenario{
		alice: uuid.New(), bob: uuid.New(),
		aliceDev: uuid.New(), bobDev: uuid.New(),
		aliceKey: aliceKey, bobKey: bobKey,
		received: uuid.New(), composed: uuid.New(), garbled: uuid.New(), foreign: uuid.New(),
	}
	base := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	s.conv = conversation.Conversation{
		ID:            uuid.New(),
		Participants:  conversation.OrderedPair(s.alice, s.bob),
		CreatedAt:     base,
		LastMessageAt: base.Add(4 * time.Minute),
	}

	forAlice, err := p.Encrypt([]byte("hi alice"), aliceKey.PublicKey)
	require.NoError(t, err)
	forBob, err := p.Encrypt([]byte("not yours"), bobKey.PublicKey)
	require.NoError(t, err)

	msgs := []message.Message{
		{ID: s.foreign, SenderID: s.bob, SenderDeviceID: s.bobDev, CreatedAt: base.Add(4 * time.Minute)},
		{ID: s.received, SenderID: s.bob, SenderDeviceID: s.bobDev, CreatedAt: base.Add(time.Minute),
			Envelopes: []message.Envelope{{DeviceID: s.aliceDev, Ciphertext: forAlice}}},
		{ID: s.composed, SenderID: s.alice, SenderDeviceID: s.aliceDev, CreatedAt: base.Add(2 * time.Minute)},
		{ID: s.garbled, SenderID: s.bob, SenderDeviceID: s.bobDev, CreatedAt: base.Add(3 * time.Minute),
			Envelopes: []message.Envelope{{DeviceID: s.aliceDev, Ciphertext: forBob}}},
	}
	for i := range msgs {
		msgs[i].ConversationID = s.conv.ID
	}
	s.source = &fakeSource{
		convs:    []conversation.Conversation{s.conv},
		messages: map[uuid.UUID][]message.Message{s.conv.ID: msgs},
	}
	return s
}

func (s *scenario) export(t *testing.T, store *localstore.Store) *Document {
	t.Helper()
	exporter := NewExporter(s.source, fakeDirectory{s.bob: "bob"}, store, fanout.NewEncoder(crypto.NewHybrid(), nil), nil)
	doc, err := exporter.Export(context.Background(), Identity{
		UserID:     s.alice,
		Username:   "alice",
		Email:      "alice@example.com",
		DeviceID:   s.aliceDev,
		PrivateKey: s.aliceKey.PrivateKey,
	})
	require.NoError(t, err)
	return doc
}

func TestExportReadableDocument(t *testing.T) {
	ctx := context.Background()
	s := newScenario(t)
	store := openStore(t)

	var composed message.Message
	for _, m := range s.source.messages[s.conv.ID] {
		if m.ID == s.composed {
			composed = m
		}
	}
	require.NoError(t, store.SaveComposed(ctx, composed, "hello bob"))

	doc := s.export(t, store)

	assert.Equal(t, Version, doc.Version)
	assert.Equal(t, ExportType, doc.ExportType)
	assert.Equal(t, s.alice.String(), doc.ExportedBy.UserID)
	assert.Equal(t, "alice@example.com", doc.ExportedBy.Email)
	assert.Equal(t, 1, doc.Metadata.TotalConversations)
	assert.Equal(t, 4, doc.Metadata.TotalMessages)
	assert.Equal(t, s.aliceDev.String(), doc.Metadata.DeviceID)

	require.Len(t, doc.Conversations, 1)
	msgs := doc.Conversations[0].Messages
	require.Len(t, msgs, 4)

	// Sorted by timestamp regardless of source order.
	assert.Equal(t, s.received.String(), msgs[0].MessageID)
	assert.Equal(t, "hi alice", msgs[0].Content)
	assert.Equal(t, "bob", msgs[0].Sender.Username)
	assert.False(t, msgs[0].IsOwn)

	assert.Equal(t, "hello bob", msgs[1].Content)
	assert.Equal(t, "alice", msgs[1].Sender.Username)
	assert.True(t, msgs[1].IsOwn)

	assert.Equal(t, fanout.PlaceholderDecryptFailed, msgs[2].Content)
	assert.Equal(t, fanout.PlaceholderNotForDevice, msgs[3].Content)

	// Live decryption fills the cache for the next export.
	cached, ok, err := store.CachedPlaintext(ctx, s.received)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "hi alice", cached)
}

func TestExportPrefersCachedPlaintext(t *testing.T) {
	ctx := context.Background()
	s := newScenario(t)
	store := openStore(t)
	require.NoError(t, store.CachePlaintext(ctx, s.received, "from cache"))

	doc := s.export(t, store)
	assert.Equal(t, "from cache", doc.Conversations[0].Messages[0].Content)
}

func TestExportImportRoundTripIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newScenario(t)
	doc := s.export(t, openStore(t))

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, doc))
	decoded, err := Decode(&buf)
	require.NoError(t, err)

	// Bob restores alice's export on a fresh device.
	fresh := openStore(t)
	importer := NewImporter(fresh, nil)

	first, err := importer.Import(ctx, decoded, s.bob)
	require.NoError(t, err)
	assert.Equal(t, 1, first.ConversationsImported)
	assert.Equal(t, 4, first.MessagesImported)
	assert.Empty(t, first.Errors)

	second, err := importer.Import(ctx, decoded, s.bob)
	require.NoError(t, err)
	assert.Equal(t, 0, second.ConversationsImported)
	assert.Equal(t, 0, second.MessagesImported)
	assert.Equal(t, 4, second.MessagesSkipped)

	convs, err := fresh.Conversations(ctx)
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.True(t, convs[0].Imported)

	restored, err := fresh.ImportedMessages(ctx, s.conv.ID)
	require.NoError(t, err)
	require.Len(t, restored, 4)
	for _, m := range restored {
		assert.Equal(t, m.SenderID == s.bob, m.IsOwn, m.ID.String())
	}
}

func TestImportSkipsMessagesAlreadyStoredLocally(t *testing.T) {
	ctx := context.Background()
	s := newScenario(t)
	doc := s.export(t, openStore(t))

	store := openStore(t)
	for _, m := range s.source.messages[s.conv.ID][:2] {
		require.NoError(t, store.RecordMessage(ctx, m))
	}

	summary, err := NewImporter(store, nil).Import(ctx, doc, s.alice)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.MessagesImported)
	assert.Equal(t, 2, summary.MessagesSkipped)
}

func TestImportRejectsInvalidDocumentsBeforeMutation(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	importer := NewImporter(store, nil)

	valid := func() *Document {
		return &Document{
			Version:    Version,
			ExportType: ExportType,
			Conversations: []Conversation{{
				ConversationID: uuid.NewString(),
				Participants:   []string{uuid.NewString(), uuid.NewString()},
			}},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Document)
	}{
		{"wrong version", func(d *Document) { d.Version = "1.0.0" }},
		{"missing version", func(d *Document) { d.Version = "" }},
		{"wrong export type", func(d *Document) { d.ExportType = "encrypted-backup" }},
		{"missing conversations", func(d *Document) { d.Conversations = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := valid()
			tt.mutate(doc)
			_, err := importer.Import(ctx, doc, uuid.New())
			assert.ErrorIs(t, err, pumpkin_errors.ErrInvalidBackupFormat)
		})
	}

	convs, err := store.Conversations(ctx)
	require.NoError(t, err)
	assert.Empty(t, convs)
}

func TestDecodeRejectsMalformedInput(t *testing.T) {
	inputs := []string{
		`not json`,
		`{"version":"2.0.0","exportType":"readable-backup"}`,
		`{"version":"2.0.0","exportType":"readable-backup","conversations":null}`,
		`{"exportType":"readable-backup","conversations":[]}`,
	}
	for _, in := range inputs {
		_, err := Decode(strings.NewReader(in))
		assert.ErrorIs(t, err, pumpkin_errors.ErrInvalidBackupFormat, in)
	}

	doc, err := Decode(strings.NewReader(`{"version":"2.0.0","exportType":"readable-backup","conversations":[]}`))
	require.NoError(t, err)
	assert.Empty(t, doc.Conversations)
}

func TestImportReportsMalformedEntries(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	userID := uuid.New()
	convID := uuid.NewString()

	doc := &Document{
		Version:    Version,
		ExportType: ExportType,
		Conversations: []Conversation{
			{ConversationID: "nope"},
			{
				ConversationID: convID,
				Participants:   []string{userID.String(), uuid.NewString()},
				Messages: []Message{
					{MessageID: uuid.NewString(), Sender: Sender{ID: userID.String(), Username: "me"}, Content: "ok", Timestamp: "2026-05-01T09:00:00.000Z"},
					{MessageID: "bad", Sender: Sender{ID: userID.String()}, Timestamp: "2026-05-01T09:00:00Z"},
					{MessageID: uuid.NewString(), Sender: Sender{ID: userID.String()}, Timestamp: "yesterday"},
				},
			},
		},
	}

	summary, err := NewImporter(store, nil).Import(ctx, doc, userID)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.ConversationsImported)
	assert.Equal(t, 1, summary.MessagesImported)
	assert.Len(t, summary.Errors, 3)
}
