package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/backup"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/domain/conversation"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/domain/message"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/fanout"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/localstore"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/transport/httpdto"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/pkg/logger"
)

const pageLimit = 200

// Entry is a message as shown on this device.
type Entry struct {
	Message message.Message
	Text    string
	Status  fanout.Status
	Own     bool
}

// Messenger sends and reads messages as one device. It encrypts outgoing
// text for every active device of both participants and keeps plaintext in
// the local store.
type Messenger struct {
	api     *Client
	encoder *fanout.Encoder
	store   *localstore.Store
	id      backup.Identity
	log     *logger.Logger

	mu    sync.Mutex
	names map[uuid.UUID]string
}

func NewMessenger(api *Client, encoder *fanout.Encoder, store *localstore.Store, id backup.Identity, log *logger.Logger) *Messenger {
	if log == nil {
		log = logger.NewNop()
	}
	names := map[uuid.UUID]string{}
	if id.Username != "" {
		names[id.UserID] = id.Username
	}
	return &Messenger{
		api:     api,
		encoder: encoder,
		store:   store,
		id:      id,
		log:     log,
		names:   names,
	}
}

func (m *Messenger) Identity() backup.Identity { return m.id }

// SendText encrypts text for the peer's devices and the sender's other
// devices and posts the envelopes. A partial report is not an error; the
// caller decides whether to surface it.
func (m *Messenger) SendText(ctx context.Context, conversationID uuid.UUID, text string) (message.Message, fanout.Report, error) {
	conv, err := m.api.GetConversation(ctx, conversationID)
	if err != nil {
		return message.Message{}, fanout.Report{}, err
	}
	own, err := m.api.ListDevices(ctx)
	if err != nil {
		return message.Message{}, fanout.Report{}, fmt.Errorf("list own devices: %w", err)
	}
	peers, err := m.api.ListUserDevices(ctx, conv.Peer(m.id.UserID))
	if err != nil {
		return message.Message{}, fanout.Report{}, fmt.Errorf("list peer devices: %w", err)
	}

	envelopes, report, err := m.encoder.PrepareOutgoing(ctx, []byte(text), m.id.DeviceID, own, peers)
	if err != nil {
		return message.Message{}, report, err
	}
	if report.Partial() {
		m.log.Warnf("message to %s skipped %d devices", conversationID, len(report.Skipped))
	}

	msg, err := m.api.SendMessage(ctx, conversationID, envelopes)
	if err != nil {
		return message.Message{}, report, err
	}

	conv.LastMessageAt = msg.CreatedAt
	if err := m.store.SaveConversation(ctx, conv); err != nil {
		m.log.Warnf("save conversation %s: %v", conv.ID, err)
	}
	if err := m.store.SaveComposed(ctx, msg, text); err != nil {
		return msg, report, err
	}
	return msg, report, nil
}

// History returns the conversation as readable by this device, oldest first.
func (m *Messenger) History(ctx context.Context, conversationID uuid.UUID) ([]Entry, error) {
	msgs, err := m.Messages(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(msgs))
	for _, msg := range msgs {
		entries = append(entries, m.Read(ctx, msg))
	}
	return entries, nil
}

// Read records msg locally and resolves its text: composed plaintext and
// the decryption cache first, then this device's envelope.
func (m *Messenger) Read(ctx context.Context, msg message.Message) Entry {
	if err := m.store.RecordMessage(ctx, msg); err != nil {
		m.log.Warnf("record message %s: %v", msg.ID, err)
	}
	entry := Entry{Message: msg, Own: msg.SenderID == m.id.UserID}

	if text, ok, err := m.store.Plaintext(ctx, msg.ID); err != nil {
		m.log.Warnf("read local plaintext of %s: %v", msg.ID, err)
	} else if ok {
		entry.Text = text
		entry.Status = fanout.StatusDecrypted
		return entry
	}

	res := m.encoder.DecodeForDevice(msg.Envelopes, m.id.DeviceID, m.id.PrivateKey)
	if res.Status == fanout.StatusDecrypted {
		if err := m.store.CachePlaintext(ctx, msg.ID, res.Plaintext); err != nil {
			m.log.Warnf("cache plaintext of %s: %v", msg.ID, err)
		}
	} else if res.Err != nil {
		m.log.Debugf("decode %s: %v", msg.ID, res.Err)
	}
	entry.Text = res.Text()
	entry.Status = res.Status
	return entry
}

// HandleFrame reads the message carried by a new_message frame or a
// successful ack. Other frames report false.
func (m *Messenger) HandleFrame(ctx context.Context, frame httpdto.ServerFrame) (Entry, bool, error) {
	if frame.Message == nil || !frame.Success {
		return Entry{}, false, nil
	}
	if frame.Type != httpdto.FrameNewMessage && frame.Type != httpdto.FrameMessageAck {
		return Entry{}, false, nil
	}
	msg, err := httpdto.ToMessage(*frame.Message)
	if err != nil {
		return Entry{}, false, err
	}
	return m.Read(ctx, msg), true, nil
}

// Conversations lists every conversation of the user and records them
// locally.
func (m *Messenger) Conversations(ctx context.Context) ([]conversation.Conversation, error) {
	var all []conversation.Conversation
	for page := 1; ; page++ {
		convs, total, err := m.api.ListConversations(ctx, page, pageLimit)
		if err != nil {
			return nil, err
		}
		all = append(all, convs...)
		if len(convs) < pageLimit || int64(len(all)) >= total {
			break
		}
	}
	for _, c := range all {
		if err := m.store.SaveConversation(ctx, c); err != nil {
			return nil, err
		}
	}
	return all, nil
}

// Messages lists every message of a conversation with only this device's
// envelope attached.
func (m *Messenger) Messages(ctx context.Context, conversationID uuid.UUID) ([]message.Message, error) {
	var all []message.Message
	for page := 1; ; page++ {
		msgs, total, err := m.api.ListMessages(ctx, conversationID, m.id.DeviceID, page, pageLimit)
		if err != nil {
			return nil, err
		}
		all = append(all, msgs...)
		if len(msgs) < pageLimit || int64(len(all)) >= total {
			break
		}
	}
	return all, nil
}

// Username resolves a user id through the API, once per id.
func (m *Messenger) Username(ctx context.Context, userID uuid.UUID) (string, error) {
	m.mu.Lock()
	name, ok := m.names[userID]
	m.mu.Unlock()
	if ok {
		return name, nil
	}
	u, err := m.api.GetUser(ctx, userID)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	m.names[userID] = u.Username
	m.mu.Unlock()
	return u.Username, nil
}

// Export builds a readable backup of everything this device can read.
func (m *Messenger) Export(ctx context.Context) (*backup.Document, error) {
	return backup.NewExporter(m, m, m.store, m.encoder, m.log).Export(ctx, m.id)
}

// Import merges a backup document into the local store.
func (m *Messenger) Import(ctx context.Context, doc *backup.Document) (backup.Summary, error) {
	return backup.NewImporter(m.store, m.log).Import(ctx, doc, m.id.UserID)
}

// ExportFileName names a local backup file taken at t.
func ExportFileName(username string, t time.Time) string {
	return fmt.Sprintf("pumpkin-backup-%s-%s.json", username, t.UTC().Format("20060102-150405"))
}
