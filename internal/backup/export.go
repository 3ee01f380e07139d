package backup

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/domain/conversation"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/domain/message"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/fanout"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/pkg/logger"
)

const unknownUsername = "unknown"

// Source lists the history visible to the exporting device. Messages carry
// at most that device's envelope.
type Source interface {
	Conversations(ctx context.Context) ([]conversation.Conversation, error)
	Messages(ctx context.Context, conversationID uuid.UUID) ([]message.Message, error)
}

type Directory interface {
	Username(ctx context.Context, userID uuid.UUID) (string, error)
}

// Plaintexts resolves plaintext known locally and remembers plaintext
// recovered during the export.
type Plaintexts interface {
	Plaintext(ctx context.Context, messageID uuid.UUID) (string, bool, error)
	CachePlaintext(ctx context.Context, messageID uuid.UUID, plaintext string) error
}

// Identity is the exporting user and device.
type Identity struct {
	UserID     uuid.UUID
	Username   string
	Email      string
	DeviceID   uuid.UUID
	PrivateKey string
}

type Exporter struct {
	source     Source
	users      Directory
	plaintexts Plaintexts
	encoder    *fanout.Encoder
	log        *logger.Logger
	now        func() time.Time
}

func NewExporter(source Source, users Directory, plaintexts Plaintexts, encoder *fanout.Encoder, log *logger.Logger) *Exporter {
	if log == nil {
		log = logger.NewNop()
	}
	return &Exporter{
		source:     source,
		users:      users,
		plaintexts: plaintexts,
		encoder:    encoder,
		log:        log,
		now:        time.Now,
	}
}

// Export builds the readable document for id. Plaintext comes from the
// local store first and from decrypting the device's envelope second;
// messages that cannot be read are exported as placeholders.
func (e *Exporter) Export(ctx context.Context, id Identity) (*Document, error) {
	convs, err := e.source.Conversations(ctx)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}

	names := map[uuid.UUID]string{id.UserID: id.Username}
	doc := &Document{
		Version:    Version,
		ExportType: ExportType,
		ExportedAt: formatTime(e.now()),
		ExportedBy: ExportedBy{
			UserID:   id.UserID.String(),
			Username: id.Username,
			Email:    id.Email,
		},
		Metadata:      Metadata{DeviceID: id.DeviceID.String()},
		Conversations: make([]Conversation, 0, len(convs)),
	}

	for _, c := range convs {
		msgs, err := e.source.Messages(ctx, c.ID)
		if err != nil {
			return nil, fmt.Errorf("list messages of %s: %w", c.ID, err)
		}
		sort.SliceStable(msgs, func(i, j int) bool {
			return msgs[i].CreatedAt.Before(msgs[j].CreatedAt)
		})

		out := Conversation{
			ConversationID: c.ID.String(),
			Participants:   []string{c.Participants[0].String(), c.Participants[1].String()},
			CreatedAt:      formatTime(c.CreatedAt),
			LastMessageAt:  formatTime(c.LastMessageAt),
			Messages:       make([]Message, 0, len(msgs)),
		}
		for _, m := range msgs {
			out.Messages = append(out.Messages, Message{
				MessageID: m.ID.String(),
				Sender: Sender{
					ID:       m.SenderID.String(),
					Username: e.username(ctx, names, m.SenderID),
				},
				Content:   e.content(ctx, m, id),
				Timestamp: formatTime(m.CreatedAt),
				IsOwn:     m.SenderID == id.UserID,
			})
		}

		doc.Metadata.TotalMessages += len(out.Messages)
		doc.Conversations = append(doc.Conversations, out)
	}
	doc.Metadata.TotalConversations = len(doc.Conversations)
	return doc, nil
}

func (e *Exporter) content(ctx context.Context, m message.Message, id Identity) string {
	if text, ok, err := e.plaintexts.Plaintext(ctx, m.ID); err != nil {
		e.log.Warnf("read local plaintext of %s: %v", m.ID, err)
	} else if ok {
		return text
	}

	res := e.encoder.DecodeForDevice(m.Envelopes, id.DeviceID, id.PrivateKey)
	if res.Status == fanout.StatusDecrypted {
		if err := e.plaintexts.CachePlaintext(ctx, m.ID, res.Plaintext); err != nil {
			e.log.Warnf("cache plaintext of %s: %v", m.ID, err)
		}
	}
	return res.Text()
}

func (e *Exporter) username(ctx context.Context, names map[uuid.UUID]string, userID uuid.UUID) string {
	if name, ok := names[userID]; ok {
		return name
	}
	name, err := e.users.Username(ctx, userID)
	if err != nil || name == "" {
		e.log.Warnf("resolve username of %s: %v", userID, err)
		name = unknownUsername
	}
	names[userID] = name
	return name
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
