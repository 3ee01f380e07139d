package backup

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/localstore"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/pkg/logger"
)

// Target stores restored history. Both calls report false when the id is
// already known and must leave the existing row untouched.
type Target interface {
	ImportConversation(ctx context.Context, c localstore.Conversation) (bool, error)
	ImportMessage(ctx context.Context, m localstore.ImportedMessage) (bool, error)
}

type Importer struct {
	target Target
	log    *logger.Logger
	now    func() time.Time
}

func NewImporter(target Target, log *logger.Logger) *Importer {
	if log == nil {
		log = logger.NewNop()
	}
	return &Importer{target: target, log: log, now: time.Now}
}

// Import merges doc into the local store of userID. Conversations and
// messages are keyed by id, so importing the same document again changes
// nothing. Malformed entries are reported in Summary.Errors and skipped.
func (i *Importer) Import(ctx context.Context, doc *Document, userID uuid.UUID) (Summary, error) {
	if err := doc.Validate(); err != nil {
		return Summary{}, err
	}

	summary := Summary{Errors: []string{}}
	importedAt := i.now()

	for _, c := range doc.Conversations {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		conv, err := parseConversation(c)
		if err != nil {
			summary.Errors = append(summary.Errors, err.Error())
			continue
		}
		created, err := i.target.ImportConversation(ctx, conv)
		if err != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("conversation %s: %v", c.ConversationID, err))
			continue
		}
		if created {
			summary.ConversationsImported++
		}

		for _, m := range c.Messages {
			msg, err := parseMessage(conv.ID, m)
			if err != nil {
				summary.Errors = append(summary.Errors, err.Error())
				continue
			}
			msg.IsOwn = msg.SenderID == userID
			msg.ImportedAt = importedAt

			inserted, err := i.target.ImportMessage(ctx, msg)
			if err != nil {
				summary.Errors = append(summary.Errors, fmt.Sprintf("message %s: %v", m.MessageID, err))
				continue
			}
			if inserted {
				summary.MessagesImported++
			} else {
				summary.MessagesSkipped++
			}
		}
	}

	i.log.Infof("backup import: %d conversations, %d messages imported, %d skipped, %d errors",
		summary.ConversationsImported, summary.MessagesImported, summary.MessagesSkipped, len(summary.Errors))
	return summary, nil
}

func parseConversation(c Conversation) (localstore.Conversation, error) {
	id, err := uuid.Parse(c.ConversationID)
	if err != nil {
		return localstore.Conversation{}, fmt.Errorf("conversation %q: invalid id", c.ConversationID)
	}
	out := localstore.Conversation{ID: id, Imported: true}
	for _, raw := range c.Participants {
		p, err := uuid.Parse(raw)
		if err != nil {
			return localstore.Conversation{}, fmt.Errorf("conversation %s: invalid participant %q", id, raw)
		}
		out.Participants = append(out.Participants, p)
	}
	if out.CreatedAt, err = parseTime(c.CreatedAt); err != nil {
		return localstore.Conversation{}, fmt.Errorf("conversation %s: invalid createdAt", id)
	}
	if out.LastMessageAt, err = parseTime(c.LastMessageAt); err != nil {
		return localstore.Conversation{}, fmt.Errorf("conversation %s: invalid lastMessageAt", id)
	}
	return out, nil
}

func parseMessage(conversationID uuid.UUID, m Message) (localstore.ImportedMessage, error) {
	id, err := uuid.Parse(m.MessageID)
	if err != nil {
		return localstore.ImportedMessage{}, fmt.Errorf("message %q: invalid id", m.MessageID)
	}
	sender, err := uuid.Parse(m.Sender.ID)
	if err != nil {
		return localstore.ImportedMessage{}, fmt.Errorf("message %s: invalid sender %q", id, m.Sender.ID)
	}
	ts, err := parseTime(m.Timestamp)
	if err != nil {
		return localstore.ImportedMessage{}, fmt.Errorf("message %s: invalid timestamp", id)
	}
	return localstore.ImportedMessage{
		ID:             id,
		ConversationID: conversationID,
		SenderID:       sender,
		SenderUsername: m.Sender.Username,
		Content:        m.Content,
		Timestamp:      ts,
	}, nil
}

// parseTime accepts RFC 3339 with or without fractional seconds. An empty
// value maps to the zero time.
func parseTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, value)
}
