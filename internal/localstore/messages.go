package localstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/domain/conversation"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/domain/message"
)

const (
	sourceSync   = "sync"
	sourceImport = "import"
)

// SaveConversation records a conversation seen on the server. It advances
// last_message_at and never moves it back.
func (s *Store) SaveConversation(ctx context.Context, c conversation.Conversation) error {
	participants, err := json.Marshal([]string{c.Participants[0].String(), c.Participants[1].String()})
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO conversations (conversation_id, participants, created_at, last_message_at, source)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(conversation_id) DO UPDATE SET
  last_message_at = MAX(conversations.last_message_at, excluded.last_message_at),
  source = 'sync';
`, c.ID.String(), string(participants), toUnix(c.CreatedAt), toUnix(c.LastMessageAt), sourceSync)
	if err != nil {
		return fmt.Errorf("save conversation: %w", err)
	}
	return nil
}

// Conversations lists every known conversation, synced or imported, most
// recently active first.
func (s *Store) Conversations(ctx context.Context) ([]Conversation, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT conversation_id, participants, created_at, last_message_at, source
FROM conversations ORDER BY last_message_at DESC, conversation_id;
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Conversation
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) Conversation(ctx context.Context, id uuid.UUID) (Conversation, bool, error) {
	c, err := scanConversation(s.db.QueryRowContext(ctx, `
SELECT conversation_id, participants, created_at, last_message_at, source
FROM conversations WHERE conversation_id = ?;
`, id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return Conversation{}, false, nil
	}
	if err != nil {
		return Conversation{}, false, err
	}
	return c, true, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConversation(row rowScanner) (Conversation, error) {
	var (
		id, participants, source string
		createdAt, lastMessageAt int64
	)
	if err := row.Scan(&id, &participants, &createdAt, &lastMessageAt, &source); err != nil {
		return Conversation{}, err
	}
	c := Conversation{
		CreatedAt:     fromUnix(createdAt),
		LastMessageAt: fromUnix(lastMessageAt),
		Imported:      source == sourceImport,
	}
	var err error
	if c.ID, err = uuid.Parse(id); err != nil {
		return Conversation{}, err
	}
	var ids []string
	if err := json.Unmarshal([]byte(participants), &ids); err != nil {
		return Conversation{}, fmt.Errorf("decode participants: %w", err)
	}
	for _, raw := range ids {
		pid, err := uuid.Parse(raw)
		if err != nil {
			return Conversation{}, err
		}
		c.Participants = append(c.Participants, pid)
	}
	return c, nil
}

// RecordMessage stores the metadata of a message seen by this device. An
// existing row is left as is.
func (s *Store) RecordMessage(ctx context.Context, m message.Message) error {
	_, err := s.db.ExecContext(ctx, `
INSERT OR IGNORE INTO messages (message_id, conversation_id, sender_id, sender_device_id, created_at)
VALUES (?, ?, ?, ?, ?);
`, m.ID.String(), m.ConversationID.String(), m.SenderID.String(), m.SenderDeviceID.String(), toUnix(m.CreatedAt))
	if err != nil {
		return fmt.Errorf("record message: %w", err)
	}
	return nil
}

// SaveComposed stores a message composed on this device together with its
// plaintext. The composing device holds no envelope of its own, so this is
// the only copy of the plaintext it keeps.
func (s *Store) SaveComposed(ctx context.Context, m message.Message, content string) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO messages (message_id, conversation_id, sender_id, sender_device_id, content, created_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(message_id) DO UPDATE SET content = excluded.content;
`, m.ID.String(), m.ConversationID.String(), m.SenderID.String(), m.SenderDeviceID.String(), content, toUnix(m.CreatedAt))
	if err != nil {
		return fmt.Errorf("save composed message: %w", err)
	}
	return nil
}

// Plaintext returns the composed content of a message, falling back to the
// decryption cache.
func (s *Store) Plaintext(ctx context.Context, messageID uuid.UUID) (string, bool, error) {
	var content sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT content FROM messages WHERE message_id = ?;`, messageID.String()).Scan(&content)
	switch {
	case err == nil && content.Valid:
		return content.String, true, nil
	case err != nil && !errors.Is(err, sql.ErrNoRows):
		return "", false, fmt.Errorf("read composed content: %w", err)
	}
	return s.CachedPlaintext(ctx, messageID)
}

// Messages lists the locally recorded messages of a conversation, oldest first.
func (s *Store) Messages(ctx context.Context, conversationID uuid.UUID) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT message_id, conversation_id, sender_id, sender_device_id, content, created_at
FROM messages WHERE conversation_id = ? ORDER BY created_at, message_id;
`, conversationID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var (
			id, convID, senderID, senderDeviceID string
			content                              sql.NullString
			createdAt                            int64
		)
		if err := rows.Scan(&id, &convID, &senderID, &senderDeviceID, &content, &createdAt); err != nil {
			return nil, err
		}
		m := Message{Content: content.String, Composed: content.Valid, CreatedAt: fromUnix(createdAt)}
		if m.ID, err = uuid.Parse(id); err != nil {
			return nil, err
		}
		if m.ConversationID, err = uuid.Parse(convID); err != nil {
			return nil, err
		}
		if m.SenderID, err = uuid.Parse(senderID); err != nil {
			return nil, err
		}
		if m.SenderDeviceID, err = uuid.Parse(senderDeviceID); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
