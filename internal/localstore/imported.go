package localstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// HasMessage reports whether the message exists in either the regular or
// the imported message set.
func (s *Store) HasMessage(ctx context.Context, messageID uuid.UUID) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
SELECT EXISTS (SELECT 1 FROM messages WHERE message_id = ?1)
    OR EXISTS (SELECT 1 FROM imported_messages WHERE message_id = ?1);
`, messageID.String()).Scan(&exists)
	return exists, err
}

// ImportConversation inserts a conversation restored from a backup. It
// reports false, and changes nothing, when the id is already known.
func (s *Store) ImportConversation(ctx context.Context, c Conversation) (bool, error) {
	ids := make([]string, 0, len(c.Participants))
	for _, p := range c.Participants {
		ids = append(ids, p.String())
	}
	participants, err := json.Marshal(ids)
	if err != nil {
		return false, err
	}
	res, err := s.db.ExecContext(ctx, `
INSERT OR IGNORE INTO conversations (conversation_id, participants, created_at, last_message_at, source)
VALUES (?, ?, ?, ?, ?);
`, c.ID.String(), string(participants), toUnix(c.CreatedAt), toUnix(c.LastMessageAt), sourceImport)
	if err != nil {
		return false, fmt.Errorf("import conversation: %w", err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// ImportMessage inserts a restored message unless its id already exists in
// either message set. Existing rows are never overwritten.
func (s *Store) ImportMessage(ctx context.Context, m ImportedMessage) (bool, error) {
	importedAt := m.ImportedAt
	if importedAt.IsZero() {
		importedAt = s.now()
	}
	res, err := s.db.ExecContext(ctx, `
INSERT INTO imported_messages (message_id, conversation_id, sender_id, sender_username, content, timestamp, is_own, imported_at)
SELECT ?1, ?2, ?3, ?4, ?5, ?6, ?7, ?8
WHERE NOT EXISTS (SELECT 1 FROM messages WHERE message_id = ?1)
  AND NOT EXISTS (SELECT 1 FROM imported_messages WHERE message_id = ?1);
`, m.ID.String(), m.ConversationID.String(), m.SenderID.String(), m.SenderUsername, m.Content,
		toUnix(m.Timestamp), m.IsOwn, toUnix(importedAt))
	if err != nil {
		return false, fmt.Errorf("import message: %w", err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// ImportedMessages lists the restored messages of a conversation, oldest first.
func (s *Store) ImportedMessages(ctx context.Context, conversationID uuid.UUID) ([]ImportedMessage, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT message_id, conversation_id, sender_id, sender_username, content, timestamp, is_own, imported_at
FROM imported_messages WHERE conversation_id = ? ORDER BY timestamp, message_id;
`, conversationID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ImportedMessage
	for rows.Next() {
		var (
			id, convID, senderID string
			ts, importedAt       int64
			m                    ImportedMessage
		)
		if err := rows.Scan(&id, &convID, &senderID, &m.SenderUsername, &m.Content, &ts, &m.IsOwn, &importedAt); err != nil {
			return nil, err
		}
		if m.ID, err = uuid.Parse(id); err != nil {
			return nil, err
		}
		if m.ConversationID, err = uuid.Parse(convID); err != nil {
			return nil, err
		}
		if m.SenderID, err = uuid.Parse(senderID); err != nil {
			return nil, err
		}
		m.Timestamp = fromUnix(ts)
		m.ImportedAt = fromUnix(importedAt)
		out = append(out, m)
	}
	return out, rows.Err()
}
