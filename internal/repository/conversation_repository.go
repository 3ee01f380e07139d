package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/domain/conversation"
)

type PostgresConversationRepository struct {
	db DBTX
}

func NewConversationRepository(db DBTX) ConversationRepository {
	return &PostgresConversationRepository{db: db}
}

const conversationColumns = `id, participant_a, participant_b, created_at, last_message_at`

func scanConversation(row rowScanner) (conversation.Conversation, error) {
	var c conversation.Conversation
	err := row.Scan(&c.ID, &c.Participants[0], &c.Participants[1], &c.CreatedAt, &c.LastMessageAt)
	return c, err
}

func (r *PostgresConversationRepository) Create(ctx context.Context, c *conversation.Conversation) error {
	pair := conversation.OrderedPair(c.Participants[0], c.Participants[1])
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO conversations (`+conversationColumns+`) VALUES ($1, $2, $3, $4, $5)`,
		c.ID, pair[0], pair[1], c.CreatedAt, c.LastMessageAt,
	)
	if err != nil {
		return translateErr(err)
	}
	c.Participants = pair
	return nil
}

func (r *PostgresConversationRepository) GetByID(ctx context.Context, id uuid.UUID) (conversation.Conversation, error) {
	c, err := scanConversation(r.db.QueryRowContext(ctx,
		`SELECT `+conversationColumns+` FROM conversations WHERE id = $1`, id,
	))
	if err != nil {
		return conversation.Conversation{}, translateErr(err)
	}
	return c, nil
}

func (r *PostgresConversationRepository) GetDirectConversation(ctx context.Context, userA, userB uuid.UUID) (conversation.Conversation, error) {
	pair := conversation.OrderedPair(userA, userB)
	c, err := scanConversation(r.db.QueryRowContext(ctx,
		`SELECT `+conversationColumns+` FROM conversations WHERE participant_a = $1 AND participant_b = $2`,
		pair[0], pair[1],
	))
	if err != nil {
		return conversation.Conversation{}, translateErr(err)
	}
	return c, nil
}

func (r *PostgresConversationRepository) GetUserConversations(ctx context.Context, userID uuid.UUID, page, limit int) ([]conversation.Conversation, int64, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM conversations WHERE participant_a = $1 OR participant_b = $1`, userID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+conversationColumns+` FROM conversations
		 WHERE participant_a = $1 OR participant_b = $1
		 ORDER BY last_message_at DESC
		 LIMIT $2 OFFSET $3`,
		userID, limit, pageOffset(page, limit),
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]conversation.Conversation, 0)
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, c)
	}
	return out, total, rows.Err()
}
