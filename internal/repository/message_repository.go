package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/domain/message"
)

type PostgresMessageRepository struct {
	db DBTX
}

func NewMessageRepository(db DBTX) MessageRepository {
	return &PostgresMessageRepository{db: db}
}

func (r *PostgresMessageRepository) Append(ctx context.Context, m *message.Message, now time.Time) error {
	return WithTx(ctx, r.db, func(tx DBTX) error {
		var createdAt time.Time
		err := tx.QueryRowContext(ctx,
			`UPDATE conversations
			 SET last_message_at = GREATEST($2::timestamptz, last_message_at + interval '1 millisecond')
			 WHERE id = $1
			 RETURNING last_message_at`,
			m.ConversationID, now,
		).Scan(&createdAt)
		if err != nil {
			return translateErr(err)
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO messages (id, conversation_id, sender_id, sender_device_id, created_at) VALUES ($1, $2, $3, $4, $5)`,
			m.ID, m.ConversationID, m.SenderID, m.SenderDeviceID, createdAt,
		); err != nil {
			return translateErr(err)
		}

		if len(m.Envelopes) > 0 {
			values := make([]string, 0, len(m.Envelopes))
			args := make([]interface{}, 0, len(m.Envelopes)*3)
			for i, env := range m.Envelopes {
				values = append(values, "("+buildPlaceholders(i*3+1, 3)+")")
				args = append(args, m.ID, env.DeviceID, env.Ciphertext)
			}
			query := `INSERT INTO message_envelopes (message_id, device_id, ciphertext) VALUES ` + strings.Join(values, ", ")
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return translateErr(err)
			}
		}

		m.CreatedAt = createdAt
		return nil
	})
}

func (r *PostgresMessageRepository) GetByID(ctx context.Context, id uuid.UUID) (message.Message, error) {
	var m message.Message
	err := r.db.QueryRowContext(ctx,
		`SELECT id, conversation_id, sender_id, sender_device_id, created_at FROM messages WHERE id = $1`, id,
	).Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.SenderDeviceID, &m.CreatedAt)
	if err != nil {
		return message.Message{}, translateErr(err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT device_id, ciphertext FROM message_envelopes WHERE message_id = $1`, id,
	)
	if err != nil {
		return message.Message{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var env message.Envelope
		if err := rows.Scan(&env.DeviceID, &env.Ciphertext); err != nil {
			return message.Message{}, err
		}
		m.Envelopes = append(m.Envelopes, env)
	}
	return m, rows.Err()
}

func (r *PostgresMessageRepository) GetDeviceMessages(ctx context.Context, conversationID, deviceID uuid.UUID, page, limit int) ([]message.Message, int64, error) {
	const from = `FROM messages m
		LEFT JOIN message_envelopes e ON e.message_id = m.id AND e.device_id = $2
		WHERE m.conversation_id = $1 AND (e.device_id IS NOT NULL OR m.sender_device_id = $2)`

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) `+from, conversationID, deviceID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT m.id, m.conversation_id, m.sender_id, m.sender_device_id, m.created_at, e.ciphertext `+from+`
		 ORDER BY m.created_at ASC
		 LIMIT $3 OFFSET $4`,
		conversationID, deviceID, limit, pageOffset(page, limit),
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]message.Message, 0)
	for rows.Next() {
		var m message.Message
		var ciphertext sql.NullString
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.SenderDeviceID, &m.CreatedAt, &ciphertext); err != nil {
			return nil, 0, err
		}
		if ciphertext.Valid {
			m.Envelopes = []message.Envelope{{DeviceID: deviceID, Ciphertext: ciphertext.String}}
		}
		out = append(out, m)
	}
	return out, total, rows.Err()
}
