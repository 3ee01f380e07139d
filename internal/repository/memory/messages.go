package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/domain/message"
	pumpkin_errors "github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/pkg/errors"
)

type MessageRepository struct {
	s *Store
}

func (r *MessageRepository) Append(_ context.Context, m *message.Message, now time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.conversations[m.ConversationID]
	if !ok {
		return pumpkin_errors.ErrNotFound
	}
	if _, ok := r.s.messages[m.ID]; ok {
		return pumpkin_errors.ErrConflict
	}
	for _, env := range m.Envelopes {
		if _, ok := r.s.devices[env.DeviceID]; !ok {
			return pumpkin_errors.ErrInvalidInput
		}
	}

	createdAt := now
	if floor := c.LastMessageAt.Add(time.Millisecond); floor.After(createdAt) {
		createdAt = floor
	}
	c.LastMessageAt = createdAt
	r.s.conversations[c.ID] = c

	m.CreatedAt = createdAt
	stored := *m
	stored.Envelopes = append([]message.Envelope(nil), m.Envelopes...)
	r.s.messages[m.ID] = stored
	r.s.byConv[m.ConversationID] = append(r.s.byConv[m.ConversationID], m.ID)
	return nil
}

func (r *MessageRepository) GetByID(_ context.Context, id uuid.UUID) (message.Message, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	m, ok := r.s.messages[id]
	if !ok {
		return message.Message{}, pumpkin_errors.ErrNotFound
	}
	m.Envelopes = append([]message.Envelope(nil), m.Envelopes...)
	return m, nil
}

func (r *MessageRepository) GetDeviceMessages(_ context.Context, conversationID, deviceID uuid.UUID, page, limit int) ([]message.Message, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	// byConv is in append order, which is timestamp order.
	visible := make([]message.Message, 0)
	for _, id := range r.s.byConv[conversationID] {
		m := r.s.messages[id]
		if m.VisibleTo(deviceID) {
			visible = append(visible, m.ForDevice(deviceID))
		}
	}
	start, end := pageBounds(len(visible), page, limit)
	return visible[start:end], int64(len(visible)), nil
}
