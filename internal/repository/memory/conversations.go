package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/domain/conversation"
	pumpkin_errors "github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/pkg/errors"
)

type ConversationRepository struct {
	s *Store
}

func (r *ConversationRepository) Create(_ context.Context, c *conversation.Conversation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	pair := conversation.OrderedPair(c.Participants[0], c.Participants[1])
	for _, p := range pair {
		if _, ok := r.s.users[p]; !ok {
			return pumpkin_errors.ErrInvalidInput
		}
	}
	if _, ok := r.s.conversations[c.ID]; ok {
		return pumpkin_errors.ErrConflict
	}
	for _, existing := range r.s.conversations {
		if existing.Participants == pair {
			return pumpkin_errors.ErrConflict
		}
	}
	c.Participants = pair
	r.s.conversations[c.ID] = *c
	return nil
}

func (r *ConversationRepository) GetByID(_ context.Context, id uuid.UUID) (conversation.Conversation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.conversations[id]
	if !ok {
		return conversation.Conversation{}, pumpkin_errors.ErrNotFound
	}
	return c, nil
}

func (r *ConversationRepository) GetDirectConversation(_ context.Context, userA, userB uuid.UUID) (conversation.Conversation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	pair := conversation.OrderedPair(userA, userB)
	for _, c := range r.s.conversations {
		if c.Participants == pair {
			return c, nil
		}
	}
	return conversation.Conversation{}, pumpkin_errors.ErrNotFound
}

func (r *ConversationRepository) GetUserConversations(_ context.Context, userID uuid.UUID, page, limit int) ([]conversation.Conversation, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	all := make([]conversation.Conversation, 0)
	for _, c := range r.s.conversations {
		if c.HasParticipant(userID) {
			all = append(all, c)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].LastMessageAt.After(all[j].LastMessageAt) })

	start, end := pageBounds(len(all), page, limit)
	return all[start:end], int64(len(all)), nil
}
