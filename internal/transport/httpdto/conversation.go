package httpdto

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/domain/conversation"
)

// CreateConversationRequest is used for POST /v1/conversations
type CreateConversationRequest struct {
	ParticipantID string `json:"participant_id" binding:"required"`
}

type Conversation struct {
	ID            string   `json:"id"`
	Participants  []string `json:"participants"`
	CreatedAt     string   `json:"created_at"`
	LastMessageAt string   `json:"last_message_at"`
}

func FromConversation(c conversation.Conversation) Conversation {
	return Conversation{
		ID:            c.ID.String(),
		Participants:  []string{c.Participants[0].String(), c.Participants[1].String()},
		CreatedAt:     c.CreatedAt.UTC().Format(time.RFC3339Nano),
		LastMessageAt: c.LastMessageAt.UTC().Format(time.RFC3339Nano),
	}
}

func FromConversations(convs []conversation.Conversation) []Conversation {
	out := make([]Conversation, 0, len(convs))
	for _, c := range convs {
		out = append(out, FromConversation(c))
	}
	return out
}

// ToConversation parses a conversation received from the API.
func ToConversation(dto Conversation) (conversation.Conversation, error) {
	id, err := uuid.Parse(dto.ID)
	if err != nil {
		return conversation.Conversation{}, fmt.Errorf("invalid conversation id: %w", err)
	}
	if len(dto.Participants) != 2 {
		return conversation.Conversation{}, fmt.Errorf("conversation %s: want 2 participants, got %d", id, len(dto.Participants))
	}
	var pair [2]uuid.UUID
	for i, raw := range dto.Participants {
		if pair[i], err = uuid.Parse(raw); err != nil {
			return conversation.Conversation{}, fmt.Errorf("invalid participant id: %w", err)
		}
	}
	createdAt, _ := time.Parse(time.RFC3339Nano, dto.CreatedAt)
	lastMessageAt, _ := time.Parse(time.RFC3339Nano, dto.LastMessageAt)
	return conversation.Conversation{
		ID:            id,
		Participants:  pair,
		CreatedAt:     createdAt,
		LastMessageAt: lastMessageAt,
	}, nil
}
