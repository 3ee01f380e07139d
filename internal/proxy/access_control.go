package proxy

import (
	"context"

	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/domain/conversation"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/repository"
	pumpkin_errors "github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/pkg/errors"

	"github.com/google/uuid"
)

// AccessControl answers participant questions for direct conversations.
type AccessControl struct {
	conversationRepo repository.ConversationRepository
}

func NewAccessControl(conversationRepo repository.ConversationRepository) *AccessControl {
	return &AccessControl{conversationRepo: conversationRepo}
}

func (a *AccessControl) CanSendMessage(ctx context.Context, userID, conversationID uuid.UUID) (conversation.Conversation, error) {
	return a.ensureParticipant(ctx, conversationID, userID)
}

func (a *AccessControl) CanViewConversation(ctx context.Context, userID, conversationID uuid.UUID) (conversation.Conversation, error) {
	return a.ensureParticipant(ctx, conversationID, userID)
}

func (a *AccessControl) ensureParticipant(ctx context.Context, conversationID, userID uuid.UUID) (conversation.Conversation, error) {
	if a.conversationRepo == nil {
		return conversation.Conversation{}, pumpkin_errors.ErrForbidden
	}
	conv, err := a.conversationRepo.GetByID(ctx, conversationID)
	if err != nil {
		return conversation.Conversation{}, err
	}
	if !conv.HasParticipant(userID) {
		return conversation.Conversation{}, pumpkin_errors.ErrForbidden
	}
	return conv, nil
}
