package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/domain/conversation"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/proxy"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/repository"
	pumpkin_errors "github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/pkg/errors"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/pkg/logger"
)

type ConversationService struct {
	repo   repository.ConversationRepository
	users  repository.UserRepository
	access *proxy.AccessControl
	log    *logger.Logger
	now    func() time.Time
}

func NewConversationService(repo repository.ConversationRepository, users repository.UserRepository, access *proxy.AccessControl, log *logger.Logger) *ConversationService {
	if log == nil {
		log = logger.NewNop()
	}
	if access == nil {
		access = proxy.NewAccessControl(repo)
	}
	return &ConversationService{repo: repo, users: users, access: access, log: log, now: time.Now}
}

// CreateOrGet returns the direct conversation between actor and peer,
// creating it on first use. created reports whether a row was inserted.
func (s *ConversationService) CreateOrGet(ctx context.Context, actorID, peerID uuid.UUID) (conv conversation.Conversation, created bool, err error) {
	candidate, ok := conversation.NewDirect(actorID, peerID, s.now())
	if !ok {
		return conversation.Conversation{}, false, fmt.Errorf("%w: a conversation needs two distinct participants", pumpkin_errors.ErrInvalidInput)
	}
	if _, err := s.users.GetUserByID(ctx, peerID); err != nil {
		return conversation.Conversation{}, false, err
	}

	existing, err := s.repo.GetDirectConversation(ctx, actorID, peerID)
	if err == nil {
		return existing, false, nil
	}
	if !isNotFound(err) {
		return conversation.Conversation{}, false, err
	}

	if err := s.repo.Create(ctx, &candidate); err != nil {
		// Lost a race with the peer creating the same pair.
		if errors.Is(err, pumpkin_errors.ErrConflict) {
			existing, getErr := s.repo.GetDirectConversation(ctx, actorID, peerID)
			return existing, false, getErr
		}
		return conversation.Conversation{}, false, err
	}

	s.log.WithContext(ctx).Info("conversation created",
		zap.String("conversation_id", candidate.ID.String()),
		zap.String("user_id", actorID.String()),
		zap.String("peer_id", peerID.String()),
	)
	return candidate, true, nil
}

func (s *ConversationService) Get(ctx context.Context, actorID, conversationID uuid.UUID) (conversation.Conversation, error) {
	return s.access.CanViewConversation(ctx, actorID, conversationID)
}

func (s *ConversationService) List(ctx context.Context, actorID uuid.UUID, page, limit int) ([]conversation.Conversation, int64, error) {
	page, limit = normalizePage(page, limit)
	return s.repo.GetUserConversations(ctx, actorID, page, limit)
}
