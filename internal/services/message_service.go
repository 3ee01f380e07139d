package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/domain/message"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/proxy"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/repository"
	pumpkin_errors "github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/pkg/errors"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/pkg/logger"
)

type MessageService struct {
	messages  repository.MessageRepository
	devices   *DeviceService
	access    *proxy.AccessControl
	publisher *EventPublisher
	log       *logger.Logger
	now       func() time.Time
}

type SendInput struct {
	ConversationID uuid.UUID
	// SenderDeviceID defaults to the device bound to the credential.
	SenderDeviceID uuid.UUID
	Envelopes      []message.Envelope
}

func NewMessageService(messages repository.MessageRepository, devices *DeviceService, access *proxy.AccessControl, publisher *EventPublisher, log *logger.Logger) *MessageService {
	if log == nil {
		log = logger.NewNop()
	}
	return &MessageService{
		messages:  messages,
		devices:   devices,
		access:    access,
		publisher: publisher,
		log:       log,
		now:       time.Now,
	}
}

// Send stores an already encrypted message and pushes it to both
// participants. Every envelope must target an active device of a participant.
func (s *MessageService) Send(ctx context.Context, actor Principal, in SendInput) (message.Message, error) {
	senderDeviceID := in.SenderDeviceID
	if senderDeviceID == uuid.Nil {
		senderDeviceID = actor.DeviceID
	}
	if _, err := s.devices.RequireActive(ctx, senderDeviceID, actor.UserID); err != nil {
		return message.Message{}, fmt.Errorf("%w: sender device is not an active device of the user", pumpkin_errors.ErrForbidden)
	}

	conv, err := s.access.CanSendMessage(ctx, actor.UserID, in.ConversationID)
	if err != nil {
		return message.Message{}, err
	}

	if err := validateEnvelopes(in.Envelopes); err != nil {
		return message.Message{}, err
	}

	owners := make(map[uuid.UUID]uuid.UUID)
	for _, participant := range conv.Participants {
		active, err := s.devices.ListActive(ctx, participant)
		if err != nil {
			return message.Message{}, err
		}
		for _, d := range active {
			owners[d.ID] = participant
		}
	}
	for _, env := range in.Envelopes {
		if _, ok := owners[env.DeviceID]; !ok {
			return message.Message{}, fmt.Errorf("%w: envelope targets device %s which is not an active participant device",
				pumpkin_errors.ErrInvalidInput, env.DeviceID)
		}
	}

	msg := &message.Message{
		ID:             uuid.New(),
		ConversationID: conv.ID,
		SenderID:       actor.UserID,
		SenderDeviceID: senderDeviceID,
		Envelopes:      in.Envelopes,
	}
	if err := s.messages.Append(ctx, msg, s.now()); err != nil {
		return message.Message{}, err
	}

	s.devices.Touch(ctx, senderDeviceID)
	s.log.WithContext(ctx).Info("message stored",
		zap.String("message_id", msg.ID.String()),
		zap.String("conversation_id", conv.ID.String()),
		zap.Int("envelopes", len(msg.Envelopes)),
	)
	s.publisher.PublishMessageNew(ctx, *msg, owners, conv.Participants)
	return *msg, nil
}

func validateEnvelopes(envs []message.Envelope) error {
	if len(envs) == 0 {
		return fmt.Errorf("%w: at least one envelope is required", pumpkin_errors.ErrInvalidInput)
	}
	if message.HasDuplicateDevice(envs) {
		return fmt.Errorf("%w: duplicate envelope device", pumpkin_errors.ErrInvalidInput)
	}
	for _, env := range envs {
		if env.DeviceID == uuid.Nil || strings.TrimSpace(env.Ciphertext) == "" {
			return fmt.Errorf("%w: envelope needs a device id and ciphertext", pumpkin_errors.ErrInvalidInput)
		}
	}
	return nil
}

// List returns the conversation history visible to deviceID, oldest first.
// deviceID defaults to the device bound to the credential and must belong to
// the actor.
func (s *MessageService) List(ctx context.Context, actor Principal, conversationID, deviceID uuid.UUID, page, limit int) ([]message.Message, int64, error) {
	if deviceID == uuid.Nil {
		deviceID = actor.DeviceID
	}
	if deviceID != actor.DeviceID {
		d, err := s.devices.Get(ctx, deviceID)
		if err != nil {
			return nil, 0, err
		}
		if d.UserID != actor.UserID {
			return nil, 0, pumpkin_errors.ErrForbidden
		}
	}
	if _, err := s.access.CanViewConversation(ctx, actor.UserID, conversationID); err != nil {
		return nil, 0, err
	}
	page, limit = normalizePage(page, limit)
	return s.messages.GetDeviceMessages(ctx, conversationID, deviceID, page, limit)
}

// Get returns one message scoped to the actor's device.
func (s *MessageService) Get(ctx context.Context, actor Principal, messageID uuid.UUID) (message.Message, error) {
	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return message.Message{}, err
	}
	if _, err := s.access.CanViewConversation(ctx, actor.UserID, msg.ConversationID); err != nil {
		return message.Message{}, err
	}
	if !msg.VisibleTo(actor.DeviceID) {
		return message.Message{}, pumpkin_errors.ErrNotFound
	}
	return msg.ForDevice(actor.DeviceID), nil
}
