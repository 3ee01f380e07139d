package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/domain/message"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/events"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/transport/httpdto"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/pkg/logger"
)

// EventPublisher pushes realtime frames to the rooms of conversation
// participants. Delivery is best effort; history reads stay authoritative.
type EventPublisher struct {
	publisher events.Publisher
	log       *logger.Logger
}

func NewEventPublisher(publisher events.Publisher, log *logger.Logger) *EventPublisher {
	if log == nil {
		log = logger.NewNop()
	}
	return &EventPublisher{publisher: publisher, log: log}
}

// PublishMessageNew sends a new_message frame to each participant. Every
// frame carries only the envelopes addressed to that participant's devices.
// owners maps envelope device ids to their user.
func (p *EventPublisher) PublishMessageNew(ctx context.Context, msg message.Message, owners map[uuid.UUID]uuid.UUID, participants [2]uuid.UUID) {
	if p == nil || p.publisher == nil {
		return
	}
	for _, userID := range participants {
		scoped := msg
		scoped.Envelopes = make([]message.Envelope, 0, len(msg.Envelopes))
		for _, env := range msg.Envelopes {
			if owners[env.DeviceID] == userID {
				scoped.Envelopes = append(scoped.Envelopes, env)
			}
		}

		data, err := json.Marshal(httpdto.NewMessageFrame(httpdto.FromMessage(scoped)))
		if err != nil {
			p.log.WithContext(ctx).Error("failed to encode new_message frame", zap.Error(err))
			return
		}
		evt := events.Event{
			Type:      events.EventMessageNew,
			UserID:    userID,
			Data:      data,
			Timestamp: time.Now(),
		}
		if err := p.publisher.Publish(ctx, evt); err != nil {
			p.log.WithContext(ctx).Warn("failed to publish new_message",
				zap.String("user_id", userID.String()),
				zap.String("message_id", msg.ID.String()),
				zap.Error(err),
			)
		}
	}
}
