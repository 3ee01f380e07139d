package websocket

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/events"
)

// EventBridge forwards events from the broker to the rooms of this process.
// With the Redis broker every API process receives every user event and
// delivers it to the sockets it holds.
type EventBridge struct {
	subscriber events.Subscriber
	hub        *Hub
	log        *WebSocketLogger
}

func NewEventBridge(subscriber events.Subscriber, hub *Hub, log *WebSocketLogger) *EventBridge {
	return &EventBridge{subscriber: subscriber, hub: hub, log: log}
}

// Run subscribes to all user channels. It returns once the subscription is in
// place; delivery continues until ctx is done.
func (b *EventBridge) Run(ctx context.Context) error {
	return b.subscriber.Subscribe(ctx, events.UserChannelPattern, func(_ context.Context, channel string, evt events.Event) {
		userID := evt.UserID
		if userID == uuid.Nil {
			parsed, err := events.UserIDFromChannel(channel)
			if err != nil {
				b.log.Warn("event on unknown channel", uuid.Nil, "", zap.String("channel", channel))
				return
			}
			userID = parsed
		}
		b.hub.SendToUser(userID, evt.Data)
	})
}
