package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/pkg/logger"
)

// RedisBroker fans events out across processes using Redis Pub/Sub. Every
// process subscribes with a pattern and delivers to its own sockets.
type RedisBroker struct {
	client *redis.Client
	log    *logger.Logger
}

func NewRedisBroker(client *redis.Client, log *logger.Logger) *RedisBroker {
	if log == nil {
		log = logger.NewNop()
	}
	return &RedisBroker{client: client, log: log}
}

func (b *RedisBroker) Publish(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	return b.client.Publish(ctx, UserChannel(event.UserID), data).Err()
}

func (b *RedisBroker) Subscribe(ctx context.Context, pattern string, h Handler) error {
	pubsub := b.client.PSubscribe(ctx, pattern)
	// Wait for the subscription to be confirmed so no event published after
	// Subscribe returns is missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return fmt.Errorf("psubscribe %s: %w", pattern, err)
	}

	go func() {
		defer pubsub.Close()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var event Event
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					b.log.Logger.Warn("dropping malformed event",
						zap.String("channel", msg.Channel), zap.Error(err))
					continue
				}
				h(ctx, msg.Channel, event)
			}
		}
	}()
	return nil
}

func (b *RedisBroker) Close() error {
	return nil
}
