package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventMessageNew EventType = "new_message"
)

const userChannelPrefix = "channel:user:"

// UserChannelPattern matches every per-user channel.
const UserChannelPattern = userChannelPrefix + "*"

// Event is routed to the room of one user. Data is the frame written to each
// of that user's sockets as is.
type Event struct {
	Type      EventType       `json:"type"`
	UserID    uuid.UUID       `json:"user_id"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

func UserChannel(userID uuid.UUID) string {
	return userChannelPrefix + userID.String()
}

// UserIDFromChannel parses the user id out of a channel built by UserChannel.
func UserIDFromChannel(channel string) (uuid.UUID, error) {
	if !strings.HasPrefix(channel, userChannelPrefix) {
		return uuid.Nil, fmt.Errorf("not a user channel: %s", channel)
	}
	return uuid.Parse(strings.TrimPrefix(channel, userChannelPrefix))
}

type Handler func(ctx context.Context, channel string, event Event)

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

type Subscriber interface {
	// Subscribe registers h for every channel matching pattern until ctx is
	// done. It does not block.
	Subscribe(ctx context.Context, pattern string, h Handler) error
}

type Broker interface {
	Publisher
	Subscriber
	Close() error
}
