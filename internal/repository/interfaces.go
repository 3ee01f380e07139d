package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/domain/conversation"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/domain/device"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/domain/message"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/domain/pairing"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/domain/user"
)

type UserRepository interface {
	Create(ctx context.Context, u *user.User) error
	GetUserByID(ctx context.Context, id uuid.UUID) (user.User, error)
	GetUserByEmail(ctx context.Context, email string) (user.User, error)
	GetUserByUsername(ctx context.Context, username string) (user.User, error)
}

type DeviceRepository interface {
	// CreateWithinLimit inserts d only if its owner holds fewer than limit
	// active devices. The count and the insert are one atomic step.
	CreateWithinLimit(ctx context.Context, d *device.Device, limit int) error
	// ReactivateWithinLimit flips an inactive device back to active under the
	// same cap rule as CreateWithinLimit.
	ReactivateWithinLimit(ctx context.Context, deviceID, userID uuid.UUID, limit int, now time.Time) (device.Device, error)
	Deactivate(ctx context.Context, deviceID, userID uuid.UUID) error
	// Revoke deactivates the device permanently.
	Revoke(ctx context.Context, deviceID, userID uuid.UUID) error
	GetDeviceByID(ctx context.Context, deviceID uuid.UUID) (device.Device, error)
	GetActiveDevices(ctx context.Context, userID uuid.UUID) ([]device.Device, error)
	CountActiveDevices(ctx context.Context, userID uuid.UUID) (int, error)
	UpdateLastActive(ctx context.Context, deviceID uuid.UUID, at time.Time) error
}

type ConversationRepository interface {
	Create(ctx context.Context, c *conversation.Conversation) error
	GetByID(ctx context.Context, id uuid.UUID) (conversation.Conversation, error)
	GetDirectConversation(ctx context.Context, userA, userB uuid.UUID) (conversation.Conversation, error)
	GetUserConversations(ctx context.Context, userID uuid.UUID, page, limit int) ([]conversation.Conversation, int64, error)
}

type MessageRepository interface {
	// Append assigns m.CreatedAt, advances the conversation's last_message_at
	// to that value and stores the message with its envelopes, atomically.
	// The assigned timestamp is strictly greater than any earlier one in the
	// same conversation.
	Append(ctx context.Context, m *message.Message, now time.Time) error
	GetByID(ctx context.Context, id uuid.UUID) (message.Message, error)
	// GetDeviceMessages returns the page of messages in the conversation that
	// the device sent or holds an envelope for, oldest first, each carrying
	// only that device's envelope.
	GetDeviceMessages(ctx context.Context, conversationID, deviceID uuid.UUID, page, limit int) ([]message.Message, int64, error)
}

type PairingRepository interface {
	Create(ctx context.Context, t *pairing.Token) error
	// Consume marks the token used if it is still issued at now. On failure it
	// classifies the reason as not found, expired, already used or invalidated.
	Consume(ctx context.Context, tokenHash string, now time.Time) (pairing.Token, error)
	// Release undoes a Consume made at usedAt.
	Release(ctx context.Context, tokenHash string, usedAt time.Time) error
	InvalidateUserTokens(ctx context.Context, userID uuid.UUID, now time.Time) (int64, error)
	// PurgeExpired deletes tokens whose expiry is before cutoff. A zero userID
	// purges across all users.
	PurgeExpired(ctx context.Context, userID uuid.UUID, cutoff time.Time) (int64, error)
}

// Repositories bundles one implementation of every repository.
type Repositories struct {
	Users         UserRepository
	Devices       DeviceRepository
	Conversations ConversationRepository
	Messages      MessageRepository
	Pairing       PairingRepository
}

// NewPostgresRepositories builds the SQL repositories over one pool.
func NewPostgresRepositories(db DBTX) Repositories {
	return Repositories{
		Users:         NewUserRepository(db),
		Devices:       NewDeviceRepository(db),
		Conversations: NewConversationRepository(db),
		Messages:      NewMessageRepository(db),
		Pairing:       NewPairingRepository(db),
	}
}
