package localstore

import (
	"time"

	"github.com/google/uuid"
)

// Conversation is a conversation known to this device, either synced from
// the server or merged in from a backup.
type Conversation struct {
	ID            uuid.UUID
	Participants  []uuid.UUID
	CreatedAt     time.Time
	LastMessageAt time.Time
	Imported      bool
}

// Message is the local record of a server message. Content is only set for
// messages composed on this device.
type Message struct {
	ID             uuid.UUID
	ConversationID uuid.UUID
	SenderID       uuid.UUID
	SenderDeviceID uuid.UUID
	Content        string
	Composed       bool
	CreatedAt      time.Time
}

// ImportedMessage is a readable message restored from a backup document.
type ImportedMessage struct {
	ID             uuid.UUID
	ConversationID uuid.UUID
	SenderID       uuid.UUID
	SenderUsername string
	Content        string
	Timestamp      time.Time
	IsOwn          bool
	ImportedAt     time.Time
}
