package conversation

import (
	"bytes"
	"time"

	"github.com/google/uuid"
)

// Conversation represents the conversations table. It always has exactly two
// participants, stored in byte order so a pair maps to one row.
type Conversation struct {
	ID            uuid.UUID
	Participants  [2]uuid.UUID
	CreatedAt     time.Time
	LastMessageAt time.Time
}

// NewDirect builds a conversation between two distinct users.
func NewDirect(a, b uuid.UUID, now time.Time) (Conversation, bool) {
	if a == uuid.Nil || b == uuid.Nil || a == b {
		return Conversation{}, false
	}
	return Conversation{
		ID:            uuid.New(),
		Participants:  OrderedPair(a, b),
		CreatedAt:     now,
		LastMessageAt: now,
	}, true
}

// OrderedPair returns a and b sorted by their byte representation.
func OrderedPair(a, b uuid.UUID) [2]uuid.UUID {
	if bytes.Compare(a[:], b[:]) > 0 {
		a, b = b, a
	}
	return [2]uuid.UUID{a, b}
}

func (c Conversation) HasParticipant(userID uuid.UUID) bool {
	return c.Participants[0] == userID || c.Participants[1] == userID
}

// Peer returns the participant that is not userID.
func (c Conversation) Peer(userID uuid.UUID) uuid.UUID {
	if c.Participants[0] == userID {
		return c.Participants[1]
	}
	return c.Participants[0]
}
