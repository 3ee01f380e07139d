package message

import (
	"time"

	"github.com/google/uuid"
)

// Envelope is the ciphertext of one message for one device.
type Envelope struct {
	DeviceID   uuid.UUID
	Ciphertext string
}

// Message represents the messages table together with its message_envelopes
// rows. A message is immutable once appended.
type Message struct {
	ID             uuid.UUID
	ConversationID uuid.UUID
	SenderID       uuid.UUID
	SenderDeviceID uuid.UUID
	Envelopes      []Envelope
	CreatedAt      time.Time
}

// EnvelopeFor returns the envelope addressed to deviceID.
func (m Message) EnvelopeFor(deviceID uuid.UUID) (Envelope, bool) {
	return Find(m.Envelopes, deviceID)
}

// ForDevice returns a copy of m that carries only the envelope addressed to
// deviceID, if any.
func (m Message) ForDevice(deviceID uuid.UUID) Message {
	out := m
	out.Envelopes = nil
	if env, ok := m.EnvelopeFor(deviceID); ok {
		out.Envelopes = []Envelope{env}
	}
	return out
}

// VisibleTo reports whether the device sent m or holds an envelope for it.
func (m Message) VisibleTo(deviceID uuid.UUID) bool {
	if m.SenderDeviceID == deviceID {
		return true
	}
	_, ok := m.EnvelopeFor(deviceID)
	return ok
}

// Find returns the envelope addressed to deviceID.
func Find(envelopes []Envelope, deviceID uuid.UUID) (Envelope, bool) {
	for _, env := range envelopes {
		if env.DeviceID == deviceID {
			return env, true
		}
	}
	return Envelope{}, false
}

// DeviceIDs returns the target device ids of the envelopes in order.
func DeviceIDs(envelopes []Envelope) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(envelopes))
	for _, env := range envelopes {
		ids = append(ids, env.DeviceID)
	}
	return ids
}

// HasDuplicateDevice reports whether two envelopes target the same device.
func HasDuplicateDevice(envelopes []Envelope) bool {
	seen := make(map[uuid.UUID]struct{}, len(envelopes))
	for _, env := range envelopes {
		if _, ok := seen[env.DeviceID]; ok {
			return true
		}
		seen[env.DeviceID] = struct{}{}
	}
	return false
}
