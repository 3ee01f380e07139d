package httpdto

import (
	"fmt"
	"time"

	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/domain/message"
	"github.com/google/uuid"
)

type Envelope struct {
	DeviceID   string `json:"device_id"`
	Ciphertext string `json:"ciphertext"`
}

// SendMessageRequest is used for POST /v1/conversations/:id/messages. The
// sender device defaults to the device bound to the credential.
type SendMessageRequest struct {
	SenderDeviceID string     `json:"sender_device_id,omitempty"`
	Envelopes      []Envelope `json:"envelopes" binding:"required"`
}

type Message struct {
	ID             string     `json:"id"`
	ConversationID string     `json:"conversation_id"`
	SenderID       string     `json:"sender_id"`
	SenderDeviceID string     `json:"sender_device_id"`
	Envelopes      []Envelope `json:"envelopes"`
	CreatedAt      string     `json:"created_at"`
}

func FromMessage(m message.Message) Message {
	envs := make([]Envelope, 0, len(m.Envelopes))
	for _, e := range m.Envelopes {
		envs = append(envs, Envelope{DeviceID: e.DeviceID.String(), Ciphertext: e.Ciphertext})
	}
	return Message{
		ID:             m.ID.String(),
		ConversationID: m.ConversationID.String(),
		SenderID:       m.SenderID.String(),
		SenderDeviceID: m.SenderDeviceID.String(),
		Envelopes:      envs,
		CreatedAt:      m.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func FromMessages(msgs []message.Message) []Message {
	out := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, FromMessage(m))
	}
	return out
}

func ToEnvelopes(dtos []Envelope) ([]message.Envelope, error) {
	out := make([]message.Envelope, 0, len(dtos))
	for i, dto := range dtos {
		id, err := uuid.Parse(dto.DeviceID)
		if err != nil {
			return nil, fmt.Errorf("envelope %d: invalid device_id", i)
		}
		out = append(out, message.Envelope{DeviceID: id, Ciphertext: dto.Ciphertext})
	}
	return out, nil
}

func FromEnvelopes(envs []message.Envelope) []Envelope {
	out := make([]Envelope, 0, len(envs))
	for _, e := range envs {
		out = append(out, Envelope{DeviceID: e.DeviceID.String(), Ciphertext: e.Ciphertext})
	}
	return out
}

// ToMessage parses a message received from the API.
func ToMessage(dto Message) (message.Message, error) {
	id, err := uuid.Parse(dto.ID)
	if err != nil {
		return message.Message{}, fmt.Errorf("invalid message id: %w", err)
	}
	convID, err := uuid.Parse(dto.ConversationID)
	if err != nil {
		return message.Message{}, fmt.Errorf("invalid conversation id: %w", err)
	}
	senderID, err := uuid.Parse(dto.SenderID)
	if err != nil {
		return message.Message{}, fmt.Errorf("invalid sender id: %w", err)
	}
	senderDeviceID, err := uuid.Parse(dto.SenderDeviceID)
	if err != nil {
		return message.Message{}, fmt.Errorf("invalid sender device id: %w", err)
	}
	envs, err := ToEnvelopes(dto.Envelopes)
	if err != nil {
		return message.Message{}, err
	}
	createdAt, err := time.Parse(time.RFC3339Nano, dto.CreatedAt)
	if err != nil {
		return message.Message{}, fmt.Errorf("invalid created_at: %w", err)
	}
	return message.Message{
		ID:             id,
		ConversationID: convID,
		SenderID:       senderID,
		SenderDeviceID: senderDeviceID,
		Envelopes:      envs,
		CreatedAt:      createdAt,
	}, nil
}
