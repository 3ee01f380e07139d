package pairing

import (
	"time"

	"github.com/google/uuid"
)

// State of a pairing token. Redeemed, Expired and Invalidated are terminal.
type State string

const (
	StateIssued      State = "ISSUED"
	StateRedeemed    State = "REDEEMED"
	StateExpired     State = "EXPIRED"
	StateInvalidated State = "INVALIDATED"
)

// Token represents the pairing_tokens table. Only the SHA-256 hash of the
// token handed to the user is stored.
type Token struct {
	TokenHash     string
	UserID        uuid.UUID
	ExpiresAt     time.Time
	UsedAt        *time.Time
	InvalidatedAt *time.Time
	CreatedAt     time.Time
}

// StateAt reports the token state as observed at now. A used token stays
// Redeemed after its expiry passes.
func (t Token) StateAt(now time.Time) State {
	switch {
	case t.UsedAt != nil:
		return StateRedeemed
	case t.InvalidatedAt != nil:
		return StateInvalidated
	case !now.Before(t.ExpiresAt):
		return StateExpired
	default:
		return StateIssued
	}
}
