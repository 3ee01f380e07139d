package device

import (
	"time"

	"github.com/google/uuid"
)

// DefaultMaxActive is the number of simultaneously active devices a user may hold.
const DefaultMaxActive = 5

// Class identifies the kind of client installation.
type Class string

const (
	ClassWeb     Class = "web"
	ClassIOS     Class = "ios"
	ClassAndroid Class = "android"
	ClassCLI     Class = "cli"
)

func (c Class) Valid() bool {
	switch c {
	case ClassWeb, ClassIOS, ClassAndroid, ClassCLI:
		return true
	}
	return false
}

// Device represents the devices table. Rows are never hard-deleted so that
// envelopes addressed to a removed device keep a valid reference.
type Device struct {
	ID           uuid.UUID
	UserID       uuid.UUID
	Class        Class
	PublicKey    string // base64 SPKI DER
	IsActive     bool
	IsRevoked    bool
	CreatedAt    time.Time
	LastActiveAt time.Time
}

// IDs returns the ids of the given devices in order.
func IDs(devices []Device) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(devices))
	for _, d := range devices {
		ids = append(ids, d.ID)
	}
	return ids
}

// Without returns devices minus the one with the given id.
func Without(devices []Device, id uuid.UUID) []Device {
	out := make([]Device, 0, len(devices))
	for _, d := range devices {
		if d.ID != id {
			out = append(out, d)
		}
	}
	return out
}
