package httpdto

import (
	"time"

	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/domain/user"
)

type User struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email,omitempty"`
	CreatedAt string `json:"created_at"`
}

// FromUser converts a user. The email is only included for the user themselves.
func FromUser(u user.User, withEmail bool) User {
	dto := User{
		ID:        u.ID.String(),
		Username:  u.Username,
		CreatedAt: u.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if withEmail {
		dto.Email = u.Email
	}
	return dto
}

type Presence struct {
	UserID      string `json:"user_id"`
	Online      bool   `json:"online"`
	DeviceID    string `json:"device_id,omitempty"`
	ConnectedAt string `json:"connected_at,omitempty"`
}
