// Package memory holds map-backed repositories used by tests and by the
// in-process store driver. All repositories built from one Store share a
// single lock, so every write is atomic with respect to every other.
package memory

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/domain/conversation"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/domain/device"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/domain/message"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/domain/pairing"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/domain/user"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/repository"
)

type Store struct {
	mu sync.Mutex

	users         map[uuid.UUID]user.User
	devices       map[uuid.UUID]device.Device
	conversations map[uuid.UUID]conversation.Conversation
	messages      map[uuid.UUID]message.Message
	byConv        map[uuid.UUID][]uuid.UUID
	tokens        map[string]pairing.Token
}

func NewStore() *Store {
	return &Store{
		users:         make(map[uuid.UUID]user.User),
		devices:       make(map[uuid.UUID]device.Device),
		conversations: make(map[uuid.UUID]conversation.Conversation),
		messages:      make(map[uuid.UUID]message.Message),
		byConv:        make(map[uuid.UUID][]uuid.UUID),
		tokens:        make(map[string]pairing.Token),
	}
}

// Repositories bundles every repository backed by one store.
type Repositories = repository.Repositories

func (s *Store) Repositories() Repositories {
	return Repositories{
		Users:         &UserRepository{s: s},
		Devices:       &DeviceRepository{s: s},
		Conversations: &ConversationRepository{s: s},
		Messages:      &MessageRepository{s: s},
		Pairing:       &PairingRepository{s: s},
	}
}

func pageBounds(total, page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}
	return start, end
}

func equalFoldTrim(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

func sortDevices(ds []device.Device) {
	sort.Slice(ds, func(i, j int) bool { return ds[i].CreatedAt.Before(ds[j].CreatedAt) })
}

func timePtr(t time.Time) *time.Time {
	return &t
}
