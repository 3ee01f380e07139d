// Package registry tracks which user is connected over the realtime channel.
// A user maps to its most recent connection; delivery itself is addressed to
// user rooms and does not go through the registry.
package registry

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Connection struct {
	UserID      uuid.UUID `json:"user_id"`
	DeviceID    uuid.UUID `json:"device_id"`
	ClientID    string    `json:"client_id"`
	ConnectedAt time.Time `json:"connected_at"`
}

type Registry interface {
	// Add records conn as the user's current connection, replacing any other.
	Add(ctx context.Context, conn Connection) error
	// Refresh keeps conn registered if it is still the current one.
	Refresh(ctx context.Context, conn Connection) error
	// Remove forgets the user's connection only if it is clientID, so a
	// late disconnect cannot evict a newer connection.
	Remove(ctx context.Context, userID uuid.UUID, clientID string) error
	Lookup(ctx context.Context, userID uuid.UUID) (Connection, bool, error)
}

// IsOnline reports whether the user has a registered connection.
func IsOnline(ctx context.Context, r Registry, userID uuid.UUID) (bool, error) {
	_, ok, err := r.Lookup(ctx, userID)
	return ok, err
}

type Memory struct {
	mu    sync.RWMutex
	conns map[uuid.UUID]Connection
}

func NewMemory() *Memory {
	return &Memory{conns: make(map[uuid.UUID]Connection)}
}

func (m *Memory) Add(_ context.Context, conn Connection) error {
	m.mu.Lock()
	m.conns[conn.UserID] = conn
	m.mu.Unlock()
	return nil
}

func (m *Memory) Refresh(context.Context, Connection) error {
	return nil
}

func (m *Memory) Remove(_ context.Context, userID uuid.UUID, clientID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.conns[userID]; ok && cur.ClientID == clientID {
		delete(m.conns, userID)
	}
	return nil
}

func (m *Memory) Lookup(_ context.Context, userID uuid.UUID) (Connection, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	conn, ok := m.conns[userID]
	return conn, ok, nil
}
