package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/registry"
)

// Presence key pattern: presence:{user_id} holds the JSON encoded current
// connection and expires unless refreshed by the socket heartbeat.
const presenceKeyPrefix = "presence:"

// compareAndDelete removes the key only if it still holds the given client id.
var compareAndDelete = goredis.NewScript(`
	local raw = redis.call('GET', KEYS[1])
	if raw == false then
		return 0
	end
	local conn = cjson.decode(raw)
	if conn['client_id'] == ARGV[1] then
		return redis.call('DEL', KEYS[1])
	end
	return 0
`)

// compareAndExpire extends the TTL only if the key still holds the client id.
var compareAndExpire = goredis.NewScript(`
	local raw = redis.call('GET', KEYS[1])
	if raw == false then
		return 0
	end
	local conn = cjson.decode(raw)
	if conn['client_id'] == ARGV[1] then
		return redis.call('EXPIRE', KEYS[1], ARGV[2])
	end
	return 0
`)

// PresenceRegistry is a registry.Registry shared by every API process.
type PresenceRegistry struct {
	client *goredis.Client
	ttl    time.Duration
}

func NewPresenceRegistry(client *goredis.Client, ttl time.Duration) *PresenceRegistry {
	if ttl == 0 {
		ttl = 2 * time.Minute
	}
	return &PresenceRegistry{client: client, ttl: ttl}
}

var _ registry.Registry = (*PresenceRegistry)(nil)

func presenceKey(userID uuid.UUID) string {
	return presenceKeyPrefix + userID.String()
}

func (p *PresenceRegistry) Add(ctx context.Context, conn registry.Connection) error {
	data, err := json.Marshal(conn)
	if err != nil {
		return err
	}
	return p.client.Set(ctx, presenceKey(conn.UserID), data, p.ttl).Err()
}

func (p *PresenceRegistry) Refresh(ctx context.Context, conn registry.Connection) error {
	return compareAndExpire.Run(ctx, p.client, []string{presenceKey(conn.UserID)},
		conn.ClientID, int(p.ttl.Seconds())).Err()
}

func (p *PresenceRegistry) Remove(ctx context.Context, userID uuid.UUID, clientID string) error {
	return compareAndDelete.Run(ctx, p.client, []string{presenceKey(userID)}, clientID).Err()
}

func (p *PresenceRegistry) Lookup(ctx context.Context, userID uuid.UUID) (registry.Connection, bool, error) {
	raw, err := p.client.Get(ctx, presenceKey(userID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return registry.Connection{}, false, nil
	}
	if err != nil {
		return registry.Connection{}, false, err
	}
	var conn registry.Connection
	if err := json.Unmarshal(raw, &conn); err != nil {
		return registry.Connection{}, false, err
	}
	return conn, true, nil
}
