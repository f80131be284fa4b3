package presence

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/AnshRaj112/econex-backend/internal/models"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const KeyPrefix = "presence:"

// Snapshot is the value stored under presence:<id>.
type Snapshot struct {
	EntityID string      `json:"entity_id"`
	Role     models.Role `json:"role"`
	Instance string      `json:"instance"`
	ConnID   string      `json:"conn_id"`
	Since    time.Time   `json:"since"`
}

// RedisMirror publishes presence to Redis so other processes and operators can
// see who is connected. The wrapped registry stays the authority: mirror writes
// are best effort and Lookup never reads Redis.
type RedisMirror struct {
	Registry
	client   *redis.Client
	instance string
	ttl      time.Duration
}

func NewRedisMirror(inner Registry, client *redis.Client, instance string, ttl time.Duration) *RedisMirror {
	return &RedisMirror{Registry: inner, client: client, instance: instance, ttl: ttl}
}

func (m *RedisMirror) SetOnline(ctx context.Context, who models.Identity, conn Conn) {
	m.Registry.SetOnline(ctx, who, conn)

	snap := Snapshot{
		EntityID: who.ID.Hex(),
		Role:     who.Role,
		Instance: m.instance,
		ConnID:   conn.ID(),
		Since:    time.Now().UTC(),
	}
	body, _ := json.Marshal(snap)
	if err := m.client.Set(ctx, KeyPrefix+who.ID.Hex(), body, m.ttl).Err(); err != nil {
		log.Printf("presence: redis mirror set failed for %s: %v", who.ID.Hex(), err)
	}
}

var releaseIfOwner = redis.NewScript(`
local v = redis.call("GET", KEYS[1])
if v and string.find(v, ARGV[1], 1, true) then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

func (m *RedisMirror) SetOffline(ctx context.Context, conn Conn) (primitive.ObjectID, bool) {
	id, ok := m.Registry.SetOffline(ctx, conn)
	if !ok {
		return id, ok
	}
	// Only drop the key if it still names this connection.
	if err := releaseIfOwner.Run(ctx, m.client, []string{KeyPrefix + id.Hex()}, `"conn_id":"`+conn.ID()+`"`).Err(); err != nil && !errors.Is(err, redis.Nil) {
		log.Printf("presence: redis mirror delete failed for %s: %v", id.Hex(), err)
	}
	return id, ok
}

// Touch extends the TTL of a present entity's key. Called on every client ping.
func (m *RedisMirror) Touch(ctx context.Context, id primitive.ObjectID) {
	if _, ok := m.Registry.Lookup(id); !ok {
		return
	}
	if err := m.client.Expire(ctx, KeyPrefix+id.Hex(), m.ttl).Err(); err != nil {
		log.Printf("presence: redis mirror touch failed for %s: %v", id.Hex(), err)
	}
}

// Online reads the mirror. ok is false when no process reports the entity.
func (m *RedisMirror) Online(ctx context.Context, id primitive.ObjectID) (*Snapshot, bool, error) {
	body, err := m.client.Get(ctx, KeyPrefix+id.Hex()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var snap Snapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		return nil, false, err
	}
	return &snap, true, nil
}
