// Package presence tracks which entities currently hold a realtime connection.
// The in-memory table is the single authority for one process; it is never
// consulted to decide whether a message was delivered.
package presence

import (
	"context"
	"errors"

	"github.com/AnshRaj112/econex-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Conn is a live connection handle. Send must not block.
type Conn interface {
	ID() string
	Send(event string, payload interface{}) error
}

// Registry is what dispatch, chat and the gateway depend on. MemoryRegistry is the
// process-local implementation; RedisMirror wraps one to publish presence.
type Registry interface {
	SetOnline(ctx context.Context, who models.Identity, conn Conn)
	// SetOffline removes whatever entity conn is registered for. ok is false when
	// conn is unknown or has been replaced by a newer connection.
	SetOffline(ctx context.Context, conn Conn) (id primitive.ObjectID, ok bool)
	Lookup(id primitive.ObjectID) (Conn, bool)
	// UpdateLocation records a collector's position. Only present entities may report.
	UpdateLocation(ctx context.Context, id primitive.ObjectID, p models.GeoPoint) error
}

// EntityStore is the persistence the registry writes through to.
type EntityStore interface {
	SetAvailability(ctx context.Context, id primitive.ObjectID, a models.Availability) error
	UpdateLocation(ctx context.Context, id primitive.ObjectID, p models.GeoPoint) error
}

var ErrNotPresent = errors.New("presence: entity is not online")
