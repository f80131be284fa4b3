package services

import (
	"context"

	"github.com/AnshRaj112/econex-backend/internal/models"
	"github.com/AnshRaj112/econex-backend/internal/presence"
	"github.com/AnshRaj112/econex-backend/internal/store"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// The store interfaces below are satisfied by the internal/store types.

type UserStore interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*models.User, error)
	AddPoints(ctx context.Context, id primitive.ObjectID, points int) (int, error)
	FindNearbyCollectors(ctx context.Context, p models.GeoPoint, maxDistance float64, limit int64) ([]primitive.ObjectID, error)
}

type RequestStore interface {
	Insert(ctx context.Context, req *models.WasteRequest) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.WasteRequest, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*models.WasteRequest, error)
	Apply(ctx context.Context, t store.Transition) (*models.WasteRequest, error)
	List(ctx context.Context, f store.RequestFilter) ([]models.WasteRequest, error)
}

type LogisticsChatStore interface {
	CreateIfAbsent(ctx context.Context, requestID, userID, collectorID primitive.ObjectID) (bool, error)
	FindByRequestID(ctx context.Context, requestID primitive.ObjectID) (*models.LogisticsChat, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.LogisticsChat, error)
	Append(ctx context.Context, chatID primitive.ObjectID, msg models.ChatMessage) error
	MarkRead(ctx context.Context, chatID, reader primitive.ObjectID) (bool, error)
	ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.LogisticsChat, error)
	ListByCollector(ctx context.Context, collectorID primitive.ObjectID) ([]models.LogisticsChat, error)
}

type SalesChatStore interface {
	FindOrCreate(ctx context.Context, requestID, buyerID, collectorID primitive.ObjectID) (*models.SalesChat, bool, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.SalesChat, error)
	Append(ctx context.Context, chatID primitive.ObjectID, msg models.ChatMessage) error
	MarkRead(ctx context.Context, chatID, reader primitive.ObjectID) (bool, error)
	ListByParticipant(ctx context.Context, id primitive.ObjectID) ([]models.SalesChat, error)
}

// Notifier is the outbound event queue (realtime.Outbox).
type Notifier interface {
	ToEntity(id primitive.ObjectID, event string, payload interface{})
	ToRoom(room, event string, payload interface{})
}

// PresenceLookup is the read side of the presence registry.
type PresenceLookup interface {
	Lookup(id primitive.ObjectID) (presence.Conn, bool)
}

// RoomJoiner subscribes a connection to a chat room (realtime.Rooms).
type RoomJoiner interface {
	Join(room string, conn presence.Conn)
}
