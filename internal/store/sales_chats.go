package store

import (
	"context"
	"time"

	"github.com/AnshRaj112/econex-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type SalesChats struct {
	coll *mongo.Collection
}

func NewSalesChats(db *mongo.Database) *SalesChats {
	return &SalesChats{coll: db.Collection(SalesChatsCollection)}
}

// FindOrCreate returns the chat keyed by (requestID, buyerID), creating it when
// absent. created is true only for the call whose upsert inserted the document.
func (s *SalesChats) FindOrCreate(ctx context.Context, requestID, buyerID, collectorID primitive.ObjectID) (*models.SalesChat, bool, error) {
	key := bson.M{"request_id": requestID, "buyer_id": buyerID}
	now := time.Now()

	res, err := s.coll.UpdateOne(ctx, key,
		bson.M{"$setOnInsert": bson.M{
			"collector_id": collectorID,
			"messages":     bson.A{},
			"created_at":   now,
			"updated_at":   now,
		}},
		options.Update().SetUpsert(true),
	)
	created := false
	switch {
	case err == nil:
		created = res.UpsertedCount == 1
	case mongo.IsDuplicateKeyError(err):
		// A concurrent upsert for the same pair inserted first.
	default:
		return nil, false, err
	}

	var chat models.SalesChat
	if err := s.coll.FindOne(ctx, key).Decode(&chat); err != nil {
		return nil, false, notFound(err)
	}
	return &chat, created, nil
}

func (s *SalesChats) FindByID(ctx context.Context, id primitive.ObjectID) (*models.SalesChat, error) {
	var chat models.SalesChat
	if err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&chat); err != nil {
		return nil, notFound(err)
	}
	return &chat, nil
}

func (s *SalesChats) Append(ctx context.Context, chatID primitive.ObjectID, msg models.ChatMessage) error {
	return appendMessage(ctx, s.coll, chatID, msg)
}

func (s *SalesChats) MarkRead(ctx context.Context, chatID, reader primitive.ObjectID) (bool, error) {
	filter := bson.M{
		"_id": chatID,
		"$or": bson.A{bson.M{"buyer_id": reader}, bson.M{"collector_id": reader}},
	}
	return markRead(ctx, s.coll, filter, reader)
}

// ListByParticipant returns every sales chat where id is the buyer or the collector.
func (s *SalesChats) ListByParticipant(ctx context.Context, id primitive.ObjectID) ([]models.SalesChat, error) {
	filter := bson.M{"$or": bson.A{bson.M{"buyer_id": id}, bson.M{"collector_id": id}}}
	cursor, err := s.coll.Find(ctx, filter, newestFirst())
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	chats := []models.SalesChat{}
	if err := cursor.All(ctx, &chats); err != nil {
		return nil, err
	}
	return chats, nil
}
