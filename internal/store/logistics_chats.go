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

type LogisticsChats struct {
	coll *mongo.Collection
}

func NewLogisticsChats(db *mongo.Database) *LogisticsChats {
	return &LogisticsChats{coll: db.Collection(LogisticsChatsCollection)}
}

// CreateIfAbsent inserts the chat for a request. The unique index on request_id
// turns a second insert into a duplicate key error, which is reported as
// created == false rather than an error.
func (l *LogisticsChats) CreateIfAbsent(ctx context.Context, requestID, userID, collectorID primitive.ObjectID) (bool, error) {
	now := time.Now()
	chat := models.LogisticsChat{
		ID:          primitive.NewObjectID(),
		RequestID:   requestID,
		UserID:      userID,
		CollectorID: collectorID,
		Messages:    []models.ChatMessage{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := l.coll.InsertOne(ctx, chat); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (l *LogisticsChats) FindByRequestID(ctx context.Context, requestID primitive.ObjectID) (*models.LogisticsChat, error) {
	var chat models.LogisticsChat
	if err := l.coll.FindOne(ctx, bson.M{"request_id": requestID}).Decode(&chat); err != nil {
		return nil, notFound(err)
	}
	return &chat, nil
}

func (l *LogisticsChats) FindByID(ctx context.Context, id primitive.ObjectID) (*models.LogisticsChat, error) {
	var chat models.LogisticsChat
	if err := l.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&chat); err != nil {
		return nil, notFound(err)
	}
	return &chat, nil
}

// Append pushes msg onto the end of the chat's log.
func (l *LogisticsChats) Append(ctx context.Context, chatID primitive.ObjectID, msg models.ChatMessage) error {
	return appendMessage(ctx, l.coll, chatID, msg)
}

// MarkRead flips is_read on every message in the chat not written by reader.
// It returns false when reader is not a participant of an existing chat.
func (l *LogisticsChats) MarkRead(ctx context.Context, chatID, reader primitive.ObjectID) (bool, error) {
	filter := bson.M{
		"_id": chatID,
		"$or": bson.A{bson.M{"user_id": reader}, bson.M{"collector_id": reader}},
	}
	return markRead(ctx, l.coll, filter, reader)
}

func (l *LogisticsChats) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.LogisticsChat, error) {
	return l.list(ctx, bson.M{"user_id": userID})
}

func (l *LogisticsChats) ListByCollector(ctx context.Context, collectorID primitive.ObjectID) ([]models.LogisticsChat, error) {
	return l.list(ctx, bson.M{"collector_id": collectorID})
}

func (l *LogisticsChats) list(ctx context.Context, filter bson.M) ([]models.LogisticsChat, error) {
	cursor, err := l.coll.Find(ctx, filter, newestFirst())
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	chats := []models.LogisticsChat{}
	if err := cursor.All(ctx, &chats); err != nil {
		return nil, err
	}
	return chats, nil
}

func newestFirst() *options.FindOptions {
	return options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}})
}

func appendMessage(ctx context.Context, coll *mongo.Collection, chatID primitive.ObjectID, msg models.ChatMessage) error {
	res, err := coll.UpdateOne(ctx,
		bson.M{"_id": chatID},
		bson.M{
			"$push": bson.M{"messages": msg},
			"$set":  bson.M{"updated_at": msg.CreatedAt},
		},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func markRead(ctx context.Context, coll *mongo.Collection, filter bson.M, reader primitive.ObjectID) (bool, error) {
	opts := options.Update().SetArrayFilters(options.ArrayFilters{
		Filters: []interface{}{
			bson.M{"elem.sender_id": bson.M{"$ne": reader}, "elem.is_read": false},
		},
	})
	res, err := coll.UpdateOne(ctx, filter,
		bson.M{"$set": bson.M{"messages.$[elem].is_read": true}},
		opts,
	)
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}
