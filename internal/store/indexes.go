package store

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes creates the geospatial and uniqueness indexes the core relies on.
// Called on startup from main after Mongo has connected.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := map[string][]mongo.IndexModel{
		UsersCollection: {
			{
				Keys:    bson.D{{Key: "current_location", Value: "2dsphere"}},
				Options: options.Index().SetName("idx_current_location_2dsphere"),
			},
			{
				Keys:    bson.D{{Key: "role", Value: 1}, {Key: "availability", Value: 1}},
				Options: options.Index().SetName("idx_role_availability"),
			},
			{
				Keys:    bson.D{{Key: "email", Value: 1}},
				Options: options.Index().SetName("uniq_email").SetUnique(true),
			},
		},
		RequestsCollection: {
			{
				Keys:    bson.D{{Key: "pickup_location", Value: "2dsphere"}},
				Options: options.Index().SetName("idx_pickup_location_2dsphere"),
			},
			{
				Keys:    bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}},
				Options: options.Index().SetName("idx_status_created"),
			},
			{
				Keys:    bson.D{{Key: "user_id", Value: 1}},
				Options: options.Index().SetName("idx_user"),
			},
			{
				Keys:    bson.D{{Key: "collector_id", Value: 1}},
				Options: options.Index().SetName("idx_collector"),
			},
		},
		LogisticsChatsCollection: {
			// At most one logistics chat per request.
			{
				Keys:    bson.D{{Key: "request_id", Value: 1}},
				Options: options.Index().SetName("uniq_request").SetUnique(true),
			},
			{
				Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "updated_at", Value: -1}},
				Options: options.Index().SetName("idx_user_updated"),
			},
			{
				Keys:    bson.D{{Key: "collector_id", Value: 1}, {Key: "updated_at", Value: -1}},
				Options: options.Index().SetName("idx_collector_updated"),
			},
		},
		SalesChatsCollection: {
			// One buyer gets one chat per listing.
			{
				Keys:    bson.D{{Key: "request_id", Value: 1}, {Key: "buyer_id", Value: 1}},
				Options: options.Index().SetName("uniq_request_buyer").SetUnique(true),
			},
			{
				Keys:    bson.D{{Key: "buyer_id", Value: 1}, {Key: "updated_at", Value: -1}},
				Options: options.Index().SetName("idx_buyer_updated"),
			},
			{
				Keys:    bson.D{{Key: "collector_id", Value: 1}, {Key: "updated_at", Value: -1}},
				Options: options.Index().SetName("idx_collector_updated"),
			},
		},
	}

	for collection, models := range indexes {
		if _, err := db.Collection(collection).Indexes().CreateMany(ctx, models); err != nil {
			return err
		}
	}
	return nil
}
