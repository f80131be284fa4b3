package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/AnshRaj112/econex-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Users reads entities owned by the auth subsystem and writes the few fields the
// core is allowed to touch: availability, location and points.
type Users struct {
	coll *mongo.Collection
}

func NewUsers(db *mongo.Database) *Users {
	return &Users{coll: db.Collection(UsersCollection)}
}

func (u *Users) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var user models.User
	if err := u.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&user); err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// FindByIDs returns the users it could find keyed by id. Missing ids are omitted.
func (u *Users) FindByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*models.User, error) {
	out := make(map[primitive.ObjectID]*models.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	opts := options.Find().SetProjection(bson.M{"password": 0})
	cursor, err := u.coll.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var user models.User
		if err := cursor.Decode(&user); err != nil {
			return nil, err
		}
		out[user.ID] = &user
	}
	return out, cursor.Err()
}

// FindByEmail is used by the seed tool to stay idempotent.
func (u *Users) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := u.coll.FindOne(ctx, bson.M{"email": strings.ToLower(strings.TrimSpace(email))}).Decode(&user)
	if err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// Insert creates an entity. Only the seed tool and tests call it; registration lives
// in the auth subsystem.
func (u *Users) Insert(ctx context.Context, user *models.User) error {
	now := time.Now()
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.Role == models.RoleCollector && user.Availability == "" {
		user.Availability = models.AvailabilityOffline
	}
	_, err := u.coll.InsertOne(ctx, user)
	return err
}

// SetAvailability only touches collectors; other roles have no availability.
func (u *Users) SetAvailability(ctx context.Context, id primitive.ObjectID, a models.Availability) error {
	_, err := u.coll.UpdateOne(ctx,
		bson.M{"_id": id, "role": models.RoleCollector},
		bson.M{"$set": bson.M{"availability": a, "updated_at": time.Now()}},
	)
	return err
}

// ResetCollectorAvailability marks every collector offline. The presence table is
// empty after a restart, so anything still flagged online is stale.
func (u *Users) ResetCollectorAvailability(ctx context.Context) (int64, error) {
	res, err := u.coll.UpdateMany(ctx,
		bson.M{"role": models.RoleCollector, "availability": models.AvailabilityOnline},
		bson.M{"$set": bson.M{"availability": models.AvailabilityOffline, "updated_at": time.Now()}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (u *Users) UpdateLocation(ctx context.Context, id primitive.ObjectID, p models.GeoPoint) error {
	_, err := u.coll.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"current_location": p, "updated_at": time.Now()}},
	)
	return err
}

// AddPoints increments a balance and returns the new total.
func (u *Users) AddPoints(ctx context.Context, id primitive.ObjectID, points int) (int, error) {
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{"points": 1})

	var out struct {
		Points int `bson:"points"`
	}
	err := u.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$inc": bson.M{"points": points}, "$set": bson.M{"updated_at": time.Now()}},
		opts,
	).Decode(&out)
	if err != nil {
		return 0, notFound(err)
	}
	return out.Points, nil
}

// FindNearbyCollectors returns online collectors within maxDistance meters of p,
// nearest first. $near sorts by distance, so no explicit sort is applied.
func (u *Users) FindNearbyCollectors(ctx context.Context, p models.GeoPoint, maxDistance float64, limit int64) ([]primitive.ObjectID, error) {
	filter := bson.M{
		"role":         models.RoleCollector,
		"availability": models.AvailabilityOnline,
		"current_location": bson.M{
			"$near": bson.M{
				"$geometry":    p,
				"$maxDistance": maxDistance,
			},
		},
	}
	opts := options.Find().SetLimit(limit).SetProjection(bson.M{"_id": 1})

	cursor, err := u.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("nearby collectors: %w", err)
	}
	defer cursor.Close(ctx)

	ids := []primitive.ObjectID{}
	for cursor.Next(ctx) {
		var doc struct {
			ID primitive.ObjectID `bson:"_id"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		ids = append(ids, doc.ID)
	}
	return ids, cursor.Err()
}
