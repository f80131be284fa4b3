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

type Requests struct {
	coll *mongo.Collection
}

func NewRequests(db *mongo.Database) *Requests {
	return &Requests{coll: db.Collection(RequestsCollection)}
}

func (r *Requests) Insert(ctx context.Context, req *models.WasteRequest) error {
	now := time.Now()
	if req.ID.IsZero() {
		req.ID = primitive.NewObjectID()
	}
	req.CreatedAt = now
	req.UpdatedAt = now
	_, err := r.coll.InsertOne(ctx, req)
	return err
}

func (r *Requests) FindByID(ctx context.Context, id primitive.ObjectID) (*models.WasteRequest, error) {
	var req models.WasteRequest
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&req); err != nil {
		return nil, notFound(err)
	}
	return &req, nil
}

func (r *Requests) FindByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*models.WasteRequest, error) {
	out := make(map[primitive.ObjectID]*models.WasteRequest, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	cursor, err := r.coll.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var req models.WasteRequest
		if err := cursor.Decode(&req); err != nil {
			return nil, err
		}
		out[req.ID] = &req
	}
	return out, cursor.Err()
}

// Transition describes one forward status step. The update only applies while the
// stored status still equals From (and, when set, the stored collector equals
// Collector), so two racing callers cannot both win.
type Transition struct {
	ID        primitive.ObjectID
	From      models.RequestStatus
	To        models.RequestStatus
	Collector *primitive.ObjectID

	// Fields written together with the status.
	SetCollector   *primitive.ObjectID
	SetBuyer       *primitive.ObjectID
	SetWeight      *float64
	SetPoints      *int
	SetDescription *string
}

// Apply performs t and returns the updated request. ErrConflict means the request
// exists but was no longer in the expected state.
func (r *Requests) Apply(ctx context.Context, t Transition) (*models.WasteRequest, error) {
	filter := bson.M{"_id": t.ID, "status": t.From}
	if t.Collector != nil {
		filter["collector_id"] = *t.Collector
	}

	set := bson.M{"status": t.To, "updated_at": time.Now()}
	if t.SetCollector != nil {
		set["collector_id"] = *t.SetCollector
	}
	if t.SetBuyer != nil {
		set["buyer_id"] = *t.SetBuyer
	}
	if t.SetWeight != nil {
		set["weight"] = *t.SetWeight
	}
	if t.SetPoints != nil {
		set["points"] = *t.SetPoints
	}
	if t.SetDescription != nil {
		set["listing_description"] = *t.SetDescription
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated models.WasteRequest
	err := r.coll.FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, opts).Decode(&updated)
	if err == nil {
		return &updated, nil
	}
	if err != mongo.ErrNoDocuments {
		return nil, err
	}

	// Tell "gone" apart from "moved on".
	if _, ferr := r.FindByID(ctx, t.ID); ferr != nil {
		return nil, ferr
	}
	return nil, ErrConflict
}

// RequestFilter narrows List. Zero fields are ignored.
type RequestFilter struct {
	Statuses    []models.RequestStatus
	UserID      *primitive.ObjectID
	CollectorID *primitive.ObjectID
}

// List returns matching requests, newest first.
func (r *Requests) List(ctx context.Context, f RequestFilter) ([]models.WasteRequest, error) {
	filter := bson.M{}
	switch len(f.Statuses) {
	case 0:
	case 1:
		filter["status"] = f.Statuses[0]
	default:
		filter["status"] = bson.M{"$in": f.Statuses}
	}
	if f.UserID != nil {
		filter["user_id"] = *f.UserID
	}
	if f.CollectorID != nil {
		filter["collector_id"] = *f.CollectorID
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	requests := []models.WasteRequest{}
	if err := cursor.All(ctx, &requests); err != nil {
		return nil, err
	}
	return requests, nil
}
