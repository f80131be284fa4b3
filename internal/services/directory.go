package services

import (
	"context"

	"github.com/AnshRaj112/econex-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	DefaultDispatchRadiusMeters = 10000
	DefaultDispatchLimit        = 10
)

// Directory answers "nearest available collectors" queries over the users
// collection's 2dsphere index.
type Directory struct {
	users  UserStore
	radius float64
	limit  int64
}

// NewDirectory returns a directory whose fallback radius and limit are the given
// values, or the defaults when those are not positive.
func NewDirectory(users UserStore, radiusMeters float64, limit int64) *Directory {
	if radiusMeters <= 0 {
		radiusMeters = DefaultDispatchRadiusMeters
	}
	if limit <= 0 {
		limit = DefaultDispatchLimit
	}
	return &Directory{users: users, radius: radiusMeters, limit: limit}
}

// FindNearby returns online collectors within maxDistanceMeters of p, nearest first.
// Non-positive arguments fall back to the directory's defaults. No match is an
// empty slice.
func (d *Directory) FindNearby(ctx context.Context, p models.GeoPoint, maxDistanceMeters float64, limit int64) ([]primitive.ObjectID, error) {
	if maxDistanceMeters <= 0 {
		maxDistanceMeters = d.radius
	}
	if limit <= 0 {
		limit = d.limit
	}
	ids, err := d.users.FindNearbyCollectors(ctx, p, maxDistanceMeters, limit)
	if err != nil {
		return nil, err
	}
	if ids == nil {
		ids = []primitive.ObjectID{}
	}
	return ids, nil
}

// Defaults reports the radius and limit used when callers pass zero.
func (d *Directory) Defaults() (float64, int64) {
	return d.radius, d.limit
}
