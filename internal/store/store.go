// Package store holds the MongoDB persistence for entities, pickup requests and
// both chat kinds. Every method takes a context; callers own the deadline.
package store

import (
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
)

const (
	UsersCollection          = "users"
	RequestsCollection       = "waste_requests"
	LogisticsChatsCollection = "logistics_chats"
	SalesChatsCollection     = "sales_chats"
)

var (
	// ErrNotFound is returned when no document matches the lookup.
	ErrNotFound = errors.New("store: not found")
	// ErrConflict is returned when a conditional update matched nothing because the
	// document is no longer in the expected state.
	ErrConflict = errors.New("store: precondition no longer holds")
)

func notFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return err
}
