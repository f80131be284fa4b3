package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type WasteType string

const (
	WasteLightweight WasteType = "lightweight"
	WasteHeavyweight WasteType = "heavyweight"
)

func (t WasteType) Valid() bool {
	return t == WasteLightweight || t == WasteHeavyweight
}

// RequestStatus only ever advances one step along statusOrder.
type RequestStatus string

const (
	StatusPending       RequestStatus = "pending"
	StatusAccepted      RequestStatus = "accepted"
	StatusCollected     RequestStatus = "collected"
	StatusListedForSale RequestStatus = "listed_for_sale"
	StatusSold          RequestStatus = "sold"
)

var statusOrder = []RequestStatus{
	StatusPending,
	StatusAccepted,
	StatusCollected,
	StatusListedForSale,
	StatusSold,
}

func (s RequestStatus) rank() int {
	for i, st := range statusOrder {
		if st == s {
			return i
		}
	}
	return -1
}

// Next returns the single status s may advance to; false for sold or unknown values.
func (s RequestStatus) Next() (RequestStatus, bool) {
	i := s.rank()
	if i < 0 || i == len(statusOrder)-1 {
		return "", false
	}
	return statusOrder[i+1], true
}

func (s RequestStatus) CanAdvanceTo(to RequestStatus) bool {
	next, ok := s.Next()
	return ok && next == to
}

// WasteRequest is a pickup request. It is never deleted.
type WasteRequest struct {
	ID                 primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	UserID             primitive.ObjectID  `bson:"user_id" json:"user_id"`
	Type               WasteType           `bson:"type" json:"type"`
	Weight             float64             `bson:"weight" json:"weight"` // estimate until collected, then actual
	Points             int                 `bson:"points" json:"points"`
	Status             RequestStatus       `bson:"status" json:"status"`
	PickupLocation     GeoPoint            `bson:"pickup_location" json:"pickup_location"`
	ListingDescription string              `bson:"listing_description" json:"listing_description"`
	CollectorID        *primitive.ObjectID `bson:"collector_id" json:"collector_id"`
	BuyerID            *primitive.ObjectID `bson:"buyer_id,omitempty" json:"buyer_id,omitempty"`
	CreatedAt          time.Time           `bson:"created_at" json:"created_at"`
	UpdatedAt          time.Time           `bson:"updated_at" json:"updated_at"`
}

// AssignedTo reports whether collectorID is the collector bound to this request.
func (r *WasteRequest) AssignedTo(collectorID primitive.ObjectID) bool {
	return r.CollectorID != nil && *r.CollectorID == collectorID
}

// RequestSummary is attached to inbox entries.
type RequestSummary struct {
	ID                 primitive.ObjectID `json:"id"`
	Status             RequestStatus      `json:"status"`
	Type               WasteType          `json:"type"`
	ListingDescription string             `json:"listing_description,omitempty"`
}

func (r *WasteRequest) Summary() RequestSummary {
	return RequestSummary{
		ID:                 r.ID,
		Status:             r.Status,
		Type:               r.Type,
		ListingDescription: r.ListingDescription,
	}
}
