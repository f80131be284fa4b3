package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role is fixed when the account is created by the auth subsystem.
type Role string

const (
	RoleUser      Role = "user"
	RoleCollector Role = "collector"
	RoleBuyer     Role = "buyer"
	RoleAdmin     Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleCollector, RoleBuyer, RoleAdmin:
		return true
	}
	return false
}

// Availability is only meaningful for collectors and is driven by presence transitions.
type Availability string

const (
	AvailabilityOnline  Availability = "online"
	AvailabilityOffline Availability = "offline"
)

// User is any account in the marketplace: requester, collector, buyer or admin.
type User struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`

	Name     string `bson:"name" json:"name"`
	Email    string `bson:"email" json:"email"`
	Password string `bson:"password" json:"-"` // Don't return password in JSON
	Role     Role   `bson:"role" json:"role"`

	// Requesters
	Points int `bson:"points" json:"points"`

	// Collectors
	Availability    Availability `bson:"availability,omitempty" json:"availability,omitempty"`
	CurrentLocation *GeoPoint    `bson:"current_location,omitempty" json:"current_location,omitempty"`
}

// Identity is the part of a User the realtime and chat layers need.
type Identity struct {
	ID   primitive.ObjectID
	Role Role
}

func (u *User) Identity() Identity {
	return Identity{ID: u.ID, Role: u.Role}
}

// PublicUser is what other parties get to see about a participant.
type PublicUser struct {
	ID   primitive.ObjectID `json:"id"`
	Name string             `json:"name"`
}

func (u *User) Public() PublicUser {
	return PublicUser{ID: u.ID, Name: u.Name}
}
