package models

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ChatMessage is one entry in a session's append-only log. The shape is shared by
// logistics and sales chats; only the allowed sender roles differ.
type ChatMessage struct {
	ID         primitive.ObjectID `bson:"_id" json:"id"`
	SenderID   primitive.ObjectID `bson:"sender_id" json:"sender_id"`
	SenderRole string             `bson:"sender_role" json:"sender_role"`
	Message    string             `bson:"message" json:"message"`
	IsRead     bool               `bson:"is_read" json:"is_read"` // false -> true only, by the recipient
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
}

// HasUnread reports whether someone other than viewer wrote a message viewer hasn't read.
// Inboxes recompute this on every fetch; it is never stored.
func HasUnread(messages []ChatMessage, viewer primitive.ObjectID) bool {
	for _, m := range messages {
		if m.SenderID != viewer && !m.IsRead {
			return true
		}
	}
	return false
}

// LogisticsRole is who may write in a logistics chat.
type LogisticsRole string

const (
	LogisticsRoleUser      LogisticsRole = "user"
	LogisticsRoleCollector LogisticsRole = "collector"
)

func ParseLogisticsRole(s string) (LogisticsRole, error) {
	switch r := LogisticsRole(s); r {
	case LogisticsRoleUser, LogisticsRoleCollector:
		return r, nil
	}
	return "", fmt.Errorf("invalid logistics sender role %q", s)
}

// SalesRole is who may write in a sales chat.
type SalesRole string

const (
	SalesRoleBuyer     SalesRole = "buyer"
	SalesRoleCollector SalesRole = "collector"
)

func ParseSalesRole(s string) (SalesRole, error) {
	switch r := SalesRole(s); r {
	case SalesRoleBuyer, SalesRoleCollector:
		return r, nil
	}
	return "", fmt.Errorf("invalid sales sender role %q", s)
}

type LogisticsParticipant struct {
	ID   primitive.ObjectID
	Role LogisticsRole
}

type SalesParticipant struct {
	ID   primitive.ObjectID
	Role SalesRole
}

// LogisticsChat binds a request's owner and its collector. One per request.
type LogisticsChat struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	RequestID   primitive.ObjectID `bson:"request_id" json:"request_id"`
	UserID      primitive.ObjectID `bson:"user_id" json:"user_id"`
	CollectorID primitive.ObjectID `bson:"collector_id" json:"collector_id"`
	Messages    []ChatMessage      `bson:"messages" json:"messages"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updated_at"`
}

func (c *LogisticsChat) Participant(id primitive.ObjectID) (LogisticsParticipant, bool) {
	switch id {
	case c.UserID:
		return LogisticsParticipant{ID: id, Role: LogisticsRoleUser}, true
	case c.CollectorID:
		return LogisticsParticipant{ID: id, Role: LogisticsRoleCollector}, true
	}
	return LogisticsParticipant{}, false
}

// SalesChat binds one buyer and the collector of a listing. One per (request, buyer).
type SalesChat struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	RequestID   primitive.ObjectID `bson:"request_id" json:"request_id"`
	BuyerID     primitive.ObjectID `bson:"buyer_id" json:"buyer_id"`
	CollectorID primitive.ObjectID `bson:"collector_id" json:"collector_id"`
	Messages    []ChatMessage      `bson:"messages" json:"messages"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updated_at"`
}

func (c *SalesChat) Participant(id primitive.ObjectID) (SalesParticipant, bool) {
	switch id {
	case c.BuyerID:
		return SalesParticipant{ID: id, Role: SalesRoleBuyer}, true
	case c.CollectorID:
		return SalesParticipant{ID: id, Role: SalesRoleCollector}, true
	}
	return SalesParticipant{}, false
}

func NewLogisticsMessage(from LogisticsParticipant, body string, at time.Time) ChatMessage {
	return ChatMessage{
		ID:         primitive.NewObjectID(),
		SenderID:   from.ID,
		SenderRole: string(from.Role),
		Message:    body,
		CreatedAt:  at,
	}
}

func NewSalesMessage(from SalesParticipant, body string, at time.Time) ChatMessage {
	return ChatMessage{
		ID:         primitive.NewObjectID(),
		SenderID:   from.ID,
		SenderRole: string(from.Role),
		Message:    body,
		CreatedAt:  at,
	}
}

// LogisticsMessageEvent is the record broadcast to a logistics room.
type LogisticsMessageEvent struct {
	RequestID primitive.ObjectID `json:"request_id"`
	ChatMessage
}

// SalesMessageEvent is the record broadcast to a sales room.
type SalesMessageEvent struct {
	SalesChatID primitive.ObjectID `json:"sales_chat_id"`
	ChatMessage
}
