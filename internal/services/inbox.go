package services

import (
	"context"
	"log"

	"github.com/AnshRaj112/econex-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type LogisticsInboxEntry struct {
	models.LogisticsChat
	HasUnread   bool                   `json:"has_unread"`
	Request     *models.RequestSummary `json:"request,omitempty"`
	Counterpart *models.PublicUser     `json:"counterpart,omitempty"`
}

type SalesInboxEntry struct {
	models.SalesChat
	HasUnread   bool                   `json:"has_unread"`
	Request     *models.RequestSummary `json:"request,omitempty"`
	Counterpart *models.PublicUser     `json:"counterpart,omitempty"`
}

// InboxService builds chat lists for one viewer, most recently updated first.
// has_unread is computed on every call and never stored.
type InboxService struct {
	logistics LogisticsChatStore
	sales     SalesChatStore
	requests  RequestStore
	users     UserStore
}

func NewInboxService(logistics LogisticsChatStore, sales SalesChatStore, requests RequestStore, users UserStore) *InboxService {
	return &InboxService{logistics: logistics, sales: sales, requests: requests, users: users}
}

func (s *InboxService) LogisticsInboxForUser(ctx context.Context, userID primitive.ObjectID) ([]LogisticsInboxEntry, error) {
	chats, err := s.logistics.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.logisticsEntries(ctx, chats, userID), nil
}

func (s *InboxService) LogisticsInboxForCollector(ctx context.Context, collectorID primitive.ObjectID) ([]LogisticsInboxEntry, error) {
	chats, err := s.logistics.ListByCollector(ctx, collectorID)
	if err != nil {
		return nil, err
	}
	return s.logisticsEntries(ctx, chats, collectorID), nil
}

// SalesInbox lists every sales chat where viewer is the buyer or the collector.
func (s *InboxService) SalesInbox(ctx context.Context, viewer primitive.ObjectID) ([]SalesInboxEntry, error) {
	chats, err := s.sales.ListByParticipant(ctx, viewer)
	if err != nil {
		return nil, err
	}

	requestIDs := make([]primitive.ObjectID, 0, len(chats))
	userIDs := make([]primitive.ObjectID, 0, len(chats))
	for _, c := range chats {
		requestIDs = append(requestIDs, c.RequestID)
		userIDs = append(userIDs, counterpartOf(viewer, c.BuyerID, c.CollectorID))
	}
	requests, users := s.decorations(ctx, requestIDs, userIDs)

	entries := make([]SalesInboxEntry, 0, len(chats))
	for _, c := range chats {
		e := SalesInboxEntry{SalesChat: c, HasUnread: models.HasUnread(c.Messages, viewer)}
		if req, ok := requests[c.RequestID]; ok {
			sum := req.Summary()
			e.Request = &sum
		}
		if u, ok := users[counterpartOf(viewer, c.BuyerID, c.CollectorID)]; ok {
			pub := u.Public()
			e.Counterpart = &pub
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (s *InboxService) logisticsEntries(ctx context.Context, chats []models.LogisticsChat, viewer primitive.ObjectID) []LogisticsInboxEntry {
	requestIDs := make([]primitive.ObjectID, 0, len(chats))
	userIDs := make([]primitive.ObjectID, 0, len(chats))
	for _, c := range chats {
		requestIDs = append(requestIDs, c.RequestID)
		userIDs = append(userIDs, counterpartOf(viewer, c.UserID, c.CollectorID))
	}
	requests, users := s.decorations(ctx, requestIDs, userIDs)

	entries := make([]LogisticsInboxEntry, 0, len(chats))
	for _, c := range chats {
		e := LogisticsInboxEntry{LogisticsChat: c, HasUnread: models.HasUnread(c.Messages, viewer)}
		if req, ok := requests[c.RequestID]; ok {
			sum := req.Summary()
			e.Request = &sum
		}
		if u, ok := users[counterpartOf(viewer, c.UserID, c.CollectorID)]; ok {
			pub := u.Public()
			e.Counterpart = &pub
		}
		entries = append(entries, e)
	}
	return entries
}

// decorations loads request summaries and counterpart names. Failures leave the
// entries undecorated rather than failing the inbox.
func (s *InboxService) decorations(ctx context.Context, requestIDs, userIDs []primitive.ObjectID) (map[primitive.ObjectID]*models.WasteRequest, map[primitive.ObjectID]*models.User) {
	requests, err := s.requests.FindByIDs(ctx, requestIDs)
	if err != nil {
		log.Printf("inbox: request lookup failed: %v", err)
		requests = nil
	}
	users, err := s.users.FindByIDs(ctx, userIDs)
	if err != nil {
		log.Printf("inbox: participant lookup failed: %v", err)
		users = nil
	}
	return requests, users
}

func counterpartOf(viewer, a, b primitive.ObjectID) primitive.ObjectID {
	if viewer == a {
		return b
	}
	return a
}
