package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/AnshRaj112/econex-backend/internal/audit"
	"github.com/AnshRaj112/econex-backend/internal/models"
	"github.com/AnshRaj112/econex-backend/internal/realtime"
	"github.com/AnshRaj112/econex-backend/internal/store"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type CreateRequestInput struct {
	Type     models.WasteType `json:"type"`
	Weight   float64          `json:"weight"`
	Location *models.Location `json:"location"`
}

// RequestAccepted is pushed to the requester when a collector takes the job.
type RequestAccepted struct {
	Request   *models.WasteRequest `json:"request"`
	Collector models.PublicUser    `json:"collector"`
}

// RequestCompleted is pushed to the requester after collection awards points.
type RequestCompleted struct {
	Message       string `json:"message"`
	NewPointTotal int    `json:"new_point_total"`
}

// RequestService owns the pickup request state machine:
// pending -> accepted -> collected -> listed_for_sale -> sold.
type RequestService struct {
	requests   RequestStore
	users      UserStore
	chats      LogisticsChatStore
	dispatcher *Dispatcher
	outbox     Notifier
	audit      audit.Recorder

	// async runs post-commit work such as dispatch. Defaults to a goroutine.
	async func(func())
}

func NewRequestService(requests RequestStore, users UserStore, chats LogisticsChatStore, dispatcher *Dispatcher, outbox Notifier, recorder audit.Recorder) *RequestService {
	if recorder == nil {
		recorder = audit.Nop{}
	}
	return &RequestService{
		requests:   requests,
		users:      users,
		chats:      chats,
		dispatcher: dispatcher,
		outbox:     outbox,
		audit:      recorder,
		async:      func(f func()) { go f() },
	}
}

// Create stores a new pending request for the calling user and dispatches it
// once the insert has committed.
func (s *RequestService) Create(ctx context.Context, actor models.Identity, in CreateRequestInput) (*models.WasteRequest, error) {
	if actor.Role != models.RoleUser {
		return nil, forbidden("only users can request a pickup")
	}
	if !in.Type.Valid() {
		return nil, invalid("type", "must be lightweight or heavyweight")
	}
	if in.Weight <= 0 {
		return nil, invalid("weight", "must be greater than zero")
	}
	point, err := in.Location.Point()
	if err != nil {
		return nil, invalid("location", err.Error())
	}

	req := &models.WasteRequest{
		UserID:         actor.ID,
		Type:           in.Type,
		Weight:         in.Weight,
		Status:         models.StatusPending,
		PickupLocation: point,
	}
	if err := s.requests.Insert(ctx, req); err != nil {
		return nil, fmt.Errorf("insert request: %w", err)
	}

	if s.dispatcher != nil {
		dispatched := *req
		s.async(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			s.dispatcher.Dispatch(ctx, &dispatched)
		})
	}
	return req, nil
}

// Accept binds the calling collector to a pending request and opens its
// logistics chat. Only one of several concurrent accepts can succeed.
func (s *RequestService) Accept(ctx context.Context, actor models.Identity, id primitive.ObjectID) (*models.WasteRequest, error) {
	if actor.Role != models.RoleCollector {
		return nil, forbidden("only collectors can accept requests")
	}

	collectorID := actor.ID
	req, err := s.transition(ctx, actor, store.Transition{
		ID:           id,
		From:         models.StatusPending,
		To:           models.StatusAccepted,
		SetCollector: &collectorID,
	})
	if err != nil {
		return nil, err
	}

	created, err := s.chats.CreateIfAbsent(ctx, req.ID, req.UserID, collectorID)
	switch {
	case err != nil:
		log.Printf("requests: logistics chat create failed for %s: %v", req.ID.Hex(), err)
	case !created:
		log.Printf("requests: logistics chat for %s already exists", req.ID.Hex())
	}

	payload := RequestAccepted{Request: req, Collector: models.PublicUser{ID: collectorID}}
	if collector, err := s.users.FindByID(ctx, collectorID); err == nil {
		payload.Collector = collector.Public()
	}
	s.outbox.ToEntity(req.UserID, realtime.EventRequestAccepted, payload)
	return req, nil
}

// Collect records the actual weight, awards points to the requester and tells them.
func (s *RequestService) Collect(ctx context.Context, actor models.Identity, id primitive.ObjectID, actualWeight float64) (*models.WasteRequest, error) {
	if actor.Role != models.RoleCollector {
		return nil, forbidden("only collectors can complete a collection")
	}
	if actualWeight <= 0 {
		return nil, invalid("actual_weight", "must be greater than zero")
	}

	current, err := s.assignedRequest(ctx, actor, id, models.StatusAccepted)
	if err != nil {
		return nil, err
	}

	points := CalculatePoints(current.Type, actualWeight)
	collectorID := actor.ID
	req, err := s.transition(ctx, actor, store.Transition{
		ID:        id,
		From:      models.StatusAccepted,
		To:        models.StatusCollected,
		Collector: &collectorID,
		SetWeight: &actualWeight,
		SetPoints: &points,
	})
	if err != nil {
		return nil, err
	}

	total, err := s.users.AddPoints(ctx, req.UserID, points)
	if err != nil {
		// The collection itself has committed; the balance is repaired by hand.
		log.Printf("requests: awarding %d points to %s failed: %v", points, req.UserID.Hex(), err)
		return req, nil
	}

	s.outbox.ToEntity(req.UserID, realtime.EventRequestCompleted, RequestCompleted{
		Message:       fmt.Sprintf("You earned %d points!", points),
		NewPointTotal: total,
	})
	return req, nil
}

// ListForSale puts a collected request on the marketplace.
func (s *RequestService) ListForSale(ctx context.Context, actor models.Identity, id primitive.ObjectID, description string) (*models.WasteRequest, error) {
	if actor.Role != models.RoleCollector {
		return nil, forbidden("only collectors can list items")
	}
	if _, err := s.assignedRequest(ctx, actor, id, models.StatusCollected); err != nil {
		return nil, err
	}

	description = strings.TrimSpace(description)
	collectorID := actor.ID
	return s.transition(ctx, actor, store.Transition{
		ID:             id,
		From:           models.StatusCollected,
		To:             models.StatusListedForSale,
		Collector:      &collectorID,
		SetDescription: &description,
	})
}

// MarkSold records the buying entity on a listed request.
func (s *RequestService) MarkSold(ctx context.Context, actor models.Identity, id primitive.ObjectID) (*models.WasteRequest, error) {
	if actor.Role != models.RoleBuyer {
		return nil, forbidden("only buyers can purchase listings")
	}
	buyerID := actor.ID
	return s.transition(ctx, actor, store.Transition{
		ID:       id,
		From:     models.StatusListedForSale,
		To:       models.StatusSold,
		SetBuyer: &buyerID,
	})
}

// PendingRequests is the collector's job board, newest first.
func (s *RequestService) PendingRequests(ctx context.Context) ([]models.WasteRequest, error) {
	return s.requests.List(ctx, store.RequestFilter{Statuses: []models.RequestStatus{models.StatusPending}})
}

// ActiveForUser returns the caller's requests that are not yet collected.
func (s *RequestService) ActiveForUser(ctx context.Context, userID primitive.ObjectID) ([]models.WasteRequest, error) {
	return s.requests.List(ctx, store.RequestFilter{
		Statuses: []models.RequestStatus{models.StatusPending, models.StatusAccepted},
		UserID:   &userID,
	})
}

// AcceptedForCollector returns the jobs a collector still has to pick up.
func (s *RequestService) AcceptedForCollector(ctx context.Context, collectorID primitive.ObjectID) ([]models.WasteRequest, error) {
	return s.requests.List(ctx, store.RequestFilter{
		Statuses:    []models.RequestStatus{models.StatusAccepted},
		CollectorID: &collectorID,
	})
}

// Listings is the buyer marketplace.
func (s *RequestService) Listings(ctx context.Context) ([]models.WasteRequest, error) {
	return s.requests.List(ctx, store.RequestFilter{Statuses: []models.RequestStatus{models.StatusListedForSale}})
}

// assignedRequest loads id and checks it is in want and bound to the calling collector.
func (s *RequestService) assignedRequest(ctx context.Context, actor models.Identity, id primitive.ObjectID, want models.RequestStatus) (*models.WasteRequest, error) {
	req, err := s.requests.FindByID(ctx, id)
	if err != nil {
		return nil, s.mapStoreErr(err, id)
	}
	if req.CollectorID != nil && !req.AssignedTo(actor.ID) {
		return nil, forbidden("request is assigned to another collector")
	}
	if req.Status != want {
		return nil, &StateError{Expected: want, Actual: req.Status}
	}
	return req, nil
}

// transition applies t atomically and records it in the audit trail. A lost race
// is reported as a StateError carrying the status that won.
func (s *RequestService) transition(ctx context.Context, actor models.Identity, t store.Transition) (*models.WasteRequest, error) {
	if !t.From.CanAdvanceTo(t.To) {
		return nil, fmt.Errorf("%w: %s cannot advance to %s", ErrInvalidState, t.From, t.To)
	}
	req, err := s.requests.Apply(ctx, t)
	if errors.Is(err, store.ErrConflict) {
		actual := models.RequestStatus("")
		if cur, ferr := s.requests.FindByID(ctx, t.ID); ferr == nil {
			if t.Collector != nil && cur.Status == t.From && !cur.AssignedTo(*t.Collector) {
				return nil, forbidden("request is assigned to another collector")
			}
			actual = cur.Status
		}
		return nil, &StateError{Expected: t.From, Actual: actual}
	}
	if err != nil {
		return nil, s.mapStoreErr(err, t.ID)
	}

	auditCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.audit.RecordTransition(auditCtx, audit.RequestEvent{
		RequestID:  req.ID.Hex(),
		FromStatus: t.From,
		ToStatus:   t.To,
		ActorID:    actor.ID.Hex(),
	}); err != nil {
		log.Printf("requests: audit write failed for %s (%s -> %s): %v", req.ID.Hex(), t.From, t.To, err)
	}
	return req, nil
}

func (s *RequestService) mapStoreErr(err error, id primitive.ObjectID) error {
	if errors.Is(err, store.ErrNotFound) {
		return notFound("request " + id.Hex())
	}
	return err
}
