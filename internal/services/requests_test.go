package services

import (
	"context"
	"sync"
	"testing"

	"github.com/AnshRaj112/econex-backend/internal/models"
	"github.com/AnshRaj112/econex-backend/internal/realtime"
	"github.com/AnshRaj112/econex-backend/internal/store"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestCreateValidation(t *testing.T) {
	h := newHarness(t)
	user := h.entity(models.RoleUser, "amina")
	lat, lng, bad := 1.0, 2.0, 500.0

	cases := []struct {
		name  string
		in    CreateRequestInput
		field string
	}{
		{"bad type", CreateRequestInput{Type: "glass", Weight: 1, Location: &models.Location{Latitude: &lat, Longitude: &lng}}, "type"},
		{"zero weight", CreateRequestInput{Type: models.WasteLightweight, Location: &models.Location{Latitude: &lat, Longitude: &lng}}, "weight"},
		{"negative weight", CreateRequestInput{Type: models.WasteLightweight, Weight: -2, Location: &models.Location{Latitude: &lat, Longitude: &lng}}, "weight"},
		{"no location", CreateRequestInput{Type: models.WasteLightweight, Weight: 1}, "location"},
		{"half location", CreateRequestInput{Type: models.WasteLightweight, Weight: 1, Location: &models.Location{Latitude: &lat}}, "location"},
		{"out of range", CreateRequestInput{Type: models.WasteLightweight, Weight: 1, Location: &models.Location{Latitude: &lat, Longitude: &bad}}, "location"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.svc.Create(context.Background(), user, tc.in)
			require.ErrorIs(t, err, ErrValidation)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			require.Equal(t, tc.field, ve.Field)
		})
	}

	collector := h.entity(models.RoleCollector, "kip")
	_, err := h.svc.Create(context.Background(), collector, CreateRequestInput{Type: models.WasteLightweight, Weight: 1, Location: &models.Location{Latitude: &lat, Longitude: &lng}})
	require.ErrorIs(t, err, ErrForbidden)
}

func TestCreateStoresPendingRequest(t *testing.T) {
	h := newHarness(t)
	user := h.entity(models.RoleUser, "amina")

	req := h.createRequest(t, user, models.WasteLightweight, 5)
	require.Equal(t, models.StatusPending, req.Status)
	require.Nil(t, req.CollectorID)
	require.Zero(t, req.Points)
	require.Equal(t, []float64{pickup.Longitude(), pickup.Latitude()}, req.PickupLocation.Coordinates)

	pending, err := h.svc.PendingRequests(context.Background())
	require.NoError(t, err)
	require.Len(t, pending, 1)
}

func TestAcceptTwiceIsAStateError(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	user := h.entity(models.RoleUser, "amina")
	first := h.entity(models.RoleCollector, "kip")
	second := h.entity(models.RoleCollector, "wanjiru")
	userConn := h.connect(user)

	req := h.createRequest(t, user, models.WasteLightweight, 5)

	accepted, err := h.svc.Accept(ctx, first, req.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusAccepted, accepted.Status)
	require.True(t, accepted.AssignedTo(first.ID))

	_, err = h.svc.Accept(ctx, second, req.ID)
	require.ErrorIs(t, err, ErrInvalidState)
	var se *StateError
	require.ErrorAs(t, err, &se)
	require.Equal(t, models.StatusPending, se.Expected)
	require.Equal(t, models.StatusAccepted, se.Actual)

	stored, err := h.requests.FindByID(ctx, req.ID)
	require.NoError(t, err)
	require.True(t, stored.AssignedTo(first.ID), "rejected accept leaves the request unmodified")
	require.Equal(t, 1, h.logistics.Count())

	h.outbox.Flush()
	pushes := userConn.events(realtime.EventRequestAccepted)
	require.Len(t, pushes, 1)
	payload := pushes[0].Payload.(RequestAccepted)
	require.Equal(t, "kip", payload.Collector.Name)
	require.Equal(t, req.ID, payload.Request.ID)
}

func TestConcurrentAcceptsCreateOneChat(t *testing.T) {
	h := newHarness(t)
	user := h.entity(models.RoleUser, "amina")
	req := h.createRequest(t, user, models.WasteLightweight, 5)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners int
	)
	for i := 0; i < 20; i++ {
		collector := h.entity(models.RoleCollector, "c")
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := h.svc.Accept(context.Background(), collector, req.ID); err == nil {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 1, winners)
	require.Equal(t, 1, h.logistics.Count())
}

func TestCollectAwardsPointsAndNotifies(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	user := h.entity(models.RoleUser, "amina")
	collector := h.entity(models.RoleCollector, "kip")
	userConn := h.connect(user)

	_, err := h.users.AddPoints(ctx, user.ID, 30)
	require.NoError(t, err)

	req := h.createRequest(t, user, models.WasteHeavyweight, 5)
	_, err = h.svc.Accept(ctx, collector, req.ID)
	require.NoError(t, err)

	_, err = h.svc.Collect(ctx, collector, req.ID, 0)
	require.ErrorIs(t, err, ErrValidation)

	collected, err := h.svc.Collect(ctx, collector, req.ID, 4.2)
	require.NoError(t, err)
	require.Equal(t, models.StatusCollected, collected.Status)
	require.Equal(t, 4.2, collected.Weight)
	require.Equal(t, 84, collected.Points)

	owner, err := h.users.FindByID(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, 114, owner.Points)

	h.outbox.Flush()
	done := userConn.events(realtime.EventRequestCompleted)
	require.Len(t, done, 1)
	require.Equal(t, RequestCompleted{Message: "You earned 84 points!", NewPointTotal: 114}, done[0].Payload)
}

func TestCollectByAnotherCollectorIsForbidden(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	user := h.entity(models.RoleUser, "amina")
	assigned := h.entity(models.RoleCollector, "kip")
	other := h.entity(models.RoleCollector, "wanjiru")

	req := h.createRequest(t, user, models.WasteLightweight, 5)
	_, err := h.svc.Collect(ctx, assigned, req.ID, 5)
	require.ErrorIs(t, err, ErrInvalidState, "pending requests cannot be collected")

	_, err = h.svc.Accept(ctx, assigned, req.ID)
	require.NoError(t, err)

	_, err = h.svc.Collect(ctx, other, req.ID, 5)
	require.ErrorIs(t, err, ErrForbidden)

	_, err = h.svc.ListForSale(ctx, other, req.ID, "")
	require.ErrorIs(t, err, ErrForbidden)

	_, err = h.svc.Collect(ctx, user, req.ID, 5)
	require.ErrorIs(t, err, ErrForbidden, "users cannot run collector transitions")
}

func TestStatusOnlyMovesForward(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	user := h.entity(models.RoleUser, "amina")
	collector := h.entity(models.RoleCollector, "kip")
	buyer := h.entity(models.RoleBuyer, "recyclers ltd")

	req := h.createRequest(t, user, models.WasteLightweight, 2)

	_, err := h.svc.ListForSale(ctx, collector, req.ID, "early")
	require.ErrorIs(t, err, ErrInvalidState)
	_, err = h.svc.MarkSold(ctx, buyer, req.ID)
	require.ErrorIs(t, err, ErrInvalidState)

	_, err = h.svc.Accept(ctx, collector, req.ID)
	require.NoError(t, err)
	_, err = h.svc.ListForSale(ctx, collector, req.ID, "skip collect")
	require.ErrorIs(t, err, ErrInvalidState)

	_, err = h.svc.Collect(ctx, collector, req.ID, 2)
	require.NoError(t, err)
	_, err = h.svc.Accept(ctx, collector, req.ID)
	require.ErrorIs(t, err, ErrInvalidState, "no way back to accepted")

	listed, err := h.svc.ListForSale(ctx, collector, req.ID, "  2kg PET bottles ")
	require.NoError(t, err)
	require.Equal(t, "2kg PET bottles", listed.ListingDescription)

	listings, err := h.svc.Listings(ctx)
	require.NoError(t, err)
	require.Len(t, listings, 1)

	_, err = h.svc.MarkSold(ctx, collector, req.ID)
	require.ErrorIs(t, err, ErrForbidden)
	sold, err := h.svc.MarkSold(ctx, buyer, req.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusSold, sold.Status)
	require.Equal(t, buyer.ID, *sold.BuyerID)

	_, err = h.svc.MarkSold(ctx, buyer, req.ID)
	require.ErrorIs(t, err, ErrInvalidState)

	require.Equal(t, []models.RequestStatus{
		models.StatusPending, models.StatusAccepted, models.StatusCollected, models.StatusListedForSale, models.StatusSold,
	}, h.requests.StatusHistory(req.ID))
	require.Len(t, h.audit.transitions, 4)
	require.Equal(t, models.StatusListedForSale, h.audit.transitions[3].FromStatus)
}

func TestTransitionRefusesSkippedSteps(t *testing.T) {
	h := newHarness(t)
	user := h.entity(models.RoleUser, "amina")
	collector := h.entity(models.RoleCollector, "kip")
	req := h.createRequest(t, user, models.WasteLightweight, 2)

	_, err := h.svc.transition(context.Background(), collector, store.Transition{
		ID:   req.ID,
		From: models.StatusPending,
		To:   models.StatusCollected,
	})
	require.ErrorIs(t, err, ErrInvalidState)

	_, err = h.svc.transition(context.Background(), collector, store.Transition{
		ID:   req.ID,
		From: models.StatusAccepted,
		To:   models.StatusPending,
	})
	require.ErrorIs(t, err, ErrInvalidState)

	require.Equal(t, []models.RequestStatus{models.StatusPending}, h.requests.StatusHistory(req.ID))
	require.Empty(t, h.audit.transitions)
}

func TestUnknownRequestIsNotFound(t *testing.T) {
	h := newHarness(t)
	collector := h.entity(models.RoleCollector, "kip")

	_, err := h.svc.Accept(context.Background(), collector, primitive.NewObjectID())
	require.ErrorIs(t, err, ErrNotFound)
	_, err = h.svc.Collect(context.Background(), collector, primitive.NewObjectID(), 1)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestListingQueries(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	user := h.entity(models.RoleUser, "amina")
	collector := h.entity(models.RoleCollector, "kip")

	a := h.createRequest(t, user, models.WasteLightweight, 1)
	h.createRequest(t, user, models.WasteLightweight, 2)
	_, err := h.svc.Accept(ctx, collector, a.ID)
	require.NoError(t, err)

	active, err := h.svc.ActiveForUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, active, 2)

	jobs, err := h.svc.AcceptedForCollector(ctx, collector.ID)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	require.Equal(t, a.ID, jobs[0].ID)

	pending, err := h.svc.PendingRequests(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
}
