package services

import (
	"context"
	"testing"

	"github.com/AnshRaj112/econex-backend/internal/models"
	"github.com/AnshRaj112/econex-backend/internal/presence"
	"github.com/AnshRaj112/econex-backend/internal/realtime"
	"github.com/AnshRaj112/econex-backend/internal/store/memstore"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Nairobi CBD and points a few km away.
var (
	pickup     = models.NewGeoPoint(-1.2864, 36.8172)
	twoKmAway  = models.NewGeoPoint(-1.3044, 36.8172)
	fiveKmAway = models.NewGeoPoint(-1.2414, 36.8172)
	thirtyKm   = models.NewGeoPoint(-1.0166, 36.8172)
)

type harness struct {
	users     *memstore.Users
	requests  *memstore.Requests
	logistics *memstore.LogisticsChats
	sales     *memstore.SalesChats
	audit     *memAudit

	presence *presence.MemoryRegistry
	rooms    *realtime.Rooms
	outbox   *realtime.Outbox

	dispatcher *Dispatcher
	svc        *RequestService
	chat       *ChatRouter
	inbox      *InboxService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		users:     memstore.NewUsers(),
		requests:  memstore.NewRequests(),
		logistics: memstore.NewLogisticsChats(),
		sales:     memstore.NewSalesChats(),
		audit:     &memAudit{},
		presence:  presence.NewMemoryRegistry(nil),
		rooms:     realtime.NewRooms(),
	}
	h.outbox = realtime.NewOutbox(h.presence, h.rooms, 256)
	h.dispatcher = NewDispatcher(NewDirectory(h.users, 0, 0), h.presence, h.outbox, h.audit)
	h.svc = NewRequestService(h.requests, h.users, h.logistics, h.dispatcher, h.outbox, h.audit)
	h.svc.async = func(f func()) { f() }
	h.chat = NewChatRouter(h.logistics, h.sales, h.requests, h.rooms, h.outbox)
	h.inbox = NewInboxService(h.logistics, h.sales, h.requests, h.users)
	return h
}

func (h *harness) entity(role models.Role, name string) models.Identity {
	u := h.users.Add(models.User{Name: name, Role: role})
	return u.Identity()
}

func (h *harness) collectorAt(name string, at models.GeoPoint, a models.Availability) models.Identity {
	loc := at
	u := h.users.Add(models.User{Name: name, Role: models.RoleCollector, Availability: a, CurrentLocation: &loc})
	return u.Identity()
}

func (h *harness) connect(who models.Identity) *testConn {
	c := newTestConn()
	h.presence.SetOnline(context.Background(), who, c)
	return c
}

func (h *harness) createRequest(t *testing.T, user models.Identity, kind models.WasteType, weight float64) *models.WasteRequest {
	t.Helper()
	lat, lng := pickup.Latitude(), pickup.Longitude()
	req, err := h.svc.Create(context.Background(), user, CreateRequestInput{
		Type:     kind,
		Weight:   weight,
		Location: &models.Location{Latitude: &lat, Longitude: &lng},
	})
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	return req
}

// listed walks a fresh request all the way to listed_for_sale.
func (h *harness) listed(t *testing.T, user, collector models.Identity) *models.WasteRequest {
	t.Helper()
	ctx := context.Background()
	req := h.createRequest(t, user, models.WasteHeavyweight, 3)
	if _, err := h.svc.Accept(ctx, collector, req.ID); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := h.svc.Collect(ctx, collector, req.ID, 3); err != nil {
		t.Fatalf("collect: %v", err)
	}
	listed, err := h.svc.ListForSale(ctx, collector, req.ID, "3kg copper wire")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	return listed
}

func ids(list ...models.Identity) []primitive.ObjectID {
	out := make([]primitive.ObjectID, 0, len(list))
	for _, i := range list {
		out = append(out, i.ID)
	}
	return out
}
