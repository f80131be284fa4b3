// Package memstore holds in-memory versions of the Mongo stores with the same
// conflict and not-found semantics. Tests use them to drive the services end to end.
package memstore

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/AnshRaj112/econex-backend/internal/models"
	"github.com/AnshRaj112/econex-backend/internal/store"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Users mimics the users collection. FindNearbyCollectors answers like the
// 2dsphere $near query: online collectors within range, nearest first.
type Users struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]*models.User
}

func NewUsers() *Users {
	return &Users{users: map[primitive.ObjectID]*models.User{}}
}

// Add stores u, assigning an id when it has none.
func (m *Users) Add(u models.User) *models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	m.users[u.ID] = &u
	return &u
}

func (m *Users) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *Users) FindByIDs(_ context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[primitive.ObjectID]*models.User{}
	for _, id := range ids {
		if u, ok := m.users[id]; ok {
			cp := *u
			out[id] = &cp
		}
	}
	return out, nil
}

func (m *Users) AddPoints(_ context.Context, id primitive.ObjectID, points int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return 0, store.ErrNotFound
	}
	u.Points += points
	return u.Points, nil
}

// SetAvailability only touches collectors, like the Mongo filter on role.
func (m *Users) SetAvailability(_ context.Context, id primitive.ObjectID, a models.Availability) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok && u.Role == models.RoleCollector {
		u.Availability = a
	}
	return nil
}

func (m *Users) UpdateLocation(_ context.Context, id primitive.ObjectID, p models.GeoPoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		loc := p
		u.CurrentLocation = &loc
	}
	return nil
}

func (m *Users) FindNearbyCollectors(_ context.Context, p models.GeoPoint, maxDistance float64, limit int64) ([]primitive.ObjectID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	type hit struct {
		id primitive.ObjectID
		d  float64
	}
	var hits []hit
	for _, u := range m.users {
		if u.Role != models.RoleCollector || u.Availability != models.AvailabilityOnline || u.CurrentLocation == nil {
			continue
		}
		d := haversine(p, *u.CurrentLocation)
		if d <= maxDistance {
			hits = append(hits, hit{u.ID, d})
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].d < hits[j].d })

	ids := []primitive.ObjectID{}
	for i, h := range hits {
		if int64(i) >= limit {
			break
		}
		ids = append(ids, h.id)
	}
	return ids, nil
}

func haversine(a, b models.GeoPoint) float64 {
	const r = 6371000.0
	lat1, lat2 := a.Latitude()*math.Pi/180, b.Latitude()*math.Pi/180
	dLat := lat2 - lat1
	dLng := (b.Longitude() - a.Longitude()) * math.Pi / 180
	h := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * r * math.Asin(math.Sqrt(h))
}

type Requests struct {
	mu       sync.Mutex
	requests map[primitive.ObjectID]*models.WasteRequest
	history  map[primitive.ObjectID][]models.RequestStatus
}

func NewRequests() *Requests {
	return &Requests{
		requests: map[primitive.ObjectID]*models.WasteRequest{},
		history:  map[primitive.ObjectID][]models.RequestStatus{},
	}
}

func (m *Requests) Insert(_ context.Context, req *models.WasteRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if req.ID.IsZero() {
		req.ID = primitive.NewObjectID()
	}
	req.CreatedAt = time.Now()
	req.UpdatedAt = req.CreatedAt
	cp := *req
	m.requests[req.ID] = &cp
	m.history[req.ID] = []models.RequestStatus{req.Status}
	return nil
}

func (m *Requests) FindByID(_ context.Context, id primitive.ObjectID) (*models.WasteRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *Requests) FindByIDs(_ context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*models.WasteRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[primitive.ObjectID]*models.WasteRequest{}
	for _, id := range ids {
		if r, ok := m.requests[id]; ok {
			cp := *r
			out[id] = &cp
		}
	}
	return out, nil
}

func (m *Requests) Apply(_ context.Context, t store.Transition) (*models.WasteRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[t.ID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if r.Status != t.From || (t.Collector != nil && !r.AssignedTo(*t.Collector)) {
		return nil, store.ErrConflict
	}
	r.Status = t.To
	if t.SetCollector != nil {
		id := *t.SetCollector
		r.CollectorID = &id
	}
	if t.SetBuyer != nil {
		id := *t.SetBuyer
		r.BuyerID = &id
	}
	if t.SetWeight != nil {
		r.Weight = *t.SetWeight
	}
	if t.SetPoints != nil {
		r.Points = *t.SetPoints
	}
	if t.SetDescription != nil {
		r.ListingDescription = *t.SetDescription
	}
	r.UpdatedAt = time.Now()
	m.history[t.ID] = append(m.history[t.ID], t.To)
	cp := *r
	return &cp, nil
}

func (m *Requests) List(_ context.Context, f store.RequestFilter) ([]models.WasteRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.WasteRequest{}
	for _, r := range m.requests {
		if len(f.Statuses) > 0 && !containsStatus(f.Statuses, r.Status) {
			continue
		}
		if f.UserID != nil && r.UserID != *f.UserID {
			continue
		}
		if f.CollectorID != nil && !r.AssignedTo(*f.CollectorID) {
			continue
		}
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// StatusHistory is every status id has held, oldest first.
func (m *Requests) StatusHistory(id primitive.ObjectID) []models.RequestStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.RequestStatus(nil), m.history[id]...)
}

func containsStatus(list []models.RequestStatus, s models.RequestStatus) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

type LogisticsChats struct {
	mu    sync.Mutex
	chats map[primitive.ObjectID]*models.LogisticsChat // by request id
	tick  int
}

func NewLogisticsChats() *LogisticsChats {
	return &LogisticsChats{chats: map[primitive.ObjectID]*models.LogisticsChat{}}
}

func (m *LogisticsChats) stamp() time.Time {
	m.tick++
	return time.Unix(int64(1700000000+m.tick), 0)
}

func (m *LogisticsChats) CreateIfAbsent(_ context.Context, requestID, userID, collectorID primitive.ObjectID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.chats[requestID]; ok {
		return false, nil
	}
	now := m.stamp()
	m.chats[requestID] = &models.LogisticsChat{
		ID: primitive.NewObjectID(), RequestID: requestID, UserID: userID, CollectorID: collectorID,
		Messages: []models.ChatMessage{}, CreatedAt: now, UpdatedAt: now,
	}
	return true, nil
}

func (m *LogisticsChats) byID(id primitive.ObjectID) *models.LogisticsChat {
	for _, c := range m.chats {
		if c.ID == id {
			return c
		}
	}
	return nil
}

func copyLogistics(c *models.LogisticsChat) *models.LogisticsChat {
	cp := *c
	cp.Messages = append([]models.ChatMessage{}, c.Messages...)
	return &cp
}

func (m *LogisticsChats) FindByRequestID(_ context.Context, requestID primitive.ObjectID) (*models.LogisticsChat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.chats[requestID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return copyLogistics(c), nil
}

func (m *LogisticsChats) FindByID(_ context.Context, id primitive.ObjectID) (*models.LogisticsChat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.byID(id)
	if c == nil {
		return nil, store.ErrNotFound
	}
	return copyLogistics(c), nil
}

func (m *LogisticsChats) Append(_ context.Context, chatID primitive.ObjectID, msg models.ChatMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.byID(chatID)
	if c == nil {
		return store.ErrNotFound
	}
	c.Messages = append(c.Messages, msg)
	c.UpdatedAt = m.stamp()
	return nil
}

func (m *LogisticsChats) MarkRead(_ context.Context, chatID, reader primitive.ObjectID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.byID(chatID)
	if c == nil || (c.UserID != reader && c.CollectorID != reader) {
		return false, nil
	}
	for i := range c.Messages {
		if c.Messages[i].SenderID != reader && !c.Messages[i].IsRead {
			c.Messages[i].IsRead = true
		}
	}
	return true, nil
}

func (m *LogisticsChats) list(match func(*models.LogisticsChat) bool) []models.LogisticsChat {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.LogisticsChat{}
	for _, c := range m.chats {
		if match(c) {
			out = append(out, *copyLogistics(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out
}

func (m *LogisticsChats) ListByUser(_ context.Context, id primitive.ObjectID) ([]models.LogisticsChat, error) {
	return m.list(func(c *models.LogisticsChat) bool { return c.UserID == id }), nil
}

func (m *LogisticsChats) ListByCollector(_ context.Context, id primitive.ObjectID) ([]models.LogisticsChat, error) {
	return m.list(func(c *models.LogisticsChat) bool { return c.CollectorID == id }), nil
}

func (m *LogisticsChats) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.chats)
}

type salesKey struct{ request, buyer primitive.ObjectID }

type SalesChats struct {
	mu    sync.Mutex
	chats map[salesKey]*models.SalesChat
	tick  int
}

func NewSalesChats() *SalesChats {
	return &SalesChats{chats: map[salesKey]*models.SalesChat{}}
}

func (m *SalesChats) stamp() time.Time {
	m.tick++
	return time.Unix(int64(1700000000+m.tick), 0)
}

func copySales(c *models.SalesChat) *models.SalesChat {
	cp := *c
	cp.Messages = append([]models.ChatMessage{}, c.Messages...)
	return &cp
}

func (m *SalesChats) FindOrCreate(_ context.Context, requestID, buyerID, collectorID primitive.ObjectID) (*models.SalesChat, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := salesKey{requestID, buyerID}
	if c, ok := m.chats[k]; ok {
		return copySales(c), false, nil
	}
	now := m.stamp()
	c := &models.SalesChat{
		ID: primitive.NewObjectID(), RequestID: requestID, BuyerID: buyerID, CollectorID: collectorID,
		Messages: []models.ChatMessage{}, CreatedAt: now, UpdatedAt: now,
	}
	m.chats[k] = c
	return copySales(c), true, nil
}

func (m *SalesChats) byID(id primitive.ObjectID) *models.SalesChat {
	for _, c := range m.chats {
		if c.ID == id {
			return c
		}
	}
	return nil
}

func (m *SalesChats) FindByID(_ context.Context, id primitive.ObjectID) (*models.SalesChat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.byID(id)
	if c == nil {
		return nil, store.ErrNotFound
	}
	return copySales(c), nil
}

func (m *SalesChats) Append(_ context.Context, chatID primitive.ObjectID, msg models.ChatMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.byID(chatID)
	if c == nil {
		return store.ErrNotFound
	}
	c.Messages = append(c.Messages, msg)
	c.UpdatedAt = m.stamp()
	return nil
}

func (m *SalesChats) MarkRead(_ context.Context, chatID, reader primitive.ObjectID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.byID(chatID)
	if c == nil || (c.BuyerID != reader && c.CollectorID != reader) {
		return false, nil
	}
	for i := range c.Messages {
		if c.Messages[i].SenderID != reader && !c.Messages[i].IsRead {
			c.Messages[i].IsRead = true
		}
	}
	return true, nil
}

func (m *SalesChats) ListByParticipant(_ context.Context, id primitive.ObjectID) ([]models.SalesChat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.SalesChat{}
	for _, c := range m.chats {
		if c.BuyerID == id || c.CollectorID == id {
			out = append(out, *copySales(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}
