package presence

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/AnshRaj112/econex-backend/internal/models"
	"github.com/AnshRaj112/econex-backend/pkg/keylock"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const defaultWriteTimeout = 5 * time.Second

type entry struct {
	who  models.Identity
	conn Conn
}

type MemoryRegistry struct {
	mu       sync.RWMutex
	byEntity map[primitive.ObjectID]entry
	byConn   map[string]primitive.ObjectID

	store        EntityStore
	writeTimeout time.Duration
	writes       sync.WaitGroup
	writeLocks   *keylock.Map
}

// NewMemoryRegistry returns an empty registry. store may be nil, in which case
// availability is not persisted.
func NewMemoryRegistry(store EntityStore) *MemoryRegistry {
	return &MemoryRegistry{
		byEntity:     make(map[primitive.ObjectID]entry),
		byConn:       make(map[string]primitive.ObjectID),
		store:        store,
		writeTimeout: defaultWriteTimeout,
		writeLocks:   keylock.New(),
	}
}

func (r *MemoryRegistry) SetOnline(_ context.Context, who models.Identity, conn Conn) {
	r.mu.Lock()
	if prev, ok := r.byEntity[who.ID]; ok && prev.conn.ID() != conn.ID() {
		delete(r.byConn, prev.conn.ID())
	}
	r.byEntity[who.ID] = entry{who: who, conn: conn}
	r.byConn[conn.ID()] = who.ID
	r.mu.Unlock()

	if who.Role == models.RoleCollector {
		r.syncAvailability(who.ID)
	}
}

func (r *MemoryRegistry) SetOffline(_ context.Context, conn Conn) (primitive.ObjectID, bool) {
	r.mu.Lock()
	id, ok := r.byConn[conn.ID()]
	if !ok {
		r.mu.Unlock()
		return primitive.NilObjectID, false
	}
	delete(r.byConn, conn.ID())
	e := r.byEntity[id]
	delete(r.byEntity, id)
	r.mu.Unlock()

	if e.who.Role == models.RoleCollector {
		r.syncAvailability(id)
	}
	return id, true
}

func (r *MemoryRegistry) Lookup(id primitive.ObjectID) (Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byEntity[id]
	if !ok {
		return nil, false
	}
	return e.conn, true
}

func (r *MemoryRegistry) UpdateLocation(ctx context.Context, id primitive.ObjectID, p models.GeoPoint) error {
	if _, ok := r.Lookup(id); !ok {
		return ErrNotPresent
	}
	if r.store == nil {
		return nil
	}
	return r.store.UpdateLocation(ctx, id, p)
}

// Len is the number of entities currently online.
func (r *MemoryRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byEntity)
}

// Wait blocks until every pending availability write has finished.
func (r *MemoryRegistry) Wait() {
	r.writes.Wait()
}

// syncAvailability persists the entity's current presence in the background.
// Writes for one entity are serialized and each one re-reads the table, so the
// last write always reflects the latest transition.
func (r *MemoryRegistry) syncAvailability(id primitive.ObjectID) {
	if r.store == nil {
		return
	}
	r.writes.Add(1)
	go func() {
		defer r.writes.Done()
		unlock := r.writeLocks.Lock(id.Hex())
		defer unlock()

		a := models.AvailabilityOffline
		if _, ok := r.Lookup(id); ok {
			a = models.AvailabilityOnline
		}

		ctx, cancel := context.WithTimeout(context.Background(), r.writeTimeout)
		defer cancel()
		if err := r.store.SetAvailability(ctx, id, a); err != nil {
			log.Printf("presence: availability write (%s) failed for %s: %v", a, id.Hex(), err)
		}
	}()
}
