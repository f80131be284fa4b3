package realtime

import (
	"sync"

	"github.com/AnshRaj112/econex-backend/internal/presence"
)

// Rooms tracks which connections subscribed to which chat channel.
type Rooms struct {
	mu      sync.RWMutex
	members map[string]map[string]presence.Conn
	joined  map[string]map[string]struct{} // conn id -> rooms
}

func NewRooms() *Rooms {
	return &Rooms{
		members: make(map[string]map[string]presence.Conn),
		joined:  make(map[string]map[string]struct{}),
	}
}

func (r *Rooms) Join(room string, conn presence.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.members[room] == nil {
		r.members[room] = make(map[string]presence.Conn)
	}
	r.members[room][conn.ID()] = conn
	if r.joined[conn.ID()] == nil {
		r.joined[conn.ID()] = make(map[string]struct{})
	}
	r.joined[conn.ID()][room] = struct{}{}
}

func (r *Rooms) Leave(room string, conn presence.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leave(room, conn.ID())
}

// LeaveAll drops conn from every room it joined. Called on disconnect.
func (r *Rooms) LeaveAll(conn presence.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for room := range r.joined[conn.ID()] {
		r.leave(room, conn.ID())
	}
}

func (r *Rooms) leave(room, connID string) {
	if m := r.members[room]; m != nil {
		delete(m, connID)
		if len(m) == 0 {
			delete(r.members, room)
		}
	}
	if j := r.joined[connID]; j != nil {
		delete(j, room)
		if len(j) == 0 {
			delete(r.joined, connID)
		}
	}
}

// Members returns a snapshot of the connections in room.
func (r *Rooms) Members(room string) []presence.Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]presence.Conn, 0, len(r.members[room]))
	for _, c := range r.members[room] {
		out = append(out, c)
	}
	return out
}

func (r *Rooms) In(room string, conn presence.Conn) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.members[room][conn.ID()]
	return ok
}
