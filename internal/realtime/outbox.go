package realtime

import (
	"context"
	"log"
	"sync"
	"sync/atomic"

	"github.com/AnshRaj112/econex-backend/internal/presence"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Locator resolves an entity to its live connection.
type Locator interface {
	Lookup(id primitive.ObjectID) (presence.Conn, bool)
}

type delivery struct {
	entity  primitive.ObjectID
	room    string
	event   string
	payload interface{}
}

// Outbox is the outbound event queue. Mutating operations enqueue only after
// their write committed; a single drainer delivers in FIFO order, so per-room
// order equals enqueue order. A crash between commit and delivery loses the push,
// never the persisted record.
type Outbox struct {
	queue    chan delivery
	presence Locator
	rooms    *Rooms

	pending sync.WaitGroup
	running atomic.Bool
	drainMu sync.Mutex
}

func NewOutbox(presence Locator, rooms *Rooms, buffer int) *Outbox {
	if buffer <= 0 {
		buffer = 1024
	}
	return &Outbox{
		queue:    make(chan delivery, buffer),
		presence: presence,
		rooms:    rooms,
	}
}

// ToEntity queues event for id's current connection, resolved at delivery time.
func (o *Outbox) ToEntity(id primitive.ObjectID, event string, payload interface{}) {
	o.enqueue(delivery{entity: id, event: event, payload: payload})
}

// ToRoom queues event for every connection in room at delivery time.
func (o *Outbox) ToRoom(room, event string, payload interface{}) {
	o.enqueue(delivery{room: room, event: event, payload: payload})
}

func (o *Outbox) enqueue(d delivery) {
	o.pending.Add(1)
	select {
	case o.queue <- d:
	default:
		o.pending.Done()
		log.Printf("outbox: queue full, dropped %s", d.event)
	}
}

// Run drains the queue until ctx is done.
func (o *Outbox) Run(ctx context.Context) {
	o.running.Store(true)
	defer o.running.Store(false)

	for {
		select {
		case <-ctx.Done():
			return
		case d := <-o.queue:
			o.deliver(d)
		}
	}
}

// Flush returns once everything queued so far has been delivered. Without a
// running drainer it drains on the caller's goroutine.
func (o *Outbox) Flush() {
	if !o.running.Load() {
		for {
			select {
			case d := <-o.queue:
				o.deliver(d)
				continue
			default:
			}
			break
		}
	}
	o.pending.Wait()
}

func (o *Outbox) deliver(d delivery) {
	o.drainMu.Lock()
	defer o.drainMu.Unlock()
	defer o.pending.Done()

	if d.room != "" {
		for _, conn := range o.rooms.Members(d.room) {
			if err := conn.Send(d.event, d.payload); err != nil {
				log.Printf("outbox: %s to room %s failed for conn %s: %v", d.event, d.room, conn.ID(), err)
			}
		}
		return
	}

	conn, ok := o.presence.Lookup(d.entity)
	if !ok {
		return
	}
	if err := conn.Send(d.event, d.payload); err != nil {
		log.Printf("outbox: %s failed for %s: %v", d.event, d.entity.Hex(), err)
	}
}
