package services

import (
	"context"
	"log"
	"time"

	"github.com/AnshRaj112/econex-backend/internal/audit"
	"github.com/AnshRaj112/econex-backend/internal/models"
	"github.com/AnshRaj112/econex-backend/internal/realtime"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DispatchResult describes who a new request was pushed to.
type DispatchResult struct {
	RequestID primitive.ObjectID   `json:"request_id"`
	Matched   []primitive.ObjectID `json:"matched"`
	Notified  []primitive.ObjectID `json:"notified"`
	Offline   []primitive.ObjectID `json:"offline"`
}

type Dispatcher struct {
	directory *Directory
	presence  PresenceLookup
	outbox    Notifier
	audit     audit.Recorder
}

func NewDispatcher(directory *Directory, presence PresenceLookup, outbox Notifier, recorder audit.Recorder) *Dispatcher {
	if recorder == nil {
		recorder = audit.Nop{}
	}
	return &Dispatcher{directory: directory, presence: presence, outbox: outbox, audit: recorder}
}

// Dispatch pushes req to every nearby online collector that currently holds a
// connection. Collectors without one are skipped and only show up in the audit
// log; they still see the request through the pending listing. Each push is its
// own outbox delivery, so one dead connection cannot starve the rest.
func (d *Dispatcher) Dispatch(ctx context.Context, req *models.WasteRequest) DispatchResult {
	result := DispatchResult{
		RequestID: req.ID,
		Matched:   []primitive.ObjectID{},
		Notified:  []primitive.ObjectID{},
		Offline:   []primitive.ObjectID{},
	}

	ids, err := d.directory.FindNearby(ctx, req.PickupLocation, 0, 0)
	if err != nil {
		log.Printf("dispatch: nearby query failed for request %s: %v", req.ID.Hex(), err)
		return result
	}
	result.Matched = ids

	entries := make([]audit.DispatchEntry, 0, len(ids))
	for _, id := range ids {
		outcome := audit.OutcomeOffline
		if _, ok := d.presence.Lookup(id); ok {
			d.outbox.ToEntity(id, realtime.EventNewRequestAvailable, req)
			result.Notified = append(result.Notified, id)
			outcome = audit.OutcomeQueued
		} else {
			result.Offline = append(result.Offline, id)
		}
		entries = append(entries, audit.DispatchEntry{
			RequestID:   req.ID.Hex(),
			CollectorID: id.Hex(),
			Outcome:     outcome,
		})
	}

	auditCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.audit.RecordDispatch(auditCtx, entries); err != nil {
		log.Printf("dispatch: audit write failed for request %s: %v", req.ID.Hex(), err)
	}

	log.Printf("dispatch: request %s matched %d collectors, notified %d", req.ID.Hex(), len(ids), len(result.Notified))
	return result
}
