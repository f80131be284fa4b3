// Package audit keeps an append-only Postgres trail of request status transitions
// and dispatch outcomes. Writers treat failures as best effort.
package audit

import (
	"context"
	"time"

	"github.com/AnshRaj112/econex-backend/internal/models"
)

type DispatchOutcome string

const (
	// OutcomeQueued means the collector was present and the push was queued.
	OutcomeQueued DispatchOutcome = "queued"
	// OutcomeOffline means the collector matched but had no live connection.
	OutcomeOffline DispatchOutcome = "offline"
)

type RequestEvent struct {
	RequestID  string               `json:"request_id"`
	FromStatus models.RequestStatus `json:"from_status"`
	ToStatus   models.RequestStatus `json:"to_status"`
	ActorID    string               `json:"actor_id"`
	CreatedAt  time.Time            `json:"created_at"`
}

type DispatchEntry struct {
	RequestID   string          `json:"request_id"`
	CollectorID string          `json:"collector_id"`
	Outcome     DispatchOutcome `json:"outcome"`
	CreatedAt   time.Time       `json:"created_at"`
}

type Recorder interface {
	RecordTransition(ctx context.Context, ev RequestEvent) error
	RecordDispatch(ctx context.Context, entries []DispatchEntry) error
}

type Reader interface {
	RequestEvents(ctx context.Context, requestID string) ([]RequestEvent, error)
	Dispatches(ctx context.Context, requestID string) ([]DispatchEntry, error)
}

// Nop discards everything. Used when Postgres is not configured.
type Nop struct{}

func (Nop) RecordTransition(context.Context, RequestEvent) error          { return nil }
func (Nop) RecordDispatch(context.Context, []DispatchEntry) error         { return nil }
func (Nop) RequestEvents(context.Context, string) ([]RequestEvent, error) { return []RequestEvent{}, nil }
func (Nop) Dispatches(context.Context, string) ([]DispatchEntry, error)   { return []DispatchEntry{}, nil }
