package audit

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/AnshRaj112/econex-backend/internal/models"
)

// PostgresRecorder writes to the request_events and dispatch_log tables created by
// database.InitPostgresTables.
type PostgresRecorder struct {
	db *sql.DB
}

func NewPostgresRecorder(db *sql.DB) *PostgresRecorder {
	return &PostgresRecorder{db: db}
}

func (p *PostgresRecorder) RecordTransition(ctx context.Context, ev RequestEvent) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO request_events (request_id, from_status, to_status, actor_id) VALUES ($1, $2, $3, $4)`,
		ev.RequestID, string(ev.FromStatus), string(ev.ToStatus), ev.ActorID,
	)
	return err
}

// RecordDispatch writes one row per matched collector in a single statement.
func (p *PostgresRecorder) RecordDispatch(ctx context.Context, entries []DispatchEntry) error {
	if len(entries) == 0 {
		return nil
	}
	values := make([]string, 0, len(entries))
	args := make([]interface{}, 0, len(entries)*3)
	for i, e := range entries {
		values = append(values, fmt.Sprintf("($%d, $%d, $%d)", i*3+1, i*3+2, i*3+3))
		args = append(args, e.RequestID, e.CollectorID, string(e.Outcome))
	}
	query := `INSERT INTO dispatch_log (request_id, collector_id, outcome) VALUES ` + strings.Join(values, ", ")
	_, err := p.db.ExecContext(ctx, query, args...)
	return err
}

func (p *PostgresRecorder) RequestEvents(ctx context.Context, requestID string) ([]RequestEvent, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT request_id, from_status, to_status, actor_id, created_at
		 FROM request_events WHERE request_id = $1 ORDER BY id ASC`,
		requestID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []RequestEvent{}
	for rows.Next() {
		var ev RequestEvent
		var from, to string
		if err := rows.Scan(&ev.RequestID, &from, &to, &ev.ActorID, &ev.CreatedAt); err != nil {
			return nil, err
		}
		ev.FromStatus = models.RequestStatus(from)
		ev.ToStatus = models.RequestStatus(to)
		events = append(events, ev)
	}
	return events, rows.Err()
}

func (p *PostgresRecorder) Dispatches(ctx context.Context, requestID string) ([]DispatchEntry, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT request_id, collector_id, outcome, created_at
		 FROM dispatch_log WHERE request_id = $1 ORDER BY id ASC`,
		requestID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []DispatchEntry{}
	for rows.Next() {
		var e DispatchEntry
		var outcome string
		if err := rows.Scan(&e.RequestID, &e.CollectorID, &outcome, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Outcome = DispatchOutcome(outcome)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
