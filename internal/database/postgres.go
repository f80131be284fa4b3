package database

import (
	"database/sql"
	"log"
	"time"

	_ "github.com/lib/pq"
)

var PostgresDB *sql.DB

// ConnectPostgres connects to the PostgreSQL audit database
func ConnectPostgres(postgresURI string) error {
	var err error

	PostgresDB, err = sql.Open("postgres", postgresURI)
	if err != nil {
		return err
	}

	PostgresDB.SetMaxOpenConns(25)
	PostgresDB.SetMaxIdleConns(5)
	PostgresDB.SetConnMaxLifetime(5 * time.Minute)

	if err = PostgresDB.Ping(); err != nil {
		return err
	}

	log.Println("✅ Connected to PostgreSQL")

	if err = InitPostgresTables(); err != nil {
		return err
	}

	return nil
}

// InitPostgresTables creates the audit tables if they don't exist
func InitPostgresTables() error {
	queries := []string{
		// Status transitions of pickup requests, one row per committed transition
		`CREATE TABLE IF NOT EXISTS request_events (
			id BIGSERIAL PRIMARY KEY,
			request_id VARCHAR(24) NOT NULL,
			from_status VARCHAR(32) NOT NULL,
			to_status VARCHAR(32) NOT NULL,
			actor_id VARCHAR(24) NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT NOW()
		)`,

		// Dispatch outcome per matched collector (queued or offline)
		`CREATE TABLE IF NOT EXISTS dispatch_log (
			id BIGSERIAL PRIMARY KEY,
			request_id VARCHAR(24) NOT NULL,
			collector_id VARCHAR(24) NOT NULL,
			outcome VARCHAR(16) NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT NOW()
		)`,

		`CREATE INDEX IF NOT EXISTS idx_request_events_request_id ON request_events(request_id)`,
		`CREATE INDEX IF NOT EXISTS idx_request_events_created_at ON request_events(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_dispatch_log_request_id ON dispatch_log(request_id)`,
		`CREATE INDEX IF NOT EXISTS idx_dispatch_log_collector_id ON dispatch_log(collector_id)`,
	}

	for _, query := range queries {
		if _, err := PostgresDB.Exec(query); err != nil {
			return err
		}
	}

	log.Println("✅ PostgreSQL tables initialized")
	return nil
}

// DisconnectPostgres closes the PostgreSQL connection
func DisconnectPostgres() error {
	if PostgresDB != nil {
		return PostgresDB.Close()
	}
	return nil
}
