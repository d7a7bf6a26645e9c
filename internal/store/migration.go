package store

import (
	"context"
	"fmt"
	"strings"
)

var postgresStatements = []string{
	`CREATE TABLE IF NOT EXISTS attendees (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		mobile TEXT NOT NULL,
		designation TEXT NOT NULL,
		zone TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_attendees_mobile ON attendees (mobile)`,
	`CREATE TABLE IF NOT EXISTS attendance_days (
		attendee_id TEXT NOT NULL REFERENCES attendees(id) ON DELETE CASCADE,
		day INTEGER NOT NULL,
		attended BOOLEAN NOT NULL DEFAULT FALSE,
		session TEXT NOT NULL DEFAULT '',
		late_minutes INTEGER NOT NULL DEFAULT 0,
		remarks TEXT NOT NULL DEFAULT '',
		manual_entry BOOLEAN NOT NULL DEFAULT FALSE,
		manual_entry_time TEXT NOT NULL DEFAULT '',
		checkin_at TIMESTAMPTZ,
		updated_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (attendee_id, day)
	)`,
	`CREATE TABLE IF NOT EXISTS feedback (
		id TEXT PRIMARY KEY,
		flow TEXT NOT NULL,
		attendee_id TEXT NOT NULL DEFAULT '',
		name TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		mobile TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT '',
		message TEXT NOT NULL,
		rating INTEGER NOT NULL DEFAULT 0,
		sentiment TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		reply TEXT NOT NULL DEFAULT '',
		replied_at TIMESTAMPTZ,
		reviewed_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_feedback_flow_status ON feedback (flow, status)`,
	`CREATE TABLE IF NOT EXISTS admin_users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		token_id TEXT PRIMARY KEY,
		admin_id TEXT NOT NULL REFERENCES admin_users(id) ON DELETE CASCADE,
		expires_at TIMESTAMPTZ NOT NULL,
		revoked BOOLEAN NOT NULL DEFAULT FALSE
	)`,
}

// SQLite keeps the same shape; TIMESTAMP lets go-sqlite3 scan time.Time.
var sqliteStatements = []string{
	`CREATE TABLE IF NOT EXISTS attendees (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		mobile TEXT NOT NULL,
		designation TEXT NOT NULL,
		zone TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_attendees_mobile ON attendees (mobile)`,
	`CREATE TABLE IF NOT EXISTS attendance_days (
		attendee_id TEXT NOT NULL REFERENCES attendees(id) ON DELETE CASCADE,
		day INTEGER NOT NULL,
		attended BOOLEAN NOT NULL DEFAULT FALSE,
		session TEXT NOT NULL DEFAULT '',
		late_minutes INTEGER NOT NULL DEFAULT 0,
		remarks TEXT NOT NULL DEFAULT '',
		manual_entry BOOLEAN NOT NULL DEFAULT FALSE,
		manual_entry_time TEXT NOT NULL DEFAULT '',
		checkin_at TIMESTAMP,
		updated_at TIMESTAMP NOT NULL,
		PRIMARY KEY (attendee_id, day)
	)`,
	`CREATE TABLE IF NOT EXISTS feedback (
		id TEXT PRIMARY KEY,
		flow TEXT NOT NULL,
		attendee_id TEXT NOT NULL DEFAULT '',
		name TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		mobile TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT '',
		message TEXT NOT NULL,
		rating INTEGER NOT NULL DEFAULT 0,
		sentiment TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		reply TEXT NOT NULL DEFAULT '',
		replied_at TIMESTAMP,
		reviewed_at TIMESTAMP,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_feedback_flow_status ON feedback (flow, status)`,
	`CREATE TABLE IF NOT EXISTS admin_users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		token_id TEXT PRIMARY KEY,
		admin_id TEXT NOT NULL REFERENCES admin_users(id) ON DELETE CASCADE,
		expires_at TIMESTAMP NOT NULL,
		revoked BOOLEAN NOT NULL DEFAULT FALSE
	)`,
}

// Migrate creates the schema for the connected driver. Statements are idempotent.
func Migrate(ctx context.Context, db *DB) error {
	stmts := postgresStatements
	if db.Driver == DriverSQLite {
		stmts = sqliteStatements
	}
	for i, s := range stmts {
		stmt := strings.TrimSpace(s)
		if stmt == "" {
			continue
		}
		if _, err := db.Client.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration statement %d: %w", i, err)
		}
	}
	return nil
}
