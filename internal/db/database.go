package db

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Database wraps the sqlite connection shared by all repositories
type Database struct {
	db *sql.DB
}

// NewDatabase opens the sqlite database at the given DSN and ensures the
// schema exists
func NewDatabase(dsn string) (*Database, error) {
	if dsn == "" {
		return nil, errors.New("database DSN is required")
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}

	// Verify we can actually connect to the database
	if err := db.Ping(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("ping failed: %w, close failed: %v", err, closeErr)
		}
		return nil, err
	}

	// Try to create tables - if this fails, the database is not usable
	if err := createTables(db); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("create tables failed: %w, close failed: %v", err, closeErr)
		}
		return nil, err
	}

	return &Database{db: db}, nil
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			name TEXT,
			access_token TEXT,
			refresh_token TEXT,
			token_expires_at INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS campaigns (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			name TEXT NOT NULL,
			follow_up_intervals TEXT NOT NULL,
			sender_name TEXT,
			sender_company TEXT,
			created_at INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS leads (
			id TEXT PRIMARY KEY,
			campaign_id TEXT,
			user_id TEXT NOT NULL,
			recipient_email TEXT NOT NULL,
			recipient_name TEXT NOT NULL,
			company_name TEXT NOT NULL,
			industry TEXT,
			key_pain_point TEXT,
			subject_line TEXT NOT NULL,
			sender_name TEXT NOT NULL,
			sender_company TEXT NOT NULL,
			sent_at INTEGER,
			open_count INTEGER NOT NULL DEFAULT 0,
			first_opened_at INTEGER,
			last_opened_at INTEGER,
			stopped INTEGER NOT NULL DEFAULT 0
		);

		CREATE TABLE IF NOT EXISTS follow_ups (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			lead_id TEXT NOT NULL,
			day INTEGER NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			subject TEXT,
			sent_at INTEGER,
			FOREIGN KEY (lead_id) REFERENCES leads(id)
		);

		CREATE INDEX IF NOT EXISTS idx_leads_campaign ON leads(campaign_id);
		CREATE INDEX IF NOT EXISTS idx_follow_ups_lead ON follow_ups(lead_id);
	`)
	return err
}

// GetDB exposes the underlying connection for repository construction
func (d *Database) GetDB() *sql.DB {
	return d.db
}

// Close closes the database connection
func (d *Database) Close() error {
	if d == nil {
		return errors.New("database is nil")
	}

	if d.db == nil {
		return errors.New("database already closed")
	}

	err := d.db.Close()
	d.db = nil
	return err
}
