package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// Open connects to PostgreSQL and creates missing tables.
func Open(ctx context.Context, dbURL string) (*sql.DB, error) {
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
	}

	conn, err := sql.Open("postgres", dbURL)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	// Lambda containers serve one request at a time.
	conn.SetMaxOpenConns(2)
	conn.SetMaxIdleConns(2)

	if err = conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("error connecting to the database: %w", err)
	}

	if err := Migrate(ctx, conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("error creating tables: %w", err)
	}

	return conn, nil
}

// Migrate creates tables and indexes if they don't exist.
func Migrate(ctx context.Context, conn *sql.DB) error {
	for _, query := range schema {
		if _, err := conn.ExecContext(ctx, query); err != nil {
			return err
		}
	}
	return nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		email VARCHAR(255) UNIQUE NOT NULL,
		password VARCHAR(255) NOT NULL,
		subscription_tier VARCHAR(20) NOT NULL DEFAULT 'free',
		timezone VARCHAR(64) NOT NULL DEFAULT 'UTC',
		tracked_activities TEXT[] NOT NULL DEFAULT '{}',
		created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS mood_entries (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		mood VARCHAR(20) NOT NULL,
		note TEXT NOT NULL DEFAULT '',
		encrypted BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS mood_entries_user_created ON mood_entries (user_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS journal_entries (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		content TEXT NOT NULL,
		mood VARCHAR(20) NOT NULL DEFAULT '',
		tags TEXT[] NOT NULL DEFAULT '{}',
		insight TEXT NOT NULL DEFAULT '',
		encrypted BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL,
		updated_at TIMESTAMP WITH TIME ZONE NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS journal_entries_user_created ON journal_entries (user_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS activities (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		activity_type VARCHAR(64) NOT NULL,
		completed BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS activities_user_created ON activities (user_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS plants (
		user_id UUID PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
		health INT NOT NULL DEFAULT 0 CHECK (health BETWEEN 0 AND 100),
		growth_stage INT NOT NULL DEFAULT 1 CHECK (growth_stage BETWEEN 1 AND 5),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS notifications (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		kind VARCHAR(32) NOT NULL,
		message TEXT NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL
	)`,
}
