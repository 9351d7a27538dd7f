package database

import (
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Connect opens the local SQLite database using the provided DSN.
// A single connection keeps every reader behind the current write
// transaction, so partial writes are never observed.
func Connect(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect local database: %w", err)
	}
	db.SetMaxOpenConns(1)
	// Keep the connection alive; an in-memory database dies with it.
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	return db, nil
}

// ConnectRemote opens the authoritative PostgreSQL database.
func ConnectRemote(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect remote database: %w", err)
	}
	db.SetMaxOpenConns(10)
	return db, nil
}
