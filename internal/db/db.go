// Package db persists taxi-in runs, daily summaries, episodes and their
// trajectories in SQLite. The schema is owned by the embedded migrations.
package db

import (
	"database/sql"
	"strings"

	_ "modernc.org/sqlite"
)

// Applied by the driver on every new connection.
const connPragmas = "_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"

type DB struct {
	*sql.DB
}

// OpenDB opens the database at path without touching the schema. Use it for
// the migrate subcommand; everything else should go through NewDB.
func OpenDB(path string) (*DB, error) {
	dsn := path
	if !strings.Contains(path, "?") {
		dsn += "?" + connPragmas
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	return &DB{db}, nil
}

// NewDB opens the database at path and migrates it to the latest schema.
func NewDB(path string) (*DB, error) {
	db, err := OpenDB(path)
	if err != nil {
		return nil, err
	}
	if err := db.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
