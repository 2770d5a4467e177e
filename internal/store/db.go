// Package store persists the cache state in SQLite: per-principal chat
// databases (event history, chat-list snapshot, group details, flags) and
// one global user database. The cache is always rebuildable from network
// truth, so schema changes never migrate data: a version mismatch drops
// everything and recreates the schema.
package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Schema versions. Bumping one forces destructive recreation of the
// corresponding database on next open.
const (
	CacheVersion     uint = 2
	UserCacheVersion uint = 1
)

// dsnOptions is shared by both databases. synchronous=NORMAL is a
// deliberate durability trade-off: losing the last few cache writes on a
// crash is acceptable, every row can be refetched.
const dsnOptions = "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_foreign_keys=on"

// DB wraps a SQLite connection to one principal's chat cache database.
type DB struct {
	*sql.DB
}

// Open creates a new connection to a chat cache database.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path+dsnOptions)
	if err != nil {
		return nil, fmt.Errorf("open chat cache db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping chat cache db: %w", err)
	}
	return &DB{db}, nil
}

// UserDB wraps a SQLite connection to the global user cache database.
type UserDB struct {
	*sql.DB
}

// OpenUsers creates a new connection to the user cache database.
func OpenUsers(path string) (*UserDB, error) {
	db, err := sql.Open("sqlite3", path+dsnOptions)
	if err != nil {
		return nil, fmt.Errorf("open user cache db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping user cache db: %w", err)
	}
	return &UserDB{db}, nil
}
