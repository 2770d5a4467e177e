package store

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/openchat-labs/occache/internal/store/migrations/chatdb"
	"github.com/openchat-labs/occache/internal/store/migrations/userdb"
)

// MigrateResult describes what happened while bringing a database to the
// expected schema version.
type MigrateResult struct {
	Version uint
	Dirty   bool
	Changed bool
	Rebuilt bool // true when a version mismatch forced a destructive rebuild
}

// Migrate brings the chat cache database to CacheVersion. Any on-disk
// version other than 0 or CacheVersion, and any dirty state, drops the
// whole database first: the cache holds nothing that cannot be refetched,
// so destructive recreation is the only migration strategy.
func (db *DB) Migrate() (*MigrateResult, error) {
	return migrateTo(db.DB, chatdb.FS, CacheVersion)
}

// Migrate brings the user cache database to UserCacheVersion, with the same
// destructive-recreate policy as the chat cache.
func (db *UserDB) Migrate() (*MigrateResult, error) {
	return migrateTo(db.DB, userdb.FS, UserCacheVersion)
}

func migrateTo(db *sql.DB, src fs.FS, expected uint) (*MigrateResult, error) {
	source, err := iofs.New(src, ".")
	if err != nil {
		return nil, fmt.Errorf("migration source: %w", err)
	}

	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return nil, fmt.Errorf("migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return nil, fmt.Errorf("migration instance: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return nil, fmt.Errorf("read schema version: %w", err)
	}

	rebuilt := false
	if dirty || (version != 0 && version != expected) {
		if err := m.Drop(); err != nil {
			return nil, fmt.Errorf("drop stale schema (version %d): %w", version, err)
		}
		rebuilt = true
	}

	err = m.Up()
	changed := true
	if errors.Is(err, migrate.ErrNoChange) {
		changed = false
		err = nil
	}
	if err != nil {
		return nil, fmt.Errorf("migration up: %w", err)
	}

	version, dirty, _ = m.Version()
	return &MigrateResult{
		Version: version,
		Dirty:   dirty,
		Changed: changed,
		Rebuilt: rebuilt,
	}, nil
}
