package cache

import (
	"sync"

	"go.uber.org/zap"

	"github.com/openchat-labs/occache/internal/paths"
	"github.com/openchat-labs/occache/internal/store"
)

// Users is the global user cache. Unlike the chat cache it is not scoped to
// a principal: one database serves every account on the device. The same
// degrade-to-miss rules apply.
type Users struct {
	mu          sync.Mutex
	dataDir     string
	disabled    bool
	db          *store.UserDB
	unavailable bool

	logger *zap.Logger
}

// NewUsers creates the user cache manager.
func NewUsers(dataDir string, disabled bool, logger *zap.Logger) *Users {
	return &Users{
		dataDir:  dataDir,
		disabled: disabled,
		logger:   logger,
	}
}

// Close releases the open database handle, if any.
func (u *Users) Close() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.db == nil {
		return nil
	}
	err := u.db.Close()
	u.db = nil
	return err
}

// GetUsers returns the cached summaries among the requested ids; missing
// ids are silently omitted.
func (u *Users) GetUsers(ids []string) []store.UserSummary {
	db, ok := u.handle()
	if !ok {
		return nil
	}
	users, err := db.GetUsers(ids)
	if err != nil {
		u.logger.Warn("cached users read failed", zap.Error(err))
		return nil
	}
	return users
}

// AllUsers returns every cached user summary for cold-start population.
func (u *Users) AllUsers() []store.UserSummary {
	db, ok := u.handle()
	if !ok {
		return nil
	}
	users, err := db.AllUsers()
	if err != nil {
		u.logger.Warn("cached users scan failed", zap.Error(err))
		return nil
	}
	return users
}

// SetUsers upserts observed user summaries; no-op on empty input.
func (u *Users) SetUsers(users []store.UserSummary) error {
	db, ok := u.handle()
	if !ok {
		return nil
	}
	return db.PutUsers(users)
}

// SetUsername backfills a username onto an already-cached user.
func (u *Users) SetUsername(userID, username string) error {
	db, ok := u.handle()
	if !ok {
		return nil
	}
	return db.SetUsername(userID, username)
}

func (u *Users) handle() (*store.UserDB, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.disabled || u.unavailable {
		return nil, false
	}
	if u.db != nil {
		return u.db, true
	}

	path := paths.UserDBPath(u.dataDir)
	db, err := store.OpenUsers(path)
	if err != nil {
		u.logger.Warn("user cache unavailable", zap.String("path", path), zap.Error(err))
		u.unavailable = true
		return nil, false
	}
	if _, err := db.Migrate(); err != nil {
		u.logger.Warn("user cache migration failed", zap.String("path", path), zap.Error(err))
		_ = db.Close()
		u.unavailable = true
		return nil, false
	}
	u.db = db
	return u.db, true
}
