// Package cache is the client-facing cache layer: it owns the per-principal
// chat cache database and the global user cache, serves best-effort partial
// reads with precise missing-index accounting, and degrades to a cache miss
// whenever the underlying storage cannot be trusted.
package cache

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/openchat-labs/occache/internal/bus"
	"github.com/openchat-labs/occache/internal/paths"
	"github.com/openchat-labs/occache/internal/store"
	"go.uber.org/zap"
)

// MaxEvents is the page size of an events query; window queries load up to
// MaxEvents/2 events on each side of their anchor.
const MaxEvents = 150

// Chats is the per-principal chat event cache. The open database handle is
// memoized: the first operation after Init opens (and migrates) the
// database, every later operation reuses the handle. Open or upgrade
// failure is not fatal; the handle is marked unavailable and every
// operation becomes a cache miss or a silent no-op.
type Chats struct {
	mu           sync.Mutex
	dataDir      string
	disabled     bool // config or build-time kill switch
	principal    string
	db           *store.DB
	unavailable  bool
	softDisabled bool

	logger *zap.Logger
	bus    *bus.Bus
}

// NewChats creates the chat cache manager. disabled reflects the config and
// build-time flags; when set, every read is a total miss and every write a
// no-op. Call Init before use.
func NewChats(dataDir string, disabled bool, logger *zap.Logger, b *bus.Bus) *Chats {
	return &Chats{
		dataDir:  dataDir,
		disabled: disabled,
		logger:   logger,
		bus:      b,
	}
}

// Init binds the cache to a principal. Switching principals closes the
// previous database; each principal has an isolated cache namespace and
// nothing may leak across accounts.
func (c *Chats) Init(principal string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.principal == principal {
		return nil
	}
	if err := c.closeLocked(); err != nil {
		return err
	}
	c.principal = principal
	c.unavailable = false
	c.softDisabled = false
	return nil
}

// Principal returns the principal the cache is currently bound to.
func (c *Chats) Principal() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.principal
}

// Close releases the open database handle, if any.
func (c *Chats) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeLocked()
}

func (c *Chats) closeLocked() error {
	if c.db == nil {
		return nil
	}
	err := c.db.Close()
	c.db = nil
	return err
}

// Purge closes and deletes the bound principal's database files. The next
// operation starts from an empty cache.
func (c *Chats) Purge() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.principal == "" {
		return fmt.Errorf("no principal bound")
	}
	if err := c.closeLocked(); err != nil {
		return err
	}
	base := paths.ChatDBPath(c.dataDir, c.principal)
	for _, p := range []string{base, base + "-wal", base + "-shm"} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove %s: %w", p, err)
		}
	}
	c.unavailable = false
	c.softDisabled = false
	return nil
}

// SetSoftDisabled flips the durable circuit breaker. Setting it true makes
// this handle bypass all cache reads and writes until reset.
func (c *Chats) SetSoftDisabled(value bool) error {
	c.mu.Lock()
	if c.disabled {
		c.mu.Unlock()
		return nil
	}
	db, ok := c.openLocked()
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("cache unavailable")
	}
	c.softDisabled = value
	c.mu.Unlock()

	if err := db.SetFlag(store.FlagSoftDisabled, value); err != nil {
		return err
	}
	if value {
		c.publish("cache.soft_disabled", c.principal)
	}
	return nil
}

// SoftDisabled reads the circuit breaker. Storage failure reads as true:
// a cache that cannot even report its own health should not be trusted.
func (c *Chats) SoftDisabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disabled {
		return false
	}
	if _, ok := c.openLocked(); !ok {
		return true
	}
	return c.softDisabled
}

// handle returns the open database, opening it lazily on first use. The
// second return is false when caching is disabled in any way or the
// database could not be opened.
func (c *Chats) handle() (*store.DB, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disabled || c.softDisabled {
		return nil, false
	}
	db, ok := c.openLocked()
	if !ok || c.softDisabled {
		return nil, false
	}
	return db, true
}

// openLocked opens and migrates the bound principal's database on first
// use, memoizing the handle. It ignores the soft-disabled gate (the flag
// itself lives in this database) but honors open failures: once an open or
// upgrade fails, the handle stays unavailable for its lifetime.
func (c *Chats) openLocked() (*store.DB, bool) {
	if c.unavailable || c.principal == "" {
		return nil, false
	}
	if c.db != nil {
		return c.db, true
	}

	path := paths.ChatDBPath(c.dataDir, c.principal)
	db, err := store.Open(path)
	if err != nil {
		c.logger.Warn("chat cache unavailable", zap.String("path", path), zap.Error(err))
		c.unavailable = true
		return nil, false
	}
	result, err := db.Migrate()
	if err != nil {
		c.logger.Warn("chat cache migration failed", zap.String("path", path), zap.Error(err))
		_ = db.Close()
		c.unavailable = true
		return nil, false
	}
	if result.Rebuilt {
		c.logger.Info("chat cache rebuilt after version change",
			zap.Uint("version", result.Version), zap.String("principal", c.principal))
	}

	if soft, err := db.Flag(store.FlagSoftDisabled); err == nil && soft {
		c.logger.Info("chat cache is soft-disabled", zap.String("principal", c.principal))
		c.softDisabled = true
	}

	c.db = db
	return c.db, true
}

func (c *Chats) publish(kind string, payload any) {
	if c.bus == nil {
		return
	}
	c.bus.Publish(bus.Event{Kind: kind, Timestamp: time.Now(), Payload: payload})
}
