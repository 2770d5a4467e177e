package cache

import (
	"go.uber.org/zap"

	"github.com/openchat-labs/occache/internal/chat"
)

// Snapshot returns the cached chat-list snapshot, or nil on any kind of miss.
func (c *Chats) Snapshot() *chat.Snapshot {
	db, ok := c.handle()
	if !ok {
		return nil
	}
	snap, err := db.GetSnapshot(c.Principal())
	if err != nil {
		c.logger.Warn("cached chats read failed", zap.Error(err))
		return nil
	}
	return snap
}

// SetSnapshot replaces the chat-list snapshot wholesale, as after a first
// full chat-list fetch.
func (c *Chats) SetSnapshot(snap chat.Snapshot) error {
	db, ok := c.handle()
	if !ok {
		return nil
	}
	return db.SetSnapshot(c.Principal(), snap, nil)
}

// ApplyUpdates merges an updates-since delta into the cached snapshot and
// persists the result along with its event-cache invalidations, all in one
// transaction. A delta with WasUpdated false is dropped without touching
// storage; rewriting an identical snapshot buys nothing.
func (c *Chats) ApplyUpdates(delta chat.UpdatesDelta) error {
	if !delta.WasUpdated {
		return nil
	}
	db, ok := c.handle()
	if !ok {
		return nil
	}

	principal := c.Principal()
	cached, err := db.GetSnapshot(principal)
	if err != nil {
		return err
	}
	var snap chat.Snapshot
	if cached != nil {
		snap = *cached
	}
	snap = chat.MergeSnapshot(snap, delta)

	if err := db.SetSnapshot(principal, snap, delta.AffectedEvents); err != nil {
		return err
	}
	c.publish("cache.chats_merged", map[string]any{
		"added":   len(delta.ChatsAdded),
		"updated": len(delta.ChatsUpdated),
		"removed": len(delta.ChatsRemoved),
	})
	return nil
}

// RemoveChat drops one chat from the cached snapshot.
func (c *Chats) RemoveChat(chatID string) error {
	db, ok := c.handle()
	if !ok {
		return nil
	}
	return db.RemoveChat(c.Principal(), chatID)
}

// GroupDetails returns the cached detail record for a group, or nil on any
// kind of miss.
func (c *Chats) GroupDetails(chatID string) *chat.GroupDetails {
	db, ok := c.handle()
	if !ok {
		return nil
	}
	d, err := db.GetGroupDetails(chatID)
	if err != nil {
		c.logger.Warn("cached group details read failed", zap.String("chat", chatID), zap.Error(err))
		return nil
	}
	return d
}

// SetGroupDetails caches a freshly fetched group detail record.
func (c *Chats) SetGroupDetails(d chat.GroupDetails) error {
	db, ok := c.handle()
	if !ok {
		return nil
	}
	return db.PutGroupDetails(d)
}

// ApplyGroupUpdates merges a group-details delta into the cached record.
// With nothing cached there is nothing to merge onto; the caller must
// fetch the full record instead.
func (c *Chats) ApplyGroupUpdates(u chat.GroupDetailsUpdates) error {
	db, ok := c.handle()
	if !ok {
		return nil
	}
	cached, err := db.GetGroupDetails(u.ChatID)
	if err != nil {
		return err
	}
	if cached == nil {
		return nil
	}
	return db.PutGroupDetails(chat.MergeGroupDetails(*cached, u))
}
