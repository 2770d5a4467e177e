package cache

import (
	"go.uber.org/zap"

	"github.com/openchat-labs/occache/internal/chat"
	"github.com/openchat-labs/occache/internal/store"
)

// EventsWindow serves a window of events centered on a message index,
// clamped to [minIndex, maxIndex]. It returns whatever is cached plus the
// set of indices that must be fetched remotely.
//
// When the anchor message cannot be resolved to an event index there is no
// midpoint to build a window around; the query is a total miss (third
// return true, empty result, empty missing set) and the caller should do a
// full network window fetch instead of a partial backfill.
func (c *Chats) EventsWindow(chatID string, messageIndex, minIndex, maxIndex uint32) (chat.EventsResult, map[uint32]struct{}, bool) {
	db, ok := c.handle()
	if !ok {
		return chat.EventsResult{}, nil, true
	}

	mid, err := db.EventIndexForMessage(chatID, nil, messageIndex)
	if err != nil {
		c.logger.Warn("window anchor lookup failed", zap.String("chat", chatID), zap.Error(err))
		return chat.EventsResult{}, nil, true
	}
	if mid == nil {
		c.logger.Debug("window anchor not cached",
			zap.String("chat", chatID), zap.Uint32("message_index", messageIndex))
		return chat.EventsResult{}, nil, true
	}

	half := uint32(MaxEvents / 2)
	lower := minIndex
	if *mid > half && *mid-half > minIndex {
		lower = *mid - half
	}
	upper := maxIndex
	if *mid+half < maxIndex {
		upper = *mid + half
	}

	result, missing := c.aggregate(db, chatID, nil, lower, upper)
	c.logHitRate(chatID, lower, upper, len(missing))
	return result, missing, false
}

// Events serves up to MaxEvents events starting at startIndex, walking up
// or down the index space, clamped to [minIndex, maxIndex]. Unlike a
// window query it can never totally miss: the start index is given, so a
// sparse cache just yields a larger missing set.
func (c *Chats) Events(chatID string, threadRoot *uint32, startIndex uint32, ascending bool, minIndex, maxIndex uint32) (chat.EventsResult, map[uint32]struct{}) {
	db, ok := c.handle()
	if !ok {
		return chat.EventsResult{}, fullMissSet(startIndex, ascending, minIndex, maxIndex)
	}

	lower, upper := directionalBounds(startIndex, ascending, minIndex, maxIndex)
	result, missing := c.aggregate(db, chatID, threadRoot, lower, upper)
	c.logHitRate(chatID, lower, upper, len(missing))
	return result, missing
}

// EventsByIndex serves an explicit, possibly sparse list of indices. Any
// index with no cached row ends up in the missing set.
func (c *Chats) EventsByIndex(chatID string, threadRoot *uint32, indices []uint32) (chat.EventsResult, map[uint32]struct{}) {
	db, ok := c.handle()
	if !ok {
		return chat.EventsResult{}, indexSet(indices)
	}

	events, err := db.EventsByIndex(chatID, threadRoot, indices)
	if err != nil {
		c.logger.Warn("cached events lookup failed", zap.String("chat", chatID), zap.Error(err))
		return chat.EventsResult{}, indexSet(indices)
	}

	missing := indexSet(indices)
	for _, ev := range events {
		delete(missing, ev.Index)
	}
	return chat.EventsResult{Events: events}, missing
}

// SetEvents writes a batch of events (including any affected-event
// replacements) into the appropriate store. A disabled cache swallows the
// write; a storage error propagates so the caller can observe persistent
// write failures, though a failed cache write is never fatal to the sync
// that produced the data.
func (c *Chats) SetEvents(chatID string, threadRoot *uint32, result chat.EventsResult) error {
	db, ok := c.handle()
	if !ok {
		return nil
	}
	events := result.Events
	if len(result.AffectedEvents) > 0 {
		events = append(append([]chat.EventWrapper{}, events...), result.AffectedEvents...)
	}
	if err := db.PutEvents(chatID, threadRoot, events); err != nil {
		return err
	}
	c.publish("cache.events_stored", map[string]any{"chat": chatID, "count": len(events)})
	return nil
}

// SetMessageIfAbsent caches a freshly observed message unless a row for it
// already exists; a message seen twice (optimistic send then notification)
// keeps its first cached form.
func (c *Chats) SetMessageIfAbsent(chatID string, threadRoot *uint32, ev chat.EventWrapper) error {
	db, ok := c.handle()
	if !ok {
		return nil
	}
	_, err := db.PutMessageIfAbsent(chatID, threadRoot, ev)
	return err
}

// aggregate is the wanted-set reconciliation shared by window and
// directional reads: seed every index in [lower, upper] as wanted, remove
// each found row, and report the remainder as missing. Events come back
// ascending by index.
func (c *Chats) aggregate(db *store.DB, chatID string, threadRoot *uint32, lower, upper uint32) (chat.EventsResult, map[uint32]struct{}) {
	wanted := rangeSet(lower, upper)

	events, err := db.EventsRange(chatID, threadRoot, lower, upper)
	if err != nil {
		c.logger.Warn("cached events range failed", zap.String("chat", chatID), zap.Error(err))
		return chat.EventsResult{}, wanted
	}
	for _, ev := range events {
		delete(wanted, ev.Index)
	}
	return chat.EventsResult{Events: events}, wanted
}

func (c *Chats) logHitRate(chatID string, lower, upper uint32, missing int) {
	wanted := int(upper-lower) + 1
	c.logger.Debug("cache read",
		zap.String("chat", chatID),
		zap.Uint32("from", lower),
		zap.Uint32("to", upper),
		zap.Int("hit", wanted-missing),
		zap.Int("miss", missing))
}

func directionalBounds(startIndex uint32, ascending bool, minIndex, maxIndex uint32) (uint32, uint32) {
	var lower, upper uint32
	if ascending {
		lower = startIndex
		upper = startIndex + MaxEvents
	} else {
		upper = startIndex
		if startIndex > MaxEvents {
			lower = startIndex - MaxEvents
		}
	}
	if lower < minIndex {
		lower = minIndex
	}
	if upper > maxIndex {
		upper = maxIndex
	}
	return lower, upper
}

func fullMissSet(startIndex uint32, ascending bool, minIndex, maxIndex uint32) map[uint32]struct{} {
	lower, upper := directionalBounds(startIndex, ascending, minIndex, maxIndex)
	return rangeSet(lower, upper)
}

func rangeSet(lower, upper uint32) map[uint32]struct{} {
	if lower > upper {
		return map[uint32]struct{}{}
	}
	set := make(map[uint32]struct{}, upper-lower+1)
	for i := lower; i <= upper; i++ {
		set[i] = struct{}{}
	}
	return set
}

func indexSet(indices []uint32) map[uint32]struct{} {
	set := make(map[uint32]struct{}, len(indices))
	for _, i := range indices {
		set[i] = struct{}{}
	}
	return set
}
