// Package sync drives the cache's partial-result contract end to end: read
// what the cache has, fetch exactly what it is missing from the remote,
// write the fetched events back, and hand the caller a fully populated
// result.
package sync

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/openchat-labs/occache/internal/bus"
	"github.com/openchat-labs/occache/internal/cache"
	"github.com/openchat-labs/occache/internal/chat"
)

// Fetcher is the remote side of the sync loop: whatever client the agent
// uses to talk to the chat backend. The cache layer never fetches; it only
// reports what it is missing.
type Fetcher interface {
	// EventsByIndex fetches an explicit set of events.
	EventsByIndex(ctx context.Context, chatID string, threadRoot *uint32, indices []uint32) (chat.EventsResult, error)
	// EventsWindow fetches a full window of events around a message index.
	EventsWindow(ctx context.Context, chatID string, messageIndex, minIndex, maxIndex uint32) (chat.EventsResult, error)
	// InitialState fetches the complete chat list.
	InitialState(ctx context.Context) (chat.Snapshot, error)
	// Updates fetches the chat-list delta since the given snapshot timestamp.
	Updates(ctx context.Context, since int64) (chat.UpdatesDelta, error)
	// GroupDetails fetches a group's full detail record.
	GroupDetails(ctx context.Context, chatID string) (chat.GroupDetails, error)
	// GroupDetailsUpdates fetches the detail delta since an event index.
	GroupDetailsUpdates(ctx context.Context, chatID string, sinceEventIndex uint32) (chat.GroupDetailsUpdates, error)
}

// Engine composes the local cache with a Fetcher. All reads go through the
// cache first; only misses hit the network, and everything fetched is
// written back so the next read over the same range is a full hit.
type Engine struct {
	cache   *cache.Chats
	fetcher Fetcher
	bus     *bus.Bus
	logger  *zap.Logger
}

// NewEngine creates a sync engine over an initialized cache.
func NewEngine(c *cache.Chats, f Fetcher, b *bus.Bus, logger *zap.Logger) *Engine {
	return &Engine{cache: c, fetcher: f, bus: b, logger: logger}
}

// EventsWindow returns the events around a message index. On a total miss
// (the anchor message is not cached) the whole window comes from the
// network; on a partial hit only the missing indices do.
func (e *Engine) EventsWindow(ctx context.Context, chatID string, messageIndex, minIndex, maxIndex uint32) (chat.EventsResult, error) {
	opID := uuid.New().String()

	cached, missing, totalMiss := e.cache.EventsWindow(chatID, messageIndex, minIndex, maxIndex)
	if totalMiss {
		e.logger.Debug("window total miss",
			zap.String("op", opID),
			zap.String("chat", chatID),
			zap.Uint32("message_index", messageIndex))
		fetched, err := e.fetcher.EventsWindow(ctx, chatID, messageIndex, minIndex, maxIndex)
		if err != nil {
			return chat.EventsResult{}, fmt.Errorf("fetch events window: %w", err)
		}
		e.writeBack(chatID, nil, fetched, opID)
		return fetched, nil
	}
	return e.backfill(ctx, chatID, nil, cached, missing, opID)
}

// Events returns a page of events from startIndex in the given direction,
// backfilling cache misses from the network.
func (e *Engine) Events(ctx context.Context, chatID string, threadRoot *uint32, startIndex uint32, ascending bool, minIndex, maxIndex uint32) (chat.EventsResult, error) {
	opID := uuid.New().String()
	cached, missing := e.cache.Events(chatID, threadRoot, startIndex, ascending, minIndex, maxIndex)
	return e.backfill(ctx, chatID, threadRoot, cached, missing, opID)
}

// EventsByIndex returns an explicit set of events, backfilling cache
// misses from the network.
func (e *Engine) EventsByIndex(ctx context.Context, chatID string, threadRoot *uint32, indices []uint32) (chat.EventsResult, error) {
	opID := uuid.New().String()
	cached, missing := e.cache.EventsByIndex(chatID, threadRoot, indices)
	return e.backfill(ctx, chatID, threadRoot, cached, missing, opID)
}

func (e *Engine) backfill(ctx context.Context, chatID string, threadRoot *uint32, cached chat.EventsResult, missing map[uint32]struct{}, opID string) (chat.EventsResult, error) {
	if len(missing) == 0 {
		return cached, nil
	}

	fetched, err := e.fetcher.EventsByIndex(ctx, chatID, threadRoot, sortedIndices(missing))
	if err != nil {
		return chat.EventsResult{}, fmt.Errorf("fetch missing events: %w", err)
	}
	e.writeBack(chatID, threadRoot, fetched, opID)

	merged := chat.MergeEventsResults(cached, fetched)
	e.publish("sync.backfill_done", map[string]any{
		"op":      opID,
		"chat":    chatID,
		"cached":  len(cached.Events),
		"fetched": len(fetched.Events),
	})
	return merged, nil
}

// writeBack caches fetched events. A failed cache write is logged and
// swallowed: the network fetch already succeeded and the caller's result
// must not depend on cache health.
func (e *Engine) writeBack(chatID string, threadRoot *uint32, fetched chat.EventsResult, opID string) {
	if err := e.cache.SetEvents(chatID, threadRoot, fetched); err != nil {
		e.logger.Error("failed to cache fetched events",
			zap.String("op", opID),
			zap.String("chat", chatID),
			zap.Error(err))
	}
}

// ChatList returns the up-to-date chat list. With nothing cached it does a
// full initial-state fetch; otherwise it runs the updates-since loop and
// merges the delta into the cached snapshot.
func (e *Engine) ChatList(ctx context.Context) (chat.Snapshot, error) {
	snap := e.cache.Snapshot()
	if snap == nil {
		initial, err := e.fetcher.InitialState(ctx)
		if err != nil {
			return chat.Snapshot{}, fmt.Errorf("fetch initial state: %w", err)
		}
		if err := e.cache.SetSnapshot(initial); err != nil {
			e.logger.Error("failed to cache initial state", zap.Error(err))
		}
		return initial, nil
	}

	delta, err := e.fetcher.Updates(ctx, snap.Timestamp)
	if err != nil {
		return chat.Snapshot{}, fmt.Errorf("fetch updates: %w", err)
	}
	if !delta.WasUpdated {
		return *snap, nil
	}
	if err := e.cache.ApplyUpdates(delta); err != nil {
		e.logger.Error("failed to cache chat updates", zap.Error(err))
	}
	return chat.MergeSnapshot(*snap, delta), nil
}

// GroupDetails returns a group's detail record, refreshed to at least
// latestEventIndex. A current cached record is served as is; a stale one
// is patched with a delta fetch; a missing one is fetched whole.
func (e *Engine) GroupDetails(ctx context.Context, chatID string, latestEventIndex uint32) (chat.GroupDetails, error) {
	cached := e.cache.GroupDetails(chatID)
	if cached == nil {
		full, err := e.fetcher.GroupDetails(ctx, chatID)
		if err != nil {
			return chat.GroupDetails{}, fmt.Errorf("fetch group details: %w", err)
		}
		if err := e.cache.SetGroupDetails(full); err != nil {
			e.logger.Error("failed to cache group details",
				zap.String("chat", chatID), zap.Error(err))
		}
		return full, nil
	}
	if cached.LatestEventIndex >= latestEventIndex {
		return *cached, nil
	}

	updates, err := e.fetcher.GroupDetailsUpdates(ctx, chatID, cached.LatestEventIndex)
	if err != nil {
		return chat.GroupDetails{}, fmt.Errorf("fetch group details updates: %w", err)
	}
	merged := chat.MergeGroupDetails(*cached, updates)
	if err := e.cache.SetGroupDetails(merged); err != nil {
		e.logger.Error("failed to cache group details",
			zap.String("chat", chatID), zap.Error(err))
	}
	return merged, nil
}

func (e *Engine) publish(kind string, payload any) {
	if e.bus == nil {
		return
	}
	e.bus.Publish(bus.Event{Kind: kind, Timestamp: time.Now(), Payload: payload})
}

func sortedIndices(set map[uint32]struct{}) []uint32 {
	out := make([]uint32, 0, len(set))
	for i := range set {
		out = append(out, i)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
