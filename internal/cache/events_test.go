package cache

import (
	"testing"

	"go.uber.org/zap"

	"github.com/openchat-labs/occache/internal/chat"
)

func testChats(t *testing.T) *Chats {
	t.Helper()
	c := NewChats(t.TempDir(), false, zap.NewNop(), nil)
	if err := c.Init("test-principal"); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func messageEvent(index uint32) chat.EventWrapper {
	return chat.EventWrapper{
		Index:     index,
		Timestamp: int64(index) * 1000,
		Event: chat.Event{
			Kind: "message",
			Message: &chat.Message{
				MessageID:    uint64(index),
				MessageIndex: index,
				Sender:       "sender-1",
				Content:      chat.Content{Kind: "text", Text: "hi"},
			},
		},
	}
}

// seedRange caches message events for every index in [from, to] except
// those in skip.
func seedRange(t *testing.T, c *Chats, chatID string, from, to uint32, skip map[uint32]struct{}) {
	t.Helper()
	var events []chat.EventWrapper
	for i := from; i <= to; i++ {
		if _, gap := skip[i]; gap {
			continue
		}
		events = append(events, messageEvent(i))
	}
	if err := c.SetEvents(chatID, nil, chat.EventsResult{Events: events}); err != nil {
		t.Fatal(err)
	}
}

func TestEventsWindowTotalMissOnEmptyCache(t *testing.T) {
	c := testChats(t)

	result, missing, totalMiss := c.EventsWindow("chat-a", 1000, 0, 2000)
	if !totalMiss {
		t.Fatal("empty cache should be a total window miss")
	}
	if len(result.Events) != 0 || len(missing) != 0 {
		t.Errorf("total miss should carry no partial state, got %d events, %d missing",
			len(result.Events), len(missing))
	}
}

func TestEventsWindowPartialHit(t *testing.T) {
	c := testChats(t)

	// 300 events around the anchor, with a hole at [960, 969].
	gap := make(map[uint32]struct{})
	for i := uint32(960); i <= 969; i++ {
		gap[i] = struct{}{}
	}
	seedRange(t, c, "chat-a", 850, 1150, gap)

	result, missing, totalMiss := c.EventsWindow("chat-a", 1000, 0, 2000)
	if totalMiss {
		t.Fatal("anchor is cached, should not be a total miss")
	}

	// Anchor 1000, half-window 75: [925, 1075].
	wantEvents := (1075 - 925 + 1) - len(gap)
	if len(result.Events) != wantEvents {
		t.Errorf("got %d events, want %d", len(result.Events), wantEvents)
	}
	if len(missing) != len(gap) {
		t.Fatalf("got %d missing, want %d", len(missing), len(gap))
	}
	for i := range gap {
		if _, ok := missing[i]; !ok {
			t.Errorf("index %d should be reported missing", i)
		}
	}

	// Ascending, and nothing outside the window.
	for i, ev := range result.Events {
		if i > 0 && result.Events[i-1].Index >= ev.Index {
			t.Fatalf("events not strictly ascending at %d", i)
		}
		if ev.Index < 925 || ev.Index > 1075 {
			t.Errorf("event %d outside window [925, 1075]", ev.Index)
		}
	}
}

func TestEventsWindowRoundTripAfterBackfill(t *testing.T) {
	c := testChats(t)

	gap := map[uint32]struct{}{1010: {}, 1011: {}}
	seedRange(t, c, "chat-a", 925, 1075, gap)

	_, missing, _ := c.EventsWindow("chat-a", 1000, 0, 2000)
	if len(missing) != 2 {
		t.Fatalf("got %d missing, want 2", len(missing))
	}

	// Cache the missing events; the same query must now be a full hit.
	seedRange(t, c, "chat-a", 1010, 1011, nil)
	result, missing, totalMiss := c.EventsWindow("chat-a", 1000, 0, 2000)
	if totalMiss || len(missing) != 0 {
		t.Fatalf("expected full hit, got totalMiss=%v missing=%d", totalMiss, len(missing))
	}
	if len(result.Events) != 151 {
		t.Errorf("got %d events, want 151", len(result.Events))
	}
}

func TestEventsWindowClampsToBounds(t *testing.T) {
	c := testChats(t)
	seedRange(t, c, "chat-a", 0, 30, nil)

	// Anchor 10 with half-window 75 would underflow; the window clamps to
	// the chat's [0, 20] range.
	result, missing, totalMiss := c.EventsWindow("chat-a", 10, 0, 20)
	if totalMiss {
		t.Fatal("unexpected total miss")
	}
	if len(missing) != 0 {
		t.Errorf("got %d missing, want 0", len(missing))
	}
	if len(result.Events) != 21 {
		t.Errorf("got %d events, want 21", len(result.Events))
	}
	if last := result.Events[len(result.Events)-1].Index; last != 20 {
		t.Errorf("last index = %d, want 20", last)
	}
}

func TestEventsAscendingBounds(t *testing.T) {
	c := testChats(t)
	seedRange(t, c, "chat-a", 0, 300, nil)

	result, missing := c.Events("chat-a", nil, 100, true, 0, 500)
	if len(missing) != 0 {
		t.Fatalf("got %d missing, want 0", len(missing))
	}
	// [100, 100+MaxEvents] inclusive.
	if len(result.Events) != MaxEvents+1 {
		t.Errorf("got %d events, want %d", len(result.Events), MaxEvents+1)
	}
	if first := result.Events[0].Index; first != 100 {
		t.Errorf("first index = %d, want 100", first)
	}
}

func TestEventsDescendingClampsAtZero(t *testing.T) {
	c := testChats(t)
	seedRange(t, c, "chat-a", 0, 60, nil)

	// Descending from 50 would underflow 50-MaxEvents; lower clamps to 0.
	result, missing := c.Events("chat-a", nil, 50, false, 0, 500)
	if len(missing) != 0 {
		t.Fatalf("got %d missing, want 0", len(missing))
	}
	if len(result.Events) != 51 {
		t.Errorf("got %d events, want 51", len(result.Events))
	}
}

func TestEventsSparseCacheReportsMisses(t *testing.T) {
	c := testChats(t)
	seedRange(t, c, "chat-a", 10, 12, nil)

	result, missing := c.Events("chat-a", nil, 10, true, 10, 15)
	if len(result.Events) != 3 {
		t.Errorf("got %d events, want 3", len(result.Events))
	}
	for _, want := range []uint32{13, 14, 15} {
		if _, ok := missing[want]; !ok {
			t.Errorf("index %d should be missing", want)
		}
	}
	if len(missing) != 3 {
		t.Errorf("got %d missing, want 3", len(missing))
	}
}

func TestEventsByIndexSparse(t *testing.T) {
	c := testChats(t)
	seedRange(t, c, "chat-a", 1, 5, nil)

	result, missing := c.EventsByIndex("chat-a", nil, []uint32{2, 4, 9})
	if len(result.Events) != 2 {
		t.Errorf("got %d events, want 2", len(result.Events))
	}
	if len(missing) != 1 {
		t.Fatalf("got %d missing, want 1", len(missing))
	}
	if _, ok := missing[9]; !ok {
		t.Error("index 9 should be missing")
	}
}

func TestThreadEventsIsolatedFromChatEvents(t *testing.T) {
	c := testChats(t)
	root := uint32(7)

	if err := c.SetEvents("chat-a", &root, chat.EventsResult{
		Events: []chat.EventWrapper{messageEvent(1), messageEvent(2)},
	}); err != nil {
		t.Fatal(err)
	}

	// The chat-level namespace must not see thread events.
	result, missing := c.EventsByIndex("chat-a", nil, []uint32{1, 2})
	if len(result.Events) != 0 || len(missing) != 2 {
		t.Errorf("chat namespace leaked thread events: %d hits", len(result.Events))
	}

	result, missing = c.EventsByIndex("chat-a", &root, []uint32{1, 2})
	if len(result.Events) != 2 || len(missing) != 0 {
		t.Errorf("thread namespace: got %d hits, %d missing", len(result.Events), len(missing))
	}
}

func TestSetEventsStoresAffectedEvents(t *testing.T) {
	c := testChats(t)

	if err := c.SetEvents("chat-a", nil, chat.EventsResult{
		Events:         []chat.EventWrapper{messageEvent(1)},
		AffectedEvents: []chat.EventWrapper{messageEvent(5)},
	}); err != nil {
		t.Fatal(err)
	}

	result, missing := c.EventsByIndex("chat-a", nil, []uint32{1, 5})
	if len(result.Events) != 2 || len(missing) != 0 {
		t.Errorf("affected events not stored: %d hits, %d missing", len(result.Events), len(missing))
	}
}

func TestSetMessageIfAbsentKeepsFirstWrite(t *testing.T) {
	c := testChats(t)

	first := messageEvent(3)
	first.Event.Message.Content.Text = "original"
	if err := c.SetMessageIfAbsent("chat-a", nil, first); err != nil {
		t.Fatal(err)
	}

	second := messageEvent(3)
	second.Event.Message.Content.Text = "duplicate"
	if err := c.SetMessageIfAbsent("chat-a", nil, second); err != nil {
		t.Fatal(err)
	}

	result, _ := c.EventsByIndex("chat-a", nil, []uint32{3})
	if len(result.Events) != 1 {
		t.Fatalf("got %d events, want 1", len(result.Events))
	}
	if got := result.Events[0].Event.Message.Content.Text; got != "original" {
		t.Errorf("text = %q, want the first cached form", got)
	}
}
