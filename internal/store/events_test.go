package store

import (
	"testing"

	"github.com/openchat-labs/occache/internal/chat"
)

func messageEvent(index, messageIndex uint32) chat.EventWrapper {
	return chat.EventWrapper{
		Index:     index,
		Timestamp: int64(index) * 100,
		Event: chat.Event{
			Kind: "message",
			Message: &chat.Message{
				MessageID:    uint64(index),
				MessageIndex: messageIndex,
				Sender:       "u1",
				Content:      chat.Content{Kind: "text_content", Text: "hello"},
			},
		},
	}
}

func TestPutEventsAndRange(t *testing.T) {
	db := testDB(t)

	events := []chat.EventWrapper{
		messageEvent(5, 2),
		messageEvent(3, 1),
		{Index: 4, Timestamp: 400, Event: chat.Event{Kind: "member_joined"}},
	}
	if err := db.PutEvents("c1", nil, events); err != nil {
		t.Fatal(err)
	}

	got, err := db.EventsRange("c1", nil, 3, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d events, want 3", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].Index <= got[i-1].Index {
			t.Fatalf("range not ascending: %d then %d", got[i-1].Index, got[i].Index)
		}
	}

	// Sub-range.
	got, err = db.EventsRange("c1", nil, 4, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Index != 4 || got[1].Index != 5 {
		t.Errorf("sub-range = %+v", got)
	}
}

func TestThreadAndChatNamespacesDisjoint(t *testing.T) {
	db := testDB(t)
	root := uint32(2)

	if err := db.PutEvents("c1", nil, []chat.EventWrapper{messageEvent(7, 3)}); err != nil {
		t.Fatal(err)
	}
	if err := db.PutEvents("c1", &root, []chat.EventWrapper{messageEvent(7, 0)}); err != nil {
		t.Fatal(err)
	}

	chatEvents, err := db.EventsRange("c1", nil, 0, 100)
	if err != nil {
		t.Fatal(err)
	}
	threadEvents, err := db.EventsRange("c1", &root, 0, 100)
	if err != nil {
		t.Fatal(err)
	}
	if len(chatEvents) != 1 || len(threadEvents) != 1 {
		t.Fatalf("chat=%d thread=%d, want 1 each", len(chatEvents), len(threadEvents))
	}
	if chatEvents[0].Event.Message.MessageIndex != 3 {
		t.Error("chat stream returned the thread event")
	}
}

func TestEventsByIndexSparse(t *testing.T) {
	db := testDB(t)

	if err := db.PutEvents("c1", nil, []chat.EventWrapper{messageEvent(1, 0), messageEvent(5, 1)}); err != nil {
		t.Fatal(err)
	}

	got, err := db.EventsByIndex("c1", nil, []uint32{1, 3, 5, 9})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d events, want 2", len(got))
	}
	if got[0].Index != 1 || got[1].Index != 5 {
		t.Errorf("indices = %d,%d", got[0].Index, got[1].Index)
	}
}

func TestEventIndexForMessage(t *testing.T) {
	db := testDB(t)

	if err := db.PutEvents("c1", nil, []chat.EventWrapper{messageEvent(42, 17)}); err != nil {
		t.Fatal(err)
	}

	idx, err := db.EventIndexForMessage("c1", nil, 17)
	if err != nil {
		t.Fatal(err)
	}
	if idx == nil || *idx != 42 {
		t.Errorf("event index = %v, want 42", idx)
	}

	idx, err = db.EventIndexForMessage("c1", nil, 99)
	if err != nil {
		t.Fatal(err)
	}
	if idx != nil {
		t.Errorf("expected nil for unknown message index, got %d", *idx)
	}
}

func TestPutMessageIfAbsentIdempotent(t *testing.T) {
	db := testDB(t)

	first := messageEvent(10, 4)
	written, err := db.PutMessageIfAbsent("c1", nil, first)
	if err != nil {
		t.Fatal(err)
	}
	if !written {
		t.Fatal("first insert should write")
	}

	// Same message delivered again (e.g. via notification) with different
	// content must not overwrite.
	second := messageEvent(10, 4)
	second.Event.Message.Content.Text = "changed"
	written, err = db.PutMessageIfAbsent("c1", nil, second)
	if err != nil {
		t.Fatal(err)
	}
	if written {
		t.Error("second insert should be a no-op")
	}

	count, err := db.CountEvents("c1", nil, 10)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}

	got, err := db.EventsByIndex("c1", nil, []uint32{10})
	if err != nil {
		t.Fatal(err)
	}
	if got[0].Event.Message.Content.Text != "hello" {
		t.Errorf("body = %q, original must survive", got[0].Event.Message.Content.Text)
	}
}

// TestPutEventsStripsAtBoundary verifies stripping is enforced at the
// storage boundary, not just left to callers.
func TestPutEventsStripsAtBoundary(t *testing.T) {
	db := testDB(t)

	ev := messageEvent(3, 1)
	ev.Event.Message.Content.BlobData = []byte{1, 2, 3}
	ev.Event.Message.RepliesTo = &chat.ReplyContext{
		Kind:       chat.RehydratedReplyContext,
		EventIndex: 1,
		Content:    &chat.Content{Kind: "text_content", Text: "original"},
	}
	if err := db.PutEvents("c1", nil, []chat.EventWrapper{ev}); err != nil {
		t.Fatal(err)
	}

	got, err := db.EventsByIndex("c1", nil, []uint32{3})
	if err != nil {
		t.Fatal(err)
	}
	msg := got[0].Event.Message
	if msg.Content.BlobData != nil {
		t.Error("blob data reached storage")
	}
	if msg.RepliesTo.Kind != chat.RawReplyContext || msg.RepliesTo.Content != nil {
		t.Errorf("reply context not downgraded: %+v", msg.RepliesTo)
	}
	// Caller's copy untouched.
	if ev.Event.Message.Content.BlobData == nil {
		t.Error("caller's event was mutated")
	}
}

func TestDeleteEvents(t *testing.T) {
	db := testDB(t)

	if err := db.PutEvents("c1", nil, []chat.EventWrapper{messageEvent(1, 0), messageEvent(2, 1), messageEvent(3, 2)}); err != nil {
		t.Fatal(err)
	}
	if err := db.DeleteEvents("c1", []uint32{1, 3}); err != nil {
		t.Fatal(err)
	}

	got, err := db.EventsRange("c1", nil, 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Index != 2 {
		t.Errorf("got %+v, want only event 2", got)
	}
}
