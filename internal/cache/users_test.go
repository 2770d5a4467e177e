package cache

import (
	"testing"

	"go.uber.org/zap"

	"github.com/openchat-labs/occache/internal/store"
)

func TestUsersRoundTrip(t *testing.T) {
	u := NewUsers(t.TempDir(), false, zap.NewNop())
	t.Cleanup(func() { _ = u.Close() })

	if err := u.SetUsers([]store.UserSummary{
		{UserID: "u1", Username: "alice"},
		{UserID: "u2", Username: "bob"},
	}); err != nil {
		t.Fatal(err)
	}

	got := u.GetUsers([]string{"u1", "u2", "ghost"})
	if len(got) != 2 {
		t.Fatalf("got %d users, want 2 (misses omitted)", len(got))
	}

	if err := u.SetUsername("u1", "alice-renamed"); err != nil {
		t.Fatal(err)
	}
	got = u.GetUsers([]string{"u1"})
	if len(got) != 1 || got[0].Username != "alice-renamed" {
		t.Errorf("username not updated: %+v", got)
	}
}

func TestUsersDisabledIsNoOp(t *testing.T) {
	u := NewUsers(t.TempDir(), true, zap.NewNop())

	if err := u.SetUsers([]store.UserSummary{{UserID: "u1", Username: "alice"}}); err != nil {
		t.Fatalf("disabled write should be a no-op, got %v", err)
	}
	if got := u.GetUsers([]string{"u1"}); got != nil {
		t.Errorf("disabled read should miss, got %+v", got)
	}
	if got := u.AllUsers(); got != nil {
		t.Errorf("disabled scan should miss, got %+v", got)
	}
}

func TestUsersSharedAcrossHandles(t *testing.T) {
	dir := t.TempDir()

	u1 := NewUsers(dir, false, zap.NewNop())
	if err := u1.SetUsers([]store.UserSummary{{UserID: "u1", Username: "alice"}}); err != nil {
		t.Fatal(err)
	}
	if err := u1.Close(); err != nil {
		t.Fatal(err)
	}

	// The user cache is device-global, not per principal.
	u2 := NewUsers(dir, false, zap.NewNop())
	t.Cleanup(func() { _ = u2.Close() })
	if got := u2.AllUsers(); len(got) != 1 {
		t.Errorf("got %d users from a fresh handle, want 1", len(got))
	}
}
