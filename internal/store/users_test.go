package store

import (
	"sort"
	"testing"
)

func TestPutUsersEmptyIsNoop(t *testing.T) {
	db := testUserDB(t)
	if err := db.PutUsers(nil); err != nil {
		t.Fatal(err)
	}
	count, err := db.UserCount()
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("count = %d, want 0", count)
	}
}

func TestGetUsersPartialHit(t *testing.T) {
	db := testUserDB(t)

	avatar := uint64(7)
	if err := db.PutUsers([]UserSummary{
		{UserID: "a", Username: "alice", AvatarID: &avatar},
		{UserID: "c", Username: "carol", Suspended: true},
	}); err != nil {
		t.Fatal(err)
	}

	users, err := db.GetUsers([]string{"a", "b", "c"})
	if err != nil {
		t.Fatal(err)
	}
	if len(users) != 2 {
		t.Fatalf("got %d users, want 2 (no placeholder for the miss)", len(users))
	}
	sort.Slice(users, func(i, j int) bool { return users[i].UserID < users[j].UserID })
	if users[0].Username != "alice" || users[0].AvatarID == nil || *users[0].AvatarID != 7 {
		t.Errorf("user a = %+v", users[0])
	}
	if users[1].Username != "carol" || !users[1].Suspended {
		t.Errorf("user c = %+v", users[1])
	}
}

func TestPutUsersUpsertsByID(t *testing.T) {
	db := testUserDB(t)

	if err := db.PutUsers([]UserSummary{{UserID: "a", Username: "alice"}}); err != nil {
		t.Fatal(err)
	}
	if err := db.PutUsers([]UserSummary{{UserID: "a", Username: "alice2", DiamondMember: true}}); err != nil {
		t.Fatal(err)
	}

	users, err := db.GetUsers([]string{"a"})
	if err != nil {
		t.Fatal(err)
	}
	if len(users) != 1 || users[0].Username != "alice2" || !users[0].DiamondMember {
		t.Errorf("users = %+v", users)
	}
}

func TestSetUsername(t *testing.T) {
	db := testUserDB(t)

	// Patching an unknown user never creates a partial record.
	if err := db.SetUsername("ghost", "boo"); err != nil {
		t.Fatal(err)
	}
	users, err := db.GetUsers([]string{"ghost"})
	if err != nil {
		t.Fatal(err)
	}
	if len(users) != 0 {
		t.Errorf("partial record created: %+v", users)
	}

	if err := db.PutUsers([]UserSummary{{UserID: "a", Username: "alice"}}); err != nil {
		t.Fatal(err)
	}
	if err := db.SetUsername("a", "alicia"); err != nil {
		t.Fatal(err)
	}
	users, err = db.GetUsers([]string{"a"})
	if err != nil {
		t.Fatal(err)
	}
	if users[0].Username != "alicia" {
		t.Errorf("username = %q, want alicia", users[0].Username)
	}
}

func TestAllUsers(t *testing.T) {
	db := testUserDB(t)

	if err := db.PutUsers([]UserSummary{
		{UserID: "a", Username: "alice"},
		{UserID: "b", Username: "bob"},
	}); err != nil {
		t.Fatal(err)
	}

	users, err := db.AllUsers()
	if err != nil {
		t.Fatal(err)
	}
	if len(users) != 2 {
		t.Errorf("got %d users, want 2", len(users))
	}
}
