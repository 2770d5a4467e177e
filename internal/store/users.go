package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// UserSummary is the cached profile of one user. The table is global, not
// per principal: usernames and avatars are the same whoever is logged in.
type UserSummary struct {
	UserID                 string
	Username               string
	AvatarID               *uint64
	SecondsSinceLastOnline uint32
	Suspended              bool
	DiamondMember          bool
}

// GetUsers is a best-effort batch fetch: ids with no cached row are simply
// omitted from the result, in no particular order.
func (db *UserDB) GetUsers(ids []string) ([]UserSummary, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	rows, err := db.Query(fmt.Sprintf(`
		SELECT user_id, username, avatar_id, seconds_since_last_online, suspended, diamond
		FROM users WHERE user_id IN (%s)`, strings.Join(placeholders, ",")), args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return scanUsers(rows)
}

// AllUsers returns every cached user, used for cold-start population.
func (db *UserDB) AllUsers() ([]UserSummary, error) {
	rows, err := db.Query(`
		SELECT user_id, username, avatar_id, seconds_since_last_online, suspended, diamond
		FROM users`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return scanUsers(rows)
}

// PutUsers batch-upserts user summaries keyed by user id. No-op on empty
// input.
func (db *UserDB) PutUsers(users []UserSummary) error {
	if len(users) == 0 {
		return nil
	}
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UnixMilli()
	for _, u := range users {
		if _, err := tx.Exec(`
			INSERT INTO users (user_id, username, avatar_id, seconds_since_last_online, suspended, diamond, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(user_id) DO UPDATE SET
				username = excluded.username,
				avatar_id = excluded.avatar_id,
				seconds_since_last_online = excluded.seconds_since_last_online,
				suspended = excluded.suspended,
				diamond = excluded.diamond,
				updated_at = excluded.updated_at`,
			u.UserID, u.Username, avatarArg(u.AvatarID), u.SecondsSinceLastOnline, u.Suspended, u.DiamondMember, now); err != nil {
			return fmt.Errorf("upsert user %q: %w", u.UserID, err)
		}
	}
	return tx.Commit()
}

// SetUsername patches a single field of an existing row. A user that is not
// cached yet is left alone; the cache never creates partial records.
func (db *UserDB) SetUsername(userID, username string) error {
	_, err := db.Exec(`UPDATE users SET username = ?, updated_at = ? WHERE user_id = ?`,
		username, time.Now().UnixMilli(), userID)
	return err
}

// UserCount returns the number of cached users.
func (db *UserDB) UserCount() (int64, error) {
	var count int64
	err := db.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&count)
	return count, err
}

func avatarArg(id *uint64) any {
	if id == nil {
		return nil
	}
	return int64(*id)
}

func scanUsers(rows *sql.Rows) ([]UserSummary, error) {
	var users []UserSummary
	for rows.Next() {
		var u UserSummary
		var avatar sql.NullInt64
		if err := rows.Scan(&u.UserID, &u.Username, &avatar, &u.SecondsSinceLastOnline, &u.Suspended, &u.DiamondMember); err != nil {
			return nil, err
		}
		if avatar.Valid {
			v := uint64(avatar.Int64)
			u.AvatarID = &v
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
