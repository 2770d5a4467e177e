package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/openchat-labs/occache/internal/chat"
)

// GetGroupDetails returns the cached detail record for a group, or nil when
// the group has never been fetched.
func (db *DB) GetGroupDetails(chatID string) (*chat.GroupDetails, error) {
	var payload []byte
	err := db.QueryRow(`SELECT payload FROM group_details WHERE chat_id = ?`, chatID).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var d chat.GroupDetails
	if err := json.Unmarshal(payload, &d); err != nil {
		return nil, fmt.Errorf("decode group details: %w", err)
	}
	return &d, nil
}

// PutGroupDetails upserts a group's detail record.
func (db *DB) PutGroupDetails(d chat.GroupDetails) error {
	payload, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("marshal group details: %w", err)
	}
	_, err = db.Exec(`
		INSERT INTO group_details (chat_id, payload, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(chat_id) DO UPDATE SET
			payload = excluded.payload,
			updated_at = excluded.updated_at`,
		d.ChatID, payload, time.Now().UnixMilli())
	return err
}
