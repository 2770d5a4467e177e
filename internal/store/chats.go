package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/openchat-labs/occache/internal/chat"
)

// GetSnapshot returns the cached chat-list snapshot for a principal, or nil
// when none has been written yet.
func (db *DB) GetSnapshot(principal string) (*chat.Snapshot, error) {
	var payload []byte
	err := db.QueryRow(`SELECT payload FROM chats WHERE principal = ?`, principal).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var snap chat.Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, fmt.Errorf("decode chat snapshot: %w", err)
	}
	return &snap, nil
}

// SetSnapshot replaces the chat-list snapshot and, in the same transaction,
// writes each chat's latest message into the event cache and deletes the
// affected (remotely edited or deleted) event rows. All-or-nothing: a
// reader must never see a snapshot whose latest-message pointers disagree
// with the event cache.
//
// Previewed groups are filtered and latest messages stripped before write.
func (db *DB) SetSnapshot(principal string, snap chat.Snapshot, affectedEvents map[string][]uint32) error {
	snap = chat.SnapshotForStorage(snap)
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal chat snapshot: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`
		INSERT INTO chats (principal, timestamp, payload)
		VALUES (?, ?, ?)
		ON CONFLICT(principal) DO UPDATE SET
			timestamp = excluded.timestamp,
			payload = excluded.payload`,
		principal, snap.Timestamp, payload); err != nil {
		return fmt.Errorf("upsert chat snapshot: %w", err)
	}

	for _, s := range snap.Summaries {
		if s.LatestMessage == nil {
			continue
		}
		if err := putEventTx(tx, s.ChatID, nil, *s.LatestMessage); err != nil {
			return fmt.Errorf("index latest message for %q: %w", s.ChatID, err)
		}
	}

	for chatID, indices := range affectedEvents {
		if len(indices) == 0 {
			continue
		}
		if err := deleteEventsTx(tx, chatID, indices); err != nil {
			return fmt.Errorf("invalidate events for %q: %w", chatID, err)
		}
	}

	return tx.Commit()
}

// RemoveChat drops one chat from the cached snapshot. A missing snapshot is
// not an error; there is simply nothing to remove.
func (db *DB) RemoveChat(principal, chatID string) error {
	snap, err := db.GetSnapshot(principal)
	if err != nil {
		return err
	}
	if snap == nil {
		return nil
	}

	kept := snap.Summaries[:0]
	for _, s := range snap.Summaries {
		if s.ChatID != chatID {
			kept = append(kept, s)
		}
	}
	snap.Summaries = kept

	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal chat snapshot: %w", err)
	}
	_, err = db.Exec(`UPDATE chats SET payload = ? WHERE principal = ?`, payload, principal)
	return err
}
