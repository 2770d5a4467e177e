package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/openchat-labs/occache/internal/cachekey"
	"github.com/openchat-labs/occache/internal/chat"
)

// PutEvents upserts a batch of events into the chat or thread event table
// in a single transaction. Events are stripped to their storable form on
// the way in, so live blob handles and rehydrated reply contexts never
// reach disk regardless of what the caller passes.
func (db *DB) PutEvents(chatID string, threadRoot *uint32, events []chat.EventWrapper) error {
	if len(events) == 0 {
		return nil
	}
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, ev := range events {
		if err := putEventTx(tx, chatID, threadRoot, ev); err != nil {
			return fmt.Errorf("put event %d: %w", ev.Index, err)
		}
	}
	return tx.Commit()
}

// PutMessageIfAbsent inserts a single message event only when no row exists
// under its key. A message can arrive twice (optimistic send, then the
// notification for the same message); the second arrival must not overwrite
// the first. Returns whether a row was written.
func (db *DB) PutMessageIfAbsent(chatID string, threadRoot *uint32, ev chat.EventWrapper) (bool, error) {
	key := cachekey.ForEvent(chatID, ev.Index, threadRoot)

	var count int
	q := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE cache_key = ?`, eventTable(threadRoot))
	if err := db.QueryRow(q, key).Scan(&count); err != nil {
		return false, fmt.Errorf("check event %q: %w", key, err)
	}
	if count > 0 {
		return false, nil
	}

	tx, err := db.Begin()
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	if err := putEventIgnoreTx(tx, chatID, threadRoot, ev); err != nil {
		return false, fmt.Errorf("insert event %q: %w", key, err)
	}
	return true, tx.Commit()
}

// EventsRange returns all cached events with index in [from, to], ascending
// by index. The scan is a single key-range read; the zero-padded key format
// makes lexicographic key order equal to numeric index order.
func (db *DB) EventsRange(chatID string, threadRoot *uint32, from, to uint32) ([]chat.EventWrapper, error) {
	if from > to {
		return nil, nil
	}
	lower := cachekey.ForEvent(chatID, from, threadRoot)
	upper := cachekey.ForEvent(chatID, to, threadRoot)

	var rows *sql.Rows
	var err error
	if threadRoot != nil {
		rows, err = db.Query(`
			SELECT payload FROM thread_events
			WHERE chat_id = ? AND thread_root = ? AND cache_key BETWEEN ? AND ?
			ORDER BY cache_key ASC`,
			chatID, *threadRoot, lower, upper)
	} else {
		rows, err = db.Query(`
			SELECT payload FROM chat_events
			WHERE chat_id = ? AND cache_key BETWEEN ? AND ?
			ORDER BY cache_key ASC`,
			chatID, lower, upper)
	}
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return scanEvents(rows)
}

// EventsByIndex returns the cached events among an explicit, possibly
// sparse index list. Indices with no cached row are simply absent from the
// result.
func (db *DB) EventsByIndex(chatID string, threadRoot *uint32, indices []uint32) ([]chat.EventWrapper, error) {
	if len(indices) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(indices))
	args := make([]any, len(indices))
	for i, idx := range indices {
		placeholders[i] = "?"
		args[i] = cachekey.ForEvent(chatID, idx, threadRoot)
	}
	q := fmt.Sprintf(`SELECT payload FROM %s WHERE cache_key IN (%s) ORDER BY cache_key ASC`,
		eventTable(threadRoot), strings.Join(placeholders, ","))

	rows, err := db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return scanEvents(rows)
}

// EventIndexForMessage resolves a message index to its event index via the
// secondary message index. Returns nil when the message is not cached.
func (db *DB) EventIndexForMessage(chatID string, threadRoot *uint32, messageIndex uint32) (*uint32, error) {
	var row *sql.Row
	if threadRoot != nil {
		row = db.QueryRow(`
			SELECT event_index FROM thread_events
			WHERE chat_id = ? AND thread_root = ? AND message_index = ?`,
			chatID, *threadRoot, messageIndex)
	} else {
		row = db.QueryRow(`
			SELECT event_index FROM chat_events
			WHERE chat_id = ? AND message_index = ?`,
			chatID, messageIndex)
	}
	var idx uint32
	err := row.Scan(&idx)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &idx, nil
}

// DeleteEvents removes cached chat events by index. Used when the remote
// reports events as edited or deleted (affected events); the next read
// misses and refetches them.
func (db *DB) DeleteEvents(chatID string, indices []uint32) error {
	if len(indices) == 0 {
		return nil
	}
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	if err := deleteEventsTx(tx, chatID, indices); err != nil {
		return err
	}
	return tx.Commit()
}

// CountEvents reports how many rows exist under one event's key (0 or 1;
// the key is a primary key).
func (db *DB) CountEvents(chatID string, threadRoot *uint32, index uint32) (int64, error) {
	key := cachekey.ForEvent(chatID, index, threadRoot)
	var count int64
	q := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE cache_key = ?`, eventTable(threadRoot))
	err := db.QueryRow(q, key).Scan(&count)
	return count, err
}

func eventTable(threadRoot *uint32) string {
	if threadRoot != nil {
		return "thread_events"
	}
	return "chat_events"
}

func putEventTx(tx *sql.Tx, chatID string, threadRoot *uint32, ev chat.EventWrapper) error {
	key, messageIndex, payload, err := eventRow(chatID, threadRoot, ev)
	if err != nil {
		return err
	}
	if threadRoot != nil {
		_, err = tx.Exec(`
			INSERT INTO thread_events (cache_key, chat_id, thread_root, event_index, message_index, timestamp, payload)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(cache_key) DO UPDATE SET
				message_index = excluded.message_index,
				timestamp = excluded.timestamp,
				payload = excluded.payload`,
			key, chatID, *threadRoot, ev.Index, messageIndex, ev.Timestamp, payload)
	} else {
		_, err = tx.Exec(`
			INSERT INTO chat_events (cache_key, chat_id, event_index, message_index, timestamp, payload)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(cache_key) DO UPDATE SET
				message_index = excluded.message_index,
				timestamp = excluded.timestamp,
				payload = excluded.payload`,
			key, chatID, ev.Index, messageIndex, ev.Timestamp, payload)
	}
	return err
}

func putEventIgnoreTx(tx *sql.Tx, chatID string, threadRoot *uint32, ev chat.EventWrapper) error {
	key, messageIndex, payload, err := eventRow(chatID, threadRoot, ev)
	if err != nil {
		return err
	}
	if threadRoot != nil {
		_, err = tx.Exec(`
			INSERT INTO thread_events (cache_key, chat_id, thread_root, event_index, message_index, timestamp, payload)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(cache_key) DO NOTHING`,
			key, chatID, *threadRoot, ev.Index, messageIndex, ev.Timestamp, payload)
	} else {
		_, err = tx.Exec(`
			INSERT INTO chat_events (cache_key, chat_id, event_index, message_index, timestamp, payload)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(cache_key) DO NOTHING`,
			key, chatID, ev.Index, messageIndex, ev.Timestamp, payload)
	}
	return err
}

func eventRow(chatID string, threadRoot *uint32, ev chat.EventWrapper) (key string, messageIndex sql.NullInt64, payload []byte, err error) {
	stripped := chat.ForStorage(ev)
	key = cachekey.ForEvent(chatID, stripped.Index, threadRoot)
	if msg := stripped.Event.Message; msg != nil {
		messageIndex = sql.NullInt64{Int64: int64(msg.MessageIndex), Valid: true}
	}
	payload, err = json.Marshal(stripped)
	if err != nil {
		err = fmt.Errorf("marshal event %d: %w", ev.Index, err)
	}
	return key, messageIndex, payload, err
}

func deleteEventsTx(tx *sql.Tx, chatID string, indices []uint32) error {
	placeholders := make([]string, len(indices))
	args := make([]any, len(indices))
	for i, idx := range indices {
		placeholders[i] = "?"
		args[i] = cachekey.Event(chatID, idx)
	}
	q := fmt.Sprintf(`DELETE FROM chat_events WHERE cache_key IN (%s)`, strings.Join(placeholders, ","))
	if _, err := tx.Exec(q, args...); err != nil {
		return fmt.Errorf("delete affected events: %w", err)
	}
	return nil
}

func scanEvents(rows *sql.Rows) ([]chat.EventWrapper, error) {
	var events []chat.EventWrapper
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var ev chat.EventWrapper
		if err := json.Unmarshal(payload, &ev); err != nil {
			return nil, fmt.Errorf("decode cached event: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}
