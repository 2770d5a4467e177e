package store

import "database/sql"

// FlagSoftDisabled is the durable circuit breaker. Once set, callers stop
// issuing cache reads and writes until it is explicitly reset.
const FlagSoftDisabled = "soft_disabled"

// SetFlag stores a boolean flag row.
func (db *DB) SetFlag(name string, value bool) error {
	v := 0
	if value {
		v = 1
	}
	_, err := db.Exec(`
		INSERT INTO flags (name, value) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET value = excluded.value`,
		name, v)
	return err
}

// Flag reads a boolean flag row; absent rows read as false.
func (db *DB) Flag(name string) (bool, error) {
	var v int
	err := db.QueryRow(`SELECT value FROM flags WHERE name = ?`, name).Scan(&v)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return v != 0, nil
}
