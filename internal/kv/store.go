package kv

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Store is the key/value contract the session layer depends on.
// Consumers should depend on this interface rather than *DB so tests can
// substitute failing or in-memory stores.
type Store interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(key string) error
}

// Verify *DB satisfies Store at compile time.
var _ Store = (*DB)(nil)

// Get returns the value stored under key. ok is false when the key is absent.
func (db *DB) Get(key string) (string, bool, error) {
	var v string
	err := db.conn.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("kv: get %s: %w", key, err)
	}
	return v, true, nil
}

// Set inserts or replaces the value under key.
func (db *DB) Set(key, value string) error {
	_, err := db.conn.Exec(`
		INSERT INTO kv (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value      = excluded.value,
			updated_at = excluded.updated_at
	`, key, value, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("kv: set %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting an absent key is not an error.
func (db *DB) Delete(key string) error {
	if _, err := db.conn.Exec(`DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("kv: delete %s: %w", key, err)
	}
	return nil
}
