// Package testutil provides shared test helpers for databases and stores.
package testutil

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/starford/headstone/internal/kv"
)

// TestDB creates a temporary SQLite key/value database that is automatically cleaned up.
func TestDB(t *testing.T) *kv.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "headstone-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := kv.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// QuietLogger discards everything.
func QuietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// ErrBroken is returned by every BrokenStore operation.
var ErrBroken = errors.New("storage unavailable")

// BrokenStore is a kv.Store whose operations always fail.
type BrokenStore struct{}

func (BrokenStore) Get(string) (string, bool, error) { return "", false, ErrBroken }
func (BrokenStore) Set(string, string) error         { return ErrBroken }
func (BrokenStore) Delete(string) error              { return ErrBroken }
