// Package store implements the local persistence layer: a namespaced
// collection store holding opaque JSON blobs in a single SQLite file.
// Each collection (conversation history, creations ledger, profile,
// settings) is independently consistent; there are no cross-collection
// transactions.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"mzassist/internal/logging"
)

// Well-known collection names.
const (
	CollectionHistory   = "history"
	CollectionCreations = "creations"
	CollectionProfile   = "profile"
	CollectionSettings  = "settings"
)

// Store is a key-namespaced durable store for JSON-serializable blobs.
// All access goes through a mutex; writes are last-write-wins.
type Store struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
}

// Open initializes the SQLite database at the given path, creating the
// parent directory and schema as needed.
func Open(path string) (*Store, error) {
	logging.Store("Opening store at %s", path)

	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logging.StoreDebug("Failed to set sqlite busy_timeout: %v", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logging.StoreDebug("Failed to set sqlite journal_mode=WAL: %v", err)
	}

	s := &Store{db: db, dbPath: path}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	logging.StoreDebug("Store schema ready")
	return s, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS collections (
		name TEXT PRIMARY KEY,
		payload TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// Read returns the raw payload of a collection, or nil when the collection
// has never been written.
func (s *Store) Read(collection string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var payload string
	err := s.db.QueryRow(
		"SELECT payload FROM collections WHERE name = ?", collection,
	).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read collection %q: %w", collection, err)
	}
	return []byte(payload), nil
}

// Write stores the raw payload of a collection, replacing any previous
// value.
func (s *Store) Write(collection string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`INSERT INTO collections (name, payload, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(name) DO UPDATE SET payload = excluded.payload, updated_at = CURRENT_TIMESTAMP`,
		collection, string(payload),
	)
	if err != nil {
		return fmt.Errorf("failed to write collection %q: %w", collection, err)
	}
	logging.StoreDebug("Wrote collection %q (%d bytes)", collection, len(payload))
	return nil
}

// Delete removes a collection. Deleting a missing collection is a no-op.
func (s *Store) Delete(collection string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec("DELETE FROM collections WHERE name = ?", collection); err != nil {
		return fmt.Errorf("failed to delete collection %q: %w", collection, err)
	}
	return nil
}

// ReadJSON unmarshals a collection into v. A missing collection returns
// (false, nil). A corrupted payload is discarded and treated as missing:
// logged, never fatal.
func (s *Store) ReadJSON(collection string, v interface{}) (bool, error) {
	raw, err := s.Read(collection)
	if err != nil {
		return false, err
	}
	if raw == nil {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		logging.Get(logging.CategoryStore).Error(
			"Discarding corrupted payload for collection %q: %v", collection, err)
		if delErr := s.Delete(collection); delErr != nil {
			logging.Get(logging.CategoryStore).Error(
				"Failed to discard corrupted collection %q: %v", collection, delErr)
		}
		return false, nil
	}
	return true, nil
}

// WriteJSON marshals v and stores it as the collection payload.
func (s *Store) WriteJSON(collection string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal collection %q: %w", collection, err)
	}
	return s.Write(collection, raw)
}
