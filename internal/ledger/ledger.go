// Package ledger tracks every creative artifact the assistant produces.
// Each generation job is registered as pending before any remote work
// starts, and later resolved exactly once to completed or failed. The
// full ledger is persisted on every mutation so a crash mid-generation
// leaves a visible pending entry rather than silent loss.
package ledger

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"mzassist/internal/logging"
	"mzassist/internal/store"
	"mzassist/internal/types"
)

// Ledger is the in-memory creations ledger backed by the persistent
// store. All methods are safe for concurrent use.
type Ledger struct {
	mu      sync.RWMutex
	store   *store.Store
	entries []types.Creation // newest first
}

// Open loads the persisted ledger. A missing or corrupted collection
// yields an empty ledger, never an error.
func Open(s *store.Store) (*Ledger, error) {
	l := &Ledger{store: s}

	var entries []types.Creation
	found, err := s.ReadJSON(store.CollectionCreations, &entries)
	if err != nil {
		return nil, fmt.Errorf("failed to load creations ledger: %w", err)
	}
	if found {
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].Timestamp > entries[j].Timestamp
		})
		l.entries = entries
	}
	logging.Ledger("Ledger opened with %d entries", len(l.entries))
	return l, nil
}

// Register appends a new pending entry for a generation job and returns
// its id. The entry is persisted before this returns, so the job is
// visible even if the process dies before resolution.
func (l *Ledger) Register(creationType types.CreationType, prompt string) (string, error) {
	if !creationType.Valid() {
		return "", fmt.Errorf("unknown creation type %q", creationType)
	}

	entry := types.Creation{
		ID:        uuid.NewString(),
		Type:      creationType,
		Prompt:    prompt,
		Status:    types.StatusPending,
		Timestamp: time.Now().UnixMilli(),
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append([]types.Creation{entry}, l.entries...)
	if err := l.persistLocked(); err != nil {
		return "", err
	}
	logging.Ledger("Registered %s creation %s", creationType, entry.ID)
	return entry.ID, nil
}

// Complete resolves a pending entry with its result payload. Resolving
// an already-terminal entry overwrites the previous resolution; the
// latest report wins.
func (l *Ledger) Complete(id string, data interface{}) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal creation result: %w", err)
	}
	return l.resolve(id, types.StatusCompleted, raw, "")
}

// Fail resolves a pending entry with a user-facing failure message.
func (l *Ledger) Fail(id string, message string) error {
	return l.resolve(id, types.StatusFailed, nil, message)
}

func (l *Ledger) resolve(id string, status types.CreationStatus, data json.RawMessage, errMsg string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := range l.entries {
		if l.entries[i].ID != id {
			continue
		}
		l.entries[i].Status = status
		l.entries[i].Data = data
		l.entries[i].Error = errMsg
		if err := l.persistLocked(); err != nil {
			return err
		}
		logging.Ledger("Resolved creation %s as %s", id, status)
		return nil
	}
	return fmt.Errorf("no creation with id %q", id)
}

// Get returns a copy of the entry with the given id.
func (l *Ledger) Get(id string) (types.Creation, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for _, e := range l.entries {
		if e.ID == id {
			return e, true
		}
	}
	return types.Creation{}, false
}

// List returns all entries, newest first.
func (l *Ledger) List() []types.Creation {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]types.Creation, len(l.entries))
	copy(out, l.entries)
	return out
}

// Pending returns the entries that have not reached a terminal status.
func (l *Ledger) Pending() []types.Creation {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []types.Creation
	for _, e := range l.entries {
		if !e.Status.Terminal() {
			out = append(out, e)
		}
	}
	return out
}

func (l *Ledger) persistLocked() error {
	if err := l.store.WriteJSON(store.CollectionCreations, l.entries); err != nil {
		return fmt.Errorf("failed to persist creations ledger: %w", err)
	}
	return nil
}
