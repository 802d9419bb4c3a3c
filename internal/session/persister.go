package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/yenshow/ba-frontend/internal/infrastructure/config"
	"github.com/yenshow/ba-frontend/internal/infrastructure/database"
)

// Persister stores at most one Slot.
//
// Load returns (nil, nil) when nothing is stored. Implementations return
// an error wrapping ErrCorruptSlot when a stored value cannot be decoded.
type Persister interface {
	Load(ctx context.Context) (*Slot, error)
	Save(ctx context.Context, slot Slot) error
	Delete(ctx context.Context) error
}

// MemoryPersister keeps the slot in process memory. Used when persistence
// is disabled and in tests.
type MemoryPersister struct {
	mu   sync.Mutex
	slot *Slot
}

// NewMemoryPersister returns an empty MemoryPersister.
func NewMemoryPersister() *MemoryPersister {
	return &MemoryPersister{}
}

// Load returns a copy of the stored slot.
func (m *MemoryPersister) Load(_ context.Context) (*Slot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.slot == nil {
		return nil, nil
	}
	cp := *m.slot
	return &cp, nil
}

// Save replaces the stored slot.
func (m *MemoryPersister) Save(_ context.Context, slot Slot) error {
	m.mu.Lock()
	m.slot = &slot
	m.mu.Unlock()
	return nil
}

// Delete removes the stored slot.
func (m *MemoryPersister) Delete(_ context.Context) error {
	m.mu.Lock()
	m.slot = nil
	m.mu.Unlock()
	return nil
}

// NewPersister picks the persister named by cfg.Persistence. db is only
// required for the sqlite mode.
func NewPersister(cfg config.SessionConfig, db *database.DB) (Persister, error) {
	switch cfg.Persistence {
	case config.PersistenceSQLite:
		if db == nil {
			return nil, fmt.Errorf("session: sqlite persistence requires a database")
		}
		return NewSQLitePersister(db), nil
	case config.PersistenceFile:
		return NewFilePersister(cfg.FilePath), nil
	case config.PersistenceMemory, "":
		return NewMemoryPersister(), nil
	default:
		return nil, fmt.Errorf("session: unknown persistence %q", cfg.Persistence)
	}
}
