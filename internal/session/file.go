package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const (
	slotFileMode = 0o600
	slotDirMode  = 0o700
)

// FilePersister stores the slot as a JSON file readable only by its owner.
// Writes go to a temporary file that is renamed into place.
type FilePersister struct {
	path string
	mu   sync.Mutex
}

// NewFilePersister returns a persister for path. The file and its parent
// directory are created on first Save.
func NewFilePersister(path string) *FilePersister {
	return &FilePersister{path: path}
}

// Path returns the slot file location.
func (f *FilePersister) Path() string {
	return f.path
}

// Load reads the slot file.
func (f *FilePersister) Load(_ context.Context) (*Slot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading session file: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	var slot Slot
	if err := json.Unmarshal(data, &slot); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSlot, err)
	}
	return &slot, nil
}

// Save writes the slot file atomically with mode 0600.
func (f *FilePersister) Save(_ context.Context, slot Slot) error {
	data, err := json.MarshalIndent(slot, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, slotDirMode); err != nil {
		return fmt.Errorf("creating session directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".session-*.json")
	if err != nil {
		return fmt.Errorf("creating temp session file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // gone after a successful rename

	if err := tmp.Chmod(slotFileMode); err != nil {
		tmp.Close() //nolint:errcheck // already failing
		return fmt.Errorf("setting session file mode: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck // already failing
		return fmt.Errorf("writing session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing session file: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("replacing session file: %w", err)
	}
	return nil
}

// Delete removes the slot file. A missing file is not an error.
func (f *FilePersister) Delete(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing session file: %w", err)
	}
	return nil
}
