package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/yenshow/ba-frontend/internal/infrastructure/config"
	"github.com/yenshow/ba-frontend/internal/infrastructure/database"
	"github.com/yenshow/ba-frontend/migrations"
)

func sampleSlot() Slot {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return Slot{
		Token:     "tok-xyz",
		User:      *testUser(RoleOperator),
		SavedAt:   now,
		ExpiresAt: now.Add(DefaultTTL),
	}
}

// exercisePersister runs the same round trip against any implementation.
func exercisePersister(t *testing.T, p Persister) {
	t.Helper()
	ctx := context.Background()

	got, err := p.Load(ctx)
	if err != nil || got != nil {
		t.Fatalf("Load() on empty = %v, %v; want nil, nil", got, err)
	}

	want := sampleSlot()
	if err := p.Save(ctx, want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	got, err = p.Load(ctx)
	if err != nil || got == nil {
		t.Fatalf("Load() = %v, %v", got, err)
	}
	if got.Token != want.Token || got.User != want.User || !got.ExpiresAt.Equal(want.ExpiresAt) {
		t.Errorf("Load() = %+v, want %+v", got, want)
	}

	want.Token = "tok-2"
	if err := p.Save(ctx, want); err != nil {
		t.Fatalf("second Save() error = %v", err)
	}
	if got, _ = p.Load(ctx); got == nil || got.Token != "tok-2" {
		t.Errorf("overwrite not visible: %+v", got)
	}

	if err := p.Delete(ctx); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := p.Delete(ctx); err != nil {
		t.Fatalf("second Delete() error = %v", err)
	}
	if got, _ = p.Load(ctx); got != nil {
		t.Errorf("Load() after Delete = %+v", got)
	}
}

// =============================================================================
// Implementations
// =============================================================================

func TestMemoryPersister(t *testing.T) {
	exercisePersister(t, NewMemoryPersister())
}

func TestFilePersister(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	p := NewFilePersister(path)
	exercisePersister(t, p)

	if err := p.Save(context.Background(), sampleSlot()); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if mode := info.Mode().Perm(); mode != 0o600 {
		t.Errorf("file mode = %o, want 600", mode)
	}
}

func TestFilePersisterCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	_, err := NewFilePersister(path).Load(context.Background())
	if !errors.Is(err, ErrCorruptSlot) {
		t.Errorf("Load() error = %v, want ErrCorruptSlot", err)
	}
}

func TestSQLitePersister(t *testing.T) {
	db := openSessionDB(t)
	exercisePersister(t, NewSQLitePersister(db))
}

func TestSQLitePersisterCorrupt(t *testing.T) {
	db := openSessionDB(t)
	_, err := db.ExecContext(context.Background(),
		`INSERT INTO session_slots (slot_key, token, user_json, saved_at, expires_at) VALUES ('default', 't', '{', 'x', 'y')`)
	if err != nil {
		t.Fatal(err)
	}
	_, err = NewSQLitePersister(db).Load(context.Background())
	if !errors.Is(err, ErrCorruptSlot) {
		t.Errorf("Load() error = %v, want ErrCorruptSlot", err)
	}
}

// =============================================================================
// Restore across restarts
// =============================================================================

func TestStoreSurvivesRestart(t *testing.T) {
	db := openSessionDB(t)

	first := NewStore(Options{Persister: NewSQLitePersister(db)})
	if err := first.Set(authed("persisted", RoleAdmin)); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	second := NewStore(Options{Persister: NewSQLitePersister(db)})
	got := second.Restore(context.Background())
	if got.Token != "persisted" || !second.IsAdmin() {
		t.Errorf("restored = %+v", got)
	}
}

func TestNewPersister(t *testing.T) {
	db := openSessionDB(t)
	tests := []struct {
		name    string
		cfg     config.SessionConfig
		db      *database.DB
		want    string
		wantErr bool
	}{
		{"sqlite", config.SessionConfig{Persistence: config.PersistenceSQLite}, db, "*session.SQLitePersister", false},
		{"sqlite without db", config.SessionConfig{Persistence: config.PersistenceSQLite}, nil, "", true},
		{"file", config.SessionConfig{Persistence: config.PersistenceFile, FilePath: "x.json"}, nil, "*session.FilePersister", false},
		{"memory", config.SessionConfig{Persistence: config.PersistenceMemory}, nil, "*session.MemoryPersister", false},
		{"unknown", config.SessionConfig{Persistence: "redis"}, nil, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewPersister(tt.cfg, tt.db)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewPersister() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil {
				if got := typeName(p); got != tt.want {
					t.Errorf("type = %s, want %s", got, tt.want)
				}
			}
		})
	}
}

func typeName(p Persister) string {
	switch p.(type) {
	case *SQLitePersister:
		return "*session.SQLitePersister"
	case *FilePersister:
		return "*session.FilePersister"
	case *MemoryPersister:
		return "*session.MemoryPersister"
	}
	return "unknown"
}

func openSessionDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(config.DatabaseConfig{Path: filepath.Join(t.TempDir(), "s.db"), BusyTimeout: 5})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // test cleanup
	if err := db.Migrate(context.Background(), migrations.FS); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return db
}
