package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/yenshow/ba-frontend/internal/infrastructure/database"
)

// slotKey is the single row the console uses in session_slots.
const slotKey = "default"

// SQLitePersister stores the slot in the session_slots table. The table is
// created by the embedded migrations.
type SQLitePersister struct {
	db *database.DB
}

// NewSQLitePersister returns a persister backed by db.
func NewSQLitePersister(db *database.DB) *SQLitePersister {
	return &SQLitePersister{db: db}
}

// Load reads the slot row.
func (p *SQLitePersister) Load(ctx context.Context) (*Slot, error) {
	var (
		slot              Slot
		userJSON          string
		savedAt, expireAt string
	)
	err := p.db.QueryRowContext(ctx,
		`SELECT token, user_json, saved_at, expires_at FROM session_slots WHERE slot_key = ?`,
		slotKey,
	).Scan(&slot.Token, &userJSON, &savedAt, &expireAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading session slot: %w", err)
	}

	if err := json.Unmarshal([]byte(userJSON), &slot.User); err != nil {
		return nil, fmt.Errorf("%w: user: %v", ErrCorruptSlot, err)
	}
	if slot.SavedAt, err = time.Parse(time.RFC3339Nano, savedAt); err != nil {
		return nil, fmt.Errorf("%w: saved_at: %v", ErrCorruptSlot, err)
	}
	if slot.ExpiresAt, err = time.Parse(time.RFC3339Nano, expireAt); err != nil {
		return nil, fmt.Errorf("%w: expires_at: %v", ErrCorruptSlot, err)
	}
	return &slot, nil
}

// Save upserts the slot row.
func (p *SQLitePersister) Save(ctx context.Context, slot Slot) error {
	userJSON, err := json.Marshal(slot.User)
	if err != nil {
		return fmt.Errorf("encoding session user: %w", err)
	}
	_, err = p.db.ExecContext(ctx, `
		INSERT INTO session_slots (slot_key, token, user_json, saved_at, expires_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(slot_key) DO UPDATE SET
			token = excluded.token,
			user_json = excluded.user_json,
			saved_at = excluded.saved_at,
			expires_at = excluded.expires_at`,
		slotKey, slot.Token, string(userJSON),
		slot.SavedAt.UTC().Format(time.RFC3339Nano),
		slot.ExpiresAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("saving session slot: %w", err)
	}
	return nil
}

// Delete removes the slot row.
func (p *SQLitePersister) Delete(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, `DELETE FROM session_slots WHERE slot_key = ?`, slotKey); err != nil {
		return fmt.Errorf("deleting session slot: %w", err)
	}
	return nil
}
