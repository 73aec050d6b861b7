package postgres

import (
	"context"
	"database/sql"
	"errors"
)

// Slot persists carts in PostgreSQL. The caller must ensure the database
// has a cart_slots table (see pkg/db migrations).
type Slot struct {
	db *sql.DB
}

// New creates a PostgreSQL slot.
func New(db *sql.DB) *Slot {
	return &Slot{db: db}
}

// Get retrieves the value stored under key.
func (s *Slot) Get(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM cart_slots WHERE key=$1", key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

// Set inserts or replaces the value stored under key.
func (s *Slot) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO cart_slots (key, value, updated_at) VALUES ($1, $2, NOW())
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`, key, value)
	return err
}

// Delete removes key.
func (s *Slot) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM cart_slots WHERE key=$1", key)
	return err
}
