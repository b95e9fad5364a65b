package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lox/chiptracker/internal/room"
	_ "github.com/mattn/go-sqlite3"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS rooms (
	code TEXT PRIMARY KEY,
	state_json TEXT NOT NULL,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);`

// SQLite stores room snapshots as JSON rows.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serialises writers.
	db.SetMaxOpenConns(1)

	s, err := NewSQLite(ctx, db)
	if err != nil {
		_ = db.Close() // Ignore close errors after a failed migration
		return nil, err
	}
	return s, nil
}

// NewSQLite wraps db and makes sure the schema exists.
func NewSQLite(ctx context.Context, db *sql.DB) (*SQLite, error) {
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		return nil, fmt.Errorf("failed to create rooms table: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Create(ctx context.Context, r *room.Room) error {
	data, err := encodeRoom(r)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO rooms (code, state_json) VALUES (?, ?) ON CONFLICT(code) DO NOTHING`,
		r.Code, string(data))
	if err != nil {
		return fmt.Errorf("failed to create room %s: %w", r.Code, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to create room %s: %w", r.Code, err)
	}
	if n == 0 {
		return ErrCodeTaken
	}
	return nil
}

func (s *SQLite) Get(ctx context.Context, code string) (*room.Room, error) {
	var state string
	err := s.db.QueryRowContext(ctx, `SELECT state_json FROM rooms WHERE code = ?`, code).Scan(&state)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get room %s: %w", code, err)
	}
	return decodeRoom(code, []byte(state))
}

func (s *SQLite) Save(ctx context.Context, r *room.Room) error {
	data, err := encodeRoom(r)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE rooms SET state_json = ?, updated_at = CURRENT_TIMESTAMP WHERE code = ?`,
		string(data), r.Code)
	if err != nil {
		return fmt.Errorf("failed to save room %s: %w", r.Code, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to save room %s: %w", r.Code, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLite) Delete(ctx context.Context, code string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM rooms WHERE code = ?`, code); err != nil {
		return fmt.Errorf("failed to delete room %s: %w", code, err)
	}
	return nil
}

func (s *SQLite) Exists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM rooms WHERE code = ?)`, code).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check room %s: %w", code, err)
	}
	return exists, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
