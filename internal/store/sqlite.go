// ABOUTME: SQLite implementation of the Primary store using modernc.org/sqlite
// ABOUTME: Persists the state envelope in a single-row wallet_state table

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLite implements the Primary interface using a single-row table.
type SQLite struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLite opens (or creates) the wallet state database at the given path.
// Parent directories are created if needed.
func NewSQLite(path string) (*SQLite, error) {
	logger := slog.Default().With("component", "store")

	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLite{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// createSchema creates the wallet_state table if it doesn't exist.
// The CHECK constraint pins the table to a single row: walletd owns
// exactly one state slot.
func (s *SQLite) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS wallet_state (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			version INTEGER NOT NULL,
			data BLOB NOT NULL,
			updated_at DATETIME NOT NULL
		);
	`
	_, err := s.db.Exec(schema)
	return err
}

// GetState reads the state envelope. Returns ErrNoState if the slot
// has never been written.
func (s *SQLite) GetState(ctx context.Context) (*Envelope, error) {
	query := `SELECT version, data FROM wallet_state WHERE id = 1`

	var version int
	var blob []byte
	err := s.db.QueryRowContext(ctx, query).Scan(&version, &blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoState
	}
	if err != nil {
		return nil, fmt.Errorf("reading state: %w", err)
	}

	var data map[string]any
	if err := json.Unmarshal(blob, &data); err != nil {
		return nil, fmt.Errorf("decoding state data: %w", err)
	}

	return &Envelope{Version: version, Data: data}, nil
}

// PutState writes the state envelope, replacing any previous contents.
func (s *SQLite) PutState(ctx context.Context, env *Envelope) error {
	blob, err := json.Marshal(env.Data)
	if err != nil {
		return fmt.Errorf("encoding state data: %w", err)
	}

	query := `
		INSERT INTO wallet_state (id, version, data, updated_at)
		VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			version = excluded.version,
			data = excluded.data,
			updated_at = excluded.updated_at
	`
	if _, err := s.db.ExecContext(ctx, query, env.Version, blob, time.Now().UTC()); err != nil {
		return fmt.Errorf("writing state: %w", err)
	}

	return nil
}

// Close closes the underlying database.
func (s *SQLite) Close() error {
	return s.db.Close()
}
