// Package history is the SQLite-backed append-only storage layer for
// caro's HistoryStore. It knows nothing about encryption or redaction —
// internal/memory is the only caller, and it hands this package opaque
// ciphertext to persist. Keeping the two concerns apart means a bug in
// the storage layer can never accidentally persist plaintext.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/wildcard/caro/internal/logging"
)

const schema = `
CREATE TABLE IF NOT EXISTS history_index (
	id         TEXT PRIMARY KEY,
	created_at INTEGER NOT NULL,
	backend    TEXT NOT NULL,
	risk       TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS history_body (
	id         TEXT PRIMARY KEY REFERENCES history_index(id),
	ciphertext BLOB NOT NULL,
	nonce      BLOB NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_history_created_at ON history_index(created_at);

CREATE TABLE IF NOT EXISTS learning_candidates (
	id                TEXT PRIMARY KEY,
	phrase            TEXT NOT NULL,
	rejected_command  TEXT NOT NULL,
	corrected_command TEXT NOT NULL,
	count             INTEGER NOT NULL DEFAULT 1,
	status            TEXT NOT NULL DEFAULT 'pending',
	created_at        INTEGER NOT NULL,
	updated_at        INTEGER NOT NULL,
	UNIQUE(phrase, rejected_command, corrected_command)
);
`

// Record is one opaque, encrypted HistoryEntry as seen by the storage
// layer: a small unencrypted index row for listing, and a ciphertext body
// that only internal/memory's cipher can open.
type Record struct {
	ID         string
	CreatedAt  time.Time
	Backend    string
	Risk       string
	Ciphertext []byte
	Nonce      []byte
}

// IndexEntry is the unencrypted listing projection of a Record.
type IndexEntry struct {
	ID        string
	CreatedAt time.Time
	Backend   string
	Risk      string
}

// Store is the process-wide HistoryStore backing database. Writes are
// serialized through mu; reads take the database's own connection pool
// concurrently, matchingper-store write-serialization rule.
type Store struct {
	mu sync.Mutex
	db *sql.DB
}

// Open opens (creating if absent) the SQLite database at path and applies
// the schema. An empty path opens an in-memory database, useful for tests
// and for a privacy-disabled run that never touches disk.
func Open(path string) (*Store, error) {
	dsn := path
	if dsn == "" {
		dsn = ":memory:"
	}
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	db.SetMaxOpenConns(1) // sqlite: one writer; keeps the stdlib pool from racing file locks

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply history schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Append inserts a new, immutable Record. History is append-only: callers
// never update an existing id, only insert new ones or Delete them
// wholesale.
func (s *Store) Append(ctx context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin append: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO history_index (id, created_at, backend, risk) VALUES (?, ?, ?, ?)`,
		rec.ID, rec.CreatedAt.UnixMilli(), rec.Backend, rec.Risk); err != nil {
		return fmt.Errorf("insert history index: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO history_body (id, ciphertext, nonce) VALUES (?, ?, ?)`,
		rec.ID, rec.Ciphertext, rec.Nonce); err != nil {
		return fmt.Errorf("insert history body: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit append: %w", err)
	}
	logging.Get(logging.CategoryMemory).Debug("appended history record %s", rec.ID)
	return nil
}

// List returns the index rows newest-first, up to limit (0 = unbounded).
func (s *Store) List(ctx context.Context, limit int) ([]IndexEntry, error) {
	query := `SELECT id, created_at, backend, risk FROM history_index ORDER BY created_at DESC`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var out []IndexEntry
	for rows.Next() {
		var e IndexEntry
		var createdAtMillis int64
		if err := rows.Scan(&e.ID, &createdAtMillis, &e.Backend, &e.Risk); err != nil {
			return nil, fmt.Errorf("scan history index row: %w", err)
		}
		e.CreatedAt = time.UnixMilli(createdAtMillis)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Get returns the full Record (index + encrypted body) for one id.
func (s *Store) Get(ctx context.Context, id string) (Record, bool, error) {
	var rec Record
	var createdAtMillis int64
	err := s.db.QueryRowContext(ctx,
		`SELECT i.id, i.created_at, i.backend, i.risk, b.ciphertext, b.nonce
		 FROM history_index i JOIN history_body b ON b.id = i.id
		 WHERE i.id = ?`, id,
	).Scan(&rec.ID, &createdAtMillis, &rec.Backend, &rec.Risk, &rec.Ciphertext, &rec.Nonce)
	if err == sql.ErrNoRows {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("get history record %s: %w", id, err)
	}
	rec.CreatedAt = time.UnixMilli(createdAtMillis)
	return rec, true, nil
}

// Delete purges both the index row and the body row for id, so a user
// deletion removes both the index and the record body.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM history_body WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete history body: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM history_index WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete history index: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete: %w", err)
	}
	logging.Get(logging.CategoryMemory).Info("purged history record %s", id)
	return nil
}

// PurgeAll deletes every record, used by --purge-history.
func (s *Store) PurgeAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin purge: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM history_body`); err != nil {
		return fmt.Errorf("purge history body: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM history_index`); err != nil {
		return fmt.Errorf("purge history index: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit purge: %w", err)
	}
	logging.Get(logging.CategoryMemory).Info("purged all history records")
	return nil
}
