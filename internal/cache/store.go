// Package cache memoizes engine encodings in a SQLite table.
//
// Encoding is a pure function of (architecture, mode, endianness, syntax,
// text), so both successful encodings and line errors can be replayed.
// Engine faults are never stored.
package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"ksapi/internal/engine"
)

// Key identifies one cached line.
type Key struct {
	Config engine.Config
	Text   string
}

func (k Key) String() string {
	return k.Config.String() + "\x00" + k.Text
}

// Entry is a cached engine answer. Exactly one of Encoding or Err is set.
type Entry struct {
	Encoding engine.Encoding
	Err      *engine.AsmError
}

// Store is the SQLite-backed table of entries.
type Store struct {
	db   *sql.DB
	path string
}

// OpenStore creates or opens the cache database at path.
func OpenStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize cache schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS encodings (
		arch INTEGER NOT NULL,
		mode INTEGER NOT NULL,
		endian INTEGER NOT NULL,
		syntax INTEGER NOT NULL,
		text TEXT NOT NULL,
		bytes BLOB,
		count INTEGER NOT NULL DEFAULT 0,
		err_code INTEGER,
		err_message TEXT,
		created_at DATETIME NOT NULL,
		PRIMARY KEY (arch, mode, endian, syntax, text)
	);`)
	return err
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Get returns the entry for key. The bool is false on a miss.
func (s *Store) Get(ctx context.Context, key Key) (Entry, bool, error) {
	var (
		raw     []byte
		count   int
		code    sql.NullInt64
		message sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT bytes, count, err_code, err_message FROM encodings
		WHERE arch = ? AND mode = ? AND endian = ? AND syntax = ? AND text = ?`,
		int(key.Config.Arch), int(key.Config.Mode), int(key.Config.Endian), int(key.Config.Syntax), key.Text,
	).Scan(&raw, &count, &code, &message)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("cache lookup: %w", err)
	}

	if code.Valid {
		return Entry{Err: &engine.AsmError{
			Code:        int(code.Int64),
			Message:     message.String,
			Instruction: key.Text,
		}}, true, nil
	}
	if raw == nil {
		raw = []byte{}
	}
	return Entry{Encoding: engine.Encoding{Bytes: raw, Count: count}}, true, nil
}

// Put stores e under key, replacing any earlier entry.
func (s *Store) Put(ctx context.Context, key Key, e Entry) error {
	var (
		raw     []byte
		count   int
		code    sql.NullInt64
		message sql.NullString
	)
	if e.Err != nil {
		code = sql.NullInt64{Int64: int64(e.Err.Code), Valid: true}
		message = sql.NullString{String: e.Err.Message, Valid: true}
	} else {
		raw = e.Encoding.Bytes
		count = e.Encoding.Count
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO encodings (arch, mode, endian, syntax, text, bytes, count, err_code, err_message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		int(key.Config.Arch), int(key.Config.Mode), int(key.Config.Endian), int(key.Config.Syntax), key.Text,
		raw, count, code, message, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("cache store: %w", err)
	}
	return nil
}

// Len returns the number of cached lines.
func (s *Store) Len(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM encodings`).Scan(&n); err != nil {
		return 0, fmt.Errorf("cache count: %w", err)
	}
	return n, nil
}

// Purge deletes every entry.
func (s *Store) Purge(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM encodings`); err != nil {
		return fmt.Errorf("cache purge: %w", err)
	}
	return nil
}
