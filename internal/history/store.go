// Package history keeps a SQLite log of assembly jobs.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Status summarizes how a job ended.
type Status string

const (
	StatusOK      Status = "ok"      // every line encoded
	StatusPartial Status = "partial" // some lines failed
	StatusInvalid Status = "invalid" // rejected by validation
	StatusFault   Status = "fault"   // engine fault aborted the job
)

// ErrNotFound is returned by Get for an unknown id.
var ErrNotFound = errors.New("history entry not found")

// Entry is one recorded job.
type Entry struct {
	ID         string    `json:"id"`
	RequestID  string    `json:"request_id,omitempty"`
	Arch       string    `json:"arch,omitempty"`
	Mode       string    `json:"mode,omitempty"`
	Endian     string    `json:"endian,omitempty"`
	Lines      int       `json:"lines"`
	Failed     int       `json:"failed"`
	DurationMs int64     `json:"duration_ms"`
	Status     Status    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

// Store manages the history database.
type Store struct {
	db     *sql.DB
	dbPath string
}

// Open creates or opens the history database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db, dbPath: path}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.dbPath
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS jobs (
		id TEXT PRIMARY KEY,
		request_id TEXT,
		arch TEXT,
		mode TEXT,
		endian TEXT,
		lines INTEGER NOT NULL,
		failed INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		status TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_jobs_created ON jobs(created_at);
	CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Record stores e and returns it with its id and timestamp filled in.
func (s *Store) Record(ctx context.Context, e Entry) (Entry, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	e.CreatedAt = e.CreatedAt.UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO jobs (id, request_id, arch, mode, endian, lines, failed, duration_ms, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.RequestID, e.Arch, e.Mode, e.Endian, e.Lines, e.Failed, e.DurationMs, string(e.Status), e.CreatedAt,
	)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to record job: %w", err)
	}
	return e, nil
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, request_id, arch, mode, endian, lines, failed, duration_ms, status, created_at
		FROM jobs ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query jobs: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Get returns the entry with the given id.
func (s *Store) Get(ctx context.Context, id string) (Entry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, request_id, arch, mode, endian, lines, failed, duration_ms, status, created_at
		FROM jobs WHERE id = ?`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	return e, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(sc scanner) (Entry, error) {
	var (
		e                     Entry
		requestID, arch, mode sql.NullString
		endian                sql.NullString
		status                string
	)
	err := sc.Scan(&e.ID, &requestID, &arch, &mode, &endian, &e.Lines, &e.Failed, &e.DurationMs, &status, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, err
		}
		return Entry{}, fmt.Errorf("failed to scan job: %w", err)
	}
	e.RequestID = requestID.String
	e.Arch = arch.String
	e.Mode = mode.String
	e.Endian = endian.String
	e.Status = Status(status)
	return e, nil
}

// Counts returns the number of recorded jobs per status.
func (s *Store) Counts(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count jobs: %w", err)
	}
	defer rows.Close()

	counts := make(map[Status]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[Status(status)] = n
	}
	return counts, rows.Err()
}

// Prune deletes entries older than cutoff and reports how many went.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE created_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to prune jobs: %w", err)
	}
	return res.RowsAffected()
}
