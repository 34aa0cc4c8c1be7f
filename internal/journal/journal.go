package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"
)

// Store is an append-only record of per-account cycle outcomes. It is purely
// observational: no workflow ever reads it back to make decisions.
type Store struct {
	db   *sql.DB
	lock *flock.Flock
}

// Entry is one account's outcome for one cycle.
type Entry struct {
	Cycle      int    `json:"cycle"`
	Address    string `json:"address"`
	Status     string `json:"status"`
	Iterations int    `json:"iterations"`
	Detail     string `json:"detail,omitempty"`
	StartedAt  string `json:"started_at"`
	FinishedAt string `json:"finished_at"`
}

const (
	StatusCompleted  = "completed"
	StatusAuthFailed = "auth_failed"
	StatusKeyInvalid = "key_invalid"
	StatusPanicked   = "panicked"
)

func Open(path, lockPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create journal directory: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return nil, fmt.Errorf("create journal lock directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal sqlite: %w", err)
	}

	queries := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		`CREATE TABLE IF NOT EXISTS cycle_entries (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			cycle INTEGER NOT NULL,
			address TEXT NOT NULL,
			status TEXT NOT NULL,
			recorded_at INTEGER NOT NULL,
			payload BLOB NOT NULL
		);`,
		"CREATE INDEX IF NOT EXISTS idx_cycle_entries_cycle ON cycle_entries(cycle, recorded_at DESC);",
	}
	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init journal schema: %w", err)
		}
	}
	return &Store{db: db, lock: flock.New(lockPath)}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Record(entry Entry) error {
	if strings.TrimSpace(entry.Address) == "" {
		return fmt.Errorf("record entry: missing address")
	}
	locked, err := s.lock.TryLockContext(context.Background(), 5*time.Second)
	if err != nil {
		return fmt.Errorf("lock journal: %w", err)
	}
	if !locked {
		return fmt.Errorf("lock journal: timeout acquiring lock")
	}
	defer func() { _ = s.lock.Unlock() }()

	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}
	_, err = s.db.Exec(
		"INSERT INTO cycle_entries (cycle, address, status, recorded_at, payload) VALUES (?, ?, ?, ?, ?)",
		entry.Cycle, entry.Address, entry.Status, time.Now().UTC().Unix(), payload,
	)
	if err != nil {
		return fmt.Errorf("record entry: %w", err)
	}
	return nil
}

// List returns the most recent entries, optionally filtered to one cycle
// (cycle <= 0 means all cycles).
func (s *Store) List(cycle, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	var (
		rows *sql.Rows
		err  error
	)
	if cycle <= 0 {
		rows, err = s.db.Query("SELECT payload FROM cycle_entries ORDER BY recorded_at DESC, id DESC LIMIT ?", limit)
	} else {
		rows, err = s.db.Query("SELECT payload FROM cycle_entries WHERE cycle = ? ORDER BY recorded_at DESC, id DESC LIMIT ?", cycle, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0)
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan entry row: %w", err)
		}
		var entry Entry
		if err := json.Unmarshal(payload, &entry); err != nil {
			return nil, fmt.Errorf("decode entry row: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entry rows: %w", err)
	}
	return entries, nil
}
