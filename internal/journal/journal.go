// Package journal records one row per tool invocation in a local SQLite
// database so an agent (or a human via `gitmcp history`) can see what the
// server did and how each call ended.
//
// Only outcome metadata is stored: tool name, ok flag, error code, target
// and timing. Command output, email bodies and credentials never reach it.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// FileName is the database file created inside Config.Dir.
const FileName = "journal.db"

const (
	DefaultLimit = 20
	MaxLimit     = 200
)

const timeLayout = "2006-01-02T15:04:05.000Z"

// ─── Types ───────────────────────────────────────────────────────────────────

// Entry is one recorded tool call.
type Entry struct {
	ID        int64     `json:"id"`
	Tool      string    `json:"tool"`
	OK        bool      `json:"ok"`
	Code      string    `json:"code,omitempty"`
	Target    string    `json:"target,omitempty"`
	ElapsedMS int64     `json:"elapsed_ms"`
	At        time.Time `json:"at"`
}

// Filter narrows Recent.
type Filter struct {
	Tool       string
	FailedOnly bool
	Limit      int
}

// ToolStats aggregates calls of a single tool.
type ToolStats struct {
	Tool     string `json:"tool"`
	Calls    int    `json:"calls"`
	Failures int    `json:"failures"`
}

// Stats holds aggregate journal statistics.
type Stats struct {
	TotalCalls int         `json:"total_calls"`
	Failures   int         `json:"failures"`
	LastCallAt string      `json:"last_call_at,omitempty"`
	Tools      []ToolStats `json:"tools"`
}

// Config holds journal settings.
type Config struct {
	Dir string
}

// Store is the SQLite-backed journal. It is safe for concurrent use.
type Store struct {
	db   *sql.DB
	cfg  Config
	path string
	now  func() time.Time
}

// ─── Lifecycle ───────────────────────────────────────────────────────────────

// New opens (creating if needed) the journal database in cfg.Dir.
func New(cfg Config) (*Store, error) {
	if strings.TrimSpace(cfg.Dir) == "" {
		return nil, fmt.Errorf("journal: data dir is empty")
	}
	if err := os.MkdirAll(cfg.Dir, 0700); err != nil {
		return nil, fmt.Errorf("journal: create data dir: %w", err)
	}

	dbPath := filepath.Join(cfg.Dir, FileName)
	db, err := openDB("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("journal: open database: %w", err)
	}
	// Pragmas are per connection; a single connection keeps them in force
	// and serializes writers.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("journal: pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db, cfg: cfg, path: dbPath, now: time.Now}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("journal: migration: %w", err)
	}

	return s, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS calls (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			tool       TEXT    NOT NULL,
			ok         INTEGER NOT NULL,
			code       TEXT    NOT NULL DEFAULT '',
			target     TEXT    NOT NULL DEFAULT '',
			elapsed_ms INTEGER NOT NULL DEFAULT 0,
			at         TEXT    NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_calls_tool ON calls(tool);
		CREATE INDEX IF NOT EXISTS idx_calls_at   ON calls(at DESC);
	`
	_, err := s.db.Exec(schema)
	return err
}

// ─── Writes ──────────────────────────────────────────────────────────────────

// Record appends e and returns its id. A zero At is stamped with the
// current time.
func (s *Store) Record(ctx context.Context, e Entry) (int64, error) {
	if strings.TrimSpace(e.Tool) == "" {
		return 0, fmt.Errorf("journal: entry has no tool name")
	}
	at := e.At
	if at.IsZero() {
		at = s.now()
	}
	if e.ElapsedMS < 0 {
		e.ElapsedMS = 0
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO calls (tool, ok, code, target, elapsed_ms, at) VALUES (?, ?, ?, ?, ?, ?)`,
		e.Tool, boolToInt(e.OK), e.Code, e.Target, e.ElapsedMS, at.UTC().Format(timeLayout),
	)
	if err != nil {
		return 0, fmt.Errorf("journal: record %s: %w", e.Tool, err)
	}
	return res.LastInsertId()
}

// ─── Reads ───────────────────────────────────────────────────────────────────

// Recent returns the newest entries first. Limit is clamped to
// 1..MaxLimit, defaulting to DefaultLimit.
func (s *Store) Recent(ctx context.Context, f Filter) ([]Entry, error) {
	limit := f.Limit
	switch {
	case limit <= 0:
		limit = DefaultLimit
	case limit > MaxLimit:
		limit = MaxLimit
	}

	query := `SELECT id, tool, ok, code, target, elapsed_ms, at FROM calls WHERE 1=1`
	var args []any
	if tool := strings.TrimSpace(f.Tool); tool != "" {
		query += " AND tool = ?"
		args = append(args, tool)
	}
	if f.FailedOnly {
		query += " AND ok = 0"
	}
	query += " ORDER BY id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("journal: query recent: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []Entry
	for rows.Next() {
		var (
			e  Entry
			ok int
			at string
		)
		if err := rows.Scan(&e.ID, &e.Tool, &ok, &e.Code, &e.Target, &e.ElapsedMS, &at); err != nil {
			return nil, fmt.Errorf("journal: scan entry: %w", err)
		}
		e.OK = ok != 0
		e.At, _ = time.Parse(timeLayout, at)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("journal: iterate entries: %w", err)
	}
	return entries, nil
}

// Stats returns aggregate counts. Individual query failures leave their
// fields at zero.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{Tools: []ToolStats{}}

	_ = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM calls").Scan(&stats.TotalCalls)
	_ = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM calls WHERE ok = 0").Scan(&stats.Failures)

	var last sql.NullString
	_ = s.db.QueryRowContext(ctx, "SELECT MAX(at) FROM calls").Scan(&last)
	stats.LastCallAt = last.String

	rows, err := s.db.QueryContext(ctx,
		`SELECT tool, COUNT(*), SUM(CASE WHEN ok = 0 THEN 1 ELSE 0 END)
		 FROM calls GROUP BY tool ORDER BY COUNT(*) DESC, tool ASC`)
	if err != nil {
		return stats, nil
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var ts ToolStats
		if err := rows.Scan(&ts.Tool, &ts.Calls, &ts.Failures); err == nil {
			stats.Tools = append(stats.Tools, ts)
		}
	}

	return stats, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
