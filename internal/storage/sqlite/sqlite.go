package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"focustrack/internal/event"
	"focustrack/internal/storage"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

const (
	DriverCgo    = "sqlite3" // github.com/mattn/go-sqlite3
	DriverPureGo = "sqlite"  // modernc.org/sqlite
)

type SQLiteStore struct {
	db     *sql.DB
	dbPath string
	driver string
}

// NewSQLiteStore returns an uninitialised store; call Init before use.
// An empty driver selects the cgo driver.
func NewSQLiteStore(dbPath, driver string) storage.Storage {
	if driver == "" {
		driver = DriverCgo
	}
	return &SQLiteStore{dbPath: dbPath, driver: driver}
}

const createTablesSQL = `
CREATE TABLE IF NOT EXISTS focus_sessions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT,
	duration_minutes INTEGER NOT NULL,
	ended_at INTEGER NOT NULL,
	status TEXT NOT NULL,
	tag TEXT NOT NULL DEFAULT 'Untagged'
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_focus_sessions_run_id ON focus_sessions (run_id) WHERE run_id IS NOT NULL;
CREATE INDEX IF NOT EXISTS idx_focus_sessions_ended_at ON focus_sessions (ended_at);

CREATE TABLE IF NOT EXISTS timer_state (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS tasks (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL,
	completed BOOLEAN NOT NULL DEFAULT 0
);
`

func (s *SQLiteStore) dsn() (string, error) {
	switch s.driver {
	case DriverCgo:
		return s.dbPath + "?_journal=WAL&_timeout=5000&_fk=true", nil
	case DriverPureGo:
		return "file:" + s.dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)", nil
	default:
		return "", fmt.Errorf("unsupported sqlite driver %q", s.driver)
	}
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	dir := filepath.Dir(s.dbPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create db directory %s: %w", dir, err)
	}

	dsn, err := s.dsn()
	if err != nil {
		return err
	}

	log.Printf("Initializing SQLite database at: %s (driver %s)", s.dbPath, s.driver)
	db, err := sql.Open(s.driver, dsn)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}
	s.db = db

	// One connection serializes every write, which the ledger relies on.
	s.db.SetMaxOpenConns(1)
	s.db.SetMaxIdleConns(1)
	s.db.SetConnMaxLifetime(time.Minute * 5)

	if err := s.db.PingContext(ctx); err != nil {
		s.db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, createTablesSQL); err != nil {
		s.db.Close()
		return fmt.Errorf("failed to create tables: %w", err)
	}
	log.Println("Database initialized successfully.")
	return nil
}

func (s *SQLiteStore) conn() (*sql.DB, error) {
	if s.db == nil {
		return nil, storage.ErrClosed
	}
	return s.db, nil
}

// --- Ledger ---

func (s *SQLiteStore) Append(ctx context.Context, fs event.FocusSession) (int64, error) {
	db, err := s.conn()
	if err != nil {
		return 0, err
	}
	if fs.Tag == "" {
		fs.Tag = event.DefaultTag
	}
	var runID sql.NullString
	if fs.RunID != "" {
		runID = sql.NullString{String: fs.RunID, Valid: true}
	}

	query := `INSERT OR IGNORE INTO focus_sessions (run_id, duration_minutes, ended_at, status, tag)
	          VALUES (?, ?, ?, ?, ?)`
	res, err := db.ExecContext(ctx, query, runID, fs.DurationMinutes, fs.Timestamp.UnixMilli(), string(fs.Status), fs.Tag)
	if err != nil {
		return 0, fmt.Errorf("failed to insert focus session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 && runID.Valid {
		var id int64
		err := db.QueryRowContext(ctx, `SELECT id FROM focus_sessions WHERE run_id = ?`, runID).Scan(&id)
		if err != nil {
			return 0, fmt.Errorf("failed to look up existing run %s: %w", fs.RunID, err)
		}
		log.Printf("Session for run %s already recorded (id %d), skipping", fs.RunID, id)
		return id, nil
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID: %w", err)
	}
	return id, nil
}

func (s *SQLiteStore) QueryAll(ctx context.Context) ([]event.FocusSession, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx,
		`SELECT id, run_id, duration_minutes, ended_at, status, tag FROM focus_sessions ORDER BY ended_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query focus sessions: %w", err)
	}
	defer rows.Close()

	var sessions []event.FocusSession
	for rows.Next() {
		var fs event.FocusSession
		var runID sql.NullString
		var endedAt int64
		var status string
		if err := rows.Scan(&fs.ID, &runID, &fs.DurationMinutes, &endedAt, &status, &fs.Tag); err != nil {
			return nil, fmt.Errorf("failed to scan focus session row: %w", err)
		}
		fs.RunID = runID.String
		fs.Timestamp = time.UnixMilli(endedAt)
		if fs.Status, err = event.ParseSessionStatus(status); err != nil {
			return nil, fmt.Errorf("focus session %d: %w", fs.ID, err)
		}
		sessions = append(sessions, fs)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating focus session rows: %w", err)
	}
	return sessions, nil
}

// SumRange totals minutes of sessions ending within [start, end].
func (s *SQLiteStore) SumRange(ctx context.Context, start, end time.Time) (int, error) {
	db, err := s.conn()
	if err != nil {
		return 0, err
	}
	var total int
	err = db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(duration_minutes), 0) FROM focus_sessions WHERE ended_at >= ? AND ended_at <= ?`,
		start.UnixMilli(), end.UnixMilli()).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum focus minutes: %w", err)
	}
	return total, nil
}

func (s *SQLiteStore) TotalMinutes(ctx context.Context) (int, error) {
	db, err := s.conn()
	if err != nil {
		return 0, err
	}
	var total int
	if err := db.QueryRowContext(ctx, `SELECT COALESCE(SUM(duration_minutes), 0) FROM focus_sessions`).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to total focus minutes: %w", err)
	}
	return total, nil
}

// --- TaskCounter ---

func (s *SQLiteStore) CountCompletedTasks(ctx context.Context) (int, error) {
	db, err := s.conn()
	if err != nil {
		return 0, err
	}
	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks WHERE completed = 1`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count completed tasks: %w", err)
	}
	return n, nil
}

// --- StateStore ---

func (s *SQLiteStore) Get(ctx context.Context, key string) (string, bool, error) {
	db, err := s.conn()
	if err != nil {
		return "", false, err
	}
	var value string
	err = db.QueryRowContext(ctx, `SELECT value FROM timer_state WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read state key %s: %w", key, err)
	}
	return value, true, nil
}

func (s *SQLiteStore) Put(ctx context.Context, key, value string) error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx,
		`INSERT INTO timer_state (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("failed to write state key %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) Clear(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	db, err := s.conn()
	if err != nil {
		return err
	}
	placeholders := strings.Repeat("?,", len(keys)-1) + "?"
	args := make([]interface{}, 0, len(keys))
	for _, k := range keys {
		args = append(args, k)
	}
	query := fmt.Sprintf("DELETE FROM timer_state WHERE key IN (%s)", placeholders)
	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to clear state keys: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		log.Println("Closing database connection.")
		err := s.db.Close()
		s.db = nil
		return err
	}
	return nil
}
