package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sadopc/timekeep/internal/clock"
	"github.com/sadopc/timekeep/internal/events"
	"github.com/sadopc/timekeep/internal/models"
	_ "modernc.org/sqlite"
)

const currentVersion = 1

// runningTimerAbort is the RAISE message of the single-running-entry triggers.
const runningTimerAbort = "Only one running timer allowed"

type Store struct {
	db       *sql.DB
	mu       sync.Mutex // serializes compound check-then-write transactions
	clock    clock.Clock
	notifier events.Notifier
}

type Option func(*Store)

// WithClock sets the source of "now" for timestamps and open-entry bounds.
func WithClock(c clock.Clock) Option {
	return func(s *Store) { s.clock = c }
}

// WithNotifier publishes every committed entry change to n.
func WithNotifier(n events.Notifier) Option {
	return func(s *Store) { s.notifier = n }
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// New opens (or creates) the SQLite database at dbPath and runs migrations.
func New(dbPath string, opts ...Option) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// One connection: SQLite has a single writer, and ":memory:" databases
	// are per-connection.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db, clock: clock.System{}}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// NewMemory creates an in-memory store for testing.
func NewMemory(opts ...Option) (*Store, error) {
	return New(":memory:", opts...)
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Now returns the store clock's current instant.
func (s *Store) Now() int64 {
	return s.clock.Now()
}

// withTx runs fn inside a transaction. Only one such transaction runs at a
// time, so a check followed by a write inside fn is atomic for this process.
func (s *Store) withTx(fn func(tx *sql.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) publish(op events.Op, e *models.TimeEntry) {
	if s.notifier == nil || e == nil {
		return
	}
	s.notifier.Publish(events.Event{Op: op, Entry: *e})
}

func isRunningTimerError(err error) bool {
	return err != nil && strings.Contains(err.Error(), runningTimerAbort)
}

func (s *Store) migrate() error {
	var version int
	err := s.db.QueryRow("PRAGMA user_version").Scan(&version)
	if err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}

	if version >= currentVersion {
		return nil
	}

	if version < 1 {
		if err := s.migrateV1(); err != nil {
			return err
		}
	}

	_, err = s.db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentVersion))
	return err
}

func (s *Store) migrateV1() error {
	const ddl = `
	CREATE TABLE IF NOT EXISTS category (
		id          INTEGER PRIMARY KEY,
		name        TEXT NOT NULL,
		sort_order  INTEGER NOT NULL DEFAULT 0,
		created_at  INTEGER NOT NULL,
		updated_at  INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS project (
		id          INTEGER PRIMARY KEY,
		category_id INTEGER NOT NULL REFERENCES category(id) ON DELETE CASCADE,
		name        TEXT NOT NULL,
		color       TEXT,
		sort_order  INTEGER NOT NULL DEFAULT 0,
		is_archived INTEGER NOT NULL DEFAULT 0,
		created_at  INTEGER NOT NULL,
		updated_at  INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS task (
		id             INTEGER PRIMARY KEY,
		project_id     INTEGER NOT NULL REFERENCES project(id) ON DELETE CASCADE,
		parent_task_id INTEGER REFERENCES task(id) ON DELETE SET NULL,
		name           TEXT NOT NULL,
		note           TEXT NOT NULL DEFAULT '',
		sort_order     INTEGER NOT NULL DEFAULT 0,
		is_archived    INTEGER NOT NULL DEFAULT 0,
		created_at     INTEGER NOT NULL,
		updated_at     INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS time_entry (
		id         INTEGER PRIMARY KEY,
		uid        TEXT NOT NULL UNIQUE,
		task_id    INTEGER NOT NULL REFERENCES task(id) ON DELETE CASCADE,
		start_at   INTEGER NOT NULL,
		end_at     INTEGER,
		note       TEXT NOT NULL DEFAULT '',
		source     TEXT NOT NULL DEFAULT 'timer',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		CHECK (end_at IS NULL OR end_at >= start_at),
		CHECK (source IN ('timer', 'manual', 'recovered'))
	);

	CREATE TABLE IF NOT EXISTS tag (
		id         INTEGER PRIMARY KEY,
		name       TEXT NOT NULL UNIQUE,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		CHECK (length(name) > 0),
		CHECK (name = lower(name)),
		CHECK (name NOT GLOB '*[^a-z0-9_-]*')
	);

	CREATE TABLE IF NOT EXISTS task_tag (
		task_id    INTEGER NOT NULL REFERENCES task(id) ON DELETE CASCADE,
		tag_id     INTEGER NOT NULL REFERENCES tag(id) ON DELETE CASCADE,
		created_at INTEGER NOT NULL,
		PRIMARY KEY (task_id, tag_id)
	);

	CREATE TABLE IF NOT EXISTS working_hours (
		weekday        INTEGER PRIMARY KEY,
		minutes_target INTEGER NOT NULL DEFAULT 0,
		CHECK (weekday BETWEEN 1 AND 7),
		CHECK (minutes_target >= 0)
	);

	CREATE TABLE IF NOT EXISTS break_rules (
		id              INTEGER PRIMARY KEY CHECK (id = 1),
		min_gap_minutes INTEGER NOT NULL DEFAULT 5,
		max_gap_minutes INTEGER NOT NULL DEFAULT 240,
		CHECK (min_gap_minutes >= 0),
		CHECK (max_gap_minutes >= 0)
	);

	CREATE TABLE IF NOT EXISTS app_settings (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_project_category   ON project(category_id);
	CREATE INDEX IF NOT EXISTS idx_task_project       ON task(project_id);
	CREATE INDEX IF NOT EXISTS idx_task_parent        ON task(parent_task_id);
	CREATE INDEX IF NOT EXISTS idx_entry_task_start   ON time_entry(task_id, start_at);
	CREATE INDEX IF NOT EXISTS idx_entry_start        ON time_entry(start_at);
	CREATE INDEX IF NOT EXISTS idx_task_tag_tag_id    ON task_tag(tag_id);

	CREATE TRIGGER IF NOT EXISTS trg_one_running_timer
	BEFORE INSERT ON time_entry
	WHEN NEW.end_at IS NULL
	BEGIN
		SELECT CASE
			WHEN EXISTS (SELECT 1 FROM time_entry WHERE end_at IS NULL)
			THEN RAISE(ABORT, 'Only one running timer allowed')
		END;
	END;

	CREATE TRIGGER IF NOT EXISTS trg_one_running_timer_update
	BEFORE UPDATE OF end_at ON time_entry
	WHEN NEW.end_at IS NULL
	BEGIN
		SELECT CASE
			WHEN EXISTS (SELECT 1 FROM time_entry WHERE end_at IS NULL AND id != NEW.id)
			THEN RAISE(ABORT, 'Only one running timer allowed')
		END;
	END;

	INSERT OR IGNORE INTO working_hours (weekday, minutes_target) VALUES
		(1, 0), (2, 0), (3, 0), (4, 0), (5, 0), (6, 0), (7, 0);

	INSERT OR IGNORE INTO break_rules (id, min_gap_minutes, max_gap_minutes) VALUES (1, 5, 240);
	`
	_, err := s.db.Exec(ddl)
	return err
}

// Reset deletes every category, project, task, tag and entry. Working hours,
// break rules and settings are kept.
func (s *Store) Reset() error {
	return s.withTx(func(tx *sql.Tx) error {
		for _, table := range []string{"time_entry", "task_tag", "tag", "task", "project", "category"} {
			if _, err := tx.Exec(`DELETE FROM ` + table); err != nil {
				return fmt.Errorf("reset %s: %w", table, err)
			}
		}
		return nil
	})
}

// DefaultDBPath returns ~/.config/timekeep/timekeep.db
func DefaultDBPath() (string, error) {
	cfg, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cfg, "timekeep", "timekeep.db"), nil
}
