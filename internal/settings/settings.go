// Package settings persists user preferences, recent projects and run
// history in a SQLite database.
package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/joss/benchsim/internal/store"
)

// Key names a persisted setting. Names match the desktop app's JSON file so
// legacy configs import unchanged.
type Key string

const (
	KeyFolder    Key = "verilog_folder"
	KeyMode      Key = "project_mode"
	KeyTestbench Key = "selected_tb"
	KeyCompiler  Key = "iverilog_path"
	KeyViewer    Key = "gtkwave_path"
	KeyLanguage  Key = "language"
	KeyTheme     Key = "theme"
)

// Keys lists every user-visible setting in display order.
var Keys = []Key{KeyFolder, KeyMode, KeyTestbench, KeyCompiler, KeyViewer, KeyLanguage, KeyTheme}

var defaults = map[Key]string{
	KeyMode:     "auto",
	KeyLanguage: "en",
	KeyTheme:    "dark",
}

// ParseKey validates a setting name.
func ParseKey(s string) (Key, error) {
	for _, k := range Keys {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", store.ErrInvalidKey, s)
}

// RecentLimit caps the recent projects list.
const RecentLimit = 12

const legacyImportedKey = "_legacy_imported"

// Settings is a snapshot of all user-visible settings.
type Settings struct {
	Folder    string
	Mode      string
	Testbench string
	Compiler  string
	Viewer    string
	Language  string
	Theme     string
}

func (s *Settings) field(k Key) *string {
	switch k {
	case KeyFolder:
		return &s.Folder
	case KeyMode:
		return &s.Mode
	case KeyTestbench:
		return &s.Testbench
	case KeyCompiler:
		return &s.Compiler
	case KeyViewer:
		return &s.Viewer
	case KeyLanguage:
		return &s.Language
	case KeyTheme:
		return &s.Theme
	}
	return nil
}

// Value returns the value stored under k.
func (s Settings) Value(k Key) string {
	if p := s.field(k); p != nil {
		return *p
	}
	return ""
}

// Store is the SQLite-backed settings store.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

var _ store.Store = (*Store)(nil)

// Open opens (creating if needed) the database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal=WAL&_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &Store{db: db, path: path, now: time.Now}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS config (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS recent_projects (
		folder TEXT PRIMARY KEY,
		used_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_recent_used ON recent_projects(used_at DESC);

	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		folder TEXT NOT NULL,
		mode TEXT NOT NULL,
		testbench TEXT NOT NULL,
		stage TEXT NOT NULL,
		success INTEGER NOT NULL,
		started_at DATETIME NOT NULL,
		duration_ms INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at DESC);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Path returns the database file.
func (s *Store) Path() string {
	return s.path
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", store.ErrConnection, err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Config operations

// Get returns the stored value for key, or its default. Keys with neither
// yield a NotFoundError.
func (s *Store) Get(ctx context.Context, key Key) (string, error) {
	v, err := s.getRaw(ctx, string(key))
	if store.IsNotFound(err) {
		if d, ok := defaults[key]; ok {
			return d, nil
		}
	}
	return v, err
}

func (s *Store) getRaw(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM config WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", store.NewNotFoundError("setting", key)
	}
	return value, err
}

// Set stores value under key.
func (s *Store) Set(ctx context.Context, key Key, value string) error {
	return s.setRaw(ctx, string(key), value)
}

func (s *Store) setRaw(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

// Load returns every setting, defaults filled in.
func (s *Store) Load(ctx context.Context) (Settings, error) {
	var out Settings
	for k, v := range defaults {
		*out.field(k) = v
	}

	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM config`)
	if err != nil {
		return out, err
	}
	defer rows.Close()

	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return out, err
		}
		if p := out.field(Key(k)); p != nil {
			*p = v
		}
	}
	return out, rows.Err()
}

// Update writes the given key/value pairs in one transaction.
func (s *Store) Update(ctx context.Context, updates map[Key]string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for k, v := range updates {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO config (key, value) VALUES (?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value
		`, string(k), v); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Recent project operations

// PushRecent moves folder to the front of the recent list, trimming the
// list to RecentLimit entries.
func (s *Store) PushRecent(ctx context.Context, folder string) error {
	if folder == "" {
		return nil
	}
	if abs, err := filepath.Abs(folder); err == nil {
		folder = abs
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Strictly increasing stamps keep ordering stable within one clock tick.
	var last sql.NullInt64
	if err := tx.QueryRowContext(ctx, `SELECT MAX(used_at) FROM recent_projects`).Scan(&last); err != nil {
		return err
	}
	stamp := s.now().UnixNano()
	if last.Valid && stamp <= last.Int64 {
		stamp = last.Int64 + 1
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO recent_projects (folder, used_at) VALUES (?, ?)
		ON CONFLICT(folder) DO UPDATE SET used_at = excluded.used_at
	`, folder, stamp); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM recent_projects WHERE folder NOT IN (
			SELECT folder FROM recent_projects ORDER BY used_at DESC LIMIT ?
		)
	`, RecentLimit); err != nil {
		return err
	}
	return tx.Commit()
}

// Recent returns recent folders, most recent first. Entries whose folder no
// longer exists are pruned.
func (s *Store) Recent(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT folder FROM recent_projects ORDER BY used_at DESC`)
	if err != nil {
		return nil, err
	}
	var all []string
	for rows.Next() {
		var f string
		if err := rows.Scan(&f); err != nil {
			rows.Close()
			return nil, err
		}
		all = append(all, f)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var kept []string
	for _, f := range all {
		if _, err := os.Stat(f); err != nil {
			if _, err := s.db.ExecContext(ctx, `DELETE FROM recent_projects WHERE folder = ?`, f); err != nil {
				return nil, err
			}
			continue
		}
		kept = append(kept, f)
	}
	return kept, nil
}

// ClearRecent empties the recent list.
func (s *Store) ClearRecent(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM recent_projects`)
	return err
}
