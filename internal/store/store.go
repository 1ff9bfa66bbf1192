// Package store handles SQLite persistence.
package store

import (
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver.
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a record violates a uniqueness constraint.
	ErrConflict = errors.New("already exists")
)

// Store wraps SQLite access for passages, results and admins.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite serializes writers; a single connection avoids SQLITE_BUSY under the API server.
	db.SetMaxOpenConns(1)
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS passages (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			lang TEXT NOT NULL,
			exam TEXT NOT NULL,
			text TEXT NOT NULL,
			word_count INTEGER NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS results (
			id TEXT PRIMARY KEY,
			passage_id TEXT NOT NULL,
			candidate TEXT NOT NULL,
			exam TEXT NOT NULL,
			lang TEXT NOT NULL,
			source TEXT NOT NULL,
			started_at TEXT NOT NULL,
			ended_at TEXT NOT NULL,
			duration_ms INTEGER NOT NULL,
			typed_text TEXT NOT NULL,
			reference_text TEXT NOT NULL,
			correct_words INTEGER NOT NULL,
			incorrect_words INTEGER NOT NULL,
			missing_words INTEGER NOT NULL,
			gross_wpm REAL NOT NULL,
			net_wpm REAL NOT NULL,
			accuracy REAL NOT NULL,
			passed INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS result_word_stats (
			result_id TEXT NOT NULL,
			word TEXT NOT NULL,
			correct INTEGER NOT NULL,
			incorrect INTEGER NOT NULL,
			PRIMARY KEY (result_id, word)
		);`,
		`CREATE TABLE IF NOT EXISTS admins (
			id TEXT PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			created_at TEXT NOT NULL,
			last_login TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_results_ended_at ON results(ended_at);`,
		`CREATE INDEX IF NOT EXISTS idx_results_exam ON results(exam);`,
		`CREATE INDEX IF NOT EXISTS idx_passages_lang_exam ON passages(lang, exam);`,
		`CREATE INDEX IF NOT EXISTS idx_result_word_stats_word ON result_word_stats(word);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// timeLayout keeps nine fractional digits so stored times sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func placeholders(n int) string {
	marks := make([]string, n)
	for i := range marks {
		marks[i] = "?"
	}
	return strings.Join(marks, ",")
}

func closeRows(rows *sql.Rows) {
	if cerr := rows.Close(); cerr != nil {
		// Best-effort rows close.
		_ = cerr
	}
}
