// Package cache remembers files that passed a check so unchanged files can be
// skipped on the next check run. Entries are keyed by path, content and the
// configuration fingerprint.
package cache

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

const (
	dbFileName = "cache.db"

	currentSchemaVersion = 1

	// entryTTL bounds how long a clean result is trusted, since tool
	// upgrades do not change the fingerprint.
	entryTTL = 30 * 24 * time.Hour
)

// DefaultDir returns the per-user cache directory.
func DefaultDir() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("resolving user cache directory: %w", err)
	}
	return filepath.Join(base, "check-format"), nil
}

// Store is a SQLite-backed set of clean file keys. It is safe for concurrent use.
type Store struct {
	db          *sql.DB
	path        string
	fingerprint string
}

// Open creates or opens the cache in dir.
func Open(dir, fingerprint string) (*Store, error) {
	// #nosec G301 - owner-only cache directory
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}
	path := filepath.Join(dir, dbFileName)

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}
	// Workers share one connection; SQLite has a single writer anyway.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &Store{db: db, path: path, fingerprint: fingerprint}
	if err := s.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init() error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := s.db.Exec(p); err != nil {
			return fmt.Errorf("executing %s: %w", p, err)
		}
	}

	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at INTEGER NOT NULL
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	var version int
	if err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&version); err != nil {
		return fmt.Errorf("querying schema version: %w", err)
	}
	if version < currentSchemaVersion {
		if err := s.migrate(); err != nil {
			return err
		}
	}

	cutoff := time.Now().Add(-entryTTL).Unix()
	if _, err := s.db.Exec("DELETE FROM clean_files WHERE recorded_at < ?", cutoff); err != nil {
		return fmt.Errorf("pruning expired entries: %w", err)
	}
	return nil
}

func (s *Store) migrate() error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning migration: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`CREATE TABLE IF NOT EXISTS clean_files (
		key TEXT PRIMARY KEY,
		path TEXT NOT NULL,
		recorded_at INTEGER NOT NULL
	)`); err != nil {
		return fmt.Errorf("creating clean_files table: %w", err)
	}
	if _, err := tx.Exec("CREATE INDEX IF NOT EXISTS idx_clean_files_recorded_at ON clean_files(recorded_at)"); err != nil {
		return fmt.Errorf("creating index: %w", err)
	}
	if _, err := tx.Exec("INSERT INTO schema_version (version, applied_at) VALUES (?, ?)",
		currentSchemaVersion, time.Now().Unix()); err != nil {
		return fmt.Errorf("recording schema version: %w", err)
	}
	return tx.Commit()
}

// Key identifies one file state under the store's configuration.
func (s *Store) Key(path string, content []byte) string {
	h := sha256.New()
	h.Write([]byte(s.fingerprint))
	h.Write([]byte{0})
	h.Write([]byte(path))
	h.Write([]byte{0})
	h.Write(content)
	return hex.EncodeToString(h.Sum(nil))
}

// IsClean reports whether key was recorded as passing.
func (s *Store) IsClean(key string) (bool, error) {
	var one int
	err := s.db.QueryRow("SELECT 1 FROM clean_files WHERE key = ?", key).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("querying cache: %w", err)
	}
	return true, nil
}

// Entry is a clean file to record.
type Entry struct {
	Key  string
	Path string
}

// MarkClean records entries in one transaction.
func (s *Store) MarkClean(entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare("INSERT OR REPLACE INTO clean_files (key, path, recorded_at) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	now := time.Now().Unix()
	for _, e := range entries {
		if _, err := stmt.Exec(e.Key, e.Path, now); err != nil {
			return fmt.Errorf("recording %s: %w", e.Path, err)
		}
	}
	return tx.Commit()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
