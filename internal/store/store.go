/*
Package store keeps a snapshot of a parsed search table in SQLite.

The snapshot mirrors the search files row for row (duplicate keys included)
so it can be reloaded in original order, and indexes lower-cased names for
prefix lookups. It uses modernc.org/sqlite, a pure Go, CGo-free driver.
*/
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/pawpyseed/doxsearch/internal/searchdata"
)

// SnapshotExt is the file extension of exported snapshots
const SnapshotExt = ".db"

var (
	// ErrClosed is returned by operations on a closed store
	ErrClosed = errors.New("store is closed")
	// ErrNotSnapshot is returned when opening a missing snapshot for reading
	ErrNotSnapshot = errors.New("snapshot does not exist")
)

// IsSnapshot reports whether path names a SQLite snapshot rather than search files
func IsSnapshot(path string) bool {
	return strings.EqualFold(filepath.Ext(path), SnapshotExt)
}

// Store is a SQLite-backed search table snapshot
type Store struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

// Open opens or creates the database at path and runs migrations
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps writes serialized
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return s, nil
}

// OpenExisting opens a snapshot written earlier, without creating one
func OpenExisting(path string) (*Store, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotSnapshot, path)
		}
		return nil, fmt.Errorf("failed to stat snapshot: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrNotSnapshot, path)
	}
	return Open(path)
}

// Path returns the database file path
func (s *Store) Path() string {
	return s.path
}

// Close closes the database connection
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	s.db = nil
	return nil
}

// WriteEntries replaces the stored snapshot with entries in one transaction
func (s *Store) WriteEntries(entries []searchdata.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return ErrClosed
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM items"); err != nil {
		return fmt.Errorf("failed to clear items: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM entries"); err != nil {
		return fmt.Errorf("failed to clear entries: %w", err)
	}

	entryStmt, err := tx.Prepare(`
		INSERT INTO entries (position, key, name, name_lower, category)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare entry insert: %w", err)
	}
	defer entryStmt.Close()

	itemStmt, err := tx.Prepare(`
		INSERT INTO items (entry_position, position, display, link, flag, scope, kind, target, anchor)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare item insert: %w", err)
	}
	defer itemStmt.Close()

	for i, entry := range entries {
		if _, err := entryStmt.Exec(i, entry.Key, entry.Name, strings.ToLower(entry.Name), entry.Category); err != nil {
			return fmt.Errorf("failed to insert entry %q: %w", entry.Key, err)
		}
		for j, item := range entry.Items {
			_, err := itemStmt.Exec(i, j, item.Display, item.Link, item.Flag, item.Scope,
				string(item.Kind), item.Target, item.Anchor)
			if err != nil {
				return fmt.Errorf("failed to insert item %d of %q: %w", j, entry.Key, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}
	return nil
}

// Count returns the number of stored entries
func (s *Store) Count() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return 0, ErrClosed
	}
	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM entries").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count entries: %w", err)
	}
	return count, nil
}

// Entries reloads the snapshot in original order
func (s *Store) Entries() ([]searchdata.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.queryEntries(`
		SELECT e.position, e.key, e.name, e.category,
		       i.display, i.link, i.flag, i.scope, i.kind, i.target, i.anchor
		FROM entries e
		LEFT JOIN items i ON i.entry_position = e.position
		ORDER BY e.position, i.position
	`)
}

// FindPrefix returns up to limit entries whose name starts with prefix
// (case-insensitive), ordered by name. A non-positive limit returns all matches.
func (s *Store) FindPrefix(prefix string, limit int) ([]searchdata.Entry, error) {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	if prefix == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = -1
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Range scan over the name index: [prefix, prefix+U+10FFFF)
	return s.queryEntries(`
		SELECT e.position, e.key, e.name, e.category,
		       i.display, i.link, i.flag, i.scope, i.kind, i.target, i.anchor
		FROM entries e
		LEFT JOIN items i ON i.entry_position = e.position
		WHERE e.position IN (
			SELECT position FROM entries
			WHERE name_lower >= ? AND name_lower < ?
			ORDER BY name_lower, position
			LIMIT ?
		)
		ORDER BY e.name_lower, e.position, i.position
	`, prefix, prefix+"\U0010FFFF", limit)
}

// queryEntries runs with s.mu held
func (s *Store) queryEntries(query string, args ...interface{}) ([]searchdata.Entry, error) {
	if s.db == nil {
		return nil, ErrClosed
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	var entries []searchdata.Entry
	lastPosition := -1
	for rows.Next() {
		var (
			position                           int
			entry                              searchdata.Entry
			display, link, scope, kind, target sql.NullString
			anchor                             sql.NullString
			flag                               sql.NullInt64
		)
		if err := rows.Scan(&position, &entry.Key, &entry.Name, &entry.Category,
			&display, &link, &flag, &scope, &kind, &target, &anchor); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}

		if position != lastPosition {
			entry.Items = []searchdata.Item{}
			entries = append(entries, entry)
			lastPosition = position
		}
		if !link.Valid {
			continue
		}

		current := &entries[len(entries)-1]
		current.Items = append(current.Items, searchdata.Item{
			Display: display.String,
			Link:    link.String,
			Flag:    int(flag.Int64),
			Scope:   scope.String,
			Kind:    searchdata.Kind(kind.String),
			Target:  target.String,
			Anchor:  anchor.String,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read entries: %w", err)
	}
	return entries, nil
}
