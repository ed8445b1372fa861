package store

import (
	"fmt"
	"log"
)

// migration represents a single database migration.
type migration struct {
	version int
	name    string
	up      func() error
}

// runMigrations executes database schema migrations.
func (s *Store) runMigrations() error {
	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TEXT NOT NULL DEFAULT (datetime('now'))
		)
	`); err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	version, err := s.currentVersion()
	if err != nil {
		return err
	}

	migrations := []migration{
		{version: 1, name: "initial_schema", up: s.migration001InitialSchema},
		{version: 2, name: "name_prefix_index", up: s.migration002NamePrefixIndex},
	}

	for _, m := range migrations {
		if version >= m.version {
			continue
		}
		log.Printf("Running migration %d: %s", m.version, m.name)
		if err := m.up(); err != nil {
			return fmt.Errorf("migration %d failed: %w", m.version, err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_migrations (version, name) VALUES (?, ?)", m.version, m.name); err != nil {
			return fmt.Errorf("failed to record migration %d: %w", m.version, err)
		}
	}
	return nil
}

// SchemaVersion returns the highest applied migration version
func (s *Store) SchemaVersion() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return 0, ErrClosed
	}
	return s.currentVersion()
}

func (s *Store) currentVersion() (int, error) {
	var version int
	if err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return version, nil
}

// migration001InitialSchema creates the entries and items tables.
func (s *Store) migration001InitialSchema() error {
	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS entries (
			position INTEGER PRIMARY KEY,
			key TEXT NOT NULL,
			name TEXT NOT NULL,
			name_lower TEXT NOT NULL,
			category TEXT NOT NULL DEFAULT ''
		)
	`); err != nil {
		return fmt.Errorf("failed to create entries table: %w", err)
	}

	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS items (
			entry_position INTEGER NOT NULL REFERENCES entries(position),
			position INTEGER NOT NULL,
			display TEXT NOT NULL,
			link TEXT NOT NULL,
			flag INTEGER NOT NULL DEFAULT 0,
			scope TEXT NOT NULL DEFAULT '',
			kind TEXT NOT NULL DEFAULT '',
			target TEXT NOT NULL DEFAULT '',
			anchor TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (entry_position, position)
		)
	`); err != nil {
		return fmt.Errorf("failed to create items table: %w", err)
	}

	if _, err := s.db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_entries_key
		ON entries(key)
	`); err != nil {
		return fmt.Errorf("failed to create entries key index: %w", err)
	}
	return nil
}

// migration002NamePrefixIndex indexes lower-cased names for prefix range scans.
func (s *Store) migration002NamePrefixIndex() error {
	if _, err := s.db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_entries_name_lower
		ON entries(name_lower, position)
	`); err != nil {
		return fmt.Errorf("failed to create entries name index: %w", err)
	}
	return nil
}
