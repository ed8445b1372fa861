package store

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/pawpyseed/doxsearch/internal/searchdata"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "snapshot.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func loadSample(t *testing.T) []searchdata.Entry {
	t.Helper()
	entries, err := searchdata.ParseFile("../searchdata/testdata/all_e.js")
	if err != nil {
		t.Fatalf("ParseFile failed: %v", err)
	}
	return entries
}

// TestOpen verifies database creation and migrations.
func TestOpen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "snapshot.db")

	s, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file not created")
	}

	version, err := s.SchemaVersion()
	if err != nil {
		t.Fatalf("SchemaVersion failed: %v", err)
	}
	if version != 2 {
		t.Errorf("SchemaVersion = %d, want 2", version)
	}
}

// TestOpen_Reopen verifies migrations are not re-applied.
func TestOpen_Reopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "snapshot.db")

	s, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := s.WriteEntries(loadSample(t)); err != nil {
		t.Fatalf("WriteEntries failed: %v", err)
	}
	s.Close()

	s, err = Open(dbPath)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer s.Close()

	count, err := s.Count()
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 55 {
		t.Errorf("Count = %d after reopen, want 55", count)
	}
}

// TestWriteEntries_RoundTrip verifies the snapshot preserves order, duplicates and items.
func TestWriteEntries_RoundTrip(t *testing.T) {
	s := openTestStore(t)
	entries := loadSample(t)

	if err := s.WriteEntries(entries); err != nil {
		t.Fatalf("WriteEntries failed: %v", err)
	}

	loaded, err := s.Entries()
	if err != nil {
		t.Fatalf("Entries failed: %v", err)
	}
	if !reflect.DeepEqual(loaded, entries) {
		t.Fatalf("reloaded snapshot differs from input (%d vs %d entries)", len(loaded), len(entries))
	}
}

// TestWriteEntries_Replaces verifies a second write replaces the first snapshot.
func TestWriteEntries_Replaces(t *testing.T) {
	s := openTestStore(t)

	if err := s.WriteEntries(loadSample(t)); err != nil {
		t.Fatalf("WriteEntries failed: %v", err)
	}
	replacement := []searchdata.Entry{
		{Key: "zeta", Name: "zeta", Category: "all", Items: []searchdata.Item{
			{Display: "zeta", Link: "../zeta_8h.html", Flag: 1, Kind: searchdata.KindFile, Target: "zeta.h"},
		}},
		{Key: "empty", Name: "empty", Items: []searchdata.Item{}},
	}
	if err := s.WriteEntries(replacement); err != nil {
		t.Fatalf("WriteEntries failed: %v", err)
	}

	loaded, err := s.Entries()
	if err != nil {
		t.Fatalf("Entries failed: %v", err)
	}
	if !reflect.DeepEqual(loaded, replacement) {
		t.Errorf("Entries = %+v, want %+v", loaded, replacement)
	}
}

// TestFindPrefix verifies name-ordered prefix lookups.
func TestFindPrefix(t *testing.T) {
	s := openTestStore(t)
	if err := s.WriteEntries(loadSample(t)); err != nil {
		t.Fatalf("WriteEntries failed: %v", err)
	}

	tests := []struct {
		name   string
		prefix string
		limit  int
		want   []string
	}{
		{
			name:   "underscore prefix",
			prefix: "proj_v",
			want:   []string{"proj_value", "proj_value_helper"},
		},
		{
			name:   "case insensitive with limit",
			prefix: "QUAD",
			limit:  1,
			want:   []string{"quad_check"},
		},
		{
			name:   "duplicate keys kept",
			prefix: "pawpyseed",
			want:   []string{"pawpyseed", "pawpyseed"},
		},
		{
			name:   "no match",
			prefix: "xyz",
			want:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, err := s.FindPrefix(tt.prefix, tt.limit)
			if err != nil {
				t.Fatalf("FindPrefix failed: %v", err)
			}
			var names []string
			for _, entry := range entries {
				names = append(names, entry.Name)
			}
			if !reflect.DeepEqual(names, tt.want) {
				t.Errorf("FindPrefix(%q) = %v, want %v", tt.prefix, names, tt.want)
			}
		})
	}
}

// TestFindPrefix_Items verifies items come back with matches.
func TestFindPrefix_Items(t *testing.T) {
	s := openTestStore(t)
	if err := s.WriteEntries(loadSample(t)); err != nil {
		t.Fatalf("WriteEntries failed: %v", err)
	}

	entries, err := s.FindPrefix("pps", 0)
	if err != nil {
		t.Fatalf("FindPrefix failed: %v", err)
	}
	if len(entries) != 1 || len(entries[0].Items) != 2 {
		t.Fatalf("FindPrefix(pps) = %+v", entries)
	}
	if entries[0].Items[1].Target != "pawpyseed::core::wavefunction::CoreRegion" {
		t.Errorf("second item target = %q", entries[0].Items[1].Target)
	}
}

// TestClose verifies Close is idempotent.
func TestClose(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "snapshot.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
}

// TestClosedStore verifies reads and writes fail cleanly after Close.
func TestClosedStore(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "snapshot.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if _, err := s.Count(); !errors.Is(err, ErrClosed) {
		t.Errorf("Count error = %v, want ErrClosed", err)
	}
	if _, err := s.Entries(); !errors.Is(err, ErrClosed) {
		t.Errorf("Entries error = %v, want ErrClosed", err)
	}
	if _, err := s.FindPrefix("p", 1); !errors.Is(err, ErrClosed) {
		t.Errorf("FindPrefix error = %v, want ErrClosed", err)
	}
	if _, err := s.SchemaVersion(); !errors.Is(err, ErrClosed) {
		t.Errorf("SchemaVersion error = %v, want ErrClosed", err)
	}
	if err := s.WriteEntries(nil); !errors.Is(err, ErrClosed) {
		t.Errorf("WriteEntries error = %v, want ErrClosed", err)
	}
}

// TestOpenExisting verifies snapshots are only opened, never created.
func TestOpenExisting(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "missing.db")

	if _, err := OpenExisting(missing); !errors.Is(err, ErrNotSnapshot) {
		t.Errorf("OpenExisting(missing) error = %v, want ErrNotSnapshot", err)
	}
	if _, err := os.Stat(missing); !os.IsNotExist(err) {
		t.Error("OpenExisting should not create the database")
	}
	if _, err := OpenExisting(dir); !errors.Is(err, ErrNotSnapshot) {
		t.Errorf("OpenExisting(dir) error = %v, want ErrNotSnapshot", err)
	}

	s, err := Open(missing)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := s.WriteEntries(loadSample(t)); err != nil {
		t.Fatalf("WriteEntries failed: %v", err)
	}
	s.Close()

	s, err = OpenExisting(missing)
	if err != nil {
		t.Fatalf("OpenExisting failed: %v", err)
	}
	defer s.Close()
	if s.Path() != missing {
		t.Errorf("Path() = %q, want %q", s.Path(), missing)
	}
	if count, err := s.Count(); err != nil || count != 55 {
		t.Errorf("Count = %d, %v; want 55", count, err)
	}
}

func TestIsSnapshot(t *testing.T) {
	tests := map[string]bool{
		"symbols.db":           true,
		"out/SYMBOLS.DB":       true,
		"docs/search":          false,
		"docs/search/all_e.js": false,
	}
	for path, want := range tests {
		if got := IsSnapshot(path); got != want {
			t.Errorf("IsSnapshot(%q) = %v, want %v", path, got, want)
		}
	}
}
