package cli

import (
	"github.com/pawpyseed/doxsearch/internal/searchdata"
	"github.com/pawpyseed/doxsearch/internal/store"
)

// loadEntries reads search files, or a SQLite snapshot written by export
func loadEntries(path string) ([]searchdata.Entry, error) {
	if !store.IsSnapshot(path) {
		return searchdata.Load(path)
	}

	snapshot, err := store.OpenExisting(path)
	if err != nil {
		return nil, err
	}
	defer snapshot.Close()

	return snapshot.Entries()
}

// snapshotPrefix answers a prefix query from the snapshot's name index.
// Rows sharing a key are merged the way the lookup table merges them.
func snapshotPrefix(path, text string, limit int) ([]searchdata.Entry, error) {
	snapshot, err := store.OpenExisting(path)
	if err != nil {
		return nil, err
	}
	defer snapshot.Close()

	rows, err := snapshot.FindPrefix(text, 0)
	if err != nil {
		return nil, err
	}
	matches := searchdata.Merge(rows)
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}
