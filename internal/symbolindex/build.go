package symbolindex

import (
	"fmt"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/index/scorch"

	"github.com/pawpyseed/doxsearch/internal/searchdata"
)

// Build creates a persistent scorch index at path holding one document per
// distinct key. The path must not exist yet.
func Build(path string, entries []searchdata.Entry) (bleve.Index, error) {
	index, err := bleve.NewUsing(path, NewMapping(), scorch.Name, scorch.Name, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create index at %s: %w", path, err)
	}
	if _, err := IndexEntries(index, entries); err != nil {
		index.Close()
		return nil, err
	}
	return index, nil
}

// BuildMem creates an in-memory index
func BuildMem(entries []searchdata.Entry) (bleve.Index, error) {
	index, err := bleve.NewMemOnly(NewMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory index: %w", err)
	}
	if _, err := IndexEntries(index, entries); err != nil {
		index.Close()
		return nil, err
	}
	return index, nil
}

// IndexEntries merges entries by key and indexes them in batches of BatchSize.
// It returns the number of documents written.
func IndexEntries(index bleve.Index, entries []searchdata.Entry) (int, error) {
	merged := searchdata.Merge(entries)

	batch := index.NewBatch()
	for _, entry := range merged {
		doc, err := NewDocument(entry)
		if err != nil {
			return 0, err
		}
		if err := batch.Index(entry.Key, doc); err != nil {
			return 0, fmt.Errorf("failed to add %s to batch: %w", entry.Key, err)
		}

		if batch.Size() >= BatchSize {
			if err := index.Batch(batch); err != nil {
				return 0, fmt.Errorf("failed to index batch: %w", err)
			}
			batch = index.NewBatch()
		}
	}

	// Submit remaining
	if batch.Size() > 0 {
		if err := index.Batch(batch); err != nil {
			return 0, fmt.Errorf("failed to index final batch: %w", err)
		}
	}
	return len(merged), nil
}
