package tools

import (
	"fmt"

	"github.com/blevesearch/bleve/v2"

	"github.com/pawpyseed/doxsearch/internal/symbolindex"
)

// Index is the part of a bleve index the tool handlers use.
// bleve.Index satisfies it; tests substitute a mock.
type Index interface {
	symbolindex.Searcher

	// DocCount returns the number of documents in the index
	DocCount() (uint64, error)

	// Close closes the index
	Close() error
}

// openIndex opens the persistent index at path
func openIndex(path string) (Index, error) {
	index, err := bleve.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open index at %s: %w", path, err)
	}
	return index, nil
}
