package tools

import (
	"fmt"
	"sync/atomic"

	"github.com/blevesearch/bleve/v2"
)

// mockIndex is an in-memory stand-in for the symbol index
type mockIndex struct {
	id          int
	docCount    uint64
	searchError error
	closeError  error
	searches    atomic.Int64
	closed      atomic.Bool
}

// newMockIndex creates a mock index holding the 54 symbols of the sample data
func newMockIndex(id int) *mockIndex {
	return &mockIndex{
		id:       id,
		docCount: 54,
	}
}

func (m *mockIndex) Search(req *bleve.SearchRequest) (*bleve.SearchResult, error) {
	if m.closed.Load() {
		return nil, fmt.Errorf("index closed")
	}
	m.searches.Add(1)
	if m.searchError != nil {
		return nil, m.searchError
	}
	// No hits is a valid result
	return &bleve.SearchResult{Request: req}, nil
}

func (m *mockIndex) DocCount() (uint64, error) {
	if m.closed.Load() {
		return 0, fmt.Errorf("index closed")
	}
	return m.docCount, nil
}

func (m *mockIndex) Close() error {
	if m.closed.Swap(true) {
		return fmt.Errorf("already closed")
	}
	return m.closeError
}

// IsClosed returns true if the index has been closed
func (m *mockIndex) IsClosed() bool {
	return m.closed.Load()
}
