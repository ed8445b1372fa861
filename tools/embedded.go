package tools

import (
	"embed"
	"io/fs"
)

// The PAWpySeed search data ships inside the binary so the server answers
// queries before any refresh. The index is built from it on first start.
//
//go:embed data/searchdata/*.js
var embeddedFS embed.FS

// embeddedSearchDataDir is the embedded directory holding the search files
const embeddedSearchDataDir = "data/searchdata"

// embeddedDataProvider implements DataProvider using embed.FS.
type embeddedDataProvider struct {
	fs embed.FS
}

// NewEmbeddedDataProvider creates the production DataProvider backed by embedded files.
func NewEmbeddedDataProvider() DataProvider {
	return &embeddedDataProvider{fs: embeddedFS}
}

// ReadFile reads the named file from the embedded filesystem.
func (p *embeddedDataProvider) ReadFile(name string) ([]byte, error) {
	return p.fs.ReadFile(name)
}

// ReadDir reads the named directory from the embedded filesystem.
func (p *embeddedDataProvider) ReadDir(name string) ([]fs.DirEntry, error) {
	return p.fs.ReadDir(name)
}

// defaultDataProvider is swapped for a mock in tests
var defaultDataProvider DataProvider = NewEmbeddedDataProvider()
