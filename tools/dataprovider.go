package tools

import (
	"io/fs"
)

// DataProvider gives access to the search data bundled with the server.
//
// Implementations:
//   - embeddedDataProvider: embed.FS (production)
//   - MockDataProvider: in-memory map (tests)
type DataProvider interface {
	// ReadFile reads the named file, e.g. "data/searchdata/all_e.js".
	ReadFile(name string) ([]byte, error)

	// ReadDir lists the named directory, e.g. "data/searchdata".
	ReadDir(name string) ([]fs.DirEntry, error)
}
