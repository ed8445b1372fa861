package tools

import (
	"io/fs"
	"path"
	"sort"
	"time"
)

// MockDataProvider implements DataProvider over an in-memory map of flat
// directories, the layout of the embedded search data.
type MockDataProvider struct {
	files map[string][]byte
}

// NewMockDataProvider creates an empty mock data provider.
func NewMockDataProvider() *MockDataProvider {
	return &MockDataProvider{files: make(map[string][]byte)}
}

// AddFile adds a file to the mock provider.
func (m *MockDataProvider) AddFile(name string, content []byte) {
	m.files[name] = content
}

// ReadFile reads a file from the mock storage.
func (m *MockDataProvider) ReadFile(name string) ([]byte, error) {
	content, exists := m.files[name]
	if !exists {
		return nil, fs.ErrNotExist
	}
	return content, nil
}

// ReadDir lists the files directly inside name, sorted like fs.ReadDir.
func (m *MockDataProvider) ReadDir(name string) ([]fs.DirEntry, error) {
	var entries []fs.DirEntry
	for filePath, content := range m.files {
		if path.Dir(filePath) == name {
			entries = append(entries, mockDirEntry{name: path.Base(filePath), size: int64(len(content))})
		}
	}
	if len(entries) == 0 {
		return nil, fs.ErrNotExist
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	return entries, nil
}

// mockDirEntry is a regular file entry
type mockDirEntry struct {
	name string
	size int64
}

func (e mockDirEntry) Name() string               { return e.name }
func (e mockDirEntry) IsDir() bool                { return false }
func (e mockDirEntry) Type() fs.FileMode          { return 0 }
func (e mockDirEntry) Info() (fs.FileInfo, error) { return mockFileInfo(e), nil }

// mockFileInfo describes a mockDirEntry
type mockFileInfo mockDirEntry

func (i mockFileInfo) Name() string       { return i.name }
func (i mockFileInfo) Size() int64        { return i.size }
func (i mockFileInfo) Mode() fs.FileMode  { return 0644 }
func (i mockFileInfo) ModTime() time.Time { return time.Time{} }
func (i mockFileInfo) IsDir() bool        { return false }
func (i mockFileInfo) Sys() any           { return nil }
