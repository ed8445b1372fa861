package tools

import (
	"bufio"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pawpyseed/doxsearch/internal/searchdata"
)

const (
	// embeddedSource names the search data compiled into the binary
	embeddedSource = "embedded"

	downloadTimeout = 30 * time.Second
)

// sourceFile is one search file read from a source
type sourceFile struct {
	Name string // Base name, e.g. "all_e.js"
	Data []byte
}

// sourceMeta records where the installed search data came from
type sourceMeta struct {
	Source    string
	Hash      string
	UpdatedAt time.Time
	Files     int
	Entries   int
}

// fetchSource reads the search files of a source: "embedded", an http(s) URL
// of a .js file, a search directory or a single .js file
func fetchSource(ctx context.Context, source string) ([]sourceFile, error) {
	switch {
	case source == "" || source == embeddedSource:
		return readEmbeddedFiles()
	case strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://"):
		file, err := downloadSearchFile(ctx, source)
		if err != nil {
			return nil, err
		}
		return []sourceFile{file}, nil
	}

	info, err := os.Stat(source)
	if err != nil {
		return nil, fmt.Errorf("failed to open source: %w", err)
	}

	var paths []string
	if info.IsDir() {
		if paths, err = searchdata.SearchFiles(source); err != nil {
			return nil, err
		}
	} else {
		paths = []string{source}
	}

	files := make([]sourceFile, 0, len(paths))
	for _, p := range paths {
		file, err := readSearchFile(p)
		if err != nil {
			return nil, err
		}
		files = append(files, file)
	}
	return files, nil
}

func readSearchFile(p string) (sourceFile, error) {
	info, err := os.Stat(p)
	if err != nil {
		return sourceFile{}, fmt.Errorf("failed to stat search file: %w", err)
	}
	if info.Size() > searchdata.MaxFileSize {
		return sourceFile{}, fmt.Errorf("search file %s too large (%d bytes)", p, info.Size())
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return sourceFile{}, fmt.Errorf("failed to read search file: %w", err)
	}
	return sourceFile{Name: filepath.Base(p), Data: data}, nil
}

// readEmbeddedFiles reads the search data compiled into the binary
func readEmbeddedFiles() ([]sourceFile, error) {
	dirEntries, err := defaultDataProvider.ReadDir(embeddedSearchDataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded search data: %w", err)
	}

	var files []sourceFile
	for _, entry := range dirEntries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".js" {
			continue
		}
		data, err := defaultDataProvider.ReadFile(path.Join(embeddedSearchDataDir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read embedded file %s: %w", entry.Name(), err)
		}
		files = append(files, sourceFile{Name: entry.Name(), Data: data})
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w in embedded data", searchdata.ErrNoSearchData)
	}
	return files, nil
}

// downloadSearchFile fetches one search file over HTTP
func downloadSearchFile(ctx context.Context, rawURL string) (sourceFile, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return sourceFile{}, fmt.Errorf("invalid source URL: %w", err)
	}
	name := path.Base(u.Path)
	if path.Ext(name) != ".js" {
		return sourceFile{}, fmt.Errorf("source URL %s does not name a .js search file", rawURL)
	}

	log.Printf("Downloading search data from %s", rawURL)

	ctx, cancel := context.WithTimeout(ctx, downloadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return sourceFile{}, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return sourceFile{}, fmt.Errorf("failed to download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return sourceFile{}, fmt.Errorf("download failed with status: %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, searchdata.MaxFileSize+1))
	if err != nil {
		return sourceFile{}, fmt.Errorf("failed to read response: %w", err)
	}
	if len(data) > searchdata.MaxFileSize {
		return sourceFile{}, fmt.Errorf("search file at %s exceeds %d bytes", rawURL, searchdata.MaxFileSize)
	}

	log.Printf("Search data downloaded successfully (%d bytes)", len(data))
	return sourceFile{Name: name, Data: data}, nil
}

// parseSourceFiles parses files in name order and tags entries with their category
func parseSourceFiles(files []sourceFile) ([]searchdata.Entry, error) {
	sorted := append([]sourceFile(nil), files...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	var entries []searchdata.Entry
	for _, file := range sorted {
		fileEntries, err := searchdata.Parse(file.Data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", file.Name, err)
		}
		category := searchdata.CategoryFromFile(file.Name)
		for i := range fileEntries {
			fileEntries[i].Category = category
		}
		entries = append(entries, fileEntries...)
	}
	return entries, nil
}

// hashSourceFiles fingerprints a set of search files independently of their order
func hashSourceFiles(files []sourceFile) string {
	sorted := append([]sourceFile(nil), files...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	h := sha256.New()
	for _, file := range sorted {
		h.Write([]byte(file.Name))
		h.Write([]byte{0})
		h.Write(file.Data)
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// installSourceFiles replaces the local search data directory with files
func installSourceFiles(files []sourceFile) error {
	targetDir := filepath.Join(dataDir, searchDataDir)
	tempDir := targetDir + ".tmp"

	os.RemoveAll(tempDir)
	if err := os.MkdirAll(tempDir, 0755); err != nil {
		return fmt.Errorf("failed to create temp search data directory: %w", err)
	}
	for _, file := range files {
		if err := os.WriteFile(filepath.Join(tempDir, file.Name), file.Data, 0644); err != nil {
			os.RemoveAll(tempDir)
			return fmt.Errorf("failed to write %s: %w", file.Name, err)
		}
	}

	if err := os.RemoveAll(targetDir); err != nil {
		os.RemoveAll(tempDir)
		return fmt.Errorf("failed to remove old search data: %w", err)
	}
	if err := os.Rename(tempDir, targetDir); err != nil {
		os.RemoveAll(tempDir)
		return fmt.Errorf("failed to rename temp search data: %w", err)
	}

	log.Printf("✓ Installed %d search files to %s", len(files), targetDir)
	return nil
}

// installSource fetches, parses and installs a source, recording its metadata.
// It returns the parsed entries.
func installSource(ctx context.Context, source string) ([]searchdata.Entry, error) {
	files, err := fetchSource(ctx, source)
	if err != nil {
		return nil, err
	}
	entries, err := parseSourceFiles(files)
	if err != nil {
		return nil, err
	}
	if err := installSourceFiles(files); err != nil {
		return nil, err
	}

	if err := writeSourceMeta(sourceMeta{
		Source:    source,
		Hash:      hashSourceFiles(files),
		UpdatedAt: time.Now().UTC(),
		Files:     len(files),
		Entries:   len(searchdata.Merge(entries)),
	}); err != nil {
		log.Printf("Warning: Failed to write source metadata: %v", err)
	}
	return entries, nil
}

// readSourceMeta reads the metadata of the installed search data
func readSourceMeta() (sourceMeta, bool) {
	data, err := os.ReadFile(filepath.Join(dataDir, sourceMetaFile))
	if err != nil {
		return sourceMeta{}, false
	}

	var meta sourceMeta
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		key, value, ok := strings.Cut(scanner.Text(), ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.TrimSpace(key) {
		case "source":
			meta.Source = value
		case "hash":
			meta.Hash = value
		case "last_update":
			meta.UpdatedAt, _ = time.Parse(time.RFC3339, value)
		case "files":
			meta.Files, _ = strconv.Atoi(value)
		case "entries":
			meta.Entries, _ = strconv.Atoi(value)
		}
	}
	return meta, meta.Hash != ""
}

// writeSourceMeta records the metadata of the installed search data
func writeSourceMeta(meta sourceMeta) error {
	metaPath := filepath.Join(dataDir, sourceMetaFile)
	if err := os.MkdirAll(filepath.Dir(metaPath), 0755); err != nil {
		return fmt.Errorf("failed to create meta directory: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "source: %s\n", meta.Source)
	fmt.Fprintf(&b, "hash: %s\n", meta.Hash)
	fmt.Fprintf(&b, "last_update: %s\n", meta.UpdatedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "files: %d\n", meta.Files)
	fmt.Fprintf(&b, "entries: %d\n", meta.Entries)
	return os.WriteFile(metaPath, []byte(b.String()), 0644)
}
