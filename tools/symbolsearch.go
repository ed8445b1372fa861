package tools

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/pawpyseed/doxsearch/internal/searchdata"
	"github.com/pawpyseed/doxsearch/internal/symbolindex"
)

const (
	dataDirEnv       = "DOXSEARCH_DATA_DIR"
	searchDataDir    = "searchdata"
	sourceMetaFile   = "searchdata/source.meta"
	indexDir         = "search/index"
	lockFile         = "search/index.lock"
	lockTimeout      = 5 * time.Second // Max time to wait for lock
	lockRetryWait    = 500 * time.Millisecond
	indexVersionFile = "search/.index_version"
)

var (
	dataDir string // Data directory for search data and the symbol index
)

func init() {
	dataDir = resolveDataDir()
}

// resolveDataDir picks the data directory: environment override, user home,
// next to the binary, then the working directory
func resolveDataDir() string {
	if dir := os.Getenv(dataDirEnv); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Printf("Warning: Could not create %s=%s: %v", dataDirEnv, dir, err)
		} else {
			log.Printf("✓ Data directory: %s (%s)", dir, dataDirEnv)
			return dir
		}
	}

	homeDir, err := os.UserHomeDir()
	if err == nil {
		userDataDir := filepath.Join(homeDir, ".doxsearch-mcp")
		if info, err := os.Stat(userDataDir); err == nil && info.IsDir() {
			log.Printf("✓ Data directory: %s (user home)", userDataDir)
			return userDataDir
		}
		if err := os.MkdirAll(userDataDir, 0755); err == nil {
			log.Printf("✓ Data directory created: %s", userDataDir)
			return userDataDir
		}
		log.Printf("Warning: Could not create user data directory at %s: %v", userDataDir, err)
	} else {
		log.Printf("Warning: Could not determine user home directory: %v", err)
	}

	// Binary at: <root>/bin/doxsearch-mcp, data at: <root>/data
	if execPath, err := os.Executable(); err == nil {
		relativeDataDir := filepath.Join(filepath.Dir(execPath), "..", "data")
		if info, err := os.Stat(relativeDataDir); err == nil && info.IsDir() {
			dir, _ := filepath.Abs(relativeDataDir)
			log.Printf("✓ Data directory: %s (relative to binary)", dir)
			return dir
		}
	}

	dir := filepath.Join(".", "data")
	log.Printf("⚠️  Data directory (fallback): %s", dir)
	os.MkdirAll(dir, 0755)
	return dir
}

// indexHolder manages concurrent access to the symbol index
type indexHolder struct {
	// current holds the active index pointer (atomic access for lock-free reads)
	current atomic.Pointer[Index]

	// refreshMu serializes index builds (startup, lazy init and refresh);
	// searches on an initialized index never take it
	refreshMu sync.Mutex

	// wg tracks in-flight searches so a replaced index is closed only once idle
	wg sync.WaitGroup
}

var (
	indexMgr  *indexHolder
	holderMu  sync.Mutex
	initGroup sync.Mutex // Serializes lazy initialization from handlers
)

// holder returns the process-wide index holder, creating it on first use
func holder() *indexHolder {
	holderMu.Lock()
	defer holderMu.Unlock()
	if indexMgr == nil {
		indexMgr = &indexHolder{}
	}
	return indexMgr
}

// InitializeSymbolSearch opens or builds the symbol index.
// Priority: local index (matching schema version) > local search data > embedded search data
func InitializeSymbolSearch() error {
	startTime := time.Now()
	log.Printf("Initializing symbol search...")

	h := holder()
	indexPath := filepath.Join(dataDir, indexDir)

	// Builds share the temp index and search data directories
	h.refreshMu.Lock()
	defer h.refreshMu.Unlock()
	if h.current.Load() != nil {
		log.Printf("Symbol index already initialized")
		return nil
	}

	log.Printf("Acquiring index lock...")
	lockStart := time.Now()
	if err := acquireLock(); err != nil {
		return fmt.Errorf("failed to acquire index lock: %w", err)
	}
	log.Printf("Lock acquired in %v", time.Since(lockStart).Round(time.Millisecond))

	// Strategy 1: open the index left by a previous run
	if _, err := os.Stat(indexPath); err == nil {
		if version := getIndexVersion(); version != symbolindex.IndexSchemaVersion {
			log.Printf("Index schema version mismatch (have: v%d, want: v%d), rebuilding...",
				version, symbolindex.IndexSchemaVersion)
			removeIndex()
		} else if index, err := openIndex(indexPath); err == nil {
			h.current.Store(&index)
			count, _ := index.DocCount()
			log.Printf("✓ Symbol search initialized (%d symbols, local index v%d) in %v",
				count, symbolindex.IndexSchemaVersion, time.Since(startTime).Round(time.Millisecond))
			return nil
		} else {
			log.Printf("Warning: Local index corrupted (%v), rebuilding...", err)
			removeIndex()
		}
	}

	// Strategy 2: rebuild from search data installed by a previous refresh
	entries, err := searchdata.LoadDir(filepath.Join(dataDir, searchDataDir))
	if err != nil {
		if !errors.Is(err, searchdata.ErrNoSearchData) && !errors.Is(err, os.ErrNotExist) {
			log.Printf("Warning: Local search data unusable (%v), falling back to embedded data", err)
		}

		// Strategy 3: install the embedded search data and build from it
		log.Printf("No local search data found, extracting embedded search data...")
		if entries, err = installSource(context.Background(), embeddedSource); err != nil {
			return fmt.Errorf("failed to extract embedded search data: %w", err)
		}
	}

	count, err := buildAndSwap(entries)
	if err != nil {
		return err
	}
	log.Printf("✓ Symbol search initialized (%d symbols, rebuilt) in %v",
		count, time.Since(startTime).Round(time.Millisecond))
	return nil
}

// removeIndex deletes the on-disk index and its version marker
func removeIndex() {
	os.RemoveAll(filepath.Join(dataDir, indexDir))
	os.Remove(filepath.Join(dataDir, indexVersionFile))
}

// getIndexVersion reads the current index schema version from disk
func getIndexVersion() int {
	data, err := os.ReadFile(filepath.Join(dataDir, indexVersionFile))
	if err != nil {
		return 0 // No version file
	}

	version := 0
	fmt.Sscanf(string(data), "%d", &version)
	return version
}

// writeIndexVersion writes the current index schema version to disk
func writeIndexVersion() error {
	versionPath := filepath.Join(dataDir, indexVersionFile)
	os.MkdirAll(filepath.Dir(versionPath), 0755)

	content := fmt.Sprintf("%d", symbolindex.IndexSchemaVersion)
	return os.WriteFile(versionPath, []byte(content), 0644)
}

// buildAndSwap builds a fresh index in a temp directory, moves it into place
// and atomically replaces the active index. It returns the number of symbols indexed.
func buildAndSwap(entries []searchdata.Entry) (int, error) {
	startTime := time.Now()
	h := holder()
	indexPath := filepath.Join(dataDir, indexDir)
	tempIndexPath := filepath.Join(dataDir, indexDir+".tmp")

	// Leftover from a crashed build
	os.RemoveAll(tempIndexPath)
	if err := os.MkdirAll(filepath.Dir(tempIndexPath), 0755); err != nil {
		return 0, fmt.Errorf("failed to create temp index directory: %w", err)
	}

	log.Printf("Building index from %d search entries in temp location...", len(entries))
	newIndex, err := symbolindex.Build(tempIndexPath, entries)
	if err != nil {
		os.RemoveAll(tempIndexPath)
		return 0, fmt.Errorf("failed to build temp index: %w", err)
	}
	count, _ := newIndex.DocCount()
	if err := newIndex.Close(); err != nil {
		os.RemoveAll(tempIndexPath)
		return 0, fmt.Errorf("failed to close temp index: %w", err)
	}

	// Filesystem swap: remove the old directory, rename the temp one into place.
	// The old index stays open and readable until its handle is closed.
	if err := os.RemoveAll(indexPath); err != nil && !os.IsNotExist(err) {
		os.RemoveAll(tempIndexPath)
		return 0, fmt.Errorf("failed to remove old index: %w", err)
	}
	if err := os.Rename(tempIndexPath, indexPath); err != nil {
		os.RemoveAll(tempIndexPath)
		return 0, fmt.Errorf("failed to rename temp index: %w", err)
	}

	finalIndex, err := openIndex(indexPath)
	if err != nil {
		return 0, fmt.Errorf("failed to open new index: %w", err)
	}

	oldIndexPtr := h.current.Swap(&finalIndex)

	go func(oldPtr *Index) {
		if oldPtr == nil {
			return
		}

		log.Printf("Waiting for in-flight searches to complete before closing old index...")
		waitStart := time.Now()
		h.wg.Wait()
		log.Printf("All searches completed, closing old index (waited %v)...",
			time.Since(waitStart).Round(time.Millisecond))

		if err := (*oldPtr).Close(); err != nil {
			log.Printf("Warning: Error closing old index: %v", err)
		} else {
			log.Printf("✓ Old index closed successfully")
		}
	}(oldIndexPtr)

	if err := writeIndexVersion(); err != nil {
		log.Printf("Warning: Failed to write index version: %v", err)
	}

	log.Printf("✓ Index swap completed in %v, searches now using new index",
		time.Since(startTime).Round(time.Millisecond))
	return int(count), nil
}

// acquireIndex returns the active index, initializing it on first use.
// The caller must call release once done with the index.
func acquireIndex() (index Index, release func(), err error) {
	h := holder()

	// Track in-flight searches for graceful cleanup (MUST be before Load)
	h.wg.Add(1)
	indexPtr := h.current.Load()

	if indexPtr == nil {
		initGroup.Lock()
		indexPtr = h.current.Load()
		if indexPtr == nil {
			log.Printf("Symbol index not initialized, initializing now...")
			if err := InitializeSymbolSearch(); err != nil {
				initGroup.Unlock()
				h.wg.Done()
				return nil, nil, fmt.Errorf("failed to initialize symbol index: %w", err)
			}
			indexPtr = h.current.Load()
		}
		initGroup.Unlock()
		if indexPtr == nil {
			h.wg.Done()
			return nil, nil, fmt.Errorf("index still nil after initialization")
		}
	}

	return *indexPtr, h.wg.Done, nil
}

// SearchSymbolsInput defines input for search_symbols tool
type SearchSymbolsInput struct {
	Query      string `json:"query" jsonschema:"Symbol name or words to search for"`
	Mode       string `json:"mode,omitempty" jsonschema:"prefix (default), substring or fulltext"`
	Kind       string `json:"kind,omitempty" jsonschema:"Restrict to symbols with a link of this kind: namespace, class, struct, file, page, member..."`
	MaxResults int    `json:"max_results,omitempty" jsonschema:"Maximum number of results (optional, defaults to 10, max 50)"`
}

// SearchSymbolsOutput defines output for search_symbols tool
type SearchSymbolsOutput struct {
	Query     string            `json:"query"`
	Mode      searchdata.Mode   `json:"mode"`
	TotalHits int               `json:"total_hits"`
	Results   []symbolindex.Hit `json:"results"`
}

// SearchSymbols searches the documented symbols by name or content
func SearchSymbols(ctx context.Context, req *mcp.CallToolRequest, input SearchSymbolsInput) (*mcp.CallToolResult, SearchSymbolsOutput, error) {
	mode, err := searchdata.ParseMode(input.Mode)
	if err != nil {
		return nil, SearchSymbolsOutput{}, err
	}
	kind, err := parseKindInput(input.Kind)
	if err != nil {
		return nil, SearchSymbolsOutput{}, err
	}

	index, release, err := acquireIndex()
	if err != nil {
		return nil, SearchSymbolsOutput{}, err
	}
	defer release()

	result, err := symbolindex.Search(index, symbolindex.Query{
		Text:  input.Query,
		Mode:  mode,
		Kind:  kind,
		Limit: input.MaxResults,
	})
	if err != nil {
		return nil, SearchSymbolsOutput{}, fmt.Errorf("search failed: %w", err)
	}

	return nil, SearchSymbolsOutput{
		Query:     input.Query,
		Mode:      result.Mode,
		TotalHits: int(result.Total),
		Results:   result.Hits,
	}, nil
}

// LookupSymbolInput defines input for lookup_symbol tool
type LookupSymbolInput struct {
	Name string `json:"name" jsonschema:"Exact symbol name (case-insensitive) or raw search key, e.g. proj_grid or proj_5fgrid"`
}

// LookupSymbolOutput defines output for lookup_symbol tool
type LookupSymbolOutput struct {
	Name   string           `json:"name"`
	Found  bool             `json:"found"`
	Symbol *symbolindex.Hit `json:"symbol,omitempty"`
}

// LookupSymbol returns the documentation links of one symbol
func LookupSymbol(ctx context.Context, req *mcp.CallToolRequest, input LookupSymbolInput) (*mcp.CallToolResult, LookupSymbolOutput, error) {
	index, release, err := acquireIndex()
	if err != nil {
		return nil, LookupSymbolOutput{}, err
	}
	defer release()

	hit, found, err := symbolindex.Lookup(index, input.Name)
	if err != nil {
		return nil, LookupSymbolOutput{}, fmt.Errorf("lookup failed: %w", err)
	}

	output := LookupSymbolOutput{Name: input.Name, Found: found}
	if found {
		output.Symbol = &hit
	}
	return nil, output, nil
}

// RefreshSymbolIndexInput defines input for refresh_symbol_index tool
type RefreshSymbolIndexInput struct {
	Source string `json:"source,omitempty" jsonschema:"Search directory, .js file or http(s) URL of a .js file (optional, defaults to the last source used)"`
	Force  bool   `json:"force,omitempty" jsonschema:"Re-index even when the search data is unchanged (optional, defaults to false)"`
}

// RefreshSymbolIndexOutput defines output for refresh_symbol_index tool
type RefreshSymbolIndexOutput struct {
	Updated        bool      `json:"updated"`
	Source         string    `json:"source"`
	Hash           string    `json:"hash"`
	LastUpdate     time.Time `json:"last_update"`
	SymbolsIndexed int       `json:"symbols_indexed"`
	Message        string    `json:"message"`
}

// refreshSymbolIndex replaces the search data with source and re-indexes it
// when the content changed
func refreshSymbolIndex(ctx context.Context, source string, force bool) (RefreshSymbolIndexOutput, error) {
	startTime := time.Now()
	h := holder()

	// Serialize refresh operations (prevent concurrent refreshes)
	h.refreshMu.Lock()
	defer h.refreshMu.Unlock()

	meta, hasMeta := readSourceMeta()
	if source == "" {
		source = embeddedSource
		if hasMeta && meta.Source != "" {
			source = meta.Source
		}
	}
	output := RefreshSymbolIndexOutput{Source: source}

	log.Printf("Starting symbol index refresh from %s (force=%v)...", source, force)

	files, err := fetchSource(ctx, source)
	if err != nil {
		return output, fmt.Errorf("fetch failed: %w", err)
	}

	// Parse before touching the installed data so a bad source changes nothing
	entries, err := parseSourceFiles(files)
	if err != nil {
		return output, fmt.Errorf("parse failed: %w", err)
	}
	output.Hash = hashSourceFiles(files)

	if !force && hasMeta && meta.Hash == output.Hash && h.current.Load() != nil {
		if meta.Source != source {
			meta.Source = source
			if err := writeSourceMeta(meta); err != nil {
				log.Printf("Warning: Failed to record source: %v", err)
			}
		}
		output.LastUpdate = meta.UpdatedAt
		output.SymbolsIndexed = meta.Entries
		output.Message = fmt.Sprintf("Search data unchanged since %s", meta.UpdatedAt.Format(time.RFC3339))
		log.Printf("Search data unchanged, skipping refresh")
		return output, nil
	}

	// Lock is released by CloseSymbolSearch() when the process exits
	if err := acquireLock(); err != nil {
		return output, fmt.Errorf("failed to acquire lock for refresh: %w", err)
	}

	if err := installSourceFiles(files); err != nil {
		return output, fmt.Errorf("install failed: %w", err)
	}

	count, err := buildAndSwap(entries)
	if err != nil {
		return output, fmt.Errorf("indexing failed: %w", err)
	}

	output.Updated = true
	output.LastUpdate = time.Now().UTC()
	output.SymbolsIndexed = count
	if err := writeSourceMeta(sourceMeta{
		Source:    source,
		Hash:      output.Hash,
		UpdatedAt: output.LastUpdate,
		Files:     len(files),
		Entries:   count,
	}); err != nil {
		log.Printf("Warning: Failed to write source metadata: %v", err)
	}
	output.Message = fmt.Sprintf("Symbol index refreshed, %d symbols indexed from %d files", count, len(files))

	log.Printf("✓ Symbol index refresh completed in %v", time.Since(startTime).Round(time.Millisecond))
	return output, nil
}

// RefreshSymbolIndex re-installs search data from a source and re-indexes it
func RefreshSymbolIndex(ctx context.Context, req *mcp.CallToolRequest, input RefreshSymbolIndexInput) (*mcp.CallToolResult, RefreshSymbolIndexOutput, error) {
	output, err := refreshSymbolIndex(ctx, input.Source, input.Force)
	if err != nil {
		return nil, output, fmt.Errorf("refresh failed: %w", err)
	}
	return nil, output, nil
}

// RegisterSymbolSearchTools registers the symbol search tools
func RegisterSymbolSearchTools(server *mcp.Server) error {
	// Initialize symbol search synchronously
	if err := InitializeSymbolSearch(); err != nil {
		log.Printf("Warning: Symbol search initialization failed: %v", err)
		log.Printf("Symbol search will attempt to initialize on first use")
	}

	mcp.AddTool(server,
		&mcp.Tool{
			Name:        "search_symbols",
			Description: "Search PAWpySeed's documented symbols (namespaces, classes, functions, variables, files). Modes: prefix, substring, fulltext.",
		},
		SearchSymbols,
	)

	mcp.AddTool(server,
		&mcp.Tool{
			Name:        "lookup_symbol",
			Description: "Look up one symbol by exact name and return every documentation link for it",
		},
		LookupSymbol,
	)

	mcp.AddTool(server,
		&mcp.Tool{
			Name:        "list_scopes",
			Description: "List documented compounds (namespaces, classes, structs, files, pages) with their links",
		},
		ListScopes,
	)

	mcp.AddTool(server,
		&mcp.Tool{
			Name:        "refresh_symbol_index",
			Description: "Install search data from a directory, .js file or URL and re-index it (skipped when unchanged unless force is set)",
		},
		RefreshSymbolIndex,
	)

	return nil
}

// CloseSymbolSearch closes the symbol index and releases the lock
func CloseSymbolSearch() error {
	var closeErr error

	holderMu.Lock()
	h := indexMgr
	holderMu.Unlock()

	if h != nil {
		// Atomically swap index to nil (prevents new searches)
		indexPtr := h.current.Swap(nil)

		if indexPtr != nil {
			log.Printf("Waiting for in-flight searches to complete before closing...")
			h.wg.Wait()

			closeErr = (*indexPtr).Close()
			if closeErr != nil {
				log.Printf("Error closing symbol index: %v", closeErr)
			} else {
				log.Printf("✓ Symbol index closed successfully")
			}
		}
	}

	// Always attempt to release inter-process lock, even if close failed
	if err := releaseLock(); err != nil {
		log.Printf("Error releasing lock: %v", err)
		if closeErr == nil {
			closeErr = err
		}
	}

	return closeErr
}

// parseKindInput maps an optional kind argument to a searchdata.Kind
func parseKindInput(s string) (searchdata.Kind, error) {
	if s == "" {
		return "", nil
	}
	kind, ok := searchdata.ParseKind(s)
	if !ok {
		return "", fmt.Errorf("unknown kind %q", s)
	}
	return kind, nil
}
