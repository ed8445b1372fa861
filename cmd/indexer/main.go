package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/pawpyseed/doxsearch/internal/searchdata"
	"github.com/pawpyseed/doxsearch/internal/symbolindex"
)

func main() {
	if len(os.Args) != 3 {
		fmt.Fprintf(os.Stderr, "Usage: %s <search-dir> <index-dir>\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nExample:\n")
		fmt.Fprintf(os.Stderr, "  %s docs/search data/search/index\n", os.Args[0])
		os.Exit(1)
	}

	searchDir := os.Args[1]
	indexDir := os.Args[2]

	log.Printf("Doxygen Symbol Indexer v%d", symbolindex.IndexSchemaVersion)
	log.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")

	// Step 1: Parse search data
	log.Printf("Parsing search data: %s", searchDir)
	entries, err := searchdata.Load(searchDir)
	if err != nil {
		log.Fatalf("Failed to parse search data: %v", err)
	}

	stats := collectStats(entries)
	log.Printf("✓ Parsed %d entries (%d distinct keys, %d links)", len(entries), stats.keys, stats.items)
	if report := searchdata.Validate(entries); !report.Valid {
		log.Printf("Warning: %d validation issue(s), run 'doxsearch validate %s' for details", len(report.Issues), searchDir)
	}

	// Step 2: Remove existing index
	if err := os.RemoveAll(indexDir); err != nil && !os.IsNotExist(err) {
		log.Fatalf("Failed to remove old index: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(indexDir), 0755); err != nil {
		log.Fatalf("Failed to create index directory: %v", err)
	}

	// Step 3: Build the index
	log.Printf("Creating search index: %s", indexDir)
	index, err := symbolindex.Build(indexDir, entries)
	if err != nil {
		log.Fatalf("Failed to build index: %v", err)
	}
	count, _ := index.DocCount()
	if err := index.Close(); err != nil {
		log.Fatalf("Failed to close index: %v", err)
	}
	log.Printf("✓ Indexed %d symbols successfully", count)

	// Step 4: Write version file
	versionFile := filepath.Join(filepath.Dir(indexDir), ".index_version")
	versionContent := fmt.Sprintf("%d", symbolindex.IndexSchemaVersion)
	if err := os.WriteFile(versionFile, []byte(versionContent), 0644); err != nil {
		log.Printf("Warning: Failed to write version file: %v", err)
	} else {
		log.Printf("✓ Index schema version: v%d", symbolindex.IndexSchemaVersion)
	}

	log.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	log.Printf("✓ Indexing complete!")
	log.Printf("")
	log.Printf("Index details:")
	log.Printf("  Location:  %s", indexDir)
	log.Printf("  Symbols:   %d", count)
	for _, kind := range stats.kindOrder {
		log.Printf("  %-10s %d", string(kind)+":", stats.kinds[kind])
	}
	log.Printf("  Schema:    v%d", symbolindex.IndexSchemaVersion)
}

// indexStats summarizes parsed search data for the build log
type indexStats struct {
	keys      int
	items     int
	kinds     map[searchdata.Kind]int
	kindOrder []searchdata.Kind
}

func collectStats(entries []searchdata.Entry) indexStats {
	table := searchdata.NewTable(entries)
	stats := indexStats{keys: table.Len(), kinds: make(map[searchdata.Kind]int)}
	for _, entry := range table.Entries() {
		for _, item := range entry.Items {
			stats.items++
			if stats.kinds[item.Kind] == 0 {
				stats.kindOrder = append(stats.kindOrder, item.Kind)
			}
			stats.kinds[item.Kind]++
		}
	}
	return stats
}
