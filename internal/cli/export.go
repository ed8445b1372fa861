package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/pawpyseed/doxsearch/internal/searchdata"
	"github.com/pawpyseed/doxsearch/internal/store"
)

// Export formats
const (
	FormatJSON   = "json"
	FormatJSONL  = "jsonl"
	FormatSQLite = "sqlite"
)

// NewExportCmd creates the 'export' command
func NewExportCmd() *cobra.Command {
	var format string
	var output string

	cmd := &cobra.Command{
		Use:   "export <search-dir|file>",
		Short: "Export parsed search entries as JSON, JSONL or SQLite",
		Long: `Convert Doxygen search data into formats usable outside the browser.

JSON and JSONL are written to stdout unless --output is given.
SQLite requires --output; an existing snapshot in that database is replaced.`,
		Example: `  # One entry per line, for grep and jq
  doxsearch export docs/search > symbols.jsonl

  # JSON array
  doxsearch export docs/search --format json --output symbols.json

  # SQLite snapshot
  doxsearch export docs/search --format sqlite --output symbols.db
  sqlite3 symbols.db "SELECT name FROM entries WHERE name_lower LIKE 'proj%'"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd.OutOrStdout(), args[0], format, output)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", FormatJSONL, "Output format: json, jsonl or sqlite")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output path (default: stdout for json and jsonl)")

	return cmd
}

// runExport loads path and writes it in the requested format
func runExport(w io.Writer, path, format, output string) error {
	switch format {
	case FormatJSON, FormatJSONL:
	case FormatSQLite:
		if output == "" {
			return fmt.Errorf("--output is required for the sqlite format")
		}
	default:
		return fmt.Errorf("unknown format %q (want json, jsonl or sqlite)", format)
	}

	entries, err := loadEntries(path)
	if err != nil {
		return err
	}

	if format == FormatSQLite {
		db, err := store.Open(output)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.WriteEntries(entries); err != nil {
			return err
		}
		count, err := db.Count()
		if err != nil {
			return err
		}
		version, err := db.SchemaVersion()
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "✓ Exported %d entries to %s (schema v%d)\n", count, db.Path(), version)
		return nil
	}

	if output != "" {
		file, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer file.Close()
		w = file
	}
	return writeEntries(w, entries, format)
}

// writeEntries encodes entries as a JSON array or one JSON object per line
func writeEntries(w io.Writer, entries []searchdata.Entry, format string) error {
	encoder := json.NewEncoder(w)

	if format == FormatJSON {
		encoder.SetIndent("", "  ")
		if entries == nil {
			entries = []searchdata.Entry{}
		}
		if err := encoder.Encode(entries); err != nil {
			return fmt.Errorf("failed to encode entries: %w", err)
		}
		return nil
	}

	for _, entry := range entries {
		if err := encoder.Encode(entry); err != nil {
			return fmt.Errorf("failed to encode entry %s: %w", entry.Key, err)
		}
	}
	return nil
}
