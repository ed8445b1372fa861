/*
Package cli implements the doxsearch command line.

Every command reads a Doxygen search directory (docs/search), a single
search file such as docs/search/all_e.js, or a .db snapshot written by
"doxsearch export --format sqlite".
*/
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pawpyseed/doxsearch/internal/searchdata"
	"github.com/pawpyseed/doxsearch/internal/store"
	"github.com/pawpyseed/doxsearch/internal/symbolindex"
)

// NewQueryCmd creates the 'query' command
func NewQueryCmd() *cobra.Command {
	var (
		mode       string
		kind       string
		limit      int
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "query <search-dir|file|snapshot.db> <text>",
		Short: "Search symbols in Doxygen search data",
		Long: `Look up symbols the way the documentation search box does.

Modes:
  prefix     names starting with the text (default)
  substring  names containing the text, prefix matches first
  fulltext   ranked match over names, display names and scopes`,
		Example: `  doxsearch query docs/search proj_
  doxsearch query docs/search wave --mode substring
  doxsearch query docs/search/all_e.js p --kind file
  doxsearch query docs/search wavefunction --mode fulltext --json
  doxsearch query symbols.db proj_`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd.OutOrStdout(), args[0], args[1], mode, kind, limit, jsonOutput)
		},
	}

	cmd.Flags().StringVarP(&mode, "mode", "m", string(searchdata.ModePrefix), "Match mode: prefix, substring or fulltext")
	cmd.Flags().StringVarP(&kind, "kind", "k", "", "Only entries with an item of this kind (namespace, class, file, member...)")
	cmd.Flags().IntVarP(&limit, "limit", "n", symbolindex.DefaultMaxResults, "Maximum number of entries")
	cmd.Flags().BoolVarP(&jsonOutput, "json", "j", false, "Output as JSON")

	return cmd
}

// runQuery loads the search data and prints matching entries
func runQuery(w io.Writer, path, text, modeFlag, kindFlag string, limit int, jsonOutput bool) error {
	mode, err := searchdata.ParseMode(modeFlag)
	if err != nil {
		return err
	}
	var kind searchdata.Kind
	if kindFlag != "" {
		var ok bool
		if kind, ok = searchdata.ParseKind(kindFlag); !ok {
			return fmt.Errorf("unknown kind %q", kindFlag)
		}
	}

	var hits []symbolindex.Hit
	if mode == searchdata.ModePrefix && kind == "" && store.IsSnapshot(path) {
		matches, err := snapshotPrefix(path, text, limit)
		if err != nil {
			return err
		}
		return printHits(w, text, entryHits(matches), jsonOutput)
	}

	entries, err := loadEntries(path)
	if err != nil {
		return err
	}

	if mode == searchdata.ModeFulltext {
		index, err := symbolindex.BuildMem(entries)
		if err != nil {
			return err
		}
		defer index.Close()

		result, err := symbolindex.Search(index, symbolindex.Query{Text: text, Mode: mode, Kind: kind, Limit: limit})
		if err != nil {
			return err
		}
		hits = result.Hits
	} else {
		table := searchdata.NewTable(entries)
		if kind != "" {
			table = table.Filter(kind)
		}
		matches, err := table.Search(mode, text, limit)
		if err != nil {
			return err
		}
		hits = entryHits(matches)
	}

	return printHits(w, text, hits, jsonOutput)
}

func entryHits(entries []searchdata.Entry) []symbolindex.Hit {
	hits := make([]symbolindex.Hit, 0, len(entries))
	for _, entry := range entries {
		hits = append(hits, symbolindex.Hit{
			Key:      entry.Key,
			Name:     entry.Name,
			Category: entry.Category,
			Kinds:    entry.Kinds(),
			Items:    entry.Items,
		})
	}
	return hits
}

func printHits(w io.Writer, text string, hits []symbolindex.Hit, jsonOutput bool) error {
	if jsonOutput {
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(hits)
	}

	if len(hits) == 0 {
		fmt.Fprintf(w, "No symbols match %q.\n", text)
		return nil
	}
	for _, hit := range hits {
		printHit(w, hit)
	}
	return nil
}

func printHit(w io.Writer, hit symbolindex.Hit) {
	fmt.Fprintf(w, "%s\n", hit.Name)
	for _, item := range hit.Items {
		line := fmt.Sprintf("  %-9s %s", item.Kind, item.Link)
		if item.Scope != "" {
			line += "  (" + item.Scope + ")"
		}
		fmt.Fprintln(w, strings.TrimRight(line, " "))
	}
}
