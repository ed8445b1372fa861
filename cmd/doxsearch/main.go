/*
Package main is the entry point for the doxsearch CLI.

doxsearch reads the search index Doxygen generates for the PAWpySeed
documentation (docs/search/*.js) and makes it usable from a terminal.

Usage:

	doxsearch [command]

Available Commands:

	query       Search symbols in Doxygen search data
	validate    Check Doxygen search data for malformed entries
	export      Export parsed search entries as JSON, JSONL or SQLite
	diff        Compare two generations of search data

Examples:

	doxsearch query docs/search proj_
	doxsearch validate docs/search
*/
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pawpyseed/doxsearch/internal/cli"
)

// Version information (set via ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "doxsearch",
		Short: "Query and check Doxygen search indexes",
		Long: `doxsearch works on the client-side search index Doxygen generates
(search/all_*.js). It answers the same prefix lookups as the documentation
search box, adds substring and full-text matching, validates the data and
exports it as JSON, JSONL or SQLite.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceErrors: true,
	}

	rootCmd.AddCommand(cli.NewQueryCmd())
	rootCmd.AddCommand(cli.NewValidateCmd())
	rootCmd.AddCommand(cli.NewExportCmd())
	rootCmd.AddCommand(cli.NewDiffCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
