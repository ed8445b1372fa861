package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pawpyseed/doxsearch/internal/changes"
	"github.com/pawpyseed/doxsearch/internal/searchdata"
)

// NewDiffCmd creates the 'diff' command
func NewDiffCmd() *cobra.Command {
	var contextLines int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "diff <old> <new>",
		Short: "Compare two generations of search data",
		Long: `Report symbols added, removed or changed between two documentation builds,
followed by a unified patch over a canonical one-line-per-link listing.`,
		Example: `  doxsearch diff old-docs/search docs/search
  doxsearch diff old/all_e.js new/all_e.js --context 1
  doxsearch diff old-docs/search docs/search --json
  doxsearch diff release-1.0.db docs/search`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiff(cmd.OutOrStdout(), args[0], args[1], contextLines, jsonOutput)
		},
	}

	cmd.Flags().IntVarP(&contextLines, "context", "c", changes.DefaultContext, "Context lines in the patch")
	cmd.Flags().BoolVarP(&jsonOutput, "json", "j", false, "Output as JSON")

	return cmd
}

// runDiff prints the changes between the search data at oldPath and newPath
func runDiff(w io.Writer, oldPath, newPath string, contextLines int, jsonOutput bool) error {
	before, err := loadEntries(oldPath)
	if err != nil {
		return err
	}
	after, err := loadEntries(newPath)
	if err != nil {
		return err
	}

	report, err := changes.Diff(before, after, changes.Options{
		OldName: oldPath,
		NewName: newPath,
		Context: contextLines,
	})
	if err != nil {
		return err
	}

	if jsonOutput {
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(report)
	}

	fmt.Fprintln(w, report.Summary())
	printKeys(w, "+", report.Added)
	printKeys(w, "-", report.Removed)
	printKeys(w, "~", report.Changed)
	if report.Patch != "" {
		fmt.Fprintln(w)
		fmt.Fprint(w, report.Patch)
		if !strings.HasSuffix(report.Patch, "\n") {
			fmt.Fprintln(w)
		}
	}
	return nil
}

func printKeys(w io.Writer, marker string, keys []string) {
	for _, key := range keys {
		fmt.Fprintf(w, "  %s %s\n", marker, searchdata.DecodeKey(key))
	}
}
