package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/pawpyseed/doxsearch/internal/searchdata"
)

// NewValidateCmd creates the 'validate' command
func NewValidateCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "validate <search-dir|file|snapshot.db>",
		Short: "Check Doxygen search data for malformed entries",
		Long: `Parse the search files and report schema violations, duplicate keys,
entries without links and links that do not point into the HTML tree.

Exits with a non-zero status when any issue is found.`,
		Example: `  doxsearch validate docs/search
  doxsearch validate docs/search/all_e.js --json`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd.OutOrStdout(), args[0], jsonOutput)
		},
	}

	cmd.Flags().BoolVarP(&jsonOutput, "json", "j", false, "Output the report as JSON")

	return cmd
}

// runValidate prints the validation report of path and fails when it is invalid
func runValidate(w io.Writer, path string, jsonOutput bool) error {
	var report searchdata.Report
	entries, err := loadEntries(path)
	switch {
	case errors.Is(err, searchdata.ErrMalformed):
		report = searchdata.ParseFailureReport(err)
	case err != nil:
		return err
	default:
		report = searchdata.Validate(entries)
	}

	if jsonOutput {
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(report); err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
	} else {
		fmt.Fprintf(w, "Entries: %d, items: %d\n", report.Entries, report.Items)
		for _, issue := range report.Issues {
			fmt.Fprintf(w, "  [%s] %s %s: %s\n", issue.Code, issue.Path, issue.Key, issue.Message)
		}
		if report.Valid {
			fmt.Fprintln(w, "✓ Search data is valid")
		}
	}

	if !report.Valid {
		return fmt.Errorf("search data has %d issue(s)", len(report.Issues))
	}
	return nil
}
