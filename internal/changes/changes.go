// Package changes compares two generations of a search table.
// Doxygen rewrites the search files wholesale on every documentation build,
// so changes are computed on a canonical listing rather than on the raw files.
package changes

import (
	"fmt"
	"sort"
	"strings"

	difflib "github.com/pmezard/go-difflib/difflib"

	"github.com/pawpyseed/doxsearch/internal/searchdata"
)

// DefaultContext is the number of context lines in unified hunks
const DefaultContext = 3

// Options controls patch generation
type Options struct {
	OldName string // Defaults to "old"
	NewName string // Defaults to "new"
	Context int    // Context lines; negative means DefaultContext
}

// Report lists the keys that differ between two tables and a unified patch
// over their canonical listings
type Report struct {
	Added   []string `json:"added"`
	Removed []string `json:"removed"`
	Changed []string `json:"changed"`
	Patch   string   `json:"patch,omitempty"`
}

// Empty reports whether the two tables are equivalent
func (r Report) Empty() bool {
	return len(r.Added) == 0 && len(r.Removed) == 0 && len(r.Changed) == 0
}

// Summary returns a one-line description of the report
func (r Report) Summary() string {
	if r.Empty() {
		return "no changes"
	}
	return fmt.Sprintf("%d added, %d removed, %d changed", len(r.Added), len(r.Removed), len(r.Changed))
}

// Diff compares the before and after generations. Entries are merged by key first, so the
// order of rows in the search files does not matter.
func Diff(before, after []searchdata.Entry, opt Options) (Report, error) {
	oldLines := keyedLines(before)
	newLines := keyedLines(after)

	report := Report{Added: []string{}, Removed: []string{}, Changed: []string{}}
	for key, lines := range newLines {
		previous, ok := oldLines[key]
		switch {
		case !ok:
			report.Added = append(report.Added, key)
		case strings.Join(previous, "") != strings.Join(lines, ""):
			report.Changed = append(report.Changed, key)
		}
	}
	for key := range oldLines {
		if _, ok := newLines[key]; !ok {
			report.Removed = append(report.Removed, key)
		}
	}
	sort.Strings(report.Added)
	sort.Strings(report.Removed)
	sort.Strings(report.Changed)

	if report.Empty() {
		return report, nil
	}

	if opt.OldName == "" {
		opt.OldName = "old"
	}
	if opt.NewName == "" {
		opt.NewName = "new"
	}
	if opt.Context < 0 {
		opt.Context = DefaultContext
	}

	patch, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        splitLinesKeepNL(Listing(before)),
		B:        splitLinesKeepNL(Listing(after)),
		FromFile: opt.OldName,
		ToFile:   opt.NewName,
		Context:  opt.Context,
	})
	if err != nil {
		return Report{}, fmt.Errorf("failed to build patch: %w", err)
	}
	report.Patch = patch
	return report, nil
}

// Listing renders entries as one tab-separated line per item, sorted by key
// Example: "proj_5fgrid\tproj_grid\t../structppot.html#a0cf2...\tppot\n"
func Listing(entries []searchdata.Entry) string {
	byKey := keyedLines(entries)
	keys := make([]string, 0, len(byKey))
	for key := range byKey {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, key := range keys {
		for _, line := range byKey[key] {
			b.WriteString(line)
		}
	}
	return b.String()
}

func keyedLines(entries []searchdata.Entry) map[string][]string {
	lines := make(map[string][]string, len(entries))
	for _, entry := range searchdata.Merge(entries) {
		entryLines := make([]string, 0, len(entry.Items))
		for _, item := range entry.Items {
			entryLines = append(entryLines, fmt.Sprintf("%s\t%s\t%s\t%s\n", entry.Key, item.Display, item.Link, item.Scope))
		}
		if len(entryLines) == 0 {
			entryLines = append(entryLines, entry.Key+"\n")
		}
		lines[entry.Key] = entryLines
	}
	return lines
}

// splitLinesKeepNL splits into lines and keeps newline characters,
// which produces better unified hunks.
func splitLinesKeepNL(s string) []string {
	if s == "" {
		return []string{}
	}
	return strings.SplitAfter(s, "\n")
}
