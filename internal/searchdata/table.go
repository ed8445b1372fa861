package searchdata

import (
	"fmt"
	"sort"
	"strings"
)

// Mode selects how a query is matched against symbol names
type Mode string

const (
	ModePrefix    Mode = "prefix"
	ModeSubstring Mode = "substring"
	ModeFulltext  Mode = "fulltext"
)

// ParseMode maps user input to a Mode, defaulting to prefix matching
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModePrefix, nil
	case ModePrefix, ModeSubstring, ModeFulltext:
		return m, nil
	default:
		return "", fmt.Errorf("unknown search mode %q (want prefix, substring or fulltext)", s)
	}
}

// Merge folds entries sharing a key into one, appending items in input order.
// The first occurrence fixes the entry's position and category.
func Merge(entries []Entry) []Entry {
	merged := make([]Entry, 0, len(entries))
	index := make(map[string]int, len(entries))
	for _, entry := range entries {
		if i, ok := index[entry.Key]; ok {
			merged[i].Items = append(merged[i].Items, entry.Items...)
			continue
		}
		index[entry.Key] = len(merged)
		entry.Items = append([]Item(nil), entry.Items...)
		merged = append(merged, entry)
	}
	return merged
}

// Table is a static, read-only lookup table over search entries.
// It is safe for concurrent use.
type Table struct {
	entries []Entry // Merged, sorted by lower-cased name
	names   []string
	byName  map[string]int
}

// NewTable builds a lookup table, merging entries that share a key
func NewTable(entries []Entry) *Table {
	merged := Merge(entries)
	sort.SliceStable(merged, func(i, j int) bool {
		ni, nj := strings.ToLower(merged[i].Name), strings.ToLower(merged[j].Name)
		if ni != nj {
			return ni < nj
		}
		return merged[i].Key < merged[j].Key
	})

	t := &Table{
		entries: merged,
		names:   make([]string, len(merged)),
		byName:  make(map[string]int, len(merged)),
	}
	for i, entry := range merged {
		name := strings.ToLower(entry.Name)
		t.names[i] = name
		if _, ok := t.byName[name]; !ok {
			t.byName[name] = i
		}
	}
	return t
}

// Len returns the number of distinct keys
func (t *Table) Len() int {
	return len(t.entries)
}

// Entries returns the table rows in name order
func (t *Table) Entries() []Entry {
	return append([]Entry(nil), t.entries...)
}

// Lookup finds an entry by decoded name, case-insensitively.
// Raw encoded keys ("proj_5fgrid") are accepted as well.
func (t *Table) Lookup(name string) (Entry, bool) {
	q := normalizeQuery(name)
	if q == "" {
		return Entry{}, false
	}
	if i, ok := t.byName[q]; ok {
		return t.entries[i], true
	}
	if i, ok := t.byName[strings.ToLower(DecodeKey(q))]; ok {
		return t.entries[i], true
	}
	return Entry{}, false
}

// Prefix returns entries whose name starts with query, in name order
func (t *Table) Prefix(query string, limit int) []Entry {
	q := normalizeQuery(query)
	if q == "" {
		return nil
	}

	var results []Entry
	start := sort.SearchStrings(t.names, q)
	for i := start; i < len(t.names) && strings.HasPrefix(t.names[i], q); i++ {
		results = append(results, t.entries[i])
		if limit > 0 && len(results) >= limit {
			break
		}
	}
	return results
}

// Substring returns entries whose name contains query.
// Prefix matches come first, then inner matches, each group in name order.
func (t *Table) Substring(query string, limit int) []Entry {
	q := normalizeQuery(query)
	if q == "" {
		return nil
	}

	results := t.Prefix(q, limit)
	if limit > 0 && len(results) >= limit {
		return results
	}
	for i, name := range t.names {
		if strings.HasPrefix(name, q) || !strings.Contains(name, q) {
			continue
		}
		results = append(results, t.entries[i])
		if limit > 0 && len(results) >= limit {
			break
		}
	}
	return results
}

// Search dispatches on mode. Full-text matching needs the bleve index.
func (t *Table) Search(mode Mode, query string, limit int) ([]Entry, error) {
	switch mode {
	case ModePrefix, "":
		return t.Prefix(query, limit), nil
	case ModeSubstring:
		return t.Substring(query, limit), nil
	default:
		return nil, fmt.Errorf("search mode %q is not supported by the lookup table", mode)
	}
}

// Filter returns a table restricted to entries with at least one item of kind k
func (t *Table) Filter(k Kind) *Table {
	var kept []Entry
	for _, entry := range t.entries {
		if entry.HasKind(k) {
			kept = append(kept, entry)
		}
	}
	return NewTable(kept)
}

func normalizeQuery(q string) string {
	return strings.ToLower(strings.TrimSpace(q))
}
