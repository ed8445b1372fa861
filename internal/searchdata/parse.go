package searchdata

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"
)

var (
	// ErrMalformed is returned when a search file is not a valid searchData literal
	ErrMalformed = errors.New("malformed search data")

	// ErrNoSearchData is returned when a directory holds no search files
	ErrNoSearchData = errors.New("no search data files found")
)

// Parse parses the contents of a Doxygen search file ("var searchData=[...];")
// into enriched entries, preserving their order
func Parse(data []byte) ([]Entry, error) {
	start, err := locateArray(data)
	if err != nil {
		return nil, err
	}

	p := &parser{data: data, pos: start}
	value, err := p.parseValue()
	if err != nil {
		return nil, err
	}

	// Only a statement terminator may follow the literal
	p.skipSpace()
	if p.pos < len(p.data) && p.data[p.pos] == ';' {
		p.pos++
	}
	p.skipSpace()
	if p.pos < len(p.data) {
		return nil, p.errorf("unexpected %q after search table", p.data[p.pos])
	}

	rows, ok := value.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: search table is not an array", ErrMalformed)
	}

	entries := make([]Entry, 0, len(rows))
	for i, row := range rows {
		entry, err := toEntry(row)
		if err != nil {
			return nil, fmt.Errorf("%w: entry %d: %v", ErrMalformed, i, err)
		}
		Enrich(&entry)
		entries = append(entries, entry)
	}
	return entries, nil
}

// ParseFile parses one search file and tags its entries with the file's category
func ParseFile(path string) ([]Entry, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat search file: %w", err)
	}
	if info.Size() > MaxFileSize {
		return nil, fmt.Errorf("search file %s too large (%d bytes)", path, info.Size())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read search file: %w", err)
	}

	entries, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}

	category := CategoryFromFile(path)
	for i := range entries {
		entries[i].Category = category
	}
	return entries, nil
}

// CategoryFromFile returns the search file family of a file name
// Example: "search/functions_1a.js" -> "functions"
func CategoryFromFile(path string) string {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if i := strings.LastIndex(base, "_"); i > 0 {
		return base[:i]
	}
	return base
}

// SearchFiles lists the search files of a Doxygen search directory.
// The per-letter "all_*" files hold every symbol and are preferred; without
// them every .js file assigning searchData is used.
func SearchFiles(dir string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(dir, UnionFilePrefix+"_*.js"))
	if err != nil {
		return nil, fmt.Errorf("failed to list search files: %w", err)
	}

	if len(files) == 0 {
		candidates, err := filepath.Glob(filepath.Join(dir, "*.js"))
		if err != nil {
			return nil, fmt.Errorf("failed to list search files: %w", err)
		}
		for _, candidate := range candidates {
			data, err := os.ReadFile(candidate)
			if err != nil {
				return nil, fmt.Errorf("failed to read %s: %w", candidate, err)
			}
			if bytes.Contains(data, []byte(SearchDataVar)) {
				files = append(files, candidate)
			}
		}
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoSearchData, dir)
	}
	sort.Strings(files)
	return files, nil
}

// LoadDir parses every search file of a directory in lexical file order
func LoadDir(dir string) ([]Entry, error) {
	files, err := SearchFiles(dir)
	if err != nil {
		return nil, err
	}

	var entries []Entry
	for _, file := range files {
		fileEntries, err := ParseFile(file)
		if err != nil {
			return nil, err
		}
		entries = append(entries, fileEntries...)
	}
	return entries, nil
}

// Load parses a search directory or a single search file
func Load(path string) ([]Entry, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open search data: %w", err)
	}
	if info.IsDir() {
		return LoadDir(path)
	}
	return ParseFile(path)
}

// locateArray returns the offset of the '[' opening the search table
func locateArray(data []byte) (int, error) {
	idx := bytes.Index(data, []byte(SearchDataVar))
	if idx < 0 {
		// Bare array literal
		trimmed := bytes.TrimLeft(data, " \t\r\n")
		if len(trimmed) > 0 && trimmed[0] == '[' {
			return len(data) - len(trimmed), nil
		}
		return 0, fmt.Errorf("%w: no %s assignment", ErrMalformed, SearchDataVar)
	}

	p := &parser{data: data, pos: idx + len(SearchDataVar)}
	p.skipSpace()
	if p.pos >= len(data) || data[p.pos] != '=' {
		return 0, p.errorf("expected '=' after %s", SearchDataVar)
	}
	p.pos++
	p.skipSpace()
	if p.pos >= len(data) || data[p.pos] != '[' {
		return 0, p.errorf("expected '[' opening the search table")
	}
	return p.pos, nil
}

// toEntry converts a parsed ['key',['Display',[link,flag,scope],...]] row
func toEntry(row any) (Entry, error) {
	pair, ok := row.([]any)
	if !ok || len(pair) != 2 {
		return Entry{}, errors.New("expected [key, value] pair")
	}
	key, ok := pair[0].(string)
	if !ok {
		return Entry{}, errors.New("key is not a string")
	}
	value, ok := pair[1].([]any)
	if !ok || len(value) == 0 {
		return Entry{}, fmt.Errorf("key %q: value is not a non-empty array", key)
	}
	display, ok := value[0].(string)
	if !ok {
		return Entry{}, fmt.Errorf("key %q: display name is not a string", key)
	}

	entry := Entry{Key: key, Items: make([]Item, 0, len(value)-1)}
	for i, raw := range value[1:] {
		fields, ok := raw.([]any)
		if !ok || len(fields) == 0 {
			return Entry{}, fmt.Errorf("key %q: item %d is not an array", key, i)
		}
		item := Item{Display: display}
		if item.Link, ok = fields[0].(string); !ok {
			return Entry{}, fmt.Errorf("key %q: item %d link is not a string", key, i)
		}
		if len(fields) > 1 {
			if item.Flag, ok = fields[1].(int); !ok {
				return Entry{}, fmt.Errorf("key %q: item %d flag is not a number", key, i)
			}
		}
		if len(fields) > 2 {
			if item.Scope, ok = fields[2].(string); !ok {
				return Entry{}, fmt.Errorf("key %q: item %d scope is not a string", key, i)
			}
		}
		entry.Items = append(entry.Items, item)
	}
	return entry, nil
}

// parser reads the subset of JavaScript literals Doxygen emits:
// nested arrays, quoted strings and integers
type parser struct {
	data []byte
	pos  int
}

func (p *parser) errorf(format string, args ...any) error {
	return fmt.Errorf("%w at offset %d: %s", ErrMalformed, p.pos, fmt.Sprintf(format, args...))
}

func (p *parser) skipSpace() {
	for p.pos < len(p.data) {
		switch p.data[p.pos] {
		case ' ', '\t', '\r', '\n':
			p.pos++
		default:
			return
		}
	}
}

func (p *parser) parseValue() (any, error) {
	p.skipSpace()
	if p.pos >= len(p.data) {
		return nil, p.errorf("unexpected end of input")
	}

	switch c := p.data[p.pos]; {
	case c == '[':
		return p.parseArray()
	case c == '\'' || c == '"':
		return p.parseString(c)
	case c == '-' || (c >= '0' && c <= '9'):
		return p.parseNumber()
	default:
		return nil, p.errorf("unexpected %q", c)
	}
}

func (p *parser) parseArray() ([]any, error) {
	p.pos++ // '['
	values := []any{}
	for {
		p.skipSpace()
		if p.pos >= len(p.data) {
			return nil, p.errorf("unterminated array")
		}
		if p.data[p.pos] == ']' {
			p.pos++
			return values, nil
		}

		value, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		values = append(values, value)

		p.skipSpace()
		if p.pos >= len(p.data) {
			return nil, p.errorf("unterminated array")
		}
		switch p.data[p.pos] {
		case ',':
			p.pos++
		case ']':
		default:
			return nil, p.errorf("expected ',' or ']', got %q", p.data[p.pos])
		}
	}
}

func (p *parser) parseString(quote byte) (string, error) {
	p.pos++ // opening quote
	var b strings.Builder
	for {
		if p.pos >= len(p.data) {
			return "", p.errorf("unterminated string")
		}
		c := p.data[p.pos]
		switch {
		case c == quote:
			p.pos++
			return b.String(), nil
		case c == '\n':
			return "", p.errorf("newline in string")
		case c == '\\':
			if err := p.parseEscape(&b); err != nil {
				return "", err
			}
		default:
			b.WriteByte(c)
			p.pos++
		}
	}
}

func (p *parser) parseEscape(b *strings.Builder) error {
	p.pos++ // backslash
	if p.pos >= len(p.data) {
		return p.errorf("unterminated escape")
	}
	c := p.data[p.pos]
	p.pos++
	switch c {
	case 'n':
		b.WriteByte('\n')
	case 't':
		b.WriteByte('\t')
	case 'r':
		b.WriteByte('\r')
	case 'u', 'x':
		width := 4
		if c == 'x' {
			width = 2
		}
		if p.pos+width > len(p.data) {
			return p.errorf("short \\%c escape", c)
		}
		code, err := strconv.ParseUint(string(p.data[p.pos:p.pos+width]), 16, 32)
		if err != nil {
			return p.errorf("invalid \\%c escape", c)
		}
		p.pos += width
		var buf [utf8.UTFMax]byte
		n := utf8.EncodeRune(buf[:], rune(code))
		b.Write(buf[:n])
	default:
		// \' \" \\ \/ and anything else stand for themselves
		b.WriteByte(c)
	}
	return nil
}

func (p *parser) parseNumber() (int, error) {
	start := p.pos
	if p.data[p.pos] == '-' {
		p.pos++
	}
	for p.pos < len(p.data) && p.data[p.pos] >= '0' && p.data[p.pos] <= '9' {
		p.pos++
	}
	n, err := strconv.Atoi(string(p.data[start:p.pos]))
	if err != nil {
		p.pos = start
		return 0, p.errorf("invalid number")
	}
	return n, nil
}
