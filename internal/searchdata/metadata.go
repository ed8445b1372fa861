package searchdata

import (
	"html"
	"path"
	"strings"
	"unicode"
)

// sourcePageSuffix marks Doxygen's source listing of a file
const sourcePageSuffix = "_source"

// compoundPrefixes maps Doxygen output file prefixes to kinds.
// Checked in order, on the decoded file name.
var compoundPrefixes = []struct {
	prefix string
	kind   Kind
}{
	{"namespace", KindNamespace},
	{"interface", KindInterface},
	{"class", KindClass},
	{"struct", KindStruct},
	{"union", KindUnion},
	{"group_", KindGroup},
}

// DecodeKey reverses the hex escaping Doxygen applies to search keys
// Example: "proj_5fgrid" -> "proj_grid", "plots_2epy" -> "plots.py"
func DecodeKey(key string) string {
	if !strings.Contains(key, "_") {
		return key
	}
	var b strings.Builder
	b.Grow(len(key))
	for i := 0; i < len(key); i++ {
		if key[i] == '_' && i+2 < len(key) && isHex(key[i+1]) && isHex(key[i+2]) {
			b.WriteByte(unhex(key[i+1])<<4 | unhex(key[i+2]))
			i += 2
			continue
		}
		b.WriteByte(key[i])
	}
	return b.String()
}

func isHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func unhex(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}

// DecodeFileName reverses Doxygen's escaping of output file names
// Example: "pawpyseed_1_1core_1_1utils" -> "pawpyseed::core::utils", "utils_8h" -> "utils.h".
// Upper-case letters escaped as "_p" (CASE_SENSE_NAMES=NO) are restored.
func DecodeFileName(name string) string {
	if !strings.Contains(name, "_") {
		return name
	}
	var b strings.Builder
	b.Grow(len(name))
	for i := 0; i < len(name); i++ {
		if name[i] != '_' || i+1 >= len(name) {
			b.WriteByte(name[i])
			continue
		}
		next := name[i+1]
		if next == '0' && i+2 < len(name) {
			if r, ok := fileEscapes2[name[i+2]]; ok {
				b.WriteByte(r)
				i += 2
				continue
			}
		}
		if r, ok := fileEscapes1[next]; ok {
			b.WriteByte(r)
			i++
			continue
		}
		if next >= 'a' && next <= 'z' {
			b.WriteByte(next - 'a' + 'A')
			i++
			continue
		}
		b.WriteByte(name[i])
	}
	return b.String()
}

// hasFileExtension reports whether the last escape in an output file name
// is a "_8" dot followed by a plain extension, as in "utils_8h".
// "__8" is an escaped underscore and does not count.
func hasFileExtension(base string) bool {
	ext := -1
	for i := 0; i < len(base); i++ {
		if base[i] != '_' {
			continue
		}
		ext = -1
		if i+1 >= len(base) {
			return false
		}
		switch next := base[i+1]; {
		case next == '8':
			ext = i + 2
			i++
		case next == '0' && i+2 < len(base):
			i += 2
		default:
			i++
		}
	}
	return ext > 0 && ext < len(base)
}

var fileEscapes1 = map[byte]byte{
	'_': '_', '1': ':', '2': '/', '3': '<', '4': '>', '5': '*',
	'6': '&', '7': '|', '8': '.', '9': '!',
}

var fileEscapes2 = map[byte]byte{
	'0': ',', '1': ' ', '2': '{', '3': '}', '4': '?', '5': '^', '6': '%', '7': '(',
	'8': ')', '9': '+', 'a': '=', 'b': '$', 'c': '\\', 'd': '@', 'e': ']', 'f': '[',
	'g': '#',
}

// ClassifyLink derives the kind, target compound and anchor of a documentation link
// Example: "../structppot.html#a0cf2" -> member, "ppot", "a0cf2"
func ClassifyLink(link string) (kind Kind, target, anchor string) {
	p, anchor, _ := strings.Cut(link, "#")
	base := path.Base(p)
	if !strings.HasSuffix(base, ".html") {
		return KindUnknown, base, anchor
	}
	base = strings.TrimSuffix(base, ".html")

	kind = KindPage
	target = DecodeFileName(base)
	switch {
	case strings.HasPrefix(base, "dir_"):
		// Directory pages are named by hash, nothing to decode
		kind, target = KindDir, strings.TrimPrefix(base, "dir_")
	case strings.HasPrefix(base, "md_"):
		target = DecodeFileName(strings.TrimPrefix(base, "md_"))
	case strings.HasSuffix(base, sourcePageSuffix) && hasFileExtension(strings.TrimSuffix(base, sourcePageSuffix)):
		kind, target = KindFile, DecodeFileName(strings.TrimSuffix(base, sourcePageSuffix))
	case hasFileExtension(base):
		kind = KindFile
	default:
		for _, cp := range compoundPrefixes {
			if strings.HasPrefix(target, cp.prefix) && len(target) > len(cp.prefix) {
				kind = cp.kind
				target = strings.TrimPrefix(target, cp.prefix)
				break
			}
		}
	}

	if anchor != "" {
		kind = KindMember
	}
	return kind, target, anchor
}

// CleanScope unescapes HTML entities and normalizes non-breaking spaces
// Example: "pseudoprojection():&#160;pseudoprojector.h" -> "pseudoprojection(): pseudoprojector.h"
func CleanScope(scope string) string {
	scope = html.UnescapeString(scope)
	scope = strings.ReplaceAll(scope, "\u00a0", " ")
	return strings.TrimSpace(scope)
}

// SplitIdentifier breaks an identifier into lower-case words on
// punctuation, snake_case and CamelCase boundaries
func SplitIdentifier(s string) []string {
	var words []string
	var current []rune
	flush := func() {
		if len(current) > 0 {
			words = append(words, strings.ToLower(string(current)))
			current = current[:0]
		}
	}

	runes := []rune(s)
	for i, r := range runes {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			flush()
			continue
		}
		if unicode.IsUpper(r) && len(current) > 0 {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				flush()
			}
		}
		current = append(current, r)
	}
	flush()
	return words
}

// ExtractTerms collects the distinct search terms of an entry: identifier
// words of its name, display names, scopes and targets, plus the full
// lower-cased identifiers themselves
func ExtractTerms(entry Entry) []string {
	sources := []string{entry.Name}
	for _, item := range entry.Items {
		sources = append(sources, item.Display, item.Scope, item.Target)
	}

	seen := make(map[string]bool)
	var terms []string
	add := func(term string) {
		if len(term) > 1 && !seen[term] {
			seen[term] = true
			terms = append(terms, term)
		}
	}
	for _, src := range sources {
		words := SplitIdentifier(src)
		if len(words) > 1 {
			add(strings.ToLower(strings.Join(words, "")))
		}
		for _, w := range words {
			add(w)
		}
	}
	return terms
}

// Enrich fills the derived fields of an entry: decoded name, cleaned scopes,
// and the kind, target and anchor of each item
func Enrich(entry *Entry) {
	entry.Name = DecodeKey(entry.Key)
	for i := range entry.Items {
		item := &entry.Items[i]
		item.Scope = CleanScope(item.Scope)
		item.Kind, item.Target, item.Anchor = ClassifyLink(item.Link)
	}
}
