package symbolindex

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/pawpyseed/doxsearch/internal/searchdata"
)

// Searcher is the read side of a bleve index
type Searcher interface {
	Search(req *bleve.SearchRequest) (*bleve.SearchResult, error)
}

// Query describes a symbol search
type Query struct {
	Text  string
	Mode  searchdata.Mode
	Kind  searchdata.Kind // Optional: restrict to entries with an item of this kind
	Limit int
}

// Hit is one matching search entry
type Hit struct {
	Key      string            `json:"key"`
	Name     string            `json:"name"`
	Category string            `json:"category,omitempty"`
	Kinds    []searchdata.Kind `json:"kinds"`
	Items    []searchdata.Item `json:"items"`
	Score    float64           `json:"score,omitempty"`
}

// Result holds the hits of a search and the total number of matches
type Result struct {
	Query string          `json:"query"`
	Mode  searchdata.Mode `json:"mode"`
	Total uint64          `json:"total"`
	Hits  []Hit           `json:"hits"`
}

// Scope is a compound (namespace, class, file...) listed by Scopes
type Scope struct {
	Name   string          `json:"name"`
	Kind   searchdata.Kind `json:"kind"`
	Target string          `json:"target"`
	Link   string          `json:"link"`
	Parent string          `json:"parent,omitempty"`
}

// Search runs q against s. Prefix and substring results are ordered by name;
// substring puts prefix matches first. Full-text results are ordered by score.
func Search(s Searcher, q Query) (Result, error) {
	mode := q.Mode
	if mode == "" {
		mode = searchdata.ModePrefix
	}
	result := Result{Query: q.Text, Mode: mode, Hits: []Hit{}}

	text := strings.ToLower(strings.TrimSpace(q.Text))
	if text == "" {
		return result, nil
	}
	limit := clampLimit(q.Limit, DefaultMaxResults, MaxResultsCap)

	switch mode {
	case searchdata.ModePrefix:
		res, err := run(s, withKind(namePrefix(text), q.Kind), limit, true)
		if err != nil {
			return Result{}, err
		}
		result.Total = res.Total
		result.Hits = appendHits(result.Hits, res)

	case searchdata.ModeSubstring:
		res, err := run(s, withKind(namePrefix(text), q.Kind), limit, true)
		if err != nil {
			return Result{}, err
		}
		result.Total = res.Total
		result.Hits = appendHits(result.Hits, res)

		// Inner matches, excluding what the prefix query already returned
		inner := bleve.NewBooleanQuery()
		inner.AddMust(nameContains(text))
		inner.AddMustNot(namePrefix(text))
		if q.Kind != "" {
			inner.AddMust(kindTerm(q.Kind))
		}
		res, err = run(s, inner, limit-len(result.Hits), true)
		if err != nil {
			return Result{}, err
		}
		result.Total += res.Total
		result.Hits = appendHits(result.Hits, res)

	case searchdata.ModeFulltext:
		disjunction := bleve.NewDisjunctionQuery()
		for _, field := range []string{FieldDisplay, FieldScopes, FieldTerms} {
			match := bleve.NewMatchQuery(q.Text)
			match.SetField(field)
			disjunction.AddQuery(match)
		}
		exact := bleve.NewTermQuery(text)
		exact.SetField(FieldName)
		exact.SetBoost(3)
		disjunction.AddQuery(exact)
		prefix := namePrefix(text)
		prefix.SetBoost(1.5)
		disjunction.AddQuery(prefix)

		res, err := run(s, withKind(disjunction, q.Kind), limit, false)
		if err != nil {
			return Result{}, err
		}
		result.Total = res.Total
		result.Hits = appendHits(result.Hits, res)

	default:
		return Result{}, fmt.Errorf("unknown search mode %q", mode)
	}

	return result, nil
}

// Lookup finds an entry by exact name (case-insensitive) or raw Doxygen key
func Lookup(s Searcher, name string) (Hit, bool, error) {
	q := strings.ToLower(strings.TrimSpace(name))
	if q == "" {
		return Hit{}, false, nil
	}

	candidates := []string{q}
	if decoded := strings.ToLower(searchdata.DecodeKey(q)); decoded != q {
		candidates = append(candidates, decoded)
	}
	for _, candidate := range candidates {
		term := bleve.NewTermQuery(candidate)
		term.SetField(FieldName)
		res, err := run(s, term, 1, true)
		if err != nil {
			return Hit{}, false, err
		}
		if len(res.Hits) > 0 {
			return decodeHit(res.Hits[0]), true, nil
		}
	}
	return Hit{}, false, nil
}

// Scopes lists compound items (namespaces, classes, files...) in name order.
// An empty kind lists every compound kind. limit bounds the number of entries read.
func Scopes(s Searcher, kind searchdata.Kind, limit int) ([]Scope, uint64, error) {
	var q query.Query
	if kind != "" {
		if !kind.IsCompound() {
			return nil, 0, fmt.Errorf("kind %q is not a compound kind", kind)
		}
		q = kindTerm(kind)
	} else {
		disjunction := bleve.NewDisjunctionQuery()
		for _, k := range compoundKinds {
			disjunction.AddQuery(kindTerm(k))
		}
		q = disjunction
	}

	res, err := run(s, q, clampLimit(limit, DefaultScopeResults, MaxScopeResults), true)
	if err != nil {
		return nil, 0, err
	}

	scopes := []Scope{}
	for _, match := range res.Hits {
		hit := decodeHit(match)
		for _, item := range hit.Items {
			if !item.Kind.IsCompound() || (kind != "" && item.Kind != kind) {
				continue
			}
			scopes = append(scopes, Scope{
				Name:   item.Display,
				Kind:   item.Kind,
				Target: item.Target,
				Link:   item.Link,
				Parent: item.Scope,
			})
		}
	}
	return scopes, res.Total, nil
}

var compoundKinds = []searchdata.Kind{
	searchdata.KindNamespace, searchdata.KindClass, searchdata.KindStruct, searchdata.KindUnion,
	searchdata.KindInterface, searchdata.KindFile, searchdata.KindDir, searchdata.KindGroup,
	searchdata.KindPage,
}

func run(s Searcher, q query.Query, size int, byName bool) (*bleve.SearchResult, error) {
	req := bleve.NewSearchRequestOptions(q, size, 0, false)
	req.Fields = storedFields
	if byName {
		req.SortBy([]string{FieldName, FieldKey})
	}
	res, err := s.Search(req)
	if err != nil {
		return nil, fmt.Errorf("bleve search failed: %w", err)
	}
	return res, nil
}

func namePrefix(text string) *query.PrefixQuery {
	q := bleve.NewPrefixQuery(text)
	q.SetField(FieldName)
	return q
}

// nameContains matches names containing text literally
func nameContains(text string) *query.RegexpQuery {
	q := bleve.NewRegexpQuery(".*" + regexp.QuoteMeta(text) + ".*")
	q.SetField(FieldName)
	return q
}

func kindTerm(kind searchdata.Kind) *query.TermQuery {
	q := bleve.NewTermQuery(string(kind))
	q.SetField(FieldKinds)
	return q
}

func withKind(q query.Query, kind searchdata.Kind) query.Query {
	if kind == "" {
		return q
	}
	return bleve.NewConjunctionQuery(q, kindTerm(kind))
}

func clampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}

func appendHits(hits []Hit, res *bleve.SearchResult) []Hit {
	for _, match := range res.Hits {
		hits = append(hits, decodeHit(match))
	}
	return hits
}

// decodeHit converts stored fields back into a Hit
func decodeHit(match *search.DocumentMatch) Hit {
	hit := Hit{Key: match.ID, Score: match.Score}
	if key, ok := match.Fields[FieldKey].(string); ok {
		hit.Key = key
	}
	if name, ok := match.Fields[FieldName].(string); ok {
		hit.Name = name
	}
	if category, ok := match.Fields[FieldCategory].(string); ok {
		hit.Category = category
	}
	for _, kind := range fieldStrings(match.Fields[FieldKinds]) {
		hit.Kinds = append(hit.Kinds, searchdata.Kind(kind))
	}
	if itemsJSON, ok := match.Fields[FieldItemsJSON].(string); ok {
		if err := json.Unmarshal([]byte(itemsJSON), &hit.Items); err != nil {
			hit.Items = nil
		}
	}
	if hit.Name == "" {
		hit.Name = searchdata.DecodeKey(hit.Key)
	}
	return hit
}

// fieldStrings reads a stored field that is a string for one value and a
// slice for several
func fieldStrings(v interface{}) []string {
	switch value := v.(type) {
	case string:
		return []string{value}
	case []interface{}:
		values := make([]string, 0, len(value))
		for _, item := range value {
			if s, ok := item.(string); ok {
				values = append(values, s)
			}
		}
		return values
	}
	return nil
}
