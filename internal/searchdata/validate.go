package searchdata

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Issue codes reported by Validate
const (
	CodeSchema       = "SCHEMA"
	CodeDuplicateKey = "DUPLICATE_KEY"
	CodeEmptyItems   = "EMPTY_ITEMS"
	CodeInvalidLink  = "INVALID_LINK"

	// CodeParse marks input that could not be parsed at all
	CodeParse = "PARSE"
)

const schemaURL = "https://doxsearch.local/schema/searchdata.json"

//go:embed schema.json
var schemaJSON []byte

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

// Issue is a single validation finding
type Issue struct {
	Code    string `json:"code"`
	Key     string `json:"key,omitempty"`
	Path    string `json:"path,omitempty"`
	Message string `json:"message"`
}

// Report summarizes the validation of a search table
type Report struct {
	Valid   bool    `json:"valid"`
	Entries int     `json:"entries"`
	Items   int     `json:"items"`
	Issues  []Issue `json:"issues"`
}

// Validate checks the observable invariants of a search table: the JSON
// shape, unique keys, non-empty item sequences and relative links
func Validate(entries []Entry) Report {
	report := Report{Entries: len(entries), Issues: []Issue{}}

	report.Issues = append(report.Issues, validateSchema(entries)...)

	seen := make(map[string]int, len(entries))
	for i, entry := range entries {
		report.Items += len(entry.Items)

		if first, ok := seen[entry.Key]; ok {
			report.Issues = append(report.Issues, Issue{
				Code:    CodeDuplicateKey,
				Key:     entry.Key,
				Path:    fmt.Sprintf("$/%d/key", i),
				Message: fmt.Sprintf("key %q already defined by entry %d", entry.Key, first),
			})
		} else {
			seen[entry.Key] = i
		}

		if len(entry.Items) == 0 {
			report.Issues = append(report.Issues, Issue{
				Code:    CodeEmptyItems,
				Key:     entry.Key,
				Path:    fmt.Sprintf("$/%d/items", i),
				Message: "entry has no documentation links",
			})
		}

		for j, item := range entry.Items {
			if err := CheckLink(item.Link); err != nil {
				report.Issues = append(report.Issues, Issue{
					Code:    CodeInvalidLink,
					Key:     entry.Key,
					Path:    fmt.Sprintf("$/%d/items/%d/link", i, j),
					Message: err.Error(),
				})
			}
		}
	}

	report.Valid = len(report.Issues) == 0
	return report
}

// ParseFailureReport is the report for input that did not parse
func ParseFailureReport(err error) Report {
	return Report{Issues: []Issue{{Code: CodeParse, Message: err.Error()}}}
}

// CheckLink verifies that link is a relative URL fragment into the HTML tree
func CheckLink(link string) error {
	if strings.TrimSpace(link) == "" {
		return fmt.Errorf("empty link")
	}
	if strings.ContainsAny(link, " \t\r\n") {
		return fmt.Errorf("link %q contains whitespace", link)
	}

	u, err := url.Parse(link)
	if err != nil {
		return fmt.Errorf("link %q does not parse: %w", link, err)
	}
	if u.Scheme != "" || u.Host != "" || u.Opaque != "" {
		return fmt.Errorf("link %q is not relative", link)
	}
	if strings.HasPrefix(u.Path, "/") {
		return fmt.Errorf("link %q is rooted, expected a relative path", link)
	}
	if !strings.HasSuffix(u.Path, ".html") {
		return fmt.Errorf("link %q does not point at an HTML page", link)
	}
	return nil
}

func loadSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
		if err != nil {
			schemaErr = fmt.Errorf("failed to parse search data schema: %w", err)
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(schemaURL, doc); err != nil {
			schemaErr = fmt.Errorf("failed to add search data schema: %w", err)
			return
		}
		compiledSchema, schemaErr = compiler.Compile(schemaURL)
	})
	return compiledSchema, schemaErr
}

// validateSchema checks the JSON form of the entries against the embedded schema
func validateSchema(entries []Entry) []Issue {
	schema, err := loadSchema()
	if err != nil {
		return []Issue{{Code: CodeSchema, Message: err.Error()}}
	}

	data, err := json.Marshal(entries)
	if err != nil {
		return []Issue{{Code: CodeSchema, Message: fmt.Sprintf("failed to encode entries: %v", err)}}
	}
	instance, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return []Issue{{Code: CodeSchema, Message: fmt.Sprintf("failed to decode entries: %v", err)}}
	}

	if err := schema.Validate(instance); err != nil {
		if validationErr, ok := err.(*jsonschema.ValidationError); ok {
			return schemaIssues(validationErr, entries)
		}
		return []Issue{{Code: CodeSchema, Message: err.Error()}}
	}
	return nil
}

// schemaIssues flattens a validation error tree into one issue per leaf cause
func schemaIssues(validationErr *jsonschema.ValidationError, entries []Entry) []Issue {
	if len(validationErr.Causes) > 0 {
		var issues []Issue
		for _, cause := range validationErr.Causes {
			issues = append(issues, schemaIssues(cause, entries)...)
		}
		return issues
	}

	issue := Issue{
		Code:    CodeSchema,
		Path:    "$/" + strings.Join(validationErr.InstanceLocation, "/"),
		Message: validationErr.Error(),
	}
	if len(validationErr.InstanceLocation) > 0 {
		if i, err := strconv.Atoi(validationErr.InstanceLocation[0]); err == nil && i < len(entries) {
			issue.Key = entries[i].Key
		}
	}
	return []Issue{issue}
}
