package symbolindex

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/pawpyseed/doxsearch/internal/searchdata"
)

// NewMapping creates the bleve mapping for symbol documents
func NewMapping() mapping.IndexMapping {
	symbolMapping := bleve.NewDocumentMapping()
	symbolMapping.Dynamic = false

	// Exact-match fields: lower-cased name for prefix, wildcard and sorting
	symbolMapping.AddFieldMappingsAt(FieldKey, bleve.NewKeywordFieldMapping())
	symbolMapping.AddFieldMappingsAt(FieldName, bleve.NewKeywordFieldMapping())
	symbolMapping.AddFieldMappingsAt(FieldCategory, bleve.NewKeywordFieldMapping())
	symbolMapping.AddFieldMappingsAt(FieldKinds, bleve.NewKeywordFieldMapping())
	symbolMapping.AddFieldMappingsAt(FieldTargets, bleve.NewKeywordFieldMapping())

	// Analyzed fields for full-text queries
	symbolMapping.AddFieldMappingsAt(FieldDisplay, bleve.NewTextFieldMapping())
	symbolMapping.AddFieldMappingsAt(FieldScopes, bleve.NewTextFieldMapping())
	termsMapping := bleve.NewTextFieldMapping()
	termsMapping.Store = false
	symbolMapping.AddFieldMappingsAt(FieldTerms, termsMapping)

	// Items: stored but not indexed (for retrieval)
	itemsMapping := bleve.NewTextFieldMapping()
	itemsMapping.Index = false
	itemsMapping.IncludeInAll = false
	itemsMapping.DocValues = false
	symbolMapping.AddFieldMappingsAt(FieldItemsJSON, itemsMapping)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.AddDocumentMapping("_default", symbolMapping)
	return indexMapping
}

// NewDocument converts a merged entry into the document indexed under its key
func NewDocument(entry searchdata.Entry) (map[string]interface{}, error) {
	itemsJSON, err := json.Marshal(entry.Items)
	if err != nil {
		return nil, fmt.Errorf("failed to encode items of %q: %w", entry.Key, err)
	}

	var display, targets, scopes []string
	for _, item := range entry.Items {
		display = appendDistinct(display, item.Display)
		targets = appendDistinct(targets, item.Target)
		scopes = appendDistinct(scopes, item.Scope)
	}

	kinds := make([]string, 0, len(entry.Items))
	for _, kind := range entry.Kinds() {
		kinds = append(kinds, string(kind))
	}

	return map[string]interface{}{
		FieldKey:       entry.Key,
		FieldName:      strings.ToLower(entry.Name),
		FieldCategory:  entry.Category,
		FieldKinds:     kinds,
		FieldTargets:   targets,
		FieldDisplay:   display,
		FieldScopes:    scopes,
		FieldTerms:     strings.Join(searchdata.ExtractTerms(entry), " "),
		FieldItemsJSON: string(itemsJSON),
	}, nil
}

func appendDistinct(values []string, v string) []string {
	if v == "" {
		return values
	}
	for _, existing := range values {
		if existing == v {
			return values
		}
	}
	return append(values, v)
}
