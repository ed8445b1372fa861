package tools

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/pawpyseed/doxsearch/internal/searchdata"
)

const (
	// ValidationGuidance keeps clients from inventing fixes the report does not name
	ValidationGuidance = "The issues listed are the complete validation results for this search data. Only the listed entries are affected; regenerate the documentation to fix them rather than editing the search files by hand."
)

// ValidateSearchDataInput defines input for validate_search_data tool
type ValidateSearchDataInput struct {
	Source string `json:"source,omitempty" jsonschema:"Search directory, .js file or http(s) URL to validate (optional, defaults to the installed search data)"`
}

// ValidateSearchDataOutput defines output for validate_search_data tool
type ValidateSearchDataOutput struct {
	Source   string            `json:"source"`
	Report   searchdata.Report `json:"report"`
	Guidance string            `json:"guidance,omitempty"`
}

// ValidateSearchData checks search data for schema violations, duplicate
// keys, empty entries and bad links
func ValidateSearchData(ctx context.Context, req *mcp.CallToolRequest, input ValidateSearchDataInput) (*mcp.CallToolResult, ValidateSearchDataOutput, error) {
	source := input.Source
	if source == "" {
		source = filepath.Join(dataDir, searchDataDir)
	}
	output := ValidateSearchDataOutput{Source: source}

	files, err := fetchSource(ctx, source)
	if err != nil {
		return nil, output, fmt.Errorf("failed to read search data: %w", err)
	}

	entries, err := parseSourceFiles(files)
	switch {
	case errors.Is(err, searchdata.ErrMalformed):
		output.Report = searchdata.ParseFailureReport(err)
	case err != nil:
		return nil, output, err
	default:
		output.Report = searchdata.Validate(entries)
	}

	if !output.Report.Valid {
		output.Guidance = ValidationGuidance
	}
	return nil, output, nil
}

// RegisterValidationTools registers the search data validation tool
func RegisterValidationTools(server *mcp.Server) error {
	mcp.AddTool(server,
		&mcp.Tool{
			Name:        "validate_search_data",
			Description: "Validate Doxygen search data (the installed data or a given directory, file or URL) and report malformed entries",
		},
		ValidateSearchData,
	)
	return nil
}
