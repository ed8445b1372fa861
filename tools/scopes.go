package tools

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/pawpyseed/doxsearch/internal/searchdata"
	"github.com/pawpyseed/doxsearch/internal/symbolindex"
)

// ListScopesInput defines input for list_scopes tool
type ListScopesInput struct {
	Kind       string `json:"kind,omitempty" jsonschema:"Compound kind: namespace, class, struct, union, interface, file, dir, group or page (optional, defaults to all)"`
	MaxResults int    `json:"max_results,omitempty" jsonschema:"Maximum number of symbols to read (optional, defaults to 50, max 500)"`
}

// ListScopesOutput defines output for list_scopes tool
type ListScopesOutput struct {
	Kind   searchdata.Kind     `json:"kind,omitempty"`
	Total  int                 `json:"total"`
	Scopes []symbolindex.Scope `json:"scopes"`
}

// ListScopes lists the documented compounds of the project
func ListScopes(ctx context.Context, req *mcp.CallToolRequest, input ListScopesInput) (*mcp.CallToolResult, ListScopesOutput, error) {
	kind, err := parseKindInput(input.Kind)
	if err != nil {
		return nil, ListScopesOutput{}, err
	}

	index, release, err := acquireIndex()
	if err != nil {
		return nil, ListScopesOutput{}, err
	}
	defer release()

	scopes, total, err := symbolindex.Scopes(index, kind, input.MaxResults)
	if err != nil {
		return nil, ListScopesOutput{}, fmt.Errorf("listing scopes failed: %w", err)
	}

	return nil, ListScopesOutput{
		Kind:   kind,
		Total:  int(total),
		Scopes: scopes,
	}, nil
}
