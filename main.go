package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/pawpyseed/doxsearch/tools"
)

const (
	version     = "0.1.0"
	serverName  = "doxsearch-mcp"
	description = "MCP server for searching PAWpySeed's Doxygen symbol index"
)

func main() {
	// Handle version flag
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		fmt.Printf("%s version %s\n", serverName, version)
		os.Exit(0)
	}

	// MCP uses stdout for protocol frames
	log.SetOutput(os.Stderr)
	log.Printf("%s v%s starting (%s)...", serverName, version, description)

	server := createMCPServer()

	if err := registerTools(server); err != nil {
		log.Fatalf("Failed to register tools: %v", err)
	}

	log.Printf("✓ Server ready and waiting for connections")

	defer func() {
		if err := tools.CloseSymbolSearch(); err != nil {
			log.Printf("Error closing symbol search: %v", err)
		}
	}()

	// Run server with stdio transport
	ctx := context.Background()
	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil {
		log.Printf("Server error: %v", err)
	}
}

// createMCPServer initializes the MCP server
func createMCPServer() *mcp.Server {
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    serverName,
			Version: version,
		},
		nil, // Default options
	)

	log.Printf("Server initialized: %s v%s", serverName, version)
	return server
}

// registerTools registers all MCP tools
func registerTools(server *mcp.Server) error {
	toolCount := 0

	if err := tools.RegisterValidationTools(server); err != nil {
		return fmt.Errorf("failed to register validation tools: %w", err)
	}
	toolCount++

	// Search tools register even when the index cannot be built yet; they
	// retry initialization on first use
	if err := tools.RegisterSymbolSearchTools(server); err != nil {
		log.Printf("Warning: Failed to register symbol search tools: %v", err)
		log.Printf("Symbol search will be unavailable")
	} else {
		toolCount += 4
	}

	log.Printf("✓ All tools registered: %d tools (validation + symbol search)", toolCount)
	return nil
}
