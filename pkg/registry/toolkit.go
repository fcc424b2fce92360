// Package registry provides toolkit registration and management.
package registry

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/txn2/mcp-postgis/pkg/confirm"
	"github.com/txn2/mcp-postgis/pkg/query"
)

// Toolkit is the interface that all composable toolkits must implement.
type Toolkit interface {
	// Kind returns the toolkit type (e.g., "postgis", "nl2sql", "training").
	Kind() string

	// Name returns the instance name from config.
	Name() string

	// Connection returns the connection label for audit attribution.
	Connection() string

	// RegisterTools registers all tools with the MCP server.
	RegisterTools(s *mcp.Server)

	// Tools returns a list of tool names provided by this toolkit.
	Tools() []string

	// SetQueryProvider sets the spatial query execution provider.
	SetQueryProvider(provider query.Provider)

	// SetSessionStore sets the shared confirmation-session store.
	SetSessionStore(store confirm.Store)

	// Close releases resources.
	Close() error
}

// ToolkitFactory creates a toolkit from configuration.
type ToolkitFactory func(name string, config map[string]interface{}) (Toolkit, error)

// ToolkitConfig holds configuration for a toolkit instance.
type ToolkitConfig struct {
	Kind    string
	Name    string
	Enabled bool
	Config  map[string]interface{}
	Default bool
}

// ToolkitMatch identifies the toolkit that owns a tool name.
type ToolkitMatch struct {
	Kind       string
	Name       string
	Connection string
	Found      bool
}
