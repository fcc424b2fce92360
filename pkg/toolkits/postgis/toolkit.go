// Package postgis provides the execution and metadata toolkit backed by a
// PostGIS database. Statement execution rides the two-phase confirmation
// protocol; metadata tools answer directly.
package postgis

import (
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/txn2/mcp-postgis/pkg/confirm"
	"github.com/txn2/mcp-postgis/pkg/query"
)

const (
	// defaultQueryLimit is the default number of rows returned by queries.
	defaultQueryLimit = 100

	// defaultMaxLimit is the maximum number of rows allowed per query.
	defaultMaxLimit = 10000

	// defaultSchema qualifies tables when the caller supplies no schema.
	defaultSchema = "public"
)

// Tool names registered by this toolkit.
const (
	toolExecuteSQL    = "postgis_execute_sql"
	toolConfirm       = "postgis_confirm_execution"
	toolCancel        = "postgis_cancel_execution"
	toolListTables    = "postgis_list_tables"
	toolTableInfo     = "postgis_table_info"
	toolDatabaseInfo  = "postgis_database_info"
	toolSpatialExtent = "postgis_spatial_extent"
)

// Config holds postgis toolkit configuration.
type Config struct {
	DefaultLimit   int    `yaml:"default_limit"`
	MaxLimit       int    `yaml:"max_limit"`
	ConnectionName string `yaml:"connection_name"`
}

// Toolkit implements the PostGIS execution and metadata toolkit.
type Toolkit struct {
	name   string
	config Config

	executor query.Provider
	sessions confirm.Store
}

// New creates a new postgis toolkit.
func New(name string, cfg Config) (*Toolkit, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	cfg = applyDefaults(name, cfg)
	if cfg.DefaultLimit > cfg.MaxLimit {
		return nil, fmt.Errorf("default_limit (%d) exceeds max_limit (%d)", cfg.DefaultLimit, cfg.MaxLimit)
	}
	return &Toolkit{name: name, config: cfg}, nil
}

// validateConfig validates the configuration fields.
func validateConfig(cfg Config) error {
	if cfg.DefaultLimit < 0 {
		return fmt.Errorf("default_limit must not be negative")
	}
	if cfg.MaxLimit < 0 {
		return fmt.Errorf("max_limit must not be negative")
	}
	return nil
}

// applyDefaults applies default values to the configuration.
func applyDefaults(name string, cfg Config) Config {
	if cfg.DefaultLimit == 0 {
		cfg.DefaultLimit = defaultQueryLimit
	}
	if cfg.MaxLimit == 0 {
		cfg.MaxLimit = defaultMaxLimit
	}
	if cfg.ConnectionName == "" {
		cfg.ConnectionName = name
	}
	return cfg
}

// Kind returns the toolkit kind.
func (*Toolkit) Kind() string {
	return "postgis"
}

// Name returns the toolkit instance name.
func (t *Toolkit) Name() string {
	return t.name
}

// Connection returns the connection name for audit logging.
func (t *Toolkit) Connection() string {
	return t.config.ConnectionName
}

// RegisterTools registers the PostGIS tools with the MCP server.
func (t *Toolkit) RegisterTools(s *mcp.Server) {
	mcp.AddTool(s, &mcp.Tool{
		Name: toolExecuteSQL,
		Description: "Submits a SELECT statement for execution against the PostGIS database. The statement " +
			"is checked against the safety policy and held in a pending session; it does not run until " +
			"postgis_confirm_execution is called with the returned session_id.",
	}, t.handleExecuteSQL)

	mcp.AddTool(s, &mcp.Tool{
		Name: toolConfirm,
		Description: "Confirms a pending SQL session and executes its statement. Session ids are " +
			"single-use: a session that was confirmed, cancelled, or expired cannot be confirmed again.",
	}, t.handleConfirmExecution)

	mcp.AddTool(s, &mcp.Tool{
		Name:        toolCancel,
		Description: "Cancels a pending SQL session and discards its statement without executing it.",
	}, t.handleCancelExecution)

	mcp.AddTool(s, &mcp.Tool{
		Name: toolListTables,
		Description: "Lists tables with their geometry type and SRID where registered. Pass a schema to " +
			"narrow the listing; all user schemas are listed otherwise.",
	}, t.handleListTables)

	mcp.AddTool(s, &mcp.Tool{
		Name: toolTableInfo,
		Description: "Describes a table: columns with types and nullability, the registered geometry " +
			"column, its type and SRID, and the planner's row estimate.",
	}, t.handleTableInfo)

	mcp.AddTool(s, &mcp.Tool{
		Name: toolDatabaseInfo,
		Description: "Summarizes the connected database: server version, PostGIS version, installed " +
			"extensions, and the number of registered spatial tables.",
	}, t.handleDatabaseInfo)

	mcp.AddTool(s, &mcp.Tool{
		Name: toolSpatialExtent,
		Description: "Computes the aggregate bounding box of a table's geometry column in the column's " +
			"native SRID.",
	}, t.handleSpatialExtent)
}

// Tools returns the list of tool names provided by this toolkit.
func (*Toolkit) Tools() []string {
	return []string{
		toolExecuteSQL,
		toolConfirm,
		toolCancel,
		toolListTables,
		toolTableInfo,
		toolDatabaseInfo,
		toolSpatialExtent,
	}
}

// SetQueryProvider sets the query execution provider.
func (t *Toolkit) SetQueryProvider(provider query.Provider) {
	t.executor = provider
}

// SetSessionStore sets the confirmation session store.
func (t *Toolkit) SetSessionStore(store confirm.Store) {
	t.sessions = store
}

// Close releases resources. The query provider is owned by the platform
// and closed there.
func (*Toolkit) Close() error {
	return nil
}

// clampLimit resolves a requested row limit against the configured bounds.
func (t *Toolkit) clampLimit(limit int) int {
	if limit <= 0 {
		return t.config.DefaultLimit
	}
	if limit > t.config.MaxLimit {
		return t.config.MaxLimit
	}
	return limit
}

// resolveSchema applies the default schema.
func resolveSchema(schema string) string {
	if schema == "" {
		return defaultSchema
	}
	return schema
}

// errorResult creates an error CallToolResult.
func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf(`{"success": false, "error": %q}`, msg)},
		},
		IsError: true,
	}
}

// marshalResult creates a success CallToolResult from output.
func marshalResult(output any) (*mcp.CallToolResult, any, error) {
	data, err := json.Marshal(output)
	if err != nil {
		return errorResult("internal error marshaling response"), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(data)},
		},
	}, nil, nil
}

// Verify interface compliance.
var _ interface {
	Kind() string
	Name() string
	Connection() string
	RegisterTools(s *mcp.Server)
	Tools() []string
	SetQueryProvider(provider query.Provider)
	SetSessionStore(store confirm.Store)
	Close() error
} = (*Toolkit)(nil)
