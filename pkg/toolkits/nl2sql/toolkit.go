// Package nl2sql provides the natural-language translation toolkit for
// the PostGIS MCP server.
package nl2sql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/txn2/mcp-postgis/pkg/confirm"
	nl2sqlcore "github.com/txn2/mcp-postgis/pkg/nl2sql"
	"github.com/txn2/mcp-postgis/pkg/query"
)

const (
	// toolName is the MCP tool name for translating natural language.
	toolName = "nl2sql_translate"

	// promptName is the MCP prompt name for query phrasing guidance.
	promptName = "spatial_query_builder"

	// confirmationWarning reminds the caller that translation never executes.
	confirmationWarning = "Generated SQL has not been executed. Review it, then call " +
		"postgis_confirm_execution with the session_id to run it, or " +
		"postgis_cancel_execution to discard it."
)

// Config holds nl2sql toolkit configuration.
type Config struct {
	DefaultTable   string `yaml:"default_table"`
	DefaultSchema  string `yaml:"default_schema"`
	DefaultLimit   int    `yaml:"default_limit"`
	GeometryColumn string `yaml:"geometry_column"`
	ConnectionName string `yaml:"connection_name"`
}

// translateInput defines the input schema for the nl2sql_translate tool.
type translateInput struct {
	Query     string `json:"query"`
	TableName string `json:"table_name,omitempty"`
	Schema    string `json:"schema,omitempty"`
}

// translateOutput is the success response: the statement preview plus the
// session id that must be confirmed before anything executes.
type translateOutput struct {
	Success      bool           `json:"success"`
	GeneratedSQL string         `json:"generated_sql"`
	QueryType    string         `json:"query_type"`
	Parameters   map[string]any `json:"parameters"`
	SessionID    string         `json:"session_id"`
	Warning      string         `json:"warning"`
}

// Toolkit implements the natural-language translation toolkit. It renders
// SQL and registers it for confirmation; it never executes anything.
type Toolkit struct {
	name       string
	config     Config
	translator *nl2sqlcore.Translator

	sessions      confirm.Store
	queryProvider query.Provider
}

// registrarFunc adapts a function to the translation core's session
// registrar, so a translator built at construction time can reach the
// store injected afterwards.
type registrarFunc func(ctx context.Context, kind string, payload any) (string, error)

// Create implements nl2sqlcore.SessionRegistrar.
func (f registrarFunc) Create(ctx context.Context, kind string, payload any) (string, error) {
	return f(ctx, kind, payload)
}

// New creates a new nl2sql toolkit.
func New(name string, cfg Config) (*Toolkit, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	t := &Toolkit{name: name, config: cfg}

	translator, err := nl2sqlcore.NewTranslator(registrarFunc(t.createSession), nl2sqlcore.TranslatorConfig{
		GeometryColumn: cfg.GeometryColumn,
		DefaultSchema:  cfg.DefaultSchema,
		DefaultLimit:   cfg.DefaultLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("building translator: %w", err)
	}
	t.translator = translator

	return t, nil
}

// validateConfig validates identifier-valued configuration fields.
func validateConfig(cfg Config) error {
	if cfg.DefaultTable != "" && !nl2sqlcore.ValidIdentifier(cfg.DefaultTable) {
		return fmt.Errorf("invalid default_table: %q", cfg.DefaultTable)
	}
	if cfg.DefaultSchema != "" && !nl2sqlcore.ValidIdentifier(cfg.DefaultSchema) {
		return fmt.Errorf("invalid default_schema: %q", cfg.DefaultSchema)
	}
	if cfg.GeometryColumn != "" && !nl2sqlcore.ValidIdentifier(cfg.GeometryColumn) {
		return fmt.Errorf("invalid geometry_column: %q", cfg.GeometryColumn)
	}
	if cfg.DefaultLimit < 0 {
		return fmt.Errorf("default_limit must not be negative")
	}
	return nil
}

// Kind returns the toolkit kind.
func (*Toolkit) Kind() string {
	return "nl2sql"
}

// Name returns the toolkit instance name.
func (t *Toolkit) Name() string {
	return t.name
}

// Connection returns the connection name for audit logging.
func (t *Toolkit) Connection() string {
	return t.config.ConnectionName
}

// RegisterTools registers the nl2sql_translate tool with the MCP server.
func (t *Toolkit) RegisterTools(s *mcp.Server) {
	mcp.AddTool(s, &mcp.Tool{
		Name: toolName,
		Description: "Translates a natural-language spatial question into PostGIS SQL using fixed rule " +
			"patterns (nearby search, buffer zone, area calculation, feature count). Returns the " +
			"generated SQL and a confirmation session id; nothing executes until " +
			"postgis_confirm_execution is called with that id.",
	}, t.handleTranslate)

	t.registerPrompt(s)
}

// Tools returns the list of tool names provided by this toolkit.
func (*Toolkit) Tools() []string {
	return []string{toolName}
}

// SetQueryProvider sets the query execution provider. Translation never
// executes, so the provider is held only for interface compliance.
func (t *Toolkit) SetQueryProvider(provider query.Provider) {
	t.queryProvider = provider
}

// SetSessionStore sets the confirmation session store.
func (t *Toolkit) SetSessionStore(store confirm.Store) {
	t.sessions = store
}

// Close releases resources.
func (*Toolkit) Close() error {
	return nil
}

// createSession registers a pending session with the injected store.
func (t *Toolkit) createSession(ctx context.Context, kind string, payload any) (string, error) {
	if t.sessions == nil {
		return "", errors.New("no confirmation session store configured")
	}
	return t.sessions.Create(ctx, kind, payload)
}

// handleTranslate handles the nl2sql_translate tool call.
func (t *Toolkit) handleTranslate(ctx context.Context, _ *mcp.CallToolRequest, input translateInput) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(input.Query) == "" {
		return errorResult("query is required"), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}

	table := input.TableName
	if table == "" {
		table = t.config.DefaultTable
	}

	translation, err := t.translator.Translate(ctx, input.Query, table, input.Schema)
	if err != nil {
		return errorResult(translateErrorMessage(err)), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}

	return successResult(translation)
}

// translateErrorMessage converts a translation error into the message
// surfaced to the caller.
func translateErrorMessage(err error) string {
	if errors.Is(err, nl2sqlcore.ErrUnrecognizedIntent) {
		return "unrecognized query intent: phrase the request as a nearby search, " +
			"a buffer zone, an area calculation, or a feature count"
	}
	return err.Error()
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

// successResult creates a success CallToolResult from a translation.
func successResult(tr *nl2sqlcore.Translation) (*mcp.CallToolResult, any, error) {
	output := translateOutput{
		Success:      true,
		GeneratedSQL: tr.Statement.SQL,
		QueryType:    string(tr.Statement.Intent),
		Parameters:   tr.Statement.Parameters,
		SessionID:    tr.SessionID,
		Warning:      confirmationWarning,
	}

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

// registerPrompt registers the spatial query phrasing guide.
func (*Toolkit) registerPrompt(s *mcp.Server) {
	s.AddPrompt(&mcp.Prompt{
		Name:        promptName,
		Description: "Guidance on phrasing spatial questions the translator recognizes",
	}, func(_ context.Context, _ *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		return &mcp.GetPromptResult{
			Messages: []*mcp.PromptMessage{
				{
					Role:    "user",
					Content: &mcp.TextContent{Text: spatialQueryBuilderPrompt},
				},
			},
		}, nil
	})
}

// spatialQueryBuilderPrompt documents the phrasings the rule engine recognizes.
const spatialQueryBuilderPrompt = `## Spatial Query Builder

The nl2sql_translate tool matches fixed phrasings, not free-form language. Four query forms are recognized, checked in this order: nearby search, buffer zone, area calculation, feature count. The first form that matches wins.

### Nearby search
Finds features within a radius of a point, ordered by distance.
Required: a table, a coordinate pair (longitude,latitude), and a radius.

Examples:
- "查询表:buildings 坐标120.5,30.2 附近500米的建筑"
- "find features in table:roads near 120.5,30.2 within 1km"

### Buffer zone
Builds buffer polygons around every feature in a table.
Required: a table and a buffer distance.

Examples:
- "为表:roads创建100米缓冲区"
- "create a 250m buffer around table:parcels"

### Area calculation
Computes each feature's area in square meters.
Required: a table.

Examples:
- "计算表:parcels的面积"
- "calculate the area of table:districts"

### Feature count
Counts rows in a table.
Required: a table.

Examples:
- "统计表:buildings的数量"
- "count the features in table:poi"

### Parameter syntax
- Table: "表:name", "表名:name", or "table:name". Names must be plain identifiers (letters, digits, underscores).
- Coordinates: "120.5,30.2" (longitude first, WGS84). Spaces around the comma are fine.
- Distances: "500米", "500m", "1公里", "1.5km". Kilometers are converted to meters.
- Row limit and schema default to 100 and "public" when not configured otherwise.

### After translation
Every translation returns generated SQL plus a session_id. The SQL is not executed. Review it, then call postgis_confirm_execution with the session_id to run it, or postgis_cancel_execution to discard it. Session ids are single-use and expire after a few minutes.`

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
