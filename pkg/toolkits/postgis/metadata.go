package postgis

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/txn2/mcp-postgis/pkg/query"
)

// listTablesInput defines the input schema for postgis_list_tables.
type listTablesInput struct {
	Schema string `json:"schema,omitempty"`
}

// listTablesOutput is the table-listing response.
type listTablesOutput struct {
	Success bool              `json:"success"`
	Tables  []query.TableInfo `json:"tables"`
	Count   int               `json:"count"`
}

// tableInput identifies a table, with an optional schema.
type tableInput struct {
	Table  string `json:"table"`
	Schema string `json:"schema,omitempty"`
}

// tableInfoOutput is the table-description response.
type tableInfoOutput struct {
	Success        bool           `json:"success"`
	Schema         string         `json:"schema"`
	Table          string         `json:"table"`
	Columns        []query.Column `json:"columns"`
	GeometryColumn string         `json:"geometry_column,omitempty"`
	GeometryType   string         `json:"geometry_type,omitempty"`
	SRID           int            `json:"srid,omitempty"`
	RowEstimate    int64          `json:"row_estimate"`
}

// databaseInfoInput takes no parameters.
type databaseInfoInput struct{}

// databaseInfoOutput is the database-summary response.
type databaseInfoOutput struct {
	Success        bool     `json:"success"`
	Database       string   `json:"database"`
	User           string   `json:"user"`
	ServerVersion  string   `json:"server_version"`
	PostGISVersion string   `json:"postgis_version,omitempty"`
	SpatialTables  int      `json:"spatial_tables"`
	Extensions     []string `json:"extensions,omitempty"`
}

// spatialExtentOutput is the bounding-box response.
type spatialExtentOutput struct {
	Success bool          `json:"success"`
	Schema  string        `json:"schema"`
	Table   string        `json:"table"`
	Extent  *query.Extent `json:"extent"`
}

// handleListTables handles the postgis_list_tables tool call.
func (t *Toolkit) handleListTables(ctx context.Context, _ *mcp.CallToolRequest, input listTablesInput) (*mcp.CallToolResult, any, error) {
	if t.executor == nil {
		return errorResult("no query provider configured"), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}

	tables, err := t.executor.ListTables(ctx, input.Schema)
	if err != nil {
		return errorResult("listing tables: "+err.Error()), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}

	return marshalResult(listTablesOutput{
		Success: true,
		Tables:  tables,
		Count:   len(tables),
	})
}

// handleTableInfo handles the postgis_table_info tool call.
func (t *Toolkit) handleTableInfo(ctx context.Context, _ *mcp.CallToolRequest, input tableInput) (*mcp.CallToolResult, any, error) {
	if input.Table == "" {
		return errorResult("table is required"), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}
	if t.executor == nil {
		return errorResult("no query provider configured"), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}

	schema := resolveSchema(input.Schema)
	ts, err := t.executor.Describe(ctx, query.TableIdentifier{Schema: schema, Table: input.Table})
	if err != nil {
		return errorResult("describing table: "+err.Error()), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}

	return marshalResult(tableInfoOutput{
		Success:        true,
		Schema:         schema,
		Table:          input.Table,
		Columns:        ts.Columns,
		GeometryColumn: ts.GeometryColumn,
		GeometryType:   ts.GeometryType,
		SRID:           ts.SRID,
		RowEstimate:    ts.RowEstimate,
	})
}

// handleDatabaseInfo handles the postgis_database_info tool call.
func (t *Toolkit) handleDatabaseInfo(ctx context.Context, _ *mcp.CallToolRequest, _ databaseInfoInput) (*mcp.CallToolResult, any, error) {
	if t.executor == nil {
		return errorResult("no query provider configured"), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}

	info, err := t.executor.DatabaseInfo(ctx)
	if err != nil {
		return errorResult("reading database info: "+err.Error()), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}

	return marshalResult(databaseInfoOutput{
		Success:        true,
		Database:       info.Database,
		User:           info.User,
		ServerVersion:  info.ServerVersion,
		PostGISVersion: info.PostGISVersion,
		SpatialTables:  info.SpatialTables,
		Extensions:     info.Extensions,
	})
}

// handleSpatialExtent handles the postgis_spatial_extent tool call.
func (t *Toolkit) handleSpatialExtent(ctx context.Context, _ *mcp.CallToolRequest, input tableInput) (*mcp.CallToolResult, any, error) {
	if input.Table == "" {
		return errorResult("table is required"), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}
	if t.executor == nil {
		return errorResult("no query provider configured"), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}

	schema := resolveSchema(input.Schema)
	extent, err := t.executor.SpatialExtent(ctx, query.TableIdentifier{Schema: schema, Table: input.Table}, "")
	if err != nil {
		return errorResult("computing extent: "+err.Error()), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}

	return marshalResult(spatialExtentOutput{
		Success: true,
		Schema:  schema,
		Table:   input.Table,
		Extent:  extent,
	})
}
