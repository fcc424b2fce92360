package platform

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/yosida95/uritemplate/v3"

	"github.com/txn2/mcp-postgis/pkg/query"
)

// Resource URI patterns. The database info resource is static; the rest
// are templates resolved per schema and table.
const (
	databaseInfoURI         = "postgis://database/info"
	schemaTablesTemplateURI = "postgis://database/{schema_name}"
	tableInfoTemplateURI    = "postgis://database/{schema_name}/{table}/info"
	tableExtentTemplateURI  = "postgis://database/{schema_name}/{table}/extent"
)

// registerResourceTemplates registers the dynamic database resources.
// Only called when resources.enabled is true.
func (p *Platform) registerResourceTemplates() {
	if !p.config.Resources.Enabled {
		return
	}

	p.mcpServer.AddResource(&mcp.Resource{
		URI:         databaseInfoURI,
		Name:        "Database Info",
		Description: "Connected database summary: versions, PostGIS install, and spatial table count",
		MIMEType:    "application/json",
	}, p.handleDatabaseInfoResource)
	if p.resourceRegistry != nil {
		p.resourceRegistry[databaseInfoURI] = p.handleDatabaseInfoResource
	}

	p.mcpServer.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: schemaTablesTemplateURI,
		Name:        "Schema Tables",
		Description: "Tables in a schema with their geometry types and SRIDs",
		MIMEType:    "application/json",
	}, p.handleSchemaTablesResource)

	p.mcpServer.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: tableInfoTemplateURI,
		Name:        "Table Info",
		Description: "Table schema with column types and geometry metadata",
		MIMEType:    "application/json",
	}, p.handleTableInfoResource)

	p.mcpServer.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: tableExtentTemplateURI,
		Name:        "Table Extent",
		Description: "Bounding box of a table's geometry column",
		MIMEType:    "application/json",
	}, p.handleTableExtentResource)
}

// parseTemplateVars extracts named variables from a URI using a URI template.
// Returns a map of variable names to their values, or an error if the URI
// doesn't match the template.
func parseTemplateVars(templateStr, uri string) (map[string]string, error) {
	tmpl, err := uritemplate.New(templateStr)
	if err != nil {
		return nil, fmt.Errorf("invalid template %q: %w", templateStr, err)
	}

	match := tmpl.Match(uri)
	if match == nil {
		return nil, fmt.Errorf("uri %q does not match template %q", uri, templateStr)
	}

	result := make(map[string]string)
	for _, name := range tmpl.Varnames() {
		val := match.Get(name)
		result[name] = val.String()
	}
	return result, nil
}

// handleDatabaseInfoResource handles postgis://database/info requests.
func (p *Platform) handleDatabaseInfoResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := req.Params.URI
	if p.queryProvider == nil {
		return nil, mcp.ResourceNotFoundError(uri) //nolint:wrapcheck // MCP protocol error returned as-is for SDK type matching
	}

	info, err := p.queryProvider.DatabaseInfo(ctx)
	if err != nil || info == nil {
		return nil, mcp.ResourceNotFoundError(uri) //nolint:wrapcheck // MCP protocol error
	}

	return marshalResourceResult(uri, info)
}

// schemaTablesResult is the serialized schema table listing.
type schemaTablesResult struct {
	Schema string            `json:"schema"`
	Tables []query.TableInfo `json:"tables"`
	Count  int               `json:"count"`
}

// handleSchemaTablesResource handles postgis://database/{schema_name} requests.
func (p *Platform) handleSchemaTablesResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := req.Params.URI
	vars, err := parseTemplateVars(schemaTablesTemplateURI, uri)
	if err != nil {
		return nil, mcp.ResourceNotFoundError(uri) //nolint:wrapcheck // MCP protocol error
	}

	schemaName := vars["schema_name"]
	if schemaName == "" || p.queryProvider == nil {
		return nil, mcp.ResourceNotFoundError(uri) //nolint:wrapcheck // MCP protocol error
	}

	tables, err := p.queryProvider.ListTables(ctx, schemaName)
	if err != nil {
		return nil, mcp.ResourceNotFoundError(uri) //nolint:wrapcheck // MCP protocol error
	}
	// A schema with no tables is indistinguishable from a missing schema,
	// so both read as not found.
	if len(tables) == 0 {
		return nil, mcp.ResourceNotFoundError(uri) //nolint:wrapcheck // MCP protocol error
	}

	return marshalResourceResult(uri, schemaTablesResult{
		Schema: schemaName,
		Tables: tables,
		Count:  len(tables),
	})
}

// tableInfoResult is the serialized table schema.
type tableInfoResult struct {
	Schema         string         `json:"schema"`
	Table          string         `json:"table"`
	Columns        []query.Column `json:"columns"`
	GeometryColumn string         `json:"geometry_column,omitempty"`
	GeometryType   string         `json:"geometry_type,omitempty"`
	SRID           int            `json:"srid,omitempty"`
	RowEstimate    int64          `json:"row_estimate"`
}

// handleTableInfoResource handles postgis://database/{schema_name}/{table}/info requests.
func (p *Platform) handleTableInfoResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := req.Params.URI
	vars, err := parseTemplateVars(tableInfoTemplateURI, uri)
	if err != nil {
		return nil, mcp.ResourceNotFoundError(uri) //nolint:wrapcheck // MCP protocol error
	}

	schemaName := vars["schema_name"]
	table := vars["table"]
	if schemaName == "" || table == "" || p.queryProvider == nil {
		return nil, mcp.ResourceNotFoundError(uri) //nolint:wrapcheck // MCP protocol error
	}

	schema, err := p.queryProvider.Describe(ctx, query.TableIdentifier{Schema: schemaName, Table: table})
	if err != nil || schema == nil {
		return nil, mcp.ResourceNotFoundError(uri) //nolint:wrapcheck // MCP protocol error
	}

	return marshalResourceResult(uri, tableInfoResult{
		Schema:         schemaName,
		Table:          table,
		Columns:        schema.Columns,
		GeometryColumn: schema.GeometryColumn,
		GeometryType:   schema.GeometryType,
		SRID:           schema.SRID,
		RowEstimate:    schema.RowEstimate,
	})
}

// tableExtentResult is the serialized bounding box.
type tableExtentResult struct {
	Schema string        `json:"schema"`
	Table  string        `json:"table"`
	Extent *query.Extent `json:"extent"`
}

// handleTableExtentResource handles postgis://database/{schema_name}/{table}/extent requests.
func (p *Platform) handleTableExtentResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := req.Params.URI
	vars, err := parseTemplateVars(tableExtentTemplateURI, uri)
	if err != nil {
		return nil, mcp.ResourceNotFoundError(uri) //nolint:wrapcheck // MCP protocol error
	}

	schemaName := vars["schema_name"]
	table := vars["table"]
	if schemaName == "" || table == "" || p.queryProvider == nil {
		return nil, mcp.ResourceNotFoundError(uri) //nolint:wrapcheck // MCP protocol error
	}

	extent, err := p.queryProvider.SpatialExtent(ctx, query.TableIdentifier{Schema: schemaName, Table: table}, "")
	if err != nil || extent == nil {
		return nil, mcp.ResourceNotFoundError(uri) //nolint:wrapcheck // MCP protocol error
	}

	return marshalResourceResult(uri, tableExtentResult{
		Schema: schemaName,
		Table:  table,
		Extent: extent,
	})
}

// marshalResourceResult marshals a value to JSON and wraps it in a ReadResourceResult.
func marshalResourceResult(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling resource %s: %w", uri, err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{
				URI:      uri,
				MIMEType: "application/json",
				Text:     string(data),
			},
		},
	}, nil
}
