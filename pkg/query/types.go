// Package query defines the execution boundary between the translation
// core and the spatial database. Implementations own the connection; the
// core never talks to the database directly, and implementations re-check
// the safety guard on every statement regardless of how it was produced.
//
//nolint:revive // package contains related DTO types
package query

// DefaultRowLimit caps result sets when the caller supplies no limit.
const DefaultRowLimit = 100

// TableIdentifier uniquely identifies a table in the database.
type TableIdentifier struct {
	Schema string `json:"schema,omitempty"`
	Table  string `json:"table"`
}

// String returns a dot-separated representation.
func (t TableIdentifier) String() string {
	if t.Schema != "" {
		return t.Schema + "." + t.Table
	}
	return t.Table
}

// Column represents a table column.
type Column struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Nullable bool   `json:"nullable"`
}

// TableSchema represents the schema of a table, including its geometry
// column as registered in geometry_columns when the table is spatial.
// RowEstimate is the planner's estimate, not an exact count.
type TableSchema struct {
	Columns        []Column `json:"columns"`
	GeometryColumn string   `json:"geometry_column,omitempty"`
	GeometryType   string   `json:"geometry_type,omitempty"`
	SRID           int      `json:"srid,omitempty"`
	RowEstimate    int64    `json:"row_estimate"`
}

// TableInfo is one row of a table listing.
type TableInfo struct {
	Schema       string `json:"schema"`
	Table        string `json:"table"`
	GeometryType string `json:"geometry_type,omitempty"`
	SRID         int    `json:"srid,omitempty"`
}

// DatabaseInfo summarizes the connected database and its PostGIS install.
type DatabaseInfo struct {
	Database       string   `json:"database"`
	User           string   `json:"user"`
	ServerVersion  string   `json:"server_version"`
	PostGISVersion string   `json:"postgis_version,omitempty"`
	SpatialTables  int      `json:"spatial_tables"`
	Extensions     []string `json:"extensions,omitempty"`
}

// Extent is a bounding box in the geometry column's SRID.
type Extent struct {
	MinX float64 `json:"min_x"`
	MinY float64 `json:"min_y"`
	MaxX float64 `json:"max_x"`
	MaxY float64 `json:"max_y"`
	SRID int     `json:"srid,omitempty"`
}

// Result represents the result of a query. Truncated is set when the row
// cap cut the result short.
type Result struct {
	Columns   []string `json:"columns"`
	Rows      [][]any  `json:"rows"`
	Count     int      `json:"count"`
	Truncated bool     `json:"truncated,omitempty"`
}
