package query

import "context"

// Provider is the full execution boundary: statement execution plus
// catalog inspection. PostgreSQL/PostGIS implements this; other spatial
// engines can too.
type Provider interface {
	// Name returns the provider name.
	Name() string

	// Execute runs sql with the given bound args, capping the result at
	// limit rows. Implementations must re-apply the safety guard before
	// running anything.
	Execute(ctx context.Context, sql string, args []any, limit int) (*Result, error)

	// Describe returns a table's column and geometry metadata.
	Describe(ctx context.Context, table TableIdentifier) (*TableSchema, error)

	// ListTables lists tables in a schema, or in all user schemas when
	// schema is empty.
	ListTables(ctx context.Context, schema string) ([]TableInfo, error)

	// DatabaseInfo summarizes the connected database.
	DatabaseInfo(ctx context.Context) (*DatabaseInfo, error)

	// SpatialExtent computes the bounding box of a table's geometry
	// column. An empty geometryColumn means look it up in the catalog.
	SpatialExtent(ctx context.Context, table TableIdentifier, geometryColumn string) (*Extent, error)

	// Close releases resources.
	Close() error
}
