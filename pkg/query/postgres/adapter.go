// Package postgres provides a PostgreSQL/PostGIS implementation of the
// query provider over database/sql with lib/pq.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	// Also registers the "postgres" database/sql driver.
	"github.com/lib/pq"

	"github.com/txn2/mcp-postgis/pkg/query"
	"github.com/txn2/mcp-postgis/pkg/sqlguard"
)

// Config holds PostgreSQL adapter configuration.
type Config struct {
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
	QueryTimeout time.Duration
	DefaultLimit int
	MaxLimit     int
}

const (
	defaultMaxOpenConns = 5
	defaultMaxIdleConns = 2
	defaultQueryTimeout = 30 * time.Second
	defaultMaxLimit     = 10000
)

// Adapter implements query.Provider against a live database.
type Adapter struct {
	db           *sql.DB
	timeout      time.Duration
	defaultLimit int
	maxLimit     int
}

// New opens a connection pool for cfg.DSN. The pool connects lazily; call
// Ping to verify reachability.
func New(cfg Config) (*Adapter, error) {
	if cfg.DSN == "" {
		return nil, errors.New("postgres dsn is required")
	}
	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("opening postgres pool: %w", err)
	}
	if cfg.MaxOpenConns <= 0 {
		cfg.MaxOpenConns = defaultMaxOpenConns
	}
	if cfg.MaxIdleConns <= 0 {
		cfg.MaxIdleConns = defaultMaxIdleConns
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	return newAdapter(db, cfg), nil
}

// NewWithDB wraps an existing pool. Used by tests with sqlmock.
func NewWithDB(db *sql.DB, cfg Config) *Adapter {
	return newAdapter(db, cfg)
}

func newAdapter(db *sql.DB, cfg Config) *Adapter {
	if cfg.QueryTimeout <= 0 {
		cfg.QueryTimeout = defaultQueryTimeout
	}
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = query.DefaultRowLimit
	}
	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = defaultMaxLimit
	}
	return &Adapter{
		db:           db,
		timeout:      cfg.QueryTimeout,
		defaultLimit: cfg.DefaultLimit,
		maxLimit:     cfg.MaxLimit,
	}
}

// Name returns the provider name.
func (a *Adapter) Name() string {
	return "postgres"
}

// Ping verifies database reachability.
func (a *Adapter) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	return a.db.PingContext(ctx) //nolint:wrapcheck // driver error is the useful one
}

// limitClause detects an existing LIMIT so one is only appended to
// statements that lack it.
var limitClause = regexp.MustCompile(`(?i)\blimit\s+\d+`)

// Execute runs sql with the given bound args. The safety guard is
// re-applied here regardless of how the statement was produced, and a
// LIMIT is appended when the statement has none so unbounded scans never
// reach the wire. Rows beyond limit are dropped and the result is marked
// truncated.
func (a *Adapter) Execute(ctx context.Context, sqlText string, args []any, limit int) (*query.Result, error) {
	if err := sqlguard.Check(sqlText); err != nil {
		return nil, err //nolint:wrapcheck // rejection reason is surfaced verbatim
	}
	if limit <= 0 {
		limit = a.defaultLimit
	}
	if limit > a.maxLimit {
		limit = a.maxLimit
	}
	if !limitClause.MatchString(sqlText) {
		sqlText = fmt.Sprintf("%s LIMIT %d", strings.TrimRight(sqlText, " \t\r\n;"), limit)
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	rows, err := a.db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, fmt.Errorf("executing query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("reading result columns: %w", err)
	}

	result := &query.Result{Columns: cols, Rows: [][]any{}}
	for rows.Next() {
		if len(result.Rows) >= limit {
			result.Truncated = true
			break
		}
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		result.Rows = append(result.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading rows: %w", err)
	}
	result.Count = len(result.Rows)
	return result, nil
}

const columnQuery = `SELECT column_name, data_type, is_nullable
FROM information_schema.columns
WHERE table_schema = $1 AND table_name = $2
ORDER BY ordinal_position`

const geometryColumnQuery = `SELECT f_geometry_column, type, srid
FROM geometry_columns
WHERE f_table_schema = $1 AND f_table_name = $2
LIMIT 1`

const rowEstimateQuery = `SELECT c.reltuples::bigint
FROM pg_class c
JOIN pg_namespace n ON n.oid = c.relnamespace
WHERE n.nspname = $1 AND c.relname = $2`

// Describe returns a table's columns plus its geometry metadata from
// geometry_columns. Tables without a registered geometry are reported
// with the geometry fields empty.
func (a *Adapter) Describe(ctx context.Context, table query.TableIdentifier) (*query.TableSchema, error) {
	schema := table.Schema
	if schema == "" {
		schema = "public"
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	rows, err := a.db.QueryContext(ctx, columnQuery, schema, table.Table)
	if err != nil {
		return nil, fmt.Errorf("reading columns for %s: %w", table, err)
	}
	defer rows.Close()

	out := &query.TableSchema{Columns: []query.Column{}}
	for rows.Next() {
		var col query.Column
		var nullable string
		if err := rows.Scan(&col.Name, &col.Type, &nullable); err != nil {
			return nil, fmt.Errorf("scanning column for %s: %w", table, err)
		}
		col.Nullable = strings.EqualFold(nullable, "YES")
		out.Columns = append(out.Columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading columns for %s: %w", table, err)
	}
	if len(out.Columns) == 0 {
		return nil, fmt.Errorf("table %s not found", query.TableIdentifier{Schema: schema, Table: table.Table})
	}

	var geomCol, geomType sql.NullString
	var srid sql.NullInt64
	err = a.db.QueryRowContext(ctx, geometryColumnQuery, schema, table.Table).Scan(&geomCol, &geomType, &srid)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// non-spatial table
	case err != nil:
		return nil, fmt.Errorf("reading geometry metadata for %s: %w", table, err)
	default:
		out.GeometryColumn = geomCol.String
		out.GeometryType = geomType.String
		out.SRID = int(srid.Int64)
	}

	// reltuples is -1 for never-analyzed tables; report that as 0.
	var estimate sql.NullInt64
	if err := a.db.QueryRowContext(ctx, rowEstimateQuery, schema, table.Table).Scan(&estimate); err == nil && estimate.Int64 > 0 {
		out.RowEstimate = estimate.Int64
	}
	return out, nil
}

const listTablesQuery = `SELECT t.table_schema, t.table_name, g.type, g.srid
FROM information_schema.tables t
LEFT JOIN geometry_columns g
  ON g.f_table_schema = t.table_schema AND g.f_table_name = t.table_name
WHERE t.table_type = 'BASE TABLE' AND t.table_schema = $1
ORDER BY t.table_schema, t.table_name`

const listTablesAllQuery = `SELECT t.table_schema, t.table_name, g.type, g.srid
FROM information_schema.tables t
LEFT JOIN geometry_columns g
  ON g.f_table_schema = t.table_schema AND g.f_table_name = t.table_name
WHERE t.table_type = 'BASE TABLE'
  AND t.table_schema NOT IN ('pg_catalog', 'information_schema')
ORDER BY t.table_schema, t.table_name`

// ListTables lists tables with their geometry type and SRID where
// registered. An empty schema lists every user schema.
func (a *Adapter) ListTables(ctx context.Context, schema string) ([]query.TableInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	var rows *sql.Rows
	var err error
	if schema == "" {
		rows, err = a.db.QueryContext(ctx, listTablesAllQuery)
	} else {
		rows, err = a.db.QueryContext(ctx, listTablesQuery, schema)
	}
	if err != nil {
		return nil, fmt.Errorf("listing tables: %w", err)
	}
	defer rows.Close()

	tables := []query.TableInfo{}
	for rows.Next() {
		var info query.TableInfo
		var geomType sql.NullString
		var srid sql.NullInt64
		if err := rows.Scan(&info.Schema, &info.Table, &geomType, &srid); err != nil {
			return nil, fmt.Errorf("scanning table listing: %w", err)
		}
		info.GeometryType = geomType.String
		info.SRID = int(srid.Int64)
		tables = append(tables, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing tables: %w", err)
	}
	return tables, nil
}

const databaseInfoQuery = `SELECT current_database(), current_user, version()`

const postgisVersionQuery = `SELECT PostGIS_Version()`

const spatialTableCountQuery = `SELECT COUNT(*) FROM geometry_columns`

const extensionsQuery = `SELECT extname FROM pg_extension ORDER BY extname`

// DatabaseInfo summarizes the connection. The PostGIS fields stay empty
// when the extension is not installed rather than failing the call.
func (a *Adapter) DatabaseInfo(ctx context.Context) (*query.DatabaseInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	info := &query.DatabaseInfo{}
	err := a.db.QueryRowContext(ctx, databaseInfoQuery).
		Scan(&info.Database, &info.User, &info.ServerVersion)
	if err != nil {
		return nil, fmt.Errorf("reading database info: %w", err)
	}

	var postgisVersion string
	if err := a.db.QueryRowContext(ctx, postgisVersionQuery).Scan(&postgisVersion); err == nil {
		info.PostGISVersion = postgisVersion
	}
	var count int
	if err := a.db.QueryRowContext(ctx, spatialTableCountQuery).Scan(&count); err == nil {
		info.SpatialTables = count
	}
	if rows, err := a.db.QueryContext(ctx, extensionsQuery); err == nil {
		defer rows.Close()
		for rows.Next() {
			var name string
			if err := rows.Scan(&name); err != nil {
				break
			}
			info.Extensions = append(info.Extensions, name)
		}
	}
	return info, nil
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SpatialExtent computes the bounding box of a table's geometry column.
// When geometryColumn is empty the registered column from geometry_columns
// is used. Identifiers cannot be bound as placeholders, so they are
// validated against the identifier pattern and quoted.
func (a *Adapter) SpatialExtent(ctx context.Context, table query.TableIdentifier, geometryColumn string) (*query.Extent, error) {
	schema := table.Schema
	if schema == "" {
		schema = "public"
	}

	srid := 0
	if geometryColumn == "" {
		ts, err := a.Describe(ctx, table)
		if err != nil {
			return nil, err
		}
		if ts.GeometryColumn == "" {
			return nil, fmt.Errorf("table %s has no registered geometry column", table)
		}
		geometryColumn = ts.GeometryColumn
		srid = ts.SRID
	}
	for _, ident := range []string{schema, table.Table, geometryColumn} {
		if !identifierPattern.MatchString(ident) {
			return nil, fmt.Errorf("invalid identifier %q", ident)
		}
	}

	stmt := fmt.Sprintf(
		`SELECT ST_XMin(ext), ST_YMin(ext), ST_XMax(ext), ST_YMax(ext) FROM (SELECT ST_Extent(%s) AS ext FROM %s.%s) AS bounds`,
		pq.QuoteIdentifier(geometryColumn),
		pq.QuoteIdentifier(schema),
		pq.QuoteIdentifier(table.Table),
	)

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	var minX, minY, maxX, maxY sql.NullFloat64
	if err := a.db.QueryRowContext(ctx, stmt).Scan(&minX, &minY, &maxX, &maxY); err != nil {
		return nil, fmt.Errorf("computing extent for %s: %w", table, err)
	}
	if !minX.Valid {
		return nil, fmt.Errorf("table %s has no features", table)
	}
	return &query.Extent{
		MinX: minX.Float64,
		MinY: minY.Float64,
		MaxX: maxX.Float64,
		MaxY: maxY.Float64,
		SRID: srid,
	}, nil
}

// Close releases the connection pool.
func (a *Adapter) Close() error {
	return a.db.Close() //nolint:wrapcheck // pool close error is the useful one
}

// Verify interface compliance.
var _ query.Provider = (*Adapter)(nil)
