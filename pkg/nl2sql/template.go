package nl2sql

import (
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"
)

// DefaultGeometryColumn is assumed when the engine is not configured with
// one. PostGIS installs conventionally name the column "geom".
const DefaultGeometryColumn = "geom"

// Engine renders one parameterized statement per intent. Identifiers are
// validated and quoted; every user-derived value becomes a bound
// placeholder. Rendering never executes anything.
type Engine struct {
	geometryColumn string
}

// NewEngine returns an Engine reading geometries from geometryColumn, or
// DefaultGeometryColumn when empty.
func NewEngine(geometryColumn string) (*Engine, error) {
	if geometryColumn == "" {
		geometryColumn = DefaultGeometryColumn
	}
	if !ValidIdentifier(geometryColumn) {
		return nil, &InvalidIdentifierError{Kind: "geometry column", Name: geometryColumn}
	}
	return &Engine{geometryColumn: geometryColumn}, nil
}

// Render produces the statement for intent from params. sourceQuery is the
// original text, carried along for display and auditing.
func (e *Engine) Render(intent QueryIntent, params ExtractedParameters, sourceQuery string) (GeneratedStatement, error) {
	if params.Table == "" {
		return GeneratedStatement{}, &MissingParameterError{Field: "table"}
	}
	if !ValidIdentifier(params.Table) {
		return GeneratedStatement{}, &InvalidIdentifierError{Kind: "table", Name: params.Table}
	}
	schema := params.Schema
	if schema == "" {
		schema = DefaultSchema
	}
	if !ValidIdentifier(schema) {
		return GeneratedStatement{}, &InvalidIdentifierError{Kind: "schema", Name: schema}
	}
	limit := params.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	relation := pq.QuoteIdentifier(schema) + "." + pq.QuoteIdentifier(params.Table)
	geom := pq.QuoteIdentifier(e.geometryColumn)

	var builder sq.SelectBuilder
	switch intent {
	case IntentNearby:
		if !params.HasCoordinates {
			return GeneratedStatement{}, &MissingParameterError{Field: "coordinates"}
		}
		if !params.HasDistance {
			return GeneratedStatement{}, &MissingParameterError{Field: "distance"}
		}
		const point = "ST_SetSRID(ST_MakePoint(?, ?), 4326)::geography"
		builder = sq.Select("*").
			Column(sq.Alias(sq.Expr(
				fmt.Sprintf("ST_Distance(ST_Transform(%s, 4326)::geography, %s)", geom, point),
				params.Longitude, params.Latitude,
			), "distance_meters")).
			From(relation).
			Where(sq.Expr(
				fmt.Sprintf("ST_DWithin(ST_Transform(%s, 4326)::geography, %s, ?)", geom, point),
				params.Longitude, params.Latitude, params.DistanceMeters,
			)).
			OrderBy("distance_meters").
			Limit(uint64(limit))

	case IntentBuffer:
		if !params.HasDistance {
			return GeneratedStatement{}, &MissingParameterError{Field: "distance"}
		}
		// Web Mercator so the buffer distance is in meters.
		builder = sq.Select("*").
			Column(sq.Alias(sq.Expr(
				fmt.Sprintf("ST_AsText(ST_Buffer(ST_Transform(%s, 3857), ?))", geom),
				params.DistanceMeters,
			), "buffer_geom")).
			Column(sq.Alias(sq.Expr(
				fmt.Sprintf("ST_Area(ST_Buffer(ST_Transform(%s, 3857), ?))", geom),
				params.DistanceMeters,
			), "buffer_area_sqm")).
			From(relation)

	case IntentArea:
		areaExpr := fmt.Sprintf("ST_Area(ST_Transform(%s, 3857))", geom)
		builder = sq.Select("*").
			Column(sq.Alias(sq.Expr(areaExpr), "area_sqm")).
			Column(sq.Alias(sq.Expr(areaExpr+" / 1000000.0"), "area_sqkm")).
			From(relation).
			OrderBy("area_sqm DESC")

	case IntentCount:
		builder = sq.Select().
			Column(sq.Alias(sq.Expr("COUNT(*)"), "feature_count")).
			From(relation)

	default:
		return GeneratedStatement{}, ErrUnrecognizedIntent
	}

	sqlText, args, err := builder.PlaceholderFormat(sq.Dollar).ToSql()
	if err != nil {
		return GeneratedStatement{}, fmt.Errorf("building %s statement: %w", intent, err)
	}

	resolved := params
	resolved.Schema = schema
	resolved.Limit = limit
	return GeneratedStatement{
		Intent:      intent,
		SQL:         sqlText,
		BoundArgs:   args,
		Parameters:  resolved.Map(intent),
		SourceQuery: sourceQuery,
		Table:       params.Table,
		Schema:      schema,
		Limit:       limit,
	}, nil
}
