// Package nl2sql translates natural-language spatial queries into
// parameterized PostGIS SQL. Classification, extraction, and rendering are
// pure functions over the input text; the Translator composes them and
// registers every generated statement as a pending confirmation session so
// nothing reaches the database without explicit approval.
package nl2sql

import (
	"errors"
	"fmt"
)

// QueryIntent is the spatial query category a piece of text classifies into.
type QueryIntent string

const (
	// IntentNearby finds features within a radius of a point.
	IntentNearby QueryIntent = "nearby"
	// IntentBuffer builds buffer zones around features.
	IntentBuffer QueryIntent = "buffer"
	// IntentArea computes feature areas.
	IntentArea QueryIntent = "area"
	// IntentCount counts features.
	IntentCount QueryIntent = "count"
	// IntentUnrecognized means no pattern group matched. It is terminal:
	// callers must not attempt extraction or rendering for it.
	IntentUnrecognized QueryIntent = "unrecognized"
)

const (
	// DefaultSchema qualifies tables when the caller supplies no schema.
	DefaultSchema = "public"
	// DefaultLimit bounds result sets when the caller supplies no limit.
	DefaultLimit = 100
)

// ExtractedParameters holds the typed values pulled out of a query string.
// Fields are extracted independently; the Has* flags distinguish absent
// values from zero values.
type ExtractedParameters struct {
	Table          string
	Schema         string
	Longitude      float64
	Latitude       float64
	HasCoordinates bool
	DistanceMeters float64
	HasDistance    bool
	Limit          int
}

// Map returns the parameters an intent uses, keyed the way tool responses
// report them.
func (p ExtractedParameters) Map(intent QueryIntent) map[string]any {
	m := map[string]any{
		"table":  p.Table,
		"schema": p.Schema,
	}
	switch intent {
	case IntentNearby:
		m["longitude"] = p.Longitude
		m["latitude"] = p.Latitude
		m["radius_meters"] = p.DistanceMeters
		m["limit"] = p.Limit
	case IntentBuffer:
		m["distance_meters"] = p.DistanceMeters
	}
	return m
}

// GeneratedStatement is an immutable rendering of one classified query.
// BoundArgs line up with the statement's positional placeholders so the
// execution boundary can bind them instead of interpolating; Parameters
// carries the same values keyed by name for display.
type GeneratedStatement struct {
	Intent      QueryIntent    `json:"intent"`
	SQL         string         `json:"sql"`
	BoundArgs   []any          `json:"bound_args,omitempty"`
	Parameters  map[string]any `json:"parameters"`
	SourceQuery string         `json:"source_query"`
	Table       string         `json:"table"`
	Schema      string         `json:"schema"`
	Limit       int            `json:"limit"`
}

// ErrUnrecognizedIntent reports text that matched no intent pattern group.
// The caller must rephrase using one of the recognized keywords.
var ErrUnrecognizedIntent = errors.New("unrecognized query intent")

// MissingParameterError reports a required parameter the text did not
// contain. Field is one of "table", "coordinates", or "distance".
type MissingParameterError struct {
	Field string
}

func (e *MissingParameterError) Error() string {
	return fmt.Sprintf("missing required parameter: %s", e.Field)
}

// InvalidIdentifierError reports a table, schema, or column name that
// failed identifier validation and was refused before rendering.
type InvalidIdentifierError struct {
	Kind string
	Name string
}

func (e *InvalidIdentifierError) Error() string {
	return fmt.Sprintf("invalid %s identifier: %q", e.Kind, e.Name)
}
