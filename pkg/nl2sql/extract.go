package nl2sql

import (
	"errors"
	"regexp"
	"strconv"
)

var (
	// tablePattern finds a "table:" / "表:" marker followed by an
	// identifier. Both ASCII and full-width colons are accepted, and the
	// colon may be replaced by whitespace. The \b after "table" keeps
	// "tables" from yielding a table named "s"; 表 needs no boundary since
	// \b is ASCII-only.
	tablePattern = regexp.MustCompile(`(?i)(?:表|table\b)\s*[:：\s]*([A-Za-z_][A-Za-z0-9_]*)`)

	// coordPattern finds two decimals separated by an ASCII or full-width
	// comma. Order is fixed as longitude,latitude; no reverse-order
	// detection is attempted.
	coordPattern = regexp.MustCompile(`(\d+\.?\d*)[,，]\s*(\d+\.?\d*)`)

	identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// ValidIdentifier reports whether name is usable as a table, schema, or
// column identifier. Rendered statements quote identifiers anyway, but
// nothing failing this check gets near a statement.
func ValidIdentifier(name string) bool {
	return identPattern.MatchString(name)
}

// ExtractOptions carries caller-supplied fallbacks for extraction.
type ExtractOptions struct {
	// DefaultTable is used when the text names no table. Empty means no
	// fallback, and extraction fails for table-requiring intents.
	DefaultTable string
	// Schema qualifies the table; empty defaults to DefaultSchema.
	Schema string
	// Limit bounds nearby results; zero or negative defaults to
	// DefaultLimit.
	Limit int
}

// Extract pulls the parameters an intent needs out of text. Every
// extractor runs regardless of earlier failures, so the returned error
// names all missing fields at once rather than the first one hit.
func Extract(text string, intent QueryIntent, opts ExtractOptions) (ExtractedParameters, error) {
	params := ExtractedParameters{
		Schema: opts.Schema,
		Limit:  opts.Limit,
	}
	if params.Schema == "" {
		params.Schema = DefaultSchema
	}
	if params.Limit <= 0 {
		params.Limit = DefaultLimit
	}

	if m := tablePattern.FindStringSubmatch(text); m != nil {
		params.Table = m[1]
	} else {
		params.Table = opts.DefaultTable
	}

	if m := coordPattern.FindStringSubmatch(text); m != nil {
		lon, lonErr := strconv.ParseFloat(m[1], 64)
		lat, latErr := strconv.ParseFloat(m[2], 64)
		if lonErr == nil && latErr == nil {
			params.Longitude = lon
			params.Latitude = lat
			params.HasCoordinates = true
		}
	}

	if meters, ok := ParseDistance(text); ok {
		params.DistanceMeters = meters
		params.HasDistance = true
	}

	var errs []error
	if params.Table == "" {
		errs = append(errs, &MissingParameterError{Field: "table"})
	} else if !ValidIdentifier(params.Table) {
		errs = append(errs, &InvalidIdentifierError{Kind: "table", Name: params.Table})
	}
	if !ValidIdentifier(params.Schema) {
		errs = append(errs, &InvalidIdentifierError{Kind: "schema", Name: params.Schema})
	}
	switch intent {
	case IntentNearby:
		if !params.HasCoordinates {
			errs = append(errs, &MissingParameterError{Field: "coordinates"})
		}
		if !params.HasDistance {
			errs = append(errs, &MissingParameterError{Field: "distance"})
		}
	case IntentBuffer:
		if !params.HasDistance {
			errs = append(errs, &MissingParameterError{Field: "distance"})
		}
	}
	if len(errs) > 0 {
		return ExtractedParameters{}, errors.Join(errs...)
	}
	return params, nil
}
