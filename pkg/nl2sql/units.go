package nl2sql

import (
	"regexp"
	"strconv"
	"strings"
)

// distancePattern matches a decimal magnitude followed, adjacently or
// after whitespace, by a distance unit. Alternatives are ordered longest
// first so "km" is not consumed as a bare "m". There is no trailing word
// boundary: Chinese units sit next to non-ASCII characters where \b does
// not apply.
var distancePattern = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(公里|千米|kilometers?|km|meters?|米|m)`)

// kilometerUnits scale the magnitude by 1000; every other unit in
// distancePattern is meter-class and passes through unchanged.
var kilometerUnits = map[string]bool{
	"公里":         true,
	"千米":         true,
	"km":         true,
	"kilometer":  true,
	"kilometers": true,
}

// ParseDistance scans text for a distance expression and returns its value
// normalized to meters. The second return is false when no expression is
// present. When several appear, the leftmost wins.
func ParseDistance(text string) (float64, bool) {
	m := distancePattern.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	if kilometerUnits[strings.ToLower(m[2])] {
		value *= 1000
	}
	return value, true
}
