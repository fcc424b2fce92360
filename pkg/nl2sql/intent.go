package nl2sql

import "regexp"

// intentRules are evaluated in order and the first match wins. A query
// often carries vocabulary for more than one intent ("buffer area around
// the river"), so the order is load-bearing: nearby outranks buffer,
// buffer outranks area, area outranks count. English tokens take word
// boundaries so "near" does not fire inside "linear"; Chinese tokens are
// plain substrings because Go's \b is ASCII-only.
var intentRules = []struct {
	intent  QueryIntent
	pattern *regexp.Regexp
}{
	{IntentNearby, regexp.MustCompile(`(?i)附近|周围|周边|\bnear(?:by)?\b|\bwithin\b|\baround\b`)},
	{IntentBuffer, regexp.MustCompile(`(?i)缓冲|\bbuffer\b`)},
	{IntentArea, regexp.MustCompile(`(?i)面积|大小|\barea\b|\bsize\b`)},
	{IntentCount, regexp.MustCompile(`(?i)数量|个数|有多少|统计|\bcount\b|\bhow\s+many\b`)},
}

// Classify maps free text to a query intent. Text matching no rule returns
// IntentUnrecognized.
func Classify(text string) QueryIntent {
	for _, rule := range intentRules {
		if rule.pattern.MatchString(text) {
			return rule.intent
		}
	}
	return IntentUnrecognized
}
