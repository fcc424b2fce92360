// Package sqlguard is a syntactic defense-in-depth check applied to every
// SQL statement before execution, however the statement was produced. It
// operates at the lexical level, not the grammar level: string literals,
// quoted identifiers, and block comments are skipped, and everything else
// is judged as whole tokens. The guard accepts or rejects; it never
// rewrites a statement.
package sqlguard

import "strings"

// RejectionError explains why a statement was refused. The reason is
// surfaced verbatim to the caller and never auto-corrected.
type RejectionError struct {
	Reason string
}

func (e *RejectionError) Error() string {
	return "sql rejected: " + e.Reason
}

// deniedKeywords are rejected as whole tokens anywhere outside string
// literals, quoted identifiers, and comments.
var deniedKeywords = map[string]bool{
	"drop":     true,
	"delete":   true,
	"update":   true,
	"insert":   true,
	"alter":    true,
	"truncate": true,
	"grant":    true,
}

// Check enforces the execution policy: exactly one statement, starting
// with SELECT, free of denylisted keywords and line comments. A single
// trailing semicolon is tolerated; any content after it is a stacked
// statement and rejected. The function runs in O(n) time with a single
// pass over the input.
func Check(sql string) error {
	n := len(sql)
	pos := 0
	sawSelect := false
	terminated := false

	for pos < n {
		ch := sql[pos]

		if isSpace(ch) {
			pos++
			continue
		}
		if terminated {
			return &RejectionError{Reason: "multiple statements are not allowed"}
		}

		switch {
		case ch == '\'':
			next, closed := skipSingleQuoted(sql, pos, n)
			if !closed {
				return &RejectionError{Reason: "unterminated string literal"}
			}
			pos = next
		case ch == '"':
			next, closed := skipDoubleQuoted(sql, pos, n)
			if !closed {
				return &RejectionError{Reason: "unterminated quoted identifier"}
			}
			pos = next
		case isLineCommentStart(sql, pos, n):
			return &RejectionError{Reason: "line comments are not allowed"}
		case isBlockCommentStart(sql, pos, n):
			next, closed := skipBlockComment(sql, pos, n)
			if !closed {
				return &RejectionError{Reason: "unterminated block comment"}
			}
			pos = next
		case ch == ';':
			terminated = true
			pos++
		case isWordStart(ch):
			word, next := readWord(sql, pos, n)
			lower := strings.ToLower(word)
			if !sawSelect {
				if lower != "select" {
					return &RejectionError{Reason: "only SELECT statements are allowed"}
				}
				sawSelect = true
			} else if deniedKeywords[lower] {
				return &RejectionError{Reason: "keyword " + strings.ToUpper(lower) + " is not allowed"}
			}
			pos = next
		default:
			pos++
		}
	}

	if !sawSelect {
		return &RejectionError{Reason: "empty statement"}
	}
	return nil
}

// skipSingleQuoted advances past a single-quoted string literal, handling
// '' escapes.
func skipSingleQuoted(sql string, pos, n int) (next int, closed bool) {
	pos++ // skip opening quote
	for pos < n {
		if sql[pos] == '\'' {
			pos++
			// '' is an escaped quote inside the literal
			if pos < n && sql[pos] == '\'' {
				pos++
				continue
			}
			return pos, true
		}
		pos++
	}
	return pos, false
}

// skipDoubleQuoted advances past a double-quoted identifier, handling ""
// escapes per SQL.
func skipDoubleQuoted(sql string, pos, n int) (next int, closed bool) {
	pos++ // skip opening quote
	for pos < n {
		if sql[pos] == '"' {
			pos++
			// "" is an escaped double-quote inside the identifier
			if pos < n && sql[pos] == '"' {
				pos++
				continue
			}
			return pos, true
		}
		pos++
	}
	return pos, false
}

// isLineCommentStart reports whether pos is at the start of a -- comment.
func isLineCommentStart(sql string, pos, n int) bool {
	return sql[pos] == '-' && pos+1 < n && sql[pos+1] == '-'
}

// isBlockCommentStart reports whether pos is at the start of a /* comment.
func isBlockCommentStart(sql string, pos, n int) bool {
	return sql[pos] == '/' && pos+1 < n && sql[pos+1] == '*'
}

// skipBlockComment advances past a /* ... */ comment.
func skipBlockComment(sql string, pos, n int) (next int, closed bool) {
	pos += 2 // skip /*
	for pos+1 < n {
		if sql[pos] == '*' && sql[pos+1] == '/' {
			return pos + 2, true
		}
		pos++
	}
	return n, false
}

// readWord reads a bareword token (letters, digits, underscores, and any
// multi-byte characters, which keeps UTF-8 text inside one token).
func readWord(sql string, pos, n int) (word string, next int) {
	start := pos
	for pos < n && isWordChar(sql[pos]) {
		pos++
	}
	return sql[start:pos], pos
}

func isSpace(ch byte) bool {
	switch ch {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	}
	return false
}

func isWordStart(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_' || ch >= 0x80
}

func isWordChar(ch byte) bool {
	return isWordStart(ch) || (ch >= '0' && ch <= '9')
}
