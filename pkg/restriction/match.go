package restriction

import (
	"regexp"
	"strings"
)

// MatchesPattern reports whether text matches a wildcard pattern.
// The pattern is anchored at both ends: it must account for the entire
// text, never a substring. Two wildcards are recognized:
//
//   - '*' matches any run of characters, including none
//   - '?' matches exactly one character
//
// Every other character matches itself literally, including regex
// metacharacters — "get.tool" matches only the text "get.tool".
// Matching is case-sensitive. An empty pattern matches only empty text.
// If the pattern cannot be compiled, matching falls back to exact
// string equality rather than failing.
func MatchesPattern(text, pattern string) bool {
	re, err := compilePattern(pattern)
	if err != nil {
		return text == pattern
	}
	return re.MatchString(text)
}

// MatchesAny reports whether text matches at least one of the patterns.
// An empty pattern set matches nothing.
func MatchesAny(text string, patterns []string) bool {
	for _, p := range patterns {
		if MatchesPattern(text, p) {
			return true
		}
	}
	return false
}

// MatchesPatternOrContains reports whether text matches term as a
// wildcard pattern, or contains term as a case-insensitive substring.
// This is for interactive search only — enforcement must use
// MatchesPattern, whose semantics are exact (a contains fallback would
// let a disallow entry for "help" swallow a tool named "helper").
func MatchesPatternOrContains(text, term string) bool {
	if MatchesPattern(text, term) {
		return true
	}
	return term != "" && strings.Contains(strings.ToLower(text), strings.ToLower(term))
}

// compilePattern translates a wildcard pattern into an anchored regexp.
// Non-wildcard characters are quoted so they only match literally. The
// s flag keeps wildcards matching newlines; without it "*" would not
// match every text.
func compilePattern(pattern string) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteString("(?s)^")
	for _, r := range pattern {
		switch r {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteByte('$')
	return regexp.Compile(b.String())
}
