// Package normalize turns free-text exercise names into comparison keys.
package normalize

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// minTokenLen is the shortest token kept by Tokenize. Shorter words ("the", "for", "db")
// are noise for keyword matching.
const minTokenLen = 4

// parenthetical matches a variant annotation such as "(Pause)" or "(Unilateral)".
var parenthetical = regexp.MustCompile(`\([^)]*\)`)

// Key returns the canonical comparison key for an exercise name.
//
//	"Barbell Hip Thrust (Pause)" -> "barbellhipthrust"
//	"barbell-hip-thrust"         -> "barbellhipthrust"
//
// Accented letters are dropped rather than folded ("Élévation" -> "lvation").
// Key is total and idempotent.
func Key(input string) string {
	if input == "" {
		return ""
	}

	// Compose first so "é" and "é" are dropped the same way.
	s := strings.ToLower(norm.NFC.String(input))
	return Strip(StripParentheticals(s))
}

// StripParentheticals removes every closed "(...)" group. An unclosed "(" is kept.
func StripParentheticals(s string) string {
	return parenthetical.ReplaceAllString(s, "")
}

// Strip removes every rune that is not a lowercase ASCII letter or digit.
// The input is expected to be lowercased already.
func Strip(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// Tokenize lowercases input, splits it on whitespace and keeps tokens longer than
// three characters. Tokens are not stripped of punctuation; callers that need a
// substring needle pass each token through Strip.
func Tokenize(input string) []string {
	fields := strings.Fields(strings.ToLower(norm.NFC.String(input)))
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if utf8.RuneCountInString(f) >= minTokenLen {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// Keywords returns the stripped, non-empty tokens of input in order.
func Keywords(input string) []string {
	tokens := Tokenize(input)
	out := tokens[:0]
	for _, t := range tokens {
		if k := Strip(t); k != "" {
			out = append(out, k)
		}
	}
	return out
}

// Lower trims and lowercases a tag such as an equipment or muscle name.
func Lower(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
