// Package keys derives cache keys for resolved subset expressions.
package keys

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
)

const prefix = "subset"

// DatasetPrefix is the common prefix of every key of dataset.
func DatasetPrefix(dataset string) string {
	return prefix + ":" + sanitize(strings.TrimSpace(dataset)) + ":"
}

// Key identifies expr resolved against the axes with the given fingerprint.
// Only surrounding whitespace is normalized: inner spacing can change
// whether an expression parses.
func Key(dataset string, fingerprint uint64, expr string) string {
	text := strings.TrimSpace(expr)
	safe := sanitize(text)

	const maxExprTextLen = 120
	if len(safe) > maxExprTextLen {
		safe = safe[:maxExprTextLen]
	}
	sum := xxhash.Sum64String(text)
	return fmt.Sprintf("%s%016x:expr=%s:e=%016x", DatasetPrefix(dataset), fingerprint, safe, sum)
}

// sanitize keeps keys printable ASCII without glob metacharacters, since
// prefixes are used in SCAN MATCH patterns.
func sanitize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	var prev rune
	for _, r := range s {
		var out rune
		switch {
		case unicode.IsSpace(r):
			out = '_'
		case isAlphaNum(r) || r == '_' || r == '-' || r == '.' || r == '+' || r == '(' || r == ')':
			out = r
		case r == '[' || r == ']' || r == ':':
			out = '.'
		default:
			out = '-'
		}
		if (out == '_' || out == '-') && out == prev {
			continue
		}
		b.WriteRune(out)
		prev = out
	}
	return b.String()
}

func isAlphaNum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}
