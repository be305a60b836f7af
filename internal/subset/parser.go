// Package subset resolves griddap subset expressions such as
// temp[(2009-06-16T00:00:00Z)][0:3:277] into validated integer index ranges.
package subset

import (
	"regexp"
	"strings"

	"github.com/mohammed-shakir/griddap-subset/internal/core/model"
)

var (
	intPattern    = regexp.MustCompile(`^[+-]?[0-9]+$`)
	numberPattern = regexp.MustCompile(`^[+-]?(?:[0-9]+(?:\.[0-9]*)?|\.[0-9]+)$`)
)

// Part is one start, stride or stop component of a bracket group. Extended
// parts were written in parentheses (coordinate values, timestamps or
// last-relative coordinates); Raw never includes the parentheses.
type Part struct {
	Raw      string
	Extended bool
	Pos      int // byte offset in the expression
}

// SliceToken is one parsed bracket group. Start is always set; Stop is nil
// for a single-point selection.
type SliceToken struct {
	Start  *Part
	Stride *Part
	Stop   *Part
}

type Expression struct {
	Raw      string
	Variable string
	Slices   []SliceToken
}

func malformed(expr, token string, pos int, reason string) error {
	return &model.MalformedExpressionError{Expr: expr, Token: token, Pos: pos, Reason: reason}
}

// VariableName returns the leading identifier of expr, or "".
func VariableName(expr string) string {
	s := strings.TrimLeft(expr, " \t")
	n := identLen(s)
	return s[:n]
}

func identLen(s string) int {
	if s == "" || !isLetter(s[0]) {
		return 0
	}
	i := 1
	for i < len(s) && (isLetter(s[i]) || isDigit(s[i]) || s[i] == '_') {
		i++
	}
	return i
}

func isLetter(c byte) bool { return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isSpace(c byte) bool { return c == ' ' || c == '\t' }

// Parse splits a subset expression into its variable name and one
// SliceToken per bracket group, left to right.
func Parse(expr string) (Expression, error) {
	out := Expression{Raw: expr}

	i := 0
	for i < len(expr) && isSpace(expr[i]) {
		i++
	}
	n := identLen(expr[i:])
	if n == 0 {
		return Expression{}, malformed(expr, expr, i, "expected a variable name")
	}
	out.Variable = expr[i : i+n]
	i += n

	for {
		for i < len(expr) && isSpace(expr[i]) {
			i++
		}
		if i == len(expr) {
			return out, nil
		}
		if expr[i] != '[' {
			return Expression{}, malformed(expr, expr[i:], i, "expected '['")
		}
		end := closingBracket(expr, i+1)
		if end < 0 {
			return Expression{}, malformed(expr, expr[i:], i, "missing ']'")
		}
		tok, err := parseBracket(expr, i+1, end)
		if err != nil {
			return Expression{}, err
		}
		out.Slices = append(out.Slices, tok)
		i = end + 1
	}
}

// closingBracket finds the ']' closing a group, skipping parenthesized text.
func closingBracket(expr string, from int) int {
	inParen := false
	for j := from; j < len(expr); j++ {
		switch expr[j] {
		case '(':
			inParen = true
		case ')':
			inParen = false
		case ']':
			if !inParen {
				return j
			}
		case '[':
			if !inParen {
				return -1
			}
		}
	}
	return -1
}

// parseBracket tokenizes expr[from:to]. A parenthesized part may directly
// follow a plain part without ':' ("[(a):1(b)]").
func parseBracket(expr string, from, to int) (SliceToken, error) {
	var parts []*Part
	expectPart := true
	prevExtended := false

	i := from
	for i < to {
		c := expr[i]
		switch {
		case isSpace(c):
			i++

		case c == ':':
			if expectPart {
				return SliceToken{}, malformed(expr, expr[from-1:to+1], i, "empty slice component")
			}
			expectPart = true
			i++

		case c == '(':
			if !expectPart && prevExtended {
				return SliceToken{}, malformed(expr, expr[from-1:to+1], i, "missing ':' between components")
			}
			j := strings.IndexByte(expr[i:to], ')')
			if j < 0 {
				return SliceToken{}, malformed(expr, expr[i:to], i, "unbalanced parenthesis")
			}
			raw := strings.TrimSpace(expr[i+1 : i+j])
			if raw == "" {
				return SliceToken{}, malformed(expr, expr[i:i+j+1], i, "empty parenthesized value")
			}
			parts = append(parts, &Part{Raw: raw, Extended: true, Pos: i})
			expectPart, prevExtended = false, true
			i += j + 1

		default:
			if !expectPart {
				return SliceToken{}, malformed(expr, expr[from-1:to+1], i, "missing ':' between components")
			}
			j := i
			for j < to && expr[j] != ':' && expr[j] != '(' && !isSpace(expr[j]) {
				j++
			}
			raw := expr[i:j]
			if !intPattern.MatchString(raw) && !IsLast(raw) {
				return SliceToken{}, malformed(expr, raw, i, "expected an integer index or last[+-]n")
			}
			parts = append(parts, &Part{Raw: raw, Pos: i})
			expectPart, prevExtended = false, false
			i = j
		}
	}
	if expectPart {
		return SliceToken{}, malformed(expr, expr[from-1:to+1], from-1, "empty slice component")
	}

	switch len(parts) {
	case 1:
		return SliceToken{Start: parts[0]}, nil
	case 2:
		return SliceToken{Start: parts[0], Stop: parts[1]}, nil
	case 3:
		return SliceToken{Start: parts[0], Stride: parts[1], Stop: parts[2]}, nil
	default:
		return SliceToken{}, malformed(expr, expr[from-1:to+1], from-1, "expected start[:stride]:stop")
	}
}

// Split breaks a comma separated list of expressions ("temp, salt[0][1:2]")
// into its members. Commas inside brackets or parentheses do not split.
func Split(list string) []string {
	var out []string
	depth := 0
	start := 0
	flush := func(end int) {
		if s := strings.TrimSpace(list[start:end]); s != "" {
			out = append(out, s)
		}
	}
	for i := 0; i < len(list); i++ {
		switch list[i] {
		case '[', '(':
			depth++
		case ']', ')':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				flush(i)
				start = i + 1
			}
		}
	}
	flush(len(list))
	return out
}
