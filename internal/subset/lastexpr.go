package subset

import (
	"strconv"
	"strings"

	"github.com/mohammed-shakir/griddap-subset/internal/core/model"
)

const lastKeyword = "last"

// LastExpr is a parsed "last", "last+n" or "last-n.m" token.
type LastExpr struct {
	Offset   float64 // signed
	Integral bool
	digits   string
}

// ParseLast recognizes last(('+'|'-')number)? where number is digits with
// an optional fractional part.
func ParseLast(tok string) (LastExpr, bool) {
	if !strings.HasPrefix(tok, lastKeyword) {
		return LastExpr{}, false
	}
	rest := tok[len(lastKeyword):]
	if rest == "" {
		return LastExpr{Integral: true}, true
	}
	sign := rest[0]
	if sign != '+' && sign != '-' {
		return LastExpr{}, false
	}
	num := rest[1:]
	intPart, frac, hasDot := strings.Cut(num, ".")
	if !allDigits(intPart) || (hasDot && !allDigits(frac)) {
		return LastExpr{}, false
	}
	off, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return LastExpr{}, false
	}
	if sign == '-' {
		off = -off
	}
	return LastExpr{Offset: off, Integral: !hasDot, digits: string(sign) + intPart}, true
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return false
		}
	}
	return true
}

func IsLast(tok string) bool {
	_, ok := ParseLast(tok)
	return ok
}

// EvaluateLast applies a last-relative token. Plain tokens are index
// arithmetic on lastIndex and accept integral offsets only; extended tokens
// are coordinate arithmetic on lastValue, and the result still has to go
// through nearest-index resolution.
func EvaluateLast(tok string, lastIndex int, lastValue float64, extended bool) (float64, error) {
	le, ok := ParseLast(tok)
	if !ok {
		return 0, &model.MalformedExpressionError{Token: tok, Pos: -1, Reason: "expected last[+-]number"}
	}
	if extended {
		return lastValue + le.Offset, nil
	}
	if !le.Integral {
		return 0, &model.MalformedExpressionError{
			Token:  tok,
			Pos:    -1,
			Reason: "index arithmetic needs an integer offset; use (" + tok + ") for coordinate values",
		}
	}
	if le.digits == "" {
		return float64(lastIndex), nil
	}
	off, err := strconv.Atoi(le.digits)
	if err != nil {
		return 0, &model.MalformedExpressionError{Token: tok, Pos: -1, Reason: "offset overflows an index"}
	}
	return float64(lastIndex + off), nil
}
