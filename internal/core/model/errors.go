package model

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedExpression    = errors.New("malformed subset expression")
	ErrDimensionCountMismatch = errors.New("dimension count mismatch")
	ErrOutOfRange             = errors.New("out of range")
)

// MalformedExpressionError reports a token that matches none of the
// recognized grammars. Pos is the byte offset of Token inside Expr, or -1.
type MalformedExpressionError struct {
	Expr   string
	Token  string
	Pos    int
	Reason string
}

func (e *MalformedExpressionError) Error() string {
	msg := "malformed subset"
	if e.Expr != "" {
		msg += fmt.Sprintf(" (%s)", e.Expr)
	}
	if e.Token != "" {
		msg += fmt.Sprintf(": could not parse %q", e.Token)
		if e.Pos >= 0 && e.Expr != "" {
			msg += fmt.Sprintf(" at offset %d", e.Pos)
		}
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *MalformedExpressionError) Is(target error) bool { return target == ErrMalformedExpression }

// DimensionCountMismatchError is returned when an expression supplies a
// non-zero number of bracket groups different from the dataset's rank.
type DimensionCountMismatchError struct {
	Expr     string
	Expected int
	Actual   int
}

func (e *DimensionCountMismatchError) Error() string {
	return fmt.Sprintf("subset (%s) has %d dimensions, dataset has %d", e.Expr, e.Actual, e.Expected)
}

func (e *DimensionCountMismatchError) Is(target error) bool {
	return target == ErrDimensionCountMismatch
}

// OutOfRangeError is returned when a coordinate value or an index falls
// outside an axis. For index violations Min and Max are index bounds.
type OutOfRangeError struct {
	Axis  string
	Value float64
	Min   float64
	Max   float64
	Index bool
	Cause error
}

func (e *OutOfRangeError) Error() string {
	if e.Index {
		return fmt.Sprintf("index %v is out of range for axis %q: valid indices [%v, %v]",
			e.Value, e.Axis, e.Min, e.Max)
	}
	return fmt.Sprintf("value %v is outside axis %q range [%v, %v]", e.Value, e.Axis, e.Min, e.Max)
}

func (e *OutOfRangeError) Is(target error) bool { return target == ErrOutOfRange }

func (e *OutOfRangeError) Unwrap() error { return e.Cause }

// BoundsError is the nearest-index lookup's out-of-range failure.
type BoundsError struct {
	Axis  string
	Value float64
	Min   float64
	Max   float64
}

func (e *BoundsError) Error() string {
	return fmt.Sprintf("no coordinate of axis %q for %v: declared range [%v, %v]", e.Axis, e.Value, e.Min, e.Max)
}

func (e *BoundsError) Is(target error) bool { return target == ErrOutOfRange }
