package model

import (
	"fmt"
	"strconv"
)

// Range is a resolved integer selection along one axis. Stop is exclusive
// ("last index + 1"); Step is 0 when no stride was requested. Start and Stop
// may hold negative indices counted from the end of the axis.
type Range struct {
	Start int
	Stop  int
	Step  int
}

// Point selects the single index i.
func Point(i int) Range { return Range{Start: i, Stop: i + 1} }

// Span selects [start, stop) with an optional stride (0 = none).
func Span(start, stop, step int) Range { return Range{Start: start, Stop: stop, Step: step} }

// Full selects every index of an axis of length n.
func Full(n int) Range { return Range{Start: 0, Stop: n} }

// Normalize maps negative indices onto an axis of length n. A zero Stop
// paired with a negative Start means "through the end" (Point(-1)).
func (r Range) Normalize(n int) (start, stop int) {
	start, stop = r.Start, r.Stop
	if start < 0 {
		start += n
	}
	if stop < 0 || (stop == 0 && r.Start < 0) {
		stop += n
	}
	return start, stop
}

// Validate checks 0 <= start <= stop-1 < ax.Len() after normalization.
func (r Range) Validate(ax *Axis) error {
	n := ax.Len()
	last := float64(n - 1)
	if r.Step < 0 {
		return &MalformedExpressionError{
			Token:  strconv.Itoa(r.Step),
			Reason: fmt.Sprintf("stride for axis %q must be a positive integer", ax.Name()),
		}
	}
	start, stop := r.Normalize(n)
	if start < 0 || start >= n {
		return &OutOfRangeError{Axis: ax.Name(), Value: float64(r.Start), Min: 0, Max: last, Index: true}
	}
	if stop < 1 || stop > n {
		return &OutOfRangeError{Axis: ax.Name(), Value: float64(r.Stop - 1), Min: 0, Max: last, Index: true}
	}
	if start > stop-1 {
		return &MalformedExpressionError{
			Token:  fmt.Sprintf("%d:%d", start, stop-1),
			Pos:    -1,
			Reason: fmt.Sprintf("start index %d is after stop index %d on axis %q", start, stop-1, ax.Name()),
		}
	}
	return nil
}

// Subset is the resolved selection of one variable: one Range per axis in
// the AxisSet's declared order. The zero Subset means "no constraint".
type Subset struct {
	names  []string
	ranges []Range
}

func NewSubset(names []string, ranges []Range) (Subset, error) {
	if len(names) != len(ranges) {
		return Subset{}, fmt.Errorf("subset has %d axis names but %d ranges", len(names), len(ranges))
	}
	s := Subset{
		names:  make([]string, len(names)),
		ranges: make([]Range, len(ranges)),
	}
	copy(s.names, names)
	copy(s.ranges, ranges)
	return s, nil
}

func (s Subset) IsZero() bool { return len(s.ranges) == 0 }

func (s Subset) Len() int { return len(s.ranges) }

func (s Subset) Name(i int) string { return s.names[i] }

func (s Subset) Range(i int) Range { return s.ranges[i] }

func (s Subset) Get(name string) (Range, bool) {
	for i, n := range s.names {
		if n == name {
			return s.ranges[i], true
		}
	}
	return Range{}, false
}

// Equal reports whether both subsets select the same ranges on the same axes.
func (s Subset) Equal(o Subset) bool {
	if len(s.ranges) != len(o.ranges) {
		return false
	}
	for i := range s.ranges {
		if s.names[i] != o.names[i] || s.ranges[i] != o.ranges[i] {
			return false
		}
	}
	return true
}
