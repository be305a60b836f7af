package subset

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/mohammed-shakir/griddap-subset/internal/core/model"
)

// IndexSlice selects positions of one named axis. Stop is exclusive and
// negative values count from the end of the axis; Step 0 means no stride.
type IndexSlice struct {
	Axis  string
	Start int
	Stop  int
	Step  int
	point bool
}

// At selects the single position i.
func At(axis string, i int) IndexSlice {
	return IndexSlice{Axis: axis, Start: i, point: true}
}

// Slice selects [start, stop) with an optional stride.
func Slice(axis string, start, stop, step int) IndexSlice {
	return IndexSlice{Axis: axis, Start: start, Stop: stop, Step: step}
}

func (s IndexSlice) String() string {
	if s.point {
		return fmt.Sprintf("%s=%d", s.Axis, s.Start)
	}
	if s.Step != 0 {
		return fmt.Sprintf("%s=%d:%d:%d", s.Axis, s.Start, s.Step, s.Stop)
	}
	return fmt.Sprintf("%s=%d:%d", s.Axis, s.Start, s.Stop)
}

func (s IndexSlice) rng() model.Range {
	if s.point {
		return model.Point(s.Start)
	}
	return model.Span(s.Start, s.Stop, s.Step)
}

// ResolveIndices builds a Subset from positional selections. Axes without a
// selection are selected in full.
func ResolveIndices(axes *model.AxisSet, slices ...IndexSlice) (model.Subset, error) {
	if axes == nil {
		return model.Subset{}, fmt.Errorf("resolve indices: nil axis set")
	}
	ranges, seen := fullRanges(axes)
	for _, s := range slices {
		pos, err := claim(axes, seen, s.Axis, s.String())
		if err != nil {
			return model.Subset{}, err
		}
		rg := s.rng()
		if err := rg.Validate(axes.At(pos)); err != nil {
			return model.Subset{}, withExpr(err, s.String())
		}
		ranges[pos] = rg
	}
	return model.NewSubset(axes.Names(), ranges)
}

// ValueSlice selects one named axis in the coordinate domain. Start and Stop
// accept everything a parenthesized component does: numbers, ISO-8601
// timestamps on temporal axes and last[+-]number. Stop is inclusive.
type ValueSlice struct {
	Axis  string
	Start string
	Stop  string
	Step  int
}

// Near selects the coordinate closest to v.
func Near(axis, v string) ValueSlice { return ValueSlice{Axis: axis, Start: v} }

// NearValue is Near for a numeric coordinate.
func NearValue(axis string, v float64) ValueSlice {
	return Near(axis, strconv.FormatFloat(v, 'f', -1, 64))
}

// Between selects the coordinates closest to start through stop.
func Between(axis, start, stop string, step int) ValueSlice {
	return ValueSlice{Axis: axis, Start: start, Stop: stop, Step: step}
}

func (s ValueSlice) String() string {
	switch {
	case s.Stop == "":
		return fmt.Sprintf("%s=(%s)", s.Axis, s.Start)
	case s.Step != 0:
		return fmt.Sprintf("%s=(%s):%d:(%s)", s.Axis, s.Start, s.Step, s.Stop)
	}
	return fmt.Sprintf("%s=(%s):(%s)", s.Axis, s.Start, s.Stop)
}

// ResolveValues builds a Subset from coordinate-domain selections, resolving
// each bound to its nearest index. Axes without a selection are selected in
// full.
func (r *Resolver) ResolveValues(axes *model.AxisSet, slices ...ValueSlice) (model.Subset, error) {
	if axes == nil {
		return model.Subset{}, fmt.Errorf("resolve values: nil axis set")
	}
	ranges, seen := fullRanges(axes)
	for _, s := range slices {
		expr := s.String()
		pos, err := claim(axes, seen, s.Axis, expr)
		if err != nil {
			return model.Subset{}, err
		}
		if s.Step < 0 {
			return model.Subset{}, malformed(expr, strconv.Itoa(s.Step), -1, "stride must be a positive integer")
		}
		ax := axes.At(pos)
		start, err := r.resolvePart(expr, ax, &Part{Raw: s.Start, Extended: true, Pos: -1})
		if err != nil {
			return model.Subset{}, err
		}
		if s.Stop == "" {
			ranges[pos] = model.Point(start)
			continue
		}
		stop, err := r.resolvePart(expr, ax, &Part{Raw: s.Stop, Extended: true, Pos: -1})
		if err != nil {
			return model.Subset{}, err
		}
		rg := model.Span(start, stop+1, s.Step)
		if err := rg.Validate(ax); err != nil {
			return model.Subset{}, withExpr(err, expr)
		}
		ranges[pos] = rg
	}
	return model.NewSubset(axes.Names(), ranges)
}

func fullRanges(axes *model.AxisSet) ([]model.Range, []bool) {
	ranges := make([]model.Range, axes.Len())
	for i := range ranges {
		ranges[i] = model.Full(axes.At(i).Len())
	}
	return ranges, make([]bool, axes.Len())
}

func claim(axes *model.AxisSet, seen []bool, name, expr string) (int, error) {
	pos, ok := axes.Position(name)
	if !ok {
		return 0, malformed(expr, name, -1, fmt.Sprintf("unknown axis %q (have %v)", name, axes.Names()))
	}
	if seen[pos] {
		return 0, malformed(expr, name, -1, fmt.Sprintf("axis %q selected more than once", name))
	}
	seen[pos] = true
	return pos, nil
}

func withExpr(err error, expr string) error {
	var me *model.MalformedExpressionError
	if errors.As(err, &me) && me.Expr == "" {
		me.Expr, me.Pos = expr, -1
	}
	return err
}

// Coordinates returns the coordinate values a subset selects, keyed by axis
// name. A zero subset selects every coordinate.
func Coordinates(axes *model.AxisSet, s model.Subset) (map[string][]float64, error) {
	if axes == nil {
		return nil, fmt.Errorf("coordinates: nil axis set")
	}
	if s.IsZero() {
		ranges, _ := fullRanges(axes)
		var err error
		if s, err = model.NewSubset(axes.Names(), ranges); err != nil {
			return nil, err
		}
	}
	if s.Len() != axes.Len() {
		return nil, fmt.Errorf("coordinates: subset has %d ranges for %d axes", s.Len(), axes.Len())
	}

	out := make(map[string][]float64, s.Len())
	for i := range s.Len() {
		ax := axes.At(i)
		if s.Name(i) != ax.Name() {
			return nil, fmt.Errorf("coordinates: range %d is for axis %q, want %q", i, s.Name(i), ax.Name())
		}
		rg := s.Range(i)
		if err := rg.Validate(ax); err != nil {
			return nil, err
		}
		start, stop := rg.Normalize(ax.Len())
		step := max(rg.Step, 1)
		vals := make([]float64, 0, (stop-start+step-1)/step)
		for j := start; j < stop; j += step {
			vals = append(vals, ax.Value(j))
		}
		out[ax.Name()] = vals
	}
	return out, nil
}
