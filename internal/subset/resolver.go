package subset

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/mohammed-shakir/griddap-subset/internal/core/dap"
	"github.com/mohammed-shakir/griddap-subset/internal/core/model"
	"github.com/mohammed-shakir/griddap-subset/internal/core/timeconv"
	"github.com/mohammed-shakir/griddap-subset/internal/mapper"
	"github.com/mohammed-shakir/griddap-subset/internal/mapper/nearest"
)

// Resolver turns subset expressions into integer index ranges. It keeps no
// state between calls; the AxisSet passed to each call must not change
// while the call runs.
type Resolver struct {
	mapper mapper.Interface
}

func New(m mapper.Interface) *Resolver {
	if m == nil {
		m = nearest.New()
	}
	return &Resolver{mapper: m}
}

// Resolved is the outcome for one expression.
type Resolved struct {
	Expr     string
	Variable string
	Subset   model.Subset // zero when the expression had no brackets
}

type Result struct {
	Variables []Resolved
}

// Last returns the subset of the last expression that carried brackets.
func (r Result) Last() (model.Subset, bool) {
	for i := len(r.Variables) - 1; i >= 0; i-- {
		if !r.Variables[i].Subset.IsZero() {
			return r.Variables[i].Subset, true
		}
	}
	return model.Subset{}, false
}

// Queries renders every variable in wire syntax.
func (r Result) Queries(axes *model.AxisSet) ([]string, error) {
	out := make([]string, 0, len(r.Variables))
	for _, v := range r.Variables {
		q, err := dap.Serialize(v.Variable, axes, v.Subset)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, nil
}

// Resolve parses and resolves each expression against axes. Either every
// expression resolves or an error for the first offending token is returned.
func (r *Resolver) Resolve(axes *model.AxisSet, exprs ...string) (Result, error) {
	if axes == nil {
		return Result{}, errors.New("resolve: nil axis set")
	}
	res := Result{Variables: make([]Resolved, 0, len(exprs))}
	for _, raw := range exprs {
		e, err := Parse(raw)
		if err != nil {
			return Result{}, err
		}
		s, err := r.resolveExpression(axes, e)
		if err != nil {
			return Result{}, err
		}
		res.Variables = append(res.Variables, Resolved{Expr: raw, Variable: e.Variable, Subset: s})
	}
	return res, nil
}

func (r *Resolver) resolveExpression(axes *model.AxisSet, e Expression) (model.Subset, error) {
	if len(e.Slices) == 0 {
		return model.Subset{}, nil
	}
	if len(e.Slices) != axes.Len() {
		return model.Subset{}, &model.DimensionCountMismatchError{
			Expr:     e.Raw,
			Expected: axes.Len(),
			Actual:   len(e.Slices),
		}
	}

	ranges := make([]model.Range, len(e.Slices))
	for i, tok := range e.Slices {
		rg, err := r.resolveSlice(e.Raw, axes.At(i), tok)
		if err != nil {
			return model.Subset{}, err
		}
		ranges[i] = rg
	}
	return model.NewSubset(axes.Names(), ranges)
}

func (r *Resolver) resolveSlice(expr string, ax *model.Axis, tok SliceToken) (model.Range, error) {
	start, err := r.resolvePart(expr, ax, tok.Start)
	if err != nil {
		return model.Range{}, err
	}
	if tok.Stop == nil {
		return model.Point(start), nil
	}
	stop, err := r.resolvePart(expr, ax, tok.Stop)
	if err != nil {
		return model.Range{}, err
	}
	if start > stop {
		return model.Range{}, malformed(expr, tok.Start.Raw+":"+tok.Stop.Raw, tok.Start.Pos,
			fmt.Sprintf("start index %d is after stop index %d on axis %q", start, stop, ax.Name()))
	}
	step := 0
	if tok.Stride != nil {
		if step, err = parseStride(expr, tok.Stride); err != nil {
			return model.Range{}, err
		}
	}
	rg := model.Span(start, stop+1, step)
	if err := rg.Validate(ax); err != nil {
		return model.Range{}, err
	}
	return rg, nil
}

func parseStride(expr string, p *Part) (int, error) {
	if p.Extended || !intPattern.MatchString(p.Raw) {
		return 0, malformed(expr, p.Raw, p.Pos, "stride must be a plain positive integer")
	}
	n, err := strconv.Atoi(p.Raw)
	if err != nil || n < 1 {
		return 0, malformed(expr, p.Raw, p.Pos, "stride must be a plain positive integer")
	}
	return n, nil
}

// resolvePart returns a non-negative index inside ax for one component.
func (r *Resolver) resolvePart(expr string, ax *model.Axis, p *Part) (int, error) {
	if !p.Extended {
		return resolvePlain(expr, ax, p)
	}
	v, err := coordinateValue(expr, ax, p)
	if err != nil {
		return 0, err
	}
	idx, err := r.mapper.ClosestIndex(ax, v)
	if err != nil {
		return 0, outOfRange(err)
	}
	return idx, nil
}

func resolvePlain(expr string, ax *model.Axis, p *Part) (int, error) {
	n := ax.Len()
	switch {
	case intPattern.MatchString(p.Raw):
		v, err := strconv.Atoi(p.Raw)
		if err != nil {
			return 0, malformed(expr, p.Raw, p.Pos, "index overflows")
		}
		idx := v
		// literal negative indices count from the end
		if idx < 0 {
			idx += n
		}
		if idx < 0 || idx >= n {
			return 0, indexOutOfRange(ax, v)
		}
		return idx, nil

	case IsLast(p.Raw):
		f, err := EvaluateLast(p.Raw, ax.LastIndex(), ax.Last(), false)
		if err != nil {
			return 0, withContext(err, expr, p.Pos)
		}
		idx := int(f)
		if idx < 0 || idx >= n {
			return 0, indexOutOfRange(ax, idx)
		}
		return idx, nil
	}
	return 0, malformed(expr, p.Raw, p.Pos, "expected an integer index or last[+-]n")
}

// coordinateValue converts an extended component into the axis's numeric
// domain. Timestamps are only accepted on temporal axes, and are tried
// before plain numbers there ("2009" is a year on a time axis).
func coordinateValue(expr string, ax *model.Axis, p *Part) (float64, error) {
	raw := p.Raw
	isTime := timeconv.IsISO8601(raw)
	switch {
	case ax.Temporal() && isTime:
		v, err := timeconv.Encode(raw, ax.TimeUnits())
		if err != nil {
			return 0, malformed(expr, raw, p.Pos, err.Error())
		}
		return v, nil

	case numberPattern.MatchString(raw):
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return 0, malformed(expr, raw, p.Pos, "invalid number")
		}
		return v, nil

	case IsLast(raw):
		v, err := EvaluateLast(raw, ax.LastIndex(), ax.Last(), true)
		if err != nil {
			return 0, withContext(err, expr, p.Pos)
		}
		return v, nil

	case isTime:
		return 0, malformed(expr, raw, p.Pos, fmt.Sprintf("axis %q is not a time axis", ax.Name()))
	}
	return 0, malformed(expr, raw, p.Pos, "expected a timestamp, a number or last[+-]number")
}

func outOfRange(err error) error {
	var be *model.BoundsError
	if errors.As(err, &be) {
		return &model.OutOfRangeError{Axis: be.Axis, Value: be.Value, Min: be.Min, Max: be.Max, Cause: be}
	}
	return err
}

func indexOutOfRange(ax *model.Axis, idx int) error {
	return &model.OutOfRangeError{
		Axis:  ax.Name(),
		Value: float64(idx),
		Min:   0,
		Max:   float64(ax.LastIndex()),
		Index: true,
	}
}

func withContext(err error, expr string, pos int) error {
	var me *model.MalformedExpressionError
	if errors.As(err, &me) {
		me.Expr, me.Pos = expr, pos
	}
	return err
}
