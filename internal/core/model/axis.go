package model

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/mohammed-shakir/griddap-subset/internal/core/timeconv"
)

// Axis is one dimension of a gridded dataset: its sorted coordinate values
// and declared valid range. An Axis is never modified after NewAxis returns.
type Axis struct {
	name      string
	values    []float64
	min, max  float64
	temporal  bool
	timeUnits string
}

type AxisOption func(*axisOptions)

type axisOptions struct {
	hasRange  bool
	min, max  float64
	temporal  bool
	timeUnits string
}

// WithRange sets the declared range (the dataset's actual_range). Without it
// the range is taken from the first and last coordinate.
func WithRange(min, max float64) AxisOption {
	return func(o *axisOptions) {
		o.hasRange = true
		o.min, o.max = min, max
	}
}

// WithTime marks the axis as temporal with values encoded in units
// ("seconds since 1970-01-01T00:00:00Z" when empty).
func WithTime(units string) AxisOption {
	return func(o *axisOptions) {
		o.temporal = true
		o.timeUnits = strings.TrimSpace(units)
	}
}

func NewAxis(name string, values []float64, opts ...AxisOption) (*Axis, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("axis name is required")
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("axis %q has no coordinate values", name)
	}

	var o axisOptions
	for _, f := range opts {
		f(&o)
	}

	vals := make([]float64, len(values))
	copy(vals, values)
	for i, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("axis %q: coordinate %d is not finite", name, i)
		}
		if i > 0 && v < vals[i-1] {
			return nil, fmt.Errorf("axis %q: coordinates must be non-decreasing (index %d: %v < %v)",
				name, i, v, vals[i-1])
		}
	}

	ax := &Axis{
		name:     name,
		values:   vals,
		min:      vals[0],
		max:      vals[len(vals)-1],
		temporal: o.temporal,
	}
	if o.hasRange {
		if math.IsNaN(o.min) || math.IsNaN(o.max) || o.min > o.max {
			return nil, fmt.Errorf("axis %q: invalid declared range [%v, %v]", name, o.min, o.max)
		}
		ax.min, ax.max = o.min, o.max
	}
	if ax.temporal {
		ax.timeUnits = o.timeUnits
		if ax.timeUnits == "" {
			ax.timeUnits = DefaultTimeUnits
		}
		if _, err := timeconv.ParseUnits(ax.timeUnits); err != nil {
			return nil, fmt.Errorf("axis %q: %w", name, err)
		}
	}
	return ax, nil
}

func (a *Axis) Name() string { return a.name }

func (a *Axis) Len() int { return len(a.values) }

// Value returns the coordinate at index i.
func (a *Axis) Value(i int) float64 { return a.values[i] }

// Values returns a copy of the coordinates.
func (a *Axis) Values() []float64 {
	out := make([]float64, len(a.values))
	copy(out, a.values)
	return out
}

func (a *Axis) Min() float64 { return a.min }

func (a *Axis) Max() float64 { return a.max }

func (a *Axis) Temporal() bool { return a.temporal }

// TimeUnits is empty for non-temporal axes.
func (a *Axis) TimeUnits() string { return a.timeUnits }

func (a *Axis) LastIndex() int { return len(a.values) - 1 }

// Last is the last coordinate value.
func (a *Axis) Last() float64 { return a.values[len(a.values)-1] }

// AxisSet is the ordered collection of a dataset's axes. Positional subset
// arguments are matched against the declared order.
type AxisSet struct {
	axes  []*Axis
	index map[string]int
}

func NewAxisSet(axes ...*Axis) (*AxisSet, error) {
	s := &AxisSet{
		axes:  make([]*Axis, 0, len(axes)),
		index: make(map[string]int, len(axes)),
	}
	for i, ax := range axes {
		if ax == nil {
			return nil, fmt.Errorf("axis %d is nil", i)
		}
		if _, dup := s.index[ax.name]; dup {
			return nil, fmt.Errorf("duplicate axis name %q", ax.name)
		}
		s.index[ax.name] = len(s.axes)
		s.axes = append(s.axes, ax)
	}
	return s, nil
}

// Len is the declared dimensionality.
func (s *AxisSet) Len() int { return len(s.axes) }

func (s *AxisSet) At(i int) *Axis { return s.axes[i] }

func (s *AxisSet) Lookup(name string) (*Axis, bool) {
	i, ok := s.index[name]
	if !ok {
		return nil, false
	}
	return s.axes[i], true
}

func (s *AxisSet) Position(name string) (int, bool) {
	i, ok := s.index[name]
	return i, ok
}

func (s *AxisSet) Names() []string {
	out := make([]string, len(s.axes))
	for i, ax := range s.axes {
		out[i] = ax.name
	}
	return out
}

// Time returns the first temporal axis.
func (s *AxisSet) Time() (*Axis, bool) {
	for _, ax := range s.axes {
		if ax.temporal {
			return ax, true
		}
	}
	return nil, false
}
