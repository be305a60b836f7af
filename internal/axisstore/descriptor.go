// Package axisstore loads dataset axis descriptors and keeps the current
// AxisSet snapshot of every dataset the service has seen.
package axisstore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mohammed-shakir/griddap-subset/internal/core/model"
	"github.com/mohammed-shakir/griddap-subset/internal/core/timeconv"
)

// descriptor is the on-disk form of a dataset's dimensions, in declared
// order. Values and actual_range entries are numbers, or ISO-8601 strings
// on temporal axes.
type descriptor struct {
	Dimensions []dimension `json:"dimensions"`
}

type dimension struct {
	Name        string            `json:"name"`
	Values      []json.RawMessage `json:"values"`
	ActualRange []json.RawMessage `json:"actual_range,omitempty"`
	TimeUnits   string            `json:"time_units,omitempty"`
	Temporal    *bool             `json:"temporal,omitempty"`
}

// Decode reads a descriptor and builds its AxisSet.
func Decode(r io.Reader) (*model.AxisSet, error) {
	var d descriptor
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&d); err != nil {
		return nil, fmt.Errorf("decode axis descriptor: %w", err)
	}
	if len(d.Dimensions) == 0 {
		return nil, fmt.Errorf("axis descriptor has no dimensions")
	}

	axes := make([]*model.Axis, 0, len(d.Dimensions))
	for i, dim := range d.Dimensions {
		ax, err := dim.axis()
		if err != nil {
			return nil, fmt.Errorf("dimension %d (%s): %w", i, dim.Name, err)
		}
		axes = append(axes, ax)
	}
	return model.NewAxisSet(axes...)
}

func (d dimension) temporal() bool {
	if d.Temporal != nil {
		return *d.Temporal
	}
	return strings.EqualFold(d.Name, "time") || d.TimeUnits != ""
}

func (d dimension) axis() (*model.Axis, error) {
	var opts []model.AxisOption
	units := ""
	if d.temporal() {
		units = d.TimeUnits
		if units == "" {
			units = model.DefaultTimeUnits
		}
		opts = append(opts, model.WithTime(units))
	}

	vals := make([]float64, len(d.Values))
	for i, raw := range d.Values {
		v, err := decodeValue(raw, units)
		if err != nil {
			return nil, fmt.Errorf("value %d: %w", i, err)
		}
		vals[i] = v
	}

	switch len(d.ActualRange) {
	case 0:
	case 2:
		lo, err := decodeValue(d.ActualRange[0], units)
		if err != nil {
			return nil, fmt.Errorf("actual_range: %w", err)
		}
		hi, err := decodeValue(d.ActualRange[1], units)
		if err != nil {
			return nil, fmt.Errorf("actual_range: %w", err)
		}
		opts = append(opts, model.WithRange(lo, hi))
	default:
		return nil, fmt.Errorf("actual_range needs 2 entries, got %d", len(d.ActualRange))
	}
	return model.NewAxis(d.Name, vals, opts...)
}

// decodeValue accepts a JSON number, or a string holding a number or (when
// units is set) an ISO-8601 timestamp.
func decodeValue(raw json.RawMessage, units string) (float64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '"' {
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return 0, fmt.Errorf("want a number or string, got %s", raw)
		}
		return n.Float64()
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, err
	}
	s = strings.TrimSpace(s)
	if units != "" && timeconv.IsISO8601(s) {
		return timeconv.Encode(s, units)
	}
	return strconv.ParseFloat(s, 64)
}
