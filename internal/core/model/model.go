// Package model defines core domain types shared across the service.
package model

import (
	"fmt"

	"github.com/mohammed-shakir/griddap-subset/internal/core/timeconv"
)

// DefaultTimeUnits is the numeric encoding griddap servers use for time axes.
const DefaultTimeUnits = timeconv.DefaultUnits

// ResolveRequest is one validated call into the resolution engine.
type ResolveRequest struct {
	Dataset     string
	Expressions []string
}

// AxisInfo summarizes one axis for listings
type AxisInfo struct {
	Name      string  `json:"name"`
	Size      int     `json:"size"`
	Min       float64 `json:"min"`
	Max       float64 `json:"max"`
	Temporal  bool    `json:"temporal,omitempty"`
	TimeUnits string  `json:"time_units,omitempty"`
}

// Describe lists the axes of a set in declared order.
func Describe(axes *AxisSet) []AxisInfo {
	if axes == nil {
		return nil
	}
	out := make([]AxisInfo, 0, axes.Len())
	for i := range axes.Len() {
		ax := axes.At(i)
		info := AxisInfo{Name: ax.Name(), Size: ax.Len(), Min: ax.Min(), Max: ax.Max(), Temporal: ax.Temporal()}
		if ax.Temporal() {
			info.TimeUnits = ax.TimeUnits()
		}
		out = append(out, info)
	}
	return out
}

// String representation used in logs
func (r ResolveRequest) String() string {
	return fmt.Sprintf("%s%v", r.Dataset, r.Expressions)
}

// ResolveResponse is the wire form of a successful resolution.
type ResolveResponse struct {
	Dataset  string   `json:"dataset"`
	Revision uint64   `json:"revision"`
	Queries  []string `json:"queries"`
	Query    string   `json:"query"`
	Cached   int      `json:"cached"`
}

type ReloadResponse struct {
	Dataset  string `json:"dataset"`
	Revision uint64 `json:"revision"`
	Purged   int    `json:"purged"`
}

type AxesResponse struct {
	Dataset  string     `json:"dataset"`
	Revision uint64     `json:"revision"`
	Axes     []AxisInfo `json:"axes"`
}
