package subset

import (
	"testing"

	"github.com/mohammed-shakir/griddap-subset/internal/core/model"
)

const (
	t19990416 = 924220800.0
	t20090616 = 1245110400.0
)

var hycomDepths = []float64{
	0, 5, 10, 15, 20, 25, 30, 40, 50, 60, 70, 80, 90, 100, 125, 150,
	200, 250, 300, 400, 500, 600, 700, 800, 900, 1000, 1100, 1200, 1300, 1400, 1500, 1750,
	2000, 2500, 3000, 3500, 4000, 4500, 5000, 5500,
}

func mustAxis(t *testing.T, name string, vals []float64, opts ...model.AxisOption) *model.Axis {
	t.Helper()
	ax, err := model.NewAxis(name, vals, opts...)
	if err != nil {
		t.Fatalf("NewAxis(%s): %v", name, err)
	}
	return ax
}

func linspace(start, step float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}

// currentsAxes mimics a surface current product: 201 time steps ending on
// 2009-06-16 with 1999-04-16 at index 78, one depth level, a 0.25 degree
// latitude axis of 600 cells and a 0.25 degree longitude axis of 1440 cells.
func currentsAxes(t *testing.T) *model.AxisSet {
	t.Helper()
	step := (t20090616 - t19990416) / 122
	times := make([]float64, 201)
	for i := range times {
		times[i] = t19990416 + float64(i-78)*step
	}
	times[78], times[200] = t19990416, t20090616

	set, err := model.NewAxisSet(
		mustAxis(t, "time", times, model.WithTime("")),
		mustAxis(t, "depth", []float64{0}),
		mustAxis(t, "latitude", linspace(-74.875, 0.25, 600)),
		mustAxis(t, "longitude", linspace(0.125, 0.25, 1440)),
	)
	if err != nil {
		t.Fatalf("NewAxisSet: %v", err)
	}
	return set
}

// hycomAxes has the dimension lengths of the HYCOM global analysis.
func hycomAxes(t *testing.T) *model.AxisSet {
	t.Helper()
	set, err := model.NewAxisSet(
		mustAxis(t, "time", linspace(1.3e9, 86400, 1977), model.WithTime("")),
		mustAxis(t, "depth", hycomDepths),
		mustAxis(t, "latitude", linspace(-80, 0.08, 2001)),
		mustAxis(t, "longitude", linspace(-180, 0.08, 541)),
	)
	if err != nil {
		t.Fatalf("NewAxisSet: %v", err)
	}
	return set
}
