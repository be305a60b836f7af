package nearest

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/mohammed-shakir/griddap-subset/internal/core/model"
)

func mustAxis(t *testing.T, name string, vals []float64, opts ...model.AxisOption) *model.Axis {
	t.Helper()
	ax, err := model.NewAxis(name, vals, opts...)
	if err != nil {
		t.Fatalf("NewAxis: %v", err)
	}
	return ax
}

// hycom depth levels
var depths = []float64{
	0, 5, 10, 15, 20, 25, 30, 40, 50, 60, 70, 80, 90, 100, 125, 150,
	200, 250, 300, 400, 500, 600, 700, 800, 900, 1000, 1100, 1200, 1300, 1400, 1500, 1750,
	2000, 2500, 3000, 3500, 4000, 4500, 5000, 5500,
}

func TestClosestIndex_DepthEndpointsAndOutside(t *testing.T) {
	m := New()
	ax := mustAxis(t, "depth", depths)

	if i, err := m.ClosestIndex(ax, 0); err != nil || i != 0 {
		t.Fatalf("closest(0)=%d,%v want 0", i, err)
	}
	if i, err := m.ClosestIndex(ax, 5500); err != nil || i != 39 {
		t.Fatalf("closest(5500)=%d,%v want 39", i, err)
	}
	_, err := m.ClosestIndex(ax, 5501)
	var be *model.BoundsError
	if !errors.As(err, &be) {
		t.Fatalf("expected BoundsError, got %v", err)
	}
	if be.Value != 5501 || be.Min != 0 || be.Max != 5500 || be.Axis != "depth" {
		t.Fatalf("unexpected payload: %+v", be)
	}
	if !errors.Is(err, model.ErrOutOfRange) {
		t.Fatalf("BoundsError must match ErrOutOfRange")
	}
	if _, err := m.ClosestIndex(ax, math.NaN()); err == nil {
		t.Fatalf("expected error for NaN")
	}
}

func TestClosestIndex_TiesResolveLow(t *testing.T) {
	m := New()
	ax := mustAxis(t, "x", []float64{0, 1, 2, 3})
	if i, _ := m.ClosestIndex(ax, 1.5); i != 1 {
		t.Fatalf("tie 1.5 -> %d want 1", i)
	}
	if i, _ := m.ClosestIndex(ax, 1.5000001); i != 2 {
		t.Fatalf("1.5000001 -> %d want 2", i)
	}

	dup := mustAxis(t, "dup", []float64{0, 1, 1, 1, 2})
	if i, _ := m.ClosestIndex(dup, 1); i != 1 {
		t.Fatalf("duplicate coordinates -> %d want first match 1", i)
	}
}

func TestClosestIndex_DeclaredRangeWiderThanCoordinates(t *testing.T) {
	m := New()
	ax := mustAxis(t, "lat", []float64{10, 20, 30}, model.WithRange(5, 35))
	if i, err := m.ClosestIndex(ax, 6); err != nil || i != 0 {
		t.Fatalf("closest(6)=%d,%v want 0", i, err)
	}
	if i, err := m.ClosestIndex(ax, 34); err != nil || i != 2 {
		t.Fatalf("closest(34)=%d,%v want 2", i, err)
	}
	if _, err := m.ClosestIndex(ax, 4.9); err == nil {
		t.Fatalf("expected bounds error below declared min")
	}
}

func TestClosestIndex_MatchesLinearScan(t *testing.T) {
	m := New()
	rng := rand.New(rand.NewSource(7))
	vals := make([]float64, 200)
	acc := -50.0
	for i := range vals {
		acc += rng.Float64() * 3
		vals[i] = acc
	}
	ax := mustAxis(t, "x", vals)

	for range 2000 {
		v := ax.Min() + rng.Float64()*(ax.Max()-ax.Min())
		got, err := m.ClosestIndex(ax, v)
		if err != nil {
			t.Fatalf("closest(%v): %v", v, err)
		}
		want := 0
		for i := range vals {
			if math.Abs(vals[i]-v) < math.Abs(vals[want]-v) {
				want = i
			}
		}
		if got != want {
			t.Fatalf("closest(%v)=%d want %d", v, got, want)
		}
	}
}
