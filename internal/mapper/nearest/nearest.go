// Package nearest resolves coordinate values to the index of the closest
// coordinate of a sorted axis.
package nearest

import (
	"fmt"
	"math"
	"sort"

	"github.com/mohammed-shakir/griddap-subset/internal/core/model"
)

type Mapper struct{}

func New() *Mapper { return &Mapper{} }

func (m *Mapper) ClosestIndex(ax *model.Axis, v float64) (int, error) {
	if ax == nil {
		return 0, fmt.Errorf("closest index: nil axis")
	}
	// never clamp: a value outside the declared range selects nothing
	if math.IsNaN(v) || v < ax.Min() || v > ax.Max() {
		return 0, &model.BoundsError{Axis: ax.Name(), Value: v, Min: ax.Min(), Max: ax.Max()}
	}

	n := ax.Len()
	// first index whose coordinate is >= v
	hi := sort.Search(n, func(i int) bool { return ax.Value(i) >= v })
	switch {
	case hi == 0:
		return 0, nil
	case hi == n:
		return n - 1, nil
	}
	lo := hi - 1
	// equidistant neighbors resolve to the lower index
	if v-ax.Value(lo) <= ax.Value(hi)-v {
		return lo, nil
	}
	return hi, nil
}
