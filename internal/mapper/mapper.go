// Package mapper converts coordinate-domain values into axis indexes.
package mapper

import (
	"github.com/mohammed-shakir/griddap-subset/internal/core/model"
)

type Interface interface {
	// ClosestIndex returns the index of the coordinate nearest to v, or a
	// *model.BoundsError when v is outside the axis's declared range.
	ClosestIndex(ax *model.Axis, v float64) (int, error)
}
