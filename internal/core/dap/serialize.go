// Package dap renders resolved subsets in griddap query syntax.
package dap

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mohammed-shakir/griddap-subset/internal/core/model"
)

// Serialize renders variable followed by one [start:stop] or
// [start:stride:stop] group per axis. Stops are inclusive and negative
// indices are normalized first. A zero subset renders as the bare name.
func Serialize(variable string, axes *model.AxisSet, s model.Subset) (string, error) {
	if variable == "" {
		return "", fmt.Errorf("serialize: empty variable name")
	}
	if s.IsZero() {
		return variable, nil
	}
	if axes == nil || s.Len() != axes.Len() {
		return "", fmt.Errorf("serialize %s: subset has %d ranges for %d axes", variable, s.Len(), axesLen(axes))
	}

	var b strings.Builder
	b.WriteString(variable)
	for i := range s.Len() {
		ax := axes.At(i)
		if s.Name(i) != ax.Name() {
			return "", fmt.Errorf("serialize %s: range %d is for axis %q, want %q", variable, i, s.Name(i), ax.Name())
		}
		start, stop := s.Range(i).Normalize(ax.Len())
		b.WriteByte('[')
		b.WriteString(strconv.Itoa(start))
		b.WriteByte(':')
		if step := s.Range(i).Step; step > 0 {
			b.WriteString(strconv.Itoa(step))
			b.WriteByte(':')
		}
		b.WriteString(strconv.Itoa(stop - 1))
		b.WriteByte(']')
	}
	return b.String(), nil
}

func axesLen(axes *model.AxisSet) int {
	if axes == nil {
		return 0
	}
	return axes.Len()
}

// Join combines rendered variables into one query string.
func Join(queries []string) string {
	return strings.Join(queries, ",")
}
