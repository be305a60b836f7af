// Package invalidation defines the reload events that tell subset service
// instances a dataset's axes changed.
package invalidation

import (
	"fmt"
	"time"

	"github.com/mohammed-shakir/griddap-subset/internal/axisstore"
)

const (
	OpReload = "reload"
	OpDrop   = "drop"
)

type Event struct {
	Version int       `json:"version"`
	Op      string    `json:"op"`
	Dataset string    `json:"dataset"`
	TS      time.Time `json:"ts"`
	// Revision orders events of one dataset; zero disables deduplication.
	Revision uint64 `json:"revision,omitempty"`
	Source   string `json:"source,omitempty"`
}

func (e Event) Validate() error {
	if e.Version != 1 {
		return fmt.Errorf("version must be 1")
	}
	switch e.Op {
	case OpReload, OpDrop:
	default:
		return fmt.Errorf("op must be reload|drop")
	}
	if !axisstore.ValidDatasetID(e.Dataset) {
		return fmt.Errorf("invalid dataset %q", e.Dataset)
	}
	if e.TS.IsZero() {
		return fmt.Errorf("ts is required")
	}
	return nil
}
