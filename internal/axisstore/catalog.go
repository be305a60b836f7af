package axisstore

import (
	"context"
	"encoding/binary"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/mohammed-shakir/griddap-subset/internal/core/model"
	"github.com/mohammed-shakir/griddap-subset/internal/core/observability"
)

// Snapshot is one immutable generation of a dataset's axes.
type Snapshot struct {
	Dataset  string
	Revision uint64
	// Fingerprint identifies the axis content; equal descriptors loaded by
	// different processes share it.
	Fingerprint uint64
	Axes        *model.AxisSet
	LoadedAt    time.Time
}

// Catalog caches one Snapshot per dataset. Readers always see a complete
// snapshot; Reload installs a new one and never mutates the old.
type Catalog struct {
	provider Provider
	log      *slog.Logger
	now      func() time.Time

	mu    sync.RWMutex
	snaps map[string]*Snapshot
	revs  map[string]uint64
}

func NewCatalog(p Provider, log *slog.Logger) *Catalog {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Catalog{
		provider: p,
		log:      log,
		now:      time.Now,
		snaps:    map[string]*Snapshot{},
		revs:     map[string]uint64{},
	}
}

// Get returns the current snapshot, loading it on first use.
func (c *Catalog) Get(ctx context.Context, dataset string) (*Snapshot, error) {
	c.mu.RLock()
	s, ok := c.snaps[dataset]
	c.mu.RUnlock()
	if ok {
		return s, nil
	}

	axes, err := c.provider.Load(ctx, dataset)
	observability.ObserveAxisReload("lazy", err)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// another caller may have loaded it meanwhile
	if s, ok := c.snaps[dataset]; ok {
		return s, nil
	}
	return c.installLocked(ctx, dataset, axes), nil
}

// Reload loads the dataset again and replaces its snapshot. trigger labels
// the metric ("api", "kafka").
func (c *Catalog) Reload(ctx context.Context, dataset, trigger string) (*Snapshot, error) {
	axes, err := c.provider.Load(ctx, dataset)
	observability.ObserveAxisReload(trigger, err)
	if err != nil {
		c.log.WarnContext(ctx, "axis reload failed", "dataset", dataset, "trigger", trigger, "err", err)
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.installLocked(ctx, dataset, axes), nil
}

func (c *Catalog) installLocked(ctx context.Context, dataset string, axes *model.AxisSet) *Snapshot {
	c.revs[dataset]++
	s := &Snapshot{
		Dataset:     dataset,
		Revision:    c.revs[dataset],
		Fingerprint: Fingerprint(axes),
		Axes:        axes,
		LoadedAt:    c.now(),
	}
	c.snaps[dataset] = s
	c.log.InfoContext(ctx, "axes loaded", "dataset", dataset, "revision", s.Revision, "dims", axes.Len())
	return s
}

// Forget drops the snapshot; the next Get loads it again.
func (c *Catalog) Forget(dataset string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.snaps[dataset]
	delete(c.snaps, dataset)
	return ok
}

// Datasets lists the loaded datasets, sorted.
func (c *Catalog) Datasets() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.snaps))
	for k := range c.snaps {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Fingerprint hashes axis names, units, ranges and coordinates.
func Fingerprint(axes *model.AxisSet) uint64 {
	d := xxhash.New()
	var buf [8]byte
	putf := func(v float64) {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
		_, _ = d.Write(buf[:])
	}
	for i := range axes.Len() {
		ax := axes.At(i)
		_, _ = d.WriteString(ax.Name())
		_, _ = d.WriteString("\x00")
		_, _ = d.WriteString(ax.TimeUnits())
		_, _ = d.WriteString("\x00")
		putf(ax.Min())
		putf(ax.Max())
		for j := range ax.Len() {
			putf(ax.Value(j))
		}
	}
	return d.Sum64()
}
