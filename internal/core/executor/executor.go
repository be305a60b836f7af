// Package executor runs resolve, reload and describe requests against the
// axis catalog, consulting the query cache on the way.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mohammed-shakir/griddap-subset/internal/axisstore"
	"github.com/mohammed-shakir/griddap-subset/internal/cache"
	"github.com/mohammed-shakir/griddap-subset/internal/cache/keys"
	"github.com/mohammed-shakir/griddap-subset/internal/core/dap"
	"github.com/mohammed-shakir/griddap-subset/internal/core/model"
	"github.com/mohammed-shakir/griddap-subset/internal/core/observability"
	"github.com/mohammed-shakir/griddap-subset/internal/logger"
	"github.com/mohammed-shakir/griddap-subset/internal/subset"
)

type Interface interface {
	Resolve(ctx context.Context, req model.ResolveRequest) (model.ResolveResponse, error)
	Reload(ctx context.Context, dataset, trigger string) (model.ReloadResponse, error)
	Forget(ctx context.Context, dataset string) (int, error)
	Axes(ctx context.Context, dataset string) (model.AxesResponse, error)
	Datasets(ctx context.Context) []string
}

type Option func(*Executor)

// WithTTL sets the cache TTL per dataset.
func WithTTL(fn func(dataset string) time.Duration) Option {
	return func(e *Executor) { e.ttl = fn }
}

// WithCacheTimeout bounds every cache round trip.
func WithCacheTimeout(d time.Duration) Option {
	return func(e *Executor) { e.opTimeout = d }
}

// WithReloadHook runs fn after every successful Reload.
func WithReloadHook(fn func(ctx context.Context, resp model.ReloadResponse, trigger string)) Option {
	return func(e *Executor) { e.onReload = fn }
}

type Executor struct {
	logger    *slog.Logger
	catalog   *axisstore.Catalog
	resolver  *subset.Resolver
	cache     cache.Interface
	ttl       func(string) time.Duration
	opTimeout time.Duration
	onReload  func(context.Context, model.ReloadResponse, string)
	startNow  func() time.Time // for tests
}

func New(l *slog.Logger, catalog *axisstore.Catalog, r *subset.Resolver, c cache.Interface, opts ...Option) *Executor {
	if l == nil {
		l = slog.New(slog.DiscardHandler)
	}
	if r == nil {
		r = subset.New(nil)
	}
	if c == nil {
		c = cache.Nop{}
	}
	e := &Executor{
		logger:    l,
		catalog:   catalog,
		resolver:  r,
		cache:     c,
		ttl:       func(string) time.Duration { return 10 * time.Minute },
		opTimeout: 250 * time.Millisecond,
		startNow:  time.Now,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Resolve renders every expression of req. Cached expressions skip
// resolution; the rest resolve together so the first failure in request
// order is the one reported.
func (e *Executor) Resolve(ctx context.Context, req model.ResolveRequest) (model.ResolveResponse, error) {
	start := e.startNow()
	resp, err := e.resolve(ctx, req)
	if !errors.Is(err, axisstore.ErrUnknownDataset) {
		observability.ObserveResolve(err, time.Since(start).Seconds())
	}
	return resp, err
}

func (e *Executor) resolve(ctx context.Context, req model.ResolveRequest) (model.ResolveResponse, error) {
	if len(req.Expressions) == 0 {
		return model.ResolveResponse{}, &model.MalformedExpressionError{Pos: -1, Reason: "no expressions"}
	}
	snap, err := e.catalog.Get(ctx, req.Dataset)
	if err != nil {
		return model.ResolveResponse{}, err
	}

	ks := make([]string, len(req.Expressions))
	for i, expr := range req.Expressions {
		ks[i] = keys.Key(req.Dataset, snap.Fingerprint, expr)
	}
	found := e.lookup(ctx, ks)

	queries := make([]string, len(req.Expressions))
	var missIdx []int
	var missExprs []string
	for i, k := range ks {
		if v, ok := found[k]; ok {
			queries[i] = string(v)
			observability.IncCacheHit()
			continue
		}
		observability.IncCacheMiss()
		missIdx = append(missIdx, i)
		missExprs = append(missExprs, req.Expressions[i])
	}

	if len(missExprs) > 0 {
		res, err := e.resolver.Resolve(snap.Axes, missExprs...)
		if err != nil {
			return model.ResolveResponse{}, err
		}
		rendered, err := res.Queries(snap.Axes)
		if err != nil {
			return model.ResolveResponse{}, fmt.Errorf("render %s: %w", req.Dataset, err)
		}
		fill := make(map[string][]byte, len(rendered))
		for j, q := range rendered {
			queries[missIdx[j]] = q
			fill[ks[missIdx[j]]] = []byte(q)
		}
		e.store(ctx, req.Dataset, fill)
	}

	cached := len(req.Expressions) - len(missExprs)
	e.logger.DebugContext(logger.WithCacheState(ctx, cacheState(cached, len(req.Expressions))),
		"expressions resolved", "count", len(req.Expressions), "cached", cached, "revision", snap.Revision)

	return model.ResolveResponse{
		Dataset:  req.Dataset,
		Revision: snap.Revision,
		Queries:  queries,
		Query:    dap.Join(queries),
		Cached:   cached,
	}, nil
}

func cacheState(cached, total int) string {
	switch cached {
	case 0:
		return "miss"
	case total:
		return "hit"
	default:
		return "partial"
	}
}

// lookup treats cache failures as misses.
func (e *Executor) lookup(ctx context.Context, ks []string) map[string][]byte {
	cctx, cancel := context.WithTimeout(ctx, e.opTimeout)
	defer cancel()
	found, err := e.cache.MGet(cctx, ks)
	if err != nil {
		observability.IncCacheError()
		e.logger.WarnContext(ctx, "cache lookup failed", "err", err)
		return nil
	}
	return found
}

func (e *Executor) store(ctx context.Context, dataset string, kv map[string][]byte) {
	cctx, cancel := context.WithTimeout(ctx, e.opTimeout)
	defer cancel()
	if err := e.cache.MSetWithTTL(cctx, kv, e.ttl(dataset)); err != nil {
		e.logger.WarnContext(ctx, "cache fill failed", "err", err, "keys", len(kv))
	}
}

// Reload loads the dataset's axes again and drops its cached queries.
func (e *Executor) Reload(ctx context.Context, dataset, trigger string) (model.ReloadResponse, error) {
	ctx = logger.WithDataset(ctx, dataset)
	snap, err := e.catalog.Reload(ctx, dataset, trigger)
	if err != nil {
		return model.ReloadResponse{}, err
	}
	n, err := e.cache.Purge(ctx, keys.DatasetPrefix(dataset))
	if err != nil {
		// stale entries carry the old fingerprint and are never read again
		e.logger.WarnContext(ctx, "cache purge failed", "err", err)
	}
	e.logger.InfoContext(ctx, "dataset reloaded", "revision", snap.Revision, "purged", n, "trigger", trigger)
	resp := model.ReloadResponse{Dataset: dataset, Revision: snap.Revision, Purged: n}
	if e.onReload != nil {
		e.onReload(ctx, resp, trigger)
	}
	return resp, nil
}

// Forget drops the dataset's snapshot and cached queries.
func (e *Executor) Forget(ctx context.Context, dataset string) (int, error) {
	e.catalog.Forget(dataset)
	n, err := e.cache.Purge(ctx, keys.DatasetPrefix(dataset))
	if err != nil {
		return n, fmt.Errorf("purge %s: %w", dataset, err)
	}
	return n, nil
}

func (e *Executor) Axes(ctx context.Context, dataset string) (model.AxesResponse, error) {
	snap, err := e.catalog.Get(ctx, dataset)
	if err != nil {
		return model.AxesResponse{}, err
	}
	return model.AxesResponse{
		Dataset:  dataset,
		Revision: snap.Revision,
		Axes:     model.Describe(snap.Axes),
	}, nil
}

// Datasets lists the datasets with a loaded snapshot.
func (e *Executor) Datasets(context.Context) []string {
	return e.catalog.Datasets()
}
