package main

import (
	"context"
	"fmt"
	"time"

	"github.com/mohammed-shakir/griddap-subset/internal/cache"
	"github.com/mohammed-shakir/griddap-subset/internal/cache/memstore"
	"github.com/mohammed-shakir/griddap-subset/internal/cache/redisstore"
	"github.com/mohammed-shakir/griddap-subset/internal/core/config"
	"github.com/mohammed-shakir/griddap-subset/internal/core/health"
)

// buildCache returns the query cache for the configured driver, the
// readiness checks it contributes and a close func.
func buildCache(ctx context.Context, cc config.CacheCfg) (cache.Interface, map[string]health.Check, func(), error) {
	checks := map[string]health.Check{}
	switch cc.Driver {
	case "none":
		return cache.Nop{}, checks, func() {}, nil
	case "memory":
		return memstore.New(cc.Size, maxTTL(cc)), checks, func() {}, nil
	case "redis":
		dctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		rc, err := redisstore.New(dctx, cc.RedisAddr,
			redisstore.WithPassword(cc.RedisPass),
			redisstore.WithDB(cc.RedisDB),
		)
		if err != nil {
			return nil, nil, nil, err
		}
		checks["redis"] = rc.Ping
		return rc, checks, func() { _ = rc.Close() }, nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown cache driver %q", cc.Driver)
	}
}

func maxTTL(cc config.CacheCfg) time.Duration {
	m := cc.TTL
	for _, d := range cc.TTLOvr {
		m = max(m, d)
	}
	return m
}
