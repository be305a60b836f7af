// Package cache stores rendered wire queries keyed by dataset content and
// expression, so repeated resolutions skip parsing and lookups.
package cache

import (
	"context"
	"time"
)

type Interface interface {
	// MGet returns the values found; missing keys are absent from the map.
	MGet(ctx context.Context, keys []string) (map[string][]byte, error)
	MSetWithTTL(ctx context.Context, kv map[string][]byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	// Purge removes every key starting with prefix and returns the count.
	Purge(ctx context.Context, prefix string) (int, error)
}

// Nop is a cache that stores nothing.
type Nop struct{}

func (Nop) MGet(context.Context, []string) (map[string][]byte, error) {
	return map[string][]byte{}, nil
}

func (Nop) MSetWithTTL(context.Context, map[string][]byte, time.Duration) error { return nil }

func (Nop) Del(context.Context, ...string) error { return nil }

func (Nop) Purge(context.Context, string) (int, error) { return 0, nil }
