// Package memstore is an in-process cache backed by an expirable LRU.
package memstore

import (
	"context"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/mohammed-shakir/griddap-subset/internal/core/observability"
)

type entry struct {
	val      []byte
	deadline time.Time
}

// Store keeps at most size entries. maxTTL bounds every entry; a shorter
// ttl passed to MSetWithTTL is honored per entry.
type Store struct {
	lru *expirable.LRU[string, entry]
	now func() time.Time
}

func New(size int, maxTTL time.Duration) *Store {
	return &Store{
		lru: expirable.NewLRU[string, entry](size, nil, maxTTL),
		now: time.Now,
	}
}

func (s *Store) MGet(ctx context.Context, keys []string) (map[string][]byte, error) {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		observability.ObserveCacheOp("mget", err, time.Since(start).Seconds())
		return nil, err
	}
	now := s.now()
	out := make(map[string][]byte, len(keys))
	for _, k := range keys {
		e, ok := s.lru.Get(k)
		if !ok {
			continue
		}
		if !e.deadline.IsZero() && !now.Before(e.deadline) {
			s.lru.Remove(k)
			continue
		}
		out[k] = e.val
	}
	observability.ObserveCacheOp("mget", nil, time.Since(start).Seconds())
	return out, nil
}

func (s *Store) MSetWithTTL(ctx context.Context, kv map[string][]byte, ttl time.Duration) error {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		observability.ObserveCacheOp("mset", err, time.Since(start).Seconds())
		return err
	}
	var deadline time.Time
	if ttl > 0 {
		deadline = s.now().Add(ttl)
	}
	for k, v := range kv {
		cp := make([]byte, len(v))
		copy(cp, v)
		s.lru.Add(k, entry{val: cp, deadline: deadline})
	}
	observability.ObserveCacheOp("mset", nil, time.Since(start).Seconds())
	return nil
}

func (s *Store) Del(ctx context.Context, keys ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, k := range keys {
		s.lru.Remove(k)
	}
	observability.ObserveCacheOp("del", nil, 0)
	return nil
}

func (s *Store) Purge(ctx context.Context, prefix string) (int, error) {
	var doomed []string
	for _, k := range s.lru.Keys() {
		if strings.HasPrefix(k, prefix) {
			doomed = append(doomed, k)
		}
	}
	if err := s.Del(ctx, doomed...); err != nil {
		return 0, err
	}
	return len(doomed), nil
}

func (s *Store) Len() int { return s.lru.Len() }
