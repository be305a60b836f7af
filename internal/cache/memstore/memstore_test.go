package memstore

import (
	"context"
	"testing"
	"time"
)

func TestSetMGetDel(t *testing.T) {
	s := New(16, time.Minute)
	ctx := t.Context()

	if err := s.MSetWithTTL(ctx, map[string][]byte{"a": []byte("1"), "b": []byte("2")}, 0); err != nil {
		t.Fatalf("MSetWithTTL: %v", err)
	}
	got, err := s.MGet(ctx, []string{"a", "b", "missing"})
	if err != nil {
		t.Fatalf("MGet: %v", err)
	}
	if len(got) != 2 || string(got["a"]) != "1" || string(got["b"]) != "2" {
		t.Fatalf("unexpected values: %v", got)
	}
	if err := s.Del(ctx, "a"); err != nil {
		t.Fatalf("Del: %v", err)
	}
	if got, _ := s.MGet(ctx, []string{"a"}); len(got) != 0 {
		t.Fatalf("a should be gone: %v", got)
	}
}

func TestPerEntryTTL(t *testing.T) {
	s := New(16, time.Hour)
	now := time.Unix(1_700_000_000, 0)
	s.now = func() time.Time { return now }

	ctx := t.Context()
	_ = s.MSetWithTTL(ctx, map[string][]byte{"short": []byte("x")}, time.Second)
	_ = s.MSetWithTTL(ctx, map[string][]byte{"long": []byte("y")}, time.Minute)

	now = now.Add(2 * time.Second)
	got, _ := s.MGet(ctx, []string{"short", "long"})
	if _, ok := got["short"]; ok {
		t.Fatalf("short entry should have expired")
	}
	if string(got["long"]) != "y" {
		t.Fatalf("long entry missing: %v", got)
	}
	if s.Len() != 1 {
		t.Fatalf("expired entry should be evicted, len=%d", s.Len())
	}
}

func TestSizeBound(t *testing.T) {
	s := New(2, time.Minute)
	ctx := t.Context()
	for _, k := range []string{"a", "b", "c"} {
		_ = s.MSetWithTTL(ctx, map[string][]byte{k: []byte(k)}, 0)
	}
	got, _ := s.MGet(ctx, []string{"a", "b", "c"})
	if _, ok := got["a"]; ok || len(got) != 2 {
		t.Fatalf("least recently used entry should be evicted: %v", got)
	}
}

func TestPurgePrefix(t *testing.T) {
	s := New(16, time.Minute)
	ctx := t.Context()
	_ = s.MSetWithTTL(ctx, map[string][]byte{
		"subset:hycom:1": nil, "subset:hycom:2": nil, "subset:osc:1": nil,
	}, 0)
	n, err := s.Purge(ctx, "subset:hycom:")
	if err != nil || n != 2 {
		t.Fatalf("Purge=%d,%v want 2", n, err)
	}
	if s.Len() != 1 {
		t.Fatalf("len=%d want 1", s.Len())
	}
}

func TestCanceledContext(t *testing.T) {
	s := New(4, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.MGet(ctx, []string{"a"}); err == nil {
		t.Fatalf("expected error on MGet with canceled context")
	}
	if err := s.MSetWithTTL(ctx, map[string][]byte{"a": nil}, 0); err == nil {
		t.Fatalf("expected error on MSetWithTTL with canceled context")
	}
}
