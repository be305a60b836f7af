package kafkaconsumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/IBM/sarama"

	"github.com/mohammed-shakir/griddap-subset/internal/axisstore"
	"github.com/mohammed-shakir/griddap-subset/internal/core/config"
	"github.com/mohammed-shakir/griddap-subset/internal/core/model"
	"github.com/mohammed-shakir/griddap-subset/internal/invalidation"
)

type fakeTarget struct {
	mu        sync.Mutex
	failFirst atomic.Bool
	reloads   []string
	forgets   []string
}

func (f *fakeTarget) Reload(_ context.Context, ds, trigger string) (model.ReloadResponse, error) {
	if ds == "missing" {
		return model.ReloadResponse{}, fmt.Errorf("%w: %s", axisstore.ErrUnknownDataset, ds)
	}
	if f.failFirst.Load() {
		f.failFirst.Store(false)
		return model.ReloadResponse{}, errors.New("read descriptor: i/o timeout")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reloads = append(f.reloads, ds+"/"+trigger)
	return model.ReloadResponse{Dataset: ds, Revision: uint64(len(f.reloads))}, nil
}

func (f *fakeTarget) Forget(_ context.Context, ds string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.forgets = append(f.forgets, ds)
	return 2, nil
}

func (f *fakeTarget) reloadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.reloads)
}

type sess struct {
	ctx    context.Context
	claims map[string][]int32
	mu     sync.Mutex
	marked []int64
}

func (s *sess) Claims() map[string][]int32 { return s.claims }
func (s *sess) MemberID() string           { return "" }
func (s *sess) GenerationID() int32        { return 0 }
func (s *sess) MarkMessage(m *sarama.ConsumerMessage, _ string) {
	s.mu.Lock()
	s.marked = append(s.marked, m.Offset)
	s.mu.Unlock()
}
func (s *sess) ResetOffset(_ string, _ int32, _ int64, _ string) {}
func (s *sess) MarkOffset(_ string, _ int32, _ int64, _ string)  {}
func (s *sess) Context() context.Context                         { return s.ctx }
func (s *sess) Errors() <-chan error                             { return nil }
func (s *sess) Commit()                                          {}

type claim struct {
	part int32
	msgs chan *sarama.ConsumerMessage
}

func (c *claim) Topic() string                            { return "griddap-axes" }
func (c *claim) Partition() int32                         { return c.part }
func (c *claim) InitialOffset() int64                     { return 0 }
func (c *claim) HighWaterMarkOffset() int64               { return 0 }
func (c *claim) Messages() <-chan *sarama.ConsumerMessage { return c.msgs }

func eventBytes(op, ds string, rev uint64) []byte {
	ev := invalidation.Event{Version: 1, Op: op, Dataset: ds, TS: time.Now().UTC(), Revision: rev}
	b, _ := json.Marshal(ev)
	return b
}

func msgAt(off int64, v []byte) *sarama.ConsumerMessage {
	return &sarama.ConsumerMessage{Topic: "griddap-axes", Partition: 0, Offset: off, Value: v}
}

func newConsumerForTest(tg Target) *Consumer {
	cfg := Config{Brokers: []string{"x"}, Topic: "griddap-axes", GroupID: "g", DedupeSize: 16}
	return New(cfg, tg, Options{Logger: slog.New(slog.DiscardHandler)})
}

func consume(t *testing.T, c *Consumer, s *sess, msgs ...*sarama.ConsumerMessage) error {
	t.Helper()
	ch := make(chan *sarama.ConsumerMessage, len(msgs))
	for _, m := range msgs {
		ch <- m
	}
	close(ch)
	return c.groupHandler().ConsumeClaim(s, &claim{part: 0, msgs: ch})
}

func TestConsumeClaim_AppliesInOrderAndMarks(t *testing.T) {
	tg := &fakeTarget{}
	c := newConsumerForTest(tg)
	s := &sess{ctx: t.Context()}

	err := consume(t, c, s,
		msgAt(10, eventBytes(invalidation.OpReload, "currents", 0)),
		msgAt(11, eventBytes(invalidation.OpDrop, "hycom", 0)),
		msgAt(12, eventBytes(invalidation.OpReload, "hycom", 0)),
	)
	if err != nil {
		t.Fatalf("ConsumeClaim: %v", err)
	}
	if len(s.marked) != 3 || s.marked[0] != 10 || s.marked[2] != 12 {
		t.Fatalf("marked offsets=%v want [10 11 12]", s.marked)
	}
	if len(tg.reloads) != 2 || tg.reloads[0] != "currents/kafka" || tg.reloads[1] != "hycom/kafka" {
		t.Fatalf("reloads=%v", tg.reloads)
	}
	if len(tg.forgets) != 1 || tg.forgets[0] != "hycom" {
		t.Fatalf("forgets=%v", tg.forgets)
	}
}

func TestProcessOne_SkipsPoisonMessages(t *testing.T) {
	tg := &fakeTarget{}
	c := newConsumerForTest(tg)
	s := &sess{ctx: t.Context()}

	err := consume(t, c, s,
		msgAt(1, []byte("{not json")),
		msgAt(2, eventBytes("rebuild", "currents", 0)),
		msgAt(3, eventBytes(invalidation.OpReload, "missing", 0)),
	)
	if err != nil {
		t.Fatalf("ConsumeClaim: %v", err)
	}
	if len(s.marked) != 3 {
		t.Fatalf("poison messages must be marked, got %v", s.marked)
	}
	if tg.reloadCount() != 0 {
		t.Fatalf("no reload expected, got %v", tg.reloads)
	}
}

func TestRetry_MarkOnlyAfterSuccess(t *testing.T) {
	tg := &fakeTarget{}
	tg.failFirst.Store(true)
	c := newConsumerForTest(tg)

	msg := msgAt(5, eventBytes(invalidation.OpReload, "currents", 7))
	s := &sess{ctx: t.Context()}
	if err := consume(t, c, s, msg); err == nil {
		t.Fatalf("expected error on first attempt")
	}
	if len(s.marked) != 0 {
		t.Fatalf("failed message was marked: %v", s.marked)
	}

	// the failed attempt must not count as applied for deduplication
	if err := consume(t, c, s, msg); err != nil {
		t.Fatalf("second attempt: %v", err)
	}
	if len(s.marked) != 1 || s.marked[0] != 5 || tg.reloadCount() != 1 {
		t.Fatalf("marked=%v reloads=%v", s.marked, tg.reloads)
	}
}

func TestRevisionDedupe_SkipsStaleEvents(t *testing.T) {
	tg := &fakeTarget{}
	c := newConsumerForTest(tg)
	s := &sess{ctx: t.Context()}

	err := consume(t, c, s,
		msgAt(1, eventBytes(invalidation.OpReload, "currents", 3)),
		msgAt(2, eventBytes(invalidation.OpReload, "currents", 3)),
		msgAt(3, eventBytes(invalidation.OpReload, "currents", 2)),
		msgAt(4, eventBytes(invalidation.OpReload, "currents", 4)),
		msgAt(5, eventBytes(invalidation.OpReload, "hycom", 1)),
	)
	if err != nil {
		t.Fatalf("ConsumeClaim: %v", err)
	}
	if tg.reloadCount() != 3 {
		t.Fatalf("reloads=%v want currents twice and hycom once", tg.reloads)
	}
	if len(s.marked) != 5 {
		t.Fatalf("skipped events must still be marked: %v", s.marked)
	}
}

func TestProcessOne_SkipsOwnEvents(t *testing.T) {
	tg := &fakeTarget{}
	c := New(Config{DedupeSize: 4}, tg, Options{Logger: slog.New(slog.DiscardHandler), InstanceID: "subsetd-1"})

	own := invalidation.Event{Version: 1, Op: invalidation.OpReload, Dataset: "currents", TS: time.Now().UTC(), Source: "subsetd-1"}
	peer := own
	peer.Source = "subsetd-2"
	for i, ev := range []invalidation.Event{own, peer} {
		b, _ := json.Marshal(ev)
		if err := c.ProcessOne(t.Context(), msgAt(int64(i), b)); err != nil {
			t.Fatalf("ProcessOne: %v", err)
		}
	}
	if tg.reloadCount() != 1 {
		t.Fatalf("reloads=%v want only the peer event", tg.reloads)
	}
}

func TestReadiness_TracksAssignment(t *testing.T) {
	c := newConsumerForTest(&fakeTarget{})
	if ready, _ := c.Readiness(); ready {
		t.Fatalf("ready before assignment")
	}

	h := c.groupHandler()
	s := &sess{ctx: t.Context(), claims: map[string][]int32{"griddap-axes": {0, 2}}}
	if err := h.Setup(s); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	ready, parts := c.Readiness()
	if !ready || len(parts) != 2 {
		t.Fatalf("ready=%v parts=%v", ready, parts)
	}

	if err := h.Cleanup(s); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if ready, _ := c.Readiness(); ready {
		t.Fatalf("ready after cleanup")
	}
}

func TestMultiPartition_Parallel(t *testing.T) {
	tg := &fakeTarget{}
	c := newConsumerForTest(tg)
	h := c.groupHandler()
	s := &sess{ctx: t.Context()}

	p0 := make(chan *sarama.ConsumerMessage, 2)
	p1 := make(chan *sarama.ConsumerMessage, 2)
	p0 <- msgAt(1, eventBytes(invalidation.OpReload, "a", 0))
	p0 <- msgAt(2, eventBytes(invalidation.OpReload, "a", 0))
	p1 <- msgAt(1, eventBytes(invalidation.OpReload, "b", 0))
	p1 <- msgAt(2, eventBytes(invalidation.OpReload, "b", 0))
	close(p0)
	close(p1)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); _ = h.ConsumeClaim(s, &claim{part: 0, msgs: p0}) }()
	go func() { defer wg.Done(); _ = h.ConsumeClaim(s, &claim{part: 1, msgs: p1}) }()
	wg.Wait()

	if len(s.marked) != 4 || tg.reloadCount() != 4 {
		t.Fatalf("marked=%v reloads=%d", s.marked, tg.reloadCount())
	}
}

func TestFromConfig_SplitsBrokers(t *testing.T) {
	cfg := FromConfig(configFor(" k1:9092, ,k2:9092 "))
	if len(cfg.Brokers) != 2 || cfg.Brokers[1] != "k2:9092" || cfg.Topic != "griddap-axes" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func configFor(brokers string) config.ReloadCfg {
	return config.ReloadCfg{Enabled: true, Brokers: brokers, Topic: "griddap-axes", GroupID: "subsetd"}
}
