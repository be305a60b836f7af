// Package kafkaconsumer applies dataset reload events from a Kafka topic so
// every service instance refreshes its axes and drops stale cached queries.
package kafkaconsumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/IBM/sarama"
	"github.com/rs/zerolog"

	"github.com/mohammed-shakir/griddap-subset/internal/axisstore"
	"github.com/mohammed-shakir/griddap-subset/internal/core/model"
	obs "github.com/mohammed-shakir/griddap-subset/internal/core/observability"
	"github.com/mohammed-shakir/griddap-subset/internal/invalidation"
	mylog "github.com/mohammed-shakir/griddap-subset/internal/logger"
)

// Target is the part of the executor the consumer drives.
type Target interface {
	Reload(ctx context.Context, dataset, trigger string) (model.ReloadResponse, error)
	Forget(ctx context.Context, dataset string) (int, error)
}

type Options struct {
	Logger  *slog.Logger
	Zerolog *zerolog.Logger
	// InstanceID skips events this instance published itself.
	InstanceID string
}

type Consumer struct {
	cfg    Config
	logger *slog.Logger
	zlog   *zerolog.Logger
	target Target
	dedupe *revisionDedupe
	self   string

	assigned atomic.Bool
	assignMu sync.RWMutex
	assign   map[int32]struct{}
}

func New(cfg Config, target Target, opts Options) *Consumer {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Zerolog == nil {
		zl := zerolog.Nop()
		opts.Zerolog = &zl
	}
	return &Consumer{
		cfg:    cfg,
		logger: opts.Logger,
		zlog:   opts.Zerolog,
		target: target,
		dedupe: newRevisionDedupe(cfg.DedupeSize),
		self:   opts.InstanceID,
		assign: map[int32]struct{}{},
	}
}

// Start consumes reload events until ctx is canceled.
func (c *Consumer) Start(ctx context.Context) error {
	if c.target == nil {
		return errors.New("kafkaconsumer: missing reload target")
	}

	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_5_0_0
	cfg.Consumer.Group.Session.Timeout = c.cfg.SessionTimeout
	cfg.Consumer.Group.Heartbeat.Interval = c.cfg.Heartbeat
	cfg.Consumer.Group.Rebalance.Timeout = c.cfg.RebalanceTimeout
	if c.cfg.InitialOffsetOldest {
		cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	} else {
		cfg.Consumer.Offsets.Initial = sarama.OffsetNewest
	}
	cfg.Consumer.Offsets.AutoCommit.Enable = true

	group, err := sarama.NewConsumerGroup(c.cfg.Brokers, c.cfg.GroupID, cfg)
	if err != nil {
		return fmt.Errorf("create consumer group: %w", err)
	}
	defer func() {
		if err := group.Close(); err != nil {
			c.logger.Error("kafka consumer group close", "err", err)
		}
	}()

	handler := c.groupHandler()
	c.logger.Info("kafka reload consumer starting",
		"brokers", c.cfg.Brokers, "topic", c.cfg.Topic, "group", c.cfg.GroupID)

	for {
		if err := group.Consume(ctx, []string{c.cfg.Topic}, handler); err != nil && ctx.Err() == nil {
			obs.IncKafkaConsumerError("consume")
			c.zlog.Error().Err(err).
				Strs("brokers", c.cfg.Brokers).
				Str("topic", c.cfg.Topic).
				Msg("kafka consumer error")
			select {
			case <-time.After(2 * time.Second):
			case <-ctx.Done():
			}
		}
		if ctx.Err() != nil {
			c.logger.Info("kafka reload consumer shutting down")
			return nil
		}
	}
}

func (c *Consumer) groupHandler() *groupHandler {
	return &groupHandler{
		setup: func(sess sarama.ConsumerGroupSession) {
			c.assignMu.Lock()
			c.assign = map[int32]struct{}{}
			for _, parts := range sess.Claims() {
				for _, p := range parts {
					c.assign[p] = struct{}{}
				}
			}
			c.assigned.Store(true)
			c.assignMu.Unlock()
		},
		cleanup: func(sarama.ConsumerGroupSession) {
			c.assignMu.Lock()
			c.assigned.Store(false)
			c.assign = map[int32]struct{}{}
			c.assignMu.Unlock()
		},
		process: c.ProcessOne,
	}
}

// Readiness reports whether the consumer currently owns partitions.
func (c *Consumer) Readiness() (ready bool, partitions []int32) {
	if !c.assigned.Load() {
		return false, nil
	}
	c.assignMu.RLock()
	defer c.assignMu.RUnlock()
	for p := range c.assign {
		partitions = append(partitions, p)
	}
	return true, partitions
}

// ProcessOne applies a single event. Undecodable or invalid events and
// events for unknown datasets are logged and skipped; other failures are
// returned so the message is not marked.
func (c *Consumer) ProcessOne(ctx context.Context, msg *sarama.ConsumerMessage) error {
	var ev invalidation.Event
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		c.skip(ctx, msg, "decode", err)
		return nil
	}
	if err := ev.Validate(); err != nil {
		c.skip(ctx, msg, "validate", err)
		return nil
	}

	ctx = mylog.WithDataset(mylog.WithComponent(ctx, "kafka_consumer"), ev.Dataset)
	if c.self != "" && ev.Source == c.self {
		return nil
	}
	if ev.Revision > 0 && c.dedupe.stale(ev.Dataset, ev.Revision) {
		c.logger.DebugContext(ctx, "stale reload event skipped", "revision", ev.Revision)
		return nil
	}

	switch ev.Op {
	case invalidation.OpDrop:
		n, err := c.target.Forget(ctx, ev.Dataset)
		if err != nil {
			obs.IncKafkaConsumerError("purge")
			return fmt.Errorf("drop %s: %w", ev.Dataset, err)
		}
		c.dedupe.forget(ev.Dataset)
		c.logger.InfoContext(ctx, "dataset dropped", "purged", n, "source", ev.Source)

	default:
		resp, err := c.target.Reload(ctx, ev.Dataset, "kafka")
		if errors.Is(err, axisstore.ErrUnknownDataset) {
			c.skip(ctx, msg, "unknown_dataset", err)
			return nil
		}
		if err != nil {
			obs.IncKafkaConsumerError("reload")
			return fmt.Errorf("reload %s: %w", ev.Dataset, err)
		}
		if ev.Revision > 0 {
			c.dedupe.record(ev.Dataset, ev.Revision)
		}
		mylog.FromContext(ctx, c.zlog).Info().
			Str("event", "reload").
			Uint64("revision", resp.Revision).
			Int("purged", resp.Purged).
			Msg("dataset reloaded from event")
	}
	return nil
}

func (c *Consumer) skip(ctx context.Context, msg *sarama.ConsumerMessage, reason string, err error) {
	obs.IncKafkaConsumerError(reason)
	mylog.FromContext(ctx, c.zlog).Error().
		Err(err).
		Str("kind", reason).
		Str("topic", msg.Topic).
		Int32("partition", msg.Partition).
		Int64("offset", msg.Offset).
		Msg("kafka event skipped")
}
