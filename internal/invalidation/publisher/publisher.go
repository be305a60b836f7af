// Package publisher announces dataset reloads on the reload topic so peer
// instances reload too.
package publisher

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/IBM/sarama"

	obs "github.com/mohammed-shakir/griddap-subset/internal/core/observability"
	"github.com/mohammed-shakir/griddap-subset/internal/invalidation"
)

type Publisher struct {
	topic   string
	events  chan invalidation.Event
	prod    sarama.AsyncProducer
	logger  *slog.Logger
	stopped chan struct{}
	once    sync.Once
}

func New(brokers []string, topic string, queueSize int, logger *slog.Logger) (*Publisher, error) {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_5_0_0
	cfg.Producer.Return.Errors = true
	cfg.Producer.Return.Successes = false
	cfg.Producer.RequiredAcks = sarama.WaitForLocal

	prod, err := sarama.NewAsyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("publisher: create async producer: %w", err)
	}
	return newPublisher(prod, topic, queueSize, logger), nil
}

func newPublisher(prod sarama.AsyncProducer, topic string, queueSize int, logger *slog.Logger) *Publisher {
	if queueSize <= 0 {
		queueSize = 256
	}
	if logger == nil {
		logger = slog.Default()
	}
	p := &Publisher{
		topic:   topic,
		events:  make(chan invalidation.Event, queueSize),
		prod:    prod,
		logger:  logger,
		stopped: make(chan struct{}),
	}

	go func() {
		defer close(p.stopped)
		for ev := range p.events {
			b, err := json.Marshal(ev)
			if err != nil {
				obs.IncKafkaPublish("error")
				p.logger.Error("reload event marshal failed", "dataset", ev.Dataset, "err", err)
				continue
			}
			// keyed by dataset so one dataset's events stay ordered
			p.prod.Input() <- &sarama.ProducerMessage{
				Topic: p.topic,
				Key:   sarama.StringEncoder(ev.Dataset),
				Value: sarama.ByteEncoder(b),
			}
		}
	}()

	go func() {
		for err := range p.prod.Errors() {
			if err != nil {
				obs.IncKafkaPublish("error")
				p.logger.Error("reload event publish failed", "err", err)
			}
		}
	}()

	return p
}

// Publish queues ev without blocking. It reports false when the queue is
// full and the event was dropped.
func (p *Publisher) Publish(ev invalidation.Event) bool {
	select {
	case p.events <- ev:
		obs.IncKafkaPublish("queued")
		return true
	default:
		obs.IncKafkaPublish("dropped")
		p.logger.Warn("reload event dropped, queue full", "dataset", ev.Dataset)
		return false
	}
}

// Close flushes queued events and closes the producer. Publish must not be
// called after Close.
func (p *Publisher) Close() error {
	var err error
	p.once.Do(func() {
		close(p.events)
		<-p.stopped
		if cerr := p.prod.Close(); cerr != nil {
			err = fmt.Errorf("publisher: close producer: %w", cerr)
		}
	})
	return err
}
