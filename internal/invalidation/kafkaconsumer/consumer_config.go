package kafkaconsumer

import (
	"strings"
	"time"

	"github.com/mohammed-shakir/griddap-subset/internal/core/config"
)

type Config struct {
	Brokers             []string
	Topic               string
	GroupID             string
	SessionTimeout      time.Duration
	Heartbeat           time.Duration
	RebalanceTimeout    time.Duration
	InitialOffsetOldest bool
	DedupeSize          int
}

// FromConfig fills the consumer settings from the service reload config.
// Consumption starts at the oldest offset: replaying old reloads is
// harmless, missing one is not.
func FromConfig(rc config.ReloadCfg) Config {
	return Config{
		Brokers:             splitCSV(rc.Brokers),
		Topic:               rc.Topic,
		GroupID:             rc.GroupID,
		SessionTimeout:      30 * time.Second,
		Heartbeat:           3 * time.Second,
		RebalanceTimeout:    30 * time.Second,
		InitialOffsetOldest: true,
		DedupeSize:          4096,
	}
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	var out []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
