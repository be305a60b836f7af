// Package config reads the service configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// ReloadCfg configures reload events. With Publish set, reloads requested
// over the API are announced on Topic so peer instances follow.
type ReloadCfg struct {
	Enabled    bool
	Topic      string
	Brokers    string
	GroupID    string
	Publish    bool
	InstanceID string
}

type CacheCfg struct {
	Driver    string // memory, redis or none
	Size      int
	TTL       time.Duration
	TTLOvr    map[string]time.Duration // per dataset
	OpTimeout time.Duration
	RedisAddr string
	RedisPass string
	RedisDB   int
}

type Config struct {
	Addr           string
	LogLevel       string
	LogConsole     bool
	AxesDir        string
	MaxExpressions int
	MetricsEnabled bool
	Cache          CacheCfg
	Reload         ReloadCfg
}

func FromEnv() Config {
	brokers := getenv("KAFKA_BROKERS", "localhost:9092")
	return Config{
		Addr:           getenv("ADDR", ":8090"),
		LogLevel:       getenv("LOG_LEVEL", "info"),
		LogConsole:     getbool("LOG_CONSOLE", false),
		AxesDir:        getenv("AXES_DIR", "./axes"),
		MaxExpressions: getint("MAX_EXPRESSIONS", 64),
		MetricsEnabled: getbool("METRICS_ENABLED", true),
		Cache: CacheCfg{
			Driver:    strings.ToLower(getenv("CACHE_DRIVER", "memory")),
			Size:      getint("CACHE_SIZE", 4096),
			TTL:       getduration("CACHE_TTL", 10*time.Minute),
			TTLOvr:    parseDurationMap(getenv("CACHE_TTL_OVERRIDES", "")),
			OpTimeout: getduration("CACHE_OP_TIMEOUT", 250*time.Millisecond),
			RedisAddr: getenv("REDIS_ADDR", "localhost:6379"),
			RedisPass: getenv("REDIS_PASSWORD", ""),
			RedisDB:   getint("REDIS_DB", 0),
		},
		Reload: ReloadCfg{
			Enabled:    getbool("RELOAD_ENABLED", false),
			Topic:      getenv("KAFKA_TOPIC", "griddap-axes"),
			Brokers:    brokers,
			GroupID:    getenv("KAFKA_GROUP_ID", "subsetd"),
			Publish:    getbool("RELOAD_PUBLISH", true),
			InstanceID: getenv("INSTANCE_ID", hostname()),
		},
	}
}

// Validate rejects settings the service cannot start with.
func (c Config) Validate() error {
	switch c.Cache.Driver {
	case "memory", "redis", "none":
	default:
		return fmt.Errorf("CACHE_DRIVER=%q: want memory, redis or none", c.Cache.Driver)
	}
	if c.Cache.Driver == "memory" && c.Cache.Size <= 0 {
		return fmt.Errorf("CACHE_SIZE must be positive, got %d", c.Cache.Size)
	}
	if c.Cache.RedisDB < 0 {
		return fmt.Errorf("REDIS_DB must not be negative, got %d", c.Cache.RedisDB)
	}
	if c.AxesDir == "" {
		return fmt.Errorf("AXES_DIR is required")
	}
	if c.MaxExpressions <= 0 {
		return fmt.Errorf("MAX_EXPRESSIONS must be positive, got %d", c.MaxExpressions)
	}
	if c.Reload.Enabled && (c.Reload.Topic == "" || c.Reload.Brokers == "") {
		return fmt.Errorf("RELOAD_ENABLED needs KAFKA_TOPIC and KAFKA_BROKERS")
	}
	return nil
}

// TTLFor returns the cache TTL for dataset.
func (c CacheCfg) TTLFor(dataset string) time.Duration {
	if d, ok := c.TTLOvr[dataset]; ok {
		return d
	}
	return c.TTL
}

func hostname() string {
	h, err := os.Hostname()
	if err != nil || h == "" {
		return "subsetd"
	}
	return h
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "t", "true", "y", "yes":
			return true
		case "0", "f", "false", "n", "no":
			return false
		}
	}
	return def
}

func getduration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

// parse "dataset=5m,other=30s" into map
func parseDurationMap(s string) map[string]time.Duration {
	out := map[string]time.Duration{}
	for p := range strings.SplitSeq(strings.TrimSpace(s), ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(p), "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			continue
		}
		if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
			out[k] = d
		}
	}
	return out
}
