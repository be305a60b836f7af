package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/mohammed-shakir/griddap-subset/internal/axisstore"
	"github.com/mohammed-shakir/griddap-subset/internal/core/config"
	"github.com/mohammed-shakir/griddap-subset/internal/core/executor"
	"github.com/mohammed-shakir/griddap-subset/internal/core/health"
	"github.com/mohammed-shakir/griddap-subset/internal/core/server"
	"github.com/mohammed-shakir/griddap-subset/internal/invalidation/kafkaconsumer"
	"github.com/mohammed-shakir/griddap-subset/internal/invalidation/publisher"
	"github.com/mohammed-shakir/griddap-subset/internal/logger"
	"github.com/mohammed-shakir/griddap-subset/internal/metrics"
	"github.com/mohammed-shakir/griddap-subset/internal/subset"
)

var Version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	addrFlag := flag.String("addr", "", "listen address (overrides ADDR)")
	axesFlag := flag.String("axes", "", "axis descriptor directory (overrides AXES_DIR)")
	flag.Parse()

	cfg := config.FromEnv()
	if *addrFlag != "" {
		cfg.Addr = *addrFlag
	}
	if *axesFlag != "" {
		cfg.AxesDir = *axesFlag
	}

	zl := logger.Build(logger.Config{
		Level:     cfg.LogLevel,
		Console:   cfg.LogConsole,
		Service:   "subsetd",
		Component: "server",
	}, os.Stdout)
	appLog := logger.NewSlog(&zl)

	if err := cfg.Validate(); err != nil {
		appLog.Error("invalid configuration", "err", err)
		return 2
	}

	p, err := metrics.Init(metrics.Config{
		Enabled: cfg.MetricsEnabled,
		Build: metrics.BuildInfo{
			Version:   Version,
			Revision:  os.Getenv("BUILD_REVISION"),
			BuildDate: os.Getenv("BUILD_DATE"),
		},
	})
	if err != nil {
		appLog.Error("metrics setup failed", "err", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	qc, ready, closeCache, err := buildCache(ctx, cfg.Cache)
	if err != nil {
		appLog.Error("cache setup failed", "driver", cfg.Cache.Driver, "err", err)
		return 1
	}
	defer closeCache()

	opts := []executor.Option{
		executor.WithTTL(cfg.Cache.TTLFor),
		executor.WithCacheTimeout(cfg.Cache.OpTimeout),
	}
	if cfg.Reload.Enabled && cfg.Reload.Publish {
		pub, err := publisher.New(kafkaconsumer.FromConfig(cfg.Reload).Brokers, cfg.Reload.Topic, 256, appLog)
		if err != nil {
			appLog.Error("reload publisher setup failed", "err", err)
			return 1
		}
		defer func() {
			if err := pub.Close(); err != nil {
				appLog.Error("reload publisher close", "err", err)
			}
		}()
		opts = append(opts, executor.WithReloadHook(announce(pub, cfg.Reload.InstanceID)))
	}

	prov := axisstore.FileProvider{Dir: cfg.AxesDir}
	ready["axes"] = prov.Check
	catalog := axisstore.NewCatalog(prov, appLog)
	exec := executor.New(appLog, catalog, subset.New(nil), qc, opts...)

	appLog.Info("starting subsetd",
		"addr", cfg.Addr,
		"version", Version,
		"axes_dir", cfg.AxesDir,
		"cache", cfg.Cache.Driver,
		"reload_events", cfg.Reload.Enabled)

	consumerDone := make(chan error, 1)
	if cfg.Reload.Enabled {
		czl := logger.Build(logger.Config{
			Level:     cfg.LogLevel,
			Console:   cfg.LogConsole,
			Service:   "subsetd",
			Component: "kafka_consumer",
		}, os.Stdout)
		c := kafkaconsumer.New(kafkaconsumer.FromConfig(cfg.Reload), exec, kafkaconsumer.Options{
			Logger:     appLog,
			Zerolog:    &czl,
			InstanceID: cfg.Reload.InstanceID,
		})
		ready["kafka"] = health.FromReporter(c)
		go func() { consumerDone <- c.Start(ctx) }()
	} else {
		close(consumerDone)
	}

	err = server.Run(ctx, cfg, appLog, server.Deps{
		Executor: exec,
		Metrics:  p.Handler(),
		Ready:    ready,
	})
	stop()
	if cerr := <-consumerDone; cerr != nil {
		err = errors.Join(err, cerr)
	}
	if err != nil {
		appLog.Error("server exited with error", "err", err)
		return 1
	}
	appLog.Info("server stopped")
	return 0
}
