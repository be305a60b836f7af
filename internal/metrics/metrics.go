// Package metrics owns the process registry served on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mohammed-shakir/griddap-subset/internal/core/observability"
)

type BuildInfo struct {
	Version   string
	Revision  string
	BuildDate string
}

type Config struct {
	Enabled bool
	Build   BuildInfo
}

type Provider struct {
	reg     *prometheus.Registry
	enabled bool
}

// Init builds a registry with runtime collectors, build info and the
// service collectors from observability. A disabled provider serves 404.
func Init(cfg Config) (*Provider, error) {
	reg := prometheus.NewRegistry()
	p := &Provider{reg: reg, enabled: cfg.Enabled}
	if !cfg.Enabled {
		return p, nil
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	build := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_build_info",
			Help: "Build info for this binary (value is always 1).",
		},
		[]string{"version", "revision", "build_date"},
	)
	reg.MustRegister(build)
	v := cfg.Build
	if v.Version == "" {
		v.Version = "dev"
	}
	build.WithLabelValues(v.Version, v.Revision, v.BuildDate).Set(1)

	if err := observability.Init(reg, true); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Provider) Enabled() bool { return p.enabled }

func (p *Provider) Handler() http.Handler {
	if !p.enabled {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(p.reg, promhttp.HandlerOpts{})
}

func (p *Provider) Registerer() prometheus.Registerer { return p.reg }
