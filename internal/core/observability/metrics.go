// Package observability holds the service's Prometheus collectors. The
// collectors always exist; Init registers them on a registry so a process
// can run with metrics disabled.
package observability

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mohammed-shakir/griddap-subset/internal/core/model"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12), // 0.5ms to ~1s
		},
		[]string{"method", "route", "status"},
	)

	resolveTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subset_resolve_total",
			Help: "Subset resolutions by outcome.",
		},
		[]string{"outcome"},
	)

	resolveDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "subset_resolve_duration_seconds",
			Help:    "Time spent resolving one request's expressions.",
			Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
		},
	)

	cacheResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_results_total",
			Help: "Resolved-query cache lookups by outcome.",
		},
		[]string{"outcome"},
	)

	cacheOpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cache_op_duration_seconds",
			Help:    "Latency of cache backend operations.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14),
		},
		[]string{"op", "result"},
	)

	axisReloads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "axis_reloads_total",
			Help: "Axis snapshot loads by trigger and outcome.",
		},
		[]string{"trigger", "outcome"},
	)

	kafkaConsumerErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_consumer_errors_total",
			Help: "Reload event consumer errors by reason.",
		},
		[]string{"reason"},
	)

	kafkaPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_reload_events_published_total",
			Help: "Reload events handed to the producer, by outcome.",
		},
		[]string{"outcome"},
	)

	collectors = []prometheus.Collector{
		httpRequestsTotal,
		httpRequestDurationSeconds,
		resolveTotal,
		resolveDurationSeconds,
		cacheResults,
		cacheOpDurationSeconds,
		axisReloads,
		kafkaConsumerErrors,
		kafkaPublished,
	}
)

// Init registers the collectors on reg. Registering twice on the same
// registry is a no-op.
func Init(reg prometheus.Registerer, enabled bool) error {
	if !enabled || reg == nil {
		return nil
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	return nil
}

func ObserveHTTP(method, route string, status int, durationSeconds float64) {
	st := strconv.Itoa(status)
	httpRequestsTotal.WithLabelValues(method, route, st).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route, st).Observe(durationSeconds)
}

// Outcome classifies a resolution error for metrics and logs.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, model.ErrMalformedExpression):
		return "malformed"
	case errors.Is(err, model.ErrDimensionCountMismatch):
		return "dimension_mismatch"
	case errors.Is(err, model.ErrOutOfRange):
		return "out_of_range"
	default:
		return "error"
	}
}

func ObserveResolve(err error, durationSeconds float64) {
	resolveTotal.WithLabelValues(Outcome(err)).Inc()
	resolveDurationSeconds.Observe(durationSeconds)
}

func IncCacheHit()  { cacheResults.WithLabelValues("hit").Inc() }
func IncCacheMiss() { cacheResults.WithLabelValues("miss").Inc() }

// IncCacheError counts lookups that failed and fell through to resolution.
func IncCacheError() { cacheResults.WithLabelValues("error").Inc() }

func ObserveCacheOp(op string, err error, durationSeconds float64) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	cacheOpDurationSeconds.WithLabelValues(op, result).Observe(durationSeconds)
}

// ObserveAxisReload records a snapshot load. trigger is "lazy", "api" or
// "kafka".
func ObserveAxisReload(trigger string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	axisReloads.WithLabelValues(trigger, outcome).Inc()
}

func IncKafkaConsumerError(reason string) {
	kafkaConsumerErrors.WithLabelValues(reason).Inc()
}

// IncKafkaPublish counts reload events by outcome: "queued", "dropped" or
// "error".
func IncKafkaPublish(outcome string) {
	kafkaPublished.WithLabelValues(outcome).Inc()
}
