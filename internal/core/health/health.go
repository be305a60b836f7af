// Package health serves the liveness and readiness probes.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"time"
)

func Liveness() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}

// Check reports whether one dependency can serve traffic.
type Check func(ctx context.Context) error

// ReadinessReporter is implemented by the reload event consumer.
type ReadinessReporter interface {
	Readiness() (ready bool, partitions []int32)
}

var errNoPartitions = errors.New("no partitions assigned")

// FromReporter adapts a ReadinessReporter into a Check.
func FromReporter(rr ReadinessReporter) Check {
	return func(context.Context) error {
		if ready, _ := rr.Readiness(); !ready {
			return errNoPartitions
		}
		return nil
	}
}

// Readiness runs every check with a shared timeout. The probe is ready
// only when all checks pass.
func Readiness(timeout time.Duration, checks map[string]Check) http.HandlerFunc {
	names := make([]string, 0, len(checks))
	for n := range checks {
		names = append(names, n)
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		type resp struct {
			Status string            `json:"status"`
			Checks map[string]string `json:"checks,omitempty"`
		}
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		out := resp{Status: "ready", Checks: make(map[string]string, len(names))}
		for _, n := range names {
			if err := checks[n](ctx); err != nil {
				out.Status = "not_ready"
				out.Checks[n] = err.Error()
				continue
			}
			out.Checks[n] = "ok"
		}

		w.Header().Set("Content-Type", "application/json")
		if out.Status != "ready" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(out)
	}
}
