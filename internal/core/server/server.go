package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mohammed-shakir/griddap-subset/internal/core/config"
	"github.com/mohammed-shakir/griddap-subset/internal/core/executor"
	"github.com/mohammed-shakir/griddap-subset/internal/core/health"
	middleware "github.com/mohammed-shakir/griddap-subset/internal/core/middleware"
	"github.com/mohammed-shakir/griddap-subset/internal/core/router"
)

// Deps are the collaborators the HTTP surface needs.
type Deps struct {
	Executor executor.Interface
	Metrics  http.Handler
	Ready    map[string]health.Check
}

// NewHandler builds the routed handler.
func NewHandler(cfg config.Config, logger *slog.Logger, d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recover(logger))
	r.Use(middleware.Logging(logger))
	r.Use(middleware.Metrics())
	r.Use(middleware.CORS())

	r.Get("/healthz", health.Liveness())
	r.Get("/readyz", health.Readiness(2*time.Second, d.Ready))
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics)
	}
	router.Mount(r, logger, cfg, d.Executor)
	return r
}

// Run serves until ctx is canceled, then shuts down gracefully.
func Run(ctx context.Context, cfg config.Config, logger *slog.Logger, d Deps) error {
	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return err
	}
	return Serve(ctx, ln, cfg, logger, d)
}

func Serve(ctx context.Context, ln net.Listener, cfg config.Config, logger *slog.Logger, d Deps) error {
	srv := &http.Server{
		Handler:           NewHandler(cfg, logger, d),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listen", "addr", ln.Addr().String())
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
