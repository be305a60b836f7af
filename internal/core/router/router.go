// Package router holds the HTTP handlers of the subset service.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mohammed-shakir/griddap-subset/internal/axisstore"
	"github.com/mohammed-shakir/griddap-subset/internal/core/config"
	"github.com/mohammed-shakir/griddap-subset/internal/core/executor"
	"github.com/mohammed-shakir/griddap-subset/internal/core/model"
	"github.com/mohammed-shakir/griddap-subset/internal/core/observability"
	mylog "github.com/mohammed-shakir/griddap-subset/internal/logger"
	"github.com/mohammed-shakir/griddap-subset/internal/subset"
)

// Mount registers the dataset routes on r.
func Mount(r chi.Router, logger *slog.Logger, cfg config.Config, exec executor.Interface) {
	r.Get("/v1/datasets", HandleDatasets(exec))
	r.Route("/v1/datasets/{dataset}", func(r chi.Router) {
		r.Get("/resolve", HandleResolve(logger, cfg, exec))
		r.Post("/reload", HandleReload(logger, exec))
		r.Get("/axes", HandleAxes(exec))
	})
}

// HandleResolve validates the q parameters and resolves them.
func HandleResolve(logger *slog.Logger, cfg config.Config, exec executor.Interface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := ParseResolveRequest(r, cfg.MaxExpressions)
		if err != nil {
			writeError(w, err)
			return
		}
		ctx := mylog.WithDataset(r.Context(), req.Dataset)
		resp, err := exec.Resolve(ctx, req)
		if err != nil {
			logger.LogAttrs(ctx, levelFor(err), "resolve failed",
				slog.String("outcome", observability.Outcome(err)),
				slog.String("err", err.Error()),
			)
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func HandleReload(logger *slog.Logger, exec executor.Interface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ds := chi.URLParam(r, "dataset")
		ctx := mylog.WithDataset(r.Context(), ds)
		resp, err := exec.Reload(ctx, ds, "api")
		if err != nil {
			logger.WarnContext(ctx, "reload failed", "err", err)
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func HandleAxes(exec executor.Interface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ds := chi.URLParam(r, "dataset")
		resp, err := exec.Axes(mylog.WithDataset(r.Context(), ds), ds)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// HandleDatasets lists the datasets this instance has loaded.
func HandleDatasets(exec executor.Interface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string][]string{"datasets": exec.Datasets(r.Context())})
	}
}

// ParseResolveRequest collects the expressions of every q parameter. A
// single q may hold a comma separated list.
func ParseResolveRequest(r *http.Request, maxExprs int) (model.ResolveRequest, error) {
	ds := strings.TrimSpace(chi.URLParam(r, "dataset"))
	if ds == "" {
		return model.ResolveRequest{}, errBadRequest("missing dataset")
	}
	var exprs []string
	for _, q := range r.URL.Query()["q"] {
		exprs = append(exprs, subset.Split(q)...)
	}
	if len(exprs) == 0 {
		return model.ResolveRequest{}, errBadRequest("missing required parameter: q")
	}
	if maxExprs > 0 && len(exprs) > maxExprs {
		return model.ResolveRequest{}, errBadRequest(fmt.Sprintf("too many expressions: %d > %d", len(exprs), maxExprs))
	}
	return model.ResolveRequest{Dataset: ds, Expressions: exprs}, nil
}

type badRequestError string

func (e badRequestError) Error() string { return string(e) }

func errBadRequest(msg string) error { return badRequestError(msg) }

type errorBody struct {
	Error    string   `json:"error"`
	Kind     string   `json:"kind"`
	Variable string   `json:"variable,omitempty"`
	Axis     string   `json:"axis,omitempty"`
	Value    *float64 `json:"value,omitempty"`
	Min      *float64 `json:"min,omitempty"`
	Max      *float64 `json:"max,omitempty"`
	Token    string   `json:"token,omitempty"`
}

// StatusFor maps an error to its HTTP status.
func StatusFor(err error) int {
	var bre badRequestError
	switch {
	case errors.As(err, &bre),
		errors.Is(err, model.ErrMalformedExpression),
		errors.Is(err, model.ErrDimensionCountMismatch):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrOutOfRange):
		return http.StatusUnprocessableEntity
	case errors.Is(err, axisstore.ErrUnknownDataset):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	code := StatusFor(err)
	body := errorBody{Error: err.Error(), Kind: observability.Outcome(err)}

	var bre badRequestError
	var me *model.MalformedExpressionError
	var de *model.DimensionCountMismatchError
	var oe *model.OutOfRangeError
	switch {
	case errors.As(err, &bre):
		body.Kind = "bad_request"
	case errors.As(err, &me):
		body.Token = me.Token
		body.Variable = subset.VariableName(me.Expr)
	case errors.As(err, &de):
		body.Variable = subset.VariableName(de.Expr)
	case errors.As(err, &oe):
		body.Axis = oe.Axis
		body.Value, body.Min, body.Max = &oe.Value, &oe.Min, &oe.Max
	case code == http.StatusNotFound:
		body.Kind = "unknown_dataset"
	case code == http.StatusInternalServerError:
		// keep internals out of responses
		body.Error = "internal error"
	}
	writeJSON(w, code, body)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func levelFor(err error) slog.Level {
	if StatusFor(err) >= http.StatusInternalServerError {
		return slog.LevelError
	}
	return slog.LevelDebug
}
