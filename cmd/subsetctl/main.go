// Command subsetctl resolves subset expressions against a local axis
// descriptor and prints the wire queries.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/mohammed-shakir/griddap-subset/internal/axisstore"
	"github.com/mohammed-shakir/griddap-subset/internal/core/dap"
	"github.com/mohammed-shakir/griddap-subset/internal/core/model"
	"github.com/mohammed-shakir/griddap-subset/internal/logger"
	"github.com/mohammed-shakir/griddap-subset/internal/subset"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("subsetctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	axesPath := fs.String("axes", "", "axis descriptor JSON file")
	join := fs.Bool("join", false, "print one comma separated query")
	verbose := fs.Bool("v", false, "debug logging to stderr")
	fs.Usage = func() {
		_, _ = fmt.Fprintln(stderr, "usage: subsetctl -axes dataset.json expr...")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if *axesPath == "" || fs.NArg() == 0 {
		fs.Usage()
		return 1
	}

	lvl := "warn"
	if *verbose {
		lvl = "debug"
	}
	zl := logger.Build(logger.Config{Level: lvl, Console: true, Component: "subsetctl"}, stderr)
	lg := logger.NewSlog(&zl)

	f, err := os.Open(*axesPath)
	if err != nil {
		lg.Error("open descriptor", "err", err)
		return 1
	}
	axes, err := axisstore.Decode(f)
	_ = f.Close()
	if err != nil {
		lg.Error("read descriptor", "path", *axesPath, "err", err)
		return 1
	}
	lg.Debug("axes loaded", "path", *axesPath, "dims", axes.Len())

	var exprs []string
	for _, a := range fs.Args() {
		exprs = append(exprs, subset.Split(a)...)
	}
	res, err := subset.New(nil).Resolve(axes, exprs...)
	if err == nil {
		var queries []string
		if queries, err = res.Queries(axes); err == nil {
			printQueries(stdout, queries, *join)
			return 0
		}
	}
	_, _ = fmt.Fprintf(stderr, "subsetctl: %v\n", err)
	if isResolutionError(err) {
		return 2
	}
	return 1
}

func printQueries(w io.Writer, queries []string, join bool) {
	if join {
		_, _ = fmt.Fprintln(w, dap.Join(queries))
		return
	}
	for _, q := range queries {
		_, _ = fmt.Fprintln(w, q)
	}
}

func isResolutionError(err error) bool {
	return errors.Is(err, model.ErrMalformedExpression) ||
		errors.Is(err, model.ErrDimensionCountMismatch) ||
		errors.Is(err, model.ErrOutOfRange)
}

