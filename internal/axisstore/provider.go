package axisstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"

	"github.com/mohammed-shakir/griddap-subset/internal/core/model"
)

var ErrUnknownDataset = errors.New("unknown dataset")

var datasetIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)

// Provider returns the current axes of a dataset.
type Provider interface {
	Load(ctx context.Context, dataset string) (*model.AxisSet, error)
}

// ValidDatasetID reports whether id is usable as a dataset name.
func ValidDatasetID(id string) bool {
	return len(id) <= 128 && datasetIDPattern.MatchString(id)
}

// FileProvider reads <Dir>/<dataset>.json descriptors.
type FileProvider struct {
	Dir string
}

func (p FileProvider) Load(ctx context.Context, dataset string) (*model.AxisSet, error) {
	if !ValidDatasetID(dataset) {
		return nil, fmt.Errorf("%w: invalid id %q", ErrUnknownDataset, dataset)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(p.Dir, dataset+".json"))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownDataset, dataset)
		}
		return nil, fmt.Errorf("open axes for %s: %w", dataset, err)
	}
	defer func() { _ = f.Close() }()

	axes, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("load axes for %s: %w", dataset, err)
	}
	return axes, nil
}

// Check reports whether Dir is readable.
func (p FileProvider) Check(_ context.Context) error {
	st, err := os.Stat(p.Dir)
	if err != nil {
		return err
	}
	if !st.IsDir() {
		return fmt.Errorf("%s is not a directory", p.Dir)
	}
	return nil
}
