package dataset

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sampa-labs/brgen-cli/internal/location"
)

// Result summarizes a completed build.
type Result struct {
	States int
	Cities int
	Output string
}

// Run executes a manifest end to end: fetch the workbook (or use the local
// copy), parse it, build the dataset, and write the locations JSON.
func Run(ctx context.Context, m *Manifest) (*location.Dataset, Result, error) {
	path := m.Source.Path
	if m.Source.FTPURL != "" {
		tmp, err := os.CreateTemp("", "ibge-*.xlsx")
		if err != nil {
			return nil, Result{}, eris.Wrap(err, "dataset: create temp workbook")
		}
		tmp.Close()
		defer os.Remove(tmp.Name())

		n, err := NewFetcher(m.Source.Timeout()).DownloadToFile(ctx, m.Source.FTPURL, tmp.Name())
		if err != nil {
			return nil, Result{}, err
		}
		zap.L().Info("dataset: workbook downloaded",
			zap.String("url", m.Source.FTPURL), zap.Int64("bytes", n))
		path = tmp.Name()
	}

	rows, err := ParseWorkbook(path, m.Sheet)
	if err != nil {
		return nil, Result{}, err
	}

	var overlay map[string]Overlay
	if m.Overlay != "" {
		overlay, err = LoadOverlay(m.Overlay)
		if err != nil {
			return nil, Result{}, err
		}
	}

	d, err := Build(rows, overlay)
	if err != nil {
		return nil, Result{}, err
	}

	if err := WriteDataset(d, m.Output); err != nil {
		return nil, Result{}, err
	}

	res := Result{States: len(d.StateKeys()), Cities: len(d.CityKeys()), Output: m.Output}
	zap.L().Info("dataset: build complete",
		zap.Int("states", res.States), zap.Int("cities", res.Cities), zap.String("output", res.Output))
	return d, res, nil
}

// WriteDataset writes the locations JSON, creating parent directories as
// needed. Key order in the output follows insertion order.
func WriteDataset(d *location.Dataset, path string) error {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return eris.Wrap(err, "dataset: marshal locations")
	}

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return eris.Wrapf(err, "dataset: create output dir %s", dir)
		}
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "dataset: write %s", path)
	}
	return nil
}
