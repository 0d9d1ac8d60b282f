package app

import (
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/relabs-tech/ringdrop/internal/analysis"
	"github.com/relabs-tech/ringdrop/internal/config"
	"github.com/relabs-tech/ringdrop/internal/dataset"
	"github.com/relabs-tech/ringdrop/internal/errs"
	"github.com/relabs-tech/ringdrop/internal/report"
)

// AnalysisOptions builds analysis options from the configuration.
func AnalysisOptions(cfg *config.Config) analysis.Options {
	return analysis.Options{
		BlockSize:      cfg.BlockSize,
		Tolerance:      cfg.Tolerance,
		RangeTolerance: cfg.RangeTolerance,
		EnablePlot:     cfg.EnablePlot,
		PlotDir:        cfg.PlotDir,
	}
}

// RunAnalysis loads every trial in dir, prints the receipt and the report to
// out and, when enabled, renders the plots. label names the test in the
// report and the plot files; "" uses the directory name.
func RunAnalysis(dir, label string, opts analysis.Options, out io.Writer) (*analysis.Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if label == "" {
		label = filepath.Base(filepath.Clean(dir))
	}

	ds, err := dataset.Load(dir)
	if err != nil {
		return nil, err
	}
	log.Printf("analysis: loaded %d trials from %s (%d samples per trial)", ds.Trials(), dir, len(ds.Time))

	res, err := analysis.Run(ds, label, opts)
	if err != nil {
		return nil, err
	}

	if err := report.WriteReceipt(out, label, ds.Files, opts.BlockSize); err != nil {
		return nil, err
	}
	if err := report.WriteReport(out, res); err != nil {
		return nil, err
	}

	if opts.EnablePlot {
		if err := renderPlots(ds, res, dir, opts.PlotDir); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func renderPlots(ds *dataset.Dataset, res *analysis.Result, dataDir, plotDir string) error {
	if plotDir == "" {
		plotDir = dataDir
	}
	if err := os.MkdirAll(plotDir, 0o755); err != nil {
		return errors.Wrap(err, "create plot directory")
	}

	base := filepath.Join(plotDir, res.Label)
	plots := []struct {
		name string
		draw func(path string) error
	}{
		{"troughs", func(p string) error { return report.TroughPlot(res, p) }},
		{"environment", func(p string) error { return report.EnvironmentPlot(res, p) }},
		{"profile", func(p string) error { return report.ProfilePlot(ds, res.Label, p) }},
	}
	for _, pl := range plots {
		path := base + "_" + pl.name + ".png"
		err := pl.draw(path)
		switch {
		case err == nil:
			log.Printf("analysis: wrote %s", path)
		case errors.Is(err, errs.ErrMissingData):
			log.Printf("analysis: skipping %s plot: %v", pl.name, err)
		default:
			return errors.Wrapf(err, "%s plot", pl.name)
		}
	}
	return nil
}
