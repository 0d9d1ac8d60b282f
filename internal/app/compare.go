package app

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/pkg/errors"

	"github.com/relabs-tech/ringdrop/internal/analysis"
	"github.com/relabs-tech/ringdrop/internal/errs"
	"github.com/relabs-tech/ringdrop/internal/report"
	"github.com/relabs-tech/ringdrop/internal/trial"
)

// RunCompare analyses every directory, groups the overall means by ring id
// and prints one line per ring with its average. Each directory counts as one
// round for its ring, in the order given.
func RunCompare(dirs []string, opts analysis.Options, out io.Writer) ([]report.RingGroup, error) {
	if len(dirs) == 0 {
		return nil, errors.Wrap(errs.ErrMissingData, "no test directories given")
	}

	plot := opts.EnablePlot
	opts.EnablePlot = false

	byRing := map[string]int{}
	var groups []report.RingGroup
	for _, dir := range dirs {
		res, err := RunAnalysis(dir, "", opts, io.Discard)
		if err != nil {
			return nil, errors.Wrap(err, dir)
		}

		ring := ringOf(dir, res)
		log.Printf("compare: %s -> ring %s, mean %.3f°", dir, ring, res.OverallMean)

		i, ok := byRing[ring]
		if !ok {
			i = len(groups)
			byRing[ring] = i
			groups = append(groups, report.RingGroup{Ring: ring})
		}
		groups[i].Means = append(groups[i].Means, res.OverallMean)
	}
	report.SortRings(groups)

	if err := writeComparison(out, groups); err != nil {
		return nil, err
	}

	if plot {
		plotDir := opts.PlotDir
		if plotDir == "" {
			plotDir = "."
		}
		if err := os.MkdirAll(plotDir, 0o755); err != nil {
			return nil, errors.Wrap(err, "create plot directory")
		}
		path := filepath.Join(plotDir, "ring_comparison.png")
		if err := report.ComparePlot(groups, path); err != nil {
			return nil, err
		}
		log.Printf("compare: wrote %s", path)
	}
	return groups, nil
}

// ringOf takes the ring id from the trial file names, falling back to the
// directory name.
func ringOf(dir string, res *analysis.Result) string {
	for _, f := range res.Files {
		if id := trial.RingID(f); id != "" {
			return id
		}
	}
	return filepath.Base(filepath.Clean(dir))
}

func writeComparison(out io.Writer, groups []report.RingGroup) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Ring\tRounds\tΔθ per round [°]\tAverage [°]")
	for _, g := range groups {
		parts := make([]string, len(g.Means))
		for i, m := range g.Means {
			parts[i] = fmt.Sprintf("%.2f", m)
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%.2f\n", g.Ring, len(g.Means), strings.Join(parts, ", "), g.Average())
	}
	return tw.Flush()
}
