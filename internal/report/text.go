// Package report renders analysis results as text and PNG plots.
package report

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/relabs-tech/ringdrop/internal/analysis"
)

// WriteReceipt prints the run → file table so the operator can check that
// the files were picked up in the right order.
func WriteReceipt(w io.Writer, label string, files []string, blockSize int) error {
	fmt.Fprintf(w, "\nReceipt for %q (%d files, block size %d):\n", label, len(files), blockSize)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Run\tFilename\t")
	for i, f := range files {
		fmt.Fprintf(tw, "%d\t%s\t\n", i+1, f)
	}
	return tw.Flush()
}

// WriteReport prints the per-block lines, the variation verdict, the overall
// mean, the excluded runs and the ambient diagnostics.
func WriteReport(w io.Writer, res *analysis.Result) error {
	var b strings.Builder
	n := len(res.Blocks)

	for _, bs := range res.Blocks {
		fmt.Fprintf(&b, "\nBlock %d/%d (runs %d-%d):  mean = %.2f° (%d excluded)\n",
			bs.Index+1, n, bs.FirstRun, bs.LastRun, bs.Mean, len(bs.Excluded))
	}

	if res.RangeOK {
		fmt.Fprintf(&b, "\n[OK]   block variation: range = %.3f° <= %v\n", res.Range, res.Options.RangeTolerance)
	} else {
		fmt.Fprintf(&b, "\n[FAIL] block variation too large: range = %.3f° > %v\n", res.Range, res.Options.RangeTolerance)
	}

	fmt.Fprintf(&b, "\n=> overall mean over %d blocks: %.2f°\n", n, res.OverallMean)
	if len(res.Excluded) > 0 {
		fmt.Fprintf(&b, "   excluded runs: %s\n", joinInts(res.Excluded))
	}

	b.WriteString("\n")
	for _, line := range EnvironmentLines(res) {
		b.WriteString(line)
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// EnvironmentLines is the summary panel shown under the trough plot.
func EnvironmentLines(res *analysis.Result) []string {
	e := res.Environment

	rangeVerdict := "OK"
	if !res.RangeOK {
		rangeVerdict = "FAIL, large variation within ring"
	}
	exclVerdict := "spread OK"
	if !e.ExclusionOK {
		exclVerdict = "TEST INVALID, too much spread in all measurements"
	}
	tempVerdict := "temperature OK"
	if !e.TempOK {
		tempVerdict = "temperature variation TOO LARGE"
	}

	return []string{
		fmt.Sprintf("Mean Δθ:            %.3f°", res.OverallMean),
		fmt.Sprintf("Spread within ring: %.3f° <= %.3f° -> %s", res.Range, res.Options.RangeTolerance, rangeVerdict),
		fmt.Sprintf("Excluded trials:    %d (%.1f %%) -> %s", len(res.Excluded), e.ExcludedPct, exclVerdict),
		fmt.Sprintf("Mean temperature:   %.1f °C", e.MeanTemp),
		fmt.Sprintf("Mean RH:            %.1f %%", e.MeanHum),
		fmt.Sprintf("Temp variation ΔT:  %.2f °C -> %s", e.TempRange, tempVerdict),
	}
}

func joinInts(vs []int) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = fmt.Sprint(v)
	}
	return strings.Join(parts, ", ")
}
