package report

import (
	"bytes"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/colornames"

	"github.com/relabs-tech/ringdrop/internal/analysis"
	"github.com/relabs-tech/ringdrop/internal/dataset"
	"github.com/relabs-tech/ringdrop/internal/errs"
)

func sampleResult(t *testing.T) *analysis.Result {
	t.Helper()
	troughs := []float64{54.0, 54.0, 54.1, 60.0, 54.2, 54.2, 54.2, 54.3}
	temps := []float64{21.0, 21.2, 21.1, 21.3, 21.2, 21.4, math.NaN(), 21.0}
	hums := []float64{40, 41, 40, 42, 41, 40, 41, 40}
	res, err := analysis.Analyze(troughs, temps, hums, analysis.Options{BlockSize: 4, Tolerance: 0.3, RangeTolerance: 0.4})
	require.NoError(t, err)
	res.Label = "20261019_ring7_test"
	return res
}

func TestWriteReceipt(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteReceipt(&buf, "ring7", []string{"a_1.json", "a_2.json"}, 2))

	out := buf.String()
	assert.Contains(t, out, `"ring7" (2 files, block size 2)`)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasSuffix(strings.TrimRight(lines[3], " "), "a_2.json"))
}

func TestWriteReport(t *testing.T) {
	res := sampleResult(t)

	var buf bytes.Buffer
	require.NoError(t, WriteReport(&buf, res))
	out := buf.String()

	assert.Contains(t, out, "Block 1/2 (runs 1-4)")
	assert.Contains(t, out, "(1 excluded)")
	assert.Contains(t, out, "Block 2/2 (runs 5-8)")
	assert.Contains(t, out, "[OK]   block variation")
	assert.Contains(t, out, "excluded runs: 4")
	assert.Contains(t, out, "Mean temperature:   21.2 °C")
	assert.Contains(t, out, "(12.5 %) -> spread OK")
}

func TestEnvironmentLinesFailures(t *testing.T) {
	res := &analysis.Result{
		OverallMean: 54,
		Range:       0.6,
		Options:     analysis.Options{RangeTolerance: 0.4},
		Environment: analysis.Diagnose([]float64{20, 22}, []float64{40, 40}, 0, 2),
	}
	lines := EnvironmentLines(res)
	require.Len(t, lines, 6)
	assert.Contains(t, lines[1], "FAIL")
	assert.Contains(t, lines[2], "spread OK")
	assert.Contains(t, lines[5], "TOO LARGE")
}

func TestRunColour(t *testing.T) {
	assert.Equal(t, colornames.Firebrick, RunColour(0, 10))
	assert.Equal(t, colornames.Forestgreen, RunColour(9, 10))
	assert.Equal(t, colornames.Firebrick, RunColour(0, 1))
}

func TestProfile(t *testing.T) {
	ds := &dataset.Dataset{
		Time:    []float64{0, 1, 2},
		Encoder: [][]float64{{0, 2, 4}, {2, 2, math.NaN()}},
	}
	mean, sd := Profile(ds)
	assert.InDeltaSlice(t, []float64{1, 2, 4}, mean, 1e-12)
	assert.InDeltaSlice(t, []float64{1, 0, 0}, sd, 1e-12)
}

func TestPlotsWritePNG(t *testing.T) {
	dir := t.TempDir()
	res := sampleResult(t)

	troughs := filepath.Join(dir, "troughs.png")
	require.NoError(t, TroughPlot(res, troughs))
	assertPNG(t, troughs)

	envPath := filepath.Join(dir, "env.png")
	require.NoError(t, EnvironmentPlot(res, envPath))
	assertPNG(t, envPath)

	ds := &dataset.Dataset{
		Time:    []float64{0, 1, 2, 3},
		Encoder: [][]float64{{0, -1, -2, -1}, {0, -1.2, -2.1, -0.9}},
	}
	profile := filepath.Join(dir, "profile.png")
	require.NoError(t, ProfilePlot(ds, "7", profile))
	assertPNG(t, profile)

	groups := []RingGroup{{Ring: "10", Means: []float64{54.0, 54.2}}, {Ring: "2", Means: []float64{53.9}}}
	SortRings(groups)
	assert.Equal(t, "2", groups[0].Ring)
	compare := filepath.Join(dir, "compare.png")
	require.NoError(t, ComparePlot(groups, compare))
	assertPNG(t, compare)
}

func TestPlotsWithoutData(t *testing.T) {
	dir := t.TempDir()
	res := &analysis.Result{Label: "x", Troughs: []float64{1, 2}, Temps: []float64{math.NaN(), math.NaN()}}
	err := EnvironmentPlot(res, filepath.Join(dir, "env.png"))
	assert.True(t, errors.Is(err, errs.ErrMissingData))

	err = ProfilePlot(&dataset.Dataset{Time: []float64{0}, Encoder: [][]float64{{1}}}, "x", filepath.Join(dir, "p.png"))
	assert.True(t, errors.Is(err, errs.ErrMissingData))

	_, statErr := os.Stat(filepath.Join(dir, "env.png"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestSortRings(t *testing.T) {
	groups := []RingGroup{{Ring: "b"}, {Ring: "33"}, {Ring: "4"}, {Ring: "a"}}
	SortRings(groups)
	got := make([]string, len(groups))
	for i, g := range groups {
		got[i] = g.Ring
	}
	assert.Equal(t, []string{"4", "33", "a", "b"}, got)
	assert.InDelta(t, 54.1, RingGroup{Means: []float64{54.0, math.NaN(), 54.2}}.Average(), 1e-9)
}

func assertPNG(t *testing.T, path string) {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, len(data) > 8)
	assert.Equal(t, "\x89PNG", string(data[:4]))
}
