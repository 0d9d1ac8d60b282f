package report

import (
	"image/color"
	"math"
	"sort"
	"strconv"

	"github.com/pkg/errors"
	"golang.org/x/image/colornames"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/relabs-tech/ringdrop/internal/analysis"
	"github.com/relabs-tech/ringdrop/internal/dataset"
	"github.com/relabs-tech/ringdrop/internal/errs"
)

const (
	plotWidth  = 18 * vg.Centimeter
	plotHeight = 12 * vg.Centimeter
)

var dashed = []vg.Length{vg.Points(4), vg.Points(3)}

// RunColour maps run i of n onto a red → yellow → green gradient, first run
// red and last run green.
func RunColour(i, n int) color.RGBA {
	if n <= 1 {
		return colornames.Firebrick
	}
	f := float64(i) / float64(n-1)
	if f < 0.5 {
		return lerp(colornames.Firebrick, colornames.Gold, f*2)
	}
	return lerp(colornames.Gold, colornames.Forestgreen, (f-0.5)*2)
}

func lerp(a, b color.RGBA, f float64) color.RGBA {
	mix := func(x, y uint8) uint8 { return uint8(math.Round(float64(x) + (float64(y)-float64(x))*f)) }
	return color.RGBA{R: mix(a.R, b.R), G: mix(a.G, b.G), B: mix(a.B, b.B), A: 255}
}

func dot(c color.Color) draw.GlyphStyle {
	return draw.GlyphStyle{Color: c, Radius: vg.Points(3), Shape: draw.CircleGlyph{}}
}

// legendDot is a scatter used only for its legend thumbnail.
func legendDot(c color.Color) (*plotter.Scatter, error) {
	s, err := plotter.NewScatter(plotter.XYs{{X: 0, Y: 0}})
	if err != nil {
		return nil, err
	}
	s.GlyphStyle = dot(c)
	return s, nil
}

// TroughPlot draws one point per run (colour by order, grey when excluded)
// and a dashed line at each block center.
func TroughPlot(res *analysis.Result, path string) error {
	p := plot.New()
	p.Title.Text = res.Label + ": test result"
	p.X.Label.Text = "Test #"
	p.Y.Label.Text = "Angle [°]"
	p.BackgroundColor = colornames.Snow
	p.Add(plotter.NewGrid())

	excluded := make(map[int]bool, len(res.Excluded))
	for _, r := range res.Excluded {
		excluded[r] = true
	}

	n := len(res.Troughs)
	var pts plotter.XYs
	var runs []int
	for i, v := range res.Troughs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		pts = append(pts, plotter.XY{X: float64(i + 1), Y: v})
		runs = append(runs, i+1)
	}
	if len(pts) == 0 {
		return errors.Wrap(errs.ErrMissingData, "no finite trough values to plot")
	}

	sc, err := plotter.NewScatter(pts)
	if err != nil {
		return errors.Wrap(err, "trough scatter")
	}
	sc.GlyphStyleFunc = func(i int) draw.GlyphStyle {
		run := runs[i]
		if excluded[run] {
			return dot(colornames.Grey)
		}
		return dot(RunColour(run-1, n))
	}
	p.Add(sc)

	var centerLine *plotter.Line
	for _, bs := range res.Blocks {
		if math.IsNaN(bs.Center) {
			continue
		}
		l, err := plotter.NewLine(plotter.XYs{
			{X: float64(bs.FirstRun) - 0.5, Y: bs.Center},
			{X: float64(bs.LastRun) + 0.5, Y: bs.Center},
		})
		if err != nil {
			return errors.Wrap(err, "block center line")
		}
		l.Color = color.Black
		l.Dashes = dashed
		p.Add(l)
		if centerLine == nil {
			centerLine = l
		}
	}

	first, err := legendDot(RunColour(0, n))
	if err != nil {
		return err
	}
	last, err := legendDot(RunColour(n-1, n))
	if err != nil {
		return err
	}
	grey, err := legendDot(colornames.Grey)
	if err != nil {
		return err
	}
	p.Legend.Add("first test", first)
	p.Legend.Add("last test", last)
	p.Legend.Add("excluded ("+strconv.FormatFloat(res.Environment.ExcludedPct, 'f', 1, 64)+" %)", grey)
	if centerLine != nil {
		p.Legend.Add("block center", centerLine)
	}
	p.Legend.Top = true
	p.Legend.Left = true

	// headroom for the legend
	p.Y.Max += 2

	return errors.Wrap(p.Save(plotWidth, plotHeight, path), "save trough plot")
}

// EnvironmentPlot draws temperature and humidity per run. It returns
// errs.ErrMissingData when no trial reported either.
func EnvironmentPlot(res *analysis.Result, path string) error {
	p := plot.New()
	p.Title.Text = res.Label + ": environment"
	p.X.Label.Text = "Test #"
	p.Y.Label.Text = "Temp [°C] / RH [%]"
	p.Add(plotter.NewGrid())

	added := 0
	for _, s := range []struct {
		name   string
		values []float64
		colour color.RGBA
	}{
		{"relative humidity (%)", res.Hums, colornames.Black},
		{"temperature (°C)", res.Temps, colornames.Blue},
	} {
		var pts plotter.XYs
		for i, v := range s.values {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			pts = append(pts, plotter.XY{X: float64(i + 1), Y: v})
		}
		if len(pts) == 0 {
			continue
		}
		l, err := plotter.NewLine(pts)
		if err != nil {
			return errors.Wrap(err, s.name)
		}
		l.Color = s.colour
		l.Dashes = dashed
		p.Add(l)
		p.Legend.Add(s.name, l)
		added++
	}
	if added == 0 {
		return errors.Wrap(errs.ErrMissingData, "no temperature or humidity readings")
	}
	p.Legend.Top = true

	return errors.Wrap(p.Save(plotWidth, plotHeight, path), "save environment plot")
}

// Profile returns the per-sample mean and population standard deviation of
// the aligned encoder matrix, ignoring NaN cells.
func Profile(ds *dataset.Dataset) (mean, sd []float64) {
	mean = make([]float64, len(ds.Time))
	sd = make([]float64, len(ds.Time))
	col := make([]float64, 0, ds.Trials())
	for k := range ds.Time {
		col = col[:0]
		for _, row := range ds.Encoder {
			if v := row[k]; !math.IsNaN(v) {
				col = append(col, v)
			}
		}
		switch len(col) {
		case 0:
			mean[k], sd[k] = math.NaN(), math.NaN()
		case 1:
			mean[k], sd[k] = col[0], 0
		default:
			mean[k], sd[k] = stat.PopMeanStdDev(col, nil)
		}
	}
	return mean, sd
}

// ProfilePlot draws the mean angle profile with a ±1 SD band.
func ProfilePlot(ds *dataset.Dataset, label, path string) error {
	if ds.Trials() < 2 {
		return errors.Wrap(errs.ErrMissingData, "profile plot needs at least two trials")
	}
	mean, sd := Profile(ds)

	var line, upper, lower plotter.XYs
	for k, t := range ds.Time {
		if math.IsNaN(mean[k]) {
			continue
		}
		line = append(line, plotter.XY{X: t, Y: mean[k]})
		upper = append(upper, plotter.XY{X: t, Y: mean[k] + sd[k]})
		lower = append(lower, plotter.XY{X: t, Y: mean[k] - sd[k]})
	}
	if len(line) == 0 {
		return errors.Wrap(errs.ErrMissingData, "empty profile")
	}

	band := make(plotter.XYs, 0, 2*len(upper))
	band = append(band, upper...)
	for i := len(lower) - 1; i >= 0; i-- {
		band = append(band, lower[i])
	}

	p := plot.New()
	p.Title.Text = "Ring " + label + ": mean angle profile"
	p.X.Label.Text = "Time [ms]"
	p.Y.Label.Text = "Angle [°]"
	p.Add(plotter.NewGrid())

	poly, err := plotter.NewPolygon(band)
	if err != nil {
		return errors.Wrap(err, "sd band")
	}
	poly.Color = color.RGBA{R: 31, G: 119, B: 180, A: 70}
	poly.LineStyle.Width = 0
	p.Add(poly)

	l, err := plotter.NewLine(line)
	if err != nil {
		return errors.Wrap(err, "mean line")
	}
	l.Color = colornames.Steelblue
	l.Width = vg.Points(1.5)
	p.Add(l)
	p.Legend.Add(label+" (mean ± 1 SD)", l)

	return errors.Wrap(p.Save(plotWidth, plotHeight, path), "save profile plot")
}

// RingGroup holds the overall means of all tests of one ring.
type RingGroup struct {
	Ring  string
	Means []float64
}

// Average is the mean over the finite results of the ring.
func (g RingGroup) Average() float64 {
	return analysis.NanMean(g.Means)
}

// SortRings orders groups by ring id, numerically when both ids are numbers.
func SortRings(groups []RingGroup) {
	sort.SliceStable(groups, func(i, j int) bool {
		a, errA := strconv.Atoi(groups[i].Ring)
		b, errB := strconv.Atoi(groups[j].Ring)
		if errA == nil && errB == nil {
			return a < b
		}
		if (errA == nil) != (errB == nil) {
			return errA == nil
		}
		return groups[i].Ring < groups[j].Ring
	})
}

// ComparePlot draws every result per ring (labelled with its round number)
// and the ring average as a cross. groups must already be sorted.
func ComparePlot(groups []RingGroup, path string) error {
	p := plot.New()
	p.Title.Text = "Ring comparison"
	p.X.Label.Text = "Ring"
	p.Y.Label.Text = "Δθ [°]"
	p.Add(plotter.NewGrid())

	var pts, avgs plotter.XYs
	var labels []string
	names := make([]string, len(groups))
	for x, g := range groups {
		names[x] = g.Ring
		for round, m := range g.Means {
			if math.IsNaN(m) || math.IsInf(m, 0) {
				continue
			}
			pts = append(pts, plotter.XY{X: float64(x), Y: m})
			labels = append(labels, strconv.Itoa(round+1))
		}
		if avg := g.Average(); !math.IsNaN(avg) {
			avgs = append(avgs, plotter.XY{X: float64(x), Y: avg})
		}
	}
	if len(pts) == 0 {
		return errors.Wrap(errs.ErrMissingData, "no finite ring results to compare")
	}

	sc, err := plotter.NewScatter(pts)
	if err != nil {
		return errors.Wrap(err, "results")
	}
	sc.GlyphStyle = dot(colornames.Steelblue)
	p.Add(sc)
	p.Legend.Add("single results", sc)

	avg, err := plotter.NewScatter(avgs)
	if err != nil {
		return errors.Wrap(err, "averages")
	}
	avg.GlyphStyle = draw.GlyphStyle{Color: colornames.Indianred, Radius: vg.Points(4), Shape: draw.CrossGlyph{}}
	p.Add(avg)
	p.Legend.Add("average", avg)

	lbl, err := plotter.NewLabels(plotter.XYLabels{XYs: pts, Labels: labels})
	if err != nil {
		return errors.Wrap(err, "round labels")
	}
	lbl.Offset = vg.Point{X: vg.Points(4), Y: vg.Points(-6)}
	p.Add(lbl)

	p.NominalX(names...)

	return errors.Wrap(p.Save(plotWidth, plotHeight, path), "save compare plot")
}
