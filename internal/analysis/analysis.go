// Package analysis implements the block-wise acceptance statistics for a
// ring-drop test.
//
// Trials are grouped into blocks of BlockSize consecutive runs, one block per
// physical rotation of the ring. Each block gets a robust center (the mean of
// its two most frequent rounded trough values); trials further than Tolerance
// from that center are excluded and the rest are averaged. The test passes
// the inter-block check when the block means lie within RangeTolerance of each
// other.
package analysis

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"

	"github.com/relabs-tech/ringdrop/internal/dataset"
	"github.com/relabs-tech/ringdrop/internal/errs"
)

const (
	// TempRangeTolerance is the largest accepted temperature spread over a
	// test, in °C (±0.5 °C).
	TempRangeTolerance = 1.0

	// ExclusionThresholdPct is the share of excluded trials above which the
	// whole test is considered invalid.
	ExclusionThresholdPct = 15.0
)

// Options controls one analysis run.
type Options struct {
	BlockSize      int     // trials per rotation
	Tolerance      float64 // per-trial inclusion radius around the block center, degrees
	RangeTolerance float64 // accepted max-min spread of block means, degrees
	EnablePlot     bool    // render diagnostic plots
	PlotDir        string  // where plots are written, "" for the data directory
}

// DefaultOptions are the values used on the apparatus.
func DefaultOptions() Options {
	return Options{
		BlockSize:      15,
		Tolerance:      0.3,
		RangeTolerance: 0.4,
		EnablePlot:     true,
	}
}

// Validate rejects settings the analysis cannot run with.
func (o Options) Validate() error {
	if o.BlockSize <= 0 {
		return errors.Wrapf(errs.ErrConfiguration, "block size must be > 0, got %d", o.BlockSize)
	}
	if !(o.Tolerance > 0) {
		return errors.Wrapf(errs.ErrConfiguration, "tolerance must be > 0, got %v", o.Tolerance)
	}
	if !(o.RangeTolerance >= 0) {
		return errors.Wrapf(errs.ErrConfiguration, "range tolerance must be >= 0, got %v", o.RangeTolerance)
	}
	return nil
}

// Environment holds the ambient diagnostics of a test.
type Environment struct {
	MeanTemp    float64 // °C, NaN if never reported
	MeanHum     float64 // % RH, NaN if never reported
	TempRange   float64 // max-min °C, NaN if never reported
	TempOK      bool
	ExcludedPct float64
	ExclusionOK bool
}

// Result is the full outcome of one analysis.
type Result struct {
	Label   string
	Files   []string
	Options Options

	Troughs []float64
	Temps   []float64
	Hums    []float64

	Blocks   []BlockStat
	Excluded []int // 1-based run numbers over all blocks

	OverallMean float64
	Range       float64
	RangeOK     bool

	Environment Environment
}

// Means returns the per-block means in block order.
func (r *Result) Means() []float64 {
	out := make([]float64, len(r.Blocks))
	for i, b := range r.Blocks {
		out[i] = b.Mean
	}
	return out
}

// Trials returns the number of analysed trials.
func (r *Result) Trials() int { return len(r.Troughs) }

// Run extracts the troughs of an aligned dataset and analyses them.
func Run(ds *dataset.Dataset, label string, opts Options) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if err := checkDivisible(ds.Trials(), opts.BlockSize); err != nil {
		return nil, err
	}

	res, err := Analyze(Troughs(ds.Encoder), ds.Temps, ds.Hums, opts)
	if err != nil {
		return nil, err
	}
	res.Label = label
	res.Files = ds.Files
	return res, nil
}

// Analyze runs the block statistics on trough values. temps and hums are per
// trial and may be nil.
func Analyze(troughs, temps, hums []float64, opts Options) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if len(troughs) == 0 {
		return nil, errors.Wrap(errs.ErrMissingData, "no trough values")
	}
	if err := checkDivisible(len(troughs), opts.BlockSize); err != nil {
		return nil, err
	}

	res := &Result{
		Options: opts,
		Troughs: troughs,
		Temps:   temps,
		Hums:    hums,
	}

	nBlocks := len(troughs) / opts.BlockSize
	for b := 0; b < nBlocks; b++ {
		start := b * opts.BlockSize
		bs := ComputeBlock(troughs[start:start+opts.BlockSize], start, opts.Tolerance)
		bs.Index = b
		res.Blocks = append(res.Blocks, bs)
		res.Excluded = append(res.Excluded, bs.Excluded...)
	}

	res.RangeOK, res.Range = CheckBlockVariation(res.Means(), opts.RangeTolerance)
	res.OverallMean = NanMean(res.Means())
	res.Environment = Diagnose(temps, hums, len(res.Excluded), len(troughs))
	return res, nil
}

// Diagnose computes the ambient diagnostics.
func Diagnose(temps, hums []float64, excluded, trials int) Environment {
	env := Environment{
		MeanTemp:  NanMean(temps),
		MeanHum:   NanMean(hums),
		TempRange: math.NaN(),
	}
	if ft := Finite(temps); len(ft) > 0 {
		env.TempRange = floats.Max(ft) - floats.Min(ft)
	}
	env.TempOK = env.TempRange <= TempRangeTolerance

	if trials > 0 {
		env.ExcludedPct = 100 * float64(excluded) / float64(trials)
	}
	env.ExclusionOK = env.ExcludedPct <= ExclusionThresholdPct
	return env
}

func checkDivisible(trials, blockSize int) error {
	if trials%blockSize != 0 {
		return errors.Wrapf(errs.ErrConfiguration,
			"number of trials (%d) must be a multiple of block size %d", trials, blockSize)
	}
	return nil
}
