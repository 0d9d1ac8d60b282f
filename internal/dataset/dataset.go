// Package dataset loads a directory of trial records and puts every encoder
// trace on one shared time base.
//
// Alignment works on the raw traces: each trial is shifted in time so that its
// first rebound trough coincides with the first trial's trough. The shifted
// traces are then linearly resampled onto a uniform grid that spans the first
// trial, with the first trial's mean sample interval as step.
package dataset

import (
	"math"
	"path/filepath"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/relabs-tech/ringdrop/internal/errs"
	"github.com/relabs-tech/ringdrop/internal/trial"
)

// Dataset is the aligned series matrix of one test directory.
type Dataset struct {
	Time    []float64   // shared grid, ms
	Encoder [][]float64 // one resampled row per trial, len(row) == len(Time)
	Temps   []float64   // per trial, NaN when not reported
	Hums    []float64   // per trial, NaN when not reported
	Files   []string    // file names in run order
}

// Trials returns the number of trials in the set.
func (d *Dataset) Trials() int { return len(d.Encoder) }

// Load reads every trial file in dir, ordered by run number, and aligns them.
func Load(dir string) (*Dataset, error) {
	files, err := trial.List(dir)
	if err != nil {
		return nil, err
	}

	recs := make([]trial.Record, len(files))
	for i, name := range files {
		rec, err := trial.Read(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		recs[i] = rec
	}

	return Build(recs, files)
}

// Build aligns already decoded records. files may be nil.
func Build(recs []trial.Record, files []string) (*Dataset, error) {
	if len(recs) == 0 {
		return nil, errors.Wrap(errs.ErrMissingData, "no trial records")
	}

	for i, rec := range recs {
		if len(rec.Encoder) == 0 {
			return nil, errors.Wrapf(errs.ErrMalformedRecord, "trial %d has no encoder samples", i+1)
		}
	}

	temps := make([]float64, len(recs))
	hums := make([]float64, len(recs))
	shifted := make([][]float64, len(recs))

	refTimes := recs[0].Times()
	refT0 := refTimes[TroughIndex(recs[0].Encoder)]

	for i, rec := range recs {
		temps[i] = rec.Temp
		hums[i] = rec.Hum

		t := rec.Times()
		offset := refT0 - t[TroughIndex(rec.Encoder)]
		for k := range t {
			t[k] += offset
		}
		shifted[i] = t
	}

	ref := shifted[0]
	if len(ref) < 2 {
		return nil, errors.Wrap(errs.ErrMalformedRecord, "first trial needs at least two samples to define a time step")
	}
	steps := make([]float64, len(ref)-1)
	floats.SubTo(steps, ref[1:], ref[:len(ref)-1])
	dt := stat.Mean(steps, nil)
	if !(dt > 0) || math.IsInf(dt, 0) {
		return nil, errors.Wrapf(errs.ErrMalformedRecord, "first trial has no positive time step (mean interval %v ms)", dt)
	}

	grid := Grid(floats.Min(ref), floats.Max(ref), dt)
	if len(grid) == 0 {
		return nil, errors.Wrap(errs.ErrMalformedRecord, "first trial spans no time")
	}

	matrix := make([][]float64, len(recs))
	for i, rec := range recs {
		matrix[i] = Interp(grid, shifted[i], rec.Encoder)
	}

	return &Dataset{
		Time:    grid,
		Encoder: matrix,
		Temps:   temps,
		Hums:    hums,
		Files:   files,
	}, nil
}

// Grid returns lo, lo+dt, ... up to but excluding hi.
func Grid(lo, hi, dt float64) []float64 {
	n := int(math.Ceil((hi - lo) / dt))
	if n <= 0 {
		return nil
	}
	g := make([]float64, n)
	for i := range g {
		g[i] = lo + float64(i)*dt
	}
	return g
}

// TroughIndex returns the index of the first local minimum that is followed
// by a rise: the first i where the discrete derivative goes from negative to
// non-negative, plus one. It returns 0 when there is no such transition.
func TroughIndex(series []float64) int {
	for i := 0; i+2 < len(series); i++ {
		if series[i+1]-series[i] < 0 && series[i+2]-series[i+1] >= 0 {
			return i + 1
		}
	}
	return 0
}
