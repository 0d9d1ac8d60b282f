package analysis

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/relabs-tech/ringdrop/internal/dataset"
)

// BlockStat is the outcome of filtering one rotation block.
type BlockStat struct {
	Index    int     // 0-based block number
	FirstRun int     // 1-based run number of the first trial in the block
	LastRun  int     // 1-based run number of the last trial in the block
	Center   float64 // robust center, NaN if the block has no finite value
	Mean     float64 // mean of included raw values, NaN if none included
	Included []bool  // per trial in the block
	Excluded []int   // 1-based run numbers, relative to the whole test
}

// Troughs returns |row[TroughIndex(row)]| for every resampled row.
func Troughs(matrix [][]float64) []float64 {
	out := make([]float64, len(matrix))
	for i, row := range matrix {
		if len(row) == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = math.Abs(row[dataset.TroughIndex(row)])
	}
	return out
}

// round1 rounds to one decimal, halves to even, like numpy's round.
func round1(v float64) float64 {
	return math.RoundToEven(v*10) / 10
}

// BlockCenter is the mean of the two most frequent values after rounding to
// one decimal. Frequency ties go to the smaller value. A block with a single
// distinct value returns that value; a block without finite values returns
// NaN.
func BlockCenter(values []float64) float64 {
	counts := make(map[float64]int)
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		counts[round1(v)]++
	}
	if len(counts) == 0 {
		return math.NaN()
	}

	modes := make([]float64, 0, len(counts))
	for v := range counts {
		modes = append(modes, v)
	}
	sort.Slice(modes, func(i, j int) bool {
		ci, cj := counts[modes[i]], counts[modes[j]]
		if ci != cj {
			return ci > cj
		}
		return modes[i] < modes[j]
	})

	second := modes[0]
	if len(modes) > 1 {
		second = modes[1]
	}
	return (modes[0] + second) / 2
}

// ComputeBlock filters one block of trough values. offset is the number of
// trials that precede the block and turns block positions into run numbers.
// A trial is kept when |value - center| <= tol.
func ComputeBlock(values []float64, offset int, tol float64) BlockStat {
	bs := BlockStat{
		FirstRun: offset + 1,
		LastRun:  offset + len(values),
		Center:   BlockCenter(values),
		Included: make([]bool, len(values)),
	}

	kept := make([]float64, 0, len(values))
	for i, v := range values {
		if math.Abs(v-bs.Center) <= tol {
			bs.Included[i] = true
			kept = append(kept, v)
			continue
		}
		bs.Excluded = append(bs.Excluded, offset+i+1)
	}

	bs.Mean = math.NaN()
	if len(kept) > 0 {
		bs.Mean = stat.Mean(kept, nil)
	}
	return bs
}

// CheckBlockVariation reports whether max(means)-min(means) is within
// rangeTol, along with that range. A NaN block mean fails the check.
func CheckBlockVariation(means []float64, rangeTol float64) (bool, float64) {
	if len(means) == 0 || floats.HasNaN(means) {
		return false, math.NaN()
	}
	rng := floats.Max(means) - floats.Min(means)
	return rng <= rangeTol, rng
}

// NanMean averages the finite entries of vs and returns NaN if there are none.
func NanMean(vs []float64) float64 {
	finite := Finite(vs)
	if len(finite) == 0 {
		return math.NaN()
	}
	return stat.Mean(finite, nil)
}

// Finite returns the entries of vs that are neither NaN nor infinite.
func Finite(vs []float64) []float64 {
	out := make([]float64, 0, len(vs))
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		out = append(out, v)
	}
	return out
}
