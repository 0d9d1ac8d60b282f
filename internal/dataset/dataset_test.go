package dataset

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/ringdrop/internal/errs"
	"github.com/relabs-tech/ringdrop/internal/trial"
)

func TestTroughIndex(t *testing.T) {
	tests := []struct {
		name   string
		series []float64
		want   int
	}{
		{"first rebound", []float64{0, -1, -2, -1, 0, 1}, 2},
		{"flat bottom counts as rise", []float64{3, 2, 2, 5}, 1},
		{"monotone falling", []float64{5, 4, 3, 2}, 0},
		{"monotone rising", []float64{1, 2, 3}, 0},
		{"too short", []float64{1, 0}, 0},
		{"empty", nil, 0},
		{"second dip ignored", []float64{0, -1, 0, -5, 0}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TroughIndex(tt.series))
		})
	}
}

func TestGrid(t *testing.T) {
	assert.Equal(t, []float64{0, 1, 2, 3, 4}, Grid(0, 5, 1))
	assert.Equal(t, []float64{0, 2, 4}, Grid(0, 5, 2))
	assert.Empty(t, Grid(3, 3, 1))
}

func TestInterpRoundTrip(t *testing.T) {
	tms := []float64{0, 2, 4, 6, 8, 10}
	enc := []float64{0, -1.5, -3, -2, 0.5, 1}

	grid := Grid(0, 10, 2)
	got := Interp(grid, tms, enc)
	require.Len(t, got, len(grid))
	for i := range got {
		assert.InDelta(t, enc[i], got[i], 1e-9)
	}
}

func TestInterpClampsAndMidpoints(t *testing.T) {
	got := Interp([]float64{-5, 0.5, 1.5, 99}, []float64{0, 1, 2}, []float64{10, 20, 40})
	assert.InDeltaSlice(t, []float64{10, 15, 30, 40}, got, 1e-9)
}

func TestInterpUnorderedTimes(t *testing.T) {
	// A repeated axis: 0,1,2,0,1 keeps the first sample of each stamp.
	got := Interp([]float64{0, 0.5, 2}, []float64{0, 1, 2, 0, 1}, []float64{0, 2, 4, 100, 100})
	assert.InDeltaSlice(t, []float64{0, 1, 4}, got, 1e-9)
}

func TestInterpSinglePoint(t *testing.T) {
	got := Interp([]float64{0, 1, 2}, []float64{5}, []float64{7})
	assert.Equal(t, []float64{7, 7, 7}, got)
}

func TestBuildAlignsTroughs(t *testing.T) {
	first := []float64{0, -1, -2, -3, -2, -1, 0, 1, 2, 3}
	late := []float64{0, 0, 0, -1, -2, -3, -2, -1, 0, 1}

	recs := []trial.Record{
		{Encoder: first, Temp: 21, Hum: 40},
		{Encoder: late, Temp: 21.5, Hum: math.NaN()},
	}
	ds, err := Build(recs, []string{"a_1.json", "a_2.json"})
	require.NoError(t, err)

	assert.Equal(t, Grid(0, 9, 1), ds.Time)
	require.Equal(t, 2, ds.Trials())
	assert.InDeltaSlice(t, ds.Encoder[0][:8], ds.Encoder[1][:8], 1e-9)
	assert.Equal(t, 3, TroughIndex(ds.Encoder[0]))
	assert.Equal(t, 3, TroughIndex(ds.Encoder[1]))
	assert.Equal(t, 21.5, ds.Temps[1])
	assert.True(t, math.IsNaN(ds.Hums[1]))
}

func TestBuildRejectsDegenerateReference(t *testing.T) {
	_, err := Build([]trial.Record{{Encoder: []float64{1}}}, nil)
	assert.True(t, errors.Is(err, errs.ErrMalformedRecord))

	_, err = Build([]trial.Record{{Encoder: []float64{1, 2, 3}, TestTimeMs: []float64{5, 5, 5}}}, nil)
	assert.True(t, errors.Is(err, errs.ErrMalformedRecord))

	_, err = Build(nil, nil)
	assert.True(t, errors.Is(err, errs.ErrMissingData))

	assert.NotPanics(t, func() {
		_, err = Build([]trial.Record{{Encoder: []float64{0, -1, 0}}, {}}, nil)
	})
	assert.True(t, errors.Is(err, errs.ErrMalformedRecord))

	assert.NotPanics(t, func() {
		_, err = Build([]trial.Record{{}}, nil)
	})
	assert.True(t, errors.Is(err, errs.ErrMalformedRecord))
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	series := [][]float64{
		{0, -1, -2, -1, 0, 1},
		{0, 0, -1, -2, -1, 0},
		{0, -2, -4, -2, 0, 2},
	}
	// Written out of order on purpose; run numbers decide.
	for _, run := range []int{3, 1, 2} {
		rec := trial.Record{
			Encoder:    series[run-1],
			TestTimeMs: []float64{0, 10, 20, 30, 40, 50},
			Temp:       20 + float64(run),
			Hum:        math.NaN(),
		}
		data, err := json.Marshal(rec)
		require.NoError(t, err)
		name := fmt.Sprintf("20250101_ring9_test_%d.json", run)
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0o644))
	}

	ds, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"20250101_ring9_test_1.json",
		"20250101_ring9_test_2.json",
		"20250101_ring9_test_3.json",
	}, ds.Files)
	assert.Equal(t, []float64{21, 22, 23}, ds.Temps)
	assert.Equal(t, []float64{0, 10, 20, 30, 40}, ds.Time)
	for _, row := range ds.Encoder {
		assert.Len(t, row, len(ds.Time))
	}
}

func TestLoadMissingData(t *testing.T) {
	_, err := Load(t.TempDir())
	assert.True(t, errors.Is(err, errs.ErrMissingData))
}

func TestLoadMalformedFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "t_1.json"), []byte(`{"encoder":[1,2`), 0o644))
	_, err := Load(dir)
	assert.True(t, errors.Is(err, errs.ErrMalformedRecord))
}
