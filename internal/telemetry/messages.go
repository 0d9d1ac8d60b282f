// Package telemetry publishes acquisition progress and analysis summaries
// over MQTT so the console and web front-ends can follow a test live.
package telemetry

import (
	"math"
	"time"

	"github.com/relabs-tech/ringdrop/internal/acquisition"
	"github.com/relabs-tech/ringdrop/internal/analysis"
)

// TrialMessage is published once per stored trial. Missing readings are null.
type TrialMessage struct {
	Run    int       `json:"run"`
	Total  int       `json:"total"`
	File   string    `json:"file"`
	Trough *float64  `json:"trough"`
	Temp   *float64  `json:"temp"`
	Hum    *float64  `json:"hum"`
	Time   time.Time `json:"time"`
}

// BlockMessage is one block of a SummaryMessage.
type BlockMessage struct {
	Index    int      `json:"index"`
	FirstRun int      `json:"first_run"`
	LastRun  int      `json:"last_run"`
	Center   *float64 `json:"center"`
	Mean     *float64 `json:"mean"`
	Excluded []int    `json:"excluded"`
}

// SummaryMessage is published once an analysis has finished.
type SummaryMessage struct {
	Label       string         `json:"label"`
	Trials      int            `json:"trials"`
	BlockSize   int            `json:"block_size"`
	Tolerance   float64        `json:"tolerance"`
	RangeTol    float64        `json:"range_tolerance"`
	Blocks      []BlockMessage `json:"blocks"`
	Excluded    []int          `json:"excluded"`
	OverallMean *float64       `json:"overall_mean"`
	Range       *float64       `json:"range"`
	RangeOK     bool           `json:"range_ok"`

	MeanTemp    *float64 `json:"mean_temp"`
	MeanHum     *float64 `json:"mean_hum"`
	TempRange   *float64 `json:"temp_range"`
	TempOK      bool     `json:"temp_ok"`
	ExcludedPct float64  `json:"excluded_pct"`
	ExclusionOK bool     `json:"exclusion_ok"`

	Troughs []*float64 `json:"troughs"`
}

// num maps NaN and ±Inf to nil; encoding/json refuses them.
func num(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// FromEvent converts an acquisition event.
func FromEvent(ev acquisition.TrialEvent) TrialMessage {
	return TrialMessage{
		Run:    ev.Run,
		Total:  ev.Total,
		File:   ev.File,
		Trough: num(ev.Trough),
		Temp:   num(ev.Temp),
		Hum:    num(ev.Hum),
		Time:   ev.Time,
	}
}

// FromResult converts an analysis result.
func FromResult(res *analysis.Result) SummaryMessage {
	msg := SummaryMessage{
		Label:       res.Label,
		Trials:      res.Trials(),
		BlockSize:   res.Options.BlockSize,
		Tolerance:   res.Options.Tolerance,
		RangeTol:    res.Options.RangeTolerance,
		Excluded:    append([]int{}, res.Excluded...),
		OverallMean: num(res.OverallMean),
		Range:       num(res.Range),
		RangeOK:     res.RangeOK,

		MeanTemp:    num(res.Environment.MeanTemp),
		MeanHum:     num(res.Environment.MeanHum),
		TempRange:   num(res.Environment.TempRange),
		TempOK:      res.Environment.TempOK,
		ExcludedPct: res.Environment.ExcludedPct,
		ExclusionOK: res.Environment.ExclusionOK,
	}

	for _, b := range res.Blocks {
		msg.Blocks = append(msg.Blocks, BlockMessage{
			Index:    b.Index,
			FirstRun: b.FirstRun,
			LastRun:  b.LastRun,
			Center:   num(b.Center),
			Mean:     num(b.Mean),
			Excluded: append([]int{}, b.Excluded...),
		})
	}
	for _, v := range res.Troughs {
		msg.Troughs = append(msg.Troughs, num(v))
	}
	return msg
}
