package acquisition

import (
	"context"
	"encoding/json"
	"log"
	"math"
	"time"

	"github.com/pkg/errors"

	"github.com/relabs-tech/ringdrop/internal/dataset"
	"github.com/relabs-tech/ringdrop/internal/env"
	"github.com/relabs-tech/ringdrop/internal/trial"
)

// TrialEvent describes one stored trial.
type TrialEvent struct {
	Run    int       `json:"run"`   // 1-based
	Total  int       `json:"total"` // last run of the current acquisition
	File   string    `json:"file"`
	Trough float64   `json:"trough"` // first trough of the raw trace, degrees
	Temp   float64   `json:"temp"`
	Hum    float64   `json:"hum"`
	Time   time.Time `json:"time"`
}

// Observer is told about every trial once it is on disk.
type Observer interface {
	TrialStored(ev TrialEvent)
}

// EnvReader supplies ambient readings when the apparatus sends none.
type EnvReader interface {
	ReadEnv() (env.Sample, error)
}

// PauseFunc runs between rotations of a series; rotation is the one that just
// finished. Returning an error aborts the series.
type PauseFunc func(ctx context.Context, rotation, rotations int) error

// Session stores trials for one ring under Dir/<Base>_<run>.json.
type Session struct {
	Device    *Device
	Dir       string
	Base      string
	Env       EnvReader // optional
	Observers []Observer

	total int
}

// Acquire runs trials start+1 .. stop (1-based run numbers), one START per
// trial, and stores each record as soon as it arrives.
func (s *Session) Acquire(ctx context.Context, start, stop int) error {
	if s.total < stop {
		s.total = stop
	}

	for i := start; i < stop; i++ {
		run := i + 1
		name := trial.FileName(s.Base, run)

		s.Device.DiscardInput()
		if err := s.Device.Send(CmdStart); err != nil {
			return err
		}
		log.Printf("acquire: test #%d (%s): START sent, waiting for JSON", run, name)

		raw, rec, err := s.Device.ReadRecord(ctx)
		if err != nil {
			return errors.Wrapf(err, "test #%d", run)
		}
		raw, rec = s.fillEnv(raw, rec)

		path, err := trial.Store(s.Dir, name, raw)
		if err != nil {
			return errors.Wrapf(err, "test #%d", run)
		}
		log.Printf("acquire: stored raw data in %s", path)

		ev := TrialEvent{
			Run:    run,
			Total:  s.total,
			File:   name,
			Trough: math.Abs(rec.Encoder[dataset.TroughIndex(rec.Encoder)]),
			Temp:   rec.Temp,
			Hum:    rec.Hum,
			Time:   time.Now(),
		}
		for _, o := range s.Observers {
			o.TrialStored(ev)
		}
	}
	return nil
}

// RunSeries acquires rotations × perRotation trials, calling pause between
// rotations so the operator can turn the ring.
func (s *Session) RunSeries(ctx context.Context, perRotation, rotations int, pause PauseFunc) error {
	s.total = perRotation * rotations

	idx := 0
	for rot := 1; rot <= rotations; rot++ {
		log.Printf("acquire: === start rotation %d/%d ===", rot, rotations)
		next := idx + perRotation
		if err := s.Acquire(ctx, idx, next); err != nil {
			return err
		}
		idx = next

		if rot < rotations && pause != nil {
			if err := pause(ctx, rot, rotations); err != nil {
				return err
			}
		}
	}
	log.Printf("acquire: all %d tests done", s.total)
	return nil
}

// fillEnv adds host temp/hum to a record that arrived without them.
func (s *Session) fillEnv(raw []byte, rec trial.Record) ([]byte, trial.Record) {
	if s.Env == nil || (!math.IsNaN(rec.Temp) && !math.IsNaN(rec.Hum)) {
		return raw, rec
	}

	sample, err := s.Env.ReadEnv()
	if err != nil {
		log.Printf("acquire: host env read error: %v", err)
		return raw, rec
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return raw, rec
	}
	if math.IsNaN(rec.Temp) {
		rec.Temp = sample.Temperature
		obj["temp"] = singleton(sample.Temperature)
	}
	if math.IsNaN(rec.Hum) {
		rec.Hum = sample.Humidity
		obj["hum"] = singleton(sample.Humidity)
	}

	patched, err := json.Marshal(obj)
	if err != nil {
		return raw, rec
	}
	return patched, rec
}

func singleton(v float64) json.RawMessage {
	b, _ := json.Marshal([]float64{v})
	return b
}
