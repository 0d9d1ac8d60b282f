package trial

import (
	"bytes"
	"encoding/json"
	"math"

	"github.com/pkg/errors"

	"github.com/relabs-tech/ringdrop/internal/errs"
)

// Record is one drop/rebound measurement as sent by the apparatus.
//
// On the wire the fields are loosely typed: "encoder" may be a scalar,
// "test_time_ms" may be missing, and "temp"/"hum" arrive either as a number
// or as a one-element list. Record normalises all of that on decode.
type Record struct {
	Encoder    []float64 // angle samples, degrees
	TestTimeMs []float64 // nil when the device sent no usable time axis
	Temp       float64   // °C, NaN when absent
	Hum        float64   // % RH, NaN when absent
}

type wireRecord struct {
	Encoder    json.RawMessage `json:"encoder"`
	TestTimeMs json.RawMessage `json:"test_time_ms"`
	Temp       json.RawMessage `json:"temp"`
	Hum        json.RawMessage `json:"hum"`
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *Record) UnmarshalJSON(data []byte) error {
	var w wireRecord
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	enc, err := decodeSeries(w.Encoder)
	if err != nil {
		return errors.Wrap(err, "encoder")
	}
	ts, err := decodeSeries(w.TestTimeMs)
	if err != nil {
		return errors.Wrap(err, "test_time_ms")
	}
	temp, err := decodeReading(w.Temp)
	if err != nil {
		return errors.Wrap(err, "temp")
	}
	hum, err := decodeReading(w.Hum)
	if err != nil {
		return errors.Wrap(err, "hum")
	}

	*r = Record{Encoder: enc, TestTimeMs: ts, Temp: temp, Hum: hum}
	return nil
}

// MarshalJSON writes the record in the device's own layout, with temp and
// hum as singleton lists. NaN readings are left out.
func (r Record) MarshalJSON() ([]byte, error) {
	out := struct {
		Encoder    []float64 `json:"encoder"`
		TestTimeMs []float64 `json:"test_time_ms,omitempty"`
		Temp       []float64 `json:"temp,omitempty"`
		Hum        []float64 `json:"hum,omitempty"`
	}{
		Encoder:    r.Encoder,
		TestTimeMs: r.TestTimeMs,
	}
	if !math.IsNaN(r.Temp) {
		out.Temp = []float64{r.Temp}
	}
	if !math.IsNaN(r.Hum) {
		out.Hum = []float64{r.Hum}
	}
	return json.Marshal(out)
}

// Parse decodes one device JSON object and checks that it carries at least
// one encoder sample. Failures wrap errs.ErrMalformedRecord.
func Parse(data []byte) (Record, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return Record{}, errors.Wrapf(errs.ErrMalformedRecord, "decode: %v", err)
	}
	if len(r.Encoder) == 0 {
		return Record{}, errors.Wrap(errs.ErrMalformedRecord, "no encoder samples")
	}
	return r, nil
}

// Times returns the time axis in milliseconds, one entry per encoder sample.
// A missing axis becomes the sample index; an axis of the wrong length is
// truncated or repeated cyclically to fit.
func (r Record) Times() []float64 {
	n := len(r.Encoder)
	t := make([]float64, n)
	if len(r.TestTimeMs) == 0 {
		for i := range t {
			t[i] = float64(i)
		}
		return t
	}
	for i := range t {
		t[i] = r.TestTimeMs[i%len(r.TestTimeMs)]
	}
	return t
}

// decodeSeries accepts a number or an array of numbers. Null, absent and
// empty arrays decode to nil.
func decodeSeries(raw json.RawMessage) ([]float64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	if raw[0] == '[' {
		var vs []float64
		if err := json.Unmarshal(raw, &vs); err != nil {
			return nil, err
		}
		if len(vs) == 0 {
			return nil, nil
		}
		return vs, nil
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return []float64{v}, nil
}

// decodeReading accepts a number or a list whose first element is used.
func decodeReading(raw json.RawMessage) (float64, error) {
	vs, err := decodeSeries(raw)
	if err != nil {
		return math.NaN(), err
	}
	if len(vs) == 0 {
		return math.NaN(), nil
	}
	return vs[0], nil
}
