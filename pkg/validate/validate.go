// Package validate runs structural and range checks over a location record
// stream.
//
// Validation is a gate, not a filter: it produces an itemized report and
// never mutates or drops records. Non-empty issues trigger a side-channel
// report but do not by themselves fail a job.
package validate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/3leaps/navconv/pkg/record"
)

// Issue is a single validation finding.
type Issue struct {
	// Index is the zero-based record index in the stream.
	Index int `json:"index"`

	// Field names the offending field when one applies.
	Field string `json:"field,omitempty"`

	// Reason describes the failure.
	Reason string `json:"reason"`

	// Warning marks non-fatal findings (e.g. timestamp regression).
	Warning bool `json:"warning,omitempty"`
}

// Report is the validation outcome for a record stream.
type Report struct {
	Valid   bool    `json:"valid"`
	Records int     `json:"records"`
	Issues  []Issue `json:"issues,omitempty"`
}

// Run validates the location JSONL stream from r.
//
// Checks per record: numeric timestamp present; latitude within ±90;
// longitude within ±180; altitude finite and numeric; satellite count a
// non-negative integer; hdop non-negative; timestamp regression versus the
// previous valid record (warning only).
func Run(ctx context.Context, r io.Reader) (*Report, error) {
	rep := &Report{Valid: true}
	dec := record.NewReader(r)

	var lastTS float64
	haveLast := false

	for idx := 0; ; idx++ {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		raw, err := dec.NextRaw()
		if errors.Is(err, io.EOF) {
			return rep, nil
		}
		if err != nil {
			return rep, err
		}
		rep.Records++

		var m map[string]any
		if err := json.Unmarshal(raw, &m); err != nil {
			rep.addError(idx, "", "record is not a JSON object")
			continue
		}

		ts, ok := checkRecord(rep, idx, m)
		if !ok {
			continue
		}
		if haveLast && ts < lastTS {
			rep.Issues = append(rep.Issues, Issue{
				Index:   idx,
				Field:   "timestamp_ms",
				Reason:  fmt.Sprintf("timestamp regression: %v < %v", ts, lastTS),
				Warning: true,
			})
		}
		lastTS = ts
		haveLast = true
	}
}

// checkRecord applies per-field checks. Returns the timestamp and whether
// the record was valid enough to participate in ordering checks.
func checkRecord(rep *Report, idx int, m map[string]any) (float64, bool) {
	ts, ok := m["timestamp_ms"].(float64)
	if !ok {
		rep.addError(idx, "timestamp_ms", "missing or non-numeric timestamp")
		return 0, false
	}

	valid := true
	if v, present := m["latitude"]; present {
		if lat, isNum := v.(float64); !isNum || lat < -90 || lat > 90 {
			rep.addError(idx, "latitude", fmt.Sprintf("latitude out of range [-90,90]: %v", v))
			valid = false
		}
	}
	if v, present := m["longitude"]; present {
		if lon, isNum := v.(float64); !isNum || lon < -180 || lon > 180 {
			rep.addError(idx, "longitude", fmt.Sprintf("longitude out of range [-180,180]: %v", v))
			valid = false
		}
	}
	if v, present := m["altitude"]; present {
		alt, isNum := v.(float64)
		if !isNum || math.IsNaN(alt) || math.IsInf(alt, 0) {
			rep.addError(idx, "altitude", fmt.Sprintf("altitude is not a finite number: %v", v))
			valid = false
		}
	}
	if v, present := m["num_satellites"]; present {
		n, isNum := v.(float64)
		if !isNum || n < 0 || n != math.Trunc(n) {
			rep.addError(idx, "num_satellites", fmt.Sprintf("satellite count must be a non-negative integer: %v", v))
			valid = false
		}
	}
	if v, present := m["hdop"]; present {
		h, isNum := v.(float64)
		if !isNum || h < 0 {
			rep.addError(idx, "hdop", fmt.Sprintf("hdop must be non-negative: %v", v))
			valid = false
		}
	}
	return ts, valid
}

func (r *Report) addError(idx int, field, reason string) {
	r.Valid = false
	r.Issues = append(r.Issues, Issue{Index: idx, Field: field, Reason: reason})
}
