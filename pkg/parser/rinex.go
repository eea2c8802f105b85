package parser

import (
	"context"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/3leaps/navconv/pkg/record"
)

// RINEX parses RINEX 3 observation files.
//
// Header lines are skipped until the END OF HEADER marker. Epoch lines
// (prefixed '>') flush the prior epoch's satellite observation map and open
// a new one; observation lines contribute satellite-system + PRN + numeric
// observation values to the open epoch. Per-line failures increment the
// error counter without aborting; the caller escalates when the pass saw
// zero epochs or any error.
type RINEX struct{}

const rinexEndOfHeader = "END OF HEADER"

func (p *RINEX) Parse(ctx context.Context, r io.Reader, w *record.Writer) (Stats, error) {
	var stats Stats
	it := newLineIter(r)

	headerDone := false
	var epoch *record.Intermediate

	flush := func() error {
		if epoch == nil {
			return nil
		}
		n := len(epoch.Satellites)
		epoch.SatelliteCount = record.Int(n)
		if err := w.Write(epoch); err != nil {
			return err
		}
		stats.Records++
		epoch = nil
		return nil
	}

	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		line, _, ok, err := it.Next()
		if err != nil {
			return stats, err
		}
		if !ok {
			if err := flush(); err != nil {
				return stats, err
			}
			return stats, nil
		}
		s := string(line)

		if !headerDone {
			if strings.Contains(s, rinexEndOfHeader) {
				headerDone = true
			}
			continue
		}
		if strings.TrimSpace(s) == "" {
			continue
		}
		stats.Lines++

		if strings.HasPrefix(s, ">") {
			if err := flush(); err != nil {
				return stats, err
			}
			next, perr := parseEpochLine(s)
			if perr {
				stats.Errors++
				continue
			}
			epoch = next
			continue
		}

		if epoch == nil {
			// Observation outside any epoch.
			stats.Errors++
			continue
		}
		if sat, values, perr := parseObservationLine(s); perr {
			stats.Errors++
		} else {
			epoch.Satellites[sat] = values
		}
	}
}

// parseEpochLine decodes "> yyyy mm dd hh mm ss.sssssss flag nsat".
func parseEpochLine(s string) (*record.Intermediate, bool) {
	fields := strings.Fields(strings.TrimPrefix(s, ">"))
	if len(fields) < 6 {
		return nil, true
	}
	year, err1 := strconv.Atoi(fields[0])
	month, err2 := strconv.Atoi(fields[1])
	day, err3 := strconv.Atoi(fields[2])
	hour, err4 := strconv.Atoi(fields[3])
	minute, err5 := strconv.Atoi(fields[4])
	sec, err6 := strconv.ParseFloat(fields[5], 64)
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil || err5 != nil || err6 != nil {
		return nil, true
	}

	base := time.Date(year, time.Month(month), day, hour, minute, 0, 0, time.UTC)
	return &record.Intermediate{
		TimestampMS: base.UnixMilli() + int64(sec*1000),
		Type:        record.TypeRINEX,
		Satellites:  map[string][]float64{},
	}, false
}

// parseObservationLine splits an observation line into satellite id and
// numeric observation values. Non-numeric trailing flags are skipped.
func parseObservationLine(s string) (string, []float64, bool) {
	fields := strings.Fields(s)
	if len(fields) < 2 {
		return "", nil, true
	}
	sat := fields[0]
	if len(sat) < 2 || !isSatelliteSystem(sat[0]) {
		return "", nil, true
	}
	if _, err := strconv.Atoi(sat[1:]); err != nil {
		return "", nil, true
	}

	values := make([]float64, 0, len(fields)-1)
	for _, f := range fields[1:] {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			continue
		}
		values = append(values, v)
	}
	if len(values) == 0 {
		return "", nil, true
	}
	return sat, values, false
}

func isSatelliteSystem(c byte) bool {
	switch c {
	case 'G', 'R', 'E', 'C', 'J', 'I', 'S':
		return true
	}
	return false
}
