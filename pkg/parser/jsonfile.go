package parser

import (
	"context"
	"encoding/json"
	"io"

	"github.com/3leaps/navconv/pkg/record"
)

// JSONFile parses whole-file JSON inputs.
//
// A top-level array yields one record per element; a top-level object yields
// a single record. Element content is preserved as the record payload and the
// timestamp is resolved from common time keys when present.
type JSONFile struct{}

func (p *JSONFile) Parse(ctx context.Context, r io.Reader, w *record.Writer) (Stats, error) {
	var stats Stats

	b, err := io.ReadAll(r)
	if err != nil {
		return stats, err
	}

	var root any
	if err := json.Unmarshal(b, &root); err != nil {
		stats.Lines = 1
		stats.Errors = 1
		return stats, nil
	}

	emit := func(v any) error {
		stats.Lines++
		rec := &record.Intermediate{Type: record.TypeJSON}
		if m, ok := v.(map[string]any); ok {
			rec.Payload = m
			rec.TimestampMS = ResolveTimestampMS(m)
		} else {
			rec.Payload = map[string]any{"value": v}
		}
		if err := w.Write(rec); err != nil {
			return err
		}
		stats.Records++
		return nil
	}

	switch v := root.(type) {
	case []any:
		for _, el := range v {
			if err := ctx.Err(); err != nil {
				return stats, err
			}
			if err := emit(el); err != nil {
				return stats, err
			}
		}
	default:
		if err := emit(v); err != nil {
			return stats, err
		}
	}
	return stats, nil
}

// timestampKeys are tried in order when resolving a record timestamp from
// arbitrary JSON payloads.
var timestampKeys = []string{"timestamp_ms", "timestamp", "time_unix", "time", "t"}

// ResolveTimestampMS extracts a millisecond timestamp from common keys.
// Second-resolution values are promoted to milliseconds. Returns 0 when no
// key resolves.
func ResolveTimestampMS(m map[string]any) int64 {
	for _, k := range timestampKeys {
		v, ok := m[k]
		if !ok {
			continue
		}
		f, ok := v.(float64)
		if !ok {
			continue
		}
		// Values below ~1e11 are epoch seconds, not milliseconds.
		if f > 0 && f < 1e11 && k != "timestamp_ms" {
			return int64(f * 1000)
		}
		return int64(f)
	}
	return 0
}
