// Package parser converts raw sensor files into intermediate JSONL records.
//
// Each parser is a pure transform: it consumes a reader in a single pass and
// emits one JSON line per logical record via a record.Writer. Parsers never
// abort on malformed input; per-line failures increment an error counter and
// the caller decides whether the result is good enough or the file must be
// escalated to the AI-assisted fallback.
package parser

import (
	"context"
	"io"

	"github.com/3leaps/navconv/pkg/detect"
	"github.com/3leaps/navconv/pkg/record"
)

// Stats summarizes a parse pass.
type Stats struct {
	// Lines is the number of input lines (or packets) examined.
	Lines int64

	// Records is the number of records emitted.
	Records int64

	// Errors is the number of per-line (or per-packet) failures.
	Errors int64
}

// ErrorRate is Errors over Lines; 0 when no input was seen.
func (s Stats) ErrorRate() float64 {
	if s.Lines == 0 {
		return 0
	}
	return float64(s.Errors) / float64(s.Lines)
}

// Parser transforms one raw input into intermediate records.
//
// Parse returns an error only for environment failures (read errors);
// content problems are reported through Stats.
type Parser interface {
	Parse(ctx context.Context, r io.Reader, w *record.Writer) (Stats, error)
}

// ForFormat returns the deterministic parser for a detected format.
//
// CSV and unknown inputs use the generic line parser; downstream extraction
// or the AI fallback recovers structure from those records.
func ForFormat(f detect.Format) Parser {
	switch f {
	case detect.FormatNMEA:
		return &NMEA{}
	case detect.FormatRINEX:
		return &RINEX{}
	case detect.FormatUBX:
		return &UBX{}
	case detect.FormatJSON:
		return &JSONFile{}
	default:
		return &Generic{}
	}
}
