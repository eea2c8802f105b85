// Package record defines the intermediate and location record models shared
// by the conversion pipeline, plus JSONL encoding helpers.
//
// The internal interchange format is newline-delimited JSON: UTF-8, one
// object per line, no embedded newlines. Each line is self-contained and can
// be parsed independently.
package record

import "encoding/json"

// Type identifies the source format of an intermediate record.
//
// NOTE: These values appear in persisted JSONL artifacts and are part of the
// stable on-disk contract.
type Type string

const (
	TypeNMEA    Type = "NMEA"
	TypeRINEX   Type = "RINEX"
	TypeUBX     Type = "UBX"
	TypeJSON    Type = "JSON"
	TypeUnknown Type = "unknown"
)

// Intermediate is a single parsed record emitted by the format parsers.
//
// Every record carries a timestamp and a type tag; the remaining fields form
// the per-format payload. Optional fields are pointers so that absent means
// absent in the JSONL output, never null.
type Intermediate struct {
	TimestampMS int64 `json:"timestamp_ms"`
	Type        Type  `json:"type"`

	// NMEA sentence fields.
	MessageType   string   `json:"message_type,omitempty"`
	Latitude      *float64 `json:"latitude,omitempty"`
	Longitude     *float64 `json:"longitude,omitempty"`
	Altitude      *float64 `json:"altitude,omitempty"`
	Quality       *int     `json:"quality,omitempty"`
	NumSatellites *int     `json:"num_satellites,omitempty"`
	HDOP          *float64 `json:"hdop,omitempty"`
	VDOP          *float64 `json:"vdop,omitempty"`
	PDOP          *float64 `json:"pdop,omitempty"`
	SpeedKnots    *float64 `json:"speed_knots,omitempty"`
	CourseDeg     *float64 `json:"course_deg,omitempty"`

	// RawFields carries the split sentence fields when a line could not be
	// decoded into typed fields. Malformed input is preserved, not dropped.
	RawFields []string `json:"raw_fields,omitempty"`

	// RINEX epoch fields: observations keyed by satellite id (e.g. "G12").
	Satellites     map[string][]float64 `json:"satellites,omitempty"`
	SatelliteCount *int                 `json:"satellite_count,omitempty"`

	// UBX message identity. Hex-formatted class/id (e.g. "0x01").
	MsgClass string `json:"msg_class,omitempty"`
	MsgID    string `json:"msg_id,omitempty"`

	// Generic line parser fields.
	Line *int   `json:"line,omitempty"`
	Raw  string `json:"raw,omitempty"`

	// Payload holds arbitrary structured content for JSON records, unknown
	// UBX message bodies, and anything else without a typed field.
	Payload map[string]any `json:"payload,omitempty"`
}

// Location is a normalized location record derived from an Intermediate.
//
// Optional fields are absent rather than null when the source record did not
// carry them.
type Location struct {
	TimestampMS   int64    `json:"timestamp_ms"`
	Type          Type     `json:"type,omitempty"`
	Latitude      *float64 `json:"latitude,omitempty"`
	Longitude     *float64 `json:"longitude,omitempty"`
	Altitude      *float64 `json:"altitude,omitempty"`
	Quality       *int     `json:"quality,omitempty"`
	NumSatellites *int     `json:"num_satellites,omitempty"`
	HDOP          *float64 `json:"hdop,omitempty"`
}

// Float returns a pointer to v. Helper for optional record fields.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v. Helper for optional record fields.
func Int(v int) *int { return &v }

// MarshalLine encodes v as a single JSONL line (no trailing newline).
func MarshalLine(v any) ([]byte, error) {
	return json.Marshal(v)
}
