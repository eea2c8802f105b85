// Package extract derives normalized location records from intermediate
// records.
//
// Extraction dispatches on the record type. Records without resolvable
// coordinates are dropped, not errored; RINEX epochs, which carry no direct
// position, instead produce a satellite-count placeholder so downstream
// stages keep their cadence.
package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/3leaps/navconv/pkg/record"
)

// Stats summarizes an extraction pass.
type Stats struct {
	In      int64
	Out     int64
	Dropped int64
}

// Lookup is one coordinate key mapping tried against unknown-shaped
// payloads. Paths are dot-separated.
type Lookup struct {
	Lat string `yaml:"lat" json:"lat"`
	Lon string `yaml:"lon" json:"lon"`
	Alt string `yaml:"alt,omitempty" json:"alt,omitempty"`
}

// defaultLookups are tried in order for JSON and unknown records.
var defaultLookups = []Lookup{
	{Lat: "latitude", Lon: "longitude", Alt: "altitude"},
	{Lat: "lat", Lon: "lon", Alt: "alt"},
	{Lat: "data.lat", Lon: "data.lon", Alt: "data.alt"},
}

// Extractor maps intermediate records to location records.
type Extractor struct {
	lookups []Lookup
}

// New returns an extractor with the default key lookups.
func New() *Extractor {
	return &Extractor{lookups: defaultLookups}
}

// KeymapConfig is the serialized form of additional payload lookups.
type KeymapConfig struct {
	Lookups []Lookup `yaml:"lookups" json:"lookups"`
}

// WithKeymap parses a YAML (or JSON) keymap and prepends its lookups to the
// defaults.
func (e *Extractor) WithKeymap(data []byte) error {
	var cfg KeymapConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("parse keymap: %w", err)
	}
	for _, l := range cfg.Lookups {
		if l.Lat == "" || l.Lon == "" {
			return fmt.Errorf("keymap lookup requires lat and lon paths")
		}
	}
	e.lookups = append(append([]Lookup{}, cfg.Lookups...), defaultLookups...)
	return nil
}

// Run streams intermediate JSONL from r and writes location JSONL to w.
func (e *Extractor) Run(ctx context.Context, r io.Reader, w *record.Writer) (Stats, error) {
	var stats Stats
	dec := record.NewReader(r)

	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		var rec record.Intermediate
		err := dec.Next(&rec)
		if errors.Is(err, io.EOF) {
			return stats, nil
		}
		if err != nil {
			// A malformed interchange line; skip and keep going.
			stats.Dropped++
			continue
		}
		stats.In++

		loc, ok := e.Extract(&rec)
		if !ok {
			stats.Dropped++
			continue
		}
		if err := w.Write(loc); err != nil {
			return stats, err
		}
		stats.Out++
	}
}

// Extract maps one record. ok is false when the record carries nothing a
// location can be built from.
func (e *Extractor) Extract(rec *record.Intermediate) (*record.Location, bool) {
	switch rec.Type {
	case record.TypeNMEA, record.TypeUBX:
		return fromTyped(rec)
	case record.TypeRINEX:
		return rinexPlaceholder(rec), true
	default:
		return e.fromPayload(rec)
	}
}

func fromTyped(rec *record.Intermediate) (*record.Location, bool) {
	if rec.Latitude == nil || rec.Longitude == nil {
		return nil, false
	}
	return &record.Location{
		TimestampMS:   rec.TimestampMS,
		Type:          rec.Type,
		Latitude:      rec.Latitude,
		Longitude:     rec.Longitude,
		Altitude:      rec.Altitude,
		Quality:       rec.Quality,
		NumSatellites: rec.NumSatellites,
		HDOP:          rec.HDOP,
	}, true
}

// rinexPlaceholder keeps epoch cadence: RINEX observations carry no direct
// position, only the satellite count.
func rinexPlaceholder(rec *record.Intermediate) *record.Location {
	return &record.Location{
		TimestampMS:   rec.TimestampMS,
		Type:          record.TypeRINEX,
		NumSatellites: rec.SatelliteCount,
	}
}

func (e *Extractor) fromPayload(rec *record.Intermediate) (*record.Location, bool) {
	if rec.Payload == nil {
		return nil, false
	}
	for _, l := range e.lookups {
		lat, ok1 := lookupNumber(rec.Payload, l.Lat)
		lon, ok2 := lookupNumber(rec.Payload, l.Lon)
		if !ok1 || !ok2 {
			continue
		}
		loc := &record.Location{
			TimestampMS: rec.TimestampMS,
			Type:        rec.Type,
			Latitude:    record.Float(lat),
			Longitude:   record.Float(lon),
		}
		if l.Alt != "" {
			if alt, ok := lookupNumber(rec.Payload, l.Alt); ok {
				loc.Altitude = record.Float(alt)
			}
		}
		return loc, true
	}
	return nil, false
}

// lookupNumber resolves a dot-separated path to a numeric value.
func lookupNumber(m map[string]any, path string) (float64, bool) {
	parts := strings.Split(path, ".")
	var cur any = m
	for _, p := range parts {
		obj, ok := cur.(map[string]any)
		if !ok {
			return 0, false
		}
		cur, ok = obj[p]
		if !ok {
			return 0, false
		}
	}
	f, ok := cur.(float64)
	return f, ok
}
