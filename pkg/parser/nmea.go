package parser

import (
	"context"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/3leaps/navconv/pkg/record"
)

// NMEA parses NMEA 0183 sentence streams.
//
// Every line is treated as a candidate sentence: it must start with '$' and
// carry a '*' checksum delimiter. Well-formed GGA/RMC/GSA/GSV sentences are
// decoded into typed fields; anything else that frames correctly is emitted
// as a raw-fields record so no input is silently dropped.
type NMEA struct{}

func (p *NMEA) Parse(ctx context.Context, r io.Reader, w *record.Writer) (Stats, error) {
	var stats Stats
	it := newLineIter(r)

	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		line, _, ok, err := it.Next()
		if err != nil {
			return stats, err
		}
		if !ok {
			return stats, nil
		}
		s := strings.TrimSpace(string(line))
		if s == "" {
			continue
		}
		stats.Lines++

		rec, wellFormed := decodeSentence(s)
		if !wellFormed {
			stats.Errors++
		}
		if rec == nil {
			continue
		}
		if err := w.Write(rec); err != nil {
			return stats, err
		}
		stats.Records++
	}
}

// decodeSentence decodes one candidate sentence. Malformed sentences return
// a raw-fields record and wellFormed=false; only empty input returns nil.
func decodeSentence(s string) (rec *record.Intermediate, wellFormed bool) {
	if !strings.HasPrefix(s, "$") || !strings.Contains(s, "*") {
		return rawSentence(s), false
	}

	body := s[1:]
	star := strings.LastIndex(body, "*")
	payload := body[:star]
	if !checksumOK(payload, body[star+1:]) {
		return rawSentence(s), false
	}

	fields := strings.Split(payload, ",")
	id := fields[0]
	if len(id) < 5 {
		return rawSentence(s), false
	}
	msgType := id[len(id)-3:]

	switch msgType {
	case "GGA":
		return decodeGGA(fields)
	case "RMC":
		return decodeRMC(fields)
	case "GSA":
		return decodeGSA(fields)
	case "GSV":
		return decodeGSV(fields)
	default:
		// Valid frame, no dedicated decoder.
		return &record.Intermediate{
			Type:        record.TypeNMEA,
			MessageType: msgType,
			RawFields:   fields,
		}, true
	}
}

func rawSentence(s string) *record.Intermediate {
	return &record.Intermediate{
		Type:      record.TypeNMEA,
		RawFields: strings.Split(strings.TrimPrefix(s, "$"), ","),
	}
}

// checksumOK verifies the XOR checksum over the sentence payload.
func checksumOK(payload, sumHex string) bool {
	sumHex = strings.TrimSpace(sumHex)
	if len(sumHex) < 2 {
		return false
	}
	want, err := strconv.ParseUint(sumHex[:2], 16, 8)
	if err != nil {
		return false
	}
	var got byte
	for i := 0; i < len(payload); i++ {
		got ^= payload[i]
	}
	return got == byte(want)
}

// decodeGGA handles fix data: time, position, quality, satellites, hdop,
// altitude.
func decodeGGA(f []string) (*record.Intermediate, bool) {
	if len(f) < 10 {
		return &record.Intermediate{Type: record.TypeNMEA, RawFields: f}, false
	}
	rec := &record.Intermediate{
		Type:        record.TypeNMEA,
		MessageType: "GGA",
		TimestampMS: timeOfDayMS(f[1]),
	}
	if lat, ok := parseCoordinate(f[2], f[3]); ok {
		rec.Latitude = record.Float(lat)
	}
	if lon, ok := parseCoordinate(f[4], f[5]); ok {
		rec.Longitude = record.Float(lon)
	}
	if v, err := strconv.Atoi(f[6]); err == nil {
		rec.Quality = record.Int(v)
	}
	if v, err := strconv.Atoi(f[7]); err == nil {
		rec.NumSatellites = record.Int(v)
	}
	if v, err := strconv.ParseFloat(f[8], 64); err == nil {
		rec.HDOP = record.Float(v)
	}
	if v, err := strconv.ParseFloat(f[9], 64); err == nil {
		rec.Altitude = record.Float(v)
	}
	return rec, true
}

// decodeRMC handles recommended minimum data: time+date, position, speed,
// course.
func decodeRMC(f []string) (*record.Intermediate, bool) {
	if len(f) < 10 {
		return &record.Intermediate{Type: record.TypeNMEA, RawFields: f}, false
	}
	rec := &record.Intermediate{
		Type:        record.TypeNMEA,
		MessageType: "RMC",
		TimestampMS: dateTimeMS(f[9], f[1]),
	}
	if lat, ok := parseCoordinate(f[3], f[4]); ok {
		rec.Latitude = record.Float(lat)
	}
	if lon, ok := parseCoordinate(f[5], f[6]); ok {
		rec.Longitude = record.Float(lon)
	}
	if v, err := strconv.ParseFloat(f[7], 64); err == nil {
		rec.SpeedKnots = record.Float(v)
	}
	if v, err := strconv.ParseFloat(f[8], 64); err == nil {
		rec.CourseDeg = record.Float(v)
	}
	return rec, true
}

// decodeGSA handles DOP and active satellites: pdop/hdop/vdop.
func decodeGSA(f []string) (*record.Intermediate, bool) {
	if len(f) < 18 {
		return &record.Intermediate{Type: record.TypeNMEA, RawFields: f}, false
	}
	rec := &record.Intermediate{Type: record.TypeNMEA, MessageType: "GSA"}
	if v, err := strconv.ParseFloat(f[15], 64); err == nil {
		rec.PDOP = record.Float(v)
	}
	if v, err := strconv.ParseFloat(f[16], 64); err == nil {
		rec.HDOP = record.Float(v)
	}
	if v, err := strconv.ParseFloat(f[17], 64); err == nil {
		rec.VDOP = record.Float(v)
	}
	return rec, true
}

// decodeGSV handles satellites in view: total satellite count only.
func decodeGSV(f []string) (*record.Intermediate, bool) {
	if len(f) < 4 {
		return &record.Intermediate{Type: record.TypeNMEA, RawFields: f}, false
	}
	rec := &record.Intermediate{Type: record.TypeNMEA, MessageType: "GSV"}
	if v, err := strconv.Atoi(f[3]); err == nil {
		rec.NumSatellites = record.Int(v)
	}
	return rec, true
}

// parseCoordinate converts ddmm.mmmm / dddmm.mmmm plus hemisphere into
// signed decimal degrees.
func parseCoordinate(value, hemisphere string) (float64, bool) {
	if value == "" {
		return 0, false
	}
	raw, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, false
	}
	deg := float64(int(raw / 100))
	minutes := raw - deg*100
	out := deg + minutes/60
	switch strings.ToUpper(hemisphere) {
	case "S", "W":
		out = -out
	}
	return out, true
}

// timeOfDayMS converts hhmmss.sss into milliseconds since midnight UTC.
// Sentences without a date field (GGA) cannot resolve a full epoch.
func timeOfDayMS(t string) int64 {
	if len(t) < 6 {
		return 0
	}
	h, err1 := strconv.Atoi(t[0:2])
	m, err2 := strconv.Atoi(t[2:4])
	sec, err3 := strconv.ParseFloat(t[4:], 64)
	if err1 != nil || err2 != nil || err3 != nil {
		return 0
	}
	return int64(h)*3600_000 + int64(m)*60_000 + int64(sec*1000)
}

// dateTimeMS combines an RMC ddmmyy date with hhmmss.sss into Unix epoch ms.
func dateTimeMS(date, t string) int64 {
	if len(date) != 6 || len(t) < 6 {
		return timeOfDayMS(t)
	}
	day, err1 := strconv.Atoi(date[0:2])
	month, err2 := strconv.Atoi(date[2:4])
	year, err3 := strconv.Atoi(date[4:6])
	if err1 != nil || err2 != nil || err3 != nil {
		return timeOfDayMS(t)
	}
	base := time.Date(2000+year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return base.UnixMilli() + timeOfDayMS(t)
}
