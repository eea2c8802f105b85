package parser

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"github.com/3leaps/navconv/pkg/record"
)

// UBX parses u-blox binary protocol buffers.
//
// The whole input is treated as a sync-byte-delimited packet stream. NAV
// position/velocity/DOP messages get typed decoders applying the documented
// scale factors (1e-7 deg, mm→m, cm/s→m/s, 0.01 DOP); unknown class/id
// pairs still emit a generic record carrying the raw payload. Packets with
// bad framing or checksums count as errors and resynchronization continues
// at the next sync pair.
type UBX struct{}

const (
	ubxSyncA = 0xB5
	ubxSyncB = 0x62

	ubxClassNAV  = 0x01
	ubxNavPOSLLH = 0x02
	ubxNavDOP    = 0x04
	ubxNavPVT    = 0x07
	ubxNavVELNED = 0x12

	ubxHeaderLen   = 6
	ubxChecksumLen = 2
	ubxMaxPayload  = 8192
)

func (p *UBX) Parse(ctx context.Context, r io.Reader, w *record.Writer) (Stats, error) {
	var stats Stats

	buf, err := io.ReadAll(r)
	if err != nil {
		return stats, err
	}

	i := 0
	for i+1 < len(buf) {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if buf[i] != ubxSyncA || buf[i+1] != ubxSyncB {
			i++
			continue
		}
		stats.Lines++

		if i+ubxHeaderLen > len(buf) {
			stats.Errors++
			break
		}
		class := buf[i+2]
		id := buf[i+3]
		length := int(binary.LittleEndian.Uint16(buf[i+4 : i+6]))
		end := i + ubxHeaderLen + length + ubxChecksumLen
		if length > ubxMaxPayload || end > len(buf) {
			stats.Errors++
			i += 2
			continue
		}

		payload := buf[i+ubxHeaderLen : i+ubxHeaderLen+length]
		if !ubxChecksumOK(buf[i+2:i+ubxHeaderLen+length], buf[end-2], buf[end-1]) {
			stats.Errors++
			i += 2
			continue
		}

		rec := decodePacket(class, id, payload)
		if err := w.Write(rec); err != nil {
			return stats, err
		}
		stats.Records++
		i = end
	}
	return stats, nil
}

// ubxChecksumOK verifies the 8-bit Fletcher checksum over class..payload.
func ubxChecksumOK(body []byte, ckA, ckB byte) bool {
	var a, b byte
	for _, c := range body {
		a += c
		b += a
	}
	return a == ckA && b == ckB
}

func decodePacket(class, id byte, payload []byte) *record.Intermediate {
	if class == ubxClassNAV {
		switch id {
		case ubxNavPVT:
			if rec := decodeNavPVT(payload); rec != nil {
				return rec
			}
		case ubxNavPOSLLH:
			if rec := decodeNavPOSLLH(payload); rec != nil {
				return rec
			}
		case ubxNavVELNED:
			if rec := decodeNavVELNED(payload); rec != nil {
				return rec
			}
		case ubxNavDOP:
			if rec := decodeNavDOP(payload); rec != nil {
				return rec
			}
		}
	}
	return genericPacket(class, id, payload)
}

func genericPacket(class, id byte, payload []byte) *record.Intermediate {
	return &record.Intermediate{
		Type:     record.TypeUBX,
		MsgClass: fmt.Sprintf("0x%02X", class),
		MsgID:    fmt.Sprintf("0x%02X", id),
		Payload: map[string]any{
			"length": len(payload),
			"raw":    base64.StdEncoding.EncodeToString(payload),
		},
	}
}

// decodeNavPVT handles NAV-PVT: full date/time, position, fix quality.
func decodeNavPVT(p []byte) *record.Intermediate {
	if len(p) < 92 {
		return nil
	}
	year := int(binary.LittleEndian.Uint16(p[4:6]))
	month := int(p[6])
	day := int(p[7])
	hour := int(p[8])
	minute := int(p[9])
	sec := int(p[10])
	ts := time.Date(year, time.Month(month), day, hour, minute, sec, 0, time.UTC).UnixMilli()

	fixType := int(p[20])
	numSV := int(p[23])
	lon := float64(int32(binary.LittleEndian.Uint32(p[24:28]))) * 1e-7
	lat := float64(int32(binary.LittleEndian.Uint32(p[28:32]))) * 1e-7
	hMSL := float64(int32(binary.LittleEndian.Uint32(p[36:40]))) / 1000 // mm → m

	return &record.Intermediate{
		TimestampMS:   ts,
		Type:          record.TypeUBX,
		MsgClass:      "0x01",
		MsgID:         "0x07",
		MessageType:   "NAV-PVT",
		Latitude:      record.Float(lat),
		Longitude:     record.Float(lon),
		Altitude:      record.Float(hMSL),
		Quality:       record.Int(fixType),
		NumSatellites: record.Int(numSV),
	}
}

// decodeNavPOSLLH handles NAV-POSLLH: iTOW-referenced geodetic position.
func decodeNavPOSLLH(p []byte) *record.Intermediate {
	if len(p) < 28 {
		return nil
	}
	iTOW := int64(binary.LittleEndian.Uint32(p[0:4]))
	lon := float64(int32(binary.LittleEndian.Uint32(p[4:8]))) * 1e-7
	lat := float64(int32(binary.LittleEndian.Uint32(p[8:12]))) * 1e-7
	hMSL := float64(int32(binary.LittleEndian.Uint32(p[16:20]))) / 1000 // mm → m

	return &record.Intermediate{
		TimestampMS: iTOW,
		Type:        record.TypeUBX,
		MsgClass:    "0x01",
		MsgID:       "0x02",
		MessageType: "NAV-POSLLH",
		Latitude:    record.Float(lat),
		Longitude:   record.Float(lon),
		Altitude:    record.Float(hMSL),
	}
}

// decodeNavVELNED handles NAV-VELNED: ground speed and heading.
func decodeNavVELNED(p []byte) *record.Intermediate {
	if len(p) < 36 {
		return nil
	}
	iTOW := int64(binary.LittleEndian.Uint32(p[0:4]))
	gSpeed := float64(binary.LittleEndian.Uint32(p[20:24])) / 100 // cm/s → m/s
	heading := float64(int32(binary.LittleEndian.Uint32(p[24:28]))) * 1e-5

	rec := &record.Intermediate{
		TimestampMS: iTOW,
		Type:        record.TypeUBX,
		MsgClass:    "0x01",
		MsgID:       "0x12",
		MessageType: "NAV-VELNED",
		CourseDeg:   record.Float(heading),
	}
	rec.Payload = map[string]any{"ground_speed_ms": gSpeed}
	return rec
}

// decodeNavDOP handles NAV-DOP: dilution-of-precision set, 0.01 scaling.
func decodeNavDOP(p []byte) *record.Intermediate {
	if len(p) < 18 {
		return nil
	}
	iTOW := int64(binary.LittleEndian.Uint32(p[0:4]))
	pdop := float64(binary.LittleEndian.Uint16(p[6:8])) / 100
	vdop := float64(binary.LittleEndian.Uint16(p[10:12])) / 100
	hdop := float64(binary.LittleEndian.Uint16(p[12:14])) / 100

	return &record.Intermediate{
		TimestampMS: iTOW,
		Type:        record.TypeUBX,
		MsgClass:    "0x01",
		MsgID:       "0x04",
		MessageType: "NAV-DOP",
		PDOP:        record.Float(pdop),
		HDOP:        record.Float(hdop),
		VDOP:        record.Float(vdop),
	}
}
