package detect

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestDetectByExtension(t *testing.T) {
	tests := []struct {
		name string
		want Format
	}{
		{"track.nmea", FormatNMEA},
		{"capture.ubx", FormatUBX},
		{"data.json", FormatJSON},
		{"log.csv", FormatCSV},
		{"rover.obs", FormatRINEX},
		{"rover.rnx", FormatRINEX},
		{"site0010.24o", FormatRINEX},
		{"site0010.24O", FormatRINEX},
		{"brdc0010.24n", FormatRINEX},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Extension alone decides; content is never read.
			path := writeTemp(t, tt.name, []byte("irrelevant"))
			assert.Equal(t, tt.want, Detect(path, tt.name))
		})
	}
}

func TestDetectByNameTokens(t *testing.T) {
	path := writeTemp(t, "data.bin", []byte("no markers here"))

	assert.Equal(t, FormatRINEX, Detect(path, "rinex_capture.dat"))
	assert.Equal(t, FormatNMEA, Detect(path, "nmea_log.txt"))
	assert.Equal(t, FormatUBX, Detect(path, "ubx_dump.dat"))
}

func TestDetectBySniff(t *testing.T) {
	t.Run("NMEA sentence markers", func(t *testing.T) {
		path := writeTemp(t, "log.txt", []byte("$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*47\n"))
		assert.Equal(t, FormatNMEA, Detect(path, "log.txt"))
	})

	t.Run("RINEX header label", func(t *testing.T) {
		path := writeTemp(t, "data.dat", []byte("     3.03           OBSERVATION DATA    M                   RINEX VERSION / TYPE\n"))
		assert.Equal(t, FormatRINEX, Detect(path, "data.dat"))
	})

	t.Run("JSON shape", func(t *testing.T) {
		path := writeTemp(t, "data.txt", []byte("  [{\"t\": 1}]"))
		assert.Equal(t, FormatJSON, Detect(path, "data.txt"))
	})

	t.Run("UBX sync bytes in window", func(t *testing.T) {
		data := append(bytes.Repeat([]byte{0x00}, 100), 0xB5, 0x62, 0x01, 0x07)
		path := writeTemp(t, "capture.dat", data)
		assert.Equal(t, FormatUBX, Detect(path, "capture.dat"))
	})

	t.Run("UBX sync bytes beyond window are not matched", func(t *testing.T) {
		// Sync pair appears after the first 1000 bytes; file stays unknown.
		data := append(bytes.Repeat([]byte{0x01}, 1100), 0xB5, 0x62)
		path := writeTemp(t, "capture.dat", data)
		assert.Equal(t, FormatUnknown, Detect(path, "capture.dat"))
	})

	t.Run("NMEA wins over UBX when both appear", func(t *testing.T) {
		data := append([]byte{0xB5, 0x62}, []byte("$GPGGA,,,,,,,,,,,,,,*00\n")...)
		path := writeTemp(t, "mixed.dat", data)
		assert.Equal(t, FormatNMEA, Detect(path, "mixed.dat"))
	})
}

func TestDetectUnknown(t *testing.T) {
	path := writeTemp(t, "notes.txt", []byte("plain text with no markers"))
	assert.Equal(t, FormatUnknown, Detect(path, "notes.txt"))

	assert.Equal(t, FormatUnknown, Detect(filepath.Join(t.TempDir(), "missing.bin"), "missing.bin"))
}

func TestDetectOriginalNamePrecedence(t *testing.T) {
	// The stored path carries no extension; the submitted name decides.
	path := writeTemp(t, "upload-3181", []byte("binary"))
	assert.Equal(t, FormatUBX, Detect(path, "drive.ubx"))
}
