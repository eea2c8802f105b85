// Package detect classifies raw sensor files by format.
//
// Detection consults an exact-extension table first and only reads file
// content when the extension is ambiguous. Content sniffing is bounded: at
// most a small prefix of the file is read. Detection never fails; inputs
// that match nothing degrade to FormatUnknown and are handled by the
// generic line parser downstream.
package detect

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Format is the detected input format.
type Format string

const (
	FormatNMEA    Format = "nmea"
	FormatRINEX   Format = "rinex"
	FormatUBX     Format = "ubx"
	FormatJSON    Format = "json"
	FormatCSV     Format = "csv"
	FormatUnknown Format = "unknown"
)

const (
	// sniffTextBytes bounds the prefix read for text heuristics.
	sniffTextBytes = 1024

	// sniffBinaryBytes bounds the window scanned for UBX sync bytes.
	sniffBinaryBytes = 1000
)

// UBX packets start with the two sync bytes 0xB5 0x62.
var ubxSync = []byte{0xB5, 0x62}

// RINEX observation files conventionally end in .NNo / .NNO (two-digit year).
var rinexObsExt = regexp.MustCompile(`^\.\d{2}[oOnNgG]$`)

var extensionTable = map[string]Format{
	".nmea": FormatNMEA,
	".ubx":  FormatUBX,
	".json": FormatJSON,
	".csv":  FormatCSV,
	".obs":  FormatRINEX,
	".rnx":  FormatRINEX,
}

// Detect classifies the file at path. originalName is the client-supplied
// filename and takes precedence over path for extension and token checks;
// pass "" when unavailable.
//
// Detect never returns an error: unreadable or unrecognized content is
// classified FormatUnknown.
func Detect(path, originalName string) Format {
	name := originalName
	if name == "" {
		name = path
	}

	if f, ok := byExtension(name); ok {
		return f
	}
	if f, ok := byNameTokens(name); ok {
		return f
	}

	prefix, err := readPrefix(path, sniffTextBytes)
	if err != nil || len(prefix) == 0 {
		return FormatUnknown
	}
	return sniff(prefix)
}

func byExtension(name string) (Format, bool) {
	ext := strings.ToLower(filepath.Ext(name))
	if f, ok := extensionTable[ext]; ok {
		return f, true
	}
	if rinexObsExt.MatchString(filepath.Ext(name)) {
		return FormatRINEX, true
	}
	return FormatUnknown, false
}

func byNameTokens(name string) (Format, bool) {
	base := strings.ToLower(filepath.Base(name))
	switch {
	case strings.Contains(base, "rinex"):
		return FormatRINEX, true
	case strings.Contains(base, "nmea"):
		return FormatNMEA, true
	case strings.Contains(base, "ubx"):
		return FormatUBX, true
	}
	return FormatUnknown, false
}

// sniff applies content heuristics in priority order over a bounded prefix.
func sniff(prefix []byte) Format {
	if hasNMEAMarker(prefix) {
		return FormatNMEA
	}
	if hasRINEXHeader(prefix) {
		return FormatRINEX
	}
	if looksLikeJSON(prefix) {
		return FormatJSON
	}
	window := prefix
	if len(window) > sniffBinaryBytes {
		window = window[:sniffBinaryBytes]
	}
	if bytes.Contains(window, ubxSync) {
		return FormatUBX
	}
	return FormatUnknown
}

func hasNMEAMarker(prefix []byte) bool {
	for _, marker := range []string{"$GP", "$GN", "$GL"} {
		if bytes.Contains(prefix, []byte(marker)) {
			return true
		}
	}
	return false
}

func hasRINEXHeader(prefix []byte) bool {
	return bytes.Contains(prefix, []byte("RINEX VERSION")) ||
		bytes.Contains(prefix, []byte("END OF HEADER"))
}

// looksLikeJSON checks for a leading object or array after whitespace.
func looksLikeJSON(prefix []byte) bool {
	trimmed := bytes.TrimLeft(prefix, " \t\r\n")
	return len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[')
}

func readPrefix(path string, n int) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	b, err := io.ReadAll(io.LimitReader(f, int64(n)))
	if err != nil {
		return nil, err
	}
	return b, nil
}
