package parser

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3leaps/navconv/pkg/record"
)

const rinexHeader = `     3.03           OBSERVATION DATA    M                   RINEX VERSION / TYPE
test                                                        MARKER NAME
                                                            END OF HEADER
`

func parseRINEX(t *testing.T, input string) (Stats, []record.Intermediate) {
	t.Helper()
	var buf bytes.Buffer
	w := record.NewWriter(&buf)

	p := &RINEX{}
	stats, err := p.Parse(context.Background(), strings.NewReader(input), w)
	require.NoError(t, err)

	recs, err := readIntermediates(&buf)
	require.NoError(t, err)
	return stats, recs
}

func TestRINEXParseEpochs(t *testing.T) {
	input := rinexHeader +
		"> 2024 01 15 12 00 00.0000000  0  2\n" +
		"G01  20123456.789   105000000.123\n" +
		"R05  21234567.890   113000000.456\n" +
		"> 2024 01 15 12 00 30.0000000  0  1\n" +
		"G01  20123460.000   105000010.000\n"

	stats, recs := parseRINEX(t, input)
	assert.Equal(t, int64(2), stats.Records)
	assert.Equal(t, int64(0), stats.Errors)
	require.Len(t, recs, 2)

	first := recs[0]
	assert.Equal(t, record.TypeRINEX, first.Type)
	want := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC).UnixMilli()
	assert.Equal(t, want, first.TimestampMS)

	require.NotNil(t, first.SatelliteCount)
	assert.Equal(t, 2, *first.SatelliteCount)
	require.Contains(t, first.Satellites, "G01")
	require.Contains(t, first.Satellites, "R05")
	assert.InDelta(t, 20123456.789, first.Satellites["G01"][0], 0.001)

	// Trailing epoch is flushed at EOF.
	second := recs[1]
	assert.Equal(t, want+30_000, second.TimestampMS)
	require.NotNil(t, second.SatelliteCount)
	assert.Equal(t, 1, *second.SatelliteCount)
}

func TestRINEXHeaderOnly(t *testing.T) {
	stats, recs := parseRINEX(t, rinexHeader)
	assert.Equal(t, int64(0), stats.Records)
	assert.Empty(t, recs)
}

func TestRINEXParseErrors(t *testing.T) {
	t.Run("observation before any epoch", func(t *testing.T) {
		input := rinexHeader + "G01  20123456.789\n"

		stats, _ := parseRINEX(t, input)
		assert.Equal(t, int64(1), stats.Errors)
	})

	t.Run("malformed epoch line", func(t *testing.T) {
		input := rinexHeader + "> 2024 01\n"

		stats, _ := parseRINEX(t, input)
		assert.Equal(t, int64(1), stats.Errors)
	})

	t.Run("bad satellite id", func(t *testing.T) {
		input := rinexHeader +
			"> 2024 01 15 12 00 00.0000000  0  1\n" +
			"X99  20123456.789\n"

		stats, recs := parseRINEX(t, input)
		assert.Equal(t, int64(1), stats.Errors)
		require.Len(t, recs, 1)
		require.NotNil(t, recs[0].SatelliteCount)
		assert.Equal(t, 0, *recs[0].SatelliteCount)
	})
}
