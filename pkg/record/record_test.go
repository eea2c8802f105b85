package record

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriter(t *testing.T) {
	t.Run("writes JSONL", func(t *testing.T) {
		var buf bytes.Buffer
		w := NewWriter(&buf)

		require.NoError(t, w.Write(Intermediate{TimestampMS: 1000, Type: TypeNMEA}))
		require.NoError(t, w.Write(Intermediate{TimestampMS: 2000, Type: TypeNMEA}))

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		require.Len(t, lines, 2)
		assert.Contains(t, lines[0], `"timestamp_ms":1000`)
		assert.Contains(t, lines[1], `"timestamp_ms":2000`)
		assert.Equal(t, int64(2), w.Count())
	})

	t.Run("omits empty optionals", func(t *testing.T) {
		var buf bytes.Buffer
		w := NewWriter(&buf)

		require.NoError(t, w.Write(Intermediate{TimestampMS: 1, Type: TypeUnknown}))
		assert.NotContains(t, buf.String(), "latitude")
		assert.NotContains(t, buf.String(), "payload")
	})

	t.Run("write after close fails", func(t *testing.T) {
		var buf bytes.Buffer
		w := NewWriter(&buf)
		require.NoError(t, w.Close())

		err := w.Write(Intermediate{TimestampMS: 1})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrWriterClosed)
	})
}

func TestMarshalLine(t *testing.T) {
	b, err := MarshalLine(Intermediate{TimestampMS: 1000, Type: TypeNMEA})
	require.NoError(t, err)
	assert.Contains(t, string(b), `"timestamp_ms":1000`)
	assert.False(t, bytes.HasSuffix(b, []byte("\n")))
}

func TestReader(t *testing.T) {
	t.Run("reads records in order", func(t *testing.T) {
		input := `{"timestamp_ms":1,"type":"NMEA"}
{"timestamp_ms":2,"type":"NMEA"}
`
		r := NewReader(strings.NewReader(input))

		var rec Intermediate
		require.NoError(t, r.Next(&rec))
		assert.Equal(t, int64(1), rec.TimestampMS)

		require.NoError(t, r.Next(&rec))
		assert.Equal(t, int64(2), rec.TimestampMS)

		assert.ErrorIs(t, r.Next(&rec), io.EOF)
	})

	t.Run("blank line ends the stream", func(t *testing.T) {
		input := "{\"timestamp_ms\":1}\n\n{\"timestamp_ms\":2}\n"
		r := NewReader(strings.NewReader(input))

		var rec Intermediate
		require.NoError(t, r.Next(&rec))
		assert.ErrorIs(t, r.Next(&rec), io.EOF)
	})

	t.Run("rejects oversized lines", func(t *testing.T) {
		long := `{"raw":"` + strings.Repeat("x", 100) + `"}`
		r := NewReader(strings.NewReader(long + "\n"))
		r.SetMaxLineBytes(32)

		var rec Intermediate
		err := r.Next(&rec)
		require.Error(t, err)
		assert.NotErrorIs(t, err, io.EOF)
	})
}

func TestReadAllLocations(t *testing.T) {
	input := `{"timestamp_ms":1,"type":"NMEA","latitude":48.1,"longitude":11.5}
{"timestamp_ms":2,"type":"NMEA","latitude":48.2,"longitude":11.6}
`
	locs, err := ReadAllLocations(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, locs, 2)
	require.NotNil(t, locs[0].Latitude)
	assert.InDelta(t, 48.1, *locs[0].Latitude, 1e-9)
	assert.Equal(t, int64(2), locs[1].TimestampMS)
}
