package validate

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runValidate(t *testing.T, input string) *Report {
	t.Helper()
	rep, err := Run(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	return rep
}

func TestValidateCleanStream(t *testing.T) {
	input := `{"timestamp_ms":1000,"latitude":48.1,"longitude":11.5,"altitude":545.4,"num_satellites":8,"hdop":0.9}
{"timestamp_ms":2000,"latitude":48.2,"longitude":11.6}
`
	rep := runValidate(t, input)
	assert.True(t, rep.Valid)
	assert.Equal(t, 2, rep.Records)
	assert.Empty(t, rep.Issues)
}

func TestValidateFieldRanges(t *testing.T) {
	tests := []struct {
		name  string
		line  string
		field string
	}{
		{"latitude above range", `{"timestamp_ms":1,"latitude":90.5}`, "latitude"},
		{"latitude below range", `{"timestamp_ms":1,"latitude":-91.0}`, "latitude"},
		{"longitude above range", `{"timestamp_ms":1,"longitude":180.5}`, "longitude"},
		{"longitude non-numeric", `{"timestamp_ms":1,"longitude":"east"}`, "longitude"},
		{"satellite count negative", `{"timestamp_ms":1,"num_satellites":-1}`, "num_satellites"},
		{"satellite count fractional", `{"timestamp_ms":1,"num_satellites":7.5}`, "num_satellites"},
		{"hdop negative", `{"timestamp_ms":1,"hdop":-0.1}`, "hdop"},
		{"altitude non-numeric", `{"timestamp_ms":1,"altitude":"high"}`, "altitude"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rep := runValidate(t, tt.line+"\n")
			assert.False(t, rep.Valid)
			require.Len(t, rep.Issues, 1)
			assert.Equal(t, tt.field, rep.Issues[0].Field)
			assert.Equal(t, 0, rep.Issues[0].Index)
			assert.False(t, rep.Issues[0].Warning)
		})
	}
}

func TestValidateMissingTimestamp(t *testing.T) {
	rep := runValidate(t, `{"latitude":48.1}`+"\n")
	assert.False(t, rep.Valid)
	require.Len(t, rep.Issues, 1)
	assert.Equal(t, "timestamp_ms", rep.Issues[0].Field)
}

func TestValidateTimestampRegressionIsWarning(t *testing.T) {
	input := `{"timestamp_ms":2000,"latitude":48.1,"longitude":11.5}
{"timestamp_ms":1000,"latitude":48.2,"longitude":11.6}
`
	rep := runValidate(t, input)
	// Regressions are reported but do not invalidate the stream.
	assert.True(t, rep.Valid)
	require.Len(t, rep.Issues, 1)
	assert.True(t, rep.Issues[0].Warning)
	assert.Equal(t, 1, rep.Issues[0].Index)
	assert.Contains(t, rep.Issues[0].Reason, "regression")
}

func TestValidateInvalidRecordExcludedFromOrdering(t *testing.T) {
	input := `{"timestamp_ms":5000,"latitude":120.0}
{"timestamp_ms":1000,"latitude":48.0}
`
	rep := runValidate(t, input)
	assert.False(t, rep.Valid)
	// The out-of-range first record does not establish an ordering baseline,
	// so the second record carries no regression warning.
	require.Len(t, rep.Issues, 1)
	assert.Equal(t, "latitude", rep.Issues[0].Field)
}

func TestValidateNonObjectLine(t *testing.T) {
	rep := runValidate(t, "[1,2,3]\n")
	assert.False(t, rep.Valid)
	assert.Equal(t, 1, rep.Records)
	require.Len(t, rep.Issues, 1)
	assert.Contains(t, rep.Issues[0].Reason, "not a JSON object")
}

func TestValidateEmptyStream(t *testing.T) {
	rep := runValidate(t, "")
	assert.True(t, rep.Valid)
	assert.Equal(t, 0, rep.Records)
}
