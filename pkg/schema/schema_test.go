package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validGNSSDoc = `{
	"gnss_data": [
		{"time_unix": 1700000000.0, "position_lla": {"latitude_deg": 48.1, "longitude_deg": 11.5, "altitude_m": 545.4}},
		{"time_unix": 1700000001.0, "position_lla": {"latitude_deg": 48.2, "longitude_deg": 11.6, "altitude_m": 546.0}, "dop": 0.9}
	]
}`

const validIMUDoc = `{
	"imu_data": [
		{
			"time_unix": 1700000000.0,
			"linear_acceleration": {"x": 0.1, "y": 0.2, "z": 9.8},
			"angular_velocity": {"x": 0.01, "y": 0.02, "z": 0.03},
			"orientation": {"w": 1.0, "x": 0.0, "y": 0.0, "z": 0.0}
		}
	]
}`

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(KindGNSS, []byte(validGNSSDoc)))
	assert.NoError(t, Validate(KindIMU, []byte(validIMUDoc)))
}

func TestValidateRangeBounds(t *testing.T) {
	doc := `{"gnss_data": [{"time_unix": 1.0, "position_lla": {"latitude_deg": 91.0, "longitude_deg": 11.5, "altitude_m": 0.0}}]}`
	err := Validate(KindGNSS, []byte(doc))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gnss_data")
}

func TestValidateUnknownKind(t *testing.T) {
	err := Validate(Kind("other"), []byte(`{}`))
	require.ErrorIs(t, err, ErrUnknownKind)
}

func TestValidateUndecodable(t *testing.T) {
	err := Validate(KindGNSS, []byte("{nope"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal")
}

func TestCheckValidDocuments(t *testing.T) {
	for _, tc := range []struct {
		kind Kind
		doc  string
	}{
		{KindGNSS, validGNSSDoc},
		{KindIMU, validIMUDoc},
	} {
		res, err := Check(tc.kind, []byte(tc.doc))
		require.NoError(t, err)
		assert.True(t, res.Valid, "kind %s", tc.kind)
		assert.Empty(t, res.Violations)
	}
}

func TestCheckViolations(t *testing.T) {
	tests := []struct {
		name     string
		kind     Kind
		doc      string
		path     string
		expected string
		actual   string
	}{
		{
			name:     "missing root array",
			kind:     KindGNSS,
			doc:      `{"other": []}`,
			path:     "gnss_data",
			expected: "array",
			actual:   "missing",
		},
		{
			name:     "root not an array",
			kind:     KindGNSS,
			doc:      `{"gnss_data": {}}`,
			path:     "gnss_data",
			expected: "array",
			actual:   "object",
		},
		{
			name:     "element not an object",
			kind:     KindGNSS,
			doc:      `{"gnss_data": [42]}`,
			path:     "gnss_data/0",
			expected: "object",
			actual:   "number",
		},
		{
			name:     "missing nested field",
			kind:     KindGNSS,
			doc:      `{"gnss_data": [{"time_unix": 1.0, "position_lla": {"latitude_deg": 1.0, "longitude_deg": 2.0}}]}`,
			path:     "gnss_data/0/position_lla/altitude_m",
			expected: "number",
			actual:   "missing",
		},
		{
			name:     "string where number required",
			kind:     KindGNSS,
			doc:      `{"gnss_data": [{"time_unix": "soon", "position_lla": {"latitude_deg": 1.0, "longitude_deg": 2.0, "altitude_m": 3.0}}]}`,
			path:     "gnss_data/0/time_unix",
			expected: "number",
			actual:   "string",
		},
		{
			name:     "missing orientation component",
			kind:     KindIMU,
			doc:      `{"imu_data": [{"time_unix": 1.0, "linear_acceleration": {"x": 1.0, "y": 2.0, "z": 3.0}, "angular_velocity": {"x": 1.0, "y": 2.0, "z": 3.0}, "orientation": {"x": 0.0, "y": 0.0, "z": 0.0}}]}`,
			path:     "imu_data/0/orientation/w",
			expected: "number",
			actual:   "missing",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Check(tt.kind, []byte(tt.doc))
			require.NoError(t, err)
			assert.False(t, res.Valid)
			require.NotEmpty(t, res.Violations)

			v := res.Violations[0]
			assert.Equal(t, tt.path, v.Path)
			assert.Equal(t, tt.expected, v.Expected)
			assert.Equal(t, tt.actual, v.Actual)
		})
	}
}

func TestCheckViolationsPerElement(t *testing.T) {
	doc := `{"gnss_data": [
		{"time_unix": 1.0},
		{"time_unix": 2.0, "position_lla": {"latitude_deg": 1.0, "longitude_deg": 2.0, "altitude_m": 3.0}}
	]}`
	res, err := Check(KindGNSS, []byte(doc))
	require.NoError(t, err)
	assert.False(t, res.Valid)
	require.Len(t, res.Violations, 1)
	assert.Equal(t, "gnss_data/0/position_lla", res.Violations[0].Path)
}

func TestCheckUndecodableInput(t *testing.T) {
	_, err := Check(KindGNSS, []byte("not json"))
	require.Error(t, err)

	_, err = Check(Kind("other"), []byte(`{}`))
	require.ErrorIs(t, err, ErrUnknownKind)
}

func TestFormatViolations(t *testing.T) {
	out := FormatViolations([]Violation{
		{Path: "gnss_data/0/time_unix", Expected: "number", Actual: "string"},
		{Path: "gnss_data/1", Expected: "object", Actual: "array"},
	})
	assert.Equal(t,
		"gnss_data/0/time_unix: expected number, got string\ngnss_data/1: expected object, got array",
		out)
}

func TestText(t *testing.T) {
	assert.Contains(t, Text(KindGNSS), "gnss_data")
	assert.Contains(t, Text(KindIMU), "imu_data")
	assert.Empty(t, Text(Kind("other")))
}
