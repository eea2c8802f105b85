package cmd

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3leaps/navconv/pkg/schema"
)

func TestExitError(t *testing.T) {
	base := errors.New("file is gone")
	err := exitError(4, "failed to read input", base)
	assert.Equal(t, "failed to read input: file is gone (exit code 4)", err.Error())
	assert.ErrorIs(t, err, base)
}

func TestExpandInputsLiteral(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.nmea")
	b := filepath.Join(dir, "b.nmea")
	require.NoError(t, os.WriteFile(a, []byte("x"), 0600))
	require.NoError(t, os.WriteFile(b, []byte("x"), 0600))

	got, err := expandInputs([]string{b, a, b})
	require.NoError(t, err)
	assert.Equal(t, []string{a, b}, got)
}

func TestExpandInputsGlob(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0755))
	files := []string{
		filepath.Join(dir, "a.nmea"),
		filepath.Join(dir, "sub", "b.nmea"),
		filepath.Join(dir, "c.txt"),
	}
	for _, f := range files {
		require.NoError(t, os.WriteFile(f, []byte("x"), 0600))
	}

	got, err := expandInputs([]string{filepath.Join(dir, "**", "*.nmea")})
	require.NoError(t, err)
	assert.Equal(t, []string{files[0], files[1]}, got)
}

func TestExpandInputsNoMatch(t *testing.T) {
	dir := t.TempDir()
	_, err := expandInputs([]string{filepath.Join(dir, "*.nmea")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no files match")
}

func TestExpandInputsDirectory(t *testing.T) {
	dir := t.TempDir()
	_, err := expandInputs([]string{dir})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is a directory")
}

func TestResolveSchemaKind(t *testing.T) {
	tests := []struct {
		in      string
		want    schema.Kind
		wantErr bool
	}{
		{"", "", false},
		{"gnss", schema.KindGNSS, false},
		{"GNSS", schema.KindGNSS, false},
		{"gnss_data", schema.KindGNSS, false},
		{"imu", schema.KindIMU, false},
		{" imu_data ", schema.KindIMU, false},
		{"lidar", "", true},
	}
	for _, tt := range tests {
		got, err := resolveSchemaKind(tt.in)
		if tt.wantErr {
			assert.Error(t, err, "input %q", tt.in)
			continue
		}
		require.NoError(t, err, "input %q", tt.in)
		assert.Equal(t, tt.want, got, "input %q", tt.in)
	}
}
