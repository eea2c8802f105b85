package observability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zapcore.Level
		wantErr bool
	}{
		{"", zapcore.InfoLevel, false},
		{"info", zapcore.InfoLevel, false},
		{"DEBUG", zapcore.DebugLevel, false},
		{"warn", zapcore.WarnLevel, false},
		{"warning", zapcore.WarnLevel, false},
		{" error ", zapcore.ErrorLevel, false},
		{"verbose", zapcore.InfoLevel, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if tt.wantErr {
			assert.Error(t, err, "input %q", tt.in)
			continue
		}
		require.NoError(t, err, "input %q", tt.in)
		assert.Equal(t, tt.want, got, "input %q", tt.in)
	}
}

func TestInitCLI(t *testing.T) {
	require.NoError(t, InitCLI("debug"))
	assert.True(t, CLILogger.Core().Enabled(zapcore.DebugLevel))

	require.NoError(t, InitCLI("warn"))
	assert.False(t, CLILogger.Core().Enabled(zapcore.InfoLevel))

	require.Error(t, InitCLI("verbose"))
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger("info", "STRUCTURED")
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.DebugLevel))

	console, err := NewLogger("debug", "console")
	require.NoError(t, err)
	assert.True(t, console.Core().Enabled(zapcore.DebugLevel))

	_, err = NewLogger("bogus", "STRUCTURED")
	require.Error(t, err)
}
