package main

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{errors.New("failed to read input: boom (exit code 4)"), 4},
		{errors.New("interrupted (exit code 130)"), 130},
		{errors.New("plain failure"), 1},
		{errors.New("mentions (exit code 7) mid-message"), 1},
		{errors.New("bad code (exit code 0)"), 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, exitCode(tt.err), "error %q", tt.err)
	}
}
