// Package sandbox executes generated conversion scripts in isolation.
//
// Generated code never runs in-process: the only execution surface is the
// Runner interface, and the shipped implementation spawns an external
// interpreter with a wall-clock bound. Script faults are captured and
// reported as data, not propagated as process failures.
package sandbox

import (
	"context"
	"time"
)

// Result captures one script execution.
type Result struct {
	// Success is true when the script exited zero within the time bound.
	Success bool

	// OutputPath is where stdout was written.
	OutputPath string

	// Stderr holds the captured (possibly truncated) stderr text.
	Stderr string

	// Fault describes the failure when Success is false: the exit error,
	// the timeout, or the interpreter fault text.
	Fault string

	// TimedOut marks executions killed by the wall-clock bound.
	TimedOut bool

	Duration time.Duration
}

// Runner executes a script against an input file, writing stdout to
// outputPath.
//
// The error return is reserved for environment failures (temp files,
// spawning); script faults are reported in Result.
type Runner interface {
	Run(ctx context.Context, scriptText, inputPath, outputPath string) (*Result, error)
}
