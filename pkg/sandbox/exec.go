package sandbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

const (
	// DefaultTimeout is the wall-clock bound on one script execution. It is
	// a sandbox configuration parameter, not a pipeline constant.
	DefaultTimeout = 2 * time.Minute

	// maxStderrBytes bounds captured stderr so a runaway script cannot
	// exhaust memory through its error stream.
	maxStderrBytes = 64 << 10
)

// Config configures the exec-based runner.
type Config struct {
	// Interpreter is the command used to run scripts (default "python3").
	Interpreter string

	// Timeout is the wall-clock bound per execution.
	Timeout time.Duration

	// WorkDir is where script temp dirs are created; empty uses the system
	// temp dir.
	WorkDir string
}

// ExecRunner runs scripts as child processes of a configured interpreter.
//
// Each run gets a private temp directory holding the script; stdout goes to
// the caller's output path, stderr is captured and truncated.
type ExecRunner struct {
	cfg Config
}

// NewExecRunner creates a runner, applying defaults for zero values.
func NewExecRunner(cfg Config) *ExecRunner {
	if cfg.Interpreter == "" {
		cfg.Interpreter = "python3"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &ExecRunner{cfg: cfg}
}

// Run implements Runner.
func (r *ExecRunner) Run(ctx context.Context, scriptText, inputPath, outputPath string) (*Result, error) {
	dir, err := os.MkdirTemp(r.cfg.WorkDir, "navconv-script-*")
	if err != nil {
		return nil, fmt.Errorf("create script dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(dir) }()

	scriptPath := filepath.Join(dir, "convert.py")
	if err := os.WriteFile(scriptPath, []byte(scriptText), 0600); err != nil {
		return nil, fmt.Errorf("write script: %w", err)
	}

	outFile, err := os.Create(outputPath)
	if err != nil {
		return nil, fmt.Errorf("create output file: %w", err)
	}
	defer func() { _ = outFile.Close() }()

	runCtx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	var stderr bytes.Buffer
	cmd := exec.CommandContext(runCtx, r.cfg.Interpreter, scriptPath, inputPath)
	cmd.Stdout = outFile
	cmd.Stderr = &stderr
	cmd.Dir = dir

	start := time.Now()
	runErr := cmd.Run()

	res := &Result{
		OutputPath: outputPath,
		Stderr:     truncate(stderr.String(), maxStderrBytes),
		Duration:   time.Since(start),
	}

	switch {
	case runErr == nil:
		res.Success = true
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		res.TimedOut = true
		res.Fault = fmt.Sprintf("script exceeded time bound %s", r.cfg.Timeout)
	default:
		res.Fault = runErr.Error()
		if res.Stderr != "" {
			res.Fault = res.Fault + ": " + res.Stderr
		}
	}
	return res, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "... (truncated)"
}

// Compile-time check that ExecRunner implements Runner.
var _ Runner = (*ExecRunner)(nil)
