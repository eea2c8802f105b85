// Package convert runs the format-conversion stage: deterministic parsing
// first, with a bounded-retry AI-assisted fallback when deterministic
// output is insufficient.
package convert

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/3leaps/navconv/pkg/codegen"
	"github.com/3leaps/navconv/pkg/detect"
	"github.com/3leaps/navconv/pkg/parser"
	"github.com/3leaps/navconv/pkg/record"
	"github.com/3leaps/navconv/pkg/sandbox"
)

const (
	// DefaultFallbackAttempts is the format-conversion fallback ceiling.
	DefaultFallbackAttempts = 3

	// nmeaErrorRateThreshold escalates NMEA parses with too many malformed
	// sentences.
	nmeaErrorRateThreshold = 0.20

	// sampleBytes bounds the raw-input sample sent to the code-generation
	// service.
	sampleBytes = 4096
)

// Options configures one conversion invocation.
type Options struct {
	// ForceFallback skips deterministic parsing and goes straight to the
	// code-generation fallback. Explicit per invocation; there is no global
	// toggle.
	ForceFallback bool

	// DataTypeHint names the suspected payload ("gnss", "imu") for fallback
	// prompts.
	DataTypeHint string

	// FallbackAttempts overrides the attempt ceiling; <= 0 uses the
	// default.
	FallbackAttempts int
}

// Attempt records one fallback try. Ephemeral: kept on the outcome for
// reporting, never persisted.
type Attempt struct {
	ScriptText string
	Stderr     string
	Success    bool
	OutputPath string
	Error      string
}

// Outcome is the result of a conversion stage.
type Outcome struct {
	OutputPath string
	Format     detect.Format
	Stats      parser.Stats

	// UsedFallback is true when the emitted output came from a generated
	// script rather than a deterministic parser.
	UsedFallback bool

	// Partial is true when the fallback was exhausted and the stage fell
	// back to incomplete deterministic output.
	Partial bool

	// FallbackError carries the last fallback failure when Partial is set.
	FallbackError string

	Attempts []Attempt
}

// Converter runs the conversion stage.
type Converter struct {
	codegen *codegen.Client
	runner  sandbox.Runner
	log     *zap.Logger
}

// New creates a converter. codegen and runner may be nil when the fallback
// is not available; escalation then fails the stage directly.
func New(cg *codegen.Client, runner sandbox.Runner, logger *zap.Logger) *Converter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Converter{codegen: cg, runner: runner, log: logger}
}

// ConvertFile converts one raw input into intermediate JSONL at outputPath.
func (c *Converter) ConvertFile(ctx context.Context, inputPath, originalName, outputPath string, opts Options) (*Outcome, error) {
	format := detect.Detect(inputPath, originalName)
	out := &Outcome{OutputPath: outputPath, Format: format}

	if !opts.ForceFallback {
		stats, parseErr := c.parseDeterministic(ctx, format, inputPath, outputPath)
		out.Stats = stats
		if parseErr == nil && !shouldEscalate(format, stats) {
			c.log.Info("deterministic parse ok",
				zap.String("input", inputPath),
				zap.String("format", string(format)),
				zap.Int64("records", stats.Records),
				zap.Int64("errors", stats.Errors))
			return out, nil
		}
		c.log.Warn("escalating to code-generation fallback",
			zap.String("input", inputPath),
			zap.String("format", string(format)),
			zap.Int64("records", stats.Records),
			zap.Int64("errors", stats.Errors),
			zap.Error(parseErr))
	}

	if err := c.runFallback(ctx, inputPath, outputPath, opts, out); err != nil {
		// Partial deterministic output is preserved, never discarded.
		if out.Stats.Records > 0 {
			out.Partial = true
			out.FallbackError = err.Error()
			c.log.Warn("fallback exhausted, keeping partial deterministic output",
				zap.String("input", inputPath),
				zap.Int64("records", out.Stats.Records),
				zap.Error(err))
			return out, nil
		}
		return nil, err
	}
	out.UsedFallback = true
	return out, nil
}

func (c *Converter) parseDeterministic(ctx context.Context, format detect.Format, inputPath, outputPath string) (parser.Stats, error) {
	in, err := os.Open(inputPath)
	if err != nil {
		return parser.Stats{}, fmt.Errorf("open input: %w", err)
	}
	defer func() { _ = in.Close() }()

	outFile, err := os.Create(outputPath)
	if err != nil {
		return parser.Stats{}, fmt.Errorf("create output: %w", err)
	}
	defer func() { _ = outFile.Close() }()

	w := record.NewWriter(outFile)
	defer func() { _ = w.Close() }()

	return parser.ForFormat(format).Parse(ctx, in, w)
}

// shouldEscalate applies the per-format escalation rules.
func shouldEscalate(format detect.Format, stats parser.Stats) bool {
	if stats.Records == 0 {
		return true
	}
	switch format {
	case detect.FormatRINEX:
		// Any parse error voids a RINEX pass.
		return stats.Errors > 0
	case detect.FormatNMEA:
		return stats.ErrorRate() > nmeaErrorRateThreshold
	default:
		return false
	}
}
