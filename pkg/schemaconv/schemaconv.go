// Package schemaconv maps location records onto the fixed target schemas in
// two phases.
//
// Phase 1 sends a small record sample to the code-generation service for a
// direct transform (no code) and validates the returned examples; a phase-1
// failure is fatal to the whole stage because phase 2 needs accepted
// examples. Phase 2 requests a transformation script generalizing the
// demonstrated pattern, executes it over the full dataset in the sandbox,
// and checks structural compliance, feeding field-level violations back
// until the retry ceiling.
package schemaconv

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/3leaps/navconv/pkg/codegen"
	"github.com/3leaps/navconv/pkg/sandbox"
	"github.com/3leaps/navconv/pkg/schema"
)

const (
	// DefaultOverallAttempts is the overall conformance ceiling for the
	// phase-2 script loop.
	DefaultOverallAttempts = 10

	// DefaultSampleAttempts is the tighter ceiling for the phase-1 direct
	// sample transform.
	DefaultSampleAttempts = 3

	// sampleRecordCount is how many records the phase-1 sample carries.
	sampleRecordCount = 5

	// excerptRecordCount bounds the dataset slice sent with the phase-2
	// script request.
	excerptRecordCount = 40
)

// NonComplianceError is the terminal schema-conversion failure. It is fatal
// to the stage, not to the whole job: the orchestrator records it as the
// leg's structured error.
type NonComplianceError struct {
	Kind       schema.Kind
	Phase      int
	Attempts   int
	Violations []schema.Violation
	LastErr    error
}

func (e *NonComplianceError) Error() string {
	base := fmt.Sprintf("schema conversion to %s failed in phase %d after %d attempts", e.Kind, e.Phase, e.Attempts)
	if len(e.Violations) > 0 {
		return base + ":\n" + schema.FormatViolations(e.Violations)
	}
	if e.LastErr != nil {
		return base + ": " + e.LastErr.Error()
	}
	return base
}

func (e *NonComplianceError) Unwrap() error {
	return e.LastErr
}

// Outcome is the result of a schema-conversion stage.
type Outcome struct {
	OutputPath string
	Kind       schema.Kind

	// SampleDoc is the accepted phase-1 output document.
	SampleDoc []byte

	// Phase1Attempts and Phase2Attempts count the tries used per phase.
	Phase1Attempts int
	Phase2Attempts int
}

// Converter runs the two-phase conversion.
type Converter struct {
	codegen *codegen.Client
	runner  sandbox.Runner
	log     *zap.Logger

	overallAttempts int
	sampleAttempts  int
}

// New creates a converter with default ceilings.
func New(cg *codegen.Client, runner sandbox.Runner, logger *zap.Logger) *Converter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Converter{
		codegen:         cg,
		runner:          runner,
		log:             logger,
		overallAttempts: DefaultOverallAttempts,
		sampleAttempts:  DefaultSampleAttempts,
	}
}

// Convert maps the location JSONL at locationsPath onto kind, writing the
// structured document to outputPath.
func (c *Converter) Convert(ctx context.Context, locationsPath, outputPath string, kind schema.Kind) (*Outcome, error) {
	if c.codegen == nil || c.runner == nil {
		return nil, errors.New("schema conversion requires the code-generation client and sandbox")
	}

	sample, err := sampleRecords(locationsPath, sampleRecordCount)
	if err != nil {
		return nil, fmt.Errorf("sample location records: %w", err)
	}
	if sample == "" {
		return nil, errors.New("no location records to convert")
	}

	out := &Outcome{OutputPath: outputPath, Kind: kind}

	if err := c.phase1(ctx, sample, kind, out); err != nil {
		return nil, err
	}
	if err := c.phase2(ctx, locationsPath, outputPath, sample, kind, out); err != nil {
		return nil, err
	}
	return out, nil
}

// phase1 obtains accepted transformed examples for the sample.
func (c *Converter) phase1(ctx context.Context, sample string, kind schema.Kind, out *Outcome) error {
	errContext := ""
	var lastViolations []schema.Violation
	var lastErr error

	for attempt := 1; attempt <= c.sampleAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		out.Phase1Attempts = attempt
		c.log.Info("schema conversion phase 1",
			zap.String("kind", string(kind)),
			zap.Int("attempt", attempt))

		doc, err := c.codegen.TransformSample(ctx, codegen.TransformRequest{
			SampleJSONL:       sample,
			TargetSchema:      schema.Text(kind),
			SchemaKind:        string(kind),
			PriorErrorContext: errContext,
		})
		if err != nil {
			lastErr = err
			errContext = "service error: " + err.Error()
			continue
		}

		res, err := schema.Check(kind, doc)
		if err != nil {
			lastErr = err
			errContext = "unusable document: " + err.Error()
			continue
		}
		if !res.Valid {
			lastViolations = res.Violations
			lastErr = nil
			errContext = schema.FormatViolations(res.Violations)
			continue
		}

		out.SampleDoc = doc
		return nil
	}
	return &NonComplianceError{
		Kind:       kind,
		Phase:      1,
		Attempts:   c.sampleAttempts,
		Violations: lastViolations,
		LastErr:    lastErr,
	}
}

// phase2 generalizes the accepted sample transform into a script run over
// the full dataset.
func (c *Converter) phase2(ctx context.Context, locationsPath, outputPath, sample string, kind schema.Kind, out *Outcome) error {
	errContext := ""
	var lastViolations []schema.Violation
	var lastErr error

	excerpt, err := sampleRecords(locationsPath, excerptRecordCount)
	if err != nil {
		return fmt.Errorf("excerpt location records: %w", err)
	}

	for attempt := 1; attempt <= c.overallAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		out.Phase2Attempts = attempt
		c.log.Info("schema conversion phase 2",
			zap.String("kind", string(kind)),
			zap.Int("attempt", attempt))

		script, err := c.codegen.GenerateSchemaScript(ctx, codegen.SchemaScriptRequest{
			ExampleInputJSONL:   sample,
			ExampleOutputJSON:   string(out.SampleDoc),
			TargetSchema:        schema.Text(kind),
			SchemaKind:          string(kind),
			DatasetExcerptJSONL: excerpt,
			PriorErrorContext:   errContext,
		})
		if err != nil {
			lastErr = err
			errContext = "service error: " + err.Error()
			continue
		}

		candidate := outputPath + ".candidate"
		res, err := c.runner.Run(ctx, script, locationsPath, candidate)
		if err != nil {
			return fmt.Errorf("sandbox: %w", err)
		}
		if !res.Success {
			lastErr = fmt.Errorf("script execution failed: %s", res.Fault)
			errContext = "execution fault:\n" + res.Fault
			continue
		}

		doc, err := os.ReadFile(candidate)
		if err != nil {
			return fmt.Errorf("read candidate output: %w", err)
		}
		check, err := schema.Check(kind, doc)
		if err != nil {
			lastErr = err
			errContext = "unusable document: " + err.Error()
			continue
		}
		if !check.Valid {
			lastViolations = check.Violations
			lastErr = nil
			errContext = schema.FormatViolations(check.Violations)
			continue
		}

		if err := os.Rename(candidate, outputPath); err != nil {
			return fmt.Errorf("promote structured output: %w", err)
		}
		return nil
	}

	_ = os.Remove(outputPath + ".candidate")
	return &NonComplianceError{
		Kind:       kind,
		Phase:      2,
		Attempts:   c.overallAttempts,
		Violations: lastViolations,
		LastErr:    lastErr,
	}
}

// sampleRecords returns up to n JSONL lines from path.
func sampleRecords(path string, n int) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	var lines []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 1<<20)
	for sc.Scan() && len(lines) < n {
		line := strings.TrimSpace(sc.Text())
		if line != "" {
			lines = append(lines, line)
		}
	}
	if err := sc.Err(); err != nil {
		return "", err
	}
	return strings.Join(lines, "\n"), nil
}
