package convert

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/3leaps/navconv/pkg/codegen"
	"github.com/3leaps/navconv/pkg/record"
)

// ErrFallbackUnavailable indicates escalation with no configured
// code-generation client or sandbox runner.
var ErrFallbackUnavailable = errors.New("code-generation fallback is not configured")

// FallbackError is the terminal failure after the attempt ceiling.
type FallbackError struct {
	Attempts int
	LastErr  error
}

func (e *FallbackError) Error() string {
	return fmt.Sprintf("fallback exhausted after %d attempts: %v", e.Attempts, e.LastErr)
}

func (e *FallbackError) Unwrap() error {
	return e.LastErr
}

// targetLineContract is the declared output contract sent to the
// code-generation service.
const targetLineContract = `Each output line is a standalone JSON object (JSONL).
Required fields: "timestamp_ms" (integer milliseconds) and "type" (one of
"NMEA", "RINEX", "UBX", "JSON", "unknown"). Location fields when present:
"latitude", "longitude" (decimal degrees), "altitude" (meters). Omit absent
fields entirely; never emit null.`

// runFallback drives the bounded script-synthesis loop. On success the
// generated output replaces outputPath.
func (c *Converter) runFallback(ctx context.Context, inputPath, outputPath string, opts Options, out *Outcome) error {
	if c.codegen == nil || c.runner == nil {
		return ErrFallbackUnavailable
	}
	ceiling := opts.FallbackAttempts
	if ceiling <= 0 {
		ceiling = DefaultFallbackAttempts
	}

	sample, err := sampleFile(inputPath, sampleBytes)
	if err != nil {
		return fmt.Errorf("sample input: %w", err)
	}

	var lastErr error
	errContext := ""
	for attempt := 1; attempt <= ceiling; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		c.log.Info("fallback attempt",
			zap.String("input", inputPath),
			zap.Int("attempt", attempt),
			zap.Int("ceiling", ceiling))

		script, err := c.codegen.GenerateScript(ctx, codegen.ScriptRequest{
			SampleText:        sample,
			DataTypeHint:      opts.DataTypeHint,
			TargetContract:    targetLineContract,
			PriorErrorContext: errContext,
		})
		if err != nil {
			lastErr = err
			errContext = "service error: " + err.Error()
			out.Attempts = append(out.Attempts, Attempt{Error: err.Error()})
			continue
		}

		candidate := outputPath + ".fallback"
		res, err := c.runner.Run(ctx, script, inputPath, candidate)
		if err != nil {
			return fmt.Errorf("sandbox: %w", err)
		}
		rec := Attempt{ScriptText: script, Stderr: res.Stderr, OutputPath: candidate}
		if !res.Success {
			lastErr = fmt.Errorf("script execution failed: %s", res.Fault)
			errContext = "execution fault:\n" + res.Fault
			rec.Error = res.Fault
			out.Attempts = append(out.Attempts, rec)
			continue
		}

		if verr := validateJSONLOutput(candidate); verr != nil {
			lastErr = verr
			errContext = "output validation failed:\n" + verr.Error()
			rec.Error = verr.Error()
			out.Attempts = append(out.Attempts, rec)
			continue
		}

		rec.Success = true
		out.Attempts = append(out.Attempts, rec)
		if err := os.Rename(candidate, outputPath); err != nil {
			return fmt.Errorf("promote fallback output: %w", err)
		}
		return nil
	}

	// Leave no candidate behind: outputPath may still hold partial
	// deterministic output the caller keeps.
	_ = os.Remove(outputPath + ".fallback")
	return &FallbackError{Attempts: ceiling, LastErr: lastErr}
}

// sampleFile reads a bounded prefix and coerces it to valid UTF-8 so binary
// input stays promptable.
func sampleFile(path string, n int) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	b, err := io.ReadAll(io.LimitReader(f, int64(n)))
	if err != nil {
		return "", err
	}
	if utf8.Valid(b) {
		return string(b), nil
	}
	return strings.ToValidUTF8(string(b), "�"), nil
}

// validateJSONLOutput checks that every line is a JSON object carrying the
// required fields. The returned error itemizes the first few offenders so
// it can serve as corrective context.
func validateJSONLOutput(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open generated output: %w", err)
	}
	defer func() { _ = f.Close() }()

	const maxReported = 5
	var problems []string
	records := 0

	dec := record.NewReader(f)
	for idx := 0; ; idx++ {
		raw, err := dec.NextRaw()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			problems = append(problems, fmt.Sprintf("line %d: %v", idx+1, err))
			break
		}
		var m map[string]any
		if err := json.Unmarshal(raw, &m); err != nil {
			problems = append(problems, fmt.Sprintf("line %d: not a JSON object", idx+1))
		} else {
			if _, ok := m["timestamp_ms"].(float64); !ok {
				problems = append(problems, fmt.Sprintf("line %d: missing or non-numeric field \"timestamp_ms\"", idx+1))
			}
			if _, ok := m["type"].(string); !ok {
				problems = append(problems, fmt.Sprintf("line %d: missing field \"type\"", idx+1))
			}
		}
		records++
		if len(problems) >= maxReported {
			break
		}
	}

	if records == 0 {
		return errors.New("generated output is empty")
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "\n"))
	}
	return nil
}
