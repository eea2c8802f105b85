package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/navconv/internal/config"
	"github.com/3leaps/navconv/internal/observability"
	"github.com/3leaps/navconv/pkg/convert"
	"github.com/3leaps/navconv/pkg/record"
	"github.com/3leaps/navconv/pkg/schema"
	"github.com/3leaps/navconv/pkg/validate"
)

var convertCmd = &cobra.Command{
	Use:   "convert <file>...",
	Short: "Convert sensor files through the full pipeline",
	Long: `Convert one or more sensor files to standardized output.

Each file is converted to intermediate JSONL records, reduced to location
records, sanity checked, and (when --schema is given) mapped onto the
target schema. Unknown formats and badly degraded inputs escalate to the
code-generation fallback when a codegen API key is configured.

Example:
  navconv convert track.nmea --schema gnss -o out/
  navconv convert imu_log.json --schema imu --keymap keymap.yaml
  navconv convert "raw/**/*.obs" -o out/`,
	Args: cobra.MinimumNArgs(1),
	RunE: runConvert,
}

var (
	convertOutputDir     string
	convertSchemaName    string
	convertTypeHint      string
	convertKeymapPath    string
	convertForceFallback bool
)

func init() {
	rootCmd.AddCommand(convertCmd)

	convertCmd.Flags().StringVarP(&convertOutputDir, "output", "o", ".", "Output directory")
	convertCmd.Flags().StringVar(&convertSchemaName, "schema", "", "Target schema (gnss|imu); omit to stop after validation")
	convertCmd.Flags().StringVar(&convertTypeHint, "type", "", "Data type hint passed to the fallback (gnss|imu)")
	convertCmd.Flags().StringVar(&convertKeymapPath, "keymap", "", "YAML keymap for payload field lookup")
	convertCmd.Flags().BoolVar(&convertForceFallback, "force-fallback", false, "Skip deterministic parsers and use the fallback")
}

func runConvert(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	paths, err := expandInputs(args)
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid input", err)
	}

	kind, err := resolveSchemaKind(convertSchemaName)
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid schema", err)
	}

	cfg, err := config.Load(ctx)
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid configuration", err)
	}

	p, err := buildPipeline(ctx, cfg, observability.CLILogger)
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Failed to build pipeline", err)
	}
	defer func() { _ = p.blobs.Close() }()

	if convertKeymapPath != "" {
		data, err := os.ReadFile(convertKeymapPath)
		if err != nil {
			return exitError(foundry.ExitFileReadError, "Failed to read keymap", err)
		}
		if err := p.extractor.WithKeymap(data); err != nil {
			return exitError(foundry.ExitInvalidArgument, "Invalid keymap", err)
		}
	}

	if err := os.MkdirAll(convertOutputDir, 0o755); err != nil {
		return exitError(foundry.ExitFileWriteError, "Failed to create output directory", err)
	}

	for _, path := range paths {
		if err := convertOne(ctx, p, path, kind); err != nil {
			return err
		}
	}
	return nil
}

func resolveSchemaKind(name string) (schema.Kind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "":
		return "", nil
	case "gnss", string(schema.KindGNSS):
		return schema.KindGNSS, nil
	case "imu", string(schema.KindIMU):
		return schema.KindIMU, nil
	default:
		return "", fmt.Errorf("unknown schema %q (want gnss or imu)", name)
	}
}

func convertOne(ctx context.Context, p *pipeline, path string, kind schema.Kind) error {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	intermediatePath := filepath.Join(convertOutputDir, base+".intermediate.jsonl")
	outcome, err := p.converter.ConvertFile(ctx, path, filepath.Base(path), intermediatePath, convert.Options{
		ForceFallback: convertForceFallback,
		DataTypeHint:  convertTypeHint,
	})
	if err != nil {
		observability.CLILogger.Error("Conversion failed", zap.String("input", path), zap.Error(err))
		return exitError(foundry.ExitFileReadError, "Conversion failed", err)
	}
	observability.CLILogger.Info("Converted",
		zap.String("input", path),
		zap.String("format", string(outcome.Format)),
		zap.Int64("records", outcome.Stats.Records),
		zap.Bool("used_fallback", outcome.UsedFallback),
		zap.Bool("partial", outcome.Partial))

	// IMU payloads are not coordinate streams; they skip location
	// extraction and go to schema mapping from the intermediate records.
	schemaInput := outcome.OutputPath
	if kind != schema.KindIMU {
		locationsPath := filepath.Join(convertOutputDir, base+".locations.jsonl")
		if err := extractToFile(ctx, p, outcome.OutputPath, locationsPath); err != nil {
			observability.CLILogger.Error("Extraction failed", zap.String("input", path), zap.Error(err))
			return exitError(foundry.ExitFileWriteError, "Extraction failed", err)
		}

		report, err := validateFile(ctx, locationsPath)
		if err != nil {
			return exitError(foundry.ExitFileReadError, "Validation failed", err)
		}
		observability.CLILogger.Info("Validated",
			zap.String("input", path),
			zap.Int("records", report.Records),
			zap.Int("issues", len(report.Issues)),
			zap.Bool("valid", report.Valid))
		schemaInput = locationsPath
	}

	if kind == "" {
		return nil
	}

	structuredPath := filepath.Join(convertOutputDir, base+"."+string(kind)+".json")
	if _, err := p.schemaConv.Convert(ctx, schemaInput, structuredPath, kind); err != nil {
		observability.CLILogger.Error("Schema conversion failed", zap.String("input", path), zap.Error(err))
		return exitError(foundry.ExitExternalServiceUnavailable, "Schema conversion failed", err)
	}

	doc, err := os.ReadFile(structuredPath)
	if err != nil {
		return exitError(foundry.ExitFileReadError, "Failed to read structured output", err)
	}
	if err := schema.Validate(kind, doc); err != nil {
		observability.CLILogger.Error("Schema validation failed", zap.String("output", structuredPath), zap.Error(err))
		return exitError(foundry.ExitFileWriteError, "Schema validation failed", err)
	}
	observability.CLILogger.Info("Wrote structured output", zap.String("output", structuredPath))
	return nil
}

func extractToFile(ctx context.Context, p *pipeline, intermediatePath, locationsPath string) error {
	in, err := os.Open(intermediatePath)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.Create(locationsPath)
	if err != nil {
		return err
	}
	w := record.NewWriter(out)
	_, err = p.extractor.Run(ctx, in, w)
	if cerr := out.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

func validateFile(ctx context.Context, path string) (*validate.Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return validate.Run(ctx, f)
}
