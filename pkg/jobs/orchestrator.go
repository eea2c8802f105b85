package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/3leaps/navconv/pkg/blobstore"
	"github.com/3leaps/navconv/pkg/convert"
	"github.com/3leaps/navconv/pkg/extract"
	"github.com/3leaps/navconv/pkg/record"
	"github.com/3leaps/navconv/pkg/schema"
	"github.com/3leaps/navconv/pkg/schemaconv"
	"github.com/3leaps/navconv/pkg/validate"
)

// legKind describes one data leg of a job. Location extraction applies to
// coordinate-bearing GNSS records only; IMU records keep their payloads and
// go to schema conversion directly.
type legKind struct {
	name             string
	schema           schema.Kind
	hint             string
	extractLocations bool
}

var (
	legGNSS = legKind{name: "gnss", schema: schema.KindGNSS, hint: "gnss", extractLocations: true}
	legIMU  = legKind{name: "imu", schema: schema.KindIMU, hint: "imu"}
)

// Orchestrator drives a single job through the pipeline. Each input leg
// runs conversion, location extraction, validation, schema mapping, and
// artifact upload. Legs fail independently: one failed leg is recorded on
// the job while the other completes.
type Orchestrator struct {
	converter  *convert.Converter
	extractor  *extract.Extractor
	schemaConv *schemaconv.Converter
	blobs      blobstore.Store
	store      *Store
	log        *zap.Logger
}

// NewOrchestrator wires the pipeline stages together.
func NewOrchestrator(conv *convert.Converter, ex *extract.Extractor, sc *schemaconv.Converter, blobs blobstore.Store, store *Store, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		converter:  conv,
		extractor:  ex,
		schemaConv: sc,
		blobs:      blobs,
		store:      store,
		log:        logger,
	}
}

// Run executes the job. Retried jobs start over from scratch: any state
// from a prior attempt is discarded before the first stage runs.
//
// The returned error is non-nil only when every present leg failed; the
// queue uses it to decide whether another attempt is due.
func (o *Orchestrator) Run(ctx context.Context, rec *Record) error {
	if !rec.HasInputs() {
		return errors.New("job has no input files")
	}

	rec.Legs = make(map[string]*LegResult)
	rec.Result = nil
	rec.FailReason = ""

	workDir, err := o.store.WorkDir(rec.JobID)
	if err != nil {
		return err
	}

	type legInput struct {
		kind  legKind
		input *InputFile
	}
	var legs []legInput
	if rec.Inputs.GNSSFile != nil {
		legs = append(legs, legInput{legGNSS, rec.Inputs.GNSSFile})
	}
	if rec.Inputs.IMUFile != nil {
		legs = append(legs, legInput{legIMU, rec.Inputs.IMUFile})
	}

	span := 90 / len(legs)
	for i, leg := range legs {
		base := i * span
		res := &LegResult{Kind: leg.kind.name}
		rec.Legs[leg.kind.name] = res

		if err := o.runLeg(ctx, rec, leg.kind, leg.input, workDir, base, span, res); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			res.Error = err.Error()
			o.setProgress(rec, StageError, rec.Progress, leg.kind.name+": "+err.Error())
			o.log.Warn("leg failed",
				zap.String("job_id", rec.JobID),
				zap.String("leg", leg.kind.name),
				zap.Error(err))
			continue
		}
		res.Completed = true
	}

	completed := 0
	for _, res := range rec.Legs {
		if res.Completed {
			completed++
		}
	}
	if completed == 0 {
		return fmt.Errorf("all legs failed: %s", o.legFailures(rec))
	}

	rec.Result = &Result{}
	if g, ok := rec.Legs[legGNSS.name]; ok && g.Completed {
		rec.Result.GNSSKey = g.OutputKey
	}
	if m, ok := rec.Legs[legIMU.name]; ok && m.Completed {
		rec.Result.IMUKey = m.OutputKey
	}

	if completed == len(legs) && len(legs) == 2 {
		o.setProgress(rec, StageFusion, 95, "combining leg outputs")
		key, err := o.fuse(ctx, rec, workDir)
		if err != nil {
			// Fusion is additive: both legs already produced artifacts.
			o.log.Warn("fusion failed", zap.String("job_id", rec.JobID), zap.Error(err))
		} else {
			rec.Result.FusedKey = key
		}
	}

	o.setProgress(rec, StageUpload, 100, "done")
	return nil
}

// runLeg executes the pipeline for one input file.
func (o *Orchestrator) runLeg(ctx context.Context, rec *Record, kind legKind, input *InputFile, workDir string, base, span int, res *LegResult) error {
	pct := func(frac float64) int { return base + int(frac*float64(span)) }

	// Stage 1: convert to intermediate JSONL.
	o.setProgress(rec, StageConversion, pct(0.05), kind.name+": converting input")
	intermediatePath := filepath.Join(workDir, kind.name+".intermediate.jsonl")
	outcome, err := o.converter.ConvertFile(ctx, input.Path, input.OriginalName, intermediatePath, convert.Options{
		DataTypeHint: kind.hint,
	})
	if err != nil {
		return fmt.Errorf("conversion: %w", err)
	}
	res.UsedFallback = outcome.UsedFallback
	res.Partial = outcome.Partial
	res.Records = int(outcome.Stats.Records)
	o.stashArtifact(ctx, rec.JobID, outcome.OutputPath)

	schemaInput := outcome.OutputPath
	if kind.extractLocations {
		// Stage 2: extract location records.
		o.setProgress(rec, StageExtraction, pct(0.35), kind.name+": extracting locations")
		locationsPath := filepath.Join(workDir, kind.name+".locations.jsonl")
		if err := o.extractLocations(ctx, outcome.OutputPath, locationsPath); err != nil {
			return fmt.Errorf("extraction: %w", err)
		}

		// Stage 3: sanity validation on location records. A failing report
		// flags the leg and rides along with the artifacts; the pipeline
		// continues so partial results are preserved.
		o.setProgress(rec, StageValidation, pct(0.5), kind.name+": validating locations")
		reportPath := filepath.Join(workDir, kind.name+".validation.json")
		report, err := o.validateLocations(ctx, locationsPath, reportPath)
		if err != nil {
			return fmt.Errorf("validation: %w", err)
		}
		res.ValidationIssues = len(report.Issues)
		if !report.Valid {
			o.log.Warn("location records flagged",
				zap.String("job_id", rec.JobID),
				zap.String("leg", kind.name),
				zap.Int("records", report.Records),
				zap.Int("issues", len(report.Issues)))
		}
		o.stashArtifact(ctx, rec.JobID, reportPath)
		o.stashArtifact(ctx, rec.JobID, locationsPath)
		schemaInput = locationsPath
	}

	// Stage 4: map onto the target schema.
	o.setProgress(rec, StageSchemaConversion, pct(0.6), kind.name+": mapping to target schema")
	structuredPath := filepath.Join(workDir, kind.name+"_data.json")
	if _, err := o.schemaConv.Convert(ctx, schemaInput, structuredPath, kind.schema); err != nil {
		return fmt.Errorf("schema conversion: %w", err)
	}

	// Stage 5: final schema validation of the produced document.
	o.setProgress(rec, StageSchemaValidation, pct(0.85), kind.name+": validating output schema")
	doc, err := os.ReadFile(structuredPath)
	if err != nil {
		return fmt.Errorf("read structured output: %w", err)
	}
	if err := schema.Validate(kind.schema, doc); err != nil {
		return fmt.Errorf("schema validation: %w", err)
	}

	// Stage 6: persist the artifact.
	o.setProgress(rec, StageUpload, pct(0.95), kind.name+": uploading artifact")
	key := artifactKey(rec.JobID, kind.name+"_data.json")
	if err := o.blobs.Put(ctx, structuredPath, key); err != nil {
		return fmt.Errorf("upload artifact: %w", err)
	}
	res.OutputKey = key
	return nil
}

// stashArtifact uploads an intermediate stage product. Failures are logged
// rather than failing the leg; only the final artifact upload is fatal.
func (o *Orchestrator) stashArtifact(ctx context.Context, jobID, localPath string) {
	key := artifactKey(jobID, filepath.Base(localPath))
	if err := o.blobs.Put(ctx, localPath, key); err != nil {
		o.log.Warn("stage artifact upload failed",
			zap.String("job_id", jobID),
			zap.String("key", key),
			zap.Error(err))
	}
}

func (o *Orchestrator) extractLocations(ctx context.Context, intermediatePath, locationsPath string) error {
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
	stats, err := o.extractor.Run(ctx, in, w)
	if cerr := out.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	if stats.Out == 0 {
		return errors.New("no location records extracted")
	}
	return nil
}

// validateLocations runs sanity validation over the location records and
// writes the report to reportPath. The report is advisory: only I/O errors
// are returned.
func (o *Orchestrator) validateLocations(ctx context.Context, locationsPath, reportPath string) (*validate.Report, error) {
	f, err := os.Open(locationsPath)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	report, err := validate.Run(ctx, f)
	if err != nil {
		return nil, err
	}

	b, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(reportPath, append(b, '\n'), 0o644); err != nil {
		return nil, fmt.Errorf("write validation report: %w", err)
	}
	return report, nil
}

// fuse combines both structured leg outputs into a single artifact.
func (o *Orchestrator) fuse(ctx context.Context, rec *Record, workDir string) (string, error) {
	gnssDoc, err := os.ReadFile(filepath.Join(workDir, "gnss_data.json"))
	if err != nil {
		return "", err
	}
	imuDoc, err := os.ReadFile(filepath.Join(workDir, "imu_data.json"))
	if err != nil {
		return "", err
	}

	// Each leg document is an object keyed by its target array; merging the
	// top-level keys yields {"gnss_data": [...], "imu_data": [...]}.
	fused := make(map[string]json.RawMessage)
	for _, doc := range [][]byte{gnssDoc, imuDoc} {
		var m map[string]json.RawMessage
		if err := json.Unmarshal(doc, &m); err != nil {
			return "", fmt.Errorf("decode leg document: %w", err)
		}
		for k, v := range m {
			fused[k] = v
		}
	}
	b, err := json.MarshalIndent(fused, "", "  ")
	if err != nil {
		return "", err
	}
	fusedPath := filepath.Join(workDir, "fused_data.json")
	if err := os.WriteFile(fusedPath, append(b, '\n'), 0o644); err != nil {
		return "", err
	}

	key := artifactKey(rec.JobID, "fused_data.json")
	if err := o.blobs.Put(ctx, fusedPath, key); err != nil {
		return "", err
	}
	return key, nil
}

// setProgress updates stage, progress, and message, persisting the record
// so status queries see live state. Persist failures are logged, not fatal.
func (o *Orchestrator) setProgress(rec *Record, stage Stage, progress int, message string) {
	rec.Stage = stage
	rec.Progress = progress
	rec.Message = message
	if err := o.store.Write(rec); err != nil {
		o.log.Warn("persist progress", zap.String("job_id", rec.JobID), zap.Error(err))
	}
}

func (o *Orchestrator) legFailures(rec *Record) string {
	var parts []string
	for name, res := range rec.Legs {
		if !res.Completed && res.Error != "" {
			parts = append(parts, name+": "+res.Error)
		}
	}
	return strings.Join(parts, "; ")
}

func artifactKey(jobID, name string) string {
	return "jobs/" + jobID + "/" + name
}
