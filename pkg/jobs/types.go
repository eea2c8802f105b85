// Package jobs manages the asynchronous conversion pipeline: a durable
// on-disk registry of submitted jobs, a polling worker queue with bounded
// retries, and the per-job orchestrator that drives each data leg through
// conversion, extraction, validation, and schema mapping.
package jobs

import "time"

// State is the lifecycle state of a conversion job.
//
// NOTE: These values are persisted in job.json and are part of the stable
// on-disk contract.
type State string

const (
	StateWaiting   State = "waiting"
	StateActive    State = "active"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// Stage names the pipeline phase a job is in. Stages are persisted for
// operator visibility alongside the numeric progress.
type Stage string

const (
	StageQueued           Stage = "queued"
	StageConversion       Stage = "conversion"
	StageExtraction       Stage = "extraction"
	StageValidation       Stage = "validation"
	StageSchemaConversion Stage = "schema_conversion"
	StageSchemaValidation Stage = "schema_validation"
	StageFusion           Stage = "fusion"
	StageUpload           Stage = "upload"
	StageError            Stage = "error"
)

// MaxAttempts is the per-job retry ceiling. A job that fails MaxAttempts
// times stays failed.
const MaxAttempts = 3

// InputFile is a submitted input: the stored path plus the name the file
// was submitted under. The original name participates in format detection.
type InputFile struct {
	Path         string `json:"path"`
	OriginalName string `json:"original_name"`
}

// Inputs holds the per-leg input files. A job carries one or both legs.
type Inputs struct {
	GNSSFile *InputFile `json:"gnss_file,omitempty"`
	IMUFile  *InputFile `json:"imu_file,omitempty"`
}

// LegResult is the outcome of one data leg. Legs succeed or fail
// independently of each other.
type LegResult struct {
	Kind         string `json:"kind"`
	Completed    bool   `json:"completed"`
	OutputKey    string `json:"output_key,omitempty"`
	Records      int    `json:"records,omitempty"`
	UsedFallback bool   `json:"used_fallback,omitempty"`
	Partial      bool   `json:"partial,omitempty"`
	// ValidationIssues counts sanity-check findings on the location
	// records. Issues are advisory and never fail the leg.
	ValidationIssues int    `json:"validation_issues,omitempty"`
	Error            string `json:"error,omitempty"`
}

// Result aggregates the artifact keys of a finished job.
type Result struct {
	GNSSKey  string `json:"gnss_key,omitempty"`
	IMUKey   string `json:"imu_key,omitempty"`
	FusedKey string `json:"fused_key,omitempty"`
}

// Record is the persistent job record written to job.json.
//
// The schema is designed for backward-compatible extension (additive
// fields).
type Record struct {
	JobID     string    `json:"job_id"`
	Name      string    `json:"name,omitempty"`
	State     State     `json:"state"`
	Stage     Stage     `json:"stage"`
	Progress  int       `json:"progress"`
	Message   string    `json:"message,omitempty"`
	Attempts  int       `json:"attempts"`
	PID       int       `json:"pid,omitempty"`
	Inputs    Inputs    `json:"inputs"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	StartedAt  *time.Time            `json:"started_at,omitempty"`
	EndedAt    *time.Time            `json:"ended_at,omitempty"`
	Legs       map[string]*LegResult `json:"legs,omitempty"`
	Result     *Result               `json:"result,omitempty"`
	FailReason string                `json:"fail_reason,omitempty"`
}

// HasInputs reports whether the job carries at least one leg.
func (r *Record) HasInputs() bool {
	return r.Inputs.GNSSFile != nil || r.Inputs.IMUFile != nil
}
