package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"

	"github.com/3leaps/navconv/internal/config"
	"github.com/3leaps/navconv/pkg/jobs"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Submit and inspect conversion jobs",
}

var jobsSubmitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit a conversion job",
	Long: `Submit a job with a GNSS input, an IMU input, or both.

The job is written to the registry in the waiting state; a running worker
picks it up. Legs are processed independently: a failed GNSS leg does not
stop the IMU leg.

Example:
  navconv jobs submit --gnss track.nmea --imu imu_log.json
  navconv jobs submit --gnss rover.obs --name "survey 12"`,
	RunE: runJobsSubmit,
}

var jobsStatusCmd = &cobra.Command{
	Use:   "status <job-id>",
	Short: "Show a job record",
	Args:  cobra.ExactArgs(1),
	RunE:  runJobsStatus,
}

var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List jobs, newest first",
	RunE:  runJobsList,
}

var (
	jobsSubmitGNSS string
	jobsSubmitIMU  string
	jobsSubmitName string
)

func init() {
	rootCmd.AddCommand(jobsCmd)
	jobsCmd.AddCommand(jobsSubmitCmd)
	jobsCmd.AddCommand(jobsStatusCmd)
	jobsCmd.AddCommand(jobsListCmd)

	jobsSubmitCmd.Flags().StringVar(&jobsSubmitGNSS, "gnss", "", "GNSS input file")
	jobsSubmitCmd.Flags().StringVar(&jobsSubmitIMU, "imu", "", "IMU input file")
	jobsSubmitCmd.Flags().StringVar(&jobsSubmitName, "name", "", "Optional job name")
}

func jobStore(cmd *cobra.Command) (*jobs.Store, error) {
	cfg, err := config.Load(cmd.Context())
	if err != nil {
		return nil, err
	}
	return jobs.NewStore(cfg.Jobs.DataDir), nil
}

func runJobsSubmit(cmd *cobra.Command, args []string) error {
	store, err := jobStore(cmd)
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid configuration", err)
	}

	inputs := jobs.Inputs{}
	if jobsSubmitGNSS != "" {
		input, err := resolveInput(jobsSubmitGNSS)
		if err != nil {
			return exitError(foundry.ExitFileReadError, "GNSS input", err)
		}
		inputs.GNSSFile = input
	}
	if jobsSubmitIMU != "" {
		input, err := resolveInput(jobsSubmitIMU)
		if err != nil {
			return exitError(foundry.ExitFileReadError, "IMU input", err)
		}
		inputs.IMUFile = input
	}

	rec, err := store.Submit(jobsSubmitName, inputs)
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Submit failed", err)
	}
	return printJSON(rec)
}

func runJobsStatus(cmd *cobra.Command, args []string) error {
	store, err := jobStore(cmd)
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid configuration", err)
	}
	rec, err := store.Get(args[0])
	if err != nil {
		if os.IsNotExist(err) {
			return exitError(foundry.ExitFileNotFound, "Job not found", err)
		}
		return exitError(foundry.ExitFileReadError, "Failed to load job", err)
	}
	return printJSON(rec)
}

func runJobsList(cmd *cobra.Command, args []string) error {
	store, err := jobStore(cmd)
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid configuration", err)
	}
	records, err := store.List()
	if err != nil {
		return exitError(foundry.ExitFileReadError, "Failed to list jobs", err)
	}
	if records == nil {
		records = []jobs.Record{}
	}
	return printJSON(records)
}

// resolveInput validates the input file and records its absolute path plus
// the submitted basename for format detection.
func resolveInput(path string) (*jobs.InputFile, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, os.ErrInvalid
	}
	return &jobs.InputFile{Path: abs, OriginalName: filepath.Base(path)}, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
