// Package cmd implements the navconv command tree.
package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/3leaps/navconv/internal/observability"
)

// versionInfo holds build metadata injected at link time via SetVersionInfo.
var versionInfo = struct {
	Version   string
	Commit    string
	BuildDate string
}{
	Version:   "dev",
	Commit:    "HEAD",
	BuildDate: "unknown",
}

// SetVersionInfo records build metadata for the version command and the
// status server.
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

var rootLogLevel string

var rootCmd = &cobra.Command{
	Use:   "navconv",
	Short: "Convert navigation sensor files to standardized JSON",
	Long: `navconv converts GNSS and IMU sensor files (RINEX, NMEA, UBX, CSV,
JSON, and free-form text) into schema-validated JSON documents.

Deterministic parsers handle known formats; unrecognized or badly
degraded inputs escalate to a code-generation fallback that runs
generated scripts in an isolated sandbox.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return observability.InitCLI(rootLogLevel)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootLogLevel, "log-level", "info", "Log level (debug|info|warn|error)")
}

// Execute runs the command tree with the given context.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}
