package cmd

import (
	"os"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/navconv/internal/observability"
	"github.com/3leaps/navconv/pkg/detect"
	"github.com/3leaps/navconv/pkg/record"
)

var detectCmd = &cobra.Command{
	Use:   "detect <file>...",
	Short: "Detect the format of sensor files",
	Long: `Detect the navigation data format of one or more files.

Detection checks the file extension, then filename hints, then a bounded
content sniff. Files that match nothing report "unknown"; conversion of
unknown files goes through the generic parser.

Example:
  navconv detect track.nmea
  navconv detect "logs/**/*.bin"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDetect,
}

func init() {
	rootCmd.AddCommand(detectCmd)
}

type detectResult struct {
	Path   string `json:"path"`
	Format string `json:"format"`
}

func runDetect(cmd *cobra.Command, args []string) error {
	paths, err := expandInputs(args)
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid input", err)
	}

	w := record.NewWriter(os.Stdout)
	for _, path := range paths {
		format := detect.Detect(path, path)
		if err := w.Write(detectResult{Path: path, Format: string(format)}); err != nil {
			observability.CLILogger.Error("Failed to write result", zap.Error(err))
			return exitError(foundry.ExitFileWriteError, "Write failed", err)
		}
	}
	return nil
}
