package cmd

import (
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"

	"github.com/3leaps/navconv/internal/config"
	"github.com/3leaps/navconv/internal/observability"
	"github.com/3leaps/navconv/internal/server"
	"github.com/3leaps/navconv/pkg/jobs"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the status HTTP server",
	Long: `Run the read-only status server.

Endpoints:
  GET /healthz           liveness
  GET /version           build metadata
  GET /api/v1/jobs       job list
  GET /api/v1/jobs/{id}  single job record`,
	RunE: runServe,
}

var (
	serveHost string
	servePort int
)

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Bind host (overrides config)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Bind port (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	overrides := map[string]any{}
	if serveHost != "" || servePort != 0 {
		srv := map[string]any{}
		if serveHost != "" {
			srv["host"] = serveHost
		}
		if servePort != 0 {
			srv["port"] = servePort
		}
		overrides["server"] = srv
	}

	cfg, err := config.Load(ctx, overrides)
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid configuration", err)
	}

	logger, err := observability.NewLogger(cfg.Logging.Level, cfg.Logging.Profile)
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid logging configuration", err)
	}
	defer func() { _ = logger.Sync() }()

	store := jobs.NewStore(cfg.Jobs.DataDir)
	srv := server.New(cfg.Server.Host, cfg.Server.Port, store, server.VersionInfo{
		Version:   versionInfo.Version,
		Commit:    versionInfo.Commit,
		BuildDate: versionInfo.BuildDate,
	}, logger)

	if err := srv.ListenAndServe(ctx,
		cfg.Server.ReadTimeout,
		cfg.Server.WriteTimeout,
		cfg.Server.IdleTimeout,
		cfg.Server.ShutdownTimeout,
	); err != nil {
		return exitError(foundry.ExitExternalServiceUnavailable, "Server error", err)
	}
	return nil
}
