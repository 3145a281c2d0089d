package commands

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/tunekit/tunekit/pkg/telemetry"
)

var (
	// Global flags
	modelPath    string
	logLevel     string
	jsonOutput   bool
	traceExport  string
	otlpEndpoint string

	// set by serve before telemetry is created
	listenAddr string
)

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "tunectl",
		Short: "tunectl - inspect and tune model parameters",
		Long: `tunectl works on model images: YAML descriptions of a model's tunable
parameters together with their values.

Features:
  - List, read and write parameters by dotted name
  - Load parameter files written in YAML, CUE or Starlark
  - Guard writes with Rego policies and per-parameter limits
  - Save and restore parameter snapshots in SQLite
  - Export scalar parameters as Prometheus gauges
  - Compute multi-rate sampling factors`,
		Version:           fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
		SilenceUsage:      true,
		PersistentPreRunE: setupTelemetry(version),
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			if tel := telemetry.FromTelemetryContext(cmd.Context()); tel != nil {
				return tel.Shutdown(context.Background())
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&modelPath, "model", "m", "", "model image file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")
	rootCmd.PersistentFlags().StringVar(&traceExport, "trace", "", "trace exporter (stdout, otlp)")
	rootCmd.PersistentFlags().StringVar(&otlpEndpoint, "otlp-endpoint", "", "OTLP collector endpoint")

	rootCmd.AddCommand(newListCommand())
	rootCmd.AddCommand(newGetCommand())
	rootCmd.AddCommand(newSetCommand())
	rootCmd.AddCommand(newLoadCommand())
	rootCmd.AddCommand(newSamplingCommand())
	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newSnapshotCommand())

	return rootCmd
}

// setupTelemetry builds the process telemetry from the global flags and
// stores it in the command context.
func setupTelemetry(version string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		cfg := telemetry.DefaultConfig()
		cfg.ServiceName = "tunectl"
		cfg.ServiceVersion = version
		cfg.Logging.Level = zerolog.GlobalLevel().String()
		if logLevel != "" {
			cfg.Logging.Level = logLevel
			zerolog.SetGlobalLevel(telemetry.ParseLevel(logLevel))
		}
		if jsonOutput {
			cfg.Logging.Format = "json"
		}
		if traceExport != "" {
			cfg.Tracing.Enabled = true
			cfg.Tracing.Exporter = traceExport
			cfg.Tracing.Endpoint = otlpEndpoint
		}

		if listenAddr != "" {
			cfg.Metrics.ListenAddress = listenAddr
		}

		tel, err := telemetry.NewTelemetry(cfg)
		if err != nil {
			return fmt.Errorf("failed to set up telemetry: %w", err)
		}
		cmd.SetContext(tel.WithContext(cmd.Context()))
		return nil
	}
}
