package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"
	"vtop-timetable/internal/components/telemetry"

	"github.com/spf13/cobra"
)

var (
	configPath *string
	verbose    *bool
	dumpHttp   *string
)

// set up by rootCmd before any subcommand runs
var (
	cfg    Config
	tel    telemetry.API
	output telemetry.MessageOutput
	// flushed by shutdownTelemetry once the command returns
	shutdowns []func(context.Context) error
)

func init() {
	configPath = rootCmd.PersistentFlags().String("config", "config.json5", "The config file to read.")
	verbose = rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log debug reports.")
	dumpHttp = rootCmd.PersistentFlags().String("dump-http", "", "Write every HTTP exchange with the portal into this directory.")
}

var rootCmd = &cobra.Command{
	Use:           "vtop-cli",
	Short:         "vtop-cli logs into VTOP and fetches your class timetable.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		telemetry.InitSlog(*verbose)

		workdir, err := os.Getwd()
		if err != nil {
			return err
		}
		cfg, err = loadConfig(workdir, *configPath)
		if err != nil {
			return err
		}

		providers, err := telemetry.Setup(cmd.Context(), "vtop-cli", cfg.Telemetry)
		if err != nil {
			return fmt.Errorf("setup telemetry: %w", err)
		}
		shutdowns = append(shutdowns, providers.Shutdown)
		otelApi, err := telemetry.NewOtelAPI(telemetry.SlogAPI{})
		if err != nil {
			return fmt.Errorf("setup telemetry: %w", err)
		}
		tel = otelApi

		if *dumpHttp != "" {
			fsOutput, err := telemetry.NewFilesystemOutput(*dumpHttp)
			if err != nil {
				return err
			}
			output = fsOutput
		}
		return nil
	},
}

// shutdownTelemetry flushes the otel providers, it runs after every command
// whether or not the command failed.
func shutdownTelemetry() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, shutdown := range shutdowns {
		err := shutdown(ctx)
		if err != nil {
			slog.Warn("failed to flush telemetry", "err", err)
		}
	}
	shutdowns = nil
}

// ExecuteContext runs the command line and returns the first error a command
// returned, telemetry is flushed before returning.
func ExecuteContext(ctx context.Context, args []string) error {
	defer shutdownTelemetry()
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}
