package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"costdeploy/internal/app"
	"costdeploy/internal/config"
	apperrors "costdeploy/internal/errors"
	"costdeploy/internal/logging"
	"costdeploy/internal/ui"
	"costdeploy/pkg/deployment"
)

// version is set at build time via ldflags
var version = "dev"

var (
	configFile string
	dryRun     bool
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:     "costdeploy",
	Short:   "Provision a host and run the AWS cost dashboard as a systemd service",
	Version: version,
	Long: `costdeploy prepares a Linux host for the AWS cost dashboard: it refreshes
system packages, installs the Python runtime, builds a virtual environment with
the application's dependencies, registers and starts the systemd service and
prints the public URL of the dashboard.

Steps up to service registration stop the run on failure; the status check,
address discovery and summary only warn.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		handler, err := apperrors.GetDefaultHandler()
		if err != nil {
			return fmt.Errorf("failed to initialise error log: %w", err)
		}

		console := ui.NewConsole()
		factory := app.NewHostFactory(dryRun, console.Out(), nil)

		_, err = app.New(cfg, factory, console, handler, dryRun).Run(cmd.Context())
		return err
	},
}

var lastRunCmd = &cobra.Command{
	Use:   "last-run",
	Short: "Show the journal of the most recent run",
	Long: `last-run prints the run journal written at the end of the previous
non-dry run: its outcome, the service status, the endpoint and the per-step results.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.State.File == "" {
			return fmt.Errorf("no journal file configured (state.file)")
		}

		state, err := app.LoadState(afero.NewOsFs(), cfg.State.File)
		if err != nil {
			return err
		}
		if state == nil {
			fmt.Fprintf(cmd.OutOrStdout(), "No run recorded in %s\n", cfg.State.File)
			return nil
		}

		app.RenderState(cmd.OutOrStdout(), state)
		return nil
	},
}

func loadConfig() (*deployment.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, apperrors.NewConfigError("Invalid configuration", err.Error(),
			"Check the config file and COSTDEPLOY_* environment variables", err)
	}
	return cfg, nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to a YAML config file (defaults and COSTDEPLOY_* variables apply without one)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show debug logging")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the commands and service actions without changing the host")

	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		logging.Setup(logging.Options{Verbose: verbose})
	}

	rootCmd.AddCommand(lastRunCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		apperrors.HandleError(err)
		os.Exit(apperrors.ExitCode(err))
	}
}
