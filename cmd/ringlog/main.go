package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/avoronov/ringlog/internal/cli"
	"github.com/avoronov/ringlog/internal/config"
)

var version = "dev"

var (
	cfg        *config.Config
	timeoutStr string
	verbose    bool
	jsonErrors bool
)

const defaultTimeout = 30 * time.Second

func main() {
	if err := execute(); err != nil {
		cli.FormatError(os.Stderr, err, jsonErrors)
		os.Exit(cli.ExitCode(err))
	}
}

func execute() error {
	cfg = config.Load()
	if cfg.Defaults.Verbose {
		verbose = true
	}

	root := &cobra.Command{
		Use:           "ringlog",
		Short:         "Shared ring buffer log collector",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&timeoutStr, "timeout", "", "timeout for cluster operations (e.g. 30s)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", verbose, "verbose output")
	root.PersistentFlags().BoolVar(&jsonErrors, "json-errors", false, "emit errors as JSON")

	root.AddCommand(newServeCmd())
	root.AddCommand(newCaptureCmd())
	root.AddCommand(newDrainCmd())
	root.AddCommand(newResetCmd())
	root.AddCommand(newStatusCmd())
	root.AddCommand(newWatchCmd())
	root.AddCommand(newExportCmd())
	root.AddCommand(newUploadCmd())
	root.AddCommand(newDeployCmd())
	root.AddCommand(newUndeployCmd())
	root.AddCommand(newTunnelCmd())
	root.AddCommand(newCompletionCmd())
	return root.Execute()
}
