package main

import (
	"errors"
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"psharvest/pkg/logger"
	"psharvest/pkg/pushshift"
	"psharvest/pkg/ui"
)

var (
	version   = "0.3.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	configFile string
	logLevel   string
	quiet      bool
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "psharvest",
	Short: "Harvest comments from a Pushshift-style search archive into a CSV snapshot",
	Long: `psharvest pages a Pushshift-style search API backward in time, one query per
subreddit, until a target number of distinct records has been collected.

Features:
  - Resumable snapshots with per-subreddit cursors
  - Polite, rate limited sequential requests
  - Backoff and exhaustion detection when the archive runs dry
  - Junk filtering of deleted and bot authors
  - Anonymized output (hashed authors and topics)
  - Prometheus metrics`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if quiet {
			ui.SetQuiet(true)
		}
		if verbose && !cmd.Flags().Changed("log-level") {
			logLevel = "debug"
		}
		if cmd.Name() != "version" && cmd.Name() != "help" {
			ui.PrintLogo()
		}
	},
}

// exitError carries a process exit code out of a command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	err := rootCmd.Execute()
	if err == nil {
		return
	}

	code := 1
	var ee *exitError
	if errors.As(err, &ee) {
		code = ee.code
	}
	ui.PrintError("Error", err)
	logger.WithError(err).Debug("Command failed")
	os.Exit(code)
}

func init() {
	pushshift.Version = version
	logger.Version = version

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is .psharvest.yaml or ~/.config/psharvest/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress all output except errors")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.SetVersionTemplate(`psharvest {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
