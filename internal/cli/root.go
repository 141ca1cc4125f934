// Package cli wires the lock-on operations to the lock-on-target command line.
package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/Feras-dev/track-laser-pointer/internal/config"
	"github.com/Feras-dev/track-laser-pointer/internal/logger"
)

// Exit statuses of the lock-on-target binary.
const (
	ExitOK = 0
	// ExitError covers usage errors and failures that stopped a command.
	ExitError = 1
	// ExitDecodeAbort reports a batch stopped by an undecodable frame under
	// the abort policy.
	ExitDecodeAbort = 2
)

// BuildInfo carries the version values injected at link time.
type BuildInfo struct {
	Version   string
	BuildTime string
	GitCommit string
}

// StatusError attaches an exit status to an error.
type StatusError struct {
	Code int
	Err  error
}

func (e *StatusError) Error() string { return e.Err.Error() }

func (e *StatusError) Unwrap() error { return e.Err }

// ExitCode maps the error returned by the root command to a process exit
// status.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code
	}
	return ExitError
}

// app is the state shared by all subcommands of one invocation.
type app struct {
	info BuildInfo

	envFile   string
	logLevel  string
	logFormat string

	cfg *config.Config
}

// NewRootCommand builds the lock-on-target command tree.
func NewRootCommand(info BuildInfo) *cobra.Command {
	a := &app{info: info}

	root := &cobra.Command{
		Use:   "lock-on-target",
		Short: "Locate a laser spot in grayscale frames and mark it with a crosshair",
		Long: `lock-on-target finds the bright point-like target (a saturated laser spot) in
8-bit portable graymap frames, estimates its center and writes a copy of each
frame with a crosshair drawn on it.

Configuration is read from LOCKON_* environment variables, optionally loaded
from a .env file; command line flags take precedence.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.load,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.envFile, "env-file", "", "read configuration from this file instead of ./.env")
	flags.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn or error (LOCKON_LOG_LEVEL)")
	flags.StringVar(&a.logFormat, "log-format", "", "log format: text or json (LOCKON_LOG_FORMAT)")

	root.AddCommand(
		newLockCommand(a),
		newLocateCommand(a),
		newHistogramCommand(a),
		newServeCommand(a),
		newVersionCommand(a),
	)
	return root
}

// load reads the configuration and sets up logging before any subcommand runs.
func (a *app) load(cmd *cobra.Command, _ []string) error {
	var files []string
	if a.envFile != "" {
		files = append(files, a.envFile)
	}
	cfg, err := config.Load(files...)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel = a.logLevel
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = a.logFormat
	}
	if err := logger.Configure(cfg.LogLevel, cfg.LogFormat); err != nil {
		return err
	}

	a.cfg = cfg
	return nil
}
