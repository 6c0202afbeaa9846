// Package main implements passcracker, a brute-force password search over
// a configurable candidate sequence.
package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// Exit statuses.
const (
	exitFound       = 0
	exitNotFound    = 1
	exitInterrupted = 2
	exitIllegalArgs = 3
	exitError       = 5
)

// Global variables
var (
	// l is the logger instance used throughout the application
	l = zerolog.New(os.Stderr).With().Timestamp().Logger()
	// version is the application version string, set at build time
	version = "dev"

	verbose bool
	pretty  bool
)

// exitCodeError carries the exit status a command wants.
type exitCodeError struct {
	code int
	err  error
}

func (e *exitCodeError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitCodeError) Unwrap() error {
	return e.err
}

func withCode(code int, err error) error {
	return &exitCodeError{code: code, err: err}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "passcracker",
		Short:         "Brute-force the password of an encrypted file",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			l = newLogger(verbose, pretty)
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().BoolVar(&pretty, "pretty", true, "human readable log output instead of JSON")

	root.AddCommand(newCrackCmd(), newGenCmd(), newVersionCmd())
	return root
}

func newLogger(verbose, pretty bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	if pretty {
		w := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}
		return zerolog.New(w).Level(level).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version and exit",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), showVersion())
		},
	}
}

// showVersion returns a formatted version string for display.
func showVersion() string {
	return fmt.Sprintf("Version: %s", version)
}

// main runs the root command and maps its error to an exit status.
func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	root := newRootCmd()
	root.SetArgs(args)
	err := root.Execute()
	if err == nil {
		return exitFound
	}

	var coded *exitCodeError
	if errors.As(err, &coded) {
		if coded.err != nil {
			l.Error().Err(coded.err).Msg("passcracker failed")
		}
		return coded.code
	}
	// flag and argument errors from cobra
	l.Error().Err(err).Msg("illegal arguments")
	return exitIllegalArgs
}
