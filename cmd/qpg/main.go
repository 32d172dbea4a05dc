// Command qpg is the local embedded schema-knowledge engine's CLI and tool
// server entrypoint.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/generalpiston/qpg/internal/logging"
)

var (
	verbose bool
	logger  *logging.Logger
)

var rootCmd = &cobra.Command{
	Use:   "qpg",
	Short: "Local embedded schema-knowledge engine for PostgreSQL",
	Long: `qpg introspects one or more PostgreSQL databases, normalizes their
schema into a local content store, overlays natural-language context, and
serves hybrid lexical/vector retrieval to the CLI and a JSON-RPC tool
server.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := logging.Info
		if verbose {
			level = logging.Debug
		}
		logger = logging.Default(level)
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// exitError carries the process exit code a failed command should report.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func fail(code int, err error) error {
	return &exitError{code: code, err: err}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		code := 1
		if ee, ok := err.(*exitError); ok {
			code = ee.code
			err = ee.err
		}
		fmt.Fprintf(os.Stderr, "qpg: %v\n", err)
		os.Exit(code)
	}
}
