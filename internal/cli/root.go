// Package cli is the cobra entrypoint: it registers the canonical AFD
// flags (spec §6), wires up the protocol, configuration, session, and
// router packages, and runs either the pipe-mode JSONL loop or a
// single-shot CLI query. Mirrors cmd/root.go's package-level *cobra.Command
// and init()-registered flags.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/agentfirst-data/afpsql/internal/config"
)

var RootCmd = &cobra.Command{
	Use:           "afpsqld",
	Short:         "AFD runtime engine for driving PostgreSQL from automated agents",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	registerFlags(RootCmd)
}

// Execute runs the CLI application, following cmd/root.go's Execute: plain
// stderr diagnostics and a process exit code for anything that fails
// before the protocol engine can emit its own events.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
}

// usageError marks an argument-parse failure, exit code 2 per spec §6.
type usageError struct{ msg string }

func (e *usageError) Error() string { return e.msg }

func run(cmd *cobra.Command, args []string) error {
	if f.mode != "pipe" && f.mode != "cli" {
		if f.mode == "mcp" || f.mode == "psql" {
			return &usageError{msg: fmt.Sprintf("--mode %s is built by an external translator, not this engine", f.mode)}
		}
		return &usageError{msg: fmt.Sprintf("unknown --mode %q", f.mode)}
	}
	if f.output != "json" {
		if f.output == "yaml" || f.output == "plain" {
			return &usageError{msg: fmt.Sprintf("--output %s is rendered by an external layer, not this engine", f.output)}
		}
		return &usageError{msg: fmt.Sprintf("unknown --output %q", f.output)}
	}

	initial, err := config.LoadBootstrap(f.config)
	if err != nil {
		fmt.Fprintln(os.Stderr, "afpsqld: loading bootstrap configuration:", err)
		os.Exit(2)
	}

	if f.mode == "cli" {
		os.Exit(runSingleShot(cmd, initial))
	}
	runPipe(initial)
	return nil
}
