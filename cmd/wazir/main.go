// Command wazir is the CLI entry point: a cobra root command with a "run"
// subcommand that instantiates a module and invokes one of its exports, and
// a "wast" subcommand that replays a WebAssembly Script Test file.
//
// Grounded on grafana-k6's cobra root-command wiring (cmd/root.go's
// persistent flags applied before each subcommand runs) and on
// original_source's wast command (crates/cli/src/commands/wast.rs: take one
// or more script paths, run each through a directive processor). Decoding
// the WebAssembly binary or text format into an internal/wasm.Module is an
// external collaborator's job (spec.md §1's explicit scope boundary) — this
// command depends on that collaborator rather than reimplementing it, the
// same way wasmi's CLI depends on wat/wast crates it does not itself own.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/wazir-wasm/wazir/internal/config"
	"github.com/wazir-wasm/wazir/internal/diag"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cfg := config.Default()
	var verbose bool

	root := &cobra.Command{
		Use:           "wazir",
		Short:         "wazir is a register-machine WebAssembly interpreter",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if verbose {
				diag.SetLevel(logrus.DebugLevel)
			}
			return config.ApplyEnv(cmd.Flags())
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	config.BindFlags(root.PersistentFlags(), &cfg)

	root.AddCommand(newRunCommand(&cfg))
	root.AddCommand(newWastCommand(&cfg))
	return root
}
