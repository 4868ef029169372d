package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	wazir "github.com/wazir-wasm/wazir"
	"github.com/wazir-wasm/wazir/internal/config"
	"github.com/wazir-wasm/wazir/internal/wasm"
)

// decodeModule turns a .wasm/.wat file's bytes into a validated wasm.Module.
// wazir's scope stops at the Translator's input contract (spec.md §1): binary
// decoding and validation are an external collaborator's responsibility, so
// this command depends on one being linked in rather than reimplementing a
// parser. No such collaborator ships in this module; a build that wants
// "wazir run" to work end-to-end against real .wasm files links one in and
// sets this hook in an init() func.
var decodeModule func(path string) (*wasm.Module, error)

func newRunCommand(cfg *config.RuntimeConfig) *cobra.Command {
	var invoke string
	var moduleName string

	cmd := &cobra.Command{
		Use:   "run <path.wasm> [args...]",
		Short: "Instantiate a module and invoke one of its exports",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if decodeModule == nil {
				return fmt.Errorf("run: no WebAssembly decoder linked into this build (see decodeModule in run.go)")
			}
			m, err := decodeModule(args[0])
			if err != nil {
				return fmt.Errorf("run: decoding %s: %w", args[0], err)
			}

			rt := wazir.NewRuntimeWithConfig(*cfg)
			ctx := context.Background()
			mod, err := rt.InstantiateModule(ctx, moduleName, m)
			if err != nil {
				return fmt.Errorf("run: instantiating %s: %w", args[0], err)
			}

			if invoke == "" {
				return nil
			}
			fn := mod.ExportedFunction(invoke)
			if fn == nil {
				return fmt.Errorf("run: %s exports no function named %q", args[0], invoke)
			}
			params, err := parseUint64Args(args[1:])
			if err != nil {
				return err
			}
			results, err := fn.Call(ctx, params...)
			if err != nil {
				return fmt.Errorf("run: calling %q: %w", invoke, err)
			}
			for _, r := range results {
				fmt.Fprintln(cmd.OutOrStdout(), r)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&invoke, "invoke", "", "exported function to call after instantiation")
	cmd.Flags().StringVar(&moduleName, "name", "main", "name to register the instantiated module under")
	return cmd
}

func parseUint64Args(args []string) ([]uint64, error) {
	out := make([]uint64, len(args))
	for i, a := range args {
		var v uint64
		if _, err := fmt.Sscan(a, &v); err != nil {
			return nil, fmt.Errorf("run: argument %q is not a uint64: %w", a, err)
		}
		out[i] = v
	}
	return out, nil
}
