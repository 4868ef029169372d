// Package config loads wazir's RuntimeConfig, grounded on the environment-
// variable-to-flag binding idiom of open-policy-agent/opa's cmd/internal/env
// package (viper.New + AutomaticEnv + a prefixed env var per pflag flag)
// rather than viper's own file-based config loading — wazir has no config
// file format of its own (spec.md's Non-goals exclude ahead-of-time
// serialization beyond IR), so the only thing worth layering over flag
// defaults is environment overrides for unattended/CI invocation.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/wazir-wasm/wazir/internal/store"
)

// EnvPrefix is the environment-variable prefix wazir binds flags under, e.g.
// WAZIR_MAX_CALL_DEPTH for a "--max-call-depth" flag.
const EnvPrefix = "wazir"

// RuntimeConfig holds the knobs spec.md leaves to embedder/CLI
// configuration: call-depth limiting (§5), fuel metering (§4.5), and the
// store's resource limits (§4.3).
type RuntimeConfig struct {
	MaxCallDepth int
	FuelEnabled  bool
	FuelAmount   uint64
	Limits       store.ResourceLimits
}

// Default returns the configuration every Runtime starts from absent
// explicit overrides.
func Default() RuntimeConfig {
	return RuntimeConfig{
		MaxCallDepth: 1 << 14,
		FuelEnabled:  false,
		Limits:       store.DefaultLimits,
	}
}

// BindFlags registers this package's flags on fs, defaulting to cfg's
// current values — the CLI (cmd/wazir) calls this once while building its
// root command.
func BindFlags(fs *pflag.FlagSet, cfg *RuntimeConfig) {
	fs.IntVar(&cfg.MaxCallDepth, "max-call-depth", cfg.MaxCallDepth, "maximum recursive call depth before a stack-overflow trap")
	fs.BoolVar(&cfg.FuelEnabled, "fuel", cfg.FuelEnabled, "enable fuel metering")
	fs.Uint64Var(&cfg.FuelAmount, "fuel-amount", cfg.FuelAmount, "fuel units available when fuel metering is enabled")
	fs.Uint32Var(&cfg.Limits.MaxInstances, "max-instances", cfg.Limits.MaxInstances, "maximum module instances per store")
	fs.Uint32Var(&cfg.Limits.MaxTables, "max-tables", cfg.Limits.MaxTables, "maximum tables per store")
	fs.Uint32Var(&cfg.Limits.MaxMemories, "max-memories", cfg.Limits.MaxMemories, "maximum memories per store")
}

// ApplyEnv overrides any flag on fs that the caller never explicitly set
// with its WAZIR_-prefixed environment variable, if present.
func ApplyEnv(fs *pflag.FlagSet) error {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	var errs []string
	fs.VisitAll(func(f *pflag.Flag) {
		name := strings.ReplaceAll(f.Name, "-", "_")
		if !f.Changed && v.IsSet(name) {
			if err := fs.Set(f.Name, fmt.Sprintf("%v", v.Get(name))); err != nil {
				errs = append(errs, err.Error())
			}
		}
	})
	if len(errs) > 0 {
		return fmt.Errorf("config: applying environment overrides: %s", strings.Join(errs, "; "))
	}
	return nil
}
