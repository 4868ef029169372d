// Package exec is wazir's executor (spec.md §4.5): a single-threaded
// dispatch loop that interprets a translated function's ir.Record sequence
// against a store, using a shared growable operand array and
// base-pointer-per-frame addressing — "one fused value/call stack", per
// original_source crates/wasmi/src/engine/regmach/stack/mod.rs, which this
// package's machine (one shared stack slice plus a depth argument threaded
// through every call) directly models: Go's own call
// stack plays the role of wasmi's explicit CallStack (each Wasm call is a
// native recursive Go call), while operand words for every active frame
// live in one shared []value.Word the way wasmi keeps one ValueStack.
//
// Traps propagate by panic/recover, grounded in the teacher's interpreter
// idiom (panic(wasmruntime.Err...) deep in a dispatch loop, recovered once
// at the top-level entry point) rather than by threading an error return
// through every handler — the hot loop never pays for an error-check per
// operator.
package exec

import (
	"github.com/wazir-wasm/wazir/internal/diag"
	"github.com/wazir-wasm/wazir/internal/metrics"
	"github.com/wazir-wasm/wazir/internal/store"
	"github.com/wazir-wasm/wazir/internal/value"
	"github.com/wazir-wasm/wazir/internal/wasm"
	"github.com/wazir-wasm/wazir/internal/wasmruntime"
)

// DefaultMaxCallDepth bounds recursive re-entry (spec.md §5: "Recursive
// entry increments call depth and is bounded by the configured call-stack
// limit; exceeding the limit yields StackOverflow").
const DefaultMaxCallDepth = 1 << 14

// Engine runs compiled functions against one Store. Per spec.md §5, an
// Engine/Store pair is not safe for concurrent use; callers serialize their
// own access the same way they would a non-thread-safe C struct.
type Engine[T any] struct {
	store       *store.Store[T]
	named       map[string]store.Handle
	maxDepth    int
	fuelEnabled bool
	fuelAmount  uint64
}

// New creates an Engine bound to s with DefaultMaxCallDepth and fuel
// metering disabled.
func New[T any](s *store.Store[T]) *Engine[T] {
	return &Engine[T]{store: s, named: map[string]store.Handle{}, maxDepth: DefaultMaxCallDepth}
}

// WithMaxCallDepth overrides the call-depth limit (wired from
// internal/config's RuntimeConfig).
func (e *Engine[T]) WithMaxCallDepth(n int) *Engine[T] {
	e.maxDepth = n
	return e
}

// WithFuel enables fuel metering with a budget of amount instructions per
// top-level CallFunction invocation (wired from internal/config's
// RuntimeConfig.FuelEnabled/FuelAmount). Per Open Question 1's decision
// (DESIGN.md), exhaustion is terminal: it raises wasmruntime.TrapOutOfFuel
// and unwinds like any other trap, rather than supporting resumption.
func (e *Engine[T]) WithFuel(enabled bool, amount uint64) *Engine[T] {
	e.fuelEnabled = enabled
	e.fuelAmount = amount
	return e
}

// RegisterInstance makes an instantiated module callable by name through
// CallByName — the linker calls this once instantiation succeeds.
func (e *Engine[T]) RegisterInstance(name string, h store.Handle) {
	e.named[name] = h
}

// CallByName implements store.Reentrant, the host-callback reentry point
// spec.md §4.3 and §5 require ("host callbacks ... may recursively call
// into the engine on the same store").
func (e *Engine[T]) CallByName(moduleName, funcName string, args []value.Word) ([]value.Word, error) {
	h, ok := e.named[moduleName]
	if !ok {
		return nil, wasmruntime.ErrImportNotFound
	}
	return e.Call(h, funcName, args)
}

// Call invokes the named export of the module instance identified by h.
func (e *Engine[T]) Call(instHandle store.Handle, funcName string, args []value.Word) (results []value.Word, err error) {
	inst, err := e.store.Instance(instHandle)
	if err != nil {
		return nil, err
	}
	export, ok := inst.Exports[funcName]
	if !ok || export.Kind != wasm.ExternKindFunc {
		return nil, wasmruntime.ErrImportNotFound
	}
	return e.CallFunction(export.Function, args)
}

// CallFunction invokes a function directly by its store handle: the entry
// point used by Call, by the linker for a start function, and by the
// top-level API once a handle is known. Calls made from inside Wasm
// (including call_indirect) go through the machine instead.
func (e *Engine[T]) CallFunction(fnHandle store.Handle, args []value.Word) (results []value.Word, err error) {
	defer func() {
		if r := recover(); r != nil {
			trap, ok := r.(*wasmruntime.Trap)
			if !ok {
				panic(r) // a genuine Go bug, not a modeled trap; never swallow it.
			}
			err = trap
			diag.Log().WithField("store", e.store.DebugID()).WithField("trap", trap.Code.String()).Warn("wasm trap")
			metrics.TrapsTotal.WithLabelValues(trap.Code.String()).Inc()
		}
	}()

	vm := &machine[T]{store: e.store, engine: e, stack: make([]value.Word, 0, 256), fuel: e.fuelAmount}
	return vm.invoke(fnHandle, args, 0), nil
}
