// Package wazir is a register-machine WebAssembly interpreter: compile a
// validated wasm.Module, instantiate it against a Store, and call its
// exports through the api package's decoupled Module/Function/Memory/Global
// interfaces (spec.md §1, §8).
//
// This is the public face of the engine built in internal/{ir,value,arena,
// wasm,translator,store,exec,linker}: Runtime wires a Store, an
// exec.Engine and a linker.Linker together the way the teacher's
// Runtime/Namespace pairing does, adapted to wazir's register-machine
// translator/executor instead of wazero's multi-tiered (interpreter/JIT)
// engine.
package wazir

import (
	"context"
	"fmt"

	"github.com/wazir-wasm/wazir/api"
	"github.com/wazir-wasm/wazir/internal/config"
	"github.com/wazir-wasm/wazir/internal/exec"
	"github.com/wazir-wasm/wazir/internal/linker"
	"github.com/wazir-wasm/wazir/internal/store"
	"github.com/wazir-wasm/wazir/internal/value"
	"github.com/wazir-wasm/wazir/internal/wasm"
)

// Runtime owns one Store/Engine/Linker triple. It is not safe for
// concurrent use (spec.md §5), mirroring the Store it wraps.
type Runtime struct {
	store  *store.Store[any]
	engine *exec.Engine[any]
	linker *linker.Linker[any]
	cfg    config.RuntimeConfig
}

// NewRuntime creates a Runtime with config.Default().
func NewRuntime() *Runtime {
	return NewRuntimeWithConfig(config.Default())
}

// NewRuntimeWithConfig creates a Runtime with an explicit RuntimeConfig, as
// built by a CLI's flag binding (internal/config.BindFlags) or an embedder.
func NewRuntimeWithConfig(cfg config.RuntimeConfig) *Runtime {
	s := store.NewWithLimits[any](nil, cfg.Limits, nil)
	e := exec.New[any](s).WithMaxCallDepth(cfg.MaxCallDepth).WithFuel(cfg.FuelEnabled, cfg.FuelAmount)
	l := linker.New[any](s, e)
	return &Runtime{store: s, engine: e, linker: l, cfg: cfg}
}

// DefineHostFunction registers fn under (moduleName, funcName) so a module
// instantiated afterwards may import it.
func (r *Runtime) DefineHostFunction(moduleName, funcName string, ft wasm.FunctionType, fn store.HostFunc) error {
	return r.linker.DefineHostFunction(moduleName, funcName, ft, fn)
}

// InstantiateModule runs spec.md §4.6's instantiation sequence for m,
// publishing it under name, and returns an api.Module view over it.
func (r *Runtime) InstantiateModule(_ context.Context, name string, m *wasm.Module) (api.Module, error) {
	h, err := r.linker.Instantiate(name, m)
	if err != nil {
		return nil, err
	}
	inst, err := r.store.Instance(h)
	if err != nil {
		return nil, err
	}
	return &moduleInstance{rt: r, handle: h, inst: inst}, nil
}

// moduleInstance adapts a store.ModuleInstance to api.Module.
type moduleInstance struct {
	rt     *Runtime
	handle store.Handle
	inst   *store.ModuleInstance
}

func (m *moduleInstance) String() string { return fmt.Sprintf("module[%s]", m.inst.Name) }
func (m *moduleInstance) Name() string   { return m.inst.Name }

func (m *moduleInstance) Memory() api.Memory {
	if len(m.inst.Memories) == 0 {
		return nil
	}
	return &memoryInstance{rt: m.rt, handle: m.inst.Memories[0]}
}

func (m *moduleInstance) ExportedFunction(name string) api.Function {
	exp, ok := m.inst.Exports[name]
	if !ok || exp.Kind != wasm.ExternKindFunc {
		return nil
	}
	return &function{rt: m.rt, handle: exp.Function, name: name, moduleName: m.inst.Name}
}

func (m *moduleInstance) ExportedMemory(name string) api.Memory {
	exp, ok := m.inst.Exports[name]
	if !ok || exp.Kind != wasm.ExternKindMemory {
		return nil
	}
	return &memoryInstance{rt: m.rt, handle: exp.Memory}
}

func (m *moduleInstance) ExportedGlobal(name string) api.Global {
	exp, ok := m.inst.Exports[name]
	if !ok || exp.Kind != wasm.ExternKindGlobal {
		return nil
	}
	g, err := m.rt.store.Global(exp.Global)
	if err != nil {
		return nil
	}
	gl := &global{rt: m.rt, handle: exp.Global, valType: g.Type.ValType, mutable: g.Type.Mutable}
	if !gl.mutable {
		// Hide Set so an api.MutableGlobal assertion fails for constants.
		return struct{ api.Global }{gl}
	}
	return gl
}

func (m *moduleInstance) CloseWithExitCode(context.Context, uint32) error { return nil }
func (m *moduleInstance) Close(context.Context) error                    { return nil }

// function adapts one exported Wasm function to api.Function.
type function struct {
	rt         *Runtime
	handle     store.Handle
	name       string
	moduleName string
}

// Call invokes f with params encoded per api.ValueType's uint64 convention,
// converting to/from value.Word at the boundary.
func (f *function) Call(_ context.Context, params ...uint64) ([]uint64, error) {
	if fn, err := f.rt.store.Function(f.handle); err == nil && len(params) != len(fn.Type.Params) {
		return nil, fmt.Errorf("wazir: %s.%s takes %d params, got %d", f.moduleName, f.name, len(fn.Type.Params), len(params))
	}
	args := make([]value.Word, len(params))
	for i, p := range params {
		args[i] = value.Word(p)
	}
	results, err := f.rt.engine.CallFunction(f.handle, args)
	if err != nil {
		return nil, err
	}
	out := make([]uint64, len(results))
	for i, w := range results {
		out[i] = uint64(w)
	}
	return out, nil
}

// global adapts one exported global to api.Global/api.MutableGlobal.
type global struct {
	rt      *Runtime
	handle  store.Handle
	valType value.Type
	mutable bool
}

func (g *global) String() string   { return fmt.Sprintf("global(%s)", g.valType) }
func (g *global) Type() api.ValueType {
	switch g.valType {
	case value.I32:
		return api.ValueTypeI32
	case value.I64:
		return api.ValueTypeI64
	case value.F32:
		return api.ValueTypeF32
	case value.F64:
		return api.ValueTypeF64
	default:
		return api.ValueTypeExternref
	}
}

func (g *global) Get(context.Context) uint64 {
	inst, err := g.rt.store.Global(g.handle)
	if err != nil {
		return 0
	}
	return uint64(inst.Value)
}

func (g *global) Set(_ context.Context, v uint64) {
	inst, err := g.rt.store.Global(g.handle)
	if err != nil {
		return
	}
	inst.Value = value.Word(v)
}

var (
	_ api.Global        = (*global)(nil)
	_ api.MutableGlobal = (*global)(nil)
	_ api.Module        = (*moduleInstance)(nil)
	_ api.Function      = (*function)(nil)
	_ api.Memory        = (*memoryInstance)(nil)
)
