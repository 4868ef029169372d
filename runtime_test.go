package wazir

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wazir-wasm/wazir/api"
	"github.com/wazir-wasm/wazir/internal/config"
	"github.com/wazir-wasm/wazir/internal/store"
	"github.com/wazir-wasm/wazir/internal/value"
	"github.com/wazir-wasm/wazir/internal/wasm"
)

func addModule() *wasm.Module {
	return &wasm.Module{
		Types: []wasm.FunctionType{
			{Params: []value.Type{value.I32, value.I32}, Results: []value.Type{value.I32}},
		},
		FunctionTypeIndices: []uint32{0},
		Code: []wasm.Code{{
			Body: []wasm.Instruction{
				{Op: wasm.SOpLocalGet, Index: 0},
				{Op: wasm.SOpLocalGet, Index: 1},
				{Op: wasm.SOpI32Add},
				{Op: wasm.SOpEnd},
			},
		}},
		Exports: []wasm.Export{{Name: "add", Kind: wasm.ExternKindFunc, Index: 0}},
	}
}

func TestRuntime_InstantiateModule_CallExportedFunction(t *testing.T) {
	ctx := context.Background()
	rt := NewRuntime()

	mod, err := rt.InstantiateModule(ctx, "m", addModule())
	require.NoError(t, err)
	require.Equal(t, "m", mod.Name())

	fn := mod.ExportedFunction("add")
	require.NotNil(t, fn)

	results, err := fn.Call(ctx, 2, 3)
	require.NoError(t, err)
	require.Equal(t, uint64(5), results[0])
}

func TestRuntime_ExportedFunction_MissingNameReturnsNil(t *testing.T) {
	rt := NewRuntime()
	mod, err := rt.InstantiateModule(context.Background(), "m", addModule())
	require.NoError(t, err)
	require.Nil(t, mod.ExportedFunction("nope"))
}

func globalModule() *wasm.Module {
	return &wasm.Module{
		Globals: []wasm.GlobalDef{
			{Type: wasm.GlobalType{ValType: value.I32, Mutable: true}, Init: wasm.InitExpr{Kind: wasm.InitExprI32Const, Imm: 7}},
		},
		Exports: []wasm.Export{{Name: "counter", Kind: wasm.ExternKindGlobal, Index: 0}},
	}
}

func TestRuntime_ExportedGlobal_GetAndSet(t *testing.T) {
	ctx := context.Background()
	rt := NewRuntime()
	mod, err := rt.InstantiateModule(ctx, "m", globalModule())
	require.NoError(t, err)

	g := mod.ExportedGlobal("counter")
	require.NotNil(t, g)
	require.Equal(t, uint64(7), g.Get(ctx))

	mutable, ok := g.(api.MutableGlobal)
	require.True(t, ok)
	mutable.Set(ctx, 42)
	require.Equal(t, uint64(42), g.Get(ctx))
}

func memoryModule() *wasm.Module {
	return &wasm.Module{
		Memories: []wasm.MemoryType{{Limits: wasm.Limits{Min: 1}}},
		Exports:  []wasm.Export{{Name: "mem", Kind: wasm.ExternKindMemory, Index: 0}},
	}
}

func TestRuntime_ExportedMemory_ReadWrite(t *testing.T) {
	ctx := context.Background()
	rt := NewRuntime()
	mod, err := rt.InstantiateModule(ctx, "m", memoryModule())
	require.NoError(t, err)

	mem := mod.ExportedMemory("mem")
	require.NotNil(t, mem)
	require.Equal(t, uint32(store.PageSize), mem.Size(ctx))

	ok := mem.WriteUint32Le(ctx, 0, 0xdeadbeef)
	require.True(t, ok)
	got, ok := mem.ReadUint32Le(ctx, 0)
	require.True(t, ok)
	require.Equal(t, uint32(0xdeadbeef), got)

	// A module's default (unexported) Memory() accessor reaches the same
	// handle as the named export, since there is exactly one memory.
	require.NotNil(t, mod.Memory())
}

func TestRuntime_DefineHostFunction_ImportedAndCalled(t *testing.T) {
	ctx := context.Background()
	rt := NewRuntime()

	var seen []uint64
	err := rt.DefineHostFunction("env", "record", wasm.FunctionType{Params: []value.Type{value.I32}}, func(caller store.Caller, args []value.Word) ([]value.Word, error) {
		seen = append(seen, uint64(args[0]))
		return nil, nil
	})
	require.NoError(t, err)

	ft := uint32(0)
	m := &wasm.Module{
		Types:               []wasm.FunctionType{{Params: []value.Type{value.I32}}},
		Imports:             []wasm.Import{{Module: "env", Name: "record", Desc: wasm.ExternDesc{Func: &ft}}},
		FunctionTypeIndices: []uint32{0},
		Code: []wasm.Code{{
			Body: []wasm.Instruction{
				{Op: wasm.SOpLocalGet, Index: 0},
				{Op: wasm.SOpCall, Index: 0},
				{Op: wasm.SOpEnd},
			},
		}},
		Exports: []wasm.Export{{Name: "forward", Kind: wasm.ExternKindFunc, Index: 1}},
	}

	mod, err := rt.InstantiateModule(ctx, "m", m)
	require.NoError(t, err)

	_, err = mod.ExportedFunction("forward").Call(ctx, 99)
	require.NoError(t, err)
	require.Equal(t, []uint64{99}, seen)
}

func TestRuntime_InstantiateModule_ImportNotFoundFails(t *testing.T) {
	ft := uint32(0)
	m := &wasm.Module{
		Types:   []wasm.FunctionType{{}},
		Imports: []wasm.Import{{Module: "env", Name: "missing", Desc: wasm.ExternDesc{Func: &ft}}},
	}
	rt := NewRuntime()
	_, err := rt.InstantiateModule(context.Background(), "m", m)
	require.Error(t, err)
}

func TestNewRuntimeWithConfig_HonorsMaxCallDepth(t *testing.T) {
	cfg := config.Default()
	cfg.MaxCallDepth = 4
	rt := NewRuntimeWithConfig(cfg)

	m := &wasm.Module{
		Types:               []wasm.FunctionType{{Params: []value.Type{value.I32}, Results: []value.Type{value.I32}}},
		FunctionTypeIndices: []uint32{0},
		Code: []wasm.Code{{
			Body: []wasm.Instruction{
				{Op: wasm.SOpLocalGet, Index: 0},
				{Op: wasm.SOpCall, Index: 0},
				{Op: wasm.SOpEnd},
			},
		}},
		Exports: []wasm.Export{{Name: "recurse", Kind: wasm.ExternKindFunc, Index: 0}},
	}
	mod, err := rt.InstantiateModule(context.Background(), "m", m)
	require.NoError(t, err)

	_, err = mod.ExportedFunction("recurse").Call(context.Background(), 1)
	require.Error(t, err)
}
