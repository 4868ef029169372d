package exec

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wazir-wasm/wazir/internal/linker"
	"github.com/wazir-wasm/wazir/internal/store"
	"github.com/wazir-wasm/wazir/internal/value"
	"github.com/wazir-wasm/wazir/internal/wasm"
	"github.com/wazir-wasm/wazir/internal/wasmruntime"
)

// newTestHarness wires a fresh Store/Engine/Linker triple the way
// runtime.go's public constructors do, scoped to a no-op Data payload since
// no host function in these tests reads Caller.Data.
func newTestHarness() (*store.Store[struct{}], *Engine[struct{}], *linker.Linker[struct{}]) {
	s := store.New[struct{}](struct{}{})
	e := New[struct{}](s)
	l := linker.New[struct{}](s, e)
	return s, e, l
}

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

func TestCallFunction_AddParams(t *testing.T) {
	_, e, l := newTestHarness()
	h, err := l.Instantiate("m", addModule())
	require.NoError(t, err)

	results, err := e.Call(h, "add", []value.Word{value.WordFromI32(2), value.WordFromI32(3)})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, int32(5), results[0].I32())
}

// doubleModule builds on addModule's shape: a second function that doubles
// its argument by calling the first function internally (SOpCall), proving
// OpCallInternal's argument/result window plumbing end to end.
func doubleModule() *wasm.Module {
	m := addModule()
	m.Types = append(m.Types, wasm.FunctionType{Params: []value.Type{value.I32}, Results: []value.Type{value.I32}})
	m.FunctionTypeIndices = append(m.FunctionTypeIndices, 1)
	m.Code = append(m.Code, wasm.Code{
		Body: []wasm.Instruction{
			{Op: wasm.SOpLocalGet, Index: 0},
			{Op: wasm.SOpLocalGet, Index: 0},
			{Op: wasm.SOpCall, Index: 0},
			{Op: wasm.SOpEnd},
		},
	})
	m.Exports = append(m.Exports, wasm.Export{Name: "double", Kind: wasm.ExternKindFunc, Index: 1})
	return m
}

func TestCallFunction_CallInternal(t *testing.T) {
	_, e, l := newTestHarness()
	h, err := l.Instantiate("m", doubleModule())
	require.NoError(t, err)

	results, err := e.Call(h, "double", []value.Word{value.WordFromI32(21)})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, int32(42), results[0].I32())
}

func TestCallFunction_DivisionByZeroTrap(t *testing.T) {
	m := &wasm.Module{
		Types: []wasm.FunctionType{
			{Params: []value.Type{value.I32, value.I32}, Results: []value.Type{value.I32}},
		},
		FunctionTypeIndices: []uint32{0},
		Code: []wasm.Code{{
			Body: []wasm.Instruction{
				{Op: wasm.SOpLocalGet, Index: 0},
				{Op: wasm.SOpLocalGet, Index: 1},
				{Op: wasm.SOpI32DivS},
				{Op: wasm.SOpEnd},
			},
		}},
		Exports: []wasm.Export{{Name: "div", Kind: wasm.ExternKindFunc, Index: 0}},
	}
	_, e, l := newTestHarness()
	h, err := l.Instantiate("m", m)
	require.NoError(t, err)

	_, err = e.Call(h, "div", []value.Word{value.WordFromI32(10), value.WordFromI32(0)})
	require.Error(t, err)
	var trap *wasmruntime.Trap
	require.True(t, errors.As(err, &trap))
	require.Equal(t, wasmruntime.TrapIntegerDivisionByZero, trap.Code)
}

func TestCallFunction_MemoryOutOfBounds(t *testing.T) {
	m := &wasm.Module{
		Types:               []wasm.FunctionType{{Params: []value.Type{value.I32}, Results: []value.Type{value.I32}}},
		FunctionTypeIndices: []uint32{0},
		Code: []wasm.Code{{
			Body: []wasm.Instruction{
				{Op: wasm.SOpLocalGet, Index: 0},
				{Op: wasm.SOpI32Load},
				{Op: wasm.SOpEnd},
			},
		}},
		Memories: []wasm.MemoryType{{Limits: wasm.Limits{Min: 1}}},
		Exports:  []wasm.Export{{Name: "load", Kind: wasm.ExternKindFunc, Index: 0}},
	}
	_, e, l := newTestHarness()
	h, err := l.Instantiate("m", m)
	require.NoError(t, err)

	_, err = e.Call(h, "load", []value.Word{value.WordFromU32(store.PageSize)})
	require.Error(t, err)
	var trap *wasmruntime.Trap
	require.True(t, errors.As(err, &trap))
	require.Equal(t, wasmruntime.TrapMemoryOutOfBounds, trap.Code)
}

// unboundedRecursionModule calls itself with no base case, exercising the
// call-depth guard rather than an actual Go stack overflow.
func unboundedRecursionModule() *wasm.Module {
	return &wasm.Module{
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
}

func TestCallFunction_StackOverflow(t *testing.T) {
	s := store.New[struct{}](struct{}{})
	e := New[struct{}](s).WithMaxCallDepth(64)
	l := linker.New[struct{}](s, e)
	h, err := l.Instantiate("m", unboundedRecursionModule())
	require.NoError(t, err)

	_, err = e.Call(h, "recurse", []value.Word{value.WordFromI32(1)})
	require.Error(t, err)
	var trap *wasmruntime.Trap
	require.True(t, errors.As(err, &trap))
	require.Equal(t, wasmruntime.TrapStackOverflow, trap.Code)
}

// startFuncModule sets a mutable global from its start function, and exports
// a getter so the test can observe the effect without reaching into the
// store directly — and its instance handle lets the test confirm
// ModuleInstance.StartFunc itself was persisted, not just that the call ran.
func startFuncModule() *wasm.Module {
	startIdx := uint32(0)
	return &wasm.Module{
		Types: []wasm.FunctionType{
			{},
			{Results: []value.Type{value.I32}},
		},
		FunctionTypeIndices: []uint32{0, 1},
		Code: []wasm.Code{
			{Body: []wasm.Instruction{
				{Op: wasm.SOpI32Const, Imm: 99},
				{Op: wasm.SOpGlobalSet, Index: 0},
				{Op: wasm.SOpEnd},
			}},
			{Body: []wasm.Instruction{
				{Op: wasm.SOpGlobalGet, Index: 0},
				{Op: wasm.SOpEnd},
			}},
		},
		Globals: []wasm.GlobalDef{
			{Type: wasm.GlobalType{ValType: value.I32, Mutable: true}, Init: wasm.InitExpr{Kind: wasm.InitExprI32Const, Imm: 0}},
		},
		StartFunc: &startIdx,
		Exports:   []wasm.Export{{Name: "get", Kind: wasm.ExternKindFunc, Index: 1}},
	}
}

// hostReentryModule exports "square" and "run", where "run" calls an
// imported host function that itself calls back into "square" — exercising
// Caller.Reenter.CallByName end to end rather than just invokeHost in
// isolation.
func hostReentryModule() *wasm.Module {
	ft := uint32(0)
	return &wasm.Module{
		Types: []wasm.FunctionType{
			{Params: []value.Type{value.I32}, Results: []value.Type{value.I32}},
		},
		Imports:             []wasm.Import{{Module: "env", Name: "host_call", Desc: wasm.ExternDesc{Func: &ft}}},
		FunctionTypeIndices: []uint32{0, 0},
		Code: []wasm.Code{
			{Body: []wasm.Instruction{
				{Op: wasm.SOpLocalGet, Index: 0},
				{Op: wasm.SOpLocalGet, Index: 0},
				{Op: wasm.SOpI32Mul},
				{Op: wasm.SOpEnd},
			}},
			{Body: []wasm.Instruction{
				{Op: wasm.SOpLocalGet, Index: 0},
				{Op: wasm.SOpCall, Index: 0},
				{Op: wasm.SOpEnd},
			}},
		},
		Exports: []wasm.Export{
			{Name: "square", Kind: wasm.ExternKindFunc, Index: 1},
			{Name: "run", Kind: wasm.ExternKindFunc, Index: 2},
		},
	}
}

func TestCallFunction_HostReentry(t *testing.T) {
	_, e, l := newTestHarness()

	hostFn := func(caller store.Caller, args []value.Word) ([]value.Word, error) {
		results, err := caller.Reenter.CallByName("m", "square", args)
		if err != nil {
			return nil, err
		}
		return []value.Word{value.WordFromI32(results[0].I32() + 1)}, nil
	}
	err := l.DefineHostFunction("env", "host_call", wasm.FunctionType{
		Params: []value.Type{value.I32}, Results: []value.Type{value.I32},
	}, hostFn)
	require.NoError(t, err)

	h, err := l.Instantiate("m", hostReentryModule())
	require.NoError(t, err)

	results, err := e.Call(h, "run", []value.Word{value.WordFromI32(5)})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, int32(26), results[0].I32())
}

// narrowStoreModule exercises the width-aware store/load family: an i32.store
// at offset 0 must not clobber the adjacent i32 stored at offset 4, and an
// i32.store8/load8_u/load8_s triple must round-trip through sign and zero
// extension correctly.
func narrowStoreModule() *wasm.Module {
	return &wasm.Module{
		Types: []wasm.FunctionType{
			{Results: []value.Type{value.I32, value.I32, value.I32, value.I32}},
		},
		FunctionTypeIndices: []uint32{0},
		Memories:            []wasm.MemoryType{{Limits: wasm.Limits{Min: 1}}},
		Code: []wasm.Code{{
			Body: []wasm.Instruction{
				{Op: wasm.SOpI32Const, Imm: 0},
				{Op: wasm.SOpI32Const, Imm: -1},
				{Op: wasm.SOpI32Store, Mem: wasm.MemArg{Offset: 0}},
				{Op: wasm.SOpI32Const, Imm: 0},
				{Op: wasm.SOpI32Const, Imm: 0x12345678},
				{Op: wasm.SOpI32Store, Mem: wasm.MemArg{Offset: 4}},
				{Op: wasm.SOpI32Const, Imm: 0},
				{Op: wasm.SOpI32Load, Mem: wasm.MemArg{Offset: 0}},
				{Op: wasm.SOpI32Const, Imm: 0},
				{Op: wasm.SOpI32Load, Mem: wasm.MemArg{Offset: 4}},
				{Op: wasm.SOpI32Const, Imm: 0},
				{Op: wasm.SOpI32Const, Imm: 0xff},
				{Op: wasm.SOpI32Store8, Mem: wasm.MemArg{Offset: 8}},
				{Op: wasm.SOpI32Const, Imm: 0},
				{Op: wasm.SOpI32Load8U, Mem: wasm.MemArg{Offset: 8}},
				{Op: wasm.SOpI32Const, Imm: 0},
				{Op: wasm.SOpI32Load8S, Mem: wasm.MemArg{Offset: 8}},
				{Op: wasm.SOpEnd},
			},
		}},
		Exports: []wasm.Export{{Name: "run", Kind: wasm.ExternKindFunc, Index: 0}},
	}
}

func TestCallFunction_NarrowStoreDoesNotClobberAdjacent(t *testing.T) {
	_, e, l := newTestHarness()
	h, err := l.Instantiate("m", narrowStoreModule())
	require.NoError(t, err)

	results, err := e.Call(h, "run", nil)
	require.NoError(t, err)
	require.Len(t, results, 4)
	require.Equal(t, int32(-1), results[0].I32(), "i32.store at offset 0 must not be clobbered by the store at offset 4")
	require.Equal(t, int32(0x12345678), results[1].I32())
	require.Equal(t, int32(255), results[2].I32(), "load8_u must zero-extend")
	require.Equal(t, int32(-1), results[3].I32(), "load8_s must sign-extend")
}

// tailLoadModule issues a 4-byte i32.load at the very last 4 bytes of a
// single-page memory: legal under §4.5's per-width effective-address check,
// but a load that always moved 8 bytes would spuriously trap here.
func tailLoadModule() *wasm.Module {
	return &wasm.Module{
		Types:               []wasm.FunctionType{{Params: []value.Type{value.I32}, Results: []value.Type{value.I32}}},
		FunctionTypeIndices: []uint32{0},
		Memories:            []wasm.MemoryType{{Limits: wasm.Limits{Min: 1}}},
		Code: []wasm.Code{{
			Body: []wasm.Instruction{
				{Op: wasm.SOpLocalGet, Index: 0},
				{Op: wasm.SOpI32Load},
				{Op: wasm.SOpEnd},
			},
		}},
		Exports: []wasm.Export{{Name: "load", Kind: wasm.ExternKindFunc, Index: 0}},
	}
}

func TestCallFunction_I32LoadAtMemoryTail(t *testing.T) {
	_, e, l := newTestHarness()
	h, err := l.Instantiate("m", tailLoadModule())
	require.NoError(t, err)

	results, err := e.Call(h, "load", []value.Word{value.WordFromU32(store.PageSize - 4)})
	require.NoError(t, err)
	require.Equal(t, int32(0), results[0].I32())
}

func TestCallFunction_FuelExhaustionTraps(t *testing.T) {
	s := store.New[struct{}](struct{}{})
	e := New[struct{}](s).WithFuel(true, 1)
	l := linker.New[struct{}](s, e)
	h, err := l.Instantiate("m", addModule())
	require.NoError(t, err)

	_, err = e.Call(h, "add", []value.Word{value.WordFromI32(2), value.WordFromI32(3)})
	require.Error(t, err)
	var trap *wasmruntime.Trap
	require.True(t, errors.As(err, &trap))
	require.Equal(t, wasmruntime.TrapOutOfFuel, trap.Code)
}

func TestCallFunction_FuelSufficientSucceeds(t *testing.T) {
	s := store.New[struct{}](struct{}{})
	e := New[struct{}](s).WithFuel(true, 1000)
	l := linker.New[struct{}](s, e)
	h, err := l.Instantiate("m", addModule())
	require.NoError(t, err)

	results, err := e.Call(h, "add", []value.Word{value.WordFromI32(2), value.WordFromI32(3)})
	require.NoError(t, err)
	require.Equal(t, int32(5), results[0].I32())
}

func TestLinker_StartFunctionRunsAndPersists(t *testing.T) {
	s, e, l := newTestHarness()
	h, err := l.Instantiate("m", startFuncModule())
	require.NoError(t, err)

	results, err := e.Call(h, "get", nil)
	require.NoError(t, err)
	require.Equal(t, int32(99), results[0].I32())

	inst, err := s.Instance(h)
	require.NoError(t, err)
	require.NotNil(t, inst.StartFunc)
	require.Equal(t, uint32(0), *inst.StartFunc)
}
