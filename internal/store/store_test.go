package store

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wazir-wasm/wazir/internal/value"
	"github.com/wazir-wasm/wazir/internal/wasm"
	"github.com/wazir-wasm/wazir/internal/wasmruntime"
)

func TestStore_InsertAndFetchFunction(t *testing.T) {
	s := New[struct{}](struct{}{})
	ft := wasm.FunctionType{Params: []value.Type{value.I32}, Results: []value.Type{value.I32}}
	h, err := s.InsertFunction(&FunctionInstance{Type: ft, TypeID: s.InternType(ft)})
	require.NoError(t, err)

	fn, err := s.Function(h)
	require.NoError(t, err)
	require.Equal(t, ft, fn.Type)

	// Mutations through the returned pointer must reach the arena-owned copy
	// (the arena stores T by value, so Get must hand back a pointer into its
	// own backing slice, not a pointer to a caller-local copy).
	fn.LocalIndex = 7
	again, err := s.Function(h)
	require.NoError(t, err)
	require.Equal(t, uint32(7), again.LocalIndex)
}

func TestStore_HandleFromDifferentEngineRejected(t *testing.T) {
	s1 := New[struct{}](struct{}{})
	s2 := New[struct{}](struct{}{})

	h, err := s1.InsertFunction(&FunctionInstance{})
	require.NoError(t, err)

	_, err = s2.Function(h)
	require.Error(t, err)
}

func TestStore_GrowMemory(t *testing.T) {
	s := New[struct{}](struct{}{})
	h, err := s.InsertMemory(&MemoryInstance{
		Type:   wasm.MemoryType{Limits: wasm.Limits{Min: 1}},
		Buffer: make([]byte, PageSize),
	})
	require.NoError(t, err)

	prev, err := s.GrowMemory(h, 2)
	require.NoError(t, err)
	require.Equal(t, uint32(1), prev)

	mem, err := s.Memory(h)
	require.NoError(t, err)
	require.Len(t, mem.Buffer, 3*PageSize)
}

func TestStore_GrowMemoryRejectedPastDeclaredMax(t *testing.T) {
	s := New[struct{}](struct{}{})
	max := uint32(1)
	h, err := s.InsertMemory(&MemoryInstance{
		Type:   wasm.MemoryType{Limits: wasm.Limits{Min: 1, Max: &max}},
		Buffer: make([]byte, PageSize),
	})
	require.NoError(t, err)

	_, err = s.GrowMemory(h, 1)
	require.ErrorIs(t, err, wasmruntime.ErrGrowRejected)
}

func TestStore_GrowTable(t *testing.T) {
	s := New[struct{}](struct{}{})
	h, err := s.InsertTable(&TableInstance{
		Type:     wasm.TableType{ElemType: value.FuncRef, Limits: wasm.Limits{Min: 2}},
		Elements: make([]value.Ref, 2),
	})
	require.NoError(t, err)

	prev, err := s.GrowTable(h, 3, value.NullRef)
	require.NoError(t, err)
	require.Equal(t, uint32(2), prev)

	tbl, err := s.Table(h)
	require.NoError(t, err)
	require.Len(t, tbl.Elements, 5)
}

func TestStore_InstanceLimitRejected(t *testing.T) {
	s := NewWithLimits[struct{}](struct{}{}, ResourceLimits{MaxInstances: 1, MaxTables: 10_000, MaxMemories: 10_000}, nil)

	_, err := s.InsertInstance(&ModuleInstance{Name: "first"})
	require.NoError(t, err)

	_, err = s.InsertInstance(&ModuleInstance{Name: "second"})
	require.ErrorIs(t, err, wasmruntime.ErrTooManyInstances)
}

func TestStore_GetPairFunctionsRejectsAliasing(t *testing.T) {
	s := New[struct{}](struct{}{})
	h, err := s.InsertFunction(&FunctionInstance{})
	require.NoError(t, err)

	_, _, err = s.GetPairFunctions(h, h)
	require.Error(t, err)
}

func TestStore_InternTypeDedups(t *testing.T) {
	s := New[struct{}](struct{}{})
	ft := wasm.FunctionType{Params: []value.Type{value.I64}, Results: []value.Type{value.F64}}

	id1 := s.InternType(ft)
	id2 := s.InternType(ft)
	require.Equal(t, id1, id2)

	got, ok := s.TypeAt(id1)
	require.True(t, ok)
	require.Equal(t, ft, got)
}
