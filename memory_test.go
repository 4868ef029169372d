package wazir

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wazir-wasm/wazir/internal/store"
	"github.com/wazir-wasm/wazir/internal/wasm"
)

func growableMemoryModule(max uint32) *wasm.Module {
	return &wasm.Module{
		Memories: []wasm.MemoryType{{Limits: wasm.Limits{Min: 1, Max: &max}}},
		Exports:  []wasm.Export{{Name: "mem", Kind: wasm.ExternKindMemory, Index: 0}},
	}
}

func TestMemory_Grow(t *testing.T) {
	ctx := context.Background()
	rt := NewRuntime()
	max := uint32(3)
	mod, err := rt.InstantiateModule(ctx, "m", growableMemoryModule(max))
	require.NoError(t, err)

	mem := mod.ExportedMemory("mem")
	prev, ok := mem.Grow(ctx, 1)
	require.True(t, ok)
	require.Equal(t, uint32(1), prev)
	require.Equal(t, uint32(2*store.PageSize), mem.Size(ctx))
}

func TestMemory_GrowRejectedPastMax(t *testing.T) {
	ctx := context.Background()
	rt := NewRuntime()
	max := uint32(1)
	mod, err := rt.InstantiateModule(ctx, "m", growableMemoryModule(max))
	require.NoError(t, err)

	mem := mod.ExportedMemory("mem")
	_, ok := mem.Grow(ctx, 1)
	require.False(t, ok)
}

func TestMemory_ReadWriteRoundTrip(t *testing.T) {
	ctx := context.Background()
	rt := NewRuntime()
	mod, err := rt.InstantiateModule(ctx, "m", memoryModule())
	require.NoError(t, err)
	mem := mod.ExportedMemory("mem")

	require.True(t, mem.WriteByte(ctx, 0, 0xff))
	b, ok := mem.ReadByte(ctx, 0)
	require.True(t, ok)
	require.Equal(t, byte(0xff), b)

	require.True(t, mem.WriteUint16Le(ctx, 2, 0x1234))
	u16, ok := mem.ReadUint16Le(ctx, 2)
	require.True(t, ok)
	require.Equal(t, uint16(0x1234), u16)

	require.True(t, mem.WriteUint64Le(ctx, 8, 0xc0ffee))
	u64, ok := mem.ReadUint64Le(ctx, 8)
	require.True(t, ok)
	require.Equal(t, uint64(0xc0ffee), u64)

	require.True(t, mem.WriteFloat32Le(ctx, 16, 3.5))
	f32, ok := mem.ReadFloat32Le(ctx, 16)
	require.True(t, ok)
	require.Equal(t, float32(3.5), f32)

	require.True(t, mem.WriteFloat64Le(ctx, 24, 2.25))
	f64, ok := mem.ReadFloat64Le(ctx, 24)
	require.True(t, ok)
	require.Equal(t, float64(2.25), f64)

	require.True(t, mem.Write(ctx, 100, []byte("hello")))
	got, ok := mem.Read(ctx, 100, 5)
	require.True(t, ok)
	require.Equal(t, []byte("hello"), got)
}

func TestMemory_OutOfBoundsAccessesFail(t *testing.T) {
	ctx := context.Background()
	rt := NewRuntime()
	mod, err := rt.InstantiateModule(ctx, "m", memoryModule())
	require.NoError(t, err)
	mem := mod.ExportedMemory("mem")

	size := mem.Size(ctx)
	_, ok := mem.ReadByte(ctx, size)
	require.False(t, ok)
	require.False(t, mem.WriteByte(ctx, size, 1))

	_, ok = mem.ReadUint32Le(ctx, size-3)
	require.False(t, ok)

	_, ok = mem.Read(ctx, size-1, 10)
	require.False(t, ok)
}

func TestModule_NoMemoryReturnsNil(t *testing.T) {
	ctx := context.Background()
	rt := NewRuntime()
	mod, err := rt.InstantiateModule(ctx, "m", addModule())
	require.NoError(t, err)
	require.Nil(t, mod.Memory())
	require.Nil(t, mod.ExportedMemory("mem"))
}
