package wazir

import (
	"context"
	"encoding/binary"
	"math"

	"github.com/wazir-wasm/wazir/internal/store"
)

// memoryInstance adapts a store.MemoryInstance to api.Memory. Every accessor
// re-resolves the handle through the store rather than caching the
// *store.MemoryInstance pointer, since memory.grow replaces Buffer with a
// newly allocated slice (see store.GrowMemory) and a stale pointer would
// read/write a now-orphaned backing array.
type memoryInstance struct {
	rt     *Runtime
	handle store.Handle
}

func (m *memoryInstance) buf() []byte {
	inst, err := m.rt.store.Memory(m.handle)
	if err != nil {
		return nil
	}
	return inst.Buffer
}

func (m *memoryInstance) Size(context.Context) uint32 {
	return uint32(len(m.buf()))
}

func (m *memoryInstance) Grow(_ context.Context, deltaPages uint32) (uint32, bool) {
	prev, err := m.rt.store.GrowMemory(m.handle, deltaPages)
	if err != nil {
		return 0, false
	}
	return prev, true
}

func (m *memoryInstance) ReadByte(_ context.Context, offset uint32) (byte, bool) {
	b := m.buf()
	if offset >= uint32(len(b)) {
		return 0, false
	}
	return b[offset], true
}

func (m *memoryInstance) ReadUint16Le(_ context.Context, offset uint32) (uint16, bool) {
	b := m.buf()
	if uint64(offset)+2 > uint64(len(b)) {
		return 0, false
	}
	return binary.LittleEndian.Uint16(b[offset:]), true
}

func (m *memoryInstance) ReadUint32Le(_ context.Context, offset uint32) (uint32, bool) {
	b := m.buf()
	if uint64(offset)+4 > uint64(len(b)) {
		return 0, false
	}
	return binary.LittleEndian.Uint32(b[offset:]), true
}

func (m *memoryInstance) ReadFloat32Le(ctx context.Context, offset uint32) (float32, bool) {
	v, ok := m.ReadUint32Le(ctx, offset)
	return math.Float32frombits(v), ok
}

func (m *memoryInstance) ReadUint64Le(_ context.Context, offset uint32) (uint64, bool) {
	b := m.buf()
	if uint64(offset)+8 > uint64(len(b)) {
		return 0, false
	}
	return binary.LittleEndian.Uint64(b[offset:]), true
}

func (m *memoryInstance) ReadFloat64Le(ctx context.Context, offset uint32) (float64, bool) {
	v, ok := m.ReadUint64Le(ctx, offset)
	return math.Float64frombits(v), ok
}

func (m *memoryInstance) Read(_ context.Context, offset, byteCount uint32) ([]byte, bool) {
	b := m.buf()
	if uint64(offset)+uint64(byteCount) > uint64(len(b)) {
		return nil, false
	}
	return b[offset : offset+byteCount : offset+byteCount], true
}

func (m *memoryInstance) WriteByte(_ context.Context, offset uint32, v byte) bool {
	b := m.buf()
	if offset >= uint32(len(b)) {
		return false
	}
	b[offset] = v
	return true
}

func (m *memoryInstance) WriteUint16Le(_ context.Context, offset uint32, v uint16) bool {
	b := m.buf()
	if uint64(offset)+2 > uint64(len(b)) {
		return false
	}
	binary.LittleEndian.PutUint16(b[offset:], v)
	return true
}

func (m *memoryInstance) WriteUint32Le(_ context.Context, offset, v uint32) bool {
	b := m.buf()
	if uint64(offset)+4 > uint64(len(b)) {
		return false
	}
	binary.LittleEndian.PutUint32(b[offset:], v)
	return true
}

func (m *memoryInstance) WriteFloat32Le(ctx context.Context, offset uint32, v float32) bool {
	return m.WriteUint32Le(ctx, offset, math.Float32bits(v))
}

func (m *memoryInstance) WriteUint64Le(_ context.Context, offset uint32, v uint64) bool {
	b := m.buf()
	if uint64(offset)+8 > uint64(len(b)) {
		return false
	}
	binary.LittleEndian.PutUint64(b[offset:], v)
	return true
}

func (m *memoryInstance) WriteFloat64Le(ctx context.Context, offset uint32, v float64) bool {
	return m.WriteUint64Le(ctx, offset, math.Float64bits(v))
}

func (m *memoryInstance) Write(_ context.Context, offset uint32, v []byte) bool {
	b := m.buf()
	if uint64(offset)+uint64(len(v)) > uint64(len(b)) {
		return false
	}
	copy(b[offset:], v)
	return true
}
