package exec

import (
	"math"

	"github.com/wazir-wasm/wazir/internal/ir"
	"github.com/wazir-wasm/wazir/internal/translator"
	"github.com/wazir-wasm/wazir/internal/value"
	"github.com/wazir-wasm/wazir/internal/wasmruntime"
)

// execArithmetic dispatches every numeric opcode the translator can emit:
// the plain register and *_imm16 fused forms of the i32/i64 families, the
// f32/f64 families, comparisons, and the conversion operators. It is the
// executor's half of spec.md §4.4's fused-immediate scheme — the translator
// decides *which* opcode to emit, this function supplies its semantics.
func (m *machine[T]) execArithmetic(irf *translator.Function, base int, r ir.Record, pc int) int {
	switch r.Op {

	// --- i32 ---
	case ir.OpI32Add:
		m.setI32(irf, base, r.X, m.i32(irf, base, r.Y)+m.i32(irf, base, r.Z))
	case ir.OpI32AddImm16:
		m.setI32(irf, base, r.X, m.i32(irf, base, r.Y)+int32(r.Imm16()))
	case ir.OpI32Sub:
		m.setI32(irf, base, r.X, m.i32(irf, base, r.Y)-m.i32(irf, base, r.Z))
	case ir.OpI32SubImm16:
		m.setI32(irf, base, r.X, m.i32(irf, base, r.Y)-int32(r.Imm16()))
	case ir.OpI32Mul:
		m.setI32(irf, base, r.X, m.i32(irf, base, r.Y)*m.i32(irf, base, r.Z))
	case ir.OpI32MulImm16:
		m.setI32(irf, base, r.X, m.i32(irf, base, r.Y)*int32(r.Imm16()))
	case ir.OpI32DivS:
		l, rr := m.i32(irf, base, r.Y), m.i32(irf, base, r.Z)
		if rr == 0 {
			panic(wasmruntime.NewTrap(wasmruntime.TrapIntegerDivisionByZero))
		}
		if l == math.MinInt32 && rr == -1 {
			panic(wasmruntime.NewTrap(wasmruntime.TrapIntegerOverflow))
		}
		m.setI32(irf, base, r.X, l/rr)
	case ir.OpI32DivU:
		l, rr := m.u32(irf, base, r.Y), m.u32(irf, base, r.Z)
		if rr == 0 {
			panic(wasmruntime.NewTrap(wasmruntime.TrapIntegerDivisionByZero))
		}
		m.setU32(irf, base, r.X, l/rr)
	case ir.OpI32RemS:
		l, rr := m.i32(irf, base, r.Y), m.i32(irf, base, r.Z)
		if rr == 0 {
			panic(wasmruntime.NewTrap(wasmruntime.TrapIntegerDivisionByZero))
		}
		if l == math.MinInt32 && rr == -1 {
			m.setI32(irf, base, r.X, 0)
		} else {
			m.setI32(irf, base, r.X, l%rr)
		}
	case ir.OpI32RemU:
		l, rr := m.u32(irf, base, r.Y), m.u32(irf, base, r.Z)
		if rr == 0 {
			panic(wasmruntime.NewTrap(wasmruntime.TrapIntegerDivisionByZero))
		}
		m.setU32(irf, base, r.X, l%rr)
	case ir.OpI32And:
		m.setI32(irf, base, r.X, m.i32(irf, base, r.Y)&m.i32(irf, base, r.Z))
	case ir.OpI32AndImm16:
		m.setI32(irf, base, r.X, m.i32(irf, base, r.Y)&int32(r.Imm16()))
	case ir.OpI32Or:
		m.setI32(irf, base, r.X, m.i32(irf, base, r.Y)|m.i32(irf, base, r.Z))
	case ir.OpI32OrImm16:
		m.setI32(irf, base, r.X, m.i32(irf, base, r.Y)|int32(r.Imm16()))
	case ir.OpI32Xor:
		m.setI32(irf, base, r.X, m.i32(irf, base, r.Y)^m.i32(irf, base, r.Z))
	case ir.OpI32XorImm16:
		m.setI32(irf, base, r.X, m.i32(irf, base, r.Y)^int32(r.Imm16()))
	case ir.OpI32Shl:
		m.setU32(irf, base, r.X, m.u32(irf, base, r.Y)<<(m.u32(irf, base, r.Z)&31))
	case ir.OpI32ShrS:
		m.setI32(irf, base, r.X, m.i32(irf, base, r.Y)>>(m.u32(irf, base, r.Z)&31))
	case ir.OpI32ShrU:
		m.setU32(irf, base, r.X, m.u32(irf, base, r.Y)>>(m.u32(irf, base, r.Z)&31))
	case ir.OpI32Eq:
		m.setBool(irf, base, r.X, m.i32(irf, base, r.Y) == m.i32(irf, base, r.Z))
	case ir.OpI32Ne:
		m.setBool(irf, base, r.X, m.i32(irf, base, r.Y) != m.i32(irf, base, r.Z))
	case ir.OpI32LtS:
		m.setBool(irf, base, r.X, m.i32(irf, base, r.Y) < m.i32(irf, base, r.Z))
	case ir.OpI32LtU:
		m.setBool(irf, base, r.X, m.u32(irf, base, r.Y) < m.u32(irf, base, r.Z))
	case ir.OpI32GtS:
		m.setBool(irf, base, r.X, m.i32(irf, base, r.Y) > m.i32(irf, base, r.Z))
	case ir.OpI32GtU:
		m.setBool(irf, base, r.X, m.u32(irf, base, r.Y) > m.u32(irf, base, r.Z))
	case ir.OpI32LeS:
		m.setBool(irf, base, r.X, m.i32(irf, base, r.Y) <= m.i32(irf, base, r.Z))
	case ir.OpI32LeU:
		m.setBool(irf, base, r.X, m.u32(irf, base, r.Y) <= m.u32(irf, base, r.Z))
	case ir.OpI32GeS:
		m.setBool(irf, base, r.X, m.i32(irf, base, r.Y) >= m.i32(irf, base, r.Z))
	case ir.OpI32GeU:
		m.setBool(irf, base, r.X, m.u32(irf, base, r.Y) >= m.u32(irf, base, r.Z))
	case ir.OpI32Eqz:
		m.setBool(irf, base, r.X, m.i32(irf, base, r.Y) == 0)

	// --- i64 ---
	case ir.OpI64Add:
		m.setI64(irf, base, r.X, m.i64(irf, base, r.Y)+m.i64(irf, base, r.Z))
	case ir.OpI64AddImm16:
		m.setI64(irf, base, r.X, m.i64(irf, base, r.Y)+int64(r.Imm16()))
	case ir.OpI64Sub:
		m.setI64(irf, base, r.X, m.i64(irf, base, r.Y)-m.i64(irf, base, r.Z))
	case ir.OpI64SubImm16:
		m.setI64(irf, base, r.X, m.i64(irf, base, r.Y)-int64(r.Imm16()))
	case ir.OpI64Mul:
		m.setI64(irf, base, r.X, m.i64(irf, base, r.Y)*m.i64(irf, base, r.Z))
	case ir.OpI64MulImm16:
		m.setI64(irf, base, r.X, m.i64(irf, base, r.Y)*int64(r.Imm16()))
	case ir.OpI64DivS:
		l, rr := m.i64(irf, base, r.Y), m.i64(irf, base, r.Z)
		if rr == 0 {
			panic(wasmruntime.NewTrap(wasmruntime.TrapIntegerDivisionByZero))
		}
		if l == math.MinInt64 && rr == -1 {
			panic(wasmruntime.NewTrap(wasmruntime.TrapIntegerOverflow))
		}
		m.setI64(irf, base, r.X, l/rr)
	case ir.OpI64DivU:
		l, rr := m.u64(irf, base, r.Y), m.u64(irf, base, r.Z)
		if rr == 0 {
			panic(wasmruntime.NewTrap(wasmruntime.TrapIntegerDivisionByZero))
		}
		m.setU64(irf, base, r.X, l/rr)
	case ir.OpI64RemS:
		l, rr := m.i64(irf, base, r.Y), m.i64(irf, base, r.Z)
		if rr == 0 {
			panic(wasmruntime.NewTrap(wasmruntime.TrapIntegerDivisionByZero))
		}
		if l == math.MinInt64 && rr == -1 {
			m.setI64(irf, base, r.X, 0)
		} else {
			m.setI64(irf, base, r.X, l%rr)
		}
	case ir.OpI64RemU:
		l, rr := m.u64(irf, base, r.Y), m.u64(irf, base, r.Z)
		if rr == 0 {
			panic(wasmruntime.NewTrap(wasmruntime.TrapIntegerDivisionByZero))
		}
		m.setU64(irf, base, r.X, l%rr)
	case ir.OpI64And:
		m.setI64(irf, base, r.X, m.i64(irf, base, r.Y)&m.i64(irf, base, r.Z))
	case ir.OpI64Or:
		m.setI64(irf, base, r.X, m.i64(irf, base, r.Y)|m.i64(irf, base, r.Z))
	case ir.OpI64Xor:
		m.setI64(irf, base, r.X, m.i64(irf, base, r.Y)^m.i64(irf, base, r.Z))
	case ir.OpI64Eq:
		m.setBool(irf, base, r.X, m.i64(irf, base, r.Y) == m.i64(irf, base, r.Z))
	case ir.OpI64Ne:
		m.setBool(irf, base, r.X, m.i64(irf, base, r.Y) != m.i64(irf, base, r.Z))
	case ir.OpI64LtS:
		m.setBool(irf, base, r.X, m.i64(irf, base, r.Y) < m.i64(irf, base, r.Z))
	case ir.OpI64LtU:
		m.setBool(irf, base, r.X, m.u64(irf, base, r.Y) < m.u64(irf, base, r.Z))
	case ir.OpI64GtS:
		m.setBool(irf, base, r.X, m.i64(irf, base, r.Y) > m.i64(irf, base, r.Z))
	case ir.OpI64GtU:
		m.setBool(irf, base, r.X, m.u64(irf, base, r.Y) > m.u64(irf, base, r.Z))
	case ir.OpI64LeS:
		m.setBool(irf, base, r.X, m.i64(irf, base, r.Y) <= m.i64(irf, base, r.Z))
	case ir.OpI64LeU:
		m.setBool(irf, base, r.X, m.u64(irf, base, r.Y) <= m.u64(irf, base, r.Z))
	case ir.OpI64GeS:
		m.setBool(irf, base, r.X, m.i64(irf, base, r.Y) >= m.i64(irf, base, r.Z))
	case ir.OpI64GeU:
		m.setBool(irf, base, r.X, m.u64(irf, base, r.Y) >= m.u64(irf, base, r.Z))
	case ir.OpI64Eqz:
		m.setBool(irf, base, r.X, m.i64(irf, base, r.Y) == 0)

	// --- f32 ---
	case ir.OpF32Add:
		m.setF32(irf, base, r.X, m.f32(irf, base, r.Y)+m.f32(irf, base, r.Z))
	case ir.OpF32Sub:
		m.setF32(irf, base, r.X, m.f32(irf, base, r.Y)-m.f32(irf, base, r.Z))
	case ir.OpF32Mul:
		m.setF32(irf, base, r.X, m.f32(irf, base, r.Y)*m.f32(irf, base, r.Z))
	case ir.OpF32Div:
		m.setF32(irf, base, r.X, m.f32(irf, base, r.Y)/m.f32(irf, base, r.Z))
	case ir.OpF32Min:
		m.setF32(irf, base, r.X, float32(math.Min(float64(m.f32(irf, base, r.Y)), float64(m.f32(irf, base, r.Z)))))
	case ir.OpF32Max:
		m.setF32(irf, base, r.X, float32(math.Max(float64(m.f32(irf, base, r.Y)), float64(m.f32(irf, base, r.Z)))))
	case ir.OpF32Copysign:
		m.setF32(irf, base, r.X, float32(math.Copysign(float64(m.f32(irf, base, r.Y)), float64(m.f32(irf, base, r.Z)))))
	case ir.OpF32Eq:
		m.setBool(irf, base, r.X, m.f32(irf, base, r.Y) == m.f32(irf, base, r.Z))
	case ir.OpF32Ne:
		m.setBool(irf, base, r.X, m.f32(irf, base, r.Y) != m.f32(irf, base, r.Z))
	case ir.OpF32Lt:
		m.setBool(irf, base, r.X, m.f32(irf, base, r.Y) < m.f32(irf, base, r.Z))
	case ir.OpF32Gt:
		m.setBool(irf, base, r.X, m.f32(irf, base, r.Y) > m.f32(irf, base, r.Z))
	case ir.OpF32Le:
		m.setBool(irf, base, r.X, m.f32(irf, base, r.Y) <= m.f32(irf, base, r.Z))
	case ir.OpF32Ge:
		m.setBool(irf, base, r.X, m.f32(irf, base, r.Y) >= m.f32(irf, base, r.Z))

	// --- f64 ---
	case ir.OpF64Add:
		m.setF64(irf, base, r.X, m.f64(irf, base, r.Y)+m.f64(irf, base, r.Z))
	case ir.OpF64Sub:
		m.setF64(irf, base, r.X, m.f64(irf, base, r.Y)-m.f64(irf, base, r.Z))
	case ir.OpF64Mul:
		m.setF64(irf, base, r.X, m.f64(irf, base, r.Y)*m.f64(irf, base, r.Z))
	case ir.OpF64Div:
		m.setF64(irf, base, r.X, m.f64(irf, base, r.Y)/m.f64(irf, base, r.Z))
	case ir.OpF64Min:
		m.setF64(irf, base, r.X, math.Min(m.f64(irf, base, r.Y), m.f64(irf, base, r.Z)))
	case ir.OpF64Max:
		m.setF64(irf, base, r.X, math.Max(m.f64(irf, base, r.Y), m.f64(irf, base, r.Z)))
	case ir.OpF64Copysign:
		m.setF64(irf, base, r.X, math.Copysign(m.f64(irf, base, r.Y), m.f64(irf, base, r.Z)))
	case ir.OpF64Eq:
		m.setBool(irf, base, r.X, m.f64(irf, base, r.Y) == m.f64(irf, base, r.Z))
	case ir.OpF64Ne:
		m.setBool(irf, base, r.X, m.f64(irf, base, r.Y) != m.f64(irf, base, r.Z))
	case ir.OpF64Lt:
		m.setBool(irf, base, r.X, m.f64(irf, base, r.Y) < m.f64(irf, base, r.Z))
	case ir.OpF64Gt:
		m.setBool(irf, base, r.X, m.f64(irf, base, r.Y) > m.f64(irf, base, r.Z))
	case ir.OpF64Le:
		m.setBool(irf, base, r.X, m.f64(irf, base, r.Y) <= m.f64(irf, base, r.Z))
	case ir.OpF64Ge:
		m.setBool(irf, base, r.X, m.f64(irf, base, r.Y) >= m.f64(irf, base, r.Z))

	// --- conversions ---
	case ir.OpI32TruncF32S:
		m.setI32(irf, base, r.X, truncF32S(m.f32(irf, base, r.Y)))
	case ir.OpI32TruncF32U:
		m.setU32(irf, base, r.X, truncF32U(m.f32(irf, base, r.Y)))
	case ir.OpI32TruncF64S:
		m.setI32(irf, base, r.X, truncF64S(m.f64(irf, base, r.Y)))
	case ir.OpI32TruncF64U:
		m.setU32(irf, base, r.X, truncF64U(m.f64(irf, base, r.Y)))
	case ir.OpI64ExtendI32S:
		m.setI64(irf, base, r.X, int64(m.i32(irf, base, r.Y)))
	case ir.OpI64ExtendI32U:
		m.setU64(irf, base, r.X, uint64(m.u32(irf, base, r.Y)))

	default:
		panic(wasmruntime.StaticError("exec: unhandled opcode reached the dispatch loop"))
	}
	return pc + 1
}

func truncF32S(f float32) int32 {
	if math.IsNaN(float64(f)) || f < math.MinInt32 || f >= math.MaxInt32+1 {
		panic(wasmruntime.NewTrap(wasmruntime.TrapBadConversionToInteger))
	}
	return int32(f)
}

func truncF32U(f float32) uint32 {
	if math.IsNaN(float64(f)) || f < 0 || f >= math.MaxUint32+1 {
		panic(wasmruntime.NewTrap(wasmruntime.TrapBadConversionToInteger))
	}
	return uint32(f)
}

func truncF64S(f float64) int32 {
	if math.IsNaN(f) || f < math.MinInt32 || f >= math.MaxInt32+1 {
		panic(wasmruntime.NewTrap(wasmruntime.TrapBadConversionToInteger))
	}
	return int32(f)
}

func truncF64U(f float64) uint32 {
	if math.IsNaN(f) || f < 0 || f >= math.MaxUint32+1 {
		panic(wasmruntime.NewTrap(wasmruntime.TrapBadConversionToInteger))
	}
	return uint32(f)
}

func (m *machine[T]) i32(irf *translator.Function, base int, s ir.Slot) int32 {
	return m.read(irf, base, s).I32()
}
func (m *machine[T]) u32(irf *translator.Function, base int, s ir.Slot) uint32 {
	return m.read(irf, base, s).U32()
}
func (m *machine[T]) i64(irf *translator.Function, base int, s ir.Slot) int64 {
	return m.read(irf, base, s).I64()
}
func (m *machine[T]) u64(irf *translator.Function, base int, s ir.Slot) uint64 {
	return m.read(irf, base, s).U64()
}
func (m *machine[T]) f32(irf *translator.Function, base int, s ir.Slot) float32 {
	return m.read(irf, base, s).F32()
}
func (m *machine[T]) f64(irf *translator.Function, base int, s ir.Slot) float64 {
	return m.read(irf, base, s).F64()
}

func (m *machine[T]) setI32(irf *translator.Function, base int, dst ir.Slot, v int32) {
	m.write(irf, base, dst, value.WordFromI32(v))
}
func (m *machine[T]) setU32(irf *translator.Function, base int, dst ir.Slot, v uint32) {
	m.write(irf, base, dst, value.WordFromU32(v))
}
func (m *machine[T]) setI64(irf *translator.Function, base int, dst ir.Slot, v int64) {
	m.write(irf, base, dst, value.WordFromI64(v))
}
func (m *machine[T]) setU64(irf *translator.Function, base int, dst ir.Slot, v uint64) {
	m.write(irf, base, dst, value.WordFromU64(v))
}
func (m *machine[T]) setF32(irf *translator.Function, base int, dst ir.Slot, v float32) {
	m.write(irf, base, dst, value.WordFromF32(v))
}
func (m *machine[T]) setF64(irf *translator.Function, base int, dst ir.Slot, v float64) {
	m.write(irf, base, dst, value.WordFromF64(v))
}
func (m *machine[T]) setBool(irf *translator.Function, base int, dst ir.Slot, v bool) {
	if v {
		m.write(irf, base, dst, value.WordFromI32(1))
	} else {
		m.write(irf, base, dst, value.WordFromI32(0))
	}
}
