package translator

import (
	"math"

	"github.com/wazir-wasm/wazir/internal/ir"
	"github.com/wazir-wasm/wazir/internal/value"
	"github.com/wazir-wasm/wazir/internal/wasm"
)

// binaryOpInfo is the per-operator table the translator's binary emitter
// consults to pick a register form, a commutativity rule, and (if one
// exists) a fused 16-bit-immediate form.
type binaryOpInfo struct {
	typ         value.Type
	reg         ir.Opcode
	imm16       ir.Opcode // OpUnreachable (0-value family never reused here) means "none"; checked via hasImm16.
	hasImm16    bool
	commutative bool
	eval        func(l, r value.Word) (value.Word, trapKind)
}

// trapKind is non-zero when evaluating a constant binary op would itself
// trap (division/remainder by a constant zero); the translator schedules an
// OpTrap in that case instead of folding a bogus constant (spec.md §4.4,
// "Division and remainder by zero ... emit a Trap opcode inline").
type trapKind byte

const (
	trapNone trapKind = iota
	trapDivByZero
	trapOverflow
)

func i32BinaryTable() map[wasm.StackOp]binaryOpInfo {
	return map[wasm.StackOp]binaryOpInfo{
		wasm.SOpI32Add: {value.I32, ir.OpI32Add, ir.OpI32AddImm16, true, true, evalI32(func(a, b int32) int32 { return a + b })},
		wasm.SOpI32Sub: {value.I32, ir.OpI32Sub, ir.OpI32SubImm16, true, false, evalI32(func(a, b int32) int32 { return a - b })},
		wasm.SOpI32Mul: {value.I32, ir.OpI32Mul, ir.OpI32MulImm16, true, true, evalI32(func(a, b int32) int32 { return a * b })},
		wasm.SOpI32And: {value.I32, ir.OpI32And, ir.OpI32AndImm16, true, true, evalI32(func(a, b int32) int32 { return a & b })},
		wasm.SOpI32Or:  {value.I32, ir.OpI32Or, ir.OpI32OrImm16, true, true, evalI32(func(a, b int32) int32 { return a | b })},
		wasm.SOpI32Xor: {value.I32, ir.OpI32Xor, ir.OpI32XorImm16, true, true, evalI32(func(a, b int32) int32 { return a ^ b })},
		wasm.SOpI32DivU: {value.I32, ir.OpI32DivU, 0, false, false, func(l, r value.Word) (value.Word, trapKind) {
			if r.U32() == 0 {
				return 0, trapDivByZero
			}
			return value.WordFromU32(l.U32() / r.U32()), trapNone
		}},
		wasm.SOpI32DivS: {value.I32, ir.OpI32DivS, 0, false, false, func(l, r value.Word) (value.Word, trapKind) {
			rv := r.I32()
			if rv == 0 {
				return 0, trapDivByZero
			}
			if l.I32() == math.MinInt32 && rv == -1 {
				return 0, trapOverflow
			}
			return value.WordFromI32(l.I32() / rv), trapNone
		}},
		wasm.SOpI32RemU: {value.I32, ir.OpI32RemU, 0, false, false, func(l, r value.Word) (value.Word, trapKind) {
			if r.U32() == 0 {
				return 0, trapDivByZero
			}
			return value.WordFromU32(l.U32() % r.U32()), trapNone
		}},
		wasm.SOpI32RemS: {value.I32, ir.OpI32RemS, 0, false, false, func(l, r value.Word) (value.Word, trapKind) {
			rv := r.I32()
			if rv == 0 {
				return 0, trapDivByZero
			}
			if l.I32() == math.MinInt32 && rv == -1 {
				return value.WordFromI32(0), trapNone
			}
			return value.WordFromI32(l.I32() % rv), trapNone
		}},
		wasm.SOpI32Eq:  {value.I32, ir.OpI32Eq, 0, false, true, evalI32Bool(func(a, b int32) bool { return a == b })},
		wasm.SOpI32Ne:  {value.I32, ir.OpI32Ne, 0, false, true, evalI32Bool(func(a, b int32) bool { return a != b })},
		wasm.SOpI32LtS: {value.I32, ir.OpI32LtS, 0, false, false, evalI32Bool(func(a, b int32) bool { return a < b })},
		wasm.SOpI32GtS: {value.I32, ir.OpI32GtS, 0, false, false, evalI32Bool(func(a, b int32) bool { return a > b })},
		wasm.SOpI32LeS: {value.I32, ir.OpI32LeS, 0, false, false, evalI32Bool(func(a, b int32) bool { return a <= b })},
		wasm.SOpI32GeS: {value.I32, ir.OpI32GeS, 0, false, false, evalI32Bool(func(a, b int32) bool { return a >= b })},
	}
}

func evalI32(f func(a, b int32) int32) func(l, r value.Word) (value.Word, trapKind) {
	return func(l, r value.Word) (value.Word, trapKind) { return value.WordFromI32(f(l.I32(), r.I32())), trapNone }
}

func evalI32Bool(f func(a, b int32) bool) func(l, r value.Word) (value.Word, trapKind) {
	return func(l, r value.Word) (value.Word, trapKind) {
		if f(l.I32(), r.I32()) {
			return value.WordFromI32(1), trapNone
		}
		return value.WordFromI32(0), trapNone
	}
}

// identityFold implements spec.md §4.4 "Identity elimination": x+0, x-0,
// x|0, x&-1, x*1, x-x fold without emitting any arithmetic record. Returns
// the folded provider and true if a fold applied.
func identityFold(op wasm.StackOp, typ value.Type, left, right provider) (provider, bool) {
	isZero := func(p provider) bool { return p.isConst && p.cval == value.Zero }
	isOne := func(p provider) bool {
		if !p.isConst {
			return false
		}
		if typ == value.I64 {
			return p.cval.I64() == 1
		}
		return p.cval.I32() == 1
	}
	isAllOnes := func(p provider) bool {
		if !p.isConst {
			return false
		}
		if typ == value.I64 {
			return p.cval.I64() == -1
		}
		return p.cval.I32() == -1
	}
	sameRegister := func(a, b provider) bool { return !a.isConst && !b.isConst && a.slot == b.slot }

	switch op {
	case wasm.SOpI32Add, wasm.SOpI64Add:
		if isZero(right) {
			return left, true
		}
		if isZero(left) {
			return right, true
		}
	case wasm.SOpI32Sub, wasm.SOpI64Sub:
		if isZero(right) {
			return left, true
		}
		if sameRegister(left, right) {
			return constProvider(value.Zero, typ), true
		}
	case wasm.SOpI32Or, wasm.SOpI64Or:
		if isZero(right) {
			return left, true
		}
		if isZero(left) {
			return right, true
		}
	case wasm.SOpI32And, wasm.SOpI64And:
		if isAllOnes(right) {
			return left, true
		}
		if isAllOnes(left) {
			return right, true
		}
	case wasm.SOpI32Mul, wasm.SOpI64Mul:
		if isOne(right) {
			return left, true
		}
		if isOne(left) {
			return right, true
		}
		if (right.isConst && right.cval == value.Zero) || (left.isConst && left.cval == value.Zero) {
			return constProvider(value.Zero, typ), true
		}
	case wasm.SOpF32Max, wasm.SOpF64Max:
		if right.isConst && isNegInf(right, op) {
			return left, true
		}
	case wasm.SOpF32Min, wasm.SOpF64Min:
		if right.isConst && isPosInf(right, op) {
			return left, true
		}
	}
	return provider{}, false
}

func isNegInf(p provider, op wasm.StackOp) bool {
	if op == wasm.SOpF32Max {
		return p.cval.F32() == float32(math.Inf(-1))
	}
	return p.cval.F64() == math.Inf(-1)
}

func isPosInf(p provider, op wasm.StackOp) bool {
	if op == wasm.SOpF32Min {
		return p.cval.F32() == float32(math.Inf(1))
	}
	return p.cval.F64() == math.Inf(1)
}

func i64BinaryTable() map[wasm.StackOp]binaryOpInfo {
	return map[wasm.StackOp]binaryOpInfo{
		wasm.SOpI64Add: {value.I64, ir.OpI64Add, ir.OpI64AddImm16, true, true, evalI64(func(a, b int64) int64 { return a + b })},
		wasm.SOpI64Sub: {value.I64, ir.OpI64Sub, ir.OpI64SubImm16, true, false, evalI64(func(a, b int64) int64 { return a - b })},
		wasm.SOpI64Mul: {value.I64, ir.OpI64Mul, ir.OpI64MulImm16, true, true, evalI64(func(a, b int64) int64 { return a * b })},
		wasm.SOpI64And: {value.I64, ir.OpI64And, 0, false, true, evalI64(func(a, b int64) int64 { return a & b })},
		wasm.SOpI64Or:  {value.I64, ir.OpI64Or, 0, false, true, evalI64(func(a, b int64) int64 { return a | b })},
		wasm.SOpI64Xor: {value.I64, ir.OpI64Xor, 0, false, true, evalI64(func(a, b int64) int64 { return a ^ b })},
		wasm.SOpI64DivU: {value.I64, ir.OpI64DivU, 0, false, false, func(l, r value.Word) (value.Word, trapKind) {
			if r.U64() == 0 {
				return 0, trapDivByZero
			}
			return value.WordFromU64(l.U64() / r.U64()), trapNone
		}},
		wasm.SOpI64DivS: {value.I64, ir.OpI64DivS, 0, false, false, func(l, r value.Word) (value.Word, trapKind) {
			rv := r.I64()
			if rv == 0 {
				return 0, trapDivByZero
			}
			if l.I64() == math.MinInt64 && rv == -1 {
				return 0, trapOverflow
			}
			return value.WordFromI64(l.I64() / rv), trapNone
		}},
		wasm.SOpI64RemU: {value.I64, ir.OpI64RemU, 0, false, false, func(l, r value.Word) (value.Word, trapKind) {
			if r.U64() == 0 {
				return 0, trapDivByZero
			}
			return value.WordFromU64(l.U64() % r.U64()), trapNone
		}},
		wasm.SOpI64RemS: {value.I64, ir.OpI64RemS, 0, false, false, func(l, r value.Word) (value.Word, trapKind) {
			rv := r.I64()
			if rv == 0 {
				return 0, trapDivByZero
			}
			if l.I64() == math.MinInt64 && rv == -1 {
				return value.WordFromI64(0), trapNone
			}
			return value.WordFromI64(l.I64() % rv), trapNone
		}},
		wasm.SOpI64Eq:  {value.I64, ir.OpI64Eq, 0, false, true, evalI64Bool(func(a, b int64) bool { return a == b })},
		wasm.SOpI64Ne:  {value.I64, ir.OpI64Ne, 0, false, true, evalI64Bool(func(a, b int64) bool { return a != b })},
		wasm.SOpI64LtS: {value.I64, ir.OpI64LtS, 0, false, false, evalI64Bool(func(a, b int64) bool { return a < b })},
		wasm.SOpI64GtS: {value.I64, ir.OpI64GtS, 0, false, false, evalI64Bool(func(a, b int64) bool { return a > b })},
		wasm.SOpI64LeS: {value.I64, ir.OpI64LeS, 0, false, false, evalI64Bool(func(a, b int64) bool { return a <= b })},
		wasm.SOpI64GeS: {value.I64, ir.OpI64GeS, 0, false, false, evalI64Bool(func(a, b int64) bool { return a >= b })},
	}
}

func evalI64(f func(a, b int64) int64) func(l, r value.Word) (value.Word, trapKind) {
	return func(l, r value.Word) (value.Word, trapKind) { return value.WordFromI64(f(l.I64(), r.I64())), trapNone }
}

func evalI64Bool(f func(a, b int64) bool) func(l, r value.Word) (value.Word, trapKind) {
	return func(l, r value.Word) (value.Word, trapKind) {
		if f(l.I64(), r.I64()) {
			return value.WordFromI64(1), trapNone
		}
		return value.WordFromI64(0), trapNone
	}
}

// floatBinaryTable covers both f32 and f64: no fused-immediate forms exist
// for floats (see internal/ir's opcode family comment), so every entry has
// hasImm16 false.
func floatBinaryTable() map[wasm.StackOp]binaryOpInfo {
	f32 := func(op ir.Opcode, f func(a, b float32) float32) binaryOpInfo {
		return binaryOpInfo{value.F32, op, 0, false, false, func(l, r value.Word) (value.Word, trapKind) {
			return value.WordFromF32(f(l.F32(), r.F32())), trapNone
		}}
	}
	f32b := func(op ir.Opcode, f func(a, b float32) bool) binaryOpInfo {
		return binaryOpInfo{value.F32, op, 0, false, false, func(l, r value.Word) (value.Word, trapKind) {
			if f(l.F32(), r.F32()) {
				return value.WordFromI32(1), trapNone
			}
			return value.WordFromI32(0), trapNone
		}}
	}
	f64 := func(op ir.Opcode, f func(a, b float64) float64) binaryOpInfo {
		return binaryOpInfo{value.F64, op, 0, false, false, func(l, r value.Word) (value.Word, trapKind) {
			return value.WordFromF64(f(l.F64(), r.F64())), trapNone
		}}
	}
	f64b := func(op ir.Opcode, f func(a, b float64) bool) binaryOpInfo {
		return binaryOpInfo{value.F64, op, 0, false, false, func(l, r value.Word) (value.Word, trapKind) {
			if f(l.F64(), r.F64()) {
				return value.WordFromI32(1), trapNone
			}
			return value.WordFromI32(0), trapNone
		}}
	}
	return map[wasm.StackOp]binaryOpInfo{
		wasm.SOpF32Add:      f32(ir.OpF32Add, func(a, b float32) float32 { return a + b }),
		wasm.SOpF32Sub:      f32(ir.OpF32Sub, func(a, b float32) float32 { return a - b }),
		wasm.SOpF32Mul:      f32(ir.OpF32Mul, func(a, b float32) float32 { return a * b }),
		wasm.SOpF32Div:      f32(ir.OpF32Div, func(a, b float32) float32 { return a / b }),
		wasm.SOpF32Min:      f32(ir.OpF32Min, func(a, b float32) float32 { return float32(math.Min(float64(a), float64(b))) }),
		wasm.SOpF32Max:      f32(ir.OpF32Max, func(a, b float32) float32 { return float32(math.Max(float64(a), float64(b))) }),
		wasm.SOpF32Copysign: f32(ir.OpF32Copysign, func(a, b float32) float32 { return float32(math.Copysign(float64(a), float64(b))) }),
		wasm.SOpF32Eq:       f32b(ir.OpF32Eq, func(a, b float32) bool { return a == b }),
		wasm.SOpF32Ne:       f32b(ir.OpF32Ne, func(a, b float32) bool { return a != b }),
		wasm.SOpF32Lt:       f32b(ir.OpF32Lt, func(a, b float32) bool { return a < b }),
		wasm.SOpF32Gt:       f32b(ir.OpF32Gt, func(a, b float32) bool { return a > b }),
		wasm.SOpF32Le:       f32b(ir.OpF32Le, func(a, b float32) bool { return a <= b }),
		wasm.SOpF32Ge:       f32b(ir.OpF32Ge, func(a, b float32) bool { return a >= b }),

		wasm.SOpF64Add:      f64(ir.OpF64Add, func(a, b float64) float64 { return a + b }),
		wasm.SOpF64Sub:      f64(ir.OpF64Sub, func(a, b float64) float64 { return a - b }),
		wasm.SOpF64Mul:      f64(ir.OpF64Mul, func(a, b float64) float64 { return a * b }),
		wasm.SOpF64Div:      f64(ir.OpF64Div, func(a, b float64) float64 { return a / b }),
		wasm.SOpF64Min:      f64(ir.OpF64Min, func(a, b float64) float64 { return math.Min(a, b) }),
		wasm.SOpF64Max:      f64(ir.OpF64Max, func(a, b float64) float64 { return math.Max(a, b) }),
		wasm.SOpF64Copysign: f64(ir.OpF64Copysign, func(a, b float64) float64 { return math.Copysign(a, b) }),
		wasm.SOpF64Eq:       f64b(ir.OpF64Eq, func(a, b float64) bool { return a == b }),
		wasm.SOpF64Ne:       f64b(ir.OpF64Ne, func(a, b float64) bool { return a != b }),
		wasm.SOpF64Lt:       f64b(ir.OpF64Lt, func(a, b float64) bool { return a < b }),
		wasm.SOpF64Gt:       f64b(ir.OpF64Gt, func(a, b float64) bool { return a > b }),
		wasm.SOpF64Le:       f64b(ir.OpF64Le, func(a, b float64) bool { return a <= b }),
		wasm.SOpF64Ge:       f64b(ir.OpF64Ge, func(a, b float64) bool { return a >= b }),
	}
}

func binaryTableFor(op wasm.StackOp) (binaryOpInfo, bool) {
	if info, i64ok := i64BinaryTable()[op]; i64ok {
		return info, i64ok
	}
	if info, i32ok := i32BinaryTable()[op]; i32ok {
		return info, i32ok
	}
	if info, fok := floatBinaryTable()[op]; fok {
		return info, fok
	}
	return binaryOpInfo{}, false
}
