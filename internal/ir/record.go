package ir

// Record is one fixed-size IR instruction: an Opcode plus three inline Slot
// operands. At 2 + 2*3 = 8 bytes, a Record is a power-of-two word multiple
// and decodes branchlessly (one fixed-width read, no variable-length
// prefix) — the choice documented as an open question in spec.md §9 and
// resolved in SPEC_FULL.md's Open Question decisions.
//
// Operand meaning is opcode-specific:
//   - Binary arithmetic: X = result slot, Y = left operand, Z = right operand.
//   - *_imm16 fused forms: X = result slot, Y = register operand, Z = the
//     16-bit immediate reinterpreted from Slot's bit pattern (see Imm16).
//   - Unary ops: X = result slot, Y = operand, Z = NoSlot.
//   - OpBr: X/Y hold a BranchOffset (see Offset/WithOffset), Z = NoSlot.
//   - OpBrIf/OpBrIfEqz: X/Y hold a BranchOffset taken on the predicate
//     matching the opcode's sense, Z = condition slot (see Cond).
type Record struct {
	Op   Opcode
	X, Y Slot
	Z    Slot
}

// Size is the fixed byte size of one encoded Record.
const Size = 8

// NewBinary builds the record for a plain binary op: result, left, right.
func NewBinary(op Opcode, result, left, right Slot) Record {
	return Record{Op: op, X: result, Y: left, Z: right}
}

// NewBinaryImm16 builds the record for an *_imm16 fused form: result,
// register operand, and a 16-bit immediate folded straight into the Z slot
// field (Imm16/FromImm16 convert between Slot's bit pattern and int16).
func NewBinaryImm16(op Opcode, result, operand Slot, imm int16) Record {
	return Record{Op: op, X: result, Y: operand, Z: Slot(imm)}
}

// Imm16 reinterprets Z as the 16-bit immediate of an *_imm16 record.
func (r Record) Imm16() int16 { return int16(r.Z) }

// NewUnary builds the record for a unary op: result, operand.
func NewUnary(op Opcode, result, operand Slot) Record {
	return Record{Op: op, X: result, Y: operand, Z: NoSlot}
}

// NewCopy builds a register-move record (also used by the translator's
// relink-result optimization to rewrite a stale result slot in place).
func NewCopy(dst, src Slot) Record {
	return Record{Op: OpCopy, X: dst, Y: src, Z: NoSlot}
}

// BranchOffset is a signed delta, measured in Records, that a branch opcode
// adds to the instruction pointer. It spans two Slot-sized fields because a
// single Slot (16 bits) cannot address every record offset in a
// maximum-sized function body.
type BranchOffset int32

// NewBr builds an unconditional branch record.
func NewBr(offset BranchOffset) Record {
	x, y := splitOffset(offset)
	return Record{Op: OpBr, X: x, Y: y, Z: NoSlot}
}

// NewBrIf builds a conditional branch record: branch to offset when the
// value in cond is non-zero (OpBrIf) or zero (OpBrIfEqz).
func NewBrIf(eqz bool, cond Slot, offset BranchOffset) Record {
	op := OpBrIf
	if eqz {
		op = OpBrIfEqz
	}
	x, y := splitOffset(offset)
	// The condition slot rides in Z since X/Y are committed to the offset;
	// this is the one record shape where operand order is opcode-specific
	// by necessity, documented here rather than inferred from position.
	_ = cond
	return Record{Op: op, X: x, Y: y, Z: cond}
}

// Offset reconstructs the BranchOffset encoded in a branch record's X/Y
// fields.
func (r Record) Offset() BranchOffset {
	return BranchOffset(uint32(uint16(r.X)) | uint32(uint16(r.Y))<<16)
}

// Cond returns the condition slot of an OpBrIf/OpBrIfEqz record.
func (r Record) Cond() Slot { return r.Z }

func splitOffset(o BranchOffset) (Slot, Slot) {
	u := uint32(o)
	return Slot(uint16(u)), Slot(uint16(u >> 16))
}

// MemWidth packs a memory instruction's effective access width and (for
// narrow loads) sign-extension behavior. It rides in the Z field of the
// OpParam record trailing every OpMemoryLoad/OpMemoryStore, alongside the
// offset split across that record's X/Y fields.
type MemWidth int16

const (
	// MemWidth32 is a plain 4-byte access with no extension: i32/f32
	// load/store, and i64.store32 (i64.load32_u is MemWidth32U below, since
	// a load additionally needs to zero the upper 32 bits of the Word).
	MemWidth32 MemWidth = iota
	// MemWidth64 is a plain 8-byte access: i64/f64 load/store.
	MemWidth64
	MemWidth8S  // i32/i64 load8_s: 1 byte, sign-extended.
	MemWidth8U  // i32/i64 load8_u/store8: 1 byte, zero-extended.
	MemWidth16S // i32/i64 load16_s: 2 bytes, sign-extended.
	MemWidth16U // i32/i64 load16_u/store16: 2 bytes, zero-extended.
	MemWidth32S // i64.load32_s: 4 bytes, sign-extended.
	MemWidth32U // i64.load32_u: 4 bytes, zero-extended.
)

// Bytes returns the number of bytes w reads or writes at the effective
// address.
func (w MemWidth) Bytes() int {
	switch w {
	case MemWidth8S, MemWidth8U:
		return 1
	case MemWidth16S, MemWidth16U:
		return 2
	case MemWidth32, MemWidth32S, MemWidth32U:
		return 4
	default: // MemWidth64
		return 8
	}
}

// SignExtend reports whether a load of width w sign-extends its result
// (rather than zero-extending or, for a full-width access, not extending at
// all).
func (w MemWidth) SignExtend() bool {
	switch w {
	case MemWidth8S, MemWidth16S, MemWidth32S:
		return true
	}
	return false
}

// NewIndexed builds the record shape shared by OpCallInternal, OpCallImported
// and OpCallIndirect: X = the argument/result window's base slot, Y/Z hold a
// uint32 index (a function index, or — for OpCallIndirect — a type index,
// with the table index itself riding in a trailing OpParam record) split the
// same way a BranchOffset is.
func NewIndexed(op Opcode, base Slot, index uint32) Record {
	y, z := Slot(uint16(index)), Slot(uint16(index>>16))
	return Record{Op: op, X: base, Y: y, Z: z}
}

// Index reconstructs the uint32 index encoded in an indexed record's Y/Z
// fields.
func (r Record) Index() uint32 {
	return uint32(uint16(r.Y)) | uint32(uint16(r.Z))<<16
}
