package ir

// Opcode is a 16-bit enumerator naming one IR record's operation. Every
// operator has a fixed-size record (see Record); opcodes that need more
// operands than a Record's three Slots hold use a trailing Param record,
// marked by OpParam and decoded as an opaque 48-bit payload by whichever
// preceding opcode declared it needed one (memory loads/stores carry their
// offset and width there, select its condition, table.grow its fill value,
// and call_indirect its index slot and table index).
//
// The full WebAssembly opcode surface numbers in the hundreds once every
// fused-immediate and reversed-commutative variant is counted; generating
// that table mechanically is explicitly out of scope (see spec.md §1,
// "build-time code generation of the opcode tables"). This enum hand-writes
// a representative family of each kind the translator and executor must
// handle: control flow, locals/globals, the i32/i64/f32/f64 numeric
// families (plain and *_imm16 fused forms; there are no 32-bit fused
// forms, so wider constants go through the constant pool), memory, table,
// and calls. Extending it to the remaining numeric
// opcodes is mechanical repetition of the same four patterns already
// present per family (see DESIGN.md).
type Opcode uint16

const (
	OpUnreachable Opcode = iota
	OpNop
	OpParam // trailing payload record; never dispatched on its own.

	// Control flow. Branch targets are resolved to record offsets by the
	// translator's second pass; OpBr/OpBrIf/OpBrIfEqz carry a signed
	// BranchOffset (see record.go). OpBrTable is never emitted: the
	// translator lowers br_table to OpI32Eq/OpBrIf chains ending in OpBr,
	// and the executor treats OpBrTable as a no-op.
	OpBr
	OpBrIf
	OpBrIfEqz
	OpBrTable
	OpReturn
	OpReturnValues // X = number of result slots, contiguous from Y.

	// Calls. The internal/external split is static (two opcodes), never
	// resolved dynamically, per the specification.
	OpCallInternal
	OpCallImported
	OpCallIndirect
	OpHostTrampoline

	// Locals, globals, constants, and stack shuffling.
	OpCopy // Y -> X (register move; also used for relink-result copies)
	OpGlobalGet
	OpGlobalSet
	OpSelect
	OpDrop

	// Memory.
	OpMemoryLoad
	OpMemoryStore
	OpMemorySize
	OpMemoryGrow

	// Table.
	OpTableGet
	OpTableSet
	OpTableSize
	OpTableGrow

	// i32 arithmetic: plain register form and 16-bit fused immediate.
	OpI32Add
	OpI32AddImm16
	OpI32Sub
	OpI32SubImm16
	OpI32Mul
	OpI32MulImm16
	OpI32DivS
	OpI32DivU
	OpI32RemS
	OpI32RemU
	OpI32And
	OpI32AndImm16
	OpI32Or
	OpI32OrImm16
	OpI32Xor
	OpI32XorImm16
	OpI32Shl
	OpI32ShrS
	OpI32ShrU
	OpI32Eq
	OpI32Ne
	OpI32LtS
	OpI32LtU
	OpI32GtS
	OpI32GtU
	OpI32LeS
	OpI32LeU
	OpI32GeS
	OpI32GeU
	OpI32Eqz

	// i64 arithmetic, same shape as i32.
	OpI64Add
	OpI64AddImm16
	OpI64Sub
	OpI64SubImm16
	OpI64Mul
	OpI64MulImm16
	OpI64DivS
	OpI64DivU
	OpI64RemS
	OpI64RemU
	OpI64And
	OpI64Or
	OpI64Xor
	OpI64Eq
	OpI64Ne
	OpI64LtS
	OpI64LtU
	OpI64GtS
	OpI64GtU
	OpI64LeS
	OpI64LeU
	OpI64GeS
	OpI64GeU
	OpI64Eqz

	// f32 / f64 arithmetic. No *_imm16 forms: floating immediates rarely
	// fit a useful fused encoding, so the translator always materializes
	// float constants into the constant pool (see translator/fold.go).
	OpF32Add
	OpF32Sub
	OpF32Mul
	OpF32Div
	OpF32Min
	OpF32Max
	OpF32Copysign
	OpF32Eq
	OpF32Ne
	OpF32Lt
	OpF32Gt
	OpF32Le
	OpF32Ge

	OpF64Add
	OpF64Sub
	OpF64Mul
	OpF64Div
	OpF64Min
	OpF64Max
	OpF64Copysign
	OpF64Eq
	OpF64Ne
	OpF64Lt
	OpF64Gt
	OpF64Le
	OpF64Ge

	// Conversions (enough to exercise BadConversionToInteger).
	OpI32TruncF32S
	OpI32TruncF32U
	OpI32TruncF64S
	OpI32TruncF64U
	OpI64ExtendI32S
	OpI64ExtendI32U

	// Statically scheduled traps: the translator emits these directly when
	// it can prove a trap at translation time (e.g. division by a constant
	// zero), rather than evaluating the operator.
	OpTrap

	opcodeCount // sentinel; not a real opcode.
)

// Valid reports whether op is a defined opcode (excludes the opcodeCount
// sentinel and anything past it).
func (op Opcode) Valid() bool { return op < opcodeCount }

// TrapCode identifies which condition OpTrap statically schedules; stored in
// the record's X operand.
type TrapCode uint16

const (
	TrapIntegerDivisionByZero TrapCode = iota
	TrapIntegerOverflow
	TrapUnreachableCodeReached
)
