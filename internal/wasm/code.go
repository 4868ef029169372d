package wasm

import "github.com/wazir-wasm/wazir/internal/value"

// StackOp names one stack-machine operator in a function body handed to the
// Translator. This is the validated-input contract spec.md §4.4 describes
// ("a stack-machine instruction sequence with known local/parameter types
// and a well-typed operand stack at every program point"); producing it
// from the WebAssembly binary format is the external parser/validator's
// job, out of scope here.
//
// The families mirror ir.Opcode's: this package enumerates the subset the
// Translator is taught to lower (see internal/translator); extending either
// enum to additional numeric operators follows the same pattern already
// present for each family.
type StackOp uint16

const (
	SOpUnreachable StackOp = iota
	SOpNop

	// Structured control flow. BlockType.Params/Results describe the
	// block's own signature (as opposed to the function's).
	SOpBlock
	SOpLoop
	SOpIf
	SOpElse
	SOpEnd
	SOpBr
	SOpBrIf
	SOpBrTable
	SOpReturn
	SOpCall
	SOpCallIndirect

	SOpDrop
	SOpSelect

	SOpLocalGet
	SOpLocalSet
	SOpLocalTee
	SOpGlobalGet
	SOpGlobalSet

	SOpI32Const
	SOpI64Const
	SOpF32Const
	SOpF64Const

	SOpRefNull
	SOpRefFunc
	SOpRefIsNull

	SOpMemorySize
	SOpMemoryGrow
	SOpI32Load
	SOpI64Load
	SOpF32Load
	SOpF64Load
	SOpI32Store
	SOpI64Store
	SOpF32Store
	SOpF64Store

	// Narrow-width load/store family: memory access narrower than the
	// result/operand's own value type, with sign or zero extension on load.
	SOpI32Load8S
	SOpI32Load8U
	SOpI32Load16S
	SOpI32Load16U
	SOpI64Load8S
	SOpI64Load8U
	SOpI64Load16S
	SOpI64Load16U
	SOpI64Load32S
	SOpI64Load32U
	SOpI32Store8
	SOpI32Store16
	SOpI64Store8
	SOpI64Store16
	SOpI64Store32

	SOpTableGet
	SOpTableSet
	SOpTableSize
	SOpTableGrow

	// i32 numeric family.
	SOpI32Add
	SOpI32Sub
	SOpI32Mul
	SOpI32DivS
	SOpI32DivU
	SOpI32RemS
	SOpI32RemU
	SOpI32And
	SOpI32Or
	SOpI32Xor
	SOpI32Shl
	SOpI32ShrS
	SOpI32ShrU
	SOpI32Eq
	SOpI32Ne
	SOpI32LtS
	SOpI32LtU
	SOpI32GtS
	SOpI32GtU
	SOpI32LeS
	SOpI32LeU
	SOpI32GeS
	SOpI32GeU
	SOpI32Eqz

	// i64 numeric family.
	SOpI64Add
	SOpI64Sub
	SOpI64Mul
	SOpI64DivS
	SOpI64DivU
	SOpI64RemS
	SOpI64RemU
	SOpI64And
	SOpI64Or
	SOpI64Xor
	SOpI64Eq
	SOpI64Ne
	SOpI64LtS
	SOpI64LtU
	SOpI64GtS
	SOpI64GtU
	SOpI64LeS
	SOpI64LeU
	SOpI64GeS
	SOpI64GeU
	SOpI64Eqz

	// f32 / f64 numeric families.
	SOpF32Add
	SOpF32Sub
	SOpF32Mul
	SOpF32Div
	SOpF32Min
	SOpF32Max
	SOpF32Copysign
	SOpF32Eq
	SOpF32Ne
	SOpF32Lt
	SOpF32Gt
	SOpF32Le
	SOpF32Ge

	SOpF64Add
	SOpF64Sub
	SOpF64Mul
	SOpF64Div
	SOpF64Min
	SOpF64Max
	SOpF64Copysign
	SOpF64Eq
	SOpF64Ne
	SOpF64Lt
	SOpF64Gt
	SOpF64Le
	SOpF64Ge

	SOpI32TruncF32S
	SOpI32TruncF32U
	SOpI32TruncF64S
	SOpI32TruncF64U
	SOpI64ExtendI32S
	SOpI64ExtendI32U
)

// BlockType is a structured control instruction's own signature.
type BlockType struct {
	Params  []value.Type
	Results []value.Type
}

// MemArg is a load/store's static offset and declared alignment hint. The
// effective address is addr + Offset in the memory's index type; Align is
// advisory only (see spec.md §4.5).
type MemArg struct {
	Offset uint32
	Align  uint32
}

// Instruction is one element of a function body's stack-machine
// instruction sequence. Only the fields relevant to Op are populated; this
// mirrors the "one struct, opcode-specific fields" shape the Translator's
// source (internal/wasm) and the executor's IR (internal/ir) both use,
// rather than a Go union (which the language does not offer directly).
type Instruction struct {
	Op StackOp

	// Immediate payloads. Imm carries i32/i64 constants (sign-extended)
	// and f32/f64 constants (as raw bits, via value.WordFromF32/F64);
	// Index carries a local/global/function/table/type index;
	// Targets carries br_table's jump table (last entry is the default).
	Imm     int64
	Index   uint32
	Index2  uint32 // call_indirect's table index; table.copy's destination.
	Targets []uint32
	Block   BlockType
	Mem     MemArg
}

// Code is one function's pre-translation body: its locally declared locals
// (beyond the parameters named by its FunctionType) and its validated
// stack-machine instruction sequence.
type Code struct {
	LocalTypes []value.Type
	Body       []Instruction
}
