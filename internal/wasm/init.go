package wasm

// InitExprKind tags the restricted constant language global initializers
// and segment offsets are written in (spec.md §4.6 point 2): constants,
// global.get of an imported immutable global, and reference literals. No
// other instructions are valid here; the external validator is responsible
// for rejecting anything else before a Module reaches this package.
type InitExprKind byte

const (
	InitExprI32Const InitExprKind = iota
	InitExprI64Const
	InitExprF32Const
	InitExprF64Const
	InitExprGlobalGet
	InitExprRefNull
	InitExprRefFunc
)

// InitExpr is one evaluated-at-instantiation-time constant expression.
type InitExpr struct {
	Kind InitExprKind

	// Imm carries I32Const/I64Const (sign-extended) and F32Const/F64Const
	// (as raw bits).
	Imm int64

	// GlobalIndex is populated by GlobalGet (must name an imported,
	// immutable global — the external validator's job; the Linker only
	// checks at instantiation that the index is in range, see
	// internal/linker).
	GlobalIndex uint32

	// FuncIndex is populated by RefFunc.
	FuncIndex uint32
}

// ElementSegment is an active element segment: it is applied into a table
// at instantiation time (spec.md §4.6 step 3). Passive/declarative segments
// are a supplemental feature left for a future extension; every segment
// this package models is active, matching the end-to-end scenarios in
// spec.md §8.
type ElementSegment struct {
	TableIndex uint32
	Offset     InitExpr
	FuncIndices []uint32
}

// DataSegment is an active data segment: applied into a memory at
// instantiation time (spec.md §4.6 step 4).
type DataSegment struct {
	MemoryIndex uint32
	Offset      InitExpr
	Bytes       []byte
}
