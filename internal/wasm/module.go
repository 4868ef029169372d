// Package wasm is the Module representation: the parsed, validated shape a
// module takes between the external parser/validator (out of scope, see
// spec.md §1) and the Translator. It owns function types, import/export
// tables, pre-translation function bodies, and the restricted init-expr
// language used by globals and segments.
//
// Binary decoding itself is an external collaborator's job; this package
// only defines the shape that collaborator is expected to produce, and the
// stack-machine Instruction sequence the Translator consumes (see code.go).
package wasm

import (
	"fmt"
	"strings"

	"github.com/wazir-wasm/wazir/internal/value"
)

// FunctionType is a function signature: an ordered list of parameter types
// and an ordered list of result types. Multi-value (more than one result)
// is supported per spec.md §6's opt-in feature list.
type FunctionType struct {
	Params  []value.Type
	Results []value.Type
}

// Signature renders t as a comparable string key, used to intern
// FunctionTypes in a DedupArena (internal/arena.DedupArena requires a
// `comparable` type parameter, which a struct containing slices does not
// satisfy).
func (t FunctionType) Signature() string {
	var b strings.Builder
	for _, p := range t.Params {
		b.WriteByte(byte(p))
	}
	b.WriteByte(0xff)
	for _, r := range t.Results {
		b.WriteByte(byte(r))
	}
	return b.String()
}

func (t FunctionType) String() string {
	names := func(ts []value.Type) string {
		parts := make([]string, len(ts))
		for i, vt := range ts {
			parts[i] = vt.String()
		}
		return strings.Join(parts, ", ")
	}
	return fmt.Sprintf("(%s) -> (%s)", names(t.Params), names(t.Results))
}

// Limits bounds a table or memory's size in its natural unit (elements for
// a table, pages for a memory).
type Limits struct {
	Min uint32
	Max *uint32 // nil means unbounded.
}

// IsSubtypeOf implements the subtyping rule of spec.md §3: same element/ref
// type (checked by the caller) and (other.Min <= l.Min) and (if other.Max is
// present, l.Max is present and l.Max <= other.Max).
func (l Limits) IsSubtypeOf(other Limits) bool {
	if l.Min < other.Min {
		return false
	}
	if other.Max == nil {
		return true
	}
	return l.Max != nil && *l.Max <= *other.Max
}

// TableType describes a table: its element type (always a reference type)
// and its size Limits.
type TableType struct {
	ElemType value.Type
	Limits   Limits
}

// IsSubtypeOf reports whether t may be supplied where other is required.
func (t TableType) IsSubtypeOf(other TableType) bool {
	return t.ElemType == other.ElemType && t.Limits.IsSubtypeOf(other.Limits)
}

// MemoryType describes a memory: its size Limits (in 64KiB pages) and
// whether it is addressed with a 32-bit or 64-bit index (the memory64
// feature).
type MemoryType struct {
	Limits  Limits
	Index64 bool
}

// IsSubtypeOf reports whether m may be supplied where other is required.
func (m MemoryType) IsSubtypeOf(other MemoryType) bool {
	return m.Index64 == other.Index64 && m.Limits.IsSubtypeOf(other.Limits)
}

// GlobalType describes a global: its value type and whether it is mutable.
type GlobalType struct {
	ValType value.Type
	Mutable bool
}

// ExternDesc is the sum type of what an Import may bind to, or an Export may
// name. Exactly one of the four pointer fields is non-nil.
type ExternDesc struct {
	Func   *uint32     // index into Module.Types.
	Table  *TableType  // locally-shaped requirement for an imported table.
	Memory *MemoryType // locally-shaped requirement for an imported memory.
	Global *GlobalType
}

// Import names one imported item by (Module, Name) and its required shape.
type Import struct {
	Module, Name string
	Desc         ExternDesc
}

// ExternKind tags an Export by which index space it names.
type ExternKind byte

const (
	ExternKindFunc ExternKind = iota
	ExternKindTable
	ExternKindMemory
	ExternKindGlobal
)

// Export names one item in the module's own index space for lookup by the
// Linker.
type Export struct {
	Name  string
	Kind  ExternKind
	Index uint32 // index in the combined (imports-first) index space.
}

// GlobalDef is a locally-defined global: its type and its restricted
// initializer expression.
type GlobalDef struct {
	Type GlobalType
	Init InitExpr
}

// Module is a fully parsed and validated (by an external collaborator)
// WebAssembly module, ready for the Translator and then the Linker. Index
// spaces (functions, tables, memories, globals) are laid out imports-first,
// matching the WebAssembly binary format so the Linker's local-index
// arithmetic needs no further remapping.
type Module struct {
	Types []FunctionType

	Imports []Import

	// FunctionTypeIndices holds one Types index per *locally defined*
	// function (imported functions carry their type in Imports instead),
	// parallel to Code.
	FunctionTypeIndices []uint32
	Code                []Code

	Tables    []TableType
	Memories  []MemoryType
	Globals   []GlobalDef
	Elements  []ElementSegment
	DataSegs  []DataSegment
	Exports   []Export
	StartFunc *uint32 // index into the combined function index space.

	// Name is a debug-only module name, not a semantic part of the binary
	// format; used in trap and error messages (see internal/wasmruntime).
	Name string
}

// ImportedFuncCount returns how many entries in the combined function index
// space are imports, i.e. the offset at which FunctionTypeIndices/Code
// begin.
func (m *Module) ImportedFuncCount() uint32 {
	var n uint32
	for _, imp := range m.Imports {
		if imp.Desc.Func != nil {
			n++
		}
	}
	return n
}
