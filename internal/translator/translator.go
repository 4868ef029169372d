// Package translator lowers a validated Wasm function body (internal/wasm's
// stack-machine Instruction sequence) into wazir's register-machine IR
// (internal/ir): slot-addressed operands, constant folding, fused-immediate
// opcode selection, and control-frame bookkeeping for branch resolution.
//
// This is the Go-native reading of wasmi's regmach translator
// (original_source crates/wasmi/src/engine/func_builder/regmach,
// crates/wasmi/src/engine/bytecode2/construct.rs): the simulated operand
// stack holds providers (register or not-yet-materialized constant) rather
// than raw values, so a pure operator consuming two constants can fold at
// translation time instead of emitting a record at all.
package translator

import (
	"github.com/wazir-wasm/wazir/internal/ir"
	"github.com/wazir-wasm/wazir/internal/value"
	"github.com/wazir-wasm/wazir/internal/wasm"
	"github.com/wazir-wasm/wazir/internal/wasmruntime"
)

// Metadata is the per-function summary the store keeps alongside a
// function's IR range: how large an operand frame the executor must
// allocate, and how many of its leading slots are parameters vs. results.
type Metadata struct {
	NumSlots   int
	NumParams  int
	NumResults int
}

// Function is one translated function: its IR records, its constant pool,
// and its Metadata.
type Function struct {
	Records  []ir.Record
	Consts   []value.Word
	Metadata Metadata
}

// Translate lowers one function of module, identified by funcIndex in the
// module's combined (imports-first) function index space. The module is
// needed, beyond the function's own body, to resolve call targets'
// signatures and global types — information the external validator already
// checked for consistency, but that this package still needs concretely to
// choose argument-window sizes and value types.
func Translate(module *wasm.Module, funcIndex uint32) (*Function, error) {
	importedCount := module.ImportedFuncCount()
	if funcIndex < importedCount {
		return nil, wasmruntime.StaticError("translator: cannot translate an imported function")
	}
	localIdx := funcIndex - importedCount
	if int(localIdx) >= len(module.Code) {
		return nil, wasmruntime.ErrStackSlotOutOfBounds
	}
	code := module.Code[localIdx]
	fn := module.Types[module.FunctionTypeIndices[localIdx]]

	t := &translatorState{
		module: module,
		fn:     fn,
		code:   code,
		consts: map[value.Word]ir.Slot{},
	}
	return t.run()
}

type translatorState struct {
	module *wasm.Module
	fn     wasm.FunctionType
	code   wasm.Code

	records []ir.Record
	stack   []provider // simulated operand stack.
	frames  []*frame

	nextSlot  ir.Slot
	freeSlots []ir.Slot // reclaimed temporaries, reused before bumping nextSlot.
	numLocals int

	constPool []value.Word
	consts    map[value.Word]ir.Slot // dedup: same bit pattern -> same const slot regardless of type tag.
}

func (t *translatorState) run() (*Function, error) {
	// Locals occupy the fixed low slots: parameters first, then declared
	// locals, matching the WebAssembly local index space.
	t.numLocals = len(t.fn.Params) + len(t.code.LocalTypes)
	if t.numLocals > ir.MaxSlots {
		return nil, wasmruntime.ErrStackSlotOutOfBounds
	}
	t.nextSlot = ir.Slot(t.numLocals)

	outer := &frame{
		kind:              frameBlock,
		stackDepthOnEntry: 0,
		resultTypes:       t.fn.Results,
		resultSlots:       t.reserveSlots(len(t.fn.Results)),
		elsePatch:         -1,
	}
	t.frames = append(t.frames, outer)

	for _, insn := range t.code.Body {
		if err := t.translateOne(insn); err != nil {
			return nil, err
		}
	}

	// nextSlot goes negative once slot MaxSlots has been handed out.
	if t.nextSlot < 0 || len(t.constPool) > ir.MaxSlots {
		return nil, wasmruntime.ErrStackSlotOutOfBounds
	}

	if len(t.records) > 1<<31-1 {
		return nil, wasmruntime.ErrBranchOffsetOutOfBounds
	}

	return &Function{
		Records: t.records,
		Consts:  t.constPool,
		Metadata: Metadata{
			NumSlots:   int(t.nextSlot),
			NumParams:  len(t.fn.Params),
			NumResults: len(t.fn.Results),
		},
	}, nil
}

// --- slot allocation ---

func (t *translatorState) allocSlot() ir.Slot {
	if n := len(t.freeSlots); n > 0 {
		s := t.freeSlots[n-1]
		t.freeSlots = t.freeSlots[:n-1]
		return s
	}
	s := t.nextSlot
	t.nextSlot++
	return s
}

func (t *translatorState) reserveSlots(n int) []ir.Slot {
	out := make([]ir.Slot, n)
	for i := range out {
		out[i] = t.allocSlot()
	}
	return out
}

// freeIfTemp returns a provider's slot to the free list, provided it is
// not one of the function's fixed local slots (those are never reclaimed,
// since local.get may reference them again at any later point).
func (t *translatorState) freeIfTemp(p provider) {
	if p.isConst {
		return
	}
	if int(p.slot) >= t.numLocals {
		t.freeSlots = append(t.freeSlots, p.slot)
	}
}

// materialize forces a provider onto a real register, interning its
// constant into the pool if necessary, and returns the Slot it now lives
// in.
func (t *translatorState) materialize(p provider) ir.Slot {
	if !p.isConst {
		return p.slot
	}
	if s, ok := t.consts[p.cval]; ok {
		return s
	}
	idx := len(t.constPool)
	t.constPool = append(t.constPool, p.cval)
	s := ir.ConstSlot(idx)
	t.consts[p.cval] = s
	return s
}

// --- operand stack ---

func (t *translatorState) push(p provider)  { t.stack = append(t.stack, p) }
func (t *translatorState) pop() provider {
	n := len(t.stack) - 1
	p := t.stack[n]
	t.stack = t.stack[:n]
	return p
}

// --- emission ---

func (t *translatorState) emit(r ir.Record) int {
	t.records = append(t.records, r)
	return len(t.records) - 1
}

// relinkResult rewrites the most recently emitted record's result slot from
// oldSlot to newSlot when safe (oldSlot is a fresh temporary written by
// exactly that record and not yet consumed by anything else), avoiding an
// extra OpCopy. This is spec.md §4.4's "relink-result optimization".
func (t *translatorState) relinkResult(oldSlot, newSlot ir.Slot) {
	if oldSlot == newSlot {
		return
	}
	if n := len(t.records); n > 0 && int(oldSlot) >= t.numLocals {
		last := &t.records[n-1]
		switch last.Op {
		case OpParamMarker, ir.OpCallInternal, ir.OpCallImported, ir.OpCallIndirect,
			ir.OpGlobalSet, ir.OpMemoryStore, ir.OpTableSet, ir.OpTrap,
			ir.OpBr, ir.OpBrIf, ir.OpBrIfEqz, ir.OpReturn, ir.OpReturnValues:
			// X is not a result slot written by this record.
		default:
			if last.X == oldSlot {
				last.X = newSlot
				return
			}
		}
	}
	// The fast path didn't apply (e.g. the value came from a plain
	// local.get with no producing record to rewrite) — fall back to an
	// explicit move.
	t.emit(ir.NewCopy(newSlot, oldSlot))
}

// OpParamMarker is referenced only to keep relinkResult from rewriting a
// trailing parameter record by mistake; see ir.OpParam.
const OpParamMarker = ir.OpParam

// moveInto copies p's value into dst, reusing relinkResult when p is a
// register produced by the immediately preceding record.
func (t *translatorState) moveInto(p provider, dst ir.Slot) {
	if p.isConst {
		src := t.materialize(p)
		t.emit(ir.NewCopy(dst, src))
		return
	}
	if p.slot == dst {
		return
	}
	t.relinkResult(p.slot, dst)
}

// calleeType resolves the signature of the function named by the combined
// index space, whether it is imported or locally defined.
func (t *translatorState) calleeType(funcIndex uint32) wasm.FunctionType {
	imported := t.module.ImportedFuncCount()
	if funcIndex < imported {
		var i uint32
		for _, imp := range t.module.Imports {
			if imp.Desc.Func == nil {
				continue
			}
			if i == funcIndex {
				return t.module.Types[*imp.Desc.Func]
			}
			i++
		}
		return wasm.FunctionType{}
	}
	localIdx := funcIndex - imported
	return t.module.Types[t.module.FunctionTypeIndices[localIdx]]
}

func (t *translatorState) globalType(idx uint32) value.Type {
	imported := uint32(0)
	for _, imp := range t.module.Imports {
		if imp.Desc.Global == nil {
			continue
		}
		if imported == idx {
			return imp.Desc.Global.ValType
		}
		imported++
	}
	localIdx := idx - imported
	if int(localIdx) < len(t.module.Globals) {
		return t.module.Globals[localIdx].Type.ValType
	}
	return value.I64
}
