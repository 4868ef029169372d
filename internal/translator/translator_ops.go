package translator

import (
	"github.com/wazir-wasm/wazir/internal/ir"
	"github.com/wazir-wasm/wazir/internal/value"
	"github.com/wazir-wasm/wazir/internal/wasm"
)

func (t *translatorState) top() *frame { return t.frames[len(t.frames)-1] }

func (t *translatorState) translateOne(insn wasm.Instruction) error {
	if t.top().unreachable && !structuralOp(insn.Op) {
		// Dead code between an unconditional exit and the next structural
		// boundary produces no records (WebAssembly's unreachable-code
		// typing rule); the operand stack is left untouched since no
		// validator-accepted instruction here can observe it.
		return nil
	}

	switch insn.Op {
	case wasm.SOpUnreachable:
		t.emit(ir.Record{Op: ir.OpTrap, X: ir.Slot(ir.TrapUnreachableCodeReached)})
		t.top().unreachable = true
		return nil
	case wasm.SOpNop:
		return nil

	case wasm.SOpI32Const:
		t.push(constProvider(value.WordFromI32(int32(insn.Imm)), value.I32))
		return nil
	case wasm.SOpI64Const:
		t.push(constProvider(value.WordFromI64(insn.Imm), value.I64))
		return nil
	case wasm.SOpF32Const:
		t.push(constProvider(value.Word(uint32(insn.Imm)), value.F32))
		return nil
	case wasm.SOpF64Const:
		t.push(constProvider(value.Word(uint64(insn.Imm)), value.F64))
		return nil

	case wasm.SOpLocalGet:
		t.push(registerProvider(ir.Slot(insn.Index), t.localType(insn.Index)))
		return nil
	case wasm.SOpLocalSet:
		p := t.pop()
		t.moveInto(p, ir.Slot(insn.Index))
		return nil
	case wasm.SOpLocalTee:
		p := t.pop()
		t.moveInto(p, ir.Slot(insn.Index))
		t.push(registerProvider(ir.Slot(insn.Index), t.localType(insn.Index)))
		return nil

	case wasm.SOpGlobalGet:
		dst := t.allocSlot()
		t.emit(ir.Record{Op: ir.OpGlobalGet, X: dst, Y: ir.Slot(insn.Index)})
		t.push(registerProvider(dst, t.globalType(insn.Index)))
		return nil
	case wasm.SOpGlobalSet:
		p := t.pop()
		src := t.materialize(p)
		t.emit(ir.Record{Op: ir.OpGlobalSet, X: ir.Slot(insn.Index), Y: src})
		t.freeIfTemp(p)
		return nil

	case wasm.SOpDrop:
		p := t.pop()
		t.freeIfTemp(p)
		return nil
	case wasm.SOpSelect:
		cond := t.pop()
		b := t.pop()
		a := t.pop()
		dst := t.allocSlot()
		condSlot := t.materialize(cond)
		aSlot, bSlot := t.materialize(a), t.materialize(b)
		t.emit(ir.Record{Op: ir.OpSelect, X: dst, Y: aSlot, Z: bSlot})
		t.emit(ir.Record{Op: ir.OpParam, X: condSlot})
		t.freeIfTemp(a)
		t.freeIfTemp(b)
		t.freeIfTemp(cond)
		t.push(registerProvider(dst, a.typ))
		return nil

	case wasm.SOpTableGet:
		idx := t.pop()
		dst := t.allocSlot()
		src := t.materialize(idx)
		t.emit(ir.Record{Op: ir.OpTableGet, X: dst, Y: src, Z: ir.Slot(insn.Index)})
		t.freeIfTemp(idx)
		t.push(registerProvider(dst, value.FuncRef))
		return nil
	case wasm.SOpTableSet:
		val := t.pop()
		idx := t.pop()
		valSlot := t.materialize(val)
		idxSlot := t.materialize(idx)
		t.emit(ir.Record{Op: ir.OpTableSet, X: idxSlot, Y: valSlot, Z: ir.Slot(insn.Index)})
		t.freeIfTemp(val)
		t.freeIfTemp(idx)
		return nil
	case wasm.SOpTableSize:
		dst := t.allocSlot()
		t.emit(ir.Record{Op: ir.OpTableSize, X: dst, Y: ir.Slot(insn.Index)})
		t.push(registerProvider(dst, value.I32))
		return nil
	case wasm.SOpTableGrow:
		fill := t.pop()
		delta := t.pop()
		dst := t.allocSlot()
		fillSlot := t.materialize(fill)
		deltaSlot := t.materialize(delta)
		t.emit(ir.Record{Op: ir.OpTableGrow, X: dst, Y: deltaSlot, Z: ir.Slot(insn.Index)})
		t.emit(ir.Record{Op: ir.OpParam, X: fillSlot})
		t.freeIfTemp(fill)
		t.freeIfTemp(delta)
		t.push(registerProvider(dst, value.I32))
		return nil

	case wasm.SOpMemorySize:
		dst := t.allocSlot()
		t.emit(ir.Record{Op: ir.OpMemorySize, X: dst})
		t.push(registerProvider(dst, value.I32))
		return nil
	case wasm.SOpMemoryGrow:
		delta := t.pop()
		dst := t.allocSlot()
		src := t.materialize(delta)
		t.emit(ir.Record{Op: ir.OpMemoryGrow, X: dst, Y: src})
		t.freeIfTemp(delta)
		t.push(registerProvider(dst, value.I32))
		return nil

	case wasm.SOpI32Load, wasm.SOpI64Load, wasm.SOpF32Load, wasm.SOpF64Load,
		wasm.SOpI32Load8S, wasm.SOpI32Load8U, wasm.SOpI32Load16S, wasm.SOpI32Load16U,
		wasm.SOpI64Load8S, wasm.SOpI64Load8U, wasm.SOpI64Load16S, wasm.SOpI64Load16U,
		wasm.SOpI64Load32S, wasm.SOpI64Load32U:
		return t.translateLoad(insn)
	case wasm.SOpI32Store, wasm.SOpI64Store, wasm.SOpF32Store, wasm.SOpF64Store,
		wasm.SOpI32Store8, wasm.SOpI32Store16, wasm.SOpI64Store8, wasm.SOpI64Store16, wasm.SOpI64Store32:
		return t.translateStore(insn)

	case wasm.SOpCall:
		return t.translateCall(insn)
	case wasm.SOpCallIndirect:
		return t.translateCallIndirect(insn)

	case wasm.SOpBlock, wasm.SOpLoop, wasm.SOpIf:
		return t.translateEnter(insn)
	case wasm.SOpElse:
		return t.translateElse()
	case wasm.SOpEnd:
		return t.translateEnd()
	case wasm.SOpBr:
		return t.translateBr(int(insn.Index), false)
	case wasm.SOpBrIf:
		return t.translateBrIf(int(insn.Index))
	case wasm.SOpBrTable:
		return t.translateBrTable(insn)
	case wasm.SOpReturn:
		return t.translateReturn()

	case wasm.SOpRefNull:
		t.push(constProvider(value.Word(value.NullRef), value.FuncRef))
		return nil
	case wasm.SOpRefIsNull:
		p := t.pop()
		dst := t.allocSlot()
		src := t.materialize(p)
		t.emit(ir.Record{Op: ir.OpI64Eqz, X: dst, Y: src})
		t.freeIfTemp(p)
		t.push(registerProvider(dst, value.I32))
		return nil
	}

	if info, ok := binaryTableFor(insn.Op); ok {
		return t.emitBinaryOp(insn.Op, info)
	}
	if op, typ, ok := unaryOpcode(insn.Op); ok {
		return t.emitUnary(op, typ)
	}
	return nil
}

func structuralOp(op wasm.StackOp) bool {
	switch op {
	case wasm.SOpElse, wasm.SOpEnd:
		return true
	}
	return false
}

func (t *translatorState) localType(idx uint32) value.Type {
	if int(idx) < len(t.fn.Params) {
		return t.fn.Params[idx]
	}
	li := int(idx) - len(t.fn.Params)
	if li >= 0 && li < len(t.code.LocalTypes) {
		return t.code.LocalTypes[li]
	}
	return value.I32
}

// emitBinaryOp implements spec.md §4.4's binary-operator lowering in full:
// constant folding, identity elimination, fused-immediate selection (with
// commutativity handling), and the plain register fallback.
func (t *translatorState) emitBinaryOp(op wasm.StackOp, info binaryOpInfo) error {
	right := t.pop()
	left := t.pop()

	if left.isConst && right.isConst {
		result, trap := info.eval(left.cval, right.cval)
		if trap != trapNone {
			t.emitScheduledTrap(trap)
			t.push(registerProvider(t.allocSlot(), info.typ)) // dead placeholder; see fold.go.
			return nil
		}
		t.push(constProvider(result, info.typ))
		return nil
	}

	if folded, ok := identityFold(op, info.typ, left, right); ok {
		t.freeIfTemp(left)
		t.freeIfTemp(right)
		t.push(folded)
		return nil
	}

	// Runtime division/remainder by a provably-zero constant: schedule the
	// trap statically rather than lowering the operator.
	if right.isConst && right.cval == value.Zero && isDivRem(op) {
		t.emitScheduledTrap(trapDivByZero)
		t.push(registerProvider(t.allocSlot(), info.typ))
		return nil
	}

	if info.hasImm16 {
		if imm, ok := right.imm16(); ok {
			dst := t.allocSlot()
			lhs := t.materialize(left)
			t.emit(ir.NewBinaryImm16(info.imm16, dst, lhs, imm))
			t.freeIfTemp(left)
			t.push(registerProvider(dst, info.typ))
			return nil
		}
		if info.commutative {
			if imm, ok := left.imm16(); ok {
				dst := t.allocSlot()
				rhs := t.materialize(right)
				t.emit(ir.NewBinaryImm16(info.imm16, dst, rhs, imm))
				t.freeIfTemp(right)
				t.push(registerProvider(dst, info.typ))
				return nil
			}
		}
	}

	dst := t.allocSlot()
	lhs, rhs := t.materialize(left), t.materialize(right)
	t.emit(ir.NewBinary(info.reg, dst, lhs, rhs))
	t.freeIfTemp(left)
	t.freeIfTemp(right)
	t.push(registerProvider(dst, info.typ))
	return nil
}

func isDivRem(op wasm.StackOp) bool {
	switch op {
	case wasm.SOpI32DivS, wasm.SOpI32DivU, wasm.SOpI32RemS, wasm.SOpI32RemU,
		wasm.SOpI64DivS, wasm.SOpI64DivU, wasm.SOpI64RemS, wasm.SOpI64RemU:
		return true
	}
	return false
}

func (t *translatorState) emitScheduledTrap(trap trapKind) {
	code := ir.TrapIntegerDivisionByZero
	if trap == trapOverflow {
		code = ir.TrapIntegerOverflow
	}
	t.emit(ir.Record{Op: ir.OpTrap, X: ir.Slot(code)})
}

func unaryOpcode(op wasm.StackOp) (ir.Opcode, value.Type, bool) {
	switch op {
	case wasm.SOpI32Eqz:
		return ir.OpI32Eqz, value.I32, true
	case wasm.SOpI64Eqz:
		return ir.OpI64Eqz, value.I32, true
	case wasm.SOpI32TruncF32S:
		return ir.OpI32TruncF32S, value.I32, true
	case wasm.SOpI32TruncF32U:
		return ir.OpI32TruncF32U, value.I32, true
	case wasm.SOpI32TruncF64S:
		return ir.OpI32TruncF64S, value.I32, true
	case wasm.SOpI32TruncF64U:
		return ir.OpI32TruncF64U, value.I32, true
	case wasm.SOpI64ExtendI32S:
		return ir.OpI64ExtendI32S, value.I64, true
	case wasm.SOpI64ExtendI32U:
		return ir.OpI64ExtendI32U, value.I64, true
	}
	return 0, 0, false
}

func (t *translatorState) emitUnary(op ir.Opcode, typ value.Type) error {
	p := t.pop()
	dst := t.allocSlot()
	src := t.materialize(p)
	t.emit(ir.NewUnary(op, dst, src))
	t.freeIfTemp(p)
	t.push(registerProvider(dst, typ))
	return nil
}

func (t *translatorState) translateLoad(insn wasm.Instruction) error {
	addr := t.pop()
	dst := t.allocSlot()
	src := t.materialize(addr)
	t.emit(ir.Record{Op: ir.OpMemoryLoad, X: dst, Y: src})
	width, typ := loadWidthAndResultType(insn.Op)
	t.emit(ir.Record{Op: ir.OpParam, X: ir.Slot(insn.Mem.Offset), Y: ir.Slot(insn.Mem.Offset >> 16), Z: ir.Slot(width)})
	t.freeIfTemp(addr)
	t.push(registerProvider(dst, typ))
	return nil
}

// loadWidthAndResultType maps a load opcode to the access width/extension
// the executor must apply and the value.Type the translated result carries.
func loadWidthAndResultType(op wasm.StackOp) (ir.MemWidth, value.Type) {
	switch op {
	case wasm.SOpI64Load:
		return ir.MemWidth64, value.I64
	case wasm.SOpF32Load:
		return ir.MemWidth32, value.F32
	case wasm.SOpF64Load:
		return ir.MemWidth64, value.F64
	case wasm.SOpI32Load8S:
		return ir.MemWidth8S, value.I32
	case wasm.SOpI32Load8U:
		return ir.MemWidth8U, value.I32
	case wasm.SOpI32Load16S:
		return ir.MemWidth16S, value.I32
	case wasm.SOpI32Load16U:
		return ir.MemWidth16U, value.I32
	case wasm.SOpI64Load8S:
		return ir.MemWidth8S, value.I64
	case wasm.SOpI64Load8U:
		return ir.MemWidth8U, value.I64
	case wasm.SOpI64Load16S:
		return ir.MemWidth16S, value.I64
	case wasm.SOpI64Load16U:
		return ir.MemWidth16U, value.I64
	case wasm.SOpI64Load32S:
		return ir.MemWidth32S, value.I64
	case wasm.SOpI64Load32U:
		return ir.MemWidth32U, value.I64
	default: // SOpI32Load
		return ir.MemWidth32, value.I32
	}
}

func (t *translatorState) translateStore(insn wasm.Instruction) error {
	val := t.pop()
	addr := t.pop()
	addrSlot := t.materialize(addr)
	valSlot := t.materialize(val)
	t.emit(ir.Record{Op: ir.OpMemoryStore, X: addrSlot, Y: valSlot})
	width := storeWidth(insn.Op)
	t.emit(ir.Record{Op: ir.OpParam, X: ir.Slot(insn.Mem.Offset), Y: ir.Slot(insn.Mem.Offset >> 16), Z: ir.Slot(width)})
	t.freeIfTemp(val)
	t.freeIfTemp(addr)
	return nil
}

func storeWidth(op wasm.StackOp) ir.MemWidth {
	switch op {
	case wasm.SOpI64Store, wasm.SOpF64Store:
		return ir.MemWidth64
	case wasm.SOpI32Store8, wasm.SOpI64Store8:
		return ir.MemWidth8U
	case wasm.SOpI32Store16, wasm.SOpI64Store16:
		return ir.MemWidth16U
	default: // SOpI32Store, SOpF32Store, SOpI64Store32
		return ir.MemWidth32
	}
}

// translateCall and translateCallIndirect lower a call to a contiguous
// argument/result window: the callee's N arguments are moved into N freshly
// reserved, consecutive slots immediately before the call record, and the
// executor (internal/exec) writes the M results back into the leading M of
// that same window — so the translator can push registerProviders for the
// results without knowing anything about the callee's implementation.
func (t *translatorState) translateCall(insn wasm.Instruction) error {
	callee := t.calleeType(insn.Index)
	argBase := t.popArgsInto(callee.Params, len(callee.Results))
	op := ir.OpCallInternal
	if insn.Index < t.module.ImportedFuncCount() {
		op = ir.OpCallImported
	}
	t.emit(ir.NewIndexed(op, argBase, insn.Index))
	t.pushResults(argBase, callee.Results)
	return nil
}

func (t *translatorState) translateCallIndirect(insn wasm.Instruction) error {
	tableIdx := t.pop() // the dynamic table index operand.
	callee := t.module.Types[insn.Index]
	argBase := t.popArgsInto(callee.Params, len(callee.Results))
	idxSlot := t.materialize(tableIdx)
	t.emit(ir.NewIndexed(ir.OpCallIndirect, argBase, insn.Index))
	t.emit(ir.Record{Op: ir.OpParam, X: idxSlot, Y: ir.Slot(insn.Index2)})
	t.freeIfTemp(tableIdx)
	t.pushResults(argBase, callee.Results)
	return nil
}

// popArgsInto pops len(paramTypes) providers (in reverse, since they were
// pushed left-to-right) and moves each into a freshly reserved contiguous
// slot window, returning the window's first slot. The window is taken from
// the top of the frame (not the free list, whose slots need not be
// adjacent) and is sized for the larger of the argument and result counts.
func (t *translatorState) popArgsInto(paramTypes []value.Type, numResults int) ir.Slot {
	n := len(paramTypes)
	args := make([]provider, n)
	for i := n - 1; i >= 0; i-- {
		args[i] = t.pop()
	}
	size := max(n, numResults, 1) // a call with no args or results still needs a base.
	base := t.nextSlot
	t.nextSlot += ir.Slot(size)
	for i, a := range args {
		t.moveInto(a, base+ir.Slot(i))
		t.freeIfTemp(a)
	}
	return base
}

func (t *translatorState) pushResults(base ir.Slot, resultTypes []value.Type) {
	for i, rt := range resultTypes {
		t.push(registerProvider(base+ir.Slot(i), rt))
	}
}

// --- structured control flow ---

func (t *translatorState) translateEnter(insn wasm.Instruction) error {
	f := &frame{
		stackDepthOnEntry: len(t.stack),
		paramTypes:        insn.Block.Params,
		resultTypes:       insn.Block.Results,
		elsePatch:         -1,
	}
	switch insn.Op {
	case wasm.SOpLoop:
		f.kind = frameLoop
		// A loop's backward-branch target is its params, materialized
		// onto fixed slots now so every iteration's `br` writes to the
		// same place the loop body reads its params from.
		f.paramSlots = t.reserveSlots(len(insn.Block.Params))
		for i := len(insn.Block.Params) - 1; i >= 0; i-- {
			p := t.pop()
			t.moveInto(p, f.paramSlots[i])
			t.freeIfTemp(p)
		}
		f.startRecord = len(t.records)
		for i, pt := range insn.Block.Params {
			t.push(registerProvider(f.paramSlots[i], pt))
		}
	case wasm.SOpIf:
		f.kind = frameIf
		f.resultSlots = t.reserveSlots(len(insn.Block.Results))
		cond := t.pop()
		condSlot := t.materialize(cond)
		f.elsePatch = t.emit(ir.NewBrIf(true, condSlot, 0))
		t.freeIfTemp(cond)
		// `if`'s params are already live registers on the stack, left in
		// place for the then-arm; capture them so the else arm (which
		// starts from a stack reset to entry depth) can re-push the same
		// values.
		n := len(insn.Block.Params)
		f.params = append([]provider(nil), t.stack[len(t.stack)-n:]...)
	default:
		f.kind = frameBlock
		f.resultSlots = t.reserveSlots(len(insn.Block.Results))
	}
	t.frames = append(t.frames, f)
	return nil
}

func (t *translatorState) translateElse() error {
	f := t.top()
	if !f.unreachable {
		t.writeExitValues(f, f.resultSlots, f.resultTypes)
	}
	jmp := t.emit(ir.NewBr(0))
	f.endPatches = append(f.endPatches, jmp)
	t.patchBranch(f.elsePatch, len(t.records))
	f.elsePatch = -1
	f.unreachable = false
	// Reset the stack to the if's params for the else arm's own typing,
	// re-pushing the exact providers captured at entry.
	t.stack = t.stack[:f.stackDepthOnEntry]
	for _, p := range f.params {
		t.push(p)
	}
	return nil
}

func (t *translatorState) translateEnd() error {
	f := t.frames[len(t.frames)-1]
	t.frames = t.frames[:len(t.frames)-1]

	if f.elsePatch >= 0 {
		// `if` with no explicit `else`: synthesize one that just copies the
		// if's params straight into the result slots (the identity
		// implicit-else the spec calls for — valid only when Params ==
		// Results, which the validator already guarantees here).
		var skipSynthetic int
		if !f.unreachable {
			t.writeExitValues(f, f.resultSlots, f.resultTypes)
			skipSynthetic = t.emit(ir.NewBr(0))
		}
		t.patchBranch(f.elsePatch, len(t.records))
		for i, p := range f.params {
			t.moveInto(p, f.resultSlots[i])
		}
		if !f.unreachable {
			t.patchBranch(skipSynthetic, len(t.records))
		}
	} else if !f.unreachable && f.kind != frameLoop {
		t.writeExitValues(f, f.resultSlots, f.resultTypes)
	}
	end := len(t.records)
	for _, p := range f.endPatches {
		t.patchBranch(p, end)
	}

	if len(t.frames) == 0 {
		// Outermost function body: fallthrough acts like an explicit
		// `return`.
		if !f.unreachable {
			t.emitReturn(f.resultSlots)
		}
		return nil
	}

	t.stack = t.stack[:f.stackDepthOnEntry]
	for i, rt := range f.resultTypes {
		t.push(registerProvider(f.resultSlots[i], rt))
	}
	t.top().unreachable = false
	return nil
}

// writeExitValues pops the frame's arity off the stack (in order) and
// copies each into dstSlots, the fixed slots every path to this exit point
// agrees on.
func (t *translatorState) writeExitValues(f *frame, dstSlots []ir.Slot, types []value.Type) {
	n := len(types)
	vals := make([]provider, n)
	for i := n - 1; i >= 0; i-- {
		vals[i] = t.pop()
	}
	for i, v := range vals {
		t.moveInto(v, dstSlots[i])
		t.freeIfTemp(v)
	}
}

func (t *translatorState) patchBranch(recordIdx, targetIdx int) {
	delta := ir.BranchOffset(targetIdx - recordIdx)
	r := &t.records[recordIdx]
	switch r.Op {
	case ir.OpBr:
		*r = ir.NewBr(delta)
	case ir.OpBrIf, ir.OpBrIfEqz:
		cond := r.Cond()
		*r = ir.NewBrIf(r.Op == ir.OpBrIfEqz, cond, delta)
	}
}

func (t *translatorState) resolveLabel(depth int) *frame {
	return t.frames[len(t.frames)-1-depth]
}

func (t *translatorState) translateBr(depth int, conditional bool) error {
	f := t.resolveLabel(depth)
	dstSlots, types := f.resultSlots, f.resultTypes
	if f.kind == frameLoop {
		dstSlots, types = f.paramSlots, f.paramTypes
	}
	t.writeExitValues(f, dstSlots, types)
	// Restore a well-typed stack for any (dead) code the validator still
	// requires be type-checked between here and the next structural
	// boundary.
	for i, ty := range types {
		t.push(registerProvider(dstSlots[i], ty))
	}
	if f.kind == frameLoop {
		t.emit(ir.NewBr(ir.BranchOffset(f.startRecord - len(t.records))))
	} else {
		jmp := t.emit(ir.NewBr(0))
		f.endPatches = append(f.endPatches, jmp)
	}
	if !conditional {
		t.top().unreachable = true
	}
	return nil
}

func (t *translatorState) translateBrIf(depth int) error {
	cond := t.pop()
	condSlot := t.materialize(cond)
	f := t.resolveLabel(depth)
	dstSlots, types := f.resultSlots, f.resultTypes
	if f.kind == frameLoop {
		dstSlots, types = f.paramSlots, f.paramTypes
	}
	// Peek (don't consume) the branch's live values: on the not-taken path
	// they remain on the stack for the fallthrough code.
	n := len(types)
	peeked := make([]provider, n)
	for i := 0; i < n; i++ {
		peeked[i] = t.stack[len(t.stack)-n+i]
	}
	for i, p := range peeked {
		t.moveInto(p, dstSlots[i])
	}
	t.freeIfTemp(cond)
	if f.kind == frameLoop {
		t.emit(ir.NewBrIf(false, condSlot, ir.BranchOffset(f.startRecord-len(t.records))))
	} else {
		jmp := t.emit(ir.NewBrIf(false, condSlot, 0))
		f.endPatches = append(f.endPatches, jmp)
	}
	return nil
}

func (t *translatorState) translateBrTable(insn wasm.Instruction) error {
	// Lowered as a chain of equality checks against the table index rather
	// than a dense computed jump: this reuses the already-correct br_if
	// exit-value plumbing (writeExitValues/patchBranch) for every target
	// instead of giving a jump table its own copy of it. The last target is
	// the default, taken unconditionally if nothing above matched.
	idx := t.pop()
	idxSlot := t.materialize(idx)
	for i, depth := range insn.Targets[:len(insn.Targets)-1] {
		eq := t.allocSlot()
		constSlot := t.materialize(constProvider(value.WordFromI32(int32(i)), value.I32))
		t.emit(ir.NewBinary(ir.OpI32Eq, eq, idxSlot, constSlot))
		t.push(registerProvider(eq, value.I32))
		if err := t.translateBrIf(int(depth)); err != nil {
			return err
		}
	}
	t.freeIfTemp(idx)
	return t.translateBr(int(insn.Targets[len(insn.Targets)-1]), false)
}

func (t *translatorState) translateReturn() error {
	outer := t.frames[0]
	t.writeExitValues(outer, outer.resultSlots, outer.resultTypes)
	t.emitReturn(outer.resultSlots)
	t.top().unreachable = true
	return nil
}

func (t *translatorState) emitReturn(resultSlots []ir.Slot) {
	if len(resultSlots) == 0 {
		t.emit(ir.Record{Op: ir.OpReturn})
		return
	}
	t.emit(ir.Record{Op: ir.OpReturnValues, X: ir.Slot(len(resultSlots)), Y: resultSlots[0]})
}
