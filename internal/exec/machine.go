package exec

import (
	"github.com/wazir-wasm/wazir/internal/ir"
	"github.com/wazir-wasm/wazir/internal/metrics"
	"github.com/wazir-wasm/wazir/internal/store"
	"github.com/wazir-wasm/wazir/internal/translator"
	"github.com/wazir-wasm/wazir/internal/value"
	"github.com/wazir-wasm/wazir/internal/wasmruntime"
)

// machine is one top-level call's execution context: the shared operand
// array every frame in this call tree addresses via its own base pointer,
// plus the store and engine needed to resolve call targets and host
// reentry. A fresh machine is created per Engine.CallFunction invocation;
// nothing on it outlives that call.
type machine[T any] struct {
	store  *store.Store[T]
	engine *Engine[T]
	stack  []value.Word
	fuel   uint64 // instructions remaining; only meaningful when engine.fuelEnabled.
}

// invoke runs fnHandle with args, returning its results. depth is the
// current recursive call depth (0 at the top level), checked against the
// engine's configured limit before a single word of stack space is touched.
func (m *machine[T]) invoke(fnHandle store.Handle, args []value.Word, depth int) []value.Word {
	fn, err := m.store.Function(fnHandle)
	if err != nil {
		panic(err) // an invalid handle reaching here is a programming bug, not a modeled trap.
	}
	return m.invokeInstance(fn, args, depth)
}

// invokeInstance runs an already-resolved FunctionInstance. call_indirect
// uses this directly (it resolves its callee through a table Ref via
// store.FunctionByRef, which has no Handle to hand back); every other call
// site goes through invoke, which looks the FunctionInstance up by Handle
// first.
func (m *machine[T]) invokeInstance(fn *store.FunctionInstance, args []value.Word, depth int) []value.Word {
	if depth > m.engine.maxDepth {
		panic(wasmruntime.NewTrap(wasmruntime.TrapStackOverflow))
	}
	if fn.HostFunc != nil {
		return m.invokeHost(fn, args)
	}
	return m.invokeWasm(fn, args, depth)
}

func (m *machine[T]) invokeHost(fn *store.FunctionInstance, args []value.Word) []value.Word {
	caller := store.NewCaller(m.store.Data, m.engine)
	results, err := fn.HostFunc(caller, args)
	if err != nil {
		if trap, ok := err.(*wasmruntime.Trap); ok {
			if trap.Origin.HostFuncName == "" {
				trap.Origin.HostFuncName = fn.HostName
			}
			panic(trap)
		}
		panic(wasmruntime.NewHostTrap(wasmruntime.TrapUnreachableCodeReached, fn.HostName))
	}
	return results
}

func (m *machine[T]) invokeWasm(fn *store.FunctionInstance, args []value.Word, depth int) []value.Word {
	irf := fn.IR
	base := len(m.stack)
	need := base + irf.Metadata.NumSlots
	m.reserve(need)
	m.stack = m.stack[:need]
	for i := base; i < need; i++ {
		m.stack[i] = value.Zero
	}
	copy(m.stack[base:base+len(args)], args)

	instInst, err := m.store.Instance(fn.Instance)
	if err != nil {
		panic(err)
	}

	metrics.FunctionsCalled.Inc()
	results := m.run(irf, instInst, base, depth)
	return results
}

func (m *machine[T]) reserve(n int) {
	if n <= cap(m.stack) {
		return
	}
	grown := make([]value.Word, len(m.stack), n*2+16)
	copy(grown, m.stack)
	m.stack = grown
}

// run dispatches irf's records starting at pc 0 with frame base base, until
// an OpReturn/OpReturnValues unwinds it, returning the result words copied
// out before the frame's slots are reclaimed.
func (m *machine[T]) run(irf *translator.Function, inst *store.ModuleInstance, base int, depth int) []value.Word {
	records := irf.Records
	pc := 0
	for {
		r := records[pc]
		metrics.InstructionsExecuted.Inc()
		if m.engine.fuelEnabled {
			if m.fuel == 0 {
				panic(wasmruntime.NewTrap(wasmruntime.TrapOutOfFuel))
			}
			m.fuel--
		}
		switch r.Op {

		case ir.OpNop, ir.OpParam:
			pc++

		case ir.OpTrap:
			panic(wasmruntime.NewTrap(trapCodeFromIR(ir.TrapCode(r.X))))

		case ir.OpCopy:
			m.write(irf, base, r.X, m.read(irf, base, r.Y))
			pc++

		case ir.OpBr:
			pc += int(r.Offset())

		case ir.OpBrIf:
			if m.read(irf, base, r.Cond()).I32() != 0 {
				pc += int(r.Offset())
			} else {
				pc++
			}

		case ir.OpBrIfEqz:
			if m.read(irf, base, r.Cond()).I32() == 0 {
				pc += int(r.Offset())
			} else {
				pc++
			}

		case ir.OpBrTable:
			// Not emitted by the translator's br_table lowering (which
			// reuses OpBrIf/OpBr directly); kept for a future dense-table
			// lowering and so the opcode isn't silently unhandled.
			pc++

		case ir.OpReturn:
			m.stack = m.stack[:base]
			return nil

		case ir.OpReturnValues:
			n, start := int(r.X), int(r.Y)
			out := make([]value.Word, n)
			copy(out, m.stack[base+start:base+start+n])
			m.stack = m.stack[:base]
			return out

		case ir.OpCallInternal, ir.OpCallImported:
			argBase := int(r.X)
			funcIdx := r.Index()
			if int(funcIdx) >= len(inst.Functions) {
				panic(wasmruntime.NewTrap(wasmruntime.TrapBadSignature))
			}
			calleeHandle := inst.Functions[funcIdx]
			callee, cerr := m.store.Function(calleeHandle)
			if cerr != nil {
				panic(cerr)
			}
			nArgs := len(callee.Type.Params)
			args := append([]value.Word(nil), m.stack[base+argBase:base+argBase+nArgs]...)
			results := m.invoke(calleeHandle, args, depth+1)
			copy(m.stack[base+argBase:base+argBase+len(results)], results)
			pc++

		case ir.OpCallIndirect:
			pc = m.dispatchCallIndirect(irf, inst, records, pc, base, depth)

		case ir.OpGlobalGet:
			g, gerr := m.store.Global(inst.Globals[int(r.Y)])
			if gerr != nil {
				panic(gerr)
			}
			m.write(irf, base, r.X, g.Value)
			pc++

		case ir.OpGlobalSet:
			g, gerr := m.store.Global(inst.Globals[int(r.X)])
			if gerr != nil {
				panic(gerr)
			}
			g.Value = m.read(irf, base, r.Y)
			pc++

		case ir.OpSelect:
			cond := records[pc+1].X
			condVal := m.read(irf, base, cond)
			if condVal.I32() != 0 {
				m.write(irf, base, r.X, m.read(irf, base, r.Y))
			} else {
				m.write(irf, base, r.X, m.read(irf, base, r.Z))
			}
			pc += 2

		case ir.OpMemorySize:
			mem := m.memory0(inst)
			m.write(irf, base, r.X, value.WordFromU32(uint32(len(mem.Buffer)/store.PageSize)))
			pc++

		case ir.OpMemoryGrow:
			delta := m.read(irf, base, r.Y).U32()
			prev, gerr := m.store.GrowMemory(inst.Memories[0], delta)
			if gerr != nil {
				m.write(irf, base, r.X, value.WordFromI32(-1))
			} else {
				m.write(irf, base, r.X, value.WordFromU32(prev))
			}
			pc++

		case ir.OpMemoryLoad:
			pc = m.execLoad(irf, inst, records, pc, base)

		case ir.OpMemoryStore:
			pc = m.execStore(irf, inst, records, pc, base)

		case ir.OpTableGet:
			idx := m.read(irf, base, r.Y).U32()
			tbl, terr := m.store.Table(inst.Tables[int(r.Z)])
			if terr != nil {
				panic(terr)
			}
			if int(idx) >= len(tbl.Elements) {
				panic(wasmruntime.NewTrap(wasmruntime.TrapTableOutOfBounds))
			}
			m.write(irf, base, r.X, tbl.Elements[idx].Word())
			pc++

		case ir.OpTableSet:
			idx := m.read(irf, base, r.X).U32()
			val := m.read(irf, base, r.Y)
			tbl, terr := m.store.Table(inst.Tables[int(r.Z)])
			if terr != nil {
				panic(terr)
			}
			if int(idx) >= len(tbl.Elements) {
				panic(wasmruntime.NewTrap(wasmruntime.TrapTableOutOfBounds))
			}
			tbl.Elements[idx] = value.RefFromWord(val)
			pc++

		case ir.OpTableSize:
			tbl, terr := m.store.Table(inst.Tables[int(r.Y)])
			if terr != nil {
				panic(terr)
			}
			m.write(irf, base, r.X, value.WordFromU32(uint32(len(tbl.Elements))))
			pc++

		case ir.OpTableGrow:
			delta := m.read(irf, base, r.Y).U32()
			fill := value.RefFromWord(m.read(irf, base, records[pc+1].X))
			prev, gerr := m.store.GrowTable(inst.Tables[int(r.Z)], delta, fill)
			if gerr != nil {
				m.write(irf, base, r.X, value.WordFromI32(-1))
			} else {
				m.write(irf, base, r.X, value.WordFromU32(prev))
			}
			pc += 2

		default:
			pc = m.execArithmetic(irf, base, r, pc)
		}
	}
}

func (m *machine[T]) memory0(inst *store.ModuleInstance) *store.MemoryInstance {
	mem, err := m.store.Memory(inst.Memories[0])
	if err != nil {
		panic(err)
	}
	return mem
}

func (m *machine[T]) dispatchCallIndirect(irf *translator.Function, inst *store.ModuleInstance, records []ir.Record, pc, base, depth int) int {
	r := records[pc]
	argBase := int(r.X)
	typeIdx := r.Index()
	param := records[pc+1]
	idx := m.read(irf, base, param.X).U32()
	tableIdx := int(param.Y)

	tbl, terr := m.store.Table(inst.Tables[tableIdx])
	if terr != nil {
		panic(terr)
	}
	if int(idx) >= len(tbl.Elements) || tbl.Elements[idx].IsNull() {
		panic(wasmruntime.NewTrap(wasmruntime.TrapIndirectCallToNull))
	}
	callee, cerr := m.store.FunctionByRef(tbl.Elements[idx])
	if cerr != nil {
		panic(wasmruntime.NewTrap(wasmruntime.TrapIndirectCallToNull))
	}
	if int(typeIdx) >= len(inst.Types) || callee.Type.Signature() != inst.Types[typeIdx].Signature() {
		panic(wasmruntime.NewTrap(wasmruntime.TrapBadSignature))
	}

	nArgs := len(callee.Type.Params)
	args := append([]value.Word(nil), m.stack[base+argBase:base+argBase+nArgs]...)
	results := m.invokeInstance(callee, args, depth+1)
	copy(m.stack[base+argBase:base+argBase+len(results)], results)
	return pc + 2
}

func (m *machine[T]) execLoad(irf *translator.Function, inst *store.ModuleInstance, records []ir.Record, pc, base int) int {
	r := records[pc]
	param := records[pc+1]
	offset := uint32(uint16(param.X)) | uint32(uint16(param.Y))<<16
	width := ir.MemWidth(param.Z)
	addr := m.read(irf, base, r.Y).U32()
	mem := m.memory0(inst)
	effective := uint64(addr) + uint64(offset)
	v, ok := loadWord(mem.Buffer, effective, width)
	if !ok {
		panic(wasmruntime.NewTrap(wasmruntime.TrapMemoryOutOfBounds))
	}
	m.write(irf, base, r.X, v)
	return pc + 2
}

func (m *machine[T]) execStore(irf *translator.Function, inst *store.ModuleInstance, records []ir.Record, pc, base int) int {
	r := records[pc]
	param := records[pc+1]
	offset := uint32(uint16(param.X)) | uint32(uint16(param.Y))<<16
	width := ir.MemWidth(param.Z)
	addr := m.read(irf, base, r.X).U32()
	val := m.read(irf, base, r.Y)
	mem := m.memory0(inst)
	effective := uint64(addr) + uint64(offset)
	if !storeWord(mem.Buffer, effective, val, width) {
		panic(wasmruntime.NewTrap(wasmruntime.TrapMemoryOutOfBounds))
	}
	return pc + 2
}

// loadWord reads exactly width.Bytes() bytes at addr, sign- or
// zero-extending into a full Word per width.SignExtend() — the per-width
// effective-address semantics spec.md §4.5 describes (i32.store must not
// touch bytes outside its own 4, and a narrow load must extend rather than
// leave the upper bits of the Word undefined).
func loadWord(buf []byte, addr uint64, width ir.MemWidth) (value.Word, bool) {
	n := uint64(width.Bytes())
	if addr+n > uint64(len(buf)) {
		return 0, false
	}
	var v uint64
	for i := uint64(0); i < n; i++ {
		v |= uint64(buf[addr+i]) << (8 * i)
	}
	if width.SignExtend() {
		shift := 64 - 8*n
		return value.Word(int64(v<<shift) >> shift), true
	}
	return value.Word(v), true
}

func storeWord(buf []byte, addr uint64, val value.Word, width ir.MemWidth) bool {
	n := uint64(width.Bytes())
	if addr+n > uint64(len(buf)) {
		return false
	}
	v := uint64(val)
	for i := uint64(0); i < n; i++ {
		buf[addr+i] = byte(v >> (8 * i))
	}
	return true
}

func (m *machine[T]) read(irf *translator.Function, base int, s ir.Slot) value.Word {
	if s.IsConst() {
		return irf.Consts[s.ConstIndex()]
	}
	return m.stack[base+int(s)]
}

func (m *machine[T]) write(irf *translator.Function, base int, s ir.Slot, v value.Word) {
	m.stack[base+int(s)] = v
}

func trapCodeFromIR(c ir.TrapCode) wasmruntime.TrapCode {
	switch c {
	case ir.TrapIntegerDivisionByZero:
		return wasmruntime.TrapIntegerDivisionByZero
	case ir.TrapIntegerOverflow:
		return wasmruntime.TrapIntegerOverflow
	default:
		return wasmruntime.TrapUnreachableCodeReached
	}
}

