// Package linker implements spec.md §4.6: resolving a module's imports
// against already-registered instances or host-bound items, then running
// the atomic instantiation sequence (allocate entities, run global
// initializers, apply element segments, apply data segments, optionally
// invoke the start function).
//
// Grounded on the teacher's Instantiate naming (root runtime.go/wasm.go,
// visible in its runtime_test.go/wasm_test.go as Runtime.InstantiateModule /
// InstantiateModuleWithConfig) and on original_source's instantiation order
// (crates/wasmi's Module::instantiate family follows the same five steps,
// referenced from spec.md §4.6 directly since that file wasn't retrieved
// whole).
package linker

import (
	"fmt"

	"github.com/wazir-wasm/wazir/internal/store"
	"github.com/wazir-wasm/wazir/internal/translator"
	"github.com/wazir-wasm/wazir/internal/value"
	"github.com/wazir-wasm/wazir/internal/wasm"
	"github.com/wazir-wasm/wazir/internal/wasmruntime"
)

// Engine is the subset of internal/exec.Engine the Linker needs: registering
// a freshly instantiated module by name so its exports become callable, and
// (for a start function) invoking it. Named rather than imported directly to
// avoid a store<->exec<->linker import cycle — linker already imports store,
// and exec already imports store, so exec is free to import linker without
// creating one.
type Engine interface {
	RegisterInstance(name string, h store.Handle)
	CallFunction(fnHandle store.Handle, args []value.Word) ([]value.Word, error)
}

// Linker resolves a module's imports by (module name, item name) against
// previously registered instances, then instantiates new modules against a
// single Store/Engine pair. It carries no state of its own beyond a
// reference to the instances it has already linked — spec.md §4.6 treats
// import resolution as pure name lookup, not a separate namespace the
// Linker owns.
type Linker[T any] struct {
	store    *store.Store[T]
	engine   Engine
	instances map[string]store.Handle
}

// New creates a Linker bound to one Store/Engine pair. Modules registered
// through Instantiate become resolvable by name for subsequent Instantiate
// calls' imports, matching the teacher's single-Runtime/single-Namespace
// linking model.
func New[T any](s *store.Store[T], e Engine) *Linker[T] {
	return &Linker[T]{store: s, engine: e, instances: map[string]store.Handle{}}
}

// DefineHostFunction registers a standalone host function under
// (moduleName, funcName) so a subsequently instantiated module may import
// it. Spec.md §4.2 ("a host function may be imported directly, without
// belonging to a module instance") is implemented by wrapping it in a
// minimal synthetic ModuleInstance exporting nothing but that one function.
func (l *Linker[T]) DefineHostFunction(moduleName, funcName string, ft wasm.FunctionType, fn store.HostFunc) error {
	h, err := l.store.InsertFunction(&store.FunctionInstance{
		Type:     ft,
		TypeID:   l.store.InternType(ft),
		HostName: funcName,
		HostFunc: fn,
	})
	if err != nil {
		return err
	}
	inst, ok := l.instances[moduleName]
	if !ok {
		ih, err := l.store.InsertInstance(&store.ModuleInstance{
			Name:    moduleName,
			Exports: map[string]store.Export{},
		})
		if err != nil {
			return err
		}
		l.instances[moduleName] = ih
		l.engine.RegisterInstance(moduleName, ih)
		inst = ih
	}
	instInst, err := l.store.Instance(inst)
	if err != nil {
		return err
	}
	if _, dup := instInst.Exports[funcName]; dup {
		return wasmruntime.ErrDuplicateExport
	}
	instInst.Exports[funcName] = store.Export{Kind: wasm.ExternKindFunc, Function: h}
	instInst.Functions = append(instInst.Functions, h)
	return nil
}

// resolved is one import's concrete binding, found by kind-specific lookup
// in resolveImport.
type resolved struct {
	fn  *store.FunctionInstance
	fnH store.Handle
	tbl store.Handle
	mem store.Handle
	glb store.Handle
}

// Instantiate runs spec.md §4.6's five-step sequence for module m, publishing
// the result under name (used both for future imports and for
// Engine.CallByName). Instantiation is atomic only up to the point a trap
// occurs in the start function — per wasmruntime.Trap's contract, the store
// remains valid but the instance's side effects up to the trap persist,
// matching spec.md §4.5/§4.6's "partially applied" note.
func (l *Linker[T]) Instantiate(name string, m *wasm.Module) (store.Handle, error) {
	resolvedImports := make([]resolved, len(m.Imports))
	for i, imp := range m.Imports {
		r, err := l.resolveImport(imp)
		if err != nil {
			return store.Handle{}, fmt.Errorf("instantiate %q: %w", name, err)
		}
		resolvedImports[i] = r
	}

	inst := &store.ModuleInstance{
		Name:      name,
		Types:     m.Types,
		Exports:   map[string]store.Export{},
		StartFunc: m.StartFunc,
	}

	// Step 1: allocate entities. Imports first (matching the binary
	// format's imports-first index space), then locally defined entities.
	for i, imp := range m.Imports {
		switch {
		case imp.Desc.Func != nil:
			inst.Functions = append(inst.Functions, resolvedImports[i].fnH)
		case imp.Desc.Table != nil:
			inst.Tables = append(inst.Tables, resolvedImports[i].tbl)
		case imp.Desc.Memory != nil:
			inst.Memories = append(inst.Memories, resolvedImports[i].mem)
		case imp.Desc.Global != nil:
			inst.Globals = append(inst.Globals, resolvedImports[i].glb)
		}
	}

	for _, tt := range m.Tables {
		elems := make([]value.Ref, tt.Limits.Min)
		for i := range elems {
			elems[i] = value.NullRef
		}
		h, err := l.store.InsertTable(&store.TableInstance{Type: tt, Elements: elems})
		if err != nil {
			return store.Handle{}, err
		}
		inst.Tables = append(inst.Tables, h)
	}

	for _, mt := range m.Memories {
		h, err := l.store.InsertMemory(&store.MemoryInstance{
			Type:   mt,
			Buffer: make([]byte, uint64(mt.Limits.Min)*store.PageSize),
		})
		if err != nil {
			return store.Handle{}, err
		}
		inst.Memories = append(inst.Memories, h)
	}

	// Globals are allocated here but their values are set in step 2, since a
	// global initializer may reference an already-allocated imported global
	// (the only cross-reference the restricted init-expr language permits).
	globalHandles := make([]store.Handle, len(m.Globals))
	for i, gd := range m.Globals {
		h, err := l.store.InsertGlobal(&store.GlobalInstance{Type: gd.Type})
		if err != nil {
			return store.Handle{}, err
		}
		globalHandles[i] = h
		inst.Globals = append(inst.Globals, h)
	}

	importedFuncCount := m.ImportedFuncCount()
	for localIdx := range m.Code {
		ft := m.Types[m.FunctionTypeIndices[localIdx]]
		h, err := l.store.InsertFunction(&store.FunctionInstance{
			Type:       ft,
			TypeID:     l.store.InternType(ft),
			LocalIndex: uint32(localIdx),
		})
		if err != nil {
			return store.Handle{}, err
		}
		inst.Functions = append(inst.Functions, h)
	}

	// Functions need their owning Instance handle before translation can
	// run (the executor resolves a call's ModuleInstance through it), so
	// the instance itself is registered before translating function
	// bodies, then each FunctionInstance is patched with both.
	instHandle, err := l.store.InsertInstance(inst)
	if err != nil {
		return store.Handle{}, err
	}

	for localIdx := range m.Code {
		funcIdx := importedFuncCount + uint32(localIdx)
		fn, ferr := l.store.Function(inst.Functions[funcIdx])
		if ferr != nil {
			return store.Handle{}, ferr
		}
		irf, terr := translator.Translate(m, funcIdx)
		if terr != nil {
			return store.Handle{}, fmt.Errorf("instantiate %q: translate func %d: %w", name, funcIdx, terr)
		}
		fn.IR = irf
		fn.Instance = instHandle
	}

	// Step 2: run global initializers.
	for i, gd := range m.Globals {
		v, gerr := l.evalInit(inst, gd.Init)
		if gerr != nil {
			return store.Handle{}, gerr
		}
		g, gerr := l.store.Global(globalHandles[i])
		if gerr != nil {
			return store.Handle{}, gerr
		}
		g.Value = v
	}

	// Step 3: apply element segments.
	for _, es := range m.Elements {
		offsetW, oerr := l.evalInit(inst, es.Offset)
		if oerr != nil {
			return store.Handle{}, oerr
		}
		offset := int(offsetW.U32())
		tbl, terr := l.store.Table(inst.Tables[es.TableIndex])
		if terr != nil {
			return store.Handle{}, terr
		}
		if offset+len(es.FuncIndices) > len(tbl.Elements) {
			return store.Handle{}, wasmruntime.StaticError("linker: element segment out of table bounds")
		}
		for i, fi := range es.FuncIndices {
			tbl.Elements[offset+i] = l.store.FuncRefFromHandle(inst.Functions[fi])
		}
	}

	// Step 4: apply data segments.
	for _, ds := range m.DataSegs {
		offsetW, oerr := l.evalInit(inst, ds.Offset)
		if oerr != nil {
			return store.Handle{}, oerr
		}
		offset := int(offsetW.U32())
		mem, merr := l.store.Memory(inst.Memories[ds.MemoryIndex])
		if merr != nil {
			return store.Handle{}, merr
		}
		if offset+len(ds.Bytes) > len(mem.Buffer) {
			return store.Handle{}, wasmruntime.StaticError("linker: data segment out of memory bounds")
		}
		copy(mem.Buffer[offset:], ds.Bytes)
	}

	for _, exp := range m.Exports {
		e := store.Export{Kind: exp.Kind}
		switch exp.Kind {
		case wasm.ExternKindFunc:
			e.Function = inst.Functions[exp.Index]
		case wasm.ExternKindTable:
			e.Table = inst.Tables[exp.Index]
		case wasm.ExternKindMemory:
			e.Memory = inst.Memories[exp.Index]
		case wasm.ExternKindGlobal:
			e.Global = inst.Globals[exp.Index]
		}
		if _, dup := inst.Exports[exp.Name]; dup {
			return store.Handle{}, wasmruntime.ErrDuplicateExport
		}
		inst.Exports[exp.Name] = e
	}

	l.instances[name] = instHandle
	l.engine.RegisterInstance(name, instHandle)

	// Step 5: optionally invoke the start function.
	if m.StartFunc != nil {
		startFn, serr := l.store.Function(inst.Functions[*m.StartFunc])
		if serr != nil {
			return store.Handle{}, serr
		}
		if len(startFn.Type.Params) != 0 || len(startFn.Type.Results) != 0 {
			return store.Handle{}, wasmruntime.ErrStartFunctionSignature
		}
		if _, serr := l.engine.CallFunction(inst.Functions[*m.StartFunc], nil); serr != nil {
			return instHandle, serr
		}
	}

	return instHandle, nil
}

func (l *Linker[T]) resolveImport(imp wasm.Import) (resolved, error) {
	srcHandle, ok := l.instances[imp.Module]
	if !ok {
		return resolved{}, fmt.Errorf("%w: %s.%s", wasmruntime.ErrImportNotFound, imp.Module, imp.Name)
	}
	srcInst, err := l.store.Instance(srcHandle)
	if err != nil {
		return resolved{}, err
	}
	exp, ok := srcInst.Exports[imp.Name]
	if !ok {
		return resolved{}, fmt.Errorf("%w: %s.%s", wasmruntime.ErrImportNotFound, imp.Module, imp.Name)
	}

	switch {
	case imp.Desc.Func != nil:
		if exp.Kind != wasm.ExternKindFunc {
			return resolved{}, fmt.Errorf("%w: %s.%s is not a function", wasmruntime.ErrImportTypeMismatch, imp.Module, imp.Name)
		}
		fn, ferr := l.store.Function(exp.Function)
		if ferr != nil {
			return resolved{}, ferr
		}
		return resolved{fn: fn, fnH: exp.Function}, nil
	case imp.Desc.Table != nil:
		if exp.Kind != wasm.ExternKindTable {
			return resolved{}, fmt.Errorf("%w: %s.%s is not a table", wasmruntime.ErrImportTypeMismatch, imp.Module, imp.Name)
		}
		tbl, terr := l.store.Table(exp.Table)
		if terr != nil {
			return resolved{}, terr
		}
		if !tbl.Type.IsSubtypeOf(*imp.Desc.Table) {
			return resolved{}, fmt.Errorf("%w: %s.%s table shape", wasmruntime.ErrImportTypeMismatch, imp.Module, imp.Name)
		}
		return resolved{tbl: exp.Table}, nil
	case imp.Desc.Memory != nil:
		if exp.Kind != wasm.ExternKindMemory {
			return resolved{}, fmt.Errorf("%w: %s.%s is not a memory", wasmruntime.ErrImportTypeMismatch, imp.Module, imp.Name)
		}
		mem, merr := l.store.Memory(exp.Memory)
		if merr != nil {
			return resolved{}, merr
		}
		if !mem.Type.IsSubtypeOf(*imp.Desc.Memory) {
			return resolved{}, fmt.Errorf("%w: %s.%s memory shape", wasmruntime.ErrImportTypeMismatch, imp.Module, imp.Name)
		}
		return resolved{mem: exp.Memory}, nil
	case imp.Desc.Global != nil:
		if exp.Kind != wasm.ExternKindGlobal {
			return resolved{}, fmt.Errorf("%w: %s.%s is not a global", wasmruntime.ErrImportTypeMismatch, imp.Module, imp.Name)
		}
		glb, gerr := l.store.Global(exp.Global)
		if gerr != nil {
			return resolved{}, gerr
		}
		if glb.Type != *imp.Desc.Global {
			return resolved{}, fmt.Errorf("%w: %s.%s global shape", wasmruntime.ErrImportTypeMismatch, imp.Module, imp.Name)
		}
		return resolved{glb: exp.Global}, nil
	}
	return resolved{}, fmt.Errorf("%w: %s.%s has no descriptor", wasmruntime.ErrImportTypeMismatch, imp.Module, imp.Name)
}

// evalInit evaluates the restricted constant-expression language spec.md
// §4.6 point 2 allows for global initializers and segment offsets: plain
// constants, global.get of an already-allocated import, and reference
// literals.
func (l *Linker[T]) evalInit(inst *store.ModuleInstance, e wasm.InitExpr) (value.Word, error) {
	switch e.Kind {
	case wasm.InitExprI32Const:
		return value.WordFromI32(int32(e.Imm)), nil
	case wasm.InitExprI64Const:
		return value.WordFromI64(e.Imm), nil
	case wasm.InitExprF32Const:
		return value.Word(uint32(e.Imm)), nil
	case wasm.InitExprF64Const:
		return value.Word(uint64(e.Imm)), nil
	case wasm.InitExprGlobalGet:
		if int(e.GlobalIndex) >= len(inst.Globals) {
			return 0, wasmruntime.StaticError("linker: global.get index out of bounds in init expr")
		}
		g, err := l.store.Global(inst.Globals[e.GlobalIndex])
		if err != nil {
			return 0, err
		}
		return g.Value, nil
	case wasm.InitExprRefNull:
		return value.NullRef.Word(), nil
	case wasm.InitExprRefFunc:
		if int(e.FuncIndex) >= len(inst.Functions) {
			return 0, wasmruntime.StaticError("linker: ref.func index out of bounds in init expr")
		}
		return l.store.FuncRefFromHandle(inst.Functions[e.FuncIndex]).Word(), nil
	default:
		return 0, wasmruntime.StaticError("linker: unrecognized init expression kind")
	}
}
