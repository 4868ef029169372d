// Package store implements spec.md §4.3: a store owns every runtime entity
// (function, table, memory, global, instance) in per-kind arenas and hands
// callers back guarded handles rather than pointers, so cross-entity
// references (a function's owning instance, a table's element funcrefs)
// never form a pointer cycle — they're just another handle through the same
// store.
//
// This is the Go-native reading of wasmi's regmach store (original_source
// crates/wasmi/src/store.rs, crates/wasmi/src/engine/regmach/stack) filtered
// through the teacher's internal/wasm.Store shape (ModuleInstances,
// per-entity instance types) visible in its store_test.go/module_instance_test.go.
package store

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/wazir-wasm/wazir/internal/arena"
	"github.com/wazir-wasm/wazir/internal/translator"
	"github.com/wazir-wasm/wazir/internal/value"
	"github.com/wazir-wasm/wazir/internal/wasm"
	"github.com/wazir-wasm/wazir/internal/wasmruntime"
)

// nextEngineID hands out process-wide unique engine guards. Per
// SPEC_FULL.md's Open Question decisions, it saturates at the uint32 max
// rather than wrapping, so a wrapped id can never alias a live engine.
var nextEngineID uint32

func allocEngineID() uint32 {
	for {
		cur := atomic.LoadUint32(&nextEngineID)
		if cur == ^uint32(0) {
			return cur
		}
		if atomic.CompareAndSwapUint32(&nextEngineID, cur, cur+1) {
			return cur + 1
		}
	}
}

// DefaultLimits mirrors wasmi's engine/limits defaults (original_source
// crates/wasmi/src/engine/limits/mod.rs): 10,000 per entity kind, applied
// per store rather than in aggregate.
var DefaultLimits = ResourceLimits{
	MaxInstances: 10_000,
	MaxTables:    10_000,
	MaxMemories:  10_000,
}

// ResourceLimits bounds how many instances, tables and memories a single
// Store may create; the counts are checked on every creation. Growth of an
// existing table or memory is checked by the ResourceLimiter instead.
type ResourceLimits struct {
	MaxInstances uint32
	MaxTables    uint32
	MaxMemories  uint32
}

// ResourceLimiter is consulted before growing a table or memory; initial
// allocation is not passed to it. Returning false rejects the operation with
// wasmruntime.ErrGrowRejected rather than a trap — growth failures are a
// recoverable, queryable condition per spec.md §4.5.
type ResourceLimiter interface {
	AllowTableGrow(current, desired, max uint32) bool
	AllowMemoryGrow(current, desired uint32, max *uint32) bool
}

type defaultLimiter struct{}

func (defaultLimiter) AllowTableGrow(_, desired, max uint32) bool {
	return desired <= max
}

func (defaultLimiter) AllowMemoryGrow(_, desired uint32, max *uint32) bool {
	if max == nil {
		return true
	}
	return desired <= *max
}

// Handle is the guarded-handle shape of spec.md §3: an arena index plus the
// engine id that must match the store presenting it. Handles are cheap,
// Copy-semantic, non-owning tokens — ownership of entity state lives in the
// Store's arenas.
type Handle = arena.Guarded[uint32]

// Store owns every runtime entity created by instantiating modules against
// one engine. A Store is not sharable across goroutines (spec.md §5);
// callers are expected to serialize access to one Store the same way they
// would a non-thread-safe C struct.
type Store[T any] struct {
	engineID uint32
	debugID  uuid.UUID // correlates traps/errors back to this store in logs; see SPEC_FULL.md's uuid entry.

	limits  ResourceLimits
	limiter ResourceLimiter

	functions arena.Arena[FunctionInstance]
	tables    arena.Arena[TableInstance]
	memories  arena.Arena[MemoryInstance]
	globals   arena.Arena[GlobalInstance]
	instances arena.Arena[ModuleInstance]
	types     *arena.DedupArena[string] // keyed by FunctionType.Signature(); value is a Slot-free index used as the interned type id.
	typeDefs  []wasm.FunctionType

	// Data is the store's user-supplied generic payload, visible to host
	// callbacks through Caller.
	Data T
}

// New creates a Store with DefaultLimits and the default ResourceLimiter.
func New[T any](data T) *Store[T] {
	return NewWithLimits(data, DefaultLimits, defaultLimiter{})
}

// NewWithLimits creates a Store with explicit limits/limiter, as wired by
// internal/config's RuntimeConfig loader.
func NewWithLimits[T any](data T, limits ResourceLimits, limiter ResourceLimiter) *Store[T] {
	if limiter == nil {
		limiter = defaultLimiter{}
	}
	return &Store[T]{
		engineID: allocEngineID(),
		debugID:  uuid.New(),
		limits:   limits,
		limiter:  limiter,
		types:    arena.NewDedup[string](),
		Data:     data,
	}
}

// DebugID returns the store's correlation id. The executor attaches it to
// the log entry it writes for each trap (the Trap's error text does not
// carry it), so multi-store deployments can trace a failure to its store
// without walking pointers.
func (s *Store[T]) DebugID() uuid.UUID { return s.debugID }

func (s *Store[T]) guard(idx arena.Index) Handle {
	return arena.NewGuarded(s.engineID, idx)
}

// InternType interns a FunctionType, returning a stable index shared by
// every caller that inserts an equal type — used by call_indirect's runtime
// type check (spec.md §4.5, "Calls").
func (s *Store[T]) InternType(ft wasm.FunctionType) uint32 {
	idx, err := s.types.Insert(ft.Signature())
	if err != nil {
		// The dedup arena's own index space is exhausted; this mirrors
		// arena.ErrNotEnoughKeys and is unreachable in practice (it would
		// require billions of distinct signatures). Fall back to the
		// number of types interned so far rather than panicking; TypeAt
		// does not resolve that id.
		return uint32(len(s.typeDefs))
	}
	if int(idx)-1 == len(s.typeDefs) {
		s.typeDefs = append(s.typeDefs, ft)
	}
	return uint32(idx) - 1
}

// TypeAt returns the function type previously interned at id.
func (s *Store[T]) TypeAt(id uint32) (wasm.FunctionType, bool) {
	if int(id) >= len(s.typeDefs) {
		return wasm.FunctionType{}, false
	}
	return s.typeDefs[id], true
}

// --- functions ---

// FunctionInstance is a store-owned function: either a Wasm function (its
// translated function is held in IR, and LocalIndex is its position among
// its module's locally defined functions) or a host function bound
// through func_wrap.
type FunctionInstance struct {
	Type     wasm.FunctionType
	TypeID   uint32
	Instance Handle // owning ModuleInstance; zero for a bare host function not yet attached.

	// Wasm function fields.
	LocalIndex uint32 // index into Instance's translated functions.
	IR         *translator.Function

	// Host function fields (HostFunc != nil marks a host function).
	HostName string
	HostFunc HostFunc
}

// HostFunc is the Go-native shape of a host callback: it receives a Caller
// (reentry handle into the owning store) plus raw operand words and returns
// raw result words or a trap. Caller.Data is untyped here because
// FunctionInstance is shared by every Store[T] instantiation; a HostFunc
// type-asserts it back to its own T, mirroring how the teacher's host
// function bindings erase the module's type parameter at the api boundary.
type HostFunc func(caller Caller, args []value.Word) ([]value.Word, error)

func (s *Store[T]) InsertFunction(f *FunctionInstance) (Handle, error) {
	idx, err := s.functions.Insert(*f)
	if err != nil {
		return Handle{}, err
	}
	return s.guard(idx), nil
}

func (s *Store[T]) Function(h Handle) (*FunctionInstance, error) {
	idx, ok := h.Index(s.engineID)
	if !ok {
		return nil, wasmruntime.StaticError("store: handle belongs to a different engine")
	}
	return s.functions.Get(idx)
}

// FuncRefFromHandle views a function Handle as a value.Ref suitable for
// storing in a TableInstance's Elements: since a table is always populated
// and read from within one store, the Ref only needs to carry the
// function arena's own (1-based, null-at-zero) Index — the engine guard is
// implied by which store is doing the reading.
func (s *Store[T]) FuncRefFromHandle(h Handle) value.Ref {
	idx, ok := h.Index(s.engineID)
	if !ok {
		return value.NullRef
	}
	return value.RefFromFuncIndex(uint32(idx))
}

// FunctionByRef resolves a value.Ref previously built by FuncRefFromHandle
// directly to its FunctionInstance, without needing the Handle (and hence
// without needing a ModuleInstance's Functions slice) — the table-driven
// path call_indirect uses.
func (s *Store[T]) FunctionByRef(r value.Ref) (*FunctionInstance, error) {
	if r.IsNull() {
		return nil, wasmruntime.StaticError("store: dereferenced a null function reference")
	}
	return s.functions.Get(arena.Index(r.FuncIndex()))
}

// --- tables ---

type TableInstance struct {
	Type     wasm.TableType
	Elements []value.Ref
}

func (s *Store[T]) InsertTable(t *TableInstance) (Handle, error) {
	if uint32(s.tables.Len()) >= s.limits.MaxTables {
		return Handle{}, wasmruntime.ErrTooManyTables
	}
	idx, err := s.tables.Insert(*t)
	if err != nil {
		return Handle{}, err
	}
	return s.guard(idx), nil
}

func (s *Store[T]) Table(h Handle) (*TableInstance, error) {
	idx, ok := h.Index(s.engineID)
	if !ok {
		return nil, wasmruntime.StaticError("store: handle belongs to a different engine")
	}
	return s.tables.Get(idx)
}

// GrowTable implements spec.md §4.5's table growth rule: the ResourceLimiter
// and the table's own declared maximum both gate the grow.
func (s *Store[T]) GrowTable(h Handle, delta uint32, fill value.Ref) (previousSize uint32, err error) {
	t, err := s.Table(h)
	if err != nil {
		return 0, err
	}
	cur := uint32(len(t.Elements))
	desired := cur + delta
	if desired < cur {
		return 0, wasmruntime.ErrGrowRejected
	}
	max := ^uint32(0)
	if t.Type.Limits.Max != nil {
		max = *t.Type.Limits.Max
	}
	if !s.limiter.AllowTableGrow(cur, desired, max) {
		return 0, wasmruntime.ErrGrowRejected
	}
	grown := make([]value.Ref, desired)
	copy(grown, t.Elements)
	for i := cur; i < desired; i++ {
		grown[i] = fill
	}
	t.Elements = grown
	return cur, nil
}

// --- memories ---

// PageSize is WebAssembly's fixed linear-memory page size.
const PageSize = 64 * 1024

type MemoryInstance struct {
	Type   wasm.MemoryType
	Buffer []byte
}

func (s *Store[T]) InsertMemory(m *MemoryInstance) (Handle, error) {
	if uint32(s.memories.Len()) >= s.limits.MaxMemories {
		return Handle{}, wasmruntime.ErrTooManyMemories
	}
	idx, err := s.memories.Insert(*m)
	if err != nil {
		return Handle{}, err
	}
	return s.guard(idx), nil
}

func (s *Store[T]) Memory(h Handle) (*MemoryInstance, error) {
	idx, ok := h.Index(s.engineID)
	if !ok {
		return nil, wasmruntime.StaticError("store: handle belongs to a different engine")
	}
	return s.memories.Get(idx)
}

func (s *Store[T]) GrowMemory(h Handle, deltaPages uint32) (previousPages uint32, err error) {
	m, err := s.Memory(h)
	if err != nil {
		return 0, err
	}
	curPages := uint32(len(m.Buffer) / PageSize)
	desired := curPages + deltaPages
	if desired < curPages {
		return 0, wasmruntime.ErrGrowRejected
	}
	if !s.limiter.AllowMemoryGrow(curPages, desired, m.Type.Limits.Max) {
		return 0, wasmruntime.ErrGrowRejected
	}
	grown := make([]byte, desired*PageSize)
	copy(grown, m.Buffer)
	m.Buffer = grown
	return curPages, nil
}

// --- globals ---

type GlobalInstance struct {
	Type  wasm.GlobalType
	Value value.Word
}

func (s *Store[T]) InsertGlobal(g *GlobalInstance) (Handle, error) {
	idx, err := s.globals.Insert(*g)
	if err != nil {
		return Handle{}, err
	}
	return s.guard(idx), nil
}

func (s *Store[T]) Global(h Handle) (*GlobalInstance, error) {
	idx, ok := h.Index(s.engineID)
	if !ok {
		return nil, wasmruntime.StaticError("store: handle belongs to a different engine")
	}
	return s.globals.Get(idx)
}

// --- instances ---

// ModuleInstance maps a module's local index spaces to store handles and
// publishes its exports by name, per spec.md §3's "Runtime entities" table.
type ModuleInstance struct {
	Name string

	// Types is the module's own function-type table (copied from
	// wasm.Module.Types at instantiation), kept alongside the instance so
	// call_indirect can resolve a module-local type index to a
	// wasm.FunctionType for the runtime signature check — without this, the
	// executor would need to keep the whole wasm.Module alive past
	// translation, which spec.md §5 says should stay immutable/shareable
	// across stores rather than store-owned.
	Types []wasm.FunctionType

	Functions []Handle
	Tables    []Handle
	Memories  []Handle
	Globals   []Handle

	Exports map[string]Export

	StartFunc *uint32 // index into Functions, resolved but not yet invoked.
}

// Export is one published extern: exactly one of the handle fields is
// meaningful, selected by Kind.
type Export struct {
	Kind     wasm.ExternKind
	Function Handle
	Table    Handle
	Memory   Handle
	Global   Handle
}

func (s *Store[T]) InsertInstance(inst *ModuleInstance) (Handle, error) {
	if uint32(s.instances.Len()) >= s.limits.MaxInstances {
		return Handle{}, wasmruntime.ErrTooManyInstances
	}
	idx, err := s.instances.Insert(*inst)
	if err != nil {
		return Handle{}, err
	}
	return s.guard(idx), nil
}

func (s *Store[T]) Instance(h Handle) (*ModuleInstance, error) {
	idx, ok := h.Index(s.engineID)
	if !ok {
		return nil, wasmruntime.StaticError("store: handle belongs to a different engine")
	}
	return s.instances.Get(idx)
}

// GetPairFunctions returns two distinct function instances for the rare
// operators (e.g. a future memory.copy-style bulk op) needing simultaneous
// mutable access to two entities of the same kind — spec.md §4.1's
// get_pair_mut contract: fails with AliasingPairAccess if the handles
// resolve to the same index.
func (s *Store[T]) GetPairFunctions(h1, h2 Handle) (a, b *FunctionInstance, err error) {
	i1, ok1 := h1.Index(s.engineID)
	i2, ok2 := h2.Index(s.engineID)
	if !ok1 || !ok2 {
		return nil, nil, wasmruntime.StaticError("store: handle belongs to a different engine")
	}
	return s.functions.GetPair(i1, i2)
}

// Caller is the reentry handle a HostFunc receives: an untyped view of the
// store's user data (Data) plus Reenter, through which the host function
// calls exported functions of instances on the same store by name
// (internal/exec's Engine implements it). Calling by name is the only
// engine operation reachable through Caller: it cannot compile or
// instantiate modules. Reentrant is an interface here to avoid an import
// cycle between store and exec.
type Caller struct {
	data  any
	Reenter Reentrant
}

// Reentrant is the subset of engine operations (internal/exec.Engine) a
// HostFunc may call back into, named here to break the store<->exec import
// cycle spec.md §4.3 and §5 require ("host callbacks ... may recursively
// call into the engine on the same store").
type Reentrant interface {
	CallByName(moduleName, funcName string, args []value.Word) ([]value.Word, error)
}

// NewCaller wraps a store's user data and a Reentrant for a host-function
// invocation.
func NewCaller(data any, reenter Reentrant) Caller { return Caller{data: data, Reenter: reenter} }

// Data returns the store's user-supplied payload, to be type-asserted back
// to T by the HostFunc that registered it.
func (c Caller) Data() any { return c.data }

// String implements fmt.Stringer for diagnostic messages, including the
// store's debug id so multi-store deployments can attribute a trap.
func (s *Store[T]) String() string {
	return fmt.Sprintf("store{engine=%d debug=%s}", s.engineID, s.debugID)
}
