package value

// Ref is a reference value: either a function reference (null, or a handle
// into the store's function arena) or an external reference (null, or an
// opaque host-provided 64-bit token). Both share one representation, a
// tagged Word, because the executor never needs to branch on which kind of
// reference it is holding — only the host callback marshalling layer and
// table/call_indirect checks do, and they know the expected kind from the
// static type.
type Ref Word

// NullRef is the null reference, valid for both FuncRef and ExternRef.
const NullRef Ref = 0

// IsNull reports whether r is the null reference.
func (r Ref) IsNull() bool { return r == NullRef }

// RefFromFuncIndex packs a 1-based function-arena index (see
// internal/arena.Index) into a non-null function reference. Index 0 is
// never issued by an Arena, so it doubles as the encoding for "no function",
// keeping RefFromFuncIndex(0) observably equal to NullRef.
func RefFromFuncIndex(idx uint32) Ref { return Ref(idx) }

// FuncIndex unpacks the arena index a function reference was built from.
// Callers must check IsNull first.
func (r Ref) FuncIndex() uint32 { return uint32(r) }

// RefFromExtern packs an opaque host token into an external reference. The
// host is responsible for round-tripping whatever value it needs through
// this 64-bit slot (e.g. an index into its own side table).
func RefFromExtern(token uint64) Ref { return Ref(token) }

// Extern unpacks the opaque host token an external reference was built
// from. Callers must check IsNull first.
func (r Ref) Extern() uint64 { return uint64(r) }

// Word views r as the untyped word the executor pushes and pops.
func (r Ref) Word() Word { return Word(r) }

// RefFromWord views w as a reference value without interpreting its tag;
// used when popping a known-reference-typed slot off the operand stack.
func RefFromWord(w Word) Ref { return Ref(w) }
