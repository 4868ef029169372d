// Package ir defines wazir's register-machine intermediate representation:
// fixed-size opcode records addressed by slots, plus the encoder/decoder
// pair that round-trips them to and from a flat byte buffer. This is the
// Go-native reading of wasmi's register-machine bytecode (original_source
// crates/ir, crates/ir2, crates/wasmi/src/engine/bytecode2), re-expressed
// the way wazero represents its own (stack-based) wazeroir: a small enum of
// operation kinds plus inline operands, switch-dispatched by the executor.
package ir

// Slot addresses a function's operand area at run time. Non-negative slots
// name locals and temporaries, assigned low-to-high by the translator's
// monotonic allocator; negative slots name the function's constant pool,
// indexed as -(n+1) so Slot(-1) is constant pool index 0.
//
// Slot is int16: a function's operand budget and constant pool both fit in
// 16 bits signed, per the specification. The translator rejects any
// function whose slot or constant-pool pressure would overflow this range
// with ErrStackSlotOutOfBounds.
type Slot int16

// NoSlot is used in operand positions an opcode does not populate (e.g. the
// unused Z operand of a unary op). It is never a valid reference.
const NoSlot Slot = 0x7fff

// IsConst reports whether s names a constant-pool entry rather than a local
// or temporary.
func (s Slot) IsConst() bool { return s < 0 }

// ConstIndex returns the constant-pool index s refers to. The caller must
// have checked IsConst first.
func (s Slot) ConstIndex() int { return int(-s - 1) }

// ConstSlot returns the Slot naming constant-pool index i.
func ConstSlot(i int) Slot { return Slot(-i - 1) }

// MaxSlots is the largest number of local+temporary slots a single function
// may allocate (the positive half of the signed 16-bit range), and likewise
// the largest constant pool a single function may intern (the negative
// half, minus the room NoSlot's sentinel needs).
const MaxSlots = 1<<15 - 1
