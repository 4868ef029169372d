package translator

import (
	"github.com/wazir-wasm/wazir/internal/ir"
	"github.com/wazir-wasm/wazir/internal/value"
)

// frameKind distinguishes the three structured control shapes the
// WebAssembly binary format allows; a function's implicit outermost body is
// represented as a frameBlock so `return` can share the same arity
// plumbing as a forward branch to the outermost label.
type frameKind byte

const (
	frameBlock frameKind = iota
	frameLoop
	frameIf
)

// frame is one entry of the translator's control stack, mirroring
// WebAssembly's block/loop/if/else structure (spec.md §4.4 "Control
// frames"). Because the IR addresses values by Slot rather than by stack
// position, a frame's exit values don't need a stack "drop" at branch time
// the way a stack-machine IR does: every path that reaches this frame's end
// (fallthrough or an explicit branch) copies its live values into the
// frame's reserved result slots first, so after the frame closes those
// slots simply hold the block's result.
type frame struct {
	kind frameKind

	// stackDepthOnEntry is the provider-stack depth (see translator.go)
	// when this frame was opened; else and end reset the stack to this
	// depth before pushing the frame's params or results.
	stackDepthOnEntry int

	// paramSlots/resultSlots are the fixed Slots every branch to this
	// frame (backward for a loop, forward for a block/if) writes into
	// before jumping; they are reserved once, at frame-open time, so every
	// path agrees on where the frame's values live.
	paramSlots  []ir.Slot
	paramTypes  []value.Type
	resultSlots []ir.Slot
	resultTypes []value.Type

	// params holds the actual providers an `if`'s params were bound to at
	// entry (captured, not popped, so the then-arm's fallthrough keeps
	// using them as-is) — needed to re-push the same values at the start
	// of the else arm, which starts from a stack reset to entry depth.
	params []provider

	// startRecord is the record index a loop's backward branches target.
	startRecord int

	// elsePatch is the record index of the BrIfEqz emitted for an `if`,
	// needing its offset patched to the start of the `else` arm (or, if no
	// `else` appears, to the frame's end). -1 if this frame is not an if.
	elsePatch int

	// endPatches collects record indices needing their offset patched to
	// this frame's end, once it is known: the forward branches emitted for
	// `br`/`br_if`/`br_table` targeting this frame, plus (for an `if`
	// with an `else`) the unconditional jump over the else arm.
	endPatches []int

	// unreachable marks that the translator has seen an unconditional
	// exit (unreachable, br, return) on the current path; further
	// instructions up to the next structured boundary produce no code,
	// matching WebAssembly's unreachable-code typing rule.
	unreachable bool
}
