package translator

import (
	"github.com/wazir-wasm/wazir/internal/ir"
	"github.com/wazir-wasm/wazir/internal/value"
)

// provider is the translator's simulated-operand-stack element: either a
// register (a Slot already holding a live value) or a constant not yet
// committed to the constant pool. Keeping constants unmaterialized until
// they are actually consumed is what makes constant folding and
// fused-immediate selection possible — see fold.go.
type provider struct {
	isConst bool
	slot    ir.Slot    // valid when !isConst.
	cval    value.Word // valid when isConst.
	typ     value.Type
}

func registerProvider(slot ir.Slot, typ value.Type) provider {
	return provider{slot: slot, typ: typ}
}

func constProvider(v value.Word, typ value.Type) provider {
	return provider{isConst: true, cval: v, typ: typ}
}

// imm16 reports whether p is a constant that fits the 16-bit fused-immediate
// window for its type, returning the immediate sign-extended into an int16.
func (p provider) imm16() (int16, bool) {
	if !p.isConst {
		return 0, false
	}
	switch p.typ {
	case value.I32:
		v := p.cval.I32()
		if int64(v) >= -1<<15 && int64(v) < 1<<15 {
			return int16(v), true
		}
	case value.I64:
		v := p.cval.I64()
		if v >= -1<<15 && v < 1<<15 {
			return int16(v), true
		}
	}
	return 0, false
}
