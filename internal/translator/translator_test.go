package translator

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wazir-wasm/wazir/internal/ir"
	"github.com/wazir-wasm/wazir/internal/value"
	"github.com/wazir-wasm/wazir/internal/wasm"
)

func addModule() *wasm.Module {
	return &wasm.Module{
		Types: []wasm.FunctionType{
			{Params: []value.Type{value.I32, value.I32}, Results: []value.Type{value.I32}},
		},
		FunctionTypeIndices: []uint32{0},
		Code: []wasm.Code{{
			Body: []wasm.Instruction{
				{Op: wasm.SOpLocalGet, Index: 0},
				{Op: wasm.SOpLocalGet, Index: 1},
				{Op: wasm.SOpI32Add},
				{Op: wasm.SOpEnd},
			},
		}},
	}
}

func TestTranslate_AddParams(t *testing.T) {
	fn, err := Translate(addModule(), 0)
	require.NoError(t, err)
	require.Equal(t, 2, fn.Metadata.NumParams)
	require.Equal(t, 1, fn.Metadata.NumResults)

	// local.get/local.get/i32.add lowers to one OpI32Add record plus the
	// fallthrough-as-return record the outermost block synthesizes.
	require.Len(t, fn.Records, 2)
	require.Equal(t, ir.OpI32Add, fn.Records[0].Op)
	require.Equal(t, ir.Slot(0), fn.Records[0].Y)
	require.Equal(t, ir.Slot(1), fn.Records[0].Z)
	require.Equal(t, ir.OpReturnValues, fn.Records[1].Op)
}

func TestTranslate_ConstantFolding(t *testing.T) {
	m := &wasm.Module{
		Types:               []wasm.FunctionType{{Results: []value.Type{value.I32}}},
		FunctionTypeIndices: []uint32{0},
		Code: []wasm.Code{{
			Body: []wasm.Instruction{
				{Op: wasm.SOpI32Const, Imm: 2},
				{Op: wasm.SOpI32Const, Imm: 3},
				{Op: wasm.SOpI32Add},
				{Op: wasm.SOpEnd},
			},
		}},
	}
	fn, err := Translate(m, 0)
	require.NoError(t, err)

	// Both operands are compile-time constants, so the add is folded away at
	// translation time; the function-exit plumbing still needs one OpCopy to
	// move the folded constant into the fixed result slot the synthesized
	// return reads from.
	require.Len(t, fn.Records, 2)
	require.Equal(t, ir.OpCopy, fn.Records[0].Op)
	constSlot := fn.Records[0].Y
	require.True(t, constSlot.IsConst())
	require.Equal(t, value.WordFromI32(5), fn.Consts[constSlot.ConstIndex()])
	require.Equal(t, ir.OpReturnValues, fn.Records[1].Op)
	require.Equal(t, fn.Records[0].X, fn.Records[1].Y)
}

func TestTranslate_FusedImmediate(t *testing.T) {
	m := &wasm.Module{
		Types:               []wasm.FunctionType{{Params: []value.Type{value.I32}, Results: []value.Type{value.I32}}},
		FunctionTypeIndices: []uint32{0},
		Code: []wasm.Code{{
			Body: []wasm.Instruction{
				{Op: wasm.SOpLocalGet, Index: 0},
				{Op: wasm.SOpI32Const, Imm: 10},
				{Op: wasm.SOpI32Add},
				{Op: wasm.SOpEnd},
			},
		}},
	}
	fn, err := Translate(m, 0)
	require.NoError(t, err)

	require.Equal(t, ir.OpI32AddImm16, fn.Records[0].Op)
	require.Equal(t, int16(10), fn.Records[0].Imm16())
}

func TestTranslate_DivisionByZeroConstantIsScheduledTrap(t *testing.T) {
	m := &wasm.Module{
		Types:               []wasm.FunctionType{{Results: []value.Type{value.I32}}},
		FunctionTypeIndices: []uint32{0},
		Code: []wasm.Code{{
			Body: []wasm.Instruction{
				{Op: wasm.SOpI32Const, Imm: 1},
				{Op: wasm.SOpI32Const, Imm: 0},
				{Op: wasm.SOpI32DivS},
				{Op: wasm.SOpEnd},
			},
		}},
	}
	fn, err := Translate(m, 0)
	require.NoError(t, err)
	require.Equal(t, ir.OpTrap, fn.Records[0].Op)
	require.Equal(t, ir.TrapIntegerDivisionByZero, ir.TrapCode(fn.Records[0].X))
}

func TestTranslate_RejectsImportedFunction(t *testing.T) {
	m := &wasm.Module{
		Imports: []wasm.Import{{Module: "env", Name: "f", Desc: wasm.ExternDesc{Func: new(uint32)}}},
		Types:   []wasm.FunctionType{{}},
	}
	_, err := Translate(m, 0)
	require.Error(t, err)
}
