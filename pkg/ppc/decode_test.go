package ppc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_UnconditionalBranch(t *testing.T) {
	// b +0x20 (AA=0, LK=0): opcode 18, LI=8 words, AA=0, LK=0
	code := uint32(18)<<26 | uint32(8)<<2
	ins := Decode(code, 0x1000)

	assert.Equal(t, OpB, ins.Op)
	assert.Equal(t, "b", ins.Mnemonic)
	assert.False(t, ins.AA)
	assert.False(t, ins.LK)

	dest, ok := ins.BranchDest()
	require.True(t, ok)
	assert.Equal(t, uint32(0x1020), dest)

	kind, ok := ins.RelocKindForBranch()
	require.True(t, ok)
	assert.Equal(t, "PpcRel24", kind)
}

func TestDecode_AbsoluteBranchWithLink(t *testing.T) {
	// opcode 18, AA=1, LK=1, target 0x2000
	code := uint32(18)<<26 | (uint32(0x2000)>>2)<<2 | 0x3
	ins := Decode(code, 0x1000)

	assert.Equal(t, "bla", ins.Mnemonic)
	assert.True(t, ins.AA)
	assert.True(t, ins.LK)

	dest, ok := ins.BranchDest()
	require.True(t, ok)
	assert.Equal(t, uint32(0x2000), dest)
}

func TestDecode_ConditionalBranch(t *testing.T) {
	// bc 12, 2, +0x10: opcode 16, BO=12, BI=2, BD=4 words, AA=0, LK=0
	code := uint32(16)<<26 | uint32(12)<<21 | uint32(2)<<16 | uint32(4)<<2
	ins := Decode(code, 0x2000)

	assert.Equal(t, OpBC, ins.Op)
	assert.Equal(t, "bc", ins.Mnemonic)
	require.Len(t, ins.Args, 3)
	assert.Equal(t, ArgUimm, ins.Args[0].Kind)
	assert.Equal(t, int32(12), ins.Args[0].Value)
	assert.Equal(t, ArgUimm, ins.Args[1].Kind)
	assert.Equal(t, int32(2), ins.Args[1].Value)
	assert.Equal(t, ArgBranchDest, ins.Args[2].Kind)

	dest, ok := ins.BranchDest()
	require.True(t, ok)
	assert.Equal(t, uint32(0x2010), dest)

	kind, ok := ins.RelocKindForBranch()
	require.True(t, ok)
	assert.Equal(t, "PpcRel14", kind)
}

func TestDecode_Addi(t *testing.T) {
	// addi r3, r0, 10
	code := uint32(14)<<26 | uint32(3)<<21 | uint32(0)<<16 | uint32(10)
	ins := Decode(code, 0x1000)

	assert.Equal(t, OpGeneric, ins.Op)
	assert.Equal(t, "addi", ins.Mnemonic)
	require.Len(t, ins.Args, 3)
	assert.Equal(t, ArgGPR, ins.Args[0].Kind)
	assert.Equal(t, uint32(3), ins.Args[0].Reg)
	assert.Equal(t, ArgGPR, ins.Args[1].Kind)
	assert.Equal(t, uint32(0), ins.Args[1].Reg)
	assert.Equal(t, ArgSimm, ins.Args[2].Kind)
	assert.Equal(t, int32(10), ins.Args[2].Value)
}

func TestDecode_AddiNegativeImmediateSignExtends(t *testing.T) {
	// addi r3, r0, -1
	code := uint32(14)<<26 | uint32(3)<<21 | uint32(0)<<16 | uint32(0xFFFF)
	ins := Decode(code, 0x1000)
	require.Len(t, ins.Args, 3)
	assert.Equal(t, int32(-1), ins.Args[2].Value)
}

func TestDecode_LoadWordWithOffset(t *testing.T) {
	// lwz r3, 4(r1)
	code := uint32(32)<<26 | uint32(3)<<21 | uint32(1)<<16 | uint32(4)
	ins := Decode(code, 0x1000)

	assert.Equal(t, "lwz", ins.Mnemonic)
	require.Len(t, ins.Args, 2)
	assert.Equal(t, ArgGPR, ins.Args[0].Kind)
	assert.Equal(t, ArgOffset, ins.Args[1].Kind)
	assert.Equal(t, uint32(1), ins.Args[1].Reg)
	assert.Equal(t, int32(4), ins.Args[1].Value)
}

func TestDecode_IllegalWord(t *testing.T) {
	ins := Decode(0, 0x1000)
	assert.Equal(t, OpIllegal, ins.Op)
	assert.Equal(t, ".illegal", ins.Mnemonic)
}

func TestDecode_UnrecognizedOpcode(t *testing.T) {
	// opcode 63 (a valid encoding but outside this decoder's scoped table).
	code := uint32(63) << 26
	ins := Decode(code, 0x1000)
	assert.Equal(t, OpUnrecognized, ins.Op)
}

func TestIsIllegalInstructionForm(t *testing.T) {
	assert.True(t, IsIllegalInstructionForm(0x43000000))
	assert.True(t, IsIllegalInstructionForm(0xB8030000))
	assert.False(t, IsIllegalInstructionForm(0x38600000))
}

func TestDisasmIter_DecodesEveryWord(t *testing.T) {
	var data []byte
	data = append(data, 0x38, 0x60, 0x00, 0x0A) // addi r3, r0, 10
	data = append(data, 0x38, 0x80, 0x00, 0x14) // addi r4, r0, 20

	ins := DisasmIter(data, 0x1000)
	require.Len(t, ins, 2)
	assert.Equal(t, uint32(0x1000), ins[0].Addr)
	assert.Equal(t, uint32(0x1004), ins[1].Addr)
	assert.Equal(t, "addi", ins[0].Mnemonic)
	assert.Equal(t, "addi", ins[1].Mnemonic)
}
