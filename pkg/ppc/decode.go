// Package ppc decodes PowerPC instruction words just far enough to drive
// the assembly emitter (pkg/asm): branch-family classification, the
// operand kinds spec section 4.7 needs to tell immediate/offset/branch
// operands apart from bare ones, and a rendered mnemonic. It is
// deliberately not a complete PowerPC disassembler — per spec section 1
// that job belongs to an external collaborator; this is the minimal
// internal boundary the emitter needs when no such collaborator is wired
// in. Grounded on the opcode-table/decode idiom of
// fayep-bbcdisasm's disassemble.go and opcodes.go, generalized from a
// one-byte-opcode ISA to PowerPC's 32-bit fixed-width encoding, with
// field extraction built on pkg/utils.BitView, ported from
// pkg/utils/bits.go's bit-manipulation helper.
package ppc

import "github.com/ppcsplit/ppcsplit/pkg/utils"

// ArgKind classifies an instruction operand for the emitter's relocation
// and suffix-printing logic (spec section 4.7).
type ArgKind int

const (
	ArgNone ArgKind = iota
	ArgGPR
	ArgFPR
	ArgCR
	ArgUimm
	ArgSimm
	ArgOffset
	ArgBranchDest
	ArgRaw
)

// Arg is a single decoded operand.
type Arg struct {
	Kind  ArgKind
	Reg   uint32
	Value int32
	Text  string // pre-rendered text for ArgRaw operands
}

// Opcode is the mnemonic family a decoded instruction belongs to. Only
// families the emitter must special-case (branches) get distinct
// constants; everything else decodes with Op set to OpGeneric and a
// mnemonic string carrying the actual name.
type Opcode int

const (
	OpIllegal Opcode = iota
	OpB
	OpBC
	OpGeneric
	// OpUnrecognized marks a legally-encoded instruction outside this
	// decoder's scoped opcode table (see package doc); the emitter falls
	// back to a raw .4byte for these rather than claiming they are
	// malformed.
	OpUnrecognized
)

// Ins is a single decoded instruction.
type Ins struct {
	Addr     uint32
	Code     uint32
	Op       Opcode
	Mnemonic string
	Args     []Arg
	AA       bool
	LK       bool
}

func bits(code uint32) utils.BitView[uint32] {
	c := code
	return utils.CreateBitView(&c)
}

// field extracts [msbBit, msbBit+width) using PowerPC's MSB-first bit
// numbering (bit 0 is the most significant bit of the 32-bit word).
func field(code uint32, msbBit, width int) uint32 {
	lsb := 32 - msbBit - width
	return utils.CreateBitView(&code).Read(lsb, width)
}

func signExtend(v uint32, bits int) int32 {
	shift := 32 - bits
	return int32(v<<shift) >> shift
}

// BranchDest returns the absolute (AA=1) or addr-relative (AA=0) target
// of a branch instruction, and whether this instruction is a branch.
func (i Ins) BranchDest() (uint32, bool) {
	switch i.Op {
	case OpB, OpBC:
		for _, a := range i.Args {
			if a.Kind == ArgBranchDest {
				if i.AA {
					return uint32(a.Value), true
				}
				return i.Addr + uint32(a.Value), true
			}
		}
	}
	return 0, false
}

// RelocKindForBranch returns the relocation kind the emitter should
// synthesize for a symbolic branch target (spec section 4.7): unconditional
// branches get PpcRel24, conditional branches get PpcRel14.
func (i Ins) RelocKindForBranch() (string, bool) {
	switch i.Op {
	case OpB:
		return "PpcRel24", true
	case OpBC:
		return "PpcRel14", true
	default:
		return "", false
	}
}

var gprMnemonicArith = map[uint32]string{
	14: "addi", 15: "addis", 12: "addic", 13: "addic.",
	7: "mulli", 8: "subfic",
	24: "ori", 25: "oris", 26: "xori", 27: "xoris", 28: "andi.", 29: "andis.",
	11: "cmpi", 10: "cmpli",
	20: "rlwimi", 21: "rlwinm", 23: "rlwnm",
	3: "twi",
}

var loadStoreMnemonic = map[uint32]string{
	32: "lwz", 33: "lwzu", 34: "lbz", 35: "lbzu", 40: "lhz", 41: "lhzu", 42: "lha", 43: "lhau",
	36: "stw", 37: "stwu", 38: "stb", 39: "stbu", 44: "sth", 45: "sthu",
	46: "lmw", 47: "stmw",
	48: "lfs", 49: "lfsu", 50: "lfd", 51: "lfdu",
	52: "stfs", 53: "stfsu", 54: "stfd", 55: "stfdu",
}

// Decode decodes a single big-endian 32-bit instruction word at addr.
func Decode(code uint32, addr uint32) Ins {
	opcode := field(code, 0, 6)

	switch opcode {
	case 0:
		return Ins{Addr: addr, Code: code, Op: OpIllegal, Mnemonic: ".illegal"}

	case 18: // B-form: b, ba, bl, bla
		li := field(code, 6, 24)
		aa := field(code, 30, 1) != 0
		lk := field(code, 31, 1) != 0
		target := signExtend(li<<2, 26)
		mnemonic := "b"
		if lk {
			mnemonic += "l"
		}
		if aa {
			mnemonic += "a"
		}
		return Ins{
			Addr: addr, Code: code, Op: OpB, Mnemonic: mnemonic, AA: aa, LK: lk,
			Args: []Arg{{Kind: ArgBranchDest, Value: target}},
		}

	case 16: // B-form conditional: bc, bca, bcl, bcla
		bo := field(code, 6, 5)
		bi := field(code, 11, 5)
		bd := field(code, 16, 14)
		aa := field(code, 30, 1) != 0
		lk := field(code, 31, 1) != 0
		target := signExtend(bd<<2, 18)
		mnemonic := "bc"
		if lk {
			mnemonic += "l"
		}
		if aa {
			mnemonic += "a"
		}
		return Ins{
			Addr: addr, Code: code, Op: OpBC, Mnemonic: mnemonic, AA: aa, LK: lk,
			Args: []Arg{
				{Kind: ArgUimm, Value: int32(bo)},
				{Kind: ArgUimm, Value: int32(bi)},
				{Kind: ArgBranchDest, Value: target},
			},
		}

	case 11, 10: // cmpi, cmpli (crfD, L, rA, SIMM/UIMM)
		crfD := field(code, 6, 3)
		rA := field(code, 11, 5)
		imm := field(code, 16, 16)
		name := gprMnemonicArith[opcode]
		kind := ArgSimm
		value := signExtend(imm, 16)
		if opcode == 10 {
			kind = ArgUimm
			value = int32(imm)
		}
		return Ins{
			Addr: addr, Code: code, Op: OpGeneric, Mnemonic: name,
			Args: []Arg{
				{Kind: ArgCR, Reg: crfD},
				{Kind: ArgGPR, Reg: rA},
				{Kind: kind, Value: value},
			},
		}

	case 32, 33, 34, 35, 40, 41, 42, 43, 36, 37, 38, 39, 44, 45, 46, 47, 48, 49, 50, 51, 52, 53, 54, 55:
		rD := field(code, 6, 5)
		rA := field(code, 11, 5)
		d := field(code, 16, 16)
		var rKind ArgKind = ArgGPR
		if opcode >= 48 {
			rKind = ArgFPR
		}
		return Ins{
			Addr: addr, Code: code, Op: OpGeneric, Mnemonic: loadStoreMnemonic[opcode],
			Args: []Arg{
				{Kind: rKind, Reg: rD},
				{Kind: ArgOffset, Reg: rA, Value: signExtend(d, 16)},
			},
		}

	case 14, 15, 12, 13, 7, 8: // addi-family (rD, rA, SIMM)
		rD := field(code, 6, 5)
		rA := field(code, 11, 5)
		imm := field(code, 16, 16)
		return Ins{
			Addr: addr, Code: code, Op: OpGeneric, Mnemonic: gprMnemonicArith[opcode],
			Args: []Arg{
				{Kind: ArgGPR, Reg: rD},
				{Kind: ArgGPR, Reg: rA},
				{Kind: ArgSimm, Value: signExtend(imm, 16)},
			},
		}

	case 24, 25, 26, 27, 28, 29: // ori-family (rA, rS, UIMM)
		rS := field(code, 6, 5)
		rA := field(code, 11, 5)
		imm := field(code, 16, 16)
		return Ins{
			Addr: addr, Code: code, Op: OpGeneric, Mnemonic: gprMnemonicArith[opcode],
			Args: []Arg{
				{Kind: ArgGPR, Reg: rA},
				{Kind: ArgGPR, Reg: rS},
				{Kind: ArgUimm, Value: int32(imm)},
			},
		}

	case 3: // twi
		to := field(code, 6, 5)
		rA := field(code, 11, 5)
		imm := field(code, 16, 16)
		return Ins{
			Addr: addr, Code: code, Op: OpGeneric, Mnemonic: "twi",
			Args: []Arg{
				{Kind: ArgUimm, Value: int32(to)},
				{Kind: ArgGPR, Reg: rA},
				{Kind: ArgSimm, Value: signExtend(imm, 16)},
			},
		}

	case 20, 21, 23: // rlwimi/rlwinm/rlwnm (rA, rS, SH, MB, ME)
		rS := field(code, 6, 5)
		rA := field(code, 11, 5)
		shOrRB := field(code, 16, 5)
		mb := field(code, 21, 5)
		me := field(code, 26, 5)
		rc := field(code, 31, 1) != 0
		name := gprMnemonicArith[opcode]
		if rc {
			name += "."
		}
		shKind := ArgUimm
		if opcode == 23 {
			shKind = ArgGPR
		}
		return Ins{
			Addr: addr, Code: code, Op: OpGeneric, Mnemonic: name,
			Args: []Arg{
				{Kind: ArgGPR, Reg: rA},
				{Kind: ArgGPR, Reg: rS},
				{Kind: shKind, Reg: shOrRB, Value: int32(shOrRB)},
				{Kind: ArgUimm, Value: int32(mb)},
				{Kind: ArgUimm, Value: int32(me)},
			},
		}

	default:
		// Outside the scoped decode table: the instruction is still a
		// legal encoding but this boundary classifies only the families
		// the emitter needs.
		return Ins{Addr: addr, Code: code, Op: OpUnrecognized}
	}
}

// DisasmIter decodes every 4-byte instruction word in data, whose first
// byte sits at address addr, in address order. Mirrors the reference
// disasm_iter's contract: one Ins per word, no skipped bytes.
func DisasmIter(data []byte, addr uint32) []Ins {
	out := make([]Ins, 0, len(data)/4)
	for off := 0; off+4 <= len(data); off += 4 {
		code := uint32(data[off])<<24 | uint32(data[off+1])<<16 | uint32(data[off+2])<<8 | uint32(data[off+3])
		out = append(out, Decode(code, addr+uint32(off)))
	}
	return out
}

// IsIllegalInstructionForm reports whether code is one of the two bit
// patterns that, though legal encodings, the assembler refuses to accept
// (spec section 4.7).
func IsIllegalInstructionForm(code uint32) bool {
	return code == 0x43000000 || code == 0xB8030000
}
