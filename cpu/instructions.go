// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpu

import (
	"strings"
	"sync"
)

// An Op identifies an instruction independently of its addressing mode.
// The set covers the documented NMOS mnemonics and the undocumented
// combinations that real software relies on.
type Op byte

// All opcode identities
const (
	ADC Op = iota
	AND
	ASL
	BCC
	BCS
	BEQ
	BIT
	BMI
	BNE
	BPL
	BRK
	BVC
	BVS
	CLC
	CLD
	CLI
	CLV
	CMP
	CPX
	CPY
	DCP // DEC + CMP (undocumented)
	DEC
	DEX
	DEY
	EOR
	INC
	INX
	INY
	ISB // INC + SBC (undocumented)
	JMP
	JSR
	LAX // LDA + LDX (undocumented)
	LDA
	LDX
	LDY
	LSR
	NOP
	ORA
	PHA
	PHP
	PLA
	PLP
	RLA // ROL + AND (undocumented)
	ROL
	ROR
	RRA // ROR + ADC (undocumented)
	RTI
	RTS
	SAX // store A & X (undocumented)
	SBC
	SEC
	SED
	SEI
	SLO // ASL + ORA (undocumented)
	SRE // LSR + EOR (undocumented)
	STA
	STX
	STY
	TAX
	TAY
	TSX
	TXA
	TXS
	TYA

	numOps
)

type instfunc func(c *CPU, inst *Instruction)

// Emulator implementation for each opcode identity
type opcodeImpl struct {
	op   Op
	name string
	fn   instfunc
}

var impl = []opcodeImpl{
	{ADC, "ADC", (*CPU).adc},
	{AND, "AND", (*CPU).and},
	{ASL, "ASL", (*CPU).asl},
	{BCC, "BCC", (*CPU).bcc},
	{BCS, "BCS", (*CPU).bcs},
	{BEQ, "BEQ", (*CPU).beq},
	{BIT, "BIT", (*CPU).bit},
	{BMI, "BMI", (*CPU).bmi},
	{BNE, "BNE", (*CPU).bne},
	{BPL, "BPL", (*CPU).bpl},
	{BRK, "BRK", (*CPU).brk},
	{BVC, "BVC", (*CPU).bvc},
	{BVS, "BVS", (*CPU).bvs},
	{CLC, "CLC", (*CPU).clc},
	{CLD, "CLD", (*CPU).cld},
	{CLI, "CLI", (*CPU).cli},
	{CLV, "CLV", (*CPU).clv},
	{CMP, "CMP", (*CPU).cmp},
	{CPX, "CPX", (*CPU).cpx},
	{CPY, "CPY", (*CPU).cpy},
	{DCP, "DCP", (*CPU).dcp},
	{DEC, "DEC", (*CPU).dec},
	{DEX, "DEX", (*CPU).dex},
	{DEY, "DEY", (*CPU).dey},
	{EOR, "EOR", (*CPU).eor},
	{INC, "INC", (*CPU).inc},
	{INX, "INX", (*CPU).inx},
	{INY, "INY", (*CPU).iny},
	{ISB, "ISB", (*CPU).isb},
	{JMP, "JMP", (*CPU).jmp},
	{JSR, "JSR", (*CPU).jsr},
	{LAX, "LAX", (*CPU).lax},
	{LDA, "LDA", (*CPU).lda},
	{LDX, "LDX", (*CPU).ldx},
	{LDY, "LDY", (*CPU).ldy},
	{LSR, "LSR", (*CPU).lsr},
	{NOP, "NOP", (*CPU).nop},
	{ORA, "ORA", (*CPU).ora},
	{PHA, "PHA", (*CPU).pha},
	{PHP, "PHP", (*CPU).php},
	{PLA, "PLA", (*CPU).pla},
	{PLP, "PLP", (*CPU).plp},
	{RLA, "RLA", (*CPU).rla},
	{ROL, "ROL", (*CPU).rol},
	{ROR, "ROR", (*CPU).ror},
	{RRA, "RRA", (*CPU).rra},
	{RTI, "RTI", (*CPU).rti},
	{RTS, "RTS", (*CPU).rts},
	{SAX, "SAX", (*CPU).sax},
	{SBC, "SBC", (*CPU).sbc},
	{SEC, "SEC", (*CPU).sec},
	{SED, "SED", (*CPU).sed},
	{SEI, "SEI", (*CPU).sei},
	{SLO, "SLO", (*CPU).slo},
	{SRE, "SRE", (*CPU).sre},
	{STA, "STA", (*CPU).sta},
	{STX, "STX", (*CPU).stx},
	{STY, "STY", (*CPU).sty},
	{TAX, "TAX", (*CPU).tax},
	{TAY, "TAY", (*CPU).tay},
	{TSX, "TSX", (*CPU).tsx},
	{TXA, "TXA", (*CPU).txa},
	{TXS, "TXS", (*CPU).txs},
	{TYA, "TYA", (*CPU).tya},
}

var opNames [numOps]string

func init() {
	for _, i := range impl {
		opNames[i.op] = i.name
	}
}

// String returns the three-letter mnemonic of the opcode identity.
func (o Op) String() string {
	if o < numOps {
		return opNames[o]
	}
	return "???"
}

// Mode describes a memory addressing mode.
type Mode byte

// All possible memory addressing modes
const (
	IMP Mode = iota // Implied (no operand)
	IDX             // (Indirect,X)
	ZPG             // Zero Page
	IMM             // Immediate
	ACC             // Accumulator (no operand)
	ABS             // Absolute
	REL             // Relative
	IDY             // (Indirect),Y
	ZPX             // Zero Page,X
	ZPY             // Zero Page,Y
	ABX             // Absolute,X
	ABY             // Absolute,Y
	IND             // (Indirect)

	numModes
)

// Size in bytes of an instruction (opcode plus operand) in each mode
var modeLength = [numModes]byte{1, 2, 2, 2, 1, 3, 2, 2, 2, 2, 3, 3, 3}

var modeNames = [numModes]string{
	"IMP", "IDX", "ZPG", "IMM", "ACC", "ABS", "REL",
	"IDY", "ZPX", "ZPY", "ABX", "ABY", "IND",
}

// Length returns the number of bytes used by an instruction in this
// addressing mode, including the opcode byte.
func (m Mode) Length() byte {
	return modeLength[m]
}

func (m Mode) String() string {
	if m < numModes {
		return modeNames[m]
	}
	return "???"
}

// Opcode data for an instruction byte
type opcodeData struct {
	op     Op   // opcode identity
	mode   Mode // addressing mode
	opcode byte // opcode hex value
	cycles byte // number of CPU cycles charged for the instruction
	legal  bool // whether the opcode is documented
}

// All 256 instruction bytes, in opcode order. JAM slots decode as
// single-byte NOPs.
var data = [256]opcodeData{
	// $00
	{BRK, IMP, 0x00, 7, true},
	{ORA, IDX, 0x01, 6, true},
	{NOP, IMP, 0x02, 2, false},
	{SLO, IDX, 0x03, 8, false},
	{NOP, ZPG, 0x04, 3, false},
	{ORA, ZPG, 0x05, 3, true},
	{ASL, ZPG, 0x06, 5, true},
	{SLO, ZPG, 0x07, 5, false},
	{PHP, IMP, 0x08, 3, true},
	{ORA, IMM, 0x09, 2, true},
	{ASL, ACC, 0x0a, 2, true},
	{NOP, IMM, 0x0b, 2, false},
	{NOP, ABS, 0x0c, 4, false},
	{ORA, ABS, 0x0d, 4, true},
	{ASL, ABS, 0x0e, 6, true},
	{SLO, ABS, 0x0f, 6, false},

	// $10
	{BPL, REL, 0x10, 2, true},
	{ORA, IDY, 0x11, 5, true},
	{NOP, IMP, 0x12, 2, false},
	{SLO, IDY, 0x13, 8, false},
	{NOP, ZPX, 0x14, 4, false},
	{ORA, ZPX, 0x15, 4, true},
	{ASL, ZPX, 0x16, 6, true},
	{SLO, ZPX, 0x17, 6, false},
	{CLC, IMP, 0x18, 2, true},
	{ORA, ABY, 0x19, 4, true},
	{NOP, IMP, 0x1a, 2, false},
	{SLO, ABY, 0x1b, 7, false},
	{NOP, ABX, 0x1c, 4, false},
	{ORA, ABX, 0x1d, 4, true},
	{ASL, ABX, 0x1e, 7, true},
	{SLO, ABX, 0x1f, 7, false},

	// $20
	{JSR, ABS, 0x20, 6, true},
	{AND, IDX, 0x21, 6, true},
	{NOP, IMP, 0x22, 2, false},
	{RLA, IDX, 0x23, 8, false},
	{BIT, ZPG, 0x24, 3, true},
	{AND, ZPG, 0x25, 3, true},
	{ROL, ZPG, 0x26, 5, true},
	{RLA, ZPG, 0x27, 5, false},
	{PLP, IMP, 0x28, 4, true},
	{AND, IMM, 0x29, 2, true},
	{ROL, ACC, 0x2a, 2, true},
	{NOP, IMM, 0x2b, 2, false},
	{BIT, ABS, 0x2c, 4, true},
	{AND, ABS, 0x2d, 4, true},
	{ROL, ABS, 0x2e, 6, true},
	{RLA, ABS, 0x2f, 6, false},

	// $30
	{BMI, REL, 0x30, 2, true},
	{AND, IDY, 0x31, 5, true},
	{NOP, IMP, 0x32, 2, false},
	{RLA, IDY, 0x33, 8, false},
	{NOP, ZPX, 0x34, 4, false},
	{AND, ZPX, 0x35, 4, true},
	{ROL, ZPX, 0x36, 6, true},
	{RLA, ZPX, 0x37, 6, false},
	{SEC, IMP, 0x38, 2, true},
	{AND, ABY, 0x39, 4, true},
	{NOP, IMP, 0x3a, 2, false},
	{RLA, ABY, 0x3b, 7, false},
	{NOP, ABX, 0x3c, 4, false},
	{AND, ABX, 0x3d, 4, true},
	{ROL, ABX, 0x3e, 7, true},
	{RLA, ABX, 0x3f, 7, false},

	// $40
	{RTI, IMP, 0x40, 6, true},
	{EOR, IDX, 0x41, 6, true},
	{NOP, IMP, 0x42, 2, false},
	{SRE, IDX, 0x43, 8, false},
	{NOP, ZPG, 0x44, 3, false},
	{EOR, ZPG, 0x45, 3, true},
	{LSR, ZPG, 0x46, 5, true},
	{SRE, ZPG, 0x47, 5, false},
	{PHA, IMP, 0x48, 3, true},
	{EOR, IMM, 0x49, 2, true},
	{LSR, ACC, 0x4a, 2, true},
	{NOP, IMM, 0x4b, 2, false},
	{JMP, ABS, 0x4c, 3, true},
	{EOR, ABS, 0x4d, 4, true},
	{LSR, ABS, 0x4e, 6, true},
	{SRE, ABS, 0x4f, 6, false},

	// $50
	{BVC, REL, 0x50, 2, true},
	{EOR, IDY, 0x51, 5, true},
	{NOP, IMP, 0x52, 2, false},
	{SRE, IDY, 0x53, 8, false},
	{NOP, ZPX, 0x54, 4, false},
	{EOR, ZPX, 0x55, 4, true},
	{LSR, ZPX, 0x56, 6, true},
	{SRE, ZPX, 0x57, 6, false},
	{CLI, IMP, 0x58, 2, true},
	{EOR, ABY, 0x59, 4, true},
	{NOP, IMP, 0x5a, 2, false},
	{SRE, ABY, 0x5b, 7, false},
	{NOP, ABX, 0x5c, 4, false},
	{EOR, ABX, 0x5d, 4, true},
	{LSR, ABX, 0x5e, 7, true},
	{SRE, ABX, 0x5f, 7, false},

	// $60
	{RTS, IMP, 0x60, 6, true},
	{ADC, IDX, 0x61, 6, true},
	{NOP, IMP, 0x62, 2, false},
	{RRA, IDX, 0x63, 8, false},
	{NOP, ZPG, 0x64, 3, false},
	{ADC, ZPG, 0x65, 3, true},
	{ROR, ZPG, 0x66, 5, true},
	{RRA, ZPG, 0x67, 5, false},
	{PLA, IMP, 0x68, 4, true},
	{ADC, IMM, 0x69, 2, true},
	{ROR, ACC, 0x6a, 2, true},
	{NOP, IMM, 0x6b, 2, false},
	{JMP, IND, 0x6c, 5, true},
	{ADC, ABS, 0x6d, 4, true},
	{ROR, ABS, 0x6e, 6, true},
	{RRA, ABS, 0x6f, 6, false},

	// $70
	{BVS, REL, 0x70, 2, true},
	{ADC, IDY, 0x71, 5, true},
	{NOP, IMP, 0x72, 2, false},
	{RRA, IDY, 0x73, 8, false},
	{NOP, ZPX, 0x74, 4, false},
	{ADC, ZPX, 0x75, 4, true},
	{ROR, ZPX, 0x76, 6, true},
	{RRA, ZPX, 0x77, 6, false},
	{SEI, IMP, 0x78, 2, true},
	{ADC, ABY, 0x79, 4, true},
	{NOP, IMP, 0x7a, 2, false},
	{RRA, ABY, 0x7b, 7, false},
	{NOP, ABX, 0x7c, 4, false},
	{ADC, ABX, 0x7d, 4, true},
	{ROR, ABX, 0x7e, 7, true},
	{RRA, ABX, 0x7f, 7, false},

	// $80
	{NOP, IMM, 0x80, 2, false},
	{STA, IDX, 0x81, 6, true},
	{NOP, IMM, 0x82, 2, false},
	{SAX, IDX, 0x83, 6, false},
	{STY, ZPG, 0x84, 3, true},
	{STA, ZPG, 0x85, 3, true},
	{STX, ZPG, 0x86, 3, true},
	{SAX, ZPG, 0x87, 3, false},
	{DEY, IMP, 0x88, 2, true},
	{NOP, IMM, 0x89, 2, false},
	{TXA, IMP, 0x8a, 2, true},
	{NOP, IMM, 0x8b, 2, false},
	{STY, ABS, 0x8c, 4, true},
	{STA, ABS, 0x8d, 4, true},
	{STX, ABS, 0x8e, 4, true},
	{SAX, ABS, 0x8f, 4, false},

	// $90
	{BCC, REL, 0x90, 2, true},
	{STA, IDY, 0x91, 6, true},
	{NOP, IMP, 0x92, 2, false},
	{NOP, IDY, 0x93, 6, false},
	{STY, ZPX, 0x94, 4, true},
	{STA, ZPX, 0x95, 4, true},
	{STX, ZPY, 0x96, 4, true},
	{SAX, ZPY, 0x97, 4, false},
	{TYA, IMP, 0x98, 2, true},
	{STA, ABY, 0x99, 5, true},
	{TXS, IMP, 0x9a, 2, true},
	{NOP, ABY, 0x9b, 5, false},
	{NOP, ABX, 0x9c, 5, false},
	{STA, ABX, 0x9d, 5, true},
	{NOP, ABY, 0x9e, 5, false},
	{NOP, ABY, 0x9f, 5, false},

	// $A0
	{LDY, IMM, 0xa0, 2, true},
	{LDA, IDX, 0xa1, 6, true},
	{LDX, IMM, 0xa2, 2, true},
	{LAX, IDX, 0xa3, 6, false},
	{LDY, ZPG, 0xa4, 3, true},
	{LDA, ZPG, 0xa5, 3, true},
	{LDX, ZPG, 0xa6, 3, true},
	{LAX, ZPG, 0xa7, 3, false},
	{TAY, IMP, 0xa8, 2, true},
	{LDA, IMM, 0xa9, 2, true},
	{TAX, IMP, 0xaa, 2, true},
	{NOP, IMM, 0xab, 2, false},
	{LDY, ABS, 0xac, 4, true},
	{LDA, ABS, 0xad, 4, true},
	{LDX, ABS, 0xae, 4, true},
	{LAX, ABS, 0xaf, 4, false},

	// $B0
	{BCS, REL, 0xb0, 2, true},
	{LDA, IDY, 0xb1, 5, true},
	{NOP, IMP, 0xb2, 2, false},
	{LAX, IDY, 0xb3, 5, false},
	{LDY, ZPX, 0xb4, 4, true},
	{LDA, ZPX, 0xb5, 4, true},
	{LDX, ZPY, 0xb6, 4, true},
	{LAX, ZPY, 0xb7, 4, false},
	{CLV, IMP, 0xb8, 2, true},
	{LDA, ABY, 0xb9, 4, true},
	{TSX, IMP, 0xba, 2, true},
	{LAX, ABY, 0xbb, 4, false},
	{LDY, ABX, 0xbc, 4, true},
	{LDA, ABX, 0xbd, 4, true},
	{LDX, ABY, 0xbe, 4, true},
	{LAX, ABY, 0xbf, 4, false},

	// $C0
	{CPY, IMM, 0xc0, 2, true},
	{CMP, IDX, 0xc1, 6, true},
	{NOP, IMM, 0xc2, 2, false},
	{DCP, IDX, 0xc3, 8, false},
	{CPY, ZPG, 0xc4, 3, true},
	{CMP, ZPG, 0xc5, 3, true},
	{DEC, ZPG, 0xc6, 5, true},
	{DCP, ZPG, 0xc7, 5, false},
	{INY, IMP, 0xc8, 2, true},
	{CMP, IMM, 0xc9, 2, true},
	{DEX, IMP, 0xca, 2, true},
	{NOP, IMM, 0xcb, 2, false},
	{CPY, ABS, 0xcc, 4, true},
	{CMP, ABS, 0xcd, 4, true},
	{DEC, ABS, 0xce, 6, true},
	{DCP, ABS, 0xcf, 6, false},

	// $D0
	{BNE, REL, 0xd0, 2, true},
	{CMP, IDY, 0xd1, 5, true},
	{NOP, IMP, 0xd2, 2, false},
	{DCP, IDY, 0xd3, 8, false},
	{NOP, ZPX, 0xd4, 4, false},
	{CMP, ZPX, 0xd5, 4, true},
	{DEC, ZPX, 0xd6, 6, true},
	{DCP, ZPX, 0xd7, 6, false},
	{CLD, IMP, 0xd8, 2, true},
	{CMP, ABY, 0xd9, 4, true},
	{NOP, IMP, 0xda, 2, false},
	{DCP, ABY, 0xdb, 7, false},
	{NOP, ABX, 0xdc, 4, false},
	{CMP, ABX, 0xdd, 4, true},
	{DEC, ABX, 0xde, 7, true},
	{DCP, ABX, 0xdf, 7, false},

	// $E0
	{CPX, IMM, 0xe0, 2, true},
	{SBC, IDX, 0xe1, 6, true},
	{NOP, IMM, 0xe2, 2, false},
	{ISB, IDX, 0xe3, 8, false},
	{CPX, ZPG, 0xe4, 3, true},
	{SBC, ZPG, 0xe5, 3, true},
	{INC, ZPG, 0xe6, 5, true},
	{ISB, ZPG, 0xe7, 5, false},
	{INX, IMP, 0xe8, 2, true},
	{SBC, IMM, 0xe9, 2, true},
	{NOP, IMP, 0xea, 2, true},
	{SBC, IMM, 0xeb, 2, false},
	{CPX, ABS, 0xec, 4, true},
	{SBC, ABS, 0xed, 4, true},
	{INC, ABS, 0xee, 6, true},
	{ISB, ABS, 0xef, 6, false},

	// $F0
	{BEQ, REL, 0xf0, 2, true},
	{SBC, IDY, 0xf1, 5, true},
	{NOP, IMP, 0xf2, 2, false},
	{ISB, IDY, 0xf3, 8, false},
	{NOP, ZPX, 0xf4, 4, false},
	{SBC, ZPX, 0xf5, 4, true},
	{INC, ZPX, 0xf6, 6, true},
	{ISB, ZPX, 0xf7, 6, false},
	{SED, IMP, 0xf8, 2, true},
	{SBC, ABY, 0xf9, 4, true},
	{NOP, IMP, 0xfa, 2, false},
	{ISB, ABY, 0xfb, 7, false},
	{NOP, ABX, 0xfc, 4, false},
	{SBC, ABX, 0xfd, 4, true},
	{INC, ABX, 0xfe, 7, true},
	{ISB, ABX, 0xff, 7, false},
}

// An Instruction describes a CPU instruction, including its name,
// its addressing mode, its opcode value, its operand size, and its CPU cycle
// cost.
type Instruction struct {
	Name   string   // all-caps name of the instruction
	Op     Op       // opcode identity
	Mode   Mode     // addressing mode
	Opcode byte     // hexadecimal opcode value
	Length byte     // combined size of opcode and operand, in bytes
	Cycles byte     // number of CPU cycles to execute the instruction
	Legal  bool     // false for undocumented opcodes
	fn     instfunc // emulator implementation of the function
}

// An InstructionSet defines the set of all possible instructions that
// can run on the emulated CPU.
type InstructionSet struct {
	instructions [256]Instruction          // all instructions by opcode
	variants     map[string][]*Instruction // variants of each instruction
}

// Lookup retrieves a CPU instruction corresponding to the requested opcode.
func (s *InstructionSet) Lookup(opcode byte) *Instruction {
	return &s.instructions[opcode]
}

// GetInstructions returns all CPU instructions whose name matches the
// provided string.
func (s *InstructionSet) GetInstructions(name string) []*Instruction {
	return s.variants[strings.ToUpper(name)]
}

// HasMode reports whether the named instruction has a variant using the
// addressing mode.
func (s *InstructionSet) HasMode(name string, mode Mode) bool {
	_, ok := s.Encode(name, mode)
	return ok
}

// Encode returns the instruction for a mnemonic and addressing mode. When
// an undocumented opcode duplicates a documented one, the documented
// opcode is returned; otherwise the lowest opcode wins.
func (s *InstructionSet) Encode(name string, mode Mode) (*Instruction, bool) {
	var found *Instruction
	for _, inst := range s.GetInstructions(name) {
		if inst.Mode != mode {
			continue
		}
		if found == nil || (inst.Legal && !found.Legal) {
			found = inst
		}
	}
	return found, found != nil
}

// Create the instruction set.
func newInstructionSet() *InstructionSet {
	set := &InstructionSet{
		variants: make(map[string][]*Instruction),
	}

	fns := make(map[Op]instfunc, len(impl))
	for _, i := range impl {
		fns[i.op] = i.fn
	}

	for i, d := range data {
		if int(d.opcode) != i || fns[d.op] == nil {
			panic("missing instruction")
		}

		inst := &set.instructions[i]
		inst.Name = d.op.String()
		inst.Op = d.op
		inst.Mode = d.mode
		inst.Opcode = d.opcode
		inst.Length = d.mode.Length()
		inst.Cycles = d.cycles
		inst.Legal = d.legal
		inst.fn = fns[d.op]

		set.variants[inst.Name] = append(set.variants[inst.Name], inst)
	}
	return set
}

var (
	instructionSet     *InstructionSet
	instructionSetOnce sync.Once
)

// GetInstructionSet returns the NMOS 6502 instruction set shared by the
// interpreter, the disassembler and the assembler.
func GetInstructionSet() *InstructionSet {
	instructionSetOnce.Do(func() {
		instructionSet = newInstructionSet()
	})
	return instructionSet
}
