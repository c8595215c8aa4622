// Copyright 2014 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package disasm implements a 6502 instruction set
// disassembler.
package disasm

import (
	"fmt"
	"strings"

	"github.com/beevik/mc6502/cpu"
	"github.com/fatih/color"
)

// Disassembler formatting for addressing modes
var modeFormat = [...]string{
	cpu.IMP: "%s",
	cpu.IDX: "($%s,X)",
	cpu.ZPG: "$%s",
	cpu.IMM: "#$%s",
	cpu.ACC: "%s",
	cpu.ABS: "$%s",
	cpu.REL: "$%s",
	cpu.IDY: "($%s),Y",
	cpu.ZPX: "$%s,X",
	cpu.ZPY: "$%s,Y",
	cpu.ABX: "$%s,X",
	cpu.ABY: "$%s,Y",
	cpu.IND: "($%s)",
}

var hex = "0123456789ABCDEF"

// Return a hexadecimal string representation of the byte slice, most
// significant byte first.
func hexString(b []byte) string {
	hexlen := len(b) * 2
	hexbuf := make([]byte, hexlen)
	j := hexlen - 1
	for _, n := range b {
		hexbuf[j] = hex[n&0xf]
		hexbuf[j-1] = hex[n>>4]
		j -= 2
	}
	return string(hexbuf)
}

// Return the instruction bytes as space-separated hex pairs, padded to the
// width of a 3-byte instruction.
func codeString(b []byte) string {
	var s strings.Builder
	for i := 0; i < 3; i++ {
		if i > 0 {
			s.WriteByte(' ')
		}
		if i < len(b) {
			s.WriteByte(hex[b[i]>>4])
			s.WriteByte(hex[b[i]&0xf])
		} else {
			s.WriteString("  ")
		}
	}
	return s.String()
}

// Instruction disassembles the instruction at 'addr' into its mnemonic and
// operand, for example "LDA #$05". Relative branches show their absolute
// target. It also returns the address of the following instruction.
func Instruction(m cpu.Memory, addr uint16) (text string, next uint16) {
	inst := cpu.GetInstructionSet().Lookup(m.LoadByte(addr))
	operand := make([]byte, inst.Length-1)
	m.LoadBytes(addr+1, operand)

	if inst.Mode == cpu.REL {
		target := addr + uint16(inst.Length) + uint16(int16(int8(operand[0])))
		operand = []byte{byte(target), byte(target >> 8)}
	}

	text = inst.Name
	if len(operand) > 0 {
		text += " " + fmt.Sprintf(modeFormat[inst.Mode], hexString(operand))
	}
	next = addr + uint16(inst.Length)
	return
}

// Disassemble the machine code in memory 'm' at address 'addr'. Return a
// 'line' string representing the disassembled instruction and a 'next'
// address that starts the following line of machine code. The line holds
// the address, the instruction bytes and the instruction:
//
//	C000: A9 05     LDA #$05
func Disassemble(m cpu.Memory, addr uint16) (line string, next uint16) {
	text, next := Instruction(m, addr)
	code := make([]byte, next-addr)
	m.LoadBytes(addr, code)
	line = fmt.Sprintf("%04X: %s  %s", addr, codeString(code), text)
	return line, next
}

// FindNext returns the address of the instruction following the one at
// 'addr'.
func FindNext(m cpu.Memory, addr uint16) uint16 {
	inst := cpu.GetInstructionSet().Lookup(m.LoadByte(addr))
	return addr + uint16(inst.Length)
}

// FindPrevious guesses the start of the instruction that ends just before
// 'addr'. A 3-byte opcode three bytes back wins over a 2-byte opcode two
// bytes back; otherwise the previous byte is taken as a 1-byte
// instruction.
func FindPrevious(m cpu.Memory, addr uint16) uint16 {
	set := cpu.GetInstructionSet()
	if set.Lookup(m.LoadByte(addr-3)).Length == 3 {
		return addr - 3
	}
	if set.Lookup(m.LoadByte(addr-2)).Length == 2 {
		return addr - 2
	}
	return addr - 1
}

// RollPrevious returns an address roughly 'lines' instructions before
// 'base', chosen so that disassembling forward from it lands on 'base'
// whenever such an alignment exists.
func RollPrevious(m cpu.Memory, base uint16, lines int) uint16 {
	start := int(base) - 3*lines
	for pc := start; pc < int(base); pc++ {
		v := pc
		for i := 0; i < lines; i++ {
			v += int(cpu.GetInstructionSet().Lookup(m.LoadByte(uint16(v))).Length)
		}
		if v > int(base) {
			return uint16(pc - 1)
		}
		if v == int(base) {
			return uint16(pc)
		}
	}
	return base
}

var (
	pcColor = color.New(color.FgYellow)
	bpColor = color.New(color.FgRed)
)

// Highlight colors a disassembled line the way a debugger shows it: the
// instruction at the program counter in yellow, and instructions holding
// a breakpoint in red. Other lines are returned unchanged.
func Highlight(c *cpu.CPU, addr uint16, line string) string {
	switch {
	case c.FindBreakpoint(addr) != nil:
		return bpColor.Sprint(line)
	case addr == c.Reg.PC:
		return pcColor.Sprint(line)
	default:
		return line
	}
}

// EnableColor turns terminal coloring of Highlight on or off.
func EnableColor(on bool) {
	color.NoColor = !on
}

// RegisterString returns a one-line summary of the registers, for
// example:
//
//	A=00 X=00 Y=00 PS=[--1----C] SP=FD PC=C000
func RegisterString(r *cpu.Registers) string {
	const flags = "NV-BDIZC"
	ps := r.PS()
	var f [8]byte
	for i := 0; i < 8; i++ {
		bit := byte(0x80) >> i
		switch {
		case bit == cpu.ConstantBit:
			f[i] = '1'
		case ps&bit != 0:
			f[i] = flags[i]
		default:
			f[i] = '-'
		}
	}
	return fmt.Sprintf("A=%02X X=%02X Y=%02X PS=[%s] SP=%02X PC=%04X",
		r.A, r.X, r.Y, string(f[:]), r.SP, r.PC)
}
