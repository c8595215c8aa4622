// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"fmt"
	"strings"

	"github.com/beevik/mc6502/cpu"
)

// A Scanner parses a single upper-cased source line into an instruction
// and its operand, and writes the encoded bytes to memory.
type Scanner struct {
	Inst    *cpu.Instruction // selected instruction, valid after Scan
	Operand uint16           // operand value; the branch target for REL
	set     *cpu.InstructionSet
}

// NewScanner creates a scanner for the NMOS 6502 instruction set.
func NewScanner() *Scanner {
	return &Scanner{set: cpu.GetInstructionSet()}
}

// Scan parses a line of the form "MNE", "MNE A", "MNE #n", "MNE n",
// "MNE n,X", "MNE n,Y", "MNE (n)", "MNE (n,X)" or "MNE (n),Y". Numbers
// are $hex, %binary or decimal. The mnemonic is the first three
// characters. An operand that fits in a byte selects the zero-page form
// when the instruction has one.
func (s *Scanner) Scan(line string) error {
	s.Inst = nil
	s.Operand = 0

	if len(line) < 3 {
		return fmt.Errorf("%w: missing mnemonic", ErrSyntax)
	}
	name := line[:3]
	if len(s.set.GetInstructions(name)) == 0 {
		return fmt.Errorf("%w: unknown mnemonic %s", ErrSyntax, name)
	}

	rest := line[3:]
	if rest == "" {
		if s.encode(name, cpu.IMP) || s.encode(name, cpu.ACC) {
			return nil
		}
		return fmt.Errorf("%w: %s requires an operand", ErrSyntax, name)
	}
	if rest[0] != ' ' && rest[0] != '\t' {
		return fmt.Errorf("%w: unknown mnemonic %s", ErrSyntax, strings.Fields(line)[0])
	}

	op := strings.TrimSpace(rest)
	if s.scanOperand(name, op) {
		return nil
	}
	return fmt.Errorf("%w: bad operand for %s", ErrSyntax, name)
}

// Try each operand form in order of precedence.
func (s *Scanner) scanOperand(name, op string) bool {
	switch {
	case op == "":
		return s.encode(name, cpu.IMP) || s.encode(name, cpu.ACC)

	case op == "A" && s.set.HasMode(name, cpu.ACC):
		return s.encode(name, cpu.ACC)

	case op[0] == '#':
		v, n, ok := scanNumber(op[1:], 0xff)
		return ok && n == len(op)-1 && s.encodeValue(name, cpu.IMM, v)

	case s.set.HasMode(name, cpu.REL):
		v, n, ok := scanNumber(op, 0xffff)
		return ok && n == len(op) && s.encodeValue(name, cpu.REL, v)

	case op[0] == '(':
		return s.scanIndirect(name, op[1:])
	}

	v, n, ok := scanNumber(op, 0xffff)
	if !ok {
		return false
	}

	switch op[n:] {
	case ",X":
		if v <= 0xff && s.encodeValue(name, cpu.ZPX, v) {
			return true
		}
		return s.encodeValue(name, cpu.ABX, v)
	case ",Y":
		if v <= 0xff && s.encodeValue(name, cpu.ZPY, v) {
			return true
		}
		return s.encodeValue(name, cpu.ABY, v)
	case "":
		if v <= 0xff && s.encodeValue(name, cpu.ZPG, v) {
			return true
		}
		return s.encodeValue(name, cpu.ABS, v)
	}
	return false
}

// Scan the part of an indirect operand that follows the open
// parenthesis.
func (s *Scanner) scanIndirect(name, op string) bool {
	v, n, ok := scanNumber(op, 0xffff)
	if !ok {
		return false
	}
	switch op[n:] {
	case "),Y":
		return v <= 0xff && s.encodeValue(name, cpu.IDY, v)
	case ",X)":
		return v <= 0xff && s.encodeValue(name, cpu.IDX, v)
	case ")":
		return s.encodeValue(name, cpu.IND, v)
	}
	return false
}

func (s *Scanner) encode(name string, mode cpu.Mode) bool {
	inst, ok := s.set.Encode(name, mode)
	if ok {
		s.Inst = inst
	}
	return ok
}

func (s *Scanner) encodeValue(name string, mode cpu.Mode, v uint16) bool {
	if !s.encode(name, mode) {
		return false
	}
	s.Operand = v
	return true
}

// Write stores the scanned instruction at addr and returns the address
// that follows it. When output is false nothing is stored; the call only
// measures. A relative branch whose target is out of range is reported
// only when output is true.
func (s *Scanner) Write(m cpu.Memory, addr uint16, output bool) (uint16, error) {
	inst := s.Inst
	next := addr + uint16(inst.Length)
	if !output {
		return next, nil
	}

	value := s.Operand
	if inst.Mode == cpu.REL {
		offset, err := relOffset(int(s.Operand), int(addr)+2)
		if err != nil {
			return next, err
		}
		value = uint16(offset)
	}

	m.StoreByte(addr, inst.Opcode)
	if inst.Length > 1 {
		m.StoreByte(addr+1, byte(value))
	}
	if inst.Length > 2 {
		m.StoreByte(addr+2, byte(value>>8))
	}
	return next, nil
}

// Compute the relative offset of two addresses as a
// two's-complement byte value. If the offset can't
// fit into a byte, return an error.
func relOffset(addr1, addr2 int) (byte, error) {
	diff := addr1 - addr2
	switch {
	case diff < -128 || diff > 127:
		return 0, fmt.Errorf("%w: target $%04X is %d bytes away", ErrBranchRange, addr1, diff)
	case diff >= 0:
		return byte(diff), nil
	default:
		return byte(256 + diff), nil
	}
}

// Parse a $hex, %binary or decimal number at the start of s, stopping at
// a ',' or ')' or the end of the string. It returns the value and the
// number of characters consumed.
func scanNumber(s string, limit int) (v uint16, n int, ok bool) {
	base, prefix := 10, 0
	if len(s) > 0 {
		switch s[0] {
		case '$':
			base, prefix = 16, 1
		case '%':
			base, prefix = 2, 1
		}
	}

	digits := s[prefix:]
	if end := strings.IndexAny(digits, ",)"); end >= 0 {
		digits = digits[:end]
	}
	if digits == "" {
		return 0, 0, false
	}

	value := 0
	for i := 0; i < len(digits); i++ {
		d, ok := digitValue(digits[i], base)
		if !ok {
			return 0, 0, false
		}
		value = value*base + d
		if value > limit {
			return 0, 0, false
		}
	}
	return uint16(value), prefix + len(digits), true
}

func digitValue(c byte, base int) (int, bool) {
	var d int
	switch {
	case c >= '0' && c <= '9':
		d = int(c - '0')
	case c >= 'A' && c <= 'F':
		d = int(c-'A') + 10
	default:
		return 0, false
	}
	return d, d < base
}
