// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpu

// Registers contains the state of all 6502 registers.
type Registers struct {
	A                byte   // accumulator
	X                byte   // X indexing register
	Y                byte   // Y indexing register
	SP               byte   // stack pointer ($100 + SP = stack memory location)
	PC               uint16 // program counter
	Carry            bool   // PS: Carry bit
	Zero             bool   // PS: Zero bit
	InterruptDisable bool   // PS: Interrupt disable bit
	Decimal          bool   // PS: Decimal bit
	Overflow         bool   // PS: Overflow bit
	Sign             bool   // PS: Sign bit
}

// Bits assigned to the processor status byte
const (
	CarryBit            = 1 << 0
	ZeroBit             = 1 << 1
	InterruptDisableBit = 1 << 2
	DecimalBit          = 1 << 3
	BreakBit            = 1 << 4
	ConstantBit         = 1 << 5
	OverflowBit         = 1 << 6
	SignBit             = 1 << 7
)

// PS returns the processor status byte as seen by the running program.
// The constant bit is always set and the break bit is always clear.
func (r *Registers) PS() byte {
	return r.SavePS(false)
}

// SavePS packs the processor status into a byte value suitable for
// pushing onto the stack. The break bit is set if requested.
func (r *Registers) SavePS(brk bool) byte {
	var ps byte = ConstantBit
	if r.Carry {
		ps |= CarryBit
	}
	if r.Zero {
		ps |= ZeroBit
	}
	if r.InterruptDisable {
		ps |= InterruptDisableBit
	}
	if r.Decimal {
		ps |= DecimalBit
	}
	if brk {
		ps |= BreakBit
	}
	if r.Overflow {
		ps |= OverflowBit
	}
	if r.Sign {
		ps |= SignBit
	}
	return ps
}

// RestorePS restores the processor status from a byte. The break and
// constant bits have no live counterpart and are ignored.
func (r *Registers) RestorePS(ps byte) {
	r.Carry = ((ps & CarryBit) != 0)
	r.Zero = ((ps & ZeroBit) != 0)
	r.InterruptDisable = ((ps & InterruptDisableBit) != 0)
	r.Decimal = ((ps & DecimalBit) != 0)
	r.Overflow = ((ps & OverflowBit) != 0)
	r.Sign = ((ps & SignBit) != 0)
}

func boolToByte(v bool) byte {
	if v {
		return 1
	}
	return 0
}

// Init puts the registers into their power-on state: A, X, Y = 0,
// SP = $FD, PC = 0 and only the constant status bit set.
func (r *Registers) Init() {
	r.A = 0
	r.X = 0
	r.Y = 0
	r.SP = 0xfd
	r.PC = 0
	r.RestorePS(ConstantBit)
}

// A Snapshot records the register file before a debugger step so the
// caller can display what changed.
type Snapshot struct {
	PC uint16
	SP byte
	A  byte
	X  byte
	Y  byte
	PS byte
}

// Snapshot captures the current register values.
func (r *Registers) Snapshot() Snapshot {
	return Snapshot{PC: r.PC, SP: r.SP, A: r.A, X: r.X, Y: r.Y, PS: r.PS()}
}
