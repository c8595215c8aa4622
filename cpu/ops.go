// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpu

// Add with carry
func (cpu *CPU) adc(inst *Instruction) {
	cpu.add(cpu.load(inst.Mode))
}

// Add 'v' and the carry to the accumulator. In decimal mode each nibble
// is corrected to BCD and every flag reflects the corrected result.
func (cpu *CPU) add(b byte) {
	acc := uint32(cpu.Reg.A)
	add := uint32(b)
	carry := boolToUint32(cpu.Reg.Carry)
	var v uint32

	switch cpu.Reg.Decimal {
	case true:
		lo := (acc & 0x0f) + (add & 0x0f) + carry

		var carrylo uint32
		if lo >= 0x0a {
			carrylo = 0x10
			lo -= 0x0a
		}

		hi := (acc & 0xf0) + (add & 0xf0) + carrylo

		if hi >= 0xa0 {
			cpu.Reg.Carry = true
			hi -= 0xa0
		} else {
			cpu.Reg.Carry = false
		}

		v = (hi | (lo & 0x0f)) & 0xff
		cpu.Reg.Overflow = ((acc^v)&0x80) != 0 && ((acc^add)&0x80) == 0

	case false:
		v = acc + add + carry
		cpu.Reg.Carry = (v >= 0x100)
		cpu.Reg.Overflow = (((acc & 0x80) == (add & 0x80)) && ((acc & 0x80) != (v & 0x80)))
	}

	cpu.Reg.A = byte(v)
	cpu.updateNZ(cpu.Reg.A)
}

// Subtract 'v' and the borrow from the accumulator, with the same decimal
// mode rules as add.
func (cpu *CPU) subtract(b byte) {
	acc := uint32(cpu.Reg.A)
	sub := uint32(b)
	carry := boolToUint32(cpu.Reg.Carry)
	var v uint32

	switch cpu.Reg.Decimal {
	case true:
		lo := 0x0f + (acc & 0x0f) - (sub & 0x0f) + carry

		var carrylo uint32
		if lo < 0x10 {
			lo -= 0x06
			carrylo = 0
		} else {
			lo -= 0x10
			carrylo = 0x10
		}

		hi := 0xf0 + (acc & 0xf0) - (sub & 0xf0) + carrylo

		if hi < 0x100 {
			cpu.Reg.Carry = false
			hi -= 0x60
		} else {
			cpu.Reg.Carry = true
			hi -= 0x100
		}

		v = (hi | (lo & 0x0f)) & 0xff
		cpu.Reg.Overflow = ((acc^v)&0x80) != 0 && ((acc^sub)&0x80) != 0

	case false:
		v = 0xff + acc - sub + carry
		cpu.Reg.Carry = (v >= 0x100)
		cpu.Reg.Overflow = (((acc & 0x80) != (sub & 0x80)) && ((acc & 0x80) != (v & 0x80)))
	}

	cpu.Reg.A = byte(v)
	cpu.updateNZ(cpu.Reg.A)
}

// Compare 'reg' to 'v' and set the carry, zero and sign flags.
func (cpu *CPU) compare(reg, v byte) {
	cpu.Reg.Carry = (reg >= v)
	cpu.updateNZ(reg - v)
}

// Boolean AND
func (cpu *CPU) and(inst *Instruction) {
	cpu.Reg.A &= cpu.load(inst.Mode)
	cpu.updateNZ(cpu.Reg.A)
}

// Arithmetic Shift Left
func (cpu *CPU) asl(inst *Instruction) {
	v := cpu.load(inst.Mode)
	cpu.Reg.Carry = ((v & 0x80) == 0x80)
	v = v << 1
	cpu.updateNZ(v)
	cpu.store(inst.Mode, v)
}

// Branch if Carry Clear
func (cpu *CPU) bcc(inst *Instruction) {
	if !cpu.Reg.Carry {
		cpu.branch()
	}
}

// Branch if Carry Set
func (cpu *CPU) bcs(inst *Instruction) {
	if cpu.Reg.Carry {
		cpu.branch()
	}
}

// Branch if EQual (to zero)
func (cpu *CPU) beq(inst *Instruction) {
	if cpu.Reg.Zero {
		cpu.branch()
	}
}

// Bit Test
func (cpu *CPU) bit(inst *Instruction) {
	v := cpu.load(inst.Mode)
	cpu.Reg.Zero = ((v & cpu.Reg.A) == 0)
	cpu.Reg.Sign = ((v & 0x80) != 0)
	cpu.Reg.Overflow = ((v & 0x40) != 0)
}

// Branch if MInus (negative)
func (cpu *CPU) bmi(inst *Instruction) {
	if cpu.Reg.Sign {
		cpu.branch()
	}
}

// Branch if Not Equal (not zero)
func (cpu *CPU) bne(inst *Instruction) {
	if !cpu.Reg.Zero {
		cpu.branch()
	}
}

// Branch if PLus (positive)
func (cpu *CPU) bpl(inst *Instruction) {
	if !cpu.Reg.Sign {
		cpu.branch()
	}
}

// Break
func (cpu *CPU) brk(inst *Instruction) {
	cpu.Reg.PC++
	cpu.handleInterrupt(true, vectorBRK)
}

// Branch if oVerflow Clear
func (cpu *CPU) bvc(inst *Instruction) {
	if !cpu.Reg.Overflow {
		cpu.branch()
	}
}

// Branch if oVerflow Set
func (cpu *CPU) bvs(inst *Instruction) {
	if cpu.Reg.Overflow {
		cpu.branch()
	}
}

// Clear Carry flag
func (cpu *CPU) clc(inst *Instruction) {
	cpu.Reg.Carry = false
}

// Clear Decimal flag
func (cpu *CPU) cld(inst *Instruction) {
	cpu.Reg.Decimal = false
}

// Clear InterruptDisable flag
func (cpu *CPU) cli(inst *Instruction) {
	cpu.Reg.InterruptDisable = false
}

// Clear oVerflow flag
func (cpu *CPU) clv(inst *Instruction) {
	cpu.Reg.Overflow = false
}

// Compare to accumulator
func (cpu *CPU) cmp(inst *Instruction) {
	cpu.compare(cpu.Reg.A, cpu.load(inst.Mode))
}

// Compare to X register
func (cpu *CPU) cpx(inst *Instruction) {
	cpu.compare(cpu.Reg.X, cpu.load(inst.Mode))
}

// Compare to Y register
func (cpu *CPU) cpy(inst *Instruction) {
	cpu.compare(cpu.Reg.Y, cpu.load(inst.Mode))
}

// Decrement memory and compare to accumulator (undocumented)
func (cpu *CPU) dcp(inst *Instruction) {
	v := cpu.load(inst.Mode) - 1
	cpu.store(inst.Mode, v)
	cpu.compare(cpu.Reg.A, v)
}

// Decrement memory value
func (cpu *CPU) dec(inst *Instruction) {
	v := cpu.load(inst.Mode) - 1
	cpu.updateNZ(v)
	cpu.store(inst.Mode, v)
}

// Decrement X register
func (cpu *CPU) dex(inst *Instruction) {
	cpu.Reg.X--
	cpu.updateNZ(cpu.Reg.X)
}

// Decrement Y register
func (cpu *CPU) dey(inst *Instruction) {
	cpu.Reg.Y--
	cpu.updateNZ(cpu.Reg.Y)
}

// Boolean XOR
func (cpu *CPU) eor(inst *Instruction) {
	cpu.Reg.A ^= cpu.load(inst.Mode)
	cpu.updateNZ(cpu.Reg.A)
}

// Increment memory value
func (cpu *CPU) inc(inst *Instruction) {
	v := cpu.load(inst.Mode) + 1
	cpu.updateNZ(v)
	cpu.store(inst.Mode, v)
}

// Increment X register
func (cpu *CPU) inx(inst *Instruction) {
	cpu.Reg.X++
	cpu.updateNZ(cpu.Reg.X)
}

// Increment Y register
func (cpu *CPU) iny(inst *Instruction) {
	cpu.Reg.Y++
	cpu.updateNZ(cpu.Reg.Y)
}

// Increment memory and subtract from accumulator (undocumented)
func (cpu *CPU) isb(inst *Instruction) {
	v := cpu.load(inst.Mode) + 1
	cpu.store(inst.Mode, v)
	cpu.subtract(v)
}

// Jump to memory address. An indirect pointer at $xxFF takes its high
// byte from $xx00.
func (cpu *CPU) jmp(inst *Instruction) {
	cpu.Reg.PC = cpu.EA
	cpu.runPatch(cpu.EA)
}

// Jump to subroutine
func (cpu *CPU) jsr(inst *Instruction) {
	cpu.pushAddress(cpu.Reg.PC - 1)
	cpu.Reg.PC = cpu.EA
	cpu.runPatch(cpu.EA)
}

// Load accumulator and X register (undocumented)
func (cpu *CPU) lax(inst *Instruction) {
	v := cpu.load(inst.Mode)
	cpu.Reg.A = v
	cpu.Reg.X = v
	cpu.updateNZ(v)
}

// load Accumulator
func (cpu *CPU) lda(inst *Instruction) {
	cpu.Reg.A = cpu.load(inst.Mode)
	cpu.updateNZ(cpu.Reg.A)
}

// load the X register
func (cpu *CPU) ldx(inst *Instruction) {
	cpu.Reg.X = cpu.load(inst.Mode)
	cpu.updateNZ(cpu.Reg.X)
}

// load the Y register
func (cpu *CPU) ldy(inst *Instruction) {
	cpu.Reg.Y = cpu.load(inst.Mode)
	cpu.updateNZ(cpu.Reg.Y)
}

// Logical Shift Right
func (cpu *CPU) lsr(inst *Instruction) {
	v := cpu.load(inst.Mode)
	cpu.Reg.Carry = ((v & 1) == 1)
	v = v >> 1
	cpu.updateNZ(v)
	cpu.store(inst.Mode, v)
}

// No-operation. Undocumented variants consume their operand.
func (cpu *CPU) nop(inst *Instruction) {
	// Do nothing
}

// Boolean OR
func (cpu *CPU) ora(inst *Instruction) {
	cpu.Reg.A |= cpu.load(inst.Mode)
	cpu.updateNZ(cpu.Reg.A)
}

// Push Accumulator
func (cpu *CPU) pha(inst *Instruction) {
	cpu.push(cpu.Reg.A)
}

// Push Processor flags
func (cpu *CPU) php(inst *Instruction) {
	cpu.push(cpu.Reg.SavePS(true))
}

// Pull (pop) Accumulator
func (cpu *CPU) pla(inst *Instruction) {
	cpu.Reg.A = cpu.pop()
	cpu.updateNZ(cpu.Reg.A)
}

// Pull (pop) Processor flags
func (cpu *CPU) plp(inst *Instruction) {
	v := cpu.pop()
	cpu.Reg.RestorePS(v)
}

// Rotate left then AND with accumulator (undocumented)
func (cpu *CPU) rla(inst *Instruction) {
	cpu.rol(inst)
	cpu.Reg.A &= cpu.load(inst.Mode)
	cpu.updateNZ(cpu.Reg.A)
}

// Rotate Left
func (cpu *CPU) rol(inst *Instruction) {
	tmp := cpu.load(inst.Mode)
	v := (tmp << 1) | boolToByte(cpu.Reg.Carry)
	cpu.Reg.Carry = ((tmp & 0x80) != 0)
	cpu.updateNZ(v)
	cpu.store(inst.Mode, v)
}

// Rotate Right
func (cpu *CPU) ror(inst *Instruction) {
	tmp := cpu.load(inst.Mode)
	v := (tmp >> 1) | (boolToByte(cpu.Reg.Carry) << 7)
	cpu.Reg.Carry = ((tmp & 1) != 0)
	cpu.updateNZ(v)
	cpu.store(inst.Mode, v)
}

// Rotate right then add to accumulator (undocumented)
func (cpu *CPU) rra(inst *Instruction) {
	cpu.ror(inst)
	cpu.add(cpu.load(inst.Mode))
}

// Return from Interrupt
func (cpu *CPU) rti(inst *Instruction) {
	v := cpu.pop()
	cpu.Reg.RestorePS(v)
	cpu.Reg.PC = cpu.popAddress()
}

// Return from Subroutine
func (cpu *CPU) rts(inst *Instruction) {
	addr := cpu.popAddress()
	cpu.Reg.PC = addr + 1
}

// Store accumulator AND X register (undocumented)
func (cpu *CPU) sax(inst *Instruction) {
	cpu.store(inst.Mode, cpu.Reg.A&cpu.Reg.X)
}

// Subtract with Carry
func (cpu *CPU) sbc(inst *Instruction) {
	cpu.subtract(cpu.load(inst.Mode))
}

// Set Carry flag
func (cpu *CPU) sec(inst *Instruction) {
	cpu.Reg.Carry = true
}

// Set Decimal flag
func (cpu *CPU) sed(inst *Instruction) {
	cpu.Reg.Decimal = true
}

// Set InterruptDisable flag
func (cpu *CPU) sei(inst *Instruction) {
	cpu.Reg.InterruptDisable = true
}

// Shift left then OR with accumulator (undocumented)
func (cpu *CPU) slo(inst *Instruction) {
	cpu.asl(inst)
	cpu.Reg.A |= cpu.load(inst.Mode)
	cpu.updateNZ(cpu.Reg.A)
}

// Shift right then XOR with accumulator (undocumented)
func (cpu *CPU) sre(inst *Instruction) {
	cpu.lsr(inst)
	cpu.Reg.A ^= cpu.load(inst.Mode)
	cpu.updateNZ(cpu.Reg.A)
}

// Store Accumulator
func (cpu *CPU) sta(inst *Instruction) {
	cpu.store(inst.Mode, cpu.Reg.A)
}

// Store X register
func (cpu *CPU) stx(inst *Instruction) {
	cpu.store(inst.Mode, cpu.Reg.X)
}

// Store Y register
func (cpu *CPU) sty(inst *Instruction) {
	cpu.store(inst.Mode, cpu.Reg.Y)
}

// Transfer Accumulator to X register
func (cpu *CPU) tax(inst *Instruction) {
	cpu.Reg.X = cpu.Reg.A
	cpu.updateNZ(cpu.Reg.X)
}

// Transfer Accumulator to Y register
func (cpu *CPU) tay(inst *Instruction) {
	cpu.Reg.Y = cpu.Reg.A
	cpu.updateNZ(cpu.Reg.Y)
}

// Transfer Stack pointer to X register
func (cpu *CPU) tsx(inst *Instruction) {
	cpu.Reg.X = cpu.Reg.SP
	cpu.updateNZ(cpu.Reg.X)
}

// Transfer X register to Accumulator
func (cpu *CPU) txa(inst *Instruction) {
	cpu.Reg.A = cpu.Reg.X
	cpu.updateNZ(cpu.Reg.A)
}

// Transfer X register to the Stack pointer
func (cpu *CPU) txs(inst *Instruction) {
	cpu.Reg.SP = cpu.Reg.X
}

// Transfer Y register to the Accumulator
func (cpu *CPU) tya(inst *Instruction) {
	cpu.Reg.A = cpu.Reg.Y
	cpu.updateNZ(cpu.Reg.A)
}
