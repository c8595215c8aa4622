// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpu

// MaxStepOutInstructions bounds the number of instructions StepOut
// executes before giving up.
const MaxStepOutInstructions = 1000000

// Opcodes that end a StepOut.
const (
	opcodeJSR = 0x20
	opcodeRTI = 0x40
	opcodeRTS = 0x60
)

// StepIn records the registers in Last and executes exactly one
// instruction through Clock.
func (cpu *CPU) StepIn() {
	cpu.Last = cpu.Reg.Snapshot()
	cpu.clockNow()
}

// StepOut records the registers in Last, then executes instructions
// until the current subroutine or interrupt handler returns. Calls made
// along the way run to completion. Execution also stops when the program
// counter comes back to where it started, or after
// MaxStepOutInstructions instructions. The number of instructions
// executed is returned.
func (cpu *CPU) StepOut() int {
	cpu.Last = cpu.Reg.Snapshot()
	return cpu.runToReturn(0)
}

// StepOver executes a JSR at the program counter along with the whole
// subroutine it calls. Any other instruction is executed with StepIn.
func (cpu *CPU) StepOver() {
	if cpu.Mem.LoadByte(cpu.Reg.PC) != opcodeJSR {
		cpu.StepIn()
		return
	}

	cpu.Last = cpu.Reg.Snapshot()
	cpu.clockNow()

	// A patch on the target may already have returned.
	if cpu.Reg.SP == cpu.Last.SP {
		return
	}
	cpu.runToReturn(1)
}

// Execute instructions until a return balances the current call depth.
func (cpu *CPU) runToReturn(n int) int {
	depth := 0
	start := cpu.Last.PC
	for ; n < MaxStepOutInstructions; n++ {
		sp := cpu.Reg.SP
		cpu.clockNow()
		switch cpu.Opcode {
		case opcodeJSR:
			// A patched call that returned leaves the stack unchanged.
			if cpu.Reg.SP != sp {
				depth++
			}
		case opcodeRTS, opcodeRTI:
			if depth == 0 {
				return n + 1
			}
			depth--
		}
		if cpu.Reg.PC == start {
			return n + 1
		}
	}
	return n
}

// Force the budget so the next Clock executes an instruction.
func (cpu *CPU) clockNow() {
	cpu.budget = cpu.CycleHack + 1
	cpu.Clock()
}
