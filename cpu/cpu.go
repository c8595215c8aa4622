// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cpu implements an NMOS 6502 interpreter with cycle metering,
// conditional breakpoints and host-call patches.
package cpu

// CPU represents a single NMOS 6502 CPU. It owns its registers,
// breakpoint table and patch table, and reaches memory only through the
// Mem interface.
type CPU struct {
	Reg       Registers       // CPU registers
	Mem       Memory          // assigned memory
	Cycles    uint64          // total executed CPU cycles
	CycleHack int             // Clock fetches a new instruction once the budget falls to this value
	Opcode    byte            // opcode of the instruction being executed
	EA        uint16          // effective address resolved for the current instruction
	RA        uint16          // sign-extended offset of the last relative operand
	LastPC    uint16          // address of the instruction being executed
	Last      Snapshot        // registers captured before the last debugger step
	InstSet   *InstructionSet // Instruction set used by the CPU

	budget          int
	breakpoints     breakpointTable
	dataBreakpoints map[uint16]*DataBreakpoint
	bpHandler       BreakpointHandler
	patches         patchTable
	patchesEnabled  bool
	storeByte       func(cpu *CPU, addr uint16, v byte)
}

// Interrupt vectors
const (
	vectorNMI   = 0xfffa
	vectorReset = 0xfffc
	vectorIRQ   = 0xfffe
	vectorBRK   = 0xfffe
)

// NewCPU creates an emulated 6502 CPU bound to the specified memory.
// Patches start enabled.
func NewCPU(m Memory) *CPU {
	cpu := &CPU{
		Mem:            m,
		InstSet:        GetInstructionSet(),
		patchesEnabled: true,
		storeByte:      (*CPU).storeByteNormal,
	}

	cpu.Reg.Init()
	return cpu
}

// Reset puts the CPU into its power-on state. The processor port at $00
// and $01 is initialized, the registers are cleared, the stack pointer is
// set to $FD and the program counter is loaded from the reset vector.
func (cpu *CPU) Reset() {
	cpu.Mem.StoreByte(0x00, 0x2f)
	cpu.Mem.StoreByte(0x01, 0x37)
	cpu.Reg.Init()
	cpu.Reg.PC = cpu.Mem.LoadAddress(vectorReset)
	cpu.budget = 0
	cpu.CycleHack = 0
}

// SetPC updates the CPU program counter to 'addr'.
func (cpu *CPU) SetPC(addr uint16) {
	cpu.Reg.PC = addr
}

// GetInstruction returns the instruction opcode at the requested address.
func (cpu *CPU) GetInstruction(addr uint16) *Instruction {
	opcode := cpu.Mem.LoadByte(addr)
	return cpu.InstSet.Lookup(opcode)
}

// NextAddr returns the address of the next instruction following the
// instruction at addr.
func (cpu *CPU) NextAddr(addr uint16) uint16 {
	opcode := cpu.Mem.LoadByte(addr)
	inst := cpu.InstSet.Lookup(opcode)
	return addr + uint16(inst.Length)
}

// Clock advances the CPU by a single cycle. The cycle budget left by the
// previous instruction is decremented; once it reaches CycleHack the next
// instruction is executed in full and its cost becomes the new budget.
// Clock returns true if an instruction was executed.
func (cpu *CPU) Clock() bool {
	cpu.budget--
	if cpu.budget > cpu.CycleHack {
		return false
	}
	cpu.budget = cpu.execute()
	return true
}

// FastClock executes exactly one instruction without consulting or
// updating the cycle budget.
func (cpu *CPU) FastClock() {
	cpu.execute()
}

// Budget returns the number of cycles the last executed instruction still
// owes before Clock fetches the next one.
func (cpu *CPU) Budget() int {
	return cpu.budget
}

// Execute the instruction at PC and return its cycle cost.
func (cpu *CPU) execute() int {
	cpu.LastPC = cpu.Reg.PC
	cpu.Opcode = cpu.Mem.LoadByte(cpu.Reg.PC)
	cpu.Reg.PC++

	inst := cpu.InstSet.Lookup(cpu.Opcode)
	cpu.Cycles += uint64(inst.Cycles)

	cpu.resolve(inst.Mode)
	inst.fn(cpu, inst)
	return int(inst.Cycles)
}

// Fetch the next operand byte and advance the PC.
func (cpu *CPU) fetch() byte {
	v := cpu.Mem.LoadByte(cpu.Reg.PC)
	cpu.Reg.PC++
	return v
}

// Fetch a 16-bit operand and advance the PC.
func (cpu *CPU) fetchAddress() uint16 {
	addr := cpu.Mem.LoadAddress(cpu.Reg.PC)
	cpu.Reg.PC += 2
	return addr
}

// Consume the operand of the current instruction and compute the
// effective address for the addressing mode.
func (cpu *CPU) resolve(mode Mode) {
	switch mode {
	case IMP, ACC:
		// no operand
	case IMM:
		cpu.EA = cpu.Reg.PC
		cpu.Reg.PC++
	case ZPG:
		cpu.EA = uint16(cpu.fetch())
	case ZPX:
		cpu.EA = offsetZeroPage(uint16(cpu.fetch()), cpu.Reg.X)
	case ZPY:
		cpu.EA = offsetZeroPage(uint16(cpu.fetch()), cpu.Reg.Y)
	case ABS:
		cpu.EA = cpu.fetchAddress()
	case ABX:
		cpu.EA = cpu.fetchAddress() + uint16(cpu.Reg.X)
	case ABY:
		cpu.EA = cpu.fetchAddress() + uint16(cpu.Reg.Y)
	case IDX:
		zpaddr := offsetZeroPage(uint16(cpu.fetch()), cpu.Reg.X)
		cpu.EA = loadPointer(cpu.Mem, zpaddr)
	case IDY:
		zpaddr := uint16(cpu.fetch())
		cpu.EA = loadPointer(cpu.Mem, zpaddr) + uint16(cpu.Reg.Y)
	case IND:
		cpu.EA = loadPointer(cpu.Mem, cpu.fetchAddress())
	case REL:
		cpu.RA = uint16(int16(int8(cpu.fetch())))
		cpu.EA = cpu.Reg.PC + cpu.RA
	default:
		panic("Invalid addressing mode")
	}
}

// Load the instruction's source value. ACC reads the accumulator; every
// other mode reads the resolved effective address.
func (cpu *CPU) load(mode Mode) byte {
	if mode == ACC {
		return cpu.Reg.A
	}
	return cpu.Mem.LoadByte(cpu.EA)
}

// Store a value to the instruction's destination.
func (cpu *CPU) store(mode Mode, v byte) {
	if mode == ACC {
		cpu.Reg.A = v
		return
	}
	cpu.storeByte(cpu, cpu.EA, v)
}

// Take a relative branch to the resolved target.
func (cpu *CPU) branch() {
	cpu.Reg.PC = cpu.EA
}

// Store the byte value 'v' add the address 'addr'.
func (cpu *CPU) storeByteNormal(addr uint16, v byte) {
	cpu.Mem.StoreByte(addr, v)
}

// Store the byte value 'v' add the address 'addr', notifying any data
// breakpoint set on it.
func (cpu *CPU) storeByteDebugger(addr uint16, v byte) {
	cpu.onDataStore(addr, v)
	cpu.Mem.StoreByte(addr, v)
}

// Push a value 'v' onto the stack.
func (cpu *CPU) push(v byte) {
	cpu.storeByte(cpu, stackAddress(cpu.Reg.SP), v)
	cpu.Reg.SP--
}

// Push the address 'addr' onto the stack.
func (cpu *CPU) pushAddress(addr uint16) {
	cpu.push(byte(addr >> 8))
	cpu.push(byte(addr))
}

// Pop a value from the stack and return it.
func (cpu *CPU) pop() byte {
	cpu.Reg.SP++
	return cpu.Mem.LoadByte(stackAddress(cpu.Reg.SP))
}

// Pop a 16-bit address off the stack.
func (cpu *CPU) popAddress() uint16 {
	lo := cpu.pop()
	hi := cpu.pop()
	return uint16(lo) | (uint16(hi) << 8)
}

// Update the Zero and Negative flags based on the value of 'v'.
func (cpu *CPU) updateNZ(v byte) {
	cpu.Reg.Zero = (v == 0)
	cpu.Reg.Sign = ((v & 0x80) != 0)
}

// Handle an interrupt by storing the program counter and status flags on
// the stack. Then switch the program counter to the requested address.
func (cpu *CPU) handleInterrupt(brk bool, addr uint16) {
	cpu.pushAddress(cpu.Reg.PC)
	cpu.push(cpu.Reg.SavePS(brk))

	cpu.Reg.InterruptDisable = true
	cpu.Reg.PC = cpu.Mem.LoadAddress(addr)
}

// IRQ raises a maskable interrupt. It is ignored while the interrupt
// disable flag is set.
func (cpu *CPU) IRQ() {
	if !cpu.Reg.InterruptDisable {
		cpu.handleInterrupt(false, vectorIRQ)
	}
}

// NMI raises a non-maskable interrupt.
func (cpu *CPU) NMI() {
	cpu.handleInterrupt(false, vectorNMI)
}

// ReturnFromSubroutine performs an RTS on behalf of a patch handler that
// has replaced the body of a subroutine.
func (cpu *CPU) ReturnFromSubroutine() {
	cpu.Reg.PC = cpu.popAddress() + 1
}

func boolToUint32(v bool) uint32 {
	if v {
		return 1
	}
	return 0
}
