// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpu

// The Memory interface presents an interface to the CPU through which all
// memory accesses occur. LoadByte and StoreByte are the machine's peek and
// poke; they never fail.
type Memory interface {
	// LoadByte loads a single byte from the address and returns it.
	LoadByte(addr uint16) byte

	// LoadBytes loads multiple bytes from the address and stores them into
	// the buffer 'b'.
	LoadBytes(addr uint16, b []byte)

	// LoadAddress loads a little-endian 16-bit value from the requested
	// address and returns it.
	LoadAddress(addr uint16) uint16

	// StoreByte stores a byte to the requested address.
	StoreByte(addr uint16, v byte)

	// StoreBytes stores multiple bytes to the requested address.
	StoreBytes(addr uint16, b []byte)
}

// FlatMemory represents an entire 16-bit address space as a singular
// 64K buffer.
type FlatMemory struct {
	b [64 * 1024]byte
}

// NewFlatMemory creates a new 16-bit memory space.
func NewFlatMemory() *FlatMemory {
	return &FlatMemory{}
}

// LoadByte loads a single byte from the address and returns it.
func (m *FlatMemory) LoadByte(addr uint16) byte {
	return m.b[addr]
}

// LoadBytes loads multiple bytes from the address. Reads past the end of
// the address space wrap around to $0000.
func (m *FlatMemory) LoadBytes(addr uint16, b []byte) {
	for i := range b {
		b[i] = m.b[addr+uint16(i)]
	}
}

// LoadAddress loads a 16-bit value from addr and addr+1.
func (m *FlatMemory) LoadAddress(addr uint16) uint16 {
	return uint16(m.b[addr]) | uint16(m.b[addr+1])<<8
}

// StoreByte stores a byte at the requested address.
func (m *FlatMemory) StoreByte(addr uint16, v byte) {
	m.b[addr] = v
}

// StoreBytes stores multiple bytes to the requested address, wrapping
// around at the top of the address space.
func (m *FlatMemory) StoreBytes(addr uint16, b []byte) {
	for i, v := range b {
		m.b[addr+uint16(i)] = v
	}
}

// MemoryFuncs adapts a pair of peek and poke functions supplied by an
// embedding application to the Memory interface.
type MemoryFuncs struct {
	Peek func(addr uint16) byte
	Poke func(addr uint16, v byte)
}

// LoadByte calls Peek.
func (m MemoryFuncs) LoadByte(addr uint16) byte {
	return m.Peek(addr)
}

// LoadBytes calls Peek once for each byte of b.
func (m MemoryFuncs) LoadBytes(addr uint16, b []byte) {
	for i := range b {
		b[i] = m.Peek(addr + uint16(i))
	}
}

// LoadAddress reads a little-endian 16-bit value with two calls to Peek.
func (m MemoryFuncs) LoadAddress(addr uint16) uint16 {
	return uint16(m.Peek(addr)) | uint16(m.Peek(addr+1))<<8
}

// StoreByte calls Poke.
func (m MemoryFuncs) StoreByte(addr uint16, v byte) {
	m.Poke(addr, v)
}

// StoreBytes calls Poke once for each byte of b.
func (m MemoryFuncs) StoreBytes(addr uint16, b []byte) {
	for i, v := range b {
		m.Poke(addr+uint16(i), v)
	}
}

// Load a 16-bit pointer without carrying into the high byte of the
// pointer's own address. A pointer at $12FF takes its high byte from
// $1200. Zero-page pointers therefore never leave page zero.
func loadPointer(m Memory, addr uint16) uint16 {
	hi := (addr & 0xff00) | ((addr + 1) & 0x00ff)
	return uint16(m.LoadByte(addr)) | uint16(m.LoadByte(hi))<<8
}

// Offset a zero-page address 'addr' by 'offset'. If the address
// exceeds the zero-page address space, wrap it.
func offsetZeroPage(addr uint16, offset byte) uint16 {
	return (addr + uint16(offset)) & 0xff
}

// Given a 1-byte stack pointer register, return the stack
// corresponding memory address.
func stackAddress(offset byte) uint16 {
	return uint16(0x100) + uint16(offset)
}
