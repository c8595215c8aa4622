// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpu

import (
	"errors"
	"sort"
)

// MaxBreakpoints is the capacity of the execution breakpoint table.
const MaxBreakpoints = 20

// ErrBreakpointTableFull is returned by AddBreakpoint when the table
// already holds MaxBreakpoints entries.
var ErrBreakpointTableFull = errors.New("breakpoint table full")

// BreakpointFlags select how a breakpoint behaves.
type BreakpointFlags byte

// Breakpoint flag bits
const (
	BreakpointEnable BreakpointFlags = 1 << iota // breakpoint is active
	BreakpointTrace                              // report the hit but keep running
	ConditionA                                   // hit only when A matches
	ConditionX                                   // hit only when X matches
	ConditionY                                   // hit only when Y matches
)

// A Breakpoint represents an address that will cause the debugger to stop
// code execution when the program counter reaches it. Condition flags
// further restrict the hit to specific register values.
type Breakpoint struct {
	Address uint16          // address of execution breakpoint
	A       byte            // accumulator value required by ConditionA
	X       byte            // X register value required by ConditionX
	Y       byte            // Y register value required by ConditionY
	Flags   BreakpointFlags // enable, trace and condition bits
}

// Enabled returns true if the breakpoint is active.
func (b *Breakpoint) Enabled() bool {
	return b.Flags&BreakpointEnable != 0
}

// matches returns true if the register conditions of the breakpoint hold.
func (b *Breakpoint) matches(r *Registers) bool {
	if b.Flags&ConditionA != 0 && r.A != b.A {
		return false
	}
	if b.Flags&ConditionX != 0 && r.X != b.X {
		return false
	}
	if b.Flags&ConditionY != 0 && r.Y != b.Y {
		return false
	}
	return true
}

// A DataBreakpoint represents an address that will cause the debugger to
// stop executing code when a byte is stored to it.
type DataBreakpoint struct {
	Address     uint16 // breakpoint triggered by stores to this address
	Disabled    bool   // this breakpoint is currently disabled
	Conditional bool   // this breakpoint is conditional on a certain Value being stored
	Value       byte   // the value that must be stored if the breakpoint is conditional
}

// The BreakpointHandler interface should be implemented by any object that
// wishes to receive breakpoint notifications.
type BreakpointHandler interface {
	OnBreakpoint(cpu *CPU, b *Breakpoint)
	OnDataBreakpoint(cpu *CPU, b *DataBreakpoint)
}

type breakpointTable struct {
	entries [MaxBreakpoints]Breakpoint
	n       int
}

// AttachBreakpointHandler installs the handler notified by HitsBreakpoint
// and by data breakpoints.
func (cpu *CPU) AttachBreakpointHandler(h BreakpointHandler) {
	cpu.bpHandler = h
}

// AddBreakpoint appends a breakpoint to the table. A breakpoint with no
// flags is treated as a plain enabled breakpoint. When the table is full
// it is left unchanged and ErrBreakpointTableFull is returned.
func (cpu *CPU) AddBreakpoint(b Breakpoint) (*Breakpoint, error) {
	t := &cpu.breakpoints
	if t.n >= MaxBreakpoints {
		return nil, ErrBreakpointTableFull
	}
	if b.Flags == 0 {
		b.Flags = BreakpointEnable
	}
	t.entries[t.n] = b
	t.n++
	return &t.entries[t.n-1], nil
}

// FindBreakpoint returns the first breakpoint at addr, or nil.
func (cpu *CPU) FindBreakpoint(addr uint16) *Breakpoint {
	t := &cpu.breakpoints
	for i := 0; i < t.n; i++ {
		if t.entries[i].Address == addr {
			return &t.entries[i]
		}
	}
	return nil
}

// RemoveBreakpoint removes the first breakpoint at addr. The last entry
// of the table takes its slot. It returns false if no breakpoint was set.
func (cpu *CPU) RemoveBreakpoint(addr uint16) bool {
	t := &cpu.breakpoints
	for i := 0; i < t.n; i++ {
		if t.entries[i].Address == addr {
			t.n--
			t.entries[i] = t.entries[t.n]
			t.entries[t.n] = Breakpoint{}
			return true
		}
	}
	return false
}

// Breakpoints returns a copy of the breakpoint table sorted by address.
func (cpu *CPU) Breakpoints() []Breakpoint {
	t := &cpu.breakpoints
	bps := make([]Breakpoint, t.n)
	copy(bps, t.entries[:t.n])
	sort.SliceStable(bps, func(i, j int) bool {
		return bps[i].Address < bps[j].Address
	})
	return bps
}

// HitsBreakpoint checks the breakpoint table against the current program
// counter. When several entries share the address, the one added last
// decides. The breakpoint is returned, after notifying the handler, only
// if it is enabled and its register conditions hold.
func (cpu *CPU) HitsBreakpoint() *Breakpoint {
	t := &cpu.breakpoints
	var b *Breakpoint
	for i := 0; i < t.n; i++ {
		if t.entries[i].Address == cpu.Reg.PC {
			b = &t.entries[i]
		}
	}
	if b == nil || !b.Enabled() || !b.matches(&cpu.Reg) {
		return nil
	}
	if cpu.bpHandler != nil {
		cpu.bpHandler.OnBreakpoint(cpu, b)
	}
	return b
}

// GetDataBreakpoint looks up a data breakpoint on the provided address
// and returns it if found. Otherwise it returns nil.
func (cpu *CPU) GetDataBreakpoint(addr uint16) *DataBreakpoint {
	return cpu.dataBreakpoints[addr]
}

// GetDataBreakpoints returns all data breakpoints sorted by address.
func (cpu *CPU) GetDataBreakpoints() []*DataBreakpoint {
	var breakpoints []*DataBreakpoint
	for _, b := range cpu.dataBreakpoints {
		breakpoints = append(breakpoints, b)
	}
	sort.Slice(breakpoints, func(i, j int) bool {
		return breakpoints[i].Address < breakpoints[j].Address
	})
	return breakpoints
}

// AddDataBreakpoint adds an unconditional data breakpoint on the requested
// address.
func (cpu *CPU) AddDataBreakpoint(addr uint16) *DataBreakpoint {
	return cpu.setDataBreakpoint(&DataBreakpoint{Address: addr})
}

// AddConditionalDataBreakpoint adds a data breakpoint that triggers only
// when 'value' is stored to the address.
func (cpu *CPU) AddConditionalDataBreakpoint(addr uint16, value byte) *DataBreakpoint {
	return cpu.setDataBreakpoint(&DataBreakpoint{
		Address:     addr,
		Conditional: true,
		Value:       value,
	})
}

func (cpu *CPU) setDataBreakpoint(b *DataBreakpoint) *DataBreakpoint {
	if cpu.dataBreakpoints == nil {
		cpu.dataBreakpoints = make(map[uint16]*DataBreakpoint)
		cpu.storeByte = (*CPU).storeByteDebugger
	}
	cpu.dataBreakpoints[b.Address] = b
	return b
}

// RemoveDataBreakpoint removes a (conditional or unconditional) data
// breakpoint at the requested address.
func (cpu *CPU) RemoveDataBreakpoint(addr uint16) {
	delete(cpu.dataBreakpoints, addr)
	if len(cpu.dataBreakpoints) == 0 {
		cpu.dataBreakpoints = nil
		cpu.storeByte = (*CPU).storeByteNormal
	}
}

func (cpu *CPU) onDataStore(addr uint16, v byte) {
	if cpu.bpHandler != nil {
		if b, ok := cpu.dataBreakpoints[addr]; ok && !b.Disabled {
			if !b.Conditional || b.Value == v {
				cpu.bpHandler.OnDataBreakpoint(cpu, b)
			}
		}
	}
}
