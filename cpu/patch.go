// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpu

import (
	"errors"
	"sort"
)

// MaxPatches is the capacity of the patch table.
const MaxPatches = 32

// ErrPatchTableFull is returned by SetPatch when the table already holds
// MaxPatches entries.
var ErrPatchTableFull = errors.New("patch table full")

// A PatchFunc is called when a JMP or JSR lands on a patched address. The
// program counter already holds the target. A handler that replaces a
// subroutine typically finishes with ReturnFromSubroutine.
type PatchFunc func(cpu *CPU, label string)

// A Patch binds a host callback to a jump target.
type Patch struct {
	Address uint16    // JMP/JSR target that triggers the callback
	Label   string    // name passed to the callback
	Fn      PatchFunc // host callback
}

// patchTable is kept sorted by address for binary search.
type patchTable struct {
	entries []Patch
}

// SetPatch registers a callback on a JMP/JSR target address. A patch on
// an address that is already patched replaces the old one. When the table
// is full it is left unchanged and ErrPatchTableFull is returned.
func (cpu *CPU) SetPatch(addr uint16, fn PatchFunc, label string) error {
	t := &cpu.patches
	if p := t.lookup(addr); p != nil {
		p.Fn, p.Label = fn, label
		return nil
	}
	if len(t.entries) >= MaxPatches {
		return ErrPatchTableFull
	}
	t.entries = append(t.entries, Patch{Address: addr, Label: label, Fn: fn})
	sort.Slice(t.entries, func(i, j int) bool {
		return t.entries[i].Address < t.entries[j].Address
	})
	return nil
}

// RemovePatch removes the patch on addr. It returns false if the address
// was not patched.
func (cpu *CPU) RemovePatch(addr uint16) bool {
	t := &cpu.patches
	i := t.search(addr)
	if i == len(t.entries) || t.entries[i].Address != addr {
		return false
	}
	t.entries = append(t.entries[:i], t.entries[i+1:]...)
	return true
}

// LookupPatch returns the patch registered on addr, or nil.
func (cpu *CPU) LookupPatch(addr uint16) *Patch {
	return cpu.patches.lookup(addr)
}

// Patches returns a copy of the patch table in address order.
func (cpu *CPU) Patches() []Patch {
	p := make([]Patch, len(cpu.patches.entries))
	copy(p, cpu.patches.entries)
	return p
}

// EnablePatches turns patch callbacks on or off. Disabled patches stay in
// the table.
func (cpu *CPU) EnablePatches(on bool) {
	cpu.patchesEnabled = on
}

// PatchesEnabled returns true if patch callbacks are active.
func (cpu *CPU) PatchesEnabled() bool {
	return cpu.patchesEnabled
}

// Call the patch registered on a jump target, if any.
func (cpu *CPU) runPatch(addr uint16) {
	if !cpu.patchesEnabled {
		return
	}
	if p := cpu.patches.lookup(addr); p != nil {
		fn, label := p.Fn, p.Label
		fn(cpu, label)
	}
}

// Return the index of the first entry whose address is not below addr.
func (t *patchTable) search(addr uint16) int {
	return sort.Search(len(t.entries), func(i int) bool {
		return t.entries[i].Address >= addr
	})
}

func (t *patchTable) lookup(addr uint16) *Patch {
	i := t.search(addr)
	if i < len(t.entries) && t.entries[i].Address == addr {
		return &t.entries[i]
	}
	return nil
}
