// Copyright 2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package monitor implements a full-screen view of a running CPU. The
// screen shows the disassembly around the program counter, the registers
// and a page of memory, and single keys step or run the CPU.
//
//	i, F7     step in
//	o, F8     step over
//	u         step out
//	g         run to the next breakpoint
//	b         toggle a breakpoint at the program counter
//	up, down  scroll memory by one row
//	pgup/dn   scroll memory by one page
//	q, esc    leave the monitor
package monitor

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/beevik/mc6502/cpu"
	"github.com/beevik/mc6502/disasm"
	"github.com/jroimartin/gocui"
	"golang.org/x/term"
)

// MaxRunInstructions bounds a single run command.
const MaxRunInstructions = 10000000

// Minimum terminal size.
const (
	minWidth  = 80
	minHeight = 24
)

// ErrTerminal is returned by Run when standard output is not a terminal
// of at least 80x24 characters.
var ErrTerminal = errors.New("monitor needs an 80x24 terminal")

// Options configure a monitor.
type Options struct {
	Annotations map[uint16]string // comments shown next to disassembled lines
	MemAddr     uint16            // first address of the memory view
}

// A Monitor holds the view state. Its methods render text for each view
// and carry out the key commands, independently of the terminal.
type Monitor struct {
	cpu     *cpu.CPU
	opts    Options
	memAddr uint16
	status  string
}

// New creates a monitor for the CPU.
func New(c *cpu.CPU, opts Options) *Monitor {
	return &Monitor{
		cpu:     c,
		opts:    opts,
		memAddr: opts.MemAddr &^ 7,
	}
}

// Run opens the monitor on the terminal and returns when the user leaves
// it.
func Run(c *cpu.CPU, opts Options) error {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return ErrTerminal
	}
	if w, h, err := term.GetSize(fd); err != nil || w < minWidth || h < minHeight {
		return ErrTerminal
	}

	g, err := gocui.NewGui(gocui.OutputNormal)
	if err != nil {
		return err
	}
	defer g.Close()

	m := New(c, opts)
	g.SetManagerFunc(m.layout)
	if err := m.bindKeys(g); err != nil {
		return err
	}

	if err := g.MainLoop(); err != nil && err != gocui.ErrQuit {
		return err
	}
	return nil
}

// Disassembly returns n lines of disassembly with the program counter on
// the third line. The current instruction is marked with '>' and
// breakpoints with '*'.
func (m *Monitor) Disassembly(n int) []string {
	mem := m.cpu.Mem
	addr := disasm.RollPrevious(mem, m.cpu.Reg.PC, 2)

	lines := make([]string, 0, n)
	for i := 0; i < n; i++ {
		line, next := disasm.Disassemble(mem, addr)

		mark := "  "
		switch {
		case addr == m.cpu.Reg.PC:
			mark = "> "
		case m.cpu.FindBreakpoint(addr) != nil:
			mark = "* "
		}
		if anno, ok := m.opts.Annotations[addr]; ok {
			line = fmt.Sprintf("%-24s ; %s", line, anno)
		}
		lines = append(lines, mark+line)
		addr = next
	}
	return lines
}

// Registers returns the register view.
func (m *Monitor) Registers() []string {
	r := &m.cpu.Reg
	flag := func(on bool, c byte) byte {
		if on {
			return c
		}
		return '-'
	}
	flags := []byte{
		flag(r.Sign, 'N'), flag(r.Overflow, 'V'), '-', '-',
		flag(r.Decimal, 'D'), flag(r.InterruptDisable, 'I'),
		flag(r.Zero, 'Z'), flag(r.Carry, 'C'),
	}
	return []string{
		fmt.Sprintf("PC  %04X", r.PC),
		fmt.Sprintf("A   %02X", r.A),
		fmt.Sprintf("X   %02X", r.X),
		fmt.Sprintf("Y   %02X", r.Y),
		fmt.Sprintf("SP  %02X", r.SP),
		fmt.Sprintf("PS  %s", flags),
		fmt.Sprintf("CYC %d", m.cpu.Cycles),
	}
}

// Memory returns n rows of 8 bytes starting at the memory view address.
func (m *Monitor) Memory(n int) []string {
	lines := make([]string, 0, n)
	addr := m.memAddr
	b := make([]byte, 8)
	for i := 0; i < n; i++ {
		m.cpu.Mem.LoadBytes(addr, b)
		var hex, text strings.Builder
		for _, v := range b {
			fmt.Fprintf(&hex, " %02X", v)
			if v >= 32 && v < 127 {
				text.WriteByte(v)
			} else {
				text.WriteByte('.')
			}
		}
		lines = append(lines, fmt.Sprintf("%04X:%s  %s", addr, hex.String(), text.String()))
		addr += 8
	}
	return lines
}

// Status returns the message left by the last command.
func (m *Monitor) Status() string {
	return m.status
}

// StepIn executes one instruction.
func (m *Monitor) StepIn() {
	m.cpu.StepIn()
	m.status = ""
}

// StepOver executes one instruction, running subroutine calls to
// completion.
func (m *Monitor) StepOver() {
	m.cpu.StepOver()
	m.status = ""
}

// StepOut runs until the current subroutine returns.
func (m *Monitor) StepOut() {
	n := m.cpu.StepOut()
	m.status = fmt.Sprintf("Stepped out after %d instructions.", n)
}

// RunToBreakpoint runs until an enabled breakpoint stops the CPU or
// MaxRunInstructions have executed. A breakpoint on the starting address
// does not stop the CPU, and trace breakpoints never do.
func (m *Monitor) RunToBreakpoint() {
	for n := 0; n < MaxRunInstructions; n++ {
		if n > 0 {
			if b := m.cpu.HitsBreakpoint(); b != nil && b.Flags&cpu.BreakpointTrace == 0 {
				m.status = fmt.Sprintf("Breakpoint hit at $%04X.", b.Address)
				return
			}
		}
		m.cpu.StepIn()
	}
	m.status = fmt.Sprintf("Stopped after %d instructions.", MaxRunInstructions)
}

// ToggleBreakpoint adds a breakpoint at the program counter, or removes
// the one already there.
func (m *Monitor) ToggleBreakpoint() {
	pc := m.cpu.Reg.PC
	if m.cpu.RemoveBreakpoint(pc) {
		m.status = fmt.Sprintf("Breakpoint at $%04X removed.", pc)
		return
	}
	_, err := m.cpu.AddBreakpoint(cpu.Breakpoint{Address: pc, Flags: cpu.BreakpointEnable})
	if err != nil {
		m.status = err.Error()
		return
	}
	m.status = fmt.Sprintf("Breakpoint added at $%04X.", pc)
}

// ScrollMemory moves the memory view by a number of 8-byte rows.
func (m *Monitor) ScrollMemory(rows int) {
	m.memAddr = uint16(int(m.memAddr) + rows*8)
}

func (m *Monitor) layout(g *gocui.Gui) error {
	maxX, maxY := g.Size()
	split := maxX - 22
	memTop := maxY - 11

	if err := m.render(g, "disasm", " Disassembly ", 0, 0, split-1, memTop-1, func(v *gocui.View) []string {
		_, h := v.Size()
		return m.Disassembly(h)
	}); err != nil {
		return err
	}
	if err := m.render(g, "regs", " Registers ", split, 0, maxX-1, memTop-1, func(*gocui.View) []string {
		return m.Registers()
	}); err != nil {
		return err
	}
	if err := m.render(g, "memory", " Memory ", 0, memTop, maxX-1, maxY-2, func(v *gocui.View) []string {
		_, h := v.Size()
		return m.Memory(h)
	}); err != nil {
		return err
	}

	v, err := g.SetView("status", -1, maxY-2, maxX, maxY)
	if err != nil && err != gocui.ErrUnknownView {
		return err
	}
	v.Frame = false
	v.Clear()
	fmt.Fprint(v, m.status)
	return nil
}

func (m *Monitor) render(g *gocui.Gui, name, title string, x0, y0, x1, y1 int, lines func(v *gocui.View) []string) error {
	v, err := g.SetView(name, x0, y0, x1, y1)
	if err != nil && err != gocui.ErrUnknownView {
		return err
	}
	v.Title = title
	v.Clear()
	for _, l := range lines(v) {
		fmt.Fprintln(v, l)
	}
	return nil
}

func (m *Monitor) bindKeys(g *gocui.Gui) error {
	action := func(fn func()) func(*gocui.Gui, *gocui.View) error {
		return func(*gocui.Gui, *gocui.View) error {
			fn()
			return nil
		}
	}
	quit := func(*gocui.Gui, *gocui.View) error {
		return gocui.ErrQuit
	}

	bindings := []struct {
		key     any
		handler func(*gocui.Gui, *gocui.View) error
	}{
		{'i', action(m.StepIn)},
		{gocui.KeyF7, action(m.StepIn)},
		{'o', action(m.StepOver)},
		{gocui.KeyF8, action(m.StepOver)},
		{'u', action(m.StepOut)},
		{'g', action(m.RunToBreakpoint)},
		{'b', action(m.ToggleBreakpoint)},
		{gocui.KeyArrowUp, action(func() { m.ScrollMemory(-1) })},
		{gocui.KeyArrowDown, action(func() { m.ScrollMemory(1) })},
		{gocui.KeyPgup, action(func() { m.ScrollMemory(-8) })},
		{gocui.KeyPgdn, action(func() { m.ScrollMemory(8) })},
		{'q', quit},
		{gocui.KeyEsc, quit},
		{gocui.KeyCtrlC, quit},
	}
	for _, b := range bindings {
		if err := g.SetKeybinding("", b.key, gocui.ModNone, b.handler); err != nil {
			return err
		}
	}
	return nil
}
