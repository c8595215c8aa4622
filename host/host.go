// Copyright 2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package host allows you to create a "host" that emulates a computer system
// with a 6502 CPU, 64K of memory, a built-in assembler, a built-in debugger,
// a replacement KERNAL and other useful tools.
//
// Within the host it is possible to assemble and load machine code into
// memory, debug and step through machine code, measure the number of CPU
// cycles elapsed, set address and data breakpoints, patch jump targets with
// host callbacks, dump the contents of memory, disassemble the contents of
// memory, manipulate CPU registers and memory, run Lua scripts and evaluate
// arbitrary expressions.
package host

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync/atomic"

	"github.com/beevik/cmd"
	"github.com/beevik/mc6502/asm"
	"github.com/beevik/mc6502/cpu"
	"github.com/beevik/mc6502/disasm"
	"github.com/beevik/mc6502/kernal"
	"github.com/beevik/mc6502/monitor"
	lua "github.com/yuin/gopher-lua"
)

type displayFlags uint8

const (
	displayRegisters displayFlags = 1 << iota
	displayCycles
	displayAnnotations

	displayAll = displayRegisters | displayCycles | displayAnnotations
)

type state byte

const (
	stateProcessingCommands state = iota
	stateRunning
	stateBreakpoint
	stateInterrupted
)

var errQuit = errors.New("exiting program")

// A Host represents a fully emulated 6502 system, 64K of memory, a built-in
// assembler, a built-in debugger, and other useful tools.
type Host struct {
	input       *bufio.Scanner
	output      *bufio.Writer
	interactive bool
	mem         *cpu.FlatMemory
	cpu         *cpu.CPU
	asm         *asm.Assembler
	kernal      *kernal.Kernal
	lastCmd     *cmd.Selection
	state       state
	interrupted atomic.Bool
	exprParser  *exprParser
	settings    *settings
	annotations map[uint16]string
	lua         *lua.LState
	scriptQuit  bool
}

// New creates a new 6502 host environment. The KERNAL routines are
// available to the patch command but none is installed.
func New() *Host {
	h := &Host{
		input:       bufio.NewScanner(strings.NewReader("")),
		output:      bufio.NewWriter(io.Discard),
		state:       stateProcessingCommands,
		exprParser:  newExprParser(),
		settings:    newSettings(),
		annotations: make(map[uint16]string),
	}

	h.mem = cpu.NewFlatMemory()
	h.cpu = cpu.NewCPU(h.mem)
	h.cpu.AttachBreakpointHandler(newDebugHandler(h))
	h.asm = asm.New(h.mem)
	h.kernal = kernal.New(kernal.Config{Output: screen{h}})

	h.onSettingsUpdate()
	return h
}

// CPU returns the emulated CPU.
func (h *Host) CPU() *cpu.CPU {
	return h.cpu
}

// InstallKernal patches every KERNAL routine into the CPU. Files are read
// from and written to the storage, and the keyboard reads from 'in'.
// Screen output goes to the host's output.
func (h *Host) InstallKernal(s kernal.Storage, in io.Reader) error {
	cfg := kernal.Config{
		Storage: s,
		Input:   in,
		Output:  screen{h},
	}
	if ds, ok := s.(kernal.DirStorage); ok {
		cfg.DiskName = filepath.Base(ds.Dir)
	}
	k, err := kernal.Install(h.cpu, cfg)
	if err != nil {
		return err
	}
	h.kernal = k
	return nil
}

// AssembleFile assembles a source file into memory and returns the
// address following the generated code.
func (h *Host) AssembleFile(filename string) (uint16, error) {
	f, err := os.Open(filename)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	if err := h.asm.AssembleLines(f); err != nil {
		return 0, fmt.Errorf("%s: %w", filepath.Base(filename), err)
	}
	return h.asm.Origin(), nil
}

// RunCommands accepts host commands from a reader and outputs the results
// to a writer. If the commands are interactive, a prompt is displayed while
// the host waits for the the next command to be entered. It returns false
// if a quit command was processed.
func (h *Host) RunCommands(r io.Reader, w io.Writer, interactive bool) bool {
	h.input = bufio.NewScanner(r)
	h.output = bufio.NewWriter(w)
	h.interactive = interactive

	if interactive {
		h.println()
	}

	h.displayPC()
	return h.processCommands() != errQuit
}

func (h *Host) processCommands() error {
	for {
		h.prompt()

		line, err := h.getLine()
		if err != nil {
			return nil
		}

		var c cmd.Selection
		if line != "" {
			c, err = cmds.Lookup(line)
			switch {
			case err == cmd.ErrNotFound:
				h.println("Command not found.")
				continue
			case err == cmd.ErrAmbiguous:
				h.println("Command is ambiguous.")
				continue
			case err != nil:
				h.printf("ERROR: %v.\n", err)
				continue
			}
			if commandOf(c) == nil {
				if g := findGroup(strings.Fields(line)[0]); g != nil {
					h.displayGroup(g)
				}
				continue
			}
		} else if h.lastCmd != nil {
			c = *h.lastCmd
		}

		cc := commandOf(c)
		if cc == nil {
			continue
		}
		h.lastCmd = &c

		err = cc.handler(h, c)
		if err != nil {
			return err
		}
	}
}

// Break interrupts a running CPU. It may be called from any goroutine;
// the run loop picks the request up before its next instruction.
func (h *Host) Break() {
	h.interrupted.Store(true)
}

// Report whether the CPU should keep running, taking any pending break.
func (h *Host) running() bool {
	if h.interrupted.Swap(false) && h.state == stateRunning {
		h.state = stateInterrupted
		h.println()
		h.displayPC()
	}
	return h.state == stateRunning
}

// Enter the running state, dropping breaks requested while idle.
func (h *Host) startRunning() {
	h.interrupted.Store(false)
	h.state = stateRunning
}

// A screen sends KERNAL output to the host's writer.
type screen struct {
	h *Host
}

func (s screen) Write(p []byte) (int, error) {
	n, err := s.h.output.Write(p)
	s.h.flush()
	return n, err
}

func (h *Host) print(args ...any) {
	fmt.Fprint(h.output, args...)
}

func (h *Host) printf(format string, args ...any) {
	fmt.Fprintf(h.output, format, args...)
	h.flush()
}

func (h *Host) println(args ...any) {
	fmt.Fprintln(h.output, args...)
	h.flush()
}

func (h *Host) flush() {
	h.output.Flush()
}

func (h *Host) getLine() (string, error) {
	if h.input.Scan() {
		return strings.TrimSpace(h.input.Text()), nil
	}
	if h.input.Err() != nil {
		return "", h.input.Err()
	}
	return "", io.EOF
}

func (h *Host) prompt() {
	if h.interactive {
		h.print("* ")
		h.flush()
	}
}

func (h *Host) displayPC() {
	if h.interactive {
		d, _ := h.disassemble(h.cpu.Reg.PC, displayAll)
		h.println(d)
	}
}

// Return the command selected by a lookup, or nil if the selection is a
// command group.
func commandOf(c cmd.Selection) *command {
	if c.Command == nil {
		return nil
	}
	cc, _ := c.Command.Data.(*command)
	return cc
}

func (h *Host) cmdAnnotate(c cmd.Selection) error {
	if len(c.Args) < 1 {
		h.displayHelpText(c)
		return nil
	}

	addr, err := h.parseExpr(c.Args[0])
	if err != nil {
		h.printf("%v\n", err)
		return nil
	}

	var annotation string
	if len(c.Args) >= 2 {
		annotation = strings.Join(c.Args[1:], " ")
	}

	if annotation == "" {
		delete(h.annotations, addr)
		h.printf("Annotation removed at $%04X.\n", addr)
	} else {
		h.annotations[addr] = annotation
		h.printf("Annotation added at $%04X.\n", addr)
	}

	return nil
}

func (h *Host) cmdAssembleFile(c cmd.Selection) error {
	if len(c.Args) < 1 {
		h.displayHelpText(c)
		return nil
	}

	filename := c.Args[0]
	if filepath.Ext(filename) == "" {
		filename += ".asm"
	}

	if len(c.Args) >= 2 {
		origin, err := h.parseExpr(c.Args[1])
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		h.asm.SetOrigin(origin)
	}

	next, err := h.AssembleFile(filename)
	if err != nil {
		h.printf("Failed to assemble: %v\n", err)
		return nil
	}

	h.printf("Assembled '%s'. Next address is $%04X.\n", filepath.Base(filename), next)
	return nil
}

func (h *Host) cmdAssembleLine(c cmd.Selection) error {
	if len(c.Args) < 1 {
		h.displayHelpText(c)
		return nil
	}

	start := h.asm.Origin()
	err := h.asm.Compile(strings.Join(c.Args, " ") + "\x00")
	if err != nil {
		h.printf("%v\n", err)
		return nil
	}

	for addr := start; addr < h.asm.Origin(); {
		var d string
		d, addr = h.disassemble(addr, displayAnnotations)
		h.println(d)
	}
	return nil
}

func (h *Host) cmdBreakpointList(c cmd.Selection) error {
	h.println("Addr  Enabled  Trace  Condition")
	h.println("----- -------  -----  ---------")
	for _, b := range h.cpu.Breakpoints() {
		h.printf("$%04X %-7v  %-5v  %s\n", b.Address, b.Enabled(),
			b.Flags&cpu.BreakpointTrace != 0, conditionString(&b))
	}
	return nil
}

func conditionString(b *cpu.Breakpoint) string {
	var cond []string
	if b.Flags&cpu.ConditionA != 0 {
		cond = append(cond, fmt.Sprintf("A=$%02X", b.A))
	}
	if b.Flags&cpu.ConditionX != 0 {
		cond = append(cond, fmt.Sprintf("X=$%02X", b.X))
	}
	if b.Flags&cpu.ConditionY != 0 {
		cond = append(cond, fmt.Sprintf("Y=$%02X", b.Y))
	}
	if len(cond) == 0 {
		return "<none>"
	}
	return strings.Join(cond, " ")
}

func (h *Host) cmdBreakpointAdd(c cmd.Selection) error {
	if len(c.Args) < 1 {
		h.displayHelpText(c)
		return nil
	}

	addr, err := h.parseExpr(c.Args[0])
	if err != nil {
		h.printf("%v\n", err)
		return nil
	}

	b := cpu.Breakpoint{Address: addr, Flags: cpu.BreakpointEnable}
	for _, arg := range c.Args[1:] {
		key, value, ok := strings.Cut(strings.ToLower(arg), "=")
		if !ok {
			if key != "trace" {
				h.printf("Unknown breakpoint option '%s'.\n", arg)
				return nil
			}
			b.Flags |= cpu.BreakpointTrace
			continue
		}

		v, err := h.parseExpr(value)
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		switch key {
		case "a":
			b.A, b.Flags = byte(v), b.Flags|cpu.ConditionA
		case "x":
			b.X, b.Flags = byte(v), b.Flags|cpu.ConditionX
		case "y":
			b.Y, b.Flags = byte(v), b.Flags|cpu.ConditionY
		default:
			h.printf("Unknown breakpoint condition '%s'.\n", key)
			return nil
		}
	}

	if _, err := h.cpu.AddBreakpoint(b); err != nil {
		h.printf("%v\n", err)
		return nil
	}
	h.printf("Breakpoint added at $%04X.\n", addr)
	return nil
}

func (h *Host) cmdBreakpointRemove(c cmd.Selection) error {
	if len(c.Args) < 1 {
		h.displayHelpText(c)
		return nil
	}

	addr, err := h.parseExpr(c.Args[0])
	if err != nil {
		h.printf("%v\n", err)
		return nil
	}

	if !h.cpu.RemoveBreakpoint(addr) {
		h.printf("No breakpoint was set on $%04X.\n", addr)
		return nil
	}

	h.printf("Breakpoint at $%04X removed.\n", addr)
	return nil
}

func (h *Host) cmdBreakpointEnable(c cmd.Selection) error {
	return h.toggleBreakpoint(c, true)
}

func (h *Host) cmdBreakpointDisable(c cmd.Selection) error {
	return h.toggleBreakpoint(c, false)
}

func (h *Host) toggleBreakpoint(c cmd.Selection, enable bool) error {
	if len(c.Args) < 1 {
		h.displayHelpText(c)
		return nil
	}

	addr, err := h.parseExpr(c.Args[0])
	if err != nil {
		h.printf("%v\n", err)
		return nil
	}

	b := h.cpu.FindBreakpoint(addr)
	if b == nil {
		h.printf("No breakpoint was set on $%04X.\n", addr)
		return nil
	}

	if enable {
		b.Flags |= cpu.BreakpointEnable
		h.printf("Breakpoint at $%04X enabled.\n", addr)
	} else {
		b.Flags &^= cpu.BreakpointEnable
		h.printf("Breakpoint at $%04X disabled.\n", addr)
	}
	return nil
}

func (h *Host) cmdDataBreakpointList(c cmd.Selection) error {
	h.println("Addr  Enabled  Value")
	h.println("----- -------  -----")
	for _, b := range h.cpu.GetDataBreakpoints() {
		if b.Conditional {
			h.printf("$%04X %-5v    $%02X\n", b.Address, !b.Disabled, b.Value)
		} else {
			h.printf("$%04X %-5v    <none>\n", b.Address, !b.Disabled)
		}
	}
	return nil
}

func (h *Host) cmdDataBreakpointAdd(c cmd.Selection) error {
	if len(c.Args) < 1 {
		h.displayHelpText(c)
		return nil
	}

	addr, err := h.parseExpr(c.Args[0])
	if err != nil {
		h.printf("%v\n", err)
		return nil
	}

	if len(c.Args) > 1 {
		value, err := h.parseExpr(c.Args[1])
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		h.cpu.AddConditionalDataBreakpoint(addr, byte(value))
		h.printf("Conditional data breakpoint added at $%04X for value $%02X.\n", addr, byte(value))
	} else {
		h.cpu.AddDataBreakpoint(addr)
		h.printf("Data breakpoint added at $%04X.\n", addr)
	}

	return nil
}

func (h *Host) cmdDataBreakpointRemove(c cmd.Selection) error {
	if len(c.Args) < 1 {
		h.displayHelpText(c)
		return nil
	}

	addr, err := h.parseExpr(c.Args[0])
	if err != nil {
		h.printf("%v\n", err)
		return nil
	}

	if h.cpu.GetDataBreakpoint(addr) == nil {
		h.printf("No data breakpoint was set on $%04X.\n", addr)
		return nil
	}

	h.cpu.RemoveDataBreakpoint(addr)
	h.printf("Data breakpoint at $%04X removed.\n", addr)
	return nil
}

func (h *Host) cmdDataBreakpointEnable(c cmd.Selection) error {
	return h.toggleDataBreakpoint(c, true)
}

func (h *Host) cmdDataBreakpointDisable(c cmd.Selection) error {
	return h.toggleDataBreakpoint(c, false)
}

func (h *Host) toggleDataBreakpoint(c cmd.Selection, enable bool) error {
	if len(c.Args) < 1 {
		h.displayHelpText(c)
		return nil
	}

	addr, err := h.parseExpr(c.Args[0])
	if err != nil {
		h.printf("%v\n", err)
		return nil
	}

	b := h.cpu.GetDataBreakpoint(addr)
	if b == nil {
		h.printf("No data breakpoint was set on $%04X.\n", addr)
		return nil
	}

	b.Disabled = !enable
	if enable {
		h.printf("Data breakpoint at $%04X enabled.\n", addr)
	} else {
		h.printf("Data breakpoint at $%04X disabled.\n", addr)
	}
	return nil
}

func (h *Host) cmdDisassemble(c cmd.Selection) error {
	if len(c.Args) == 0 {
		c.Args = []string{"$"}
	}

	var addr uint16
	switch c.Args[0] {
	case "$":
		addr = h.settings.NextDisasmAddr
		if addr == 0 {
			addr = h.cpu.Reg.PC
		}

	case ".":
		addr = h.cpu.Reg.PC

	default:
		a, err := h.parseExpr(c.Args[0])
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		addr = a
	}

	lines := h.settings.DisasmLines
	if len(c.Args) > 1 {
		l, err := h.parseExpr(c.Args[1])
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		lines = int(l)
	}

	for i := 0; i < lines; i++ {
		d, next := h.disassemble(addr, displayAnnotations)
		h.println(d)
		addr = next
	}

	h.settings.NextDisasmAddr = addr
	h.lastCmd.Args = []string{"$", fmt.Sprintf("%d", lines)}
	return nil
}

func (h *Host) cmdEvaluate(c cmd.Selection) error {
	if len(c.Args) < 1 {
		h.displayHelpText(c)
		return nil
	}

	expr := strings.Join(c.Args, " ")
	v, err := h.parseExpr(expr)
	if err != nil {
		h.printf("%v\n", err)
		return nil
	}

	h.printf("$%04X (%d)\n", v, v)
	return nil
}

func (h *Host) cmdExecute(c cmd.Selection) error {
	if len(c.Args) < 1 {
		h.displayHelpText(c)
		return nil
	}

	file, err := os.Open(c.Args[0])
	if err != nil {
		h.printf("Failed to open '%s': %v\n", filepath.Base(c.Args[0]), err)
		return nil
	}
	defer file.Close()

	input, interactive, lastCmd := h.input, h.interactive, h.lastCmd
	h.input, h.interactive, h.lastCmd = bufio.NewScanner(file), false, nil
	err = h.processCommands()
	h.input, h.interactive, h.lastCmd = input, interactive, lastCmd
	return err
}

func (h *Host) cmdHelp(c cmd.Selection) error {
	if len(c.Args) == 0 {
		h.displayGroup(groups[0])
		return nil
	}

	s, err := cmds.Lookup(strings.Join(c.Args, " "))
	if cc := commandOf(s); err == nil && cc != nil {
		h.printf("Syntax: %s\n\n", cc.usage)
		switch {
		case cc.description != "":
			h.printf("Description:\n%s\n\n", indentWrap(3, cc.description))
		case cc.brief != "":
			h.printf("Description:\n%s.\n\n", indentWrap(3, cc.brief))
		}
		return nil
	}

	if g := findGroup(c.Args[0]); g != nil {
		h.displayGroup(g)
		return nil
	}

	if err == nil {
		err = cmd.ErrNotFound
	}
	h.printf("%v\n", err)
	return nil
}

func (h *Host) cmdInterruptIRQ(c cmd.Selection) error {
	if h.cpu.Reg.InterruptDisable {
		h.println("Interrupts are disabled.")
		return nil
	}
	h.cpu.IRQ()
	h.displayPC()
	return nil
}

func (h *Host) cmdInterruptNMI(c cmd.Selection) error {
	h.cpu.NMI()
	h.displayPC()
	return nil
}

func (h *Host) cmdLoad(c cmd.Selection) error {
	if len(c.Args) < 1 {
		h.displayHelpText(c)
		return nil
	}

	filename := c.Args[0]
	if filepath.Ext(filename) == "" {
		filename += ".prg"
	}

	loadAddr := -1
	if len(c.Args) >= 2 {
		addr, err := h.parseExpr(c.Args[1])
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		loadAddr = int(addr)
	}

	h.load(filename, loadAddr)
	return nil
}

func (h *Host) cmdMemoryDump(c cmd.Selection) error {
	if len(c.Args) == 0 {
		c.Args = []string{"$"}
	}

	var addr uint16
	switch c.Args[0] {
	case "$":
		addr = h.settings.NextMemDumpAddr
		if addr == 0 {
			addr = h.cpu.Reg.PC
		}

	case ".":
		addr = h.cpu.Reg.PC

	default:
		a, err := h.parseExpr(c.Args[0])
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		addr = a
	}

	bytes := uint16(h.settings.MemDumpBytes)
	if len(c.Args) >= 2 {
		var err error
		bytes, err = h.parseExpr(c.Args[1])
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
	}

	h.dumpMemory(addr, bytes)

	h.settings.NextMemDumpAddr = addr + bytes
	h.lastCmd.Args = []string{"$", fmt.Sprintf("%d", bytes)}
	return nil
}

func (h *Host) cmdMemorySet(c cmd.Selection) error {
	if len(c.Args) < 2 {
		h.displayHelpText(c)
		return nil
	}

	addr, err := h.parseExpr(c.Args[0])
	if err != nil {
		h.printf("%v\n", err)
		return nil
	}

	b := make([]byte, 0, len(c.Args)-1)
	for _, arg := range c.Args[1:] {
		v, err := h.parseExpr(arg)
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		b = append(b, byte(v))
	}

	h.mem.StoreBytes(addr, b)
	h.dumpMemory(addr, uint16(len(b)))
	return nil
}

func (h *Host) cmdMemoryCopy(c cmd.Selection) error {
	if len(c.Args) < 3 {
		h.displayHelpText(c)
		return nil
	}

	var addr [3]uint16
	for i := range addr {
		a, err := h.parseExpr(c.Args[i])
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		addr[i] = a
	}

	dst, src0, src1 := addr[0], addr[1], addr[2]
	if src1 < src0 {
		h.println("Source range is empty.")
		return nil
	}

	b := make([]byte, int(src1)-int(src0)+1)
	h.mem.LoadBytes(src0, b)
	h.mem.StoreBytes(dst, b)
	h.printf("Copied $%04X..$%04X to $%04X.\n", src0, src1, dst)
	return nil
}

func (h *Host) cmdMonitor(c cmd.Selection) error {
	if !h.interactive {
		h.println("The monitor requires an interactive terminal.")
		return nil
	}

	// Breakpoint reports would draw over the screen.
	output := h.output
	h.output = bufio.NewWriter(io.Discard)
	err := monitor.Run(h.cpu, monitor.Options{
		Annotations: h.annotations,
		MemAddr:     h.settings.NextMemDumpAddr,
	})
	h.output = output
	h.state = stateProcessingCommands
	if err != nil {
		h.printf("%v\n", err)
		return nil
	}

	h.settings.NextDisasmAddr = h.cpu.Reg.PC
	h.displayPC()
	return nil
}

func (h *Host) cmdPatchList(c cmd.Selection) error {
	if h.cpu.PatchesEnabled() {
		h.println("Patches enabled.")
	} else {
		h.println("Patches disabled.")
	}
	h.println("Addr  Label")
	h.println("----- -----")
	for _, p := range h.cpu.Patches() {
		h.printf("$%04X %s\n", p.Address, p.Label)
	}
	return nil
}

func (h *Host) cmdPatchEnable(c cmd.Selection) error {
	h.cpu.EnablePatches(true)
	h.println("Patches enabled.")
	return nil
}

func (h *Host) cmdPatchDisable(c cmd.Selection) error {
	h.cpu.EnablePatches(false)
	h.println("Patches disabled.")
	return nil
}

func (h *Host) cmdPatchAdd(c cmd.Selection) error {
	if len(c.Args) < 1 {
		h.displayHelpText(c)
		return nil
	}

	r, err := kernal.Find(c.Args[0])
	if err != nil {
		h.printf("%v\n", err)
		return nil
	}

	if err := h.kernal.InstallRoutine(h.cpu, r); err != nil {
		h.printf("%v\n", err)
		return nil
	}
	h.printf("Patched %s at $%04X.\n", r.Name, r.Address)
	return nil
}

func (h *Host) cmdPatchRemove(c cmd.Selection) error {
	if len(c.Args) < 1 {
		h.displayHelpText(c)
		return nil
	}

	addr, err := h.parseExpr(c.Args[0])
	if err != nil {
		h.printf("%v\n", err)
		return nil
	}

	if !h.cpu.RemovePatch(addr) {
		h.printf("No patch was set on $%04X.\n", addr)
		return nil
	}
	h.printf("Patch at $%04X removed.\n", addr)
	return nil
}

func (h *Host) cmdQuit(c cmd.Selection) error {
	return errQuit
}

func (h *Host) cmdRegister(c cmd.Selection) error {
	switch len(c.Args) {
	case 0:
		d, _ := h.disassemble(h.cpu.Reg.PC, displayAll)
		h.println(d)

	case 1:
		h.displayHelpText(c)

	default:
		key, value := strings.ToLower(c.Args[0]), strings.Join(c.Args[1:], " ")
		v, err := h.exprParser.Parse(value, h)
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		if !h.setRegister(key, v) {
			h.printf("Register '%s' not found.\n", key)
		}
	}
	return nil
}

func (h *Host) setRegister(key string, v int64) bool {
	sz := -1
	switch key {
	case "a":
		h.cpu.Reg.A, sz = byte(v), 1
	case "x":
		h.cpu.Reg.X, sz = byte(v), 1
	case "y":
		h.cpu.Reg.Y, sz = byte(v), 1
	case "sp":
		h.cpu.Reg.SP, sz = byte(v), 1
	case ".":
		key = "pc"
		fallthrough
	case "pc":
		h.cpu.Reg.PC, sz = uint16(v), 2
	case "c", "carry":
		h.cpu.Reg.Carry, sz = intToBool(int(v)), 0
	case "z", "zero":
		h.cpu.Reg.Zero, sz = intToBool(int(v)), 0
	case "i", "interruptdisable":
		h.cpu.Reg.InterruptDisable, sz = intToBool(int(v)), 0
	case "d", "decimal":
		h.cpu.Reg.Decimal, sz = intToBool(int(v)), 0
	case "v", "overflow":
		h.cpu.Reg.Overflow, sz = intToBool(int(v)), 0
	case "n", "sign":
		h.cpu.Reg.Sign, sz = intToBool(int(v)), 0
	}

	switch sz {
	case 0:
		h.printf("Register %s set to %v.\n", strings.ToUpper(key), intToBool(int(v)))
	case 1:
		h.printf("Register %s set to $%02X.\n", strings.ToUpper(key), byte(v))
	case 2:
		h.printf("Register %s set to $%04X.\n", strings.ToUpper(key), uint16(v))
	}
	return sz >= 0
}

func (h *Host) cmdReset(c cmd.Selection) error {
	h.cpu.Reset()
	h.settings.NextDisasmAddr = h.cpu.Reg.PC
	h.displayPC()
	return nil
}

func (h *Host) cmdRun(c cmd.Selection) error {
	if len(c.Args) > 0 {
		pc, err := h.parseExpr(c.Args[0])
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		h.cpu.SetPC(pc)
	}

	h.printf("Running from $%04X. Press ctrl-C to break.\n", h.cpu.Reg.PC)

	n := h.run()
	if h.state == stateRunning {
		h.printf("Stopped after %d instructions.\n", n)
		h.displayPC()
	}
	h.state = stateProcessingCommands

	h.settings.NextDisasmAddr = h.cpu.Reg.PC
	return nil
}

// Run the CPU until a breakpoint stops it, the host is interrupted or
// the run limit is reached. A breakpoint on the starting address is
// ignored so a stopped program can be resumed.
func (h *Host) run() int {
	limit := h.settings.RunLimit
	h.startRunning()
	n := 0
	for h.running() {
		if n > 0 && h.cpu.HitsBreakpoint() != nil && h.state != stateRunning {
			break
		}
		h.cpu.StepIn()
		n++
		if limit > 0 && n >= limit {
			break
		}
	}
	return n
}

func (h *Host) cmdSet(c cmd.Selection) error {
	switch len(c.Args) {
	case 0:
		h.println("Variables:")
		h.settings.Display(h.output)
		h.flush()

	case 1:
		h.displayHelpText(c)

	default:
		key, value := strings.ToLower(c.Args[0]), strings.Join(c.Args[1:], " ")
		v, errV := h.exprParser.Parse(value, h)

		// Setting a register?
		if errV == nil && h.setRegister(key, v) {
			return nil
		}

		// Setting a host setting?
		var err error
		switch h.settings.Kind(key) {
		case reflect.Invalid:
			err = fmt.Errorf("setting '%s' not found", key)
		case reflect.Bool:
			var b bool
			b, err = stringToBool(value)
			if err == nil {
				err = h.settings.Set(key, b)
			}
		default:
			err = errV
			if err == nil {
				err = h.settings.Set(key, v)
			}
		}

		if err == nil {
			h.println("Setting updated.")
		} else {
			h.printf("%v\n", err)
		}

		h.onSettingsUpdate()
	}

	return nil
}

func (h *Host) cmdScript(c cmd.Selection) error {
	if len(c.Args) < 1 {
		h.displayHelpText(c)
		return nil
	}

	if err := h.RunScript(c.Args[0]); err != nil {
		if err == errQuit {
			return err
		}
		h.printf("Script failed: %v\n", err)
	}
	return nil
}

func (h *Host) cmdStepIn(c cmd.Selection) error {
	return h.stepCount(c, h.cpu.StepIn)
}

func (h *Host) cmdStepOver(c cmd.Selection) error {
	return h.stepCount(c, h.cpu.StepOver)
}

func (h *Host) stepCount(c cmd.Selection, step func()) error {
	// Parse the number of steps.
	count := 1
	if len(c.Args) > 0 {
		n, err := h.parseExpr(c.Args[0])
		if err == nil {
			count = int(n)
		}
	}

	// Step the CPU count times.
	h.startRunning()
	for i := count - 1; i >= 0 && h.running(); i-- {
		step()
		switch {
		case i == h.settings.MaxStepLines:
			h.println("...")
		case i < h.settings.MaxStepLines:
			h.displayPC()
		}
	}
	h.state = stateProcessingCommands

	h.settings.NextDisasmAddr = h.cpu.Reg.PC
	return nil
}

func (h *Host) cmdStepOut(c cmd.Selection) error {
	n := h.cpu.StepOut()
	h.printf("Stepped out after %d instructions.\n", n)
	h.displayPC()
	h.settings.NextDisasmAddr = h.cpu.Reg.PC
	return nil
}

func (h *Host) cmdSymbols(c cmd.Selection) error {
	symbols := h.asm.Symbols()
	if len(symbols) == 0 {
		h.println("No symbols defined.")
		return nil
	}
	for _, s := range symbols {
		h.printf("%-16s $%04X\n", s.Name, s.Value)
	}
	return nil
}

// Load a binary file. Without an address, the first two bytes of the file
// hold the little-endian load address.
func (h *Host) load(filename string, addr int) {
	data, err := os.ReadFile(filename)
	if err != nil {
		h.printf("Failed to open '%s': %v\n", filepath.Base(filename), err)
		return
	}

	var origin uint16
	if addr < 0 {
		if len(data) < 2 {
			h.printf("File '%s' has no load address\n", filepath.Base(filename))
			return
		}
		origin = uint16(data[0]) | uint16(data[1])<<8
		data = data[2:]
	} else {
		origin = uint16(addr)
	}

	h.mem.StoreBytes(origin, data)
	h.printf("Loaded '%s' to $%04X..$%04X\n", filepath.Base(filename), origin, int(origin)+len(data)-1)

	h.cpu.SetPC(origin)
}

func (h *Host) onSettingsUpdate() {
	h.exprParser.hexMode = h.settings.HexMode
	disasm.EnableColor(h.settings.Color)
	if h.settings.AsmVerbose {
		h.asm.Verbose = screen{h}
	} else {
		h.asm.Verbose = nil
	}
}

func (h *Host) parseExpr(expr string) (uint16, error) {
	v, err := h.exprParser.Parse(expr, h)
	if err != nil {
		return 0, err
	}

	if v < 0 {
		v = 0x10000 + v
	}
	return uint16(v), nil
}

func (h *Host) disassemble(addr uint16, flags displayFlags) (str string, next uint16) {
	str, next = disasm.Disassemble(h.mem, addr)
	str = fmt.Sprintf("%-24s", str)

	if (flags & displayRegisters) != 0 {
		str += " " + disasm.RegisterString(&h.cpu.Reg)
	}

	if (flags & displayCycles) != 0 {
		str += fmt.Sprintf(" C=%-12d", h.cpu.Cycles)
	}

	if (flags & displayAnnotations) != 0 {
		if p := h.cpu.LookupPatch(addr); p != nil {
			str += " ; patch " + p.Label
		}
		if anno, ok := h.annotations[addr]; ok {
			str += " ; " + anno
		}
	}

	return disasm.Highlight(h.cpu, addr, str), next
}

func (h *Host) dumpMemory(addr0, bytes uint16) {
	if bytes == 0 {
		return
	}

	addr1 := addr0 + bytes - 1
	if addr1 < addr0 {
		addr1 = 0xffff
	}

	buf := []byte("    -" + strings.Repeat(" ", 35))

	// Don't align display for short dumps.
	if addr1-addr0 < 8 {
		addrToBuf(addr0, buf[0:4])
		for a, c1, c2 := addr0, 6, 32; a <= addr1 && c2 < 40; a, c1, c2 = a+1, c1+3, c2+1 {
			m := h.mem.LoadByte(a)
			byteToBuf(m, buf[c1:c1+2])
			buf[c2] = toPrintableChar(m)
		}
		h.println(string(buf))
		return
	}

	// Align addr0 and addr1 to 8-byte boundaries.
	start := uint32(addr0) & 0xfff8
	stop := (uint32(addr1) + 8) & 0xffff8
	if stop > 0x10000 {
		stop = 0x10000
	}

	a := uint16(start)
	for r := start; r < stop; r += 8 {
		addrToBuf(a, buf[0:4])
		for c1, c2 := 6, 32; c1 < 29; c1, c2, a = c1+3, c2+1, a+1 {
			if a >= addr0 && a <= addr1 {
				m := h.mem.LoadByte(a)
				byteToBuf(m, buf[c1:c1+2])
				buf[c2] = toPrintableChar(m)
			} else {
				buf[c1] = ' '
				buf[c1+1] = ' '
				buf[c2] = ' '
			}
		}
		h.println(string(buf))
	}
}

func (h *Host) displayHelpText(c cmd.Selection) {
	h.printf("Syntax: %s\n", commandOf(c).usage)
}

func (h *Host) displayGroup(g *commandGroup) {
	if g.name == "" {
		h.println("Commands:")
	} else {
		h.printf("%s commands:\n", g.name)
	}
	for _, c := range g.commands {
		h.printf("    %-15s  %s\n", c.name, c.brief)
	}
	if g.name == "" {
		for _, sub := range subCommands {
			h.printf("    %-15s  %s\n", sub.name, sub.brief)
		}
	}
}

func (h *Host) resolveIdentifier(s string) (int64, error) {
	s = strings.ToLower(s)

	switch s {
	case "a":
		return int64(h.cpu.Reg.A), nil
	case "x":
		return int64(h.cpu.Reg.X), nil
	case "y":
		return int64(h.cpu.Reg.Y), nil
	case "sp":
		return int64(h.cpu.Reg.SP) | 0x0100, nil
	case ".", "pc":
		return int64(h.cpu.Reg.PC), nil
	}

	if v, ok := h.asm.Lookup(s); ok {
		return int64(v), nil
	}

	for _, p := range h.cpu.Patches() {
		if strings.EqualFold(p.Label, s) {
			return int64(p.Address), nil
		}
	}

	if r, err := kernal.Find(s); err == nil && strings.EqualFold(r.Name, s) {
		return int64(r.Address), nil
	}

	return 0, fmt.Errorf("identifier '%s' not found", s)
}

func (h *Host) onBreakpoint(c *cpu.CPU, b *cpu.Breakpoint) {
	if b.Flags&cpu.BreakpointTrace != 0 {
		d, _ := h.disassemble(c.Reg.PC, displayRegisters)
		h.printf("Trace %s\n", d)
		return
	}

	h.state = stateBreakpoint
	h.printf("Breakpoint hit at $%04X.\n", b.Address)
	h.displayPC()
}

func (h *Host) onDataBreakpoint(c *cpu.CPU, b *cpu.DataBreakpoint) {
	h.printf("Data breakpoint hit on address $%04X.\n", b.Address)

	h.state = stateBreakpoint

	if c.LastPC != c.Reg.PC {
		d, _ := h.disassemble(c.LastPC, displayAll)
		h.println(d)
	}
}
