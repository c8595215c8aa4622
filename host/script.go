// Copyright 2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package host

import (
	"errors"
	"strings"

	"github.com/beevik/cmd"
	"github.com/beevik/mc6502/cpu"
	lua "github.com/yuin/gopher-lua"
)

// RunScript runs a Lua file. Globals defined by one script remain visible
// to the next, and patches installed by a script stay active after it
// returns.
//
// Scripts see these host functions:
//
//	peek(addr)             read a byte of memory
//	poke(addr, v, ...)     write bytes to memory
//	reg(name)              read a register or flag, or "cycles"
//	setreg(name, v)        write a register or flag
//	step([n])              step into n instructions
//	stepover()             step over the next instruction
//	stepout()              step out of the current subroutine
//	run([addr] [, limit])  run until a breakpoint or the limit
//	exec(line)             run a host command
//	assemble(src)          assemble lines of source
//	trap(addr, label, fn)  patch addr with a Lua callback
//	untrap(addr)           remove a patch
//	print(...)             write to the host output
func (h *Host) RunScript(filename string) error {
	L := h.luaState()
	h.scriptQuit = false
	err := L.DoFile(filename)
	if h.scriptQuit {
		return errQuit
	}
	return err
}

// RunScriptString runs a chunk of Lua source.
func (h *Host) RunScriptString(src string) error {
	L := h.luaState()
	h.scriptQuit = false
	err := L.DoString(src)
	if h.scriptQuit {
		return errQuit
	}
	return err
}

// Close releases the Lua state, if one was created.
func (h *Host) Close() {
	if h.lua != nil {
		h.lua.Close()
		h.lua = nil
	}
}

var errScriptQuit = errors.New("quit")

func (h *Host) luaState() *lua.LState {
	if h.lua != nil {
		return h.lua
	}

	L := lua.NewState()
	funcs := map[string]lua.LGFunction{
		"peek":     h.luaPeek,
		"poke":     h.luaPoke,
		"reg":      h.luaReg,
		"setreg":   h.luaSetReg,
		"step":     h.luaStep,
		"stepover": h.luaStepOver,
		"stepout":  h.luaStepOut,
		"run":      h.luaRun,
		"exec":     h.luaExec,
		"assemble": h.luaAssemble,
		"trap":     h.luaTrap,
		"untrap":   h.luaUntrap,
		"print":    h.luaPrint,
	}
	for name, fn := range funcs {
		L.SetGlobal(name, L.NewFunction(fn))
	}

	h.lua = L
	return L
}

func checkAddr(L *lua.LState, n int) uint16 {
	v := L.CheckInt(n)
	if v < 0 || v > 0xffff {
		L.ArgError(n, "address out of range")
	}
	return uint16(v)
}

func (h *Host) luaPeek(L *lua.LState) int {
	addr := checkAddr(L, 1)
	L.Push(lua.LNumber(h.mem.LoadByte(addr)))
	return 1
}

func (h *Host) luaPoke(L *lua.LState) int {
	addr := checkAddr(L, 1)
	for i := 2; i <= L.GetTop(); i++ {
		h.mem.StoreByte(addr, byte(L.CheckInt(i)))
		addr++
	}
	return 0
}

func (h *Host) luaReg(L *lua.LState) int {
	r := &h.cpu.Reg
	var v lua.LValue
	switch strings.ToLower(L.CheckString(1)) {
	case "a":
		v = lua.LNumber(r.A)
	case "x":
		v = lua.LNumber(r.X)
	case "y":
		v = lua.LNumber(r.Y)
	case "sp":
		v = lua.LNumber(r.SP)
	case "pc":
		v = lua.LNumber(r.PC)
	case "ps":
		v = lua.LNumber(r.PS())
	case "c", "carry":
		v = lua.LBool(r.Carry)
	case "z", "zero":
		v = lua.LBool(r.Zero)
	case "i", "interruptdisable":
		v = lua.LBool(r.InterruptDisable)
	case "d", "decimal":
		v = lua.LBool(r.Decimal)
	case "v", "overflow":
		v = lua.LBool(r.Overflow)
	case "n", "sign":
		v = lua.LBool(r.Sign)
	case "cycles":
		v = lua.LNumber(h.cpu.Cycles)
	default:
		L.ArgError(1, "unknown register")
		return 0
	}
	L.Push(v)
	return 1
}

func (h *Host) luaSetReg(L *lua.LState) int {
	name := strings.ToLower(L.CheckString(1))

	var v int64
	switch arg := L.Get(2).(type) {
	case lua.LBool:
		if arg {
			v = 1
		}
	case lua.LNumber:
		v = int64(arg)
	default:
		L.ArgError(2, "number or boolean expected")
		return 0
	}

	r := &h.cpu.Reg
	switch name {
	case "a":
		r.A = byte(v)
	case "x":
		r.X = byte(v)
	case "y":
		r.Y = byte(v)
	case "sp":
		r.SP = byte(v)
	case "pc":
		r.PC = uint16(v)
	case "ps":
		r.RestorePS(byte(v))
	case "c", "carry":
		r.Carry = v != 0
	case "z", "zero":
		r.Zero = v != 0
	case "i", "interruptdisable":
		r.InterruptDisable = v != 0
	case "d", "decimal":
		r.Decimal = v != 0
	case "v", "overflow":
		r.Overflow = v != 0
	case "n", "sign":
		r.Sign = v != 0
	default:
		L.ArgError(1, "unknown register")
	}
	return 0
}

func (h *Host) luaStep(L *lua.LState) int {
	n := L.OptInt(1, 1)
	for i := 0; i < n; i++ {
		h.cpu.StepIn()
	}
	return 0
}

func (h *Host) luaStepOver(L *lua.LState) int {
	h.cpu.StepOver()
	return 0
}

func (h *Host) luaStepOut(L *lua.LState) int {
	L.Push(lua.LNumber(h.cpu.StepOut()))
	return 1
}

// run([addr] [, limit]) returns the number of instructions executed and
// the address of the breakpoint that stopped the CPU, if any.
func (h *Host) luaRun(L *lua.LState) int {
	if L.GetTop() >= 1 && L.Get(1) != lua.LNil {
		h.cpu.SetPC(checkAddr(L, 1))
	}

	limit := h.settings.RunLimit
	if L.GetTop() >= 2 {
		h.settings.RunLimit = L.CheckInt(2)
	}
	n := h.run()
	h.settings.RunLimit = limit

	stopped := h.state == stateBreakpoint
	h.state = stateProcessingCommands

	L.Push(lua.LNumber(n))
	if stopped {
		L.Push(lua.LNumber(h.cpu.Reg.PC))
	} else {
		L.Push(lua.LNil)
	}
	return 2
}

func (h *Host) luaExec(L *lua.LState) int {
	line := L.CheckString(1)
	c, err := cmds.Lookup(line)
	if err != nil {
		L.RaiseError("%s: %v", line, err)
		return 0
	}
	cc := commandOf(c)
	if cc == nil {
		L.RaiseError("%s: %v", line, cmd.ErrNotFound)
		return 0
	}

	if err := cc.handler(h, c); err != nil {
		if err == errQuit {
			h.scriptQuit = true
			err = errScriptQuit
		}
		L.RaiseError("%v", err)
	}
	return 0
}

func (h *Host) luaAssemble(L *lua.LState) int {
	src := L.CheckString(1)
	if err := h.asm.AssembleLines(strings.NewReader(src)); err != nil {
		L.RaiseError("%v", err)
		return 0
	}
	L.Push(lua.LNumber(h.asm.Origin()))
	return 1
}

// trap(addr, label, fn) installs a patch that calls fn(label) when a JMP
// or JSR reaches addr. If fn returns true, the host performs an RTS on
// behalf of the patched routine.
func (h *Host) luaTrap(L *lua.LState) int {
	addr := checkAddr(L, 1)
	label := L.CheckString(2)
	fn := L.CheckFunction(3)

	err := h.cpu.SetPatch(addr, func(c *cpu.CPU, label string) {
		err := L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, lua.LString(label))
		if err != nil {
			h.printf("Trap %s failed: %v\n", label, err)
			h.state = stateBreakpoint
			return
		}
		ret := L.Get(-1)
		L.Pop(1)
		if lua.LVAsBool(ret) {
			c.ReturnFromSubroutine()
		}
	}, label)
	if err != nil {
		L.RaiseError("%v", err)
	}
	return 0
}

func (h *Host) luaUntrap(L *lua.LState) int {
	L.Push(lua.LBool(h.cpu.RemovePatch(checkAddr(L, 1))))
	return 1
}

func (h *Host) luaPrint(L *lua.LState) int {
	args := make([]string, L.GetTop())
	for i := range args {
		args[i] = L.ToStringMeta(L.Get(i + 1)).String()
	}
	h.println(strings.Join(args, "\t"))
	return 0
}
