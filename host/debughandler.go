// Copyright 2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package host

import "github.com/beevik/mc6502/cpu"

// A debugHandler adapts a pair of callbacks to the cpu.BreakpointHandler
// interface.
type debugHandler struct {
	breakpoint     func(c *cpu.CPU, b *cpu.Breakpoint)
	dataBreakpoint func(c *cpu.CPU, b *cpu.DataBreakpoint)
}

func newDebugHandler(h *Host) *debugHandler {
	return &debugHandler{
		breakpoint:     h.onBreakpoint,
		dataBreakpoint: h.onDataBreakpoint,
	}
}

func (d *debugHandler) OnBreakpoint(c *cpu.CPU, b *cpu.Breakpoint) {
	if d.breakpoint != nil {
		d.breakpoint(c, b)
	}
}

func (d *debugHandler) OnDataBreakpoint(c *cpu.CPU, b *cpu.DataBreakpoint) {
	if d.dataBreakpoint != nil {
		d.dataBreakpoint(c, b)
	}
}
