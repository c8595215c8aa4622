// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command test6502 assembles a source file and runs it, printing one trace
// line per instruction until a BRK executes.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/beevik/mc6502/asm"
	"github.com/beevik/mc6502/cpu"
	"github.com/beevik/mc6502/disasm"
)

var (
	origin int
	limit  int
)

func init() {
	flag.IntVar(&origin, "org", 0x1000, "assembly origin")
	flag.IntVar(&limit, "n", 100000, "maximum instructions to trace")
}

func main() {
	flag.Parse()
	if flag.NArg() < 1 {
		fmt.Println("Syntax: test6502 [-org addr] [-n count] [file.asm]")
		os.Exit(0)
	}

	c, err := assemble(flag.Arg(0), uint16(origin))
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\nRunning assembled code...\n\n")
	trace(os.Stdout, c, limit)
}

func assemble(filename string, org uint16) (*cpu.CPU, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	fmt.Printf("Assembling %s...\n", filename)
	mem := cpu.NewFlatMemory()
	a := asm.New(mem)
	a.SetOrigin(org)
	if err := a.AssembleLines(file); err != nil {
		return nil, err
	}

	c := cpu.NewCPU(mem)
	c.SetPC(org)
	return c, nil
}

// Step the CPU until it executes a BRK or the limit is reached. Each line
// shows the instruction before it executes and the registers after.
func trace(w io.Writer, c *cpu.CPU, limit int) int {
	n := 0
	for n < limit {
		pc := c.Reg.PC
		line, _ := disasm.Disassemble(c.Mem, pc)
		c.StepIn()
		n++
		fmt.Fprintf(w, "%-24s  %s Cycles=%d\n", line, disasm.RegisterString(&c.Reg), c.Cycles)
		if c.Opcode == 0x00 {
			break
		}
	}
	return n
}
