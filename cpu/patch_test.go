package cpu_test

import (
	"errors"
	"testing"

	"github.com/beevik/mc6502/cpu"
)

func TestPatchLookup(t *testing.T) {
	asm := `
	*=$1000
	JSR $0200
	JSR $0250
	*=$0200
	RTS
	*=$0250
	RTS`

	c := loadCPU(t, asm)
	if c == nil {
		return
	}

	var calls []string
	fn := func(c *cpu.CPU, label string) {
		calls = append(calls, label)
	}
	c.SetPatch(0x300, fn, "three")
	c.SetPatch(0x100, fn, "one")
	c.SetPatch(0x200, fn, "two")

	patches := c.Patches()
	for i, addr := range []uint16{0x100, 0x200, 0x300} {
		if patches[i].Address != addr {
			t.Errorf("patch %d address incorrect. exp: $%04X, got: $%04X", i, addr, patches[i].Address)
		}
	}

	stepCPU(c, 1)
	expectPC(t, c, 0x0200)
	if len(calls) != 1 || calls[0] != "two" {
		t.Errorf("patch calls incorrect. got: %v", calls)
	}

	stepCPU(c, 2)
	expectPC(t, c, 0x0250)
	if len(calls) != 1 {
		t.Errorf("JSR $0250 should not call a patch. got: %v", calls)
	}
}

func TestPatchReturn(t *testing.T) {
	asm := `
	*=$1000
	LDA #$00
	JSR $FFD2
	JMP $FFD2`

	c := loadCPU(t, asm)
	if c == nil {
		return
	}

	var out []byte
	err := c.SetPatch(0xffd2, func(c *cpu.CPU, label string) {
		out = append(out, c.Reg.A)
		c.Reg.A++
		c.ReturnFromSubroutine()
	}, "CHROUT")
	if err != nil {
		t.Fatal(err)
	}

	stepCPU(c, 2)
	expectPC(t, c, 0x1005)
	expectSP(t, c, 0xfd)
	expectACC(t, c, 0x01)

	// A jump pushes nothing, so the handler's RTS pops whatever is on the
	// stack. Seed it with a return address.
	c.Mem.StoreBytes(0x1fe, []byte{0xff, 0x2f})
	stepCPU(c, 1)
	expectPC(t, c, 0x3000)
	if len(out) != 2 || out[0] != 0 || out[1] != 1 {
		t.Errorf("patch output incorrect. got: %v", out)
	}
}

func TestPatchReplaceAndRemove(t *testing.T) {
	c := cpu.NewCPU(cpu.NewFlatMemory())
	nop := func(c *cpu.CPU, label string) {}

	c.SetPatch(0x1234, nop, "old")
	c.SetPatch(0x1234, nop, "new")
	if n := len(c.Patches()); n != 1 {
		t.Errorf("patch count incorrect. exp: 1, got: %d", n)
	}
	if p := c.LookupPatch(0x1234); p == nil || p.Label != "new" {
		t.Error("patch should be replaced")
	}
	if c.LookupPatch(0x1235) != nil {
		t.Error("lookup must match exactly")
	}

	if !c.RemovePatch(0x1234) || c.RemovePatch(0x1234) {
		t.Error("RemovePatch results incorrect")
	}
}

func TestPatchTableFull(t *testing.T) {
	c := cpu.NewCPU(cpu.NewFlatMemory())
	nop := func(c *cpu.CPU, label string) {}
	for i := 0; i < cpu.MaxPatches; i++ {
		if err := c.SetPatch(uint16(0xff00-i*3), nop, "p"); err != nil {
			t.Fatalf("patch %d: %v", i, err)
		}
	}

	err := c.SetPatch(0x0010, nop, "extra")
	if !errors.Is(err, cpu.ErrPatchTableFull) {
		t.Errorf("expected ErrPatchTableFull, got: %v", err)
	}
	if c.LookupPatch(0x0010) != nil {
		t.Error("rejected patch should not be in the table")
	}

	patches := c.Patches()
	for i := 1; i < len(patches); i++ {
		if patches[i-1].Address >= patches[i].Address {
			t.Fatal("patch table not sorted")
		}
	}
}

func TestDisablePatches(t *testing.T) {
	asm := `
	*=$1000
	JMP $2000`

	c := loadCPU(t, asm)
	if c == nil {
		return
	}

	called := false
	c.SetPatch(0x2000, func(c *cpu.CPU, label string) { called = true }, "target")
	c.EnablePatches(false)

	stepCPU(c, 1)
	expectPC(t, c, 0x2000)
	if called {
		t.Error("disabled patch was called")
	}
}
