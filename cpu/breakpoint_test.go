package cpu_test

import (
	"errors"
	"testing"

	"github.com/beevik/mc6502/cpu"
)

type recorder struct {
	hits     []uint16
	dataHits []uint16
}

func (r *recorder) OnBreakpoint(c *cpu.CPU, b *cpu.Breakpoint) {
	r.hits = append(r.hits, b.Address)
}

func (r *recorder) OnDataBreakpoint(c *cpu.CPU, b *cpu.DataBreakpoint) {
	r.dataHits = append(r.dataHits, b.Address)
}

func TestConditionalBreakpoint(t *testing.T) {
	asm := `
	*=$1000
	LDA #$42
	NOP
	LDA #$43
	NOP`

	c := loadCPU(t, asm)
	if c == nil {
		return
	}
	r := &recorder{}
	c.AttachBreakpointHandler(r)

	c.AddBreakpoint(cpu.Breakpoint{Address: 0x1002, A: 0x42, Flags: cpu.BreakpointEnable | cpu.ConditionA})
	c.AddBreakpoint(cpu.Breakpoint{Address: 0x1005, A: 0x42, Flags: cpu.BreakpointEnable | cpu.ConditionA})

	for i := 0; i < 4; i++ {
		c.FastClock()
		b := c.HitsBreakpoint()
		switch c.Reg.PC {
		case 0x1002:
			if b == nil {
				t.Error("breakpoint at $1002 with A=$42 should hit")
			}
		default:
			if b != nil {
				t.Errorf("unexpected breakpoint hit at $%04X", c.Reg.PC)
			}
		}
	}

	if len(r.hits) != 1 || r.hits[0] != 0x1002 {
		t.Errorf("handler hits incorrect. got: %v", r.hits)
	}
}

func TestBreakpointDefaults(t *testing.T) {
	c := cpu.NewCPU(cpu.NewFlatMemory())
	b, err := c.AddBreakpoint(cpu.Breakpoint{Address: 0x0000})
	if err != nil {
		t.Fatal(err)
	}
	if !b.Enabled() {
		t.Error("breakpoint without flags should be enabled")
	}
	if c.HitsBreakpoint() == nil {
		t.Error("enabled breakpoint at PC should hit")
	}
}

func TestBreakpointLastMatchWins(t *testing.T) {
	c := cpu.NewCPU(cpu.NewFlatMemory())
	c.SetPC(0x2000)
	c.AddBreakpoint(cpu.Breakpoint{Address: 0x2000})
	c.AddBreakpoint(cpu.Breakpoint{Address: 0x2000, Flags: cpu.BreakpointTrace})
	if c.HitsBreakpoint() != nil {
		t.Error("disabled breakpoint added last should shadow the first")
	}

	c = cpu.NewCPU(cpu.NewFlatMemory())
	c.SetPC(0x2000)
	c.AddBreakpoint(cpu.Breakpoint{Address: 0x2000, Flags: cpu.BreakpointTrace})
	c.AddBreakpoint(cpu.Breakpoint{Address: 0x2000})
	if c.HitsBreakpoint() == nil {
		t.Error("enabled breakpoint added last should hit")
	}

	c.RemoveBreakpoint(0x2000)
	if c.HitsBreakpoint() == nil {
		t.Error("remaining breakpoint should hit")
	}
	c.RemoveBreakpoint(0x2000)
	if c.HitsBreakpoint() != nil {
		t.Error("no breakpoint should remain")
	}
}

func TestBreakpointTableFull(t *testing.T) {
	c := cpu.NewCPU(cpu.NewFlatMemory())
	for i := 0; i < cpu.MaxBreakpoints; i++ {
		if _, err := c.AddBreakpoint(cpu.Breakpoint{Address: uint16(i)}); err != nil {
			t.Fatalf("breakpoint %d: %v", i, err)
		}
	}

	_, err := c.AddBreakpoint(cpu.Breakpoint{Address: 0x4000})
	if !errors.Is(err, cpu.ErrBreakpointTableFull) {
		t.Errorf("expected ErrBreakpointTableFull, got: %v", err)
	}
	if n := len(c.Breakpoints()); n != cpu.MaxBreakpoints {
		t.Errorf("breakpoint count incorrect. exp: %d, got: %d", cpu.MaxBreakpoints, n)
	}
	if c.FindBreakpoint(0x4000) != nil {
		t.Error("rejected breakpoint should not be in the table")
	}
}

func TestRemoveBreakpoint(t *testing.T) {
	c := cpu.NewCPU(cpu.NewFlatMemory())
	c.AddBreakpoint(cpu.Breakpoint{Address: 0x30})
	c.AddBreakpoint(cpu.Breakpoint{Address: 0x10})
	c.AddBreakpoint(cpu.Breakpoint{Address: 0x20})

	if !c.RemoveBreakpoint(0x30) {
		t.Fatal("RemoveBreakpoint($30) failed")
	}
	if c.RemoveBreakpoint(0x30) {
		t.Error("second RemoveBreakpoint($30) should fail")
	}

	bps := c.Breakpoints()
	if len(bps) != 2 || bps[0].Address != 0x10 || bps[1].Address != 0x20 {
		t.Errorf("breakpoint list incorrect. got: %v", bps)
	}
}

func TestDataBreakpoint(t *testing.T) {
	asm := `
	*=$1000
	LDA #$01
	STA $2000
	LDA #$02
	STA $2000
	STA $2001`

	c := loadCPU(t, asm)
	if c == nil {
		return
	}
	r := &recorder{}
	c.AttachBreakpointHandler(r)
	c.AddConditionalDataBreakpoint(0x2000, 0x02)
	c.AddDataBreakpoint(0x2001)

	stepCPU(c, 5)
	if len(r.dataHits) != 2 || r.dataHits[0] != 0x2000 || r.dataHits[1] != 0x2001 {
		t.Errorf("data breakpoint hits incorrect. got: %v", r.dataHits)
	}
	expectMem(t, c, 0x2001, 0x02)

	c.RemoveDataBreakpoint(0x2000)
	c.RemoveDataBreakpoint(0x2001)
	if len(c.GetDataBreakpoints()) != 0 {
		t.Error("data breakpoints should be empty")
	}
}
