package disasm_test

import (
	"strings"
	"testing"

	"github.com/beevik/mc6502/asm"
	"github.com/beevik/mc6502/cpu"
	"github.com/beevik/mc6502/disasm"
)

func TestRoundTrip(t *testing.T) {
	mem := cpu.NewFlatMemory()
	a := asm.New(mem)
	a.SetOrigin(0xc000)
	if err := a.Compile("LDA #$05\x00STA $D020\x00RTS\x00\x00"); err != nil {
		t.Fatal(err)
	}

	exp := []string{
		"C000: A9 05     LDA #$05",
		"C002: 8D 20 D0  STA $D020",
		"C005: 60        RTS",
	}
	addr := uint16(0xc000)
	for _, e := range exp {
		var line string
		line, addr = disasm.Disassemble(mem, addr)
		if line != e {
			t.Errorf("disassembly incorrect.\nexp: %q\ngot: %q", e, line)
		}
	}
	if addr != 0xc006 {
		t.Errorf("next address incorrect. exp: $C006, got: $%04X", addr)
	}
}

func TestOperandFormats(t *testing.T) {
	tests := []struct {
		code []byte
		exp  string
	}{
		{[]byte{0x0a}, "ASL"},
		{[]byte{0xa9, 0x10}, "LDA #$10"},
		{[]byte{0xa5, 0x10}, "LDA $10"},
		{[]byte{0xb5, 0x10}, "LDA $10,X"},
		{[]byte{0xb6, 0x10}, "LDX $10,Y"},
		{[]byte{0xa1, 0x10}, "LDA ($10,X)"},
		{[]byte{0xb1, 0x10}, "LDA ($10),Y"},
		{[]byte{0xad, 0x34, 0x12}, "LDA $1234"},
		{[]byte{0xbd, 0x34, 0x12}, "LDA $1234,X"},
		{[]byte{0xb9, 0x34, 0x12}, "LDA $1234,Y"},
		{[]byte{0x6c, 0x34, 0x12}, "JMP ($1234)"},
		{[]byte{0xd0, 0xfe}, "BNE $1000"},
		{[]byte{0x10, 0x10}, "BPL $1012"},
		{[]byte{0xa7, 0x10}, "LAX $10"},
	}

	mem := cpu.NewFlatMemory()
	for _, tt := range tests {
		mem.StoreBytes(0x1000, tt.code)
		text, next := disasm.Instruction(mem, 0x1000)
		if text != tt.exp {
			t.Errorf("exp: %q, got: %q", tt.exp, text)
		}
		if next != 0x1000+uint16(len(tt.code)) {
			t.Errorf("%s: next address incorrect. got: $%04X", tt.exp, next)
		}
	}
}

func TestTotal(t *testing.T) {
	mem := cpu.NewFlatMemory()
	for i := 0; i < 256; i++ {
		mem.StoreBytes(0xfffe, []byte{byte(i), 0xff})
		line, next := disasm.Disassemble(mem, 0xfffe)
		if !strings.HasPrefix(line, "FFFE: ") {
			t.Errorf("opcode $%02X: bad line %q", i, line)
		}
		if next == 0xfffe {
			t.Errorf("opcode $%02X: no progress", i)
		}
	}
}

func TestFindPrevious(t *testing.T) {
	mem := cpu.NewFlatMemory()
	a := asm.New(mem)
	a.SetOrigin(0x2000)
	err := a.Compile("LDA $1234\x00INX\x00INX\x00NOP\x00\x00")
	if err != nil {
		t.Fatal(err)
	}

	if p := disasm.FindPrevious(mem, 0x2005); p != 0x2004 {
		t.Errorf("FindPrevious($2005) exp: $2004, got: $%04X", p)
	}
	if p := disasm.FindPrevious(mem, 0x2004); p != 0x2003 {
		t.Errorf("FindPrevious($2004) exp: $2003, got: $%04X", p)
	}
	if p := disasm.FindPrevious(mem, 0x2003); p != 0x2000 {
		t.Errorf("FindPrevious($2003) exp: $2000, got: $%04X", p)
	}
	if n := disasm.FindNext(mem, 0x2000); n != 0x2003 {
		t.Errorf("FindNext($2000) exp: $2003, got: $%04X", n)
	}
	if p := disasm.RollPrevious(mem, 0x2005, 3); p != 0x2000 {
		t.Errorf("RollPrevious($2005, 3) exp: $2000, got: $%04X", p)
	}
}

func TestHighlight(t *testing.T) {
	disasm.EnableColor(false)
	defer disasm.EnableColor(true)

	c := cpu.NewCPU(cpu.NewFlatMemory())
	c.AddBreakpoint(cpu.Breakpoint{Address: 0x10})
	if got := disasm.Highlight(c, 0x10, "line"); got != "line" {
		t.Errorf("uncolored highlight changed the line: %q", got)
	}

	disasm.EnableColor(true)
	if got := disasm.Highlight(c, 0x10, "line"); got == "line" {
		t.Error("breakpoint line should be colored")
	}
	if got := disasm.Highlight(c, 0x20, "line"); got != "line" {
		t.Errorf("plain line should be unchanged: %q", got)
	}
}

func TestRegisterString(t *testing.T) {
	var r cpu.Registers
	r.Init()
	r.PC = 0xc000
	r.Carry = true
	r.Sign = true

	exp := "A=00 X=00 Y=00 PS=[N-1----C] SP=FD PC=C000"
	if got := disasm.RegisterString(&r); got != exp {
		t.Errorf("exp: %q, got: %q", exp, got)
	}
}
