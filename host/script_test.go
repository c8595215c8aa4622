package host_test

import (
	"strings"
	"testing"

	"github.com/beevik/mc6502/host"
)

func TestScript(t *testing.T) {
	h := host.New()
	defer h.Close()

	script := writeFile(t, "test.lua", []byte(`
		poke(0x3000, 1, 2)
		print(peek(0x3001))
		setreg("a", 0x42)
		setreg("c", true)
		trap(0xF000, "HOOK", function(label)
			poke(0x3100, 0x99)
			print("trap " .. label)
			return true
		end)
		assemble("*=$1000\nJSR $F000\nBRK\n")
		exec("breakpoint add $1003")
		local n, stop = run(0x1000)
		print(n, stop)
		print(reg("a"), reg("c"), reg("pc"))
	`))

	out, ok := runCommands(h, "script "+script, "patch list")
	if !ok {
		t.Error("unexpected quit")
	}
	expectOutput(t, out,
		"2\n",
		"trap HOOK",
		"Breakpoint added at $1003.",
		"Breakpoint hit at $1003.",
		"1\t4099\n",
		"66\ttrue\t4099\n",
		"$F000 HOOK",
	)

	c := h.CPU()
	if v := c.Mem.LoadByte(0x3100); v != 0x99 {
		t.Errorf("trap did not run. got: $%02X", v)
	}
}

func TestScriptState(t *testing.T) {
	h := host.New()
	defer h.Close()

	if err := h.RunScriptString("counter = 41"); err != nil {
		t.Fatal(err)
	}
	if err := h.RunScriptString("counter = counter + 1\npoke(0x2000, counter)"); err != nil {
		t.Fatal(err)
	}
	if v := h.CPU().Mem.LoadByte(0x2000); v != 42 {
		t.Errorf("globals not kept. exp: 42, got: %d", v)
	}
}

func TestScriptStepping(t *testing.T) {
	h := host.New()
	defer h.Close()

	err := h.RunScriptString(`
		assemble("*=$1000\nJSR $1010\nLDY #$01\n*=$1010\nLDX #$05\nRTS\n")
		setreg("pc", 0x1000)
		stepover()
		step(1)
		poke(0x2000, reg("x"), reg("y"))
	`)
	if err != nil {
		t.Fatal(err)
	}

	c := h.CPU()
	if c.Reg.PC != 0x1005 || c.Mem.LoadByte(0x2000) != 5 || c.Mem.LoadByte(0x2001) != 1 {
		t.Errorf("stepping incorrect. PC=$%04X", c.Reg.PC)
	}
}

func TestScriptErrors(t *testing.T) {
	h := host.New()
	defer h.Close()

	if err := h.RunScriptString(`reg("q")`); err == nil {
		t.Error("unknown register accepted")
	}
	if err := h.RunScriptString(`peek(0x10000)`); err == nil {
		t.Error("bad address accepted")
	}
	if err := h.RunScriptString(`exec("bogus command")`); err == nil {
		t.Error("unknown command accepted")
	}

	script := writeFile(t, "quit.lua", []byte(`exec("quit")`))
	out, ok := runCommands(h, "script "+script, "register a 1")
	if ok {
		t.Error("quit not reported")
	}
	if strings.Contains(out, "Register A") {
		t.Errorf("commands ran after quit:\n%s", out)
	}
}
