// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/beevik/mc6502/cpu"
)

func assemble(code string) ([]byte, error) {
	mem := cpu.NewFlatMemory()
	a := New(mem)
	a.SetOrigin(0x1000)
	if err := a.AssembleLines(strings.NewReader(code)); err != nil {
		return []byte{}, err
	}
	b := make([]byte, a.Origin()-0x1000)
	mem.LoadBytes(0x1000, b)
	return b, nil
}

func checkASM(t *testing.T, asm string, expected string) {
	t.Helper()
	code, err := assemble(asm)
	if err != nil {
		t.Error(err)
		return
	}

	b := make([]byte, len(code)*2)
	for i, j := 0, 0; i < len(code); i, j = i+1, j+2 {
		v := code[i]
		b[j+0] = hex[v>>4]
		b[j+1] = hex[v&0x0f]
	}
	s := string(b)

	if s != expected {
		t.Error("code doesn't match expected")
		t.Errorf("got: %s\n", s)
		t.Errorf("exp: %s\n", expected)
	}
}

func checkASMError(t *testing.T, asm string, target error, line int) {
	t.Helper()
	_, err := assemble(asm)
	if err == nil {
		t.Errorf("Expected error on %s, didn't get one\n", asm)
		return
	}
	if !errors.Is(err, target) {
		t.Errorf("Expected '%v', got '%v'\n", target, err)
	}
	var e *Error
	if !errors.As(err, &e) {
		t.Errorf("Expected *Error, got %T\n", err)
	} else if e.Line != line {
		t.Errorf("Error line incorrect. exp: %d, got: %d\n", line, e.Line)
	}
}

func TestAddressingIMM(t *testing.T) {
	asm := `
	LDA #$20
	LDX #$20
	LDY #$20
	ADC #$20
	SBC #$20
	CMP #$20
	CPX #$20
	CPY #$20
	AND #$20
	ORA #$20
	EOR #$20`

	checkASM(t, asm, "A920A220A0206920E920C920E020C020292009204920")
}

func TestAddressingABS(t *testing.T) {
	asm := `
	LDA $2000
	LDX $2000
	LDY $2000
	STA $2000
	STX $2000
	STY $2000
	JMP $2000
	JSR $2000`

	checkASM(t, asm, "AD0020AE0020AC00208D00208E00208C00204C0020200020")
}

func TestAddressingZeroPage(t *testing.T) {
	asm := `
	LDA $20
	LDA $20,X
	LDX $20,Y
	STA $20,Y
	LDA ($20,X)
	LDA ($20),Y
	LDA $2000,X
	LDA $2000,Y
	JMP ($2000)`

	checkASM(t, asm, "A520B520B620992000A120B120BD0020B900206C0020")
}

func TestAddressingImplied(t *testing.T) {
	asm := `
	NOP
	ASL
	ROL A
	LSR A
	ROR
	RTS
	BRK`

	checkASM(t, asm, "EA0A2A4A6A6000")
}

func TestNumbers(t *testing.T) {
	asm := `
	LDA #%10000001
	LDA #255
	LDA 4096
	lda #$0a ; lower case and a comment`

	checkASM(t, asm, "A981A9FFAD0010A90A")
}

func TestIllegalMnemonics(t *testing.T) {
	asm := `
	LAX $10
	SAX $10,Y
	DCP ($10),Y
	ISB $2000,X
	SLO $10
	RLA $10
	SRE $10
	RRA $10`

	checkASM(t, asm, "A7109710D310FF00200710271047106710")
}

func TestLabels(t *testing.T) {
	asm := `
	LDX #$03
	.LOOP
	DEX
	BNE LOOP
	JMP END
	NOP
	.END
	RTS`

	checkASM(t, asm, "A203CAD0FD4C0910EA60")
}

func TestForwardBranch(t *testing.T) {
	asm := `
	BEQ SKIP
	NOP
	NOP
	.SKIP
	RTS`

	checkASM(t, asm, "F002EAEA60")
}

func TestByteSelectors(t *testing.T) {
	asm := `
	LDA #<DATA
	LDX #>DATA
	*=$1234
	.DATA
	RTS`

	mem := cpu.NewFlatMemory()
	a := New(mem)
	a.SetOrigin(0x1000)
	if err := a.AssembleLines(strings.NewReader(asm)); err != nil {
		t.Fatal(err)
	}

	var b [4]byte
	mem.LoadBytes(0x1000, b[:])
	if b != [4]byte{0xa9, 0x34, 0xa2, 0x12} {
		t.Errorf("code incorrect. got: % X", b[:])
	}
	if mem.LoadByte(0x1234) != 0x60 {
		t.Error("RTS not written at $1234")
	}
	if a.Origin() != 0x1235 {
		t.Errorf("origin incorrect. exp: $1235, got: $%04X", a.Origin())
	}
}

func TestDefine(t *testing.T) {
	mem := cpu.NewFlatMemory()
	a := New(mem)
	a.SetOrigin(0x1000)
	a.Define(" border ", 0xd020)
	a.Define("init", 0x1003)

	err := a.Compile("JSR INIT\x00STA BORDER\x00.INIT\x00RTS\x00\x00")
	if err != nil {
		t.Fatal(err)
	}

	var b [7]byte
	mem.LoadBytes(0x1000, b[:])
	exp := [7]byte{0x20, 0x06, 0x10, 0x8d, 0x20, 0xd0, 0x60}
	if b != exp {
		t.Errorf("code incorrect. exp: % X, got: % X", exp[:], b[:])
	}

	if v, ok := a.Lookup("init"); !ok || v != 0x1006 {
		t.Errorf("label should override the defined value. got: $%04X", v)
	}

	symbols := a.Symbols()
	if len(symbols) != 2 || symbols[0].Name != "BORDER" || symbols[1].Name != "INIT" {
		t.Errorf("symbols incorrect. got: %v", symbols)
	}
}

func TestConsecutiveCompiles(t *testing.T) {
	mem := cpu.NewFlatMemory()
	a := New(mem)
	a.SetOrigin(0xc000)

	if err := a.Compile("LDA #$01\x00\x00"); err != nil {
		t.Fatal(err)
	}
	if err := a.Compile("RTS\x00\x00"); err != nil {
		t.Fatal(err)
	}
	if mem.LoadByte(0xc002) != 0x60 || a.Origin() != 0xc003 {
		t.Error("second compile should continue at the previous origin")
	}
}

func TestVerbose(t *testing.T) {
	var out bytes.Buffer
	a := New(cpu.NewFlatMemory())
	a.Verbose = &out
	a.SetOrigin(0x1000)
	if err := a.Compile("LDA #$05\x00\x00"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "-- Generating code --") ||
		!strings.Contains(out.String(), "1000-   A9 05") {
		t.Errorf("verbose output incorrect:\n%s", out.String())
	}
}

func TestErrors(t *testing.T) {
	checkASMError(t, "LDA #$100", ErrSyntax, 1)
	checkASMError(t, "NOP\nFOO $10", ErrSyntax, 2)
	checkASMError(t, "STA #$10", ErrSyntax, 1)
	checkASMError(t, "LDA UNDEFINED", ErrSyntax, 1)
	checkASMError(t, "*=C000", ErrOrigin, 1)
	checkASMError(t, ".X\nNOP\n.X", ErrDuplicateLabel, 3)

	far := "BNE FAR\n" + strings.Repeat("NOP\n", 200) + ".FAR\nRTS"
	checkASMError(t, far, ErrBranchRange, 1)
}

func TestPhaseError(t *testing.T) {
	mem := cpu.NewFlatMemory()
	a := New(mem)
	a.SetOrigin(0x00f0)

	err := a.Compile("LDA DATA\x00*=$0100\x00NOP\x00.DATA\x00\x00")
	if err != nil {
		t.Fatalf("zero page origin with a label in page one: %v", err)
	}

	a = New(mem)
	a.SetOrigin(0x0080)
	err = a.Compile("LDA DATA\x00" + strings.Repeat("NOP\x00", 126) + ".DATA\x00\x00")
	if !errors.Is(err, ErrPhase) {
		t.Errorf("expected ErrPhase, got: %v", err)
	}
}
