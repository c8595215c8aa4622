package cpu_test

import "testing"

const stepProgram = `
	*=$1000
	JSR $1010
	LDA #$01
	*=$1010
	JSR $1020
	LDY #$07
	RTS
	*=$1020
	LDX #$05
	RTS`

func TestStepIn(t *testing.T) {
	c := loadCPU(t, stepProgram)
	if c == nil {
		return
	}

	c.StepIn()
	expectPC(t, c, 0x1010)
	if c.Last.PC != 0x1000 || c.Last.SP != 0xfd {
		t.Errorf("snapshot incorrect. got: %+v", c.Last)
	}
	expectSP(t, c, 0xfb)
}

func TestStepOver(t *testing.T) {
	c := loadCPU(t, stepProgram)
	if c == nil {
		return
	}

	c.StepOver()
	expectPC(t, c, 0x1003)
	expectX(t, c, 0x05)
	expectSP(t, c, 0xfd)
	if c.Reg.Y != 0x07 {
		t.Errorf("Y register incorrect. exp: $07, got: $%02X", c.Reg.Y)
	}
	if c.Last.PC != 0x1000 {
		t.Errorf("snapshot PC incorrect. exp: $1000, got: $%04X", c.Last.PC)
	}

	c.StepOver()
	expectPC(t, c, 0x1005)
	expectACC(t, c, 0x01)
}

func TestStepOut(t *testing.T) {
	c := loadCPU(t, stepProgram)
	if c == nil {
		return
	}

	c.StepIn()
	c.StepIn()
	expectPC(t, c, 0x1020)

	n := c.StepOut()
	expectPC(t, c, 0x1013)
	if n != 2 {
		t.Errorf("instruction count incorrect. exp: 2, got: %d", n)
	}

	n = c.StepOut()
	expectPC(t, c, 0x1003)
	if n != 2 {
		t.Errorf("instruction count incorrect. exp: 2, got: %d", n)
	}
}

func TestStepOutLoop(t *testing.T) {
	asm := `
	*=$1000
	.LOOP
	NOP
	JMP LOOP`

	c := loadCPU(t, asm)
	if c == nil {
		return
	}

	n := c.StepOut()
	expectPC(t, c, 0x1000)
	if n != 2 {
		t.Errorf("instruction count incorrect. exp: 2, got: %d", n)
	}
}

func TestStepOverAdjacentCall(t *testing.T) {
	asm := `
	*=$1000
	JSR $1003
	INX
	RTS`

	c := loadCPU(t, asm)
	if c == nil {
		return
	}

	c.StepOver()
	expectPC(t, c, 0x1003)
	expectX(t, c, 0x01)
	expectSP(t, c, 0xfd)
}

func TestStepOutAdjacentCall(t *testing.T) {
	asm := `
	*=$1000
	JSR $1010
	NOP
	*=$1010
	JSR $1013
	INY
	RTS`

	c := loadCPU(t, asm)
	if c == nil {
		return
	}

	c.StepIn()
	expectPC(t, c, 0x1010)

	n := c.StepOut()
	expectPC(t, c, 0x1003)
	expectSP(t, c, 0xfd)
	if c.Reg.Y != 0x02 {
		t.Errorf("Y register incorrect. exp: $02, got: $%02X", c.Reg.Y)
	}
	if n != 5 {
		t.Errorf("instruction count incorrect. exp: 5, got: %d", n)
	}
}
