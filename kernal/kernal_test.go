package kernal_test

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/beevik/mc6502/asm"
	"github.com/beevik/mc6502/cpu"
	"github.com/beevik/mc6502/kernal"
	"github.com/beevik/prefixtree/v2"
)

type machine struct {
	c   *cpu.CPU
	k   *kernal.Kernal
	end uint16
}

func newMachine(t *testing.T, src string, cfg kernal.Config) *machine {
	t.Helper()
	mem := cpu.NewFlatMemory()
	c := cpu.NewCPU(mem)
	k, err := kernal.Install(c, cfg)
	if err != nil {
		t.Fatal(err)
	}

	a := asm.New(mem)
	for _, r := range kernal.Routines() {
		a.Define(r.Name, r.Address)
	}
	a.SetOrigin(0x1000)
	if err := a.AssembleLines(strings.NewReader(src)); err != nil {
		t.Fatal(err)
	}
	c.SetPC(0x1000)
	return &machine{c: c, k: k, end: a.Origin()}
}

func (m *machine) run(t *testing.T) {
	t.Helper()
	for i := 0; m.c.Reg.PC != m.end; i++ {
		if i == 10000 {
			t.Fatalf("program did not finish. PC=$%04X", m.c.Reg.PC)
		}
		m.c.FastClock()
	}
}

func (m *machine) setName(name string) {
	m.c.Mem.StoreBytes(0x0200, []byte(name))
	m.c.Mem.StoreByte(0xb7, byte(len(name)))
	m.c.Mem.StoreByte(0xbb, 0x00)
	m.c.Mem.StoreByte(0xbc, 0x02)
}

func (m *machine) setDevice(device, secondary byte) {
	m.c.Mem.StoreByte(0xba, device)
	m.c.Mem.StoreByte(0xb9, secondary)
}

func expectCarry(t *testing.T, c *cpu.CPU, carry bool) {
	t.Helper()
	if c.Reg.Carry != carry {
		t.Errorf("carry incorrect. exp: %v, got: %v", carry, c.Reg.Carry)
	}
}

func expectMem(t *testing.T, c *cpu.CPU, addr uint16, v byte) {
	t.Helper()
	got := c.Mem.LoadByte(addr)
	if got != v {
		t.Errorf("Memory at $%04X incorrect. exp: $%02X, got: $%02X", addr, v, got)
	}
}

func TestInstall(t *testing.T) {
	c := cpu.NewCPU(cpu.NewFlatMemory())
	if _, err := kernal.Install(c, kernal.Config{}); err != nil {
		t.Fatal(err)
	}
	patches := c.Patches()
	if len(patches) != len(kernal.Routines()) {
		t.Fatalf("patch count incorrect. exp: %d, got: %d", len(kernal.Routines()), len(patches))
	}
	if p := c.LookupPatch(kernal.Chrout); p == nil || p.Label != "CHROUT" {
		t.Error("CHROUT patch missing")
	}
}

func TestChrout(t *testing.T) {
	var out bytes.Buffer
	m := newMachine(t, `
	LDA #$48
	JSR CHROUT
	LDA #$49
	JSR CHROUT
	LDA #$0D
	JSR CHROUT`, kernal.Config{Output: &out})
	m.run(t)

	if out.String() != "HI\n" {
		t.Errorf("output incorrect. got: %q", out.String())
	}
	if m.c.Reg.A != 0x0d {
		t.Error("CHROUT should preserve A")
	}
	expectCarry(t, m.c, false)
}

func TestChrin(t *testing.T) {
	m := newMachine(t, `
	JSR CHRIN
	STA $10
	JSR CHRIN
	STA $11
	JSR CHRIN
	STA $12
	JSR CHRIN
	STA $13`, kernal.Config{Input: strings.NewReader("AB\n")})
	m.run(t)

	expectMem(t, m.c, 0x10, 'A')
	expectMem(t, m.c, 0x11, 'B')
	expectMem(t, m.c, 0x12, 0x0d)
	expectMem(t, m.c, 0x13, 0x0d)
	expectMem(t, m.c, 0x90, 0x40)
}

func TestLoad(t *testing.T) {
	s := kernal.NewMapStorage()
	s.Put("HELLO", []byte{0x00, 0xc0, 1, 2, 3})

	m := newMachine(t, `
	LDA #$00
	JSR LOAD`, kernal.Config{Storage: s})
	m.setName("HELLO")
	m.setDevice(8, 1)
	m.run(t)

	expectCarry(t, m.c, false)
	expectMem(t, m.c, 0xc000, 1)
	expectMem(t, m.c, 0xc002, 3)
	expectMem(t, m.c, 0xae, 0x03)
	expectMem(t, m.c, 0xaf, 0xc0)
	expectMem(t, m.c, 0x90, 0x40)
	if m.c.Reg.X != 0x03 || m.c.Reg.Y != 0xc0 {
		t.Errorf("end address incorrect. got: $%02X%02X", m.c.Reg.Y, m.c.Reg.X)
	}
}

func TestLoadRelocated(t *testing.T) {
	s := kernal.NewMapStorage()
	s.Put("HELLO", []byte{0x00, 0xc0, 1, 2, 3})

	m := newMachine(t, `
	LDA #$00
	LDX #$00
	LDY #$20
	JSR LOAD`, kernal.Config{Storage: s})
	m.setName("HEL*")
	m.setDevice(8, 0)
	m.run(t)

	expectCarry(t, m.c, false)
	expectMem(t, m.c, 0x2000, 1)
	expectMem(t, m.c, 0x2002, 3)
	expectMem(t, m.c, 0xc000, 0)
	if m.c.Reg.X != 0x03 || m.c.Reg.Y != 0x20 {
		t.Errorf("end address incorrect. got: $%02X%02X", m.c.Reg.Y, m.c.Reg.X)
	}
}

func TestLoadErrors(t *testing.T) {
	src := `
	LDA #$00
	JSR LOAD`

	m := newMachine(t, src, kernal.Config{Storage: kernal.NewMapStorage()})
	m.setName("MISSING")
	m.setDevice(8, 1)
	m.run(t)
	expectCarry(t, m.c, true)
	if m.c.Reg.A != 4 {
		t.Errorf("file not found: A incorrect. got: %d", m.c.Reg.A)
	}

	m = newMachine(t, src, kernal.Config{Storage: kernal.NewMapStorage()})
	m.setName("X")
	m.setDevice(3, 1)
	m.run(t)
	expectCarry(t, m.c, true)
	expectMem(t, m.c, 0x90, 0x80)
	if m.c.Reg.A != 9 {
		t.Errorf("illegal device: A incorrect. got: %d", m.c.Reg.A)
	}
}

func TestVerifyCycleHack(t *testing.T) {
	m := newMachine(t, `
	LDA #$01
	JSR LOAD`, kernal.Config{})
	m.setName("CYCLE=5")
	m.run(t)

	expectCarry(t, m.c, false)
	if m.c.CycleHack != 5 {
		t.Errorf("cycle hack incorrect. exp: 5, got: %d", m.c.CycleHack)
	}
}

func TestSave(t *testing.T) {
	s := kernal.NewMapStorage()
	m := newMachine(t, `
	LDA #$00
	STA $FB
	LDA #$C0
	STA $FC
	LDA #$FB
	LDX #$03
	LDY #$C0
	JSR SAVE`, kernal.Config{Storage: s})
	m.c.Mem.StoreBytes(0xc000, []byte{1, 2, 3})
	m.setName("OUT")
	m.setDevice(8, 1)
	m.run(t)

	expectCarry(t, m.c, false)
	b, ok := s.Get("OUT")
	if !ok || !bytes.Equal(b, []byte{0x00, 0xc0, 1, 2, 3}) {
		t.Errorf("saved file incorrect. got: % X", b)
	}
}

func TestSaveReversedRange(t *testing.T) {
	s := kernal.NewMapStorage()
	m := newMachine(t, `
	LDA #$10
	STA $FB
	LDA #$C0
	STA $FC
	LDA #$FB
	LDX #$00
	LDY #$C0
	JSR SAVE`, kernal.Config{Storage: s})
	m.setName("OUT")
	m.setDevice(8, 1)
	m.run(t)

	expectCarry(t, m.c, true)
	if m.c.Reg.A != 5 {
		t.Errorf("reversed range: A incorrect. got: %d", m.c.Reg.A)
	}
	if _, ok := s.Get("OUT"); ok {
		t.Error("reversed range should not create a file")
	}
}

// Walk a BASIC program and render each line as "number text".
func basicLines(c *cpu.CPU, addr uint16) []string {
	var lines []string
	for i := 0; i < 100; i++ {
		link := uint16(c.Mem.LoadByte(addr)) | uint16(c.Mem.LoadByte(addr+1))<<8
		if link == 0 {
			break
		}
		number := int(c.Mem.LoadByte(addr+2)) | int(c.Mem.LoadByte(addr+3))<<8
		var text []byte
		for a := addr + 4; c.Mem.LoadByte(a) != 0; a++ {
			text = append(text, c.Mem.LoadByte(a))
		}
		lines = append(lines, fmt.Sprintf("%d %s", number, text))
		addr = link
	}
	return lines
}

func TestDirectoryListing(t *testing.T) {
	s := kernal.NewMapStorage()
	s.Put("GAME", make([]byte, 300))
	s.Put("XRAY", make([]byte, 10))

	src := `
	LDA #$00
	JSR LOAD`
	m := newMachine(t, src, kernal.Config{Storage: s, DiskName: "work"})
	m.setName("$")
	m.setDevice(8, 0)
	m.run(t)

	expectCarry(t, m.c, false)
	expectMem(t, m.c, 0x90, 0x40)

	lines := basicLines(m.c, 0x0801)
	exp := [][]string{
		{"0", "\x12\"WORK", "\"", "MC", "2A"},
		{"2", "\"GAME\"", "PRG"},
		{"1", "\"XRAY\"", "PRG"},
		{"661", "BLOCKS", "FREE."},
	}
	if len(lines) != len(exp) {
		t.Fatalf("listing incorrect. got: %q", lines)
	}
	for i, e := range exp {
		if got := strings.Fields(lines[i]); strings.Join(got, " ") != strings.Join(e, " ") {
			t.Errorf("listing line %d incorrect. exp: %q, got: %q", i, e, got)
		}
	}

	// Header, two files and the free line are 30+30+30+18 bytes, then
	// the end-of-program marker.
	end := uint16(0x0801 + 108 + 2)
	if m.c.Reg.X != byte(end) || m.c.Reg.Y != byte(end>>8) {
		t.Errorf("end address incorrect. exp: $%04X, got: $%02X%02X", end, m.c.Reg.Y, m.c.Reg.X)
	}
	expectMem(t, m.c, 0xae, byte(end))
	expectMem(t, m.c, 0xaf, byte(end>>8))

	m = newMachine(t, src, kernal.Config{Storage: s})
	m.c.Mem.StoreByte(0x2b, 0x01)
	m.c.Mem.StoreByte(0x2c, 0x40)
	m.setName("$0:X*")
	m.setDevice(8, 0)
	m.run(t)

	lines = basicLines(m.c, 0x4001)
	if len(lines) != 3 || !strings.Contains(lines[0], "MC6502") ||
		!strings.Contains(lines[1], "XRAY") || !strings.HasPrefix(lines[2], "663 ") {
		t.Errorf("filtered listing incorrect. got: %q", lines)
	}
}

func TestDirStorageNames(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "disk")
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	s := kernal.DirStorage{Dir: dir}

	for _, name := range []string{"../ESCAPED", "..", "SUB/FILE", `SUB\FILE`, "/ABS"} {
		if _, err := s.Create(name); !errors.Is(err, kernal.ErrInvalidName) {
			t.Errorf("Create(%q) should fail with ErrInvalidName, got: %v", name, err)
		}
		if _, err := s.Open(name); !errors.Is(err, kernal.ErrInvalidName) {
			t.Errorf("Open(%q) should fail with ErrInvalidName, got: %v", name, err)
		}
	}

	m := newMachine(t, `
	LDA #$00
	STA $FB
	LDA #$C0
	STA $FC
	LDA #$FB
	LDX #$03
	LDY #$C0
	JSR SAVE`, kernal.Config{Storage: s})
	m.setName("../ESCAPED")
	m.setDevice(8, 1)
	m.run(t)

	expectCarry(t, m.c, true)
	if m.c.Reg.A != 5 {
		t.Errorf("escaping SAVE: A incorrect. got: %d", m.c.Reg.A)
	}
	if _, err := os.Stat(filepath.Join(root, "ESCAPED")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("SAVE wrote outside the storage directory: %v", err)
	}

	m = newMachine(t, `
	LDA #$00
	JSR LOAD`, kernal.Config{Storage: s})
	m.setName("../ESCAPED")
	m.setDevice(8, 1)
	m.run(t)
	expectCarry(t, m.c, true)
	if m.c.Reg.A != 4 {
		t.Errorf("escaping LOAD: A incorrect. got: %d", m.c.Reg.A)
	}
}

func TestStorageList(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "b.prg"), make([]byte, 5), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(dir, "a"), 0o755); err != nil {
		t.Fatal(err)
	}

	list, err := kernal.DirStorage{Dir: dir}.List()
	if err != nil {
		t.Fatal(err)
	}
	exp := []kernal.Entry{{Name: "a", Dir: true}, {Name: "b.prg", Size: 5}}
	if len(list) != len(exp) || list[0] != exp[0] || list[1] != exp[1] {
		t.Errorf("directory list incorrect. exp: %v, got: %v", exp, list)
	}

	s := kernal.NewMapStorage()
	s.Put("Z", []byte{1})
	s.Put("A", nil)
	list, _ = s.List()
	if len(list) != 2 || list[0].Name != "A" || list[1].Size != 1 {
		t.Errorf("map list incorrect. got: %v", list)
	}
}

func TestDirStorage(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "game.prg"), []byte{0x01, 0x08, 0xea}, 0o644); err != nil {
		t.Fatal(err)
	}

	s := kernal.DirStorage{Dir: dir}
	r, err := s.Open("GAME.PRG")
	if err != nil {
		t.Fatalf("case-insensitive open failed: %v", err)
	}
	r.Close()

	if _, err := s.Open("NOPE"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected not-exist error, got: %v", err)
	}

	m := newMachine(t, `
	LDA #$00
	JSR LOAD`, kernal.Config{Storage: s})
	m.setName("GAME*")
	m.setDevice(8, 1)
	m.run(t)
	expectCarry(t, m.c, false)
	expectMem(t, m.c, 0x0801, 0xea)
}

func TestOpenWriteRead(t *testing.T) {
	s := kernal.NewMapStorage()
	var out bytes.Buffer
	m := newMachine(t, `
	LDA #$02
	STA $B8
	JSR OPEN
	LDX #$02
	JSR CHKOUT
	LDA #$41
	JSR CHROUT
	LDA #$42
	JSR IECOUT
	JSR CLRCHN
	LDA #$02
	JSR CLOSE`, kernal.Config{Storage: s, Output: &out})
	m.setName("DATA")
	m.setDevice(8, 1)
	m.run(t)

	expectCarry(t, m.c, false)
	if b, _ := s.Get("DATA"); string(b) != "AB" {
		t.Errorf("written file incorrect. got: %q", b)
	}
	if out.Len() != 0 {
		t.Errorf("screen output should be empty. got: %q", out.String())
	}

	m = newMachine(t, `
	LDA #$03
	STA $B8
	JSR OPEN
	LDX #$03
	JSR CHKIN
	JSR CHRIN
	STA $10
	JSR IECIN
	STA $11
	JSR IECIN
	PHP
	PLA
	STA $12
	JSR CLALL`, kernal.Config{Storage: s})
	m.setName("DATA")
	m.setDevice(8, 0)
	m.run(t)

	expectMem(t, m.c, 0x10, 'A')
	expectMem(t, m.c, 0x11, 'B')
	if m.c.Mem.LoadByte(0x12)&cpu.CarryBit == 0 {
		t.Error("IECIN at end of file should set carry")
	}
	expectMem(t, m.c, 0x90, 0x40)
	expectMem(t, m.c, 0x99, 0)
	expectMem(t, m.c, 0x9a, 3)
}

func TestChannelErrors(t *testing.T) {
	m := newMachine(t, `
	LDX #$05
	JSR CHKIN`, kernal.Config{})
	m.run(t)
	expectCarry(t, m.c, true)
	if m.c.Reg.A != 3 {
		t.Errorf("CHKIN on a closed file: A incorrect. got: %d", m.c.Reg.A)
	}

	m = newMachine(t, `
	LDA #$01
	STA $B8
	JSR OPEN
	JSR OPEN`, kernal.Config{})
	m.setDevice(3, 0)
	m.run(t)
	expectCarry(t, m.c, true)
	if m.c.Reg.A != 2 {
		t.Errorf("reopening a file: A incorrect. got: %d", m.c.Reg.A)
	}
}

func TestSerialRoutines(t *testing.T) {
	m := newMachine(t, `
	SEC
	JSR LISTEN
	SEC
	JSR UNTALK`, kernal.Config{})
	m.run(t)
	expectCarry(t, m.c, false)
}

func TestFind(t *testing.T) {
	r, err := kernal.Find("chro")
	if err != nil || r.Address != kernal.Chrout {
		t.Errorf("Find(chro) incorrect. got: %v, %v", r, err)
	}
	if _, err := kernal.Find("ch"); !errors.Is(err, prefixtree.ErrPrefixAmbiguous) {
		t.Errorf("Find(ch) should be ambiguous. got: %v", err)
	}
	if _, err := kernal.Find("xyz"); !errors.Is(err, prefixtree.ErrPrefixNotFound) {
		t.Errorf("Find(xyz) should fail. got: %v", err)
	}

	r, err = kernal.Lookup(kernal.Save)
	if err != nil || r.Name != "SAVE" {
		t.Errorf("Lookup(SAVE) incorrect. got: %v, %v", r, err)
	}
	if _, err := kernal.Lookup(0x1234); err != kernal.ErrNoRoutine {
		t.Errorf("Lookup($1234) should fail. got: %v", err)
	}
}
