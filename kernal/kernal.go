// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package kernal replaces the file and character I/O routines of the
// Commodore 64 KERNAL ROM with host callbacks. Each routine is installed
// as a patch on the CPU, so a program that jumps into the ROM entry point
// is served by the host and returns as if the ROM code had run.
package kernal

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/beevik/mc6502/cpu"
	"github.com/beevik/prefixtree/v2"
)

// Entry points of the routines served by the host.
const (
	Load   uint16 = 0xf49e
	Save   uint16 = 0xf5dd
	Chrin  uint16 = 0xf157
	Chrout uint16 = 0xf1ca
	Clrchn uint16 = 0xf333
	Clall  uint16 = 0xffe7
	Listen uint16 = 0xed0c
	Talk   uint16 = 0xed09
	Lstnsa uint16 = 0xedb9
	Talksa uint16 = 0xedc7
	Untalk uint16 = 0xedef
	Unlstn uint16 = 0xedfe
	Iecin  uint16 = 0xee13
	Iecout uint16 = 0xeddd
	Open   uint16 = 0xf34a
	Close  uint16 = 0xf291
	Chkin  uint16 = 0xf20e
	Chkout uint16 = 0xf250
)

// Zero-page locations used by the routines.
const (
	zpStatus    = 0x90 // ST
	zpInput     = 0x99 // current input device
	zpOutput    = 0x9a // current output device
	zpEndLo     = 0xae // end of loaded data
	zpEndHi     = 0xaf
	zpNameLen   = 0xb7
	zpFile      = 0xb8 // logical file number
	zpSecondary = 0xb9
	zpDevice    = 0xba
	zpNameLo    = 0xbb
	zpNameHi    = 0xbc
)

// KERNAL error codes returned in A with carry set.
const (
	errTooManyFiles   = 1
	errFileOpen       = 2
	errFileNotOpen    = 3
	errFileNotFound   = 4
	errDeviceNotReady = 5
	errMissingName    = 8
	errIllegalDevice  = 9
)

// Status bits stored in ST.
const (
	statusEOF     = 0x40
	statusTimeout = 0x80
)

const (
	deviceKeyboard = 0
	deviceScreen   = 3
	maxFiles       = 10
)

// A Routine is one replaced KERNAL entry point.
type Routine struct {
	Name    string
	Address uint16
	fn      func(k *Kernal, c *cpu.CPU)
}

var routines = []Routine{
	{"LOAD", Load, (*Kernal).load},
	{"SAVE", Save, (*Kernal).save},
	{"CHRIN", Chrin, (*Kernal).chrin},
	{"CHROUT", Chrout, (*Kernal).chrout},
	{"CLRCHN", Clrchn, (*Kernal).clrchn},
	{"CLALL", Clall, (*Kernal).clall},
	{"LISTEN", Listen, (*Kernal).serial},
	{"TALK", Talk, (*Kernal).serial},
	{"LSTNSA", Lstnsa, (*Kernal).serial},
	{"TALKSA", Talksa, (*Kernal).serial},
	{"UNTALK", Untalk, (*Kernal).serial},
	{"UNLSTN", Unlstn, (*Kernal).serial},
	{"IECIN", Iecin, (*Kernal).iecin},
	{"IECOUT", Iecout, (*Kernal).iecout},
	{"OPEN", Open, (*Kernal).open},
	{"CLOSE", Close, (*Kernal).close},
	{"CHKIN", Chkin, (*Kernal).chkin},
	{"CHKOUT", Chkout, (*Kernal).chkout},
}

var routineTree = prefixtree.New[*Routine]()

func init() {
	for i := range routines {
		routineTree.Add(strings.ToLower(routines[i].Name), &routines[i])
	}
}

// Routines returns the replaced entry points in installation order.
func Routines() []Routine {
	r := make([]Routine, len(routines))
	copy(r, routines)
	return r
}

// Find returns the routine whose name starts with the given prefix. The
// prefix must select exactly one routine.
func Find(prefix string) (Routine, error) {
	r, err := routineTree.FindValue(strings.ToLower(prefix))
	if err != nil {
		return Routine{}, fmt.Errorf("kernal routine %q: %w", prefix, err)
	}
	return *r, nil
}

// ErrNoRoutine is returned by Lookup for an address with no routine.
var ErrNoRoutine = errors.New("no kernal routine at address")

// Lookup returns the routine installed at addr.
func Lookup(addr uint16) (Routine, error) {
	for _, r := range routines {
		if r.Address == addr {
			return r, nil
		}
	}
	return Routine{}, ErrNoRoutine
}

// Config describes the host side of the KERNAL.
type Config struct {
	Storage Storage   // disk and tape devices; nil disables file access
	Input   io.Reader // keyboard; nil reads end of file
	Output  io.Writer // screen; nil discards output
	Trace   io.Writer // when non-nil, each file operation is logged here

	// DiskName is the title of directory listings.
	DiskName string
}

// A Kernal holds the open logical files and the current channels.
type Kernal struct {
	cfg   Config
	input *bufio.Reader
	files []*file
	in    *file // nil selects the keyboard
	out   *file // nil selects the screen
}

type file struct {
	lfn       byte
	secondary byte
	device    byte
	r         *bufio.Reader
	c         io.Closer
	w         io.Writer
}

// Install patches every routine into the CPU.
func Install(c *cpu.CPU, cfg Config) (*Kernal, error) {
	k := New(cfg)
	for _, r := range routines {
		if err := k.InstallRoutine(c, r); err != nil {
			return nil, err
		}
	}
	return k, nil
}

// New creates a KERNAL without installing it.
func New(cfg Config) *Kernal {
	if cfg.Input == nil {
		cfg.Input = strings.NewReader("")
	}
	if cfg.Output == nil {
		cfg.Output = io.Discard
	}
	return &Kernal{cfg: cfg, input: bufio.NewReader(cfg.Input)}
}

// InstallRoutine patches a single routine into the CPU.
func (k *Kernal) InstallRoutine(c *cpu.CPU, r Routine) error {
	fn := r.fn
	err := c.SetPatch(r.Address, func(c *cpu.CPU, label string) {
		fn(k, c)
		c.ReturnFromSubroutine()
	}, r.Name)
	if err != nil {
		return fmt.Errorf("installing %s: %w", r.Name, err)
	}
	return nil
}

func (k *Kernal) trace(format string, args ...any) {
	if k.cfg.Trace != nil {
		fmt.Fprintf(k.cfg.Trace, "kernal: "+format+"\n", args...)
	}
}

// Read the current file name from memory.
func fileName(m cpu.Memory) string {
	n := m.LoadByte(zpNameLen)
	addr := uint16(m.LoadByte(zpNameLo)) | uint16(m.LoadByte(zpNameHi))<<8
	b := make([]byte, n)
	m.LoadBytes(addr, b)
	return string(b)
}

func isStorageDevice(d byte) bool {
	return d == 1 || (d >= 8 && d <= 11)
}

func fail(c *cpu.CPU, code byte) {
	c.Reg.A = code
	c.Reg.Carry = true
}

func succeed(c *cpu.CPU) {
	c.Reg.Carry = false
}

// LOAD: A=0 loads, A=1 verifies. The first two bytes of the file are its
// load address. Secondary address 0 on a disk device relocates the data
// to X/Y instead. A name starting with '$' loads a directory listing to
// the start of BASIC. On success X/Y and $AE/$AF hold the end address.
func (k *Kernal) load(c *cpu.CPU) {
	m := c.Mem
	name := fileName(m)

	if c.Reg.A == 1 {
		if v, ok := strings.CutPrefix(name, "CYCLE="); ok {
			if n, err := strconv.Atoi(v); err == nil && n >= 0 {
				c.CycleHack = n
				k.trace("cycle hack %d", n)
			}
		}
		succeed(c)
		return
	}

	device := m.LoadByte(zpDevice)
	if !isStorageDevice(device) || k.cfg.Storage == nil {
		m.StoreByte(zpStatus, statusTimeout)
		fail(c, errIllegalDevice)
		return
	}
	if name == "" {
		fail(c, errMissingName)
		return
	}
	if name[0] == '$' {
		k.directory(c, name)
		return
	}

	r, err := k.cfg.Storage.Open(name)
	if err != nil {
		k.trace("LOAD %q: %v", name, err)
		fail(c, errFileNotFound)
		return
	}
	data, err := io.ReadAll(r)
	r.Close()
	if err != nil {
		k.trace("LOAD %q: %v", name, err)
		fail(c, errFileNotFound)
		return
	}

	if len(data) < 2 {
		fail(c, errFileNotFound)
		return
	}
	addr := uint16(data[0]) | uint16(data[1])<<8
	data = data[2:]
	if m.LoadByte(zpSecondary) == 0 && device != 1 {
		addr = uint16(c.Reg.X) | uint16(c.Reg.Y)<<8
	}

	m.StoreBytes(addr, data)
	end := addr + uint16(len(data))
	m.StoreByte(zpEndLo, byte(end))
	m.StoreByte(zpEndHi, byte(end>>8))
	m.StoreByte(zpStatus, statusEOF)
	c.Reg.X = byte(end)
	c.Reg.Y = byte(end >> 8)
	k.trace("LOAD %q $%04X-$%04X", name, addr, end)
	succeed(c)
}

// SAVE: A holds the zero-page address of the start pointer and X/Y the
// end address (exclusive). An end below the start is refused.
func (k *Kernal) save(c *cpu.CPU) {
	m := c.Mem
	name := fileName(m)

	device := m.LoadByte(zpDevice)
	if !isStorageDevice(device) || k.cfg.Storage == nil {
		fail(c, errIllegalDevice)
		return
	}
	if name == "" {
		fail(c, errMissingName)
		return
	}

	ptr := uint16(c.Reg.A)
	start := uint16(m.LoadByte(ptr)) | uint16(m.LoadByte((ptr+1)&0xff))<<8
	end := uint16(c.Reg.X) | uint16(c.Reg.Y)<<8
	if end < start {
		k.trace("SAVE %q: end $%04X before start $%04X", name, end, start)
		fail(c, errDeviceNotReady)
		return
	}

	b := make([]byte, end-start)
	m.LoadBytes(start, b)

	w, err := k.cfg.Storage.Create(name)
	if err != nil {
		k.trace("SAVE %q: %v", name, err)
		fail(c, errDeviceNotReady)
		return
	}
	_, err = w.Write(append([]byte{byte(start), byte(start >> 8)}, b...))
	if cerr := w.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		k.trace("SAVE %q: %v", name, err)
		fail(c, errDeviceNotReady)
		return
	}

	k.trace("SAVE %q $%04X-$%04X", name, start, end)
	m.StoreByte(zpStatus, 0)
	succeed(c)
}

// CHRIN reads a byte from the current input channel into A.
func (k *Kernal) chrin(c *cpu.CPU) {
	r := k.input
	if k.in != nil {
		r = k.in.r
	}

	b, err := r.ReadByte()
	if err != nil {
		c.Mem.StoreByte(zpStatus, statusEOF)
		b = 13
	} else if b == '\n' && r == k.input {
		b = 13
	}
	c.Reg.A = b
	succeed(c)
}

// CHROUT writes A to the current output channel.
func (k *Kernal) chrout(c *cpu.CPU) {
	b := c.Reg.A
	if k.out != nil && k.out.device != deviceScreen {
		k.out.w.Write([]byte{b})
	} else {
		if b == 13 {
			b = '\n'
		}
		k.cfg.Output.Write([]byte{b})
	}
	succeed(c)
}

// CLRCHN restores the keyboard and screen channels.
func (k *Kernal) clrchn(c *cpu.CPU) {
	k.in, k.out = nil, nil
	c.Mem.StoreByte(zpInput, deviceKeyboard)
	c.Mem.StoreByte(zpOutput, deviceScreen)
}

// CLALL closes every logical file.
func (k *Kernal) clall(c *cpu.CPU) {
	for _, f := range k.files {
		if f.c != nil {
			f.c.Close()
		}
	}
	k.files = k.files[:0]
	k.clrchn(c)
}

// The serial bus handshake routines have nothing to do.
func (k *Kernal) serial(c *cpu.CPU) {
	succeed(c)
}

// IECIN reads a byte from the current input file.
func (k *Kernal) iecin(c *cpu.CPU) {
	if k.in == nil || k.in.r == nil {
		c.Mem.StoreByte(zpStatus, statusTimeout)
		fail(c, errFileNotOpen)
		return
	}
	b, err := k.in.r.ReadByte()
	if err != nil {
		c.Mem.StoreByte(zpStatus, statusEOF)
		c.Reg.Carry = true
		return
	}
	c.Mem.StoreByte(zpStatus, 0)
	c.Reg.A = b
	succeed(c)
}

// IECOUT writes A to the current output file.
func (k *Kernal) iecout(c *cpu.CPU) {
	if k.out != nil && k.out.w != nil {
		k.out.w.Write([]byte{c.Reg.A})
	}
	succeed(c)
}

func (k *Kernal) lookup(lfn byte) (int, *file) {
	for i, f := range k.files {
		if f.lfn == lfn {
			return i, f
		}
	}
	return -1, nil
}

// OPEN opens the logical file set up in $B8-$BC. Secondary address 1
// opens a storage file for writing, any other for reading.
func (k *Kernal) open(c *cpu.CPU) {
	m := c.Mem
	f := &file{
		lfn:       m.LoadByte(zpFile),
		secondary: m.LoadByte(zpSecondary),
		device:    m.LoadByte(zpDevice),
	}

	if _, g := k.lookup(f.lfn); g != nil {
		fail(c, errFileOpen)
		return
	}
	if len(k.files) == maxFiles {
		fail(c, errTooManyFiles)
		return
	}

	switch {
	case f.device == deviceKeyboard:
		f.r = k.input
	case f.device == deviceScreen:
		f.w = k.cfg.Output
	case isStorageDevice(f.device) && k.cfg.Storage != nil:
		name := fileName(m)
		if name == "" {
			fail(c, errMissingName)
			return
		}
		if f.secondary == 1 {
			w, err := k.cfg.Storage.Create(name)
			if err != nil {
				k.trace("OPEN %q: %v", name, err)
				fail(c, errDeviceNotReady)
				return
			}
			f.w, f.c = w, w
		} else {
			r, err := k.cfg.Storage.Open(name)
			if err != nil {
				k.trace("OPEN %q: %v", name, err)
				fail(c, errFileNotFound)
				return
			}
			f.r, f.c = bufio.NewReader(r), r
		}
		k.trace("OPEN %d,%d,%d %q", f.lfn, f.device, f.secondary, name)
	default:
		fail(c, errIllegalDevice)
		return
	}

	k.files = append(k.files, f)
	succeed(c)
}

// CLOSE closes the logical file in A. Closing a file that is not open
// succeeds silently.
func (k *Kernal) close(c *cpu.CPU) {
	i, f := k.lookup(c.Reg.A)
	if f == nil {
		succeed(c)
		return
	}
	if f.c != nil {
		if err := f.c.Close(); err != nil {
			k.trace("CLOSE %d: %v", f.lfn, err)
		}
	}
	if k.in == f {
		k.in = nil
	}
	if k.out == f {
		k.out = nil
	}
	k.files = append(k.files[:i], k.files[i+1:]...)
	succeed(c)
}

// CHKIN selects the logical file in X as the input channel.
func (k *Kernal) chkin(c *cpu.CPU) {
	_, f := k.lookup(c.Reg.X)
	if f == nil || f.r == nil {
		fail(c, errFileNotOpen)
		return
	}
	k.in = f
	c.Mem.StoreByte(zpInput, f.device)
	succeed(c)
}

// CHKOUT selects the logical file in X as the output channel.
func (k *Kernal) chkout(c *cpu.CPU) {
	_, f := k.lookup(c.Reg.X)
	if f == nil || f.w == nil {
		fail(c, errFileNotOpen)
		return
	}
	k.out = f
	c.Mem.StoreByte(zpOutput, f.device)
	succeed(c)
}
