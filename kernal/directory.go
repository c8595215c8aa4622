// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package kernal

import (
	"strings"

	"github.com/beevik/mc6502/cpu"
)

const (
	diskBlocks     = 664    // free blocks on an empty 1541 disk
	basicStartLo   = 0x2b   // TXTTAB
	basicStartHi   = 0x2c
	defaultBasic   = 0x0801 // TXTTAB after power-on
	basicTop       = 0xa000 // first byte past BASIC RAM
	maxListingLine = 40
)

// A listing accumulates a directory as a tokenized BASIC program. Each
// line number holds a block count, as on a real drive.
type listing struct {
	start uint16
	buf   []byte
}

// Append a BASIC line, leaving the link to be filled in by bytes.
func (l *listing) line(number int, text string) {
	l.buf = append(l.buf, 0, 0, byte(number), byte(number>>8))
	l.buf = append(l.buf, text...)
	l.buf = append(l.buf, 0)
}

// Return the program with its line links resolved and the end marker
// appended.
func (l *listing) bytes() []byte {
	b := append(l.buf, 0, 0)
	for i := 0; i < len(l.buf); {
		j := i + 4
		for b[j] != 0 {
			j++
		}
		next := l.start + uint16(j+1)
		b[i], b[i+1] = byte(next), byte(next>>8)
		i = j + 1
	}
	return b
}

func (l *listing) full() bool {
	return int(l.start)+len(l.buf)+2*maxListingLine > basicTop
}

func blockIndent(blocks int) string {
	switch {
	case blocks < 10:
		return "   "
	case blocks < 100:
		return "  "
	default:
		return " "
	}
}

func fileType(e Entry) string {
	switch {
	case e.Dir:
		return "DIR"
	case strings.HasSuffix(strings.ToUpper(e.Name), ".SID"):
		return "SID"
	default:
		return "PRG"
	}
}

// Write a listing of the storage, filtered by the pattern after an
// optional "$:" or "$0:", to the start of BASIC. The end address is
// reported like a LOAD.
func (k *Kernal) directory(c *cpu.CPU, name string) {
	m := c.Mem

	pattern := "*"
	if i := strings.IndexByte(name, ':'); i >= 0 && i+1 < len(name) {
		pattern = name[i+1:]
	}

	entries, err := k.cfg.Storage.List()
	if err != nil {
		k.trace("LOAD %q: %v", name, err)
		fail(c, errFileNotFound)
		return
	}

	start := uint16(m.LoadByte(basicStartLo)) | uint16(m.LoadByte(basicStartHi))<<8
	if start == 0 {
		start = defaultBasic
	}

	label := strings.ToUpper(k.cfg.DiskName)
	if label == "" {
		label = "MC6502"
	}
	if len(label) > 16 {
		label = label[:16]
	}

	l := &listing{start: start}
	l.line(0, "\x12\""+label+strings.Repeat(" ", 16-len(label))+"\" MC 2A")

	free := diskBlocks
	for _, e := range entries {
		if !match(pattern, e.Name) || l.full() {
			continue
		}
		blocks := int((e.Size + 255) / 256)
		free -= blocks

		n := strings.ToUpper(e.Name)
		if len(n) > 16 {
			n = n[:16]
		}
		quoted := "\"" + n + "\""
		text := blockIndent(blocks) + quoted + strings.Repeat(" ", 18-len(quoted)) + " " + fileType(e)
		l.line(blocks, text)
	}
	free = max(free, 0)
	l.line(free, blockIndent(free)+"BLOCKS FREE.")

	b := l.bytes()
	m.StoreBytes(start, b)
	end := start + uint16(len(b))
	m.StoreByte(zpEndLo, byte(end))
	m.StoreByte(zpEndHi, byte(end>>8))
	m.StoreByte(zpStatus, statusEOF)
	c.Reg.X = byte(end)
	c.Reg.Y = byte(end >> 8)
	k.trace("LOAD %q $%04X-$%04X", name, start, end)
	succeed(c)
}
