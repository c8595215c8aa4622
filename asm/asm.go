// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package asm implements a small three-pass 6502 assembler that writes
// machine code straight into CPU memory.
//
// Source is a sequence of NUL-separated lines ending at the first empty
// line. Each line is one of:
//
//	*=$C000      set the assembly address
//	.LOOP        define a label at the current address
//	LDA #<LOOP   an instruction
//
// Symbols in operands are replaced by their values before a line is
// scanned. A '<' or '>' prefix selects the low or high byte.
package asm

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/beevik/mc6502/cpu"
)

// Errors reported by Compile, wrapped in an *Error.
var (
	ErrSyntax         = errors.New("syntax error")
	ErrBranchRange    = errors.New("branch out of range")
	ErrDuplicateLabel = errors.New("duplicate label")
	ErrPhase          = errors.New("label moved between passes")
	ErrOrigin         = errors.New("bad origin")
)

// An Error describes a failure on one line of source.
type Error struct {
	Line int    // 1-based line number
	Text string // line text after symbol substitution
	Err  error  // underlying error
}

func (e *Error) Error() string {
	return fmt.Sprintf("line %d: %v: %s", e.Line, e.Err, e.Text)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// A Symbol is a named 16-bit value, either a label or a value supplied
// with Define.
type Symbol struct {
	Name  string
	Value uint16
}

// An Assembler compiles source into memory. Symbols persist across calls
// to Compile, and each compile starts where the previous one ended.
type Assembler struct {
	Verbose io.Writer // when non-nil, each pass is logged here

	mem     cpu.Memory
	origin  uint16
	symbols map[string]uint16
	scanner *Scanner
}

var passNames = [...]string{
	"Collecting labels",
	"Measuring code",
	"Generating code",
}

// New creates an assembler that writes into 'mem'.
func New(mem cpu.Memory) *Assembler {
	return &Assembler{
		mem:     mem,
		symbols: make(map[string]uint16),
		scanner: NewScanner(),
	}
}

// SetOrigin sets the address at which the next Compile starts.
func (a *Assembler) SetOrigin(addr uint16) {
	a.origin = addr
}

// Origin returns the address that follows the code generated by the last
// Compile.
func (a *Assembler) Origin() uint16 {
	return a.origin
}

// Define adds or updates a symbol. The name is trimmed and upper-cased.
// A label of the same name overrides it.
func (a *Assembler) Define(symbol string, value uint16) {
	a.symbols[strings.ToUpper(strings.TrimSpace(symbol))] = value
}

// Lookup returns the value of a symbol.
func (a *Assembler) Lookup(symbol string) (uint16, bool) {
	v, ok := a.symbols[strings.ToUpper(symbol)]
	return v, ok
}

// Symbols returns all symbols sorted by name.
func (a *Assembler) Symbols() []Symbol {
	symbols := make([]Symbol, 0, len(a.symbols))
	for name, v := range a.symbols {
		symbols = append(symbols, Symbol{name, v})
	}
	sort.Slice(symbols, func(i, j int) bool {
		return symbols[i].Name < symbols[j].Name
	})
	return symbols
}

// Compile assembles NUL-separated source lines into memory in three
// passes. The first pass only collects labels and origins, the second
// measures every instruction so forward labels settle, and the third
// writes the code. Bytes written before an error are not rolled back.
func (a *Assembler) Compile(src string) error {
	lines := splitSource(src)

	var addr uint16
	for pass := 0; pass < 3; pass++ {
		a.logSection(passNames[pass])
		addr = a.origin
		seen := make(map[string]bool)

		for i, raw := range lines {
			l := strings.ToUpper(strings.TrimSpace(raw))
			lineno := i + 1

			switch {
			case l == "":
				continue

			case l[0] == '*':
				v, err := parseOrigin(l[1:])
				if err != nil {
					return &Error{lineno, l, err}
				}
				addr = v
				a.logLine(lineno, l, "origin=$%04X", addr)

			case l[0] == '.':
				name := strings.TrimSpace(l[1:])
				if !isIdentifier(name) {
					return &Error{lineno, l, fmt.Errorf("%w: bad label", ErrSyntax)}
				}
				if seen[name] {
					return &Error{lineno, l, ErrDuplicateLabel}
				}
				seen[name] = true
				if old, ok := a.symbols[name]; pass == 2 && ok && old != addr {
					return &Error{lineno, l, fmt.Errorf("%w: %s was $%04X, now $%04X", ErrPhase, name, old, addr)}
				}
				a.symbols[name] = addr
				a.logLine(lineno, l, "label=$%04X", addr)

			default:
				if pass == 0 {
					continue
				}
				text, err := a.substitute(l)
				if err != nil {
					return &Error{lineno, l, err}
				}
				if err := a.scanner.Scan(text); err != nil {
					return &Error{lineno, text, err}
				}
				next, err := a.scanner.Write(a.mem, addr, pass == 2)
				if err != nil {
					return &Error{lineno, text, err}
				}
				if pass == 2 {
					a.logBytes(addr, next, text)
				}
				addr = next
			}
		}
	}

	a.origin = addr
	return nil
}

// AssembleLines reads a text source, strips ';' comments and blank lines
// and compiles the result.
func (a *Assembler) AssembleLines(r io.Reader) error {
	var b strings.Builder
	s := bufio.NewScanner(r)
	for s.Scan() {
		line := s.Text()
		if i := strings.IndexByte(line, ';'); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		b.WriteString(line)
		b.WriteByte(0)
	}
	if err := s.Err(); err != nil {
		return err
	}
	b.WriteByte(0)
	return a.Compile(b.String())
}

// Split source into lines, stopping at the first empty line.
func splitSource(src string) []string {
	lines := strings.Split(src, "\x00")
	for i, l := range lines {
		if l == "" {
			return lines[:i]
		}
	}
	return lines
}

// Parse the "=value" part of an origin line.
func parseOrigin(s string) (uint16, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "=") {
		return 0, ErrOrigin
	}
	s = strings.TrimSpace(s[1:])
	v, n, ok := scanNumber(s, 0xffff)
	if !ok || n != len(s) {
		return 0, ErrOrigin
	}
	return v, nil
}

// Replace symbol names in the operand of an instruction line with their
// values. "<NAME" and ">NAME" become the low and high byte. Register names
// and numeric literals are left alone.
func (a *Assembler) substitute(line string) (string, error) {
	if len(line) <= 3 {
		return line, nil
	}

	var b strings.Builder
	b.WriteString(line[:3])
	s := line[3:]
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == '$':
			j := i + 1
			for j < len(s) && isHexDigit(s[j]) {
				j++
			}
			b.WriteString(s[i:j])
			i = j

		case c == '%' || (c >= '0' && c <= '9'):
			j := i + 1
			for j < len(s) && isIdentChar(s[j]) {
				j++
			}
			b.WriteString(s[i:j])
			i = j

		case c == '<' || c == '>' || isIdentStart(c):
			j := i
			if !isIdentStart(c) {
				j++
			}
			start := j
			for j < len(s) && isIdentChar(s[j]) {
				j++
			}
			name := s[start:j]
			if name == "" {
				return "", fmt.Errorf("%w: expected symbol after %c", ErrSyntax, c)
			}
			if start == i && (name == "A" || name == "X" || name == "Y") {
				b.WriteString(name)
				i = j
				continue
			}
			v, ok := a.symbols[name]
			if !ok {
				return "", fmt.Errorf("%w: undefined symbol %s", ErrSyntax, name)
			}
			switch c {
			case '<':
				fmt.Fprintf(&b, "$%02X", v&0xff)
			case '>':
				fmt.Fprintf(&b, "$%02X", v>>8)
			default:
				fmt.Fprintf(&b, "$%04X", v)
			}
			i = j

		default:
			b.WriteByte(c)
			i++
		}
	}
	return b.String(), nil
}

// In verbose mode, log a string and its associated line
// of assembly code.
func (a *Assembler) logLine(lineno int, text string, format string, args ...any) {
	if a.Verbose != nil {
		detail := fmt.Sprintf(format, args...)
		fmt.Fprintf(a.Verbose, "%-3d | %-20s | %s\n", lineno, detail, text)
	}
}

// In verbose mode, log the bytes generated for an instruction.
func (a *Assembler) logBytes(addr, next uint16, text string) {
	if a.Verbose != nil {
		b := make([]byte, next-addr)
		a.mem.LoadBytes(addr, b)
		fmt.Fprintf(a.Verbose, "%04X-   %-8s    %s\n", addr, byteString(b), text)
	}
}

// In verbose mode, log a section header.
func (a *Assembler) logSection(name string) {
	if a.Verbose != nil {
		fmt.Fprintln(a.Verbose, strings.Repeat("-", len(name)+6))
		fmt.Fprintf(a.Verbose, "-- %s --\n", name)
		fmt.Fprintln(a.Verbose, strings.Repeat("-", len(name)+6))
	}
}
