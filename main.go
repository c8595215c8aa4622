// Copyright 2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/beevik/mc6502/host"
	"github.com/beevik/mc6502/kernal"
	"github.com/beevik/term"
)

var (
	assemble  string
	load      string
	kernalDir string
	script    string
	monitor   bool
)

func init() {
	flag.StringVar(&assemble, "a", "", "assemble file into memory")
	flag.StringVar(&load, "l", "", "load a program file with a load address header")
	flag.StringVar(&kernalDir, "kernal", "", "install the KERNAL with files in `dir`")
	flag.StringVar(&script, "script", "", "run a Lua script")
	flag.BoolVar(&monitor, "monitor", false, "open the screen monitor")
	flag.CommandLine.Usage = func() {
		fmt.Println("Usage: mc6502 [options] [command file] ..\nOptions:")
		flag.PrintDefaults()
	}
}

func main() {
	flag.Parse()

	h := host.New()
	defer h.Close()

	if kernalDir != "" {
		err := h.InstallKernal(kernal.DirStorage{Dir: kernalDir}, os.Stdin)
		if err != nil {
			exitOnError(err)
		}
	}

	// Build the startup commands from the options.
	var startup []string
	if assemble != "" {
		startup = append(startup, "assemble file "+assemble)
	}
	if load != "" {
		startup = append(startup, "load "+load)
	}
	if script != "" {
		startup = append(startup, "script "+script)
	}
	if len(startup) > 0 {
		if !h.RunCommands(strings.NewReader(strings.Join(startup, "\n")), os.Stdout, false) {
			return
		}
	}

	// Run commands contained in command-line files.
	for _, filename := range flag.Args() {
		file, err := os.Open(filename)
		if err != nil {
			exitOnError(err)
		}
		ok := h.RunCommands(file, os.Stdout, false)
		file.Close()
		if !ok {
			return
		}
	}

	// Break on Ctrl-C.
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	go handleInterrupt(h, c)

	// Run commands interactively when attached to a terminal.
	interactive := term.IsTerminal(int(os.Stdin.Fd()))
	if monitor && interactive {
		if !h.RunCommands(strings.NewReader("monitor"), os.Stdout, true) {
			return
		}
	}
	h.RunCommands(os.Stdin, os.Stdout, interactive)
}

func handleInterrupt(h *host.Host, c chan os.Signal) {
	for {
		<-c
		h.Break()
	}
}

func exitOnError(err error) {
	fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
	os.Exit(1)
}
