// Copyright 2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package host

import (
	"strings"

	"github.com/beevik/cmd"
	"github.com/beevik/prefixtree/v2"
)

// A command is stored as the Data of each command tree entry.
type command struct {
	name        string
	brief       string
	description string
	usage       string
	handler     func(h *Host, c cmd.Selection) error
}

// A commandGroup is a subtree of related commands. The root group has no
// name.
type commandGroup struct {
	name     string
	brief    string
	commands []*command
}

var (
	cmds      *cmd.Tree
	groups    []*commandGroup
	groupTree = prefixtree.New[*commandGroup]()
)

var rootCommands = []*command{
	{
		name:        "help",
		brief:       "Display help for a command",
		description: "Display help for a command or a command group.",
		usage:       "help [<command>]",
		handler:     (*Host).cmdHelp,
	},
	{
		name:  "annotate",
		brief: "Annotate an address",
		description: "Provide a code annotation at a memory address." +
			" When disassembling code at this address, the annotation will" +
			" be displayed. Omit the string to remove the annotation.",
		usage:   "annotate <address> [<string>]",
		handler: (*Host).cmdAnnotate,
	},
	{
		name:  "disassemble",
		brief: "Disassemble code",
		description: "Disassemble machine code starting at the requested" +
			" address. The number of instruction lines to disassemble may be" +
			" specified as an option. If no address is specified, the" +
			" disassembly continues from where the last disassembly left off.",
		usage:   "disassemble [<address>] [<lines>]",
		handler: (*Host).cmdDisassemble,
	},
	{
		name:  "evaluate",
		brief: "Evaluate an expression",
		description: "Evaluate a mathematical expression. Identifiers may" +
			" name registers, assembler symbols or patch labels.",
		usage:   "evaluate <expression>",
		handler: (*Host).cmdEvaluate,
	},
	{
		name:  "execute",
		brief: "Execute a command file",
		description: "Load a file from disk and execute the host commands" +
			" it contains.",
		usage:   "execute <filename>",
		handler: (*Host).cmdExecute,
	},
	{
		name:  "load",
		brief: "Load a binary file",
		description: "Load the contents of a binary file into memory. If an" +
			" address is given, the whole file is loaded there. Otherwise the" +
			" first two bytes of the file hold its load address.",
		usage:   "load <filename> [<address>]",
		handler: (*Host).cmdLoad,
	},
	{
		name:  "monitor",
		brief: "Open the screen monitor",
		description: "Open a full-screen view of the disassembly, registers" +
			" and memory. Press q to return to the command prompt.",
		usage:   "monitor",
		handler: (*Host).cmdMonitor,
	},
	{
		name:        "quit",
		brief:       "Quit the program",
		description: "Quit the program.",
		usage:       "quit",
		handler:     (*Host).cmdQuit,
	},
	{
		name:  "register",
		brief: "View or change register values",
		description: "When used without arguments, this command displays the current" +
			" contents of the CPU registers. When used with arguments, this" +
			" command changes the value of a register or one of the CPU's status" +
			" flags. Allowed register names include A, X, Y, PC and SP. Allowed status" +
			" flag names include N (Sign), Z (Zero), C (Carry), I (InterruptDisable)," +
			" D (Decimal) and V (Overflow).",
		usage:   "register [<name> <value>]",
		handler: (*Host).cmdRegister,
	},
	{
		name:  "reset",
		brief: "Reset the CPU",
		description: "Reset the CPU. The program counter is loaded from the" +
			" reset vector at $FFFC.",
		usage:   "reset",
		handler: (*Host).cmdReset,
	},
	{
		name:  "run",
		brief: "Run the CPU",
		description: "Run the CPU until a breakpoint is hit or until the" +
			" user types Ctrl-C. An optional start address may be given.",
		usage:   "run [<address>]",
		handler: (*Host).cmdRun,
	},
	{
		name:  "script",
		brief: "Run a Lua script",
		description: "Run a Lua script with access to the CPU registers," +
			" memory, the assembler and host commands.",
		usage:   "script <filename>",
		handler: (*Host).cmdScript,
	},
	{
		name:  "set",
		brief: "Set a configuration variable",
		description: "Set the value of a configuration variable. To see the" +
			" current values of all configuration variables, type set" +
			" without any arguments.",
		usage:   "set [<var> <value>]",
		handler: (*Host).cmdSet,
	},
	{
		name:        "symbols",
		brief:       "List assembler symbols",
		description: "Display all labels and defined symbols known to the assembler.",
		usage:       "symbols",
		handler:     (*Host).cmdSymbols,
	},
}

var subCommands = []*commandGroup{
	{
		name:  "assemble",
		brief: "Assemble commands",
		commands: []*command{
			{
				name:  "file",
				brief: "Assemble a source file into memory",
				description: "Assemble the specified file directly into memory." +
					" Lines starting with *= set the address. If an origin is" +
					" given, assembly starts there.",
				usage:   "assemble file <filename> [<origin>]",
				handler: (*Host).cmdAssembleFile,
			},
			{
				name:  "line",
				brief: "Assemble a single line",
				description: "Assemble one line of source at the address that" +
					" follows the last assembled code.",
				usage:   "assemble line <source>",
				handler: (*Host).cmdAssembleLine,
			},
		},
	},
	{
		name:  "breakpoint",
		brief: "Breakpoint commands",
		commands: []*command{
			{
				name:        "list",
				brief:       "List breakpoints",
				description: "List all current breakpoints.",
				usage:       "breakpoint list",
				handler:     (*Host).cmdBreakpointList,
			},
			{
				name:  "add",
				brief: "Add a breakpoint",
				description: "Add a breakpoint at the specified address." +
					" The breakpoint starts enabled. Conditions a=, x= and y=" +
					" restrict it to register values. A trace breakpoint" +
					" reports the hit and keeps running.",
				usage:   "breakpoint add <address> [a=<v>] [x=<v>] [y=<v>] [trace]",
				handler: (*Host).cmdBreakpointAdd,
			},
			{
				name:        "remove",
				brief:       "Remove a breakpoint",
				description: "Remove a breakpoint at the specified address.",
				usage:       "breakpoint remove <address>",
				handler:     (*Host).cmdBreakpointRemove,
			},
			{
				name:        "enable",
				brief:       "Enable a breakpoint",
				description: "Enable a previously added breakpoint.",
				usage:       "breakpoint enable <address>",
				handler:     (*Host).cmdBreakpointEnable,
			},
			{
				name:  "disable",
				brief: "Disable a breakpoint",
				description: "Disable a previously added breakpoint. This" +
					" prevents the breakpoint from being hit when running the" +
					" CPU",
				usage:   "breakpoint disable <address>",
				handler: (*Host).cmdBreakpointDisable,
			},
		},
	},
	{
		name:  "databreakpoint",
		brief: "Data Breakpoint commands",
		commands: []*command{
			{
				name:        "list",
				brief:       "List data breakpoints",
				description: "List all current data breakpoints.",
				usage:       "databreakpoint list",
				handler:     (*Host).cmdDataBreakpointList,
			},
			{
				name:  "add",
				brief: "Add a data breakpoint",
				description: "Add a new data breakpoint at the specified" +
					" memory address. When the CPU stores data at this address, the" +
					" breakpoint will stop the CPU. Optionally, a byte" +
					" value may be specified, and the CPU will stop only" +
					" when this value is stored. The data breakpoint starts" +
					" enabled.",
				usage:   "databreakpoint add <address> [<value>]",
				handler: (*Host).cmdDataBreakpointAdd,
			},
			{
				name:  "remove",
				brief: "Remove a data breakpoint",
				description: "Remove a previously added data breakpoint at" +
					" the specified memory address.",
				usage:   "databreakpoint remove <address>",
				handler: (*Host).cmdDataBreakpointRemove,
			},
			{
				name:        "enable",
				brief:       "Enable a data breakpoint",
				description: "Enable a previously added breakpoint.",
				usage:       "databreakpoint enable <address>",
				handler:     (*Host).cmdDataBreakpointEnable,
			},
			{
				name:        "disable",
				brief:       "Disable a data breakpoint",
				description: "Disable a previously added breakpoint.",
				usage:       "databreakpoint disable <address>",
				handler:     (*Host).cmdDataBreakpointDisable,
			},
		},
	},
	{
		name:  "interrupt",
		brief: "Interrupt commands",
		commands: []*command{
			{
				name:  "irq",
				brief: "Raise a maskable interrupt",
				description: "Raise an IRQ. It is ignored while the interrupt" +
					" disable flag is set.",
				usage:   "interrupt irq",
				handler: (*Host).cmdInterruptIRQ,
			},
			{
				name:        "nmi",
				brief:       "Raise a non-maskable interrupt",
				description: "Raise an NMI.",
				usage:       "interrupt nmi",
				handler:     (*Host).cmdInterruptNMI,
			},
		},
	},
	{
		name:  "memory",
		brief: "Memory commands",
		commands: []*command{
			{
				name:  "dump",
				brief: "Dump memory at address",
				description: "Dump the contents of memory starting from the" +
					" specified address. The number of bytes to dump may be" +
					" specified as an option. If no address is specified, the" +
					" memory dump continues from where the last dump left off.",
				usage:   "memory dump [<address>] [<bytes>]",
				handler: (*Host).cmdMemoryDump,
			},
			{
				name:  "set",
				brief: "Set memory at address",
				description: "Set the contents of memory starting from the specified" +
					" address. The values to assign should be a series of" +
					" space-separated byte values. You may use an expression for each" +
					" byte value.",
				usage:   "memory set <address> <byte> [<byte> ...]",
				handler: (*Host).cmdMemorySet,
			},
			{
				name:  "copy",
				brief: "Copy memory",
				description: "Copy memory from one range of addresses to another. You" +
					" must specify the destination address, the first byte of the source" +
					" address, and the last byte of the source address.",
				usage:   "memory copy <dst addr> <src addr begin> <src addr end>",
				handler: (*Host).cmdMemoryCopy,
			},
		},
	},
	{
		name:  "patch",
		brief: "Patch commands",
		commands: []*command{
			{
				name:        "list",
				brief:       "List patches",
				description: "List every patched jump target and its label.",
				usage:       "patch list",
				handler:     (*Host).cmdPatchList,
			},
			{
				name:  "enable",
				brief: "Enable patches",
				description: "Let JMP and JSR instructions call the host" +
					" callback registered on their target.",
				usage:   "patch enable",
				handler: (*Host).cmdPatchEnable,
			},
			{
				name:  "disable",
				brief: "Disable patches",
				description: "Stop calling host callbacks. The patches stay" +
					" in the table.",
				usage:   "patch disable",
				handler: (*Host).cmdPatchDisable,
			},
			{
				name:  "add",
				brief: "Patch a KERNAL routine",
				description: "Replace a KERNAL routine with its host callback." +
					" Any unambiguous prefix of the routine name is accepted.",
				usage:   "patch add <routine>",
				handler: (*Host).cmdPatchAdd,
			},
			{
				name:        "remove",
				brief:       "Remove a patch",
				description: "Remove the patch on an address or patch label.",
				usage:       "patch remove <address>",
				handler:     (*Host).cmdPatchRemove,
			},
		},
	},
	{
		name:  "step",
		brief: "Step the debugger",
		commands: []*command{
			{
				name:  "in",
				brief: "Step into next instruction",
				description: "Step the CPU by a single instruction. If the" +
					" instruction is a subroutine call, step into the subroutine." +
					" The number of steps may be specified as an option.",
				usage:   "step in [<count>]",
				handler: (*Host).cmdStepIn,
			},
			{
				name:  "over",
				brief: "Step over next instruction",
				description: "Step the CPU by a single instruction. If the" +
					" instruction is a subroutine call, step over the subroutine." +
					" The number of steps may be specified as an option.",
				usage:   "step over [<count>]",
				handler: (*Host).cmdStepOver,
			},
			{
				name:  "out",
				brief: "Step out of the current subroutine",
				description: "Step the CPU until it executes an RTS or RTI" +
					" instruction. This has the effect of stepping until the" +
					" currently running subroutine has returned.",
				usage:   "step out",
				handler: (*Host).cmdStepOut,
			},
		},
	},
}

var shortcuts = [][2]string{
	{"a", "assemble file"},
	{"al", "assemble line"},
	{"b", "breakpoint"},
	{"bp", "breakpoint"},
	{"ba", "breakpoint add"},
	{"br", "breakpoint remove"},
	{"bl", "breakpoint list"},
	{"be", "breakpoint enable"},
	{"bd", "breakpoint disable"},
	{"d", "disassemble"},
	{"db", "databreakpoint"},
	{"dbp", "databreakpoint"},
	{"dbl", "databreakpoint list"},
	{"dba", "databreakpoint add"},
	{"dbr", "databreakpoint remove"},
	{"dbe", "databreakpoint enable"},
	{"dbd", "databreakpoint disable"},
	{"e", "evaluate"},
	{"m", "memory dump"},
	{"mc", "memory copy"},
	{"ms", "memory set"},
	{"pl", "patch list"},
	{"r", "register"},
	{"s", "step over"},
	{"si", "step in"},
	{"so", "step out"},
	{"?", "help"},
	{".", "register"},
}

func descriptor(c *command) cmd.CommandDescriptor {
	return cmd.CommandDescriptor{
		Name:        c.name,
		Brief:       c.brief,
		Description: c.description,
		Usage:       c.usage,
		Data:        c,
	}
}

func init() {
	root := cmd.NewTree(cmd.TreeDescriptor{Name: "mc6502"})
	rootGroup := &commandGroup{commands: rootCommands}
	for _, c := range rootCommands {
		root.AddCommand(descriptor(c))
	}

	groups = append(groups, rootGroup)
	for _, g := range subCommands {
		t := root.AddSubtree(cmd.TreeDescriptor{Name: g.name})
		for _, c := range g.commands {
			t.AddCommand(descriptor(c))
		}
		groups = append(groups, g)
		groupTree.Add(g.name, g)
	}

	for _, s := range shortcuts {
		root.AddShortcut(s[0], s[1])
	}

	cmds = root
}

// Find the command group selected by a name prefix.
func findGroup(name string) *commandGroup {
	g, err := groupTree.FindValue(strings.ToLower(name))
	if err != nil {
		return nil
	}
	return g
}
