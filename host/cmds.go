// Copyright 2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package host

import "github.com/beevik/cmd"

var (
	cmds        *cmd.Tree
	descriptors []cmd.CommandDescriptor
)

func init() {
	root := cmd.NewTree(cmd.TreeDescriptor{Name: "asm65"})

	descriptors = []cmd.CommandDescriptor{
		{
			Name:        "help",
			Brief:       "Display help for a command",
			Description: "Display help for a command.",
			Usage:       "help [<command>]",
			Data:        (*Host).cmdHelp,
		},
		{
			Name:  "assemble",
			Brief: "Assemble a file and save the binary",
			Description: "Run the assembler on the specified file," +
				" producing a binary file and source map file if successful." +
				" When the debug_labels setting is on, a .mlb label file is" +
				" written as well.",
			Usage: "assemble <filename>",
			Data:  (*Host).cmdAssemble,
		},
		{
			Name:  "errors",
			Brief: "List errors of the last assembly",
			Description: "Display every error reported by the phase that" +
				" stopped the most recent assembly.",
			Usage: "errors",
			Data:  (*Host).cmdErrors,
		},
		{
			Name:  "evaluate",
			Brief: "Evaluate an expression",
			Description: "Evaluate an expression. After a successful" +
				" assembly, the expression may refer to its symbols.",
			Usage: "evaluate <expression>",
			Data:  (*Host).cmdEval,
		},
		{
			Name:  "labels",
			Brief: "List symbols of the last assembly",
			Description: "Display the value of every label and assigned" +
				" symbol of the most recent successful assembly. An optional" +
				" prefix limits the listing to matching names.",
			Usage: "labels [<prefix>]",
			Data:  (*Host).cmdLabels,
		},
		{
			Name:  "list",
			Brief: "List assembled code",
			Description: "Display the source lines of the most recent" +
				" assembly along with their addresses, output bytes and" +
				" disassembly. The listing may start at an address and be" +
				" limited to a number of lines.",
			Usage: "list [<address>] [<count>]",
			Data:  (*Host).cmdList,
		},
		{
			Name:  "patches",
			Brief: "List patch segments",
			Description: "Display the patch segments of the most recent" +
				" assembly and the default offset at which the output applies.",
			Usage: "patches",
			Data:  (*Host).cmdPatches,
		},
		{
			Name:        "quit",
			Brief:       "Quit the program",
			Description: "Quit the program.",
			Usage:       "quit",
			Data:        (*Host).cmdQuit,
		},
		{
			Name:  "set",
			Brief: "Set a configuration variable",
			Description: "Set the value of a configuration variable. Type the set" +
				" command without a variable name or value to display the current" +
				" values of all configuration variables.",
			Usage: "set [<var> <value>]",
			Data:  (*Host).cmdSet,
		},
	}
	for _, d := range descriptors {
		root.AddCommand(d)
	}

	// Add command shortcuts.
	root.AddShortcut("a", "assemble")
	root.AddShortcut("e", "evaluate")
	root.AddShortcut("l", "list")
	root.AddShortcut("q", "quit")
	root.AddShortcut("?", "help")

	cmds = root
}

func findDescriptor(name string) *cmd.CommandDescriptor {
	for i := range descriptors {
		if descriptors[i].Name == name {
			return &descriptors[i]
		}
	}
	return nil
}
