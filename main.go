// Copyright 2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/beevik/asm65/host"
	"github.com/beevik/term"
)

var (
	assemble string
	config   string
	verbose  bool
)

func init() {
	flag.StringVar(&assemble, "a", "", "assemble file")
	flag.StringVar(&config, "config", "", "load settings from a TOML file")
	flag.BoolVar(&verbose, "v", false, "verbose assembly output")
	flag.CommandLine.Usage = func() {
		fmt.Println("Usage: asm65 [script] ..\nOptions:")
		flag.PrintDefaults()
	}
}

func main() {
	flag.Parse()

	h := host.New()

	if config != "" {
		if err := h.LoadConfig(config); err != nil {
			exitOnError(err)
		}
	}
	if verbose {
		h.SetVerbose(true)
	}

	// Do command-line assemble if requested.
	if assemble != "" {
		if err := h.AssembleFile(assemble); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to assemble file '%s'.\n%v\n", assemble, err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	// Run commands contained in command-line files.
	for _, filename := range flag.Args() {
		file, err := os.Open(filename)
		if err != nil {
			exitOnError(err)
		}
		more := h.RunCommands(file, os.Stdout, false)
		file.Close()
		if !more {
			return
		}
	}

	// Run commands interactively.
	if flag.NArg() == 0 || term.IsTerminal(int(os.Stdin.Fd())) {
		h.RunCommands(os.Stdin, os.Stdout, term.IsTerminal(int(os.Stdin.Fd())))
	}
}

func exitOnError(err error) {
	fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
	os.Exit(1)
}
