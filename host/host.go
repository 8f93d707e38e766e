// Copyright 2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package host implements a command shell around the asm65 assembler.
//
// Within the host it is possible to assemble source files to binary
// images, inspect the assembled listing, symbols and patch segments,
// review the errors of a failed assembly, evaluate arbitrary expressions,
// and adjust the settings used by the assembler.
package host

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/beevik/asm65/asm"
	"github.com/beevik/asm65/disasm"
	"github.com/beevik/asm65/labels"
	"github.com/beevik/cmd"
	"github.com/sirupsen/logrus"
)

var errQuit = errors.New("exiting program")

// A Host runs assembler commands read from a script or an interactive
// terminal.
type Host struct {
	input       *bufio.Scanner
	output      *bufio.Writer
	interactive bool
	lastCmd     *cmd.Selection
	settings    *settings
	fs          asm.FileSystem
	logger      *logrus.Logger
	last        *asm.Assembler
	labels      *labels.Store
}

// New creates a new host that reads and writes files on disk.
func New() *Host {
	logger := logrus.New()
	logger.Out = os.Stderr
	logger.Formatter = &logrus.TextFormatter{DisableTimestamp: true}

	return &Host{
		settings: newSettings(),
		fs:       asm.OSFileSystem{},
		logger:   logger,
	}
}

// SetFileSystem replaces the file system used to read sources and write
// assembler output.
func (h *Host) SetFileSystem(fs asm.FileSystem) {
	h.fs = fs
}

// SetLogOutput redirects the host's log messages.
func (h *Host) SetLogOutput(w io.Writer) {
	h.logger.Out = w
}

// LoadConfig reads settings from a TOML configuration file.
func (h *Host) LoadConfig(path string) error {
	return h.settings.Load(h.fs, path)
}

// SetVerbose turns verbose assembly logging on or off.
func (h *Host) SetVerbose(verbose bool) {
	h.settings.Verbose = verbose
}

// RunCommands accepts host commands from a reader and outputs the results
// to a writer. If the commands are interactive, a prompt is displayed while
// the host waits for the the next command to be entered. It returns false
// once a quit command has been processed.
func (h *Host) RunCommands(r io.Reader, w io.Writer, interactive bool) bool {
	h.input = bufio.NewScanner(r)
	h.output = bufio.NewWriter(w)
	h.interactive = interactive
	defer h.flush()

	for {
		h.prompt()

		line, err := h.getLine()
		if err != nil {
			return true
		}
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "#") {
			continue
		}

		var c cmd.Selection
		if line != "" {
			c, err = cmds.Lookup(line)
			switch {
			case err == cmd.ErrNotFound:
				h.println("Command not found.")
				continue
			case err == cmd.ErrAmbiguous:
				h.println("Command is ambiguous.")
				continue
			case err != nil:
				h.printf("ERROR: %v.\n", err)
				continue
			}
		} else if h.lastCmd != nil && interactive {
			c = *h.lastCmd
		}

		if c.Command == nil {
			continue
		}
		h.lastCmd = &c

		handler := c.Command.Data.(func(*Host, cmd.Selection) error)
		if err := handler(h, c); err == errQuit {
			return false
		}
	}
}

// AssembleFile assembles a source file, writing the binary image, its
// source map and optionally its debug labels alongside it.
func (h *Host) AssembleFile(filename string) error {
	if filepath.Ext(filename) == "" {
		filename += ".asm"
	}

	cfg, err := h.settings.asmConfig()
	if err != nil {
		return err
	}
	cfg.FileSystem = h.fs
	cfg.Logger = h.logger
	if cfg.Verbose {
		h.logger.SetLevel(logrus.DebugLevel)
	} else {
		h.logger.SetLevel(logrus.InfoLevel)
	}

	var store *labels.Store
	if h.settings.DebugLabels {
		store = labels.NewStore()
		cfg.Labels = store
	}

	a, err := asm.AssembleFile(filename, cfg)
	h.last = a
	h.labels = nil
	if err != nil {
		return err
	}
	h.labels = store

	h.logger.WithFields(logrus.Fields{
		"file":  filename,
		"bytes": len(a.Output()),
	}).Debug("assembly complete")
	return nil
}

func (h *Host) printf(format string, args ...any) {
	fmt.Fprintf(h.output, format, args...)
	h.flush()
}

func (h *Host) println(args ...any) {
	fmt.Fprintln(h.output, args...)
	h.flush()
}

func (h *Host) flush() {
	h.output.Flush()
}

func (h *Host) getLine() (string, error) {
	if h.input.Scan() {
		return h.input.Text(), nil
	}
	if h.input.Err() != nil {
		return "", h.input.Err()
	}
	return "", io.EOF
}

func (h *Host) prompt() {
	if h.interactive {
		h.printf("* ")
		h.flush()
	}
}

// assembled returns the most recent successful assembly, or nil.
func (h *Host) assembled() *asm.Assembler {
	if h.last == nil || h.last.Phase() != asm.PhaseAssembled {
		return nil
	}
	return h.last
}

func (h *Host) cmdAssemble(c cmd.Selection) error {
	if len(c.Args) < 1 {
		h.displayHelpText(c.Command)
		return nil
	}

	filename := c.Args[0]
	if filepath.Ext(filename) == "" {
		filename += ".asm"
	}

	err := h.AssembleFile(filename)
	switch {
	case err == nil:
		prefix := strings.TrimSuffix(filename, filepath.Ext(filename))
		h.printf("Assembled '%s' to '%s' (%d bytes).\n",
			filepath.Base(filename), filepath.Base(prefix+".bin"), len(h.last.Output()))
	case h.last == nil:
		h.printf("Failed to open '%s': %v\n", filepath.Base(filename), err)
	case len(h.last.Errors()) > 0:
		h.printf("Failed to assemble '%s'.\n", filepath.Base(filename))
		h.displayErrors(h.last.Errors())
	default:
		h.printf("Failed to save output of '%s': %v\n", filepath.Base(filename), err)
	}
	return nil
}

func (h *Host) cmdErrors(c cmd.Selection) error {
	switch {
	case h.last == nil:
		h.println("Nothing has been assembled.")
	case len(h.last.Errors()) == 0:
		h.println("No errors.")
	default:
		h.displayErrors(h.last.Errors())
	}
	return nil
}

func (h *Host) displayErrors(errs []asm.ErrorDetail) {
	for _, e := range errs {
		h.printf("    %s\n", e.Error())
	}
}

func (h *Host) cmdEval(c cmd.Selection) error {
	if len(c.Args) < 1 {
		h.displayHelpText(c.Command)
		return nil
	}

	expr := strings.Join(c.Args, " ")
	v, err := h.evaluate(expr)
	if err != nil {
		h.printf("%v\n", err)
		return nil
	}

	h.printf("%s (%d)\n", v, v.Int())
	return nil
}

// evaluate computes an expression against the symbols of the last
// successful assembly, if there is one.
func (h *Host) evaluate(expr string) (asm.Literal, error) {
	if a := h.assembled(); a != nil {
		return a.Evaluate(expr)
	}
	cfg, err := h.settings.asmConfig()
	if err != nil {
		return asm.Literal{}, err
	}
	return asm.Evaluate(expr, asm.EvalOptions{Overflow: cfg.Overflow})
}

func (h *Host) cmdHelp(c cmd.Selection) error {
	if len(c.Args) == 0 {
		h.displayCommands()
		return nil
	}

	s, err := cmds.Lookup(strings.Join(c.Args, " "))
	if err != nil || s.Command == nil {
		h.println("Command not found.")
		return nil
	}

	d := findDescriptor(s.Command.Name)
	if d == nil {
		h.println("<no help text>")
		return nil
	}
	if d.Usage != "" {
		h.printf("Syntax: %s\n\n", d.Usage)
	}
	switch {
	case d.Description != "":
		h.printf("Description:\n%s\n\n", indentWrap(3, d.Description))
	case d.Brief != "":
		h.printf("Description:\n%s.\n\n", indentWrap(3, d.Brief))
	}
	return nil
}

func (h *Host) cmdLabels(c cmd.Selection) error {
	a := h.assembled()
	if a == nil {
		h.println("No successful assembly.")
		return nil
	}

	var prefix string
	if len(c.Args) > 0 {
		prefix = c.Args[0]
	}

	symbols := a.Symbols()
	n := 0
	for _, name := range a.SymbolNames() {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		h.printf("    %-24s %s\n", name, symbols[name])
		n++
	}
	if n == 0 {
		h.println("No labels found.")
	} else if h.labels != nil {
		h.printf("%d debug labels written.\n", h.labels.Len())
	}
	return nil
}

type listLine struct {
	asm.MapLine
	length int
}

// listing pairs each source map entry with the number of output bytes
// it produced.
func listing(m *asm.SourceMap, size int) []listLine {
	lines := make([]listLine, len(m.Lines))
	order := make([]int, len(m.Lines))
	for i, l := range m.Lines {
		lines[i].MapLine = l
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return m.Lines[order[i]].Offset < m.Lines[order[j]].Offset
	})

	for i, idx := range order {
		end := size
		for _, next := range order[i+1:] {
			if m.Lines[next].Offset > m.Lines[idx].Offset {
				end = m.Lines[next].Offset
				break
			}
		}
		lines[idx].length = max(end-m.Lines[idx].Offset, 0)
	}
	return lines
}

func (h *Host) cmdList(c cmd.Selection) error {
	a := h.assembled()
	if a == nil || a.SourceMap() == nil {
		h.println("No successful assembly.")
		return nil
	}

	start, count := 0, h.settings.ListLines
	if len(c.Args) > 0 {
		v, err := h.evaluate(c.Args[0])
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		start = v.Int()
	}
	if len(c.Args) > 1 {
		n, err := strconv.Atoi(c.Args[1])
		if err != nil || n < 1 {
			h.printf("Invalid line count '%s'.\n", c.Args[1])
			return nil
		}
		count = n
	}

	type fileLine struct {
		file string
		line int
	}
	text := make(map[fileLine]string)
	for _, l := range a.Lines() {
		text[fileLine{l.File, l.Line}] = strings.TrimSpace(l.Text)
	}

	m := a.SourceMap()
	code := a.Output()
	for _, l := range listing(m, len(code)) {
		if l.Address < start || l.length == 0 {
			continue
		}
		if count == 0 {
			break
		}
		count--

		bytes := disasm.CodeString(code, l.Offset, min(l.length, 3))
		if l.length > 3 {
			bytes += "+"
		}
		var dis string
		if d, next := disasm.Disassemble(code, l.Offset, uint16(l.Address)); next-l.Offset == l.length {
			dis = d
		}
		h.printf("$%04X  %-9s  %-12s  %s\n", l.Address, bytes, dis,
			text[fileLine{m.Files[l.FileIndex], l.Line}])
	}
	return nil
}

func (h *Host) cmdPatches(c cmd.Selection) error {
	a := h.assembled()
	switch {
	case a == nil:
		h.println("No successful assembly.")
	case !a.HasPatchSegments():
		h.println("No patch segments.")
	default:
		for _, p := range a.PatchSegments() {
			h.printf("    %s\n", p)
		}
		if off := a.DefaultPatchOffset(); off >= 0 {
			h.printf("Default patch offset: $%X\n", off)
		} else {
			h.println("No default patch offset.")
		}
	}
	return nil
}

func (h *Host) cmdQuit(c cmd.Selection) error {
	return errQuit
}

func (h *Host) cmdSet(c cmd.Selection) error {
	switch len(c.Args) {
	case 0:
		h.println("Variables:")
		h.settings.Display(h.output)
		h.flush()

	case 1:
		h.displayHelpText(c.Command)

	default:
		key, value := strings.ToLower(c.Args[0]), strings.Join(c.Args[1:], " ")

		var err error
		switch h.settings.Kind(key) {
		case reflect.Invalid:
			err = fmt.Errorf("setting '%s' not found", key)
		case reflect.String:
			if h.settings.Name(key) == "Overflow" {
				_, err = asm.ParseOverflowChecking(value)
			}
			if err == nil {
				err = h.settings.Set(key, strings.ToLower(value))
			}
		case reflect.Bool:
			var v bool
			v, err = stringToBool(value)
			if err == nil {
				err = h.settings.Set(key, v)
			}
		default:
			var v asm.Literal
			v, err = asm.Evaluate(value, asm.EvalOptions{})
			if err == nil {
				err = h.settings.Set(key, v.Int())
			}
		}

		if err == nil {
			h.printf("Setting '%s' updated to %s.\n", h.settings.Name(key), value)
		} else {
			h.printf("%v\n", err)
		}
	}
	return nil
}

func (h *Host) displayHelpText(c *cmd.Command) {
	if d := findDescriptor(c.Name); d != nil && d.Usage != "" {
		h.printf("Syntax: %s\n", d.Usage)
	} else {
		h.println("<no help text>")
	}
}

func (h *Host) displayCommands() {
	h.println("asm65 commands:")
	for _, d := range descriptors {
		if d.Brief != "" {
			h.printf("    %-15s  %s\n", d.Name, d.Brief)
		}
	}
}
