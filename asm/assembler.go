// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package asm implements a two-pass 6502 assembler.
package asm

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// OverflowChecking selects how expression results are range checked.
type OverflowChecking int

const (
	OverflowNone     OverflowChecking = iota // no range checks
	OverflowUnsigned                         // [0,255] and [0,65535]
	OverflowSigned                           // signed ranges for signed operands
)

var overflowNames = []string{"none", "unsigned", "signed"}

func (o OverflowChecking) String() string {
	if int(o) < len(overflowNames) {
		return overflowNames[o]
	}
	return fmt.Sprintf("OverflowChecking(%d)", int(o))
}

// ParseOverflowChecking converts a name produced by String back to an
// OverflowChecking value.
func ParseOverflowChecking(s string) (OverflowChecking, error) {
	for i, n := range overflowNames {
		if strings.EqualFold(s, n) {
			return OverflowChecking(i), nil
		}
	}
	return OverflowNone, errors.Errorf("invalid overflow checking mode '%s'", s)
}

// A SourceLine is one line of preprocessed source text, annotated with
// the file and line it came from.
type SourceLine struct {
	Text string
	File string
	Line int
}

// A Preprocessor turns raw source text into source lines.
type Preprocessor interface {
	Preprocess(name, source string) ([]SourceLine, error)
}

// LineSplitter is a Preprocessor that splits source text into lines and
// does nothing else.
type LineSplitter struct{}

// Preprocess splits source on newlines.
func (LineSplitter) Preprocess(name, source string) ([]SourceLine, error) {
	text := strings.Split(strings.ReplaceAll(source, "\r\n", "\n"), "\n")
	if n := len(text); n > 0 && text[n-1] == "" {
		text = text[:n-1]
	}
	lines := make([]SourceLine, len(text))
	for i, t := range text {
		lines[i] = SourceLine{Text: t, File: name, Line: i + 1}
	}
	return lines, nil
}

// DebugLabels receives the labels of a completed assembly. Bank -1 holds
// RAM labels.
type DebugLabels interface {
	AddDebugLabel(bank int, addr uint16, name, comment string)
}

// Config holds the settings of an Assembler.
type Config struct {
	Overflow              OverflowChecking
	AllowInvalidOpcodes   bool // accept undocumented NMOS opcodes
	AllowUndefinedSymbols bool // evaluate undefined symbols as zero
	Verbose               bool // log passes at debug level
	FileSystem            FileSystem
	Preprocessor          Preprocessor
	Labels                DebugLabels
	Logger                *logrus.Logger
}

// A Phase is a stage of assembly.
type Phase int

const (
	PhaseIdle Phase = iota
	PhasePreprocess
	PhaseParse
	PhaseFirstPass
	PhaseSecondPass
	PhaseAssembled
)

var phaseNames = []string{"idle", "preprocess", "parse", "first pass", "second pass", "assembled"}

func (p Phase) String() string {
	return phaseNames[p]
}

// An Assembler assembles one source file. It is not safe for concurrent
// use.
type Assembler struct {
	name   string
	source string
	cfg    Config
	fs     FileSystem
	logger *logrus.Logger

	phase   Phase
	lines   []SourceLine
	data    *assemblyData
	symbols map[Identifier]*symbol
	final   *pass
	passes  int // number of passes run

	output   []byte
	emitted  bool
	patches  []PatchSegment
	hasPatch bool
	srcmap   *SourceMap
	errors   []ErrorDetail
}

// New creates an assembler for the source text. The name identifies the
// source in error messages and is used to resolve incbin paths.
func New(name, source string, cfg Config) *Assembler {
	a := &Assembler{
		name:    name,
		source:  source,
		cfg:     cfg,
		fs:      cfg.FileSystem,
		logger:  cfg.Logger,
		symbols: make(map[Identifier]*symbol),
	}
	if a.fs == nil {
		a.fs = OSFileSystem{}
	}
	if a.cfg.Preprocessor == nil {
		a.cfg.Preprocessor = LineSplitter{}
	}
	return a
}

// Assemble runs every phase of assembly and returns the output image. If
// any phase fails, the returned error lists every problem found by that
// phase as an ErrorDetail.
func (a *Assembler) Assemble() ([]byte, error) {
	if a.phase != PhaseIdle {
		return nil, ErrAlreadyAssembled
	}

	// Assembly consists of the following steps
	steps := []struct {
		phase Phase
		fn    func(a *Assembler)
	}{
		{PhasePreprocess, (*Assembler).preprocess},
		{PhaseParse, (*Assembler).parse},
		{PhaseFirstPass, (*Assembler).firstPass},
		{PhaseSecondPass, (*Assembler).secondPass},
	}

	// Execute the steps, stopping after the first one that reports
	// errors.
	for _, step := range steps {
		a.phase = step.phase
		step.fn(a)
		if len(a.errors) > 0 {
			return nil, a.errorList()
		}
	}

	a.phase = PhaseAssembled
	a.log("assembled %d bytes", len(a.output))
	return a.output, nil
}

func (a *Assembler) errorList() error {
	var result *multierror.Error
	for _, e := range a.errors {
		result = multierror.Append(result, e)
	}
	result.ErrorFormat = func(errs []error) string {
		var b strings.Builder
		fmt.Fprintf(&b, "%d error(s) during %s:", len(errs), a.phase)
		for _, e := range errs {
			b.WriteString("\n  ")
			b.WriteString(e.Error())
		}
		return b.String()
	}
	return result.ErrorOrNil()
}

func (a *Assembler) preprocess() {
	a.logSection("Preprocessing")
	lines, err := a.cfg.Preprocessor.Preprocess(a.name, a.source)
	if err != nil {
		a.errors = append(a.errors, ErrorDetail{File: a.name, Code: FileError, Message: err.Error()})
		return
	}
	a.lines = lines
}

func (a *Assembler) parse() {
	a.logSection("Parsing")
	a.data = newAssemblyData()
	p := newParser(a.data, a.cfg.AllowInvalidOpcodes)
	for i, l := range a.lines {
		if err := p.parseLine(newFstring(i+1, l.Text)); err != nil {
			a.addError(i+1, err)
		}
	}
	if err := p.finish(); err != nil {
		a.addError(len(a.lines), err)
	}
	a.hasPatch = p.hasPatch
	a.log("parsed %d instructions, %d directives, %d labels",
		len(a.data.instructions), len(a.data.directives), len(a.data.labels))
}

// maxPasses bounds the number of emitting passes run while label
// addresses settle.
const maxPasses = 8

func (a *Assembler) firstPass() {
	a.commit(a.runPass(1, passConfig{name: "First pass"}))
}

// secondPass repeats the emitting pass until no label moves, so that the
// output comes from a pass that learned nothing new.
func (a *Assembler) secondPass() {
	cfg := passConfig{
		name:                "Second pass",
		emit:                true,
		allowOverflowErrors: true,
		errorOnUndefined:    !a.cfg.AllowUndefinedSymbols,
	}
	for num := 2; ; num++ {
		p := a.runPass(num, cfg)
		if len(p.moved) == 0 {
			a.commit(p)
			return
		}
		if num == maxPasses {
			p.errors = append(p.errors, p.moved...)
			a.commit(p)
			return
		}
		a.log("%d labels moved, repeating the pass", len(p.moved))
	}
}

func (a *Assembler) runPass(num int, cfg passConfig) *pass {
	p := newPass(a, num, cfg)
	p.run(buildEvents(a.data))
	a.passes = num
	return p
}

// commit records the errors of a pass and, for the emitting pass, its
// output.
func (a *Assembler) commit(p *pass) {
	for _, e := range p.errors {
		a.addError(e.line, e.err)
	}
	a.final = p

	if p.cfg.emit {
		if a.emitted {
			panic("asm: more than one pass emitted output")
		}
		a.emitted = true
		a.output = p.output
		if a.output == nil {
			a.output = []byte{}
		}
		a.patches = p.patches
		a.srcmap = p.srcmap
		if a.cfg.Labels != nil && len(p.errors) == 0 {
			for _, l := range p.labels {
				a.cfg.Labels.AddDebugLabel(l.bank, l.addr, l.name, l.comment)
			}
		}
	}
}

// addError translates a preprocessed line number into a source location.
func (a *Assembler) addError(line int, err *Error) {
	src := a.sourceLine(line)
	a.errors = append(a.errors, ErrorDetail{
		Line:    src.Line,
		File:    src.File,
		Code:    err.Code,
		Message: err.Message,
	})
}

func (a *Assembler) sourceLine(line int) SourceLine {
	if line < 1 || line > len(a.lines) {
		return SourceLine{File: a.name, Line: line}
	}
	return a.lines[line-1]
}

// Errors returns the errors reported by the failing phase.
func (a *Assembler) Errors() []ErrorDetail {
	return a.errors
}

// Phase returns the most recent phase the assembler entered.
func (a *Assembler) Phase() Phase {
	return a.phase
}

// Lines returns the preprocessed source lines.
func (a *Assembler) Lines() []SourceLine {
	return a.lines
}

// PatchSegments returns the patch segments of the output.
func (a *Assembler) PatchSegments() []PatchSegment {
	return a.patches
}

// HasPatchSegments returns true if the source contains a patch directive.
func (a *Assembler) HasPatchSegments() bool {
	return a.hasPatch
}

// DefaultPatchOffset returns the offset at which the output applies as a
// patch, or -1 if it has none.
func (a *Assembler) DefaultPatchOffset() int {
	if !a.hasPatch {
		return -1
	}
	return defaultPatchOffset(a.patches)
}

// Output returns the output image of a completed assembly.
func (a *Assembler) Output() []byte {
	return a.output
}

// SourceMap returns the mapping between output addresses and source
// lines.
func (a *Assembler) SourceMap() *SourceMap {
	return a.srcmap
}

// LineComment returns the comments attached to a preprocessed line.
func (a *Assembler) LineComment(line int) string {
	if a.data == nil {
		return ""
	}
	return a.data.comments[line]
}

// Symbols returns the values of all symbols, keyed by qualified name.
func (a *Assembler) Symbols() map[string]Literal {
	m := make(map[string]Literal, len(a.symbols))
	for id, s := range a.symbols {
		m[id.String()] = s.value
	}
	return m
}

// SymbolNames returns the qualified names of all symbols in sorted order.
func (a *Assembler) SymbolNames() []string {
	names := make([]string, 0, len(a.symbols))
	for id := range a.symbols {
		names = append(names, id.String())
	}
	sort.Strings(names)
	return names
}

// Evaluate computes an expression using the symbols of a completed
// assembly.
func (a *Assembler) Evaluate(expr string) (Literal, error) {
	if a.phase != PhaseAssembled {
		return Literal{}, ErrNotAssembled
	}
	e := evaluator{symbols: a.final}
	cfg := a.final.evalConfig()
	cfg.errorOnUndefined = true
	v, rest, err := e.evaluate(newFstring(0, expr), cfg)
	if err != nil {
		return v, err
	}
	if rest = rest.trim(); !rest.isEmpty() {
		return v, newError(UnexpectedText, "unexpected '%s'", rest.str)
	}
	return v, nil
}

// AssembleFile assembles the file at path and writes the output image to
// a file with the same name and a .bin extension, along with a .map
// source map. If cfg.Labels can write itself, the labels are also
// written to a .mlb file.
func AssembleFile(path string, cfg Config) (*Assembler, error) {
	fs := cfg.FileSystem
	if fs == nil {
		fs = OSFileSystem{}
		cfg.FileSystem = fs
	}

	source, err := fs.ReadText(path)
	if err != nil {
		return nil, err
	}

	a := New(path, source, cfg)
	code, err := a.Assemble()
	if err != nil {
		return a, err
	}

	prefix := strings.TrimSuffix(path, filepath.Ext(path))
	if err := fs.WriteFile(prefix+".bin", code); err != nil {
		return a, err
	}

	var buf bytes.Buffer
	if _, err := a.srcmap.WriteTo(&buf); err != nil {
		return a, errors.Wrap(err, "encoding source map")
	}
	if err := fs.WriteFile(prefix+".map", buf.Bytes()); err != nil {
		return a, err
	}

	if w, ok := cfg.Labels.(io.WriterTo); ok {
		buf.Reset()
		if _, err := w.WriteTo(&buf); err != nil {
			return a, errors.Wrap(err, "encoding debug labels")
		}
		if err := fs.WriteFile(prefix+".mlb", buf.Bytes()); err != nil {
			return a, err
		}
	}
	return a, nil
}

// In verbose mode, log a formatted message.
func (a *Assembler) log(format string, args ...any) {
	if a.cfg.Verbose && a.logger != nil {
		a.logger.WithField("phase", a.phase.String()).Debugf(format, args...)
	}
}

// In verbose mode, log a message along with the line of source it
// concerns.
func (a *Assembler) logLine(line int, format string, args ...any) {
	if a.cfg.Verbose && a.logger != nil {
		src := a.sourceLine(line)
		a.logger.WithFields(logrus.Fields{
			"phase": a.phase.String(),
			"file":  src.File,
			"line":  src.Line,
		}).Debugf("%-20s | %s", fmt.Sprintf(format, args...), strings.TrimSpace(src.Text))
	}
}

// In verbose mode, log a series of bytes with starting address.
func (a *Assembler) logBytes(addr int, b []byte) {
	if a.cfg.Verbose && a.logger != nil {
		for i, n := 0, len(b); i < n; i += 3 {
			j := min(i+3, n)
			a.logger.WithField("addr", fmt.Sprintf("$%04X", addr+i)).Debug(byteString(b[i:j]))
		}
	}
}

// In verbose mode, log a section header.
func (a *Assembler) logSection(name string) {
	if a.cfg.Verbose && a.logger != nil {
		a.logger.Debug(strings.Repeat("-", len(name)+6))
		a.logger.Debugf("-- %s --", name)
		a.logger.Debug(strings.Repeat("-", len(name)+6))
	}
}
