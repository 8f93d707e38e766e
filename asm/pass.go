// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/beevik/asm65/cpu"
)

// passConfig describes how one pass treats the parsed program.
type passConfig struct {
	name                string
	emit                bool // the pass produces the output image
	allowOverflowErrors bool
	errorOnUndefined    bool
}

// A symbol is a named value. Fixed symbols are labels, which may be
// assigned only once per pass.
type symbol struct {
	value Literal
	fixed bool
	pass  int // number of the pass that last assigned the symbol
}

// An event is a label or directive processed before the instruction
// at index.
type event struct {
	index int
	line  int
	rank  int // labels sort before directives on the same line
	label *label
	anon  *anonLabel
	dir   directive
}

// buildEvents merges labels, anonymous labels and directives into the
// order a pass visits them.
func buildEvents(data *assemblyData) []event {
	events := make([]event, 0, len(data.labels)+len(data.anon.labels)+len(data.directives))
	for i := range data.labels {
		l := &data.labels[i]
		events = append(events, event{index: l.index, line: l.line, label: l})
	}
	for i := range data.anon.labels {
		l := &data.anon.labels[i]
		events = append(events, event{index: l.index, line: l.line, anon: l})
	}
	for _, d := range data.directives {
		h := d.header()
		events = append(events, event{index: h.index, line: h.line, rank: 1, dir: d})
	}
	sort.SliceStable(events, func(i, j int) bool {
		a, b := &events[i], &events[j]
		switch {
		case a.index != b.index:
			return a.index < b.index
		case a.line != b.line:
			return a.line < b.line
		default:
			return a.rank < b.rank
		}
	})
	return events
}

// A condFrame is one open if/ifdef/ifndef block.
type condFrame struct {
	active       bool // lines in the current branch are assembled
	parentActive bool
	taken        bool // a branch of the block has been assembled
	sawElse      bool
	line         int
}

type enumState struct {
	saved int
	line  int
}

// lineError is an error tagged with the preprocessed line it came from.
type lineError struct {
	line int
	err  *Error
}

// A pass walks the parsed program once, assigning addresses to labels and
// optionally emitting the output image.
type pass struct {
	a    *Assembler
	data *assemblyData
	set  *cpu.InstructionSet
	num  int
	cfg  passConfig

	address   int
	namespace string
	enclosing Identifier
	segment   *Segment
	segments  map[string]*Segment
	defined   map[Identifier]bool
	cond      []condFrame
	enum      *enumState

	overflow bool
	signed   bool
	needDot  bool

	output  []byte
	patches []PatchSegment
	srcmap  *SourceMap
	labels  []debugLabel
	moved   []lineError // labels whose address differs from the previous pass
	errors  []lineError
}

type debugLabel struct {
	bank          int
	addr          uint16
	name, comment string
}

func newPass(a *Assembler, num int, cfg passConfig) *pass {
	def := newSegment("")
	def.TargetOffset = 0
	p := &pass{
		a:        a,
		data:     a.data,
		set:      cpu.GetInstructionSet(),
		num:      num,
		cfg:      cfg,
		segment:  def,
		segments: map[string]*Segment{"": def},
		defined:  make(map[Identifier]bool),
		overflow: a.cfg.Overflow != OverflowNone,
		signed:   a.cfg.Overflow == OverflowSigned,
	}
	if cfg.emit {
		p.srcmap = newSourceMap()
	}
	return p
}

// run performs the pass.
func (p *pass) run(events []event) {
	p.a.logSection(p.cfg.name)

	next := 0
	for i := 0; i <= len(p.data.instructions); i++ {
		for next < len(events) && events[next].index == i {
			p.process(&events[next])
			next++
		}
		if i < len(p.data.instructions) && p.active() {
			p.emitInstruction(i)
		}
	}

	p.finish()
}

func (p *pass) active() bool {
	return len(p.cond) == 0 || p.cond[len(p.cond)-1].active
}

// report records an error. The first pass drops errors that may be caused
// by values it cannot know yet.
func (p *pass) report(line int, err *Error) {
	if err == nil {
		return
	}
	if !p.cfg.emit && err.Code.deferrable() {
		return
	}
	p.a.logLine(line, "error: %s", err.Message)
	p.errors = append(p.errors, lineError{line, err})
}

func (p *pass) process(ev *event) {
	switch {
	case ev.label != nil:
		if p.active() {
			p.report(ev.line, p.placeLabel(ev.label))
		}
	case ev.anon != nil:
		ev.anon.skipped = !p.active()
		if !ev.anon.skipped {
			ev.anon.addr = p.address
		}
	case ev.dir != nil:
		if c, ok := ev.dir.(*conditionalDirective); ok {
			p.report(ev.line, p.conditional(c))
			return
		}
		if p.active() {
			p.report(ev.line, p.directive(ev.dir))
		}
	}
}

func labelValue(addr int) Literal {
	return makeLiteral(addr, addr >= 0 && addr <= 0xff)
}

func (p *pass) placeLabel(l *label) *Error {
	if !l.local {
		p.enclosing = l.id
	}
	v := labelValue(p.address)
	qid := p.qualify(l.id)
	switch s, ok := p.a.symbols[qid]; {
	case p.num == 1:
	case !ok:
		p.moved = append(p.moved, lineError{l.line,
			newError(LabelMoved, "label '%s' was not placed by the previous pass", qid)})
	case s.fixed && s.pass < p.num && s.value != v:
		p.moved = append(p.moved, lineError{l.line,
			newError(LabelMoved, "label '%s' moved from %s to %s between passes", qid, s.value, v)})
	}
	if err := p.define(l.id, v, true); err != nil {
		return err
	}
	p.addDebugLabel(l.id, l.line)
	return nil
}

func (p *pass) addDebugLabel(id Identifier, line int) {
	if !p.cfg.emit || p.a.cfg.Labels == nil || p.address < 0 || p.address > 0xffff {
		return
	}
	bank := -1
	if p.address >= 0x8000 && p.segment.emits() && p.enum == nil {
		bank = max(p.segment.Bank, 0)
	}
	p.labels = append(p.labels, debugLabel{bank, uint16(p.address), p.qualify(id).String(), p.data.comments[line]})
}

// qualify applies the current namespace to an unqualified identifier.
func (p *pass) qualify(id Identifier) Identifier {
	if id.Namespace == "" && id != currentAddress {
		id.Namespace = p.namespace
	}
	return id
}

// define assigns a value to a symbol.
func (p *pass) define(id Identifier, v Literal, fixed bool) *Error {
	qid := p.qualify(id)
	s, ok := p.a.symbols[qid]
	switch {
	case !ok:
		s = &symbol{}
		p.a.symbols[qid] = s
	case s.pass == p.num && s.fixed:
		return newError(LabelRedefined, "label '%s' is already defined", qid)
	case s.pass == p.num && fixed:
		return newError(LabelRedefined, "'%s' is already defined as a value", qid)
	}
	s.value, s.fixed, s.pass = v, fixed, p.num
	p.defined[qid] = true
	return nil
}

func (p *pass) lookupSymbol(id Identifier) (*symbol, Identifier) {
	qid := p.qualify(id)
	if s, ok := p.a.symbols[qid]; ok {
		return s, qid
	}
	if id.Namespace == "" && qid.Namespace != "" {
		if s, ok := p.a.symbols[id]; ok {
			return s, id
		}
	}
	return nil, qid
}

func (p *pass) lookup(id Identifier) (Literal, bool) {
	if id == currentAddress {
		return Word(uint16(p.address)), true
	}
	s, _ := p.lookupSymbol(id)
	if s == nil {
		return Literal{}, false
	}
	return s.value, true
}

func (p *pass) assign(id Identifier, v Literal) *Error {
	s, qid := p.lookupSymbol(id)
	switch {
	case s == nil:
		return newError(ValueNotDefined, "'%s' is not defined", qid)
	case s.fixed:
		return newError(ExpectedLValue, "label '%s' cannot be modified", qid)
	}
	s.value, s.pass = v, p.num
	return nil
}

func (p *pass) anonymousLabel(kind byte, depth, line int) int {
	return p.data.anon.find(kind, depth, line)
}

func (p *pass) enclosingLabel() Identifier {
	return p.enclosing
}

func (p *pass) evalConfig() evalConfig {
	return evalConfig{
		overflowChecking: p.overflow && p.cfg.allowOverflowErrors,
		signed:           p.signed,
		errorOnUndefined: p.cfg.errorOnUndefined,
	}
}

// eval computes the value of an operand or directive argument.
func (p *pass) eval(v asmValue, line int) (Literal, *Error) {
	if v.isLiteral {
		return v.lit, nil
	}
	e := evaluator{symbols: p}
	r, rest, err := e.evaluate(newFstring(line, v.expr), p.evalConfig())
	if err != nil {
		return r, err
	}
	if rest = rest.trim(); !rest.isEmpty() {
		return r, newError(UnexpectedText, "unexpected '%s' in expression", rest.str)
	}
	return r, nil
}

// byteOperand narrows a value to a byte.
func (p *pass) byteOperand(v Literal) (byte, *Error) {
	fits := v.IsByte || v.Value <= 0xff || (p.signed && int16(v.Value) >= -128)
	if !fits && p.evalConfig().overflowChecking {
		return byte(v.Value), overflowError(v.Int(), true)
	}
	return byte(v.Value), nil
}

// emit writes bytes at the current address of the selected segment.
func (p *pass) emit(line int, b []byte) *Error {
	if p.enum != nil {
		p.address += len(b)
		return nil
	}

	seg := p.segment
	var err *Error
	switch {
	case p.address+len(b) > 0x10000:
		err = newError(SegmentOverflow, "address $%X passes the end of memory", p.address+len(b)-1)
	case seg.AddressLimit >= 0 && p.address+len(b)-1 > seg.AddressLimit:
		err = newError(SegmentOverflow, "%s passes its address limit $%04X", seg, seg.AddressLimit)
	case seg.MaxSize >= 0 && seg.written+len(b) > seg.MaxSize:
		err = newError(SegmentOverflow, "%s exceeds its size of %d bytes", seg, seg.MaxSize)
	}
	if err != nil {
		if seg.overflowed {
			err = nil
		}
		seg.overflowed = true
	}

	if p.cfg.emit && seg.emits() {
		p.writeAt(seg.position(), b)
		p.a.logBytes(p.address, b)
	}
	seg.written += len(b)
	p.address += len(b)
	return err
}

func (p *pass) writeAt(pos int, b []byte) {
	if end := pos + len(b); end > len(p.output) {
		if end > cap(p.output) {
			grown := make([]byte, end, max(end, 2*cap(p.output)))
			copy(grown, p.output)
			p.output = grown
		} else {
			p.output = p.output[:end]
		}
	}
	copy(p.output[pos:], b)
}

// mapLine records the current address in the source map.
func (p *pass) mapLine(line int) {
	if p.srcmap == nil || p.enum != nil || !p.segment.emits() {
		return
	}
	src := p.a.sourceLine(line)
	p.srcmap.add(p.address, p.segment.position(), src.File, src.Line)
}

func (p *pass) emitInstruction(i int) {
	in := &p.data.instructions[i]
	inst := p.set.Lookup(in.opcode)
	if inst == nil {
		p.report(in.line, newError(EngineError, "opcode $%02X is not in the instruction table", in.opcode))
		return
	}

	p.mapLine(in.line)
	if inst.Length == 1 {
		p.report(in.line, p.emit(in.line, []byte{inst.Opcode}))
		return
	}

	v, err := p.eval(in.operand, in.line)
	p.report(in.line, err)

	if inst.IsBranch() {
		offset := v.Int() - (p.address + 2)
		if offset < -128 || offset > 127 {
			p.report(in.line, newError(BranchOutOfRange, "branch target $%04X is out of range", v.Int()))
		}
		p.report(in.line, p.emit(in.line, []byte{inst.Opcode, byte(offset)}))
		return
	}

	if zp, ok := inst.Mode.ZeroPage(); ok && inst.Length == 3 {
		if p.num == 1 {
			zinst, result := p.set.Find(inst.Name, zp, p.a.cfg.AllowInvalidOpcodes)
			p.data.zeroPage[i] = v.IsByte && result == cpu.Found && zinst != nil
		}
		if p.data.zeroPage[i] {
			zinst, _ := p.set.Find(inst.Name, zp, p.a.cfg.AllowInvalidOpcodes)
			if !v.IsByte && v.Value > 0xff {
				p.report(in.line, newError(Overflow, "%s operand $%04X no longer fits in the zero page", inst.Name, v.Value))
			}
			p.report(in.line, p.emit(in.line, []byte{zinst.Opcode, byte(v.Value)}))
			p.a.logLine(in.line, "%s %s", zinst.Name, zinst.Mode)
			return
		}
	}

	if inst.Length == 2 {
		b, err := p.byteOperand(v)
		p.report(in.line, err)
		p.report(in.line, p.emit(in.line, []byte{inst.Opcode, b}))
	} else {
		p.report(in.line, p.emit(in.line, []byte{inst.Opcode, byte(v.Value), byte(v.Value >> 8)}))
	}
	p.a.logLine(in.line, "%s %s", inst.Name, inst.Mode)
}

// directive applies one non-conditional directive.
func (p *pass) directive(d directive) *Error {
	h := d.header()
	if p.needDot && !h.dotted {
		if a, ok := d.(*assignDirective); !ok || strings.EqualFold(a.name, "alias") {
			return newError(DirectiveNotDefined, "directive '%s' must be written '.%s'", h.name, h.name)
		}
	}

	switch d := d.(type) {
	case *orgDirective:
		return p.org(d)
	case *baseDirective:
		v, err := p.eval(d.addr, d.line)
		p.address = v.Int()
		return err
	case *incbinDirective:
		return p.incbin(d)
	case *errorDirective:
		if p.cfg.emit {
			return newError(UserError, "%s", d.message)
		}
	case *patchDirective:
		return p.patch(d)
	case *defineDirective:
		return p.define(d.id, Byte(1), false)
	case *hexDirective:
		p.mapLine(d.line)
		return p.emit(d.line, d.data)
	case *dataDirective:
		return p.emitData(d)
	case *storageDirective:
		return p.storage(d)
	case *namespaceDirective:
		p.namespace = d.namespace
	case *optionDirective:
		switch d.option {
		case optionOverflow:
			p.overflow = d.on
		case optionSigned:
			p.signed = d.on
		case optionNeedDot:
			p.needDot = d.on
		}
	case *enumDirective:
		if p.enum != nil {
			return newError(InvalidDirectiveValue, "'%s' cannot be nested", d.name)
		}
		v, err := p.eval(d.addr, d.line)
		p.enum = &enumState{saved: p.address, line: d.line}
		p.address = v.Int()
		return err
	case *endEnumDirective:
		if p.enum == nil {
			return newError(InvalidDirectiveValue, "'%s' without 'enum'", d.name)
		}
		p.address = p.enum.saved
		p.enum = nil
	case *assignDirective:
		v, err := p.eval(d.value, d.line)
		if err != nil {
			return err
		}
		return p.define(d.id, v, d.isLabel)
	case *segmentDefDirective:
		return p.defineSegment(d)
	case *segmentDirective:
		return p.selectSegment(d.segment)
	default:
		return newError(EngineError, "unhandled directive '%s'", h.name)
	}
	return nil
}

func (p *pass) org(d *orgDirective) *Error {
	v, err := p.eval(d.addr, d.line)
	if err != nil {
		return err
	}
	addr := v.Int()
	if p.segment.written == 0 || p.enum != nil {
		p.address = addr
		return nil
	}
	if addr < p.address {
		return newError(InvalidDirectiveValue, "org $%04X is below the current address $%04X", addr, p.address)
	}
	pad := make([]byte, addr-p.address)
	fill := p.segment.padByte()
	for i := range pad {
		pad[i] = fill
	}
	return p.emit(d.line, pad)
}

func (p *pass) incbin(d *incbinDirective) *Error {
	path := d.file
	if !filepath.IsAbs(path) {
		path = filepath.Join(filepath.Dir(p.a.sourceLine(d.line).File), path)
	}

	r, ferr := p.a.fs.Open(path)
	if ferr != nil {
		return asError(ferr, FileError)
	}
	b, ferr := io.ReadAll(r)
	r.Close()
	if ferr != nil {
		return asError(ferr, FileError)
	}

	start, end := 0, len(b)
	if d.offset != nil {
		v, err := p.eval(*d.offset, d.line)
		if err != nil {
			return err
		}
		start = v.Int()
	}
	if d.length != nil {
		v, err := p.eval(*d.length, d.line)
		if err != nil {
			return err
		}
		end = start + v.Int()
	}
	if start < 0 || start > len(b) || end > len(b) || end < start {
		return newError(InvalidDirectiveValue, "'%s' range %d-%d is outside the %d bytes of '%s'", d.name, start, end, len(b), d.file)
	}

	p.mapLine(d.line)
	return p.emit(d.line, b[start:end])
}

func (p *pass) patch(d *patchDirective) *Error {
	if !p.segment.emits() {
		return newError(InvalidDirectiveValue, "'%s' in %s, which has no output offset", d.name, p.segment)
	}
	ps := PatchSegment{Start: p.segment.position(), Length: -1, PatchOffset: -1}
	if d.offset != nil {
		v, err := p.eval(*d.offset, d.line)
		if err != nil {
			return err
		}
		ps.PatchOffset = v.Int()
	}
	if n := len(p.patches); n > 0 {
		p.patches[n-1].Length = ps.Start - p.patches[n-1].Start
	}
	p.patches = append(p.patches, ps)
	return nil
}

func (p *pass) emitData(d *dataDirective) *Error {
	p.mapLine(d.line)
	var out []byte
	for _, item := range d.items {
		if item.isString {
			out = append(out, item.str...)
			continue
		}
		v, err := p.eval(item.value, d.line)
		if err != nil {
			return err
		}
		switch {
		case d.width == dataWords || (d.width == dataImplicit && !v.IsByte):
			out = append(out, toBytes(2, v.Int())...)
		default:
			b, err := p.byteOperand(v)
			if err != nil {
				return err
			}
			out = append(out, b)
		}
	}
	return p.emit(d.line, out)
}

func (p *pass) storage(d *storageDirective) *Error {
	v, err := p.eval(d.count, d.line)
	if err != nil {
		return err
	}
	count := v.Int()
	if v.Signed() < 0 && !v.IsByte {
		return newError(InvalidDirectiveValue, "'%s' count %d is negative", d.name, v.Signed())
	}

	fill := []byte{0}
	if d.words {
		fill = []byte{0, 0}
	}
	if d.fill != nil {
		f, err := p.eval(*d.fill, d.line)
		if err != nil {
			return err
		}
		if d.words {
			fill = toBytes(2, f.Int())
		} else {
			b, err := p.byteOperand(f)
			if err != nil {
				return err
			}
			fill[0] = b
		}
	}

	out := make([]byte, 0, count*len(fill))
	for i := 0; i < count; i++ {
		out = append(out, fill...)
	}
	p.mapLine(d.line)
	return p.emit(d.line, out)
}

func (p *pass) conditional(d *conditionalDirective) *Error {
	switch d.kind {
	case condIf, condIfdef, condIfndef:
		parent := p.active()
		f := condFrame{parentActive: parent, line: d.line}
		if parent {
			var cond bool
			switch d.kind {
			case condIf:
				v, err := p.eval(d.expr, d.line)
				if err != nil {
					p.cond = append(p.cond, f)
					return err
				}
				cond = v.Value != 0
			case condIfdef:
				cond = p.isDefined(d.id)
			case condIfndef:
				cond = !p.isDefined(d.id)
			}
			f.active, f.taken = cond, cond
		}
		p.cond = append(p.cond, f)

	case condElse:
		if len(p.cond) == 0 {
			return newError(InvalidDirectiveValue, "'%s' without 'if'", d.name)
		}
		f := &p.cond[len(p.cond)-1]
		if f.sawElse {
			return newError(InvalidDirectiveValue, "duplicate '%s'", d.name)
		}
		f.sawElse = true
		f.active = f.parentActive && !f.taken
		f.taken = true

	case condEndif:
		if len(p.cond) == 0 {
			return newError(InvalidDirectiveValue, "'%s' without 'if'", d.name)
		}
		p.cond = p.cond[:len(p.cond)-1]
	}
	return nil
}

func (p *pass) isDefined(id Identifier) bool {
	qid := p.qualify(id)
	return p.defined[qid] || (id.Namespace == "" && p.defined[id])
}

func (p *pass) defineSegment(d *segmentDefDirective) *Error {
	if _, ok := p.segments[d.segment]; ok {
		return newError(InvalidDirectiveValue, "segment '%s' is already defined", d.segment)
	}
	seg := newSegment(d.segment)
	for _, attr := range d.attrs {
		if attr.name == "namespace" {
			if err := seg.setAttr(attr.name, Literal{}, attr.value.String()); err != nil {
				return err
			}
			continue
		}
		v, err := p.eval(attr.value, d.line)
		if err != nil {
			return err
		}
		if err := seg.setAttr(attr.name, v, ""); err != nil {
			return err
		}
	}
	p.segments[d.segment] = seg
	if d.enter {
		return p.selectSegment(d.segment)
	}
	return nil
}

func (p *pass) selectSegment(name string) *Error {
	seg, ok := p.segments[name]
	if !ok {
		return newError(InvalidDirectiveValue, "segment '%s' is not defined", name)
	}
	if p.enum != nil {
		return newError(InvalidDirectiveValue, "segment '%s' selected inside 'enum'", name)
	}

	p.segment.currentAddress = p.address
	p.segment = seg
	switch {
	case seg.currentAddress >= 0:
		p.address = seg.currentAddress
	case seg.Base >= 0:
		p.address = seg.Base
	default:
		p.address = 0
	}
	if seg.Namespace != "" {
		p.namespace = seg.Namespace
	}
	return nil
}

// finish checks for blocks left open and pads sized segments.
func (p *pass) finish() {
	if n := len(p.cond); n > 0 {
		p.report(p.cond[n-1].line, newError(InvalidDirectiveValue, "'if' without 'endif'"))
	}
	if p.enum != nil {
		p.report(p.enum.line, newError(InvalidDirectiveValue, "'enum' without 'ende'"))
		p.enum = nil
	}

	if !p.cfg.emit {
		return
	}
	for _, seg := range p.segments {
		if seg.emits() && seg.MaxSize > seg.written {
			pad := make([]byte, seg.MaxSize-seg.written)
			fill := seg.padByte()
			for i := range pad {
				pad[i] = fill
			}
			p.writeAt(seg.position(), pad)
			seg.written = seg.MaxSize
		}
	}
	p.srcmap.sort()
}
