// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"strings"

	"github.com/beevik/asm65/cpu"
)

// A parser turns source lines into instructions, labels and directives
// stored in an assemblyData.
type parser struct {
	data         *assemblyData
	set          *cpu.InstructionSet
	allowInvalid bool
	comment      string               // comments waiting for an owner
	enclosing    Identifier           // most recent named label
	defseg       *segmentDefDirective // open segment definition block
	hasPatch     bool
}

func newParser(data *assemblyData, allowInvalid bool) *parser {
	return &parser{
		data:         data,
		set:          cpu.GetInstructionSet(),
		allowInvalid: allowInvalid,
	}
}

// parseLine parses one preprocessed source line.
func (p *parser) parseLine(line fstring) *Error {
	line = line.trimLeft()
	code, comment, found := line.splitComment()
	if found {
		p.bufferComment(comment)
	}
	line = code.trimRight()

	if p.defseg != nil {
		return p.parseDefsegLine(line)
	}

	labeled := false
	for {
		var named, anon bool
		var err *Error
		line, named, err = p.parseNamedLabel(line)
		if err != nil {
			return err
		}
		line, anon = p.parseAnonymousLabel(line)
		if !named && !anon {
			break
		}
		labeled = labeled || named
	}

	if line.isEmpty() {
		if labeled {
			p.storeComment(line.line)
		}
		return nil
	}

	if line.startsWithChar('.') {
		return p.parseDottedDirective(line)
	}

	id, rest, ok := grabIdentifier(line)
	if !ok {
		return newError(UnexpectedText, "unexpected '%s'", line.str)
	}

	if handled, err := p.parseAssignment(id, rest); handled {
		return err
	}

	if id.Namespace == "" && id != currentAddress {
		if fn, ok := lookupDirective(id.Name); ok {
			return fn(p, p.header(id.Name, line.line, false), rest)
		}
		if handled, err := p.parseInstruction(id.Name, rest); handled {
			return err
		}
	}

	return newError(UnexpectedText, "unexpected '%s'", line.str)
}

func (p *parser) header(name string, line int, dotted bool) dirHeader {
	return dirHeader{name: name, index: p.data.nextIndex(), line: line, dotted: dotted}
}

func (p *parser) bufferComment(c string) {
	c = strings.TrimSpace(c)
	if p.comment != "" {
		p.comment += "\n"
	}
	p.comment += c
}

// storeComment attaches all buffered comments to a source line.
func (p *parser) storeComment(line int) {
	if p.comment != "" {
		p.data.comments[line] = p.comment
		p.comment = ""
	}
}

func (p *parser) parseDottedDirective(line fstring) *Error {
	name, rest := line.consume(1).consumeWhile(identifierChar)
	if name.isEmpty() {
		return newError(DirectiveNotDefined, "expected directive name after '.'")
	}

	switch strings.ToLower(name.str) {
	case "defseg":
		return p.parseDefseg(p.header(name.str, line.line, true), rest)
	case "enddef":
		return newError(InvalidDirectiveValue, "'.%s' without '.defseg'", name.str)
	}

	fn, ok := lookupDirective(name.str)
	if !ok {
		return newError(DirectiveNotDefined, "directive '.%s' is not defined", name.str)
	}
	return fn(p, p.header(name.str, line.line, true), rest)
}

// parseAssignment handles "name = value" and "name := value".
func (p *parser) parseAssignment(id Identifier, rest fstring) (bool, *Error) {
	rest = rest.trimLeft()
	isLabel := false
	switch {
	case rest.startsWithString(":="):
		isLabel = true
		rest = rest.consume(2)
	case rest.startsWithChar('=') && !rest.startsWithString("=="):
		rest = rest.consume(1)
	default:
		return false, nil
	}

	h := p.header(id.String(), rest.line, false)
	if id == currentAddress {
		return true, newError(ExpectedLValue, "cannot assign to '$'; use org")
	}
	v, err := requireValue(h, rest)
	if err != nil {
		return true, err
	}
	p.data.addDirective(&assignDirective{dirHeader: h, id: id, value: v, isLabel: isLabel})
	return true, nil
}

// parseNamedLabel consumes a "name:" or "namespace::name:" label at the
// start of the line.
func (p *parser) parseNamedLabel(s fstring) (fstring, bool, *Error) {
	n := scanLabelName(s)
	if n == 0 {
		return s, false, nil
	}

	var ns, name fstring
	name, rest := s.trunc(n), s.consume(n)
	if rest.startsWithString("::") {
		m := scanLabelName(rest.consume(2))
		if m == 0 {
			return s, false, nil
		}
		ns, name = name, rest.consume(2).trunc(m)
		rest = rest.consume(2 + m)
	}

	rest = rest.trimLeft()
	if !rest.startsWithChar(':') || rest.startsWithString(":=") || rest.startsWithString("::") {
		return s, false, nil
	}
	rest = rest.consume(1).trimLeft()

	local := name.startsWithChar('@')
	switch {
	case !ns.isEmpty() && (local || ns.startsWithChar('@')):
		return s, false, newError(ExpectedName, "local label '%s' cannot have a namespace", name.str)
	case local && len(name.str) == 1:
		return s, false, newError(ExpectedName, "expected local label name after '@'")
	}

	l := label{local: local, index: p.data.nextIndex(), line: s.line}
	if local {
		l.id = Identifier{Name: localName(p.enclosing.Name, name.str[1:]), Namespace: p.enclosing.Namespace}
	} else {
		l.id = Identifier{Name: name.str, Namespace: ns.str}
		p.enclosing = l.id
	}
	p.data.addLabel(l)
	return rest, true, nil
}

func scanLabelName(s fstring) int {
	if !s.startsWith(labelStartChar) {
		return 0
	}
	return 1 + s.consume(1).scanWhile(identifierChar)
}

// parseAnonymousLabel consumes one anonymous label marker.
func (p *parser) parseAnonymousLabel(s fstring) (fstring, bool) {
	c := s.charAt(0)
	var rest fstring
	depth := 1
	switch c {
	case '*':
		rest = s.consume(1)
	case '+', '-':
		var run fstring
		run, rest = s.consumeChars(c)
		depth = len(run.str)
	case '{', '}':
		p.data.anon.add(c, 1, p.data.nextIndex(), s.line)
		return s.consume(1).trimLeft(), true
	default:
		return s, false
	}

	if rest.startsWithChar(':') {
		rest = rest.consume(1)
	}
	p.data.anon.add(c, depth, p.data.nextIndex(), s.line)
	return rest.trimLeft(), true
}

// grabIdentifier parses a symbol name, a namespace-qualified symbol name
// or the current-address symbol '$'.
func grabIdentifier(s fstring) (Identifier, fstring, bool) {
	if s.startsWithChar('$') && !hexadecimal(s.charAt(1)) {
		return currentAddress, s.consume(1), true
	}
	if !s.startsWith(identifierStartChar) {
		return Identifier{}, s, false
	}

	name, rest := s.consumeWhile(identifierChar)
	if rest.startsWithString("::") && identifierStartChar(rest.charAt(2)) {
		var sub fstring
		sub, rest = rest.consume(2).consumeWhile(identifierChar)
		return Identifier{Name: sub.str, Namespace: name.str}, rest, true
	}
	return Identifier{Name: name.str}, rest, true
}

func (p *parser) parseDefseg(h dirHeader, s fstring) *Error {
	name, rest := s.trim().consumeWhile(identifierChar)
	if name.isEmpty() {
		return newError(ExpectedName, "'.%s' requires a segment name", h.name)
	}
	if err := requireEnd(h, rest); err != nil {
		return err
	}
	p.defseg = &segmentDefDirective{dirHeader: h, segment: name.str}
	return nil
}

var segAttrNames = map[string]bool{
	"bank": true, "base": true, "size": true, "limit": true,
	"pad": true, "offset": true, "namespace": true,
}

// parseDefsegLine parses a line inside a segment definition block.
func (p *parser) parseDefsegLine(line fstring) *Error {
	if line.isEmpty() {
		return nil
	}

	if line.startsWithChar('.') {
		name, rest := line.consume(1).consumeWhile(identifierChar)
		var enter bool
		switch strings.ToLower(name.str) {
		case "enddef":
		case "segment":
			enter = true
		default:
			return newError(ExpectedSegAttr, "expected segment attribute or '.enddef'")
		}
		if err := requireEnd(dirHeader{name: name.str}, rest); err != nil {
			return err
		}

		d := p.defseg
		p.defseg = nil
		d.enter = enter
		d.index = p.data.nextIndex()
		d.line = line.line
		p.data.addDirective(d)
		return nil
	}

	i := line.indexUnquoted('=')
	if i < 0 {
		return newError(ExpectedSegAttr, "expected 'name = value' segment attribute")
	}
	name, value := line.split(i)
	name, value = name.trim(), value.trim()
	attr := strings.ToLower(name.str)
	switch {
	case !segAttrNames[attr]:
		return newError(ExpectedSegAttr, "unknown segment attribute '%s'", name.str)
	case value.isEmpty():
		return newError(ExpectedExpression, "segment attribute '%s' requires a value", name.str)
	}
	p.defseg.attrs = append(p.defseg.attrs, segAttr{attr, newAsmValue(value.str)})
	return nil
}

// finish reports problems that span lines.
func (p *parser) finish() *Error {
	if p.defseg != nil {
		return newError(ExpectedSegAttr, "segment definition '%s' is missing '.enddef'", p.defseg.segment)
	}
	return nil
}
