// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"strings"
)

// A directive is one parsed assembler directive. Each kind of directive
// is its own struct type, and passes process them with a type switch.
type directive interface {
	header() *dirHeader
}

// dirHeader records where a directive appeared.
type dirHeader struct {
	name   string // directive name as written
	index  int    // instruction index at the point of the directive
	line   int
	dotted bool // written with a leading '.'
}

func (h *dirHeader) header() *dirHeader { return h }

type orgDirective struct {
	dirHeader
	addr asmValue
}

type baseDirective struct {
	dirHeader
	addr asmValue
}

type incbinDirective struct {
	dirHeader
	file   string
	offset *asmValue
	length *asmValue
}

type errorDirective struct {
	dirHeader
	message string
}

type patchDirective struct {
	dirHeader
	offset *asmValue
}

type defineDirective struct {
	dirHeader
	id Identifier
}

type hexDirective struct {
	dirHeader
	data []byte
}

type dataWidth byte

const (
	dataBytes dataWidth = iota
	dataWords
	dataImplicit
)

// A dataItem is either a string or a value.
type dataItem struct {
	str      []byte
	value    asmValue
	isString bool
}

type dataDirective struct {
	dirHeader
	width dataWidth
	items []dataItem
}

type storageDirective struct {
	dirHeader
	words bool
	count asmValue
	fill  *asmValue
}

type namespaceDirective struct {
	dirHeader
	namespace string
}

type optionKind byte

const (
	optionOverflow optionKind = iota
	optionSigned
	optionNeedDot
	optionNeedColon
)

type optionDirective struct {
	dirHeader
	option optionKind
	on     bool
}

type condKind byte

const (
	condIf condKind = iota
	condIfdef
	condIfndef
	condElse
	condEndif
)

type conditionalDirective struct {
	dirHeader
	kind condKind
	expr asmValue
	id   Identifier
}

type enumDirective struct {
	dirHeader
	addr asmValue
}

type endEnumDirective struct {
	dirHeader
}

type assignDirective struct {
	dirHeader
	id      Identifier
	value   asmValue
	isLabel bool
}

// A segAttr is one "name = value" line of a segment definition.
type segAttr struct {
	name  string
	value asmValue
}

type segmentDefDirective struct {
	dirHeader
	segment string
	attrs   []segAttr
	enter   bool
}

type segmentDirective struct {
	dirHeader
	segment string
}

// dirParser parses the text following a directive name.
type dirParser func(p *parser, h dirHeader, s fstring) *Error

var directiveTable map[string]dirParser

func init() {
	directiveTable = map[string]dirParser{
		"org":       (*parser).parseOrg,
		"base":      (*parser).parseBase,
		"incbin":    (*parser).parseIncbin,
		"error":     (*parser).parseErrorDirective,
		"patch":     (*parser).parsePatch,
		"define":    (*parser).parseDefine,
		"hex":       (*parser).parseHex,
		"db":        dataParser(dataBytes),
		"byte":      dataParser(dataBytes),
		"dw":        dataParser(dataWords),
		"word":      dataParser(dataWords),
		"data":      dataParser(dataImplicit),
		"dsb":       storageParser(false),
		"dsw":       storageParser(true),
		"namespace": (*parser).parseNamespace,
		"overflow":  optionParser(optionOverflow),
		"signed":    optionParser(optionSigned),
		"needdot":   optionParser(optionNeedDot),
		"needcolon": optionParser(optionNeedColon),
		"if":        conditionalParser(condIf),
		"ifdef":     conditionalParser(condIfdef),
		"ifndef":    conditionalParser(condIfndef),
		"else":      conditionalParser(condElse),
		"endif":     conditionalParser(condEndif),
		"enum":      (*parser).parseEnum,
		"ende":      (*parser).parseEndEnum,
		"endenum":   (*parser).parseEndEnum,
		"alias":     (*parser).parseAlias,
		"segment":   (*parser).parseSegment,
	}
}

func lookupDirective(name string) (dirParser, bool) {
	fn, ok := directiveTable[strings.ToLower(name)]
	return fn, ok
}

func requireValue(h dirHeader, s fstring) (asmValue, *Error) {
	s = s.trim()
	if s.isEmpty() {
		return asmValue{}, newError(ExpectedExpression, "'%s' requires a value", h.name)
	}
	return newAsmValue(s.str), nil
}

func requireEnd(h dirHeader, s fstring) *Error {
	if s = s.trim(); !s.isEmpty() {
		return newError(UnexpectedText, "unexpected '%s' after '%s'", s.str, h.name)
	}
	return nil
}

func (p *parser) parseOrg(h dirHeader, s fstring) *Error {
	v, err := requireValue(h, s)
	if err != nil {
		return err
	}
	p.data.addDirective(&orgDirective{h, v})
	return nil
}

func (p *parser) parseBase(h dirHeader, s fstring) *Error {
	v, err := requireValue(h, s)
	if err != nil {
		return err
	}
	p.data.addDirective(&baseDirective{h, v})
	return nil
}

func (p *parser) parseIncbin(h dirHeader, s fstring) *Error {
	args := s.trim().splitList()
	if args[0].isEmpty() {
		return newError(ExpectedName, "'%s' requires a file name", h.name)
	}
	if len(args) > 3 {
		return newError(UnexpectedText, "too many arguments to '%s'", h.name)
	}

	file := args[0].str
	if args[0].startsWithChar('"') {
		b, rest, err := parseString(args[0])
		if err != nil {
			return err
		}
		if err := requireEnd(h, rest); err != nil {
			return err
		}
		file = string(b)
	}

	d := &incbinDirective{dirHeader: h, file: file}
	if len(args) > 1 {
		v := newAsmValue(args[1].str)
		d.offset = &v
	}
	if len(args) > 2 {
		v := newAsmValue(args[2].str)
		d.length = &v
	}
	p.data.addDirective(d)
	return nil
}

func (p *parser) parseErrorDirective(h dirHeader, s fstring) *Error {
	s = s.trim()
	msg := s.str
	if s.startsWithChar('"') {
		b, rest, err := parseString(s)
		if err != nil {
			return err
		}
		if err := requireEnd(h, rest); err != nil {
			return err
		}
		msg = string(b)
	}
	p.data.addDirective(&errorDirective{h, msg})
	return nil
}

func (p *parser) parsePatch(h dirHeader, s fstring) *Error {
	d := &patchDirective{dirHeader: h}
	if s = s.trim(); !s.isEmpty() {
		v := newAsmValue(s.str)
		d.offset = &v
	}
	p.hasPatch = true
	p.data.addDirective(d)
	return nil
}

func (p *parser) parseDefine(h dirHeader, s fstring) *Error {
	id, rest, ok := grabIdentifier(s.trim())
	if !ok || id == currentAddress {
		return newError(ExpectedLValue, "'%s' requires a symbol name", h.name)
	}
	if err := requireEnd(h, rest); err != nil {
		return err
	}
	p.data.addDirective(&defineDirective{h, id})
	return nil
}

func (p *parser) parseHex(h dirHeader, s fstring) *Error {
	var data []byte
	for _, group := range strings.Fields(s.str) {
		if len(group)%2 != 0 {
			return newError(InvalidDirectiveValue, "hex string '%s' has an odd number of digits", group)
		}
		b, err := hexToBytes(group)
		if err != nil {
			return newError(InvalidDirectiveValue, "invalid hex string '%s'", group)
		}
		data = append(data, b...)
	}
	if len(data) == 0 {
		return newError(ExpectedExpression, "'%s' requires hex digits", h.name)
	}
	p.data.addDirective(&hexDirective{h, data})
	p.storeComment(h.line)
	return nil
}

func dataParser(width dataWidth) dirParser {
	return func(p *parser, h dirHeader, s fstring) *Error {
		s = s.trim()
		if s.isEmpty() {
			return newError(ExpectedExpression, "'%s' requires a value", h.name)
		}

		var items []dataItem
		for _, item := range s.splitList() {
			switch {
			case item.isEmpty():
				return newError(ExpectedExpression, "missing value in '%s' list", h.name)
			case item.startsWithChar('"'):
				b, rest, err := parseString(item)
				if err != nil {
					return err
				}
				if err := requireEnd(h, rest); err != nil {
					return err
				}
				items = append(items, dataItem{str: b, isString: true})
			default:
				items = append(items, dataItem{value: newAsmValue(item.str)})
			}
		}

		p.data.addDirective(&dataDirective{h, width, items})
		p.storeComment(h.line)
		return nil
	}
}

func storageParser(words bool) dirParser {
	return func(p *parser, h dirHeader, s fstring) *Error {
		args := s.trim().splitList()
		if args[0].isEmpty() {
			return newError(ExpectedExpression, "'%s' requires a count", h.name)
		}
		if len(args) > 2 {
			return newError(UnexpectedText, "too many arguments to '%s'", h.name)
		}

		d := &storageDirective{dirHeader: h, words: words, count: newAsmValue(args[0].str)}
		if len(args) == 2 {
			fill := newAsmValue(args[1].str)
			d.fill = &fill
		}
		p.data.addDirective(d)
		p.storeComment(h.line)
		return nil
	}
}

func (p *parser) parseNamespace(h dirHeader, s fstring) *Error {
	s = s.trim()
	name, rest := s.consumeWhile(identifierChar)
	if !s.isEmpty() && !s.startsWith(identifierStartChar) {
		return newError(ExpectedName, "invalid namespace name '%s'", s.str)
	}
	if err := requireEnd(h, rest); err != nil {
		return err
	}
	p.data.addDirective(&namespaceDirective{h, name.str})
	return nil
}

func optionParser(option optionKind) dirParser {
	return func(p *parser, h dirHeader, s fstring) *Error {
		s = s.trim()
		var on bool
		switch strings.ToLower(s.str) {
		case "on", "true", "yes", "1", "":
			on = true
		case "off", "false", "no", "0":
			on = false
		default:
			return newError(InvalidDirectiveValue, "'%s' expects on or off, got '%s'", h.name, s.str)
		}
		p.data.addDirective(&optionDirective{h, option, on})
		return nil
	}
}

func conditionalParser(kind condKind) dirParser {
	return func(p *parser, h dirHeader, s fstring) *Error {
		d := &conditionalDirective{dirHeader: h, kind: kind}
		switch kind {
		case condIf:
			v, err := requireValue(h, s)
			if err != nil {
				return err
			}
			d.expr = v
		case condIfdef, condIfndef:
			id, rest, ok := grabIdentifier(s.trim())
			if !ok {
				return newError(ExpectedName, "'%s' requires a symbol name", h.name)
			}
			if err := requireEnd(h, rest); err != nil {
				return err
			}
			d.id = id
		default:
			if err := requireEnd(h, s); err != nil {
				return err
			}
		}
		p.data.addDirective(d)
		return nil
	}
}

func (p *parser) parseEnum(h dirHeader, s fstring) *Error {
	v, err := requireValue(h, s)
	if err != nil {
		return err
	}
	p.data.addDirective(&enumDirective{h, v})
	return nil
}

func (p *parser) parseEndEnum(h dirHeader, s fstring) *Error {
	if err := requireEnd(h, s); err != nil {
		return err
	}
	p.data.addDirective(&endEnumDirective{h})
	return nil
}

// parseAlias handles "alias name value", which declares a label with an
// explicit value.
func (p *parser) parseAlias(h dirHeader, s fstring) *Error {
	id, rest, ok := grabIdentifier(s.trim())
	if !ok || id == currentAddress {
		return newError(ExpectedName, "'%s' requires a symbol name", h.name)
	}
	rest = rest.trim()
	if rest.startsWithChar('=') {
		rest = rest.consume(1)
	}
	v, err := requireValue(h, rest)
	if err != nil {
		return err
	}
	p.data.addDirective(&assignDirective{dirHeader: h, id: id, value: v, isLabel: true})
	return nil
}

func (p *parser) parseSegment(h dirHeader, s fstring) *Error {
	name, rest := s.trim().consumeWhile(identifierChar)
	if name.isEmpty() {
		return newError(ExpectedName, "'%s' requires a segment name", h.name)
	}
	if err := requireEnd(h, rest); err != nil {
		return err
	}
	p.data.addDirective(&segmentDirective{h, name.str})
	return nil
}

// parseString decodes a double-quoted string with backslash escapes at
// the start of s.
func parseString(s fstring) ([]byte, fstring, *Error) {
	if !s.startsWithChar('"') {
		return nil, s, newError(SyntaxError, "expected string")
	}

	var b []byte
	for i := 1; i < len(s.str); i++ {
		c := s.str[i]
		switch c {
		case '"':
			return b, s.consume(i + 1), nil
		case '\\':
			i++
			if i == len(s.str) {
				return nil, s, newError(InvalidEscape, "unterminated escape sequence")
			}
			switch s.str[i] {
			case 't':
				b = append(b, '\t')
			case 'r':
				b = append(b, '\r')
			case 'n':
				b = append(b, '\n')
			case '"', '\\', '\'':
				b = append(b, s.str[i])
			default:
				return nil, s, newError(InvalidEscape, "invalid escape sequence '\\%c'", s.str[i])
			}
		default:
			b = append(b, c)
		}
	}
	return nil, s, newError(SyntaxError, "unterminated string")
}
