// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import "strings"

// An asmValue is an operand or directive argument. Values that are plain
// numeric literals are decoded while parsing; everything else is kept as
// expression text and evaluated by each pass.
type asmValue struct {
	lit       Literal
	expr      string
	isLiteral bool
}

func newAsmValue(text string) asmValue {
	if lit, ok := TryParseLiteral(text); ok {
		return asmValue{lit: lit, isLiteral: true}
	}
	return asmValue{expr: strings.TrimSpace(text)}
}

func (v asmValue) String() string {
	if v.isLiteral {
		return v.lit.String()
	}
	return v.expr
}

// An instruction is a parsed CPU instruction. The operand is meaningful
// only when the opcode takes one.
type instruction struct {
	opcode  byte
	operand asmValue
	line    int
}

// A label is a named label declared at the position of an instruction.
type label struct {
	id    Identifier
	local bool
	index int // index of the instruction the label tags
	line  int
}

// An anonLabel is one occurrence of an anonymous label.
type anonLabel struct {
	kind    byte // '+', '-', '{', '}' or '*'
	depth   int  // number of marker characters
	index   int
	line    int
	addr    int  // -1 until a pass reaches the label
	skipped bool // inside an inactive conditional block
}

// anonTable is the ledger of anonymous labels in source order.
type anonTable struct {
	labels []anonLabel
}

func (t *anonTable) add(kind byte, depth, index, line int) {
	t.labels = append(t.labels, anonLabel{
		kind:  kind,
		depth: depth,
		index: index,
		line:  line,
		addr:  -1,
	})
}

func (l *anonLabel) matches(kind byte, depth int) bool {
	return (l.kind == kind && l.depth == depth) || (l.kind == '*' && depth == 1)
}

// find resolves an anonymous label reference made on a source line. It
// returns -1 if no label matches or if the matching label has no address
// yet.
func (t *anonTable) find(kind byte, depth, line int) int {
	switch kind {
	case '+':
		for i := range t.labels {
			l := &t.labels[i]
			if l.line > line && !l.skipped && l.matches('+', depth) {
				return l.addr
			}
		}
	case '-':
		for i := len(t.labels) - 1; i >= 0; i-- {
			l := &t.labels[i]
			if l.line <= line && !l.skipped && l.matches('-', depth) {
				return l.addr
			}
		}
	case '}':
		nest := 0
		for i := range t.labels {
			l := &t.labels[i]
			if l.line <= line || l.skipped {
				continue
			}
			switch l.kind {
			case '{':
				nest++
			case '}':
				if nest > 0 {
					nest--
					continue
				}
				if depth--; depth == 0 {
					return l.addr
				}
			}
		}
	case '{':
		nest := 0
		for i := len(t.labels) - 1; i >= 0; i-- {
			l := &t.labels[i]
			if l.line > line || l.skipped {
				continue
			}
			switch l.kind {
			case '}':
				nest++
			case '{':
				if nest > 0 {
					nest--
					continue
				}
				if depth--; depth == 0 {
					return l.addr
				}
			}
		}
	}
	return -1
}

// assemblyData is everything the parser extracts from the source. It is
// built once and read by every pass.
type assemblyData struct {
	instructions []instruction
	directives   []directive
	labels       []label
	anon         anonTable
	comments     map[int]string

	// zeroPage records, per instruction, whether the first pass chose the
	// zero-page form of an absolute opcode.
	zeroPage []bool
}

func newAssemblyData() *assemblyData {
	return &assemblyData{comments: make(map[int]string)}
}

func (d *assemblyData) addInstruction(inst instruction) {
	d.instructions = append(d.instructions, inst)
	d.zeroPage = append(d.zeroPage, false)
}

func (d *assemblyData) addDirective(dir directive) {
	d.directives = append(d.directives, dir)
}

func (d *assemblyData) addLabel(l label) {
	d.labels = append(d.labels, l)
}

// nextIndex is the index the next parsed instruction will receive.
func (d *assemblyData) nextIndex() int {
	return len(d.instructions)
}
