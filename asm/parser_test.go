// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"strings"
	"testing"

	"github.com/beevik/asm65/cpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseLines(t *testing.T, src string) *assemblyData {
	t.Helper()
	data := newAssemblyData()
	p := newParser(data, false)
	for i, line := range strings.Split(src, "\n") {
		require.Nil(t, p.parseLine(newFstring(i+1, line)), "line %d: %s", i+1, line)
	}
	require.Nil(t, p.finish())
	return data
}

func parseError(src string) *Error {
	data := newAssemblyData()
	p := newParser(data, false)
	for i, line := range strings.Split(src, "\n") {
		if err := p.parseLine(newFstring(i+1, line)); err != nil {
			return err
		}
	}
	return p.finish()
}

func TestParseAddressing(t *testing.T) {
	tests := []struct {
		operand string
		mode    cpu.Mode
		value   string
	}{
		{"", cpu.IMP, ""},
		{"A", cpu.IMP, ""},
		{"#$10", cpu.IMM, "$10"},
		{"$1234", cpu.ABS, "$1234"},
		{"label+1", cpu.ABS, "label+1"},
		{"$10,X", cpu.ABX, "$10"},
		{"$10, y", cpu.ABY, "$10"},
		{"($10),Y", cpu.IDY, "$10"},
		{"($10,X)", cpu.IDX, "$10"},
		{"($1234)", cpu.IND, "$1234"},
		{"(a+1)*2", cpu.ABS, "(a+1)*2"},
		{"(a),(b)", cpu.ABS, "(a),(b)"},
	}

	for _, test := range tests {
		mode, value := parseAddressing(newFstring(1, test.operand))
		assert.Equal(t, test.mode, mode, test.operand)
		assert.Equal(t, test.value, value.str, test.operand)
	}
}

func TestParseLabels(t *testing.T) {
	data := parseLines(t, "start: loop: + -- NOP\nns::entry: {\n@inner: }\n* RTS")

	require.Len(t, data.labels, 4)
	assert.Equal(t, Identifier{Name: "start"}, data.labels[0].id)
	assert.Equal(t, Identifier{Name: "loop"}, data.labels[1].id)
	assert.Equal(t, Identifier{Name: "entry", Namespace: "ns"}, data.labels[2].id)
	assert.Equal(t, Identifier{Name: "entry.inner", Namespace: "ns"}, data.labels[3].id)
	assert.True(t, data.labels[3].local)
	assert.Equal(t, 1, data.labels[2].index)

	kinds := ""
	for _, l := range data.anon.labels {
		kinds += string(l.kind)
	}
	assert.Equal(t, "+-{}*", kinds)
	assert.Equal(t, 2, data.anon.labels[1].depth)
	assert.Equal(t, -1, data.anon.labels[0].addr)

	require.Len(t, data.instructions, 2)
	assert.Equal(t, byte(0xea), data.instructions[0].opcode)
	assert.Equal(t, byte(0x60), data.instructions[1].opcode)
}

func TestParseInstructionOperands(t *testing.T) {
	data := parseLines(t, "LDA #$05\nSTA dest+1,X\nJMP ($FFFC)")

	require.Len(t, data.instructions, 3)
	assert.Equal(t, asmValue{lit: Byte(5), isLiteral: true}, data.instructions[0].operand)
	assert.Equal(t, byte(0x9d), data.instructions[1].opcode)
	assert.Equal(t, asmValue{expr: "dest+1"}, data.instructions[1].operand)
	assert.Equal(t, byte(0x6c), data.instructions[2].opcode)
	assert.Equal(t, 3, data.instructions[2].line)
}

func TestParseDirectives(t *testing.T) {
	data := parseLines(t, `org $8000
.DB 1, "hi", label
x = 3
y := 4
	IFDEF x
	.endif
	namespace
	.defseg code
	base = $8000
	.segment`)

	require.Len(t, data.directives, 8)

	org, ok := data.directives[0].(*orgDirective)
	require.True(t, ok)
	assert.Equal(t, Word(0x8000), org.addr.lit)
	assert.False(t, org.dotted)

	db, ok := data.directives[1].(*dataDirective)
	require.True(t, ok)
	assert.True(t, db.dotted)
	assert.Equal(t, dataBytes, db.width)
	require.Len(t, db.items, 3)
	assert.Equal(t, []byte("hi"), db.items[1].str)
	assert.Equal(t, "label", db.items[2].value.expr)

	x, ok := data.directives[2].(*assignDirective)
	require.True(t, ok)
	assert.False(t, x.isLabel)
	y, ok := data.directives[3].(*assignDirective)
	require.True(t, ok)
	assert.True(t, y.isLabel)

	cond, ok := data.directives[4].(*conditionalDirective)
	require.True(t, ok)
	assert.Equal(t, condIfdef, cond.kind)
	assert.Equal(t, Identifier{Name: "x"}, cond.id)

	seg, ok := data.directives[7].(*segmentDefDirective)
	require.True(t, ok)
	assert.Equal(t, "code", seg.segment)
	assert.True(t, seg.enter)
	assert.Equal(t, []segAttr{{"base", asmValue{lit: Word(0x8000), isLiteral: true}}}, seg.attrs)
}

func TestParseErrorCodes(t *testing.T) {
	tests := []struct {
		src  string
		code ErrorCode
	}{
		{"???", UnexpectedText},
		{".", DirectiveNotDefined},
		{".nothing", DirectiveNotDefined},
		{"define", ExpectedLValue},
		{"ifdef", ExpectedName},
		{"incbin", ExpectedName},
		{"dsb", ExpectedExpression},
		{"dsb 1, 2, 3", UnexpectedText},
		{"overflow maybe", InvalidDirectiveValue},
		{"ns::@local: NOP", ExpectedName},
		{"STA #1", InvalidInstruction},
		{"JSR", InvalidInstruction},
		{".defseg a b", UnexpectedText},
		{".defseg a\n.bogus", ExpectedSegAttr},
		{".defseg a\nsize =", ExpectedExpression},
		{"x =", ExpectedExpression},
		{`.db "\z"`, InvalidEscape},
	}

	for _, test := range tests {
		err := parseError(test.src)
		require.NotNil(t, err, test.src)
		assert.Equal(t, test.code, err.Code, "%s: %s", test.src, err.Message)
	}
}

func TestParseComments(t *testing.T) {
	data := parseLines(t, "; first\n; second\nNOP ; third\nRTS\n.db \"a;b\" ; fourth")
	assert.Equal(t, "first\nsecond\nthird", data.comments[3])
	assert.Equal(t, "fourth", data.comments[5])
	_, ok := data.comments[4]
	assert.False(t, ok)

	data = parseLines(t, "foo: ; entry point\nNOP ; body")
	assert.Equal(t, "entry point", data.comments[1])
	assert.Equal(t, "body", data.comments[2])
}

func TestParseString(t *testing.T) {
	b, rest, err := parseString(newFstring(1, `"a\tb\"c\\" tail`))
	require.Nil(t, err)
	assert.Equal(t, []byte("a\tb\"c\\"), b)
	assert.Equal(t, " tail", rest.str)
}
