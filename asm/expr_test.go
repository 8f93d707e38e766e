// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluate(t *testing.T) {
	tests := []struct {
		expr   string
		result Literal
	}{
		{"1+2*3", Byte(7)},
		{"(1+2)*3", Byte(9)},
		{"1 + 2 << 1", Byte(6)},
		{"1 | 2 & 3", Byte(3)},
		{"6 ^ 3", Byte(5)},
		{"7 % 4", Byte(3)},
		{"$0010 << 4", Word(0x0100)},
		{"$1234 >> 4", Word(0x0123)},
		{"$10 + $1000", Word(0x1010)},
		{"1 == 1", Byte(0xff)},
		{"1 <> 1", Byte(0)},
		{"2 > 1 && 0", Byte(0)},
		{"0 || 3 >= 3", Byte(0xff)},
		{"<$1234", Byte(0x34)},
		{">$1234", Byte(0x12)},
		{"~$0F", Byte(0xf0)},
		{"~$000F", Word(0xfff0)},
		{"!0", Byte(0xff)},
		{"!5", Byte(0)},
		{"-1", Byte(0xff)},
		{"-129", Word(0xff7f)},
		{"#$20", Byte(0x20)},
		{"  ( ( 4 ) ) ", Byte(4)},
	}

	for _, test := range tests {
		v, err := Evaluate(test.expr, EvalOptions{})
		require.NoError(t, err, test.expr)
		assert.Equal(t, test.result, v, test.expr)
	}
}

func TestEvaluateSymbols(t *testing.T) {
	opts := EvalOptions{
		Address: 0x8000,
		Symbols: map[string]Literal{
			"foo":     Word(0x1234),
			"ns::bar": Byte(3),
			"n":       Byte(5),
		},
	}

	tests := []struct {
		expr   string
		result Literal
	}{
		{"foo", Word(0x1234)},
		{"foo + 1", Word(0x1235)},
		{"ns::bar * 2", Byte(6)},
		{"$", Word(0x8000)},
		{"$ + 2", Word(0x8002)},
		{"<foo + >foo", Byte(0x46)},
		{"n++ + n", Byte(11)},
		{"++n + n", Byte(12)},
		{"n", Byte(5)},
	}

	for _, test := range tests {
		v, err := Evaluate(test.expr, opts)
		require.NoError(t, err, test.expr)
		assert.Equal(t, test.result, v, test.expr)
	}
}

func TestEvaluateErrors(t *testing.T) {
	tests := []struct {
		expr     string
		overflow OverflowChecking
		code     ErrorCode
	}{
		{"", OverflowNone, ExpectedExpression},
		{"1 +", OverflowNone, ExpectedExpression},
		{"1/0", OverflowNone, InvalidExpression},
		{"1%0", OverflowNone, InvalidExpression},
		{"(1+2", OverflowNone, MissingCloseParen},
		{"(1 2)", OverflowNone, InvalidExpression},
		{"1 2", OverflowNone, UnexpectedText},
		{"missing", OverflowNone, ValueNotDefined},
		{"+", OverflowNone, AnonymousLabelNotFound},
		{"?", OverflowNone, SyntaxError},
		{"$10000", OverflowNone, InvalidNumber},
		{"%11111111111111111", OverflowNone, InvalidNumber},
		{"5++", OverflowNone, ExpectedLValue},
		{"5 - 10", OverflowUnsigned, Overflow},
		{"200 + 100", OverflowUnsigned, Overflow},
		{"$FFFF + 1", OverflowUnsigned, Overflow},
		{"-1", OverflowUnsigned, Overflow},
		{"100 + 100", OverflowSigned, Overflow},
		{"-128 / -1", OverflowSigned, Overflow},
		{"-128 % 0", OverflowSigned, InvalidExpression},
	}

	for _, test := range tests {
		_, err := Evaluate(test.expr, EvalOptions{Overflow: test.overflow})
		var e *Error
		require.ErrorAs(t, err, &e, test.expr)
		assert.Equal(t, test.code, e.Code, test.expr)
	}
}

func TestEvaluateSigned(t *testing.T) {
	opts := EvalOptions{Overflow: OverflowSigned}

	v, err := Evaluate("5 - 10", opts)
	require.NoError(t, err)
	assert.Equal(t, Byte(0xfb), v)
	assert.Equal(t, -5, v.Signed())

	v, err = Evaluate("-100 < 1", opts)
	require.NoError(t, err)
	assert.Equal(t, Byte(0xff), v)

	v, err = Evaluate("-100 < 1", EvalOptions{})
	require.NoError(t, err)
	assert.Equal(t, Byte(0), v)
}

func TestAnonymousReference(t *testing.T) {
	tests := []struct {
		s     string
		kind  byte
		depth int
		ok    bool
	}{
		{"+", '+', 1, true},
		{"---", '-', 3, true},
		{"}}", '}', 2, true},
		{"{", '{', 1, true},
		{"+-", 0, 0, false},
		{"+1", 0, 0, false},
		{"", 0, 0, false},
	}

	for _, test := range tests {
		kind, depth, ok := anonymousReference(test.s)
		assert.Equal(t, test.ok, ok, test.s)
		assert.Equal(t, test.kind, kind, test.s)
		assert.Equal(t, test.depth, depth, test.s)
	}
}
