// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

// signedOperands selects which operands of a binary operator are read as
// two's complement when signed mode is on.
type signedOperands byte

const (
	signedNone signedOperands = iota
	signedLeft
	signedRight
	signedBoth
)

// widthPolicy determines the width of an operator's result.
type widthPolicy byte

const (
	widthWidest widthPolicy = iota // word if either operand is a word
	widthLeft                      // width of the left operand
	widthRight                     // width of the right operand
	widthByte                      // always a byte
	widthWord                      // always a word
)

func (p widthPolicy) isByte(l, r Literal) bool {
	switch p {
	case widthWidest:
		return l.IsByte && r.IsByte
	case widthLeft:
		return l.IsByte
	case widthRight:
		return r.IsByte
	case widthByte:
		return true
	default:
		return false
	}
}

const (
	trueValue  = 0xff
	falseValue = 0x00
)

func boolValue(b bool) int {
	if b {
		return trueValue
	}
	return falseValue
}

// A binaryOp describes an infix operator. Operators with a higher level
// bind more tightly.
type binaryOp struct {
	symbol      string
	level       int
	signed      signedOperands
	width       widthPolicy
	canOverflow bool
	fn          func(a, b int) (int, bool)
}

// Binary operators, longest symbols first so that prefix matching picks
// "<<" before "<".
var binaryOps = []binaryOp{
	{"||", 0, signedNone, widthByte, false, func(a, b int) (int, bool) { return boolValue(a != 0 || b != 0), true }},
	{"&&", 1, signedNone, widthByte, false, func(a, b int) (int, bool) { return boolValue(a != 0 && b != 0), true }},
	{"==", 5, signedBoth, widthByte, false, func(a, b int) (int, bool) { return boolValue(a == b), true }},
	{"!=", 5, signedBoth, widthByte, false, func(a, b int) (int, bool) { return boolValue(a != b), true }},
	{"<>", 5, signedBoth, widthByte, false, func(a, b int) (int, bool) { return boolValue(a != b), true }},
	{"<=", 6, signedBoth, widthByte, false, func(a, b int) (int, bool) { return boolValue(a <= b), true }},
	{">=", 6, signedBoth, widthByte, false, func(a, b int) (int, bool) { return boolValue(a >= b), true }},
	{"<<", 7, signedLeft, widthLeft, true, func(a, b int) (int, bool) { return a << uint(b&0x1f), true }},
	{">>", 7, signedLeft, widthLeft, false, func(a, b int) (int, bool) { return a >> uint(b&0x1f), true }},
	{"|", 2, signedNone, widthWidest, false, func(a, b int) (int, bool) { return a | b, true }},
	{"^", 3, signedNone, widthWidest, false, func(a, b int) (int, bool) { return a ^ b, true }},
	{"&", 4, signedNone, widthWidest, false, func(a, b int) (int, bool) { return a & b, true }},
	{"<", 6, signedBoth, widthByte, false, func(a, b int) (int, bool) { return boolValue(a < b), true }},
	{">", 6, signedBoth, widthByte, false, func(a, b int) (int, bool) { return boolValue(a > b), true }},
	{"+", 8, signedBoth, widthWidest, true, func(a, b int) (int, bool) { return a + b, true }},
	{"-", 8, signedBoth, widthWidest, true, func(a, b int) (int, bool) { return a - b, true }},
	{"*", 9, signedBoth, widthWidest, true, func(a, b int) (int, bool) { return a * b, true }},
	{"/", 9, signedBoth, widthWidest, true, func(a, b int) (int, bool) {
		if b == 0 {
			return 0, false
		}
		return a / b, true
	}},
	{"%", 9, signedBoth, widthWidest, true, func(a, b int) (int, bool) {
		if b == 0 {
			return 0, false
		}
		return a % b, true
	}},
}

// grabBinaryOp matches a binary operator at the start of s. It returns
// the operator's index into binaryOps, or -1.
func grabBinaryOp(s fstring) (index int, remain fstring) {
	for i := range binaryOps {
		if s.startsWithString(binaryOps[i].symbol) {
			return i, s.consume(len(binaryOps[i].symbol))
		}
	}
	return -1, s
}

// A unaryOp describes a prefix or postfix operator. Modifying operators
// store their result back into the operand's symbol.
type unaryOp struct {
	symbol      string
	canOverflow bool
	modifies    bool
	fn          func(v Literal, signed bool) (int, bool)
}

func operandValue(v Literal, signed bool) int {
	if signed {
		return v.Signed()
	}
	return v.Int()
}

func increment(delta int) func(v Literal, signed bool) (int, bool) {
	return func(v Literal, signed bool) (int, bool) {
		return operandValue(v, signed) + delta, v.IsByte
	}
}

var preOps = []unaryOp{
	{"++", true, true, increment(1)},
	{"--", true, true, increment(-1)},
	{"-", true, false, func(v Literal, signed bool) (int, bool) {
		r := -operandValue(v, signed)
		return r, v.IsByte && r >= -128
	}},
	{"~", false, false, func(v Literal, signed bool) (int, bool) {
		return ^v.Int(), v.IsByte
	}},
	{"!", false, false, func(v Literal, signed bool) (int, bool) {
		return boolValue(v.Int() == 0), true
	}},
	{"<", false, false, func(v Literal, signed bool) (int, bool) {
		return v.Int() & 0xff, true
	}},
	{">", false, false, func(v Literal, signed bool) (int, bool) {
		return (v.Int() >> 8) & 0xff, true
	}},
}

var postOps = []unaryOp{
	{"++", true, true, increment(1)},
	{"--", true, true, increment(-1)},
}

func grabUnaryOp(ops []unaryOp, s fstring) (op *unaryOp, remain fstring) {
	for i := range ops {
		if s.startsWithString(ops[i].symbol) {
			return &ops[i], s.consume(len(ops[i].symbol))
		}
	}
	return nil, s
}

// checkRange reports whether v fits the given width under the signed or
// unsigned interpretation.
func checkRange(v int, isByte, signed bool) bool {
	switch {
	case isByte && signed:
		return v >= -128 && v <= 127
	case isByte:
		return v >= 0 && v <= 0xff
	case signed:
		return v >= -32768 && v <= 32767
	default:
		return v >= 0 && v <= 0xffff
	}
}
