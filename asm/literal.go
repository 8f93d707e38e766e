// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"fmt"
	"strconv"
)

// A Literal is a numeric value produced by the evaluator. If IsByte is
// set, only the low 8 bits of Value are meaningful.
type Literal struct {
	Value  uint16
	IsByte bool
}

// Byte returns a byte-width literal.
func Byte(v byte) Literal {
	return Literal{Value: uint16(v), IsByte: true}
}

// Word returns a word-width literal.
func Word(v uint16) Literal {
	return Literal{Value: v}
}

func (l Literal) String() string {
	if l.IsByte {
		return fmt.Sprintf("$%02X", byte(l.Value))
	}
	return fmt.Sprintf("$%04X", l.Value)
}

// Int returns the literal's value interpreted as unsigned.
func (l Literal) Int() int {
	if l.IsByte {
		return int(byte(l.Value))
	}
	return int(l.Value)
}

// Signed returns the literal's value interpreted as two's complement at
// its own width.
func (l Literal) Signed() int {
	if l.IsByte {
		return int(int8(l.Value))
	}
	return int(int16(l.Value))
}

// makeLiteral narrows an intermediate result to the requested width.
func makeLiteral(v int, isByte bool) Literal {
	if isByte {
		return Literal{Value: uint16(v) & 0xff, IsByte: true}
	}
	return Literal{Value: uint16(v)}
}

const (
	minLiteral = -32768
	maxLiteral = 65535
)

// parseNumber parses a numeric literal at the start of the cursor: a
// '$'-prefixed hexadecimal number, a '%'-prefixed binary number, or a
// decimal number. A leading '#' is skipped. The second return value is
// false if the cursor does not start with a number.
func parseNumber(s fstring) (lit Literal, remain fstring, ok bool, err *Error) {
	if s.startsWithChar('#') {
		s = s.consume(1)
	}

	switch {
	case s.startsWithChar('$') && hexadecimal(s.charAt(1)):
		digits, rest := s.consume(1).consumeWhile(hexadecimal)
		lit, err = parseDigits(digits.str, 16, len(digits.str) <= 2)
		return lit, rest, true, err

	case s.startsWithChar('%') && binarynum(s.charAt(1)):
		digits, rest := s.consume(1).consumeWhile(binarynum)
		if len(digits.str) > 16 {
			return lit, rest, true, newError(InvalidNumber, "binary number '%s' has more than 16 digits", digits.str)
		}
		lit, err = parseDigits(digits.str, 2, len(digits.str) <= 8)
		return lit, rest, true, err

	case s.startsWith(decimal):
		digits, rest := s.consumeWhile(decimal)
		v, perr := strconv.ParseInt(digits.str, 10, 32)
		if perr != nil || v > maxLiteral {
			return lit, rest, true, newError(InvalidNumber, "number '%s' is out of range", digits.str)
		}
		isWord := (digits.str[0] == '0' && len(digits.str) > 1) || v > 255
		return makeLiteral(int(v), !isWord), rest, true, nil
	}

	return lit, s, false, nil
}

func parseDigits(digits string, base int, isByte bool) (Literal, *Error) {
	v, err := strconv.ParseInt(digits, base, 32)
	if err != nil || v < minLiteral || v > maxLiteral {
		return Literal{}, newError(InvalidNumber, "number '%s' is out of range", digits)
	}
	return makeLiteral(int(v), isByte), nil
}

// TryParseLiteral reports whether the whole string is a single numeric
// literal and returns its value.
func TryParseLiteral(s string) (Literal, bool) {
	lit, rest, ok, err := parseNumber(newFstring(0, s).trim())
	if !ok || err != nil || !rest.trim().isEmpty() {
		return Literal{}, false
	}
	return lit, true
}
