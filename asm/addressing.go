// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"strings"

	"github.com/beevik/asm65/cpu"
)

// parseAddressing derives an addressing mode from the syntax of an
// operand and returns the operand's value expression. Absolute modes are
// refined to zero-page modes later, once the value's width is known.
func parseAddressing(s fstring) (cpu.Mode, fstring) {
	s = s.trim()
	switch {
	case s.isEmpty() || strings.EqualFold(s.str, "A"):
		return cpu.IMP, s.consume(len(s.str))
	case s.startsWithChar('#'):
		return cpu.IMM, s.consume(1).trim()
	}

	if i := s.indexUnquoted(','); i >= 0 {
		base, reg := s.split(i)
		base, reg = base.trim(), reg.trim()
		switch strings.ToUpper(reg.str) {
		case "X":
			return cpu.ABX, base
		case "Y":
			if inner, ok := parenthesized(base); ok {
				return cpu.IDY, inner
			}
			return cpu.ABY, base
		}
		return cpu.ABS, s
	}

	if inner, ok := parenthesized(s); ok {
		if j := inner.indexUnquoted(','); j >= 0 {
			base, reg := inner.split(j)
			if strings.EqualFold(reg.trim().str, "X") {
				return cpu.IDX, base.trim()
			}
		}
		return cpu.IND, inner
	}

	return cpu.ABS, s
}

// parenthesized reports whether s is entirely wrapped by one pair of
// parentheses and returns the text between them.
func parenthesized(s fstring) (fstring, bool) {
	if !s.startsWithChar('(') || !s.endsWithChar(')') {
		return s, false
	}
	depth := 0
	for i := 0; i < len(s.str); i++ {
		switch s.str[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 && i != len(s.str)-1 {
				return s, false
			}
		}
	}
	return s.consume(1).trunc(len(s.str) - 2).trim(), true
}

// findOpcode resolves a mnemonic and addressing mode to an instruction.
// Absolute modes the instruction lacks fall back to their zero-page
// equivalents.
func (p *parser) findOpcode(name string, mode cpu.Mode) (*cpu.Instruction, cpu.LookupResult) {
	inst, result := p.set.Find(name, mode, p.allowInvalid)
	if result == cpu.InvalidAddressing {
		if zp, ok := mode.ZeroPage(); ok {
			if zinst, zresult := p.set.Find(name, zp, p.allowInvalid); zresult == cpu.Found {
				return zinst, zresult
			}
		}
	}
	return inst, result
}

// parseInstruction parses a CPU instruction. It returns false if name is
// not an instruction mnemonic.
func (p *parser) parseInstruction(name string, operand fstring) (bool, *Error) {
	mode, value := parseAddressing(operand)
	inst, result := p.findOpcode(name, mode)

	switch result {
	case cpu.UnknownInstruction:
		return false, nil
	case cpu.InvalidAddressing:
		return true, newError(InvalidInstruction, "%s does not support %s addressing", strings.ToUpper(name), mode)
	case cpu.InvalidOpcode:
		return true, newError(InvalidInstruction, "%s %s is an undocumented opcode ($%02X); invalid opcodes are disabled",
			inst.Name, inst.Mode, inst.Opcode)
	}

	in := instruction{opcode: inst.Opcode, line: operand.line}
	if inst.Length > 1 {
		if value.isEmpty() {
			return true, newError(ExpectedExpression, "%s requires an operand", inst.Name)
		}
		in.operand = newAsmValue(value.str)
	}
	p.data.addInstruction(in)
	p.storeComment(operand.line)
	return true, nil
}
