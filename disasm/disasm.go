// Copyright 2014 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package disasm implements a 6502 instruction set
// disassembler.
package disasm

import (
	"fmt"

	"github.com/beevik/asm65/cpu"
)

// Disassembler formatting for addressing modes
var modeFormat = []string{
	"#$%s",    // IMM
	"%s",      // IMP
	"$%s",     // REL
	"$%s",     // ZPG
	"$%s,X",   // ZPX
	"$%s,Y",   // ZPY
	"$%s",     // ABS
	"$%s,X",   // ABX
	"$%s,Y",   // ABY
	"($%s)",   // IND
	"($%s,X)", // IDX
	"($%s),Y", // IDY
	"%s",      // ACC
}

var hex = "0123456789ABCDEF"

// Return a hexadecimal string representation of the byte slice, most
// significant byte first.
func hexString(b []byte) string {
	hexlen := len(b) * 2
	hexbuf := make([]byte, hexlen)
	j := hexlen - 1
	for _, n := range b {
		hexbuf[j] = hex[n&0xf]
		hexbuf[j-1] = hex[n>>4]
		j -= 2
	}
	return string(hexbuf)
}

// Disassemble the instruction at 'offset' in 'code', which is loaded at
// address 'addr'. Return a 'line' string representing the disassembled
// instruction and the offset of the following instruction. Bytes that
// do not start a complete instruction are shown as data.
func Disassemble(code []byte, offset int, addr uint16) (line string, next int) {
	opcode := code[offset]
	inst := cpu.GetInstructionSet().Lookup(opcode)
	if inst == nil || offset+int(inst.Length) > len(code) {
		return fmt.Sprintf(".db $%02X", opcode), offset + 1
	}

	operand := code[offset+1 : offset+int(inst.Length)]
	if inst.Mode == cpu.REL {
		// Convert relative offset to absolute address.
		braddr := int(addr) + int(inst.Length) + int(int8(operand[0]))
		operand = []byte{byte(braddr & 0xff), byte(braddr >> 8)}
	}
	format := "%s " + modeFormat[inst.Mode]
	line = fmt.Sprintf(format, inst.Name, hexString(operand))
	if inst.Mode == cpu.IMP || inst.Mode == cpu.ACC {
		line = inst.Name
	}
	return line, offset + int(inst.Length)
}

// CodeString returns the bytes of the instruction at 'offset' as a
// space-separated hexadecimal string.
func CodeString(code []byte, offset, n int) string {
	end := min(offset+n, len(code))
	s := ""
	for i := offset; i < end; i++ {
		if i > offset {
			s += " "
		}
		s += fmt.Sprintf("%02X", code[i])
	}
	return s
}
