// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cpu describes the 6502 instruction set: every opcode, its
// mnemonic, its addressing mode and its encoded length.
package cpu

import "strings"

// Mode describes a memory addressing mode.
type Mode byte

// All possible memory addressing modes
const (
	IMM Mode = iota // Immediate
	IMP             // Implied (no operand)
	REL             // Relative
	ZPG             // Zero Page
	ZPX             // Zero Page,X
	ZPY             // Zero Page,Y
	ABS             // Absolute
	ABX             // Absolute,X
	ABY             // Absolute,Y
	IND             // (Indirect)
	IDX             // (Indirect,X)
	IDY             // (Indirect),Y
	ACC             // Accumulator (no operand)
)

var modeNames = []string{
	"immediate", "implied", "relative", "zero page", "zero page,X",
	"zero page,Y", "absolute", "absolute,X", "absolute,Y", "indirect",
	"(indirect,X)", "(indirect),Y", "accumulator",
}

func (m Mode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return "unknown"
}

// ZeroPage returns the zero-page equivalent of an absolute addressing
// mode. The second return value is false if the mode has none.
func (m Mode) ZeroPage() (Mode, bool) {
	switch m {
	case ABS:
		return ZPG, true
	case ABX:
		return ZPX, true
	case ABY:
		return ZPY, true
	default:
		return m, false
	}
}

// Opcode data for an (opcode, mode) pair
type opcodeData struct {
	name   string // mnemonic
	mode   Mode   // addressing mode
	opcode byte   // opcode hex value
	length byte   // length of opcode + operand in bytes
}

// All documented NMOS (opcode, mode) pairs
var data = []opcodeData{
	{"LDA", IMM, 0xa9, 2},
	{"LDA", ZPG, 0xa5, 2},
	{"LDA", ZPX, 0xb5, 2},
	{"LDA", ABS, 0xad, 3},
	{"LDA", ABX, 0xbd, 3},
	{"LDA", ABY, 0xb9, 3},
	{"LDA", IDX, 0xa1, 2},
	{"LDA", IDY, 0xb1, 2},

	{"LDX", IMM, 0xa2, 2},
	{"LDX", ZPG, 0xa6, 2},
	{"LDX", ZPY, 0xb6, 2},
	{"LDX", ABS, 0xae, 3},
	{"LDX", ABY, 0xbe, 3},

	{"LDY", IMM, 0xa0, 2},
	{"LDY", ZPG, 0xa4, 2},
	{"LDY", ZPX, 0xb4, 2},
	{"LDY", ABS, 0xac, 3},
	{"LDY", ABX, 0xbc, 3},

	{"STA", ZPG, 0x85, 2},
	{"STA", ZPX, 0x95, 2},
	{"STA", ABS, 0x8d, 3},
	{"STA", ABX, 0x9d, 3},
	{"STA", ABY, 0x99, 3},
	{"STA", IDX, 0x81, 2},
	{"STA", IDY, 0x91, 2},

	{"STX", ZPG, 0x86, 2},
	{"STX", ZPY, 0x96, 2},
	{"STX", ABS, 0x8e, 3},

	{"STY", ZPG, 0x84, 2},
	{"STY", ZPX, 0x94, 2},
	{"STY", ABS, 0x8c, 3},

	{"ADC", IMM, 0x69, 2},
	{"ADC", ZPG, 0x65, 2},
	{"ADC", ZPX, 0x75, 2},
	{"ADC", ABS, 0x6d, 3},
	{"ADC", ABX, 0x7d, 3},
	{"ADC", ABY, 0x79, 3},
	{"ADC", IDX, 0x61, 2},
	{"ADC", IDY, 0x71, 2},

	{"SBC", IMM, 0xe9, 2},
	{"SBC", ZPG, 0xe5, 2},
	{"SBC", ZPX, 0xf5, 2},
	{"SBC", ABS, 0xed, 3},
	{"SBC", ABX, 0xfd, 3},
	{"SBC", ABY, 0xf9, 3},
	{"SBC", IDX, 0xe1, 2},
	{"SBC", IDY, 0xf1, 2},

	{"CMP", IMM, 0xc9, 2},
	{"CMP", ZPG, 0xc5, 2},
	{"CMP", ZPX, 0xd5, 2},
	{"CMP", ABS, 0xcd, 3},
	{"CMP", ABX, 0xdd, 3},
	{"CMP", ABY, 0xd9, 3},
	{"CMP", IDX, 0xc1, 2},
	{"CMP", IDY, 0xd1, 2},

	{"CPX", IMM, 0xe0, 2},
	{"CPX", ZPG, 0xe4, 2},
	{"CPX", ABS, 0xec, 3},

	{"CPY", IMM, 0xc0, 2},
	{"CPY", ZPG, 0xc4, 2},
	{"CPY", ABS, 0xcc, 3},

	{"BIT", ZPG, 0x24, 2},
	{"BIT", ABS, 0x2c, 3},

	{"CLC", IMP, 0x18, 1},
	{"SEC", IMP, 0x38, 1},
	{"CLI", IMP, 0x58, 1},
	{"SEI", IMP, 0x78, 1},
	{"CLD", IMP, 0xd8, 1},
	{"SED", IMP, 0xf8, 1},
	{"CLV", IMP, 0xb8, 1},

	{"BCC", REL, 0x90, 2},
	{"BCS", REL, 0xb0, 2},
	{"BEQ", REL, 0xf0, 2},
	{"BNE", REL, 0xd0, 2},
	{"BMI", REL, 0x30, 2},
	{"BPL", REL, 0x10, 2},
	{"BVC", REL, 0x50, 2},
	{"BVS", REL, 0x70, 2},

	{"BRK", IMP, 0x00, 1},

	{"AND", IMM, 0x29, 2},
	{"AND", ZPG, 0x25, 2},
	{"AND", ZPX, 0x35, 2},
	{"AND", ABS, 0x2d, 3},
	{"AND", ABX, 0x3d, 3},
	{"AND", ABY, 0x39, 3},
	{"AND", IDX, 0x21, 2},
	{"AND", IDY, 0x31, 2},

	{"ORA", IMM, 0x09, 2},
	{"ORA", ZPG, 0x05, 2},
	{"ORA", ZPX, 0x15, 2},
	{"ORA", ABS, 0x0d, 3},
	{"ORA", ABX, 0x1d, 3},
	{"ORA", ABY, 0x19, 3},
	{"ORA", IDX, 0x01, 2},
	{"ORA", IDY, 0x11, 2},

	{"EOR", IMM, 0x49, 2},
	{"EOR", ZPG, 0x45, 2},
	{"EOR", ZPX, 0x55, 2},
	{"EOR", ABS, 0x4d, 3},
	{"EOR", ABX, 0x5d, 3},
	{"EOR", ABY, 0x59, 3},
	{"EOR", IDX, 0x41, 2},
	{"EOR", IDY, 0x51, 2},

	{"INC", ZPG, 0xe6, 2},
	{"INC", ZPX, 0xf6, 2},
	{"INC", ABS, 0xee, 3},
	{"INC", ABX, 0xfe, 3},

	{"DEC", ZPG, 0xc6, 2},
	{"DEC", ZPX, 0xd6, 2},
	{"DEC", ABS, 0xce, 3},
	{"DEC", ABX, 0xde, 3},

	{"INX", IMP, 0xe8, 1},
	{"INY", IMP, 0xc8, 1},

	{"DEX", IMP, 0xca, 1},
	{"DEY", IMP, 0x88, 1},

	{"JMP", ABS, 0x4c, 3},
	{"JMP", IND, 0x6c, 3},

	{"JSR", ABS, 0x20, 3},
	{"RTS", IMP, 0x60, 1},

	{"RTI", IMP, 0x40, 1},

	{"NOP", IMP, 0xea, 1},

	{"TAX", IMP, 0xaa, 1},
	{"TXA", IMP, 0x8a, 1},
	{"TAY", IMP, 0xa8, 1},
	{"TYA", IMP, 0x98, 1},
	{"TXS", IMP, 0x9a, 1},
	{"TSX", IMP, 0xba, 1},

	{"PHA", IMP, 0x48, 1},
	{"PLA", IMP, 0x68, 1},
	{"PHP", IMP, 0x08, 1},
	{"PLP", IMP, 0x28, 1},

	{"ASL", ACC, 0x0a, 1},
	{"ASL", ZPG, 0x06, 2},
	{"ASL", ZPX, 0x16, 2},
	{"ASL", ABS, 0x0e, 3},
	{"ASL", ABX, 0x1e, 3},

	{"LSR", ACC, 0x4a, 1},
	{"LSR", ZPG, 0x46, 2},
	{"LSR", ZPX, 0x56, 2},
	{"LSR", ABS, 0x4e, 3},
	{"LSR", ABX, 0x5e, 3},

	{"ROL", ACC, 0x2a, 1},
	{"ROL", ZPG, 0x26, 2},
	{"ROL", ZPX, 0x36, 2},
	{"ROL", ABS, 0x2e, 3},
	{"ROL", ABX, 0x3e, 3},

	{"ROR", ACC, 0x6a, 1},
	{"ROR", ZPG, 0x66, 2},
	{"ROR", ZPX, 0x76, 2},
	{"ROR", ABS, 0x6e, 3},
	{"ROR", ABX, 0x7e, 3},
}

// Undocumented NMOS opcodes. They assemble only when invalid opcodes are
// explicitly allowed.
var undocumentedData = []opcodeData{
	{"LAX", ZPG, 0xa7, 2},
	{"LAX", ZPY, 0xb7, 2},
	{"LAX", ABS, 0xaf, 3},
	{"LAX", ABY, 0xbf, 3},
	{"LAX", IDX, 0xa3, 2},
	{"LAX", IDY, 0xb3, 2},

	{"SAX", ZPG, 0x87, 2},
	{"SAX", ZPY, 0x97, 2},
	{"SAX", ABS, 0x8f, 3},
	{"SAX", IDX, 0x83, 2},

	{"DCP", ZPG, 0xc7, 2},
	{"DCP", ZPX, 0xd7, 2},
	{"DCP", ABS, 0xcf, 3},
	{"DCP", ABX, 0xdf, 3},
	{"DCP", ABY, 0xdb, 3},
	{"DCP", IDX, 0xc3, 2},
	{"DCP", IDY, 0xd3, 2},

	{"ISC", ZPG, 0xe7, 2},
	{"ISC", ZPX, 0xf7, 2},
	{"ISC", ABS, 0xef, 3},
	{"ISC", ABX, 0xff, 3},
	{"ISC", ABY, 0xfb, 3},
	{"ISC", IDX, 0xe3, 2},
	{"ISC", IDY, 0xf3, 2},

	{"SLO", ZPG, 0x07, 2},
	{"SLO", ZPX, 0x17, 2},
	{"SLO", ABS, 0x0f, 3},
	{"SLO", ABX, 0x1f, 3},
	{"SLO", ABY, 0x1b, 3},
	{"SLO", IDX, 0x03, 2},
	{"SLO", IDY, 0x13, 2},

	{"RLA", ZPG, 0x27, 2},
	{"RLA", ZPX, 0x37, 2},
	{"RLA", ABS, 0x2f, 3},
	{"RLA", ABX, 0x3f, 3},
	{"RLA", ABY, 0x3b, 3},
	{"RLA", IDX, 0x23, 2},
	{"RLA", IDY, 0x33, 2},

	{"SRE", ZPG, 0x47, 2},
	{"SRE", ZPX, 0x57, 2},
	{"SRE", ABS, 0x4f, 3},
	{"SRE", ABX, 0x5f, 3},
	{"SRE", ABY, 0x5b, 3},
	{"SRE", IDX, 0x43, 2},
	{"SRE", IDY, 0x53, 2},

	{"RRA", ZPG, 0x67, 2},
	{"RRA", ZPX, 0x77, 2},
	{"RRA", ABS, 0x6f, 3},
	{"RRA", ABX, 0x7f, 3},
	{"RRA", ABY, 0x7b, 3},
	{"RRA", IDX, 0x63, 2},
	{"RRA", IDY, 0x73, 2},

	{"ANC", IMM, 0x0b, 2},
	{"ALR", IMM, 0x4b, 2},
	{"ARR", IMM, 0x6b, 2},
	{"AXS", IMM, 0xcb, 2},
}

// An Instruction describes a CPU instruction, including its name,
// its addressing mode, its opcode value and its length.
type Instruction struct {
	Name   string // all-caps name of the instruction
	Mode   Mode   // addressing mode
	Opcode byte   // hexadecimal opcode value
	Length byte   // combined size of opcode and operand, in bytes
	Valid  bool   // false for undocumented opcodes
}

// IsBranch returns true if the instruction takes a relative branch
// offset operand.
func (i *Instruction) IsBranch() bool {
	return i.Mode == REL
}

// LookupResult describes the outcome of an instruction set search.
type LookupResult byte

const (
	// Found means a usable opcode matched the name and mode.
	Found LookupResult = iota

	// UnknownInstruction means no instruction has the requested name.
	UnknownInstruction

	// InvalidAddressing means the instruction exists but does not support
	// the requested addressing mode.
	InvalidAddressing

	// InvalidOpcode means the instruction and mode matched an undocumented
	// opcode while invalid opcodes were disallowed.
	InvalidOpcode
)

var lookupResultNames = []string{
	"found", "unknown instruction", "invalid addressing mode", "invalid opcode",
}

func (r LookupResult) String() string {
	return lookupResultNames[r]
}

// An InstructionSet defines the set of all instructions the assembler
// can encode.
type InstructionSet struct {
	instructions [256]*Instruction         // all instructions by opcode
	variants     map[string][]*Instruction // variants of each instruction
}

// Lookup retrieves the instruction corresponding to the requested opcode.
// It returns nil if the opcode is not assigned.
func (s *InstructionSet) Lookup(opcode byte) *Instruction {
	return s.instructions[opcode]
}

// GetInstructions returns all instructions whose name matches the
// provided string.
func (s *InstructionSet) GetInstructions(name string) []*Instruction {
	return s.variants[strings.ToUpper(name)]
}

// Find searches for the variant of the named instruction that uses the
// requested addressing mode. Implied mode also matches accumulator
// variants, and absolute mode also matches relative branch variants.
func (s *InstructionSet) Find(name string, mode Mode, allowInvalid bool) (*Instruction, LookupResult) {
	variants := s.GetInstructions(name)
	if len(variants) == 0 {
		return nil, UnknownInstruction
	}

	for _, inst := range variants {
		if !modeMatches(inst.Mode, mode) {
			continue
		}
		if !inst.Valid && !allowInvalid {
			return inst, InvalidOpcode
		}
		return inst, Found
	}
	return nil, InvalidAddressing
}

func modeMatches(have, want Mode) bool {
	switch {
	case have == want:
		return true
	case want == IMP && have == ACC:
		return true
	case want == ABS && have == REL:
		return true
	default:
		return false
	}
}

func newInstructionSet() *InstructionSet {
	set := &InstructionSet{variants: make(map[string][]*Instruction)}

	add := func(d opcodeData, valid bool) {
		if set.instructions[d.opcode] != nil {
			panic("duplicate opcode")
		}
		inst := &Instruction{
			Name:   d.name,
			Mode:   d.mode,
			Opcode: d.opcode,
			Length: d.length,
			Valid:  valid,
		}
		set.instructions[d.opcode] = inst
		set.variants[inst.Name] = append(set.variants[inst.Name], inst)
	}

	for _, d := range data {
		add(d, true)
	}
	for _, d := range undocumentedData {
		add(d, false)
	}
	return set
}

var instructionSet = newInstructionSet()

// GetInstructionSet returns the NMOS 6502 instruction set. The set is
// immutable and safe to share.
func GetInstructionSet() *InstructionSet {
	return instructionSet
}
